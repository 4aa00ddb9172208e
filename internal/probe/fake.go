package probe

import (
	"context"
	"fmt"
	"sync"

	"github.com/sigreer/baylight/internal/fault"
)

// Fake replays canned results keyed by Command.String(). Commands without a
// canned result behave as if the tool were not installed.
type Fake struct {
	mu      sync.Mutex
	results map[string]Result
	errs    map[string]error
	paths   map[string]bool
	calls   []string
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		results: make(map[string]Result),
		errs:    make(map[string]error),
		paths:   make(map[string]bool),
	}
}

// On registers stdout and exit code for a command line.
func (f *Fake) On(cmdline, stdout string, exitCode int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[cmdline] = Result{Stdout: stdout, ExitCode: exitCode}
	delete(f.errs, cmdline)
	return f
}

// Fail registers an error for a command line.
func (f *Fake) Fail(cmdline string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[cmdline] = err
	return f
}

// WithPath marks a filesystem path as present for Exists.
func (f *Fake) WithPath(paths ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		f.paths[p] = true
	}
	return f
}

// Exists reports whether path was registered with WithPath.
func (f *Fake) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paths[path]
}

// Calls returns every command line run so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, c Command) (Result, error) {
	key := c.String()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)

	if err, ok := f.errs[key]; ok {
		return Result{}, err
	}
	if res, ok := f.results[key]; ok {
		return res, nil
	}
	return Result{}, fmt.Errorf("%s: %w", key, fault.ErrProbeUnavailable)
}
