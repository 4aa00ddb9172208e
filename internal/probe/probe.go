// Package probe runs the external system tools (lsblk, smartctl, zpool, ip,
// ping, dmidecode) that every health check reads from.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sigreer/baylight/internal/fault"
	"golang.org/x/sys/unix"
)

// Command is a single tool invocation.
type Command struct {
	Name string
	Args []string
}

// Cmd builds a Command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// String renders the command as it would be typed in a shell.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the captured output of a finished command. A non-zero exit
// code is data, not an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout followed by stderr.
func (r Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	return r.Stdout + r.Stderr
}

// Runner executes commands. Run returns an error only when the command could
// not be started at all; that error wraps fault.ErrProbeUnavailable.
type Runner interface {
	Run(ctx context.Context, c Command) (Result, error)
}

// Exec runs commands on the host with os/exec.
type Exec struct{}

// Run implements Runner.
func (Exec) Run(ctx context.Context, c Command) (Result, error) {
	if _, err := exec.LookPath(c.Name); err != nil {
		return Result{}, fmt.Errorf("%s: %w", c.Name, fault.ErrProbeUnavailable)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		// killed by ctx cancellation reports -1
		if res.ExitCode >= 0 {
			return res, nil
		}
	}
	return res, fmt.Errorf("%s: %w: %w", c.String(), fault.ErrProbeUnavailable, err)
}

// PathExists reports whether path exists, without following permissions.
func PathExists(path string) bool {
	return unix.Access(path, unix.F_OK) == nil
}
