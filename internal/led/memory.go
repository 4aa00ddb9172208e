package led

import (
	"context"
	"fmt"
	"sync"
)

// State is the last written state of one indicator.
type State struct {
	Color      Color
	Brightness uint8
	On         bool
}

// Memory records writes instead of touching hardware. It backs the test
// command's dry-run mode and the package tests.
type Memory struct {
	mu     sync.Mutex
	states map[Name]State
	ops    []string
	failOn map[Name]error
}

// NewMemory returns an empty Memory driver.
func NewMemory() *Memory {
	return &Memory{states: make(map[Name]State), failOn: make(map[Name]error)}
}

// FailOn makes every write to n return err.
func (m *Memory) FailOn(n Name, err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[n] = err
	return m
}

// State returns the recorded state of n.
func (m *Memory) State(n Name) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[n]
	return s, ok
}

// Ops returns every write in order.
func (m *Memory) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *Memory) update(n Name, op string, fn func(*State)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, fmt.Sprintf("%s %s", n, op))
	if err := m.failOn[n]; err != nil {
		return err
	}
	s := m.states[n]
	fn(&s)
	m.states[n] = s
	return nil
}

// SetColor implements Driver.
func (m *Memory) SetColor(_ context.Context, n Name, c Color) error {
	return m.update(n, "color "+c.String(), func(s *State) { s.Color = c })
}

// SetBrightness implements Driver.
func (m *Memory) SetBrightness(_ context.Context, n Name, level uint8) error {
	return m.update(n, fmt.Sprintf("brightness %d", level), func(s *State) { s.Brightness = level })
}

// SetEnabled implements Driver.
func (m *Memory) SetEnabled(_ context.Context, n Name, on bool) error {
	return m.update(n, fmt.Sprintf("on %t", on), func(s *State) { s.On = on })
}
