// Package led writes colors and brightness to the front panel indicators.
package led

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/probe"
)

// Name is a logical indicator name as known to the panel controller.
type Name string

const (
	Power  Name = "power"
	Netdev Name = "netdev"
)

// Disk returns the indicator of the 1-based bay n.
func Disk(n int) Name {
	return Name("disk" + strconv.Itoa(n))
}

// Names lists every indicator on an eight bay panel.
var Names = []Name{Power, Netdev, Disk(1), Disk(2), Disk(3), Disk(4), Disk(5), Disk(6), Disk(7), Disk(8)}

// Valid reports whether n is a known indicator.
func Valid(n Name) bool {
	for _, x := range Names {
		if x == n {
			return true
		}
	}
	return false
}

// MaxBrightness is full intensity.
const MaxBrightness uint8 = 255

// Driver writes to indicators. Implementations must be safe to call from a
// single goroutine; no concurrent use is assumed.
type Driver interface {
	SetColor(ctx context.Context, n Name, c Color) error
	SetBrightness(ctx context.Context, n Name, level uint8) error
	SetEnabled(ctx context.Context, n Name, on bool) error
}

// Apply sets color then brightness, and switches the indicator on unless
// brightness is zero.
func Apply(ctx context.Context, d Driver, n Name, c Color, brightness uint8) error {
	if err := d.SetColor(ctx, n, c); err != nil {
		return err
	}
	if err := d.SetBrightness(ctx, n, brightness); err != nil {
		return err
	}
	return d.SetEnabled(ctx, n, brightness > 0)
}

// CLI drives indicators through the ugreen_leds_cli tool.
type CLI struct {
	Runner probe.Runner
	Path   string
}

// NewCLI returns a CLI driver for the tool at path.
func NewCLI(r probe.Runner, path string) *CLI {
	if path == "" {
		path = "ugreen_leds_cli"
	}
	return &CLI{Runner: r, Path: path}
}

func (d *CLI) run(ctx context.Context, n Name, args ...string) error {
	cmd := probe.Cmd(d.Path, append([]string{string(n)}, args...)...)
	res, err := d.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", n, fault.ErrIndicatorWriteFailed, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s: %s exited %d: %s: %w", n, d.Path, res.ExitCode,
			strings.TrimSpace(res.Combined()), fault.ErrIndicatorWriteFailed)
	}
	return nil
}

// SetColor implements Driver.
func (d *CLI) SetColor(ctx context.Context, n Name, c Color) error {
	return d.run(ctx, n, "-color", strconv.Itoa(int(c.R)), strconv.Itoa(int(c.G)), strconv.Itoa(int(c.B)))
}

// SetBrightness implements Driver.
func (d *CLI) SetBrightness(ctx context.Context, n Name, level uint8) error {
	return d.run(ctx, n, "-brightness", strconv.Itoa(int(level)))
}

// SetEnabled implements Driver.
func (d *CLI) SetEnabled(ctx context.Context, n Name, on bool) error {
	if on {
		return d.run(ctx, n, "-on")
	}
	return d.run(ctx, n, "-off")
}

// Nop discards every write.
type Nop struct{}

func (Nop) SetColor(context.Context, Name, Color) error     { return nil }
func (Nop) SetBrightness(context.Context, Name, uint8) error { return nil }
func (Nop) SetEnabled(context.Context, Name, bool) error     { return nil }
