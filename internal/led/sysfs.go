package led

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sigreer/baylight/internal/fault"
)

// DefaultSysfsRoot is where the led-ugreen kernel module registers its LEDs.
const DefaultSysfsRoot = "/sys/class/leds"

// Sysfs drives indicators through the led class device files:
// color ("r g b"), brightness (0-255) and trigger.
type Sysfs struct {
	Root string
}

// NewSysfs returns a Sysfs driver rooted at root.
func NewSysfs(root string) *Sysfs {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &Sysfs{Root: root}
}

func (d *Sysfs) write(n Name, file, value string) error {
	path := filepath.Join(d.Root, string(n), file)
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("%s: %w: %w", path, fault.ErrIndicatorWriteFailed, err)
	}
	return nil
}

// SetColor implements Driver.
func (d *Sysfs) SetColor(_ context.Context, n Name, c Color) error {
	return d.write(n, "color", c.String())
}

// SetBrightness implements Driver.
func (d *Sysfs) SetBrightness(_ context.Context, n Name, level uint8) error {
	return d.write(n, "brightness", strconv.Itoa(int(level)))
}

// SetEnabled implements Driver. The module treats trigger "none" as off.
func (d *Sysfs) SetEnabled(_ context.Context, n Name, on bool) error {
	if on {
		return d.write(n, "trigger", "default-on")
	}
	return d.write(n, "trigger", "none")
}
