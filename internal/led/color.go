package led

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sigreer/baylight/internal/fault"
	"gopkg.in/yaml.v3"
)

// Color is an RGB triple as sent to the panel controller.
type Color struct {
	R, G, B uint8
}

// RGB builds a Color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Off is the all-zero color.
var Off = Color{}

// ParseColor accepts "r g b" (space or comma separated, 0-255) or "#rrggbb".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := strings.TrimPrefix(s, "#")
		if len(hex) != 6 {
			return Color{}, fmt.Errorf("%q: %w", s, fault.ErrInvalidColor)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return Color{}, fmt.Errorf("%q: %w", s, fault.ErrInvalidColor)
		}
		return RGB(uint8(v>>16), uint8(v>>8), uint8(v)), nil
	}

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("%q: want three components: %w", s, fault.ErrInvalidColor)
	}
	var c [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%q: component %q out of range: %w", s, p, fault.ErrInvalidColor)
		}
		c[i] = uint8(v)
	}
	return RGB(c[0], c[1], c[2]), nil
}

func (c Color) String() string {
	return fmt.Sprintf("%d %d %d", c.R, c.G, c.B)
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var vals []uint8
		if err := node.Decode(&vals); err != nil || len(vals) != 3 {
			return fmt.Errorf("line %d: %w", node.Line, fault.ErrInvalidColor)
		}
		*c = RGB(vals[0], vals[1], vals[2])
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Color) MarshalYAML() (any, error) {
	return c.String(), nil
}
