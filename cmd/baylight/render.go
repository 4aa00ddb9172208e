package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/led"
	"github.com/sigreer/baylight/internal/monitor"
)

var (
	colorGood = lipgloss.Color("#50FA7B")
	colorWarn = lipgloss.Color("#F1FA8C")
	colorBad  = lipgloss.Color("#FF5555")
	colorDim  = lipgloss.Color("#6272A4")

	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	return t
}

func title(s string) {
	fmt.Println(titleStyle.Render(s))
}

// swatch draws a block in the indicator color; off indicators show hollow.
func swatch(c led.Color, brightness uint8) string {
	if brightness == 0 || c == led.Off {
		return lipgloss.NewStyle().Foreground(colorDim).Render("○ off")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("●") + " " + c.String()
}

func stateText(s health.State) string {
	var c lipgloss.Color
	switch r := health.Rank(s); {
	case r == health.Rank(health.Healthy):
		c = colorGood
	case health.Absolute(s):
		c = colorBad
	case r == health.Rank(health.Warning):
		c = colorWarn
	default:
		c = colorDim
	}
	return lipgloss.NewStyle().Foreground(c).Render(string(s))
}

func slotText(i int) string {
	if i == monitor.NoSlot {
		return "-"
	}
	return fmt.Sprintf("bay %d", i+1)
}

func printCycle(res monitor.CycleResult) {
	t := newTable(table.Row{"Indicator", "Domain", "Slot", "Device", "State", "Color", "Reason"})
	for _, o := range res.Outputs {
		dev := o.Device
		if dev == "" {
			dev = "-"
		}
		t.AppendRow(table.Row{o.Indicator, o.Domain, slotText(o.Slot), dev,
			stateText(o.State), swatch(o.Color, o.Brightness), o.Reason})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "cycle", fmt.Sprintf("%s in %s",
		res.ID[:8], res.Duration.Round(time.Millisecond))})
	t.Render()
}

func sizeText(b uint64) string {
	if b == 0 {
		return "-"
	}
	return humanize.Bytes(b)
}
