package led

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/logging"
)

// ErrOutputDisabled is returned for writes dropped after a failure.
var ErrOutputDisabled = fmt.Errorf("indicator output disabled: %w", fault.ErrIndicatorWriteFailed)

// BestEffort wraps a Driver so that the first write failure is logged once
// and every later write is dropped with ErrOutputDisabled. Health evaluation
// keeps running without output.
type BestEffort struct {
	next     Driver
	disabled atomic.Bool
	log      *slog.Logger
}

// NewBestEffort wraps d.
func NewBestEffort(d Driver) *BestEffort {
	return &BestEffort{next: d, log: logging.Component("led")}
}

// Disabled reports whether output was switched off after a failure.
func (b *BestEffort) Disabled() bool {
	return b.disabled.Load()
}

func (b *BestEffort) guard(n Name, op string, fn func() error) error {
	if b.disabled.Load() {
		return ErrOutputDisabled
	}
	if err := fn(); err != nil {
		if b.disabled.CompareAndSwap(false, true) {
			b.log.Error("indicator output disabled", "indicator", n, "op", op, "error", err)
		}
		return err
	}
	return nil
}

// SetColor implements Driver.
func (b *BestEffort) SetColor(ctx context.Context, n Name, c Color) error {
	return b.guard(n, "color", func() error { return b.next.SetColor(ctx, n, c) })
}

// SetBrightness implements Driver.
func (b *BestEffort) SetBrightness(ctx context.Context, n Name, level uint8) error {
	return b.guard(n, "brightness", func() error { return b.next.SetBrightness(ctx, n, level) })
}

// SetEnabled implements Driver.
func (b *BestEffort) SetEnabled(ctx context.Context, n Name, on bool) error {
	return b.guard(n, "enable", func() error { return b.next.SetEnabled(ctx, n, on) })
}
