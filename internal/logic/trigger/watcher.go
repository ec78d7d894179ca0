package trigger

import (
	"context"
	"time"

	"github.com/cjeanneret/lvs/internal/debug"
	"github.com/cjeanneret/lvs/internal/hw/gpio"
)

// HandlerFunc is called on every accepted trigger.
type HandlerFunc func(ctx context.Context)

// Config holds the PIR watcher parameters.
type Config struct {
	Pin      int           // GPIO input pin (BCM)
	Poll     time.Duration // sampling period
	Cooldown time.Duration // edges ignored for this long after a trigger
}

// Watcher polls a PIR sensor output and fires the handler on LOW->HIGH edges.
type Watcher struct {
	gpio    gpio.Driver
	cfg     Config
	handler HandlerFunc
	now     func() time.Time
}

// NewWatcher configures pin as a pulled-down input and returns a watcher.
func NewWatcher(g gpio.Driver, cfg Config, handler HandlerFunc) (*Watcher, error) {
	if err := g.SetupPin(cfg.Pin, gpio.InputPullDown); err != nil {
		return nil, err
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 100 * time.Millisecond
	}
	return &Watcher{gpio: g, cfg: cfg, handler: handler, now: time.Now}, nil
}

// Run samples the pin until ctx is cancelled. The handler runs synchronously,
// so edges during a capture are not queued.
func (w *Watcher) Run(ctx context.Context) error {
	debug.Info("Watching PIR sensor on GPIO %d (poll %v, cooldown %v)", w.cfg.Pin, w.cfg.Poll, w.cfg.Cooldown)

	ticker := time.NewTicker(w.cfg.Poll)
	defer ticker.Stop()

	last := gpio.Low
	var lastFired time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		level, err := w.gpio.ReadPin(w.cfg.Pin)
		if err != nil {
			return err
		}
		rising := last == gpio.Low && level == gpio.High
		last = level
		if !rising {
			continue
		}

		now := w.now()
		if !lastFired.IsZero() && now.Sub(lastFired) < w.cfg.Cooldown {
			debug.Live("PIR edge ignored (cooldown, %v since last trigger)", now.Sub(lastFired).Round(time.Millisecond))
			continue
		}
		lastFired = now
		debug.Live("PIR edge on GPIO %d", w.cfg.Pin)
		w.handler(ctx)
	}
}
