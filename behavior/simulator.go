// Package behavior drives human-like interaction on a rendered page before
// extraction: pointer movement, paced scrolling and overlay dismissal.
package behavior

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/use-agent/postmeta/config"
)

// Surface is the subset of a live page the simulator drives.
type Surface interface {
	MoveMouse(ctx context.Context, x, y float64) error
	ScrollBy(ctx context.Context, dy int) error
	ScrollToBottom(ctx context.Context) error
	ScrollToTop(ctx context.Context) error
	ClickFirst(ctx context.Context, selectors ...string) (bool, error)
	UnlockScroll(ctx context.Context) error
}

// engagementOffset is how far below the top the engagement bar usually sits.
const engagementOffset = 600

// closeSelectors match login and close overlays, English and Spanish.
var closeSelectors = []string{
	`div[aria-label='Close']`,
	`div[aria-label='Cerrar']`,
	`[aria-label='Close']`,
	`[aria-label='Cerrar']`,
	`[data-testid='login_wall_dismiss']`,
}

// Simulator runs the interaction sequence. It is stateless apart from its
// random source and safe for concurrent use.
type Simulator struct {
	cfg    config.BehaviorConfig
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Simulator.
func New(cfg config.BehaviorConfig, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{cfg: cfg, logger: logger, sleep: sleepCtx}
}

// Run performs the sequence on s. Individual failures are logged and
// skipped; Run returns early only when ctx is done. extraWait is added to
// the final settle pause.
func (sim *Simulator) Run(ctx context.Context, s Surface, extraWait time.Duration) error {
	if !sim.cfg.Enabled {
		return sim.sleep(ctx, extraWait)
	}

	// ── 1. Pointer ──────────────────────────────────────────────────
	x := 200 + rand.Float64()*800
	y := 150 + rand.Float64()*400
	sim.warn(s.MoveMouse(ctx, x, y), "mouse_move")

	// ── 2. Incremental scroll ───────────────────────────────────────
	for i := range sim.cfg.ScrollSteps {
		sim.warn(s.ScrollBy(ctx, 300+i*100), "scroll_step")
		if err := sim.sleep(ctx, between(sim.cfg.StepDelayMin, sim.cfg.StepDelayMax)); err != nil {
			return err
		}
	}

	// ── 3. Full page, then back to the engagement area ──────────────
	sim.warn(s.ScrollToBottom(ctx), "scroll_bottom")
	if err := sim.sleep(ctx, between(sim.cfg.StepDelayMin, sim.cfg.StepDelayMax)); err != nil {
		return err
	}
	sim.warn(s.ScrollToTop(ctx), "scroll_top")
	sim.warn(s.ScrollBy(ctx, engagementOffset), "scroll_engagement")

	// ── 4. Overlays ─────────────────────────────────────────────────
	clicked, err := s.ClickFirst(ctx, closeSelectors...)
	sim.warn(err, "dismiss_overlay")
	if clicked {
		sim.logger.Debug("dismissed overlay")
		sim.warn(s.UnlockScroll(ctx), "unlock_scroll")
	}

	// ── 5. Settle ───────────────────────────────────────────────────
	return sim.sleep(ctx, between(sim.cfg.SettleDelayMin, sim.cfg.SettleDelayMax)+extraWait)
}

func (sim *Simulator) warn(err error, step string) {
	if err != nil {
		sim.logger.Warn("behavior step failed", "step", step, "error", err)
	}
}

// between returns a uniform random duration in [lo, hi].
func between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return max(lo, 0)
	}
	return lo + rand.N(hi-lo+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
