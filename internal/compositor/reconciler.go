package compositor

import (
	"log/slog"
	"time"

	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/wm"
)

// DefaultReconcileInterval is how often managed windows are checked against
// the surfaces the display server still knows about.
const DefaultReconcileInterval = 10 * time.Second

// SurfaceLister returns the surfaces that currently exist.
type SurfaceLister func() ([]platform.WindowID, error)

// Reconciler drops managed windows whose surface vanished without a destroy
// event reaching the shell. It runs inside the frame loop, so it is driven by
// timestamps rather than a ticker.
type Reconciler struct {
	interval time.Duration
	wm       *wm.Manager
	list     SurfaceLister
	logger   *slog.Logger
	last     time.Time
}

func NewReconciler(interval time.Duration, manager *wm.Manager, list SurfaceLister, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval: interval,
		wm:       manager,
		list:     list,
		logger:   logger,
	}
}

// MaybeReconcile runs a pass if at least one interval has elapsed since the
// last one. The first call only starts the clock.
func (r *Reconciler) MaybeReconcile(now time.Time) int {
	if r.last.IsZero() {
		r.last = now
		return 0
	}
	if now.Sub(r.last) < r.interval {
		return 0
	}
	r.last = now
	return r.ReconcileNow()
}

// ReconcileNow performs a pass immediately and returns the number of windows
// removed.
func (r *Reconciler) ReconcileNow() (removed int) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconcile panic recovered", "error", err)
		}
	}()

	surfaces, err := r.list()
	if err != nil {
		r.logger.Warn("reconcile: failed to list surfaces", "error", err)
		return 0
	}
	alive := make(map[platform.WindowID]struct{}, len(surfaces))
	for _, s := range surfaces {
		alive[s] = struct{}{}
	}

	for _, w := range r.wm.Windows() {
		if _, ok := alive[w.Surface]; ok {
			continue
		}
		if _, ok := r.wm.RemoveWindow(w.Surface); ok {
			removed++
			r.logger.Info("reconcile: dropped window with missing surface", "surface", w.Surface, "title", w.Title)
		}
	}
	if removed > 0 {
		r.logger.Debug("reconcile complete", "removed", removed, "remaining", r.wm.Len())
	}
	return removed
}
