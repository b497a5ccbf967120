// Package notify is the outbound notification boundary. The monitor loop
// fires one notification per confirmed overheat and moves on; delivery,
// retries, and acknowledgement belong to whatever sits behind the Notifier.
package notify

import (
	"context"
	"log"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
)

// Notifier receives confirmed overheat events.
type Notifier interface {
	NotifyOverheat(ctx context.Context, event *domain.OverheatEvent) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, event *domain.OverheatEvent) error

// NotifyOverheat calls f.
func (f Func) NotifyOverheat(ctx context.Context, event *domain.OverheatEvent) error {
	return f(ctx, event)
}

// LogNotifier writes overheat events to a logger.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses log.Default().
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

// NotifyOverheat logs the event.
func (n *LogNotifier) NotifyOverheat(_ context.Context, event *domain.OverheatEvent) error {
	n.logger.Printf("OVERHEAT %s: %s died at diff %+d, no trade after %dms (diff now %+d)",
		event.EventID, event.Player, event.TeamDiffAtDeath, event.ElapsedMs, event.TeamDiffNow)
	return nil
}
