// Package classify judges the outcome of a latched death against later
// snapshots: still undecided, traded in time, or overheated.
package classify

import (
	"fmt"
	"time"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
)

// DefaultTradeWindow is the time budget after a death within which a trade
// must occur to avoid an overheat verdict.
const DefaultTradeWindow = 3 * time.Second

// Classifier compares a latched DeathRecord against fresh snapshots.
type Classifier struct {
	tradeWindow time.Duration
}

// Options configures a Classifier.
type Options struct {
	// TradeWindow overrides DefaultTradeWindow when positive.
	TradeWindow time.Duration
}

// New creates a Classifier.
func New(opts Options) *Classifier {
	window := opts.TradeWindow
	if window <= 0 {
		window = DefaultTradeWindow
	}
	return &Classifier{tradeWindow: window}
}

// TradeWindow returns the configured window.
func (c *Classifier) TradeWindow() time.Duration {
	return c.tradeWindow
}

// Classify judges one latched death against a later snapshot.
//
// A trade is achieved once the current differential exceeds the
// differential at death. The verdict is Overheat at the first snapshot
// strictly past the trade window with no trade achieved; SafeReset as soon
// as a trade is achieved (the caller must then clear the record);
// SafeContinue otherwise.
//
// Broken invariants (nil record, impossible counts, time running backwards
// relative to the latch) surface as ErrStateInvariant, never as a defaulted
// classification.
func (c *Classifier) Classify(rec *domain.DeathRecord, cur *domain.RoundSnapshot) (domain.Classification, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: classify called with no latched death record", domain.ErrStateInvariant)
	}
	if err := cur.Validate(); err != nil {
		return "", err
	}

	elapsed := cur.Timestamp - rec.LatchedAt
	if elapsed < 0 {
		return "", fmt.Errorf("%w: snapshot at %dms predates death latched at %dms", domain.ErrStateInvariant, cur.Timestamp, rec.LatchedAt)
	}

	tradeAchieved := cur.TeamDiff() > rec.TeamDiffAtDeath

	switch {
	case elapsed > c.tradeWindow.Milliseconds() && !tradeAchieved:
		return domain.Overheat, nil
	case tradeAchieved:
		return domain.SafeReset, nil
	default:
		return domain.SafeContinue, nil
	}
}
