// Package detect decides whether a pair of consecutive snapshots is the
// transition at which the monitored player died.
package detect

import (
	"log"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
	"github.com/AtsuiOcha/overheat-punisher/internal/reconstruct"
)

// DefaultMinTradeableDiff is the default minimum-viable differential at
// death. Deaths taken while the team is already down by 2 or more are not
// discretionary fights the player could have avoided profitably, so they
// are not candidates for an overheat verdict.
const DefaultMinTradeableDiff = -1

// Detector produces a DeathRecord when the monitored player's death frame
// has just occurred. It is stateless and idempotent: the same snapshot pair
// always yields the same record, and the caller is responsible for latching
// it exactly once.
type Detector struct {
	player        string
	minDiff       int
	reconstructor *reconstruct.Reconstructor
	logger        *log.Logger
}

// Options configures a Detector.
type Options struct {
	// Player is the monitored player's name, matched case-insensitively.
	Player string

	// MinTradeableDiff is the lowest differential-at-death still treated
	// as a tradeable fight. Nil means DefaultMinTradeableDiff; a pointer
	// so an explicit 0 is distinguishable from unset.
	MinTradeableDiff *int

	Reconstructor *reconstruct.Reconstructor
	Logger        *log.Logger
}

// New creates a Detector.
func New(opts Options) *Detector {
	minDiff := DefaultMinTradeableDiff
	if opts.MinTradeableDiff != nil {
		minDiff = *opts.MinTradeableDiff
	}

	reconstructor := opts.Reconstructor
	if reconstructor == nil {
		reconstructor = reconstruct.New()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Detector{
		player:        opts.Player,
		minDiff:       minDiff,
		reconstructor: reconstructor,
		logger:        logger,
	}
}

// Detect returns a DeathRecord if the current snapshot is the monitored
// player's death frame, or nil otherwise.
//
// A record requires the independent death sensor to agree
// (cur.PlayerIsDead) and the reconstructed differential at death to be at
// or above the tradeable threshold. A degraded reconstruction still
// produces a record; it is logged as a confidence warning, not rejected.
func (d *Detector) Detect(prev, cur *domain.RoundSnapshot) *domain.DeathRecord {
	if prev == nil || cur == nil {
		return nil
	}
	if !cur.PlayerIsDead {
		return nil
	}

	est := d.reconstructor.Reconstruct(d.player, prev, cur)
	if est.Basis.Degraded() {
		d.logger.Printf("degraded reconstruction for %q: no feed line named the player, using accumulated diff %d", d.player, est.Diff)
	}

	if est.Diff < d.minDiff {
		return nil
	}

	return &domain.DeathRecord{
		Player:          d.player,
		TeamDiffAtDeath: est.Diff,
		Basis:           est.Basis,
		LatchedAt:       cur.Timestamp,
	}
}
