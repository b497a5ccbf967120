// Package reconstruct resolves the team-alive differential at the exact
// moment a named player died, by replaying kill-feed events between two
// snapshots that bracket the death.
//
// Raw alive counts alone are ambiguous when several kills land inside one
// sampling interval; the kill feed supplies the ordering that counts cannot.
package reconstruct

import (
	"strings"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
)

// Reconstructor computes per-death team differentials from snapshot pairs.
type Reconstructor struct{}

// New creates a Reconstructor.
func New() *Reconstructor {
	return &Reconstructor{}
}

// Reconstruct returns the team differential immediately following the named
// player's own death, given one snapshot taken shortly before the death and
// one shortly after.
//
// Fast path: when exactly one net death occurred in the window, that death
// is the player's own and the after-counts are authoritative (BasisCounts).
//
// Otherwise the kill feed of the after-snapshot is replayed chronologically.
// Feed entries arrive most-recent-first (screen order), so the replay walks
// the slice in reverse, applying one delta per entry: -1 for an own-team
// death, +1 for an opposing one. The running differential at the entry that
// names the player as victim, delta applied, is the answer (BasisFeed).
//
// If the feed never names the player, the final accumulated differential is
// returned as a degraded best-effort estimate (BasisFallback). The caller
// treats that as reduced confidence, never as failure.
func (r *Reconstructor) Reconstruct(player string, before, after *domain.RoundSnapshot) domain.DiffEstimate {
	diffBefore := before.TeamDiff()
	diffAfter := after.TeamDiff()

	if diffAfter == diffBefore-1 {
		return domain.DiffEstimate{Diff: diffAfter, Basis: domain.BasisCounts}
	}

	running := diffBefore
	feed := after.KillFeedEntries
	for i := len(feed) - 1; i >= 0; i-- {
		entry := feed[i]
		if entry.VictimWasOwnTeam {
			running--
		} else {
			running++
		}
		if strings.EqualFold(entry.Victim, player) {
			return domain.DiffEstimate{Diff: running, Basis: domain.BasisFeed}
		}
	}

	return domain.DiffEstimate{Diff: running, Basis: domain.BasisFallback}
}
