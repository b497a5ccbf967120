package domain

import "errors"

// ErrStateInvariant signals a broken core invariant (impossible counts,
// missing state at classification time). Callers treat it as fatal for the
// current cycle only; guessing a default classification could mask a real
// death or trade.
var ErrStateInvariant = errors.New("state invariant violation")

// DiffBasis records how a team differential was reconstructed.
type DiffBasis string

const (
	// BasisCounts: exactly one net death in the window, raw counts suffice.
	BasisCounts DiffBasis = "COUNTS"
	// BasisFeed: multiple deaths, differential taken from kill-feed replay
	// at the line where the monitored player fell.
	BasisFeed DiffBasis = "FEED"
	// BasisFallback: the feed never mentioned the player; the final
	// accumulated differential is a best-effort, degraded estimate.
	BasisFallback DiffBasis = "FALLBACK"
)

// Degraded reports whether the estimate came from the low-confidence path.
func (b DiffBasis) Degraded() bool {
	return b == BasisFallback
}

// DiffEstimate is a reconstructed team differential plus its provenance.
type DiffEstimate struct {
	Diff  int
	Basis DiffBasis
}

// DeathRecord is the latched state of one confirmed death of the monitored
// player. It is created once per life and never mutated; classification
// compares it against fresh snapshots.
type DeathRecord struct {
	Player string

	// TeamDiffAtDeath is the team differential at the true instant of
	// death, not at sampling time.
	TeamDiffAtDeath int

	// Basis carries the reconstruction provenance of TeamDiffAtDeath.
	Basis DiffBasis

	// LatchedAt is the timestamp (ms) of the snapshot that confirmed
	// the death.
	LatchedAt int64
}

// Classification is the outcome of judging a latched death against a later
// snapshot.
type Classification string

const (
	// SafeContinue: still inside the trade window, outcome undetermined.
	SafeContinue Classification = "SAFE_CONTINUE"
	// SafeReset: a trade completed within the window; the team's relative
	// position improved past the pre-death standing.
	SafeReset Classification = "SAFE_RESET"
	// Overheat: the window expired without the team recovering to at
	// least pre-death relative strength.
	Overheat Classification = "OVERHEAT"
)

// OverheatEvent is the notification payload emitted once per confirmed
// overheat verdict.
type OverheatEvent struct {
	EventID         string `json:"event_id"`
	Player          string `json:"player"`
	TeamDiffAtDeath int    `json:"team_diff_at_death"`
	TeamDiffNow     int    `json:"team_diff_now"`
	DeathAt         int64  `json:"death_at"`
	DetectedAt      int64  `json:"detected_at"`
	ElapsedMs       int64  `json:"elapsed_ms"`
}
