package domain

import "fmt"

// TeamSize is the roster size per side.
const TeamSize = 5

// RoundPhase is the coarse round state reported by the HUD reader.
type RoundPhase string

const (
	PhasePreRound  RoundPhase = "PRE_ROUND"
	PhaseMidRound  RoundPhase = "MID_ROUND"
	PhasePostRound RoundPhase = "POST_ROUND"
)

// IsMidRound reports whether the phase is the live part of a round.
// Death and trade accounting only makes sense mid-round.
func (p RoundPhase) IsMidRound() bool {
	return p == PhaseMidRound
}

// KillFeedEntry is one resolved line of the on-screen kill feed.
type KillFeedEntry struct {
	Killer string
	Victim string
	// VictimWasOwnTeam is true when the victim belongs to the monitored
	// player's team, relative to the killer's side as sensed upstream.
	VictimWasOwnTeam bool
}

// RoundSnapshot is one immutable reading of extracted HUD state at a
// sampled instant. It is pure data: construction accepts already-extracted
// values, never sensor handles.
//
// KillFeedEntries are most-recent-first, exactly as the feed reads
// top-to-bottom on screen. Anything replaying them chronologically must
// walk the slice in reverse.
type RoundSnapshot struct {
	AlliesAlive  int // monitored team, [0, TeamSize]
	EnemiesAlive int // opposing team, [0, TeamSize]

	KillFeedEntries []KillFeedEntry

	// PlayerIsDead is the independently sensed death signal for the
	// monitored player.
	PlayerIsDead bool

	// Timestamp is the monotonic capture time in milliseconds.
	Timestamp int64
}

// TeamDiff returns monitored-alive minus opposing-alive.
func (s *RoundSnapshot) TeamDiff() int {
	return s.AlliesAlive - s.EnemiesAlive
}

// Validate checks the alive-count invariants. A snapshot failing here is a
// contract violation of the HUD reader, not valid core input.
func (s *RoundSnapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrStateInvariant)
	}
	if s.AlliesAlive < 0 || s.AlliesAlive > TeamSize {
		return fmt.Errorf("%w: allies alive %d out of [0,%d]", ErrStateInvariant, s.AlliesAlive, TeamSize)
	}
	if s.EnemiesAlive < 0 || s.EnemiesAlive > TeamSize {
		return fmt.Errorf("%w: enemies alive %d out of [0,%d]", ErrStateInvariant, s.EnemiesAlive, TeamSize)
	}
	return nil
}
