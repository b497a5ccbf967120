// Package monitor owns the per-life state machine and the polling loop
// that drives it. The Tracker is the pure state machine: snapshots and
// round phases in, transition events out, no I/O and no clock of its own.
// The Loop samples the sensor and feeds the Tracker; the Handle gives the
// caller start/stop/status over the loop worker.
package monitor

import (
	"errors"
	"fmt"

	"github.com/AtsuiOcha/overheat-punisher/internal/classify"
	"github.com/AtsuiOcha/overheat-punisher/internal/detect"
	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
)

// State is the tracker's position in the death/trade cycle.
type State string

const (
	// StateMonitoring: no pending death.
	StateMonitoring State = "MONITORING"
	// StateAnalyzing: a death is latched and awaiting classification.
	StateAnalyzing State = "ANALYZING"
)

// EventKind tags a tracker transition.
type EventKind string

const (
	// EventDeathLatched: the monitored player's death frame was found
	// and a DeathRecord latched.
	EventDeathLatched EventKind = "DEATH_LATCHED"
	// EventTradeConfirmed: the latched death was traded inside the
	// window; the record is cleared.
	EventTradeConfirmed EventKind = "TRADE_CONFIRMED"
	// EventOverheat: the window expired untraded; the record is cleared
	// and a notification is due.
	EventOverheat EventKind = "OVERHEAT"
	// EventRoundReset: a round-phase transition discarded in-flight
	// accounting.
	EventRoundReset EventKind = "ROUND_RESET"
)

// Event is one observable tracker transition.
type Event struct {
	Kind   EventKind
	Record *domain.DeathRecord

	// TeamDiffNow and ElapsedMs are set for trade/overheat outcomes.
	TeamDiffNow int
	ElapsedMs   int64
}

// Tracker is the MONITORING/ANALYZING state machine for one monitored
// player. It is synchronous and single-stream: snapshots must be observed
// strictly in capture order. Not safe for concurrent use.
type Tracker struct {
	detector   *detect.Detector
	classifier *classify.Classifier

	state   State
	pending *domain.DeathRecord
	prev    *domain.RoundSnapshot

	// awaitRespawn blocks re-latching the same life after an outcome:
	// a new record is only accepted once the player is seen alive again.
	awaitRespawn bool
}

// NewTracker creates a Tracker in StateMonitoring.
func NewTracker(detector *detect.Detector, classifier *classify.Classifier) *Tracker {
	return &Tracker{
		detector:   detector,
		classifier: classifier,
		state:      StateMonitoring,
	}
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// Pending returns the latched DeathRecord, or nil.
func (t *Tracker) Pending() *domain.DeathRecord {
	return t.pending
}

// Observe feeds one snapshot plus its round phase through the state
// machine and returns the resulting transition event, if any.
//
// A phase away from mid-round forces a reset from any state: a round
// boundary invalidates in-flight death and trade accounting, and the
// previous snapshot is stale for pairing across the boundary.
//
// An invariant violation during classification aborts only this cycle;
// the tracker stays in its state and retries on the next snapshot.
func (t *Tracker) Observe(snapshot *domain.RoundSnapshot, phase domain.RoundPhase) (*Event, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: observe called with nil snapshot", domain.ErrStateInvariant)
	}

	if !phase.IsMidRound() {
		hadPending := t.pending != nil
		t.reset()
		t.prev = nil
		if hadPending {
			return &Event{Kind: EventRoundReset}, nil
		}
		return nil, nil
	}

	defer func() { t.prev = snapshot }()

	switch t.state {
	case StateMonitoring:
		return t.observeMonitoring(snapshot)
	case StateAnalyzing:
		return t.observeAnalyzing(snapshot)
	default:
		return nil, fmt.Errorf("%w: unknown tracker state %q", domain.ErrStateInvariant, t.state)
	}
}

func (t *Tracker) observeMonitoring(snapshot *domain.RoundSnapshot) (*Event, error) {
	if t.awaitRespawn {
		if snapshot.PlayerIsDead {
			return nil, nil
		}
		t.awaitRespawn = false
	}

	record := t.detector.Detect(t.prev, snapshot)
	if record == nil {
		return nil, nil
	}

	t.pending = record
	t.state = StateAnalyzing
	return &Event{Kind: EventDeathLatched, Record: record}, nil
}

func (t *Tracker) observeAnalyzing(snapshot *domain.RoundSnapshot) (*Event, error) {
	result, err := t.classifier.Classify(t.pending, snapshot)
	if err != nil {
		// State unchanged; recover on the next poll.
		return nil, err
	}

	switch result {
	case domain.SafeContinue:
		return nil, nil
	case domain.SafeReset:
		event := &Event{
			Kind:        EventTradeConfirmed,
			Record:      t.pending,
			TeamDiffNow: snapshot.TeamDiff(),
			ElapsedMs:   snapshot.Timestamp - t.pending.LatchedAt,
		}
		t.reset()
		t.awaitRespawn = true
		return event, nil
	case domain.Overheat:
		event := &Event{
			Kind:        EventOverheat,
			Record:      t.pending,
			TeamDiffNow: snapshot.TeamDiff(),
			ElapsedMs:   snapshot.Timestamp - t.pending.LatchedAt,
		}
		t.reset()
		t.awaitRespawn = true
		return event, nil
	default:
		return nil, fmt.Errorf("%w: unknown classification %q", domain.ErrStateInvariant, result)
	}
}

// reset returns the tracker to MONITORING with nothing latched.
func (t *Tracker) reset() {
	t.state = StateMonitoring
	t.pending = nil
	t.awaitRespawn = false
}

// errInvariant reports whether err is a state invariant violation.
func errInvariant(err error) bool {
	return errors.Is(err, domain.ErrStateInvariant)
}
