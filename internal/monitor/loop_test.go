package monitor

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
	"github.com/AtsuiOcha/overheat-punisher/internal/hud/stub"
	"github.com/AtsuiOcha/overheat-punisher/internal/notify"
)

func reading(allies, enemies int, dead bool, ts int64, phase domain.RoundPhase) stub.Reading {
	return stub.Reading{
		Snapshot: domain.RoundSnapshot{
			AlliesAlive:  allies,
			EnemiesAlive: enemies,
			PlayerIsDead: dead,
			Timestamp:    ts,
		},
		Phase: phase,
	}
}

// runScript drives a loop over scripted readings until the source is
// exhausted, returning the notifications that fired.
func runScript(t *testing.T, readings []stub.Reading) ([]*domain.OverheatEvent, *Loop) {
	t.Helper()

	feed := stub.NewFeed(readings)

	// Run executes on this goroutine, so a plain slice is safe.
	var notifications []*domain.OverheatEvent
	notifier := notify.Func(func(_ context.Context, event *domain.OverheatEvent) error {
		notifications = append(notifications, event)
		return nil
	})

	loop := NewLoop(Options{
		Player:       "target",
		Source:       feed,
		Reader:       feed,
		Notifier:     notifier,
		PollInterval: time.Millisecond,
		Logger:       log.New(io.Discard, "", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, loop.Run(ctx), "run over scripted feed")
	return notifications, loop
}

func TestLoop_OverheatEndToEnd(t *testing.T) {
	notifications, loop := runScript(t, []stub.Reading{
		reading(5, 5, false, 1000, domain.PhaseMidRound),
		reading(4, 5, true, 1250, domain.PhaseMidRound),  // death latched
		reading(4, 5, true, 2500, domain.PhaseMidRound),  // still inside window
		reading(4, 5, true, 4500, domain.PhaseMidRound),  // window expired
		reading(4, 5, true, 4750, domain.PhaseMidRound),  // corpse frames, no re-latch
		reading(4, 5, true, 5000, domain.PhasePostRound), // round over
	})

	require.Len(t, notifications, 1, "exactly one notification per confirmed overheat")

	event := notifications[0]
	require.Equal(t, "target", event.Player)
	require.Equal(t, -1, event.TeamDiffAtDeath)
	require.Equal(t, int64(1250), event.DeathAt)
	require.Equal(t, int64(3250), event.ElapsedMs)
	require.NotEmpty(t, event.EventID)

	stats := loop.Stats()
	require.Equal(t, uint64(1), stats.DeathsLatched)
	require.Equal(t, uint64(1), stats.Overheats)
	require.Equal(t, uint64(0), stats.TradesConfirmed)
	require.Equal(t, uint64(6), stats.Polls)
	require.NotNil(t, stats.LastOverheat)
}

func TestLoop_TradeProducesNoNotification(t *testing.T) {
	notifications, loop := runScript(t, []stub.Reading{
		reading(5, 5, false, 1000, domain.PhaseMidRound),
		reading(4, 5, true, 1250, domain.PhaseMidRound), // death latched
		reading(4, 4, true, 2000, domain.PhaseMidRound), // traded
	})

	require.Empty(t, notifications)

	stats := loop.Stats()
	require.Equal(t, uint64(1), stats.DeathsLatched)
	require.Equal(t, uint64(1), stats.TradesConfirmed)
	require.Equal(t, uint64(0), stats.Overheats)
}

func TestLoop_RoundBoundaryDiscardsPendingDeath(t *testing.T) {
	notifications, loop := runScript(t, []stub.Reading{
		reading(5, 5, false, 1000, domain.PhaseMidRound),
		reading(4, 5, true, 1250, domain.PhaseMidRound),  // death latched
		reading(4, 5, true, 2000, domain.PhasePostRound), // round ends mid-analysis
		reading(4, 5, true, 9000, domain.PhasePreRound),  // would be overheat if still latched
	})

	require.Empty(t, notifications, "round boundary must cancel the pending verdict")

	stats := loop.Stats()
	require.Equal(t, uint64(1), stats.RoundResets)
	require.Equal(t, StateMonitoring, stats.State)
}

func TestLoop_InvariantViolationIsRecoverable(t *testing.T) {
	notifications, loop := runScript(t, []stub.Reading{
		reading(5, 5, false, 1000, domain.PhaseMidRound),
		reading(4, 5, true, 1250, domain.PhaseMidRound), // death latched
		reading(9, 5, true, 2000, domain.PhaseMidRound), // corrupt counts
		reading(4, 4, true, 2500, domain.PhaseMidRound), // traded after recovery
	})

	require.Empty(t, notifications)

	stats := loop.Stats()
	require.Equal(t, uint64(1), stats.InvariantViolations)
	require.Equal(t, uint64(1), stats.TradesConfirmed)
}

func TestHandle_StartStopStatus(t *testing.T) {
	// An endless pre-round script keeps the worker alive until stopped.
	readings := make([]stub.Reading, 10000)
	for i := range readings {
		readings[i] = reading(5, 5, false, int64(i*250), domain.PhasePreRound)
	}
	feed := stub.NewFeed(readings)

	loop := NewLoop(Options{
		Player:       "target",
		Source:       feed,
		Reader:       feed,
		PollInterval: time.Millisecond,
		Logger:       log.New(io.Discard, "", 0),
	})
	handle := NewHandle(loop)

	require.False(t, handle.Running())
	require.ErrorIs(t, handle.Stop(), ErrNotRunning)

	require.NoError(t, handle.Start(context.Background()))
	require.True(t, handle.Running())

	// Second worker for the same player is rejected, not raced.
	require.ErrorIs(t, handle.Start(context.Background()), ErrAlreadyRunning)

	status := handle.Status()
	require.True(t, status.Running)
	require.Equal(t, "target", status.Player)
	require.False(t, status.StartedAt.IsZero())

	require.NoError(t, handle.Stop())
	require.False(t, handle.Running())

	// Restartable after a clean stop.
	require.NoError(t, handle.Start(context.Background()))
	require.NoError(t, handle.Stop())
}

func TestHandle_WorkerStopsWhenSourceExhausted(t *testing.T) {
	feed := stub.NewFeed([]stub.Reading{
		reading(5, 5, false, 1000, domain.PhaseMidRound),
	})

	loop := NewLoop(Options{
		Player:       "target",
		Source:       feed,
		Reader:       feed,
		PollInterval: time.Millisecond,
		Logger:       log.New(io.Discard, "", 0),
	})
	handle := NewHandle(loop)

	require.NoError(t, handle.Start(context.Background()))

	deadline := time.Now().Add(5 * time.Second)
	for handle.Running() {
		if time.Now().After(deadline) {
			t.Fatal("worker never finished after source exhaustion")
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.ErrorIs(t, handle.Stop(), ErrNotRunning)
}
