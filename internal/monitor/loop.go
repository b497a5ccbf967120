package monitor

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AtsuiOcha/overheat-punisher/internal/classify"
	"github.com/AtsuiOcha/overheat-punisher/internal/detect"
	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
	"github.com/AtsuiOcha/overheat-punisher/internal/hud"
	"github.com/AtsuiOcha/overheat-punisher/internal/notify"
	"github.com/AtsuiOcha/overheat-punisher/internal/observability"
)

// DefaultPollInterval is the sampling cadence for sensor frames.
const DefaultPollInterval = 250 * time.Millisecond

// Loop samples the sensor at a fixed cadence and drives a Tracker over the
// readings. Frames are processed strictly in arrival order on a single
// goroutine; the only shared state is the stats snapshot read by Status.
type Loop struct {
	player       string
	pollInterval time.Duration

	source     hud.FrameSource
	reader     hud.Reader
	detector   *detect.Detector
	classifier *classify.Classifier
	notifier   notify.Notifier
	metrics    *observability.Metrics
	logger     *log.Logger

	// Stats, readable while the loop runs.
	polls        atomic.Uint64
	deaths       atomic.Uint64
	trades       atomic.Uint64
	overheats    atomic.Uint64
	roundResets  atomic.Uint64
	violations   atomic.Uint64
	state        atomic.Value // State
	lastOverheat atomic.Pointer[domain.OverheatEvent]
}

// Options configures a Loop.
type Options struct {
	// Player is the monitored player's name.
	Player string

	// Source and Reader are the paired sensor boundary. Required.
	Source hud.FrameSource
	Reader hud.Reader

	// Detector and Classifier default to the standard policy when nil.
	Detector   *detect.Detector
	Classifier *classify.Classifier

	// Notifier receives overheat events. Defaults to a log notifier.
	Notifier notify.Notifier

	// Metrics is optional.
	Metrics *observability.Metrics

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	Logger *log.Logger
}

// NewLoop creates a Loop.
func NewLoop(opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	detector := opts.Detector
	if detector == nil {
		detector = detect.New(detect.Options{Player: opts.Player, Logger: logger})
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = classify.New(classify.Options{})
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	l := &Loop{
		player:       opts.Player,
		pollInterval: pollInterval,
		source:       opts.Source,
		reader:       opts.Reader,
		detector:     detector,
		classifier:   classifier,
		notifier:     notifier,
		metrics:      opts.Metrics,
		logger:       logger,
	}
	l.state.Store(StateMonitoring)
	return l
}

// Run polls until the context is cancelled or the source is exhausted.
// A fresh Tracker is built per run; stats accumulate across runs.
//
// No single failure is fatal: poll errors, unreadable frames, and
// invariant violations are counted, logged, and retried on the next tick.
func (l *Loop) Run(ctx context.Context) error {
	tracker := NewTracker(l.detector, l.classifier)
	l.state.Store(tracker.State())

	l.logger.Printf("monitoring %q, poll interval %v, trade window %v", l.player, l.pollInterval, l.classifier.TradeWindow())

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Println("monitor loop stopping...")
			return ctx.Err()
		case <-ticker.C:
			if err := l.step(ctx, tracker); err != nil {
				if errors.Is(err, io.EOF) {
					l.logger.Println("frame source exhausted")
					return nil
				}
				return err
			}
		}
	}
}

// step processes one polled frame. It returns an error only to end the
// run (source exhausted or context cancelled).
func (l *Loop) step(ctx context.Context, tracker *Tracker) error {
	start := time.Now()

	frame, err := l.source.PollFrame(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return err
		}
		if l.metrics != nil {
			l.metrics.PollErrors.Inc()
		}
		l.logger.Printf("poll failed: %v", err)
		return nil
	}
	l.polls.Add(1)
	if l.metrics != nil {
		l.metrics.FramesPolled.Inc()
	}

	phase, err := l.reader.ReadPhase(frame)
	if err != nil {
		l.dropFrame(err)
		return nil
	}
	snapshot, err := l.reader.ReadSnapshot(frame)
	if err != nil {
		l.dropFrame(err)
		return nil
	}

	event, err := tracker.Observe(snapshot, phase)
	if err != nil {
		if errInvariant(err) {
			l.violations.Add(1)
			if l.metrics != nil {
				l.metrics.InvariantViolations.Inc()
			}
			l.logger.Printf("classification cycle aborted: %v", err)
		} else {
			l.logger.Printf("observe failed: %v", err)
		}
		return nil
	}

	if event != nil {
		l.handleEvent(ctx, event)
	}

	l.state.Store(tracker.State())
	if l.metrics != nil {
		if tracker.State() == StateAnalyzing {
			l.metrics.Analyzing.Set(1)
		} else {
			l.metrics.Analyzing.Set(0)
		}
		l.metrics.PollLatency.Observe(time.Since(start).Seconds())
	}
	return nil
}

func (l *Loop) handleEvent(ctx context.Context, event *Event) {
	switch event.Kind {
	case EventDeathLatched:
		l.deaths.Add(1)
		if l.metrics != nil {
			l.metrics.DeathsLatched.Inc()
			if event.Record.Basis.Degraded() {
				l.metrics.FallbackDiffs.Inc()
			}
		}
		l.logger.Printf("death latched: %s at diff %+d (basis %s)", event.Record.Player, event.Record.TeamDiffAtDeath, event.Record.Basis)

	case EventTradeConfirmed:
		l.trades.Add(1)
		if l.metrics != nil {
			l.metrics.TradesConfirmed.Inc()
		}
		l.logger.Printf("trade confirmed after %dms, diff %+d -> %+d", event.ElapsedMs, event.Record.TeamDiffAtDeath, event.TeamDiffNow)

	case EventOverheat:
		l.overheats.Add(1)
		if l.metrics != nil {
			l.metrics.OverheatsDetected.Inc()
		}

		overheatEvent := &domain.OverheatEvent{
			EventID:         uuid.NewString(),
			Player:          event.Record.Player,
			TeamDiffAtDeath: event.Record.TeamDiffAtDeath,
			TeamDiffNow:     event.TeamDiffNow,
			DeathAt:         event.Record.LatchedAt,
			DetectedAt:      event.Record.LatchedAt + event.ElapsedMs,
			ElapsedMs:       event.ElapsedMs,
		}
		l.lastOverheat.Store(overheatEvent)

		// Fire-and-forget: a failed notification is counted but never
		// re-delivered, and never blocks the next poll cycle.
		if err := l.notifier.NotifyOverheat(ctx, overheatEvent); err != nil {
			if l.metrics != nil {
				l.metrics.NotificationFailures.Inc()
			}
			l.logger.Printf("overheat notification failed: %v", err)
		}

	case EventRoundReset:
		l.roundResets.Add(1)
		if l.metrics != nil {
			l.metrics.RoundBoundaryResets.Inc()
		}
		l.logger.Println("round boundary: pending death discarded")
	}
}

func (l *Loop) dropFrame(err error) {
	if l.metrics != nil {
		l.metrics.ReadingsDropped.Inc()
	}
	l.logger.Printf("dropping unreadable frame: %v", err)
}

// Stats is a point-in-time snapshot of loop counters.
type Stats struct {
	Polls               uint64                `json:"polls"`
	DeathsLatched       uint64                `json:"deaths_latched"`
	TradesConfirmed     uint64                `json:"trades_confirmed"`
	Overheats           uint64                `json:"overheats"`
	RoundResets         uint64                `json:"round_resets"`
	InvariantViolations uint64                `json:"invariant_violations"`
	State               State                 `json:"state"`
	LastOverheat        *domain.OverheatEvent `json:"last_overheat,omitempty"`
}

// Stats returns current counters. Safe to call while the loop runs.
func (l *Loop) Stats() Stats {
	return Stats{
		Polls:               l.polls.Load(),
		DeathsLatched:       l.deaths.Load(),
		TradesConfirmed:     l.trades.Load(),
		Overheats:           l.overheats.Load(),
		RoundResets:         l.roundResets.Load(),
		InvariantViolations: l.violations.Load(),
		State:               l.state.Load().(State),
		LastOverheat:        l.lastOverheat.Load(),
	}
}

// Player returns the monitored player's name.
func (l *Loop) Player() string {
	return l.player
}
