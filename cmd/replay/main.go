package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/AtsuiOcha/overheat-punisher/internal/classify"
	"github.com/AtsuiOcha/overheat-punisher/internal/detect"
	"github.com/AtsuiOcha/overheat-punisher/internal/monitor"
	"github.com/AtsuiOcha/overheat-punisher/internal/trace"
)

func main() {
	tracePath := flag.String("trace", "", "Path to a JSONL sensor trace (required)")
	player := flag.String("player", "", "Monitored player name (required)")
	tradeWindowMs := flag.Int64("trade-window-ms", classify.DefaultTradeWindow.Milliseconds(), "Trade window in milliseconds")
	minDiff := flag.Int("min-tradeable-diff", detect.DefaultMinTradeableDiff, "Minimum team differential at death worth tracking")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *tracePath == "" {
		logger.Fatal("--trace is required")
	}
	if *player == "" {
		logger.Fatal("--player is required")
	}

	loaded, err := trace.Load(*tracePath)
	if err != nil {
		logger.Fatalf("load trace: %v", err)
	}
	logger.Printf("loaded %d readings (%d dropped) from %s", len(loaded.Readings), loaded.Dropped, *tracePath)

	detector := detect.New(detect.Options{
		Player:           *player,
		MinTradeableDiff: minDiff,
		Logger:           logger,
	})
	classifier := classify.New(classify.Options{
		TradeWindow: time.Duration(*tradeWindowMs) * time.Millisecond,
	})
	tracker := monitor.NewTracker(detector, classifier)

	stats := ReplayStats{
		Player:          *player,
		ReadingsDropped: loaded.Dropped,
	}
	var timeline []TimelineEntry

	for _, reading := range loaded.Readings {
		snapshot := reading.Snapshot
		stats.Readings++

		event, err := tracker.Observe(&snapshot, reading.Phase)
		if err != nil {
			stats.InvariantViolations++
			logger.Printf("t=%dms invariant violation: %v", snapshot.Timestamp, err)
			continue
		}
		if event == nil {
			continue
		}

		entry := TimelineEntry{
			Timestamp: snapshot.Timestamp,
			Kind:      string(event.Kind),
		}
		switch event.Kind {
		case monitor.EventDeathLatched:
			stats.Deaths++
			entry.TeamDiff = event.Record.TeamDiffAtDeath
			entry.Basis = string(event.Record.Basis)
		case monitor.EventTradeConfirmed:
			stats.Trades++
			entry.TeamDiff = event.TeamDiffNow
			entry.ElapsedMs = event.ElapsedMs
		case monitor.EventOverheat:
			stats.Overheats++
			entry.TeamDiff = event.TeamDiffNow
			entry.ElapsedMs = event.ElapsedMs
		case monitor.EventRoundReset:
			stats.RoundResets++
		}
		timeline = append(timeline, entry)

		if !*outputJSON {
			printEntry(entry)
		}
	}

	if *outputJSON {
		out, _ := json.MarshalIndent(ReplayOutput{Stats: stats, Timeline: timeline}, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Player:            %s\n", stats.Player)
	fmt.Printf("Readings:          %d\n", stats.Readings)
	fmt.Printf("Readings Dropped:  %d\n", stats.ReadingsDropped)
	fmt.Printf("Deaths Latched:    %d\n", stats.Deaths)
	fmt.Printf("Trades Confirmed:  %d\n", stats.Trades)
	fmt.Printf("Overheats:         %d\n", stats.Overheats)
	fmt.Printf("Round Resets:      %d\n", stats.RoundResets)
	fmt.Printf("Invariant Errors:  %d\n", stats.InvariantViolations)
}

func printEntry(entry TimelineEntry) {
	switch monitor.EventKind(entry.Kind) {
	case monitor.EventDeathLatched:
		fmt.Printf("t=%dms %s diff=%+d basis=%s\n", entry.Timestamp, entry.Kind, entry.TeamDiff, entry.Basis)
	case monitor.EventTradeConfirmed, monitor.EventOverheat:
		fmt.Printf("t=%dms %s diff=%+d elapsed=%dms\n", entry.Timestamp, entry.Kind, entry.TeamDiff, entry.ElapsedMs)
	default:
		fmt.Printf("t=%dms %s\n", entry.Timestamp, entry.Kind)
	}
}

// TimelineEntry is one tracker transition in replay order.
type TimelineEntry struct {
	Timestamp int64  `json:"timestamp"`
	Kind      string `json:"kind"`
	TeamDiff  int    `json:"team_diff,omitempty"`
	Basis     string `json:"basis,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
}

// ReplayStats summarizes a replayed trace.
type ReplayStats struct {
	Player              string `json:"player"`
	Readings            int    `json:"readings"`
	ReadingsDropped     int    `json:"readings_dropped"`
	Deaths              int    `json:"deaths_latched"`
	Trades              int    `json:"trades_confirmed"`
	Overheats           int    `json:"overheats"`
	RoundResets         int    `json:"round_resets"`
	InvariantViolations int    `json:"invariant_violations"`
}

// ReplayOutput is the full JSON output shape.
type ReplayOutput struct {
	Stats    ReplayStats     `json:"stats"`
	Timeline []TimelineEntry `json:"timeline"`
}
