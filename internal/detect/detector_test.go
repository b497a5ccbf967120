package detect

import (
	"io"
	"log"
	"testing"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
)

func newDetector(t *testing.T, minDiff *int) *Detector {
	t.Helper()
	return New(Options{
		Player:           "target",
		MinTradeableDiff: minDiff,
		Logger:           log.New(io.Discard, "", 0),
	})
}

func TestDetect_SoloDeath_LatchesAtMinusOne(t *testing.T) {
	d := newDetector(t, nil)

	prev := &domain.RoundSnapshot{AlliesAlive: 5, EnemiesAlive: 5, Timestamp: 1000}
	cur := &domain.RoundSnapshot{AlliesAlive: 4, EnemiesAlive: 5, PlayerIsDead: true, Timestamp: 1250}

	rec := d.Detect(prev, cur)
	if rec == nil {
		t.Fatal("expected a DeathRecord")
	}
	if rec.TeamDiffAtDeath != -1 {
		t.Errorf("expected teamDiffAtDeath -1, got %d", rec.TeamDiffAtDeath)
	}
	if rec.Basis != domain.BasisCounts {
		t.Errorf("expected BasisCounts, got %s", rec.Basis)
	}
	if rec.LatchedAt != 1250 {
		t.Errorf("expected latchedAt 1250, got %d", rec.LatchedAt)
	}
	if rec.Player != "target" {
		t.Errorf("expected player target, got %s", rec.Player)
	}
}

func TestDetect_NoRecordWhenSensorSaysAlive(t *testing.T) {
	d := newDetector(t, nil)

	// Counts alone suggest a death, but the independent sensor disagrees.
	prev := &domain.RoundSnapshot{AlliesAlive: 5, EnemiesAlive: 5, Timestamp: 1000}
	cur := &domain.RoundSnapshot{AlliesAlive: 4, EnemiesAlive: 5, PlayerIsDead: false, Timestamp: 1250}

	if rec := d.Detect(prev, cur); rec != nil {
		t.Fatalf("expected no record, got %+v", rec)
	}
}

func TestDetect_BelowThresholdExcluded(t *testing.T) {
	d := newDetector(t, nil)

	// Dying at 3v5 puts the diff at -2: an already-lost fight, not an
	// overheat candidate.
	prev := &domain.RoundSnapshot{AlliesAlive: 4, EnemiesAlive: 5, Timestamp: 1000}
	cur := &domain.RoundSnapshot{AlliesAlive: 3, EnemiesAlive: 5, PlayerIsDead: true, Timestamp: 1250}

	if rec := d.Detect(prev, cur); rec != nil {
		t.Fatalf("expected no record at diff -2, got %+v", rec)
	}
}

func TestDetect_ThresholdIsConfigurable(t *testing.T) {
	minDiff := -2
	d := newDetector(t, &minDiff)

	prev := &domain.RoundSnapshot{AlliesAlive: 4, EnemiesAlive: 5, Timestamp: 1000}
	cur := &domain.RoundSnapshot{AlliesAlive: 3, EnemiesAlive: 5, PlayerIsDead: true, Timestamp: 1250}

	rec := d.Detect(prev, cur)
	if rec == nil {
		t.Fatal("expected a record with threshold relaxed to -2")
	}
	if rec.TeamDiffAtDeath != -2 {
		t.Errorf("expected teamDiffAtDeath -2, got %d", rec.TeamDiffAtDeath)
	}
}

func TestDetect_MultiDeathGap_UsesFeedReplay(t *testing.T) {
	d := newDetector(t, nil)

	// 5v5 -> 3v3 with the target falling first. The sampled differential
	// ends even, but the differential at the target's own line was -1,
	// still tradeable.
	prev := &domain.RoundSnapshot{AlliesAlive: 5, EnemiesAlive: 5, Timestamp: 1000}
	cur := &domain.RoundSnapshot{
		AlliesAlive:  3,
		EnemiesAlive: 3,
		PlayerIsDead: true,
		Timestamp:    1250,
		KillFeedEntries: []domain.KillFeedEntry{
			{Killer: "teammate4", Victim: "enemy3", VictimWasOwnTeam: false},
			{Killer: "enemy2", Victim: "teammate3", VictimWasOwnTeam: true},
			{Killer: "teammate2", Victim: "enemy2", VictimWasOwnTeam: false},
			{Killer: "enemy1", Victim: "target", VictimWasOwnTeam: true},
		},
	}

	rec := d.Detect(prev, cur)
	if rec == nil {
		t.Fatal("expected a DeathRecord")
	}
	if rec.Basis != domain.BasisFeed {
		t.Errorf("expected BasisFeed, got %s", rec.Basis)
	}
	if rec.TeamDiffAtDeath != -1 {
		t.Errorf("expected teamDiffAtDeath -1, got %d", rec.TeamDiffAtDeath)
	}
}

func TestDetect_DegradedReconstructionStillLatches(t *testing.T) {
	d := newDetector(t, nil)

	// Feed missed the target's line. Best-effort diff is 0, above the
	// threshold, so a record is still produced, tagged fallback.
	prev := &domain.RoundSnapshot{AlliesAlive: 5, EnemiesAlive: 5, Timestamp: 1000}
	cur := &domain.RoundSnapshot{
		AlliesAlive:  4,
		EnemiesAlive: 4,
		PlayerIsDead: true,
		Timestamp:    1250,
		KillFeedEntries: []domain.KillFeedEntry{
			{Killer: "teammate2", Victim: "enemy1", VictimWasOwnTeam: false},
			{Killer: "enemy1", Victim: "teammate3", VictimWasOwnTeam: true},
		},
	}

	rec := d.Detect(prev, cur)
	if rec == nil {
		t.Fatal("expected a DeathRecord")
	}
	if rec.Basis != domain.BasisFallback {
		t.Errorf("expected BasisFallback, got %s", rec.Basis)
	}
	if rec.TeamDiffAtDeath != 0 {
		t.Errorf("expected teamDiffAtDeath 0, got %d", rec.TeamDiffAtDeath)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	d := newDetector(t, nil)

	prev := &domain.RoundSnapshot{AlliesAlive: 5, EnemiesAlive: 5, Timestamp: 1000}
	cur := &domain.RoundSnapshot{AlliesAlive: 4, EnemiesAlive: 5, PlayerIsDead: true, Timestamp: 1250}

	first := d.Detect(prev, cur)
	second := d.Detect(prev, cur)
	if first == nil || second == nil {
		t.Fatal("expected records from both calls")
	}
	if *first != *second {
		t.Errorf("expected identical records, got %+v and %+v", first, second)
	}
}
