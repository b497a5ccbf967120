package classify

import (
	"errors"
	"testing"
	"time"

	"github.com/AtsuiOcha/overheat-punisher/internal/domain"
)

func record(diff int, latchedAt int64) *domain.DeathRecord {
	return &domain.DeathRecord{
		Player:          "target",
		TeamDiffAtDeath: diff,
		Basis:           domain.BasisCounts,
		LatchedAt:       latchedAt,
	}
}

func snapAt(allies, enemies int, ts int64) *domain.RoundSnapshot {
	return &domain.RoundSnapshot{AlliesAlive: allies, EnemiesAlive: enemies, Timestamp: ts}
}

func TestClassify_TradeWithinWindow_SafeReset(t *testing.T) {
	c := New(Options{})

	// Death at 4v5 (diff -1), 1s later the team is back to even: traded.
	rec := record(-1, 1000)
	cur := snapAt(4, 4, 2000)

	got, err := c.Classify(rec, cur)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != domain.SafeReset {
		t.Errorf("expected SAFE_RESET, got %s", got)
	}
}

func TestClassify_WindowExpired_Overheat(t *testing.T) {
	c := New(Options{})

	// 3.5s after death, differential unchanged: overheat.
	rec := record(-1, 1000)
	cur := snapAt(4, 5, 4500)

	got, err := c.Classify(rec, cur)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != domain.Overheat {
		t.Errorf("expected OVERHEAT, got %s", got)
	}
}

func TestClassify_MonotonicInElapsed(t *testing.T) {
	c := New(Options{})
	rec := record(-1, 1000)

	// With no trade, the verdict flips to OVERHEAT at the first instant
	// strictly past the window, and not before.
	cases := []struct {
		ts   int64
		want domain.Classification
	}{
		{1000, domain.SafeContinue},
		{2500, domain.SafeContinue},
		{4000, domain.SafeContinue}, // elapsed == window exactly
		{4001, domain.Overheat},
		{9000, domain.Overheat},
	}

	for _, tc := range cases {
		got, err := c.Classify(rec, snapAt(4, 5, tc.ts))
		if err != nil {
			t.Fatalf("Classify at ts=%d failed: %v", tc.ts, err)
		}
		if got != tc.want {
			t.Errorf("at ts=%d expected %s, got %s", tc.ts, tc.want, got)
		}
	}
}

func TestClassify_TradeAfterWindow_StillSafeReset(t *testing.T) {
	c := New(Options{})

	// A trade that lands even after the window resolves the engagement;
	// the window-expiry branch only fires while no trade is achieved.
	rec := record(-1, 1000)
	cur := snapAt(4, 4, 5000)

	got, err := c.Classify(rec, cur)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != domain.SafeReset {
		t.Errorf("expected SAFE_RESET, got %s", got)
	}
}

func TestClassify_HoldingPreDeathDiffIsNotATrade(t *testing.T) {
	c := New(Options{})

	// Equal differential is not an improvement; inside the window that
	// keeps monitoring, past it that is an overheat.
	rec := record(0, 1000)

	got, err := c.Classify(rec, snapAt(4, 4, 2000))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != domain.SafeContinue {
		t.Errorf("expected SAFE_CONTINUE, got %s", got)
	}

	got, err = c.Classify(rec, snapAt(4, 4, 4500))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != domain.Overheat {
		t.Errorf("expected OVERHEAT, got %s", got)
	}
}

func TestClassify_CustomWindow(t *testing.T) {
	c := New(Options{TradeWindow: 5 * time.Second})

	rec := record(-1, 1000)

	got, err := c.Classify(rec, snapAt(4, 5, 4500))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != domain.SafeContinue {
		t.Errorf("expected SAFE_CONTINUE inside 5s window, got %s", got)
	}

	got, err = c.Classify(rec, snapAt(4, 5, 6001))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != domain.Overheat {
		t.Errorf("expected OVERHEAT past 5s window, got %s", got)
	}
}

func TestClassify_NilRecordIsInvariantViolation(t *testing.T) {
	c := New(Options{})

	_, err := c.Classify(nil, snapAt(4, 5, 2000))
	if !errors.Is(err, domain.ErrStateInvariant) {
		t.Fatalf("expected ErrStateInvariant, got %v", err)
	}
}

func TestClassify_ImpossibleCountsAreInvariantViolation(t *testing.T) {
	c := New(Options{})
	rec := record(-1, 1000)

	_, err := c.Classify(rec, snapAt(-1, 5, 2000))
	if !errors.Is(err, domain.ErrStateInvariant) {
		t.Fatalf("expected ErrStateInvariant for negative count, got %v", err)
	}

	_, err = c.Classify(rec, snapAt(4, 6, 2000))
	if !errors.Is(err, domain.ErrStateInvariant) {
		t.Fatalf("expected ErrStateInvariant for count above roster size, got %v", err)
	}
}

func TestClassify_SnapshotBeforeLatchIsInvariantViolation(t *testing.T) {
	c := New(Options{})
	rec := record(-1, 1000)

	_, err := c.Classify(rec, snapAt(4, 5, 500))
	if !errors.Is(err, domain.ErrStateInvariant) {
		t.Fatalf("expected ErrStateInvariant for time regression, got %v", err)
	}
}
