package schedule

import (
	"testing"
	"time"
)

func TestParseAndNext(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e, err := Parse("25 */5", time.UTC, now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	next := e.Next(now)
	if next.Second() != 25 {
		t.Fatalf("want second 25, got %d", next.Second())
	}
	if next.Minute()%5 != 0 {
		t.Fatalf("want minute multiple of 5, got %d", next.Minute())
	}
}

func TestHasWildcard(t *testing.T) {
	if !HasWildcard("? */5") {
		t.Fatal("expected wildcard detected")
	}
	if HasWildcard("25 */5") {
		t.Fatal("unexpected wildcard detected")
	}
}

func TestResolveWildcardsInRange(t *testing.T) {
	resolved, err := ResolveWildcards("? */5", func(n int) int { return n - 1 })
	if err != nil {
		t.Fatalf("ResolveWildcards: %v", err)
	}
	if HasWildcard(resolved) {
		t.Fatalf("resolved schedule still has wildcard: %q", resolved)
	}
	// randIntn(60) returns 59, the top of the second field's 0-59 range.
	if resolved != "59 */5" {
		t.Fatalf("want %q, got %q", "59 */5", resolved)
	}
}

func TestResolveWildcardsRejectsDisallowedField(t *testing.T) {
	// '?' is only legal in second/minute/hour; field index 5 is "day".
	_, err := ResolveWildcards("1 2 3 mon 1 ?", func(n int) int { return 0 })
	if err == nil {
		t.Fatal("expected error for '?' in day field")
	}
}

func TestNormalizeDOWUnderscores(t *testing.T) {
	got := NormalizeDOWUnderscores("* * * 2nd_mon * * * *")
	want := "* * * 2nd mon * * * *"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestParseHandlesNormalizedDOWSpace(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := NormalizeDOWUnderscores("* * * 2nd_mon * * * *")
	e, err := Parse(raw, time.UTC, now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// day_of_week resolved to mon; week/day/month/year must still be
	// wildcards, not shifted one field to the right by the embedded
	// space in "2nd mon".
	if !e.matches(fieldDOW, 1, e.baseYear) {
		t.Fatal("want day_of_week mon to match")
	}
	if !e.matches(fieldWeek, 30, e.baseYear) {
		t.Fatal("want week field still wildcarded, not shifted")
	}
	if !e.matches(fieldMonth, 7, e.baseYear) {
		t.Fatal("want month field still wildcarded, not shifted")
	}
}

func TestHasWildcardAfterDOWNormalization(t *testing.T) {
	raw := NormalizeDOWUnderscores("? * * 2nd_mon * * * *")
	if !HasWildcard(raw) {
		t.Fatal("expected wildcard detected even with embedded DOW space")
	}
}

func TestParseRejectsUnresolvedWildcard(t *testing.T) {
	now := time.Now()
	if _, err := Parse("? */5", time.UTC, now); err == nil {
		t.Fatal("expected error parsing unresolved wildcard")
	}
}

func TestParseOutOfRangeValue(t *testing.T) {
	now := time.Now()
	if _, err := Parse("99", time.UTC, now); err == nil {
		t.Fatal("expected error for out-of-range second")
	}
}
