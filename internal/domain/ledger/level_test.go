package ledger_test

import (
	"testing"

	"github.com/smartsaas/smartsaas-api/internal/domain/ledger"
)

func TestLevelBoundaries(t *testing.T) {
	cases := []struct {
		totalEarned int
		level       string
	}{
		{0, "Beginner"},
		{99, "Beginner"},
		{100, "Active"},
		{499, "Active"},
		{500, "Expert"},
		{1499, "Expert"},
		{1500, "Master"},
		{4999, "Master"},
		{5000, "Legend"},
		{1000000, "Legend"},
	}

	for _, tc := range cases {
		info := ledger.LevelFor(tc.totalEarned)
		if info.Level != tc.level {
			t.Errorf("LevelFor(%d): expected %q, got %q", tc.totalEarned, tc.level, info.Level)
		}
	}
}

func TestLevelNextThreshold(t *testing.T) {
	info := ledger.LevelFor(50)
	if info.NextLevelTokens == nil {
		t.Fatal("expected next level threshold for Beginner")
	}
	if *info.NextLevelTokens != 100 {
		t.Fatalf("expected next threshold 100, got %d", *info.NextLevelTokens)
	}

	top := ledger.LevelFor(10000)
	if top.NextLevelTokens != nil {
		t.Fatalf("expected no next threshold for Legend, got %d", *top.NextLevelTokens)
	}
	if top.Progress != 100 {
		t.Fatalf("expected Legend progress 100, got %f", top.Progress)
	}
}

func TestLevelProgressWithinBand(t *testing.T) {
	// Halfway between 100 and 499
	info := ledger.LevelFor(300)
	if info.Progress <= 0 || info.Progress >= 100 {
		t.Fatalf("expected partial progress, got %f", info.Progress)
	}

	start := ledger.LevelFor(100)
	if start.Progress != 0 {
		t.Fatalf("expected 0 progress at band start, got %f", start.Progress)
	}
}

func TestLevelNegativeClamped(t *testing.T) {
	info := ledger.LevelFor(-10)
	if info.Level != "Beginner" {
		t.Fatalf("expected Beginner for negative input, got %q", info.Level)
	}
	if info.CurrentTokens != 0 {
		t.Fatalf("expected clamped tokens 0, got %d", info.CurrentTokens)
	}
}
