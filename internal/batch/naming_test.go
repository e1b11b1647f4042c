package batch

import (
	"testing"
	"time"

	"auctionload/internal/config"
)

func TestNamer(t *testing.T) {
	cfg := config.Default()
	// 23:30 in UTC-5 is already the next day in UTC.
	now := time.Date(2024, 1, 31, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	namer := NewNamer(cfg.Naming, now)

	if namer.Date() != "20240201" {
		t.Fatalf("date = %q, want UTC date 20240201", namer.Date())
	}
	if got := namer.ConsumedName(); got != "___DEL__20240201.csv" {
		t.Fatalf("consumed = %q", got)
	}
	taken := map[string]struct{}{}
	if got := namer.OutputName(taken); got != "__AU_20240201.csv" {
		t.Fatalf("output = %q", got)
	}
	taken["__AU_20240201.csv"] = struct{}{}
	taken["__AU_20240201_2.csv"] = struct{}{}
	if got := namer.OutputName(taken); got != "__AU_20240201_3.csv" {
		t.Fatalf("output with collisions = %q", got)
	}
}

func TestNamerCandidates(t *testing.T) {
	namer := NewNamer(config.Default().Naming, time.Now())
	cases := map[string]bool{
		"Auction insights report.csv": true,
		"__AU_20240101.csv":           false,
		"___DEL__20240101.csv":        false,
		"my__export.csv":              false,
		"my_export.csv":               true,
	}
	for name, want := range cases {
		if got := namer.IsCandidate(name); got != want {
			t.Fatalf("IsCandidate(%q) = %v, want %v", name, got, want)
		}
	}
}
