package memory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fbruckner/takt/internal/memory"
)

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	s, err := memory.Open(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.LogEvent(context.Background(), memory.Event{Intent: "SAVE"}); err != nil {
		t.Fatalf("log event: %v", err)
	}
}

func TestStore_LogEvent(t *testing.T) {
	s, err := memory.OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	ev := memory.Event{
		Intent:  "SET_BPM",
		Phrase:  "zehn schneller",
		Tier:    "knn_auto",
		Slots:   map[string]any{"delta": 10.0},
		Payload: `[{"Key":"bpm","Value":138}]`,
	}
	if err := s.LogEvent(ctx, ev); err != nil {
		t.Fatalf("log event: %v", err)
	}

	var (
		intentName, phrase, tier, slots, dispatched string
	)
	err = s.DB().QueryRow("SELECT intent, phrase, tier, slots_json, dispatched FROM events").
		Scan(&intentName, &phrase, &tier, &slots, &dispatched)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if intentName != "SET_BPM" || phrase != "zehn schneller" || tier != "knn_auto" {
		t.Fatalf("row = (%q, %q, %q)", intentName, phrase, tier)
	}
	if slots != `{"delta":10}` {
		t.Fatalf("slots_json = %q", slots)
	}
	if dispatched != ev.Payload {
		t.Fatalf("dispatched = %q", dispatched)
	}
}

func TestStore_PreferredMacros(t *testing.T) {
	s, err := memory.OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	add := func(rating, macro string) {
		t.Helper()
		if err := s.AddRating(ctx, rating, macro); err != nil {
			t.Fatalf("add rating: %v", err)
		}
	}
	add("gut", "tighten_hats")
	add("peak", "tighten_hats")
	add("gut", "micro_variation")
	add("langweilig", "micro_variation") // negative ratings do not count
	add("fail", "schmutziger_peak")
	add("gut", "") // rating without an active macro

	names, err := s.PreferredMacros(ctx, 5)
	if err != nil {
		t.Fatalf("preferred macros: %v", err)
	}
	want := []string{"tighten_hats", "micro_variation"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("preferred = %v, want %v", names, want)
	}

	t.Run("limit caps the result", func(t *testing.T) {
		names, err := s.PreferredMacros(ctx, 1)
		if err != nil {
			t.Fatalf("preferred macros: %v", err)
		}
		if len(names) != 1 || names[0] != "tighten_hats" {
			t.Fatalf("preferred = %v, want [tighten_hats]", names)
		}
	})
}
