package infrastructure

import (
	"testing"
	"time"
)

func TestChatTrackerDebounceAndInFlight(t *testing.T) {
	tracker := NewChatTracker(DebounceWindow)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	state := tracker.GetOrCreate(42)
	if tracker.GetOrCreate(42) != state {
		t.Fatalf("state not reused")
	}

	if !tracker.TryBegin(state) {
		t.Fatalf("first message rejected")
	}
	now = now.Add(5 * time.Second)
	if tracker.TryBegin(state) {
		t.Fatalf("accepted while processing")
	}
	state.Finish()

	if !tracker.TryBegin(state) {
		t.Fatalf("rejected after finish")
	}
	state.Finish()
	now = now.Add(time.Second)
	if tracker.TryBegin(state) {
		t.Fatalf("accepted inside debounce window")
	}
}

func TestChatStateSession(t *testing.T) {
	tracker := NewChatTracker(DebounceWindow)
	state := tracker.GetOrCreate(7)
	state.SetSession(12)
	state.SetModel("llama3:8b")

	if id, model := state.Session(); id != 12 || model != "llama3:8b" {
		t.Fatalf("got %d %q", id, model)
	}
	state.Reset()
	if id, model := state.Session(); id != 0 || model != "llama3:8b" {
		t.Fatalf("after reset got %d %q", id, model)
	}

	tracker.Forget(7)
	if tracker.GetOrCreate(7) == state {
		t.Fatalf("forgotten state returned")
	}
}
