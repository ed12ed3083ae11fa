package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"age-of-war/server/logging"
)

func TestJSONSinkWritesNDJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	event := logging.Event{
		Type:     "combat.unit_killed",
		Tick:     12,
		Time:     time.Unix(0, 0).UTC(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Actor:    logging.PlayerRef("p1"),
		MatchID:  "m1",
	}
	if err := sink.Write(event); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if decoded["type"] != "combat.unit_killed" || decoded["severity"] != "info" || decoded["matchId"] != "m1" {
		t.Fatalf("unexpected json payload %v", decoded)
	}
}

func TestConsoleSinkIncludesType(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{})
	_ = sink.Write(logging.Event{Type: "lifecycle.match_started", Actor: logging.EntityRef{Kind: logging.EntityKindMatch}, Category: "lifecycle"})
	if !strings.Contains(buf.String(), "lifecycle.match_started") {
		t.Fatalf("expected type in console output, got %q", buf.String())
	}
}

func TestBoundedMemorySink(t *testing.T) {
	sink := NewBoundedMemorySink(2)
	for i := 0; i < 5; i++ {
		_ = sink.Write(logging.Event{Type: "x", Tick: uint64(i)})
	}
	events := sink.Events()
	if len(events) != 2 || events[0].Tick != 3 || events[1].Tick != 4 {
		t.Fatalf("expected last two events, got %+v", events)
	}
	if got := len(sink.OfType("x")); got != 2 {
		t.Fatalf("expected 2 typed events, got %d", got)
	}
}
