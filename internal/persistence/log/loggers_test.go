package log

import (
	"encoding/json"
	"testing"
	"time"

	"gaia.world/internal/sim/sched"
	"gaia.world/internal/sim/world"
)

func TestTickLogger_RoundTripAcrossHours(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)

	clock := time.Date(2026, 10, 19, 8, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	entries := []world.TickLogEntry{
		{WorldID: "w", Now: 100, Events: []sched.Fired{{Seq: 1, Entity: 2, Kind: "think", At: 100}}, Digest: "a"},
		{WorldID: "w", Now: 200, Events: []sched.Fired{{Seq: 2, Entity: 3, Kind: "produce", At: 150}}, Digest: "b"},
	}
	if err := l.WriteTick(entries[0]); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	clock = clock.Add(2 * time.Minute) // next hour file
	if err := l.WriteTick(entries[1]); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListFiles(dir+"/events", "events")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v want 2", files)
	}

	got, err := ReadTicks(dir)
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != 2 || got[0].Now != 100 || got[1].Digest != "b" || got[1].Events[0].Kind != "produce" {
		b, _ := json.Marshal(got)
		t.Fatalf("got=%s", b)
	}
}

type countingAudit struct{ n int }

func (c *countingAudit) WriteAudit(world.AuditEntry) error { c.n++; return nil }

func TestMultiAudit_WritesAllSinks(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditLogger(dir)
	c := &countingAudit{}
	m := MultiAudit{a, nil, c}
	if err := m.WriteAudit(world.AuditEntry{Now: 1, Actor: "E1", Action: "SPAWN"}); err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.n != 1 {
		t.Fatalf("counting sink saw %d", c.n)
	}
	files, err := ListFiles(dir+"/audit", "audit")
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	var lines int
	if err := ReadLines(files, func([]byte) error { lines++; return nil }); err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if lines != 1 {
		t.Fatalf("lines=%d", lines)
	}
}
