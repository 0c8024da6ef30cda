package world

import (
	"testing"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
)

type memLog struct {
	ticks  []TickLogEntry
	audits []AuditEntry
}

func (m *memLog) WriteTick(e TickLogEntry) error { m.ticks = append(m.ticks, e); return nil }
func (m *memLog) WriteAudit(e AuditEntry) error  { m.audits = append(m.audits, e); return nil }

func (m *memLog) fired() []string {
	var out []string
	for _, t := range m.ticks {
		for _, ev := range t.Events {
			out = append(out, ev.Entity.String()+":"+ev.Kind)
		}
	}
	return out
}

func newTestWorld(t *testing.T, rows, cols int) (*World, *memLog) {
	t.Helper()
	w, err := New(WorldConfig{ID: "test", Rows: rows, Cols: cols})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l := &memLog{}
	w.SetTickLogger(l)
	w.SetAuditLogger(l)
	return w, l
}

func mustAdd(t *testing.T, w *World, e *entity.Entity, now int64) entity.ID {
	t.Helper()
	id, err := w.AddEntity(e, now)
	if err != nil {
		t.Fatalf("AddEntity %s: %v", e.Name, err)
	}
	mustInvariants(t, w)
	return id
}

func mustAdvance(t *testing.T, w *World, now int64) {
	t.Helper()
	if err := w.AdvanceTo(now); err != nil {
		t.Fatalf("AdvanceTo(%d): %v", now, err)
	}
	mustInvariants(t, w)
}

func mustInvariants(t *testing.T, w *World) {
	t.Helper()
	if err := w.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func mustView(t *testing.T, w *World, id entity.ID) entity.View {
	t.Helper()
	v, ok := w.Entity(id)
	if !ok {
		t.Fatalf("entity %s missing", id)
	}
	return v
}

func miner(name string, x, y, capacity int, rate int64) *entity.Entity {
	return entity.NewGatherer(name, grid.Pos{X: x, Y: y}, entity.GathererParams{Capacity: capacity, Interval: rate})
}

func loaded(e *entity.Entity, st entity.GathererState, load int) *entity.Entity {
	e.Gatherer.State = st
	e.Gatherer.Load = load
	return e
}

func ore(x, y int) *entity.Entity {
	return entity.NewResource("ore", grid.Pos{X: x, Y: y}, 0)
}
