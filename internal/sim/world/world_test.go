package world

import (
	"errors"
	"testing"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
	"gaia.world/internal/sim/simerr"
)

func TestAddEntity_RejectsWithoutPartialEffect(t *testing.T) {
	w, l := newTestWorld(t, 2, 2)
	mustAdd(t, w, entity.NewObstacle("rock", grid.Pos{X: 0, Y: 0}), 0)

	tests := []struct {
		name string
		e    *entity.Entity
		want error
	}{
		{"occupied", entity.NewStation("smith", grid.Pos{X: 0, Y: 0}), simerr.ErrOccupiedCell},
		{"out of bounds", entity.NewStation("smith", grid.Pos{X: 2, Y: 0}), simerr.ErrOutOfBounds},
		{"invalid", miner("m", 1, 1, 0, 10), simerr.ErrInvalidEntity},
		{"seeking with full load", loaded(miner("m", 1, 1, 1, 10), entity.Seeking, 1), simerr.ErrInvalidEntity},
		{"returning with partial load", loaded(miner("m", 1, 1, 3, 10), entity.ReturningToStation, 1), simerr.ErrInvalidEntity},
		{"obstacle with payload", &entity.Entity{Kind: entity.KindObstacle, Name: "rock", Pos: grid.Pos{X: 1, Y: 1}, Station: &entity.Station{}}, simerr.ErrInvalidEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := w.AddEntity(tc.e, 0); !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
			if n := len(w.Entities()); n != 1 {
				t.Fatalf("entities=%d want 1", n)
			}
			if w.Pending() != 0 {
				t.Fatalf("pending=%d want 0", w.Pending())
			}
			mustInvariants(t, w)
		})
	}
	if len(l.audits) != 1 {
		t.Fatalf("audits=%d want 1 (only the first spawn)", len(l.audits))
	}
	// A failed add must not burn an id.
	id := mustAdd(t, w, entity.NewStation("smith", grid.Pos{X: 1, Y: 1}), 0)
	if id != 2 {
		t.Fatalf("id=%s want E2", id)
	}
}

func TestAddEntity_CopiesCallerState(t *testing.T) {
	w, _ := newTestWorld(t, 1, 3)
	e := miner("m", 0, 0, 1, 10)
	id := mustAdd(t, w, e, 0)
	e.Gatherer.Load = 1
	e.Pos = grid.Pos{X: 2, Y: 0}
	v := mustView(t, w, id)
	if v.Load != 0 || v.Pos != (grid.Pos{}) {
		t.Fatalf("world aliases caller entity: %+v", v)
	}
}

func TestMoveAndRemoveEntity(t *testing.T) {
	w, _ := newTestWorld(t, 2, 3)
	a := mustAdd(t, w, entity.NewObstacle("a", grid.Pos{X: 0, Y: 0}), 0)
	b := mustAdd(t, w, entity.NewObstacle("b", grid.Pos{X: 1, Y: 0}), 0)

	if err := w.MoveEntity(a, grid.Pos{X: 1, Y: 0}); !errors.Is(err, simerr.ErrOccupiedCell) {
		t.Fatalf("move onto b: err=%v", err)
	}
	if err := w.MoveEntity(a, grid.Pos{X: 0, Y: 5}); !errors.Is(err, simerr.ErrOutOfBounds) {
		t.Fatalf("move oob: err=%v", err)
	}
	mustInvariants(t, w)
	if err := w.MoveEntity(a, grid.Pos{X: 2, Y: 1}); err != nil {
		t.Fatalf("MoveEntity: %v", err)
	}
	mustInvariants(t, w)
	if id, ok := w.OccupantAt(grid.Pos{X: 2, Y: 1}); !ok || id != a {
		t.Fatalf("OccupantAt=%s,%v want %s", id, ok, a)
	}
	if w.IsOccupied(grid.Pos{X: 0, Y: 0}) {
		t.Fatalf("old cell still occupied")
	}

	if err := w.RemoveEntity(b); err != nil {
		t.Fatalf("RemoveEntity: %v", err)
	}
	mustInvariants(t, w)
	if err := w.RemoveEntity(b); !errors.Is(err, simerr.ErrUnknownEntity) {
		t.Fatalf("second remove err=%v", err)
	}
	if err := w.MoveEntity(b, grid.Pos{}); !errors.Is(err, simerr.ErrUnknownEntity) {
		t.Fatalf("move removed err=%v", err)
	}
	if _, ok := w.Entity(b); ok {
		t.Fatalf("removed entity still visible")
	}
}

func TestAdvanceTo_NonMonotonic(t *testing.T) {
	w, _ := newTestWorld(t, 1, 1)
	mustAdvance(t, w, 10)
	if err := w.AdvanceTo(9); !errors.Is(err, simerr.ErrNonMonotonicTime) {
		t.Fatalf("err=%v want ErrNonMonotonicTime", err)
	}
	if w.Now() != 10 {
		t.Fatalf("now=%d want 10", w.Now())
	}
}

func TestBackground(t *testing.T) {
	w, _ := newTestWorld(t, 2, 2)
	if got := w.BackgroundAt(grid.Pos{X: 1, Y: 1}); got != "background_default" {
		t.Fatalf("default background=%q", got)
	}
	if err := w.SetBackground(grid.Pos{X: 1, Y: 1}, "grass"); err != nil {
		t.Fatalf("SetBackground: %v", err)
	}
	if got := w.BackgroundAt(grid.Pos{X: 1, Y: 1}); got != "grass" {
		t.Fatalf("background=%q", got)
	}
	if err := w.SetBackground(grid.Pos{X: -1, Y: 0}, "grass"); !errors.Is(err, simerr.ErrOutOfBounds) {
		t.Fatalf("err=%v", err)
	}
}

func TestRemovedEntityNeverRuns(t *testing.T) {
	w, l := newTestWorld(t, 3, 3)
	g := mustAdd(t, w, entity.NewGatherer("m", grid.Pos{X: 1, Y: 1}, entity.GathererParams{
		Capacity: 1, Interval: 10, AnimationInterval: 5, AnimFrames: 2,
	}), 0)
	if w.PendingFor(g) != 2 {
		t.Fatalf("pending=%d want think+animate", w.PendingFor(g))
	}
	if err := w.RemoveEntity(g); err != nil {
		t.Fatalf("RemoveEntity: %v", err)
	}
	if w.PendingFor(g) != 0 || w.Pending() != 0 {
		t.Fatalf("events survived removal: %d", w.Pending())
	}
	mustAdvance(t, w, 100)
	if got := l.fired(); len(got) != 0 {
		t.Fatalf("fired after removal: %v", got)
	}
}

func TestEntitiesAreSnapshots(t *testing.T) {
	w, _ := newTestWorld(t, 1, 5)
	id := mustAdd(t, w, miner("m", 0, 0, 1, 10), 0)
	mustAdd(t, w, ore(4, 0), 0)
	mustAdvance(t, w, 10)

	v := mustView(t, w, id)
	if len(v.Path) == 0 {
		t.Fatalf("expected a path overlay")
	}
	v.Path[0] = grid.Pos{X: 99, Y: 99}
	again := mustView(t, w, id)
	if again.Path[0] == (grid.Pos{X: 99, Y: 99}) {
		t.Fatalf("view path aliases world state")
	}
	all := w.Entities()
	if len(all) != 2 || all[0].ID != id {
		t.Fatalf("Entities=%+v", all)
	}
}
