package world

import (
	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
	"gaia.world/internal/sim/path"
	"gaia.world/internal/sim/sched"
)

// gathererThink is one decision step: find the nearest reachable target for the
// current state, then either act on it (when adjacent) or take one step toward it.
// It always runs again after the think interval.
func gathererThink(w *World, id entity.ID, now int64) sched.Result {
	e := w.entities[id]
	if e == nil || e.Gatherer == nil {
		return sched.Done()
	}
	g := e.Gatherer
	next := sched.Again(now + g.Interval)

	want := entity.KindResource
	if g.State == entity.ReturningToStation {
		want = entity.KindStation
	}
	route := path.Nearest(w.grid, e.Pos, func(p grid.Pos) bool { return w.kindAt(p) == want })
	g.Path = route
	if route == nil {
		// Nothing reachable; wait for the world to change.
		return next
	}

	if len(route) == 2 {
		target, _ := w.OccupantAt(route[1])
		switch g.State {
		case entity.Seeking:
			w.collect(e, target, now)
		case entity.ReturningToStation:
			w.deposit(e, target, now)
		}
		g.Path = nil
		return next
	}

	if err := w.MoveEntity(id, route[1]); err != nil {
		return next
	}
	g.Path = route[1:]
	return next
}

func (w *World) collect(e *entity.Entity, target entity.ID, now int64) {
	g := e.Gatherer
	res := w.entities[target]
	if res == nil || res.Kind != entity.KindResource {
		return
	}
	w.audit(AuditEntry{Now: now, Actor: e.ID.String(), Action: "COLLECT", Pos: posArr(res.Pos), Target: target.String(), Count: 1})
	_ = w.removeEntity(target, "REMOVE", "collected by "+e.ID.String())
	g.Load++
	g.Collected++
	if g.Load >= g.Capacity {
		g.State = entity.ReturningToStation
		g.Returns++
	}
}

func (w *World) deposit(e *entity.Entity, target entity.ID, now int64) {
	g := e.Gatherer
	st := w.entities[target]
	if st == nil || st.Station == nil {
		return
	}
	st.Station.Deposits++
	st.Station.Units += g.Load
	w.audit(AuditEntry{Now: now, Actor: e.ID.String(), Action: "DEPOSIT", Pos: posArr(st.Pos), Target: target.String(), Count: g.Load})
	g.Load = 0
	g.State = entity.Seeking
}

func (w *World) kindAt(p grid.Pos) entity.Kind {
	id, ok := w.OccupantAt(p)
	if !ok {
		return ""
	}
	e := w.entities[id]
	if e == nil {
		return ""
	}
	return e.Kind
}

// animate advances the cosmetic frame counter. It never touches position or state.
func animate(w *World, id entity.ID, now int64) sched.Result {
	e := w.entities[id]
	if e == nil || e.Gatherer == nil || e.Gatherer.AnimationInterval <= 0 {
		return sched.Done()
	}
	frames := e.Gatherer.AnimFrames
	if frames <= 0 {
		frames = 1
	}
	e.AnimPhase = (e.AnimPhase + 1) % frames
	return sched.Again(now + e.Gatherer.AnimationInterval)
}
