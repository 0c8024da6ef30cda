package world

import (
	"fmt"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
	"gaia.world/internal/sim/sched"
)

// producerTick spawns at most one resource in the first free cell within the
// producer's Manhattan radius, scanning rows top to bottom and columns left to
// right. A full neighborhood just skips the cycle.
func producerTick(w *World, id entity.ID, now int64) sched.Result {
	e := w.entities[id]
	if e == nil || e.Producer == nil {
		return sched.Done()
	}
	p := e.Producer
	next := sched.Again(now + p.Interval)

	cell, ok := w.freeCellWithin(e.Pos, p.Radius)
	if !ok {
		return next
	}
	name := fmt.Sprintf("%s_%s_%d", p.ResourceName, e.Name, p.Spawned+1)
	if _, err := w.AddEntity(entity.NewResource(name, cell, p.ResourceLifetime), now); err != nil {
		return next
	}
	p.Spawned++
	return next
}

func (w *World) freeCellWithin(center grid.Pos, radius int) (grid.Pos, bool) {
	for dy := -radius; dy <= radius; dy++ {
		span := radius - abs(dy)
		for dx := -span; dx <= span; dx++ {
			p := grid.Pos{X: center.X + dx, Y: center.Y + dy}
			if w.grid.InBounds(p) && !w.grid.Occupied(p) {
				return p, true
			}
		}
	}
	return grid.Pos{}, false
}

// resourceExpire removes a resource whose lifetime ran out.
func resourceExpire(w *World, id entity.ID, now int64) sched.Result {
	e := w.entities[id]
	if e == nil || e.Kind != entity.KindResource {
		return sched.Done()
	}
	_ = w.removeEntity(id, "EXPIRE", "lifetime")
	return sched.Done()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
