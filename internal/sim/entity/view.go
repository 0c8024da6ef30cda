package entity

import "gaia.world/internal/sim/grid"

// View is a read-only value snapshot of an entity for renderers and tools.
// Nothing in a View aliases world state.
type View struct {
	ID        ID       `json:"id"`
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Pos       grid.Pos `json:"pos"`
	AnimPhase int      `json:"anim_phase"`

	State    GathererState `json:"state,omitempty"`
	Load     int           `json:"load,omitempty"`
	Capacity int           `json:"capacity,omitempty"`
	Path     []grid.Pos    `json:"path,omitempty"`

	Deposits int `json:"deposits,omitempty"`
	Units    int `json:"units,omitempty"`

	Spawned int `json:"spawned,omitempty"`
}

func (e *Entity) View() View {
	v := View{
		ID:        e.ID,
		Name:      e.Name,
		Kind:      e.Kind,
		Pos:       e.Pos,
		AnimPhase: e.AnimPhase,
	}
	switch {
	case e.Gatherer != nil:
		v.State = e.Gatherer.State
		v.Load = e.Gatherer.Load
		v.Capacity = e.Gatherer.Capacity
		if len(e.Gatherer.Path) > 0 {
			v.Path = append([]grid.Pos(nil), e.Gatherer.Path...)
		}
	case e.Station != nil:
		v.Deposits = e.Station.Deposits
		v.Units = e.Station.Units
	case e.Producer != nil:
		v.Spawned = e.Producer.Spawned
	}
	return v
}
