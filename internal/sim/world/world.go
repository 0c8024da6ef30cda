package world

import (
	"sort"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
	"gaia.world/internal/sim/sched"
	"gaia.world/internal/sim/simerr"
)

// World owns the grid, every entity and the event queue.
// It is single-threaded: all calls must come from the goroutine driving AdvanceTo.
type World struct {
	cfg WorldConfig

	grid     *grid.Grid
	entities map[entity.ID]*entity.Entity
	sched    *sched.Scheduler[*World]

	nextEntityNum uint64

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// TickLogEntry is written once per AdvanceTo call that executed at least one event.
type TickLogEntry struct {
	WorldID string        `json:"world_id"`
	Now     int64         `json:"now"`
	Epoch   int64         `json:"epoch"`
	Events  []sched.Fired `json:"events"`
	Digest  string        `json:"digest"`
}

type AuditEntry struct {
	Now    int64  `json:"now"`
	Actor  string `json:"actor"`
	Action string `json:"action"` // e.g. "SPAWN", "MOVE", "COLLECT"
	Kind   string `json:"kind,omitempty"`
	Pos    [2]int `json:"pos"`
	Target string `json:"target,omitempty"`
	Count  int    `json:"count,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func New(cfg WorldConfig) (*World, error) {
	cfg.applyDefaults()
	g, err := grid.New(cfg.Rows, cfg.Cols, cfg.DefaultBackground)
	if err != nil {
		return nil, err
	}
	w := &World{
		cfg:      cfg,
		grid:     g,
		entities: map[entity.ID]*entity.Entity{},
	}
	w.sched = sched.New(w, w.alive)
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)   { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

func (w *World) Config() WorldConfig { return w.cfg }
func (w *World) Rows() int           { return w.grid.Rows() }
func (w *World) Cols() int           { return w.grid.Cols() }

// Now is the timestamp of the last AdvanceTo call.
func (w *World) Now() int64 { return w.sched.Now() }

// Pending is the number of queued events.
func (w *World) Pending() int { return w.sched.Pending() }

func (w *World) alive(id entity.ID) bool {
	_, ok := w.entities[id]
	return ok
}

// AdvanceTo runs every behavior due at or before now.
func (w *World) AdvanceTo(now int64) error {
	fired, err := w.sched.AdvanceTo(now)
	if len(fired) > 0 && w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			WorldID: w.cfg.ID,
			Now:     now,
			Epoch:   w.cfg.Epoch,
			Events:  fired,
			Digest:  w.Digest(),
		})
	}
	return err
}

// AddEntity places a copy of e on the grid, registers it under a fresh id and
// queues its first behavior events relative to now.
func (w *World) AddEntity(e *entity.Entity, now int64) (entity.ID, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	id := entity.ID(w.nextEntityNum + 1)
	if err := w.grid.Place(grid.Occupant(id), e.Pos); err != nil {
		return 0, err
	}
	w.nextEntityNum++

	ent := e.Clone()
	ent.ID = id
	w.entities[id] = ent
	w.scheduleInitial(ent, now)

	w.audit(AuditEntry{Now: now, Actor: id.String(), Action: "SPAWN", Kind: string(ent.Kind), Pos: posArr(ent.Pos), Target: ent.Name})
	return id, nil
}

func (w *World) scheduleInitial(e *entity.Entity, now int64) {
	// The entity was registered just above, so Schedule cannot fail.
	switch e.Kind {
	case entity.KindProducer:
		_, _ = w.sched.Schedule(e.ID, "produce", producerTick, now+e.Producer.Interval)
	case entity.KindResource:
		if e.Resource.Lifetime > 0 {
			_, _ = w.sched.Schedule(e.ID, "expire", resourceExpire, now+e.Resource.Lifetime)
		}
	case entity.KindGatherer:
		_, _ = w.sched.Schedule(e.ID, "think", gathererThink, now+e.Gatherer.Interval)
		if e.Gatherer.AnimationInterval > 0 {
			_, _ = w.sched.Schedule(e.ID, "animate", animate, now+e.Gatherer.AnimationInterval)
		}
	}
}

// RemoveEntity destroys id, frees its cell and cancels its pending events.
func (w *World) RemoveEntity(id entity.ID) error {
	return w.removeEntity(id, "REMOVE", "")
}

func (w *World) removeEntity(id entity.ID, action, reason string) error {
	e, ok := w.entities[id]
	if !ok {
		return simerr.New("remove", simerr.ErrUnknownEntity, "id=%s", id)
	}
	w.sched.CancelAll(id)
	w.grid.Vacate(e.Pos)
	delete(w.entities, id)
	w.audit(AuditEntry{Now: w.Now(), Actor: id.String(), Action: action, Kind: string(e.Kind), Pos: posArr(e.Pos), Reason: reason})
	return nil
}

// MoveEntity relocates id to the given cell.
func (w *World) MoveEntity(id entity.ID, to grid.Pos) error {
	e, ok := w.entities[id]
	if !ok {
		return simerr.New("move", simerr.ErrUnknownEntity, "id=%s", id)
	}
	if err := w.grid.Move(grid.Occupant(id), e.Pos, to); err != nil {
		return err
	}
	e.Pos = to
	w.audit(AuditEntry{Now: w.Now(), Actor: id.String(), Action: "MOVE", Pos: posArr(to)})
	return nil
}

// OccupantAt returns the id of the entity at p.
func (w *World) OccupantAt(p grid.Pos) (entity.ID, bool) {
	o, ok := w.grid.OccupantAt(p)
	return entity.ID(o), ok
}

func (w *World) IsOccupied(p grid.Pos) bool { return w.grid.Occupied(p) }

func (w *World) InBounds(p grid.Pos) bool { return w.grid.InBounds(p) }

func (w *World) SetBackground(p grid.Pos, tag string) error { return w.grid.SetBackground(p, tag) }

func (w *World) BackgroundAt(p grid.Pos) string { return w.grid.BackgroundAt(p) }

// Backgrounds returns the background layer row-major.
func (w *World) Backgrounds() []string { return w.grid.Backgrounds() }

// Entity returns a value snapshot of id.
func (w *World) Entity(id entity.ID) (entity.View, bool) {
	e, ok := w.entities[id]
	if !ok {
		return entity.View{}, false
	}
	return e.View(), true
}

// Entities returns snapshots of every live entity ordered by id.
func (w *World) Entities() []entity.View {
	out := make([]entity.View, 0, len(w.entities))
	for _, id := range w.sortedIDs() {
		out = append(out, w.entities[id].View())
	}
	return out
}

// PendingFor is the number of queued events bound to id.
func (w *World) PendingFor(id entity.ID) int { return w.sched.PendingFor(id) }

func (w *World) sortedIDs() []entity.ID {
	ids := make([]entity.ID, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) audit(e AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(e)
}

func posArr(p grid.Pos) [2]int { return [2]int{p.X, p.Y} }
