// Package sched is the discrete-event queue that drives the simulation.
//
// Events are (time, entity, action) triples. Periodic behavior is not built in:
// an action returns Again(t) to be queued once more, or Done. The scheduler only
// holds entity ids, never entities; an id that is no longer alive turns its
// events into no-ops.
package sched

import (
	"container/heap"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/simerr"
)

// Action is one behavior invocation. env is whatever the owner passed to New
// (the world), now is the time AdvanceTo was called with.
type Action[E any] func(env E, id entity.ID, now int64) Result

// Result tells the scheduler whether to queue the same action again.
type Result struct {
	again bool
	at    int64
}

func Done() Result            { return Result{} }
func Again(at int64) Result   { return Result{again: true, at: at} }
func (r Result) Repeat() bool { return r.again }
func (r Result) At() int64    { return r.at }

// Fired describes one executed event, in execution order.
type Fired struct {
	Seq    uint64    `json:"seq"`
	Entity entity.ID `json:"entity"`
	Kind   string    `json:"kind"`
	At     int64     `json:"at"`
}

type Scheduler[E any] struct {
	env   E
	alive func(entity.ID) bool

	q        queue[E]
	byEntity map[entity.ID]map[uint64]*event[E]
	nextSeq  uint64

	now      int64
	advanced bool
	running  bool
}

// New returns a scheduler that passes env to every action and asks alive
// whether an entity still exists before scheduling or running its events.
func New[E any](env E, alive func(entity.ID) bool) *Scheduler[E] {
	return &Scheduler[E]{
		env:      env,
		alive:    alive,
		byEntity: map[entity.ID]map[uint64]*event[E]{},
	}
}

// Now is the time of the last AdvanceTo call (0 before the first one).
func (s *Scheduler[E]) Now() int64 { return s.now }

func (s *Scheduler[E]) Pending() int { return len(s.q) }

func (s *Scheduler[E]) PendingFor(id entity.ID) int { return len(s.byEntity[id]) }

// NextAt reports the time of the earliest pending event.
func (s *Scheduler[E]) NextAt() (int64, bool) {
	if len(s.q) == 0 {
		return 0, false
	}
	return s.q[0].at, true
}

// Schedule queues action for id at the given time and returns its sequence number.
// It is safe to call from inside an action; see AdvanceTo for when such events run.
func (s *Scheduler[E]) Schedule(id entity.ID, kind string, action Action[E], at int64) (uint64, error) {
	if action == nil {
		return 0, simerr.New("schedule", simerr.ErrInvalidEntity, "nil action for %s", id)
	}
	if !s.alive(id) {
		return 0, simerr.New("schedule", simerr.ErrUnknownEntity, "id=%s", id)
	}
	s.nextSeq++
	ev := &event[E]{seq: s.nextSeq, at: at, entity: id, kind: kind, action: action}
	heap.Push(&s.q, ev)
	set := s.byEntity[id]
	if set == nil {
		set = map[uint64]*event[E]{}
		s.byEntity[id] = set
	}
	set[ev.seq] = ev
	return ev.seq, nil
}

// CancelAll drops every pending event of id and returns how many were dropped.
// Cancelling an id with nothing pending is a no-op.
func (s *Scheduler[E]) CancelAll(id entity.ID) int {
	set := s.byEntity[id]
	n := 0
	for _, ev := range set {
		if ev.index >= 0 {
			heap.Remove(&s.q, ev.index)
			n++
		}
	}
	delete(s.byEntity, id)
	return n
}

// AdvanceTo runs every event due at or before now, ordered by time and then by
// scheduling order. The queue head is re-checked after every event, so events
// scheduled during the call for a time <= now also run before it returns.
// now must not be earlier than the previous call.
func (s *Scheduler[E]) AdvanceTo(now int64) ([]Fired, error) {
	if s.running {
		return nil, simerr.New("advance", simerr.ErrReentrantAdvance, "to %d", now)
	}
	if s.advanced && now < s.now {
		return nil, simerr.New("advance", simerr.ErrNonMonotonicTime, "now=%d last=%d", now, s.now)
	}
	s.now = now
	s.advanced = true
	s.running = true
	defer func() { s.running = false }()

	var fired []Fired
	for len(s.q) > 0 && s.q[0].at <= now {
		ev := heap.Pop(&s.q).(*event[E])
		s.forget(ev)
		if !s.alive(ev.entity) {
			continue
		}

		fired = append(fired, Fired{Seq: ev.seq, Entity: ev.entity, Kind: ev.kind, At: ev.at})
		res := ev.action(s.env, ev.entity, now)
		if !res.again {
			continue
		}
		// The action may have removed its own entity.
		if !s.alive(ev.entity) {
			continue
		}
		if _, err := s.Schedule(ev.entity, ev.kind, ev.action, res.at); err != nil {
			return fired, err
		}
	}
	return fired, nil
}

func (s *Scheduler[E]) forget(ev *event[E]) {
	set := s.byEntity[ev.entity]
	if set == nil {
		return
	}
	delete(set, ev.seq)
	if len(set) == 0 {
		delete(s.byEntity, ev.entity)
	}
}
