// Package entity defines the closed set of things that can stand on the grid.
//
// An Entity is a tagged variant: Kind selects which of the payload pointers is
// set. Entities carry no reference to the world or the scheduler.
package entity

import (
	"strconv"
	"strings"

	"gaia.world/internal/sim/grid"
)

type ID uint64

func (id ID) String() string { return "E" + strconv.FormatUint(uint64(id), 10) }

// ParseID accepts "E12" or "12".
func ParseID(s string) (ID, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "E")
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return ID(n), true
}

type Kind string

const (
	KindObstacle Kind = "OBSTACLE"
	KindStation  Kind = "STATION"
	KindProducer Kind = "PRODUCER"
	KindResource Kind = "RESOURCE"
	KindGatherer Kind = "GATHERER"
)

type GathererState string

const (
	Seeking            GathererState = "SEEKING"
	ReturningToStation GathererState = "RETURNING_TO_STATION"
)

type Entity struct {
	ID   ID
	Name string
	Kind Kind
	Pos  grid.Pos

	// AnimPhase is advanced by the animation chain; purely cosmetic.
	AnimPhase int

	Station  *Station
	Producer *Producer
	Resource *Resource
	Gatherer *Gatherer
}

type Station struct {
	Deposits int // deposit events
	Units    int // total load received
}

type Producer struct {
	Interval int64 // ms between production attempts
	Radius   int   // Manhattan radius from the producer's cell

	ResourceName     string
	ResourceLifetime int64 // 0: spawned resources never expire

	Spawned int
}

type Resource struct {
	Lifetime int64 // 0: never expires
}

type Gatherer struct {
	Capacity int
	Load     int
	State    GathererState

	Interval          int64 // think rate, ms
	AnimationInterval int64 // 0: no animation chain
	AnimFrames        int

	// Path is the route computed on the last think tick, start to target inclusive.
	Path []grid.Pos

	Collected int
	Returns   int // times the gatherer switched to ReturningToStation
}

func (e *Entity) Mobile() bool { return e.Kind == KindGatherer }

// Clone returns a deep copy, so the world never aliases caller-owned state.
func (e *Entity) Clone() *Entity {
	c := *e
	if e.Station != nil {
		s := *e.Station
		c.Station = &s
	}
	if e.Producer != nil {
		p := *e.Producer
		c.Producer = &p
	}
	if e.Resource != nil {
		r := *e.Resource
		c.Resource = &r
	}
	if e.Gatherer != nil {
		g := *e.Gatherer
		g.Path = append([]grid.Pos(nil), e.Gatherer.Path...)
		c.Gatherer = &g
	}
	return &c
}
