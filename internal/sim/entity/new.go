package entity

import (
	"strings"

	"gaia.world/internal/sim/grid"
	"gaia.world/internal/sim/simerr"
)

type ProducerParams struct {
	Interval         int64
	Radius           int
	ResourceName     string
	ResourceLifetime int64
}

type GathererParams struct {
	Capacity          int
	Interval          int64
	AnimationInterval int64
	AnimFrames        int
}

func NewObstacle(name string, pos grid.Pos) *Entity {
	return &Entity{Name: name, Kind: KindObstacle, Pos: pos}
}

func NewStation(name string, pos grid.Pos) *Entity {
	return &Entity{Name: name, Kind: KindStation, Pos: pos, Station: &Station{}}
}

func NewProducer(name string, pos grid.Pos, p ProducerParams) *Entity {
	if p.ResourceName == "" {
		p.ResourceName = "ore"
	}
	return &Entity{
		Name: name,
		Kind: KindProducer,
		Pos:  pos,
		Producer: &Producer{
			Interval:         p.Interval,
			Radius:           p.Radius,
			ResourceName:     p.ResourceName,
			ResourceLifetime: p.ResourceLifetime,
		},
	}
}

func NewResource(name string, pos grid.Pos, lifetime int64) *Entity {
	return &Entity{Name: name, Kind: KindResource, Pos: pos, Resource: &Resource{Lifetime: lifetime}}
}

func NewGatherer(name string, pos grid.Pos, p GathererParams) *Entity {
	if p.AnimFrames <= 0 {
		p.AnimFrames = 1
	}
	return &Entity{
		Name: name,
		Kind: KindGatherer,
		Pos:  pos,
		Gatherer: &Gatherer{
			Capacity:          p.Capacity,
			State:             Seeking,
			Interval:          p.Interval,
			AnimationInterval: p.AnimationInterval,
			AnimFrames:        p.AnimFrames,
		},
	}
}

// Validate checks that the payload matches Kind and that every interval that
// drives a self-rescheduling chain is positive.
func (e *Entity) Validate() error {
	if e == nil {
		return simerr.New("validate", simerr.ErrInvalidEntity, "nil entity")
	}
	bad := func(format string, args ...any) error {
		return simerr.New("validate "+string(e.Kind), simerr.ErrInvalidEntity, format, args...)
	}
	if want, ok := payloadKinds[e.Kind]; ok {
		if got := e.payloads(); got != want {
			return bad("payloads=%s want %s", got, want)
		}
	}
	switch e.Kind {
	case KindObstacle:
	case KindStation:
		if e.Station == nil {
			return bad("missing station payload")
		}
	case KindProducer:
		p := e.Producer
		if p == nil {
			return bad("missing producer payload")
		}
		if p.Interval <= 0 {
			return bad("interval=%d", p.Interval)
		}
		if p.Radius < 0 {
			return bad("radius=%d", p.Radius)
		}
		if p.ResourceLifetime < 0 {
			return bad("resource_lifetime=%d", p.ResourceLifetime)
		}
	case KindResource:
		if e.Resource == nil {
			return bad("missing resource payload")
		}
		if e.Resource.Lifetime < 0 {
			return bad("lifetime=%d", e.Resource.Lifetime)
		}
	case KindGatherer:
		g := e.Gatherer
		if g == nil {
			return bad("missing gatherer payload")
		}
		if g.Capacity <= 0 {
			return bad("capacity=%d", g.Capacity)
		}
		if g.Interval <= 0 {
			return bad("interval=%d", g.Interval)
		}
		if g.AnimationInterval < 0 {
			return bad("animation_interval=%d", g.AnimationInterval)
		}
		if g.Load < 0 || g.Load > g.Capacity {
			return bad("load=%d capacity=%d", g.Load, g.Capacity)
		}
		switch g.State {
		case Seeking:
			if g.Load >= g.Capacity {
				return bad("seeking with full load=%d capacity=%d", g.Load, g.Capacity)
			}
		case ReturningToStation:
			if g.Load != g.Capacity {
				return bad("returning with load=%d capacity=%d", g.Load, g.Capacity)
			}
		default:
			return bad("state=%q", g.State)
		}
	default:
		return simerr.New("validate", simerr.ErrInvalidEntity, "kind=%q", e.Kind)
	}
	return nil
}

// payloadKinds names the single payload each kind carries ("" for none).
var payloadKinds = map[Kind]string{
	KindObstacle: "",
	KindStation:  "station",
	KindProducer: "producer",
	KindResource: "resource",
	KindGatherer: "gatherer",
}

func (e *Entity) payloads() string {
	var set []string
	if e.Station != nil {
		set = append(set, "station")
	}
	if e.Producer != nil {
		set = append(set, "producer")
	}
	if e.Resource != nil {
		set = append(set, "resource")
	}
	if e.Gatherer != nil {
		set = append(set, "gatherer")
	}
	return strings.Join(set, "+")
}
