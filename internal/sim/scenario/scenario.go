// Package scenario loads the initial world layout from YAML.
//
// Files are checked against an embedded JSON schema before they are decoded,
// so structural mistakes are reported with a path instead of a zero value.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
	"gaia.world/internal/sim/tuning"
	"gaia.world/internal/sim/world"
)

//go:embed scenario.schema.json
var schemaJSON []byte

const schemaURL = "scenario.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

type Scenario struct {
	WorldID           string       `yaml:"world_id"`
	Rows              int          `yaml:"rows"`
	Cols              int          `yaml:"cols"`
	DefaultBackground string       `yaml:"default_background"`
	Backgrounds       []Background `yaml:"backgrounds"`
	Entities          []EntityDef  `yaml:"entities"`
}

type Background struct {
	Tag string `yaml:"tag"`
	Col int    `yaml:"col"`
	Row int    `yaml:"row"`
}

type EntityDef struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	Col  int    `yaml:"col"`
	Row  int    `yaml:"row"`

	RateMs     int64  `yaml:"rate_ms"`
	AnimFrames int    `yaml:"anim_frames"`
	Capacity   int    `yaml:"capacity"`

	// Zero is meaningful for these, so nil means "use tuning".
	AnimationRateMs *int64 `yaml:"animation_rate_ms"`
	Reach           *int   `yaml:"reach"`
	LifetimeMs      *int64 `yaml:"lifetime_ms"`

	ResourceName string `yaml:"resource_name"`
}

func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return Parse(raw)
}

// Parse validates raw YAML against the scenario schema and decodes it.
func Parse(raw []byte) (Scenario, error) {
	var sc Scenario
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return sc, fmt.Errorf("scenario: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	// Round-trip through JSON so the validator sees plain JSON types.
	b, err := json.Marshal(doc)
	if err != nil {
		return sc, fmt.Errorf("scenario: %w", err)
	}
	var jdoc any
	if err := json.Unmarshal(b, &jdoc); err != nil {
		return sc, fmt.Errorf("scenario: %w", err)
	}
	s, err := compiled()
	if err != nil {
		return sc, fmt.Errorf("scenario schema: %w", err)
	}
	if err := s.Validate(jdoc); err != nil {
		return sc, fmt.Errorf("scenario: %w", err)
	}
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return sc, fmt.Errorf("scenario: %w", err)
	}
	return sc, nil
}

// WorldConfig merges the scenario's world settings over tuning.
func (s Scenario) WorldConfig(tu tuning.Tuning, epoch int64) world.WorldConfig {
	cfg := world.WorldConfig{
		ID:                s.WorldID,
		Rows:              tu.Rows,
		Cols:              tu.Cols,
		DefaultBackground: tu.DefaultBackground,
		Epoch:             epoch,
	}
	if s.Rows > 0 {
		cfg.Rows = s.Rows
	}
	if s.Cols > 0 {
		cfg.Cols = s.Cols
	}
	if s.DefaultBackground != "" {
		cfg.DefaultBackground = s.DefaultBackground
	}
	return cfg
}

// Build turns one definition into an entity, filling unset parameters from tuning.
func (d EntityDef) Build(tu tuning.Tuning) (*entity.Entity, error) {
	pos := grid.Pos{X: d.Col, Y: d.Row}
	switch d.Kind {
	case "obstacle":
		return entity.NewObstacle(d.Name, pos), nil
	case "blacksmith":
		return entity.NewStation(d.Name, pos), nil
	case "ore":
		return entity.NewResource(d.Name, pos, orValue(d.LifetimeMs, 0)), nil
	case "vein":
		p := entity.ProducerParams{
			Interval:         orDefault(d.RateMs, int64(tu.Producer.IntervalMs)),
			Radius:           orValue(d.Reach, tu.Producer.Radius),
			ResourceName:     d.ResourceName,
			ResourceLifetime: orValue(d.LifetimeMs, int64(tu.Producer.ResourceLifetimeMs)),
		}
		if p.ResourceName == "" {
			p.ResourceName = tu.Producer.ResourceName
		}
		return entity.NewProducer(d.Name, pos, p), nil
	case "miner":
		p := entity.GathererParams{
			Capacity:          d.Capacity,
			Interval:          orDefault(d.RateMs, int64(tu.Gatherer.IntervalMs)),
			AnimationInterval: orValue(d.AnimationRateMs, int64(tu.Gatherer.AnimationIntervalMs)),
			AnimFrames:        d.AnimFrames,
		}
		if p.Capacity == 0 {
			p.Capacity = tu.Gatherer.Capacity
		}
		if p.AnimFrames == 0 {
			p.AnimFrames = tu.Gatherer.AnimFrames
		}
		return entity.NewGatherer(d.Name, pos, p), nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", d.Kind)
}

// Stats summarizes what Apply placed.
type Stats struct {
	Backgrounds int
	Entities    int
}

// Apply sets backgrounds and adds every entity, scheduling their first events
// relative to now. It stops at the first placement error.
func (s Scenario) Apply(w *world.World, tu tuning.Tuning, now int64) (Stats, error) {
	var st Stats
	for i, bg := range s.Backgrounds {
		if err := w.SetBackground(grid.Pos{X: bg.Col, Y: bg.Row}, bg.Tag); err != nil {
			return st, fmt.Errorf("backgrounds[%d]: %w", i, err)
		}
		st.Backgrounds++
	}
	for i, d := range s.Entities {
		e, err := d.Build(tu)
		if err != nil {
			return st, fmt.Errorf("entities[%d]: %w", i, err)
		}
		if _, err := w.AddEntity(e, now); err != nil {
			return st, fmt.Errorf("entities[%d] %s: %w", i, d.Name, err)
		}
		st.Entities++
	}
	return st, nil
}

func orDefault(v, def int64) int64 {
	if v != 0 {
		return v
	}
	return def
}

func orValue[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}
