package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds operator-facing knobs. Entity parameters that a scenario leaves
// at zero fall back to the defaults here.
type Tuning struct {
	TickDurationMs int `yaml:"tick_duration_ms"`

	Rows              int    `yaml:"rows"`
	Cols              int    `yaml:"cols"`
	DefaultBackground string `yaml:"default_background"`

	Gatherer GathererDefaults `yaml:"gatherer"`
	Producer ProducerDefaults `yaml:"producer"`

	Observer ObserverLimits `yaml:"observer"`
}

type GathererDefaults struct {
	Capacity            int `yaml:"capacity"`
	IntervalMs          int `yaml:"interval_ms"`
	AnimationIntervalMs int `yaml:"animation_interval_ms"`
	AnimFrames          int `yaml:"anim_frames"`
}

type ProducerDefaults struct {
	IntervalMs         int    `yaml:"interval_ms"`
	Radius             int    `yaml:"radius"`
	ResourceName       string `yaml:"resource_name"`
	ResourceLifetimeMs int    `yaml:"resource_lifetime_ms"`
}

type ObserverLimits struct {
	MaxHz       float64 `yaml:"max_hz"`
	MaxSessions int     `yaml:"max_sessions"`
}

func Defaults() Tuning {
	t := Tuning{}
	t.applyDefaults()
	return t
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) applyDefaults() {
	if t.TickDurationMs <= 0 {
		t.TickDurationMs = 100
	}
	if t.Rows <= 0 {
		t.Rows = 30
	}
	if t.Cols <= 0 {
		t.Cols = 40
	}
	if t.DefaultBackground == "" {
		t.DefaultBackground = "background_default"
	}
	if t.Gatherer.Capacity <= 0 {
		t.Gatherer.Capacity = 4
	}
	if t.Gatherer.IntervalMs <= 0 {
		t.Gatherer.IntervalMs = 500
	}
	if t.Gatherer.AnimationIntervalMs <= 0 {
		t.Gatherer.AnimationIntervalMs = 100
	}
	if t.Gatherer.AnimFrames <= 0 {
		t.Gatherer.AnimFrames = 4
	}
	if t.Producer.IntervalMs <= 0 {
		t.Producer.IntervalMs = 5000
	}
	if t.Producer.Radius <= 0 {
		t.Producer.Radius = 1
	}
	if t.Producer.ResourceName == "" {
		t.Producer.ResourceName = "ore"
	}
	if t.Observer.MaxHz <= 0 {
		t.Observer.MaxHz = 10
	}
	if t.Observer.MaxSessions <= 0 {
		t.Observer.MaxSessions = 64
	}
}

func (t Tuning) validate() error {
	if t.Producer.ResourceLifetimeMs < 0 {
		return fmt.Errorf("producer.resource_lifetime_ms must be >= 0")
	}
	if t.Rows*t.Cols > 1<<22 {
		return fmt.Errorf("grid %dx%d too large", t.Rows, t.Cols)
	}
	return nil
}
