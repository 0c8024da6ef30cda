package scenario

import (
	"strings"
	"testing"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
	"gaia.world/internal/sim/tuning"
	"gaia.world/internal/sim/world"
)

func TestLoad_BundledScenario(t *testing.T) {
	sc, err := Load("../../../configs/gaia.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tu := tuning.Defaults()
	w, err := world.New(sc.WorldConfig(tu, 1000))
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	st, err := sc.Apply(w, tu, 1000)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if st.Entities != len(sc.Entities) || st.Backgrounds != len(sc.Backgrounds) {
		t.Fatalf("stats=%+v", st)
	}
	if err := w.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if w.Pending() == 0 {
		t.Fatalf("expected scheduled behavior after load")
	}
	if got := w.BackgroundAt(grid.Pos{X: 10, Y: 6}); got != "rocks" {
		t.Fatalf("background=%q", got)
	}
	if w.Config().Epoch != 1000 || w.Config().ID != "gaia" {
		t.Fatalf("config=%+v", w.Config())
	}
}

func TestParse_SchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown kind", "entities:\n  - {kind: dragon, name: d, col: 0, row: 0}\n", "kind"},
		{"missing row", "entities:\n  - {kind: ore, name: o, col: 0}\n", "row"},
		{"negative col", "backgrounds:\n  - {tag: grass, col: -1, row: 0}\n", "col"},
		{"zero rate", "entities:\n  - {kind: miner, name: m, col: 0, row: 0, rate_ms: 0}\n", "rate_ms"},
		{"unknown field", "speed: 3\n", "speed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestBuild_FillsDefaultsFromTuning(t *testing.T) {
	tu := tuning.Defaults()
	sc, err := Parse([]byte("entities:\n  - {kind: miner, name: m, col: 1, row: 2}\n  - {kind: vein, name: v, col: 0, row: 0}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m, err := sc.Entities[0].Build(tu)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Kind != entity.KindGatherer || m.Gatherer.Capacity != tu.Gatherer.Capacity || m.Gatherer.Interval != int64(tu.Gatherer.IntervalMs) {
		t.Fatalf("miner=%+v gatherer=%+v", m, m.Gatherer)
	}
	if m.Pos != (grid.Pos{X: 1, Y: 2}) {
		t.Fatalf("pos=%s", m.Pos)
	}
	v, err := sc.Entities[1].Build(tu)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v.Producer.Radius != tu.Producer.Radius || v.Producer.ResourceName != "ore" {
		t.Fatalf("producer=%+v", v.Producer)
	}
}

func TestBuild_ExplicitZeroOverridesTuning(t *testing.T) {
	tu := tuning.Defaults()
	tu.Producer.ResourceLifetimeMs = 5000
	sc, err := Parse([]byte("entities:\n" +
		"  - {kind: vein, name: v, col: 0, row: 0, reach: 0, lifetime_ms: 0}\n" +
		"  - {kind: miner, name: m, col: 1, row: 0, animation_rate_ms: 0}\n" +
		"  - {kind: vein, name: w, col: 2, row: 0}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tests := []struct {
		name string
		def  EntityDef
		get  func(*entity.Entity) int64
		want int64
	}{
		{"reach zero", sc.Entities[0], func(e *entity.Entity) int64 { return int64(e.Producer.Radius) }, 0},
		{"lifetime zero", sc.Entities[0], func(e *entity.Entity) int64 { return e.Producer.ResourceLifetime }, 0},
		{"animation disabled", sc.Entities[1], func(e *entity.Entity) int64 { return e.Gatherer.AnimationInterval }, 0},
		{"reach unset", sc.Entities[2], func(e *entity.Entity) int64 { return int64(e.Producer.Radius) }, int64(tu.Producer.Radius)},
		{"lifetime unset", sc.Entities[2], func(e *entity.Entity) int64 { return e.Producer.ResourceLifetime }, 5000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, err := tc.def.Build(tu)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if err := e.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if got := tc.get(e); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestApply_ReportsPlacementError(t *testing.T) {
	tu := tuning.Defaults()
	sc, err := Parse([]byte("rows: 2\ncols: 2\nentities:\n  - {kind: obstacle, name: a, col: 0, row: 0}\n  - {kind: obstacle, name: b, col: 0, row: 0}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w, err := world.New(sc.WorldConfig(tu, 0))
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	st, err := sc.Apply(w, tu, 0)
	if err == nil || !strings.Contains(err.Error(), "entities[1]") {
		t.Fatalf("err=%v", err)
	}
	if st.Entities != 1 {
		t.Fatalf("placed=%d want 1", st.Entities)
	}
}
