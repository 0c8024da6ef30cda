package worldtest

import (
	"testing"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
	world "gaia.world/internal/sim/world"
)

const (
	gaiaScenario = "../../../configs/gaia.yaml"
	gaiaTuning   = "../../../configs/tuning.yaml"
)

func TestGaiaScenario_MinersDeliver(t *testing.T) {
	h := FromScenario(t, gaiaScenario, gaiaTuning, 0)
	spawnedAtLoad := h.CountAudits("SPAWN")

	h.StepFor(120_000, 100)

	if h.CountAudits("COLLECT") == 0 {
		t.Fatalf("no resource was collected")
	}
	if h.CountAudits("DEPOSIT") == 0 {
		t.Fatalf("no load was deposited")
	}
	if h.CountAudits("SPAWN") <= spawnedAtLoad {
		t.Fatalf("producers spawned nothing")
	}

	units := 0
	for _, v := range h.W.Entities() {
		if v.Kind == entity.KindStation {
			units += v.Units
		}
	}
	if units == 0 {
		t.Fatalf("stations received no units")
	}
}

func TestGaiaScenario_Deterministic(t *testing.T) {
	a := FromScenario(t, gaiaScenario, gaiaTuning, 1_000)
	b := FromScenario(t, gaiaScenario, gaiaTuning, 1_000)

	for i := 0; i < 400; i++ {
		a.Step(75)
		b.Step(75)
		if da, db := a.W.Digest(), b.W.Digest(); da != db {
			t.Fatalf("digest diverged at now=%d", a.Now)
		}
	}
	if len(a.Ticks) != len(b.Ticks) || len(a.Audits) != len(b.Audits) {
		t.Fatalf("journals differ: ticks %d/%d audits %d/%d", len(a.Ticks), len(b.Ticks), len(a.Audits), len(b.Audits))
	}
}

// A wall at column 2 (rows 0..3) forces the miner through the gap at row 4.
func TestHarness_WalksAroundWall(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{ID: "wall", Rows: 5, Cols: 5})
	for y := 0; y <= 3; y++ {
		h.Obstacle(2, y)
	}
	m := h.Add(entity.NewGatherer("miner", grid.Pos{X: 0, Y: 2}, entity.GathererParams{Capacity: 5, Interval: 100}))
	h.Add(entity.NewResource("ore", grid.Pos{X: 4, Y: 2}, 0))

	h.Step(100)
	v := h.View(m)
	if len(v.Path) != 8 {
		t.Fatalf("path=%v want 8 cells remaining", v.Path)
	}

	h.StepFor(600, 100)
	if got := h.CountAudits("COLLECT"); got != 0 {
		t.Fatalf("collected too early: %d", got)
	}
	h.Step(100)
	if got := h.CountAudits("COLLECT"); got != 1 {
		t.Fatalf("collects=%d want 1 at now=%d", got, h.Now)
	}
	if v := h.View(m); v.Load != 1 || grid.Manhattan(v.Pos, grid.Pos{X: 4, Y: 2}) != 1 {
		t.Fatalf("miner=%+v", v)
	}
	if len(h.ByName("ore")) != 0 {
		t.Fatalf("ore still on grid")
	}
}
