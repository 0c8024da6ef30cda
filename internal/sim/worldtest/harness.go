package worldtest

import (
	"testing"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
	"gaia.world/internal/sim/scenario"
	"gaia.world/internal/sim/tuning"
	world "gaia.world/internal/sim/world"
)

// Harness is a small black-box test helper for driving a world via exported APIs:
// - Add()/Obstacle()/Station() place entities at the harness clock
// - Step()/StepFor() advance the clock and check invariants after every advance
// - Ticks/Audits record everything the world journaled
//
// It avoids world internals so tests can live outside the world package.
type Harness struct {
	T *testing.T
	W *world.World

	Now int64

	Ticks  []world.TickLogEntry
	Audits []world.AuditEntry
}

func NewHarness(t *testing.T, cfg world.WorldConfig) *Harness {
	t.Helper()

	w, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w)
}

// NewHarnessWithWorld is like NewHarness, but uses an already-constructed world instance.
func NewHarnessWithWorld(t *testing.T, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{T: t, W: w, Now: w.Now()}
	w.SetTickLogger(h)
	w.SetAuditLogger(h)
	return h
}

// FromScenario builds and populates a world from a scenario file at epoch.
func FromScenario(t *testing.T, scenarioPath, tuningPath string, epoch int64) *Harness {
	t.Helper()

	tune := tuning.Defaults()
	if tuningPath != "" {
		var err error
		if tune, err = tuning.Load(tuningPath); err != nil {
			t.Fatalf("tuning.Load: %v", err)
		}
	}
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		t.Fatalf("scenario.Load: %v", err)
	}
	h := NewHarness(t, sc.WorldConfig(tune, epoch))
	h.Now = epoch
	if _, err := sc.Apply(h.W, tune, epoch); err != nil {
		t.Fatalf("scenario.Apply: %v", err)
	}
	h.checkInvariants()
	return h
}

func (h *Harness) WriteTick(e world.TickLogEntry) error {
	h.Ticks = append(h.Ticks, e)
	return nil
}

func (h *Harness) WriteAudit(e world.AuditEntry) error {
	h.Audits = append(h.Audits, e)
	return nil
}

func (h *Harness) Add(e *entity.Entity) entity.ID {
	h.T.Helper()
	id, err := h.W.AddEntity(e, h.Now)
	if err != nil {
		h.T.Fatalf("AddEntity %s: %v", e.Name, err)
	}
	h.checkInvariants()
	return id
}

func (h *Harness) Obstacle(x, y int) entity.ID {
	h.T.Helper()
	return h.Add(entity.NewObstacle("obstacle", grid.Pos{X: x, Y: y}))
}

func (h *Harness) Station(x, y int) entity.ID {
	h.T.Helper()
	return h.Add(entity.NewStation("blacksmith", grid.Pos{X: x, Y: y}))
}

// Step advances the clock by dt milliseconds.
func (h *Harness) Step(dt int64) {
	h.T.Helper()
	h.Now += dt
	if err := h.W.AdvanceTo(h.Now); err != nil {
		h.T.Fatalf("AdvanceTo(%d): %v", h.Now, err)
	}
	h.checkInvariants()
}

// StepFor advances in increments of dt until total milliseconds have passed.
func (h *Harness) StepFor(total, dt int64) {
	h.T.Helper()
	for end := h.Now + total; h.Now < end; {
		step := dt
		if h.Now+step > end {
			step = end - h.Now
		}
		h.Step(step)
	}
}

func (h *Harness) View(id entity.ID) entity.View {
	h.T.Helper()
	v, ok := h.W.Entity(id)
	if !ok {
		h.T.Fatalf("entity %s missing", id)
	}
	return v
}

// ByName returns every live entity with the given name, in id order.
func (h *Harness) ByName(name string) []entity.View {
	var out []entity.View
	for _, v := range h.W.Entities() {
		if v.Name == name {
			out = append(out, v)
		}
	}
	return out
}

// CountAudits counts journaled audit entries with the given action.
func (h *Harness) CountAudits(action string) int {
	n := 0
	for _, a := range h.Audits {
		if a.Action == action {
			n++
		}
	}
	return n
}

func (h *Harness) checkInvariants() {
	h.T.Helper()
	if err := h.W.CheckInvariants(); err != nil {
		h.T.Fatalf("invariants at now=%d: %v", h.Now, err)
	}
}
