package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"gaia.world/internal/sim/entity"
	"gaia.world/internal/sim/grid"
)

// Digest hashes the simulation state (clock, queue size, entities and their
// variant payloads) so two runs can be compared tick by tick.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	writeI64(h, &tmp, int64(w.grid.Rows()))
	writeI64(h, &tmp, int64(w.grid.Cols()))
	writeI64(h, &tmp, w.Now())
	writeI64(h, &tmp, int64(w.sched.Pending()))
	writeI64(h, &tmp, int64(w.nextEntityNum))

	for _, id := range w.sortedIDs() {
		digestEntity(h, &tmp, w.entities[id])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestEntity(h hash.Hash, tmp *[8]byte, e *entity.Entity) {
	writeI64(h, tmp, int64(e.ID))
	writeStr(h, tmp, string(e.Kind))
	writeStr(h, tmp, e.Name)
	writeI64(h, tmp, int64(e.Pos.X))
	writeI64(h, tmp, int64(e.Pos.Y))
	writeI64(h, tmp, int64(e.AnimPhase))
	switch {
	case e.Gatherer != nil:
		g := e.Gatherer
		writeStr(h, tmp, string(g.State))
		writeI64(h, tmp, int64(g.Load))
		writeI64(h, tmp, int64(g.Collected))
		writeI64(h, tmp, int64(g.Returns))
	case e.Station != nil:
		writeI64(h, tmp, int64(e.Station.Deposits))
		writeI64(h, tmp, int64(e.Station.Units))
	case e.Producer != nil:
		writeI64(h, tmp, int64(e.Producer.Spawned))
	case e.Resource != nil:
		writeI64(h, tmp, e.Resource.Lifetime)
	}
}

func writeI64(h hash.Hash, tmp *[8]byte, v int64) {
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	h.Write(tmp[:])
}

func writeStr(h hash.Hash, tmp *[8]byte, s string) {
	writeI64(h, tmp, int64(len(s)))
	h.Write([]byte(s))
}

// CheckInvariants verifies that the occupancy layer and entity positions agree:
// a cell is occupied iff exactly the entity recorded there claims that position.
func (w *World) CheckInvariants() error {
	seen := 0
	var err error
	w.grid.EachOccupied(func(p grid.Pos, o grid.Occupant) {
		if err != nil {
			return
		}
		e := w.entities[entity.ID(o)]
		if e == nil {
			err = fmt.Errorf("cell %s holds unknown entity %d", p, o)
			return
		}
		if e.Pos != p {
			err = fmt.Errorf("cell %s holds %s recorded at %s", p, e.ID, e.Pos)
			return
		}
		seen++
	})
	if err != nil {
		return err
	}
	if seen != len(w.entities) {
		return fmt.Errorf("occupied cells=%d entities=%d", seen, len(w.entities))
	}
	return nil
}
