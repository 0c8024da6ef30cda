package grid

import (
	"fmt"

	"gaia.world/internal/sim/simerr"
)

// Pos is a (column, row) cell address.
type Pos struct {
	X int `json:"x"` // column
	Y int `json:"y"` // row
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func (p Pos) Add(d Pos) Pos { return Pos{X: p.X + d.X, Y: p.Y + d.Y} }

// Manhattan returns |dx|+|dy|.
func Manhattan(a, b Pos) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Occupant identifies the entity holding a cell. Zero means empty.
type Occupant uint64

// Grid is a fixed-size row-major tile map with a cosmetic background layer and an
// exclusive occupancy layer. It is not safe for concurrent use.
type Grid struct {
	rows int
	cols int

	defaultBackground string
	background        []string
	occupancy         []Occupant
}

func New(rows, cols int, defaultBackground string) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid: invalid dimensions %dx%d", rows, cols)
	}
	return &Grid{
		rows:              rows,
		cols:              cols,
		defaultBackground: defaultBackground,
		background:        make([]string, rows*cols),
		occupancy:         make([]Occupant, rows*cols),
	}, nil
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

func (g *Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.cols && p.Y >= 0 && p.Y < g.rows
}

func (g *Grid) index(p Pos) int { return p.Y*g.cols + p.X }

// BackgroundAt returns the tag at p, or the default tag when unset or out of bounds.
func (g *Grid) BackgroundAt(p Pos) string {
	if !g.InBounds(p) {
		return g.defaultBackground
	}
	if tag := g.background[g.index(p)]; tag != "" {
		return tag
	}
	return g.defaultBackground
}

func (g *Grid) SetBackground(p Pos, tag string) error {
	if !g.InBounds(p) {
		return simerr.New("set background", simerr.ErrOutOfBounds, "pos=%s", p)
	}
	g.background[g.index(p)] = tag
	return nil
}

// OccupantAt returns the entity at p. ok is false for empty or out-of-bounds cells.
func (g *Grid) OccupantAt(p Pos) (Occupant, bool) {
	if !g.InBounds(p) {
		return 0, false
	}
	o := g.occupancy[g.index(p)]
	return o, o != 0
}

func (g *Grid) Occupied(p Pos) bool {
	_, ok := g.OccupantAt(p)
	return ok
}

func (g *Grid) Place(id Occupant, p Pos) error {
	if id == 0 {
		return simerr.New("place", simerr.ErrUnknownEntity, "zero id")
	}
	if !g.InBounds(p) {
		return simerr.New("place", simerr.ErrOutOfBounds, "pos=%s", p)
	}
	if g.occupancy[g.index(p)] != 0 {
		return simerr.New("place", simerr.ErrOccupiedCell, "pos=%s", p)
	}
	g.occupancy[g.index(p)] = id
	return nil
}

// Vacate clears p. Empty or out-of-bounds cells are left alone.
func (g *Grid) Vacate(p Pos) {
	if !g.InBounds(p) {
		return
	}
	g.occupancy[g.index(p)] = 0
}

// Move relocates id from one cell to another. All checks happen before either
// cell is touched.
func (g *Grid) Move(id Occupant, from, to Pos) error {
	if !g.InBounds(from) {
		return simerr.New("move", simerr.ErrOutOfBounds, "from=%s", from)
	}
	if !g.InBounds(to) {
		return simerr.New("move", simerr.ErrOutOfBounds, "to=%s", to)
	}
	if g.occupancy[g.index(from)] != id {
		return simerr.New("move", simerr.ErrUnknownEntity, "id=%d not at %s", id, from)
	}
	if from == to {
		return nil
	}
	if g.occupancy[g.index(to)] != 0 {
		return simerr.New("move", simerr.ErrOccupiedCell, "to=%s", to)
	}
	g.occupancy[g.index(from)] = 0
	g.occupancy[g.index(to)] = id
	return nil
}

// Backgrounds returns a copy of the background layer, row-major, with defaults filled in.
func (g *Grid) Backgrounds() []string {
	out := make([]string, len(g.background))
	for i, tag := range g.background {
		if tag == "" {
			tag = g.defaultBackground
		}
		out[i] = tag
	}
	return out
}

// EachOccupied calls fn for every occupied cell in row-major order.
func (g *Grid) EachOccupied(fn func(p Pos, id Occupant)) {
	for i, o := range g.occupancy {
		if o == 0 {
			continue
		}
		fn(Pos{X: i % g.cols, Y: i / g.cols}, o)
	}
}
