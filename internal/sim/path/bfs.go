// Package path computes obstacle-aware routes on the occupancy grid.
//
// Searches are breadth-first over 4-neighbors visited in a fixed order
// (up, down, left, right) so equal-length routes resolve the same way every run.
// Nothing is cached: occupancy changes between calls.
package path

import "gaia.world/internal/sim/grid"

// View is the read-only slice of the grid a search needs.
type View interface {
	InBounds(p grid.Pos) bool
	Occupied(p grid.Pos) bool
}

// Fixed neighbor order for determinism.
var dirs = [4]grid.Pos{{Y: -1}, {Y: 1}, {X: -1}, {X: 1}}

// FindPath returns the cells from start to goal inclusive, or nil when goal is
// unreachable. The goal cell may be occupied; every other cell on the route is free.
func FindPath(v View, start, goal grid.Pos) []grid.Pos {
	if !v.InBounds(start) || !v.InBounds(goal) {
		return nil
	}
	return search(v, start, func(p grid.Pos) bool { return p == goal })
}

// Nearest returns the shortest route from start to any cell for which isTarget
// holds, or nil. Targets are end points only; the search never walks through one.
// Among equally distant targets the first one discovered wins.
func Nearest(v View, start grid.Pos, isTarget func(grid.Pos) bool) []grid.Pos {
	if !v.InBounds(start) {
		return nil
	}
	return search(v, start, isTarget)
}

func search(v View, start grid.Pos, isTarget func(grid.Pos) bool) []grid.Pos {
	if isTarget(start) {
		return []grid.Pos{start}
	}

	prev := make(map[grid.Pos]grid.Pos, 64)
	prev[start] = start

	queue := make([]grid.Pos, 0, 64)
	queue = append(queue, start)
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		for _, d := range dirs {
			np := cur.Add(d)
			if _, seen := prev[np]; seen {
				continue
			}
			if !v.InBounds(np) {
				continue
			}
			if isTarget(np) {
				prev[np] = cur
				return unwind(prev, start, np)
			}
			if v.Occupied(np) {
				continue
			}
			prev[np] = cur
			queue = append(queue, np)
		}
	}
	return nil
}

func unwind(prev map[grid.Pos]grid.Pos, start, end grid.Pos) []grid.Pos {
	out := []grid.Pos{end}
	for p := end; p != start; {
		p = prev[p]
		out = append(out, p)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
