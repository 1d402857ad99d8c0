// Package pathfind answers reachability questions on a game.Grid with a
// breadth-first search over 4-connected walkable tiles.
//
// Neighbours are expanded in the fixed order +x, -x, +y, -y so identical
// inputs always produce the identical path.
package pathfind

import "github.com/brensch/soak/game"

// Unreachable marks tiles with no route in a distance field.
const Unreachable = -1

// FindPath returns the shortest route from start to goal. The route excludes
// start and ends with goal. Intermediate tiles must be walkable; the goal is
// exempt so a path onto an occupied tile can still be measured. A false
// result means "cannot move there this turn", not a failure.
func FindPath(g *game.Grid, start, goal game.Position) ([]game.Position, bool) {
	if !g.InBounds(start) || !g.InBounds(goal) {
		return nil, false
	}
	if start == goal {
		return []game.Position{}, true
	}

	parents := make([]int, len(g.Tiles))
	for i := range parents {
		parents[i] = -1
	}
	startIdx, goalIdx := g.Index(start), g.Index(goal)
	parents[startIdx] = startIdx

	queue := make([]game.Position, 0, len(g.Tiles))
	queue = append(queue, start)
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		for _, next := range g.Neighbors(cur, false) {
			idx := g.Index(next)
			if parents[idx] != -1 {
				continue
			}
			if idx != goalIdx && !g.IsWalkable(next) {
				continue
			}
			parents[idx] = g.Index(cur)
			if idx == goalIdx {
				return unwind(g, parents, startIdx, goalIdx), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func unwind(g *game.Grid, parents []int, startIdx, goalIdx int) []game.Position {
	n := 0
	for idx := goalIdx; idx != startIdx; idx = parents[idx] {
		n++
	}
	path := make([]game.Position, n)
	for idx := goalIdx; idx != startIdx; idx = parents[idx] {
		n--
		path[n] = game.Position{X: idx % g.Width, Y: idx / g.Width}
	}
	return path
}

// CanReach is FindPath without reconstructing the route.
func CanReach(g *game.Grid, start, goal game.Position) bool {
	if !g.InBounds(start) || !g.InBounds(goal) {
		return false
	}
	if start == goal {
		return true
	}
	seen := make([]bool, len(g.Tiles))
	seen[g.Index(start)] = true
	queue := []game.Position{start}
	for head := 0; head < len(queue); head++ {
		for _, next := range g.Neighbors(queue[head], false) {
			if next == goal {
				return true
			}
			idx := g.Index(next)
			if seen[idx] || !g.IsWalkable(next) {
				continue
			}
			seen[idx] = true
			queue = append(queue, next)
		}
	}
	return false
}

// Distances returns the BFS step count from start to every tile, indexed
// like g.Tiles. Non-walkable tiles are reported when adjacent to the
// explored region (as goals) but never expanded.
func Distances(g *game.Grid, start game.Position) []int {
	dist := make([]int, len(g.Tiles))
	for i := range dist {
		dist[i] = Unreachable
	}
	if !g.InBounds(start) {
		return dist
	}
	dist[g.Index(start)] = 0
	queue := []game.Position{start}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		d := dist[g.Index(cur)]
		for _, next := range g.Neighbors(cur, false) {
			idx := g.Index(next)
			if dist[idx] != Unreachable {
				continue
			}
			dist[idx] = d + 1
			if g.IsWalkable(next) {
				queue = append(queue, next)
			}
		}
	}
	return dist
}

// NextStep is the first tile of the route toward goal.
func NextStep(g *game.Grid, start, goal game.Position) (game.Position, bool) {
	path, ok := FindPath(g, start, goal)
	if !ok || len(path) == 0 {
		return start, false
	}
	return path[0], true
}
