package game

import "fmt"

// Position is a grid coordinate. (0,0) is the top-left tile.
type Position struct {
	X int
	Y int
}

func (p Position) String() string {
	return fmt.Sprintf("%d %d", p.X, p.Y)
}

// Manhattan is the 4-connected distance used for shooting and throwing range.
func (p Position) Manhattan(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

// Chebyshev is the 8-connected distance used for blast radius: a diagonal
// neighbour is at distance 1.
func (p Position) Chebyshev(o Position) int {
	return max(abs(p.X-o.X), abs(p.Y-o.Y))
}

// Aligned reports whether both positions share a row or a column.
func (p Position) Aligned(o Position) bool {
	return p.X == o.X || p.Y == o.Y
}

// Less orders positions row-major so ranking ties resolve the same way on
// every run.
func (p Position) Less(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// Directions is the fixed 4-neighbour expansion order: +x, -x, +y, -y.
var Directions = [4]Position{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}

var diagonals = [4]Position{{X: 1, Y: 1}, {X: -1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: -1}}

func (p Position) add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
