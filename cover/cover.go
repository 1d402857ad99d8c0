// Package cover decides which tiles are shielded from enemy fire and where
// an exposed agent should run to.
//
// A tile is covered from a threat when an orthogonally adjacent cover tile
// lies on the row or column segment between the tile and the threat.
package cover

import (
	"sort"

	"github.com/brensch/soak/config"
	"github.com/brensch/soak/game"
	"github.com/brensch/soak/pathfind"
)

// IsTileCoveredFrom reports whether tile is shielded from at least one of
// the threats within radius (Manhattan).
func IsTileCoveredFrom(g *game.Grid, tile game.Position, threats []game.Position, radius int) bool {
	for _, threat := range threats {
		if tile.Manhattan(threat) > radius {
			continue
		}
		if shield(g, tile, threat) > 0 {
			return true
		}
	}
	return false
}

// shield returns the cover value of the adjacent cover tile standing between
// tile and an aligned threat, or 0 when nothing does.
func shield(g *game.Grid, tile, threat game.Position) float64 {
	if tile == threat || !tile.Aligned(threat) {
		return 0
	}
	step := game.Position{X: sign(threat.X - tile.X), Y: sign(threat.Y - tile.Y)}
	c := game.Position{X: tile.X + step.X, Y: tile.Y + step.Y}
	if c == threat {
		return 0
	}
	t, ok := g.Tile(c)
	if !ok {
		return 0
	}
	return t.Kind.CoverValue()
}

// Protection is the fraction of a shot from shooter negated by cover around
// target. A shooter hugging the same cover tile gets no penalty.
func Protection(g *game.Grid, target, shooter game.Position) float64 {
	v := shield(g, target, shooter)
	if v == 0 {
		return 0
	}
	step := game.Position{X: sign(shooter.X - target.X), Y: sign(shooter.Y - target.Y)}
	c := game.Position{X: target.X + step.X, Y: target.Y + step.Y}
	if c.Chebyshev(shooter) <= 1 {
		return 0
	}
	return v
}

// Spot is a walkable tile next to cover.
type Spot struct {
	Position game.Position
	Value    float64
}

// Evaluator answers cover queries against one grid and one set of threats.
// Build it once per decision pass.
type Evaluator struct {
	grid    *game.Grid
	threats []game.Position
	radius  int
	horizon int
	spots   []Spot
}

func NewEvaluator(g *game.Grid, threats []game.Position, tuning config.Tuning) *Evaluator {
	return &Evaluator{
		grid:    g,
		threats: threats,
		radius:  tuning.ThreatRadius,
		horizon: tuning.CoverHorizon,
		spots:   Spots(g),
	}
}

// Spots lists every non-cover tile orthogonally adjacent to cover, valued
// by its best neighbouring cover, row-major.
func Spots(g *game.Grid) []Spot {
	var out []Spot
	for _, p := range g.Positions() {
		if g.IsCover(p) {
			continue
		}
		best := 0.0
		for _, n := range g.Neighbors(p, false) {
			if t, _ := g.Tile(n); t.Kind.CoverValue() > best {
				best = t.Kind.CoverValue()
			}
		}
		if best > 0 {
			out = append(out, Spot{Position: p, Value: best})
		}
	}
	return out
}

// Threatened reports whether any threat is within radius of p.
func (e *Evaluator) Threatened(p game.Position) bool {
	for _, t := range e.threats {
		if p.Manhattan(t) <= e.radius {
			return true
		}
	}
	return false
}

// Safe is true when no threat is in range of p or p is covered from one.
func (e *Evaluator) Safe(p game.Position) bool {
	return !e.Threatened(p) || IsTileCoveredFrom(e.grid, p, e.threats, e.radius)
}

func (e *Evaluator) IsTileCoveredFrom(p game.Position) bool {
	return IsTileCoveredFrom(e.grid, p, e.threats, e.radius)
}

// BestCoverNear picks the free safe cover spot nearest to pos in walking
// steps, within the horizon, preferring higher cover on equal distance.
// Spots that cannot be reached from pos are skipped.
func (e *Evaluator) BestCoverNear(pos game.Position) (game.Position, bool) {
	type ranked struct {
		Spot
		dist int
	}
	dist := pathfind.Distances(e.grid, pos)
	var cands []ranked
	for _, s := range e.spots {
		if s.Position == pos || !e.grid.IsWalkable(s.Position) {
			continue
		}
		d := dist[e.grid.Index(s.Position)]
		if d == pathfind.Unreachable || d > e.horizon {
			continue
		}
		if len(e.threats) > 0 && !e.IsTileCoveredFrom(s.Position) {
			continue
		}
		cands = append(cands, ranked{Spot: s, dist: d})
	}
	if len(cands) == 0 {
		return game.Position{}, false
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.Position.Less(b.Position)
	})
	return cands[0].Position, true
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
