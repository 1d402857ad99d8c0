package strategy

import (
	"sort"

	"github.com/brensch/soak/cover"
	"github.com/brensch/soak/game"
	"github.com/brensch/soak/pathfind"
	"github.com/brensch/soak/rules"
)

// Candidate is one action list proposed for an agent.
type Candidate struct {
	Label   string
	Actions []game.Action
}

const (
	LabelWait         = "wait"
	LabelCover        = "cover"
	LabelCoverShoot   = "cover+shoot"
	LabelHunker       = "hunker"
	LabelShoot        = "shoot"
	LabelThrow        = "throw"
	LabelAdvance      = "advance"
	LabelAdvanceThrow = "advance+throw"
)

// candidates lists the proposals for me in priority order. Aggressive
// posture puts the attacks ahead of cover seeking.
func (e *Engine) candidates(state *game.GameState, ev *cover.Evaluator, me game.Agent, aggressive bool) []Candidate {
	defensive := e.defensive(state, ev, me)

	var offensive []Candidate
	if target, ok := pickTarget(state, me, me.Position); ok {
		offensive = append(offensive, Candidate{Label: LabelShoot, Actions: []game.Action{game.ShootAt(target.ID)}})
	}
	if tile, ok := e.pickThrow(state, me, me.Position); ok {
		offensive = append(offensive, Candidate{Label: LabelThrow, Actions: []game.Action{game.ThrowAt(tile)}})
	} else if c, ok := e.advanceThrow(state, me); ok {
		offensive = append(offensive, c)
	}

	var out []Candidate
	if aggressive {
		out = append(offensive, defensive...)
	} else {
		out = append(defensive, offensive...)
	}
	if c, ok := advance(state, me); ok {
		out = append(out, c)
	}
	return out
}

func (e *Engine) defensive(state *game.GameState, ev *cover.Evaluator, me game.Agent) []Candidate {
	if !ev.Threatened(me.Position) || ev.IsTileCoveredFrom(me.Position) {
		return nil
	}

	dest, ok := ev.BestCoverNear(me.Position)
	if !ok {
		return []Candidate{{Label: LabelHunker, Actions: []game.Action{game.Hunker()}}}
	}
	step, ok := pathfind.NextStep(state.Grid, me.Position, dest)
	if !ok {
		return []Candidate{{Label: LabelHunker, Actions: []game.Action{game.Hunker()}}}
	}

	out := []Candidate{{Label: LabelCover, Actions: []game.Action{game.MoveTo(dest)}}}
	if target, ok := pickTarget(state, me, step); ok {
		out = append(out, Candidate{
			Label:   LabelCoverShoot,
			Actions: []game.Action{game.MoveTo(dest), game.ShootAt(target.ID)},
		})
	}
	return out
}

// pickTarget chooses the enemy to shoot from a given position: nearest
// first, then the wettest, then the lowest ID.
func pickTarget(state *game.GameState, me game.Agent, from game.Position) (game.Agent, bool) {
	if !me.CanShoot() {
		return game.Agent{}, false
	}
	var inRange []game.Agent
	for _, a := range state.Enemies() {
		if from.Manhattan(a.Position) <= me.EffectiveRange() {
			inRange = append(inRange, a)
		}
	}
	if len(inRange) == 0 {
		return game.Agent{}, false
	}
	sort.Slice(inRange, func(i, j int) bool {
		a, b := inRange[i], inRange[j]
		da, db := from.Manhattan(a.Position), from.Manhattan(b.Position)
		if da != db {
			return da < db
		}
		if a.Wetness != b.Wetness {
			return a.Wetness > b.Wetness
		}
		return a.ID < b.ID
	})
	return inRange[0], true
}

// pickThrow finds the tile within throw range of from whose blast catches
// the most enemies and none of our own agents, me counted as standing at
// from. Ties go to the first tile in row-major order.
func (e *Engine) pickThrow(state *game.GameState, me game.Agent, from game.Position) (game.Position, bool) {
	tile, hits := e.bestThrow(state, me, from)
	return tile, hits > 0
}

func (e *Engine) bestThrow(state *game.GameState, me game.Agent, from game.Position) (game.Position, int) {
	if me.SplashBombs < 1 {
		return game.Position{}, 0
	}
	best, bestHits := game.Position{}, 0
	for _, p := range state.Grid.Positions() {
		if from.Manhattan(p) > e.Tuning.ThrowRange || from.Chebyshev(p) <= e.Tuning.BlastRadius {
			continue
		}
		hits := 0
		for _, a := range rules.Blast(state, p, e.Tuning.BlastRadius) {
			if a.ID == me.ID {
				continue
			}
			if state.IsOwned(a) {
				hits = -1
				break
			}
			hits++
		}
		if hits > bestHits {
			best, bestHits = p, hits
		}
	}
	return best, bestHits
}

// advanceThrow steps onto a neighbouring tile and throws from there, for
// clusters just beyond throw range. Neighbours are tried in the fixed
// direction order and the first with the most hits wins.
func (e *Engine) advanceThrow(state *game.GameState, me game.Agent) (Candidate, bool) {
	if me.SplashBombs < 1 {
		return Candidate{}, false
	}
	var (
		step, tile game.Position
		bestHits   int
	)
	for _, n := range state.Grid.Neighbors(me.Position, false) {
		if !state.Grid.IsWalkable(n) {
			continue
		}
		if t, hits := e.bestThrow(state, me, n); hits > bestHits {
			step, tile, bestHits = n, t, hits
		}
	}
	if bestHits == 0 {
		return Candidate{}, false
	}
	return Candidate{
		Label:   LabelAdvanceThrow,
		Actions: []game.Action{game.MoveTo(step), game.ThrowAt(tile)},
	}, true
}

// advance steps toward the nearest enemy when none is in shooting range.
func advance(state *game.GameState, me game.Agent) (Candidate, bool) {
	enemies := state.Enemies()
	if len(enemies) == 0 {
		return Candidate{}, false
	}
	nearest := enemies[0]
	for _, a := range enemies {
		if a.Position.Manhattan(me.Position) <= me.EffectiveRange() {
			return Candidate{}, false
		}
		if a.Position.Manhattan(me.Position) < nearest.Position.Manhattan(me.Position) {
			nearest = a
		}
	}
	step, ok := pathfind.NextStep(state.Grid, me.Position, nearest.Position)
	if !ok || step == nearest.Position {
		return Candidate{}, false
	}
	return Candidate{Label: LabelAdvance, Actions: []game.Action{game.MoveTo(step)}}, true
}
