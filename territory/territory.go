// Package territory scores a state by majority distance: every tile belongs
// to the side with a strictly closer living agent.
package territory

import "github.com/brensch/soak/game"

const unclaimed = -1

// Score returns how many tiles are strictly closer (Manhattan) to one of
// state.MyPlayer's agents than to any enemy, and the converse. Ties count for
// nobody. A side with no agents left claims nothing and concedes every tile.
func Score(state *game.GameState) (own, enemy int) {
	mine := positions(state.Owned())
	theirs := positions(state.Enemies())
	if len(mine) == 0 && len(theirs) == 0 {
		return 0, 0
	}

	for y := 0; y < state.Grid.Height; y++ {
		for x := 0; x < state.Grid.Width; x++ {
			p := game.Position{X: x, Y: y}
			dOwn := nearest(p, mine)
			dEnemy := nearest(p, theirs)
			switch {
			case dOwn == unclaimed && dEnemy == unclaimed:
			case dEnemy == unclaimed || (dOwn != unclaimed && dOwn < dEnemy):
				own++
			case dOwn == unclaimed || dEnemy < dOwn:
				enemy++
			}
		}
	}
	return own, enemy
}

// Delta is own minus enemy score.
func Delta(state *game.GameState) int {
	own, enemy := Score(state)
	return own - enemy
}

func positions(agents []game.Agent) []game.Position {
	out := make([]game.Position, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.Position)
	}
	return out
}

// nearest is a min-reduction, so the order of from never matters.
func nearest(p game.Position, from []game.Position) int {
	best := unclaimed
	for _, q := range from {
		if d := p.Manhattan(q); best == unclaimed || d < best {
			best = d
		}
	}
	return best
}
