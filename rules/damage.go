package rules

import (
	"math"

	"github.com/brensch/soak/cover"
	"github.com/brensch/soak/game"
)

// ShotDamage is the wetness a shot from shooter adds to target: soaking power
// reduced by the target's cover (and hunker bonus), halved beyond the
// shooter's optimal range. Range legality is checked by the caller.
func ShotDamage(g *game.Grid, shooter, target game.Agent, hunkerBonus float64) int {
	reduction := cover.Protection(g, target.Position, shooter.Position)
	if target.Hunkered {
		reduction += hunkerBonus
	}
	reduction = math.Min(reduction, 1)

	dmg := float64(shooter.SoakingPower) * (1 - reduction)
	if shooter.Position.Manhattan(target.Position) > shooter.OptimalRange {
		dmg /= 2
	}
	return int(math.Round(dmg))
}
