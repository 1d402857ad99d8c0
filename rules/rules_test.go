package rules

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/brensch/soak/config"
	"github.com/brensch/soak/game"
)

func dumpState(state *game.GameState) string {
	if state == nil {
		return "<nil state>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turn=%d Size=%dx%d Me=%d\n", state.Turn, state.Grid.Width, state.Grid.Height, state.MyPlayer)
	for _, a := range state.Agents.All() {
		fmt.Fprintf(&b, "Agent %d p%d at (%s) cd=%d bombs=%d wet=%d\n", a.ID, a.Player, a.Position, a.Cooldown, a.SplashBombs, a.Wetness)
	}
	b.WriteString("Board:\n")
	b.WriteString(state.Grid.String())
	return b.String()
}

func logSimulate(t *testing.T, name string, before *game.GameState, agentID int, actions []game.Action, after *game.GameState) {
	t.Helper()
	t.Logf("=== %s ===\nBefore:\n%sAgent %d: %v\nAfter:\n%s", name, dumpState(before), agentID, actions, dumpState(after))
}

func pos(x, y int) game.Position { return game.Position{X: x, Y: y} }

func agent(id, player int, p game.Position) game.Agent {
	return game.Agent{
		Profile: game.Profile{
			ID:             id,
			Player:         player,
			ShootCooldown:  2,
			OptimalRange:   3,
			SoakingPower:   24,
			MaxSplashBombs: 1,
		},
		Position:    p,
		SplashBombs: 1,
		Alive:       true,
	}
}

func newSim() *Simulator { return NewSimulator(config.Default(), nil) }

func mustGet(t *testing.T, state *game.GameState, id int) game.Agent {
	t.Helper()
	a, ok := state.Agents.Get(id)
	if !ok {
		t.Fatalf("agent %d missing\n%s", id, dumpState(state))
	}
	return a
}

func TestSimulate_MoveAdjacent(t *testing.T) {
	before := game.NewState(game.NewGrid(5, 5), 0, agent(1, 0, pos(2, 2)))
	actions := []game.Action{game.MoveTo(pos(3, 2))}

	after := newSim().Simulate(before, 1, actions)
	logSimulate(t, "move adjacent", before, 1, actions, after)

	if got := mustGet(t, after, 1).Position; got != pos(3, 2) {
		t.Fatalf("position=%v want (3,2)", got)
	}
	if tile, _ := after.Grid.Tile(pos(2, 2)); !tile.Occupant.IsNone() {
		t.Fatalf("vacated tile still holds %s", tile.Occupant)
	}
	if tile, _ := after.Grid.Tile(pos(3, 2)); tile.Occupant != game.Owner(1) {
		t.Fatalf("target tile holds %s want owner(1)", tile.Occupant)
	}
	if err := after.Validate(); err != nil {
		t.Fatalf("after state inconsistent: %v", err)
	}
}

func TestSimulate_MoveFarAdvancesOneStep(t *testing.T) {
	before := game.NewState(game.ParseGrid(
		"00000",
		"02220",
		"00000",
	), 0, agent(1, 0, pos(0, 0)), agent(2, 1, pos(0, 1)))
	actions := []game.Action{game.MoveTo(pos(2, 2))}

	after := newSim().Simulate(before, 1, actions)
	logSimulate(t, "move far", before, 1, actions, after)

	if got := mustGet(t, after, 1).Position; got != pos(1, 0) {
		t.Fatalf("position=%v want (1,0), the first step of the detour", got)
	}
}

func TestSimulate_MoveNeverOntoCoverOrOccupant(t *testing.T) {
	before := game.NewState(game.ParseGrid(
		"0100",
		"0000",
	), 0, agent(1, 0, pos(0, 0)), agent(2, 1, pos(0, 1)), agent(3, 0, pos(3, 1)))
	sim := newSim()

	for _, target := range []game.Position{pos(1, 0), pos(0, 1), pos(3, 1), pos(7, 7)} {
		next := before.Clone()
		err := sim.Apply(next, 1, game.MoveTo(target))
		if !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("move to %v: err=%v want ErrIllegalMove", target, err)
		}
		if dumpState(next) != dumpState(before) {
			t.Fatalf("rejected move to %v changed the state", target)
		}
	}
}

func TestSimulate_MoveUnreachable(t *testing.T) {
	before := game.NewState(game.ParseGrid(
		"020",
		"020",
	), 0, agent(1, 0, pos(0, 0)))
	err := newSim().Apply(before.Clone(), 1, game.MoveTo(pos(2, 1)))
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("err=%v want ErrIllegalMove", err)
	}
}

func TestSimulate_DoesNotLeak(t *testing.T) {
	before := game.NewState(game.NewGrid(6, 6), 0,
		agent(1, 0, pos(0, 0)),
		agent(2, 1, pos(2, 1)),
		agent(3, 1, pos(2, 2)),
	)
	snapshot := dumpState(before)

	actions := []game.Action{game.MoveTo(pos(1, 0)), game.ThrowAt(pos(2, 2))}
	after := newSim().Simulate(before, 1, actions)
	logSimulate(t, "no leak", before, 1, actions, after)

	if dumpState(before) != snapshot {
		t.Fatalf("simulate mutated its input.\nBefore:\n%sNow:\n%s", snapshot, dumpState(before))
	}
	if after.Agents.Len() == before.Agents.Len() {
		t.Fatalf("throw should have eliminated agents in the clone")
	}
}

func TestShoot_DamageRangeAndCover(t *testing.T) {
	grid := game.ParseGrid(
		"0000000",
		"0000000",
		"0001000",
		"0000000",
	)
	shooter := agent(1, 0, pos(3, 0))
	shooter.OptimalRange = 2
	before := game.NewState(grid, 0, shooter,
		agent(2, 1, pos(3, 3)), // behind low cover, distance 3 (beyond optimal)
		agent(3, 1, pos(1, 0)), // open, distance 2
		agent(4, 1, pos(6, 3)), // distance 6, beyond effective range 4
	)
	sim := newSim()

	open := before.Clone()
	if err := sim.Apply(open, 1, game.ShootAt(3)); err != nil {
		t.Fatalf("shoot open: %v", err)
	}
	if got := mustGet(t, open, 3).Wetness; got != 24 {
		t.Fatalf("open target wetness=%d want=24", got)
	}
	if got := mustGet(t, open, 1).Cooldown; got != shooter.ShootCooldown {
		t.Fatalf("shooter cooldown=%d want=%d", got, shooter.ShootCooldown)
	}

	covered := before.Clone()
	if err := sim.Apply(covered, 1, game.ShootAt(2)); err != nil {
		t.Fatalf("shoot covered: %v", err)
	}
	// 24 * (1 - 0.5) halved for falloff.
	if got := mustGet(t, covered, 2).Wetness; got != 6 {
		t.Fatalf("covered target wetness=%d want=6", got)
	}

	far := before.Clone()
	if err := sim.Apply(far, 1, game.ShootAt(4)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("far shot err=%v want ErrOutOfRange", err)
	}
}

func TestShoot_Rejections(t *testing.T) {
	shooter := agent(1, 0, pos(0, 0))
	shooter.Cooldown = 1
	before := game.NewState(game.NewGrid(4, 4), 0, shooter, agent(2, 0, pos(1, 0)), agent(3, 1, pos(0, 1)))
	sim := newSim()

	if err := sim.Apply(before.Clone(), 1, game.ShootAt(3)); !errors.Is(err, ErrCooldown) {
		t.Fatalf("err=%v want ErrCooldown", err)
	}

	ready := before.Clone()
	a := mustGet(t, ready, 1)
	a.Cooldown = 0
	ready.Agents.Put(a)
	if err := sim.Apply(ready.Clone(), 1, game.ShootAt(2)); !errors.Is(err, ErrNotEnemy) {
		t.Fatalf("err=%v want ErrNotEnemy", err)
	}
	if err := sim.Apply(ready.Clone(), 1, game.ShootAt(99)); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("err=%v want ErrUnknownAgent", err)
	}
	if err := sim.Apply(ready.Clone(), 42, game.WaitAction()); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("err=%v want ErrUnknownAgent for missing actor", err)
	}
}

func TestShoot_HunkerReducesDamage(t *testing.T) {
	target := agent(2, 1, pos(2, 0))
	before := game.NewState(game.NewGrid(4, 1), 0, agent(1, 0, pos(0, 0)), target)
	sim := newSim()

	state := before.Clone()
	if err := sim.Apply(state, 2, game.Hunker()); err != nil {
		t.Fatalf("hunker: %v", err)
	}
	if err := sim.Apply(state, 1, game.ShootAt(2)); err != nil {
		t.Fatalf("shoot: %v", err)
	}
	if got := mustGet(t, state, 2).Wetness; got != 18 {
		t.Fatalf("hunkered wetness=%d want=18", got)
	}
}

// A throw at (1,1) covers the 3x3 square around it. The Chebyshev boundary
// is inclusive: (2,2), (1,2) and the thrower at (0,0) are all inside.
func TestThrow_BlastRadiusBoundary(t *testing.T) {
	tuning := config.Default()
	tuning.ThrowDamage = 30
	sim := NewSimulator(tuning, nil)

	before := game.NewState(game.NewGrid(6, 6), 0,
		agent(1, 0, pos(0, 0)),
		agent(2, 1, pos(2, 2)),
		agent(3, 1, pos(1, 2)),
		agent(4, 1, pos(3, 3)),
		agent(5, 1, pos(1, 3)),
	)
	actions := []game.Action{game.ThrowAt(pos(1, 1))}
	after := sim.Simulate(before, 1, actions)
	logSimulate(t, "blast boundary", before, 1, actions, after)

	wantWet := map[int]int{1: 30, 2: 30, 3: 30, 4: 0, 5: 0}
	for id, want := range wantWet {
		if got := mustGet(t, after, id).Wetness; got != want {
			t.Fatalf("agent %d wetness=%d want=%d", id, got, want)
		}
	}
	if got := mustGet(t, after, 1).SplashBombs; got != 0 {
		t.Fatalf("bombs=%d want=0", got)
	}

	if err := sim.Apply(after.Clone(), 1, game.ThrowAt(pos(1, 1))); !errors.Is(err, ErrNoBombs) {
		t.Fatalf("second throw err=%v want ErrNoBombs", err)
	}
}

func TestThrow_RangeAndFriendlyFireElimination(t *testing.T) {
	before := game.NewState(game.NewGrid(8, 8), 0,
		agent(1, 0, pos(0, 0)),
		agent(2, 0, pos(3, 2)),
		agent(3, 1, pos(4, 2)),
		agent(4, 1, pos(5, 5)),
	)
	sim := newSim()

	if err := sim.Apply(before.Clone(), 1, game.ThrowAt(pos(5, 5))); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err=%v want ErrOutOfRange", err)
	}

	actions := []game.Action{game.ThrowAt(pos(3, 1))}
	after := sim.Simulate(before, 1, actions)
	logSimulate(t, "friendly fire", before, 1, actions, after)

	for _, id := range []int{2, 3} {
		if _, ok := after.Agents.Get(id); ok {
			t.Fatalf("agent %d should be eliminated", id)
		}
	}
	for _, p := range []game.Position{pos(3, 2), pos(4, 2)} {
		if tile, _ := after.Grid.Tile(p); !tile.Occupant.IsNone() {
			t.Fatalf("eliminated agent's tile %v still holds %s", p, tile.Occupant)
		}
	}
	if err := after.Validate(); err != nil {
		t.Fatalf("after state inconsistent: %v\n%s", err, dumpState(after))
	}
}

func TestSimulate_PartialLegality(t *testing.T) {
	before := game.NewState(game.NewGrid(10, 1), 0, agent(1, 0, pos(0, 0)), agent(2, 1, pos(9, 0)))
	actions := []game.Action{game.ShootAt(2), game.MoveTo(pos(1, 0))}

	after := newSim().Simulate(before, 1, actions)
	logSimulate(t, "partial legality", before, 1, actions, after)

	if got := mustGet(t, after, 1).Position; got != pos(1, 0) {
		t.Fatalf("legal move after an illegal shot should still apply, position=%v", got)
	}
	if got := mustGet(t, after, 2).Wetness; got != 0 {
		t.Fatalf("out-of-range shot landed: wetness=%d", got)
	}
}

func TestSimulate_NoSurvivorAtThreshold(t *testing.T) {
	a1 := agent(1, 0, pos(0, 0))
	a1.SplashBombs = 3
	victim := agent(3, 1, pos(2, 0))
	victim.Wetness = 90
	before := game.NewState(game.NewGrid(6, 3), 0, a1, agent(2, 1, pos(1, 2)), victim, agent(4, 1, pos(5, 2)))

	actions := []game.Action{game.ShootAt(3), game.MoveTo(pos(1, 0)), game.ThrowAt(pos(4, 1))}
	after := newSim().Simulate(before, 1, actions)
	logSimulate(t, "elimination", before, 1, actions, after)

	for _, a := range after.Agents.All() {
		if a.Wetness >= game.EliminationThreshold {
			t.Fatalf("agent %d survived with wetness %d", a.ID, a.Wetness)
		}
	}
	for _, id := range []int{3, 4} {
		if _, ok := after.Agents.Get(id); ok {
			t.Fatalf("agent %d should be eliminated", id)
		}
	}
	if err := after.Validate(); err != nil {
		t.Fatalf("after state inconsistent: %v", err)
	}
}

func TestStep_TicksCooldownsAndAdvancesTurn(t *testing.T) {
	before := game.NewState(game.NewGrid(5, 1), 0, agent(1, 0, pos(0, 0)), agent(2, 1, pos(3, 0)))
	cmds := []game.Command{
		{AgentID: 1, Actions: []game.Action{game.ShootAt(2)}},
		{AgentID: 2, Actions: []game.Action{game.Hunker()}},
	}
	after := newSim().Step(before, cmds)

	if got := mustGet(t, after, 1).Cooldown; got != 1 {
		t.Fatalf("cooldown=%d want=1 after one tick", got)
	}
	if mustGet(t, after, 2).Hunkered {
		t.Fatalf("hunker should reset at end of turn")
	}
	if after.Turn != before.Turn+1 {
		t.Fatalf("turn=%d want=%d", after.Turn, before.Turn+1)
	}

	overLimit := []game.Command{{AgentID: 1, Actions: []game.Action{game.MoveTo(pos(1, 0)), game.MoveTo(pos(2, 0))}}}
	if got := mustGet(t, newSim().Step(before, overLimit), 1).Position; got != pos(0, 0) {
		t.Fatalf("over-limit command should be dropped, position=%v", got)
	}
}

func TestStep_ResolvesMovesThenHunkerThenAttacks(t *testing.T) {
	before := game.NewState(game.NewGrid(10, 2), 0,
		agent(1, 0, pos(0, 0)),
		agent(2, 0, pos(0, 1)),
		agent(3, 1, pos(6, 0)),
		agent(4, 1, pos(3, 1)),
	)
	// The shots are listed before the moves and hunker they race against.
	cmds := []game.Command{
		{AgentID: 1, Actions: []game.Action{game.ShootAt(3)}},
		{AgentID: 2, Actions: []game.Action{game.ShootAt(4)}},
		{AgentID: 3, Actions: []game.Action{game.MoveTo(pos(7, 0))}},
		{AgentID: 4, Actions: []game.Action{game.Hunker()}},
	}
	after := newSim().Step(before, cmds)
	t.Logf("\nBefore:\n%sAfter:\n%s", dumpState(before), dumpState(after))

	if got := mustGet(t, after, 3); got.Position != pos(7, 0) || got.Wetness != 0 {
		t.Fatalf("agent 3 at %v wet=%d, want moved out of range before the shot", got.Position, got.Wetness)
	}
	if got := mustGet(t, after, 4).Wetness; got != 18 {
		t.Fatalf("agent 4 wetness=%d want=18 (hunkered before the shot)", got)
	}
	if got := mustGet(t, after, 1).Cooldown; got != 0 {
		t.Fatalf("agent 1 cooldown=%d, a rejected shot should not start the cooldown", got)
	}
}
