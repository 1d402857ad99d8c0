package strategy

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/brensch/soak/config"
	"github.com/brensch/soak/cover"
	"github.com/brensch/soak/game"
)

func dumpState(state *game.GameState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Turn=%d Size=%dx%d Me=%d\n", state.Turn, state.Grid.Width, state.Grid.Height, state.MyPlayer)
	for _, a := range state.Agents.All() {
		fmt.Fprintf(&b, "Agent %d p%d at (%s) cd=%d bombs=%d wet=%d\n", a.ID, a.Player, a.Position, a.Cooldown, a.SplashBombs, a.Wetness)
	}
	b.WriteString(state.Grid.String())
	return b.String()
}

func agent(id, player, x, y int) game.Agent {
	return game.Agent{
		Profile: game.Profile{
			ID:             id,
			Player:         player,
			ShootCooldown:  2,
			OptimalRange:   3,
			SoakingPower:   24,
			MaxSplashBombs: 1,
		},
		Position: game.Position{X: x, Y: y},
		Alive:    true,
	}
}

func newEngine(t testing.TB) *Engine {
	t.Helper()
	e, err := NewEngine(config.Default(), nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func commandStrings(cmds []game.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

func TestDecide_ThrowsAtCluster(t *testing.T) {
	me := agent(1, 0, 0, 0)
	me.SplashBombs = 1
	state := game.NewState(game.NewGrid(8, 8), 0, me, agent(2, 1, 3, 1), agent(3, 1, 3, 2))

	report := newEngine(t).Plan(context.Background(), state)
	t.Logf("\n%s", dumpState(state))
	for _, d := range report.Decisions {
		t.Logf("%s", d)
	}

	got := commandStrings(report.Commands())
	if len(got) != 1 || got[0] != "1; THROW 2 1" {
		t.Fatalf("commands=%v want [1; THROW 2 1]", got)
	}
	if d := report.Decisions[0]; d.Label != LabelThrow || d.Delta != 64 {
		t.Fatalf("decision=%s want throw with delta 64", d)
	}
}

func TestDecide_SeeksCover(t *testing.T) {
	grid := game.ParseGrid(
		"00000",
		"00000",
		"00000",
		"01000",
		"00000",
		"00000",
	)
	me := agent(1, 0, 2, 4)
	me.Cooldown = 1
	state := game.NewState(grid, 0, me, agent(2, 1, 1, 0))

	report := newEngine(t).Plan(context.Background(), state)
	t.Logf("\n%s", dumpState(state))

	got := commandStrings(report.Commands())
	if len(got) != 1 || got[0] != "1; MOVE 1 4" {
		t.Fatalf("commands=%v want [1; MOVE 1 4]", got)
	}
	if report.Decisions[0].Label != LabelCover {
		t.Fatalf("label=%s want %s", report.Decisions[0].Label, LabelCover)
	}
}

func TestDecide_SeeksReachableCover(t *testing.T) {
	grid := game.ParseGrid(
		"020202000",
		"002000000",
		"000000000",
	)
	me := agent(1, 0, 4, 2)
	me.Cooldown = 1
	state := game.NewState(grid, 0, me, agent(2, 1, 4, 0))

	report := newEngine(t).Plan(context.Background(), state)
	t.Logf("\n%s", dumpState(state))

	// (2,0) is shielded too but boxed in by cover.
	got := commandStrings(report.Commands())
	if len(got) != 1 || got[0] != "1; MOVE 6 0" {
		t.Fatalf("commands=%v want [1; MOVE 6 0]", got)
	}
	if report.Decisions[0].Label != LabelCover {
		t.Fatalf("label=%s want %s", report.Decisions[0].Label, LabelCover)
	}
}

func TestDecide_StepsIntoThrowRange(t *testing.T) {
	me := agent(1, 0, 0, 0)
	me.SplashBombs = 1
	me.Cooldown = 1
	state := game.NewState(game.NewGrid(8, 8), 0, me, agent(2, 1, 6, 0), agent(3, 1, 6, 1))

	if _, ok := newEngine(t).pickThrow(state, me, me.Position); ok {
		t.Fatalf("cluster should be out of throw range from (0,0)")
	}

	report := newEngine(t).Plan(context.Background(), state)
	t.Logf("\n%s", dumpState(state))
	for _, d := range report.Decisions {
		t.Logf("%s", d)
	}

	got := commandStrings(report.Commands())
	if len(got) != 1 || got[0] != "1; MOVE 1 0; THROW 5 0" {
		t.Fatalf("commands=%v want [1; MOVE 1 0; THROW 5 0]", got)
	}
	if d := report.Decisions[0]; d.Label != LabelAdvanceThrow || d.Swing != 200 {
		t.Fatalf("decision=%s want advance+throw soaking both enemies", d)
	}
}

func TestDecide_ShootBeatsHunkerOnSwing(t *testing.T) {
	state := game.NewState(game.NewGrid(6, 6), 0, agent(1, 0, 0, 0), agent(2, 1, 2, 0))

	report := newEngine(t).Plan(context.Background(), state)
	d := report.Decisions[0]
	if d.Command.String() != "1; SHOOT 2" {
		t.Fatalf("decision=%s want 1; SHOOT 2", d)
	}
	if d.Swing != 24 || d.Considered != 2 {
		t.Fatalf("swing=%d considered=%d want 24 and 2", d.Swing, d.Considered)
	}
}

func TestDecide_AdvancesWhenOutOfRange(t *testing.T) {
	state := game.NewState(game.NewGrid(10, 1), 0, agent(1, 0, 0, 0), agent(2, 1, 9, 0))

	got := commandStrings(newEngine(t).Decide(context.Background(), state))
	if len(got) != 1 || got[0] != "1; MOVE 1 0" {
		t.Fatalf("commands=%v want [1; MOVE 1 0]", got)
	}
}

func TestDecide_NothingToDoWaits(t *testing.T) {
	state := game.NewState(game.NewGrid(4, 4), 0, agent(1, 0, 0, 0), agent(4, 0, 3, 3))

	got := commandStrings(newEngine(t).Decide(context.Background(), state))
	want := []string{"1; WAIT", "4; WAIT"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("commands=%v want %v", got, want)
	}
}

func TestDecide_FallbackOnInconsistentSnapshot(t *testing.T) {
	state := game.NewState(game.NewGrid(6, 6), 0, agent(1, 0, 0, 0), agent(3, 0, 5, 5), agent(2, 1, 2, 0))
	state.ReportedOwned = 3

	report := newEngine(t).Plan(context.Background(), state)
	if !report.Fallback {
		t.Fatalf("expected fallback")
	}
	got := commandStrings(report.Commands())
	want := []string{"1; WAIT", "3; WAIT"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("commands=%v want %v", got, want)
	}
}

func TestDecide_ExpiredBudgetWaits(t *testing.T) {
	state := game.NewState(game.NewGrid(6, 6), 0, agent(1, 0, 0, 0), agent(2, 1, 2, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newEngine(t).Plan(ctx, state)
	if !report.Truncated {
		t.Fatalf("expected truncated report")
	}
	if got := report.Commands()[0].String(); got != "1; WAIT" {
		t.Fatalf("command=%q want 1; WAIT", got)
	}
}

func TestDecide_LeavesStateUntouchedAndIsDeterministic(t *testing.T) {
	grid := game.ParseGrid(
		"0000000000",
		"0010000200",
		"0000000000",
		"0000020000",
		"0100000010",
		"0000000000",
	)
	a := agent(1, 0, 0, 0)
	a.SplashBombs = 1
	b := agent(2, 0, 1, 5)
	state := game.NewState(grid, 0, a, b,
		agent(5, 1, 6, 2),
		agent(6, 1, 7, 3),
		agent(7, 1, 9, 5),
	)
	snapshot := dumpState(state)

	e := newEngine(t)
	first := commandStrings(e.Decide(context.Background(), state))
	second := commandStrings(e.Decide(context.Background(), state))

	if dumpState(state) != snapshot {
		t.Fatalf("decide mutated the state.\nBefore:\n%sNow:\n%s", snapshot, dumpState(state))
	}
	if strings.Join(first, "|") != strings.Join(second, "|") {
		t.Fatalf("non-deterministic: %v vs %v", first, second)
	}
	if len(first) != 2 || !strings.HasPrefix(first[0], "1;") || !strings.HasPrefix(first[1], "2;") {
		t.Fatalf("commands=%v want one per owned agent in ID order", first)
	}
}

func TestCandidates_PostureOrdering(t *testing.T) {
	state := game.NewState(game.NewGrid(6, 6), 0, agent(1, 0, 0, 0), agent(2, 1, 2, 0))
	e := newEngine(t)
	ev := cover.NewEvaluator(state.Grid, []game.Position{{X: 2, Y: 0}}, e.Tuning)
	me, _ := state.Agents.Get(1)

	labels := func(cs []Candidate) string {
		var parts []string
		for _, c := range cs {
			parts = append(parts, c.Label)
		}
		return strings.Join(parts, ",")
	}

	if got := labels(e.candidates(state, ev, me, false)); got != "hunker,shoot" {
		t.Fatalf("defensive order=%s", got)
	}
	if got := labels(e.candidates(state, ev, me, true)); got != "shoot,hunker" {
		t.Fatalf("aggressive order=%s", got)
	}
}

func TestPickTarget_Order(t *testing.T) {
	me := agent(1, 0, 0, 0)
	near := agent(5, 1, 2, 0)
	near.Wetness = 10
	wetter := agent(6, 1, 0, 2)
	wetter.Wetness = 30
	far := agent(3, 1, 4, 0)
	far.Wetness = 90
	state := game.NewState(game.NewGrid(6, 6), 0, me, near, wetter, far)

	got, ok := pickTarget(state, me, me.Position)
	if !ok || got.ID != 6 {
		t.Fatalf("target=%d want 6 (same distance, wetter)", got.ID)
	}

	wetter.Wetness = 10
	state.Agents.Put(wetter)
	if got, _ := pickTarget(state, me, me.Position); got.ID != 5 {
		t.Fatalf("target=%d want 5 (lowest ID on full tie)", got.ID)
	}

	me.Cooldown = 1
	if _, ok := pickTarget(state, me, me.Position); ok {
		t.Fatalf("cooling down agent should not pick a target")
	}
}

func TestPickThrow_AvoidsOwnAgents(t *testing.T) {
	me := agent(1, 0, 0, 0)
	me.SplashBombs = 1
	state := game.NewState(game.NewGrid(8, 8), 0, me,
		agent(2, 0, 2, 2),
		agent(3, 1, 3, 2),
		agent(4, 1, 4, 0),
	)
	e := newEngine(t)

	tile, ok := e.pickThrow(state, me, me.Position)
	if !ok {
		t.Fatalf("expected a throw")
	}
	for _, a := range []game.Position{me.Position, {X: 2, Y: 2}} {
		if a.Chebyshev(tile) <= e.Tuning.BlastRadius {
			t.Fatalf("throw at %v catches our agent at %v", tile, a)
		}
	}

	// Thrown after a step to (1,0), the blast must also clear the new tile.
	if tile, ok := e.pickThrow(state, me, game.Position{X: 1, Y: 0}); ok && tile.Chebyshev(game.Position{X: 1, Y: 0}) <= e.Tuning.BlastRadius {
		t.Fatalf("throw at %v catches the thrower after its step", tile)
	}

	me.SplashBombs = 0
	if _, ok := e.pickThrow(state, me, me.Position); ok {
		t.Fatalf("no bombs, no throw")
	}
}

func BenchmarkDecide(b *testing.B) {
	grid := game.ParseGrid(
		"0000000000000000",
		"0020000001000000",
		"0000000000002000",
		"0001000000000000",
		"0000000200000100",
		"0100000000000000",
		"0000010000020000",
		"0000000000000000",
	)
	var agents []game.Agent
	for i := 0; i < 4; i++ {
		mine := agent(i+1, 0, 0, i*2)
		mine.SplashBombs = 1
		theirs := agent(i+5, 1, 15, i*2)
		theirs.SplashBombs = 1
		agents = append(agents, mine, theirs)
	}
	state := game.NewState(grid, 0, agents...)
	e := newEngine(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Decide(context.Background(), state)
	}
}
