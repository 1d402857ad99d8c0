// Package strategy picks an action list for every owned agent each turn.
//
// Agents are decided one at a time in ascending ID order against the
// authoritative state. Each candidate is simulated on its own clone and
// scored by territory delta; nothing an agent decides is visible to the
// agents after it.
package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brensch/soak/config"
	"github.com/brensch/soak/cover"
	"github.com/brensch/soak/game"
	"github.com/brensch/soak/rules"
	"github.com/brensch/soak/territory"
)

type Engine struct {
	Tuning  config.Tuning
	Sim     *rules.Simulator
	Posture *Posture
	Log     *slog.Logger
}

func NewEngine(tuning config.Tuning, sim *rules.Simulator, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	if sim == nil {
		sim = rules.NewSimulator(tuning, log)
	}
	posture, err := CompilePosture(tuning.Posture)
	if err != nil {
		return nil, err
	}
	return &Engine{Tuning: tuning, Sim: sim, Posture: posture, Log: log}, nil
}

// Decision is the outcome for one agent.
type Decision struct {
	Command    game.Command
	Label      string
	Delta      int
	Swing      int
	Considered int
}

// Report describes a whole decision pass.
type Report struct {
	Turn       int
	OwnScore   int
	EnemyScore int
	Aggressive bool
	Fallback   bool
	// Truncated is set when the deadline cut the pass short.
	Truncated bool
	Elapsed   time.Duration
	Decisions []Decision
}

func (r Report) Commands() []game.Command {
	out := make([]game.Command, len(r.Decisions))
	for i, d := range r.Decisions {
		out[i] = d.Command
	}
	return out
}

// Decide returns one command per owned agent, ascending by agent ID.
func (e *Engine) Decide(ctx context.Context, state *game.GameState) []game.Command {
	return e.Plan(ctx, state).Commands()
}

// Plan runs the decision pass and keeps the per-agent details.
func (e *Engine) Plan(ctx context.Context, state *game.GameState) Report {
	start := time.Now()
	if state == nil || state.Agents == nil {
		return Report{Fallback: true}
	}
	report := Report{Turn: state.Turn}

	if err := state.Validate(); err != nil {
		e.Log.Warn("falling back to wait", "turn", state.Turn, "error", err)
		report.Fallback = true
		report.Decisions = Fallback(state)
		report.Elapsed = time.Since(start)
		return report
	}

	env := NewPostureEnv(state)
	report.OwnScore, report.EnemyScore = env.OwnScore, env.EnemyScore
	aggressive, err := e.Posture.Aggressive(env)
	if err != nil {
		e.Log.Warn("posture rule failed, staying defensive", "error", err)
	}
	report.Aggressive = aggressive

	var threats []game.Position
	for _, a := range state.Enemies() {
		threats = append(threats, a.Position)
	}
	ev := cover.NewEvaluator(state.Grid, threats, e.Tuning)
	baseline := wetnessByID(state)

	for _, me := range state.Owned() {
		d := Decision{Command: game.Command{AgentID: me.ID}, Label: LabelWait}
		if ctx.Err() != nil {
			report.Truncated = true
			report.Decisions = append(report.Decisions, d)
			continue
		}

		var best *Decision
		for _, c := range e.candidates(state, ev, me, aggressive) {
			if ctx.Err() != nil {
				report.Truncated = true
				break
			}
			if !game.WithinTurnLimits(c.Actions) {
				continue
			}
			after := e.Sim.Simulate(state, me.ID, c.Actions)
			cand := Decision{
				Command: game.Command{AgentID: me.ID, Actions: c.Actions},
				Label:   c.Label,
				Delta:   territory.Delta(after),
				Swing:   swing(state, baseline, after),
			}
			d.Considered++
			if best == nil || cand.Delta > best.Delta || (cand.Delta == best.Delta && cand.Swing > best.Swing) {
				best = &cand
			}
		}
		if best != nil {
			best.Considered = d.Considered
			d = *best
		}

		e.Log.Debug("agent decided",
			"turn", state.Turn,
			"agent", me.ID,
			"command", d.Command.String(),
			"label", d.Label,
			"delta", d.Delta,
			"considered", d.Considered,
		)
		report.Decisions = append(report.Decisions, d)
	}

	report.Elapsed = time.Since(start)
	if report.Truncated {
		e.Log.Warn("turn budget exhausted", "turn", state.Turn, "elapsed", report.Elapsed)
	}
	return report
}

// Fallback is a Wait for every owned agent.
func Fallback(state *game.GameState) []Decision {
	var out []Decision
	for _, a := range state.Owned() {
		out = append(out, Decision{Command: game.Command{AgentID: a.ID}, Label: LabelWait})
	}
	return out
}

func wetnessByID(state *game.GameState) map[int]int {
	out := make(map[int]int, state.Agents.Len())
	for _, a := range state.Agents.All() {
		out[a.ID] = a.Wetness
	}
	return out
}

// swing is how much wetter the enemy got minus how much wetter we got. An
// eliminated agent counts as soaked to the threshold.
func swing(state *game.GameState, before map[int]int, after *game.GameState) int {
	total := 0
	for _, a := range state.Agents.All() {
		now := game.EliminationThreshold
		if b, ok := after.Agents.Get(a.ID); ok {
			now = b.Wetness
		}
		gained := now - before[a.ID]
		if state.IsOwned(a) {
			total -= gained
		} else {
			total += gained
		}
	}
	return total
}

func (d Decision) String() string {
	return fmt.Sprintf("%s [%s delta=%d swing=%d]", d.Command, d.Label, d.Delta, d.Swing)
}
