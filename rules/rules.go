// Package rules simulates agent actions on cloned game states.
//
// Simulate never touches the state it is given: it clones once, applies the
// action list to the clone, and returns it. An illegal action is skipped and
// the rest of the list still applies.
package rules

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/brensch/soak/config"
	"github.com/brensch/soak/game"
	"github.com/brensch/soak/pathfind"
)

var (
	ErrUnknownAgent = errors.New("unknown agent")
	ErrIllegalMove  = errors.New("illegal move")
	ErrOutOfRange   = errors.New("out of range")
	ErrCooldown     = errors.New("weapon cooling down")
	ErrNotEnemy     = errors.New("target is not an enemy")
	ErrNoBombs      = errors.New("no splash bombs left")
)

type Simulator struct {
	Tuning config.Tuning
	Log    *slog.Logger
}

func NewSimulator(tuning config.Tuning, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{Tuning: tuning, Log: log}
}

// Simulate returns a clone of state with the agent's actions applied.
func (s *Simulator) Simulate(state *game.GameState, agentID int, actions []game.Action) *game.GameState {
	next := state.Clone()
	for _, a := range actions {
		if err := s.Apply(next, agentID, a); err != nil {
			s.Log.Debug("action rejected", "agent", agentID, "action", a.String(), "error", err)
		}
	}
	return next
}

// Apply mutates state in place. Callers own state; Simulate is the safe
// entry point. On error state is left exactly as it was.
func (s *Simulator) Apply(state *game.GameState, agentID int, a game.Action) error {
	actor, ok := state.Agents.Get(agentID)
	if !ok || !actor.Alive {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, agentID)
	}

	var err error
	switch a.Kind {
	case game.Move:
		err = s.move(state, actor, a.Target)
	case game.Shoot:
		err = s.shoot(state, actor, a.TargetID)
	case game.Throw:
		err = s.throw(state, actor, a.Target)
	case game.HunkerDown:
		actor.Hunkered = true
		state.Agents.Put(actor)
	case game.Wait, game.Message:
	}
	if err != nil {
		return err
	}
	eliminate(state)
	return nil
}

// move advances the agent by at most one tile toward target.
func (s *Simulator) move(state *game.GameState, actor game.Agent, target game.Position) error {
	if target == actor.Position {
		return nil
	}
	if !state.Grid.IsWalkable(target) {
		return fmt.Errorf("%w: (%s) is not walkable", ErrIllegalMove, target)
	}

	next := target
	if actor.Position.Manhattan(target) > 1 {
		step, ok := pathfind.NextStep(state.Grid, actor.Position, target)
		if !ok {
			return fmt.Errorf("%w: no path to (%s)", ErrIllegalMove, target)
		}
		next = step
	}

	state.Grid.SetOccupant(actor.Position, game.None)
	actor.Position = next
	state.Grid.SetOccupant(next, state.OccupantFor(actor))
	state.Agents.Put(actor)
	return nil
}

func (s *Simulator) shoot(state *game.GameState, actor game.Agent, targetID int) error {
	target, ok := state.Agents.Get(targetID)
	if !ok || !target.Alive {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, targetID)
	}
	if target.Player == actor.Player {
		return fmt.Errorf("%w: %d", ErrNotEnemy, targetID)
	}
	if actor.Cooldown > 0 {
		return fmt.Errorf("%w: %d turns left", ErrCooldown, actor.Cooldown)
	}
	if actor.Position.Manhattan(target.Position) > actor.EffectiveRange() {
		return fmt.Errorf("%w: target %d at %d, range %d", ErrOutOfRange, targetID, actor.Position.Manhattan(target.Position), actor.EffectiveRange())
	}

	target.Wetness += ShotDamage(state.Grid, actor, target, s.Tuning.HunkerBonus)
	state.Agents.Put(target)

	actor.Cooldown = actor.ShootCooldown
	state.Agents.Put(actor)
	return nil
}

func (s *Simulator) throw(state *game.GameState, actor game.Agent, target game.Position) error {
	if actor.SplashBombs < 1 {
		return ErrNoBombs
	}
	if !state.Grid.InBounds(target) {
		return fmt.Errorf("%w: (%s) is off the map", ErrOutOfRange, target)
	}
	if d := actor.Position.Manhattan(target); d > s.Tuning.ThrowRange {
		return fmt.Errorf("%w: throw distance %d, range %d", ErrOutOfRange, d, s.Tuning.ThrowRange)
	}

	actor.SplashBombs--
	state.Agents.Put(actor)

	// Friendly fire is part of the ruleset: every agent in the blast is hit.
	for _, victim := range Blast(state, target, s.Tuning.BlastRadius) {
		victim.Wetness += s.Tuning.ThrowDamage
		state.Agents.Put(victim)
	}
	return nil
}

// Blast lists the living agents within Chebyshev radius of center
// (inclusive), sorted by ID.
func Blast(state *game.GameState, center game.Position, radius int) []game.Agent {
	var out []game.Agent
	for _, a := range state.Agents.All() {
		if a.Position.Chebyshev(center) <= radius {
			out = append(out, a)
		}
	}
	return out
}

// eliminate removes every agent at or over the threshold in one sweep, after
// all damage of the action has landed.
func eliminate(state *game.GameState) {
	var dead []game.Agent
	for _, a := range state.Agents.All() {
		if a.Wetness >= game.EliminationThreshold {
			dead = append(dead, a)
		}
	}
	for _, a := range dead {
		if t, ok := state.Grid.Tile(a.Position); ok && t.Occupant.AgentID == a.ID && !t.Occupant.IsNone() {
			state.Grid.SetOccupant(a.Position, game.None)
		}
		state.Agents.Remove(a.ID)
	}
}

// Step applies a full turn of commands the way the referee does. Actions
// resolve in phases across all agents: every move, then every hunker, then
// the attacks, each phase in command order. Cooldowns tick down and hunker
// flags reset at the end.
func (s *Simulator) Step(state *game.GameState, cmds []game.Command) *game.GameState {
	next := state.Clone()
	var valid []game.Command
	for _, cmd := range cmds {
		if !game.WithinTurnLimits(cmd.Actions) {
			s.Log.Debug("command over turn limits", "agent", cmd.AgentID, "actions", len(cmd.Actions))
			continue
		}
		valid = append(valid, cmd)
	}

	for ph := phaseMove; ph <= phaseAttack; ph++ {
		for _, cmd := range valid {
			for _, a := range cmd.Actions {
				if phaseOf(a.Kind) != ph {
					continue
				}
				if err := s.Apply(next, cmd.AgentID, a); err != nil {
					s.Log.Debug("action rejected", "agent", cmd.AgentID, "action", a.String(), "error", err)
				}
			}
		}
	}

	for _, id := range next.Agents.IDs() {
		a, _ := next.Agents.Get(id)
		if a.Cooldown > 0 {
			a.Cooldown--
		}
		a.Hunkered = false
		next.Agents.Put(a)
	}
	next.Turn++
	return next
}

const (
	phaseMove = iota
	phaseHunker
	phaseAttack
)

func phaseOf(k game.ActionKind) int {
	switch k {
	case game.Move:
		return phaseMove
	case game.HunkerDown:
		return phaseHunker
	default:
		return phaseAttack
	}
}
