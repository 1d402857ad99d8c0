package game

import (
	"fmt"
	"strings"
)

type ActionKind uint8

const (
	Wait ActionKind = iota
	Move
	Shoot
	Throw
	HunkerDown
	Message
)

func (k ActionKind) String() string {
	switch k {
	case Move:
		return "MOVE"
	case Shoot:
		return "SHOOT"
	case Throw:
		return "THROW"
	case HunkerDown:
		return "HUNKER_DOWN"
	case Message:
		return "MESSAGE"
	default:
		return "WAIT"
	}
}

// Offensive reports whether the action spends the agent's attack for the turn.
func (k ActionKind) Offensive() bool { return k == Shoot || k == Throw }

// Action is one step of an agent's turn. Target is used by Move and Throw,
// TargetID by Shoot, Text by Message.
type Action struct {
	Kind     ActionKind
	Target   Position
	TargetID int
	Text     string
}

func MoveTo(p Position) Action { return Action{Kind: Move, Target: p} }
func ShootAt(id int) Action { return Action{Kind: Shoot, TargetID: id} }
func ThrowAt(p Position) Action { return Action{Kind: Throw, Target: p} }
func WaitAction() Action { return Action{Kind: Wait} }
func Hunker() Action { return Action{Kind: HunkerDown} }
func Say(text string) Action { return Action{Kind: Message, Text: text} }

func (a Action) String() string {
	switch a.Kind {
	case Move, Throw:
		return fmt.Sprintf("%s %s", a.Kind, a.Target)
	case Shoot:
		return fmt.Sprintf("%s %d", a.Kind, a.TargetID)
	case Message:
		return fmt.Sprintf("%s %s", a.Kind, a.Text)
	default:
		return a.Kind.String()
	}
}

// Command is the ordered action list chosen for one agent this turn.
type Command struct {
	AgentID int
	Actions []Action
}

// String renders the protocol line "<id>; MOVE x y; SHOOT t".
func (c Command) String() string {
	parts := make([]string, 0, len(c.Actions)+1)
	parts = append(parts, fmt.Sprint(c.AgentID))
	for _, a := range c.Actions {
		parts = append(parts, a.String())
	}
	if len(c.Actions) == 0 {
		parts = append(parts, WaitAction().String())
	}
	return strings.Join(parts, "; ")
}

// WithinTurnLimits enforces the per-turn budget: at most one move and one
// offensive action per agent.
func WithinTurnLimits(actions []Action) bool {
	moves, attacks := 0, 0
	for _, a := range actions {
		if a.Kind == Move {
			moves++
		}
		if a.Kind.Offensive() {
			attacks++
		}
	}
	return moves <= 1 && attacks <= 1
}
