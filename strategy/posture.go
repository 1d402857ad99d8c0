package strategy

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/brensch/soak/game"
	"github.com/brensch/soak/territory"
)

// PostureEnv is the variable set a posture expression can read.
type PostureEnv struct {
	OwnScore     int
	EnemyScore   int
	OwnAgents    int
	EnemyAgents  int
	Turn         int
	OwnWetness   int
	EnemyWetness int
}

// Posture is a compiled boolean rule deciding whether the side plays
// aggressively this turn.
type Posture struct {
	src     string
	program *vm.Program
}

func CompilePosture(src string) (*Posture, error) {
	prog, err := expr.Compile(src, expr.Env(PostureEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile posture %q: %w", src, err)
	}
	return &Posture{src: src, program: prog}, nil
}

func (p *Posture) String() string { return p.src }

// NewPostureEnv summarizes the live state for the posture rule.
func NewPostureEnv(state *game.GameState) PostureEnv {
	own, enemy := territory.Score(state)
	env := PostureEnv{OwnScore: own, EnemyScore: enemy, Turn: state.Turn}
	for _, a := range state.Owned() {
		env.OwnAgents++
		env.OwnWetness += a.Wetness
	}
	for _, a := range state.Enemies() {
		env.EnemyAgents++
		env.EnemyWetness += a.Wetness
	}
	return env
}

func (p *Posture) Aggressive(env PostureEnv) (bool, error) {
	out, err := vm.Run(p.program, env)
	if err != nil {
		return false, fmt.Errorf("run posture %q: %w", p.src, err)
	}
	match, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("posture %q returned %T", p.src, out)
	}
	return match, nil
}
