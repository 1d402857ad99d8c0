package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/brensch/soak/game"
	"github.com/brensch/soak/rules"
)

// Source delivers turn snapshots and takes the commands chosen for them.
// Next returns io.EOF when the game is over. A snapshot that failed
// validation comes back together with an error wrapping
// game.ErrInconsistentSnapshot.
type Source interface {
	Next(ctx context.Context) (*game.GameState, error)
	Submit(cmds []game.Command) error
}

// Live plays against the referee over a pair of streams.
type Live struct {
	r     *Reader
	out   *bufio.Writer
	setup *Setup
	turn  int
}

func NewLive(in io.Reader, out io.Writer) *Live {
	return &Live{r: NewReader(in), out: bufio.NewWriter(out)}
}

func (l *Live) Setup() *Setup { return l.setup }

func (l *Live) Next(ctx context.Context) (*game.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.setup == nil {
		s, err := l.r.ReadSetup()
		if err != nil {
			return nil, fmt.Errorf("read setup: %w", err)
		}
		l.setup = s
	}
	l.turn++
	return l.r.ReadTurn(l.setup, l.turn)
}

// Submit writes the command lines and flushes them to the referee.
func (l *Live) Submit(cmds []game.Command) error {
	if err := WriteCommands(l.out, cmds); err != nil {
		return err
	}
	return l.out.Flush()
}

// Replay loads a recorded setup and first turn, then referees the game
// itself with the simulator: submitted commands are applied with
// rules.Simulator.Step and the opponents wait.
type Replay struct {
	sim      *rules.Simulator
	log      *slog.Logger
	state    *game.GameState
	maxTurns int
	served   int
	out      io.Writer
}

// NewReplay reads a transcript from r. maxTurns bounds the game length;
// zero or less means a single turn. Commands are echoed to out when it is
// not nil.
func NewReplay(r io.Reader, sim *rules.Simulator, maxTurns int, out io.Writer, log *slog.Logger) (*Replay, error) {
	if log == nil {
		log = slog.Default()
	}
	rd := NewReader(r)
	setup, err := rd.ReadSetup()
	if err != nil {
		return nil, fmt.Errorf("read transcript setup: %w", err)
	}
	state, err := rd.ReadTurn(setup, 1)
	if err != nil {
		return nil, fmt.Errorf("read transcript turn: %w", err)
	}
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &Replay{sim: sim, log: log, state: state, maxTurns: maxTurns, out: out}, nil
}

func (p *Replay) Next(ctx context.Context) (*game.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.served >= p.maxTurns || len(p.state.Owned()) == 0 || len(p.state.Enemies()) == 0 {
		return nil, io.EOF
	}
	p.served++
	next := p.state.Clone()
	next.ReportedOwned = len(next.Owned())
	return next, nil
}

func (p *Replay) Submit(cmds []game.Command) error {
	if p.out != nil {
		if err := WriteCommands(p.out, cmds); err != nil {
			return err
		}
	}
	p.state = p.sim.Step(p.state, cmds)
	p.log.Debug("replay advanced",
		"turn", p.state.Turn,
		"owned", len(p.state.Owned()),
		"enemies", len(p.state.Enemies()),
	)
	return nil
}

// State is the referee's current view.
func (p *Replay) State() *game.GameState { return p.state }
