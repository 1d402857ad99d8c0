// Package protocol speaks the referee's line protocol: a setup block once
// per game, an agent snapshot every turn, and one command line per owned
// agent in reply.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brensch/soak/game"
)

// Setup is the header sent once before the first turn.
type Setup struct {
	MyPlayer int
	Profiles map[int]game.Profile
	// Grid holds tile kinds only; occupants are filled in per turn.
	Grid *game.Grid
}

// Reader pulls protocol lines from an input stream.
type Reader struct {
	in      *bufio.Reader
	line    int
	pending []string
}

func NewReader(r io.Reader) *Reader {
	return &Reader{in: bufio.NewReader(r)}
}

// next returns the next non-blank line split into fields.
func (r *Reader) next() ([]string, error) {
	if r.pending != nil {
		fields := r.pending
		r.pending = nil
		return fields, nil
	}
	for {
		raw, err := r.in.ReadString('\n')
		if raw == "" && err != nil {
			return nil, err
		}
		r.line++
		if fields := strings.Fields(raw); len(fields) > 0 {
			return fields, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// peek returns the next non-blank line without consuming it.
func (r *Reader) peek() ([]string, error) {
	fields, err := r.next()
	if err != nil {
		return nil, err
	}
	r.pending = fields
	return fields, nil
}

func (r *Reader) readInts(want int) ([]int, error) {
	fields, err := r.next()
	if err != nil {
		return nil, err
	}
	if len(fields) < want {
		return nil, fmt.Errorf("line %d: %d fields, want %d", r.line, len(fields), want)
	}
	out := make([]int, want)
	for i := range out {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, fmt.Errorf("line %d field %d: %w", r.line, i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (r *Reader) readInt() (int, error) {
	v, err := r.readInts(1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// ReadSetup parses the player ID, the agent profiles, and the map.
func (r *Reader) ReadSetup() (*Setup, error) {
	me, err := r.readInt()
	if err != nil {
		return nil, fmt.Errorf("read player id: %w", err)
	}
	count, err := r.readInt()
	if err != nil {
		return nil, fmt.Errorf("read profile count: %w", err)
	}

	s := &Setup{MyPlayer: me, Profiles: make(map[int]game.Profile, count)}
	for i := 0; i < count; i++ {
		v, err := r.readInts(6)
		if err != nil {
			return nil, fmt.Errorf("read profile %d: %w", i, err)
		}
		s.Profiles[v[0]] = game.Profile{
			ID:             v[0],
			Player:         v[1],
			ShootCooldown:  v[2],
			OptimalRange:   v[3],
			SoakingPower:   v[4],
			MaxSplashBombs: v[5],
		}
	}

	dims, err := r.readInts(2)
	if err != nil {
		return nil, fmt.Errorf("read map size: %w", err)
	}
	if dims[0] <= 0 || dims[1] <= 0 {
		return nil, fmt.Errorf("map size %dx%d", dims[0], dims[1])
	}
	s.Grid = game.NewGrid(dims[0], dims[1])
	for y := 0; y < dims[1]; y++ {
		v, err := r.readInts(3 * dims[0])
		if err != nil {
			return nil, fmt.Errorf("read map row %d: %w", y, err)
		}
		for i := 0; i < len(v); i += 3 {
			p := game.Position{X: v[i], Y: v[i+1]}
			kind := game.TileKind(v[i+2])
			if v[i+2] < 0 || kind > game.HighCover || !s.Grid.SetKind(p, kind) {
				return nil, fmt.Errorf("map row %d: bad tile %d %d %d", y, v[i], v[i+1], v[i+2])
			}
		}
	}
	return s, nil
}

// ReadTurn parses one turn snapshot against setup. Bad lines do not stop
// the read: the stream stays in step, the returned state holds every agent
// that parsed, and the error wraps game.ErrInconsistentSnapshot. Only a
// stream that ends mid-turn is returned without a state.
//
// When the agent count itself is unreadable the agent lines are taken by
// shape instead: every line with at least six fields up to the next short
// line, which is the owned count.
func (r *Reader) ReadTurn(setup *Setup, turn int) (*game.GameState, error) {
	var problems []error

	count, err := r.readInt()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read agent count: %w", err)
	}
	if err != nil {
		problems = append(problems, fmt.Errorf("read agent count: %w", err))
		count = -1
	}

	var agents []game.Agent
	for i := 0; count < 0 || i < count; i++ {
		if count < 0 {
			fields, err := r.peek()
			if err != nil {
				return nil, fmt.Errorf("read agent %d: %w", i, io.ErrUnexpectedEOF)
			}
			if len(fields) < 6 {
				break
			}
		}
		v, err := r.readInts(6)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("read agent %d: %w", i, io.ErrUnexpectedEOF)
			}
			problems = append(problems, err)
			continue
		}
		profile, ok := setup.Profiles[v[0]]
		if !ok {
			problems = append(problems, fmt.Errorf("agent %d has no profile", v[0]))
			continue
		}
		agents = append(agents, game.Agent{
			Profile:     profile,
			Position:    game.Position{X: v[1], Y: v[2]},
			Cooldown:    v[3],
			SplashBombs: v[4],
			Wetness:     v[5],
			Alive:       true,
		})
	}

	owned, err := r.readInt()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read owned count: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		problems = append(problems, fmt.Errorf("read owned count: %w", err))
		owned = -1
	}

	state := game.NewState(setup.Grid.Clone(), setup.MyPlayer, agents...)
	state.Turn = turn
	state.ReportedOwned = owned
	if err := state.Validate(); err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		return state, fmt.Errorf("turn %d: %w: %w", turn, game.ErrInconsistentSnapshot, errors.Join(problems...))
	}
	return state, nil
}

// WriteCommands writes one line per command.
func WriteCommands(w io.Writer, cmds []game.Command) error {
	for _, c := range cmds {
		if _, err := fmt.Fprintln(w, c.String()); err != nil {
			return fmt.Errorf("write command for agent %d: %w", c.AgentID, err)
		}
	}
	return nil
}
