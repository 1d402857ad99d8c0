// Package game defines the grid, agent, and action types shared by every
// part of the decision pipeline.
//
// GameState is designed to be cheaply and fully clonable: the simulator
// mutates clones freely while the authoritative snapshot stays read-only for
// the whole decision pass.
package game

import (
	"errors"
	"fmt"
)

// ErrInconsistentSnapshot marks grid/agent data that cannot be decided on.
var ErrInconsistentSnapshot = errors.New("inconsistent snapshot")

// GameState is the complete state needed for simulation and scoring.
// MyPlayer selects the perspective used for Owner/Enemy occupant labels.
type GameState struct {
	Grid     *Grid
	Agents   *Store
	MyPlayer int
	Turn     int

	// ReportedOwned is the owned-agent count announced by the referee this
	// turn, or -1 when unknown.
	ReportedOwned int
}

// NewState places every living agent on the grid as an occupant.
func NewState(grid *Grid, myPlayer int, agents ...Agent) *GameState {
	s := &GameState{
		Grid:          grid,
		Agents:        NewStore(agents...),
		MyPlayer:      myPlayer,
		ReportedOwned: -1,
	}
	for _, a := range s.Agents.All() {
		s.Grid.SetOccupant(a.Position, s.OccupantFor(a))
	}
	return s
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	return &GameState{
		Grid:          s.Grid.Clone(),
		Agents:        s.Agents.Clone(),
		MyPlayer:      s.MyPlayer,
		Turn:          s.Turn,
		ReportedOwned: s.ReportedOwned,
	}
}

func (s *GameState) OccupantFor(a Agent) Occupant {
	if a.Player == s.MyPlayer {
		return Owner(a.ID)
	}
	return Enemy(a.ID)
}

func (s *GameState) IsOwned(a Agent) bool { return a.Player == s.MyPlayer }

func (s *GameState) Owned() []Agent { return s.Agents.Of(s.MyPlayer) }

func (s *GameState) Enemies() []Agent { return s.Agents.Opponents(s.MyPlayer) }

// WithPerspective returns a clone seen from player: occupant labels are
// rewritten so that player's agents are the owners.
func (s *GameState) WithPerspective(player int) *GameState {
	out := s.Clone()
	out.MyPlayer = player
	out.ReportedOwned = -1
	for i := range out.Grid.Tiles {
		out.Grid.Tiles[i].Occupant = None
	}
	for _, a := range out.Agents.All() {
		out.Grid.SetOccupant(a.Position, out.OccupantFor(a))
	}
	return out
}

// Validate checks the grid and agent store agree with each other: every
// living agent stands in bounds on a non-cover tile that names it, no tile
// names an unknown agent, and the referee's owned count matches.
func (s *GameState) Validate() error {
	if s == nil || s.Grid == nil || s.Agents == nil {
		return fmt.Errorf("%w: missing grid or agents", ErrInconsistentSnapshot)
	}
	if s.Grid.Width <= 0 || s.Grid.Height <= 0 || len(s.Grid.Tiles) != s.Grid.Width*s.Grid.Height {
		return fmt.Errorf("%w: grid %dx%d with %d tiles", ErrInconsistentSnapshot, s.Grid.Width, s.Grid.Height, len(s.Grid.Tiles))
	}

	for _, a := range s.Agents.All() {
		t, ok := s.Grid.Tile(a.Position)
		if !ok {
			return fmt.Errorf("%w: agent %d out of bounds at (%s)", ErrInconsistentSnapshot, a.ID, a.Position)
		}
		if t.Kind.IsCover() {
			return fmt.Errorf("%w: agent %d on cover at (%s)", ErrInconsistentSnapshot, a.ID, a.Position)
		}
		if t.Occupant != s.OccupantFor(a) {
			return fmt.Errorf("%w: tile (%s) holds %s, want agent %d", ErrInconsistentSnapshot, a.Position, t.Occupant, a.ID)
		}
	}

	for i, t := range s.Grid.Tiles {
		if t.Occupant.IsNone() {
			continue
		}
		a, ok := s.Agents.Get(t.Occupant.AgentID)
		if !ok || !a.Alive || s.Grid.Index(a.Position) != i {
			return fmt.Errorf("%w: stale occupant %s", ErrInconsistentSnapshot, t.Occupant)
		}
	}

	if s.ReportedOwned >= 0 && s.ReportedOwned != len(s.Owned()) {
		return fmt.Errorf("%w: referee reports %d owned agents, store has %d", ErrInconsistentSnapshot, s.ReportedOwned, len(s.Owned()))
	}
	return nil
}
