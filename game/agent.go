package game

import "sort"

// EliminationThreshold is the wetness at which an agent leaves the game.
// Every agent still in a Store is strictly below it.
const EliminationThreshold = 100

// Profile is the static part of an agent, broadcast once at game start.
type Profile struct {
	ID             int
	Player         int
	ShootCooldown  int
	OptimalRange   int
	SoakingPower   int
	MaxSplashBombs int
}

// Agent fuses the profile with the combat state refreshed every turn.
type Agent struct {
	Profile

	Position    Position
	Cooldown    int
	SplashBombs int
	Wetness     int
	Alive       bool

	// Hunkered is set by a HUNKER_DOWN action and lasts for the rest of the
	// simulated turn.
	Hunkered bool
}

// EffectiveRange is the hard shooting cutoff; damage halves past OptimalRange.
func (a Agent) EffectiveRange() int { return a.OptimalRange * 2 }

func (a Agent) CanShoot() bool { return a.Alive && a.Cooldown == 0 }

// Store holds agents keyed by ID. Values are copied in and out so a cloned
// store never shares records with its source.
type Store struct {
	agents map[int]Agent
}

func NewStore(agents ...Agent) *Store {
	s := &Store{agents: make(map[int]Agent, len(agents))}
	for _, a := range agents {
		s.Put(a)
	}
	return s
}

func (s *Store) Clone() *Store {
	if s == nil {
		return nil
	}
	out := &Store{agents: make(map[int]Agent, len(s.agents))}
	for id, a := range s.agents {
		out.agents[id] = a
	}
	return out
}

func (s *Store) Len() int { return len(s.agents) }

func (s *Store) Get(id int) (Agent, bool) {
	a, ok := s.agents[id]
	return a, ok
}

func (s *Store) Put(a Agent) {
	if s.agents == nil {
		s.agents = make(map[int]Agent)
	}
	s.agents[a.ID] = a
}

func (s *Store) Remove(id int) {
	delete(s.agents, id)
}

// IDs returns every agent ID in ascending order. All iteration goes through
// it so map order never leaks into results.
func (s *Store) IDs() []int {
	ids := make([]int, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// All returns living agents sorted by ID.
func (s *Store) All() []Agent {
	out := make([]Agent, 0, len(s.agents))
	for _, id := range s.IDs() {
		if a := s.agents[id]; a.Alive {
			out = append(out, a)
		}
	}
	return out
}

// Of returns the living agents that belong to player, sorted by ID.
func (s *Store) Of(player int) []Agent {
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.All() {
		if a.Player == player {
			out = append(out, a)
		}
	}
	return out
}

// Opponents returns the living agents not belonging to player, sorted by ID.
func (s *Store) Opponents(player int) []Agent {
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.All() {
		if a.Player != player {
			out = append(out, a)
		}
	}
	return out
}
