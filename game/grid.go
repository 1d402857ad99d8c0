package game

import (
	"fmt"
	"strings"
)

type TileKind uint8

const (
	Empty     TileKind = 0
	LowCover  TileKind = 1
	HighCover TileKind = 2
)

// CoverValue is the fraction of incoming shot damage negated when the tile
// shields an agent. It also marks the tile as an obstacle.
func (k TileKind) CoverValue() float64 {
	switch k {
	case LowCover:
		return 0.5
	case HighCover:
		return 0.75
	default:
		return 0
	}
}

func (k TileKind) IsCover() bool { return k != Empty }

func (k TileKind) String() string {
	switch k {
	case LowCover:
		return "low"
	case HighCover:
		return "high"
	default:
		return "empty"
	}
}

type OccupantKind uint8

const (
	NoOccupant OccupantKind = iota
	OwnerOccupant
	EnemyOccupant
)

// Occupant names the agent standing on a tile, labelled from the perspective
// of the state's own player.
type Occupant struct {
	Kind    OccupantKind
	AgentID int
}

var None = Occupant{}

func Owner(id int) Occupant { return Occupant{Kind: OwnerOccupant, AgentID: id} }
func Enemy(id int) Occupant { return Occupant{Kind: EnemyOccupant, AgentID: id} }

func (o Occupant) IsNone() bool { return o.Kind == NoOccupant }

func (o Occupant) String() string {
	switch o.Kind {
	case OwnerOccupant:
		return fmt.Sprintf("owner(%d)", o.AgentID)
	case EnemyOccupant:
		return fmt.Sprintf("enemy(%d)", o.AgentID)
	default:
		return "none"
	}
}

type Tile struct {
	Kind     TileKind
	Occupant Occupant
}

// Walkable is true for an empty tile nobody stands on.
func (t Tile) Walkable() bool {
	return t.Kind == Empty && t.Occupant.IsNone()
}

// Grid is a row-major tile map. Tiles are stored by value so Clone yields a
// fully independent copy.
type Grid struct {
	Width  int
	Height int
	Tiles  []Tile
}

func NewGrid(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Grid{Width: width, Height: height, Tiles: make([]Tile, width*height)}
}

// ParseGrid builds a grid from one string per row, one digit per tile
// (0 empty, 1 low cover, 2 high cover). Unknown characters become Empty.
func ParseGrid(rows ...string) *Grid {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	g := NewGrid(width, len(rows))
	for y, r := range rows {
		for x := 0; x < len(r); x++ {
			switch r[x] {
			case '1':
				g.Tiles[y*width+x].Kind = LowCover
			case '2':
				g.Tiles[y*width+x].Kind = HighCover
			}
		}
	}
	return g
}

func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	out := &Grid{Width: g.Width, Height: g.Height}
	if len(g.Tiles) > 0 {
		out.Tiles = make([]Tile, len(g.Tiles))
		copy(out.Tiles, g.Tiles)
	}
	return out
}

func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// Index returns the row-major offset of p; callers check InBounds first.
func (g *Grid) Index(p Position) int { return p.Y*g.Width + p.X }

func (g *Grid) Tile(p Position) (Tile, bool) {
	if !g.InBounds(p) {
		return Tile{}, false
	}
	return g.Tiles[g.Index(p)], true
}

// SetKind changes the terrain of a tile. Used when loading maps.
func (g *Grid) SetKind(p Position, k TileKind) bool {
	if !g.InBounds(p) {
		return false
	}
	g.Tiles[g.Index(p)].Kind = k
	return true
}

// SetOccupant is the only write path for occupancy.
func (g *Grid) SetOccupant(p Position, occ Occupant) bool {
	if !g.InBounds(p) {
		return false
	}
	g.Tiles[g.Index(p)].Occupant = occ
	return true
}

func (g *Grid) IsWalkable(p Position) bool {
	t, ok := g.Tile(p)
	return ok && t.Walkable()
}

func (g *Grid) IsCover(p Position) bool {
	t, ok := g.Tile(p)
	return ok && t.Kind.IsCover()
}

// Neighbors returns the in-bounds neighbours of p in the fixed order
// +x, -x, +y, -y, followed by the diagonals when requested.
func (g *Grid) Neighbors(p Position, includeDiagonal bool) []Position {
	out := make([]Position, 0, 8)
	for _, d := range Directions {
		if n := p.add(d); g.InBounds(n) {
			out = append(out, n)
		}
	}
	if includeDiagonal {
		for _, d := range diagonals {
			if n := p.add(d); g.InBounds(n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// Positions enumerates every tile coordinate row-major.
func (g *Grid) Positions() []Position {
	out := make([]Position, 0, len(g.Tiles))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			out = append(out, Position{X: x, Y: y})
		}
	}
	return out
}

// String renders the terrain, one row per line: '.', 'l', 'H' for tiles,
// 'o' and 'e' for owned and enemy occupants.
func (g *Grid) String() string {
	var b strings.Builder
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			t := g.Tiles[y*g.Width+x]
			switch {
			case t.Occupant.Kind == OwnerOccupant:
				b.WriteByte('o')
			case t.Occupant.Kind == EnemyOccupant:
				b.WriteByte('e')
			case t.Kind == LowCover:
				b.WriteByte('l')
			case t.Kind == HighCover:
				b.WriteByte('H')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
