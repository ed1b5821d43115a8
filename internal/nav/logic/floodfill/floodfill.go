// Package floodfill is the pure connectivity explorer: a bounded flood-fill
// over standable and swimmable voxels. It knows nothing about the world
// collaborator; cell classification is injected, which keeps it trivially
// testable and deterministic.
package floodfill

import "math"

type Pos struct {
	X int
	Y int
	Z int
}

// CellKind classifies one candidate cell during expansion.
type CellKind int

const (
	// CellBlocked cells end expansion.
	CellBlocked CellKind = iota
	// CellStand cells have solid ground below and two clear cells.
	CellStand
	// CellSwim cells are surface water with a clear cell above.
	CellSwim
)

// Mode selects the scoring policy.
type Mode int

const (
	// ModeFarthest keeps the candidate with the greatest path distance.
	ModeFarthest Mode = iota
	// ModeAwayFrom maximizes straight-line distance from Reference.
	ModeAwayFrom
	// ModeHeading maximizes XZ displacement projected onto Heading.
	ModeHeading
)

// Minimum improvements a candidate must clear before the explorer commits.
// Anything smaller is a negligible escape not worth moving for.
const (
	minFarthestGain = 5.0
	minAwayGain     = 2.0
	minHeadingGain  = 5.0
)

type Params struct {
	Origin    Pos
	MaxRadius int // Chebyshev cap from origin
	MaxNodes  int // hard budget; bounds worst-case runtime
	MaxDrop   int // deepest downward step per lateral move; <=0 means 1
	Mode      Mode
	Reference Pos        // ModeAwayFrom only
	Heading   [2]float64 // ModeHeading only, XZ unit-ish vector
}

type Result struct {
	Point    Pos
	Distance float64 // accumulated path cost from origin
	Path     []Pos   // origin..point, reconstructed from parent pointers
	Water    bool    // point is a swim cell
	Visited  int     // nodes expanded, for budget accounting
}

type node struct {
	pos    Pos
	parent int
	cost   float64
	water  bool
}

// Fixed expansion order keeps exploration deterministic.
var lateral = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Explore flood-fills from p.Origin and returns the best candidate under the
// scoring mode, or ok=false when nothing clears the minimum-improvement
// threshold. It visits at most p.MaxNodes cells, so it always terminates.
func Explore(p Params, classify func(Pos) CellKind) (Result, bool) {
	if p.MaxNodes <= 0 {
		p.MaxNodes = 4096
	}
	if p.MaxRadius <= 0 {
		p.MaxRadius = 32
	}
	drop := p.MaxDrop
	if drop <= 0 {
		drop = 1
	}

	nodes := make([]node, 0, 256)
	nodes = append(nodes, node{pos: p.Origin, parent: -1})
	seen := map[[2]int]struct{}{{p.Origin.X, p.Origin.Z}: {}}

	bestIdx := -1
	bestWaterIdx := -1
	bestScore := math.Inf(-1)
	bestWaterScore := math.Inf(-1)

	score := func(n node) float64 {
		switch p.Mode {
		case ModeAwayFrom:
			dx := float64(n.pos.X - p.Reference.X)
			dz := float64(n.pos.Z - p.Reference.Z)
			return math.Sqrt(dx*dx + dz*dz)
		case ModeHeading:
			dx := float64(n.pos.X - p.Origin.X)
			dz := float64(n.pos.Z - p.Origin.Z)
			return dx*p.Heading[0] + dz*p.Heading[1]
		default:
			return n.cost
		}
	}

	for head := 0; head < len(nodes) && head < p.MaxNodes; head++ {
		cur := nodes[head]
		if head > 0 {
			s := score(cur)
			if cur.water {
				if s > bestWaterScore {
					bestWaterScore = s
					bestWaterIdx = head
				}
			} else if s > bestScore {
				bestScore = s
				bestIdx = head
			}
		}

		for _, d := range lateral {
			if len(nodes) >= p.MaxNodes {
				break
			}
			nx, nz := cur.pos.X+d[0], cur.pos.Z+d[1]
			if chebyshev(nx-p.Origin.X, nz-p.Origin.Z) > p.MaxRadius {
				continue
			}
			if _, ok := seen[[2]int{nx, nz}]; ok {
				continue
			}
			// A lateral move may climb one block or fall up to MaxDrop,
			// highest first so the fill climbs ledges before dropping
			// into holes.
			for dy := 1; dy >= -drop; dy-- {
				cand := Pos{X: nx, Y: cur.pos.Y + dy, Z: nz}
				kind := classify(cand)
				if kind == CellBlocked {
					continue
				}
				step := 1.0 + math.Abs(float64(dy))
				if kind == CellSwim {
					step = 3.0
				}
				seen[[2]int{nx, nz}] = struct{}{}
				nodes = append(nodes, node{
					pos:    cand,
					parent: head,
					cost:   cur.cost + step,
					water:  kind == CellSwim,
				})
				break
			}
		}
	}

	// Water candidates only win when no land candidate exists.
	chosen := bestIdx
	chosenScore := bestScore
	water := false
	if chosen < 0 {
		chosen = bestWaterIdx
		chosenScore = bestWaterScore
		water = true
	}
	if chosen < 0 {
		return Result{Visited: len(nodes)}, false
	}

	var need float64
	switch p.Mode {
	case ModeAwayFrom:
		dx := float64(p.Origin.X - p.Reference.X)
		dz := float64(p.Origin.Z - p.Reference.Z)
		need = math.Sqrt(dx*dx+dz*dz) + minAwayGain
	case ModeHeading:
		need = minHeadingGain
	default:
		need = minFarthestGain
	}
	if chosenScore < need {
		return Result{Visited: len(nodes)}, false
	}

	best := nodes[chosen]
	path := make([]Pos, 0, 32)
	for i := chosen; i >= 0; i = nodes[i].parent {
		path = append(path, nodes[i].pos)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return Result{
		Point:    best.pos,
		Distance: best.cost,
		Path:     path,
		Water:    water,
		Visited:  len(nodes),
	}, true
}

func chebyshev(dx, dz int) int {
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}
