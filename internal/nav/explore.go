package nav

import (
	"math"

	"pathcraft.ai/internal/nav/logic/floodfill"
)

// ExploreResult is a chosen milestone plus the walkable path to it.
type ExploreResult struct {
	Point    Vec3i
	Distance float64
	Path     []Vec3i
	Water    bool
}

type exploreOpts struct {
	mode      floodfill.Mode
	reference Vec3i
	heading   [2]float64
	radius    int
}

// ExploreFarthest walks the reachable set from the agent's feet and returns
// the farthest standable point, or nil when nothing is at least five blocks
// out.
func (c *Context) ExploreFarthest(radius int) *ExploreResult {
	return c.explore(exploreOpts{mode: floodfill.ModeFarthest, radius: radius})
}

// ExploreAwayFrom maximizes distance from ref. Used by repeated retreats so
// each call keeps gaining ground from the threat instead of round-tripping.
func (c *Context) ExploreAwayFrom(ref Vec3i, radius int) *ExploreResult {
	return c.explore(exploreOpts{mode: floodfill.ModeAwayFrom, reference: ref, radius: radius})
}

// ExploreToward maximizes progress along the heading toward target.
func (c *Context) ExploreToward(target Vec3i, radius int) *ExploreResult {
	feet := c.feet()
	hx := float64(target.X - feet.X)
	hz := float64(target.Z - feet.Z)
	if n := math.Sqrt(hx*hx + hz*hz); n > 0 {
		hx /= n
		hz /= n
	}
	return c.explore(exploreOpts{mode: floodfill.ModeHeading, heading: [2]float64{hx, hz}, radius: radius})
}

func (c *Context) explore(o exploreOpts) *ExploreResult {
	feet := c.feet()
	radius := o.radius
	if radius <= 0 {
		radius = c.Params.ExploreRadius
	}
	res, ok := floodfill.Explore(floodfill.Params{
		Origin:    floodfill.Pos{X: feet.X, Y: feet.Y, Z: feet.Z},
		MaxRadius: radius,
		MaxNodes:  c.Params.ExploreNodes,
		MaxDrop:   c.Params.MaxDrop,
		Mode:      o.mode,
		Reference: floodfill.Pos{X: o.reference.X, Y: o.reference.Y, Z: o.reference.Z},
		Heading:   o.heading,
	}, c.classifyCell)
	if !ok {
		return nil
	}
	out := &ExploreResult{
		Point:    Vec3i{X: res.Point.X, Y: res.Point.Y, Z: res.Point.Z},
		Distance: res.Distance,
		Water:    res.Water,
		Path:     make([]Vec3i, 0, len(res.Path)),
	}
	for _, p := range res.Path {
		out.Path = append(out.Path, Vec3i{X: p.X, Y: p.Y, Z: p.Z})
	}
	return out
}

// classifyCell: standable needs solid ground one below and two clear cells;
// swimmable is water with a clear cell above. Water is always explorable
// regardless of the profile's drop-height limit, since surface swimming can
// cross it.
func (c *Context) classifyCell(p floodfill.Pos) floodfill.CellKind {
	pos := Vec3i{X: p.X, Y: p.Y, Z: p.Z}
	cell := c.at(pos)
	above := c.at(pos.Offset(0, 1, 0))
	if cell.Water() && above.Passable() {
		return floodfill.CellSwim
	}
	below := c.at(pos.Offset(0, -1, 0))
	if below.Solid() && cell.Passable() && above.Passable() {
		return floodfill.CellStand
	}
	return floodfill.CellBlocked
}
