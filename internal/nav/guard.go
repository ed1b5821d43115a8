package nav

import (
	"context"
	"fmt"
)

// Door describes the structure's single doorway: the wall column at (X,Z),
// opening toward Facing ("north"|"south"|"east"|"west").
type Door struct {
	X      int    `json:"x"`
	Z      int    `json:"z"`
	Facing string `json:"facing"`
}

type Bounds struct {
	X1    int `json:"x1"`
	Z1    int `json:"z1"`
	X2    int `json:"x2"`
	Z2    int `json:"z2"`
	Y     int `json:"y"`
	RoofY int `json:"roofY"`
}

// StructureDescriptor is the persisted record of the one protected building.
// It is the single source of truth for what must never be dug.
type StructureDescriptor struct {
	Bounds       Bounds   `json:"bounds"`
	Door         Door     `json:"door"`
	WallMaterial string   `json:"wallMaterial"`
	Furniture    [][3]int `json:"furniture,omitempty"`
	Enclosed     bool     `json:"enclosed"`
	InteriorArea int      `json:"interiorArea"`
	Cramped      bool     `json:"cramped"`
}

// Normalize orders the bounds so X1<=X2, Z1<=Z2.
func (d *StructureDescriptor) Normalize() {
	if d.Bounds.X1 > d.Bounds.X2 {
		d.Bounds.X1, d.Bounds.X2 = d.Bounds.X2, d.Bounds.X1
	}
	if d.Bounds.Z1 > d.Bounds.Z2 {
		d.Bounds.Z1, d.Bounds.Z2 = d.Bounds.Z2, d.Bounds.Z1
	}
}

// doorFront is the cell one step outside the doorway.
func (d *StructureDescriptor) doorFront() Vec3i {
	p := Vec3i{X: d.Door.X, Y: d.Bounds.Y + 1, Z: d.Door.Z}
	switch d.Door.Facing {
	case "north":
		p.Z--
	case "south":
		p.Z++
	case "west":
		p.X--
	default:
		p.X++
	}
	return p
}

// doorBack is the cell one step inside the doorway.
func (d *StructureDescriptor) doorBack() Vec3i {
	front := d.doorFront()
	door := Vec3i{X: d.Door.X, Y: d.Bounds.Y + 1, Z: d.Door.Z}
	return Vec3i{X: 2*door.X - front.X, Y: door.Y, Z: 2*door.Z - front.Z}
}

// Inside reports whether p lies within the structure footprint, floor to
// roof inclusive.
func (d *StructureDescriptor) Inside(p Vec3i) bool {
	return p.X >= d.Bounds.X1 && p.X <= d.Bounds.X2 &&
		p.Z >= d.Bounds.Z1 && p.Z <= d.Bounds.Z2 &&
		p.Y >= d.Bounds.Y && p.Y <= d.Bounds.RoofY
}

// Interior is Inside minus the wall, floor and roof planes.
func (d *StructureDescriptor) Interior(p Vec3i) bool {
	return p.X > d.Bounds.X1 && p.X < d.Bounds.X2 &&
		p.Z > d.Bounds.Z1 && p.Z < d.Bounds.Z2 &&
		p.Y > d.Bounds.Y && p.Y < d.Bounds.RoofY
}

// doorTransit is the two-state traversal guard. Exit and entry are mutually
// exclusive; re-entrant traversal is refused instead of recursing.
type doorTransit int

const (
	transitIdle doorTransit = iota
	transitExiting
	transitEntering
)

// Guard enforces the structure-protection invariant for one agent. Every
// movement profile and every dig/place primitive in the system runs through
// it; there is no call path that can damage the structure without the
// explicit repair override.
type Guard struct {
	desc     *StructureDescriptor
	override bool
	transit  doorTransit
}

func NewGuard(desc *StructureDescriptor) *Guard {
	if desc != nil {
		desc.Normalize()
	}
	return &Guard{desc: desc}
}

func (g *Guard) Descriptor() *StructureDescriptor {
	if g == nil {
		return nil
	}
	return g.desc
}

// SetDescriptor swaps the tracked structure, e.g. after a repair collaborator
// expanded the bounds. Profiles pick the change up immediately because the
// predicate closes over the guard, not the descriptor.
func (g *Guard) SetDescriptor(desc *StructureDescriptor) {
	if desc != nil {
		desc.Normalize()
	}
	g.desc = desc
}

// Protected reports whether p is a cell of the structure shell: wall plane,
// roof plane or floor plane, excluding the door column (door cell plus two
// above it).
func (g *Guard) Protected(p Vec3i) bool {
	if g == nil || g.desc == nil {
		return false
	}
	d := g.desc
	if !d.Inside(p) {
		return false
	}
	if p.X == d.Door.X && p.Z == d.Door.Z {
		doorY := d.Bounds.Y + 1
		if p.Y >= doorY && p.Y <= doorY+2 {
			return false
		}
	}
	onWall := p.X == d.Bounds.X1 || p.X == d.Bounds.X2 ||
		p.Z == d.Bounds.Z1 || p.Z == d.Bounds.Z2
	onPlane := p.Y == d.Bounds.Y || p.Y == d.Bounds.RoofY
	return onWall || onPlane
}

// ApplyTo composes the protected predicate into a movement profile. Any
// previously composed predicate is kept; protection only ever tightens.
func (g *Guard) ApplyTo(p *Profile) {
	prev := p.NoBreak
	p.NoBreak = func(c Vec3i) bool {
		if prev != nil && prev(c) {
			return true
		}
		return g.Protected(c)
	}
}

// WithOverride runs fn with the dig interceptor disarmed. Only the explicit
// repair/expand collaborator may use this; the flag is scoped to the call.
func (g *Guard) WithOverride(fn func() error) error {
	g.override = true
	defer func() { g.override = false }()
	return fn()
}

// begin/end transit implement the mutually exclusive traversal guard.
func (g *Guard) beginTransit(t doorTransit) bool {
	if g.transit != transitIdle {
		return false
	}
	g.transit = t
	return true
}

func (g *Guard) endTransit() { g.transit = transitIdle }

// selfBlockers are common building materials the place interceptor refuses
// inside the structure or in front of the door.
var selfBlockers = map[string]struct{}{
	"cobblestone": {}, "stone": {}, "dirt": {}, "netherrack": {},
	"oak_planks": {}, "spruce_planks": {}, "birch_planks": {},
	"sandstone": {}, "deepslate": {}, "cobbled_deepslate": {},
}

// guardedActuator intercepts dig and place. All other calls pass through.
// Equip is observed only to know what a later Place would put down.
type guardedActuator struct {
	Actuator
	g        *Guard
	equipped string
}

// WrapActuator returns an actuator whose dig primitive refuses protected
// cells and whose place primitive refuses self-blocking placements. The
// wrapper is built once per agent; nothing is monkey-patched.
func (g *Guard) WrapActuator(a Actuator) Actuator {
	return &guardedActuator{Actuator: a, g: g}
}

func (ga *guardedActuator) Dig(ctx context.Context, block Vec3i) error {
	if ga.g.Protected(block) && !ga.g.override {
		return fmt.Errorf("%s: dig at %v", CauseProtected, block.ToArray())
	}
	return ga.Actuator.Dig(ctx, block)
}

func (ga *guardedActuator) Equip(ctx context.Context, item string) error {
	if err := ga.Actuator.Equip(ctx, item); err != nil {
		return err
	}
	ga.equipped = item
	return nil
}

func (ga *guardedActuator) Place(ctx context.Context, ref Vec3i, face Vec3i) error {
	d := ga.g.desc
	if d != nil && !ga.g.override {
		if _, blocker := selfBlockers[ga.equipped]; blocker {
			target := ref.Add(face)
			if d.Interior(target) || target == d.doorFront() {
				return fmt.Errorf("%s: place at %v", CauseProtected, target.ToArray())
			}
		}
	}
	return ga.Actuator.Place(ctx, ref, face)
}
