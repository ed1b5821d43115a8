// Package navtest is an in-memory world and actuator for exercising the
// navigation core without a live world server. The actuator teleports on
// Move by default; tests script failure modes through MoveFn.
package navtest

import (
	"context"
	"sync"
	"time"

	"pathcraft.ai/internal/nav"
)

// World is a mutable voxel map. Unset cells are sky-lit air.
type World struct {
	mu     sync.Mutex
	blocks map[nav.Vec3i]nav.BlockInfo
	pos    nav.Vec3
	inv    []nav.Item
}

func NewWorld() *World {
	return &World{blocks: map[nav.Vec3i]nav.BlockInfo{}}
}

func (w *World) Set(p nav.Vec3i, b nav.BlockInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocks[p] = b
}

// SetSolid places a diggable solid block with zero skylight (buried).
func (w *World) SetSolid(p nav.Vec3i, name string) {
	w.Set(p, nav.BlockInfo{Name: name, Diggable: true})
}

// SetBedrock places an undiggable solid block.
func (w *World) SetBedrock(p nav.Vec3i) {
	w.Set(p, nav.BlockInfo{Name: "bedrock"})
}

func (w *World) SetWater(p nav.Vec3i) {
	w.Set(p, nav.BlockInfo{Name: "water", Liquid: true, Source: true, Skylight: 15})
}

func (w *World) SetLava(p nav.Vec3i) {
	w.Set(p, nav.BlockInfo{Name: "lava", Liquid: true, Source: true})
}

// FillBox fills the inclusive box [a,b] with a solid block.
func (w *World) FillBox(a, b nav.Vec3i, name string) {
	for y := min(a.Y, b.Y); y <= max(a.Y, b.Y); y++ {
		for z := min(a.Z, b.Z); z <= max(a.Z, b.Z); z++ {
			for x := min(a.X, b.X); x <= max(a.X, b.X); x++ {
				w.SetSolid(nav.Vec3i{X: x, Y: y, Z: z}, name)
			}
		}
	}
}

// FlatGround lays a plane of grass at the given y across [x1,z1]..[x2,z2].
func (w *World) FlatGround(x1, z1, x2, z2, y int) {
	for z := z1; z <= z2; z++ {
		for x := x1; x <= x2; x++ {
			w.Set(nav.Vec3i{X: x, Y: y, Z: z}, nav.BlockInfo{Name: "grass_block", Diggable: true, Skylight: 15})
		}
	}
}

func (w *World) SetPosition(p nav.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pos = p
}

func (w *World) SetInventory(items ...nav.Item) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inv = items
}

func (w *World) BlockAt(p nav.Vec3i) nav.BlockInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.blocks[p]; ok {
		return b
	}
	return nav.BlockInfo{Name: "air", Skylight: 15}
}

func (w *World) FindNearest(pred func(nav.Vec3i, nav.BlockInfo) bool, radius, limit int) []nav.Vec3i {
	feet := w.Position().Floor()
	var out []nav.Vec3i
	for r := 0; r <= radius && len(out) < limit; r++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				for dx := -r; dx <= r; dx++ {
					if absInt(dx) != r && absInt(dy) != r && absInt(dz) != r {
						continue
					}
					p := feet.Offset(dx, dy, dz)
					if pred(p, w.BlockAt(p)) {
						out = append(out, p)
						if len(out) >= limit {
							return out
						}
					}
				}
			}
		}
	}
	return out
}

func (w *World) Position() nav.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos
}

func (w *World) Inventory() []nav.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]nav.Item, len(w.inv))
	copy(out, w.inv)
	return out
}

func (w *World) take(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.inv {
		if w.inv[i].Name == name && w.inv[i].Count > 0 {
			w.inv[i].Count--
			return true
		}
	}
	return false
}

// Actuator teleports on Move and mutates the fake world on Dig/Place.
type Actuator struct {
	W *World

	// MoveFn overrides the default teleport when set.
	MoveFn func(ctx context.Context, g nav.Goal, p *nav.Profile) error
	// MoveDelay is slept (ctx-aware) before the teleport lands.
	MoveDelay time.Duration

	mu        sync.Mutex
	equipped  string
	Digs      []nav.Vec3i
	Places    []nav.Vec3i
	Activated []nav.Vec3i
	Looks     []nav.Vec3
	Stopped   int
}

func NewActuator(w *World) *Actuator { return &Actuator{W: w} }

func (a *Actuator) Move(ctx context.Context, g nav.Goal, p *nav.Profile) error {
	if a.MoveFn != nil {
		return a.MoveFn(ctx, g, p)
	}
	if a.MoveDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.MoveDelay):
		}
	}
	switch goal := g.(type) {
	case nav.GoalNear:
		a.W.SetPosition(nav.CenterOf(goal.Pos))
	case nav.GoalXZ:
		cur := a.W.Position()
		a.W.SetPosition(nav.Vec3{X: float64(goal.X) + 0.5, Y: cur.Y, Z: float64(goal.Z) + 0.5})
	}
	return nil
}

func (a *Actuator) Dig(ctx context.Context, block nav.Vec3i) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := a.W.BlockAt(block)
	if !b.Diggable {
		return errNotDiggable
	}
	a.W.Set(block, nav.BlockInfo{Name: "air", Skylight: b.Skylight})
	a.mu.Lock()
	a.Digs = append(a.Digs, block)
	a.mu.Unlock()
	return nil
}

func (a *Actuator) Place(ctx context.Context, ref nav.Vec3i, face nav.Vec3i) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	item := a.equipped
	a.mu.Unlock()
	if item == "" || !a.W.take(item) {
		return errNoItem
	}
	target := ref.Add(face)
	a.W.Set(target, nav.BlockInfo{Name: item, Diggable: true})
	a.mu.Lock()
	a.Places = append(a.Places, target)
	a.mu.Unlock()
	// Standing where the block lands means the agent ends on top of it.
	pos := a.W.Position()
	if pos.Floor() == target {
		a.W.SetPosition(nav.Vec3{X: pos.X, Y: float64(target.Y + 1), Z: pos.Z})
	}
	return nil
}

func (a *Actuator) Equip(ctx context.Context, item string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	a.equipped = item
	a.mu.Unlock()
	return nil
}

func (a *Actuator) Activate(ctx context.Context, block nav.Vec3i) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	a.Activated = append(a.Activated, block)
	a.mu.Unlock()
	return nil
}

func (a *Actuator) LookAt(p nav.Vec3) {
	a.mu.Lock()
	a.Looks = append(a.Looks, p)
	a.mu.Unlock()
}

func (a *Actuator) Jump(bool)    {}
func (a *Actuator) Forward(bool) {}
func (a *Actuator) Sprint(bool)  {}

func (a *Actuator) Stop() {
	a.mu.Lock()
	a.Stopped++
	a.mu.Unlock()
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const (
	errNotDiggable = fakeErr("not diggable")
	errNoItem      = fakeErr("nothing equipped")
)

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
