package nav

import "context"

type Item struct {
	Name  string
	Count int
}

// World is the read side of the collaborator. Every method returns the
// collaborator's current view; callers must re-query after any suspension
// point instead of holding results across awaits.
type World interface {
	BlockAt(p Vec3i) BlockInfo
	// FindNearest returns positions within radius of the agent whose block
	// satisfies pred, nearest first.
	FindNearest(pred func(Vec3i, BlockInfo) bool, radius, limit int) []Vec3i
	Position() Vec3
	Inventory() []Item
}

// Actuator is the write side: movement, digging, placing. Move runs the
// external grid search under the given profile and blocks until the goal is
// met, the context is cancelled, or the search gives up. All awaitable calls
// honor ctx.
type Actuator interface {
	Move(ctx context.Context, g Goal, p *Profile) error
	Dig(ctx context.Context, block Vec3i) error
	// Place puts the equipped block against ref on the given face.
	Place(ctx context.Context, ref Vec3i, face Vec3i) error
	Equip(ctx context.Context, item string) error
	Activate(ctx context.Context, block Vec3i) error
	LookAt(p Vec3)
	Jump(on bool)
	Forward(on bool)
	Sprint(on bool)
	// Stop clears all movement state (forward/jump/sprint and any in-flight
	// grid search). Must be safe to call at any time.
	Stop()
}
