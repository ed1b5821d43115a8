package nav

// Goal is an immutable target handed to the grid search. Goals hold no
// movement state.
type Goal interface {
	// Done reports whether standing at p satisfies the goal.
	Done(p Vec3i) bool
}

// GoalNear is satisfied within Radius blocks of a point.
type GoalNear struct {
	Pos    Vec3i
	Radius float64
}

func (g GoalNear) Done(p Vec3i) bool {
	r := g.Radius
	if r < 1 {
		r = 1
	}
	return Dist3(CenterOf(p), CenterOf(g.Pos)) <= r
}

// GoalXZ ignores height entirely.
type GoalXZ struct {
	X int
	Z int
}

func (g GoalXZ) Done(p Vec3i) bool { return p.X == g.X && p.Z == g.Z }

// GoalFollow tracks a moving entity by reference. The actuator resolves the
// entity position each step.
type GoalFollow struct {
	EntityID string
	Radius   float64
}

func (g GoalFollow) Done(Vec3i) bool { return false }

// GoalInvert flees its inner goal: satisfied anywhere the inner goal is not.
type GoalInvert struct {
	Inner Goal
}

func (g GoalInvert) Done(p Vec3i) bool { return !g.Inner.Done(p) }
