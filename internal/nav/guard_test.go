package nav_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"pathcraft.ai/internal/nav"
	"pathcraft.ai/internal/nav/navtest"
)

func testDescriptor() *nav.StructureDescriptor {
	return &nav.StructureDescriptor{
		Bounds:       nav.Bounds{X1: 0, Z1: 0, X2: 6, Z2: 6, Y: 60, RoofY: 64},
		Door:         nav.Door{X: 3, Z: 0, Facing: "north"},
		WallMaterial: "oak_planks",
	}
}

func testParams() nav.Params {
	p := nav.DefaultParams()
	p.PollInterval = 10 * time.Millisecond
	p.PlaceDelay = time.Millisecond
	p.MoveDeadline = 5 * time.Second
	p.SegmentDeadline = 5 * time.Second
	p.EscapeDeadline = 10 * time.Second
	return p
}

func TestGuard_ProtectedPlanes(t *testing.T) {
	g := nav.NewGuard(testDescriptor())

	cases := []struct {
		p    nav.Vec3i
		want bool
		why  string
	}{
		{nav.Vec3i{X: 0, Y: 62, Z: 3}, true, "wall plane"},
		{nav.Vec3i{X: 6, Y: 61, Z: 2}, true, "wall plane far side"},
		{nav.Vec3i{X: 2, Y: 64, Z: 2}, true, "roof plane"},
		{nav.Vec3i{X: 2, Y: 60, Z: 2}, true, "floor plane"},
		{nav.Vec3i{X: 3, Y: 61, Z: 0}, false, "door cell"},
		{nav.Vec3i{X: 3, Y: 62, Z: 0}, false, "above door"},
		{nav.Vec3i{X: 3, Y: 63, Z: 0}, false, "two above door"},
		{nav.Vec3i{X: 3, Y: 64, Z: 0}, true, "roof over door"},
		{nav.Vec3i{X: 3, Y: 60, Z: 0}, true, "floor under door"},
		{nav.Vec3i{X: 3, Y: 62, Z: 3}, false, "interior"},
		{nav.Vec3i{X: 20, Y: 62, Z: 3}, false, "outside"},
	}
	for _, tc := range cases {
		if got := g.Protected(tc.p); got != tc.want {
			t.Fatalf("%s: Protected(%v)=%v, want %v", tc.why, tc.p.ToArray(), got, tc.want)
		}
	}
}

func TestGuard_ProfilesNeverBreakProtected(t *testing.T) {
	w := navtest.NewWorld()
	a := navtest.NewActuator(w)
	c := nav.NewContext(w, a, nav.NewGuard(testDescriptor()), testParams())

	wall := nav.Vec3i{X: 0, Y: 62, Z: 3}
	for _, pr := range []*nav.Profile{c.Conservative(), c.Permissive()} {
		if pr.CanBreak(wall, "oak_planks") {
			t.Fatalf("profile %q allows breaking a protected cell", pr.Name)
		}
		if _, ok := pr.CostToBreak(wall, "oak_planks"); ok {
			t.Fatalf("profile %q has finite break cost on a protected cell", pr.Name)
		}
	}
	// Ordinary cells stay breakable.
	if !c.Permissive().CanBreak(nav.Vec3i{X: 50, Y: 62, Z: 3}, "stone") {
		t.Fatalf("permissive profile should break unprotected stone")
	}
}

func TestGuard_DigInterceptor(t *testing.T) {
	w := navtest.NewWorld()
	wall := nav.Vec3i{X: 0, Y: 62, Z: 3}
	w.SetSolid(wall, "oak_planks")

	raw := navtest.NewActuator(w)
	g := nav.NewGuard(testDescriptor())
	act := g.WrapActuator(raw)

	err := act.Dig(context.Background(), wall)
	if err == nil || !strings.Contains(err.Error(), nav.CauseProtected) {
		t.Fatalf("dig on protected cell must refuse, got %v", err)
	}
	if len(raw.Digs) != 0 {
		t.Fatalf("refused dig still reached the actuator")
	}

	// The repair collaborator's override is caller-scoped.
	if err := g.WithOverride(func() error {
		return act.Dig(context.Background(), wall)
	}); err != nil {
		t.Fatalf("override dig: %v", err)
	}
	if len(raw.Digs) != 1 {
		t.Fatalf("override dig did not execute")
	}
	// And it does not stick.
	w.SetSolid(wall, "oak_planks")
	if err := act.Dig(context.Background(), wall); err == nil {
		t.Fatalf("protection must return after the override scope ends")
	}
}

func TestGuard_PlaceInterceptor(t *testing.T) {
	w := navtest.NewWorld()
	w.SetInventory(nav.Item{Name: "cobblestone", Count: 64}, nav.Item{Name: "torch", Count: 4})
	raw := navtest.NewActuator(w)
	g := nav.NewGuard(testDescriptor())
	act := g.WrapActuator(raw)

	ctx := context.Background()
	if err := act.Equip(ctx, "cobblestone"); err != nil {
		t.Fatalf("equip: %v", err)
	}
	// Interior cell (2,61,3): placing building material is refused.
	err := act.Place(ctx, nav.Vec3i{X: 2, Y: 60, Z: 3}, nav.Vec3i{Y: 1})
	if err == nil || !strings.Contains(err.Error(), nav.CauseProtected) {
		t.Fatalf("interior place must refuse, got %v", err)
	}
	// In front of the door too: door at (3,0) facing north opens onto (3,61,-1).
	err = act.Place(ctx, nav.Vec3i{X: 3, Y: 60, Z: -1}, nav.Vec3i{Y: 1})
	if err == nil {
		t.Fatalf("door-front place must refuse")
	}
	// Non-building items are fine.
	if err := act.Equip(ctx, "torch"); err != nil {
		t.Fatalf("equip torch: %v", err)
	}
	if err := act.Place(ctx, nav.Vec3i{X: 2, Y: 60, Z: 3}, nav.Vec3i{Y: 1}); err != nil {
		t.Fatalf("torch place inside should pass: %v", err)
	}
	// And building material well outside is fine.
	if err := act.Equip(ctx, "cobblestone"); err != nil {
		t.Fatalf("equip: %v", err)
	}
	if err := act.Place(ctx, nav.Vec3i{X: 40, Y: 60, Z: 3}, nav.Vec3i{Y: 1}); err != nil {
		t.Fatalf("outside place should pass: %v", err)
	}
}
