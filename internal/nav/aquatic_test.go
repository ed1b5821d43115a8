package nav_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pathcraft.ai/internal/nav"
	"pathcraft.ai/internal/nav/navtest"
)

func TestAquaticEscape_LakeToShore(t *testing.T) {
	w := navtest.NewWorld()
	// Lake: water from y=58..60 over a stone bed, agent floating mid-lake.
	for z := -5; z <= 5; z++ {
		for x := -5; x <= 5; x++ {
			w.SetSolid(nav.Vec3i{X: x, Y: 57, Z: z}, "stone")
			for y := 58; y <= 60; y++ {
				w.SetWater(nav.Vec3i{X: x, Y: y, Z: z})
			}
		}
	}
	// Dry land east of the lake, top surface at y=60, standable at y=61.
	for z := 1; z <= 5; z++ {
		for x := 8; x <= 12; x++ {
			w.FillBox(nav.Vec3i{X: x, Y: 57, Z: z}, nav.Vec3i{X: x, Y: 60, Z: z}, "grass_block")
		}
	}
	w.SetPosition(nav.Vec3{X: 0.5, Y: 60, Z: 0.5})

	c := nav.NewContext(w, navtest.NewActuator(w), nav.NewGuard(nil), testParams())

	if !c.FeetInWater() {
		t.Fatalf("agent should start in water")
	}
	out := c.EscapeWater()
	if !out.Reached {
		t.Fatalf("phase 1 should reach shore: %+v", out)
	}
	if !c.OnDryGround() {
		t.Fatalf("agent should end on dry ground at %v", w.Position())
	}
	if !c.SkyExposed() {
		t.Fatalf("agent should end sky-exposed")
	}
}

func TestAquaticEscape_DryFeetIsNoop(t *testing.T) {
	w := navtest.NewWorld()
	w.FlatGround(-2, -2, 2, 2, 60)
	w.SetPosition(nav.Vec3{X: 0.5, Y: 61, Z: 0.5})

	a := navtest.NewActuator(w)
	c := nav.NewContext(w, a, nav.NewGuard(nil), testParams())

	out := c.EscapeWater()
	if !out.Reached {
		t.Fatalf("dry agent should no-op succeed: %+v", out)
	}
	if len(a.Digs) != 0 || len(a.Places) != 0 {
		t.Fatalf("no-op escape mutated the world")
	}
}

// channelWorld builds a narrow east-west water canal walled in bedrock:
// a long run east, a short run west, nothing standable in reach.
func channelWorld() *navtest.World {
	w := navtest.NewWorld()
	for x := -3; x <= 9; x++ {
		w.SetBedrock(nav.Vec3i{X: x, Y: 59, Z: 0})
		for y := 60; y <= 62; y++ {
			w.SetBedrock(nav.Vec3i{X: x, Y: y, Z: -1})
			w.SetBedrock(nav.Vec3i{X: x, Y: y, Z: 1})
		}
	}
	for y := 60; y <= 62; y++ {
		w.SetBedrock(nav.Vec3i{X: -3, Y: y, Z: 0})
		w.SetBedrock(nav.Vec3i{X: 9, Y: y, Z: 0})
	}
	for x := -2; x <= 8; x++ {
		w.SetWater(nav.Vec3i{X: x, Y: 60, Z: 0})
	}
	w.SetPosition(nav.Vec3{X: 0.5, Y: 60, Z: 0.5})
	return w
}

func TestAquaticEscape_OscillationCommitsToChannel(t *testing.T) {
	w := channelWorld()

	p := testParams()
	p.PollInterval = 5 * time.Millisecond
	p.AquaticAttempts = 16
	p.ShoreRadius = 8
	a := navtest.NewActuator(w)
	c := nav.NewContext(w, a, nav.NewGuard(nil), p)

	out := c.EscapeWater()
	if out.Reached {
		t.Fatalf("walled canal must not reach shore: %+v", out)
	}

	// Going nowhere for a full window commits the swim to the longest water
	// run (east, 8 blocks), steering three blocks ahead along it.
	east := nav.CenterOf(nav.Vec3i{X: 3, Y: 60, Z: 0})
	eastIdx := -1
	for i, l := range a.Looks {
		if l == east {
			eastIdx = i
			break
		}
	}
	if eastIdx < 0 {
		t.Fatalf("never steered along the east channel: %v", a.Looks)
	}
	// Still stuck after four channel ticks: backtrack to the runner-up run.
	west := nav.CenterOf(nav.Vec3i{X: -3, Y: 60, Z: 0})
	backtracked := false
	for _, l := range a.Looks[eastIdx:] {
		if l == west {
			backtracked = true
			break
		}
	}
	if !backtracked {
		t.Fatalf("stalled channel swim should backtrack west: %v", a.Looks)
	}
}

func TestAquaticEscape_DigsTowardBlockedShore(t *testing.T) {
	w := navtest.NewWorld()
	// Sealed pocket with a sand wall between the agent and a dry ledge.
	for dy := -1; dy <= 3; dy++ {
		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 3; dx++ {
				w.SetBedrock(nav.Vec3i{X: dx, Y: 60 + dy, Z: dz})
			}
		}
	}
	w.SetWater(nav.Vec3i{X: 0, Y: 60, Z: 0})
	w.Set(nav.Vec3i{X: 0, Y: 61, Z: 0}, nav.BlockInfo{Name: "air"})
	w.SetSolid(nav.Vec3i{X: 1, Y: 60, Z: 0}, "sand")
	w.SetSolid(nav.Vec3i{X: 1, Y: 61, Z: 0}, "sand")
	w.SetSolid(nav.Vec3i{X: 2, Y: 60, Z: 0}, "sand")
	w.Set(nav.Vec3i{X: 2, Y: 61, Z: 0}, nav.BlockInfo{Name: "air"})
	w.Set(nav.Vec3i{X: 2, Y: 62, Z: 0}, nav.BlockInfo{Name: "air"})
	w.SetPosition(nav.Vec3{X: 0.5, Y: 60, Z: 0.5})

	a := navtest.NewActuator(w)
	a.MoveFn = func(ctx context.Context, g nav.Goal, p *nav.Profile) error {
		return errors.New("no path")
	}
	p := testParams()
	p.PollInterval = 5 * time.Millisecond
	p.AquaticAttempts = 6
	p.ShoreRadius = 6
	c := nav.NewContext(w, a, nav.NewGuard(nil), p)

	out := c.EscapeWater()
	if out.Reached {
		t.Fatalf("walled-in pocket must not reach shore: %+v", out)
	}

	ledge := nav.CenterOf(nav.Vec3i{X: 2, Y: 61, Z: 0})
	steered := false
	for _, l := range a.Looks {
		if l == ledge {
			steered = true
			break
		}
	}
	if !steered {
		t.Fatalf("swim should steer at the dry ledge: %v", a.Looks)
	}
	// Stuck against the same candidate long enough: dig through the wall.
	dug := false
	for _, d := range a.Digs {
		if d == (nav.Vec3i{X: 1, Y: 60, Z: 0}) {
			dug = true
			break
		}
	}
	if !dug {
		t.Fatalf("stuck swim should dig toward the shore, dug %v", a.Digs)
	}
}

// driftActuator inches the agent east on every Forward press, slowly enough
// that per-tick displacement stays under the stuck threshold.
type driftActuator struct {
	*navtest.Actuator
	w *navtest.World
}

func (a *driftActuator) Forward(on bool) {
	if !on {
		return
	}
	p := a.w.Position()
	a.w.SetPosition(nav.Vec3{X: p.X + 0.35, Y: p.Y, Z: p.Z})
}

func TestAquaticEscape_BlacklistsUnreachableShore(t *testing.T) {
	w := navtest.NewWorld()
	// The canal, but with a sand ledge past the east end that never gets
	// closer fast enough: the swim crawls at it, then must give it up.
	for x := -3; x <= 10; x++ {
		w.SetBedrock(nav.Vec3i{X: x, Y: 59, Z: 0})
		for y := 60; y <= 62; y++ {
			w.SetBedrock(nav.Vec3i{X: x, Y: y, Z: -1})
			w.SetBedrock(nav.Vec3i{X: x, Y: y, Z: 1})
		}
	}
	for y := 60; y <= 62; y++ {
		w.SetBedrock(nav.Vec3i{X: -3, Y: y, Z: 0})
	}
	for y := 60; y <= 63; y++ {
		w.SetBedrock(nav.Vec3i{X: 10, Y: y, Z: 0})
	}
	for x := -2; x <= 8; x++ {
		w.SetWater(nav.Vec3i{X: x, Y: 60, Z: 0})
	}
	w.SetSolid(nav.Vec3i{X: 9, Y: 60, Z: 0}, "sand")
	w.SetPosition(nav.Vec3{X: 0.5, Y: 60, Z: 0.5})

	inner := navtest.NewActuator(w)
	inner.MoveFn = func(ctx context.Context, g nav.Goal, p *nav.Profile) error {
		return errors.New("no path")
	}
	a := &driftActuator{Actuator: inner, w: w}

	p := testParams()
	p.PollInterval = 5 * time.Millisecond
	p.AquaticAttempts = 24
	p.ShoreRadius = 10
	c := nav.NewContext(w, a, nav.NewGuard(nil), p)

	out := c.EscapeWater()
	if out.Reached {
		t.Fatalf("crawling swim must not reach the far ledge: %+v", out)
	}

	shore := nav.CenterOf(nav.Vec3i{X: 9, Y: 61, Z: 0})
	shoreLooks := 0
	lastShore := -1
	for i, l := range inner.Looks {
		if l == shore {
			shoreLooks++
			lastShore = i
		}
	}
	if shoreLooks == 0 {
		t.Fatalf("swim never steered at the ledge: %v", inner.Looks)
	}
	// Stuck for eight straight ticks blacklists the candidate; without that
	// the swim would steer at it on every remaining attempt.
	if shoreLooks > 10 {
		t.Fatalf("unreachable ledge steered at %d times, should be abandoned", shoreLooks)
	}
	// After abandoning the ledge the loop falls back to channel swimming.
	channelled := false
	for _, l := range inner.Looks[lastShore+1:] {
		if l.Y == 60 {
			channelled = true
			break
		}
	}
	if !channelled {
		t.Fatalf("blacklisted shore should hand steering to the channel: %v", inner.Looks)
	}
}

func TestAquaticEscape_EnclosedFailsNormally(t *testing.T) {
	w := navtest.NewWorld()
	// A 1x1 water pocket sealed in bedrock: no shore, no cliff, no ceiling
	// to dig. The escape must fail with a normal outcome, not hang.
	for dy := -1; dy <= 3; dy++ {
		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 1; dx++ {
				w.SetBedrock(nav.Vec3i{X: dx, Y: 60 + dy, Z: dz})
			}
		}
	}
	w.SetWater(nav.Vec3i{X: 0, Y: 60, Z: 0})
	w.SetWater(nav.Vec3i{X: 0, Y: 61, Z: 0})
	w.SetPosition(nav.Vec3{X: 0.5, Y: 60, Z: 0.5})

	p := testParams()
	p.AquaticAttempts = 5
	p.ShoreRadius = 6
	c := nav.NewContext(w, navtest.NewActuator(w), nav.NewGuard(nil), p)

	out := c.EscapeWater()
	if out.Reached {
		t.Fatalf("sealed pocket must not succeed")
	}
	if out.Cause != nav.CauseStuck && out.Cause != nav.CauseTimeout {
		t.Fatalf("sealed pocket should fail normally, got %+v", out)
	}
}
