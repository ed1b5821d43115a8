package nav

import (
	"context"
	"time"
)

// EscapeVertically runs the dig-to-surface state machine: hazard precheck,
// clear overhead, build underfoot, progress check, termination test. The
// loop has both an iteration budget and a hard wall-clock deadline, so it
// terminates even when nothing works.
func (c *Context) EscapeVertically() Outcome {
	surface := c.SurfaceY()
	start := time.Now()
	out := c.superviseLoop(c.Params.EscapeDeadline, func(ctx context.Context) Outcome {
		return c.climbOut(ctx, surface)
	})
	c.trace(TraceEvent{
		Op:       "vertical_escape",
		Cause:    out.Cause,
		From:     c.feet().ToArray(),
		Duration: time.Since(start).Milliseconds(),
	})
	return out
}

func (c *Context) climbOut(ctx context.Context, surface int) Outcome {
	noProgress := 0
	lastY := c.feet().Y

	for step := 0; step < c.Params.VerticalMaxSteps; step++ {
		if ctx.Err() != nil || c.Cancelled() {
			return failed(CauseInterrupted, 0)
		}

		feet := c.feet()
		if feet.Y >= surface && !c.Submerged() && !c.at(feet).Water() {
			return success(0)
		}

		if out, done := c.overheadHazards(ctx); done {
			return out
		}
		if err := c.clearOverhead(ctx); err != nil {
			return failed(CauseHazard, 0)
		}
		if out, done := c.raiseFloor(ctx); done {
			return out
		}

		cur := c.feet().Y
		if cur > lastY {
			noProgress = 0
		} else {
			noProgress++
			if noProgress >= c.Params.VerticalNoProgress {
				return failed(CauseStuck, 0)
			}
		}
		lastY = cur
	}
	return failed(CauseStuck, 0)
}

// overheadHazards inspects the five cells above and defuses what it finds.
// done=true means the escape must end with the given outcome.
func (c *Context) overheadHazards(ctx context.Context) (Outcome, bool) {
	feet := c.feet()
	for dy := 1; dy <= 5; dy++ {
		b := c.at(feet.Offset(0, dy, 0))
		switch {
		case b.Lava():
			// Never dig up into lava; shift into a lava-free column first.
			if !c.sidestepLava(ctx) {
				return failed(CauseHazard, 0), true
			}
			return Outcome{}, false

		case b.Water() && !c.Submerged():
			// Digging straight up would flood the shaft. Open a sideways
			// drain instead and let it flow off.
			c.drainSideways(ctx)
			return Outcome{}, false

		case b.Falls():
			// Drop the column, then step out of the fall line.
			_ = c.Act.Dig(ctx, feet.Offset(0, dy, 0))
			c.stepAside()
			c.wait(c.Params.PlaceDelay * 4)
			return Outcome{}, false
		}
	}
	return Outcome{}, false
}

// sidestepLava digs into and steps toward an adjacent column with no lava in
// its five cells overhead. Returns false when every column is lava-bound.
func (c *Context) sidestepLava(ctx context.Context) bool {
	feet := c.feet()
	for _, d := range cardinals {
		col := feet.Add(d)
		safe := true
		for dy := 1; dy <= 5; dy++ {
			if c.at(col.Offset(0, dy, 0)).Lava() {
				safe = false
				break
			}
		}
		if !safe {
			continue
		}
		if !c.openColumn(ctx, col) {
			continue
		}
		c.stepInto(col)
		return true
	}
	return false
}

// drainSideways digs a foot-level hole in the first diggable adjacent column.
func (c *Context) drainSideways(ctx context.Context) {
	feet := c.feet()
	for _, d := range cardinals {
		p := feet.Add(d).Offset(0, 1, 0)
		b := c.at(p)
		if b.Solid() && b.Diggable && !c.Guard.Protected(p) {
			if c.Act.Dig(ctx, p) == nil {
				c.wait(c.Params.PlaceDelay * 2)
				return
			}
		}
	}
}

// stepAside moves one block into any open adjacent column.
func (c *Context) stepAside() {
	feet := c.feet()
	for _, d := range cardinals {
		col := feet.Add(d)
		if c.at(col).Passable() && c.at(col.Offset(0, 1, 0)).Passable() {
			c.stepInto(col)
			return
		}
	}
}

// openColumn digs the foot and head cells of an adjacent column so the agent
// can step in. Hazardous or protected cells refuse the column.
func (c *Context) openColumn(ctx context.Context, col Vec3i) bool {
	for dy := 0; dy <= 1; dy++ {
		p := col.Offset(0, dy, 0)
		b := c.at(p)
		if b.Passable() {
			continue
		}
		if !b.Diggable || b.Hazard() || c.Guard.Protected(p) {
			return false
		}
		if err := c.Act.Dig(ctx, p); err != nil {
			return false
		}
	}
	return true
}

// stepInto nudges the agent one cell sideways with direct controls.
func (c *Context) stepInto(col Vec3i) {
	c.Act.LookAt(Vec3{X: float64(col.X) + 0.5, Y: float64(col.Y) + 0.5, Z: float64(col.Z) + 0.5})
	c.Act.Forward(true)
	c.wait(c.Params.PollInterval * 2)
	c.Act.Forward(false)
}

// clearOverhead digs up to four cells straight above. Hazards were handled
// by the precheck; undiggable blocks are skipped and left for the
// no-progress counter to judge.
func (c *Context) clearOverhead(ctx context.Context) error {
	feet := c.feet()
	for dy := 1; dy <= 4; dy++ {
		p := feet.Offset(0, dy, 0)
		b := c.at(p)
		if !b.Solid() || !b.Diggable || b.Hazard() {
			continue
		}
		if c.Guard.Protected(p) {
			continue
		}
		if err := c.Act.Dig(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// raiseFloor places a block under the agent, mining wall material first if
// the inventory has nothing placeable. While submerged the controller only
// jumps; sideways digging underwater is the aquatic controller's job.
func (c *Context) raiseFloor(ctx context.Context) (Outcome, bool) {
	if c.Submerged() {
		c.Act.Jump(true)
		c.wait(c.Params.PollInterval * 2)
		c.Act.Jump(false)
		return Outcome{}, false
	}

	feet := c.feet()
	var ground Vec3i
	found := false
	for dy := 1; dy <= 5; dy++ {
		p := feet.Offset(0, -dy, 0)
		if c.at(p).Solid() {
			ground = p
			found = true
			break
		}
	}
	if !found {
		return Outcome{}, false
	}
	slot := ground.Offset(0, 1, 0)
	if !c.at(slot).Passable() {
		return Outcome{}, false
	}

	if _, ok := c.equipPlaceable(ctx); !ok {
		if !c.mineWallMaterial(ctx) {
			return failed(CauseNoMaterial, 0), true
		}
		return Outcome{}, false
	}

	// Jump-place when pillaring at or above foot level.
	if slot.Y >= feet.Y {
		c.Act.Jump(true)
		c.wait(c.Params.PollInterval)
	}
	err := c.Act.Place(ctx, ground, Vec3i{Y: 1})
	c.Act.Jump(false)
	if err == nil {
		c.wait(c.Params.PlaceDelay)
	}
	return Outcome{}, false
}

// mineWallMaterial digs foot- and head-height cells from an adjacent wall to
// replenish block supply, then steps into the freed space.
func (c *Context) mineWallMaterial(ctx context.Context) bool {
	feet := c.feet()
	for _, d := range cardinals {
		col := feet.Add(d)
		foot := c.at(col)
		head := c.at(col.Offset(0, 1, 0))
		if !foot.Solid() || !foot.Diggable || foot.Hazard() {
			continue
		}
		if head.Solid() && (!head.Diggable || head.Hazard()) {
			continue
		}
		if c.Guard.Protected(col) || c.Guard.Protected(col.Offset(0, 1, 0)) {
			continue
		}
		if c.Act.Dig(ctx, col) != nil {
			continue
		}
		if head.Solid() {
			_ = c.Act.Dig(ctx, col.Offset(0, 1, 0))
		}
		c.stepInto(col)
		return true
	}
	return false
}
