package nav

import "strings"

// TraverseDoor moves the agent through the structure doorway. exit=true means
// inside→outside. Calling it when already on the wanted side is a no-op that
// still reports success. A traversal already in progress (either direction)
// refuses the new one instead of recursing.
func (c *Context) TraverseDoor(exit bool) Outcome {
	d := c.Guard.Descriptor()
	if d == nil {
		return success(0)
	}

	wantInside := !exit
	if d.Inside(c.feet()) == wantInside {
		return success(0)
	}

	t := transitEntering
	if exit {
		t = transitExiting
	}
	if !c.Guard.beginTransit(t) {
		return failed(CauseStuck, 0)
	}
	defer c.Guard.endTransit()

	// Approach the offset cell on this side of the doorway.
	from, to := d.doorFront(), d.doorBack()
	if exit {
		from, to = to, from
	}
	if out := c.supervisedMove(GoalNear{Pos: from, Radius: 1}, c.Conservative(), c.Params.SegmentDeadline); !out.Reached {
		c.trace(TraceEvent{Op: "door_approach", Cause: out.Cause, From: c.feet().ToArray(), To: from.ToArray()})
		return out
	}

	// Open the door if one is sitting in the doorway.
	doorCell := Vec3i{X: d.Door.X, Y: d.Bounds.Y + 1, Z: d.Door.Z}
	if b := c.at(doorCell); strings.Contains(b.Name, "door") {
		ctx, cancel := c.opContext()
		err := c.Act.Activate(ctx, doorCell)
		cancel()
		if err != nil {
			return failed(CauseStuck, 0)
		}
		c.wait(c.Params.PollInterval)
	}

	// Walk through and confirm the side actually flipped. One extra step
	// outward covers doors whose collision pushes the agent back.
	for attempt := 0; attempt < 2; attempt++ {
		out := c.supervisedMove(GoalNear{Pos: to, Radius: 1}, c.Conservative(), c.Params.SegmentDeadline)
		if out.Cause == CauseInterrupted {
			return out
		}
		if d.Inside(c.feet()) == wantInside {
			c.trace(TraceEvent{Op: "door_traverse", From: from.ToArray(), To: to.ToArray()})
			return success(0)
		}
	}
	return failed(CauseStuck, 0)
}
