package nav

import "time"

// GoToPosition is the top-level navigation entry point used by the skills
// layer. It picks direct vs. long-range traversal, routes through the
// structure door when the goal is on the other side, and hands control to
// the escape controllers when the grid search cannot be trusted.
func (c *Context) GoToPosition(target Vec3i, minDistance float64) Outcome {
	if minDistance < 1 {
		minDistance = 1
	}
	start := time.Now()
	out := c.goTo(target, minDistance)
	out.Distance = Dist3(c.pos(), CenterOf(target))
	c.trace(TraceEvent{
		Op:       "go_to_position",
		Cause:    out.Cause,
		From:     c.feet().ToArray(),
		To:       target.ToArray(),
		Profile:  out.Profile,
		Duration: time.Since(start).Milliseconds(),
	})
	return out
}

func (c *Context) goTo(target Vec3i, minDistance float64) Outcome {
	// Load the persisted descriptor lazily via the guard owner; crossing the
	// structure boundary goes through the door, never through a wall.
	if d := c.Guard.Descriptor(); d != nil {
		in := d.Inside(c.feet())
		if in != d.Inside(target) {
			if out := c.TraverseDoor(in); !out.Reached {
				return out
			}
		}
	}

	// Underground, or far below a nearby target: surface first. The one-shot
	// flag keeps the escape from re-entering itself through goTo.
	if !c.escaping {
		feet := c.feet()
		deepBelow := target.Y-feet.Y >= 10 && DistXZ(c.pos(), CenterOf(target)) <= c.Params.DirectRange
		if c.Underground() || deepBelow {
			c.escaping = true
			out := c.EscapeVertically()
			c.escaping = false
			if out.Cause == CauseInterrupted {
				return out
			}
		}
	}

	if DistXZ(c.pos(), CenterOf(target)) <= c.Params.DirectRange {
		return c.direct(target, minDistance)
	}
	return c.longRange(target, minDistance)
}

// direct runs the grid search once under the conservative profile, falling
// back to permissive only when conservative fails outright. The profile that
// produced the result is reported to the caller.
func (c *Context) direct(target Vec3i, minDistance float64) Outcome {
	goal := GoalNear{Pos: target, Radius: minDistance}

	out := c.supervisedMove(goal, c.Conservative(), c.Params.MoveDeadline)
	if goal.Done(c.feet()) {
		return Outcome{Reached: true, Profile: out.Profile}
	}
	if out.Cause == CauseInterrupted {
		return out
	}

	out = c.supervisedMove(goal, c.Permissive(), c.Params.MoveDeadline)
	if goal.Done(c.feet()) {
		return Outcome{Reached: true, Profile: out.Profile}
	}
	if out.Cause == "" {
		out.Cause = CauseStuck
	}
	return out
}

// longRange breaks the journey into flood-fill milestones headed at the
// target, moving segment by segment until the target is in direct range.
func (c *Context) longRange(target Vec3i, minDistance float64) Outcome {
	const (
		maxSegments    = 64
		minLateralGain = 2.0
		overshootSlack = 8.0
		maxStale       = 3
		maxDirectTries = 2
	)

	prevLat := DistXZ(c.pos(), CenterOf(target))
	stale := 0
	directTries := 0

	for seg := 0; seg < maxSegments; seg++ {
		if c.Cancelled() {
			return failed(CauseInterrupted, 0)
		}
		if c.FeetInWater() {
			out := c.EscapeWater()
			if out.Cause == CauseInterrupted {
				return out
			}
			// Aquatic escape spent its budget with the agent still afloat:
			// last resort is climbing straight out of the water column.
			if !out.Reached && c.FeetInWater() && !c.escaping {
				c.escaping = true
				out = c.EscapeVertically()
				c.escaping = false
				if out.Cause == CauseInterrupted {
					return out
				}
			}
		}

		lat := DistXZ(c.pos(), CenterOf(target))
		if lat <= c.Params.DirectRange {
			break
		}

		milestone := c.ExploreToward(target, c.Params.ExploreRadius)
		if milestone == nil {
			// No heading progress reachable on foot. Let the permissive
			// grid search try the whole thing before giving up.
			directTries++
			out := c.supervisedMove(GoalNear{Pos: target, Radius: minDistance}, c.Permissive(), c.Params.MoveDeadline)
			if out.Cause == CauseInterrupted {
				return out
			}
			if (GoalNear{Pos: target, Radius: minDistance}).Done(c.feet()) {
				return Outcome{Reached: true, Profile: out.Profile}
			}
			if directTries >= maxDirectTries {
				return failed(CauseStuck, 0)
			}
			continue
		}

		out := c.supervisedMove(GoalNear{Pos: milestone.Point, Radius: 2}, c.Conservative(), c.Params.SegmentDeadline)
		if out.Cause == CauseInterrupted {
			return out
		}

		newLat := DistXZ(c.pos(), CenterOf(target))
		if newLat > prevLat+overshootSlack {
			// Lost more ground than a legitimate detour around an obstacle
			// would; smaller regressions are left to the stale counter.
			return failed(CauseStuck, newLat)
		}
		if prevLat-newLat < minLateralGain {
			stale++
			if stale >= maxStale {
				return failed(CauseStuck, newLat)
			}
		} else {
			stale = 0
		}
		prevLat = newLat
	}

	return c.direct(target, minDistance)
}

// RetreatFrom moves the agent away from a threat using the connectivity
// explorer. The first call pins the reference point; successive calls keep
// maximizing distance from it, so repeated retreats gain ground instead of
// round-tripping. ClearRetreat ends the episode.
func (c *Context) RetreatFrom(threat Vec3i, radius int) Outcome {
	if c.retreatRef == nil {
		ref := threat
		c.retreatRef = &ref
	}
	res := c.ExploreAwayFrom(*c.retreatRef, radius)
	if res == nil {
		res = c.ExploreFarthest(radius)
	}
	if res == nil {
		return failed(CauseStuck, 0)
	}
	return c.supervisedMove(GoalNear{Pos: res.Point, Radius: 2}, c.Permissive(), c.Params.SegmentDeadline)
}

func (c *Context) ClearRetreat() { c.retreatRef = nil }
