package nav

import (
	"context"
	"time"
)

// EscapeWater gets the agent from open water to dry land. Phase 1 lets the
// grid search carry it to the nearest shore; phase 2 is the manual swim loop.
// Running out of budget is a normal failure the caller handles, usually by
// falling through to the vertical controller.
func (c *Context) EscapeWater() Outcome {
	if !c.FeetInWater() {
		return success(0)
	}
	start := time.Now()

	out := c.searchAssistedShore()
	if !out.Reached && out.Cause != CauseInterrupted {
		out = c.superviseLoop(c.Params.AquaticBudget, c.swimAshore)
	}

	c.trace(TraceEvent{
		Op:       "aquatic_escape",
		Cause:    out.Cause,
		From:     c.feet().ToArray(),
		Duration: time.Since(start).Milliseconds(),
	})
	return out
}

// searchAssistedShore is phase 1: grid-search to the nearest dry cell with
// two clear cells above, under the permissive profile and a bounded budget.
func (c *Context) searchAssistedShore() Outcome {
	shore, ok := c.nearestShore(c.Params.ShoreRadius, nil)
	if !ok {
		return failed(CauseStuck, 0)
	}
	out := c.supervisedMove(GoalNear{Pos: shore, Radius: 1}, c.Permissive(), c.Params.SegmentDeadline)
	if out.Cause == CauseInterrupted {
		return out
	}
	if c.OnDryGround() && c.SkyExposed() {
		return success(0)
	}
	return failed(CauseStuck, 0)
}

// nearestShore finds the closest non-water cell with open air above, scored
// by vertical deviation first, then distance. Blacklisted cells are skipped.
func (c *Context) nearestShore(radius int, blacklist map[Vec3i]struct{}) (Vec3i, bool) {
	feet := c.feet()
	cands := c.World.FindNearest(func(p Vec3i, b BlockInfo) bool {
		if absInt(p.Y-feet.Y) > 2 {
			return false
		}
		if _, skip := blacklist[p]; skip {
			return false
		}
		if b.Liquid || !b.Passable() {
			return false
		}
		return c.at(p.Offset(0, -1, 0)).Solid() && c.at(p.Offset(0, 1, 0)).Passable()
	}, radius, 64)

	best := Vec3i{}
	bestKey := [2]int{1 << 30, 1 << 30}
	found := false
	for _, p := range cands {
		key := [2]int{absInt(p.Y - feet.Y), absInt(p.X-feet.X) + absInt(p.Z-feet.Z)}
		if key[0] < bestKey[0] || (key[0] == bestKey[0] && key[1] < bestKey[1]) {
			bestKey = key
			best = p
			found = true
		}
	}
	return best, found
}

// swimState is the phase-2 loop's working memory.
type swimState struct {
	history   []Vec3
	blacklist map[Vec3i]struct{}
	target    *Vec3i
	stuckFor  int

	channelDir    Vec3i
	channelSecond Vec3i
	channelTicks  int
}

const oscillationWindow = 6

// swimAshore is phase 2: a bounded manual loop of steering, channel
// following, shore digging and, when fully boxed in, digging straight up.
func (c *Context) swimAshore(ctx context.Context) Outcome {
	st := &swimState{blacklist: make(map[Vec3i]struct{})}
	defer func() {
		c.Act.Forward(false)
		c.Act.Sprint(false)
		c.Act.Jump(false)
	}()

	for attempt := 0; attempt < c.Params.AquaticAttempts; attempt++ {
		if ctx.Err() != nil || c.Cancelled() {
			return failed(CauseInterrupted, 0)
		}

		if c.OnDryGround() {
			return success(0)
		}

		pos := c.pos()
		st.history = append(st.history, pos)
		if len(st.history) > oscillationWindow {
			st.history = st.history[1:]
		}

		switch {
		case st.channelTicks > 0:
			c.followChannel(st)

		case c.oscillating(st):
			c.pickChannel(st)

		default:
			if shore, ok := c.nearestShore(c.Params.ShoreRadius, st.blacklist); ok {
				c.swimToward(ctx, st, shore)
			} else if cliff, ok := c.nearestCliff(); ok {
				c.digInto(ctx, cliff)
			} else {
				// Fully enclosed: straight up is all that's left.
				c.digCeiling(ctx)
			}
		}

		if !c.wait(c.Params.PollInterval) {
			return failed(CauseInterrupted, 0)
		}
	}
	return failed(CauseStuck, 0)
}

// oscillating compares the position against its value several ticks back.
func (c *Context) oscillating(st *swimState) bool {
	if len(st.history) < oscillationWindow {
		return false
	}
	return DistXZ(c.pos(), st.history[0]) < 1.0
}

// pickChannel measures the longest unobstructed water run in each cardinal
// direction and commits to the winner, remembering the runner-up for
// backtracking.
func (c *Context) pickChannel(st *swimState) {
	feet := c.feet()
	bestLen, secondLen := -1, -1
	var best, second Vec3i
	for _, d := range cardinals {
		run := 0
		for i := 1; i <= c.Params.ShoreRadius; i++ {
			p := feet.Add(Vec3i{X: d.X * i, Z: d.Z * i})
			if !c.at(p).Water() || !c.at(p.Offset(0, 1, 0)).Passable() {
				break
			}
			run++
		}
		if run > bestLen {
			secondLen, second = bestLen, best
			bestLen, best = run, d
		} else if run > secondLen {
			secondLen, second = run, d
		}
	}
	if bestLen <= 0 {
		return
	}
	st.channelDir = best
	st.channelSecond = second
	st.channelTicks = bestLen + 4
	st.stuckFor = 0
}

// followChannel swims along the committed direction, backtracking to the
// second-longest channel when no ground is gained.
func (c *Context) followChannel(st *swimState) {
	feet := c.feet()
	ahead := feet.Add(Vec3i{X: st.channelDir.X * 3, Z: st.channelDir.Z * 3})
	c.Act.LookAt(CenterOf(ahead))
	c.Act.Forward(true)
	c.Act.Jump(true)
	st.channelTicks--

	if len(st.history) >= 2 {
		prev := st.history[len(st.history)-2]
		if DistXZ(c.pos(), prev) < c.Params.MinMove {
			st.stuckFor++
		} else {
			st.stuckFor = 0
		}
	}
	if st.stuckFor >= 4 && (st.channelSecond != Vec3i{}) {
		st.channelDir = st.channelSecond
		st.channelSecond = Vec3i{}
		st.stuckFor = 0
	}
}

// swimToward steers at a shore candidate: sprint-jump while far, careful
// walk close in. Repeated stuck ticks against the same candidate first dig
// toward it, then blacklist it.
func (c *Context) swimToward(ctx context.Context, st *swimState, shore Vec3i) {
	if st.target == nil || *st.target != shore {
		st.target = &shore
		st.stuckFor = 0
	}

	c.Act.LookAt(CenterOf(shore))
	c.Act.Forward(true)
	far := DistXZ(c.pos(), CenterOf(shore)) > 4
	c.Act.Sprint(far)
	c.Act.Jump(far)

	if len(st.history) >= 2 {
		prev := st.history[len(st.history)-2]
		if DistXZ(c.pos(), prev) < c.Params.MinMove {
			st.stuckFor++
		} else {
			st.stuckFor = 0
		}
	}
	switch {
	case st.stuckFor >= 8:
		st.blacklist[shore] = struct{}{}
		st.target = nil
		st.stuckFor = 0
	case st.stuckFor >= 4:
		c.digInto(ctx, shore)
	}
}

// nearestCliff finds the closest diggable solid column in a cardinal
// direction: somewhere to tunnel when no open shore exists.
func (c *Context) nearestCliff() (Vec3i, bool) {
	feet := c.feet()
	for i := 1; i <= c.Params.ShoreRadius; i++ {
		for _, d := range cardinals {
			p := feet.Add(Vec3i{X: d.X * i, Z: d.Z * i})
			b := c.at(p)
			if b.Solid() && b.Diggable && !b.Hazard() && !c.Guard.Protected(p) {
				return p, true
			}
		}
	}
	return Vec3i{}, false
}

// digInto clears the foot- and head-height cells between the agent and a
// target one step at a time.
func (c *Context) digInto(ctx context.Context, target Vec3i) {
	feet := c.feet()
	dx := sign(target.X - feet.X)
	dz := sign(target.Z - feet.Z)
	step := feet.Offset(dx, 0, 0)
	if absInt(target.Z-feet.Z) > absInt(target.X-feet.X) {
		step = feet.Offset(0, 0, dz)
	}
	for dy := 0; dy <= 1; dy++ {
		p := step.Offset(0, dy, 0)
		b := c.at(p)
		if b.Solid() && b.Diggable && !b.Hazard() && !c.Guard.Protected(p) {
			_ = c.Act.Dig(ctx, p)
		}
	}
}

// digCeiling digs the first solid diggable cell straight above.
func (c *Context) digCeiling(ctx context.Context) {
	feet := c.feet()
	for dy := 1; dy <= 3; dy++ {
		p := feet.Offset(0, dy, 0)
		b := c.at(p)
		if !b.Solid() {
			continue
		}
		if b.Diggable && !b.Hazard() && !c.Guard.Protected(p) {
			_ = c.Act.Dig(ctx, p)
		}
		return
	}
	c.Act.Jump(true)
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
