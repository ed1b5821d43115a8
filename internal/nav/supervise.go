package nav

import (
	"context"
	"time"
)

// Supervise races op against a hard deadline, a fixed-interval lateral
// displacement watchdog, and the shared cancellation flag. Exactly one of
// {success, timeout, stuck, interrupted} comes back, and the actuator is
// always stopped before a failure returns.
//
// op should honor its context. One that does not is granted a single poll
// interval to unwind and is then orphaned; the buffered done channel lets it
// drain whenever it finally returns.
func (c *Context) Supervise(deadline time.Duration, op func(ctx context.Context) error) Outcome {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	poll := c.Params.PollInterval
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	last := c.pos()
	stuck := 0

	abort := func(cause string) Outcome {
		cancel()
		c.Act.Stop()
		select {
		case <-done:
		case <-time.After(poll):
		}
		return failed(cause, 0)
	}

	for {
		select {
		case err := <-done:
			if err != nil {
				if ctx.Err() != nil || c.Cancelled() {
					c.Act.Stop()
					return failed(CauseInterrupted, 0)
				}
				// The grid search giving up is an expected outcome the
				// caller falls back from, not an exception.
				return failed(CauseStuck, 0)
			}
			return success(0)

		case <-timer.C:
			return abort(CauseTimeout)

		case <-ticker.C:
			if c.Cancelled() {
				return abort(CauseInterrupted)
			}
			p := c.pos()
			if DistXZ(p, last) < c.Params.MinMove {
				stuck++
			} else {
				stuck = 0
			}
			last = p
			if stuck >= c.Params.StuckSamples {
				return abort(CauseStuck)
			}
		}
	}
}

// superviseLoop races an escape-controller step loop against the hard
// deadline and the cancellation flag. The lateral-displacement watchdog is
// deliberately absent here: escape loops climb or swim in place and carry
// their own no-progress counters, which would otherwise fight the sampler.
func (c *Context) superviseLoop(deadline time.Duration, fn func(ctx context.Context) Outcome) Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	type result struct{ out Outcome }
	done := make(chan result, 1)
	go func() { done <- result{fn(ctx)} }()

	poll := c.Params.PollInterval
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case r := <-done:
			return r.out
		case <-ctx.Done():
			c.Act.Stop()
			select {
			case r := <-done:
				if r.out.Reached || r.out.Cause == CauseInterrupted {
					return r.out
				}
				return failed(CauseTimeout, r.out.Distance)
			case <-time.After(poll):
				return failed(CauseTimeout, 0)
			}
		case <-ticker.C:
			if c.Cancelled() {
				cancel()
				c.Act.Stop()
				select {
				case <-done:
				case <-time.After(poll):
				}
				return failed(CauseInterrupted, 0)
			}
		}
	}
}

// supervisedMove runs one grid-search move under supervision.
func (c *Context) supervisedMove(g Goal, p *Profile, deadline time.Duration) Outcome {
	start := time.Now()
	out := c.Supervise(deadline, func(ctx context.Context) error {
		return c.Act.Move(ctx, g, p)
	})
	out.Profile = p.Name
	c.trace(TraceEvent{
		Op:       "move",
		Cause:    out.Cause,
		From:     c.feet().ToArray(),
		Profile:  p.Name,
		Duration: time.Since(start).Milliseconds(),
	})
	return out
}
