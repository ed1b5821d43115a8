package nav

import (
	"context"
	"sync/atomic"
	"time"
)

// Params are the navigation knobs. Defaults come from DefaultParams; the
// tuning package overlays YAML values on top.
type Params struct {
	PollInterval time.Duration
	StuckSamples int
	MinMove      float64

	MoveDeadline    time.Duration
	SegmentDeadline time.Duration
	EscapeDeadline  time.Duration
	DirectRange     float64

	ExploreRadius int
	ExploreNodes  int
	MaxDrop       int

	VerticalMaxSteps   int
	VerticalNoProgress int
	SurfaceScan        int
	SkylightMin        int

	AquaticAttempts int
	AquaticBudget   time.Duration
	ShoreRadius     int

	PlaceDelay time.Duration
}

func DefaultParams() Params {
	return Params{
		PollInterval:       250 * time.Millisecond,
		StuckSamples:       6,
		MinMove:            0.5,
		MoveDeadline:       60 * time.Second,
		SegmentDeadline:    20 * time.Second,
		EscapeDeadline:     90 * time.Second,
		DirectRange:        32,
		ExploreRadius:      48,
		ExploreNodes:       8000,
		MaxDrop:            3,
		VerticalMaxSteps:   128,
		VerticalNoProgress: 6,
		SurfaceScan:        80,
		SkylightMin:        12,
		AquaticAttempts:    40,
		AquaticBudget:      45 * time.Second,
		ShoreRadius:        24,
		PlaceDelay:         150 * time.Millisecond,
	}
}

// TraceEvent is one navigation-trace record.
type TraceEvent struct {
	Op       string `json:"op"`
	Cause    string `json:"cause,omitempty"`
	From     [3]int `json:"from"`
	To       [3]int `json:"to,omitempty"`
	Profile  string `json:"profile,omitempty"`
	Duration int64  `json:"duration_ms,omitempty"`
}

type Tracer interface {
	Event(TraceEvent)
}

// Context carries everything one agent's navigation calls share. It replaces
// the per-agent global flags of older designs: owned by the agent task,
// threaded through every call, never accessed globally.
type Context struct {
	World  World
	Act    Actuator
	Guard  *Guard
	Params Params
	Trace  Tracer

	cancelled atomic.Bool

	// One-shot guard: a vertical escape in progress must not re-trigger
	// another from inside the navigator.
	escaping bool

	// Reference point for repeated retreat explorations, so successive
	// retreats keep gaining ground instead of round-tripping.
	retreatRef *Vec3i
}

// NewContext wires the guard's interceptors around the raw actuator. All
// movement profiles obtained through the context carry the guard's
// protected-cell predicate.
func NewContext(w World, a Actuator, g *Guard, p Params) *Context {
	c := &Context{World: w, Params: p, Guard: g}
	if g != nil {
		c.Act = g.WrapActuator(a)
	} else {
		c.Act = a
	}
	return c
}

// Cancel flips the shared cancellation flag. Every in-flight navigation call
// observes it within one poll interval.
func (c *Context) Cancel()         { c.cancelled.Store(true) }
func (c *Context) ResetCancel()    { c.cancelled.Store(false) }
func (c *Context) Cancelled() bool { return c.cancelled.Load() }

// Conservative and Permissive return the canonical profiles with the guard
// predicate composed in. The guard predicate is injected at every call site,
// never only once, so a descriptor loaded mid-session still protects.
func (c *Context) Conservative() *Profile { return c.guarded(Conservative()) }
func (c *Context) Permissive() *Profile   { return c.guarded(Permissive()) }

func (c *Context) guarded(p *Profile) *Profile {
	if c.Guard != nil {
		c.Guard.ApplyTo(p)
	}
	return p
}

func (c *Context) trace(ev TraceEvent) {
	if c.Trace != nil {
		c.Trace.Event(ev)
	}
}

func (c *Context) pos() Vec3            { return c.World.Position() }
func (c *Context) feet() Vec3i          { return c.World.Position().Floor() }
func (c *Context) at(p Vec3i) BlockInfo { return c.World.BlockAt(p) }

// opContext ties a fresh context to the shared cancellation flag for one
// actuator call. The flag is polled at the configured interval, so setting
// it cancels the call within one interval.
func (c *Context) opContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	step := c.Params.PollInterval
	if step <= 0 {
		step = 250 * time.Millisecond
	}
	go func() {
		t := time.NewTicker(step)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if c.Cancelled() {
					cancel()
					return
				}
			}
		}
	}()
	return ctx, cancel
}

// wait sleeps for d while honoring the cancellation flag at poll-interval
// granularity. Returns false when cancelled.
func (c *Context) wait(d time.Duration) bool {
	step := c.Params.PollInterval
	if step <= 0 {
		step = 250 * time.Millisecond
	}
	for d > 0 {
		if c.Cancelled() {
			return false
		}
		s := step
		if d < s {
			s = d
		}
		time.Sleep(s)
		d -= s
	}
	return !c.Cancelled()
}
