// Package ws speaks the agent protocol over a websocket and adapts the live
// observation stream to the navigation core's World and Actuator views.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pathcraft.ai/internal/nav"
	"pathcraft.ai/internal/protocol"
)

const (
	writeTimeout     = 5 * time.Second
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
)

type voxelCell struct {
	b uint16
	l uint8
}

// Client holds the last observation and exposes it through nav.World.
// Reads always reflect the most recent OBS; nothing is interpolated.
type Client struct {
	conn *websocket.Conn
	log  *log.Logger

	writeMu sync.Mutex

	mu        sync.RWMutex
	tick      uint64
	pos       nav.Vec3
	inv       []nav.Item
	voxels    map[nav.Vec3i]voxelCell
	palette   map[uint16]protocol.BlockDef
	entities  map[string]nav.Vec3
	equipped  string
	protected []protocol.Box

	pendMu  sync.Mutex
	pending map[string]chan protocol.TaskResult

	seq atomic.Uint64

	agentID   string
	sessionID string

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects, handshakes, and starts the read loop. The returned client is
// usable once the first OBS arrives; WaitObs blocks until then.
func Dial(url, name string, logger *log.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       name,
		Capabilities: protocol.HelloCapabilities{
			DeltaVoxels: true,
			MaxQueue:    8,
		},
	}
	if err := writeJSON(conn, hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected WELCOME, got %q", string(msg))
	}

	c := &Client{
		conn:      conn,
		log:       logger,
		voxels:    make(map[nav.Vec3i]voxelCell),
		palette:   make(map[uint16]protocol.BlockDef, len(welcome.BlockPalette)),
		entities:  make(map[string]nav.Vec3),
		pending:   make(map[string]chan protocol.TaskResult),
		agentID:   welcome.AgentID,
		sessionID: welcome.SessionID,
		done:      make(chan struct{}),
	}
	for _, d := range welcome.BlockPalette {
		c.palette[d.ID] = d
	}

	go c.readLoop()
	return c, nil
}

func (c *Client) AgentID() string   { return c.agentID }
func (c *Client) SessionID() string { return c.sessionID }

// WaitObs blocks until at least one observation has been applied.
func (c *Client) WaitObs(ctx context.Context) error {
	tick := func() uint64 {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.tick
	}
	for tick() == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return fmt.Errorf("connection closed")
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if c.log != nil {
				c.log.Printf("ws read: %v", err)
			}
			c.failPending()
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeObs:
			var obs protocol.ObsMsg
			if err := json.Unmarshal(msg, &obs); err != nil {
				continue
			}
			c.applyObs(&obs)
		case protocol.TypeAck:
			var ack protocol.AckMsg
			if err := json.Unmarshal(msg, &ack); err != nil {
				continue
			}
			if !ack.Accepted {
				c.resolve(ack.AckFor, protocol.TaskResult{ID: ack.AckFor, OK: false, Code: ack.Code, Message: ack.Message})
			}
		}
	}
}

func (c *Client) applyObs(obs *protocol.ObsMsg) {
	c.mu.Lock()
	c.tick = obs.Tick
	c.pos = nav.Vec3{X: obs.Self.Pos[0], Y: obs.Self.Pos[1], Z: obs.Self.Pos[2]}

	c.inv = c.inv[:0]
	for _, s := range obs.Inventory {
		c.inv = append(c.inv, nav.Item{Name: s.Item, Count: s.Count})
	}

	if obs.Voxels.Encoding == "FULL" {
		c.voxels = make(map[nav.Vec3i]voxelCell, len(obs.Voxels.Ops))
	}
	center := nav.Vec3i{X: obs.Voxels.Center[0], Y: obs.Voxels.Center[1], Z: obs.Voxels.Center[2]}
	for _, op := range obs.Voxels.Ops {
		p := center.Add(nav.Vec3i{X: op.D[0], Y: op.D[1], Z: op.D[2]})
		c.voxels[p] = voxelCell{b: op.B, l: op.L}
	}

	c.entities = make(map[string]nav.Vec3, len(obs.Entities))
	for _, e := range obs.Entities {
		c.entities[e.ID] = nav.Vec3{X: e.Pos[0], Y: e.Pos[1], Z: e.Pos[2]}
	}
	c.mu.Unlock()

	for _, res := range obs.Results {
		c.resolve(res.ID, res)
	}
}

// EntityPos returns the last observed position of an entity.
func (c *Client) EntityPos(id string) (nav.Vec3, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entities[id]
	return p, ok
}

// --- nav.World ---

func (c *Client) BlockAt(p nav.Vec3i) nav.BlockInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cell, ok := c.voxels[p]
	if !ok {
		// Outside the observed volume. Treat as open sky so the planners
		// prefer known terrain over speculative digging.
		return nav.BlockInfo{Name: "air", Skylight: 15}
	}
	def, ok := c.palette[cell.b]
	if !ok {
		return nav.BlockInfo{Name: "air", Skylight: int(cell.l)}
	}
	return nav.BlockInfo{
		Name:     def.Name,
		Liquid:   def.Liquid,
		Source:   def.Source,
		Diggable: def.Diggable,
		Skylight: int(cell.l),
	}
}

func (c *Client) FindNearest(pred func(nav.Vec3i, nav.BlockInfo) bool, radius, limit int) []nav.Vec3i {
	c.mu.RLock()
	feet := c.pos.Floor()
	cells := make([]nav.Vec3i, 0, len(c.voxels))
	for p := range c.voxels {
		if nav.Chebyshev(p, feet) <= radius {
			cells = append(cells, p)
		}
	}
	c.mu.RUnlock()

	var out []nav.Vec3i
	for _, p := range cells {
		if pred(p, c.BlockAt(p)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return nav.Manhattan(out[i], feet) < nav.Manhattan(out[j], feet)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (c *Client) Position() nav.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pos
}

func (c *Client) Inventory() []nav.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]nav.Item, len(c.inv))
	copy(out, c.inv)
	return out
}

// SetProtectedRegions declares block regions every subsequent move task asks
// the server-side planner to leave intact, typically the agent's structure.
func (c *Client) SetProtectedRegions(boxes []protocol.Box) {
	c.mu.Lock()
	c.protected = append([]protocol.Box(nil), boxes...)
	c.mu.Unlock()
}

// --- nav.Actuator ---

func (c *Client) Move(ctx context.Context, g nav.Goal, prof *nav.Profile) error {
	task := protocol.TaskReq{ID: c.nextID("move")}
	switch goal := g.(type) {
	case nav.GoalNear:
		task.Type = protocol.TaskMoveNear
		task.Target = goal.Pos.ToArray()
		task.Radius = goal.Radius
	case nav.GoalXZ:
		feet := c.Position().Floor()
		task.Type = protocol.TaskMoveTo
		task.Target = [3]int{goal.X, feet.Y, goal.Z}
	case nav.GoalFollow:
		task.Type = protocol.TaskFollow
		task.EntityID = goal.EntityID
		task.Radius = goal.Radius
	default:
		return fmt.Errorf("%s: goal %T not expressible on the wire", protocol.ErrBadRequest, g)
	}
	if prof != nil {
		task.AllowDig = prof.DigCost > 0
		task.AllowPlace = prof.PlaceCost > 0
		task.AllowSwim = prof.LiquidCost > 0
		task.MaxDrop = prof.MaxDrop
		if len(prof.DenyBreak) > 0 {
			names := make([]string, 0, len(prof.DenyBreak))
			for name := range prof.DenyBreak {
				names = append(names, name)
			}
			sort.Strings(names)
			task.DenyBreak = names
		}
	}
	c.mu.RLock()
	task.NoBreakIn = append([]protocol.Box(nil), c.protected...)
	c.mu.RUnlock()
	return c.awaitTask(ctx, task)
}

func (c *Client) Dig(ctx context.Context, block nav.Vec3i) error {
	return c.awaitTask(ctx, protocol.TaskReq{
		ID:     c.nextID("dig"),
		Type:   protocol.TaskDig,
		Target: block.ToArray(),
	})
}

func (c *Client) Place(ctx context.Context, ref nav.Vec3i, face nav.Vec3i) error {
	c.mu.RLock()
	item := c.equipped
	c.mu.RUnlock()
	return c.awaitTask(ctx, protocol.TaskReq{
		ID:     c.nextID("place"),
		Type:   protocol.TaskPlace,
		Target: ref.ToArray(),
		Face:   face.ToArray(),
		Item:   item,
	})
}

func (c *Client) Equip(ctx context.Context, item string) error {
	c.mu.Lock()
	c.equipped = item
	c.mu.Unlock()
	return c.instant(protocol.InstantReq{ID: c.nextID("equip"), Type: protocol.InstantEquip, Item: item})
}

func (c *Client) Activate(ctx context.Context, block nav.Vec3i) error {
	return c.instant(protocol.InstantReq{ID: c.nextID("act"), Type: protocol.InstantActivate, Target: block.ToArray()})
}

func (c *Client) LookAt(p nav.Vec3) {
	_ = c.instant(protocol.InstantReq{ID: c.nextID("look"), Type: protocol.InstantLook, Target: p.Floor().ToArray()})
}

func (c *Client) Jump(on bool) {
	_ = c.instant(protocol.InstantReq{ID: c.nextID("jump"), Type: protocol.InstantJump, On: on})
}

func (c *Client) Forward(on bool) {
	_ = c.instant(protocol.InstantReq{ID: c.nextID("fwd"), Type: protocol.InstantForward, On: on})
}

func (c *Client) Sprint(on bool) {
	_ = c.instant(protocol.InstantReq{ID: c.nextID("sprint"), Type: protocol.InstantSprint, On: on})
}

func (c *Client) Stop() {
	ids := c.cancelPending()
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		AgentID:         c.agentID,
		Instants:        []protocol.InstantReq{{ID: c.nextID("stop"), Type: protocol.InstantStop}},
		Cancel:          ids,
	}
	_ = c.send(act)
}

// --- plumbing ---

func (c *Client) nextID(kind string) string {
	return fmt.Sprintf("%s_%d", kind, c.seq.Add(1))
}

func (c *Client) instant(req protocol.InstantReq) error {
	return c.send(protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		AgentID:         c.agentID,
		Instants:        []protocol.InstantReq{req},
	})
}

func (c *Client) awaitTask(ctx context.Context, task protocol.TaskReq) error {
	ch := make(chan protocol.TaskResult, 1)
	c.pendMu.Lock()
	c.pending[task.ID] = ch
	c.pendMu.Unlock()
	defer func() {
		c.pendMu.Lock()
		delete(c.pending, task.ID)
		c.pendMu.Unlock()
	}()

	err := c.send(protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		AgentID:         c.agentID,
		Tasks:           []protocol.TaskReq{task},
	})
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		_ = c.send(protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			AgentID:         c.agentID,
			Cancel:          []string{task.ID},
		})
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("connection closed")
	case res := <-ch:
		if res.OK {
			return nil
		}
		code := res.Code
		if code == "" {
			code = protocol.ErrInternal
		}
		return fmt.Errorf("%s: %s %s", task.Type, code, res.Message)
	}
}

func (c *Client) resolve(id string, res protocol.TaskResult) {
	c.pendMu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendMu.Unlock()
	if ok {
		ch <- res
	}
}

func (c *Client) cancelPending() []string {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	ids := make([]string, 0, len(c.pending))
	for id, ch := range c.pending {
		ids = append(ids, id)
		ch <- protocol.TaskResult{ID: id, OK: false, Code: protocol.ErrStale, Message: "cancelled"}
		delete(c.pending, id)
	}
	return ids
}

func (c *Client) failPending() {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	for id, ch := range c.pending {
		ch <- protocol.TaskResult{ID: id, OK: false, Code: protocol.ErrInternal, Message: "connection lost"}
		delete(c.pending, id)
	}
}

func (c *Client) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeJSON(c.conn, v)
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
