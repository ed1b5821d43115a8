package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pathcraft.ai/internal/nav"
	"pathcraft.ai/internal/protocol"
)

// fakeServer upgrades one connection, answers the handshake, streams a first
// observation, and completes every task it is sent. Received tasks are copied
// to sink when one is given.
func fakeServer(t *testing.T, sink chan<- protocol.TaskReq) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var hello protocol.HelloMsg
		if err := json.Unmarshal(msg, &hello); err != nil || hello.Type != protocol.TypeHello {
			t.Errorf("expected HELLO, got %q", string(msg))
			return
		}

		welcome := protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SessionID:       "S1",
			AgentID:         "A1",
			WorldParams:     protocol.WorldParams{TickRateHz: 5, Height: 256, ObsRadius: 7},
			BlockPalette: []protocol.BlockDef{
				{ID: 0, Name: "air", Passable: true},
				{ID: 1, Name: "stone", Diggable: true},
				{ID: 2, Name: "water", Liquid: true, Source: true},
			},
		}
		_ = conn.WriteJSON(welcome)

		obs := protocol.ObsMsg{
			Type:            protocol.TypeObs,
			ProtocolVersion: protocol.Version,
			Tick:            1,
			AgentID:         "A1",
			Self:            protocol.SelfObs{Pos: [3]float64{0.5, 65, 0.5}, OnGround: true},
			Inventory:       []protocol.ItemStack{{Item: "cobblestone", Count: 12}},
			Voxels: protocol.VoxelsObs{
				Center:   [3]int{0, 65, 0},
				Radius:   7,
				Encoding: "FULL",
				Ops: []protocol.VoxelOp{
					{D: [3]int{0, -1, 0}, B: 1, L: 0},
					{D: [3]int{1, -1, 0}, B: 1, L: 0},
					{D: [3]int{2, 0, 0}, B: 2, L: 15},
					{D: [3]int{0, 0, 0}, B: 0, L: 15},
				},
			},
			Entities: []protocol.EntityObs{{ID: "Z9", Type: "AGENT", Pos: [3]float64{4, 65, 4}}},
		}
		_ = conn.WriteJSON(obs)

		tick := uint64(1)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var act protocol.ActMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				continue
			}
			if len(act.Tasks) == 0 {
				continue
			}
			tick++
			next := obs
			next.Tick = tick
			next.Voxels.Encoding = "DELTA"
			next.Voxels.Ops = nil
			for _, task := range act.Tasks {
				if sink != nil {
					select {
					case sink <- task:
					default:
					}
				}
				switch task.Type {
				case protocol.TaskMoveNear, protocol.TaskMoveTo:
					next.Self.Pos = [3]float64{
						float64(task.Target[0]) + 0.5,
						float64(task.Target[1]),
						float64(task.Target[2]) + 0.5,
					}
					next.Results = append(next.Results, protocol.TaskResult{ID: task.ID, OK: true})
				case protocol.TaskDig:
					next.Results = append(next.Results, protocol.TaskResult{
						ID: task.ID, OK: false, Code: protocol.ErrInvalidTarget, Message: "not diggable",
					})
				default:
					next.Results = append(next.Results, protocol.TaskResult{ID: task.ID, OK: true})
				}
			}
			_ = conn.WriteJSON(next)
		}
	}))
}

func dialTest(t *testing.T) *Client {
	t.Helper()
	c, _ := dialTestCapture(t)
	return c
}

func dialTestCapture(t *testing.T) (*Client, <-chan protocol.TaskReq) {
	t.Helper()
	tasks := make(chan protocol.TaskReq, 16)
	srv := fakeServer(t, tasks)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(url, "tester", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(c.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitObs(ctx); err != nil {
		t.Fatalf("wait obs: %v", err)
	}
	return c, tasks
}

func TestClient_WorldView(t *testing.T) {
	c := dialTest(t)

	if c.AgentID() != "A1" || c.SessionID() != "S1" {
		t.Fatalf("handshake identity: %q %q", c.AgentID(), c.SessionID())
	}

	ground := c.BlockAt(nav.Vec3i{Y: 64})
	if ground.Name != "stone" || !ground.Diggable {
		t.Fatalf("ground block: %+v", ground)
	}
	wet := c.BlockAt(nav.Vec3i{X: 2, Y: 65})
	if !wet.Liquid || !wet.Source {
		t.Fatalf("water block: %+v", wet)
	}
	// Unobserved cells read as open sky.
	far := c.BlockAt(nav.Vec3i{X: 100, Y: 65, Z: 100})
	if !far.Passable() || far.Skylight != 15 {
		t.Fatalf("unobserved cell: %+v", far)
	}

	inv := c.Inventory()
	if len(inv) != 1 || inv[0].Name != "cobblestone" || inv[0].Count != 12 {
		t.Fatalf("inventory: %+v", inv)
	}

	found := c.FindNearest(func(p nav.Vec3i, b nav.BlockInfo) bool {
		return b.Liquid
	}, 8, 4)
	if len(found) != 1 || found[0] != (nav.Vec3i{X: 2, Y: 65}) {
		t.Fatalf("find nearest water: %v", found)
	}

	if pos, ok := c.EntityPos("Z9"); !ok || pos.X != 4 {
		t.Fatalf("entity pos: %v %v", pos, ok)
	}
}

func TestClient_MoveCompletes(t *testing.T) {
	c := dialTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	target := nav.Vec3i{X: 5, Y: 65, Z: 5}
	if err := c.Move(ctx, nav.GoalNear{Pos: target, Radius: 1}, nav.Conservative()); err != nil {
		t.Fatalf("move: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Position().Floor().X == 5 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("position not updated after move: %v", c.Position())
}

func TestClient_MoveCarriesProfileConstraints(t *testing.T) {
	c, tasks := dialTestCapture(t)

	region := protocol.Box{Min: [3]int{-5, 60, -5}, Max: [3]int{5, 70, 5}}
	c.SetProtectedRegions([]protocol.Box{region})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prof := nav.Conservative()
	if err := c.Move(ctx, nav.GoalNear{Pos: nav.Vec3i{X: 5, Y: 65, Z: 5}, Radius: 1}, prof); err != nil {
		t.Fatalf("move: %v", err)
	}

	var task protocol.TaskReq
	select {
	case task = <-tasks:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never saw the move task")
	}
	if task.MaxDrop != prof.MaxDrop {
		t.Fatalf("max drop %d should reach the wire, got %+v", prof.MaxDrop, task)
	}
	if len(task.DenyBreak) != len(prof.DenyBreak) {
		t.Fatalf("deny list should reach the wire: %v", task.DenyBreak)
	}
	if !sort.StringsAreSorted(task.DenyBreak) {
		t.Fatalf("deny list should be sorted for stable requests: %v", task.DenyBreak)
	}
	for _, name := range task.DenyBreak {
		if _, ok := prof.DenyBreak[name]; !ok {
			t.Fatalf("%q on the wire but not in the profile deny set", name)
		}
	}
	if len(task.NoBreakIn) != 1 || task.NoBreakIn[0] != region {
		t.Fatalf("protected region should reach the wire: %+v", task.NoBreakIn)
	}
}

func TestClient_TaskFailureCarriesCode(t *testing.T) {
	c := dialTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Dig(ctx, nav.Vec3i{Y: 64})
	if err == nil {
		t.Fatalf("dig should fail")
	}
	if !strings.Contains(err.Error(), protocol.ErrInvalidTarget) {
		t.Fatalf("error should carry code: %v", err)
	}
}
