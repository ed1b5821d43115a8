package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"pathcraft.ai/internal/nav"
	"pathcraft.ai/internal/nav/tuning"
	"pathcraft.ai/internal/persistence/navdb"
	"pathcraft.ai/internal/persistence/navlog"
	"pathcraft.ai/internal/persistence/structfile"
	"pathcraft.ai/internal/protocol"
	"pathcraft.ai/internal/transport/ws"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "navbot", "agent name")
		dataDir    = flag.String("data", "./data", "data directory (trace logs, session index, structures)")
		tunePath   = flag.String("tuning", "", "optional tuning yaml")
		schemaPath = flag.String("schema", "./schemas/structure.schema.json", "structure descriptor schema")

		goalX  = flag.Int("x", 0, "goal x")
		goalY  = flag.Int("y", 64, "goal y")
		goalZ  = flag.Int("z", 0, "goal z")
		radius = flag.Float64("radius", 2, "goal radius")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[navbot] ", log.LstdFlags|log.Lmicroseconds)

	params := nav.DefaultParams()
	if *tunePath != "" {
		cfg, err := tuning.Load(*tunePath)
		if err != nil {
			logger.Fatalf("tuning: %v", err)
		}
		params = cfg.Params()
	}

	client, err := ws.Dial(*url, *name, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := client.WaitObs(ctx); err != nil {
		logger.Fatalf("first observation: %v", err)
	}
	logger.Printf("joined agent_id=%s session=%s pos=%v", client.AgentID(), client.SessionID(), client.Position())

	db, err := navdb.Open(filepath.Join(*dataDir, "nav.db"))
	if err != nil {
		logger.Fatalf("session index: %v", err)
	}
	defer db.Close()
	session := db.BeginSession(client.AgentID(), *url)
	defer db.EndSession(session)

	tracer := navlog.NewTraceLogger(*dataDir, session, client.AgentID())
	defer tracer.Close()

	structs, err := structfile.Open(filepath.Join(*dataDir, "structures"), *schemaPath)
	if err != nil {
		logger.Fatalf("structure store: %v", err)
	}
	desc, err := structs.Load(client.AgentID())
	if err != nil {
		logger.Fatalf("structure descriptor: %v", err)
	}
	if desc != nil {
		logger.Printf("guarding structure at (%d,%d)-(%d,%d)", desc.Bounds.X1, desc.Bounds.Z1, desc.Bounds.X2, desc.Bounds.Z2)
		// Server-side move planning must respect the structure too.
		client.SetProtectedRegions([]protocol.Box{{
			Min: [3]int{desc.Bounds.X1, desc.Bounds.Y, desc.Bounds.Z1},
			Max: [3]int{desc.Bounds.X2, desc.Bounds.RoofY, desc.Bounds.Z2},
		}})
	}

	nc := nav.NewContext(client, client, nav.NewGuard(desc), params)
	nc.Trace = tracer

	// Cancel navigation on interrupt; the supervisor reports E_INTERRUPTED.
	go func() {
		<-ctx.Done()
		nc.Cancel()
	}()

	target := nav.Vec3i{X: *goalX, Y: *goalY, Z: *goalZ}
	start := time.Now()
	out := nc.GoToPosition(target, *radius)
	db.RecordOutcome(session, "goto", target, out, time.Since(start))

	if out.Reached {
		logger.Printf("reached %v (distance=%.1f, profile=%s, %s)", target, out.Distance, out.Profile, time.Since(start).Round(time.Millisecond))
		return
	}
	logger.Printf("failed to reach %v: %s (distance=%.1f)", target, out.Cause, out.Distance)
	os.Exit(1)
}
