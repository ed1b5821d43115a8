// Package navdb keeps a queryable index of navigation sessions and their
// outcomes in SQLite. Writes go through a single writer goroutine; the
// trace logs remain the source of truth, so a full queue drops rows rather
// than stalling navigation.
package navdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pathcraft.ai/internal/nav"
)

type DB struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqSession reqKind = iota + 1
	reqSessionEnd
	reqOutcome
)

type req struct {
	kind reqKind

	session sessionRow
	outcome outcomeRow
}

type sessionRow struct {
	SessionID string
	AgentID   string
	ServerURL string
	StartedAt string
	EndedAt   string
}

type outcomeRow struct {
	SessionID  string
	Op         string
	Target     [3]int
	Reached    bool
	Distance   float64
	Cause      string
	Profile    string
	DurationMs int64
	RecordedAt string
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	d := &DB{
		db: db,
		ch: make(chan req, 4096),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			server_url TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_agent ON sessions(agent_id, started_at);`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			op TEXT NOT NULL,
			target_x INTEGER NOT NULL,
			target_y INTEGER NOT NULL,
			target_z INTEGER NOT NULL,
			reached INTEGER NOT NULL,
			distance REAL NOT NULL,
			cause TEXT,
			profile TEXT,
			duration_ms INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_cause ON outcomes(cause, recorded_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Close() error {
	var err error
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
		err = d.db.Close()
	})
	return err
}

// BeginSession registers a new session and returns its id.
func (d *DB) BeginSession(agentID, serverURL string) string {
	id := uuid.NewString()
	if d == nil || d.closed.Load() {
		return id
	}
	r := sessionRow{
		SessionID: id,
		AgentID:   agentID,
		ServerURL: serverURL,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case d.ch <- req{kind: reqSession, session: r}:
	default:
	}
	return id
}

func (d *DB) EndSession(sessionID string) {
	if d == nil || d.closed.Load() {
		return
	}
	r := sessionRow{
		SessionID: sessionID,
		EndedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case d.ch <- req{kind: reqSessionEnd, session: r}:
	default:
	}
}

// RecordOutcome indexes one finished top-level operation.
func (d *DB) RecordOutcome(sessionID, op string, target nav.Vec3i, out nav.Outcome, dur time.Duration) {
	if d == nil || d.closed.Load() {
		return
	}
	r := outcomeRow{
		SessionID:  sessionID,
		Op:         op,
		Target:     target.ToArray(),
		Reached:    out.Reached,
		Distance:   out.Distance,
		Cause:      out.Cause,
		Profile:    out.Profile,
		DurationMs: dur.Milliseconds(),
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case d.ch <- req{kind: reqOutcome, outcome: r}:
	default:
	}
}

// SessionSummary is the read-side row for queries.
type SessionSummary struct {
	SessionID string
	AgentID   string
	ServerURL string
	StartedAt string
	EndedAt   string
	Outcomes  int
	Reached   int
}

// RecentSessions lists sessions newest first.
func (d *DB) RecentSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT s.session_id, s.agent_id, s.server_url, s.started_at, COALESCE(s.ended_at, ''),
		       COUNT(o.session_id), COALESCE(SUM(o.reached), 0)
		FROM sessions s
		LEFT JOIN outcomes o ON o.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.SessionID, &s.AgentID, &s.ServerURL, &s.StartedAt, &s.EndedAt, &s.Outcomes, &s.Reached); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// OutcomeRecord is one indexed operation result.
type OutcomeRecord struct {
	Op         string
	Target     [3]int
	Reached    bool
	Distance   float64
	Cause      string
	Profile    string
	DurationMs int64
}

func (d *DB) SessionOutcomes(ctx context.Context, sessionID string) ([]OutcomeRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT op, target_x, target_y, target_z, reached, distance,
		       COALESCE(cause, ''), COALESCE(profile, ''), duration_ms
		FROM outcomes WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		var r OutcomeRecord
		var reached int
		if err := rows.Scan(&r.Op, &r.Target[0], &r.Target[1], &r.Target[2], &reached, &r.Distance, &r.Cause, &r.Profile, &r.DurationMs); err != nil {
			return nil, err
		}
		r.Reached = reached != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) loop() {
	ctx := context.Background()

	insertSession, _ := d.db.Prepare(`INSERT OR REPLACE INTO sessions(session_id,agent_id,server_url,started_at) VALUES(?,?,?,?)`)
	endSession, _ := d.db.Prepare(`UPDATE sessions SET ended_at=? WHERE session_id=?`)
	insertOutcome, _ := d.db.Prepare(`INSERT OR REPLACE INTO outcomes(session_id,seq,op,target_x,target_y,target_z,reached,distance,cause,profile,duration_ms,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertSession != nil {
			_ = insertSession.Close()
		}
		if endSession != nil {
			_ = endSession.Close()
		}
		if insertOutcome != nil {
			_ = insertOutcome.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 64
		commitMaxWait = 2 * time.Second

		seqBySession = map[string]int{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range d.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSession:
			s := r.session
			if insertSession != nil {
				if _, err := tx.Stmt(insertSession).Exec(s.SessionID, s.AgentID, s.ServerURL, s.StartedAt); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSessionEnd:
			s := r.session
			if endSession != nil {
				if _, err := tx.Stmt(endSession).Exec(s.EndedAt, s.SessionID); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqOutcome:
			o := r.outcome
			seq := seqBySession[o.SessionID]
			seqBySession[o.SessionID] = seq + 1
			if insertOutcome != nil {
				if _, err := tx.Stmt(insertOutcome).Exec(
					o.SessionID,
					seq,
					o.Op,
					o.Target[0], o.Target[1], o.Target[2],
					boolInt(o.Reached),
					o.Distance,
					o.Cause,
					o.Profile,
					o.DurationMs,
					o.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
