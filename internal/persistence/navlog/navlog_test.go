package navlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"pathcraft.ai/internal/nav"
)

func TestTraceLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTraceLogger(dir, "S1", "A1")

	l.Event(nav.TraceEvent{Op: "goto", From: [3]int{0, 64, 0}, To: [3]int{10, 64, 10}, Profile: "conservative"})
	l.Event(nav.TraceEvent{Op: "escape_vertical", Cause: nav.CauseStuck, From: [3]int{10, 40, 10}})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "traces", "trace-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one trace file, got %v (%v)", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var lines []entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		lines = append(lines, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lines))
	}
	if lines[0].SessionID != "S1" || lines[0].AgentID != "A1" {
		t.Fatalf("identity not recorded: %+v", lines[0])
	}
	if lines[0].Event.Op != "goto" || lines[0].Event.Profile != "conservative" {
		t.Fatalf("first event: %+v", lines[0].Event)
	}
	if lines[1].Event.Cause != nav.CauseStuck {
		t.Fatalf("second event cause: %+v", lines[1].Event)
	}
}
