package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"surge/internal/core"
	"surge/internal/stats"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func sampleAggregator() *stats.Aggregator {
	a := stats.New("abc-123", core.NewFakeClock(time.Unix(0, 0)))
	a.ScenarioStarted("checkout")
	for i := 0; i < 5; i++ {
		a.Record(stats.Outcome{Scenario: "checkout", Step: "pull", Ok: true, Latency: 100 * time.Millisecond, SizeBytes: 2048})
	}
	a.Record(stats.Outcome{Scenario: "checkout", Step: "pull", Ok: false, Latency: 300 * time.Millisecond})
	a.ScenarioFinished("checkout", 10*time.Second)
	return a
}

func TestFormatText(t *testing.T) {
	var sb strings.Builder
	FormatText(&sb, sampleAggregator().Snapshot())
	out := sb.String()

	for _, want := range []string{"abc-123", "checkout", "pull", "ok=5", "fail=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestFormatText_EmptyRun(t *testing.T) {
	var sb strings.Builder
	a := stats.New("abc-123", core.NewFakeClock(time.Unix(0, 0)))
	FormatText(&sb, a.Snapshot())
	if !strings.Contains(sb.String(), "No step outcomes") {
		t.Errorf("expected empty-run notice, got:\n%s", sb.String())
	}
}

func TestFormatJSON(t *testing.T) {
	var sb strings.Builder
	FormatJSON(&sb, sampleAggregator().Snapshot())

	var decoded stats.NodeStats
	if err := json.Unmarshal([]byte(sb.String()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.SessionID != "abc-123" || decoded.AllOkCount != 5 {
		t.Errorf("unexpected decoded snapshot: %+v", decoded)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500us"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("%v: expected %q, got %q", tt.d, tt.want, got)
		}
	}
}

func TestConsoleSink(t *testing.T) {
	var sb strings.Builder
	sink := NewConsoleSink(&sb)
	if err := sink.Push(context.Background(), sampleAggregator().Snapshot()); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "requests: 6") || !strings.Contains(out, "errors: 1") {
		t.Errorf("unexpected progress line: %s", out)
	}
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)
	node := sampleAggregator().Snapshot()

	if err := sink.Push(context.Background(), node); err != nil {
		t.Fatal(err)
	}
	if err := sink.Push(context.Background(), node); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "surge-abc-123.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 snapshot lines, got %d", len(lines))
	}
	var decoded stats.NodeStats
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
}

type countingSink struct {
	pushes atomic.Int32
	fail   bool
}

func (s *countingSink) Name() string { return "counting" }

func (s *countingSink) Push(_ context.Context, _ *stats.NodeStats) error {
	s.pushes.Add(1)
	if s.fail {
		return errors.New("sink unavailable")
	}
	return nil
}

func TestPusher_PushesOnIntervalAndOnStop(t *testing.T) {
	sink := &countingSink{}
	p := NewPusher(sampleAggregator(), []Sink{sink}, 50*time.Millisecond, testLogger())

	p.Start(context.Background())
	time.Sleep(180 * time.Millisecond)
	p.Stop(context.Background())

	// At least two interval pushes plus the final one.
	if got := sink.pushes.Load(); got < 3 {
		t.Errorf("expected >= 3 pushes, got %d", got)
	}
}

func TestPusher_SinkFailuresDoNotStopOthers(t *testing.T) {
	failing := &countingSink{fail: true}
	healthy := &countingSink{}
	p := NewPusher(sampleAggregator(), []Sink{failing, healthy}, time.Hour, testLogger())

	p.Start(context.Background())
	p.Stop(context.Background())

	if failing.pushes.Load() != 1 || healthy.pushes.Load() != 1 {
		t.Errorf("expected both sinks pushed once, got %d/%d",
			failing.pushes.Load(), healthy.pushes.Load())
	}
}

func TestPusher_StopIsIdempotent(t *testing.T) {
	sink := &countingSink{}
	p := NewPusher(sampleAggregator(), []Sink{sink}, time.Hour, testLogger())
	p.Start(context.Background())
	p.Stop(context.Background())
	p.Stop(context.Background())
	if sink.pushes.Load() != 1 {
		t.Errorf("expected a single final push, got %d", sink.pushes.Load())
	}
}
