package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"surge/internal/stats"
)

// Sink receives periodic NodeStats snapshots during the run and the final
// snapshot at session end.
type Sink interface {
	Name() string
	Push(ctx context.Context, node *stats.NodeStats) error
}

// ConsoleSink prints a compact progress line per snapshot.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleSink{w: w}
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Push(_ context.Context, node *stats.NodeStats) error {
	total := node.AllOkCount + node.AllFailCount
	errorRate := 0.0
	if total > 0 {
		errorRate = float64(node.AllFailCount) / float64(total) * 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "[%s] requests: %s | errors: %s (%.1f%%) | data: %.2f MB\n",
		node.Timestamp.Format("15:04:05"),
		formatNumber(total), formatNumber(node.AllFailCount), errorRate, node.AllDataMB)
	return err
}

// FileSink appends each snapshot as one JSON line to a file in the report
// directory. The file is created lazily on the first push.
type FileSink struct {
	mu   sync.Mutex
	dir  string
	file *os.File
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Push(_ context.Context, node *stats.NodeStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return err
		}
		name := fmt.Sprintf("surge-%s.jsonl", node.SessionID)
		f, err := os.Create(filepath.Join(s.dir, name))
		if err != nil {
			return err
		}
		s.file = f
	}
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	_, err = s.file.Write(append(data, '\n'))
	return err
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// DefaultSendInterval is used when the reporting config omits an interval.
const DefaultSendInterval = 10 * time.Second
