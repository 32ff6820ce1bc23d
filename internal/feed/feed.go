// Package feed provides lazy data streams that deliver per-step inputs to
// virtual users.
package feed

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Mode defines how items are selected on each pull.
type Mode string

const (
	// ModeCircular iterates through items in order, wrapping around.
	ModeCircular Mode = "circular"
	// ModeRandom selects a random item for each pull.
	ModeRandom Mode = "random"
)

// Feed is a thread-safe item source shared by all virtual users of a step.
type Feed struct {
	name    string
	items   []any
	mode    Mode
	counter atomic.Uint64
	mu      sync.Mutex
	rng     *rand.Rand
}

// New creates a feed over the given items.
func New(name string, items []any, mode Mode) *Feed {
	if mode == "" {
		mode = ModeCircular
	}
	return &Feed{
		name:  name,
		items: items,
		mode:  mode,
		rng:   rand.New(rand.NewSource(rand.Int63())),
	}
}

// Circular creates a wrapping sequential feed.
func Circular(name string, items ...any) *Feed {
	return New(name, items, ModeCircular)
}

// Random creates a feed that picks a random item per pull.
func Random(name string, items ...any) *Feed {
	return New(name, items, ModeRandom)
}

// Name returns the feed name.
func (f *Feed) Name() string { return f.name }

// Len returns the number of items.
func (f *Feed) Len() int { return len(f.items) }

// Pull returns the next item based on the feed mode. Safe for concurrent
// use by many virtual users; an empty feed yields nil.
func (f *Feed) Pull() any {
	if len(f.items) == 0 {
		return nil
	}

	var idx int
	switch f.mode {
	case ModeRandom:
		f.mu.Lock()
		idx = f.rng.Intn(len(f.items))
		f.mu.Unlock()
	default:
		n := f.counter.Add(1) - 1
		idx = int(n % uint64(len(f.items)))
	}

	return f.items[idx]
}

// FromFile loads a feed from a CSV or JSON file. CSV rows become
// map[string]any keyed by the header row; JSON must be an array of objects.
func FromFile(name, path string, mode Mode) (*Feed, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var rows []map[string]any
	var err error

	switch ext {
	case ".csv":
		rows, err = loadCSV(path)
	case ".json":
		rows, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported feed file format %q (use .csv or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("loading feed %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("feed file %s is empty", path)
	}

	items := make([]any, len(rows))
	for i, row := range rows {
		items[i] = row
	}
	return New(name, items, mode), nil
}

func loadCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have a header row and at least one data row")
	}

	headers := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func loadJSON(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("JSON must be an array of objects: %w", err)
	}
	return rows, nil
}
