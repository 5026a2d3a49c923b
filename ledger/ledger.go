package ledger

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrAlreadyRecorded is returned by Record when the job already has an entry.
	ErrAlreadyRecorded = errors.New("ledger: job already recorded")
	// ErrInvalidJobID is returned by StoreLedger for ids that are not a single
	// path element.
	ErrInvalidJobID = errors.New("ledger: invalid job id")
)

// Entry describes one completed job.
type Entry struct {
	JobID       string    `json:"job_id"`
	RunID       string    `json:"run_id,omitempty"`
	Output      string    `json:"output"`
	Matched     int       `json:"matched"`
	Total       int       `json:"total"`
	Fraction    float64   `json:"fraction"`
	CompletedAt time.Time `json:"completed_at"`
}

// Ledger stores completed jobs.
// Implementations must be safe for concurrent use.
type Ledger interface {
	// Lookup returns the entry for id and whether it exists.
	Lookup(ctx context.Context, id string) (Entry, bool, error)
	// Record stores e. It returns ErrAlreadyRecorded if e.JobID is taken.
	Record(ctx context.Context, e Entry) error
}

// MemoryLedger is an in-memory Ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]Entry)}
}

// Lookup implements Ledger.
func (l *MemoryLedger) Lookup(_ context.Context, id string) (Entry, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[id]
	return e, ok, nil
}

// Record implements Ledger.
func (l *MemoryLedger) Record(_ context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[e.JobID]; ok {
		return ErrAlreadyRecorded
	}
	l.entries[e.JobID] = e
	return nil
}

// Forget removes the entry for id.
func (l *MemoryLedger) Forget(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, id)
}

// Len returns the number of recorded jobs.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
