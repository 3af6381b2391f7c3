package core

import (
	"sync"
	"time"
)

// DefaultHistorySize is how many finished runs the history keeps.
const DefaultHistorySize = 100

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord describes one finished export or import.
type RunRecord struct {
	ID        string        `json:"id"`
	Kind      RunKind       `json:"kind"`
	Format    string        `json:"format"`
	Tables    []string      `json:"tables,omitempty"`
	Status    RunStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	Code      string        `json:"code,omitempty"`
	DryRun    bool          `json:"dry_run,omitempty"`
	IPAddress string        `json:"ip_address,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// RunHistory keeps the most recent runs in a fixed-size ring.
type RunHistory struct {
	mu      sync.RWMutex
	records []RunRecord
	next    int
	full    bool
}

// NewRunHistory returns a history holding up to size runs.
func NewRunHistory(size int) *RunHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &RunHistory{records: make([]RunRecord, size)}
}

// Add records a finished run, evicting the oldest when full.
func (h *RunHistory) Add(rec RunRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[h.next] = rec
	h.next = (h.next + 1) % len(h.records)
	if h.next == 0 {
		h.full = true
	}
}

// Recent returns up to limit runs, newest first. A limit of zero or less
// returns every kept run.
func (h *RunHistory) Recent(limit int) []RunRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.records)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]RunRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.next - 1 - i + len(h.records)) % len(h.records)
		out = append(out, h.records[idx])
	}
	return out
}

// Get returns the run with the given ID if it is still kept.
func (h *RunHistory) Get(id string) (RunRecord, bool) {
	for _, rec := range h.Recent(0) {
		if rec.ID == id {
			return rec, true
		}
	}
	return RunRecord{}, false
}
