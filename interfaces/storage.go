package interfaces

import (
	"context"
	"time"
)

// CycleRecord is the persisted outcome of one poll cycle. It never
// contains fetched financial data.
type CycleRecord struct {
	ID         string         `json:"id"`
	Instance   string         `json:"instance"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	RangeStart time.Time      `json:"range_start"`
	RangeEnd   time.Time      `json:"range_end"`
	Counts     map[string]int `json:"counts,omitempty"`
}

// Duration is the wall time the cycle took.
func (r CycleRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// HistoryStore records poll cycle outcomes
type HistoryStore interface {
	// RecordCycle stores one cycle outcome
	RecordCycle(ctx context.Context, rec CycleRecord) error

	// RecentCycles returns up to limit records for instance, newest first
	RecentCycles(ctx context.Context, instance string, limit int) ([]CycleRecord, error)

	// LastSuccess returns the finish time of the last successful cycle
	LastSuccess(ctx context.Context, instance string) (time.Time, error)

	// Close closes the storage connection
	Close() error
}
