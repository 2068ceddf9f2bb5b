package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
)

// ListFilter defines criteria for listing signals.
type ListFilter struct {
	Symbol string
	Action core.Action
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Memory is a bounded in-memory history of published records, newest last.
type Memory struct {
	records []Record
	maxSize int
	mu      sync.RWMutex
}

// NewMemory creates a new in-memory store with max capacity.
func NewMemory(maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Memory{
		records: make([]Record, 0, maxSize),
		maxSize: maxSize,
	}
}

func (m *Memory) Name() string {
	return "memory"
}

// Publish appends the record, dropping the oldest when full.
func (m *Memory) Publish(ctx context.Context, rec Record, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, rec)
	if len(m.records) > m.maxSize {
		m.records = m.records[len(m.records)-m.maxSize:]
	}
	return nil
}

// Get retrieves a signal by ID.
func (m *Memory) Get(id string) (*core.FusedSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if m.records[i].Signal.ID == id {
			sig := m.records[i].Signal
			return &sig, nil
		}
	}
	return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("signal %s", id))
}

// Latest returns the most recent signal per symbol.
func (m *Memory) Latest() map[string]core.FusedSignal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]core.FusedSignal)
	for _, rec := range m.records {
		out[rec.Signal.Symbol] = rec.Signal
	}
	return out
}

// List returns signals matching the filter, oldest first.
func (m *Memory) List(filter ListFilter) []core.FusedSignal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []core.FusedSignal{}
	for _, rec := range m.records {
		if matches(rec.Signal, filter) {
			result = append(result, rec.Signal)
		}
	}

	if filter.Offset >= len(result) {
		return []core.FusedSignal{}
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result
}

// Count returns the count of matching signals.
func (m *Memory) Count(filter ListFilter) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if matches(rec.Signal, filter) {
			count++
		}
	}
	return count
}

func matches(sig core.FusedSignal, filter ListFilter) bool {
	if filter.Symbol != "" && sig.Symbol != filter.Symbol {
		return false
	}
	if filter.Action != "" && sig.Action != filter.Action {
		return false
	}
	if !filter.From.IsZero() && sig.GeneratedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && sig.GeneratedAt.After(filter.To) {
		return false
	}
	return true
}
