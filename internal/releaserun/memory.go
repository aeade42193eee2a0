package releaserun

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is the in-process Ledger used alongside the in-memory wish store.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]Record
	nowFunc func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: map[string]Record{}, nowFunc: time.Now}
}

func (m *MemoryLedger) Begin(ctx context.Context, key, trigger string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	now := m.nowFunc()
	m.records[key] = Record{
		RunKey:    key,
		Status:    StatusInProgress,
		Trigger:   trigger,
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return true, nil
}

func (m *MemoryLedger) Get(ctx context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryLedger) Retry(ctx context.Context, key, trigger string) error {
	return m.update(key, func(r *Record) {
		r.Status = StatusInProgress
		r.Trigger = trigger
		r.Attempts++
	})
}

func (m *MemoryLedger) MarkDone(ctx context.Context, key string, updated int) error {
	return m.update(key, func(r *Record) {
		r.Status = StatusDone
		r.Updated += updated
		r.Note = ""
	})
}

func (m *MemoryLedger) MarkFailed(ctx context.Context, key string, updated int, note string) error {
	return m.update(key, func(r *Record) {
		r.Status = StatusFailed
		r.Updated += updated
		r.Note = note
	})
}

// update upserts, mirroring DynamoDB UpdateItem.
func (m *MemoryLedger) update(key string, fn func(*Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		rec = Record{RunKey: key, CreatedAt: m.nowFunc()}
	}
	fn(&rec)
	rec.UpdatedAt = m.nowFunc()
	m.records[key] = rec
	return nil
}

var _ Ledger = (*MemoryLedger)(nil)
