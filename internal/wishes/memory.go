package wishes

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps wishes in process. It is meant for local runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	wishes []Wish
	opts   options
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{opts: applyOptions(opts)}
}

// Seed appends wishes as-is.
func (s *MemoryStore) Seed(seed ...Wish) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishes = append(s.wishes, seed...)
}

// SeedDemo adds a handful of demo wishes a minute apart, newest first.
func (s *MemoryStore) SeedDemo() {
	now := s.opts.nowFunc()
	demo := []CreateInput{
		{Nickname: "小王同学", Content: "希望2027年家人身体健康，万事如意！", Gender: GenderSecret},
		{Nickname: "Sunny", Content: "求脱单！求桃花！", Gender: GenderFemale},
		{Nickname: "李大力", Content: "升职加薪，身体健康。", Gender: GenderMale},
		{Nickname: "Chen", Content: "愿新的一年大家都平安喜乐。", Gender: GenderSecret},
	}
	seed := make([]Wish, 0, len(demo))
	for i, row := range demo {
		row.UserID = fmt.Sprintf("seed-%d", i)
		w := newWish(s.opts, row)
		w.CreatedAt = now.Add(-time.Duration(i) * time.Minute).UnixMilli()
		seed = append(seed, w)
	}
	s.Seed(seed...)
}

func (s *MemoryStore) ListByStatus(ctx context.Context, status Status, limit int, token string) (ListResult, error) {
	limit = ClampLimit(limit)

	s.mu.RLock()
	sorted := make([]Wish, 0, len(s.wishes))
	for _, w := range s.wishes {
		if w.Status == status {
			sorted = append(sorted, w)
		}
	}
	s.mu.RUnlock()

	sort.Slice(sorted, func(i, j int) bool { return before(sorted[i], sorted[j]) })

	start := 0
	if c, ok := decodeCursor(token); ok {
		start = sort.Search(len(sorted), func(i int) bool { return c.after(sorted[i]) })
	}
	end := start + limit + 1
	if end > len(sorted) {
		end = len(sorted)
	}
	return pageOf(sorted[start:end], limit), nil
}

func (s *MemoryStore) CountByUserAndStatus(ctx context.Context, userID string, status Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(userID, status), nil
}

func (s *MemoryStore) countLocked(userID string, status Status) int {
	n := 0
	for _, w := range s.wishes {
		if w.UserID == userID && w.Status == status {
			n++
		}
	}
	return n
}

// CreateWish holds the write lock across the quota check and the append, so the
// in-memory backend never overshoots the quota.
func (s *MemoryStore) CreateWish(ctx context.Context, input CreateInput) (Wish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countLocked(input.UserID, StatusActive) >= s.opts.maxActive {
		return Wish{}, ErrQuotaExceeded
	}
	w := newWish(s.opts, input)
	s.wishes = append(s.wishes, w)
	return w, nil
}

func (s *MemoryStore) ReleaseAllActive(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := 0
	for i := range s.wishes {
		if s.wishes[i].Status == StatusActive {
			s.wishes[i].Status = StatusReleased
			released++
		}
	}
	return released, nil
}

var _ Store = (*MemoryStore)(nil)
