package tips

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu     sync.Mutex
	tips   map[string]*Tip
	voters map[string]map[string]struct{}
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tips:   make(map[string]*Tip),
		voters: make(map[string]map[string]struct{}),
		now:    time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Add(_ context.Context, tip Tip) (Tip, error) {
	tip, err := Clean(tip)
	if err != nil {
		return Tip{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tip.ID = uuid.NewString()
	tip.Votes = 0
	tip.CreatedAt = s.now().UTC()
	s.tips[tip.ID] = &tip
	s.voters[tip.ID] = make(map[string]struct{})
	return tip, nil
}

func (s *MemoryStore) Upvote(_ context.Context, tipID, voterID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip, ok := s.tips[tipID]
	if !ok {
		return 0, ErrNotFound
	}
	if _, voted := s.voters[tipID][voterID]; !voted {
		s.voters[tipID][voterID] = struct{}{}
		tip.Votes++
	}
	return tip.Votes, nil
}

func (s *MemoryStore) Leaderboard(_ context.Context, limit int) ([]Tip, error) {
	s.mu.Lock()
	out := make([]Tip, 0, len(s.tips))
	for _, t := range s.tips {
		out = append(out, *t)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return ranksBefore(out[i], out[j]) })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
