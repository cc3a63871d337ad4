package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BerylCAtieno/getreach/internal/models"
)

// Memory is an in-process Reports used in tests and when no database is
// configured.
type Memory struct {
	mu         sync.RWMutex
	reports    map[string]*Record
	byUser     map[string][]string
	subscribed map[string]bool
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		reports:    make(map[string]*Record),
		byUser:     make(map[string][]string),
		subscribed: make(map[string]bool),
		now:        time.Now,
	}
}

var _ Reports = (*Memory)(nil)

func (m *Memory) Save(_ context.Context, userID string, report *models.ReachReport) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	id := uuid.NewString()
	m.reports[id] = &Record{ID: id, UserID: userID, Report: report, CreatedAt: now, UpdatedAt: now}
	m.byUser[userID] = append(m.byUser[userID], id)
	return id, nil
}

func (m *Memory) Replace(_ context.Context, reportID string, report *models.ReachReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.reports[reportID]
	if !ok {
		return ErrNotFound
	}
	m.reports[reportID] = &Record{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Report:    report,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: m.now(),
	}
	return nil
}

func (m *Memory) Get(_ context.Context, reportID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.reports[reportID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// GetLatest returns the most recently saved report of userID.
func (m *Memory) GetLatest(_ context.Context, userID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byUser[userID]
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	cp := *m.reports[ids[len(ids)-1]]
	return &cp, nil
}

func (m *Memory) CountReportsFor(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID]), nil
}

func (m *Memory) SetSubscribed(_ context.Context, userID string, subscribed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed[userID] = subscribed
	return nil
}

func (m *Memory) IsSubscribed(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subscribed[userID], nil
}
