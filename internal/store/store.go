// Package store persists reach reports and per-user subscription state, and
// fans out live report updates.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/BerylCAtieno/getreach/internal/models"
)

// ErrNotFound is returned when a report or user record does not exist.
var ErrNotFound = errors.New("not found")

// Record is a stored report.
type Record struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Report    *models.ReachReport `json:"report"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Reports stores one document per report. A report is never edited in
// place; a re-run replaces the whole document.
type Reports interface {
	Save(ctx context.Context, userID string, report *models.ReachReport) (string, error)
	Replace(ctx context.Context, reportID string, report *models.ReachReport) error
	Get(ctx context.Context, reportID string) (*Record, error)
	GetLatest(ctx context.Context, userID string) (*Record, error)
	CountReportsFor(ctx context.Context, userID string) (int, error)

	SetSubscribed(ctx context.Context, userID string, subscribed bool) error
	IsSubscribed(ctx context.Context, userID string) (bool, error)
}
