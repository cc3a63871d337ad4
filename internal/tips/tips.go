// Package tips holds community outreach tips and their upvote leaderboard.
package tips

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxTextLen = 500

var ErrNotFound = errors.New("tip not found")

// ValidationError is returned for a tip that cannot be stored.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

type Tip struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	Votes     int       `json:"votes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists tips. Each voter counts once per tip.
type Store interface {
	Add(ctx context.Context, tip Tip) (Tip, error)
	Upvote(ctx context.Context, tipID, voterID string) (int, error)
	Leaderboard(ctx context.Context, limit int) ([]Tip, error)
}

// Clean trims a tip and checks it.
func Clean(tip Tip) (Tip, error) {
	tip.Platform = strings.TrimSpace(tip.Platform)
	tip.Text = strings.TrimSpace(tip.Text)
	tip.Author = strings.TrimSpace(tip.Author)
	switch {
	case tip.Platform == "":
		return Tip{}, &ValidationError{Msg: "platform is required"}
	case tip.Text == "":
		return Tip{}, &ValidationError{Msg: "text is required"}
	case utf8.RuneCountInString(tip.Text) > MaxTextLen:
		return Tip{}, &ValidationError{Msg: "text must be at most 500 characters"}
	}
	return tip, nil
}

// ranksBefore orders the leaderboard: most votes first, then newest.
func ranksBefore(a, b Tip) bool {
	if a.Votes != b.Votes {
		return a.Votes > b.Votes
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
