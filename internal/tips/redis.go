package tips

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey = "tips:leaderboard"
	// leaderboard score = votes*voteWeight + created unix seconds, so equal
	// vote counts sort newest first
	voteWeight = 1e10
)

func tipKey(id string) string    { return "tips:" + id }
func votersKey(id string) string { return "tips:" + id + ":voters" }

// RedisStore keeps each tip in a hash, voters in a set and the ranking in a
// sorted set.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Add(ctx context.Context, tip Tip) (Tip, error) {
	tip, err := Clean(tip)
	if err != nil {
		return Tip{}, err
	}
	tip.ID = uuid.NewString()
	tip.Votes = 0
	tip.CreatedAt = s.now().UTC().Truncate(time.Second)

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tipKey(tip.ID), map[string]any{
			"platform":   tip.Platform,
			"text":       tip.Text,
			"author":     tip.Author,
			"votes":      0,
			"created_at": tip.CreatedAt.Unix(),
		})
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(tip.CreatedAt.Unix()), Member: tip.ID})
		return nil
	})
	if err != nil {
		return Tip{}, fmt.Errorf("add tip: %w", err)
	}
	return tip, nil
}

func (s *RedisStore) Upvote(ctx context.Context, tipID, voterID string) (int, error) {
	n, err := s.rdb.Exists(ctx, tipKey(tipID)).Result()
	if err != nil {
		return 0, fmt.Errorf("upvote: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}

	added, err := s.rdb.SAdd(ctx, votersKey(tipID), voterID).Result()
	if err != nil {
		return 0, fmt.Errorf("upvote: %w", err)
	}
	if added == 0 {
		votes, err := s.rdb.HGet(ctx, tipKey(tipID), "votes").Int()
		if err != nil {
			return 0, fmt.Errorf("upvote: read votes: %w", err)
		}
		return votes, nil
	}

	var incr *redis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, tipKey(tipID), "votes", 1)
		pipe.ZIncrBy(ctx, leaderboardKey, voteWeight, tipID)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upvote: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Leaderboard(ctx context.Context, limit int) ([]Tip, error) {
	limit = clampLimit(limit)
	ids, err := s.rdb.ZRevRange(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, tipKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	out := make([]Tip, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		out = append(out, fromHash(ids[i], fields))
	}
	return out, nil
}

func fromHash(id string, h map[string]string) Tip {
	votes, _ := strconv.Atoi(h["votes"])
	created, _ := strconv.ParseInt(h["created_at"], 10, 64)
	return Tip{
		ID:        id,
		Platform:  h["platform"],
		Text:      h["text"],
		Author:    h["author"],
		Votes:     votes,
		CreatedAt: time.Unix(created, 0).UTC(),
	}
}
