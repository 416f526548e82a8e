package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	summaryKeyPrefix = "summary:"
	summaryTagPrefix = "summary:tag:"
	summaryTTL       = 5 * time.Minute
)

// SummaryCache caches computed sale summaries in Redis, tagged by scope so a
// committed sale invalidates exactly the summaries it can affect (its
// business, its branch, its buyer) instead of flushing everything.
// A nil receiver or nil client disables caching — services stay testable
// without Redis.
type SummaryCache struct {
	rdb *redis.Client
}

func NewSummaryCache(rdb *redis.Client) *SummaryCache {
	return &SummaryCache{rdb: rdb}
}

func summaryKey(f dto.SummaryFilter) string {
	return summaryKeyPrefix + f.BusinessID + ":" + f.BranchID + ":" + f.UserID
}

func (c *SummaryCache) Get(ctx context.Context, f dto.SummaryFilter) (*dto.SaleSummaryResponse, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, summaryKey(f)).Result()
	if err != nil {
		return nil, false
	}
	var resp dto.SaleSummaryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (c *SummaryCache) Set(ctx context.Context, f dto.SummaryFilter, resp *dto.SaleSummaryResponse) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	key := summaryKey(f)
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, key, data, summaryTTL)
	for _, tag := range scopeTags(f.BusinessID, f.BranchID, f.UserID) {
		pipe.SAdd(ctx, tag, key)
		pipe.Expire(ctx, tag, 2*summaryTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Debug().Err(err).Msg("summary cache: set failed")
	}
}

// Invalidate drops every cached summary tagged with any of the given scope
// identifiers. Empty identifiers are skipped.
func (c *SummaryCache) Invalidate(ctx context.Context, businessID, branchID, userID string) {
	if c == nil || c.rdb == nil {
		return
	}
	for _, tag := range scopeTags(businessID, branchID, userID) {
		keys, err := c.rdb.SMembers(ctx, tag).Result()
		if err != nil {
			continue
		}
		keys = append(keys, tag)
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			log.Debug().Err(err).Str("tag", tag).Msg("summary cache: invalidate failed")
		}
	}
}

func scopeTags(businessID, branchID, userID string) []string {
	var tags []string
	if businessID != "" {
		tags = append(tags, summaryTagPrefix+"business:"+businessID)
	}
	if branchID != "" {
		tags = append(tags, summaryTagPrefix+"branch:"+branchID)
	}
	if userID != "" {
		tags = append(tags, summaryTagPrefix+"user:"+userID)
	}
	return tags
}
