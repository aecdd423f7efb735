package inventory

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/magicitems/cache"
	"github.com/kasuganosora/magicitems/model"
	"go.uber.org/zap"
)

// Stats is the derived combat summary of a character.
type Stats struct {
	CharacterID  int64 `json:"character_id"`
	BaseAttack   int   `json:"base_attack"`
	BaseDefense  int   `json:"base_defense"`
	TotalAttack  int   `json:"total_attack"`
	TotalDefense int   `json:"total_defense"`
	ItemCount    int   `json:"item_count"`
}

// StatsFor computes the stats of a character whose items are loaded.
func StatsFor(c *model.Character) *Stats {
	return &Stats{
		CharacterID:  c.ID,
		BaseAttack:   c.Attack,
		BaseDefense:  c.Defense,
		TotalAttack:  c.TotalAttack(),
		TotalDefense: c.TotalDefense(),
		ItemCount:    len(c.Items),
	}
}

// StatsCache is a read-through cache of Stats keyed by character id.
// A nil *StatsCache caches nothing. Cache failures are logged and ignored,
// the store stays the source of truth.
//
// Every invalidation also replaces a per-character epoch. A reader records
// the epoch before loading from the store and only keeps its result while the
// epoch is unchanged, so a mutation racing a read never leaves stale totals
// behind.
type StatsCache struct {
	c      cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsCache wraps c. A non-positive ttl keeps entries until invalidated.
func NewStatsCache(c cache.Cache, ttl time.Duration, logger *zap.Logger) *StatsCache {
	return &StatsCache{c: c, ttl: ttl, logger: logger}
}

func statsKey(charID int64) string {
	return "stats:" + strconv.FormatInt(charID, 10)
}

func epochKey(charID int64) string {
	return "stats_epoch:" + strconv.FormatInt(charID, 10)
}

func (s *StatsCache) get(ctx context.Context, charID int64) (*Stats, bool) {
	if s == nil {
		return nil, false
	}
	raw, err := s.c.Get(ctx, statsKey(charID))
	if err != nil {
		if !cache.IsMiss(err) {
			s.logger.Warn("stats cache read failed", zap.Int64("character_id", charID), zap.Error(err))
		}
		return nil, false
	}
	var st Stats
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		s.logger.Warn("stats cache entry corrupt", zap.Int64("character_id", charID), zap.Error(err))
		return nil, false
	}
	return &st, true
}

// epoch returns the current invalidation epoch of a character. A missing
// epoch reads as "". ok is false when the cache could not be read.
func (s *StatsCache) epoch(ctx context.Context, charID int64) (string, bool) {
	if s == nil {
		return "", false
	}
	v, err := s.c.Get(ctx, epochKey(charID))
	if err != nil {
		if cache.IsMiss(err) {
			return "", true
		}
		s.logger.Warn("stats epoch read failed", zap.Int64("character_id", charID), zap.Error(err))
		return "", false
	}
	return v, true
}

// put stores st if the character's epoch still equals seen, the value read
// before st was loaded. An invalidation that slips in after the write is
// caught by the second check and the entry is dropped again.
func (s *StatsCache) put(ctx context.Context, st *Stats, seen string) {
	if s == nil {
		return
	}
	if now, ok := s.epoch(ctx, st.CharacterID); !ok || now != seen {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	key := statsKey(st.CharacterID)
	if err := s.c.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.Int64("character_id", st.CharacterID), zap.Error(err))
		return
	}
	if now, ok := s.epoch(ctx, st.CharacterID); !ok || now != seen {
		if err := s.c.Del(ctx, key); err != nil {
			s.logger.Warn("stats cache rollback failed", zap.Int64("character_id", st.CharacterID), zap.Error(err))
		}
	}
}

// Invalidate drops the cached stats of the given characters and moves their
// epochs forward.
func (s *StatsCache) Invalidate(ctx context.Context, charIDs ...int64) {
	if s == nil || len(charIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(charIDs))
	for _, id := range charIDs {
		if err := s.c.Set(ctx, epochKey(id), uuid.NewString(), s.epochTTL()); err != nil {
			s.logger.Warn("stats epoch bump failed", zap.Int64("character_id", id), zap.Error(err))
		}
		keys = append(keys, statsKey(id))
	}
	if err := s.c.Del(ctx, keys...); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// epochTTL outlives every stats entry written under the previous epoch.
func (s *StatsCache) epochTTL() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	return 2 * s.ttl
}
