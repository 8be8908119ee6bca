package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/pkg/circuitbreaker"
)

// StatsCache implements ranking.StatsCache on top of Cache.
//
// Entries are keyed by the cohort generation. InvalidateCohort bumps the
// generation, so every entry of the class becomes unreachable at once and
// expires on its own TTL.
//
// With a breaker attached, Get and Set are skipped while it is open.
// InvalidateCohort always goes to Redis: a skipped bump would leave stale
// entries readable once the breaker closes.
type StatsCache struct {
	cache   *Cache
	breaker *circuitbreaker.Breaker
}

// NewStatsCache creates a new StatsCache.
func NewStatsCache(cache *Cache) *StatsCache {
	return &StatsCache{cache: cache}
}

// WithBreaker guards reads and writes with b.
func (s *StatsCache) WithBreaker(b *circuitbreaker.Breaker) *StatsCache {
	s.breaker = b
	return s
}

var _ ranking.StatsCache = (*StatsCache)(nil)

func (s *StatsCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	return s.breaker.Execute(ctx, fn)
}

// Get returns cached stats, or ok=false on a miss, together with the cohort
// generation it looked under.
func (s *StatsCache) Get(ctx context.Context, class student.Class, studentID uuid.UUID) (ranking.Stats, ranking.Generation, bool, error) {
	var (
		stats ranking.Stats
		gen   int64
		hit   bool
	)
	err := s.guard(ctx, func(ctx context.Context) error {
		var err error
		gen, err = s.cache.GetInt64(ctx, CohortGenerationKey(class.Level, class.LetterKey()))
		if err != nil {
			return err
		}
		err = s.cache.Get(ctx, StatsKey(class.Level, class.LetterKey(), gen, studentID.String()), &stats)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		hit = err == nil
		return err
	})
	if err != nil {
		return ranking.Stats{}, 0, false, err
	}
	if !hit {
		return ranking.Stats{}, ranking.Generation(gen), false, nil
	}
	return stats, ranking.Generation(gen), true, nil
}

// Set stores stats under gen, the generation returned by the Get that missed.
// Stats computed across an invalidation land under a generation nobody reads.
func (s *StatsCache) Set(ctx context.Context, class student.Class, gen ranking.Generation, stats ranking.Stats, ttl time.Duration) error {
	return s.guard(ctx, func(ctx context.Context) error {
		return s.cache.Set(ctx, StatsKey(class.Level, class.LetterKey(), int64(gen), stats.StudentID.String()), stats, ttl)
	})
}

// InvalidateCohort moves the class to a new generation.
func (s *StatsCache) InvalidateCohort(ctx context.Context, class student.Class) error {
	_, err := s.cache.Incr(ctx, CohortGenerationKey(class.Level, class.LetterKey()))
	return err
}
