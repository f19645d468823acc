package services

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"kakeibo/internal/analytics"
	"kakeibo/internal/cache"
	"kakeibo/internal/chart"
	"kakeibo/internal/log"
	"kakeibo/internal/metrics"
	"kakeibo/internal/ports"
)

// Snapshot is everything the analytics page shows, computed from one
// consistent read of the store.
type Snapshot struct {
	Report      analytics.Report
	Charts      chart.Data
	GeneratedAt time.Time
}

// snapshotLoadTimeout bounds a shared load, which no single request can cancel.
const snapshotLoadTimeout = 30 * time.Second

// AnalyticsService builds analytics snapshots and caches them until the next
// expense change or until the TTL runs out.
type AnalyticsService struct {
	store   ports.SummaryReader
	cache   *cache.LRU[Snapshot]
	metrics *metrics.Metrics
	logger  *log.Logger

	// generation keys the cache, so a load racing an invalidation stores
	// its result under a key nobody reads anymore.
	generation atomic.Uint64
}

func NewAnalyticsService(store ports.SummaryReader, ttl time.Duration, m *metrics.Metrics, logger *log.Logger) *AnalyticsService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AnalyticsService{
		store:   store,
		cache:   cache.NewLRU[Snapshot](4, ttl),
		metrics: m,
		logger:  logger.WithComponent(log.ComponentAnalytics),
	}
}

// Cache exposes the snapshot cache so a janitor can sweep it.
func (s *AnalyticsService) Cache() *cache.LRU[Snapshot] {
	return s.cache
}

// Snapshot returns the cached snapshot or builds a new one. Concurrent misses
// share a single load, which keeps running when the request that started it
// goes away.
func (s *AnalyticsService) Snapshot(ctx context.Context) (Snapshot, error) {
	key := s.key()
	if snap, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookup(true)
		return snap, nil
	}
	s.metrics.CacheLookup(false)
	return s.cache.GetOrLoad(ctx, key, s.load)
}

// Invalidate drops the cached snapshot.
func (s *AnalyticsService) Invalidate() {
	s.generation.Add(1)
	s.cache.Purge()
}

func (s *AnalyticsService) key() string {
	return "snapshot:" + strconv.FormatUint(s.generation.Load(), 10)
}

func (s *AnalyticsService) load(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, snapshotLoadTimeout)
	defer cancel()

	sum, err := s.store.Summary(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read summary: %w", err)
	}

	report, err := analytics.Analyze(sum.Expenses, sum.Monthly)
	if err != nil {
		return Snapshot{}, fmt.Errorf("analyze expenses: %w", err)
	}
	snap := Snapshot{
		Report:      report,
		Charts:      analytics.ChartData(sum.Monthly, sum.Categories),
		GeneratedAt: time.Now(),
	}
	s.logger.DebugContext(ctx, "Analytics snapshot built",
		"expenses", len(sum.Expenses),
		"months", len(sum.Monthly),
		"categories", len(sum.Categories),
		"duration_ms", time.Since(start).Milliseconds())
	return snap, nil
}
