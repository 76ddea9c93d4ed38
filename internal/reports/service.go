package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/repairdesk/repair-service/internal/store"
)

// Observer receives report timings and cache outcomes.
type Observer interface {
	ObserveReport(report string, duration time.Duration)
	RecordCacheLookup(report string, hit bool)
}

// ServiceDependencies bundles collaborators for Service.
type ServiceDependencies struct {
	Store    store.Store
	Engine   *Engine
	Cache    Cache
	CacheTTL time.Duration
	Logger   *zap.Logger
	Metrics  Observer
}

// Service runs reports against committed state, optionally through a cache.
type Service struct {
	store   store.Store
	engine  *Engine
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics Observer
}

// NewService constructs a Service. A nil Cache or zero TTL disables caching.
func NewService(deps ServiceDependencies) *Service {
	engine := deps.Engine
	if engine == nil {
		engine = NewEngine(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   deps.Store,
		engine:  engine,
		cache:   deps.Cache,
		ttl:     deps.CacheTTL,
		logger:  logger,
		metrics: deps.Metrics,
	}
}

func (s *Service) FullRequests(ctx context.Context) ([]RequestRow, error) {
	return run(ctx, s, FullRequestList, s.engine.FullRequests)
}

func (s *Service) EquipmentCompleted(ctx context.Context) ([]CountRow, error) {
	return run(ctx, s, EquipmentCompleted, s.engine.EquipmentCompleted)
}

func (s *Service) AvgRepairTime(ctx context.Context) ([]AvgRepairRow, error) {
	return run(ctx, s, AvgRepairTime, s.engine.AvgRepairTime)
}

func (s *Service) IssueTypeStats(ctx context.Context) ([]CountRow, error) {
	return run(ctx, s, IssueTypeStats, s.engine.IssueTypeStats)
}

func (s *Service) MasterActiveLoad(ctx context.Context) ([]MasterLoadRow, error) {
	return run(ctx, s, MasterActiveLoad, s.engine.MasterActiveLoad)
}

func (s *Service) Overdue(ctx context.Context) ([]OverdueRow, error) {
	return run(ctx, s, OverdueRequests, s.engine.Overdue)
}

func (s *Service) OpenHelp(ctx context.Context) ([]OpenHelpRow, error) {
	return run(ctx, s, OpenHelpRequests, s.engine.OpenHelp)
}

func (s *Service) Summary(ctx context.Context) (SummaryReport, error) {
	return run(ctx, s, Summary, s.engine.Summary)
}

// Run computes a report by name.
func (s *Service) Run(ctx context.Context, name Name) (any, error) {
	switch name {
	case FullRequestList:
		return s.FullRequests(ctx)
	case EquipmentCompleted:
		return s.EquipmentCompleted(ctx)
	case AvgRepairTime:
		return s.AvgRepairTime(ctx)
	case IssueTypeStats:
		return s.IssueTypeStats(ctx)
	case MasterActiveLoad:
		return s.MasterActiveLoad(ctx)
	case OverdueRequests:
		return s.Overdue(ctx)
	case OpenHelpRequests:
		return s.OpenHelp(ctx)
	case Summary:
		return s.Summary(ctx)
	default:
		return nil, fmt.Errorf("unknown report %q", name)
	}
}

// Invalidate drops cached results after a committed write.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// run serves name from the cache when possible. Keys include the current
// date because the overdue predicate moves with it. The cache generation is
// read before the view is opened and the result is stored under it.
func run[T any](ctx context.Context, s *Service, name Name, compute func(context.Context, store.View) (T, error)) (T, error) {
	var out T
	key := fmt.Sprintf("%s:%s", name, s.engine.Today().Format(time.DateOnly))

	cached := s.cacheEnabled()
	var gen int64
	if cached {
		var err error
		if gen, err = s.cache.Generation(ctx); err != nil {
			s.logger.Warn("report cache unavailable", zap.String("report", string(name)), zap.Error(err))
			cached = false
		}
	}

	if cached {
		raw, hit, err := s.cache.Get(ctx, gen, key)
		if err != nil {
			s.logger.Warn("report cache read failed", zap.String("report", string(name)), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(string(name), hit)
		}
		if hit {
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
		}
	}

	start := time.Now()
	err := s.store.View(ctx, func(v store.View) error {
		var err error
		out, err = compute(ctx, v)
		return err
	})
	if err != nil {
		return out, err
	}
	if s.metrics != nil {
		s.metrics.ObserveReport(string(name), time.Since(start))
	}

	if cached {
		raw, err := json.Marshal(out)
		if err == nil {
			err = s.cache.Set(ctx, gen, key, raw, s.ttl)
		}
		if err != nil {
			s.logger.Warn("report cache write failed", zap.String("report", string(name)), zap.Error(err))
		}
	}
	return out, nil
}
