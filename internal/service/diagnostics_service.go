package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/repairdesk/repair-service/internal/diagnostics"
	"github.com/repairdesk/repair-service/internal/store"
)

// FindingsGauge publishes the finding count per check.
type FindingsGauge interface {
	SetFindings(counts map[string]int)
}

// DiagnosticsService runs integrity checks on a store snapshot.
type DiagnosticsService struct {
	store  store.Store
	gauge  FindingsGauge
	logger *zap.Logger
}

// NewDiagnosticsService constructs the service. gauge may be nil.
func NewDiagnosticsService(s store.Store, gauge FindingsGauge, logger *zap.Logger) *DiagnosticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosticsService{store: s, gauge: gauge, logger: logger}
}

// Run returns every finding in deterministic order.
func (s *DiagnosticsService) Run(ctx context.Context) ([]diagnostics.Finding, error) {
	started := time.Now()
	var findings []diagnostics.Finding
	err := s.store.View(ctx, func(v store.View) error {
		var err error
		findings, err = diagnostics.Run(ctx, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	counts := diagnostics.Counts(findings)
	if s.gauge != nil {
		s.gauge.SetFindings(counts)
	}
	s.logger.Info("diagnostics completed",
		zap.Int("findings", len(findings)),
		zap.Any("by_check", counts),
		zap.Duration("duration", time.Since(started)))
	return findings, nil
}
