package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/repairdesk/repair-service/internal/events"
)

// Invalidator drops cached report results.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// StartReportCacheWorker invalidates cached reports after every committed write.
func StartReportCacheWorker(dispatcher events.Dispatcher, reports Invalidator, logger *zap.Logger) {
	if dispatcher == nil || reports == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, event events.Event) error {
		if err := reports.Invalidate(ctx); err != nil {
			return err
		}
		logger.Debug("report cache invalidated", zap.String("event_type", string(event.Type)))
		return nil
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, handler)
	}
}
