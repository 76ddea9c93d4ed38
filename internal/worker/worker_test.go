package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/repairdesk/repair-service/internal/events"
)

type invalidatorStub struct{ calls int }

func (i *invalidatorStub) Invalidate(context.Context) error {
	i.calls++
	return nil
}

func TestReportCacheWorkerSubscribesToEveryEvent(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop(), nil)
	stub := &invalidatorStub{}
	StartReportCacheWorker(dispatcher, stub, nil)

	for _, eventType := range events.AllEventTypes {
		_ = dispatcher.Publish(context.Background(), events.Event{Type: eventType})
	}
	assert.Equal(t, len(events.AllEventTypes), stub.calls)
}

func TestStartWorkersToleratesNil(t *testing.T) {
	StartReportCacheWorker(nil, nil, nil)
	StartNotificationWorker(nil)
}
