package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/repairdesk/repair-service/internal/events"
	"github.com/repairdesk/repair-service/internal/store/memory"
	"github.com/repairdesk/repair-service/internal/store/storetest"
	"github.com/repairdesk/repair-service/internal/validation"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type env struct {
	store      *memory.Store
	fixture    storetest.Fixture
	validator  *validation.Validator
	dispatcher *recordingDispatcher
}

func newEnv(t *testing.T) env {
	t.Helper()
	s := memory.NewStore(memory.WithClock(clock))
	return env{
		store:      s,
		fixture:    storetest.Seed(t, s),
		validator:  validation.New(validation.WithClock(clock)),
		dispatcher: &recordingDispatcher{},
	}
}
