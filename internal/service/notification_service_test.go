package service_test

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/repairdesk/repair-service/internal/config"
	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/events"
	"github.com/repairdesk/repair-service/internal/service"
	"github.com/repairdesk/repair-service/internal/store/storetest"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

func TestSurveyURL(t *testing.T) {
	assert.Equal(t, "https://f.example/s?request_id=7", service.SurveyURL("https://f.example/s", 7))
	assert.Equal(t, "https://f.example/s?usp=sf&request_id=7", service.SurveyURL("https://f.example/s?usp=sf", 7))
	assert.Equal(t, "https://f.example/s", service.SurveyURL("https://f.example/s", 0))
}

func TestNotificationsIncludeSurveyOnCompletion(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop(), nil)
	n := service.NewNotificationService(dispatcher, zap.New(core),
		config.NotificationConfig{EmailFrom: "desk@example.com"},
		config.QualityConfig{SurveyURL: "https://f.example/s"})
	n.RegisterHandlers()

	e := newEnv(t)
	svc := service.NewRequestService(service.RequestDependencies{Store: e.store, Validator: e.validator, Dispatcher: dispatcher})
	in := baseInput(e)
	in.StatusID = storetest.Ptr(e.fixture.Statuses[storetest.FinalStatus])
	req, err := svc.Create(context.Background(), 0, in)
	require.NoError(t, err)

	emails := logs.FilterMessage("sendEmailNotificationStub").All()
	require.Len(t, emails, 1)
	assert.Equal(t, service.SurveyURL("https://f.example/s", req.ID), emails[0].ContextMap()["survey_url"])
	assert.Equal(t, 1, logs.FilterMessage("RepairRequestChanged").Len())
}

type gaugeStub struct{ counts map[string]int }

func (g *gaugeStub) SetFindings(counts map[string]int) { g.counts = counts }

func TestDiagnosticsServiceReportsCounts(t *testing.T) {
	e := newEnv(t)
	req := e.fixture.Request(domain.Date(2024, 2, 20))
	req.CompletionDate = storetest.Ptr(domain.Date(2024, 2, 1))
	storetest.InsertRequest(t, e.store, req)

	gauge := &gaugeStub{}
	findings, err := service.NewDiagnosticsService(e.store, gauge, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, map[string]int{"completion_before_start": 1}, gauge.counts)
}

func TestSurveyQRCode(t *testing.T) {
	raw, err := service.SurveyQRCode("https://f.example/s", 7, 256)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Width)
	assert.Equal(t, 256, cfg.Height)

	_, err = service.SurveyQRCode(" ", 7, 256)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
