package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/events"
	"github.com/repairdesk/repair-service/internal/service"
	"github.com/repairdesk/repair-service/internal/store"
	"github.com/repairdesk/repair-service/internal/store/storetest"
	"github.com/repairdesk/repair-service/internal/validation"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

func newHelpEnv(t *testing.T) (env, *service.HelpService, domain.RepairRequest) {
	t.Helper()
	e := newEnv(t)
	req := e.fixture.Request(domain.Date(2024, 2, 20))
	req.MasterID = &e.fixture.MasterID
	req = storetest.InsertRequest(t, e.store, req)
	svc := service.NewHelpService(service.HelpDependencies{
		Store:      e.store,
		Validator:  e.validator,
		Dispatcher: e.dispatcher,
	})
	return e, svc, req
}

func TestOpenHelpRequest(t *testing.T) {
	e, svc, req := newHelpEnv(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, service.OpenHelpInput{RequestID: req.ID, MasterID: e.fixture.SpecialistID, Message: "stuck"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = svc.Open(ctx, service.OpenHelpInput{RequestID: req.ID, MasterID: e.fixture.MasterID, Message: "  "})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = svc.Open(ctx, service.OpenHelpInput{RequestID: 999, MasterID: e.fixture.MasterID, Message: "stuck"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	help, err := svc.Open(ctx, service.OpenHelpInput{RequestID: req.ID, MasterID: e.fixture.MasterID, Message: " stuck "})
	require.NoError(t, err)
	assert.Equal(t, domain.HelpStatusOpen, help.Status)
	assert.Equal(t, "stuck", help.Message)

	_, err = svc.Open(ctx, service.OpenHelpInput{RequestID: req.ID, MasterID: e.fixture.MasterID, Message: "again"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestCloseHelpRequestReassignsMaster(t *testing.T) {
	e, svc, req := newHelpEnv(t)
	ctx := context.Background()
	help, err := svc.Open(ctx, service.OpenHelpInput{RequestID: req.ID, MasterID: e.fixture.MasterID, Message: "stuck"})
	require.NoError(t, err)

	closed, err := svc.Close(ctx, service.CloseHelpInput{
		HelpID:           help.ID,
		QualityManagerID: e.fixture.QualityID,
		AssignedMasterID: &e.fixture.SpecialistID,
		NewDueDate:       storetest.Ptr(domain.Date(2024, 3, 15)),
		ResolutionNote:   storetest.Ptr("  handed over "),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.HelpStatusClosed, closed.Status)
	assert.Equal(t, e.fixture.QualityID, *closed.QualityManagerID)
	assert.Equal(t, "handed over", *closed.ResolutionNote)
	assert.Equal(t, fixedNow, *closed.ClosedAt)

	var stored domain.RepairRequest
	require.NoError(t, e.store.View(ctx, func(v store.View) error {
		var err error
		stored, err = v.FindRepairRequest(ctx, req.ID)
		return err
	}))
	assert.Equal(t, e.fixture.SpecialistID, *stored.MasterID)
	assert.Equal(t, domain.Date(2024, 3, 15), *stored.DueDate)

	_, err = svc.Close(ctx, service.CloseHelpInput{HelpID: help.ID, QualityManagerID: e.fixture.QualityID})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	assert.Equal(t, []events.EventType{events.EventHelpRequestOpened, events.EventHelpRequestClosed}, e.dispatcher.types())
}

func TestCloseHelpRequestValidatesChanges(t *testing.T) {
	e, svc, req := newHelpEnv(t)
	ctx := context.Background()
	help, err := svc.Open(ctx, service.OpenHelpInput{RequestID: req.ID, MasterID: e.fixture.MasterID, Message: "stuck"})
	require.NoError(t, err)

	_, err = svc.Close(ctx, service.CloseHelpInput{HelpID: help.ID, QualityManagerID: e.fixture.ClientID})
	require.True(t, apperrors.IsCode(err, apperrors.CodeRoleMismatch))
	assert.Equal(t, string(validation.SlotHelpQuality), apperrors.ToDomainError(err).Details["slot"])

	_, err = svc.Close(ctx, service.CloseHelpInput{
		HelpID:           help.ID,
		QualityManagerID: e.fixture.ManagerID,
		AssignedMasterID: &e.fixture.OperatorID,
	})
	require.True(t, apperrors.IsCode(err, apperrors.CodeRoleMismatch))
	assert.Equal(t, string(validation.SlotHelpAssigned), apperrors.ToDomainError(err).Details["slot"])

	_, err = svc.Close(ctx, service.CloseHelpInput{
		HelpID:           help.ID,
		QualityManagerID: e.fixture.ManagerID,
		NewDueDate:       storetest.Ptr(domain.Date(2024, 2, 1)),
	})
	require.True(t, apperrors.IsCode(err, apperrors.CodeDateOrderViolation))
	assert.Equal(t, validation.FieldDueDate, apperrors.ToDomainError(err).Details["field"])

	// failed closes leave the help request open
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.HelpStatusOpen, list[0].Status)
}

func TestReopenHelpRequest(t *testing.T) {
	e, svc, req := newHelpEnv(t)
	ctx := context.Background()
	first, err := svc.Open(ctx, service.OpenHelpInput{RequestID: req.ID, MasterID: e.fixture.MasterID, Message: "one"})
	require.NoError(t, err)
	_, err = svc.Close(ctx, service.CloseHelpInput{HelpID: first.ID, QualityManagerID: e.fixture.QualityID})
	require.NoError(t, err)

	reopened, err := svc.Reopen(ctx, e.fixture.ClientID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HelpStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)

	_, err = svc.Close(ctx, service.CloseHelpInput{HelpID: first.ID, QualityManagerID: e.fixture.QualityID})
	require.NoError(t, err)
	_, err = svc.Open(ctx, service.OpenHelpInput{RequestID: req.ID, MasterID: e.fixture.MasterID, Message: "two"})
	require.NoError(t, err)

	_, err = svc.Reopen(ctx, 0, first.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = svc.Reopen(ctx, 0, 999)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
