package validation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
	"github.com/repairdesk/repair-service/internal/store/memory"
	"github.com/repairdesk/repair-service/internal/store/storetest"
	"github.com/repairdesk/repair-service/internal/validation"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

var now = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type recorder struct {
	outcomes []string
}

func (r *recorder) RecordValidation(entity, outcome string) {
	r.outcomes = append(r.outcomes, entity+":"+outcome)
}

func setup(t *testing.T) (*memory.Store, storetest.Fixture, *validation.Validator) {
	t.Helper()
	s := memory.NewStore(memory.WithClock(func() time.Time { return now }))
	f := storetest.Seed(t, s)
	return s, f, validation.New(validation.WithClock(func() time.Time { return now }))
}

func validateRequest(t *testing.T, s store.Store, v *validation.Validator, candidate domain.RepairRequest, existing *domain.RepairRequest) (domain.RepairRequest, error) {
	t.Helper()
	var out domain.RepairRequest
	err := s.View(context.Background(), func(view store.View) error {
		var err error
		out, err = v.ValidateRepairRequestWrite(context.Background(), view, candidate, existing)
		return err
	})
	return out, err
}

func detail(err error, key string) any {
	return apperrors.ToDomainError(err).Details[key]
}

func TestNewRequestKeepsCompletionEmpty(t *testing.T) {
	s, f, v := setup(t)

	out, err := validateRequest(t, s, v, f.Request(domain.Date(2024, 1, 10)), nil)
	require.NoError(t, err)
	assert.Nil(t, out.CompletionDate)
	assert.Equal(t, now, out.UpdatedAt)
}

func TestFinalStatusDefaultsCompletionToToday(t *testing.T) {
	s, f, v := setup(t)
	saved := storetest.InsertRequest(t, s, f.Request(domain.Date(2024, 1, 10)))

	candidate := saved
	candidate.StatusID = f.Statuses[storetest.FinalStatus]
	out, err := validateRequest(t, s, v, candidate, &saved)
	require.NoError(t, err)
	require.NotNil(t, out.CompletionDate)
	assert.Equal(t, domain.Date(2024, 3, 15), *out.CompletionDate)
	assert.Equal(t, saved.CreatedAt, out.CreatedAt)
	assert.Equal(t, now, out.UpdatedAt)
}

func TestFinalStatusKeepsExplicitCompletion(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.StatusID = f.Statuses[storetest.FinalStatus]
	candidate.CompletionDate = storetest.Ptr(domain.Date(2024, 1, 12))

	out, err := validateRequest(t, s, v, candidate, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Date(2024, 1, 12), *out.CompletionDate)
}

func TestMasterWithClientRoleIsRejected(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.MasterID = storetest.Ptr(f.ClientID)

	_, err := validateRequest(t, s, v, candidate, nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeRoleMismatch))
	assert.Equal(t, "repair_request.master_id", detail(err, "slot"))
	assert.Equal(t, []string{"Мастер", "Специалист"}, detail(err, "required"))
	assert.Equal(t, "Заказчик", detail(err, "actual"))
}

func TestSpecialistMayBeMaster(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.MasterID = storetest.Ptr(f.SpecialistID)

	_, err := validateRequest(t, s, v, candidate, nil)
	assert.NoError(t, err)
}

func TestClientMustHaveClientRole(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.ClientID = f.OperatorID

	_, err := validateRequest(t, s, v, candidate, nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeRoleMismatch))
	assert.Equal(t, "repair_request.client_id", detail(err, "slot"))
}

func TestDueDateBeforeStartIsRejected(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.DueDate = storetest.Ptr(domain.Date(2024, 1, 5))

	_, err := validateRequest(t, s, v, candidate, nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeDateOrderViolation))
	assert.Equal(t, "due_date", detail(err, "field"))
}

func TestCompletionCheckedBeforeDue(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.CompletionDate = storetest.Ptr(domain.Date(2024, 1, 1))
	candidate.DueDate = storetest.Ptr(domain.Date(2024, 1, 2))

	_, err := validateRequest(t, s, v, candidate, nil)
	assert.Equal(t, "completion_date", detail(err, "field"))
}

func TestSameDayDatesAreAccepted(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.CompletionDate = storetest.Ptr(domain.Date(2024, 1, 10))
	candidate.DueDate = storetest.Ptr(domain.Date(2024, 1, 10))

	_, err := validateRequest(t, s, v, candidate, nil)
	assert.NoError(t, err)
}

func TestMissingUserReportedBeforeRoleMismatch(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.ClientID = f.MasterID                // wrong role
	candidate.MasterID = storetest.Ptr(int64(999)) // missing

	_, err := validateRequest(t, s, v, candidate, nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeForeignKeyMissing))
	assert.Equal(t, "repair_request.master_id", detail(err, "slot"))
}

func TestRoleChecksRunBeforeDateChecks(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.MasterID = storetest.Ptr(f.ClientID)
	candidate.DueDate = storetest.Ptr(domain.Date(2024, 1, 5))

	_, err := validateRequest(t, s, v, candidate, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRoleMismatch))
}

func TestMissingStatus(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.StatusID = 999

	_, err := validateRequest(t, s, v, candidate, nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeForeignKeyMissing))
	assert.Equal(t, "repair_request.status_id", detail(err, "slot"))
}

func TestFinalStatusOnFutureStartIsRejected(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 4, 1))
	candidate.StatusID = f.Statuses[storetest.FinalStatus]

	_, err := validateRequest(t, s, v, candidate, nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeDateOrderViolation))
	assert.Equal(t, "completion_date", detail(err, "field"))
}

func TestRevalidatingCommittedRowSucceeds(t *testing.T) {
	s, f, v := setup(t)
	candidate := f.Request(domain.Date(2024, 1, 10))
	candidate.StatusID = f.Statuses[storetest.FinalStatus]
	candidate.MasterID = storetest.Ptr(f.MasterID)
	first, err := validateRequest(t, s, v, candidate, nil)
	require.NoError(t, err)
	saved := storetest.InsertRequest(t, s, first)

	second, err := validateRequest(t, s, v, saved, &saved)
	require.NoError(t, err)
	assert.Equal(t, *first.CompletionDate, *second.CompletionDate)
	assert.Equal(t, saved.ID, second.ID)
}

func TestCommentAuthorRole(t *testing.T) {
	s, f, v := setup(t)
	ctx := context.Background()

	err := s.View(ctx, func(view store.View) error {
		_, err := v.ValidateCommentWrite(ctx, view, domain.RequestComment{RequestID: 1, MasterID: f.QualityID, Message: "x"})
		return err
	})
	require.True(t, apperrors.IsCode(err, apperrors.CodeRoleMismatch))
	assert.Equal(t, "request_comment.master_id", detail(err, "slot"))

	err = s.View(ctx, func(view store.View) error {
		_, err := v.ValidateCommentWrite(ctx, view, domain.RequestComment{RequestID: 1, MasterID: f.SpecialistID, Message: "x"})
		return err
	})
	assert.NoError(t, err)
}

func TestHelpRequestSlots(t *testing.T) {
	s, f, v := setup(t)
	ctx := context.Background()
	validate := func(h domain.HelpRequest) error {
		return s.View(ctx, func(view store.View) error {
			_, err := v.ValidateHelpRequestWrite(ctx, view, h)
			return err
		})
	}
	base := domain.HelpRequest{RequestID: 1, CreatedByMasterID: f.MasterID, Status: domain.HelpStatusOpen, Message: "help"}

	assert.NoError(t, validate(base))

	withManager := base
	withManager.QualityManagerID = storetest.Ptr(f.ManagerID)
	withManager.AssignedMasterID = storetest.Ptr(f.SpecialistID)
	assert.NoError(t, validate(withManager))

	badQuality := base
	badQuality.QualityManagerID = storetest.Ptr(f.OperatorID)
	err := validate(badQuality)
	require.True(t, apperrors.IsCode(err, apperrors.CodeRoleMismatch))
	assert.Equal(t, "help_request.quality_manager_id", detail(err, "slot"))

	badAssigned := base
	badAssigned.AssignedMasterID = storetest.Ptr(f.ClientID)
	err = validate(badAssigned)
	assert.Equal(t, "help_request.assigned_master_id", detail(err, "slot"))

	badCreator := base
	badCreator.CreatedByMasterID = f.QualityID
	err = validate(badCreator)
	assert.Equal(t, "help_request.created_by_master_id", detail(err, "slot"))
}

func TestRecorderReceivesOutcomes(t *testing.T) {
	s := memory.NewStore()
	f := storetest.Seed(t, s)
	rec := &recorder{}
	v := validation.New(validation.WithRecorder(rec))

	_, _ = validateRequest(t, s, v, f.Request(domain.Date(2024, 1, 10)), nil)
	bad := f.Request(domain.Date(2024, 1, 10))
	bad.DueDate = storetest.Ptr(domain.Date(2024, 1, 1))
	_, _ = validateRequest(t, s, v, bad, nil)

	assert.Equal(t, []string{"repair_request:ok", "repair_request:DATE_ORDER_VIOLATION"}, rec.outcomes)
}

func TestRoleResolver(t *testing.T) {
	s, f, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(view store.View) error {
		r := validation.NewRoleResolver(view)
		role, err := r.RoleOf(ctx, f.QualityID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleQualityManager, role)

		_, err = r.RoleOf(ctx, 12345)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	}))
}

func TestCapabilityTable(t *testing.T) {
	assert.True(t, validation.Allowed(validation.SlotHelpQuality, domain.RoleManager))
	assert.False(t, validation.Allowed(validation.SlotRequestMaster, domain.RoleOperator))
	assert.Len(t, validation.Capabilities, 6)
}
