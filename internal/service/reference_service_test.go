package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/events"
	"github.com/repairdesk/repair-service/internal/service"
	"github.com/repairdesk/repair-service/internal/store"
	"github.com/repairdesk/repair-service/internal/store/memory"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

func TestNormalizeIssueTypeName(t *testing.T) {
	assert.Equal(t, domain.UnspecifiedIssue, service.NormalizeIssueTypeName("   "))
	assert.Equal(t, "Leak", service.NormalizeIssueTypeName(" Leak\n"))

	long := strings.Repeat("ж", 300)
	got := service.NormalizeIssueTypeName(long)
	assert.Equal(t, 255, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))

	exact := strings.Repeat("a", 255)
	assert.Equal(t, exact, service.NormalizeIssueTypeName(exact))
}

func TestSeedIsIdempotentAndResetsIsFinal(t *testing.T) {
	s := memory.NewStore()
	d := &recordingDispatcher{}
	svc := service.NewReferenceService(service.ReferenceDependencies{Store: s, Dispatcher: d})
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))
	require.NoError(t, s.RunInTransaction(ctx, func(tx store.Tx) error {
		st := domain.RequestStatus{Name: domain.StatusNew, IsFinal: true}
		return tx.UpsertStatus(ctx, &st)
	}))
	require.NoError(t, svc.Seed(ctx))

	snap := s.ExportState()
	assert.Len(t, snap.Roles, len(domain.DefaultRoles))
	assert.Len(t, snap.Statuses, len(domain.DefaultStatuses))
	for _, st := range snap.Statuses {
		if st.Name == domain.StatusNew {
			assert.False(t, st.IsFinal)
		}
	}
	assert.Equal(t, []events.EventType{events.EventReferenceChanged, events.EventReferenceChanged}, d.types())
}

func TestGetOrCreateHelpers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.store.RunInTransaction(ctx, func(tx store.Tx) error {
		m, err := service.GetOrCreateEquipmentModel(ctx, tx, e.fixture.WashingMachineID, " LG-X1 ")
		require.NoError(t, err)
		assert.Equal(t, e.fixture.ModelID, m.ID)

		_, err = service.GetOrCreateEquipmentModel(ctx, tx, e.fixture.WashingMachineID, " ")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

		it, err := service.GetOrCreateIssueType(ctx, tx, "")
		require.NoError(t, err)
		again, err := service.GetOrCreateIssueType(ctx, tx, " ")
		require.NoError(t, err)
		assert.Equal(t, it.ID, again.ID)
		assert.Equal(t, domain.UnspecifiedIssue, again.Name)

		et, err := service.GetOrCreateEquipmentType(ctx, tx, "Washing machine")
		require.NoError(t, err)
		assert.Equal(t, e.fixture.WashingMachineID, et.ID)
		return nil
	}))
}

func TestCatalog(t *testing.T) {
	e := newEnv(t)
	svc := service.NewReferenceService(service.ReferenceDependencies{Store: e.store})
	ctx := context.Background()

	_, err := svc.CreateEquipmentType(ctx, "Conditioner")
	require.NoError(t, err)
	_, err = svc.CreateEquipmentType(ctx, "Conditioner")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUniquenessViolation))

	cat, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Len(t, cat.EquipmentTypes, 2)
	assert.Len(t, cat.Statuses, len(domain.DefaultStatuses))
}
