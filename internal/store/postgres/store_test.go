package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/persistence"
	"github.com/repairdesk/repair-service/internal/store"
	"github.com/repairdesk/repair-service/internal/store/postgres"
	"github.com/repairdesk/repair-service/internal/store/storetest"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// newStore connects to TEST_POSTGRES_DSN, migrates and truncates the schema.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../../migrations", zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE help_request, request_spare_part, request_comment, repair_request,
        app_user, spare_part, issue_type, equipment_model, equipment_type, request_status, user_role RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return postgres.NewStore(pool)
}

func TestPostgresConstraints(t *testing.T) {
	s := newStore(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(tx store.Tx) error {
		return tx.InsertEquipmentModel(ctx, &domain.EquipmentModel{EquipmentTypeID: f.WashingMachineID, Name: "LG-X1"})
	})
	require.True(t, apperrors.IsCode(err, apperrors.CodeUniquenessViolation))
	assert.Equal(t, "equipment_type_id,name", apperrors.ToDomainError(err).Details["key"])

	req := f.Request(domain.Date(2024, 1, 10))
	req.IssueTypeID = 999
	err = s.RunInTransaction(ctx, func(tx store.Tx) error {
		return tx.InsertRepairRequest(ctx, &req)
	})
	require.True(t, apperrors.IsCode(err, apperrors.CodeForeignKeyMissing))
	assert.Equal(t, "repair_request.issue_type_id", apperrors.ToDomainError(err).Details["slot"])
}

func TestPostgresCascadeAndRestrict(t *testing.T) {
	s := newStore(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()
	saved := storetest.InsertRequest(t, s, f.Request(domain.Date(2024, 1, 10)))

	err := s.RunInTransaction(ctx, func(tx store.Tx) error {
		return tx.DeleteUser(ctx, f.ClientID)
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	require.NoError(t, s.RunInTransaction(ctx, func(tx store.Tx) error {
		return tx.InsertComment(ctx, &domain.RequestComment{RequestID: saved.ID, MasterID: f.MasterID, Message: "ok"})
	}))
	require.NoError(t, s.RunInTransaction(ctx, func(tx store.Tx) error {
		return tx.DeleteRepairRequest(ctx, saved.ID)
	}))
	require.NoError(t, s.View(ctx, func(v store.View) error {
		comments, err := v.ListComments(ctx)
		require.NoError(t, err)
		assert.Empty(t, comments)
		return nil
	}))
}

func TestPostgresExplicitIDAdvancesSequence(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.RunInTransaction(ctx, func(tx store.Tx) error {
		if err := tx.InsertSparePart(ctx, &domain.SparePart{ID: 10, Name: "Pump"}); err != nil {
			return err
		}
		next := domain.SparePart{Name: "Belt"}
		if err := tx.InsertSparePart(ctx, &next); err != nil {
			return err
		}
		assert.Equal(t, int64(11), next.ID)
		return nil
	}))
}

func TestPostgresOneOpenHelpRequestPerRequest(t *testing.T) {
	s := newStore(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()
	saved := storetest.InsertRequest(t, s, f.Request(domain.Date(2024, 1, 10)))

	open := func() error {
		return s.RunInTransaction(ctx, func(tx store.Tx) error {
			return tx.InsertHelpRequest(ctx, &domain.HelpRequest{
				RequestID:         saved.ID,
				CreatedByMasterID: f.MasterID,
				Status:            domain.HelpStatusOpen,
				Message:           "stuck",
			})
		})
	}
	require.NoError(t, open())
	err := open()
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}
