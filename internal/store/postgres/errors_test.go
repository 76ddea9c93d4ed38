package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

func TestMapErrorUniqueViolations(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "23505", TableName: "equipment_model", ConstraintName: "equipment_model_type_name_key"})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeUniquenessViolation, de.Code)
	assert.Equal(t, map[string]any{"entity": "equipment_model", "key": "equipment_type_id,name"}, de.Details)

	err = mapError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", TableName: "spare_part", ConstraintName: "spare_part_pkey"}))
	assert.Equal(t, "id", apperrors.ToDomainError(err).Details["key"])
}

func TestMapErrorSecondOpenHelpRequestIsConflict(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "23505", TableName: "help_request", ConstraintName: "help_request_one_open_idx"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestMapErrorForeignKeys(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "23503", TableName: "repair_request", ConstraintName: "repair_request_equipment_model_id_fkey"})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeForeignKeyMissing, de.Code)
	assert.Equal(t, "repair_request.equipment_model_id", de.Details["slot"])

	err = mapError(&pgconn.PgError{Code: "23503", TableName: "help_request", ConstraintName: "help_request_created_by_master_id_fkey"})
	assert.Equal(t, "help_request.created_by_master_id", apperrors.ToDomainError(err).Details["slot"])
}

func TestMapErrorPassThrough(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "23514", TableName: "request_spare_part", ConstraintName: "request_spare_part_quantity_check"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	plain := errors.New("boom")
	assert.Equal(t, plain, mapError(plain))
	assert.False(t, isForeignKeyViolation(plain))
}
