package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// SQLSTATE codes translated into domain errors.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"
)

// helpOneOpenIndex backs the one-open-help-request-per-request rule.
const helpOneOpenIndex = "help_request_one_open_idx"

// uniqueKeys names the columns behind each unique constraint.
var uniqueKeys = map[string]string{
	"user_role_name_key":                  "name",
	"request_status_name_key":             "name",
	"equipment_type_name_key":             "name",
	"equipment_model_type_name_key":       "equipment_type_id,name",
	"issue_type_name_key":                 "name",
	"spare_part_name_key":                 "name",
	"app_user_login_key":                  "login",
	"request_spare_part_request_part_key": "request_id,spare_part_id",
}

// mapError converts constraint violations into UNIQUENESS_VIOLATION,
// FOREIGN_KEY_MISSING and VALIDATION_FAILED errors. A second open help
// request is a CONFLICT, as the help desk reports it. Anything else is returned
// unchanged.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlStateUniqueViolation:
		if pgErr.ConstraintName == helpOneOpenIndex {
			return apperrors.NewConflict("request already has an open help request", map[string]any{"entity": pgErr.TableName})
		}
		return apperrors.NewUniquenessViolation(pgErr.TableName, uniqueKey(pgErr.ConstraintName, pgErr.TableName))
	case sqlStateForeignKeyViolation:
		return apperrors.NewForeignKeyMissing(fkSlot(pgErr.ConstraintName, pgErr.TableName))
	case sqlStateCheckViolation:
		return apperrors.NewValidationError("check constraint violated", map[string]any{
			"entity":     pgErr.TableName,
			"constraint": pgErr.ConstraintName,
		})
	}
	return err
}

func uniqueKey(constraint, table string) string {
	if key, ok := uniqueKeys[constraint]; ok {
		return key
	}
	if constraint == table+"_pkey" {
		return "id"
	}
	return constraint
}

// fkSlot turns "<table>_<column>_fkey" into "<table>.<column>".
func fkSlot(constraint, table string) string {
	column := strings.TrimSuffix(strings.TrimPrefix(constraint, table+"_"), "_fkey")
	return table + "." + column
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateForeignKeyViolation
}
