// Package storetest seeds stores with reference data for package tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
)

// Fixture holds the ids of the seeded rows.
type Fixture struct {
	Roles    map[domain.RoleName]int64
	Statuses map[string]int64

	WashingMachineID int64
	ModelID          int64
	LeakID           int64

	ClientID     int64
	MasterID     int64
	SpecialistID int64
	QualityID    int64
	ManagerID    int64
	OperatorID   int64
}

// FinalStatus is a seeded final status name.
const FinalStatus = "Завершена"

// Seed inserts the default roles and statuses, one equipment type, model and
// issue type, and one user per role.
func Seed(t testing.TB, s store.Store) Fixture {
	t.Helper()
	ctx := context.Background()
	f := Fixture{
		Roles:    map[domain.RoleName]int64{},
		Statuses: map[string]int64{},
	}
	err := s.RunInTransaction(ctx, func(tx store.Tx) error {
		for _, name := range domain.DefaultRoles {
			role := domain.UserRole{Name: name}
			if err := tx.InsertRole(ctx, &role); err != nil {
				return err
			}
			f.Roles[name] = role.ID
		}
		for _, st := range domain.DefaultStatuses {
			st := st
			if err := tx.UpsertStatus(ctx, &st); err != nil {
				return err
			}
			f.Statuses[st.Name] = st.ID
		}
		et := domain.EquipmentType{Name: "Washing machine"}
		if err := tx.InsertEquipmentType(ctx, &et); err != nil {
			return err
		}
		f.WashingMachineID = et.ID
		model := domain.EquipmentModel{EquipmentTypeID: et.ID, Name: "LG-X1"}
		if err := tx.InsertEquipmentModel(ctx, &model); err != nil {
			return err
		}
		f.ModelID = model.ID
		issue := domain.IssueType{Name: "Leak"}
		if err := tx.InsertIssueType(ctx, &issue); err != nil {
			return err
		}
		f.LeakID = issue.ID

		users := []struct {
			login string
			role  domain.RoleName
			dst   *int64
		}{
			{"client", domain.RoleClient, &f.ClientID},
			{"master", domain.RoleMaster, &f.MasterID},
			{"specialist", domain.RoleSpecialist, &f.SpecialistID},
			{"quality", domain.RoleQualityManager, &f.QualityID},
			{"manager", domain.RoleManager, &f.ManagerID},
			{"operator", domain.RoleOperator, &f.OperatorID},
		}
		for _, u := range users {
			user := domain.AppUser{FIO: "User " + u.login, Phone: "89000000000", Login: u.login, PasswordHash: "x", RoleID: f.Roles[u.role]}
			if err := tx.InsertUser(ctx, &user); err != nil {
				return err
			}
			*u.dst = user.ID
		}
		return nil
	})
	require.NoError(t, err)
	return f
}

// Request returns an unsaved request in status "Новая заявка" for the fixture client.
func (f Fixture) Request(start time.Time) domain.RepairRequest {
	return domain.RepairRequest{
		StartDate:          start,
		EquipmentModelID:   f.ModelID,
		IssueTypeID:        f.LeakID,
		ProblemDescription: "Leak",
		StatusID:           f.Statuses[domain.StatusNew],
		ClientID:           f.ClientID,
	}
}

// InsertRequest stores req directly, bypassing validation.
func InsertRequest(t testing.TB, s store.Store, req domain.RepairRequest) domain.RepairRequest {
	t.Helper()
	err := s.RunInTransaction(context.Background(), func(tx store.Tx) error {
		return tx.InsertRepairRequest(context.Background(), &req)
	})
	require.NoError(t, err)
	return req
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
