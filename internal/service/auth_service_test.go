package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repair-service/internal/config"
	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/service"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

func newAuthService(e env) *service.AuthService {
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: 4}}
	return service.NewAuthService(cfg, service.AuthDependencies{Store: e.store, Dispatcher: e.dispatcher})
}

func TestUserProvisioningAndLogin(t *testing.T) {
	e := newEnv(t)
	svc := newAuthService(e)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, e.fixture.ManagerID, service.UserInput{
		FIO:      "Иванов Иван",
		Phone:    "89001112233",
		Login:    " ivanov ",
		Password: "secret-1",
		Role:     domain.RoleMaster,
	})
	require.NoError(t, err)
	assert.Equal(t, "ivanov", user.Login)
	assert.Equal(t, domain.RoleMaster, user.Role)

	view, token, err := svc.Login(ctx, "ivanov", "secret-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, view.ID)
	claims, err := svc.TokenManager().ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleMaster, claims.Role)

	_, _, err = svc.Login(ctx, "ivanov", "wrong-pass")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	_, _, err = svc.Login(ctx, "nobody", "secret-1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	svc := newAuthService(e)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, 0, service.UserInput{FIO: "X", Login: "x", Password: "secret-1", Role: "Admin"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = svc.CreateUser(ctx, 0, service.UserInput{Login: "x", Password: "secret-1", Role: domain.RoleClient})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = svc.CreateUser(ctx, 0, service.UserInput{FIO: "Dup", Login: "client", Password: "secret-1", Role: domain.RoleClient})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUniquenessViolation))
}

func TestUpdateAndDeleteUser(t *testing.T) {
	e := newEnv(t)
	svc := newAuthService(e)
	ctx := context.Background()

	updated, err := svc.UpdateUser(ctx, 0, e.fixture.OperatorID, service.UserInput{
		FIO:   "Operator Renamed",
		Login: "operator",
		Role:  domain.RoleManager,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, updated.Role)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 6)

	require.NoError(t, svc.DeleteUser(ctx, 0, e.fixture.OperatorID))
	err = svc.DeleteUser(ctx, 0, e.fixture.OperatorID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	_, err = svc.UpdateUser(ctx, 0, e.fixture.OperatorID, service.UserInput{FIO: "x", Login: "x", Role: domain.RoleClient})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
