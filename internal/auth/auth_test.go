package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
	"github.com/repairdesk/repair-service/internal/store/memory"
	"github.com/repairdesk/repair-service/internal/store/storetest"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

const testPolicy = `
roles:
  "Менеджер":
    report: [read]
  "Мастер":
    request_comment: [create]
`

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	tok, err := tm.GenerateToken(42, domain.RoleMaster)
	require.NoError(t, err)
	assert.Equal(t, int64(42), tok.UserID)
	assert.Equal(t, 5*time.Minute, tok.ExpiresAt.Sub(tok.IssuedAt))

	claims, err := tm.ParseToken(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, domain.RoleMaster, claims.Role)
}

func TestParseTokenRejectsForeignAndExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	other := NewTokenManager("other", 1)
	tok, err := other.GenerateToken(1, domain.RoleClient)
	require.NoError(t, err)
	_, err = tm.ParseToken(tok.Value)
	assert.Error(t, err)

	tok, err = tm.GenerateToken(1, domain.RoleClient)
	require.NoError(t, err)
	tm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tm.ParseToken(tok.Value)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret-pass"))
	assert.Error(t, ComparePassword(hash, "wrong-pass"))

	_, err = HashPassword("abc", 4)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestPolicy(t *testing.T) {
	p, err := ParsePolicy([]byte(testPolicy))
	require.NoError(t, err)
	assert.True(t, p.Allows(domain.RoleManager, EntityReport, OpRead))
	assert.False(t, p.Allows(domain.RoleMaster, EntityReport, OpRead))
	assert.False(t, p.Allows(domain.RoleClient, EntityReport, OpRead))
	assert.Equal(t, []domain.RoleName{domain.RoleMaster}, p.RolesFor(EntityComment, OpCreate))

	_, err = ParsePolicy([]byte("roles:\n  Admin:\n    report: [read]\n"))
	assert.Error(t, err)
	_, err = ParsePolicy([]byte("roles: {}\n"))
	assert.Error(t, err)
}

func TestShippedPolicyLoads(t *testing.T) {
	p, err := LoadPolicy("../../configs/policy.yaml")
	require.NoError(t, err)
	for _, role := range domain.DefaultRoles {
		assert.True(t, p.Allows(role, EntityReference, OpRead), role)
	}
	assert.True(t, p.Allows(domain.RoleManager, EntityUser, OpCreate))
	assert.False(t, p.Allows(domain.RoleClient, EntityReport, OpRead))
	assert.True(t, p.Allows(domain.RoleClient, EntityRepairRequest, OpUpdate))
	assert.False(t, p.Allows(domain.RoleClient, EntityHelpRequest, OpUpdate))
	assert.False(t, p.Allows(domain.RoleMaster, EntityHelpRequest, OpUpdate))
}

func TestMiddlewareLoadsCurrentRole(t *testing.T) {
	s := memory.NewStore()
	f := storetest.Seed(t, s)
	tm := NewTokenManager("secret", 5)
	policy, err := ParsePolicy([]byte(testPolicy))
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Code)
	}})
	mw := NewAuthMiddleware(tm, s)
	app.Get("/reports", mw.Handle, Require(policy, EntityReport, OpRead), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Login)
	})

	do := func(token string) (int, string) {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	code, body := do("")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, apperrors.CodeUnauthorized, body)

	// the token claims a manager role but the stored role decides
	forged, err := tm.GenerateToken(f.MasterID, domain.RoleManager)
	require.NoError(t, err)
	code, _ = do(forged.Value)
	assert.Equal(t, http.StatusForbidden, code)

	manager, err := tm.GenerateToken(f.ManagerID, domain.RoleManager)
	require.NoError(t, err)
	code, body = do(manager.Value)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "manager", body)

	require.NoError(t, s.RunInTransaction(context.Background(), func(tx store.Tx) error {
		return tx.DeleteUser(context.Background(), f.ManagerID)
	}))
	code, _ = do(manager.Value)
	assert.Equal(t, http.StatusUnauthorized, code)
}
