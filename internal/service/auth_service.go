package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/repairdesk/repair-service/internal/auth"
	"github.com/repairdesk/repair-service/internal/config"
	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/events"
	"github.com/repairdesk/repair-service/internal/store"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// UserInput describes a user create or update. An empty Password on update
// keeps the stored hash.
type UserInput struct {
	FIO      string
	Phone    string
	Login    string
	Password string
	Role     domain.RoleName
}

// UserView is an app user with the role name resolved and no password hash.
type UserView struct {
	ID    int64           `json:"id"`
	FIO   string          `json:"fio"`
	Phone string          `json:"phone"`
	Login string          `json:"login"`
	Role  domain.RoleName `json:"role"`
}

// AuthService provisions users and authenticates logins.
type AuthService struct {
	store      store.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies bundles collaborators for AuthService.
type AuthDependencies struct {
	Store      store.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Login checks the password and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, login, password string) (UserView, domain.Token, error) {
	var (
		user domain.AppUser
		role domain.UserRole
	)
	err := s.store.View(ctx, func(v store.View) error {
		var err error
		if user, err = v.FindUserByLogin(ctx, strings.TrimSpace(login)); err != nil {
			return err
		}
		role, err = v.FindRole(ctx, user.RoleID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return UserView{}, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return UserView{}, domain.Token{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return UserView{}, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, err := s.tokenMgr.GenerateToken(user.ID, role.Name)
	if err != nil {
		return UserView{}, domain.Token{}, apperrors.NewInternalError(err)
	}
	return toUserView(user, role.Name), token, nil
}

// CreateUser registers a user with a bcrypt password hash.
func (s *AuthService) CreateUser(ctx context.Context, actorID int64, input UserInput) (UserView, error) {
	if err := validateUserInput(input, true); err != nil {
		return UserView{}, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return UserView{}, err
	}
	var saved domain.AppUser
	err = s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		roleID, err := roleIDByName(ctx, tx, input.Role)
		if err != nil {
			return err
		}
		user := domain.AppUser{
			FIO:          strings.TrimSpace(input.FIO),
			Phone:        strings.TrimSpace(input.Phone),
			Login:        strings.TrimSpace(input.Login),
			PasswordHash: hash,
			RoleID:       roleID,
		}
		if err := tx.InsertUser(ctx, &user); err != nil {
			return err
		}
		saved = user
		return nil
	})
	if err != nil {
		return UserView{}, err
	}
	s.logger.Info("user created", zap.Int64("user_id", saved.ID), zap.String("role", string(input.Role)))
	s.publish(ctx, actorID, saved.ID)
	return toUserView(saved, input.Role), nil
}

// UpdateUser changes profile fields, role and optionally the password. A role
// change is not re-checked against existing requests.
func (s *AuthService) UpdateUser(ctx context.Context, actorID, id int64, input UserInput) (UserView, error) {
	if err := validateUserInput(input, false); err != nil {
		return UserView{}, err
	}
	var hash string
	if input.Password != "" {
		var err error
		if hash, err = auth.HashPassword(input.Password, s.bcryptCost); err != nil {
			return UserView{}, err
		}
	}
	var saved domain.AppUser
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		user, err := tx.FindUser(ctx, id)
		if err != nil {
			return notFound("user", id, err)
		}
		roleID, err := roleIDByName(ctx, tx, input.Role)
		if err != nil {
			return err
		}
		user.FIO = strings.TrimSpace(input.FIO)
		user.Phone = strings.TrimSpace(input.Phone)
		user.Login = strings.TrimSpace(input.Login)
		user.RoleID = roleID
		if hash != "" {
			user.PasswordHash = hash
		}
		if err := tx.UpdateUser(ctx, &user); err != nil {
			return err
		}
		saved = user
		return nil
	})
	if err != nil {
		return UserView{}, err
	}
	s.publish(ctx, actorID, saved.ID)
	return toUserView(saved, input.Role), nil
}

// DeleteUser removes a user that no row references.
func (s *AuthService) DeleteUser(ctx context.Context, actorID, id int64) error {
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		return notFound("user", id, tx.DeleteUser(ctx, id))
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id))
	s.publish(ctx, actorID, id)
	return nil
}

// ListUsers returns every user ordered by id.
func (s *AuthService) ListUsers(ctx context.Context) ([]UserView, error) {
	var out []UserView
	err := s.store.View(ctx, func(v store.View) error {
		users, err := v.ListUsers(ctx)
		if err != nil {
			return err
		}
		roles, err := v.ListRoles(ctx)
		if err != nil {
			return err
		}
		names := make(map[int64]domain.RoleName, len(roles))
		for _, r := range roles {
			names[r.ID] = r.Name
		}
		out = make([]UserView, 0, len(users))
		for _, u := range users {
			out = append(out, toUserView(u, names[u.RoleID]))
		}
		return nil
	})
	return out, err
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, actorID, userID int64) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventUserChanged,
		ActorID: actor(actorID),
		Payload: map[string]int64{"user_id": userID},
	})
}

func validateUserInput(input UserInput, requirePassword bool) error {
	details := map[string]any{}
	if strings.TrimSpace(input.FIO) == "" {
		details["fio"] = "required"
	}
	if strings.TrimSpace(input.Login) == "" {
		details["login"] = "required"
	}
	if requirePassword && input.Password == "" {
		details["password"] = "required"
	}
	if input.Role == "" {
		details["role"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid user", details)
	}
	return nil
}

func roleIDByName(ctx context.Context, view store.View, name domain.RoleName) (int64, error) {
	role, err := view.FindRoleByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperrors.NewValidationError("unknown role", map[string]any{"role": string(name)})
	}
	if err != nil {
		return 0, err
	}
	return role.ID, nil
}

func toUserView(u domain.AppUser, role domain.RoleName) UserView {
	return UserView{ID: u.ID, FIO: u.FIO, Phone: u.Phone, Login: u.Login, Role: role}
}
