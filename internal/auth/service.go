package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/internal/users"
	pkgAuth "github.com/eventprosnz/eventpros-backend/pkg/auth"
	"github.com/eventprosnz/eventpros-backend/pkg/auth/session"
	"github.com/eventprosnz/eventpros-backend/pkg/config"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/security"
)

// errBadCredentials is the single answer for unknown email, wrong password
// and disabled account.
var errBadCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")

// Service is what the auth controller calls.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
	Logout(ctx context.Context, accessID string) error
}

type accountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionStore interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type ServiceParams struct {
	UserRepo       accountStore
	SessionManager sessionStore
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.UserRepo == nil:
		return nil, errors.New("user repository is required")
	case p.SessionManager == nil:
		return nil, errors.New("session manager is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	return &service{
		accounts:  p.UserRepo,
		sessions:  p.SessionManager,
		jwt:       p.JWTConfig,
		passwords: security.NewHasher(p.PasswordConfig),
		logg:      p.Logger,
		now:       time.Now,
	}, nil
}

type service struct {
	accounts  accountStore
	sessions  sessionStore
	jwt       config.JWTConfig
	passwords *security.Hasher
	logg      *logger.Logger
	now       func() time.Time
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.checkCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	s.upgradeHash(ctx, user, req.Password)

	now := s.now().UTC()
	if err := s.accounts.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login time")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	refresh, err := s.sessions.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open session")
	}
	return s.issue(user, accessID, refresh, now)
}

// Refresh takes an access token that may already be expired. Its signature
// plus the stored refresh token authorize the rotation, and the new access
// token is minted from the current user row so role and verification changes
// show up without a fresh login.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwt, strings.TrimSpace(req.AccessToken))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	accessID, refresh, err := s.sessions.Rotate(ctx, claims.ID, claims.UserID, strings.TrimSpace(req.RefreshToken))
	switch {
	case errors.Is(err, session.ErrInvalidRefreshToken):
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	user, err := s.accounts.FindByID(ctx, claims.UserID)
	if err == nil && user.IsActive {
		return s.issue(user, accessID, refresh, s.now().UTC())
	}
	if revokeErr := s.sessions.Revoke(ctx, accessID); revokeErr != nil {
		s.logg.Error(s.logg.WithUserID(ctx, claims.UserID.String()), "revoke session for unavailable account", revokeErr)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account unavailable")
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *service) issue(user *models.User, accessID, refresh string, now time.Time) (*TokenResponse, error) {
	access, err := pkgAuth.MintAccessToken(s.jwt, now, pkgAuth.AccessTokenPayload{
		UserID:     user.ID,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		JTI:        accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.jwt.ExpirationMinutes * 60,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) checkCredentials(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errBadCredentials
	}
	user, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.passwords.Burn(password)
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user by email")
	}

	match, err := s.passwords.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check password")
	}
	if !match || !user.IsActive {
		return nil, errBadCredentials
	}
	return user, nil
}

// upgradeHash re-hashes with the current cost parameters. A failure is logged
// and the login goes ahead.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if !s.passwords.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.passwords.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "password rehash failed", err)
		return
	}
	user.PasswordHash = hash
}
