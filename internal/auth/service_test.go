package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/eventprosnz/eventpros-backend/pkg/auth"
	"github.com/eventprosnz/eventpros-backend/pkg/auth/session"
	"github.com/eventprosnz/eventpros-backend/pkg/config"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/security"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "eventpros",
	ExpirationMinutes: 30,
}

type stubUserRepo struct {
	byEmail      map[string]*models.User
	byID         map[uuid.UUID]*models.User
	lastLogin    map[uuid.UUID]time.Time
	rehashed     map[uuid.UUID]string
	lastLoginErr error
}

func newStubUserRepo(users ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{
		byEmail:   map[string]*models.User{},
		byID:      map[uuid.UUID]*models.User{},
		lastLogin: map[uuid.UUID]time.Time{},
		rehashed:  map[uuid.UUID]string{},
	}
	for _, u := range users {
		repo.byEmail[u.Email] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.lastLoginErr != nil {
		return s.lastLoginErr
	}
	s.lastLogin[id] = at
	return nil
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	s.rehashed[id] = hash
	return nil
}

type stubSessions struct {
	tokens  map[string]string
	owners  map[string]uuid.UUID
	revoked []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{tokens: map[string]string{}, owners: map[string]uuid.UUID{}}
}

func (s *stubSessions) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	token := "refresh-" + accessID
	s.tokens[accessID] = token
	s.owners[accessID] = userID
	return token, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	token, ok := s.tokens[oldAccessID]
	if !ok || token != provided || s.owners[oldAccessID] != userID {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	newID := session.NewAccessID()
	newToken, _ := s.Generate(ctx, newID, userID)
	return newID, newToken, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	delete(s.tokens, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := security.NewHasher(testPasswordConfig).Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hashed
}

func buildTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessions) *service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: testPasswordConfig,
		Logger:         logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc.(*service)
}

func newTestUser(t *testing.T, password string, role enums.UserRole) *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        "aroha@example.co.nz",
		PasswordHash: mustHashPassword(t, password),
		FirstName:    "Aroha",
		LastName:     "Ngata",
		Role:         role,
		IsVerified:   true,
		IsActive:     true,
	}
}

func TestServiceLoginMintsClaimsAndSession(t *testing.T) {
	user := newTestUser(t, "correct-horse", enums.UserRoleContractor)
	repo := newStubUserRepo(user)
	sessions := newStubSessions()
	svc := buildTestService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "  AROHA@example.co.nz ", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.UserRoleContractor || !claims.IsVerified {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if sessions.tokens[claims.ID] != resp.RefreshToken {
		t.Fatalf("refresh token not bound to access id %s", claims.ID)
	}
	if _, ok := repo.lastLogin[user.ID]; !ok {
		t.Fatal("expected last login to be recorded")
	}
	if resp.ExpiresIn != 1800 {
		t.Fatalf("expected expires_in 1800, got %d", resp.ExpiresIn)
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("expected user in response, got %+v", resp.User)
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := newTestUser(t, "correct-horse", enums.UserRoleEventManager)
	inactive := newTestUser(t, "correct-horse", enums.UserRoleContractor)
	inactive.Email = "gone@example.co.nz"
	inactive.IsActive = false
	svc := buildTestService(t, newStubUserRepo(user, inactive), newStubSessions())

	cases := []LoginRequest{
		{Email: user.Email, Password: "wrong"},
		{Email: "nobody@example.co.nz", Password: "correct-horse"},
		{Email: inactive.Email, Password: "correct-horse"},
		{Email: "   ", Password: "correct-horse"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %q, got %v", req.Email, err)
		}
	}
}

func TestServiceLoginRehashesStaleParameters(t *testing.T) {
	stale := config.PasswordConfig{ArgonMemoryKB: 32, ArgonTime: 2, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	hash, err := security.NewHasher(stale).Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := newTestUser(t, "ignored", enums.UserRoleContractor)
	user.PasswordHash = hash
	repo := newStubUserRepo(user)
	svc := buildTestService(t, repo, newStubSessions())

	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	updated, ok := repo.rehashed[user.ID]
	if !ok {
		t.Fatal("expected password to be rehashed")
	}
	if security.NewHasher(testPasswordConfig).NeedsRehash(updated) {
		t.Fatal("rehashed password still uses stale parameters")
	}
}

func TestServiceLoginLastLoginFailure(t *testing.T) {
	user := newTestUser(t, "correct-horse", enums.UserRoleContractor)
	repo := newStubUserRepo(user)
	repo.lastLoginErr = errors.New("db down")
	svc := buildTestService(t, repo, newStubSessions())

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestServiceRefreshRotatesAndPicksUpVerification(t *testing.T) {
	user := newTestUser(t, "correct-horse", enums.UserRoleContractor)
	user.IsVerified = false
	repo := newStubUserRepo(user)
	sessions := newStubSessions()
	svc := buildTestService(t, repo, sessions)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user.IsVerified = true
	refreshed, err := svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if !claims.IsVerified {
		t.Fatal("expected refreshed claims to carry the new verification state")
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("expected refresh token rotation")
	}

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected reused refresh token to be rejected, got %v", err)
	}
}

func TestServiceRefreshAcceptsExpiredAccessToken(t *testing.T) {
	user := newTestUser(t, "correct-horse", enums.UserRoleEventManager)
	sessions := newStubSessions()
	svc := buildTestService(t, newStubUserRepo(user), sessions)
	ctx := context.Background()

	accessID := session.NewAccessID()
	expired, err := pkgAuth.MintAccessToken(testJWTConfig, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	refresh, _ := sessions.Generate(ctx, accessID, user.ID)

	if _, err := svc.Refresh(ctx, RefreshRequest{AccessToken: expired, RefreshToken: refresh}); err != nil {
		t.Fatalf("refresh with expired token: %v", err)
	}
}

func TestServiceRefreshRejectsDeactivatedUser(t *testing.T) {
	user := newTestUser(t, "correct-horse", enums.UserRoleContractor)
	sessions := newStubSessions()
	svc := buildTestService(t, newStubUserRepo(user), sessions)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	user.IsActive = false

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(sessions.tokens) != 0 {
		t.Fatalf("expected rotated session to be revoked, got %v", sessions.tokens)
	}
}

func TestServiceLogoutRevokes(t *testing.T) {
	sessions := newStubSessions()
	svc := buildTestService(t, newStubUserRepo(), sessions)

	if err := svc.Logout(context.Background(), "abc"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "abc" {
		t.Fatalf("expected abc revoked, got %v", sessions.revoked)
	}
	if err := svc.Logout(context.Background(), ""); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for empty access id, got %v", err)
	}
}
