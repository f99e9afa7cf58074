package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/serranodev/quickcart-backend/internal/users"
	pkgAuth "github.com/serranodev/quickcart-backend/pkg/auth"
	"github.com/serranodev/quickcart-backend/pkg/config"
	"github.com/serranodev/quickcart-backend/pkg/db/models"
	"github.com/serranodev/quickcart-backend/pkg/enums"
	pkgerrors "github.com/serranodev/quickcart-backend/pkg/errors"
	"github.com/serranodev/quickcart-backend/pkg/security"
)

func TestRegisterCreatesCustomer(t *testing.T) {
	t.Parallel()

	repo := newMemUserRepo()
	svc := newAuthService(t, repo)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  Shopper@Example.COM ",
		Password: "hunter2hunter2",
		FullName: "Sam Shopper",
	})
	require.NoError(t, err)
	require.Equal(t, "shopper@example.com", dto.Email)
	require.Equal(t, enums.MemberRoleCustomer, dto.Role)

	stored := repo.byEmail["shopper@example.com"]
	require.NotNil(t, stored)
	require.NotEqual(t, "hunter2hunter2", stored.PasswordHash)

	ok, err := security.VerifyPassword("hunter2hunter2", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc := newAuthService(t, newMemUserRepo())

	_, err := svc.Register(context.Background(), RegisterRequest{Password: "p", FullName: "X"})
	requireAuthCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Register(context.Background(), RegisterRequest{Email: "a@b.com", Password: "p"})
	requireAuthCode(t, err, pkgerrors.CodeValidation)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	repo := newMemUserRepo()
	svc := newAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "dupe@example.com",
		Password: "first-password",
		FullName: "First",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{
		Email:    "DUPE@example.com",
		Password: "second-password",
		FullName: "Second",
	})
	requireAuthCode(t, err, pkgerrors.CodeConflict)
}

func TestLoginMintsTokenAndBeginsSession(t *testing.T) {
	t.Parallel()

	repo := newMemUserRepo()
	svc := newAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "login@example.com",
		Password: "correct horse battery",
		FullName: "Login User",
	})
	require.NoError(t, err)

	sessions := svc.(*service).session.(*recordingSessions)
	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "login@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "login@example.com", resp.User.Email)

	claims, err := pkgAuth.ParseAccessToken(testAuthJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, string(enums.MemberRoleCustomer), claims.Role)
	require.Len(t, sessions.begun, 1)
	require.Equal(t, claims.ID, sessions.begun[0])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	repo := newMemUserRepo()
	svc := newAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "victim@example.com",
		Password: "real-password",
		FullName: "Victim",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "victim@example.com", Password: "wrong"})
	requireAuthCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "real-password"})
	requireAuthCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	t.Parallel()

	svc := newAuthService(t, newMemUserRepo())
	sessions := svc.(*service).session.(*recordingSessions)

	require.NoError(t, svc.Logout(context.Background(), "access-123"))
	require.Equal(t, []string{"access-123"}, sessions.revoked)

	err := svc.Logout(context.Background(), "  ")
	requireAuthCode(t, err, pkgerrors.CodeUnauthorized)
}

func newAuthService(t *testing.T, repo users.Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: &recordingSessions{},
		JWTConfig:      testAuthJWTConfig(),
		PasswordConfig: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
		},
	})
	require.NoError(t, err)
	return svc
}

func testAuthJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "auth-test-secret",
		Issuer:            "quickcart-test",
		ExpirationMinutes: 30,
		SessionTTLMinutes: 60,
	}
}

func requireAuthCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, code, coded.Code())
}

type recordingSessions struct {
	begun   []string
	revoked []string
}

func (s *recordingSessions) Begin(_ context.Context, accessID string, _ time.Time) error {
	s.begun = append(s.begun, accessID)
	return nil
}

func (s *recordingSessions) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type memUserRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (r *memUserRepo) WithTx(_ *gorm.DB) users.Repository { return r }

func (r *memUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, &uniqueViolation{constraint: "ux_users_email"}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return user, nil
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type uniqueViolation struct {
	constraint string
}

func (e *uniqueViolation) Error() string {
	return "duplicate key value violates unique constraint \"" + e.constraint + "\""
}
