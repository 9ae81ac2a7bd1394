package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/models"
	"github.com/playtube-io/playtube/internal/tokens"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps every query on the same in-memory DB
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	return &AuthService{
		DB: newTestDB(t),
		Tokens: &tokens.Service{
			AccessSecret:  []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
		},
	}
}

func registerAlice(t *testing.T, svc *AuthService) *models.User {
	t.Helper()

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@x.com",
		FullName: "Alice Example",
		Password: "secret123",
	})
	require.NoError(t, err)
	return user
}

func TestRegister_NormalizesAndHashes(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "  Alice ",
		Email:    "Alice@X.com",
		FullName: "Alice Example",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.Nil(t, user.RefreshToken)
}

func TestRegister_Duplicate(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	registerAlice(t, svc)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "ALICE",
		Email:    "other@x.com",
		FullName: "Another Alice",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "alice@x.com",
		FullName: "Bob Example",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "empty username", in: RegisterInput{Email: "a@x.com", FullName: "A", Password: "p"}},
		{name: "empty email", in: RegisterInput{Username: "a", FullName: "A", Password: "p"}},
		{name: "empty password", in: RegisterInput{Username: "a", Email: "a@x.com", FullName: "A"}},
		{name: "empty full name", in: RegisterInput{Username: "a", Email: "a@x.com", Password: "p"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestLogin_ByUsernameAndByEmail(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice", "", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, alice.ID, res.User.ID)
	assert.Empty(t, res.User.PasswordHash)
	assert.Nil(t, res.User.RefreshToken)

	claims, err := svc.Tokens.ParseAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.Subject)

	res2, err := svc.Login(ctx, "", "alice@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, res2.User.ID)
}

func TestLogin_PersistsRefreshArtifact(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice", "", "secret123")
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, svc.DB.Where("id = ?", alice.ID).First(&stored).Error)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, res.RefreshToken, *stored.RefreshToken)

	// a second login replaces the artifact: one active session per user
	res2, err := svc.Login(ctx, "alice", "", "secret123")
	require.NoError(t, err)
	require.NoError(t, svc.DB.Where("id = ?", alice.ID).First(&stored).Error)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, res2.RefreshToken, *stored.RefreshToken)
	assert.NotEqual(t, res.RefreshToken, res2.RefreshToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	alice := registerAlice(t, svc)

	_, err := svc.Login(context.Background(), "alice", "", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// rejected logins must not touch the record
	var stored models.User
	require.NoError(t, svc.DB.Where("id = ?", alice.ID).First(&stored).Error)
	assert.Nil(t, stored.RefreshToken)
}

func TestLogin_UnknownUser(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	registerAlice(t, svc)

	// unknown user and bad password are indistinguishable
	_, err := svc.Login(context.Background(), "mallory", "", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesArtifact(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, "alice", "", "secret123")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	var stored models.User
	require.NoError(t, svc.DB.Where("id = ?", alice.ID).First(&stored).Error)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, refreshed.RefreshToken, *stored.RefreshToken)
}

func TestRefresh_ReplayRejected(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, "alice", "", "secret123")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)

	// the consumed token still has a valid signature, but the artifact
	// has moved on
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRefresh_AfterLogout(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, "alice", "", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, alice.ID))

	var stored models.User
	require.NoError(t, svc.DB.Where("id = ?", alice.ID).First(&stored).Error)
	assert.Nil(t, stored.RefreshToken)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRefresh_RejectsMissingAndGarbage(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Refresh(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRefresh_RejectsAccessTokenInRefreshSlot(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, "alice", "", "secret123")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRefresh_DeletedUser(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, "alice", "", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.DB.Delete(&models.User{}, "id = ?", alice.ID).Error)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, alice.ID, "wrong", "newsecret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, alice.ID, "secret123", "newsecret123"))

	_, err = svc.Login(ctx, "alice", "", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "alice", "", "newsecret123")
	assert.NoError(t, err)
}
