package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/hash"
	"github.com/playtube-io/playtube/internal/logging"
	"github.com/playtube-io/playtube/internal/models"
	"github.com/playtube-io/playtube/internal/tokens"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already registered")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
)

// AuthService owns the credential/session lifecycle: registration, login,
// logout and refresh-token rotation. The refresh artifact lives on the
// user row; at most one session is valid per user at any time.
type AuthService struct {
	DB     *gorm.DB
	Tokens *tokens.Service
}

type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     string
	CoverImage string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	User         *models.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" || in.FullName == "" {
		return nil, ErrValidation
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", in.Username, in.Email).
		Count(&count).Error; err != nil {
		l.Error("register_error", "error", err)
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		Avatar:       in.Avatar,
		CoverImage:   in.CoverImage,
		PasswordHash: pwHash,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		l.Error("register_error", "error", err)
		return nil, err
	}

	l.Info("user_registered", "user_id", user.ID)
	return &user, nil
}

// Login verifies the password and opens a session: both tokens are issued
// and the refresh token is persisted as the user's single active artifact,
// overwriting any previous session. Exactly one store write.
func (s *AuthService) Login(ctx context.Context, username, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	if (username == "" && email == "") || password == "" {
		return nil, ErrValidation
	}

	user, err := s.findByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// same answer as a bad password, on purpose
			return nil, ErrInvalidCredentials
		}
		l.Error("login_error", "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	res, err := s.openSession(ctx, user)
	if err != nil {
		l.Error("login_error", "error", err)
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID)
	return res, nil
}

// Logout clears the stored artifact. Identity comes from the gate; no
// token verification happens here.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "user_id", userID)

	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token", nil).Error; err != nil {
		l.Error("logout_failed", "error", err)
		return err
	}

	l.Info("logout_successful")
	return nil
}

// Refresh rotates the session. The presented token must verify against the
// refresh secret AND byte-match the stored artifact; each successful
// refresh invalidates the previous token, so a replayed token fails even
// when its signature is still good. The rotation write is guarded by the
// old value, which closes the concurrent double-rotation race.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if presented == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.Tokens.ParseRefresh(presented)
	if err != nil {
		l.Warn("refresh_rejected", "reason", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", claims.Subject).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		l.Error("refresh_error", "error", err)
		return nil, err
	}

	if user.RefreshToken == nil || *user.RefreshToken != presented {
		l.Warn("refresh_rejected", "reason", "session expired or replaced", "user_id", user.ID)
		return nil, fmt.Errorf("%w: session expired or replaced", ErrUnauthenticated)
	}

	accessToken, accessExp, err := s.Tokens.SignAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.Tokens.SignRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	result := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", user.ID, presented).
		Update("refresh_token", refreshToken)
	if result.Error != nil {
		l.Error("refresh_error", "error", result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// lost the rotation race, or the artifact changed under us
		return nil, fmt.Errorf("%w: session expired or replaced", ErrUnauthenticated)
	}

	l.Info("refresh_successful", "user_id", user.ID)
	sanitize(&user)
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		User:         &user,
	}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "user_id", userID)

	if oldPassword == "" || newPassword == "" {
		return ErrValidation
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if !hash.CheckPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.DB.WithContext(ctx).Model(&user).Update("password_hash", pwHash).Error; err != nil {
		l.Error("change_password_failed", "error", err)
		return err
	}

	l.Info("password_changed")
	return nil
}

func (s *AuthService) findByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	q := s.DB.WithContext(ctx)
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR email = ?", username, email)
	case username != "":
		q = q.Where("username = ?", username)
	default:
		q = q.Where("email = ?", email)
	}

	var user models.User
	if err := q.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// openSession issues both tokens and persists the refresh artifact.
// Token issuance happens before the write so a signing failure leaves the
// record untouched.
func (s *AuthService) openSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	accessToken, accessExp, err := s.Tokens.SignAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.Tokens.SignRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("refresh_token", refreshToken).Error; err != nil {
		return nil, err
	}

	sanitize(user)
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		User:         user,
	}, nil
}

func sanitize(u *models.User) {
	u.PasswordHash = ""
	u.RefreshToken = nil
}
