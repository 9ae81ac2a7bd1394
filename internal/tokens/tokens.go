package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures, one per class. Handlers collapse all of them
// into a generic 401 so clients get no verification oracle.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// AccessClaims ride on short-lived access tokens. Verified statelessly.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the identity; the token itself is checked
// against the stored artifact on every refresh.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// Service signs and verifies both token classes. It is stateless: a pure
// function of (identity, secret, expiry).
type Service struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (s *Service) SignAccessToken(userID, username, email string) (string, time.Time, error) {
	exp := time.Now().Add(s.AccessTTL)
	claims := AccessClaims{
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// SignRefreshToken mints a refresh token. The jti makes every token
// unique, so back-to-back rotations inside one second still produce
// distinct artifact strings.
func (s *Service) SignRefreshToken(userID string) (string, time.Time, error) {
	exp := time.Now().Add(s.RefreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *Service) ParseAccess(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(tokenStr, &claims, s.AccessSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (s *Service) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parse(tokenStr, &claims, s.RefreshSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		return classify(err)
	}
	if !tkn.Valid {
		return ErrTokenMalformed
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	default:
		return ErrTokenMalformed
	}
}
