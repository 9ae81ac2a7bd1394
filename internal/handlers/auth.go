package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/playtube-io/playtube/internal/events"
	"github.com/playtube-io/playtube/internal/httpx"
	"github.com/playtube-io/playtube/internal/logging"
	"github.com/playtube-io/playtube/internal/media"
	"github.com/playtube-io/playtube/internal/middleware"
	"github.com/playtube-io/playtube/internal/service"
)

type AuthHandler struct {
	Svc      *service.AuthService
	Media    media.Uploader
	Producer events.Publisher
}

type registerRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email"    form:"email"    validate:"required,email"`
	FullName string `json:"fullName" form:"fullName" validate:"required"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	in := service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	}

	ctx := c.Request().Context()
	if asset, err := h.uploadFormFile(c, "avatar"); err != nil {
		return err
	} else if asset != nil {
		in.Avatar = asset.URL
	}
	if asset, err := h.uploadFormFile(c, "coverImage"); err != nil {
		return err
	} else if asset != nil {
		in.CoverImage = asset.URL
	}

	user, err := h.Svc.Register(ctx, in)
	if err != nil {
		return svcError(err)
	}

	h.publish(c, "user_events", user.ID, map[string]any{
		"type":     "user_registered",
		"userId":   user.ID,
		"username": user.Username,
	})

	return httpx.OK(c, http.StatusCreated, user, "user registered successfully")
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Username == "" && req.Email == "" {
		return httpx.NewError(http.StatusBadRequest, "username or email is required")
	}

	res, err := h.Svc.Login(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return svcError(err)
	}

	setSessionCookies(c, res)

	h.publish(c, "user_events", res.User.ID, map[string]any{
		"type":     "user_logged_in",
		"userId":   res.User.ID,
		"username": res.User.Username,
	})

	return httpx.OK(c, http.StatusOK, echo.Map{
		"user":         res.User,
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
	}, "user logged in successfully")
}

func (h *AuthHandler) Logout(c echo.Context) error {
	user := middleware.CurrentUser(c)

	if err := h.Svc.Logout(c.Request().Context(), user.ID); err != nil {
		return err
	}

	clearSessionCookies(c)
	return httpx.OK(c, http.StatusOK, nil, "user logged out successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

// Refresh accepts the token from the cookie or, for non-browser clients,
// the request body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	presented := ""
	if cookie, err := c.Cookie("refreshToken"); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := c.Bind(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	res, err := h.Svc.Refresh(c.Request().Context(), presented)
	if err != nil {
		return svcError(err)
	}

	setSessionCookies(c, res)

	return httpx.OK(c, http.StatusOK, echo.Map{
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
	}, "access token refreshed successfully")
}

func (h *AuthHandler) CurrentUser(c echo.Context) error {
	return httpx.OK(c, http.StatusOK, middleware.CurrentUser(c), "current user fetched")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user := middleware.CurrentUser(c)
	if err := h.Svc.ChangePassword(c.Request().Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		return svcError(err)
	}

	return httpx.OK(c, http.StatusOK, nil, "password changed successfully")
}

func setSessionCookies(c echo.Context, res *service.LoginResult) {
	c.SetCookie(httpx.CreateCookie("accessToken", res.AccessToken, "/", res.AccessExp))
	c.SetCookie(httpx.CreateCookie("refreshToken", res.RefreshToken, "/", res.RefreshExp))
}

func clearSessionCookies(c echo.Context) {
	c.SetCookie(httpx.DeleteCookie("accessToken", "/"))
	c.SetCookie(httpx.DeleteCookie("refreshToken", "/"))
}

func (h *AuthHandler) uploadFormFile(c echo.Context, field string) (*media.Asset, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil // field absent, fine
	}
	return uploadFile(c.Request().Context(), h.Media, fh)
}

func uploadFile(ctx context.Context, up media.Uploader, fh *multipart.FileHeader) (*media.Asset, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, httpx.NewError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer src.Close()

	asset, err := up.Upload(ctx, fh.Filename, fh.Header.Get("Content-Type"), src)
	if err != nil {
		return nil, err
	}
	return asset, nil
}

func (h *AuthHandler) publish(c echo.Context, topic, key string, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

// svcError maps service sentinels to client-visible errors. Anything not
// matched falls through to the 500 path with a generic body.
func svcError(err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return httpx.NewError(http.StatusBadRequest, "validation failed")
	case errors.Is(err, service.ErrInvalidCredentials):
		return httpx.NewError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrUserExists):
		return httpx.NewError(http.StatusConflict, "username or email already registered")
	case errors.Is(err, service.ErrUnauthenticated):
		return httpx.NewError(http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, service.ErrNotFound):
		return httpx.NewError(http.StatusNotFound, "not found")
	default:
		return err
	}
}
