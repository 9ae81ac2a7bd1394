package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/httpx"
	"github.com/playtube-io/playtube/internal/middleware"
	"github.com/playtube-io/playtube/internal/models"
)

type UserHandler struct {
	DB *gorm.DB
}

type channelProfile struct {
	models.User
	SubscriberCount      int64 `json:"subscriberCount"`
	ChannelsSubscribedTo int64 `json:"channelsSubscribedTo"`
	IsSubscribed         bool  `json:"isSubscribed"`
}

// ChannelProfile is the derived read-side view of a user as a channel:
// base record plus subscription counts and the viewer's own flag.
func (h *UserHandler) ChannelProfile(c echo.Context) error {
	username := strings.ToLower(c.Param("username"))
	if username == "" {
		return httpx.NewError(http.StatusBadRequest, "username is required")
	}

	ctx := c.Request().Context()
	viewer := middleware.CurrentUser(c)

	var user models.User
	if err := h.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NewError(http.StatusNotFound, "channel not found")
		}
		return err
	}
	user.PasswordHash = ""
	user.RefreshToken = nil

	profile := channelProfile{User: user}

	if err := h.DB.WithContext(ctx).Model(&models.Subscription{}).
		Where("channel_id = ?", user.ID).
		Count(&profile.SubscriberCount).Error; err != nil {
		return err
	}
	if err := h.DB.WithContext(ctx).Model(&models.Subscription{}).
		Where("subscriber_id = ?", user.ID).
		Count(&profile.ChannelsSubscribedTo).Error; err != nil {
		return err
	}

	var viewerSub int64
	if err := h.DB.WithContext(ctx).Model(&models.Subscription{}).
		Where("subscriber_id = ? AND channel_id = ?", viewer.ID, user.ID).
		Count(&viewerSub).Error; err != nil {
		return err
	}
	profile.IsSubscribed = viewerSub > 0

	return httpx.OK(c, http.StatusOK, profile, "channel profile fetched")
}
