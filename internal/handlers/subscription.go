package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/httpx"
	"github.com/playtube-io/playtube/internal/middleware"
	"github.com/playtube-io/playtube/internal/models"
)

type SubscriptionHandler struct {
	DB *gorm.DB
}

func (h *SubscriptionHandler) Toggle(c echo.Context) error {
	channelID := c.Param("channelId")
	if _, err := parseUUID(channelID); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid channel id")
	}

	ctx := c.Request().Context()
	subscriberID := middleware.CurrentUser(c).ID
	if subscriberID == channelID {
		return httpx.NewError(http.StatusBadRequest, "cannot subscribe to yourself")
	}

	var channelExists int64
	if err := h.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", channelID).Count(&channelExists).Error; err != nil {
		return err
	}
	if channelExists == 0 {
		return httpx.NewError(http.StatusNotFound, "channel not found")
	}

	var existing models.Subscription
	err := h.DB.WithContext(ctx).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		First(&existing).Error

	switch {
	case err == nil:
		if err := h.DB.WithContext(ctx).Delete(&existing).Error; err != nil {
			return err
		}
		return httpx.OK(c, http.StatusOK, echo.Map{"subscribed": false}, "subscription removed")
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub := models.Subscription{SubscriberID: subscriberID, ChannelID: channelID}
		if err := h.DB.WithContext(ctx).Create(&sub).Error; err != nil {
			return err
		}
		return httpx.OK(c, http.StatusOK, echo.Map{"subscribed": true, "subscription": sub}, "subscription created")
	default:
		return err
	}
}

// Subscribers lists the users subscribed to a channel.
func (h *SubscriptionHandler) Subscribers(c echo.Context) error {
	channelID := c.Param("channelId")
	if _, err := parseUUID(channelID); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid channel id")
	}

	ctx := c.Request().Context()
	if err := h.userMustExist(ctx, channelID, "channel not found"); err != nil {
		return err
	}

	var subscribers []ownerBrief
	if err := h.DB.WithContext(ctx).Model(&models.User{}).
		Select("users.id, users.username, users.full_name, users.avatar").
		Joins("JOIN subscriptions s ON s.subscriber_id = users.id").
		Where("s.channel_id = ?", channelID).
		Order("s.created_at DESC").
		Scan(&subscribers).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, map[string]any{
		"subscribers": subscribers,
		"count":       len(subscribers),
	}, "channel subscribers fetched")
}

// SubscribedChannels lists the channels a user subscribes to.
func (h *SubscriptionHandler) SubscribedChannels(c echo.Context) error {
	subscriberID := c.Param("subscriberId")
	if _, err := parseUUID(subscriberID); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid subscriber id")
	}

	ctx := c.Request().Context()
	if err := h.userMustExist(ctx, subscriberID, "user not found"); err != nil {
		return err
	}

	var channels []ownerBrief
	if err := h.DB.WithContext(ctx).Model(&models.User{}).
		Select("users.id, users.username, users.full_name, users.avatar").
		Joins("JOIN subscriptions s ON s.channel_id = users.id").
		Where("s.subscriber_id = ?", subscriberID).
		Order("s.created_at DESC").
		Scan(&channels).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, map[string]any{
		"channels": channels,
		"count":    len(channels),
	}, "subscribed channels fetched")
}

func (h *SubscriptionHandler) userMustExist(ctx context.Context, id, message string) error {
	var count int64
	if err := h.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return httpx.NewError(http.StatusNotFound, message)
	}
	return nil
}
