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

type LikeHandler struct {
	DB *gorm.DB
}

func (h *LikeHandler) ToggleVideoLike(c echo.Context) error {
	return h.toggle(c, "video_id", c.Param("id"), &models.Video{}, func(l *models.Like, id string) {
		l.VideoID = &id
	})
}

func (h *LikeHandler) ToggleCommentLike(c echo.Context) error {
	return h.toggle(c, "comment_id", c.Param("id"), &models.Comment{}, func(l *models.Like, id string) {
		l.CommentID = &id
	})
}

func (h *LikeHandler) ToggleTweetLike(c echo.Context) error {
	return h.toggle(c, "tweet_id", c.Param("id"), &models.Tweet{}, func(l *models.Like, id string) {
		l.TweetID = &id
	})
}

// toggle creates the like when absent and removes it when present.
func (h *LikeHandler) toggle(c echo.Context, column, targetID string, target any, set func(*models.Like, string)) error {
	if _, err := parseUUID(targetID); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	userID := middleware.CurrentUser(c).ID

	if err := h.targetMustExist(ctx, target, targetID); err != nil {
		return err
	}

	var existing models.Like
	err := h.DB.WithContext(ctx).
		Where(column+" = ? AND liked_by_id = ?", targetID, userID).
		First(&existing).Error

	switch {
	case err == nil:
		if err := h.DB.WithContext(ctx).Delete(&existing).Error; err != nil {
			return err
		}
		return httpx.OK(c, http.StatusOK, echo.Map{"liked": false}, "like removed")
	case errors.Is(err, gorm.ErrRecordNotFound):
		like := models.Like{LikedByID: userID}
		set(&like, targetID)
		if err := h.DB.WithContext(ctx).Create(&like).Error; err != nil {
			return err
		}
		return httpx.OK(c, http.StatusOK, echo.Map{"liked": true, "like": like}, "like created")
	default:
		return err
	}
}

type likedVideo struct {
	models.Like
	Video models.Video `json:"video"`
}

// LikedVideos is the read-side join of the viewer's video likes with the
// video documents themselves.
func (h *LikeHandler) LikedVideos(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.CurrentUser(c).ID

	var likes []models.Like
	if err := h.DB.WithContext(ctx).
		Where("liked_by_id = ? AND video_id IS NOT NULL", userID).
		Order("created_at DESC").
		Find(&likes).Error; err != nil {
		return err
	}

	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, *l.VideoID)
	}

	videos := map[string]models.Video{}
	if len(ids) > 0 {
		var rows []models.Video
		if err := h.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return err
		}
		for _, v := range rows {
			videos[v.ID] = v
		}
	}

	out := make([]likedVideo, 0, len(likes))
	for _, l := range likes {
		if v, ok := videos[*l.VideoID]; ok {
			out = append(out, likedVideo{Like: l, Video: v})
		}
	}

	return httpx.OK(c, http.StatusOK, out, "liked videos fetched")
}

func (h *LikeHandler) targetMustExist(ctx context.Context, model any, id string) error {
	var count int64
	if err := h.DB.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return httpx.NewError(http.StatusNotFound, "not found")
	}
	return nil
}
