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
	"github.com/playtube-io/playtube/internal/util"
)

type CommentHandler struct {
	DB *gorm.DB
}

type commentView struct {
	models.Comment
	Owner ownerBrief `json:"owner"`
}

func (h *CommentHandler) ListForVideo(c echo.Context) error {
	videoID := c.Param("videoId")
	if _, err := parseUUID(videoID); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid video id")
	}

	ctx := c.Request().Context()

	var exists int64
	if err := h.DB.WithContext(ctx).Model(&models.Video{}).
		Where("id = ?", videoID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return httpx.NewError(http.StatusNotFound, "video not found")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Comment{}).
		Where("video_id = ?", videoID).Count(&total).Error; err != nil {
		return err
	}

	var comments []models.Comment
	if err := h.DB.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&comments).Error; err != nil {
		return err
	}

	views, err := h.joinOwners(ctx, comments)
	if err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, map[string]any{
		"comments": views,
		"meta":     util.PageMeta(page, limit, total),
	}, "comments fetched")
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (h *CommentHandler) Add(c echo.Context) error {
	videoID := c.Param("videoId")
	if _, err := parseUUID(videoID); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid video id")
	}

	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()

	var exists int64
	if err := h.DB.WithContext(ctx).Model(&models.Video{}).
		Where("id = ?", videoID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return httpx.NewError(http.StatusNotFound, "video not found")
	}

	comment := models.Comment{
		VideoID: videoID,
		OwnerID: middleware.CurrentUser(c).ID,
		Content: req.Content,
	}
	if err := h.DB.WithContext(ctx).Create(&comment).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusCreated, comment, "comment added")
}

func (h *CommentHandler) Update(c echo.Context) error {
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := h.loadOwnedComment(c)
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(c.Request().Context()).Model(comment).
		Update("content", req.Content).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, comment, "comment updated")
}

func (h *CommentHandler) Delete(c echo.Context) error {
	comment, err := h.loadOwnedComment(c)
	if err != nil {
		return err
	}

	err = h.DB.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(comment).Error
	})
	if err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, nil, "comment deleted")
}

func (h *CommentHandler) loadOwnedComment(c echo.Context) (*models.Comment, error) {
	id := c.Param("id")
	if _, err := parseUUID(id); err != nil {
		return nil, httpx.NewError(http.StatusBadRequest, "invalid comment id")
	}

	var comment models.Comment
	if err := h.DB.WithContext(c.Request().Context()).Where("id = ?", id).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.NewError(http.StatusNotFound, "comment not found")
		}
		return nil, err
	}
	if comment.OwnerID != middleware.CurrentUser(c).ID {
		return nil, httpx.NewError(http.StatusForbidden, "not the comment owner")
	}
	return &comment, nil
}

func (h *CommentHandler) joinOwners(ctx context.Context, comments []models.Comment) ([]commentView, error) {
	ids := make([]string, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.OwnerID)
	}

	owners := map[string]ownerBrief{}
	if len(ids) > 0 {
		var users []models.User
		if err := h.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			owners[u.ID] = ownerBrief{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
		}
	}

	views := make([]commentView, len(comments))
	for i, cm := range comments {
		views[i] = commentView{Comment: cm, Owner: owners[cm.OwnerID]}
	}
	return views, nil
}
