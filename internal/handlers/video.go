package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/events"
	"github.com/playtube-io/playtube/internal/httpx"
	"github.com/playtube-io/playtube/internal/logging"
	"github.com/playtube-io/playtube/internal/media"
	"github.com/playtube-io/playtube/internal/middleware"
	"github.com/playtube-io/playtube/internal/models"
	"github.com/playtube-io/playtube/internal/search"
	"github.com/playtube-io/playtube/internal/util"
)

type VideoHandler struct {
	DB       *gorm.DB
	Media    media.Uploader
	Producer events.Publisher
	ES       *elasticsearch.Client
	ESIndex  string
}

// ownerBrief is the projection of a user joined into video/comment/tweet
// listings.
type ownerBrief struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

type videoDetail struct {
	models.Video
	Owner           ownerBrief `json:"owner" gorm:"embedded"`
	LikeCount       int64      `json:"likeCount"`
	CommentCount    int64      `json:"commentCount"`
	SubscriberCount int64      `json:"subscriberCount"`
	IsSubscribed    bool       `json:"isSubscribed"`
}

func (h *VideoHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	viewer := middleware.CurrentUser(c)

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.WithContext(ctx).Model(&models.Video{})

	if ownerID := c.QueryParam("userId"); ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
		if ownerID != viewer.ID {
			q = q.Where("is_published = ?", true)
		}
	} else {
		q = q.Where("is_published = ? OR owner_id = ?", true, viewer.ID)
	}

	if query := c.QueryParam("query"); query != "" {
		q = q.Where("title LIKE ?", "%"+query+"%")
	}

	q = q.Order(sortClause(c.QueryParam("sortBy"), c.QueryParam("sortType")))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return err
	}

	var items []models.Video
	if err := q.Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, map[string]any{
		"videos": items,
		"meta":   util.PageMeta(page, limit, total),
	}, "videos fetched")
}

type publishVideoRequest struct {
	Title       string `form:"title"       validate:"required,max=200"`
	Description string `form:"description" validate:"required"`
}

func (h *VideoHandler) Publish(c echo.Context) error {
	var req publishVideoRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	videoFH, err := c.FormFile("video")
	if err != nil {
		return httpx.NewError(http.StatusBadRequest, "video file is required")
	}
	thumbFH, err := c.FormFile("thumbnail")
	if err != nil {
		return httpx.NewError(http.StatusBadRequest, "thumbnail file is required")
	}

	ctx := c.Request().Context()
	owner := middleware.CurrentUser(c)

	videoAsset, err := uploadFile(ctx, h.Media, videoFH)
	if err != nil {
		return err
	}
	thumbAsset, err := uploadFile(ctx, h.Media, thumbFH)
	if err != nil {
		// the video asset is already out there, reclaim it
		_ = h.Media.Delete(ctx, videoAsset.PublicID)
		return err
	}

	video := models.Video{
		OwnerID:           owner.ID,
		Title:             req.Title,
		Description:       req.Description,
		VideoURL:          videoAsset.URL,
		VideoPublicID:     videoAsset.PublicID,
		ThumbnailURL:      thumbAsset.URL,
		ThumbnailPublicID: thumbAsset.PublicID,
		IsPublished:       true,
	}
	if err := h.DB.WithContext(ctx).Create(&video).Error; err != nil {
		return err
	}

	h.index(c, &video)
	h.publish(c, "video_events", video.ID, map[string]any{
		"type":    "video_published",
		"videoId": video.ID,
		"ownerId": owner.ID,
	})

	return httpx.OK(c, http.StatusCreated, video, "video published")
}

func (h *VideoHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	viewer := middleware.CurrentUser(c)

	video, err := h.loadVideo(c)
	if err != nil {
		return err
	}
	if !video.IsPublished && video.OwnerID != viewer.ID {
		return httpx.NewError(http.StatusNotFound, "video not found")
	}

	if err := h.DB.WithContext(ctx).Model(video).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		return err
	}
	video.Views++

	detail := videoDetail{Video: *video}

	var owner models.User
	if err := h.DB.WithContext(ctx).Where("id = ?", video.OwnerID).First(&owner).Error; err != nil {
		return err
	}
	detail.Owner = ownerBrief{ID: owner.ID, Username: owner.Username, FullName: owner.FullName, Avatar: owner.Avatar}

	if err := h.DB.WithContext(ctx).Model(&models.Like{}).
		Where("video_id = ?", video.ID).
		Count(&detail.LikeCount).Error; err != nil {
		return err
	}
	if err := h.DB.WithContext(ctx).Model(&models.Comment{}).
		Where("video_id = ?", video.ID).
		Count(&detail.CommentCount).Error; err != nil {
		return err
	}
	if err := h.DB.WithContext(ctx).Model(&models.Subscription{}).
		Where("channel_id = ?", video.OwnerID).
		Count(&detail.SubscriberCount).Error; err != nil {
		return err
	}

	var viewerSub int64
	if err := h.DB.WithContext(ctx).Model(&models.Subscription{}).
		Where("subscriber_id = ? AND channel_id = ?", viewer.ID, video.OwnerID).
		Count(&viewerSub).Error; err != nil {
		return err
	}
	detail.IsSubscribed = viewerSub > 0

	return httpx.OK(c, http.StatusOK, detail, "video details fetched")
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *VideoHandler) Update(c echo.Context) error {
	var req updateVideoRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if req.Title == "" && req.Description == "" {
		return httpx.NewError(http.StatusBadRequest, "title or description is required")
	}

	video, err := h.loadOwnedVideo(c)
	if err != nil {
		return err
	}

	updates := map[string]any{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if err := h.DB.WithContext(c.Request().Context()).Model(video).Updates(updates).Error; err != nil {
		return err
	}

	h.index(c, video)
	return httpx.OK(c, http.StatusOK, video, "video updated")
}

func (h *VideoHandler) UpdateThumbnail(c echo.Context) error {
	thumbFH, err := c.FormFile("thumbnail")
	if err != nil {
		return httpx.NewError(http.StatusBadRequest, "thumbnail file is required")
	}

	video, err := h.loadOwnedVideo(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	asset, err := uploadFile(ctx, h.Media, thumbFH)
	if err != nil {
		return err
	}

	oldPublicID := video.ThumbnailPublicID
	if err := h.DB.WithContext(ctx).Model(video).Updates(map[string]any{
		"thumbnail_url":       asset.URL,
		"thumbnail_public_id": asset.PublicID,
	}).Error; err != nil {
		return err
	}

	if err := h.Media.Delete(ctx, oldPublicID); err != nil {
		logging.FromContext(ctx).Warn("stale thumbnail not deleted", "public_id", oldPublicID, "error", err)
	}

	return httpx.OK(c, http.StatusOK, video, "thumbnail updated")
}

func (h *VideoHandler) TogglePublish(c echo.Context) error {
	video, err := h.loadOwnedVideo(c)
	if err != nil {
		return err
	}

	video.IsPublished = !video.IsPublished
	if err := h.DB.WithContext(c.Request().Context()).Model(video).
		Update("is_published", video.IsPublished).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, video, "publish status toggled")
}

func (h *VideoHandler) Delete(c echo.Context) error {
	video, err := h.loadOwnedVideo(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", video.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("video_id = ?", video.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("video_id = ?", video.ID).Delete(&models.PlaylistVideo{}).Error; err != nil {
			return err
		}
		return tx.Delete(video).Error
	})
	if err != nil {
		return err
	}

	l := logging.FromContext(ctx)
	if err := h.Media.Delete(ctx, video.VideoPublicID); err != nil {
		l.Warn("video asset not deleted", "public_id", video.VideoPublicID, "error", err)
	}
	if err := h.Media.Delete(ctx, video.ThumbnailPublicID); err != nil {
		l.Warn("thumbnail asset not deleted", "public_id", video.ThumbnailPublicID, "error", err)
	}
	if h.ES != nil {
		if err := search.Remove(ctx, h.ES, h.ESIndex, video.ID); err != nil {
			l.Warn("video not removed from index", "video_id", video.ID, "error", err)
		}
	}

	return httpx.OK(c, http.StatusOK, nil, "video deleted")
}

func (h *VideoHandler) loadVideo(c echo.Context) (*models.Video, error) {
	id := c.Param("id")
	if _, err := parseUUID(id); err != nil {
		return nil, httpx.NewError(http.StatusBadRequest, "invalid video id")
	}

	var video models.Video
	if err := h.DB.WithContext(c.Request().Context()).Where("id = ?", id).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.NewError(http.StatusNotFound, "video not found")
		}
		return nil, err
	}
	return &video, nil
}

func (h *VideoHandler) loadOwnedVideo(c echo.Context) (*models.Video, error) {
	video, err := h.loadVideo(c)
	if err != nil {
		return nil, err
	}
	if video.OwnerID != middleware.CurrentUser(c).ID {
		return nil, httpx.NewError(http.StatusForbidden, "not the video owner")
	}
	return video, nil
}

// index pushes the video into Elasticsearch, best effort.
func (h *VideoHandler) index(c echo.Context, video *models.Video) {
	if h.ES == nil {
		return
	}
	ctx := c.Request().Context()
	if err := search.Index(ctx, h.ES, h.ESIndex, video); err != nil {
		logging.FromContext(ctx).Warn("video not indexed", "video_id", video.ID, "error", err)
	}
}

func (h *VideoHandler) publish(c echo.Context, topic, key string, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func sortClause(sortBy, sortType string) string {
	col := "created_at"
	switch sortBy {
	case "views":
		col = "views"
	case "duration":
		col = "duration"
	case "createdAt", "":
	default:
		col = "created_at"
	}
	dir := "DESC"
	if sortType == "asc" {
		dir = "ASC"
	}
	return col + " " + dir
}
