package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/httpx"
	"github.com/playtube-io/playtube/internal/middleware"
	"github.com/playtube-io/playtube/internal/models"
	"github.com/playtube-io/playtube/internal/util"
)

type TweetHandler struct {
	DB *gorm.DB
}

type tweetRequest struct {
	Content string `json:"content" validate:"required,max=280"`
}

func (h *TweetHandler) Create(c echo.Context) error {
	var req tweetRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tweet := models.Tweet{
		OwnerID: middleware.CurrentUser(c).ID,
		Content: req.Content,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(&tweet).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusCreated, tweet, "tweet published")
}

type tweetView struct {
	models.Tweet
	Owner     ownerBrief `json:"owner"`
	LikeCount int64      `json:"likeCount"`
}

func (h *TweetHandler) ListForUser(c echo.Context) error {
	userID := c.Param("userId")
	if _, err := parseUUID(userID); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid user id")
	}

	ctx := c.Request().Context()

	var owner models.User
	if err := h.DB.WithContext(ctx).Where("id = ?", userID).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NewError(http.StatusNotFound, "user not found")
		}
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Tweet{}).
		Where("owner_id = ?", userID).Count(&total).Error; err != nil {
		return err
	}

	var tweets []models.Tweet
	if err := h.DB.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&tweets).Error; err != nil {
		return err
	}

	brief := ownerBrief{ID: owner.ID, Username: owner.Username, FullName: owner.FullName, Avatar: owner.Avatar}
	views := make([]tweetView, len(tweets))
	for i, t := range tweets {
		var likeCount int64
		if err := h.DB.WithContext(ctx).Model(&models.Like{}).
			Where("tweet_id = ?", t.ID).Count(&likeCount).Error; err != nil {
			return err
		}
		views[i] = tweetView{Tweet: t, Owner: brief, LikeCount: likeCount}
	}

	return httpx.OK(c, http.StatusOK, map[string]any{
		"tweets": views,
		"meta":   util.PageMeta(page, limit, total),
	}, "user tweets fetched")
}

func (h *TweetHandler) Update(c echo.Context) error {
	var req tweetRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tweet, err := h.loadOwnedTweet(c)
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(c.Request().Context()).Model(tweet).
		Update("content", req.Content).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, tweet, "tweet updated")
}

func (h *TweetHandler) Delete(c echo.Context) error {
	tweet, err := h.loadOwnedTweet(c)
	if err != nil {
		return err
	}

	err = h.DB.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tweet_id = ?", tweet.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(tweet).Error
	})
	if err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, nil, "tweet deleted")
}

func (h *TweetHandler) loadOwnedTweet(c echo.Context) (*models.Tweet, error) {
	id := c.Param("id")
	if _, err := parseUUID(id); err != nil {
		return nil, httpx.NewError(http.StatusBadRequest, "invalid tweet id")
	}

	var tweet models.Tweet
	if err := h.DB.WithContext(c.Request().Context()).Where("id = ?", id).First(&tweet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.NewError(http.StatusNotFound, "tweet not found")
		}
		return nil, err
	}
	if tweet.OwnerID != middleware.CurrentUser(c).ID {
		return nil, httpx.NewError(http.StatusForbidden, "not the tweet owner")
	}
	return &tweet, nil
}
