package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/httpx"
	"github.com/playtube-io/playtube/internal/middleware"
	"github.com/playtube-io/playtube/internal/models"
)

type PlaylistHandler struct {
	DB *gorm.DB
}

type playlistRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=1000"`
}

func (h *PlaylistHandler) Create(c echo.Context) error {
	var req playlistRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	playlist := models.Playlist{
		OwnerID:     middleware.CurrentUser(c).ID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(&playlist).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusCreated, playlist, "playlist created")
}

func (h *PlaylistHandler) ListForUser(c echo.Context) error {
	userID := c.Param("userId")
	if _, err := parseUUID(userID); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid user id")
	}

	var playlists []models.Playlist
	if err := h.DB.WithContext(c.Request().Context()).
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&playlists).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, playlists, "user playlists fetched")
}

type playlistDetail struct {
	models.Playlist
	Videos []models.Video `json:"videos"`
}

func (h *PlaylistHandler) Get(c echo.Context) error {
	playlist, err := h.loadPlaylist(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var videos []models.Video
	if err := h.DB.WithContext(ctx).
		Joins("JOIN playlist_videos pv ON pv.video_id = videos.id").
		Where("pv.playlist_id = ?", playlist.ID).
		Order("pv.created_at ASC").
		Find(&videos).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, playlistDetail{Playlist: *playlist, Videos: videos}, "playlist fetched")
}

func (h *PlaylistHandler) Update(c echo.Context) error {
	var req playlistRequest
	if err := c.Bind(&req); err != nil {
		return httpx.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	playlist, err := h.loadOwnedPlaylist(c)
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(c.Request().Context()).Model(playlist).Updates(map[string]any{
		"name":        req.Name,
		"description": req.Description,
	}).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, playlist, "playlist updated")
}

func (h *PlaylistHandler) Delete(c echo.Context) error {
	playlist, err := h.loadOwnedPlaylist(c)
	if err != nil {
		return err
	}

	err = h.DB.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", playlist.ID).Delete(&models.PlaylistVideo{}).Error; err != nil {
			return err
		}
		return tx.Delete(playlist).Error
	})
	if err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, nil, "playlist deleted")
}

func (h *PlaylistHandler) AddVideo(c echo.Context) error {
	playlist, videoID, err := h.loadOwnedPlaylistAndVideoID(c)
	if err != nil {
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

	var dup int64
	if err := h.DB.WithContext(ctx).Model(&models.PlaylistVideo{}).
		Where("playlist_id = ? AND video_id = ?", playlist.ID, videoID).
		Count(&dup).Error; err != nil {
		return err
	}
	if dup > 0 {
		return httpx.NewError(http.StatusConflict, "video already in playlist")
	}

	entry := models.PlaylistVideo{PlaylistID: playlist.ID, VideoID: videoID}
	if err := h.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, entry, "video added to playlist")
}

func (h *PlaylistHandler) RemoveVideo(c echo.Context) error {
	playlist, videoID, err := h.loadOwnedPlaylistAndVideoID(c)
	if err != nil {
		return err
	}

	result := h.DB.WithContext(c.Request().Context()).
		Where("playlist_id = ? AND video_id = ?", playlist.ID, videoID).
		Delete(&models.PlaylistVideo{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return httpx.NewError(http.StatusNotFound, "video not in playlist")
	}

	return httpx.OK(c, http.StatusOK, nil, "video removed from playlist")
}

func (h *PlaylistHandler) loadPlaylist(c echo.Context) (*models.Playlist, error) {
	id := c.Param("id")
	if _, err := parseUUID(id); err != nil {
		return nil, httpx.NewError(http.StatusBadRequest, "invalid playlist id")
	}

	var playlist models.Playlist
	if err := h.DB.WithContext(c.Request().Context()).Where("id = ?", id).First(&playlist).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.NewError(http.StatusNotFound, "playlist not found")
		}
		return nil, err
	}
	return &playlist, nil
}

func (h *PlaylistHandler) loadOwnedPlaylist(c echo.Context) (*models.Playlist, error) {
	playlist, err := h.loadPlaylist(c)
	if err != nil {
		return nil, err
	}
	if playlist.OwnerID != middleware.CurrentUser(c).ID {
		return nil, httpx.NewError(http.StatusForbidden, "not the playlist owner")
	}
	return playlist, nil
}

func (h *PlaylistHandler) loadOwnedPlaylistAndVideoID(c echo.Context) (*models.Playlist, string, error) {
	playlist, err := h.loadOwnedPlaylist(c)
	if err != nil {
		return nil, "", err
	}
	videoID := c.Param("videoId")
	if _, err := parseUUID(videoID); err != nil {
		return nil, "", httpx.NewError(http.StatusBadRequest, "invalid video id")
	}
	return playlist, videoID, nil
}
