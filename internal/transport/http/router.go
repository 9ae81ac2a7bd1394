package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/handlers"
	"github.com/playtube-io/playtube/internal/middleware"
)

type Deps struct {
	DB                  *gorm.DB
	Gate                *middleware.AuthGate
	AuthHandler         *handlers.AuthHandler
	UserHandler         *handlers.UserHandler
	VideoHandler        *handlers.VideoHandler
	CommentHandler      *handlers.CommentHandler
	LikeHandler         *handlers.LikeHandler
	PlaylistHandler     *handlers.PlaylistHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	TweetHandler        *handlers.TweetHandler
	SearchHandler       *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/healthz/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/healthz/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")
	auth := d.Gate.RequireAuth

	users := v1.Group("/users")
	users.POST("/register", d.AuthHandler.Register)
	users.POST("/login", d.AuthHandler.Login)
	users.POST("/refresh-token", d.AuthHandler.Refresh)
	users.POST("/logout", d.AuthHandler.Logout, auth)
	users.GET("/current", d.AuthHandler.CurrentUser, auth)
	users.PATCH("/change-password", d.AuthHandler.ChangePassword, auth)
	users.GET("/channel/:username", d.UserHandler.ChannelProfile, auth)

	videos := v1.Group("/videos", auth)
	videos.GET("", d.VideoHandler.List)
	videos.POST("", d.VideoHandler.Publish)
	videos.GET("/:id", d.VideoHandler.Get)
	videos.PATCH("/:id", d.VideoHandler.Update)
	videos.DELETE("/:id", d.VideoHandler.Delete)
	videos.PATCH("/:id/thumbnail", d.VideoHandler.UpdateThumbnail)
	videos.PATCH("/:id/toggle-publish", d.VideoHandler.TogglePublish)

	comments := v1.Group("/comments", auth)
	comments.GET("/video/:videoId", d.CommentHandler.ListForVideo)
	comments.POST("/video/:videoId", d.CommentHandler.Add)
	comments.PATCH("/:id", d.CommentHandler.Update)
	comments.DELETE("/:id", d.CommentHandler.Delete)

	likes := v1.Group("/likes", auth)
	likes.POST("/video/:id", d.LikeHandler.ToggleVideoLike)
	likes.POST("/comment/:id", d.LikeHandler.ToggleCommentLike)
	likes.POST("/tweet/:id", d.LikeHandler.ToggleTweetLike)
	likes.GET("/videos", d.LikeHandler.LikedVideos)

	playlists := v1.Group("/playlists", auth)
	playlists.POST("", d.PlaylistHandler.Create)
	playlists.GET("/user/:userId", d.PlaylistHandler.ListForUser)
	playlists.GET("/:id", d.PlaylistHandler.Get)
	playlists.PATCH("/:id", d.PlaylistHandler.Update)
	playlists.DELETE("/:id", d.PlaylistHandler.Delete)
	playlists.PUT("/:id/videos/:videoId", d.PlaylistHandler.AddVideo)
	playlists.DELETE("/:id/videos/:videoId", d.PlaylistHandler.RemoveVideo)

	subs := v1.Group("/subscriptions", auth)
	subs.POST("/channels/:channelId", d.SubscriptionHandler.Toggle)
	subs.GET("/channels/:channelId/subscribers", d.SubscriptionHandler.Subscribers)
	subs.GET("/users/:subscriberId/channels", d.SubscriptionHandler.SubscribedChannels)

	tweets := v1.Group("/tweets", auth)
	tweets.POST("", d.TweetHandler.Create)
	tweets.GET("/user/:userId", d.TweetHandler.ListForUser)
	tweets.PATCH("/:id", d.TweetHandler.Update)
	tweets.DELETE("/:id", d.TweetHandler.Delete)

	if d.SearchHandler != nil && d.SearchHandler.ES != nil {
		v1.GET("/search", d.SearchHandler.Search, auth)
	}
}
