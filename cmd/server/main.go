package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/playtube-io/playtube/internal/config"
	"github.com/playtube-io/playtube/internal/events"
	"github.com/playtube-io/playtube/internal/handlers"
	"github.com/playtube-io/playtube/internal/httpx"
	"github.com/playtube-io/playtube/internal/logging"
	"github.com/playtube-io/playtube/internal/media"
	"github.com/playtube-io/playtube/internal/middleware"
	"github.com/playtube-io/playtube/internal/search"
	"github.com/playtube-io/playtube/internal/service"
	"github.com/playtube-io/playtube/internal/tokens"
	httpserver "github.com/playtube-io/playtube/internal/transport/http"
)

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	db, err := config.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	tokenSvc := &tokens.Service{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	authSvc := &service.AuthService{DB: db, Tokens: tokenSvc}
	gate := &middleware.AuthGate{DB: db, Tokens: tokenSvc}

	uploader, err := media.NewS3Uploader(cfg.S3Region, cfg.S3Bucket)
	if err != nil {
		log.Fatalf("media init: %v", err)
	}

	var producer events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
	}

	var searchHandler *handlers.SearchHandler
	videoHandler := &handlers.VideoHandler{DB: db, Media: uploader, Producer: producer, ESIndex: cfg.ESIndex}
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init: %v", err)
		}
		videoHandler.ES = esClient
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: cfg.ESIndex}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpx.NewValidator()
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowCredentials: cfg.CORSOrigin != "*",
	}))
	e.Use(middleware.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:                  db,
		Gate:                gate,
		AuthHandler:         &handlers.AuthHandler{Svc: authSvc, Media: uploader, Producer: producer},
		UserHandler:         &handlers.UserHandler{DB: db},
		VideoHandler:        videoHandler,
		CommentHandler:      &handlers.CommentHandler{DB: db},
		LikeHandler:         &handlers.LikeHandler{DB: db},
		PlaylistHandler:     &handlers.PlaylistHandler{DB: db},
		SubscriptionHandler: &handlers.SubscriptionHandler{DB: db},
		TweetHandler:        &handlers.TweetHandler{DB: db},
		SearchHandler:       searchHandler,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
