package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/playtube-io/playtube/internal/handlers"
	"github.com/playtube-io/playtube/internal/httpx"
	"github.com/playtube-io/playtube/internal/media"
	"github.com/playtube-io/playtube/internal/middleware"
	"github.com/playtube-io/playtube/internal/models"
	"github.com/playtube-io/playtube/internal/service"
	"github.com/playtube-io/playtube/internal/tokens"
	httpserver "github.com/playtube-io/playtube/internal/transport/http"
)

type fakeUploader struct {
	mu      sync.Mutex
	uploads int
	deleted []string
}

func (f *fakeUploader) Upload(_ context.Context, name, _ string, body io.Reader) (*media.Asset, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	id := fmt.Sprintf("fake/%d%s", f.uploads, path.Ext(name))
	return &media.Asset{PublicID: id, URL: "https://media.test/" + id}, nil
}

func (f *fakeUploader) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) byType(eventType string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, ev := range f.events {
		if ev.Event["type"] == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	T       *testing.T
	E       *echo.Echo
	DB      *gorm.DB
	Tokens  *tokens.Service
	Uploads *fakeUploader
	Events  *fakePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))

	tokenSvc := &tokens.Service{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
	uploads := &fakeUploader{}
	pub := &fakePublisher{}

	e := echo.New()
	e.Validator = httpx.NewValidator()
	e.HTTPErrorHandler = httpx.ErrorHandler

	authSvc := &service.AuthService{DB: db, Tokens: tokenSvc}
	deps := httpserver.Deps{
		DB:                  db,
		Gate:                &middleware.AuthGate{DB: db, Tokens: tokenSvc},
		AuthHandler:         &handlers.AuthHandler{Svc: authSvc, Media: uploads, Producer: pub},
		UserHandler:         &handlers.UserHandler{DB: db},
		VideoHandler:        &handlers.VideoHandler{DB: db, Media: uploads, Producer: pub},
		CommentHandler:      &handlers.CommentHandler{DB: db},
		LikeHandler:         &handlers.LikeHandler{DB: db},
		PlaylistHandler:     &handlers.PlaylistHandler{DB: db},
		SubscriptionHandler: &handlers.SubscriptionHandler{DB: db},
		TweetHandler:        &handlers.TweetHandler{DB: db},
	}
	httpserver.Register(e, &deps)

	return &testEnv{T: t, E: e, DB: db, Tokens: tokenSvc, Uploads: uploads, Events: pub}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Errors     any             `json:"errors"`
}

func (env *testEnv) do(method, target string, body io.Reader, mutate func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	env.T.Helper()

	req := httptest.NewRequest(method, target, body)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)

	var resp envelope
	if rec.Body.Len() > 0 {
		require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (env *testEnv) doJSON(method, target string, payload any, token string) (*httptest.ResponseRecorder, envelope) {
	env.T.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(env.T, err)
		body = bytes.NewReader(data)
	}
	return env.do(method, target, body, func(r *http.Request) {
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if token != "" {
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
	})
}

type session struct {
	User         models.User
	AccessToken  string
	RefreshToken string
}

func (env *testEnv) register(username, email, password string) models.User {
	env.T.Helper()

	rec, resp := env.doJSON(http.MethodPost, "/api/v1/users/register", map[string]string{
		"username": username,
		"email":    email,
		"fullName": "Test " + username,
		"password": password,
	}, "")
	require.Equal(env.T, http.StatusCreated, rec.Code, "register: %s", rec.Body.String())

	var user models.User
	require.NoError(env.T, json.Unmarshal(resp.Data, &user))
	return user
}

func (env *testEnv) login(username, password string) session {
	env.T.Helper()

	rec, resp := env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(env.T, http.StatusOK, rec.Code, "login: %s", rec.Body.String())

	var data struct {
		User         models.User `json:"user"`
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
	}
	require.NoError(env.T, json.Unmarshal(resp.Data, &data))
	return session{User: data.User, AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}
}

func (env *testEnv) signup(username string) session {
	env.T.Helper()

	env.register(username, username+"@x.com", "secret123")
	return env.login(username, "secret123")
}

func (env *testEnv) publishVideo(s session, title string) models.Video {
	env.T.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(env.T, w.WriteField("title", title))
	require.NoError(env.T, w.WriteField("description", "about "+title))

	video, err := w.CreateFormFile("video", title+".mp4")
	require.NoError(env.T, err)
	_, err = video.Write([]byte("fake video bytes"))
	require.NoError(env.T, err)

	thumb, err := w.CreateFormFile("thumbnail", title+".jpg")
	require.NoError(env.T, err)
	_, err = thumb.Write([]byte("fake thumbnail bytes"))
	require.NoError(env.T, err)
	require.NoError(env.T, w.Close())

	rec, resp := env.do(http.MethodPost, "/api/v1/videos", &buf, func(r *http.Request) {
		r.Header.Set(echo.HeaderContentType, w.FormDataContentType())
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+s.AccessToken)
	})
	require.Equal(env.T, http.StatusCreated, rec.Code, "publish video: %s", rec.Body.String())

	var v models.Video
	require.NoError(env.T, json.Unmarshal(resp.Data, &v))
	return v
}
