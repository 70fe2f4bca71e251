package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"athena-feed/internal/auth"
	"athena-feed/internal/cache"
	"athena-feed/internal/mixer"
	"athena-feed/internal/ranking"
	"athena-feed/internal/repository/sqlstore"
	"athena-feed/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiResponse struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      *apiError       `json:"error"`
	Pagination *pagination     `json:"pagination"`
	Timestamp  string          `json:"timestamp"`
}

type testServer struct {
	router *gin.Engine
	store  *sqlstore.Store
	tokens *auth.Manager
	cache  *cache.Memory
}

func newTestServer(t *testing.T, limit RateLimit) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := sqlstore.Open("sqlite", filepath.Join(t.TempDir(), "athena.db"))
	require.NoError(t, err)
	store := sqlstore.NewStore(db)
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { store.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	mem := cache.NewMemory()
	scorer := ranking.NewScorer(ranking.DefaultWeights(), nil)
	m, err := mixer.New(mixer.DefaultConfig())
	require.NoError(t, err)

	feed := service.NewFeedService(store.Users, store.Follows, store.Posts, store.Likes, mem, scorer, service.FeedConfig{
		MaxPostsPerCreator: 3,
		CandidateLimit:     200,
		TrendingTTL:        time.Minute,
	}, logger)
	tokens := auth.NewManager("test-secret", 15*time.Minute, 7*24*time.Hour)

	handler := NewHandler(Config{
		Users: service.NewUserService(store.Users, store.Follows, ""),
		Posts: service.NewPostService(store.Posts, store.Likes, store.Comments, store.Media, logger),
		Feed:  feed,
		Mix:   service.NewMixService(feed, store.Users, store.Follows, store.Jobs, store.Courses, store.Campaigns, m, scorer),
		ColdStart: service.NewColdStartService(service.ColdStartDeps{
			Users:   store.Users,
			Posts:   store.Posts,
			Jobs:    store.Jobs,
			Courses: store.Courses,
			Mentors: store.Mentors,
			Groups:  store.Groups,
		}),
		Opportunities: service.NewOpportunityService(store.Jobs, store.Courses, store.Campaigns, store.Mentors, store.Groups),
		Media: service.NewMediaService(store.Media, nil, nil, service.MediaConfig{
			StagingDir: t.TempDir(),
		}, logger),
		Tokens:    tokens,
		Cache:     mem,
		Logger:    logger,
		RateLimit: limit,
	})

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router, store: store, tokens: tokens, cache: mem}
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) requestOption {
	return func(r *http.Request) { r.AddCookie(c) }
}

func (s *testServer) do(t *testing.T, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, path, fileName string, content []byte, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data), string(resp.Data))
	}
	return resp
}

type session struct {
	UserID string
	Token  string
}

func (s *testServer) register(t *testing.T, name string) session {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":       name + "@example.com",
		"password":    "password123",
		"displayName": name,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out AuthResponse
	decode(t, rec, &out)
	return session{UserID: out.User.ID, Token: out.AccessToken}
}

// admin issues a token carrying the admin role for an existing user.
func (s *testServer) admin(t *testing.T, userID string) string {
	t.Helper()
	pair, err := s.tokens.Issue(userID, "ADMIN")
	require.NoError(t, err)
	return pair.AccessToken
}

func (s *testServer) createPost(t *testing.T, token string, body map[string]any) PostResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/posts", body, withToken(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post PostResponse
	decode(t, rec, &post)
	return post
}
