package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"athena-feed/internal/cache"
	"athena-feed/internal/domain"
	"athena-feed/internal/mixer"
	"athena-feed/internal/ranking"
	"athena-feed/internal/repository/sqlstore"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return baseTime }

type testEnv struct {
	store  *sqlstore.Store
	cache  *cache.Memory
	scorer *ranking.Scorer
	logger *logrus.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlstore.Open("sqlite", filepath.Join(t.TempDir(), "athena.db"))
	require.NoError(t, err)
	store := sqlstore.NewStore(db)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { store.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &testEnv{
		store:  store,
		cache:  cache.NewMemory(),
		scorer: ranking.NewScorer(ranking.DefaultWeights(), fixedClock),
		logger: logger,
	}
}

func (e *testEnv) feed(cfg FeedConfig) *feedService {
	s := newFeedService(e.store.Users, e.store.Follows, e.store.Posts, e.store.Likes, e.cache, e.scorer, cfg, e.logger)
	s.now = fixedClock
	return s
}

func (e *testEnv) mix(t *testing.T) *mixService {
	t.Helper()
	m, err := mixer.New(mixer.DefaultConfig())
	require.NoError(t, err)
	s := NewMixService(e.feed(FeedConfig{}), e.store.Users, e.store.Follows, e.store.Jobs, e.store.Courses,
		e.store.Campaigns, m, e.scorer).(*mixService)
	s.now = fixedClock
	return s
}

func (e *testEnv) user(t *testing.T, id string, mutate ...func(u *domain.User)) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: "hash",
		DisplayName:  "User " + id,
		IsActive:     true,
		CreatedAt:    baseTime.Add(-30 * 24 * time.Hour),
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) post(t *testing.T, id, author string, age time.Duration, mutate ...func(p *domain.Post)) *domain.Post {
	t.Helper()
	p := &domain.Post{
		ID:        id,
		AuthorID:  author,
		Type:      domain.PostTypeText,
		Content:   "post " + id,
		IsPublic:  true,
		CreatedAt: baseTime.Add(-age),
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, e.store.Posts.Create(context.Background(), p))
	return p
}

func (e *testEnv) follow(t *testing.T, follower, following string) {
	t.Helper()
	_, err := e.store.Follows.Follow(context.Background(), follower, following)
	require.NoError(t, err)
}

func withLikes(n int64) func(p *domain.Post) {
	return func(p *domain.Post) { p.LikeCount = n }
}

func withType(t domain.PostType) func(p *domain.Post) {
	return func(p *domain.Post) { p.Type = t }
}

func private(p *domain.Post) { p.IsPublic = false }

func hidden(p *domain.Post) { p.IsHidden = true }

func withPersona(persona domain.Persona) func(u *domain.User) {
	return func(u *domain.User) { u.Persona = persona }
}

func postIDs(posts []domain.FeedPost) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
