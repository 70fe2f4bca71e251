package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"athena-feed/internal/cache"
	"athena-feed/internal/domain"
	"athena-feed/internal/ranking"
	"athena-feed/internal/repository"
)

type Algorithm string

const (
	AlgorithmChronological Algorithm = "chronological"
	AlgorithmEngagement    Algorithm = "engagement"
	AlgorithmPersonalized  Algorithm = "personalized"
)

// ParseAlgorithm falls back to engagement for unknown values.
func ParseAlgorithm(raw string) Algorithm {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(raw))); a {
	case AlgorithmChronological, AlgorithmPersonalized:
		return a
	}
	return AlgorithmEngagement
}

// ParseTypeFilter maps "all", "" and unknown names to no filter.
func ParseTypeFilter(raw string) domain.PostType {
	t, ok := domain.ParsePostType(raw)
	if !ok {
		return ""
	}
	return t
}

const (
	inNetworkShare  = 0.3
	outNetworkShare = 0.5
	sourceCap       = 200
	forYouLookback  = 7 * 24 * time.Hour
	forYouLimit     = 100
	similarUsers    = 50

	DefaultTrendingHours = 24
	DefaultTrendingLimit = 10
	MaxTrendingHours     = 24 * 30
	// TrendingPoolSize is the trending list size shared by the personalized
	// and mixed feeds, so they read one cache entry.
	TrendingPoolSize = MaxLimit

	DefaultVideoLimit = 10
	MaxVideoLimit     = 50
)

type FeedConfig struct {
	MaxPostsPerCreator int
	CandidateLimit     int
	TrendingTTL        time.Duration
}

type FeedOptions struct {
	ViewerID  string
	Page      int
	Limit     int
	Type      domain.PostType
	Algorithm Algorithm
}

type FeedResult struct {
	Posts   []domain.FeedPost
	HasMore bool
	Total   int
}

type VideoPage struct {
	Videos     []domain.FeedPost
	NextCursor string
}

// FeedService ranks posts into the home, following, trending, video and
// discovery feeds.
type FeedService interface {
	Generate(ctx context.Context, opts FeedOptions) (FeedResult, error)
	Following(ctx context.Context, viewerID string, page, limit int, postType domain.PostType) (FeedResult, error)
	Trending(ctx context.Context, hours, limit int) ([]domain.FeedPost, error)
	RefreshTrending(ctx context.Context, hours, limit int) ([]domain.FeedPost, error)
	VideoFeed(ctx context.Context, viewerID, cursor string, limit int) (VideoPage, error)
	ForYou(ctx context.Context, viewerID string, page, limit int) (FeedResult, error)
	RecordView(ctx context.Context, postID, viewerID string, silent bool) error
}

type feedService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	posts   repository.PostRepository
	likes   repository.LikeRepository
	cache   cache.Cache
	scorer  *ranking.Scorer
	cfg     FeedConfig
	logger  *logrus.Logger
	now     func() time.Time
}

func NewFeedService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	likes repository.LikeRepository,
	c cache.Cache,
	scorer *ranking.Scorer,
	cfg FeedConfig,
	logger *logrus.Logger,
) FeedService {
	return newFeedService(users, follows, posts, likes, c, scorer, cfg, logger)
}

func newFeedService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	likes repository.LikeRepository,
	c cache.Cache,
	scorer *ranking.Scorer,
	cfg FeedConfig,
	logger *logrus.Logger,
) *feedService {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.MaxPostsPerCreator <= 0 {
		cfg.MaxPostsPerCreator = 3
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = sourceCap
	}
	if cfg.TrendingTTL <= 0 {
		cfg.TrendingTTL = 5 * time.Minute
	}
	if scorer == nil {
		scorer = ranking.NewScorer(ranking.DefaultWeights(), nil)
	}
	return &feedService{
		users:   users,
		follows: follows,
		posts:   posts,
		likes:   likes,
		cache:   c,
		scorer:  scorer,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// viewer is the scoring context of an authenticated, known user.
type viewer struct {
	user      *domain.User
	following []string
	network   []string
}

func (v *viewer) context() ranking.Context {
	return ranking.NewContext(v.user.ID, v.network, v.user.Persona, v.user.Industry)
}

// loadViewer returns nil for anonymous or unknown viewers.
func (s *feedService) loadViewer(ctx context.Context, viewerID string) (*viewer, error) {
	if viewerID == "" {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	following, err := s.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	network := append(append([]string(nil), following...), viewerID)
	return &viewer{user: user, following: following, network: network}, nil
}

func (s *feedService) Generate(ctx context.Context, opts FeedOptions) (FeedResult, error) {
	page, limit := NormalizePage(opts.Page, opts.Limit)
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmEngagement
	}

	v, err := s.loadViewer(ctx, opts.ViewerID)
	if err != nil {
		return FeedResult{}, err
	}

	var ranked []domain.FeedPost
	if opts.Algorithm == AlgorithmPersonalized && v != nil {
		ranked, err = s.personalized(ctx, v, opts.Type, page*limit)
	} else {
		ranked, err = s.candidates(ctx, v, opts.Type, opts.Algorithm)
	}
	if err != nil {
		return FeedResult{}, err
	}

	posts, hasMore := paginate(ranked, page, limit)
	if err := markLiked(ctx, s.likes, opts.ViewerID, posts); err != nil {
		return FeedResult{}, err
	}
	return FeedResult{Posts: posts, HasMore: hasMore, Total: len(ranked)}, nil
}

// candidates runs the chronological and engagement algorithms.
func (s *feedService) candidates(ctx context.Context, v *viewer, postType domain.PostType, algo Algorithm) ([]domain.FeedPost, error) {
	q := repository.PostQuery{
		Type:  postType,
		Order: repository.OrderEngagement,
		Limit: s.cfg.CandidateLimit,
	}
	if algo == AlgorithmChronological {
		q.Order = repository.OrderRecent
	}
	var sctx ranking.Context
	if v != nil {
		q.Visibility = repository.VisibilityNetwork
		q.NetworkIDs = v.network
		sctx = v.context()
	}

	posts, err := s.posts.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if algo == AlgorithmChronological {
		out := make([]domain.FeedPost, len(posts))
		for i := range posts {
			score := s.scorer.Score(&posts[i], sctx)
			out[i] = domain.FeedPost{Post: posts[i], EngagementScore: score.Engagement, DecayedScore: score.Final}
		}
		return out, nil
	}
	ranked := s.scorer.Rank(posts, sctx)
	return ranking.EnforceCreatorDiversity(ranked, s.cfg.MaxPostsPerCreator), nil
}

type feedSource struct {
	list  []domain.FeedPost
	quota int
}

// personalized blends in-network, discovery and trending posts by quota
// until target posts are collected, backfilling from any source.
func (s *feedService) personalized(ctx context.Context, v *viewer, postType domain.PostType, target int) ([]domain.FeedPost, error) {
	inTarget := int(math.Ceil(float64(target) * inNetworkShare))
	outTarget := int(math.Ceil(float64(target) * outNetworkShare))
	trendTarget := max(0, target-inTarget-outTarget)

	inPosts, err := s.posts.Query(ctx, repository.PostQuery{
		Visibility: repository.VisibilityUnhidden,
		AuthorIDs:  v.network,
		Type:       postType,
		Order:      repository.OrderRecent,
		Limit:      min(sourceCap, inTarget*4),
	})
	if err != nil {
		return nil, err
	}
	inNetwork := s.scorer.Rank(inPosts, v.context())

	outNetwork, err := s.forYouRanked(ctx, v)
	if err != nil {
		return nil, err
	}
	outNetwork = filterType(outNetwork, postType)
	if n := min(sourceCap, outTarget*4); len(outNetwork) > n {
		outNetwork = outNetwork[:n]
	}

	trending, err := s.Trending(ctx, DefaultTrendingHours, TrendingPoolSize)
	if err != nil {
		return nil, err
	}
	trending = filterType(trending, postType)

	sources := []*feedSource{
		{list: inNetwork, quota: inTarget},
		{list: outNetwork, quota: outTarget},
		{list: trending, quota: trendTarget},
	}

	seen := make(map[string]struct{}, target)
	perAuthor := make(map[string]int)
	result := make([]domain.FeedPost, 0, target)

	// next pops the first acceptable post of src, dropping rejected ones.
	next := func(src *feedSource) bool {
		for len(src.list) > 0 {
			p := src.list[0]
			src.list = src.list[1:]
			if _, dup := seen[p.ID]; dup {
				continue
			}
			if perAuthor[p.AuthorID] >= s.cfg.MaxPostsPerCreator {
				continue
			}
			seen[p.ID] = struct{}{}
			perAuthor[p.AuthorID]++
			result = append(result, p)
			return true
		}
		return false
	}

	for len(result) < target {
		progressed := false
		for _, src := range sources {
			if len(result) >= target {
				break
			}
			if src.quota <= 0 {
				continue
			}
			if next(src) {
				src.quota--
				progressed = true
			}
		}
		if progressed {
			continue
		}

		took := false
		for _, src := range sources {
			if next(src) {
				took = true
				break
			}
		}
		if !took {
			break
		}
	}
	return result, nil
}

func filterType(posts []domain.FeedPost, postType domain.PostType) []domain.FeedPost {
	if postType == "" {
		return posts
	}
	out := make([]domain.FeedPost, 0, len(posts))
	for _, p := range posts {
		if p.Type == postType {
			out = append(out, p)
		}
	}
	return out
}

func (s *feedService) Following(ctx context.Context, viewerID string, page, limit int, postType domain.PostType) (FeedResult, error) {
	page, limit = NormalizePage(page, limit)

	following, err := s.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		return FeedResult{}, err
	}
	q := repository.PostQuery{
		Visibility: repository.VisibilityUnhidden,
		AuthorIDs:  append(following, viewerID),
		Type:       postType,
		Order:      repository.OrderRecent,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	posts, err := s.posts.Query(ctx, q)
	if err != nil {
		return FeedResult{}, err
	}
	total, err := s.posts.Count(ctx, q)
	if err != nil {
		return FeedResult{}, err
	}

	out := make([]domain.FeedPost, len(posts))
	for i := range posts {
		out[i] = domain.FeedPost{Post: posts[i]}
	}
	if err := markLiked(ctx, s.likes, viewerID, out); err != nil {
		return FeedResult{}, err
	}
	return FeedResult{Posts: out, HasMore: page*limit < total, Total: total}, nil
}

func normalizeTrending(hours, limit int) (int, int) {
	if hours <= 0 {
		hours = DefaultTrendingHours
	}
	if hours > MaxTrendingHours {
		hours = MaxTrendingHours
	}
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return hours, limit
}

// Trending serves the window from the cache, computing it on a miss.
func (s *feedService) Trending(ctx context.Context, hours, limit int) ([]domain.FeedPost, error) {
	hours, limit = normalizeTrending(hours, limit)
	key := cache.Trending.Key(hours, limit)

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var posts []domain.FeedPost
			if err := json.Unmarshal([]byte(raw), &posts); err == nil {
				return posts, nil
			}
			s.logger.WithField("key", key).Warn("discarding malformed trending cache entry")
		case !errors.Is(err, cache.ErrMiss):
			s.logger.WithError(err).WithField("key", key).Warn("trending cache read failed")
		}
	}
	return s.RefreshTrending(ctx, hours, limit)
}

// RefreshTrending recomputes the window and overwrites the cache entry.
func (s *feedService) RefreshTrending(ctx context.Context, hours, limit int) ([]domain.FeedPost, error) {
	hours, limit = normalizeTrending(hours, limit)

	posts, err := s.posts.Query(ctx, repository.PostQuery{
		Since: s.now().Add(-time.Duration(hours) * time.Hour),
		Order: repository.OrderPopular,
		Limit: limit * 2,
	})
	if err != nil {
		return nil, err
	}
	ranked := s.scorer.Rank(posts, ranking.Context{})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if s.cache != nil {
		key := cache.Trending.Key(hours, limit)
		payload, err := json.Marshal(ranked)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, string(payload), s.cfg.TrendingTTL); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("trending cache write failed")
		}
	}
	return ranked, nil
}

func (s *feedService) VideoFeed(ctx context.Context, viewerID, cursor string, limit int) (VideoPage, error) {
	if limit <= 0 {
		limit = DefaultVideoLimit
	}
	limit = min(limit, MaxVideoLimit)

	q := repository.PostQuery{
		Type:  domain.PostTypeVideo,
		Order: repository.OrderRecent,
		Limit: limit + 1,
	}
	if cursor != "" {
		before, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return VideoPage{}, invalidf("invalid cursor")
		}
		q.Before = before
	}

	posts, err := s.posts.Query(ctx, q)
	if err != nil {
		return VideoPage{}, err
	}
	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	videos := make([]domain.FeedPost, len(posts))
	for i := range posts {
		videos[i] = domain.FeedPost{Post: posts[i]}
	}
	if err := markLiked(ctx, s.likes, viewerID, videos); err != nil {
		return VideoPage{}, err
	}

	page := VideoPage{Videos: videos}
	if hasMore {
		page.NextCursor = videos[len(videos)-1].CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return page, nil
}

func (s *feedService) ForYou(ctx context.Context, viewerID string, page, limit int) (FeedResult, error) {
	page, limit = NormalizePage(page, limit)

	v, err := s.loadViewer(ctx, viewerID)
	if err != nil {
		return FeedResult{}, err
	}
	if v == nil {
		return s.Generate(ctx, FeedOptions{Page: page, Limit: limit, Algorithm: AlgorithmEngagement})
	}

	ranked, err := s.forYouRanked(ctx, v)
	if err != nil {
		return FeedResult{}, err
	}
	posts, hasMore := paginate(ranked, page, limit)
	if err := markLiked(ctx, s.likes, viewerID, posts); err != nil {
		return FeedResult{}, err
	}
	return FeedResult{Posts: posts, HasMore: hasMore, Total: len(ranked)}, nil
}

// forYouRanked scores recent public posts of similar users the viewer does
// not follow yet.
func (s *feedService) forYouRanked(ctx context.Context, v *viewer) ([]domain.FeedPost, error) {
	similar, err := s.users.SimilarUserIDs(ctx, v.user.ID, v.user.Persona, similarUsers)
	if err != nil {
		return nil, err
	}

	followed := make(map[string]struct{}, len(v.following))
	for _, id := range v.following {
		followed[id] = struct{}{}
	}
	authors := make([]string, 0, len(similar))
	for _, id := range similar {
		if _, ok := followed[id]; !ok {
			authors = append(authors, id)
		}
	}

	posts, err := s.posts.Query(ctx, repository.PostQuery{
		AuthorIDs: authors,
		Since:     s.now().Add(-forYouLookback),
		Order:     repository.OrderRecent,
		Limit:     forYouLimit,
	})
	if err != nil {
		return nil, err
	}
	return s.scorer.Rank(posts, ranking.Context{ViewerID: v.user.ID, Persona: v.user.Persona}), nil
}

// RecordView increments the view counter. Silent calls log failures and
// return nil.
func (s *feedService) RecordView(ctx context.Context, postID, viewerID string, silent bool) error {
	entry := s.logger.WithFields(logrus.Fields{"post_id": postID, "user_id": viewerID})
	if err := s.posts.IncrementViews(ctx, postID); err != nil {
		entry.WithError(err).Error("failed to record post view")
		if silent {
			return nil
		}
		return err
	}
	entry.Debug("post view recorded")
	return nil
}
