package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"athena-feed/internal/coldstart"
	"athena-feed/internal/domain"
	"athena-feed/internal/mixer"
	"athena-feed/internal/ranking"
	"athena-feed/internal/repository"
)

const (
	opportunityShare = 0.2
	jobShare         = 0.7
	courseShare      = 0.3
	sponsoredShare   = 0.1

	jobMatchScore    = 70
	courseMatchScore = 60
)

type RankMode string

const (
	RankLight    RankMode = "light"
	RankHeavy    RankMode = "heavy"
	RankTwoStage RankMode = "two-stage"
)

type RankInput struct {
	ViewerID   string
	Mode       RankMode
	TopK       int
	Candidates []ranking.Candidate
}

// MixService blends ranked posts with sponsored content and opportunities.
type MixService interface {
	Mixed(ctx context.Context, viewerID string, page, limit int) (mixer.Output, error)
	Rank(ctx context.Context, in RankInput) ([]ranking.RankedItem, error)
}

type mixService struct {
	feed      FeedService
	users     repository.UserRepository
	follows   repository.FollowRepository
	jobs      repository.JobRepository
	courses   repository.CourseRepository
	campaigns repository.CampaignRepository
	mixer     *mixer.Mixer
	scorer    *ranking.Scorer
	now       func() time.Time
}

func NewMixService(
	feed FeedService,
	users repository.UserRepository,
	follows repository.FollowRepository,
	jobs repository.JobRepository,
	courses repository.CourseRepository,
	campaigns repository.CampaignRepository,
	m *mixer.Mixer,
	scorer *ranking.Scorer,
) MixService {
	if scorer == nil {
		scorer = ranking.NewScorer(ranking.DefaultWeights(), nil)
	}
	return &mixService{
		feed:      feed,
		users:     users,
		follows:   follows,
		jobs:      jobs,
		courses:   courses,
		campaigns: campaigns,
		mixer:     m,
		scorer:    scorer,
		now:       time.Now,
	}
}

func (s *mixService) Mixed(ctx context.Context, viewerID string, page, limit int) (mixer.Output, error) {
	page, limit = NormalizePage(page, limit)

	var user *domain.User
	if viewerID != "" {
		u, err := s.users.GetByID(ctx, viewerID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return mixer.Output{}, err
		}
		user = u
	}

	var (
		organic, engagement FeedResult
		trending            []domain.FeedPost
		following           []string
		opportunities       []mixer.Opportunity
		campaigns           []domain.SponsoredCampaign
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		organic, err = s.feed.Generate(gctx, FeedOptions{
			ViewerID: viewerID, Page: 1, Limit: limit * 2, Algorithm: AlgorithmPersonalized,
		})
		return err
	})
	g.Go(func() (err error) {
		engagement, err = s.feed.Generate(gctx, FeedOptions{
			ViewerID: viewerID, Page: 1, Limit: limit * 2, Algorithm: AlgorithmEngagement,
		})
		return err
	})
	g.Go(func() (err error) {
		trending, err = s.feed.Trending(gctx, DefaultTrendingHours, TrendingPoolSize)
		if len(trending) > limit {
			trending = trending[:limit]
		}
		return err
	})
	g.Go(func() (err error) {
		opportunities, err = s.opportunities(gctx, int(math.Ceil(float64(limit)*opportunityShare)))
		return err
	})
	if user != nil {
		g.Go(func() (err error) {
			following, err = s.follows.FollowingIDs(gctx, user.ID)
			return err
		})
	}
	if user == nil || user.SubscriptionTier == "" || user.SubscriptionTier == domain.SubscriptionFree {
		g.Go(func() (err error) {
			n := max(1, int(math.Ceil(float64(limit)*sponsoredShare)))
			campaigns, err = s.campaigns.ListActive(gctx, s.now().UTC(), n)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return mixer.Output{}, err
	}

	followed := make(map[string]struct{}, len(following))
	for _, id := range following {
		followed[id] = struct{}{}
	}
	var persona domain.Persona
	if user != nil {
		persona = user.Persona
	}
	candidate := func(p domain.FeedPost, trending bool) mixer.Candidate {
		_, isFollowed := followed[p.AuthorID]
		return mixer.Candidate{
			Post:             p,
			AuthorFollowed:   isFollowed,
			Trending:         trending,
			SimilarInterests: persona != "" && p.Author.Persona == persona,
		}
	}

	in := mixer.Input{
		Sponsored:     campaigns,
		Opportunities: opportunities,
		Limit:         limit,
	}
	if user != nil {
		in.Viewer = &mixer.Viewer{
			ID:       user.ID,
			Persona:  user.Persona,
			Location: user.Location(),
			Skills:   user.Skills,
		}
	}

	organicIDs := make(map[string]struct{}, len(organic.Posts))
	for _, p := range organic.Posts {
		organicIDs[p.ID] = struct{}{}
		in.Organic = append(in.Organic, candidate(p, false))
	}
	seen := make(map[string]struct{})
	addDiscovery := func(p domain.FeedPost, trending bool) {
		if _, dup := organicIDs[p.ID]; dup {
			return
		}
		if _, dup := seen[p.ID]; dup {
			return
		}
		seen[p.ID] = struct{}{}
		in.Discovery = append(in.Discovery, candidate(p, trending))
	}
	for _, p := range engagement.Posts {
		addDiscovery(p, false)
	}
	for _, p := range trending {
		addDiscovery(p, true)
	}

	return s.mixer.Mix(in), nil
}

// opportunities splits n slots between the newest jobs and courses.
func (s *mixService) opportunities(ctx context.Context, n int) ([]mixer.Opportunity, error) {
	if n <= 0 {
		return nil, nil
	}
	jobs, err := s.jobs.ListActive(ctx, repository.JobQuery{Limit: int(math.Ceil(float64(n) * jobShare))})
	if err != nil {
		return nil, err
	}
	courses, err := s.courses.ListActive(ctx, int(math.Ceil(float64(n)*courseShare)))
	if err != nil {
		return nil, err
	}

	out := make([]mixer.Opportunity, 0, len(jobs)+len(courses))
	for i := range jobs {
		out = append(out, mixer.Opportunity{Job: &jobs[i], MatchScore: jobMatchScore})
	}
	for i := range courses {
		out = append(out, mixer.Opportunity{Course: &courses[i], MatchScore: courseMatchScore})
	}
	return out, nil
}

// Rank orders externally supplied candidates for the viewer.
func (s *mixService) Rank(ctx context.Context, in RankInput) ([]ranking.RankedItem, error) {
	if len(in.Candidates) == 0 {
		return []ranking.RankedItem{}, nil
	}
	profile, err := s.profile(ctx, in.ViewerID)
	if err != nil {
		return nil, err
	}

	switch RankMode(strings.ToLower(string(in.Mode))) {
	case RankLight:
		return s.scorer.LightRank(in.Candidates, profile), nil
	case RankHeavy:
		return s.scorer.HeavyRank(in.Candidates, profile), nil
	case RankTwoStage, "":
		k := in.TopK
		if k <= 0 {
			k = min(len(in.Candidates), DefaultLimit)
		}
		return s.scorer.TwoStage(in.Candidates, profile, k), nil
	default:
		return nil, invalidf("unknown ranking mode %q", in.Mode)
	}
}

// profile combines the viewer's graph and skills with persona defaults.
func (s *mixService) profile(ctx context.Context, viewerID string) (ranking.Profile, error) {
	defaults := coldstart.DefaultsFor("")
	if viewerID == "" {
		return ranking.Profile{
			Persona:               coldstart.DefaultPersona,
			Interests:             defaults.Interests,
			PreferredContentTypes: defaults.ContentTypes,
		}, nil
	}

	user, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return ranking.Profile{}, err
	}
	following, err := s.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		return ranking.Profile{}, err
	}

	persona := coldstart.EffectivePersona(user.Persona)
	defaults = coldstart.DefaultsFor(persona)
	interests := append(append([]string(nil), defaults.Interests...), user.Skills...)
	return ranking.Profile{
		UserID:                user.ID,
		Persona:               persona,
		Interests:             interests,
		FollowedUsers:         following,
		PreferredContentTypes: defaults.ContentTypes,
	}, nil
}
