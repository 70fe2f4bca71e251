package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"athena-feed/internal/coldstart"
	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
)

const popularPostWindow = 7 * 24 * time.Hour

type ColdStartStatus struct {
	IsColdStart bool
	Score       int
}

// ColdStartService serves users without enough history for the ranked feeds.
type ColdStartService interface {
	Status(ctx context.Context, userID string) (ColdStartStatus, error)
	Recommendations(ctx context.Context, userID string, limit int) ([]coldstart.Recommendation, error)
	Onboarding(ctx context.Context, userID string) ([]coldstart.Step, error)
}

type ColdStartDeps struct {
	Users   repository.UserRepository
	Posts   repository.PostRepository
	Jobs    repository.JobRepository
	Courses repository.CourseRepository
	Mentors repository.MentorRepository
	Groups  repository.GroupRepository
}

type coldStartService struct {
	deps ColdStartDeps
	now  func() time.Time
}

func NewColdStartService(deps ColdStartDeps) ColdStartService {
	return &coldStartService{deps: deps, now: time.Now}
}

// load returns a nil user when the id is unknown.
func (s *coldStartService) load(ctx context.Context, userID string) (*domain.User, domain.UserStats, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.UserStats{}, nil
		}
		return nil, domain.UserStats{}, err
	}
	stats, err := s.deps.Users.Stats(ctx, userID)
	if err != nil {
		return nil, domain.UserStats{}, err
	}
	return user, stats, nil
}

func (s *coldStartService) Status(ctx context.Context, userID string) (ColdStartStatus, error) {
	user, stats, err := s.load(ctx, userID)
	if err != nil {
		return ColdStartStatus{}, err
	}
	return ColdStartStatus{
		IsColdStart: coldstart.IsColdStart(user, stats),
		Score:       coldstart.Score(user, stats),
	}, nil
}

func (s *coldStartService) Recommendations(ctx context.Context, userID string, limit int) ([]coldstart.Recommendation, error) {
	if limit <= 0 {
		limit = coldstart.DefaultRecommendationLimit
	}
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []coldstart.Recommendation{}, nil
		}
		return nil, err
	}

	persona := coldstart.EffectivePersona(user.Persona)
	location := user.Location()
	missing := coldstart.MissingSkills(persona, user.Skills)
	jobFilter := coldstart.JobFilterFor(persona, location)

	var src coldstart.Sources
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		src.Posts, err = s.deps.Posts.Query(gctx, repository.PostQuery{
			AuthorPersona:    persona,
			ExcludeAuthorIDs: []string{user.ID},
			Since:            s.now().Add(-popularPostWindow),
			Order:            repository.OrderEngagement,
			Limit:            coldstart.PopularPostLimit,
		})
		return err
	})
	if len(missing) > 0 {
		g.Go(func() (err error) {
			src.Courses, err = s.deps.Courses.ListPublished(gctx, repository.CourseQuery{
				TitleContains: missing,
				Limit:         coldstart.CourseLimit,
			})
			return err
		})
	}
	g.Go(func() (err error) {
		src.Jobs, err = s.deps.Jobs.ListActive(gctx, repository.JobQuery{
			Types:            jobFilter.Types,
			ExperienceLevels: jobFilter.ExperienceLevels,
			Location:         jobFilter.Location,
			Limit:            coldstart.JobLimit,
		})
		return err
	})
	g.Go(func() (err error) {
		src.Mentors, err = s.deps.Mentors.ListAvailable(gctx, persona, coldstart.MentorLimit)
		return err
	})
	g.Go(func() (err error) {
		src.Users, err = s.deps.Users.SuggestByPersona(gctx, persona, user.ID, coldstart.SuggestedUserLimit)
		return err
	})
	g.Go(func() (err error) {
		src.Groups, err = s.deps.Groups.ListPublic(gctx, coldstart.GroupCategories(persona), coldstart.GroupLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return coldstart.Assemble(persona, location, src, limit), nil
}

func (s *coldStartService) Onboarding(ctx context.Context, userID string) ([]coldstart.Step, error) {
	user, stats, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	steps := coldstart.Onboarding(user, stats)
	if steps == nil {
		steps = []coldstart.Step{}
	}
	return steps, nil
}
