package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
)

type JobInput struct {
	Title           string
	Organization    string
	Type            string
	ExperienceLevel string
	Location        string
	RequiredSkills  []string
}

type CourseInput struct {
	Title        string
	Provider     string
	Draft        bool
	SkillsTaught []string
}

type CampaignInput struct {
	Advertiser      string
	Content         string
	BaseScore       float64
	TargetPersonas  []string
	TargetLocations []string
	TargetInterests []string
	StartsAt        *time.Time
	EndsAt          *time.Time
}

type MentorInput struct {
	IsAvailable     bool
	Specializations []string
}

type GroupInput struct {
	Name        string
	Description string
	Private     bool
}

// OpportunityService manages the jobs, courses, campaigns, mentors and
// groups that feed the mixer and cold-start recommendations.
type OpportunityService interface {
	CreateJob(ctx context.Context, in JobInput) (*domain.Job, error)
	ListJobs(ctx context.Context, q repository.JobQuery) ([]domain.Job, error)
	CreateCourse(ctx context.Context, in CourseInput) (*domain.Course, error)
	ListCourses(ctx context.Context, limit int) ([]domain.Course, error)
	CreateCampaign(ctx context.Context, role domain.Role, in CampaignInput) (*domain.SponsoredCampaign, error)
	ListCampaigns(ctx context.Context, role domain.Role, limit int) ([]domain.SponsoredCampaign, error)
	UpsertMentor(ctx context.Context, userID string, in MentorInput) (*domain.MentorProfile, error)
	CreateGroup(ctx context.Context, in GroupInput) (*domain.Group, error)
	ListGroups(ctx context.Context, query string, limit int) ([]domain.Group, error)
}

type opportunityService struct {
	jobs      repository.JobRepository
	courses   repository.CourseRepository
	campaigns repository.CampaignRepository
	mentors   repository.MentorRepository
	groups    repository.GroupRepository
	now       func() time.Time
}

func NewOpportunityService(
	jobs repository.JobRepository,
	courses repository.CourseRepository,
	campaigns repository.CampaignRepository,
	mentors repository.MentorRepository,
	groups repository.GroupRepository,
) OpportunityService {
	return &opportunityService{
		jobs:      jobs,
		courses:   courses,
		campaigns: campaigns,
		mentors:   mentors,
		groups:    groups,
		now:       time.Now,
	}
}

func (s *opportunityService) CreateJob(ctx context.Context, in JobInput) (*domain.Job, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidf("job title is required")
	}
	job := &domain.Job{
		ID:              uuid.NewString(),
		Title:           title,
		Organization:    strings.TrimSpace(in.Organization),
		Status:          domain.JobStatusActive,
		Type:            strings.ToUpper(strings.TrimSpace(in.Type)),
		ExperienceLevel: strings.ToUpper(strings.TrimSpace(in.ExperienceLevel)),
		Location:        strings.TrimSpace(in.Location),
		RequiredSkills:  cleanList(in.RequiredSkills),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *opportunityService) ListJobs(ctx context.Context, q repository.JobQuery) ([]domain.Job, error) {
	_, q.Limit = NormalizePage(1, q.Limit)
	return s.jobs.ListActive(ctx, q)
}

func (s *opportunityService) CreateCourse(ctx context.Context, in CourseInput) (*domain.Course, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidf("course title is required")
	}
	status := domain.CourseStatusPublished
	if in.Draft {
		status = domain.CourseStatusDraft
	}
	course := &domain.Course{
		ID:           uuid.NewString(),
		Title:        title,
		Provider:     strings.TrimSpace(in.Provider),
		Status:       status,
		IsActive:     true,
		SkillsTaught: cleanList(in.SkillsTaught),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *opportunityService) ListCourses(ctx context.Context, limit int) ([]domain.Course, error) {
	_, limit = NormalizePage(1, limit)
	return s.courses.ListActive(ctx, limit)
}

func (s *opportunityService) CreateCampaign(ctx context.Context, role domain.Role, in CampaignInput) (*domain.SponsoredCampaign, error) {
	if role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	advertiser := strings.TrimSpace(in.Advertiser)
	content := strings.TrimSpace(in.Content)
	if advertiser == "" || content == "" {
		return nil, invalidf("advertiser and content are required")
	}
	if in.BaseScore < 0 {
		return nil, invalidf("base score must not be negative")
	}

	personas := make([]domain.Persona, 0, len(in.TargetPersonas))
	for _, raw := range in.TargetPersonas {
		p, ok := domain.ParsePersona(raw)
		if !ok {
			return nil, invalidf("unknown persona %q", raw)
		}
		personas = append(personas, p)
	}

	now := s.now().UTC()
	startsAt := now
	if in.StartsAt != nil {
		startsAt = in.StartsAt.UTC()
	}
	if in.EndsAt != nil && !in.EndsAt.After(startsAt) {
		return nil, invalidf("campaign must end after it starts")
	}

	campaign := &domain.SponsoredCampaign{
		ID:              uuid.NewString(),
		Advertiser:      advertiser,
		Content:         content,
		BaseScore:       in.BaseScore,
		TargetPersonas:  personas,
		TargetLocations: cleanList(in.TargetLocations),
		TargetInterests: cleanList(in.TargetInterests),
		StartsAt:        startsAt,
		EndsAt:          in.EndsAt,
		IsActive:        true,
		CreatedAt:       now,
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *opportunityService) ListCampaigns(ctx context.Context, role domain.Role, limit int) ([]domain.SponsoredCampaign, error) {
	if role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	_, limit = NormalizePage(1, limit)
	return s.campaigns.ListActive(ctx, s.now().UTC(), limit)
}

func (s *opportunityService) UpsertMentor(ctx context.Context, userID string, in MentorInput) (*domain.MentorProfile, error) {
	profile := &domain.MentorProfile{
		UserID:          userID,
		IsAvailable:     in.IsAvailable,
		Specializations: cleanList(in.Specializations),
		UpdatedAt:       s.now().UTC(),
	}
	if err := s.mentors.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *opportunityService) CreateGroup(ctx context.Context, in GroupInput) (*domain.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("group name is required")
	}
	privacy := domain.GroupPublic
	if in.Private {
		privacy = domain.GroupPrivate
	}
	group := &domain.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Privacy:     privacy,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *opportunityService) ListGroups(ctx context.Context, query string, limit int) ([]domain.Group, error) {
	_, limit = NormalizePage(1, limit)
	var fragments []string
	if q := strings.TrimSpace(query); q != "" {
		fragments = []string{q}
	}
	return s.groups.ListPublic(ctx, fragments, limit)
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
