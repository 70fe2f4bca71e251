package repository

import (
	"context"
	"time"

	"athena-feed/internal/domain"
)

// JobQuery filters active jobs; empty fields match everything.
type JobQuery struct {
	Types            []string
	ExperienceLevels []string
	// Location matches case-insensitively as a substring.
	Location string
	Limit    int
}

type JobRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, job *domain.Job) error
	ListActive(ctx context.Context, q JobQuery) ([]domain.Job, error)
}

// CourseQuery filters courses. TitleContains matches any fragment,
// case-insensitively.
type CourseQuery struct {
	TitleContains []string
	Limit         int
}

type CourseRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, course *domain.Course) error
	// ListActive returns active courses, newest first.
	ListActive(ctx context.Context, limit int) ([]domain.Course, error)
	// ListPublished returns published courses matching q, most enrolled first.
	ListPublished(ctx context.Context, q CourseQuery) ([]domain.Course, error)
}

type CampaignRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, campaign *domain.SponsoredCampaign) error
	// ListActive returns active campaigns running at the given instant.
	ListActive(ctx context.Context, at time.Time, limit int) ([]domain.SponsoredCampaign, error)
}

type MentorRepository interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, profile *domain.MentorProfile) error
	// ListAvailable returns available mentors of the persona by rating then
	// session count.
	ListAvailable(ctx context.Context, persona domain.Persona, limit int) ([]domain.MentorProfile, error)
}

type GroupRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, group *domain.Group) error
	// ListPublic returns public groups whose name contains any fragment,
	// largest first. No fragments lists every public group.
	ListPublic(ctx context.Context, nameContains []string, limit int) ([]domain.Group, error)
}
