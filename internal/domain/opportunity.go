package domain

import "time"

type JobStatus string

const (
	JobStatusActive JobStatus = "ACTIVE"
	JobStatusClosed JobStatus = "CLOSED"
)

// Job is an employment opportunity surfaced in mixed feeds and cold-start lists.
type Job struct {
	ID              string
	Title           string
	Organization    string
	Status          JobStatus
	Type            string
	ExperienceLevel string
	Location        string
	RequiredSkills  []string
	CreatedAt       time.Time
}

type CourseStatus string

const (
	CourseStatusPublished CourseStatus = "PUBLISHED"
	CourseStatusDraft     CourseStatus = "DRAFT"
)

// Course is a learning opportunity.
type Course struct {
	ID              string
	Title           string
	Provider        string
	Status          CourseStatus
	IsActive        bool
	SkillsTaught    []string
	EnrollmentCount int64
	CreatedAt       time.Time
}

// SponsoredCampaign is paid content with optional targeting.
type SponsoredCampaign struct {
	ID              string
	Advertiser      string
	Content         string
	BaseScore       float64
	TargetPersonas  []Persona
	TargetLocations []string
	TargetInterests []string
	StartsAt        time.Time
	EndsAt          *time.Time
	IsActive        bool
	CreatedAt       time.Time
}

// MentorProfile marks a user as available for mentoring.
type MentorProfile struct {
	UserID          string
	IsAvailable     bool
	Rating          float64
	SessionCount    int64
	Specializations []string
	User            AuthorSummary
	UpdatedAt       time.Time
}

type GroupPrivacy string

const (
	GroupPublic  GroupPrivacy = "PUBLIC"
	GroupPrivate GroupPrivacy = "PRIVATE"
)

type Group struct {
	ID          string
	Name        string
	Description string
	Privacy     GroupPrivacy
	MemberCount int64
	CreatedAt   time.Time
}
