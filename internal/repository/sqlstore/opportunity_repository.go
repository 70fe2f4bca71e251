package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
)

var createOpportunityTables = []string{`
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	organization TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	experience_level TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	required_skills TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS courses (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	skills_taught TEXT NOT NULL DEFAULT '[]',
	enrollment_count BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS sponsored_campaigns (
	id TEXT PRIMARY KEY,
	advertiser TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	base_score DOUBLE PRECISION NOT NULL DEFAULT 100,
	target_personas TEXT NOT NULL DEFAULT '[]',
	target_locations TEXT NOT NULL DEFAULT '[]',
	target_interests TEXT NOT NULL DEFAULT '[]',
	starts_at TIMESTAMP NOT NULL,
	ends_at TIMESTAMP NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS mentor_profiles (
	user_id TEXT PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
	is_available BOOLEAN NOT NULL DEFAULT TRUE,
	rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	session_count BIGINT NOT NULL DEFAULT 0,
	specializations TEXT NOT NULL DEFAULT '[]',
	updated_at TIMESTAMP NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS community_groups (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	privacy TEXT NOT NULL,
	member_count BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
)`,
}

// opportunitySchema creates jobs, courses, campaigns, mentors and groups.
func opportunitySchema(ctx context.Context, db *DB) error {
	for _, stmt := range createOpportunityTables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create opportunity tables: %w", err)
		}
	}
	return nil
}

func createdNow(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

// likeAny builds "(LOWER(col) LIKE ? OR ...)" for case-insensitive
// substring matching on both dialects.
func likeAny(column string, fragments []string) (string, []any) {
	parts := make([]string, 0, len(fragments))
	args := make([]any, 0, len(fragments))
	for _, f := range fragments {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		parts = append(parts, `LOWER(`+column+`) LIKE ?`)
		args = append(args, "%"+f+"%")
	}
	if len(parts) == 0 {
		return "", nil
	}
	return `(` + strings.Join(parts, ` OR `) + `)`, args
}

type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) repository.JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Init(ctx context.Context) error {
	return opportunitySchema(ctx, r.db)
}

func (r *JobRepository) Create(ctx context.Context, j *domain.Job) error {
	createdNow(&j.CreatedAt)
	if j.Status == "" {
		j.Status = domain.JobStatusActive
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO jobs (id, title, organization, status, type, experience_level, location, required_skills, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Title, j.Organization, string(j.Status), j.Type, j.ExperienceLevel, j.Location,
		encodeList(j.RequiredSkills), j.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) ListActive(ctx context.Context, q repository.JobQuery) ([]domain.Job, error) {
	clauses := []string{`status = ?`}
	args := []any{string(domain.JobStatusActive)}
	if len(q.Types) > 0 {
		clauses = append(clauses, `type IN (`+placeholders(len(q.Types))+`)`)
		args = append(args, stringArgs(q.Types)...)
	}
	if len(q.ExperienceLevels) > 0 {
		clauses = append(clauses, `experience_level IN (`+placeholders(len(q.ExperienceLevels))+`)`)
		args = append(args, stringArgs(q.ExperienceLevels)...)
	}
	if clause, likeArgs := likeAny("location", []string{q.Location}); clause != "" {
		clauses = append(clauses, clause)
		args = append(args, likeArgs...)
	}
	query := `
SELECT id, title, organization, status, type, experience_level, location, required_skills, created_at
FROM jobs
WHERE ` + strings.Join(clauses, ` AND `) + `
ORDER BY created_at DESC, id ASC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var (
			j              domain.Job
			status, skills string
		)
		if err := rows.Scan(&j.ID, &j.Title, &j.Organization, &status, &j.Type, &j.ExperienceLevel, &j.Location, &skills, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Status = domain.JobStatus(status)
		j.CreatedAt = j.CreatedAt.UTC()
		if j.RequiredSkills, err = decodeList(skills); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type CourseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) repository.CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Init(ctx context.Context) error {
	return opportunitySchema(ctx, r.db)
}

func (r *CourseRepository) Create(ctx context.Context, c *domain.Course) error {
	createdNow(&c.CreatedAt)
	if c.Status == "" {
		c.Status = domain.CourseStatusPublished
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO courses (id, title, provider, status, is_active, skills_taught, enrollment_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Provider, string(c.Status), c.IsActive, encodeList(c.SkillsTaught),
		c.EnrollmentCount, c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

const courseColumns = `id, title, provider, status, is_active, skills_taught, enrollment_count, created_at`

func (r *CourseRepository) ListActive(ctx context.Context, limit int) ([]domain.Course, error) {
	return r.list(ctx, `WHERE is_active = TRUE ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
}

func (r *CourseRepository) ListPublished(ctx context.Context, q repository.CourseQuery) ([]domain.Course, error) {
	where := `WHERE status = ?`
	args := []any{string(domain.CourseStatusPublished)}
	if clause, likeArgs := likeAny("title", q.TitleContains); clause != "" {
		where += ` AND ` + clause
		args = append(args, likeArgs...)
	}
	args = append(args, q.Limit)
	return r.list(ctx, where+` ORDER BY enrollment_count DESC, id ASC LIMIT ?`, args...)
}

func (r *CourseRepository) list(ctx context.Context, tail string, args ...any) ([]domain.Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		var (
			c              domain.Course
			status, skills string
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Provider, &status, &c.IsActive, &skills, &c.EnrollmentCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		c.Status = domain.CourseStatus(status)
		c.CreatedAt = c.CreatedAt.UTC()
		if c.SkillsTaught, err = decodeList(skills); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

type CampaignRepository struct {
	db *DB
}

func NewCampaignRepository(db *DB) repository.CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Init(ctx context.Context) error {
	return opportunitySchema(ctx, r.db)
}

func (r *CampaignRepository) Create(ctx context.Context, c *domain.SponsoredCampaign) error {
	createdNow(&c.CreatedAt)
	if c.StartsAt.IsZero() {
		c.StartsAt = c.CreatedAt
	}
	personas := make([]string, len(c.TargetPersonas))
	for i, p := range c.TargetPersonas {
		personas[i] = string(p)
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sponsored_campaigns (id, advertiser, content, base_score, target_personas, target_locations,
	target_interests, starts_at, ends_at, is_active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Advertiser, c.Content, c.BaseScore, encodeList(personas), encodeList(c.TargetLocations),
		encodeList(c.TargetInterests), c.StartsAt.UTC(), nullTime(c.EndsAt), c.IsActive, c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) ListActive(ctx context.Context, at time.Time, limit int) ([]domain.SponsoredCampaign, error) {
	at = at.UTC()
	rows, err := r.db.QueryContext(ctx, `
SELECT id, advertiser, content, base_score, target_personas, target_locations, target_interests,
	starts_at, ends_at, is_active, created_at
FROM sponsored_campaigns
WHERE is_active = TRUE AND starts_at <= ? AND (ends_at IS NULL OR ends_at > ?)
ORDER BY base_score DESC, created_at DESC, id ASC
LIMIT ?`, at, at, limit)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.SponsoredCampaign
	for rows.Next() {
		var (
			c                             domain.SponsoredCampaign
			personas, locations, interest string
			endsAt                        sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Advertiser, &c.Content, &c.BaseScore, &personas, &locations, &interest,
			&c.StartsAt, &endsAt, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		names, err := decodeList(personas)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			c.TargetPersonas = append(c.TargetPersonas, domain.Persona(n))
		}
		if c.TargetLocations, err = decodeList(locations); err != nil {
			return nil, err
		}
		if c.TargetInterests, err = decodeList(interest); err != nil {
			return nil, err
		}
		c.StartsAt = c.StartsAt.UTC()
		c.CreatedAt = c.CreatedAt.UTC()
		c.EndsAt = timePtr(endsAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

type MentorRepository struct {
	db *DB
}

func NewMentorRepository(db *DB) repository.MentorRepository {
	return &MentorRepository{db: db}
}

func (r *MentorRepository) Init(ctx context.Context) error {
	return opportunitySchema(ctx, r.db)
}

// Upsert creates the profile or updates availability and specializations.
// Rating and session count are kept on update.
func (r *MentorRepository) Upsert(ctx context.Context, m *domain.MentorProfile) error {
	m.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO mentor_profiles (user_id, is_available, rating, session_count, specializations, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
	is_available = excluded.is_available,
	specializations = excluded.specializations,
	updated_at = excluded.updated_at`,
		m.UserID, m.IsAvailable, m.Rating, m.SessionCount, encodeList(m.Specializations), m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert mentor: %w", err)
	}
	return nil
}

func (r *MentorRepository) ListAvailable(ctx context.Context, persona domain.Persona, limit int) ([]domain.MentorProfile, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT m.user_id, m.is_available, m.rating, m.session_count, m.specializations, m.updated_at,
	u.display_name, u.avatar, u.headline, u.persona, u.industry, u.creator_tier
FROM mentor_profiles m JOIN users u ON u.id = m.user_id
WHERE m.is_available = TRUE AND u.persona = ?
ORDER BY m.rating DESC, m.session_count DESC, m.user_id ASC
LIMIT ?`, string(persona), limit)
	if err != nil {
		return nil, fmt.Errorf("query mentors: %w", err)
	}
	defer rows.Close()

	var out []domain.MentorProfile
	for rows.Next() {
		var (
			m                        domain.MentorProfile
			specs, userPersona, tier string
		)
		if err := rows.Scan(&m.UserID, &m.IsAvailable, &m.Rating, &m.SessionCount, &specs, &m.UpdatedAt,
			&m.User.DisplayName, &m.User.Avatar, &m.User.Headline, &userPersona, &m.User.Industry, &tier); err != nil {
			return nil, fmt.Errorf("scan mentor: %w", err)
		}
		if m.Specializations, err = decodeList(specs); err != nil {
			return nil, err
		}
		m.UpdatedAt = m.UpdatedAt.UTC()
		m.User.ID = m.UserID
		m.User.Persona = domain.Persona(userPersona)
		m.User.CreatorTier = domain.CreatorTier(tier)
		out = append(out, m)
	}
	return out, rows.Err()
}

type GroupRepository struct {
	db *DB
}

func NewGroupRepository(db *DB) repository.GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Init(ctx context.Context) error {
	return opportunitySchema(ctx, r.db)
}

func (r *GroupRepository) Create(ctx context.Context, g *domain.Group) error {
	createdNow(&g.CreatedAt)
	if g.Privacy == "" {
		g.Privacy = domain.GroupPublic
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO community_groups (id, name, description, privacy, member_count, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Description, string(g.Privacy), g.MemberCount, g.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (r *GroupRepository) ListPublic(ctx context.Context, nameContains []string, limit int) ([]domain.Group, error) {
	where := `WHERE privacy = ?`
	args := []any{string(domain.GroupPublic)}
	if clause, likeArgs := likeAny("name", nameContains); clause != "" {
		where += ` AND ` + clause
		args = append(args, likeArgs...)
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, description, privacy, member_count, created_at
FROM community_groups `+where+`
ORDER BY member_count DESC, id ASC
LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var out []domain.Group
	for rows.Next() {
		var (
			g       domain.Group
			privacy string
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &privacy, &g.MemberCount, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.Privacy = domain.GroupPrivacy(privacy)
		g.CreatedAt = g.CreatedAt.UTC()
		out = append(out, g)
	}
	return out, rows.Err()
}
