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

var createUserTables = []string{`
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	avatar TEXT NOT NULL DEFAULT '',
	headline TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	persona TEXT NOT NULL DEFAULT '',
	current_job_title TEXT NOT NULL DEFAULT '',
	industry TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	creator_tier TEXT NOT NULL DEFAULT '',
	subscription_tier TEXT NOT NULL DEFAULT 'FREE',
	role TEXT NOT NULL DEFAULT 'USER',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	last_login_at TIMESTAMP NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`, `
CREATE INDEX IF NOT EXISTS idx_users_persona ON users (persona)`, `
CREATE TABLE IF NOT EXISTS user_skills (
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	PRIMARY KEY (user_id, name)
)`,
}

const userColumns = `id, email, password_hash, display_name, avatar, headline, bio, persona, current_job_title,
	industry, city, country, creator_tier, subscription_tier, role, is_active, last_login_at, created_at, updated_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	for _, stmt := range createUserTables {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create users tables: %w", err)
		}
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt
	if user.SubscriptionTier == "" {
		user.SubscriptionTier = domain.SubscriptionFree
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.Email = normalizeEmail(user.Email)

	return r.db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.DisplayName,
			user.Avatar,
			user.Headline,
			user.Bio,
			string(user.Persona),
			user.CurrentJobTitle,
			user.Industry,
			user.City,
			user.Country,
			string(user.CreatorTier),
			string(user.SubscriptionTier),
			string(user.Role),
			user.IsActive,
			nullTime(user.LastLoginAt),
			user.CreatedAt.UTC(),
			user.UpdatedAt.UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("user %s: %w", user.Email, repository.ErrConflict)
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return replaceSkills(ctx, tx, user.ID, user.Skills)
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	return r.withSkills(ctx, user)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	return r.withSkills(ctx, user)
}

// Update writes the profile fields and replaces the skill set.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	return r.db.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE users
SET display_name = ?, avatar = ?, headline = ?, bio = ?, persona = ?, current_job_title = ?,
	industry = ?, city = ?, country = ?, creator_tier = ?, subscription_tier = ?, role = ?,
	is_active = ?, updated_at = ?
WHERE id = ?`,
			user.DisplayName,
			user.Avatar,
			user.Headline,
			user.Bio,
			string(user.Persona),
			user.CurrentJobTitle,
			user.Industry,
			user.City,
			user.Country,
			string(user.CreatorTier),
			string(user.SubscriptionTier),
			string(user.Role),
			user.IsActive,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("user %s: %w", user.ID, repository.ErrNotFound)
		}
		return replaceSkills(ctx, tx, user.ID, user.Skills)
	})
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, at.UTC(), id); err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

func (r *UserRepository) Stats(ctx context.Context, id string) (domain.UserStats, error) {
	var stats domain.UserStats
	err := r.db.QueryRowContext(ctx, `
SELECT
	(SELECT COUNT(*) FROM likes WHERE user_id = ?),
	(SELECT COUNT(*) FROM posts WHERE author_id = ?),
	(SELECT COUNT(*) FROM comments WHERE author_id = ?),
	(SELECT COUNT(*) FROM follows WHERE follower_id = ?),
	(SELECT COUNT(*) FROM follows WHERE following_id = ?)`,
		id, id, id, id, id,
	).Scan(&stats.Likes, &stats.Posts, &stats.Comments, &stats.Following, &stats.Followers)
	if err != nil {
		return stats, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}

func (r *UserRepository) SuggestByPersona(ctx context.Context, persona domain.Persona, excludeID string, limit int) ([]domain.AuthorSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT u.id, u.display_name, u.avatar, u.headline, u.persona, u.industry, u.creator_tier
FROM users u
WHERE u.id <> ? AND u.persona = ? AND u.is_active = TRUE
	AND EXISTS (SELECT 1 FROM posts p WHERE p.author_id = u.id)
ORDER BY (u.last_login_at IS NULL), u.last_login_at DESC, u.id
LIMIT ?`,
		excludeID, string(persona), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("suggest users: %w", err)
	}
	defer rows.Close()

	var out []domain.AuthorSummary
	for rows.Next() {
		var a domain.AuthorSummary
		var p, tier string
		if err := rows.Scan(&a.ID, &a.DisplayName, &a.Avatar, &a.Headline, &p, &a.Industry, &tier); err != nil {
			return nil, fmt.Errorf("scan suggested user: %w", err)
		}
		a.Persona = domain.Persona(p)
		a.CreatorTier = domain.CreatorTier(tier)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggested users: %w", err)
	}
	return out, nil
}

func (r *UserRepository) SimilarUserIDs(ctx context.Context, viewerID string, persona domain.Persona, limit int) ([]string, error) {
	liked := `id IN (SELECT p.author_id FROM likes l JOIN posts p ON p.id = l.post_id WHERE l.user_id = ?)`
	where := liked
	args := []any{viewerID, viewerID}
	if persona != "" {
		where = `(persona = ? OR ` + liked + `)`
		args = []any{viewerID, string(persona), viewerID}
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, `
SELECT id FROM users
WHERE id <> ? AND `+where+`
ORDER BY id
LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("similar users: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *UserRepository) withSkills(ctx context.Context, user *domain.User) (*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM user_skills WHERE user_id = ? ORDER BY name`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()
	skills, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	user.Skills = skills
	return user, nil
}

func replaceSkills(ctx context.Context, q queryer, userID string, skills []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM user_skills WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear skills: %w", err)
	}
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		name := strings.ToLower(strings.TrimSpace(s))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, err := q.ExecContext(ctx, `INSERT INTO user_skills (user_id, name) VALUES (?, ?)`, userID, name); err != nil {
			return fmt.Errorf("insert skill: %w", err)
		}
	}
	return nil
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user                              domain.User
		persona, tier, subscription, role string
		lastLogin                         sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Avatar,
		&user.Headline,
		&user.Bio,
		&persona,
		&user.CurrentJobTitle,
		&user.Industry,
		&user.City,
		&user.Country,
		&tier,
		&subscription,
		&role,
		&user.IsActive,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, notFound(err, "user")
	}
	user.Persona = domain.Persona(persona)
	user.CreatorTier = domain.CreatorTier(tier)
	user.SubscriptionTier = domain.SubscriptionTier(subscription)
	user.Role = domain.Role(role)
	user.LastLoginAt = timePtr(lastLogin)
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
