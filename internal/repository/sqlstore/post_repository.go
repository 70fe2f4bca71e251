package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
)

var createPostTables = []string{`
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	media_urls TEXT NOT NULL DEFAULT '[]',
	tags TEXT NOT NULL DEFAULT '[]',
	is_public BOOLEAN NOT NULL DEFAULT TRUE,
	is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
	like_count BIGINT NOT NULL DEFAULT 0,
	comment_count BIGINT NOT NULL DEFAULT 0,
	share_count BIGINT NOT NULL DEFAULT 0,
	view_count BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`, `
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at)`, `
CREATE INDEX IF NOT EXISTS idx_posts_author_created ON posts (author_id, created_at)`,
}

const postColumns = `p.id, p.author_id, p.type, p.content, p.media_urls, p.tags, p.is_public, p.is_hidden,
	p.like_count, p.comment_count, p.share_count, p.view_count, p.created_at, p.updated_at,
	u.display_name, u.avatar, u.headline, u.persona, u.industry, u.creator_tier`

const postFrom = `FROM posts p JOIN users u ON u.id = p.author_id`

type PostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	for _, stmt := range createPostTables {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create posts table: %w", err)
		}
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.UpdatedAt = post.CreatedAt

	_, err := r.db.ExecContext(ctx, `
INSERT INTO posts (id, author_id, type, content, media_urls, tags, is_public, is_hidden,
	like_count, comment_count, share_count, view_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.AuthorID,
		string(post.Type),
		post.Content,
		encodeList(post.MediaURLs),
		encodeList(post.Tags),
		post.IsPublic,
		post.IsHidden,
		post.LikeCount,
		post.CommentCount,
		post.ShareCount,
		post.ViewCount,
		post.CreatedAt.UTC(),
		post.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` `+postFrom+` WHERE p.id = ?`, id)
	return scanPost(row)
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE posts
SET content = ?, tags = ?, media_urls = ?, is_public = ?, is_hidden = ?, updated_at = ?
WHERE id = ?`,
		post.Content,
		encodeList(post.Tags),
		encodeList(post.MediaURLs),
		post.IsPublic,
		post.IsHidden,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if ok, err := rowsAffected(res); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("post %s: %w", post.ID, repository.ErrNotFound)
	}
	return nil
}

// Delete removes the post with its likes and comments.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("delete post likes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("delete post comments: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("post %s: %w", id, repository.ErrNotFound)
		}
		return nil
	})
}

func (r *PostRepository) Query(ctx context.Context, q repository.PostQuery) ([]domain.Post, error) {
	where, args := postWhere(q)
	query := `SELECT ` + postColumns + ` ` + postFrom + where + ` ORDER BY ` + postOrder(q.Order)
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, max(q.Offset, 0))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) Count(ctx context.Context, q repository.PostQuery) (int, error) {
	where, args := postWhere(q)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+postFrom+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func (r *PostRepository) IncrementViews(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if ok, err := rowsAffected(res); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("post %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *PostRepository) IncrementShares(ctx context.Context, id string) (int64, error) {
	var shares int64
	err := r.db.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE posts SET share_count = share_count + 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("increment shares: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("post %s: %w", id, repository.ErrNotFound)
		}
		if err := tx.QueryRowContext(ctx, `SELECT share_count FROM posts WHERE id = ?`, id).Scan(&shares); err != nil {
			return fmt.Errorf("read share count: %w", err)
		}
		return nil
	})
	return shares, err
}

func postWhere(q repository.PostQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	switch q.Visibility {
	case repository.VisibilityNetwork:
		if len(q.NetworkIDs) > 0 {
			clauses = append(clauses, `p.is_hidden = FALSE AND (p.is_public = TRUE OR p.author_id IN (`+placeholders(len(q.NetworkIDs))+`))`)
			args = append(args, stringArgs(q.NetworkIDs)...)
		} else {
			clauses = append(clauses, `p.is_public = TRUE AND p.is_hidden = FALSE`)
		}
	case repository.VisibilityUnhidden:
		clauses = append(clauses, `p.is_hidden = FALSE`)
	default:
		clauses = append(clauses, `p.is_public = TRUE AND p.is_hidden = FALSE`)
	}

	if q.AuthorIDs != nil {
		if len(q.AuthorIDs) == 0 {
			clauses = append(clauses, `1 = 0`)
		} else {
			clauses = append(clauses, `p.author_id IN (`+placeholders(len(q.AuthorIDs))+`)`)
			args = append(args, stringArgs(q.AuthorIDs)...)
		}
	}
	if len(q.ExcludeAuthorIDs) > 0 {
		clauses = append(clauses, `p.author_id NOT IN (`+placeholders(len(q.ExcludeAuthorIDs))+`)`)
		args = append(args, stringArgs(q.ExcludeAuthorIDs)...)
	}
	if q.AuthorPersona != "" {
		clauses = append(clauses, `u.persona = ?`)
		args = append(args, string(q.AuthorPersona))
	}
	if q.Type != "" {
		clauses = append(clauses, `p.type = ?`)
		args = append(args, string(q.Type))
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, `p.created_at >= ?`)
		args = append(args, q.Since.UTC())
	}
	if !q.Before.IsZero() {
		clauses = append(clauses, `p.created_at < ?`)
		args = append(args, q.Before.UTC())
	}

	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

func postOrder(o repository.PostOrder) string {
	switch o {
	case repository.OrderEngagement:
		return `p.like_count DESC, p.created_at DESC, p.id ASC`
	case repository.OrderPopular:
		return `p.like_count DESC, p.comment_count DESC, p.created_at DESC, p.id ASC`
	default:
		return `p.created_at DESC, p.id ASC`
	}
}

func scanPost(row scanner) (*domain.Post, error) {
	var (
		post                  domain.Post
		postType, media, tags string
		persona, tier         string
	)
	if err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&postType,
		&post.Content,
		&media,
		&tags,
		&post.IsPublic,
		&post.IsHidden,
		&post.LikeCount,
		&post.CommentCount,
		&post.ShareCount,
		&post.ViewCount,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.Author.DisplayName,
		&post.Author.Avatar,
		&post.Author.Headline,
		&persona,
		&post.Author.Industry,
		&tier,
	); err != nil {
		return nil, notFound(err, "post")
	}

	var err error
	if post.MediaURLs, err = decodeList(media); err != nil {
		return nil, err
	}
	if post.Tags, err = decodeList(tags); err != nil {
		return nil, err
	}
	post.Type = domain.PostType(postType)
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = post.UpdatedAt.UTC()
	post.Author.ID = post.AuthorID
	post.Author.Persona = domain.Persona(persona)
	post.Author.CreatorTier = domain.CreatorTier(tier)
	return &post, nil
}
