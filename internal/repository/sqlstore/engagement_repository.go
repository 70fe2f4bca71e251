package sqlstore

import (
	"context"
	"fmt"
	"time"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
)

var createEngagementTables = []string{`
CREATE TABLE IF NOT EXISTS follows (
	follower_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	following_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (follower_id, following_id)
)`, `
CREATE INDEX IF NOT EXISTS idx_follows_following ON follows (following_id)`, `
CREATE TABLE IF NOT EXISTS likes (
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	post_id TEXT NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, post_id)
)`, `
CREATE INDEX IF NOT EXISTS idx_likes_post ON likes (post_id)`, `
CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
	author_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`, `
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id, created_at)`,
}

// engagementSchema creates follows, likes and comments; it runs once from
// FollowRepository.Init since the three tables share a migration.
func engagementSchema(ctx context.Context, db *DB) error {
	for _, stmt := range createEngagementTables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create engagement tables: %w", err)
		}
	}
	return nil
}

type FollowRepository struct {
	db *DB
}

func NewFollowRepository(db *DB) repository.FollowRepository {
	return &FollowRepository{db: db}
}

func (r *FollowRepository) Init(ctx context.Context) error {
	return engagementSchema(ctx, r.db)
}

func (r *FollowRepository) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO follows (follower_id, following_id, created_at)
VALUES (?, ?, ?)
ON CONFLICT DO NOTHING`,
		followerID, followingID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert follow: %w", err)
	}
	return rowsAffected(res)
}

func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = ? AND following_id = ?`, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	return rowsAffected(res)
}

func (r *FollowRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT following_id FROM follows WHERE follower_id = ? ORDER BY created_at, following_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

type LikeRepository struct {
	db *DB
}

func NewLikeRepository(db *DB) repository.LikeRepository {
	return &LikeRepository{db: db}
}

func (r *LikeRepository) Init(ctx context.Context) error {
	return engagementSchema(ctx, r.db)
}

func (r *LikeRepository) Like(ctx context.Context, userID, postID string) (bool, error) {
	var created bool
	err := r.db.WithTx(ctx, func(tx *Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
INSERT INTO likes (user_id, post_id, created_at)
VALUES (?, ?, ?)
ON CONFLICT DO NOTHING`,
			userID, postID, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
		if created, err = rowsAffected(res); err != nil || !created {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET like_count = like_count + 1 WHERE id = ?`, postID); err != nil {
			return fmt.Errorf("increment likes: %w", err)
		}
		return nil
	})
	return created, err
}

func (r *LikeRepository) Unlike(ctx context.Context, userID, postID string) (bool, error) {
	var removed bool
	err := r.db.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE user_id = ? AND post_id = ?`, userID, postID)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		if removed, err = rowsAffected(res); err != nil || !removed {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE posts SET like_count = CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END
WHERE id = ?`, postID); err != nil {
			return fmt.Errorf("decrement likes: %w", err)
		}
		return nil
	})
	return removed, err
}

func (r *LikeRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}
	args := append([]any{userID}, stringArgs(postIDs)...)
	rows, err := r.db.QueryContext(ctx, `
SELECT post_id FROM likes WHERE user_id = ? AND post_id IN (`+placeholders(len(postIDs))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

type CommentRepository struct {
	db *DB
}

func NewCommentRepository(db *DB) repository.CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Init(ctx context.Context) error {
	return engagementSchema(ctx, r.db)
}

func (r *CommentRepository) Create(ctx context.Context, c *domain.Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return r.db.WithTx(ctx, func(tx *Tx) error {
		if err := postExists(ctx, tx, c.PostID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO comments (id, post_id, author_id, content, created_at)
VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.PostID, c.AuthorID, c.Content, c.CreatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET comment_count = comment_count + 1 WHERE id = ?`, c.PostID); err != nil {
			return fmt.Errorf("increment comments: %w", err)
		}
		return nil
	})
}

func (r *CommentRepository) Get(ctx context.Context, id string) (*domain.Comment, error) {
	var c domain.Comment
	err := r.db.QueryRowContext(ctx, `
SELECT id, post_id, author_id, content, created_at FROM comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "comment")
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (r *CommentRepository) Delete(ctx context.Context, c *domain.Comment) error {
	return r.db.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, c.ID)
		if err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("comment %s: %w", c.ID, repository.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE posts SET comment_count = CASE WHEN comment_count > 0 THEN comment_count - 1 ELSE 0 END
WHERE id = ?`, c.PostID); err != nil {
			return fmt.Errorf("decrement comments: %w", err)
		}
		return nil
	})
}

func postExists(ctx context.Context, q queryer, postID string) error {
	var one int
	if err := q.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one); err != nil {
		return notFound(err, "post")
	}
	return nil
}
