package repository

import (
	"context"
	"time"

	"athena-feed/internal/domain"
)

// Visibility selects which posts a query may return.
type Visibility int

const (
	// VisibilityPublic returns public posts that are not hidden.
	VisibilityPublic Visibility = iota
	// VisibilityNetwork additionally returns non-public posts of NetworkIDs.
	VisibilityNetwork
	// VisibilityUnhidden returns every post that is not hidden.
	VisibilityUnhidden
)

type PostOrder int

const (
	// OrderRecent sorts newest first.
	OrderRecent PostOrder = iota
	// OrderEngagement sorts by likes, then newest first.
	OrderEngagement
	// OrderPopular sorts by likes, then comments, then newest first.
	OrderPopular
)

// PostQuery filters and pages posts. Zero values disable a filter.
type PostQuery struct {
	Visibility Visibility
	NetworkIDs []string

	// AuthorIDs restricts results to these authors when non-nil; an empty
	// non-nil slice matches nothing.
	AuthorIDs        []string
	ExcludeAuthorIDs []string
	AuthorPersona    domain.Persona

	Type   domain.PostType
	Since  time.Time
	Before time.Time

	Order  PostOrder
	Limit  int
	Offset int
}

// PostRepository persists posts together with their engagement counters.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) error
	Get(ctx context.Context, id string) (*domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, q PostQuery) ([]domain.Post, error)
	Count(ctx context.Context, q PostQuery) (int, error)
	IncrementViews(ctx context.Context, id string) error
	IncrementShares(ctx context.Context, id string) (int64, error)
}

// LikeRepository keeps likes and the like counter of posts in step.
type LikeRepository interface {
	Init(ctx context.Context) error
	// Like reports false when the user already liked the post.
	Like(ctx context.Context, userID, postID string) (bool, error)
	Unlike(ctx context.Context, userID, postID string) (bool, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

// CommentRepository keeps comments and the comment counter in step.
type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) error
	Get(ctx context.Context, id string) (*domain.Comment, error)
	Delete(ctx context.Context, comment *domain.Comment) error
}
