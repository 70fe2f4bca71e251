package repository

import (
	"context"
	"time"

	"athena-feed/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	Stats(ctx context.Context, id string) (domain.UserStats, error)
	// SuggestByPersona lists active users of the persona that have posted,
	// most recently seen first.
	SuggestByPersona(ctx context.Context, persona domain.Persona, excludeID string, limit int) ([]domain.AuthorSummary, error)
	// SimilarUserIDs returns users sharing the persona or whose posts the
	// viewer liked, excluding the viewer.
	SimilarUserIDs(ctx context.Context, viewerID string, persona domain.Persona, limit int) ([]string, error)
}

// FollowRepository stores the directed follow graph.
type FollowRepository interface {
	Init(ctx context.Context) error
	// Follow reports false when the edge already existed.
	Follow(ctx context.Context, followerID, followingID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followingID string) (bool, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
}
