package sqlstore

import (
	"context"

	"athena-feed/internal/repository"
)

// Store bundles every repository over one connection pool.
type Store struct {
	DB        *DB
	Users     repository.UserRepository
	Follows   repository.FollowRepository
	Posts     repository.PostRepository
	Likes     repository.LikeRepository
	Comments  repository.CommentRepository
	Jobs      repository.JobRepository
	Courses   repository.CourseRepository
	Campaigns repository.CampaignRepository
	Mentors   repository.MentorRepository
	Groups    repository.GroupRepository
	Media     repository.MediaRepository
}

func NewStore(db *DB) *Store {
	return &Store{
		DB:        db,
		Users:     NewUserRepository(db),
		Follows:   NewFollowRepository(db),
		Posts:     NewPostRepository(db),
		Likes:     NewLikeRepository(db),
		Comments:  NewCommentRepository(db),
		Jobs:      NewJobRepository(db),
		Courses:   NewCourseRepository(db),
		Campaigns: NewCampaignRepository(db),
		Mentors:   NewMentorRepository(db),
		Groups:    NewGroupRepository(db),
		Media:     NewMediaRepository(db),
	}
}

// Init creates the schema. Referenced tables are created first.
func (s *Store) Init(ctx context.Context) error {
	initializers := []interface {
		Init(ctx context.Context) error
	}{
		s.Users,
		s.Posts,
		s.Follows,
		s.Jobs,
		s.Media,
	}
	for _, r := range initializers {
		if err := r.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
