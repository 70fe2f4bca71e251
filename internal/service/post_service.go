package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
)

const (
	maxPostLength    = 5000
	maxCommentLength = 2000
	maxTags          = 10
)

type CreatePostInput struct {
	AuthorID string
	Type     string
	Content  string
	Tags     []string
	IsPublic *bool
	MediaIDs []string
}

type CommentInput struct {
	PostID   string
	AuthorID string
	Content  string
}

// PostService covers post authoring and engagement.
type PostService interface {
	Create(ctx context.Context, in CreatePostInput) (*domain.FeedPost, error)
	Get(ctx context.Context, id, viewerID string) (*domain.FeedPost, error)
	Update(ctx context.Context, id, actorID string, patch domain.PostPatch) (*domain.FeedPost, error)
	Delete(ctx context.Context, id, actorID string) error
	Like(ctx context.Context, postID, userID string) (bool, error)
	Unlike(ctx context.Context, postID, userID string) (bool, error)
	AddComment(ctx context.Context, in CommentInput) (*domain.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID, actorID string) error
	Share(ctx context.Context, postID string) (int64, error)
	ListByAuthor(ctx context.Context, authorID, viewerID string, page, limit int) ([]domain.FeedPost, bool, error)
}

type postService struct {
	posts    repository.PostRepository
	likes    repository.LikeRepository
	comments repository.CommentRepository
	media    repository.MediaRepository
	logger   *logrus.Logger
	now      func() time.Time
}

func NewPostService(
	posts repository.PostRepository,
	likes repository.LikeRepository,
	comments repository.CommentRepository,
	media repository.MediaRepository,
	logger *logrus.Logger,
) PostService {
	if logger == nil {
		logger = logrus.New()
	}
	return &postService{
		posts:    posts,
		likes:    likes,
		comments: comments,
		media:    media,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *postService) Create(ctx context.Context, in CreatePostInput) (*domain.FeedPost, error) {
	content := strings.TrimSpace(in.Content)
	if len(content) > maxPostLength {
		return nil, invalidf("content must be at most %d characters", maxPostLength)
	}

	postType := domain.PostTypeText
	if strings.TrimSpace(in.Type) != "" {
		t, ok := domain.ParsePostType(in.Type)
		if !ok {
			return nil, invalidf("unknown post type %q", in.Type)
		}
		postType = t
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	mediaURLs, err := s.resolveMedia(ctx, in.AuthorID, in.MediaIDs)
	if err != nil {
		return nil, err
	}
	if content == "" && len(mediaURLs) == 0 {
		return nil, invalidf("content or media is required")
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	post := &domain.Post{
		ID:        uuid.NewString(),
		AuthorID:  in.AuthorID,
		Type:      postType,
		Content:   content,
		MediaURLs: mediaURLs,
		Tags:      tags,
		IsPublic:  isPublic,
		CreatedAt: s.now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"post_id": post.ID, "user_id": in.AuthorID}).Debug("post created")
	return s.Get(ctx, post.ID, in.AuthorID)
}

// resolveMedia maps upload ids to the object URLs of completed uploads
// owned by the author.
func (s *postService) resolveMedia(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	urls := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if s.media == nil {
			return nil, ErrStorageDisabled
		}
		m, err := s.media.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalidf("media %s not found", id)
			}
			return nil, err
		}
		if m.OwnerID != ownerID {
			return nil, invalidf("media %s not found", id)
		}
		if m.Status != domain.MediaStatusCompleted {
			return nil, invalidf("media %s is not ready", id)
		}
		urls = append(urls, m.URL)
	}
	return urls, nil
}

func (s *postService) Get(ctx context.Context, id, viewerID string) (*domain.FeedPost, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.IsHidden && post.AuthorID != viewerID {
		return nil, fmt.Errorf("post %s: %w", id, repository.ErrNotFound)
	}

	out := &domain.FeedPost{Post: *post}
	if viewerID != "" {
		liked, err := s.likes.LikedPostIDs(ctx, viewerID, []string{id})
		if err != nil {
			return nil, err
		}
		out.IsLiked = liked[id]
	}
	return out, nil
}

func (s *postService) Update(ctx context.Context, id, actorID string, patch domain.PostPatch) (*domain.FeedPost, error) {
	post, err := s.ownedPost(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if len(content) > maxPostLength {
			return nil, invalidf("content must be at most %d characters", maxPostLength)
		}
		if content == "" && len(post.MediaURLs) == 0 {
			return nil, invalidf("content or media is required")
		}
		post.Content = content
	}
	if patch.Tags != nil {
		tags, err := normalizeTags(patch.Tags)
		if err != nil {
			return nil, err
		}
		post.Tags = tags
	}
	if patch.IsPublic != nil {
		post.IsPublic = *patch.IsPublic
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.Get(ctx, id, actorID)
}

func (s *postService) Delete(ctx context.Context, id, actorID string) error {
	if _, err := s.ownedPost(ctx, id, actorID); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"post_id": id, "user_id": actorID}).Debug("post deleted")
	return nil
}

func (s *postService) ownedPost(ctx context.Context, id, actorID string) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, ErrForbidden
	}
	return post, nil
}

func (s *postService) Like(ctx context.Context, postID, userID string) (bool, error) {
	if _, err := s.Get(ctx, postID, userID); err != nil {
		return false, err
	}
	return s.likes.Like(ctx, userID, postID)
}

func (s *postService) Unlike(ctx context.Context, postID, userID string) (bool, error) {
	return s.likes.Unlike(ctx, userID, postID)
}

func (s *postService) AddComment(ctx context.Context, in CommentInput) (*domain.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, invalidf("comment content is required")
	}
	if len(content) > maxCommentLength {
		return nil, invalidf("comment must be at most %d characters", maxCommentLength)
	}
	if _, err := s.Get(ctx, in.PostID, in.AuthorID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:        uuid.NewString(),
		PostID:    in.PostID,
		AuthorID:  in.AuthorID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment allows the comment author and the post author.
func (s *postService) DeleteComment(ctx context.Context, postID, commentID, actorID string) error {
	comment, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.PostID != postID {
		return fmt.Errorf("comment %s: %w", commentID, repository.ErrNotFound)
	}
	if comment.AuthorID != actorID {
		post, err := s.posts.Get(ctx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != actorID {
			return ErrForbidden
		}
	}
	return s.comments.Delete(ctx, comment)
}

func (s *postService) Share(ctx context.Context, postID string) (int64, error) {
	return s.posts.IncrementShares(ctx, postID)
}

func (s *postService) ListByAuthor(ctx context.Context, authorID, viewerID string, page, limit int) ([]domain.FeedPost, bool, error) {
	page, limit = NormalizePage(page, limit)

	q := repository.PostQuery{
		AuthorIDs: []string{authorID},
		Order:     repository.OrderRecent,
		Limit:     limit + 1,
		Offset:    (page - 1) * limit,
	}
	if viewerID == authorID {
		q.Visibility = repository.VisibilityUnhidden
	}
	posts, err := s.posts.Query(ctx, q)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	out := make([]domain.FeedPost, len(posts))
	for i := range posts {
		out[i] = domain.FeedPost{Post: posts[i]}
	}
	if err := markLiked(ctx, s.likes, viewerID, out); err != nil {
		return nil, false, err
	}
	return out, hasMore, nil
}

func normalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	if len(tags) > maxTags {
		return nil, invalidf("at most %d tags are allowed", maxTags)
	}
	return tags, nil
}

// markLiked sets IsLiked on the posts the viewer liked.
func markLiked(ctx context.Context, likes repository.LikeRepository, viewerID string, posts []domain.FeedPost) error {
	if viewerID == "" || len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := likes.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].IsLiked = liked[posts[i].ID]
	}
	return nil
}
