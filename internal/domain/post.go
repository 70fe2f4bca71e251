package domain

import (
	"strings"
	"time"
)

type PostType string

const (
	PostTypeText    PostType = "TEXT"
	PostTypeImage   PostType = "IMAGE"
	PostTypeVideo   PostType = "VIDEO"
	PostTypeArticle PostType = "ARTICLE"
)

// ParsePostType accepts case-insensitive names; ok is false for unknown values.
func ParsePostType(raw string) (PostType, bool) {
	switch t := PostType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case PostTypeText, PostTypeImage, PostTypeVideo, PostTypeArticle:
		return t, true
	}
	return "", false
}

// Post is a piece of user generated content with its engagement counters.
type Post struct {
	ID           string
	AuthorID     string
	Type         PostType
	Content      string
	MediaURLs    []string
	Tags         []string
	IsPublic     bool
	IsHidden     bool
	LikeCount    int64
	CommentCount int64
	ShareCount   int64
	ViewCount    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Author       AuthorSummary
}

// FeedPost is a post as it leaves the ranking pipeline.
type FeedPost struct {
	Post
	IsLiked         bool
	EngagementScore float64
	DecayedScore    float64
}

type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// PostPatch carries optional post changes; nil fields are left untouched.
type PostPatch struct {
	Content  *string
	Tags     []string
	IsPublic *bool
}
