package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosts_Lifecycle(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	alice := srv.register(t, "alice")
	bob := srv.register(t, "bob")
	carol := srv.register(t, "carol")

	rec := srv.do(t, http.MethodPost, "/api/posts", map[string]any{"content": "hello"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/posts", map[string]any{"content": "  "}, withToken(alice.Token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	post := srv.createPost(t, alice.Token, map[string]any{
		"content": "Shipping the new feed",
		"tags":    []string{"#Go", "go", "Feeds"},
	})
	assert.Equal(t, alice.UserID, post.AuthorID)
	assert.Equal(t, "TEXT", post.Type)
	assert.Equal(t, []string{"go", "feeds"}, post.Tags)
	assert.True(t, post.IsPublic)
	assert.Equal(t, "alice", post.Author.DisplayName)

	path := "/api/posts/" + post.ID

	rec = srv.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodGet, path, nil)
	var got PostResponse
	decode(t, rec, &got)
	assert.EqualValues(t, 1, got.ViewCount, "reads count views")

	rec = srv.do(t, http.MethodPost, path+"/like", nil, withToken(bob.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	var like LikeResponse
	decode(t, rec, &like)
	assert.True(t, like.Liked)
	assert.True(t, like.Changed)

	rec = srv.do(t, http.MethodPost, path+"/like", nil, withToken(bob.Token))
	decode(t, rec, &like)
	assert.False(t, like.Changed)

	rec = srv.do(t, http.MethodGet, path, nil, withToken(bob.Token))
	decode(t, rec, &got)
	assert.True(t, got.IsLiked)
	assert.EqualValues(t, 1, got.LikeCount)

	rec = srv.do(t, http.MethodPost, path+"/comments", map[string]any{"content": "nice"}, withToken(bob.Token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var comment CommentResponse
	decode(t, rec, &comment)
	assert.Equal(t, bob.UserID, comment.AuthorID)

	rec = srv.do(t, http.MethodDelete, path+"/comments/"+comment.ID, nil, withToken(carol.Token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = srv.do(t, http.MethodDelete, path+"/comments/"+comment.ID, nil, withToken(alice.Token))
	assert.Equal(t, http.StatusOK, rec.Code, "post authors moderate their threads")

	rec = srv.do(t, http.MethodPost, path+"/share", nil, withToken(carol.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	var shared struct {
		ShareCount int64 `json:"shareCount"`
	}
	decode(t, rec, &shared)
	assert.EqualValues(t, 1, shared.ShareCount)

	rec = srv.do(t, http.MethodPatch, path, map[string]any{"content": "hijacked"}, withToken(bob.Token))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPatch, path, map[string]any{"content": "Shipped the new feed"}, withToken(alice.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Equal(t, "Shipped the new feed", got.Content)

	rec = srv.do(t, http.MethodDelete, path+"/like", nil, withToken(bob.Token))
	decode(t, rec, &like)
	assert.False(t, like.Liked)
	assert.True(t, like.Changed)

	rec = srv.do(t, http.MethodDelete, path, nil, withToken(bob.Token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = srv.do(t, http.MethodDelete, path, nil, withToken(alice.Token))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeNotFound, resp.Error.Code)
}

func TestPosts_RecordView(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	alice := srv.register(t, "alice")
	post := srv.createPost(t, alice.Token, map[string]any{"content": "views"})

	rec := srv.do(t, http.MethodPost, "/api/posts/"+post.ID+"/view", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/posts/missing/view", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPosts_FeedTabs(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	alice := srv.register(t, "alice")
	bob := srv.register(t, "bob")
	carol := srv.register(t, "carol")

	srv.createPost(t, alice.Token, map[string]any{"content": "alice one"})
	srv.createPost(t, alice.Token, map[string]any{"content": "alice two"})
	srv.createPost(t, bob.Token, map[string]any{"content": "bob one"})

	rec := srv.do(t, http.MethodPost, "/api/users/"+alice.UserID+"/follow", nil, withToken(carol.Token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/posts/feed?tab=trending", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Invalid feed tab", resp.Error.Message)

	rec = srv.do(t, http.MethodGet, "/api/posts/feed?tab=following", nil, withToken(carol.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []PostResponse
	resp = decode(t, rec, &posts)
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.Equal(t, alice.UserID, p.AuthorID)
	}
	require.NotNil(t, resp.Pagination)
	require.NotNil(t, resp.Pagination.Total)
	assert.Equal(t, 2, *resp.Pagination.Total)
	assert.False(t, resp.Pagination.HasMore)

	rec = srv.do(t, http.MethodGet, "/api/posts/feed?tab=following", nil)
	require.Equal(t, http.StatusOK, rec.Code, "anonymous following falls back to for-you")
	resp = decode(t, rec, &posts)
	assert.Len(t, posts, 3)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 20, resp.Pagination.Limit)

	rec = srv.do(t, http.MethodGet, "/api/posts/feed?algorithm=chronological&limit=500", nil, withToken(carol.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode(t, rec, &posts)
	assert.Equal(t, 100, resp.Pagination.Limit)
	require.Len(t, posts, 3)
	assert.Equal(t, "bob one", posts[0].Content, "chronological is newest first")

	rec = srv.do(t, http.MethodGet, "/api/posts/feed?type=video", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &posts)
	assert.Empty(t, posts)

	rec = srv.do(t, http.MethodGet, "/api/posts/feed?limit=2&page=1", nil)
	resp = decode(t, rec, &posts)
	assert.Len(t, posts, 2)
	assert.True(t, resp.Pagination.HasMore)
}

func TestPosts_VideoFeed(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	alice := srv.register(t, "alice")
	srv.createPost(t, alice.Token, map[string]any{"content": "clip", "type": "VIDEO"})
	srv.createPost(t, alice.Token, map[string]any{"content": "text"})

	rec := srv.do(t, http.MethodGet, "/api/posts/video-feed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page VideoFeedResponse
	decode(t, rec, &page)
	require.Len(t, page.Videos, 1)
	assert.Equal(t, "VIDEO", page.Videos[0].Type)
	assert.Empty(t, page.NextCursor)

	rec = srv.do(t, http.MethodGet, "/api/posts/video-feed?cursor=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsers_FollowAndProfile(t *testing.T) {
	srv := newTestServer(t, RateLimit{})
	alice := srv.register(t, "alice")
	bob := srv.register(t, "bob")

	rec := srv.do(t, http.MethodPost, "/api/users/"+bob.UserID+"/follow", nil, withToken(bob.Token))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "self follow")

	rec = srv.do(t, http.MethodPost, "/api/users/missing/follow", nil, withToken(bob.Token))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/users/"+alice.UserID+"/follow", nil, withToken(bob.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	var follow FollowResponse
	decode(t, rec, &follow)
	assert.True(t, follow.Following)
	assert.True(t, follow.Changed)

	rec = srv.do(t, http.MethodDelete, "/api/users/"+alice.UserID+"/follow", nil, withToken(bob.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &follow)
	assert.False(t, follow.Following)
	assert.True(t, follow.Changed)

	rec = srv.do(t, http.MethodPatch, "/api/users/me", map[string]any{"persona": "astronaut"}, withToken(alice.Token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/api/users/me", map[string]any{
		"persona":  "mentor",
		"headline": "Staff engineer",
		"skills":   []string{"Go", "SQL"},
	}, withToken(alice.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user UserResponse
	decode(t, rec, &user)
	assert.Equal(t, "MENTOR", user.Persona)
	assert.Equal(t, "Staff engineer", user.Headline)
	assert.Equal(t, []string{"go", "sql"}, user.Skills, "skills are stored lower-cased")

	public := srv.createPost(t, alice.Token, map[string]any{"content": "public"})
	srv.createPost(t, alice.Token, map[string]any{"content": "private", "isPublic": false})

	rec = srv.do(t, http.MethodGet, "/api/users/"+alice.UserID+"/posts", nil, withToken(bob.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []PostResponse
	decode(t, rec, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, public.ID, posts[0].ID)

	rec = srv.do(t, http.MethodGet, "/api/users/"+alice.UserID+"/posts", nil, withToken(alice.Token))
	decode(t, rec, &posts)
	assert.Len(t, posts, 2)
}
