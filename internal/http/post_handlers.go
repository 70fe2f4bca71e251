package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"athena-feed/internal/domain"
	"athena-feed/internal/service"
)

const (
	tabForYou    = "for-you"
	tabFollowing = "following"
)

type createPostRequest struct {
	Type     string   `json:"type"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	IsPublic *bool    `json:"isPublic"`
	MediaIDs []string `json:"mediaIds"`
}

type updatePostRequest struct {
	Content  *string  `json:"content"`
	Tags     []string `json:"tags"`
	IsPublic *bool    `json:"isPublic"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type LikeResponse struct {
	Liked   bool `json:"liked"`
	Changed bool `json:"changed"`
}

type VideoFeedResponse struct {
	Videos     []PostResponse `json:"videos"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// postFeed serves the home feed tabs. The following tab needs a signed-in
// viewer and falls back to the for-you feed otherwise.
func (h *Handler) postFeed(c *gin.Context) {
	tab := strings.ToLower(c.DefaultQuery("tab", tabForYou))
	if tab != tabForYou && tab != tabFollowing {
		badRequest(c, "Invalid feed tab")
		return
	}

	page, limit := pageParams(c)
	viewerID := currentUserID(c)
	postType := service.ParseTypeFilter(c.Query("type"))

	var (
		res service.FeedResult
		err error
	)
	if tab == tabFollowing && viewerID != "" {
		res, err = h.feed.Following(c.Request.Context(), viewerID, page, limit, postType)
	} else {
		res, err = h.feed.Generate(c.Request.Context(), service.FeedOptions{
			ViewerID:  viewerID,
			Page:      page,
			Limit:     limit,
			Type:      postType,
			Algorithm: service.ParseAlgorithm(c.Query("algorithm")),
		})
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	respondPage(c, postsToResponse(res.Posts), feedPagination(page, limit, res))
}

func (h *Handler) videoFeed(c *gin.Context) {
	limit := queryInt(c, "limit", service.DefaultVideoLimit)
	vp, err := h.feed.VideoFeed(c.Request.Context(), currentUserID(c), c.Query("cursor"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, VideoFeedResponse{Videos: postsToResponse(vp.Videos), NextCursor: vp.NextCursor})
}

func (h *Handler) recordView(c *gin.Context) {
	if err := h.feed.RecordView(c.Request.Context(), c.Param("id"), currentUserID(c), false); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "View recorded"})
}

func (h *Handler) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	post, err := h.posts.Create(c.Request.Context(), service.CreatePostInput{
		AuthorID: currentUserID(c),
		Type:     req.Type,
		Content:  req.Content,
		Tags:     req.Tags,
		IsPublic: req.IsPublic,
		MediaIDs: req.MediaIDs,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, postToResponse(post))
}

// getPost counts a view without failing the read when the counter update does.
func (h *Handler) getPost(c *gin.Context) {
	ctx := c.Request.Context()
	viewerID := currentUserID(c)
	post, err := h.posts.Get(ctx, c.Param("id"), viewerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	_ = h.feed.RecordView(ctx, post.ID, viewerID, true)
	respond(c, http.StatusOK, postToResponse(post))
}

func (h *Handler) updatePost(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	post, err := h.posts.Update(c.Request.Context(), c.Param("id"), currentUserID(c), domain.PostPatch{
		Content:  req.Content,
		Tags:     req.Tags,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, postToResponse(post))
}

func (h *Handler) deletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *Handler) likePost(c *gin.Context) {
	changed, err := h.posts.Like(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, LikeResponse{Liked: true, Changed: changed})
}

func (h *Handler) unlikePost(c *gin.Context) {
	changed, err := h.posts.Unlike(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, LikeResponse{Liked: false, Changed: changed})
}

func (h *Handler) addComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	comment, err := h.posts.AddComment(c.Request.Context(), service.CommentInput{
		PostID:   c.Param("id"),
		AuthorID: currentUserID(c),
		Content:  req.Content,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, commentToResponse(comment))
}

func (h *Handler) deleteComment(c *gin.Context) {
	commentID := c.Param("commentId")
	if err := h.posts.DeleteComment(c.Request.Context(), c.Param("id"), commentID, currentUserID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": commentID})
}

func (h *Handler) sharePost(c *gin.Context) {
	shares, err := h.posts.Share(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"shareCount": shares})
}
