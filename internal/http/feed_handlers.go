package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"athena-feed/internal/coldstart"
	"athena-feed/internal/ranking"
	"athena-feed/internal/service"
)

type rankCandidate struct {
	ID          string    `json:"id" binding:"required"`
	ContentType string    `json:"contentType"`
	AuthorID    string    `json:"authorId"`
	CreatedAt   time.Time `json:"createdAt"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	Comments    int64     `json:"comments"`
	Shares      int64     `json:"shares"`
	Quality     *float64  `json:"quality"`
	Tags        []string  `json:"tags"`
	Sponsored   bool      `json:"sponsored"`
}

type rankRequest struct {
	Mode       string          `json:"mode"`
	TopK       int             `json:"topK"`
	Candidates []rankCandidate `json:"candidates" binding:"dive"`
}

func (h *Handler) mixedFeed(c *gin.Context) {
	page, limit := pageParams(c)
	out, err := h.mix.Mixed(c.Request.Context(), currentUserID(c), page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respondPage(c, mixedToResponse(out), pagination{Page: page, Limit: limit, HasMore: out.HasMore})
}

func (h *Handler) trending(c *gin.Context) {
	hours := queryInt(c, "hours", service.DefaultTrendingHours)
	limit := queryInt(c, "limit", service.DefaultTrendingLimit)
	posts, err := h.feed.Trending(c.Request.Context(), hours, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, postsToResponse(posts))
}

func (h *Handler) forYou(c *gin.Context) {
	page, limit := pageParams(c)
	res, err := h.feed.ForYou(c.Request.Context(), currentUserID(c), page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respondPage(c, postsToResponse(res.Posts), feedPagination(page, limit, res))
}

func (h *Handler) coldStartFeed(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	status, err := h.coldStart.Status(ctx, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	limit := queryInt(c, "limit", coldstart.DefaultRecommendationLimit)
	recs, err := h.coldStart.Recommendations(ctx, userID, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, ColdStartResponse{
		IsColdStart:     status.IsColdStart,
		ColdStartScore:  status.Score,
		Recommendations: recommendationsToResponse(recs),
	})
}

func (h *Handler) onboarding(c *gin.Context) {
	steps, err := h.coldStart.Onboarding(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, stepsToResponse(steps))
}

func (h *Handler) rank(c *gin.Context) {
	var req rankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid ranking request")
		return
	}

	candidates := make([]ranking.Candidate, len(req.Candidates))
	for i, rc := range req.Candidates {
		candidates[i] = ranking.Candidate{
			ID:          rc.ID,
			ContentType: rc.ContentType,
			AuthorID:    rc.AuthorID,
			CreatedAt:   rc.CreatedAt,
			Views:       rc.Views,
			Likes:       rc.Likes,
			Comments:    rc.Comments,
			Shares:      rc.Shares,
			Quality:     rc.Quality,
			Tags:        rc.Tags,
			Sponsored:   rc.Sponsored,
		}
	}

	ranked, err := h.mix.Rank(c.Request.Context(), service.RankInput{
		ViewerID:   currentUserID(c),
		Mode:       service.RankMode(req.Mode),
		TopK:       req.TopK,
		Candidates: candidates,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, rankedToResponse(ranked))
}
