package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"athena-feed/internal/domain"
)

type updateProfileRequest struct {
	DisplayName     *string  `json:"displayName"`
	Avatar          *string  `json:"avatar"`
	Headline        *string  `json:"headline"`
	Bio             *string  `json:"bio"`
	Persona         *string  `json:"persona"`
	CurrentJobTitle *string  `json:"currentJobTitle"`
	Industry        *string  `json:"industry"`
	City            *string  `json:"city"`
	Country         *string  `json:"country"`
	Skills          []string `json:"skills"`
}

type FollowResponse struct {
	Following bool `json:"following"`
	Changed   bool `json:"changed"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	update := domain.ProfileUpdate{
		DisplayName:     req.DisplayName,
		Avatar:          req.Avatar,
		Headline:        req.Headline,
		Bio:             req.Bio,
		CurrentJobTitle: req.CurrentJobTitle,
		Industry:        req.Industry,
		City:            req.City,
		Country:         req.Country,
		Skills:          req.Skills,
	}
	if req.Persona != nil {
		persona := domain.Persona(*req.Persona)
		update.Persona = &persona
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUserID(c), update)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, userToResponse(user))
}

func (h *Handler) follow(c *gin.Context) {
	changed, err := h.users.Follow(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, FollowResponse{Following: true, Changed: changed})
}

func (h *Handler) unfollow(c *gin.Context) {
	changed, err := h.users.Unfollow(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, FollowResponse{Following: false, Changed: changed})
}

func (h *Handler) userPosts(c *gin.Context) {
	page, limit := pageParams(c)
	posts, hasMore, err := h.posts.ListByAuthor(c.Request.Context(), c.Param("id"), currentUserID(c), page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respondPage(c, postsToResponse(posts), pagination{Page: page, Limit: limit, HasMore: hasMore})
}
