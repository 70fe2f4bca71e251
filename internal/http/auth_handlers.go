package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"athena-feed/internal/auth"
	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
	"athena-feed/internal/service"
)

type registerRequest struct {
	Email                string `json:"email" binding:"required"`
	Password             string `json:"password" binding:"required"`
	DisplayName          string `json:"displayName" binding:"required"`
	Persona              string `json:"persona"`
	RegistrationPassword string `json:"registrationPassword"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    string       `json:"expiresAt"`
}

type MeResponse struct {
	User  UserResponse  `json:"user"`
	Stats StatsResponse `json:"stats"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email, password and display name are required")
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Persona:     req.Persona,
		Secret:      req.RegistrationPassword,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.issueSession(c, http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.issueSession(c, http.StatusOK, user)
}

// refresh accepts the refresh token from its cookie or the request body.
func (h *Handler) refresh(c *gin.Context) {
	token, _ := c.Cookie(auth.RefreshCookie)
	if token == "" {
		var req refreshRequest
		_ = c.ShouldBindJSON(&req)
		token = req.RefreshToken
	}
	if token == "" {
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "Refresh token required")
		return
	}

	claims, err := h.tokens.Parse(token, auth.KindRefresh)
	if err != nil {
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "Invalid refresh token")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusUnauthorized, codeUnauthorized, "Invalid refresh token")
			return
		}
		h.writeError(c, err)
		return
	}
	if !user.IsActive {
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "Account is disabled")
		return
	}
	h.issueSession(c, http.StatusOK, user)
}

func (h *Handler) logout(c *gin.Context) {
	h.setCookie(c, auth.AccessCookie, "", -1)
	h.setCookie(c, auth.RefreshCookie, "", -1)
	respond(c, http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) me(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	stats, err := h.users.Stats(ctx, user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, MeResponse{
		User: userToResponse(user),
		Stats: StatsResponse{
			Likes:     stats.Likes,
			Posts:     stats.Posts,
			Comments:  stats.Comments,
			Following: stats.Following,
			Followers: stats.Followers,
		},
	})
}

func (h *Handler) issueSession(c *gin.Context, status int, user *domain.User) {
	pair, err := h.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setCookie(c, auth.AccessCookie, pair.AccessToken, int(h.tokens.AccessTTL().Seconds()))
	h.setCookie(c, auth.RefreshCookie, pair.RefreshToken, int(h.tokens.RefreshTTL().Seconds()))

	respond(c, status, AuthResponse{
		User:         userToResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    formatTime(pair.AccessExpiresAt),
	})
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.cookieSecure, true)
}
