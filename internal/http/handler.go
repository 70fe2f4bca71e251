package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"athena-feed/internal/auth"
	"athena-feed/internal/cache"
	"athena-feed/internal/service"
)

// RateLimit configures the fixed-window limiter on auth endpoints.
// Requests <= 0 disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Config carries everything the handler needs. Cache may be nil, which
// disables rate limiting.
type Config struct {
	Users         service.UserService
	Posts         service.PostService
	Feed          service.FeedService
	Mix           service.MixService
	ColdStart     service.ColdStartService
	Opportunities service.OpportunityService
	Media         service.MediaService
	Tokens        *auth.Manager
	Cache         cache.Cache
	Logger        *logrus.Logger
	CookieSecure  bool
	RateLimit     RateLimit
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users         service.UserService
	posts         service.PostService
	feed          service.FeedService
	mix           service.MixService
	coldStart     service.ColdStartService
	opportunities service.OpportunityService
	media         service.MediaService
	tokens        *auth.Manager
	cache         cache.Cache
	logger        *logrus.Logger
	cookieSecure  bool
	limit         RateLimit
}

func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	return &Handler{
		users:         cfg.Users,
		posts:         cfg.Posts,
		feed:          cfg.Feed,
		mix:           cfg.Mix,
		coldStart:     cfg.ColdStart,
		opportunities: cfg.Opportunities,
		media:         cfg.Media,
		tokens:        cfg.Tokens,
		cache:         cfg.Cache,
		logger:        logger,
		cookieSecure:  cfg.CookieSecure,
		limit:         cfg.RateLimit,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), accessLogMiddleware(h.logger))

	authed := h.authenticate()
	optional := h.optionalAuth()

	api := router.Group("/api")
	{
		api.GET("/health", h.health)

		authRoutes := api.Group("/auth")
		authRoutes.POST("/register", h.rateLimit("register"), h.register)
		authRoutes.POST("/login", h.rateLimit("login"), h.login)
		authRoutes.POST("/refresh", h.rateLimit("refresh"), h.refresh)
		authRoutes.POST("/logout", h.logout)
		authRoutes.GET("/me", authed, h.me)

		users := api.Group("/users")
		users.PATCH("/me", authed, h.updateProfile)
		users.POST("/:id/follow", authed, h.follow)
		users.DELETE("/:id/follow", authed, h.unfollow)
		users.GET("/:id/posts", optional, h.userPosts)

		posts := api.Group("/posts")
		posts.GET("/feed", optional, h.postFeed)
		posts.GET("/video-feed", optional, h.videoFeed)
		posts.POST("", authed, h.createPost)
		posts.GET("/:id", optional, h.getPost)
		posts.PATCH("/:id", authed, h.updatePost)
		posts.DELETE("/:id", authed, h.deletePost)
		posts.POST("/:id/view", optional, h.recordView)
		posts.POST("/:id/like", authed, h.likePost)
		posts.DELETE("/:id/like", authed, h.unlikePost)
		posts.POST("/:id/comments", authed, h.addComment)
		posts.DELETE("/:id/comments/:commentId", authed, h.deleteComment)
		posts.POST("/:id/share", authed, h.sharePost)

		feed := api.Group("/feed")
		feed.GET("/mixed", optional, h.mixedFeed)
		feed.GET("/trending", h.trending)
		feed.GET("/for-you", authed, h.forYou)
		feed.GET("/cold-start", authed, h.coldStartFeed)
		feed.GET("/onboarding", authed, h.onboarding)
		feed.POST("/rank", optional, h.rank)

		api.GET("/jobs", h.listJobs)
		api.POST("/jobs", authed, h.createJob)
		api.GET("/courses", h.listCourses)
		api.POST("/courses", authed, h.createCourse)
		api.GET("/sponsored", authed, h.listCampaigns)
		api.POST("/sponsored", authed, h.createCampaign)
		api.PUT("/mentors/me", authed, h.upsertMentor)
		api.GET("/groups", h.listGroups)
		api.POST("/groups", authed, h.createGroup)

		api.POST("/media", authed, h.uploadMedia)
		api.GET("/media", authed, h.listStoredObjects)
		api.GET("/media/:id", authed, h.getMedia)
		api.DELETE("/media/:id", authed, h.deleteMedia)
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
}

func (h *Handler) health(c *gin.Context) {
	resp := healthResponse{Status: "ok", Cache: "disabled"}
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.WithError(err).Warn("cache ping failed")
			resp.Cache = "unavailable"
		} else {
			resp.Cache = "ok"
		}
	}
	respond(c, http.StatusOK, resp)
}
