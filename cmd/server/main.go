package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"athena-feed/internal/auth"
	"athena-feed/internal/cache"
	rediscache "athena-feed/internal/cache/redis"
	"athena-feed/internal/config"
	apphttp "athena-feed/internal/http"
	"athena-feed/internal/media"
	"athena-feed/internal/mixer"
	"athena-feed/internal/ranking"
	"athena-feed/internal/repository/sqlstore"
	"athena-feed/internal/scheduler"
	"athena-feed/internal/service"
	"athena-feed/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.Database.Path
	if cfg.Database.DSN != "" {
		dsn = cfg.Database.DSN
	}
	db, err := sqlstore.Open(cfg.Database.Driver, dsn)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	store := sqlstore.NewStore(db)
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		logger.Fatalf("init schema: %v", err)
	}

	appCache, closeCache := buildCache(ctx, cfg, logger)
	defer closeCache()

	weights := ranking.DefaultWeights()
	if cfg.Feed.DecayHalfLifeHours > 0 {
		weights.DecayHalfLife = time.Duration(cfg.Feed.DecayHalfLifeHours * float64(time.Hour))
	}
	scorer := ranking.NewScorer(weights, nil)

	mix, err := mixer.New(cfg.Mixer)
	if err != nil {
		logger.Fatalf("mixer config: %v", err)
	}

	var (
		storageSvc storage.Service
		manager    media.Manager
	)
	if cfg.Storage.Bucket != "" {
		s3Svc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		storageSvc = s3Svc
		manager = media.NewManager(media.Config{
			StagingDir:    cfg.Storage.StagingDir,
			MaxConcurrent: cfg.Media.MaxConcurrent,
			Bucket:        cfg.Storage.Bucket,
			KeyPrefix:     cfg.Storage.KeyPrefix,
			Logger:        logger,
		}, store.Media, storageSvc)
		if err := manager.Start(ctx); err != nil {
			logger.Fatalf("start media manager: %v", err)
		}
		if err := manager.Resume(ctx); err != nil {
			logger.Warnf("resume uploads: %v", err)
		}
	} else {
		logger.Warn("storage bucket not configured, media uploads disabled")
	}

	feedService := service.NewFeedService(store.Users, store.Follows, store.Posts, store.Likes, appCache, scorer, service.FeedConfig{
		MaxPostsPerCreator: cfg.Feed.MaxPostsPerCreator,
		CandidateLimit:     cfg.Feed.CandidateLimit,
		TrendingTTL:        cfg.Feed.TrendingTTL,
	}, logger)

	var warmer scheduler.Service
	if cfg.Scheduler.Enabled {
		trending := service.NewTrendingWarmer(feedService, appCache, cfg.Scheduler.TrendingWindows,
			cfg.Scheduler.TrendingLimits, cfg.Scheduler.BatchTimeout, logger)
		warmer = scheduler.New(trending, cfg.Scheduler.Interval, cfg.Scheduler.BatchTimeout, logger)
		if err := warmer.Start(); err != nil {
			logger.Fatalf("start scheduler: %v", err)
		}
	}

	handler := apphttp.NewHandler(apphttp.Config{
		Users: service.NewUserService(store.Users, store.Follows, cfg.Auth.RegisterPassword),
		Posts: service.NewPostService(store.Posts, store.Likes, store.Comments, store.Media, logger),
		Feed:  feedService,
		Mix:   service.NewMixService(feedService, store.Users, store.Follows, store.Jobs, store.Courses, store.Campaigns, mix, scorer),
		ColdStart: service.NewColdStartService(service.ColdStartDeps{
			Users:   store.Users,
			Posts:   store.Posts,
			Jobs:    store.Jobs,
			Courses: store.Courses,
			Mentors: store.Mentors,
			Groups:  store.Groups,
		}),
		Opportunities: service.NewOpportunityService(store.Jobs, store.Courses, store.Campaigns, store.Mentors, store.Groups),
		Media: service.NewMediaService(store.Media, manager, storageSvc, service.MediaConfig{
			StagingDir:     cfg.Storage.StagingDir,
			MaxUploadBytes: cfg.Media.MaxUploadBytes,
			URLExpiry:      cfg.Storage.URLExpiry,
			Bucket:         cfg.Storage.Bucket,
			KeyPrefix:      cfg.Storage.KeyPrefix,
		}, logger),
		Tokens:       auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL),
		Cache:        appCache,
		Logger:       logger,
		CookieSecure: cfg.Auth.CookieSecure,
		RateLimit: apphttp.RateLimit{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		},
	})

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if warmer != nil {
		if err := warmer.Close(); err != nil {
			logger.Warnf("scheduler shutdown: %v", err)
		}
	}
	if manager != nil {
		manager.Shutdown()
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// buildCache returns redis when an address is configured and falls back to
// the in-process cache otherwise.
func buildCache(ctx context.Context, cfg config.Config, logger *logrus.Logger) (cache.Cache, func()) {
	if cfg.Redis.Addr == "" {
		logger.Info("redis not configured, using in-memory cache")
		return cache.NewMemory(), func() {}
	}

	client := rediscache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		logger.Fatalf("connect redis %s: %v", cfg.Redis.Addr, err)
	}
	logger.Infof("using redis at %s", cfg.Redis.Addr)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warnf("close redis: %v", err)
		}
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*storage.S3Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
