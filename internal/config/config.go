package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"athena-feed/internal/mixer"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
		Mode string
	}
	Log struct {
		Level  string
		Format string
	}
	Database struct {
		Driver string
		Path   string
		DSN    string
	}
	Auth struct {
		JWTSecret        string
		RegisterPassword string
		AccessTokenTTL   time.Duration
		RefreshTokenTTL  time.Duration
		CookieSecure     bool
	}
	Storage struct {
		Bucket     string
		KeyPrefix  string
		Region     string
		Endpoint   string
		StagingDir string
		URLExpiry  time.Duration
	}
	AWS struct {
		Profile string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Feed      Feed
	Mixer     mixer.Config
	Scheduler struct {
		Enabled         bool
		Interval        time.Duration
		BatchTimeout    time.Duration
		TrendingWindows []int
		TrendingLimits  []int
	}
	Media struct {
		MaxConcurrent  int
		MaxUploadBytes int64
	}
	RateLimit struct {
		Requests int
		Window   time.Duration
	}
}

// Feed tunes candidate generation and caching.
type Feed struct {
	MaxPostsPerCreator int
	DecayHalfLifeHours float64
	TrendingTTL        time.Duration
	CandidateLimit     int
}

// Load reads configuration from environment variables and optional config files
// in the working directory.
func Load() (Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit directory for .env and config files.
func LoadFrom(dir string) (Config, error) {
	// existing environment wins over .env
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	v.SetEnvPrefix("ATHENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/athena.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.registerpassword", "")
	v.SetDefault("auth.accesstokenttl", 15*time.Minute)
	v.SetDefault("auth.refreshtokenttl", 7*24*time.Hour)
	v.SetDefault("auth.cookiesecure", false)

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "athena-media")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.stagingdir", "data/uploads")
	v.SetDefault("storage.urlexpiry", time.Hour)
	v.SetDefault("aws.profile", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("feed.maxpostspercreator", 3)
	v.SetDefault("feed.decayhalflifehours", 24.0)
	v.SetDefault("feed.trendingttl", 5*time.Minute)
	v.SetDefault("feed.candidatelimit", 200)

	m := mixer.DefaultConfig()
	v.SetDefault("mixer.organicratio", m.OrganicRatio)
	v.SetDefault("mixer.discoveryratio", m.DiscoveryRatio)
	v.SetDefault("mixer.sponsoredratio", m.SponsoredRatio)
	v.SetDefault("mixer.opportunityratio", m.OpportunityRatio)
	v.SetDefault("mixer.maxconsecutivesponsored", m.MaxConsecutiveSponsored)
	v.SetDefault("mixer.minpostsbetweensponsored", m.MinPostsBetweenSponsored)
	v.SetDefault("mixer.maxsponsoredpersession", m.MaxSponsoredPerSession)
	v.SetDefault("mixer.sponsoredstartposition", m.SponsoredStartPosition)
	v.SetDefault("mixer.opportunityinsertevery", m.OpportunityInsertEvery)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", 2*time.Minute)
	v.SetDefault("scheduler.batchtimeout", 30*time.Second)
	v.SetDefault("scheduler.trendingwindows", []int{24, 168})
	v.SetDefault("scheduler.trendinglimits", []int{10, 100})

	v.SetDefault("media.maxconcurrent", 3)
	v.SetDefault("media.maxuploadbytes", int64(200<<20))

	v.SetDefault("ratelimit.requests", 20)
	v.SetDefault("ratelimit.window", time.Minute)
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth jwt secret is required")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite":
	case "postgres", "pgx":
		if c.Database.DSN == "" {
			return errors.New("database dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if err := c.Mixer.Validate(); err != nil {
		return err
	}
	return nil
}
