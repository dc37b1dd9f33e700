package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the contest API.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	JudgeURL          string
	JudgeAuthToken    string
	JudgePollInterval time.Duration
	JudgePollAttempts int
	JudgeHTTPTimeout  time.Duration

	ContestDefaultDuration time.Duration
	IntegrityGracePeriod   time.Duration
	IntegrityPolicy        string
	AutosaveInterval       time.Duration
	ProgressCacheTTL       time.Duration
	QuestionCacheTTL       time.Duration

	SeedEnabled bool
	SeedToken   string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from ARENA_ environment variables and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "Arena Contest API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("judge.poll_interval", "1s")
	v.SetDefault("judge.poll_attempts", 10)
	v.SetDefault("judge.http_timeout", "10s")
	v.SetDefault("contest.default_duration", "60m")
	v.SetDefault("integrity.grace_period", "30s")
	v.SetDefault("integrity.policy", "strict")
	v.SetDefault("practice.autosave_interval", "30s")
	v.SetDefault("progress.cache_ttl", "10m")
	v.SetDefault("contest.cache_ttl", "5m")
	v.SetDefault("seed.enabled", false)

	durations := map[string]*time.Duration{}
	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		JudgeURL:          v.GetString("judge.url"),
		JudgeAuthToken:    v.GetString("judge.auth_token"),
		JudgePollAttempts: v.GetInt("judge.poll_attempts"),
		IntegrityPolicy:   strings.ToLower(strings.TrimSpace(v.GetString("integrity.policy"))),
		SeedEnabled:       v.GetBool("seed.enabled"),
		SeedToken:         v.GetString("seed.token"),
	}
	durations["judge.poll_interval"] = &cfg.JudgePollInterval
	durations["judge.http_timeout"] = &cfg.JudgeHTTPTimeout
	durations["contest.default_duration"] = &cfg.ContestDefaultDuration
	durations["integrity.grace_period"] = &cfg.IntegrityGracePeriod
	durations["practice.autosave_interval"] = &cfg.AutosaveInterval
	durations["progress.cache_ttl"] = &cfg.ProgressCacheTTL
	durations["contest.cache_ttl"] = &cfg.QuestionCacheTTL

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", key)
		}
		*target = parsed
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.JudgeURL == "" {
		return Config{}, fmt.Errorf("judge url must be provided")
	}
	if cfg.JudgePollAttempts <= 0 {
		cfg.JudgePollAttempts = 10
	}
	if cfg.IntegrityPolicy != "strict" && cfg.IntegrityPolicy != "grace" {
		return Config{}, fmt.Errorf("integrity policy must be strict or grace, got %q", cfg.IntegrityPolicy)
	}

	return cfg, nil
}
