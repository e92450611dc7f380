// Package config aggregates service configuration from environment
// variables and an optional config file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RouteLimit is the per-route-group rate limit budget.
type RouteLimit struct {
	Max    int
	Window time.Duration
}

// Config holds application level configuration.
type Config struct {
	Server struct {
		Addr string
	}
	Auth struct {
		Domain        string // external origin challenges are bound to
		URI           string // URI field embedded in challenge messages
		ChainID       int64
		SessionSecret string
		SessionTTL    time.Duration
		ChallengeTTL  time.Duration
		CookieName    string
		CookieSecure  bool
	}
	Database struct {
		DSN string
	}
	Redis struct {
		URL string
	}
	RateLimit struct {
		Auth RouteLimit
		API  RouteLimit
	}
	CORS struct {
		Origins []string // "*" or an allow-list
	}
	LookupTimeout time.Duration
}

// Load reads configuration from environment variables and an optional
// config file in the working directory.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:9000")
	v.SetDefault("auth.domain", "localhost:9000")
	v.SetDefault("auth.uri", "http://localhost:9000")
	v.SetDefault("auth.chainid", 1)
	v.SetDefault("auth.sessionsecret", "")
	v.SetDefault("auth.sessionttl", "24h")
	v.SetDefault("auth.challengettl", "5m")
	v.SetDefault("auth.cookiename", "warden_session")
	v.SetDefault("auth.cookiesecure", false)
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("ratelimit.auth.max", 10)
	v.SetDefault("ratelimit.auth.window", "1m")
	v.SetDefault("ratelimit.api.max", 120)
	v.SetDefault("ratelimit.api.window", "1m")
	v.SetDefault("cors.origins", []string{"*"})
	v.SetDefault("lookuptimeout", "3s")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.SessionSecret == "" {
		return Config{}, fmt.Errorf("auth session secret is required")
	}

	return cfg, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
