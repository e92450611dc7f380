package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/wizardkeep/warden/adapters/events"
	"github.com/wizardkeep/warden/adapters/profiles"
	"github.com/wizardkeep/warden/adapters/store"
	"github.com/wizardkeep/warden/adapters/tokenizer"
	"github.com/wizardkeep/warden/internal/config"
	"github.com/wizardkeep/warden/ports"
	"github.com/wizardkeep/warden/service"
	apphttp "github.com/wizardkeep/warden/transport/http"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Keyed stores: Redis when configured, in-memory for single instance
	// development runs.
	var (
		keyedStore interface {
			ports.NonceStore
			ports.RevocationStore
			ports.RateLimiter
		}
		eventPub ports.EventPublisher = events.NopPublisher{}
	)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("parse redis url: %v", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer redisClient.Close()

		keyedStore = store.NewRedisStore(redisClient)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatalf("create event publisher: %v", err)
		}
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		log.Warn("no redis configured, using in-memory stores (single instance only)")
		keyedStore = store.NewMemoryStore()
	}

	var profileStore ports.ProfileStore
	if cfg.Database.DSN != "" {
		pg, err := profiles.Open(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		defer pg.Close()
		if err := pg.Init(ctx); err != nil {
			log.Fatalf("init postgres: %v", err)
		}
		profileStore = pg
	} else {
		log.Warn("no database configured, using in-memory profile store")
		profileStore = profiles.NewMemoryStore()
	}

	jwtTokenizer := tokenizer.NewJWTTokenizer([]byte(cfg.Auth.SessionSecret))

	authService := service.NewAuthService(
		jwtTokenizer, keyedStore, keyedStore, profileStore, eventPub, log,
		service.AuthConfig{
			Domain:        cfg.Auth.Domain,
			URI:           cfg.Auth.URI,
			ChainID:       cfg.Auth.ChainID,
			ChallengeTTL:  cfg.Auth.ChallengeTTL,
			SessionTTL:    cfg.Auth.SessionTTL,
			LookupTimeout: cfg.LookupTimeout,
		},
	)
	profileService := service.NewProfileService(profileStore, log, cfg.LookupTimeout)

	router := apphttp.SetupRouter(authService, profileService, keyedStore, log, apphttp.RouterConfig{
		CORSOrigins: cfg.CORS.Origins,
		AuthLimit:   apphttp.RouteLimit{Max: cfg.RateLimit.Auth.Max, Window: cfg.RateLimit.Auth.Window},
		APILimit:    apphttp.RouteLimit{Max: cfg.RateLimit.API.Max, Window: cfg.RateLimit.API.Window},
		Cookie:      apphttp.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure},
		SessionTTL:  cfg.Auth.SessionTTL,
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
