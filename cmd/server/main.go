package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/hyfata/agora-auth/api/echo"
	"github.com/hyfata/agora-auth/cache"
	rediscache "github.com/hyfata/agora-auth/cache/redis"
	"github.com/hyfata/agora-auth/config"
	"github.com/hyfata/agora-auth/domain"
	"github.com/hyfata/agora-auth/internal/auth"
	"github.com/hyfata/agora-auth/internal/device"
	"github.com/hyfata/agora-auth/internal/metrics"
	"github.com/hyfata/agora-auth/internal/notify"
	"github.com/hyfata/agora-auth/middleware"
	"github.com/hyfata/agora-auth/mongodb"
	"github.com/hyfata/agora-auth/services"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogger(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db_name", cfg.MongoDBName).
		Str("log_level", cfg.LogLevel).
		Msg("Starting agora-auth server")

	ctx := context.Background()
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MongoDB connection")
	}
	db := mongodb.GetDB()

	// Repositories
	sessionRepo, err := mongodb.NewSessionRepositoryMongo(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize SessionRepository")
	}
	authCodeRepo, err := mongodb.NewAuthCodeRepositoryMongo(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AuthCodeRepository")
	}
	userRepo, err := mongodb.NewUserRepositoryMongo(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize UserRepository")
	}
	clientRepo := mongodb.NewClientRepositoryMongo(db)

	// Revocation registry
	var blacklist cache.BlacklistStore
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		blacklist = rediscache.NewBlacklist(redisClient, cfg.RedisPrefix)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis revocation registry")
	} else {
		blacklist = cache.NewMemoryBlacklist()
		log.Info().Msg("Using in-memory revocation registry")
	}

	// Services
	tokenService, err := services.NewTokenService(
		[]byte(cfg.JWTSecretKey), cfg.Issuer, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TokenService")
	}
	passwordHasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	sessionService := services.NewSessionService(
		sessionRepo, blacklist, cfg.MaxSessionsPerUser, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	oauthService := services.NewOAuthService(
		clientRepo, authCodeRepo, userRepo, tokenService, sessionService, passwordHasher, cfg.AuthCodeTTL())
	authService := services.NewAuthService(
		userRepo, tokenService, sessionService, passwordHasher, notify.LogSender{}, cfg.TwoFactorTTL())

	metrics.Register(prometheus.DefaultRegisterer)

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	authn := middleware.Authenticate(tokenService, blacklist)
	authAPI := echoapi.NewAuthAPI(oauthService, authService, sessionService, &device.Resolver{})
	authAPI.RegisterRoutes(e, authn)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		if err := mongodb.Ping(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "mongo unreachable")
		}
		return c.String(http.StatusOK, "ok")
	})

	// Periodic cleanup of expired sessions and codes. The TTL indexes do the
	// heavy lifting; this pass covers deployments without them.
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	go runCleanup(cleanupCtx, sessionRepo, authCodeRepo)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down server")

	stopCleanup()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := blacklist.Close(); err != nil {
		log.Error().Err(err).Msg("Revocation registry close error")
	}
	mongodb.CloseMongoDB(shutdownCtx)

	log.Info().Msg("Server gracefully stopped.")
}

func initLogger(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
}

func runCleanup(ctx context.Context, sessions domain.SessionRepository, codes domain.AuthCodeRepository) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if n, err := sessions.DeleteExpiredSessions(ctx, now); err != nil {
				log.Warn().Err(err).Msg("Expired session cleanup failed")
			} else if n > 0 {
				log.Info().Int64("deleted", n).Msg("Expired sessions cleaned up")
			}
			if err := codes.DeleteExpiredAuthCodes(ctx); err != nil {
				log.Warn().Err(err).Msg("Expired auth code cleanup failed")
			}
		}
	}
}
