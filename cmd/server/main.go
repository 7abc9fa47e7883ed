package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/taskmaster/internal/config"
	"github.com/yukikurage/taskmaster/internal/database"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/mailer"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/realtime"
	"github.com/yukikurage/taskmaster/internal/repository"
	"github.com/yukikurage/taskmaster/internal/server"
	"github.com/yukikurage/taskmaster/internal/services"
	"github.com/yukikurage/taskmaster/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logging.New(cfg.IsProduction())

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return err
	}

	var redisClient *redis.Client
	if needsRedis(cfg) {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}

	broker, err := newBroker(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}
	closeBroker := sync.OnceValue(broker.Close)
	defer closeBroker()

	objects, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.PublicObjectBaseURL(),
	})
	if err != nil {
		return err
	}

	mail, err := newMailer(cfg, log)
	if err != nil {
		return err
	}

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	authService := services.NewAuthService(
		repository.NewIdentityRepository(db),
		services.NewConfirmationTokens(cfg.ConfirmationSecret, cfg.ConfirmationTTL),
		mail,
		services.AuthConfig{
			BaseURL:                  cfg.BackendURL,
			RequireEmailConfirmation: cfg.RequireEmailConfirmation,
		},
		log,
	)
	profileService := services.NewProfileService(repository.NewProfileRepository(db), objects, log)
	authService.OnAuthStateChange(profileService.HandleAuthEvent)
	taskService := services.NewTaskService(repository.NewTaskRepository(db), broker, aiService, log)

	router := server.NewRouter(server.Dependencies{
		Log:                 log,
		SessionStore:        store,
		Broker:              broker,
		AuthService:         authService,
		TaskService:         taskService,
		ProfileService:      profileService,
		APIKey:              cfg.BackendAPIKey,
		SignupRedirectDelay: cfg.SignupRedirectDelay,
		RateLimiter:         middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info(ctx, "components ready", "realtime", cfg.RealtimeDriver, "sessions", cfg.SessionStore, "mail", cfg.MailProvider)
	return serve(ctx, srv, closeBroker, log)
}

// serve runs srv until ctx is done. Open event streams only end when the
// broker closes, so closeBroker runs before the server drains.
func serve(ctx context.Context, srv *http.Server, closeBroker func() error, log logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := closeBroker(); err != nil {
		log.Warn(shutdownCtx, "failed to close realtime broker", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

// needsRedis reports whether any configured component shares state through
// redis. NATS carries changes between instances but sequence numbers still
// come from a shared redis counter.
func needsRedis(cfg *config.Config) bool {
	return cfg.SessionStore == "redis" || cfg.RealtimeDriver == "redis" || cfg.RealtimeDriver == "nats"
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "redis":
		s, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			cfg.RedisHost+":"+cfg.RedisPort,
			"", // username (empty for default user)
			cfg.RedisPassword,
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		store = s
	case "cookie", "":
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func newBroker(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log logging.Logger) (realtime.Broker, error) {
	switch cfg.RealtimeDriver {
	case "memory", "":
		return realtime.NewHub(), nil
	case "redis":
		return realtime.NewRedisBroker(ctx, redisClient, log)
	case "nats":
		if redisClient == nil {
			return nil, errors.New("the nats realtime driver needs redis for shared change sequence numbers")
		}
		conn, err := nats.Connect(cfg.NATSURL, nats.Name("taskmaster"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		return realtime.NewNATSBroker(conn, realtime.NewRedisSequencer(redisClient), log)
	default:
		return nil, fmt.Errorf("unsupported realtime driver %q", cfg.RealtimeDriver)
	}
}

func newMailer(cfg *config.Config, log logging.Logger) (mailer.Mailer, error) {
	switch cfg.MailProvider {
	case "log", "":
		return mailer.NewLogMailer(log), nil
	case "sendgrid":
		return mailer.NewSendGridMailer(cfg.MailAPIKey, cfg.MailSender)
	case "resend":
		return mailer.NewResendMailer(cfg.MailAPIKey, cfg.MailSender), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", cfg.MailProvider)
	}
}
