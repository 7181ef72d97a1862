package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"propertychat/internal/adapter/api"
	"propertychat/internal/adapter/api/handler"
	apimiddleware "propertychat/internal/adapter/api/middleware"
	"propertychat/internal/adapter/api/router"
	"propertychat/internal/adapter/repository"
	domainrepo "propertychat/internal/domain/repository"
	"propertychat/internal/domain/service"
	"propertychat/internal/infrastructure/cache"
	"propertychat/internal/infrastructure/firebase"
	"propertychat/internal/infrastructure/jwtauth"
	"propertychat/internal/infrastructure/ratelimit"
	"propertychat/internal/infrastructure/websocket"
	"propertychat/internal/usecase"
	"propertychat/pkg/config"
	"propertychat/pkg/logger"
)

type stores struct {
	conversations domainrepo.ConversationRepository
	messages      domainrepo.MessageRepository
	properties    domainrepo.PropertyRepository
	users         domainrepo.UserRepository
	ready         handler.Checker
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Init(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var firebaseOpt option.ClientOption
	if cfg.StoreDriver == config.StoreFirestore || cfg.AuthProvider == config.AuthFirebase {
		firebaseOpt, err = firebase.CredentialsOption(cfg.FirebaseServiceAccountJSON, cfg.FirebaseServiceAccountPath)
		if err != nil {
			fatal("Failed to load Firebase credentials: %v", err)
		}
	}

	st, err := openStores(ctx, cfg, firebaseOpt)
	if err != nil {
		fatal("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer st.close()

	verifier, closeVerifier, err := newVerifier(ctx, cfg, firebaseOpt)
	if err != nil {
		fatal("Failed to initialize %s auth: %v", cfg.AuthProvider, err)
	}
	defer closeVerifier()

	checks := map[string]handler.Checker{"store": st.ready}

	var profileCache usecase.ProfileCache = cache.NoopProfileCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		redisCache := cache.NewRedisProfileCache(redisClient, cfg.ProfileCacheTTL)
		profileCache = redisCache
		checks["cache"] = redisCache.Ping
		logger.Info("Profile cache enabled at %s", cfg.RedisAddr)
	}

	rateLimiter := ratelimit.NewRateLimiter(map[string]ratelimit.Limit{
		ratelimit.ActionSendMessage:        ratelimit.PerWindow(cfg.SendMessageRatePerMinute, time.Minute),
		ratelimit.ActionCreateConversation: ratelimit.PerWindow(cfg.CreateConversationRatePerHour, time.Hour),
	})
	if err := rateLimiter.StartCleanupRoutine(ctx); err != nil {
		fatal("Failed to schedule rate limiter cleanup: %v", err)
	}

	ipLimiter := ratelimit.NewRateLimiter(map[string]ratelimit.Limit{
		ratelimit.ActionRequest: ratelimit.PerWindow(cfg.RequestRatePerMinute, time.Minute),
	})
	if err := ipLimiter.StartCleanupRoutine(ctx); err != nil {
		fatal("Failed to schedule IP limiter cleanup: %v", err)
	}

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	conversationUseCase := usecase.NewConversationUseCase(
		st.conversations,
		st.messages,
		st.properties,
		st.users,
		profileCache,
		wsManager,
		rateLimiter,
	)
	messageUseCase := usecase.NewMessageUseCase(
		st.conversations,
		st.messages,
		st.users,
		profileCache,
		wsManager,
		rateLimiter,
		cfg.MessageMaxLength,
	)

	e := echo.New()
	e.HideBanner = true
	e.Debug = !cfg.IsProduction()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	} else {
		e.Use(middleware.CORS())
	}
	e.Use(apimiddleware.Metrics())
	e.Use(apimiddleware.IPRateLimit(ipLimiter))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	adminMiddleware := apimiddleware.NewAdminMiddleware(st.users)

	router.Setup(e, router.Handlers{
		Conversation: handler.NewConversationHandler(conversationUseCase, messageUseCase),
		Admin:        handler.NewAdminHandler(conversationUseCase),
		Health:       handler.NewHealthHandler(checks),
		WebSocket:    handler.NewWebSocketHandler(wsManager, cfg.AllowedOrigins),
	}, authMiddleware, adminMiddleware)

	go func() {
		logger.Info("Starting server on port %s (store=%s, auth=%s)", cfg.ServerPort, cfg.StoreDriver, cfg.AuthProvider)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

func openStores(ctx context.Context, cfg *config.Config, firebaseOpt option.ClientOption) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreFirestore:
		var opts []option.ClientOption
		if firebaseOpt != nil {
			opts = append(opts, firebaseOpt)
		}
		client, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			return nil, err
		}
		return &stores{
			conversations: repository.NewFirestoreConversationRepository(client),
			messages:      repository.NewFirestoreMessageRepository(client),
			properties:    repository.NewFirestorePropertyRepository(client),
			users:         repository.NewFirestoreUserRepository(client),
			ready: func(ctx context.Context) error {
				_, err := client.Collection("conversations").Limit(1).Documents(ctx).Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
			close: func() { client.Close() },
		}, nil

	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		if err := repository.MigratePostgres(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &stores{
			conversations: repository.NewPostgresConversationRepository(db),
			messages:      repository.NewPostgresMessageRepository(db),
			properties:    repository.NewPostgresPropertyRepository(db),
			users:         repository.NewPostgresUserRepository(db),
			ready:         db.PingContext,
			close:         func() { db.Close() },
		}, nil

	default:
		if cfg.IsProduction() {
			logger.Warn("Using the in-memory store in production; data is lost on restart")
		}
		store := repository.NewMemoryStore()
		if cfg.SeedFile != "" {
			if err := store.LoadSeed(cfg.SeedFile); err != nil {
				return nil, err
			}
			logger.Info("Loaded seed data from %s", cfg.SeedFile)
		}
		return &stores{
			conversations: store.Conversations(),
			messages:      store.Messages(),
			properties:    store.Properties(),
			users:         store.Users(),
			ready:         func(context.Context) error { return nil },
			close:         func() {},
		}, nil
	}
}

func newVerifier(ctx context.Context, cfg *config.Config, firebaseOpt option.ClientOption) (service.IdentityVerifier, func(), error) {
	if cfg.AuthProvider == config.AuthJWT {
		v, err := jwtauth.NewVerifier(jwtauth.Options{
			Secret:  cfg.JWTSecret,
			Issuer:  cfg.JWTIssuer,
			JWKSURL: cfg.JWKSURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return v, v.Close, nil
	}

	app, err := firebase.NewApp(ctx, cfg.FirebaseProject, firebaseOpt)
	if err != nil {
		return nil, nil, err
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, err
	}
	return firebase.NewFirebaseAuthClient(authClient), func() {}, nil
}

func fatal(format string, v ...interface{}) {
	logger.Error(format, v...)
	logger.Sync()
	os.Exit(1)
}
