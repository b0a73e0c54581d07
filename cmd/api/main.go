package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nivaas/property-system/internal/api"
	"github.com/nivaas/property-system/internal/bootstrap"
	"github.com/nivaas/property-system/internal/cache"
	"github.com/nivaas/property-system/internal/core/ports"
	"github.com/nivaas/property-system/internal/core/service"
	"github.com/nivaas/property-system/internal/infrastructure/config"
	mongodb "github.com/nivaas/property-system/internal/infrastructure/db/mongo"
	redisdb "github.com/nivaas/property-system/internal/infrastructure/db/redis"
	"github.com/nivaas/property-system/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx := context.Background()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	// --- Permission cache ---
	var (
		permCache   ports.PermissionCache
		redisClient *goredis.Client
	)
	switch cfg.CacheBackend {
	case "redis":
		redisClient, err = redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer func() { _ = redisClient.Close() }()
		permCache = redisdb.NewPermissionCache(redisClient, cfg.CacheTTL)
	default:
		permCache = cache.New(cfg.CacheTTL)
	}

	// --- Repositories ---
	roleRepo := mongodb.NewRoleRepository(db)
	userRepo := mongodb.NewUserRepository(db, roleRepo)
	roleLimitRepo := mongodb.NewRoleLimitRepository(db)
	permRepo := mongodb.NewPermissionRepository(db)
	rolePermRepo := mongodb.NewRolePermissionRepository(db)
	staffPermRepo := mongodb.NewStaffPermissionRepository(db)
	tokenRepo := mongodb.NewRegistrationTokenRepository(db)
	sessionRepo := mongodb.NewLoginAsSessionRepository(db)

	for name, idx := range map[string]interface {
		EnsureIndexes(context.Context) error
	}{
		"users":             userRepo,
		"roles":             roleRepo,
		"role_limits":       roleLimitRepo,
		"permissions":       permRepo,
		"role_permissions":  rolePermRepo,
		"staff_permissions": staffPermRepo,
		"tokens":            tokenRepo,
		"sessions":          sessionRepo,
	} {
		if err := idx.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("index creation failed")
		}
	}

	// --- Bootstrap seed ---
	seeder := bootstrap.NewSeeder(userRepo, roleRepo, roleLimitRepo, permRepo, rolePermRepo, log)
	if err := seeder.Run(ctx, bootstrap.AdminAccount{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		log.Fatal().Err(err).Msg("bootstrap seeding failed")
	}

	// --- Services ---
	permService := service.NewPermissionService(userRepo, permRepo, rolePermRepo, staffPermRepo, permCache, log)
	hierarchyService := service.NewHierarchyService(userRepo, log)
	tokenService := service.NewTokenService(userRepo, roleRepo, tokenRepo, cfg.ClientURL, log)
	authService := service.NewAuthService(
		userRepo, roleRepo, roleLimitRepo, tokenRepo, sessionRepo,
		tokenService, permService, hierarchyService,
		service.AuthConfig{
			JWTSecret:          cfg.JWTSecret,
			JWTRefreshSecret:   cfg.JWTRefreshSecret,
			PublicRegistration: cfg.PublicRegistration,
			DefaultRole:        cfg.DefaultRole,
		},
		log,
	)
	decider := service.NewAccessDecider(permService)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		JWTSecret:   cfg.JWTSecret,
		Users:       userRepo,
		AuthService: authService,
		Permissions: permService,
		Tokens:      tokenService,
		Hierarchy:   hierarchyService,
		Cache:       permCache,
		Decider:     decider,
		Mongo:       db,
		Redis:       redisClient,
		Log:         log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting property-system api")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
