package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/showfolio/showfolio-backend/config"
	"github.com/showfolio/showfolio-backend/internal/auth"
	"github.com/showfolio/showfolio-backend/internal/auth/repository"
	"github.com/showfolio/showfolio-backend/internal/bootstrap"
	"github.com/showfolio/showfolio-backend/internal/jobs"
	"github.com/showfolio/showfolio-backend/internal/projects"
	"github.com/showfolio/showfolio-backend/internal/session"
	"github.com/showfolio/showfolio-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	sqlDB, err := bootstrap.OpenSQLDB(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db (profiles): %v", err)
	}
	defer sqlDB.Close()

	redisClient, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	var provider session.Provider
	switch cfg.Auth.Provider {
	case "firebase":
		provider, err = session.NewFirebaseProvider(ctx, cfg.Auth.CredentialsPath)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
	default:
		provider = session.NewLocalProvider(pool, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}

	profiles := repository.NewProfileRepository(sqlDB)
	cache := auth.NewCache(redisClient)
	resolver := auth.NewResolver(profiles, cfg.Auth.AdminEmail, cfg.Auth.AdminName)
	manager := auth.NewManager(provider, resolver, profiles, cache, cfg.Auth.AdminEmail, cfg.Auth.AdminName)
	manager.Start(ctx)
	defer manager.Stop()

	feed := projects.NewFeed(redisClient)
	store := projects.NewStore(projects.NewRepo(pool), profiles, manager, feed)
	store.Start(ctx)
	defer store.Stop()

	favorites := projects.NewFavorites(projects.NewFavoritesRepo(pool), manager)

	storageClient, err := storage.NewClient(storage.Config{
		Endpoint:      cfg.Storage.Endpoint,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		Bucket:        cfg.Storage.Bucket,
		UseSSL:        cfg.Storage.UseSSL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	if exists, err := storageClient.BucketExists(ctx); err == nil && !exists {
		log.Printf("storage: bucket %q does not exist, uploads will fail until provisioned", cfg.Storage.Bucket)
	}

	scheduler := jobs.NewScheduler(store, cfg.Auth.RefreshEverySecs)
	scheduler.Start()
	defer scheduler.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "showfolio-backend",
		Version:     cfg.App.Version,
		Deps: &bootstrap.AppDeps{
			DB:        pool,
			Redis:     redisClient,
			Provider:  provider,
			Manager:   manager,
			Store:     store,
			Favorites: favorites,
			Storage:   storageClient,
		},
		SignInRatePerMin: cfg.Auth.SignInRatePerMin,
		SignInBurst:      cfg.Auth.SignInBurst,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
