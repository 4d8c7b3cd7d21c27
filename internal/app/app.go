package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/justaplayground/devnet/internal/cache"
	"github.com/justaplayground/devnet/internal/config"
	"github.com/justaplayground/devnet/internal/db"
	"github.com/justaplayground/devnet/internal/service"
	"github.com/justaplayground/devnet/internal/transport/http"
)

type Application struct {
	Config   *config.Config
	DB       *db.Database
	Cache    *cache.RedisClient
	Services *service.Services
	Router   http.Router
}

func Initialize(cfg *config.Config) (*Application, error) {
	bootstrap, err := config.LoadBootstrap(cfg.BootstrapFile)
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	if redisClient == nil {
		log.Println("REDIS_ADDR not set, post cache disabled")
	}

	svc := service.NewServices(database, redisClient, bootstrap, cfg.FeedPageSize)
	granted, err := svc.Admin.ApplyBootstrap(ctx, bootstrap)
	if err != nil {
		redisClient.Close()
		database.Close()
		return nil, fmt.Errorf("apply role bootstrap: %w", err)
	}
	if granted > 0 {
		log.Printf("role bootstrap granted %d role(s)", granted)
	}

	return &Application{
		Config:   cfg,
		DB:       database,
		Cache:    redisClient,
		Services: svc,
		Router:   http.NewRouter(cfg, svc),
	}, nil
}

func (a *Application) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}
	if err := a.Cache.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}
}
