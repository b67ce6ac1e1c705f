package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rubyhat/cloudsquares-api/internal/config"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
	"github.com/rubyhat/cloudsquares-api/internal/service"
	"github.com/rubyhat/cloudsquares-api/pkg/database"
	"github.com/rubyhat/cloudsquares-api/pkg/logger"
	redispkg "github.com/rubyhat/cloudsquares-api/pkg/redis"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "cloudsquares-photo-worker")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redispkg.NewRedisClient(&cfg.Redis)
	if err := redispkg.Ping(context.Background(), redisClient); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	repos := repository.New(db)
	limits := service.NewLimitChecker(repos)

	worker := service.NewPhotoWorker(
		redisClient,
		repos.Properties,
		limits,
		cfg.Photo.Stream,
		cfg.Photo.ConsumerGroup,
		cfg.Photo.Consumer,
		cfg.Photo.DownloadTimeout,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("Shutdown signal received")
		cancel()
	}()

	if err := worker.Run(ctx); err != nil {
		log.Fatal("Photo worker failed", zap.Error(err))
	}
}
