package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rubyhat/cloudsquares-api/internal/config"
	"github.com/rubyhat/cloudsquares-api/internal/httpapi"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
	"github.com/rubyhat/cloudsquares-api/internal/service"
	"github.com/rubyhat/cloudsquares-api/internal/store"
	"github.com/rubyhat/cloudsquares-api/pkg/database"
	"github.com/rubyhat/cloudsquares-api/pkg/logger"
	redispkg "github.com/rubyhat/cloudsquares-api/pkg/redis"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "cloudsquares-api")
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

	kv := store.NewRedisKV(redisClient)
	repos := repository.New(db)

	tokens := service.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	limits := service.NewLimitChecker(repos)

	identitySvc := service.NewIdentityService(repos.Identity, log)
	contactSvc := service.NewContactService(repos.Contacts, log)
	customerSvc := service.NewCustomerService(repos.Customers, log)
	ownerSvc := service.NewPropertyOwnerService(identitySvc, repos.Owners, repos.Properties, limits, log)
	buyRequestSvc := service.NewBuyRequestService(identitySvc, repos.BuyRequests, limits, log)
	propertySvc := service.NewPropertyService(repos.Properties, limits, redisClient, cfg.Photo.Stream, log)
	authSvc := service.NewAuthService(repos, tokens, kv, log)

	ownerHandler := httpapi.NewOwnerHandler(ownerSvc)
	router := httpapi.NewRouter(log)
	router.RegisterRoutes(httpapi.Handlers{
		Auth:        httpapi.NewAuthHandler(authSvc),
		Contacts:    httpapi.NewContactHandler(identitySvc, contactSvc),
		Customers:   httpapi.NewCustomerHandler(identitySvc, customerSvc),
		Properties:  httpapi.NewPropertyHandler(propertySvc, ownerHandler),
		Owners:      ownerHandler,
		BuyRequests: httpapi.NewBuyRequestHandler(buyRequestSvc, repos.Agencies),
	}, httpapi.NewAuthMiddleware(tokens))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Shutdown signal received")
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}
