package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skydrive/internal/config"
	"skydrive/internal/handlers"
	"skydrive/internal/middleware"
	"skydrive/internal/pkg"
	"skydrive/internal/repository"
	"skydrive/internal/services"
	"skydrive/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := pkg.NewLogger(pkg.ParseLogLevel(cfg.LogLevel))
	gin.SetMode(cfg.GinMode)

	mongodb, err := repository.Connect(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Fatal("failed to connect to mongodb", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer mongodb.Disconnect()

	repos := repository.NewRepositories(mongodb)

	storage, err := services.NewStorageService(&services.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		BaseURL:   cfg.Storage.CDNDomain,
		LocalPath: cfg.Storage.LocalPath,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage", map[string]interface{}{
			"error": err.Error(),
		})
	}

	email := services.NewEmailService(services.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)

	tree := services.NewTreeService(repos.Entry, repos.Share, repos.Star, storage, logger)
	lifecycle := services.NewLifecycleService(repos.Entry, repos.Share, repos.Star, storage, logger)
	archive := services.NewArchiveService(repos.Entry, repos.Share, storage, logger)
	sharing := services.NewSharingService(repos.Entry, repos.Share, repos.Star, repos.User, email, logger)
	notes := services.NewNoteService(repos.Entry, tree, logger)
	view := services.NewViewService(repos.Entry, repos.Star, repos.User, logger)

	cleanup := worker.NewCleanupWorker(repos.Entry, lifecycle, logger, cfg.TrashRetention, cfg.CleanupSchedule)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("failed to start cleanup worker", map[string]interface{}{
			"error": err.Error(),
		})
	}

	identity := middleware.NewIdentityMiddleware(repos.User, logger)
	router := handlers.NewRouter(&handlers.Handlers{
		Files:    handlers.NewFileHandler(tree, lifecycle, view),
		Download: handlers.NewDownloadHandler(archive, logger),
		Sharing:  handlers.NewSharingHandler(sharing),
		Notes:    handlers.NewNoteHandler(notes, logger),
	}, identity, logger)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", map[string]interface{}{
			"addr": cfg.ListenAddr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down", nil)
	cleanup.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
