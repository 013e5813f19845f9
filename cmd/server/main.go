package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/4shil/axium/internal/conf"
	"github.com/4shil/axium/internal/data"
	"github.com/4shil/axium/internal/file/biz"
	filedata "github.com/4shil/axium/internal/file/data"
	"github.com/4shil/axium/internal/file/queue"
	"github.com/4shil/axium/internal/file/service"
	"github.com/4shil/axium/internal/file/sweep"
	"github.com/4shil/axium/internal/pkg/logger"
	"github.com/4shil/axium/internal/ratelimit"
	"github.com/4shil/axium/internal/server"
)

var configFile = flag.String("config", "config.yaml", "config file path")

func main() {
	flag.Parse()

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully")

	d, cleanup, err := data.NewData(config, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Repositories and delegates
	fileRepo := filedata.NewFileRepo(d.DB)
	storage := filedata.NewMinIOStorage(d.MinIOClient, config.MinIO.Bucket)
	purgeQueue := filedata.NewRedisPurgeQueue(d.RedisClient)

	// Lifecycle engine
	fileUseCase := biz.NewFileUseCase(fileRepo, storage, purgeQueue, biz.Config{
		MaxFileSize:    config.Upload.MaxFileSize,
		ExpiryMinutes:  config.Upload.ExpiryMinutes,
		UploadURLTTL:   config.Upload.UploadURLTTL,
		DownloadURLTTL: config.Upload.DownloadURLTTL,
		PurgeGrace:     config.Sweep.GraceDelay,
	}, log.Logger)

	sweeper := sweep.NewSweeper(fileRepo, storage, log.Logger, config.Sweep.Batch, config.Sweep.Workers)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	// Periodic sweep reconciles metadata with backing storage.
	go sweeper.Run(runCtx, config.Sweep.Interval)

	// Deferred purge worker drains the grace-delay queue.
	purgeWorker := queue.NewWorker(purgeQueue, fileUseCase, log.Logger, 5*time.Second)
	if err := purgeWorker.Start(runCtx); err != nil {
		log.Fatal("failed to start purge worker", zap.Error(err))
	}
	defer purgeWorker.Stop()

	// Rate limiter windows are garbage-collected in the background.
	limiter := ratelimit.New(map[string]ratelimit.Rule{
		server.ActionUpload: {
			Window:      config.RateLimit.Upload.Window,
			MaxRequests: config.RateLimit.Upload.MaxRequests,
		},
		server.ActionDownload: {
			Window:      config.RateLimit.Download.Window,
			MaxRequests: config.RateLimit.Download.MaxRequests,
		},
	})
	go limiter.RunGC(time.Minute, runCtx.Done())

	fileService := service.NewFileService(fileUseCase, sweeper, log.Logger)
	httpServer := server.NewHTTPServer(config, log.Logger, fileService, limiter)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	cancelRun()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
