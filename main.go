package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	watcher "DMChat/config"
	"DMChat/global"
	boot "DMChat/global/config"
	"DMChat/logger"
	msgservice "DMChat/module/message/service"
	"DMChat/module/upload"
	"DMChat/service/api"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := global.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := boot.ConfigLogger(cfg); err != nil {
		logger.Warn("bad log level, keeping default", zap.String("level", cfg.Log.Level), zap.Error(err))
	}
	defer logger.Sync()

	if err := boot.ConfigIds(cfg); err != nil {
		logger.Fatalf("id generator: %v", err)
	}
	boot.ConfigErrors()
	gin.SetMode(gin.ReleaseMode)

	ctx := context.Background()

	stores, err := boot.ConfigStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("stores: %v", err)
	}

	deps := api.Deps{
		Config:     cfg,
		Users:      stores.Users,
		Messages:   stores.Messages,
		Middleware: boot.ConfigMiddleware(cfg),
	}

	rds, err := boot.ConfigRedis(ctx, cfg)
	if err != nil {
		// presence mirror is best effort
		logger.Warn("redis unavailable, presence mirror disabled", zap.Error(err))
	} else if rds != nil {
		deps.Presence = rds.Mirror
	}

	var sinks msgservice.Publishers
	nc, err := boot.ConfigNats(cfg)
	if err != nil {
		logger.Warn("nats unavailable, nats events disabled", zap.Error(err))
	} else if nc != nil {
		sinks = append(sinks, nc.Producer)
	}
	kp, err := boot.ConfigKafka(cfg)
	if err != nil {
		logger.Warn("kafka unavailable, kafka events disabled", zap.Error(err))
	} else if kp != nil {
		sinks = append(sinks, kp)
		defer kp.Close()
	}
	if len(sinks) > 0 {
		deps.Events = sinks
	}

	up, err := upload.NewLocalUploader(cfg.Upload.Dir, cfg.Upload.PublicURL, cfg.Upload.MaxBytes)
	if err != nil {
		logger.Fatalf("upload dir: %v", err)
	}
	deps.Uploader = up

	srv := api.New(deps)

	if path := global.ConfigFile(); path != "" {
		w, err := watcher.StartWatcher(path, cfg, func(next *global.AppConfig) {
			if err := boot.ConfigLogger(next); err != nil {
				logger.Warn("bad log level on reload", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("config watch disabled", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	httpSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           srv.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := srv.Gateway.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown", zap.Error(err))
	}
	if err := nc.Close(); err != nil {
		logger.Warn("nats close", zap.Error(err))
	}
	if err := rds.Close(); err != nil {
		logger.Warn("redis close", zap.Error(err))
	}
	if err := stores.Close(shutdownCtx); err != nil {
		logger.Warn("mongo disconnect", zap.Error(err))
	}
}
