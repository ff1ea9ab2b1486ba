package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"nestor/internal/bootstrap"
	"nestor/internal/config"
	apihttp "nestor/internal/http"
	"nestor/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel, cfg.LogEcho)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	avatar, err := bootstrap.NewAvatar(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("load avatar", zap.Error(err))
	}
	defer avatar.Close()

	redisClient := bootstrap.NewRedisClient(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	limiter := bootstrap.NewRequestLimiter(cfg, redisClient)
	jwtSvc := bootstrap.NewJWTService(cfg, redisClient)
	if !jwtSvc.Enabled() {
		logger.Warn("auth secret not configured, control endpoints are open")
	}

	avatarHandler := apihttp.NewAvatarHandler(logger, avatar.Service)
	servers := []*http.Server{{
		Addr:              net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort),
		Handler:           apihttp.NewRouter(logger, avatarHandler, jwtSvc, limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if cfg.WSPort > 0 {
		wsHandler := apihttp.NewWSHandler(logger, avatar.Service, limiter)
		servers = append(servers, &http.Server{
			Addr:              net.JoinHostPort(cfg.HTTPHost, strconv.Itoa(cfg.WSPort)),
			Handler:           apihttp.NewWSRouter(logger, wsHandler, jwtSvc),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("starting server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
}
