package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"nestor/internal/bootstrap"
	"nestor/internal/config"
	"nestor/internal/input"
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

	src := input.Open(cfg.InputMode, cfg.STTCommand, os.Stdin, os.Stdout, logger)
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	fmt.Println("Nestor Master prêt. Tape 'quit' pour sortir.")
	for {
		text, err := src.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				logger.Error("read input", zap.Error(err))
			}
			return
		}
		if !avatar.Service.HandleText(ctx, text) {
			return
		}
	}
}
