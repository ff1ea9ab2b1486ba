package main

import (
	"context"
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
	"nestor/internal/playback"
	"nestor/internal/profile"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if len(os.Args) > 1 {
		cfg.EmotionsPath = os.Args[1]
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel, cfg.LogEcho)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	p, err := profile.Load(cfg.EmotionsPath, logger)
	if err != nil {
		logger.Fatal("load profile", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	player := playback.NewPlayer(p, bootstrap.NewPlayerBackend(cfg, logger), logger)
	player.Start()
	defer player.Stop()

	src := input.NewConsoleSource(os.Stdin, os.Stdout)
	defer src.Close()
	runConsole(ctx, src, player, os.Stdout)
}
