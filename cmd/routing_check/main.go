package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"nestor/internal/config"
	"nestor/internal/profile"
)

const defaultScenarios = "config/routing_scenarios.json"

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	path := defaultScenarios
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	p, err := profile.Load(cfg.EmotionsPath, logger)
	if err != nil {
		log.Fatalf("load profile: %v", err)
	}
	scenarios, err := loadScenarios(path)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if runScenarios(p, scenarios, os.Stdout) != len(scenarios) {
		os.Exit(1)
	}
}
