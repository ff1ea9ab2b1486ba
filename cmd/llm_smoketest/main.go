package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"nestor/internal/bootstrap"
	"nestor/internal/config"
)

const expected = "NESTOR-OK"

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client := bootstrap.NewLLMClient(cfg, "", logger)
	fmt.Printf("Modèle: %s @ %s\n", client.Model(), cfg.LLMBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLMTimeout())
	defer cancel()

	out, err := client.Generate(ctx, "Répond exactement: "+expected)
	if err != nil {
		fmt.Printf("❌ FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Réponse: %s\n", out)
	if !strings.Contains(out, expected) {
		fmt.Println("❌ FAIL: réponse inattendue")
		os.Exit(1)
	}
	fmt.Println("✅ PASS")
}
