package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nestor/internal/bootstrap"
	"nestor/internal/config"
)

var (
	subject string
	ttl     time.Duration
	revoke  string
)

var rootCmd = &cobra.Command{
	Use:   "issue_token",
	Short: "Émet ou révoque un jeton pour l'API de contrôle",
	Long: `Émet un jeton signé avec AUTH_JWT_SECRET pour les routes de contrôle
HTTP et le WebSocket. --revoke invalide un jeton existant dans Redis.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&subject, "subject", "operator", "Sujet du jeton")
	rootCmd.Flags().DurationVar(&ttl, "ttl", 0, "Durée de validité (défaut: AUTH_TOKEN_TTL_MINUTES)")
	rootCmd.Flags().StringVar(&revoke, "revoke", "", "Jeton à révoquer")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if ttl > 0 {
		cfg.AuthTokenTTLMinutes = int(ttl.Minutes())
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	redisClient := bootstrap.NewRedisClient(context.Background(), cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	jwtSvc := bootstrap.NewJWTService(cfg, redisClient)
	if !jwtSvc.Enabled() {
		return errors.New("AUTH_JWT_SECRET non configuré")
	}

	if revoke != "" {
		if redisClient == nil {
			return errors.New("la révocation nécessite REDIS_ADDR")
		}
		if err := jwtSvc.Revoke(revoke); err != nil {
			return fmt.Errorf("revoke: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Jeton révoqué.")
		return nil
	}

	token, expiresAt, err := jwtSvc.Issue(subject)
	if err != nil {
		return fmt.Errorf("issue: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expire le %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
