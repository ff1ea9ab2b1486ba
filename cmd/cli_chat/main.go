package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nestor/internal/bootstrap"
	"nestor/internal/config"
	"nestor/internal/db"
	"nestor/internal/domain"
	"nestor/internal/llm"
	"nestor/internal/logging"
	"nestor/internal/repository"
	"nestor/internal/service"
)

var (
	corpusPath string
	sessionID  string
	rating     string
	compact    bool
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "cli_chat",
	Short: "Nestor raconte des blagues en console",
	Long: `Session interactive de blagues avec Nestor.

ENTER tire une blague du corpus, un texte libre sert de thème.
Commandes: :compact, :help, :q`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&corpusPath, "corpus", "", "Corpus de blagues .json ou .jsonl (défaut: CORPUS_PATH)")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "Identifiant de session (défaut: NESTOR_SESSION_ID ou cli)")
	rootCmd.Flags().StringVar(&rating, "rating", "", "Classification des blagues (défaut: JOKE_RATING)")
	rootCmd.Flags().BoolVar(&compact, "compact", false, "Démarrer en mode compact (2 phrases max)")
	rootCmd.Flags().BoolVar(&offline, "offline", false, "Ne pas appeler le modèle")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg)

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel, false)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	items, used, err := service.LoadCorpus(cfg.CorpusPath, logger)
	if err != nil {
		logger.Warn("corpus unavailable, themes only", zap.String("path", used), zap.Error(err))
	}

	session := domain.NewJokeSession(cfg.SessionID)
	session.Rating = cfg.JokeRating

	repo, historyPath, closeRepo := openHistory(ctx, cfg, session.ID, logger)
	defer closeRepo()

	var client llm.LLMClient
	if !offline {
		client = bootstrap.NewLLMClient(cfg, "", logger)
	}
	jokes := service.NewJokeService(logger, client, repo, items, service.JokeStyle{
		Compact:         cfg.StyleCompact,
		TargetSentences: cfg.StyleTargetSentences,
		Emoji:           cfg.StyleEmoji,
	})

	r := &repl{
		jokes:       jokes,
		session:     session,
		historyPath: historyPath,
		compact:     compact,
		in:          cmd.InOrStdin(),
		out:         cmd.OutOrStdout(),
	}
	return r.run(ctx)
}

func applyFlags(cfg *config.Config) {
	if corpusPath != "" {
		cfg.CorpusPath = corpusPath
	}
	if sessionID != "" {
		cfg.SessionID = sessionID
	}
	if cfg.SessionID == "" {
		cfg.SessionID = "cli"
	}
	if rating != "" {
		cfg.JokeRating = rating
	}
}

// openHistory usa PostgreSQL si DATABASE_URL está configurado y responde; si no, un archivo JSONL.
func openHistory(ctx context.Context, cfg *config.Config, sid string, logger *zap.Logger) (repository.JokeHistoryRepository, string, func()) {
	fileRepo := repository.NewFileJokeHistoryRepository(cfg.SessionsDir, sid, time.Now())

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		if !errors.Is(err, db.ErrNoDatabase) {
			logger.Warn("db connect failed, using file history", zap.Error(err))
		}
		return fileRepo, fileRepo.Path(), func() {}
	}
	pgRepo := repository.NewPgJokeHistoryRepository(pool)
	if err := pgRepo.EnsureSchema(ctx); err != nil {
		logger.Warn("db schema failed, using file history", zap.Error(err))
		pool.Close()
		return fileRepo, fileRepo.Path(), func() {}
	}
	return pgRepo, "postgres:joke_turns (session " + sid + ")", pool.Close
}
