package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"materials/internal/infra"
	"materials/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var keyFlag string
	flag.StringVar(&keyFlag, "key", "", "Gemini API key (falls back to GEMINI_API_KEY)")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if key == "" {
		exitWithError(fmt.Errorf("GEMINI API key is required via -key or environment"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(fmt.Errorf("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to create pool: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "geminikey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if err := store.SetToken(ctx, credentials.ProviderGemini, key); err != nil {
		exitWithError(fmt.Errorf("failed to persist gemini api key: %w", err))
	}

	fmt.Println("GEMINI API key stored successfully")
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
