// Command justicia is the terminal client for the JusticIA legal-document
// assistant: streaming chat with persisted conversation context, and
// similar-case search.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"justicia-client/internal/auth"
	"justicia-client/internal/client"
	"justicia-client/internal/config"
	"justicia-client/internal/search"
	"justicia-client/internal/storage"
)

var (
	envFile string

	cfg          *config.Config
	store        storage.Store
	backend      *client.Client
	orchestrator *search.Orchestrator
)

func main() {
	root := &cobra.Command{
		Use:           "justicia",
		Short:         "Cliente de terminal para el asistente legal JusticIA",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if store != nil {
				if err := store.Close(); err != nil {
					slog.Error("error closing storage", "error", err)
				}
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "path to load env from")

	root.AddCommand(newChatCommand())
	root.AddCommand(newSearchCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}

func setup() error {
	var err error
	cfg, err = config.Load(envFile)
	if err != nil {
		return err
	}

	configureLogging(cfg.LogLevel)

	store, err = openStorage(cfg)
	if err != nil {
		return err
	}

	unauthorized := auth.NewUnauthorizedBroadcaster()
	unauthorized.Subscribe(func() {
		fmt.Fprintln(os.Stderr, "Su sesión ha expirado. Inicie sesión nuevamente.")
	})

	tokens := &auth.StaticTokenSource{
		BearerToken: cfg.AuthToken,
		Claims:      auth.Claims{Id: cfg.UserId},
	}

	backend = client.New(client.Config{
		BaseURL:        cfg.BackendURL,
		RequestTimeout: cfg.RequestTimeout,
		StreamTimeout:  cfg.StreamTimeout,
	}, tokens, unauthorized)
	orchestrator = search.NewOrchestrator(backend)

	return nil
}

func configureLogging(level string) {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func openStorage(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "badger":
		return storage.NewBadgerStore(filepath.Join(cfg.StoragePath, "badger"))
	case "sqlite":
		if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage dir: %w", err)
		}
		return storage.NewSqliteStore(filepath.Join(cfg.StoragePath, "justicia.db"))
	default:
		return storage.NewMemoryStore(), nil
	}
}

// userMessage surfaces the sanitized form of typed errors and the plain
// message of everything else.
func userMessage(err error) string {
	var typed *client.Error
	if errors.As(err, &typed) {
		return typed.UserMessage
	}
	return err.Error()
}
