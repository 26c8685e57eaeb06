package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/cli"
	"github.com/alexanderramin/kalend/internal/db"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/gcal"
	"github.com/alexanderramin/kalend/internal/llm"
	"github.com/alexanderramin/kalend/internal/repository"
	"github.com/alexanderramin/kalend/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	logger := setupLogger(domain.CoalesceStr(os.Getenv("LOG_LEVEL"), "warn"))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Determine DB path: env var or default ~/.kalend/kalend.db
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("finding home directory: %w", err)
	}
	dbPath := domain.CoalesceStr(os.Getenv("KALEND_DB"), filepath.Join(home, ".kalend", "kalend.db"))

	loc, err := loadLocation(os.Getenv("KALEND_TIMEZONE"))
	if err != nil {
		return err
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	uow := db.NewSQLiteUnitOfWork(database)
	credRepo := repository.NewSQLiteCredentialRepo(database)
	convRepo := repository.NewSQLiteConversationRepo(database, uow)

	// Wire calendar access
	oauthCfg := auth.LoadConfig()
	refresher := auth.NewRefresher(oauthCfg, credRepo, logger)
	calendar := gcal.NewClient(gcal.LoadConfig(), credRepo, refresher, logger)

	app := &cli.App{
		Calls:       assistant.NewDispatcher(calendar, loc, logger),
		Credentials: credRepo,
		OAuth:       oauthCfg,
		Server:      server.LoadConfig(),
		Personality: os.Getenv("KALEND_PERSONALITY"),
		Location:    loc,
		Logger:      logger,

		InputHistoryPath: filepath.Join(home, ".kalend", "chat_history"),
		Interactive:      isTerminal(os.Stdin) && isTerminal(os.Stdout),
	}
	app.UserID = app.Server.DefaultUser

	// Wire the chat pipeline. Without a usable model the calendar commands
	// still work.
	llmCfg := llm.LoadConfig()
	var observer llm.Observer = llm.NoopObserver{}
	if llmCfg.LogCalls {
		observer = llm.NewLogObserver(logger)
	}
	client, err := llm.New(ctx, llmCfg, observer)
	if err != nil {
		logger.Warn("chat disabled", "provider", llmCfg.Provider, "error", err)
		app.ChatErr = err
	} else {
		if c, ok := client.(io.Closer); ok {
			defer c.Close()
		}
		app.Chat = assistant.NewOrchestrator(
			assistant.NewExtractor(client),
			assistant.NewExecutor(calendar, logger),
			assistant.NewSynthesizer(client, logger),
			logger,
			assistant.WithConversationStore(convRepo),
			assistant.WithUseCaseObserver(assistant.NewLogUseCaseObserver(logger)),
			assistant.WithClock(time.Now, loc),
		)
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("KALEND_TIMEZONE: %w", err)
	}
	return loc, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
