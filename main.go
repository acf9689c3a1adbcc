package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"

	"github.com/akozyrev/gemini-studio-bot/pkg/auth"
	"github.com/akozyrev/gemini-studio-bot/pkg/database"
	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
	"github.com/akozyrev/gemini-studio-bot/pkg/gemini"
	"github.com/akozyrev/gemini-studio-bot/pkg/logger"
	"github.com/akozyrev/gemini-studio-bot/pkg/repository"
	"github.com/akozyrev/gemini-studio-bot/pkg/services"
	"github.com/akozyrev/gemini-studio-bot/pkg/telegram"
	"github.com/akozyrev/gemini-studio-bot/pkg/workers"
)

type Config struct {
	GeminiAPIKeys             []string      `env:"GEMINI_API_KEYS,required" envSeparator:" "`
	TelegramBotToken          string        `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramAuthorizedUserIDs []int64       `env:"TELEGRAM_AUTHORIZED_USER_IDS" envSeparator:" "`
	SQLitePath                string        `env:"SQLITE_PATH" envDefault:"studio-bot.db"`
	VideoPollInterval         time.Duration `env:"VIDEO_POLL_INTERVAL" envDefault:"9s"`
	VideoPollTimeout          time.Duration `env:"VIDEO_POLL_TIMEOUT" envDefault:"10m"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	workerGroup, err := setupWorkers()
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func setupWorkers() (workers.Group, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	telegramClient, err := telegram.NewClient(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}
	authorizer := auth.NewAuthorizer(cfg.TelegramAuthorizedUserIDs)

	db, err := database.NewSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("creating db: %w", err)
	}

	keyRing := auth.NewKeyRing(cfg.GeminiAPIKeys)

	geminiClient, err := gemini.NewClient(gemini.Config{
		Keys:         keyRing,
		PollInterval: cfg.VideoPollInterval,
		PollTimeout:  cfg.VideoPollTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	chatConversations := repository.NewConversationsRepository(db, repository.ChatStoreKey)
	reasoningConversations := repository.NewConversationsRepository(db, repository.ReasoningStoreKey)
	promptsRepository := repository.NewPromptsRepository(db)

	responseCh := make(chan domain.Response)

	chatService := services.NewChatService(
		geminiClient,
		chatConversations,
		reasoningConversations,
		responseCh,
	)

	imageService := services.NewImageService(
		geminiClient,
		promptsRepository,
		responseCh,
	)

	videoService := services.NewVideoService(
		geminiClient,
		geminiClient,
		responseCh,
	)

	handler := telegram.NewHandler(
		chatService,
		imageService,
		videoService,
		keyRing,
		telegramClient,
		responseCh,
	)

	var workerGroup workers.Group

	listener, err := workers.NewTelegramUpdateListener(
		telegramClient,
		authorizer,
		handler,
		responseCh,
	)
	if err != nil {
		return nil, fmt.Errorf("creating telegram update listener: %w", err)
	}
	workerGroup = append(workerGroup, listener)

	return workerGroup, nil
}
