package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ad/telegram-contest-bot/internal/bot"
	"github.com/ad/telegram-contest-bot/internal/config"
	"github.com/ad/telegram-contest-bot/internal/locale"
	"github.com/ad/telegram-contest-bot/internal/logger"
	"github.com/ad/telegram-contest-bot/internal/session"
	"github.com/ad/telegram-contest-bot/internal/storage"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

func main() {
	// Load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.ParseLevel(cfg.LogLevel))
	log.Info("Starting Telegram Contest Bot", "log_level", cfg.LogLevel)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Error("Failed to enable WAL mode", "error", err)
		os.Exit(1)
	}
	log.Info("Database opened", "path", cfg.DatabasePath)

	dbQueue := storage.NewDBQueue(db)
	defer dbQueue.Close()

	if err := storage.InitSchema(dbQueue); err != nil {
		log.Error("Failed to initialize database schema", "error", err)
		os.Exit(1)
	}
	log.Info("Database schema initialized")

	contestRepo := storage.NewContestRepository(dbQueue)
	submissionRepo := storage.NewSubmissionRepository(dbQueue)
	judgeRepo := storage.NewJudgeRepository(dbQueue)
	blocklistRepo := storage.NewBlocklistRepository(dbQueue)
	log.Info("Repositories created")

	localizer, err := locale.NewLocalizer(locale.NewLocale(locale.Ru))
	if err != nil {
		log.Error("Failed to load translations", "error", err)
		os.Exit(1)
	}

	drafts := session.NewDraftStore()
	contents := session.NewContentStore()
	locker := session.NewLocker()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create bot handler first (needed for default handler)
	var handler *bot.Handler

	// Photo messages are not matched by the text handlers and arrive at
	// the default handler
	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if handler != nil {
				handler.HandleDefault(ctx, b, update)
			}
		}),
	}

	b, err := tgbot.New(cfg.BotToken, opts...)
	if err != nil {
		log.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}
	log.Info("Telegram bot created")

	intakeFSM := bot.NewIntakeFSM(b, drafts, submissionRepo, judgeRepo, cfg, log, localizer)
	contentFSM := bot.NewContentFSM(b, contents, cfg, log, localizer)

	handler = bot.NewHandler(
		b,
		cfg,
		log,
		localizer,
		contestRepo,
		submissionRepo,
		judgeRepo,
		blocklistRepo,
		drafts,
		contents,
		locker,
		intakeFSM,
		contentFSM,
	)
	log.Info("Bot handler created")

	// Register command handlers
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypePrefix, handler.HandleStart)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/cancel", tgbot.MatchTypeExact, handler.HandleCancel)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/done", tgbot.MatchTypeExact, handler.HandleDone)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/skip", tgbot.MatchTypeExact, handler.HandleSkip)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/block", tgbot.MatchTypePrefix, handler.HandleBlock)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/unblock", tgbot.MatchTypePrefix, handler.HandleUnblock)

	// Register callback query handler
	b.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, "", tgbot.MatchTypePrefix, handler.HandleCallback)

	// Register message handler for conversation flows
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypePrefix, handler.HandleMessage)

	log.Info("Command handlers registered")

	sweeper := session.NewSweeper(
		drafts,
		contents,
		locker,
		session.ExpiryNotifierFunc(intakeFSM.NotifyExpired),
		log,
		cfg.SweepInterval,
		cfg.DraftTimeout,
		cfg.LockIdleTimeout,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		log.Info("Starting bot polling")
		b.Start(gctx)
		return gctx.Err()
	})

	log.Info("Bot is running. Press Ctrl+C to stop.")

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("Shutdown with error", "error", err)
	}
	log.Info("Bot stopped successfully")
}
