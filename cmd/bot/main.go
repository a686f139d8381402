package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad/telegram-linker-bot/internal/bot"
	"github.com/ad/telegram-linker-bot/internal/config"
	"github.com/ad/telegram-linker-bot/internal/domain"
	"github.com/ad/telegram-linker-bot/internal/locale"
	"github.com/ad/telegram-linker-bot/internal/logger"
	"github.com/ad/telegram-linker-bot/internal/storage"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
)

// stores is the persistence selected by STORAGE_BACKEND
type stores struct {
	documents domain.DocumentStore
	sessions  domain.SessionStore
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		db, queue, err := storage.OpenSQLite(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		log.Info("Database opened", "path", cfg.DatabasePath)

		fsmStorage := storage.NewFSMStorage(queue, log)
		if err := fsmStorage.CleanupStale(ctx, storage.DefaultSessionMaxAge); err != nil {
			// Don't exit, just log the error
			log.Error("Failed to cleanup stale console sessions", "error", err)
		}

		return &stores{
			documents: storage.NewSQLiteDocumentStore(queue, log),
			sessions:  fsmStorage,
			close: func() {
				queue.Close()
				_ = db.Close()
			},
		}, nil

	case config.BackendMongo:
		mongoStore, err := storage.NewMongoDocumentStore(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return nil, err
		}
		log.Info("MongoDB connected", "database", cfg.MongoDatabase)

		return &stores{
			documents: mongoStore,
			sessions:  domain.NewMemorySessionStore(storage.DefaultSessionMaxAge),
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := mongoStore.Close(closeCtx); err != nil {
					log.Warn("Failed to disconnect from MongoDB", "error", err)
				}
			},
		}, nil

	default:
		fileStore, err := storage.NewFileDocumentStore(cfg.DataDir, log)
		if err != nil {
			return nil, err
		}
		log.Info("Data directory opened", "path", cfg.DataDir)

		return &stores{
			documents: fileStore,
			sessions:  domain.NewMemorySessionStore(storage.DefaultSessionMaxAge),
			close:     func() {},
		}, nil
	}
}

func main() {
	// Load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n\n%s", err, config.Usage())
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.ParseLevel(cfg.LogLevel))
	log.Info("Starting Telegram Linker Bot",
		"log_level", cfg.LogLevel,
		"storage", cfg.StorageBackend,
		"token", logger.Secret(cfg.TelegramToken),
	)

	localizer, err := locale.NewLocalizer(locale.NewLocale(cfg.BotLang))
	if err != nil {
		log.Error("Failed to create localizer", "error", err)
		os.Exit(1)
	}

	// Create context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer st.close()

	// Load persisted state
	registry := domain.NewInviteLinkRegistry(st.documents, log)
	linkers := domain.NewLinkerDirectory(st.documents, log)
	chats := domain.NewChatDirectory(st.documents, log)
	for name, loader := range map[string]func(context.Context) error{
		"links":   registry.Load,
		"linkers": linkers.Load,
		"chats":   chats.Load,
	} {
		if err := loader(ctx); err != nil {
			log.Error("Failed to load state", "document", name, "error", err)
			os.Exit(1)
		}
	}
	log.Info("State loaded", "chats", len(chats.List()), "chats_with_links", len(registry.Chats()))

	// Create bot handler first (needed for default handler)
	var handler *bot.BotHandler

	// Initialize Telegram bot
	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if handler != nil {
				handler.HandleUpdate(ctx, b, update)
			}
		}),
	}

	b, err := tgbot.New(cfg.TelegramToken, opts...)
	if err != nil {
		log.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}

	log.Info("Telegram bot created")

	botInfo, err := b.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		os.Exit(1)
	}
	log.Info("Bot info retrieved", "username", botInfo.Username, "id", botInfo.ID)

	// Create domain components
	scheduler := domain.NewCountdownScheduler(b, registry, localizer, log.With("component", "countdown"),
		domain.WithTickInterval(cfg.CountdownTick),
		domain.WithPinNoticeWindow(cfg.PinNoticeWindow),
	)
	watcher := domain.NewPromotionWatcher(b, b, chats, localizer, log.With("component", "promotion"), cfg.PromotionPollInterval, cfg.PromotionPollTimeout)
	permissions := domain.NewPermissionEvaluator(b, linkers, cfg.AdminUserIDs, log)
	controller := domain.NewLinkLifecycleController(b, registry, scheduler, permissions, domain.NewLinkNameGenerator(), localizer, log)

	log.Info("Domain components created")

	handler = bot.NewBotHandler(
		b,
		controller,
		registry,
		scheduler,
		permissions,
		linkers,
		chats,
		watcher,
		st.sessions,
		cfg,
		log,
		localizer,
	)
	handler.SetBotID(botInfo.ID)
	handler.Register(b)

	log.Info("Bot handler created")

	// Restore countdowns of links created before the restart
	controller.Resume(ctx)

	log.Info("Bot is running. Press Ctrl+C to stop.")

	// Start blocks until the context is cancelled
	b.Start(ctx)

	log.Info("Shutdown signal received, stopping bot...")

	handler.Shutdown()
	scheduler.Shutdown()
	watcher.Shutdown()

	log.Info("Bot stopped successfully")
}
