package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Totarae/psabot/internal/auth"
	"github.com/Totarae/psabot/internal/bot"
	"github.com/Totarae/psabot/internal/bypass"
	"github.com/Totarae/psabot/internal/config"
	"github.com/Totarae/psabot/internal/database"
	"github.com/Totarae/psabot/internal/fetch"
	"github.com/Totarae/psabot/internal/grpcserver"
	"github.com/Totarae/psabot/internal/handlers"
	"github.com/Totarae/psabot/internal/pace"
	"github.com/Totarae/psabot/internal/repositories"
	"github.com/Totarae/psabot/internal/router"
	"github.com/Totarae/psabot/internal/scraper"
	"github.com/Totarae/psabot/internal/service"
	"github.com/Totarae/psabot/internal/storage"
	"github.com/Totarae/psabot/internal/telegram"
)

const (
	shutdownTimeout = 10 * time.Second
	healthInterval  = 30 * time.Second
)

func main() {
	// Инициализация конфигурации
	cfg := config.NewConfig()
	if cfg == nil {
		cfg = &config.Config{}
	}

	logger := newLogger(cfg.SessionName)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Бот остановлен с ошибкой", zap.Error(err))
	}
	logger.Info("Bot stopped!")
}

func newLogger(name string) *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	if name != "" {
		logger = logger.Named(name)
	}
	return logger
}

// journal хранилище журнала и функция его закрытия.
type journal struct {
	service.Journal
	close func()
	// ping подменяет проверку журнала, в режиме БД пингуется сам пул
	ping func(ctx context.Context) error
}

func (j *journal) Ping(ctx context.Context) error {
	if j.ping != nil {
		return j.ping(ctx)
	}
	return j.Journal.Ping(ctx)
}

func openJournal(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*journal, error) {
	switch cfg.Mode {
	case config.ModeDatabase:
		if cfg.MigrationsEnabled {
			if err := database.Migrate(cfg.DatabaseDSN, logger); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		db, err := database.NewDB(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, err
		}
		return &journal{Journal: repositories.NewResolutionRepository(db.Pool), close: db.Close, ping: db.Ping}, nil
	default:
		return &journal{Journal: storage.NewJournalStore(cfg.FileStoragePath), close: func() {}}, nil
	}
}

func newPipeline(cfg *config.Config, j service.Journal, logger *zap.Logger) (*service.PipelineService, error) {
	client, err := fetch.New(fetch.Options{
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.HTTPTimeout,
		ProxyURL:          cfg.ProxyURL,
		RequestsPerSecond: cfg.RateLimit,
	})
	if err != nil {
		return nil, err
	}

	gate, err := bypass.NewGateResolver(client, bypass.GateOptions{
		Base:        cfg.GateBase,
		Referer:     cfg.GateReferer,
		TokenOffset: cfg.TokenOffset,
		Delay:       pace.Delay(cfg.GateDelay),
	})
	if err != nil {
		return nil, err
	}
	shortener, err := bypass.NewShortener(client, gate, cfg.GateBase, cfg.UserAgent)
	if err != nil {
		return nil, err
	}

	return service.NewPipelineService(scraper.New(client), shortener, j, logger.Named("pipeline")), nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	j, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer j.close()

	pipeline, err := newPipeline(cfg, j, logger)
	if err != nil {
		return err
	}

	chat, err := telegram.ParseChat(cfg.Chat)
	if err != nil {
		return err
	}
	if err := tgbotapi.SetLogger(zap.NewStdLog(logger.Named("tgbotapi"))); err != nil {
		return err
	}
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	client := telegram.NewClient(api, chat, logger)
	members := auth.NewGate(client)

	b := bot.New(client, pipeline, members, logger.Named("bot"))

	var httpServer *http.Server
	if cfg.ServerAddress != "" && cfg.APISecret != "" {
		h := handlers.NewHandler(pipeline, members, logger, cfg.Mode)
		httpServer = &http.Server{
			Addr:              cfg.ServerAddress,
			Handler:           router.NewRouter(h, auth.New(cfg.APISecret), logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Сервер запущен на ", zap.String("address", cfg.ServerAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Ошибка при запуске сервера: ", zap.Error(err))
			}
		}()
	} else {
		logger.Info("HTTP API отключён: не задан SERVER_ADDRESS или API_SECRET")
	}

	var grpcServer *grpcserver.GRPCServer
	if cfg.GRPCAddress != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddress)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcServer = grpcserver.NewGRPCServer(pipeline, logger)
		go grpcServer.Watch(ctx, healthInterval)
		go func() {
			logger.Info("gRPC сервер запущен на ", zap.String("address", cfg.GRPCAddress))
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC сервер остановлен", zap.Error(err))
			}
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	logger.Info("Bot started!", zap.String("user", api.Self.UserName), zap.String("mode", cfg.Mode))

	// Run возвращается после отмены ctx, дождавшись начатых обработчиков
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	telegram.Run(ctx, updates, b, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown", zap.Error(err))
		}
	}
	if grpcServer != nil {
		grpcServer.Stop()
	}
	return nil
}
