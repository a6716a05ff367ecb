package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gradebot/internal/api"
	"gradebot/internal/bot"
	"gradebot/internal/config"
	"gradebot/internal/database"
	"gradebot/internal/grading"
	"gradebot/internal/handlers"
	"gradebot/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	zapLogger, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, logger.DefaultServiceName)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()
	zap.ReplaceGlobals(zapLogger)

	if cfg.BotToken == "" {
		zap.L().Fatal("BOT_TOKEN is required")
	}
	if cfg.ServerBaseURL == "" {
		zap.L().Fatal("SERVER_BASE_URL is required")
	}

	db, err := database.New(database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	zap.L().Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		zap.L().Fatal("Failed to run migrations", zap.Error(err))
	}

	transport, err := bot.NewTelegram(cfg.BotToken)
	if err != nil {
		zap.L().Fatal("Failed to create bot", zap.Error(err))
	}

	sessions := database.NewSessionStore(db)
	students := database.NewStudentRepo(db)
	adminSessions := database.NewAdminSessionRepo(db)

	courseAPI := api.NewClient(cfg.ServerBaseURL, cfg.APITimeout, cfg.GradeTimeout)
	adminAPI := api.NewAdminClient(cfg.ServerBaseURL, cfg.APITimeout)

	poller := grading.NewPoller(courseAPI, transport, cfg.PollInterval, cfg.PollMaxWait)

	handler := handlers.New(handlers.Config{
		Transport:     transport,
		Renderer:      bot.NewRenderer(transport, sessions),
		Sessions:      sessions,
		Students:      students,
		Courses:       courseAPI,
		Admin:         adminAPI,
		AdminSessions: adminSessions,
		Poller:        poller,
		AdminTTL:      cfg.AdminSessionTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Bot started successfully")

	updates := transport.Updates(60)
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Shutting down...")
			poller.Shutdown()
			return
		case update, ok := <-updates:
			if !ok {
				poller.Shutdown()
				return
			}
			if update.Message != nil && !update.Message.Chat.IsPrivate() {
				continue
			}
			handler.HandleUpdate(ctx, update)
		}
	}
}
