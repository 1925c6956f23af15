// Package main contains the entrypoint for the RentScout Telegram
// assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/mbianda/rentscout/internal/assistant"
	"github.com/mbianda/rentscout/internal/bot"
	"github.com/mbianda/rentscout/internal/bot/handlers"
	"github.com/mbianda/rentscout/internal/bot/tasks"
	"github.com/mbianda/rentscout/internal/config"
	"github.com/mbianda/rentscout/internal/database"
	"github.com/mbianda/rentscout/internal/extract"
	"github.com/mbianda/rentscout/internal/flow"
	"github.com/mbianda/rentscout/internal/intent"
	"github.com/mbianda/rentscout/internal/logger"
	"github.com/mbianda/rentscout/internal/prefs"
	"github.com/mbianda/rentscout/internal/rank"
	"github.com/mbianda/rentscout/internal/recommend"
	"github.com/mbianda/rentscout/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components, handles
// graceful shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	ranker := rank.NewRanker(rank.Weights{
		Location:     cfg.Ranking.WeightLocation,
		Price:        cfg.Ranking.WeightPrice,
		PropertyType: cfg.Ranking.WeightPropertyType,
		Amenities:    cfg.Ranking.WeightAmenities,
		Freshness:    cfg.Ranking.WeightFreshness,
		Diversity:    cfg.Ranking.WeightDiversity,
	})
	learner := prefs.NewLearner()
	recommender := recommend.NewEngine(log, store, ranker, recommend.Options{
		HistoryWindow:  cfg.Assistant.HistoryWindow,
		CandidateLimit: cfg.Assistant.CandidateLimit,
	})
	flowEngine := flow.NewEngine(log, flow.Options{
		FlowStaleAfter:   cfg.Assistant.FlowStaleAfter,
		NewUserMaxAge:    cfg.Assistant.NewUserMaxAge,
		NewUserMaxEvents: cfg.Assistant.NewUserMaxEvents,
	})
	asst := assistant.New(
		log,
		store,
		intent.NewClassifier(),
		extract.NewExtractor(cfg.Vocab.Locations, cfg.Vocab.Amenities, cfg.Vocab.PropertyTypes),
		flowEngine,
		ranker,
		learner,
		recommender,
		cfg.Assistant,
	)

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Assistant: asst,
	}
	tDeps := tasks.TaskDeps{
		Logger:  log,
		Config:  cfg,
		Store:   store,
		Learner: learner,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	app := bot.NewBot(log, cfg, db, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
