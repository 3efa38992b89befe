package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShelfBoT/internal/api"
	"github.com/Kerhoff/ShelfBoT/internal/catalog"
	"github.com/Kerhoff/ShelfBoT/internal/config"
	"github.com/Kerhoff/ShelfBoT/internal/handlers"
	"github.com/Kerhoff/ShelfBoT/internal/metrics"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
	"github.com/Kerhoff/ShelfBoT/internal/repository/memory"
	"github.com/Kerhoff/ShelfBoT/internal/repository/postgres"
	"github.com/Kerhoff/ShelfBoT/internal/service"
	"github.com/Kerhoff/ShelfBoT/internal/telegram"
	"github.com/Kerhoff/ShelfBoT/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting ShelfBoT...")

	var (
		store    repository.Store
		users    repository.UserRepository
		resolver catalog.Resolver
	)

	if cfg.UsesMemoryStore() {
		l.Warn("DATABASE_URL is not set, using in-memory store")
		store = memory.NewStore()
		users = memory.NewUserRepository()
		resolver = catalog.NewStatic(cfg.CatalogSets...)
	} else {
		db, err := config.NewDatabase(cfg.DatabaseURL, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}

		store = postgres.NewStore(db.DB)
		users = postgres.NewUserRepository(db.DB)
		resolver = postgres.NewCatalogResolver(db.DB)
	}

	cached, err := catalog.NewCached(resolver, cfg.CatalogCacheSize)
	if err != nil {
		l.Fatalf("Failed to create catalog cache: %v", err)
	}
	defer cached.Close()

	m := metrics.New()
	svc := service.New(store, cached, users, l, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go svc.StartPositionAuditor(ctx, cfg.AuditInterval)

	var identity api.IdentityProvider = api.HeaderIdentity{}
	if cfg.UsesBearerTokens() {
		identity = api.BearerIdentity{Lookup: api.StaticTokens(cfg.APITokens)}
		l.Infof("HTTP API accepts %d bearer tokens", len(cfg.APITokens))
	}

	apiServer := api.NewServer(svc, l, identity, m)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux(m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serve(l, "HTTP", httpServer)
	serve(l, "Metrics", metricsServer)

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}
		registerCommands(bot, svc, l)

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	} else {
		l.Info("TELEGRAM_TOKEN is not set, Telegram bot disabled")
	}

	l.Info("ShelfBoT started successfully")

	<-ctx.Done()
	l.Info("Received shutdown signal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Errorf("Server shutdown error: %v", err)
		}
	}

	l.Info("ShelfBoT stopped")
}

func registerCommands(bot *telegram.Bot, svc *service.Service, l *logrus.Logger) {
	bot.RegisterCommand("start", "Get started", handlers.NewStartHandler(svc, l))
	bot.RegisterCommand("help", "Show available commands", handlers.NewHelpHandler(l))

	// Collection
	bot.RegisterCommand("owned", "Show or add owned sets", handlers.NewOwnedHandler(svc, l))
	bot.RegisterCommand("unown", "Remove an owned set", handlers.NewUnownHandler(svc, l))
	bot.RegisterCommand("wish", "Show or add wishlist sets", handlers.NewWishHandler(svc, l))
	bot.RegisterCommand("unwish", "Remove a wishlist set", handlers.NewUnwishHandler(svc, l))

	// Custom lists
	bot.RegisterCommand("lists", "Show your lists", handlers.NewListsHandler(svc, l))
	bot.RegisterCommand("newlist", "Create a list", handlers.NewNewListHandler(svc, l))
	bot.RegisterCommand("add", "Add a set to a list", handlers.NewAddHandler(svc, l))
	bot.RegisterCommand("remove", "Remove a set from a list", handlers.NewRemoveHandler(svc, l))
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	return mux
}

func serve(l *logrus.Logger, name string, srv *http.Server) {
	go func() {
		l.Infof("%s server listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("%s server error: %v", name, err)
		}
	}()
}
