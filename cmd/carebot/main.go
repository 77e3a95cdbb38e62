package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/icare-life/carebot/internal/api"
	"github.com/icare-life/carebot/internal/conversation"
	"github.com/icare-life/carebot/internal/database"
	apperrors "github.com/icare-life/carebot/internal/errors"
	"github.com/icare-life/carebot/internal/genai"
	"github.com/icare-life/carebot/internal/health"
	"github.com/icare-life/carebot/internal/i18n"
	"github.com/icare-life/carebot/internal/identity"
	"github.com/icare-life/carebot/internal/idempotency"
	"github.com/icare-life/carebot/internal/knowledge"
	"github.com/icare-life/carebot/internal/lifecycle"
	"github.com/icare-life/carebot/internal/middleware"
	"github.com/icare-life/carebot/internal/policy"
	"github.com/icare-life/carebot/internal/ratelimit"
	"github.com/icare-life/carebot/internal/recorder"
	"github.com/icare-life/carebot/internal/repository"
	"github.com/icare-life/carebot/internal/session"
	"github.com/icare-life/carebot/internal/speech"
	"github.com/icare-life/carebot/internal/translate"
	"github.com/icare-life/carebot/internal/usercache"
	"github.com/icare-life/carebot/internal/whodata"
	"github.com/icare-life/carebot/pkg/config"
	"github.com/icare-life/carebot/pkg/graceful"
	"github.com/icare-life/carebot/pkg/logger"
	"github.com/icare-life/carebot/pkg/metrics"
	appredis "github.com/icare-life/carebot/pkg/redis"

	_ "github.com/lib/pq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log, closeLogger, err := logger.New(cfg.Log)
	if err != nil {
		slog.Error("failed to build logger", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeLogger()

	log.Info("starting carebot", slog.String("env", cfg.AppEnv), slog.String("http_port", cfg.HTTP.Port))

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		return
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping database", slog.Any("error", err))
		return
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		return
	}

	redisClient, err := appredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", slog.Any("error", err))
		return
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			log.Error("error closing redis", slog.Any("error", cerr))
		}
	}()

	catalog, err := i18n.LoadFromDir(cfg.I18n.Dir, cfg.Conversation.DefaultLanguage)
	if err != nil {
		log.Error("failed to load translation catalogs", slog.Any("error", err))
		return
	}
	go func() {
		if werr := i18n.Watch(ctx, catalog, log); werr != nil {
			log.Warn("catalog watcher stopped", slog.Any("error", werr))
		}
	}()

	// collaborators
	knowledgeClient := knowledge.NewClient(cfg.Knowledge.BaseURL, cfg.Knowledge.APIKey, cfg.Knowledge.Timeout, log)
	advisor := genai.NewAdvisor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, log)
	translator := translate.NewTranslator(
		cfg.Translate.BaseURL,
		cfg.Translate.APIKey,
		cfg.Translate.Timeout,
		translate.NewTieredCache(
			translate.NewMemoryCache(0),
			translate.NewRedisCache(redisClient.Client, 0),
		),
		log,
	)
	verifier := identity.NewCachedVerifier(
		identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.APIKey, cfg.Identity.Timeout, log),
		usercache.NewCache(redisClient.Client),
		log,
	)
	whoClient := whodata.NewClient(cfg.Who.BaseURL, cfg.Who.Timeout, log)

	sessionSink := repository.NewSessionRepository(db, log)
	querySink := repository.NewQueryRepository(db, log)

	ctrlConfig := conversation.Config{
		Policy:             policy.Config{FreeQuestionLimit: cfg.Conversation.FreeQuestionLimit},
		KnowledgeBaseName:  cfg.Conversation.KnowledgeBaseName,
		DefaultLanguage:    cfg.Conversation.DefaultLanguage,
		SupportedLanguages: cfg.Conversation.SupportedLanguages,
		LookupTimeout:      cfg.Conversation.LookupTimeout,
	}
	depsFor := func(sessionID string, startedAt time.Time) conversation.Deps {
		return conversation.Deps{
			Catalog:    catalog,
			Knowledge:  knowledgeClient,
			Advisor:    advisor,
			Translator: translator,
			Identity:   verifier,
			Recorder: recorder.New(
				sessionID, startedAt, cfg.Recorder.MinTranscriptMessages, sessionSink, querySink, log,
			),
			Speech: speech.NewSpeaker(nil, log),
			Log:    log,
		}
	}

	store := session.NewRedisStore(redisClient, 0)
	sessions := session.NewManager(
		store,
		func(sessionID string) *conversation.Controller {
			return conversation.New(sessionID, depsFor(sessionID, time.Now()), ctrlConfig)
		},
		func(snapshot conversation.State) *conversation.Controller {
			return conversation.Resume(snapshot, depsFor(snapshot.SessionID, snapshot.StartedAt), ctrlConfig)
		},
		log,
		cfg.Conversation.IdleTimeout,
	)
	go sessions.Run(ctx, time.Minute)
	go metrics.NewSessionCollector(sessions).Run(ctx)
	go appredis.NewPoolStatsCollector(redisClient).Run(ctx)

	// rate limiting with redis primary and in-memory fallback
	limiter := ratelimit.NewAdaptiveLimiter(
		ratelimit.NewRedisLimiter(redisClient.Client, log),
		ratelimit.NewMemoryLimiter(log),
		log,
	)
	go ratelimit.NewCleaner(redisClient.Client, log, 10*time.Minute).Run(ctx)

	idemManager := idempotency.NewManager(idempotency.NewRedisStore(redisClient.Client, log), log)
	go idempotency.NewCleaner(redisClient.Client, log, time.Hour).Run(ctx)

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	if cfg.Knowledge.BaseURL != "" {
		checker.AddCheck("knowledge", health.NewUpstreamChecker("knowledge", cfg.Knowledge.BaseURL, nil))
	}
	probes := lifecycle.NewProbes(checker, log)
	if err := probes.Readiness(ctx); err != nil {
		log.Warn("service starting degraded", slog.Any("error", err))
	}

	errHandler := apperrors.NewHandler(log, cfg.Log.SentryDSN != "")
	server := api.NewServer(sessions, whoClient, checker, errHandler, log)
	handler := server.Handler(api.Middleware{
		RateLimit:   middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(cfg.RateLimit), log),
		Idempotency: middleware.Idempotency(idemManager, log),
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("sessions", func(shutdownCtx context.Context) error {
		sessions.Shutdown(shutdownCtx)
		return nil
	})

	srv := graceful.NewServer(log, httpServer, cfg.HTTP.ShutdownTimeout)
	srv.OnShutdown(func(shutdownCtx context.Context) {
		if serr := shutdown.Execute(shutdownCtx); serr != nil {
			log.Error("shutdown hooks failed", slog.Any("error", serr))
		}
	})

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error("http server stopped with error", slog.Any("error", err))
	}

	log.Info("carebot stopped")
}
