package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwhited/taskflow/internal/adminreq"
	"github.com/mwhited/taskflow/internal/api"
	"github.com/mwhited/taskflow/internal/auth"
	"github.com/mwhited/taskflow/internal/config"
	"github.com/mwhited/taskflow/internal/database"
	"github.com/mwhited/taskflow/internal/metrics"
	"github.com/mwhited/taskflow/internal/ratelimit"
	"github.com/mwhited/taskflow/internal/suggestion"
	"github.com/mwhited/taskflow/internal/task"
	"github.com/mwhited/taskflow/internal/team"
	"github.com/mwhited/taskflow/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Taskflow API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cfg.Auth.DevFallback {
		slog.Warn("auth.dev_fallback is set but not supported; requests fail when the database is unreachable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to database")

	userStore := user.NewStore(db)
	taskStore := task.NewStore(db)
	teamStore := team.NewStore(db)
	requestStore := adminreq.NewStore(db)
	suggestionStore := suggestion.NewStore(db)

	m := metrics.New()
	m.RegisterDBPoolCollector(db.Stat)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	authMW := auth.NewMiddleware(tokens, user.NewAuthAdapter(userStore))
	authMW.SetMetrics(m)

	limiter := ratelimit.New(cfg.RateLimit.AuthBurst, cfg.RateLimit.Window)

	gemini := suggestion.NewGeminiClient(cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.APIKey, cfg.AI.Timeout, cfg.AI.MaxRetries)
	engine := suggestion.NewEngine(suggestionStore, taskStore, gemini, logger)
	engine.SetMetrics(m)

	router := api.NewRouter(api.RouterDeps{
		DB:            db,
		Users:         userStore,
		Tasks:         taskStore,
		Teams:         teamStore,
		AdminRequests: requestStore,
		Suggestions:   suggestionStore,
		Engine:        engine,
		Tokens:        tokens,
		AuthMW:        authMW,
		Limiter:       limiter,
		Metrics:       m,

		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AdminSecret:    cfg.Auth.AdminSecret,
		SecureCookie:   cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
