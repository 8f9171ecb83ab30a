package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/run"
	"go.uber.org/zap"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/core"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/domain/notifications"
	"perfeval/internal/domain/reports"
	"perfeval/internal/domain/scoring"
	"perfeval/internal/domain/tasks"
	"perfeval/internal/platform/config"
	cryptoutil "perfeval/internal/platform/crypto"
	"perfeval/internal/platform/db"
	"perfeval/internal/platform/email"
	"perfeval/internal/platform/jobs"
	"perfeval/internal/platform/logger"
	"perfeval/internal/platform/metrics"
	audithandler "perfeval/internal/transport/http/handlers/audit"
	authhandler "perfeval/internal/transport/http/handlers/auth"
	corehandler "perfeval/internal/transport/http/handlers/core"
	evaluationshandler "perfeval/internal/transport/http/handlers/evaluations"
	notificationshandler "perfeval/internal/transport/http/handlers/notifications"
	reportshandler "perfeval/internal/transport/http/handlers/reports"
	taskshandler "perfeval/internal/transport/http/handlers/tasks"
	"perfeval/internal/transport/http/middleware"
)

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Router   http.Handler
	Log      *zap.Logger
	Jobs     *jobs.Service
	Profiles *scoring.Registry
}

// New connects to the database, applies migrations and seed data as
// configured, and assembles the HTTP router with every domain service.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.MigratePool(pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	profiles := scoring.NewRegistry()
	if cfg.ScoringProfilesFile != "" {
		if err := profiles.Load(cfg.ScoringProfilesFile); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.ScoringDefaultProfile != "" {
		if err := profiles.SetDefault(cfg.ScoringDefaultProfile); err != nil {
			pool.Close()
			return nil, err
		}
	}

	collector := metrics.New()
	authSvc := auth.NewService(auth.NewStore(pool), cfg.JWTSecret)
	auditSvc := audit.New(pool)
	notifySvc := notifications.New(notifications.NewStore(pool), email.New(cfg, log), cfg.EmailFrom, log)
	coreSvc := core.NewService(core.NewStore(pool))
	taskSvc := tasks.NewService(tasks.NewStore(pool), notifySvc, log)
	evalSvc := evaluation.NewService(evaluation.NewStore(pool), coreSvc, taskSvc, profiles, evaluation.Options{
		Notifier:      notifySvc,
		Metrics:       collector,
		Crypto:        crypto,
		ReportsDir:    cfg.ReportsDir,
		DashboardDays: cfg.DashboardWindowDays,
		Logger:        log,
	})
	reportSvc := reports.NewService(reports.NewStore(pool), taskSvc)
	jobSvc := jobs.New(jobs.NewStore(pool), log, collector)

	// the scheduled run scores the month that just closed
	jobSvc.Schedule(jobs.JobMonthlyEvaluations, cfg.EvaluationInterval, func(ctx context.Context, tenantID string) (any, error) {
		month, year := jobs.PreviousMonth(time.Now())
		return evalSvc.GenerateAutomated(ctx, tenantID, "", month, year, "")
	})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.Auth(cfg.JWTSecret, authSvc))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithLogger(log)))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithLogger(log)))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", metrics.ContentType())
			if err := collector.WriteText(w); err != nil {
				log.Warn("metrics write failed", zap.Error(err))
			}
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc, log).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			corehandler.NewHandler(coreSvc, authSvc, auditSvc, log).RegisterRoutes(r)
			taskshandler.NewHandler(taskSvc, coreSvc, authSvc, auditSvc, log).RegisterRoutes(r)
			evaluationshandler.NewHandler(evalSvc, coreSvc, jobSvc, middleware.NewIdempotencyStore(pool), authSvc, auditSvc, log).RegisterRoutes(r)
			reportshandler.NewHandler(reportSvc, authSvc, log).RegisterRoutes(r)
			notificationshandler.NewHandler(notifySvc, log).RegisterRoutes(r)
			audithandler.NewHandler(auditSvc, authSvc, log).RegisterRoutes(r)
		})
	})

	return &App{
		Config:   cfg,
		DB:       pool,
		Router:   router,
		Log:      log,
		Jobs:     jobSvc,
		Profiles: profiles,
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
}

// Run serves HTTP, drives the job scheduler and, when a profiles file is
// configured, hot-reloads scoring profiles. It returns when any of them
// stops or the process receives SIGINT or SIGTERM.
func Run(ctx context.Context, cfg config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	undo := zap.ReplaceGlobals(app.Log)
	defer undo()

	var g run.Group
	{
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           app.Router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Add(func() error {
			app.Log.Info("server listening", zap.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Log.Warn("server shutdown failed", zap.Error(err))
			}
		})
	}
	{
		jobsCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			err := app.Jobs.Run(jobsCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}, func(error) {
			cancel()
		})
	}
	if cfg.ScoringProfilesFile != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return app.Profiles.Watch(watchCtx, cfg.ScoringProfilesFile, app.Log)
		}, func(error) {
			cancel()
		})
	}
	{
		sigCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigs)
			select {
			case sig := <-sigs:
				app.Log.Info("signal received", zap.String("signal", sig.String()))
				return nil
			case <-sigCtx.Done():
				return nil
			}
		}, func(error) {
			cancel()
		})
	}
	return g.Run()
}
