// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/garyellow/school-records-go/internal/buildinfo"
	"github.com/garyellow/school-records-go/internal/chat"
	"github.com/garyellow/school-records-go/internal/config"
	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/sentry"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg       *config.Config
	logger    *logger.Logger
	core      *Core
	sessions  *chat.Manager
	router    *gin.Engine
	server    *http.Server
	uploadDir string
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(logger.Options{
		Level:               cfg.LogLevel,
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "school-records")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context calls pick up the session and request IDs.
	slog.SetDefault(log.Logger)

	log.Info("initializing application", slog.String("version", buildinfo.String()))
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("better stack logging enabled")
	}

	core, err := NewCore(ctx, cfg, log, CoreOptions{})
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	app := newApplication(cfg, log, core)
	log.Info("initialization complete")
	return app, nil
}

// newApplication builds the session manager, router and HTTP server around core.
func newApplication(cfg *config.Config, log *logger.Logger, core *Core) *Application {
	app := &Application{
		cfg:       cfg,
		logger:    log,
		core:      core,
		sessions:  chat.NewManager(core.NewEngine, core.Metrics()),
		uploadDir: filepath.Join(cfg.TempDir, "uploads"),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))

	router.GET("/livez", app.livenessCheck)
	router.HEAD("/livez", app.livenessCheck)
	router.GET("/readyz", app.readinessCheck)
	router.HEAD("/readyz", app.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(cfg.MetricsPassword != "", cfg.MetricsUsername, cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(core.Registry(), promhttp.HandlerOpts{})))

	app.registerSessionRoutes(router.Group("/api"))
	app.router = router

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: config.HTTPReadHeader,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}
	return app
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"version": buildinfo.String(),
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.core.DB().Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	students, err := a.core.DB().CountStudents(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("failed to count students for readiness")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"students": students,
		"sessions": a.sessions.Len(),
		"features": a.core.Features(),
	})
}

// Run starts the HTTP server and the session janitor, and blocks until
// SIGINT/SIGTERM or a server failure.
//
// Shutdown order:
//  1. Stop accepting requests and drain in-flight turns
//  2. Close every session (deletes preview temp files)
//  3. Close the core (deferred deletions, generator, database)
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("port", a.cfg.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.janitor(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		//nolint:contextcheck // the server must drain after the run context is done
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if closeErr := a.shutdown(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}

// janitor closes idle sessions until ctx is done.
func (a *Application) janitor(ctx context.Context) {
	a.logger.Debug("session janitor started")
	defer a.logger.Debug("session janitor stopped")

	ticker := time.NewTicker(a.cfg.Chat.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweepIdle()
		}
	}
}

func (a *Application) sweepIdle() int {
	closed := a.sessions.CloseIdle(a.cfg.Chat.SessionIdleTTL)
	if closed > 0 {
		a.logger.Info("closed idle sessions",
			slog.Int("closed", closed),
			slog.Int("open", a.sessions.Len()))
	}
	return closed
}

// shutdown releases sessions and resources. Call after the server has stopped.
func (a *Application) shutdown() error {
	a.logger.Info("closing sessions", slog.Int("open", a.sessions.Len()))
	a.sessions.CloseAll()

	var errs []error
	if err := os.RemoveAll(a.uploadDir); err != nil {
		errs = append(errs, fmt.Errorf("remove uploads: %w", err))
	}
	if err := a.core.Close(); err != nil {
		errs = append(errs, err)
	}
	if sentry.IsEnabled() && !sentry.Flush(2*time.Second) {
		a.logger.Warn("sentry flush timed out")
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.WithError(err).Error("shutdown completed with errors")
	} else {
		a.logger.Info("shutdown complete")
	}
	return err
}
