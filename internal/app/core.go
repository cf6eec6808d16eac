package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garyellow/school-records-go/internal/archive"
	"github.com/garyellow/school-records-go/internal/chat"
	"github.com/garyellow/school-records-go/internal/config"
	"github.com/garyellow/school-records-go/internal/constancia"
	"github.com/garyellow/school-records-go/internal/genai"
	"github.com/garyellow/school-records-go/internal/intent"
	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/metrics"
	"github.com/garyellow/school-records-go/internal/modules/alumnos"
	"github.com/garyellow/school-records-go/internal/preview"
	"github.com/garyellow/school-records-go/internal/ratelimit"
	"github.com/garyellow/school-records-go/internal/sqltemplate"
	"github.com/garyellow/school-records-go/internal/storage"
)

// Core holds the process-wide collaborators shared by every chat session.
// Sessions own only their stack, pending prompts and preview machine.
type Core struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *storage.DB
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	templates *sqltemplate.Registry
	generator *genai.FallbackGenerator // nil when no provider is configured
	detector  *intent.Detector
	handler   *alumnos.Handler
	service   constancia.Service
	cleaner   *preview.Cleaner
	archiver  preview.Archiver // nil when archiving is disabled
	quota     *ratelimit.Quota
	opener    preview.FileOpener
}

// CoreOptions overrides pieces of the default wiring. Zero values keep the defaults.
type CoreOptions struct {
	// Generator replaces the provider chain built from cfg.LLM.
	Generator genai.TextGenerator
	// Service replaces the constancia generator built from cfg.Constancia.
	Service constancia.Service
	// Store replaces the S3 store built from cfg.Archive.
	Store archive.ObjectStore
	// Opener replaces the platform file opener.
	Opener preview.FileOpener
}

// NewCore opens the database and wires the chat stack. The caller owns the
// returned Core and must Close it.
func NewCore(ctx context.Context, cfg *config.Config, log *logger.Logger, opts CoreOptions) (*Core, error) {
	for _, dir := range []string{cfg.ConstanciasDir, cfg.TempDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	db, err := storage.New(ctx, cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.Info("database connected", slog.String("path", cfg.DatabasePath))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	templates, err := sqltemplate.DefaultRegistry()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("template registry: %w", err)
	}
	executor := sqltemplate.NewExecutor(templates, db, log, m)

	c := &Core{
		cfg:       cfg,
		logger:    log,
		db:        db,
		registry:  registry,
		metrics:   m,
		templates: templates,
		cleaner:   preview.NewCleaner(log),
		opener:    opts.Opener,
	}

	gen := opts.Generator
	if gen == nil {
		fg, err := genai.CreateGenerator(ctx, genai.FromConfig(cfg.LLM), m)
		if err != nil {
			log.WithError(err).Warn("text generator initialization failed")
		}
		if fg != nil {
			c.generator = fg
			gen = fg
		}
	}
	if gen == nil {
		log.Warn("no LLM provider configured, every turn will fail detection")
	}

	students, err := db.CountStudents(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to count students for prompt context")
	}
	prompts := intent.NewPromptManager(intent.SchoolInfo{
		Name:         cfg.SchoolName,
		CCT:          cfg.SchoolCCT,
		StudentCount: students,
	})
	c.detector = intent.NewDetector(gen, prompts,
		intent.WithTimeout(cfg.LLM.Timeout),
		intent.WithLogger(log),
		intent.WithMetrics(m))

	c.service = opts.Service
	if c.service == nil {
		c.service = constancia.NewGenerator(db, constancia.Options{
			School:    constancia.SchoolInfo{Name: cfg.SchoolName, CCT: cfg.SchoolCCT},
			OutputDir: cfg.ConstanciasDir,
			TempDir:   cfg.TempDir,
			Converter: constancia.CommandConverter{Command: cfg.Constancia.ConverterCommand},
			Extractor: constancia.CommandExtractor{Command: cfg.Constancia.ExtractorCommand},
			Logger:    log,
		})
	}
	if c.opener == nil {
		c.opener = preview.SystemOpener{Command: cfg.Constancia.OpenerCommand}
	}

	if cfg.Archive.Enabled || opts.Store != nil {
		store := opts.Store
		if store == nil {
			s3Store, err := archive.NewS3Store(ctx, archive.Config{
				Endpoint:        cfg.Archive.Endpoint,
				AccountID:       cfg.Archive.AccountID,
				AccessKeyID:     cfg.Archive.AccessKeyID,
				SecretAccessKey: cfg.Archive.SecretAccessKey,
				Bucket:          cfg.Archive.Bucket,
			})
			if err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("archive: %w", err)
			}
			store = s3Store
		}
		c.archiver = archive.NewArchiver(store, cfg.Archive.Prefix, log)
		log.Info("constancia archiving enabled", slog.String("bucket", cfg.Archive.Bucket))
	}

	c.quota = ratelimit.NewQuota(ratelimit.QuotaConfig{
		Burst:           cfg.Chat.LLMBurstTokens,
		RefillPerMinute: cfg.Chat.LLMRefillPerMinute,
		DailyLimit:      cfg.Chat.LLMDailyLimit,
	}, m)

	c.handler = alumnos.NewHandler(executor, c.service, cfg.Chat.PageSize, log)
	return c, nil
}

// NewEngine builds the engine of one session with its own preview machine.
func (c *Core) NewEngine(id string) *chat.Engine {
	opts := preview.Options{
		SaveDir:  c.cfg.ConstanciasDir,
		Opener:   c.opener,
		Archiver: c.archiver,
		Cleaner:  c.cleaner,
		Logger:   c.logger,
		Metrics:  c.metrics,
	}
	return chat.NewEngine(id, chat.Deps{
		Detector:      c.detector,
		Router:        c.handler,
		Preview:       preview.NewMachine(c.service, opts),
		Quota:         c.quota,
		Registry:      c.templates,
		Logger:        c.logger,
		Metrics:       c.metrics,
		StackCapacity: c.cfg.Chat.StackCapacity,
	})
}

// DB returns the database.
func (c *Core) DB() *storage.DB {
	return c.db
}

// Registry returns the Prometheus registry.
func (c *Core) Registry() *prometheus.Registry {
	return c.registry
}

// Metrics returns the metrics recorder.
func (c *Core) Metrics() *metrics.Metrics {
	return c.metrics
}

// Features reports which optional components are active.
func (c *Core) Features() map[string]bool {
	return map[string]bool{
		"llm":     c.detector.HasGenerator(),
		"archive": c.archiver != nil,
	}
}

// Close flushes deferred temp-file deletions and releases the generator and database.
func (c *Core) Close() error {
	var errs []error
	if err := c.cleaner.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("cleanup temp files: %w", err))
	}
	if c.generator != nil {
		if err := c.generator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close generator: %w", err))
		}
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
