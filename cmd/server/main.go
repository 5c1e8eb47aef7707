package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/machine-analytics/backend/internal/analytics"
	"github.com/machine-analytics/backend/internal/api"
	"github.com/machine-analytics/backend/internal/config"
	"github.com/machine-analytics/backend/internal/ingest"
	"github.com/machine-analytics/backend/internal/logger"
	"github.com/machine-analytics/backend/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "MachineAnalytics.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("machine-analytics", logger.ParseLevel(cfg.Advanced.LogLevel))

	if err := cfg.EnsureDirectories(); err != nil {
		log.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	taxonomy, err := config.LoadTaxonomy(cfg.Analytics.TaxonomyFile)
	if err != nil {
		log.Error("failed to load status taxonomy", "path", cfg.Analytics.TaxonomyFile, "error", err)
		os.Exit(1)
	}

	engine, err := analytics.NewEngine(analytics.Options{
		Taxonomy:      taxonomy,
		FrequencyStep: cfg.Analytics.FrequencyStepHz,
	})
	if err != nil {
		log.Error("invalid analytics configuration", "error", err)
		os.Exit(1)
	}

	store, err := openStore(cfg, log)
	if err != nil {
		log.Error("failed to initialize storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Metrics
	var (
		apiMetrics    *api.Metrics
		ingestMetrics *ingest.Metrics
	)
	if cfg.Advanced.EnableMetrics {
		if apiMetrics, err = api.NewMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer); err != nil {
			log.Error("failed to register api metrics", "error", err)
			os.Exit(1)
		}
		if ingestMetrics, err = ingest.NewMetrics(prometheus.DefaultRegisterer); err != nil {
			log.Error("failed to register ingest metrics", "error", err)
			os.Exit(1)
		}
	}

	importMgr := ingest.NewManager(store, log, ingestMetrics)
	importMgr.SetMaxInflatedBytes(int64(cfg.Processing.MaxInflatedSizeMB) << 20)

	// Seed data on startup
	if cfg.Storage.SeedFile != "" {
		seedStore(importMgr, cfg.Storage.SeedFile, log)
	}

	// Start background job cleanup
	cleanupEvery := time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute
	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(cleanupEvery)
		defer ticker.Stop()
		for range ticker.C {
			if n := importMgr.CleanupOldJobs(time.Duration(cfg.Processing.JobRetentionMinutes) * time.Minute); n > 0 {
				log.Debug("import jobs pruned", "count", n)
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true

	var origins []string
	if cfg.Server.EnableCORS {
		for _, o := range strings.Split(cfg.Server.AllowOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	compression := 0
	if cfg.Processing.EnableCompression {
		compression = cfg.Processing.CompressionLevel
	}

	api.SetupMiddleware(e, api.MiddlewareOptions{
		Logger:           log,
		RequestLogging:   cfg.Advanced.EnableRequestLogging,
		AllowOrigins:     origins,
		BodyLimit:        cfg.Server.BodyLimit,
		Timeout:          time.Duration(cfg.Server.ReadTimeout) * time.Second,
		CompressionLevel: compression,
		Metrics:          apiMetrics,
	})

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:   store,
		Engine:  engine,
		Imports: importMgr,
		Logger:  log,
		Version: Version,
		Demo: api.DemoSettings{
			MaxFrequency: cfg.Analytics.DemoMaxFrequency,
			Step:         cfg.Analytics.DemoStepHz,
		},
		Stream: api.StreamSettings{
			MaxMessageSize: int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024,
			Refresh:        time.Duration(cfg.Advanced.DashboardRefreshSeconds) * time.Second,
		},
		Metrics: apiMetrics,
	}))

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Machine Analytics Server                        ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Storage:    %-45s║\n", cfg.Storage.Backend)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// openStore selects the repository backend from config.
func openStore(cfg *config.AppConfig, log *slog.Logger) (storage.Repository, error) {
	switch cfg.Storage.Backend {
	case "memory":
		log.Info("using in-memory storage")
		return storage.NewMemoryStore(), nil
	default:
		return storage.OpenDuckStore(cfg.Storage.DatabaseFile, storage.DuckOptions{
			Threads:     cfg.Advanced.DuckDBThreads,
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
		}, log)
	}
}

// seedStore imports the configured dataset before the server accepts requests.
// Failures are logged; the server still starts.
func seedStore(mgr *ingest.Manager, path string, log *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("seed file not loaded", "path", path, "error", err)
		return
	}

	job := mgr.Import(filepath.Base(path), data)
	if job.Status != ingest.StatusComplete {
		log.Warn("seed import failed", "path", path, "error", job.Error)
		return
	}
	log.Info("seed data imported", "machines", job.Machines, "bearings", job.Bearings, "readings", job.ReadingsStored)
}

