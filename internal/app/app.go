// Package app wires configuration, storage, clients, and services into one
// runnable application core.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thebunny221/smartcms-export/internal/clients/cms"
	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/diagnostics"
	"github.com/thebunny221/smartcms-export/internal/generators"
	"github.com/thebunny221/smartcms-export/internal/interfaces"
	"github.com/thebunny221/smartcms-export/internal/services/export"
	"github.com/thebunny221/smartcms-export/internal/storage/historydb"
	"github.com/thebunny221/smartcms-export/internal/template"
)

// App holds all initialized services and clients. It is the shared core
// behind cmd/export-server.
type App struct {
	Config        *common.Config
	Logger        *common.Logger
	History       interfaces.HistoryStore
	CMSClient     interfaces.ComplaintSource
	Registry      *template.Registry
	Loader        interfaces.TemplateLoader
	ExportService *export.Service
	Diagnostics   *diagnostics.Runner
	StartupTime   time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes the full application. configPath may be empty, in which
// case EXPORTD_CONFIG, then the binary directory, then the development
// fallback are tried in order.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("EXPORTD_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "exportd.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/exportd.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative data paths to the binary directory
	if config.History.Path != "" && !filepath.IsAbs(config.History.Path) {
		config.History.Path = filepath.Join(binDir, config.History.Path)
	}
	if config.Templates.Dir != "" && !filepath.IsAbs(config.Templates.Dir) {
		if _, err := os.Stat(config.Templates.Dir); os.IsNotExist(err) {
			config.Templates.Dir = filepath.Join(binDir, config.Templates.Dir)
		}
	}

	logger := common.NewLogger(config.Logging.Level)

	history, err := historydb.NewStore(logger, config.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export history: %w", err)
	}

	client := cms.NewClient(
		cms.WithBaseURL(config.CMS.BaseURL),
		cms.WithServiceToken(config.CMS.ServiceToken),
		cms.WithRateLimit(config.CMS.RateLimit),
		cms.WithTimeout(config.CMS.GetTimeout()),
		cms.WithLogger(logger),
	)

	registry := template.DefaultRegistry(config.Templates.Dir)
	loader := template.NewLoader(logger)

	pdfGen := generators.NewPDFGenerator(config.Export.PDFRecordCap)
	gens := []interfaces.Generator{
		generators.NewCSVGenerator(),
		generators.NewExcelGenerator(),
		pdfGen,
		generators.NewHTMLGenerator(registry, loader, generators.DefaultHTMLTemplateID),
	}

	exportService := export.NewService(client, gens, history, config, logger)

	runner := diagnostics.NewRunner(
		registry,
		loader,
		client,
		history,
		exportService.Capabilities,
		pdfGen,
		logger,
	)

	app := &App{
		Config:        config,
		Logger:        logger,
		History:       history,
		CMSClient:     client,
		Registry:      registry,
		Loader:        loader,
		ExportService: exportService,
		Diagnostics:   runner,
		StartupTime:   time.Now(),
	}

	logger.Info().
		Str("version", common.GetFullVersion()).
		Str("environment", config.Environment).
		Str("cms", config.CMS.BaseURL).
		Msg("Application initialized")

	return app, nil
}

// Start launches background loops (WebSocket hub, stuck-export sweeper).
func (a *App) Start() {
	a.ExportService.Start()
}

// Close stops background loops and releases resources.
func (a *App) Close() {
	a.ExportService.Stop()
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close export history")
		}
	}
	a.Logger.Info().Msg("Application closed")
}
