package main

import (
	"context"
	"os"
	"path/filepath"

	"go-forms/internal/config"
	"go-forms/internal/database"
	"go-forms/internal/features/audit"
	"go-forms/internal/features/export"
	"go-forms/internal/features/submission"
	"go-forms/internal/features/template"
	"go-forms/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Export writes every submission of the given template slug to an xlsx file
// under the configured export directory.
func Export(
	lc fx.Lifecycle,
	cfg *config.Config,
	exportService export.ExportService,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				if len(os.Args) < 2 {
					logger.Error("Usage: export <template-slug>")
					return
				}
				slug := os.Args[1]

				data, filename, err := exportService.ExportSubmissions(ctx, slug)
				if err != nil {
					logger.Error("Export failed", zap.String("slug", slug), zap.Error(err))
					return
				}

				if err := os.MkdirAll(cfg.ExportPath, 0o755); err != nil {
					logger.Error("Failed to create export directory", zap.Error(err))
					return
				}
				path := filepath.Join(cfg.ExportPath, filename)
				if err := os.WriteFile(path, data, 0o644); err != nil {
					logger.Error("Failed to write export file", zap.Error(err))
					return
				}

				logger.Info("Export written", zap.String("path", path), zap.Int("bytes", len(data)))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			audit.NewAuditRepository,
			audit.NewAuditService,
			template.NewTemplateRepository,
			template.NewTemplateService,
			submission.NewSubmissionRepository,
			export.NewExportService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Export),
	)

	app.Run()
}
