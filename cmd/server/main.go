package main

import (
	"context"

	"go-forms/internal/config"
	"go-forms/internal/database"
	"go-forms/internal/features/approval"
	"go-forms/internal/features/assignment"
	"go-forms/internal/features/audit"
	"go-forms/internal/features/conditional"
	"go-forms/internal/features/notification"
	"go-forms/internal/features/rules"
	"go-forms/internal/features/scheduler"
	"go-forms/internal/features/submission"
	"go-forms/internal/features/task"
	"go-forms/internal/features/template"
	"go-forms/internal/features/validation"
	"go-forms/internal/features/webhook"
	"go-forms/internal/features/workflow"
	"go-forms/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repositories
			audit.NewAuditRepository,
			template.NewTemplateRepository,
			submission.NewSubmissionRepository,
			notification.NewNotificationRepository,
			task.NewTaskRepository,
			webhook.NewWebhookRepository,
			webhook.NewWebhookLogRepository,

			// Pure engines
			conditional.NewEngine,
			validation.NewEngine,
			assignment.NewEngine,
			approval.NewEngine,
			workflow.NewEngine,
			rules.NewEngine,

			// Services
			audit.NewAuditService,
			template.NewTemplateService,
			notification.NewNotificationService,
			task.NewTaskService,
			webhook.NewWebhookService,
			submission.NewSubmissionService,
			scheduler.NewSchedulerService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(lc fx.Lifecycle, schedulerService scheduler.SchedulerService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return schedulerService.InitializeScheduler(ctx)
					},
					OnStop: func(ctx context.Context) error {
						return schedulerService.StopScheduler()
					},
				})
			},
		),
	)

	app.Run()
}
