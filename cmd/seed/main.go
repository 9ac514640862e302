package main

import (
	"context"

	"go-forms/internal/common/models"
	"go-forms/internal/config"
	"go-forms/internal/database"
	"go-forms/internal/features/approval"
	"go-forms/internal/features/assignment"
	"go-forms/internal/features/audit"
	"go-forms/internal/features/conditional"
	"go-forms/internal/features/notification"
	"go-forms/internal/features/rules"
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

// Seed creates and publishes a demo IT support request template with a
// webhook subscription, then files one submission against it so a fresh
// database has data to explore.
func Seed(
	lc fx.Lifecycle,
	templateService template.TemplateService,
	submissionService submission.SubmissionService,
	webhookService webhook.WebhookService,
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

				logger.Info("Seeding demo form template...")

				if err := seedWebhook(ctx, webhookService); err != nil {
					logger.Error("Failed to seed webhook", zap.Error(err))
					return
				}

				if existing, err := templateService.GetPublished(ctx, "it-support-request"); err == nil {
					logger.Info("Template exists, skipping",
						zap.String("slug", existing.Slug), zap.Int("version", existing.Version))
					return
				}

				tpl := demoTemplate()
				if err := templateService.CreateTemplate(ctx, tpl); err != nil {
					logger.Error("Failed to create template", zap.Error(err))
					return
				}
				if _, err := templateService.PublishTemplate(ctx, tpl.ID.Hex()); err != nil {
					logger.Error("Failed to publish template", zap.Error(err))
					return
				}

				sub, result, err := submissionService.Submit(ctx, submission.SubmitInput{
					TemplateSlug: tpl.Slug,
					Data: map[string]interface{}{
						"title":         "Laptop will not boot after update",
						"description":   "Black screen on startup since this morning",
						"priority":      "medium",
						"contact_email": "demo@example.com",
						"site":          "HQ",
					},
					User: models.UserContext{ID: "demo-user", Roles: []string{"employee"}},
				})
				if err != nil {
					logger.Error("Failed to create demo submission", zap.Error(err))
					return
				}
				if !result.Valid {
					logger.Error("Demo submission failed validation", zap.Any("errors", result.Errors))
					return
				}

				logger.Info("Seeding complete",
					zap.String("slug", tpl.Slug), zap.Int("version", tpl.Version),
					zap.String("submission", sub.ID.Hex()))
			}()
			return nil
		},
	})
}

const demoWebhookURL = "http://localhost:9090/hooks/forms"

// seedWebhook registers the demo delivery endpoint once; payloads are signed
// with the WEBHOOK_SECRET fallback since the subscription carries no key.
func seedWebhook(ctx context.Context, svc webhook.WebhookService) error {
	existing, err := svc.ListWebhooks(ctx)
	if err != nil {
		return err
	}
	for _, wh := range existing {
		if wh.URL == demoWebhookURL {
			return nil
		}
	}

	return svc.CreateWebhook(ctx, &webhook.Webhook{
		Name:     "Demo submission feed",
		URL:      demoWebhookURL,
		Template: "it-support-request",
		Events: []string{
			"submission.submitted",
			"submission.transitioned",
			"submission.approval",
			"submission.escalated",
		},
	})
}

func demoTemplate() *template.FormTemplate {
	highPriority := &models.ConditionGroup{
		Operator: models.GroupAnd,
		Conditions: []models.Condition{
			{Field: "priority", Operator: models.OpEquals, Value: "high"},
		},
	}

	return &template.FormTemplate{
		Name:        "IT Support Request",
		Description: "Hardware and software issues routed to the IT desk",
		Fields: []models.SmartField{
			{Name: "title", Label: "Title", Type: models.FieldTypeText, Required: true},
			{Name: "description", Label: "Description", Type: models.FieldTypeText},
			{Name: "priority", Label: "Priority", Type: models.FieldTypeSelect, Required: true,
				Options: []models.SelectOption{
					{Value: "low", Label: "Low"},
					{Value: "medium", Label: "Medium"},
					{Value: "high", Label: "High"},
				}},
			{Name: "impact_details", Label: "Business impact", Type: models.FieldTypeText},
			{Name: "contact_email", Label: "Contact email", Type: models.FieldTypeEmail, Required: true},
			{Name: "site", Label: "Site", Type: models.FieldTypeText},
		},
		ConditionalRules: []conditional.ConditionalRule{
			{
				ID: "show-impact", Name: "Show impact for high priority", Order: 1,
				Condition: *highPriority,
				Actions: []conditional.RuleAction{
					{Type: conditional.ActionShowField, Field: "impact_details"},
					{Type: conditional.ActionSetRequired, Field: "impact_details"},
				},
			},
		},
		ValidationRules: []validation.ValidationRule{
			{ID: "title-length", Fields: []string{"title"}, Kind: validation.ValidatorMinLength,
				Value: 5, Message: "Title must be at least 5 characters"},
			{ID: "impact-for-urgent", Fields: []string{"impact_details"}, Kind: validation.ValidatorCustom,
				Script:  `valid = data.priority != "high" || len(value) >= 20`,
				Message: "High priority requests need a real impact description"},
		},
		Workflow: workflow.WorkflowConfig{Steps: []workflow.WorkflowStep{
			{
				ID: "intake", Name: "Intake", Kind: workflow.StepStart,
				Actions: []workflow.WorkflowAction{
					{ID: "triage", Name: "Triage", TargetStepID: "work", AutoAssign: true},
				},
			},
			{
				ID: "work", Name: "In progress", Kind: workflow.StepTask,
				AssignmentRuleID: "it-desk",
				Actions: []workflow.WorkflowAction{
					{ID: "resolve", Name: "Resolve", TargetStepID: "review"},
				},
			},
			{
				ID: "review", Name: "Manager review", Kind: workflow.StepApproval,
				Approval: &approval.ApprovalConfig{Levels: []approval.ApprovalLevel{
					{Name: "IT Manager", Kind: approval.LevelSequential,
						ApproverRoles: []string{"it_manager"}, EscalateAfterMinutes: 240},
				}},
				Actions: []workflow.WorkflowAction{
					{ID: "close", Name: "Close", TargetStepID: "done"},
					{ID: "rework", Name: "Send back", TargetStepID: "work"},
				},
			},
			{ID: "done", Name: "Done", Kind: workflow.StepEnd, TerminalStatus: models.StatusCompleted},
		}},
		AssignmentRules: []assignment.AssignmentRule{
			{
				ID: "it-desk", Name: "IT desk rotation", Strategy: assignment.StrategyRoundRobin,
				Candidates: []assignment.Candidate{
					{ID: "agent-ana", Name: "Ana"},
					{ID: "agent-bo", Name: "Bo"},
					{ID: "agent-cy", Name: "Cy"},
				},
			},
		},
		BusinessRules: []rules.BusinessRule{
			{
				ID: "notify-desk", Name: "Notify desk on submit", Enabled: true,
				Priority: 10, Trigger: rules.TriggerOnSubmit,
				Actions: []rules.RuleAction{
					{Type: rules.ActionNotify, Config: map[string]interface{}{
						"user_id": "it-desk-lead", "title": "New IT request",
					}},
				},
			},
			{
				ID: "urgent-sla", Name: "Tag urgent SLA", Enabled: true,
				Priority: 5, Trigger: rules.TriggerOnSubmit, Condition: highPriority,
				Actions: []rules.RuleAction{
					{Type: rules.ActionSetFieldValue, Config: map[string]interface{}{
						"field": "sla_hours", "value": 4,
					}},
				},
			},
		},
		CreatedBy: "seed",
	}
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			audit.NewAuditRepository,
			template.NewTemplateRepository,
			submission.NewSubmissionRepository,
			notification.NewNotificationRepository,
			task.NewTaskRepository,
			webhook.NewWebhookRepository,
			webhook.NewWebhookLogRepository,
			conditional.NewEngine,
			validation.NewEngine,
			assignment.NewEngine,
			approval.NewEngine,
			workflow.NewEngine,
			rules.NewEngine,
			audit.NewAuditService,
			template.NewTemplateService,
			notification.NewNotificationService,
			task.NewTaskService,
			webhook.NewWebhookService,
			submission.NewSubmissionService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
