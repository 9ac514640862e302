package template

import (
	"context"
	"fmt"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/features/audit"
	"go-forms/internal/features/workflow"
	"go-forms/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type TemplateService interface {
	CreateTemplate(ctx context.Context, template *FormTemplate) error
	GetTemplate(ctx context.Context, id string) (*FormTemplate, error)
	GetPublished(ctx context.Context, slug string) (*FormTemplate, error)
	GetVersion(ctx context.Context, slug string, version int) (*FormTemplate, error)
	ListTemplates(ctx context.Context) ([]FormTemplate, error)
	UpdateTemplate(ctx context.Context, template *FormTemplate) error
	PublishTemplate(ctx context.Context, id string) (*FormTemplate, error)
	NewVersion(ctx context.Context, id string) (*FormTemplate, error)
}

type TemplateServiceImpl struct {
	Repo         TemplateRepository
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewTemplateService(repo TemplateRepository, auditService audit.AuditService, logger *zap.Logger) TemplateService {
	return &TemplateServiceImpl{
		Repo:         repo,
		AuditService: auditService,
		Logger:       logger,
	}
}

func (s *TemplateServiceImpl) CreateTemplate(ctx context.Context, template *FormTemplate) error {
	if template.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if template.Slug == "" {
		template.Slug = utils.Slugify(template.Name)
	}

	latest, err := s.Repo.LatestVersion(ctx, template.Slug)
	if err != nil {
		return err
	}
	template.Version = latest + 1
	template.Published = false

	if err := validateWorkflow(template.Workflow); err != nil {
		return err
	}

	if err := s.Repo.Create(ctx, template); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, models.AuditActionCreate, "form_templates", template.ID.Hex(), map[string]models.Change{
		"template": {New: template.Slug},
	})
	s.Logger.Info("template created", zap.String("slug", template.Slug), zap.Int("version", template.Version))
	return nil
}

func (s *TemplateServiceImpl) GetTemplate(ctx context.Context, id string) (*FormTemplate, error) {
	return s.Repo.Get(ctx, id)
}

func (s *TemplateServiceImpl) GetPublished(ctx context.Context, slug string) (*FormTemplate, error) {
	return s.Repo.GetPublished(ctx, slug)
}

func (s *TemplateServiceImpl) GetVersion(ctx context.Context, slug string, version int) (*FormTemplate, error) {
	return s.Repo.GetVersion(ctx, slug, version)
}

func (s *TemplateServiceImpl) ListTemplates(ctx context.Context) ([]FormTemplate, error) {
	return s.Repo.List(ctx)
}

// UpdateTemplate replaces a draft version. Published versions are frozen;
// changing one requires NewVersion.
func (s *TemplateServiceImpl) UpdateTemplate(ctx context.Context, template *FormTemplate) error {
	existing, err := s.Repo.Get(ctx, template.ID.Hex())
	if err != nil {
		return err
	}
	if existing.Published {
		return ErrTemplatePublished
	}

	// Slug and version identify the document; they never change on update.
	template.Slug = existing.Slug
	template.Version = existing.Version
	template.Published = false
	template.CreatedAt = existing.CreatedAt

	if err := validateWorkflow(template.Workflow); err != nil {
		return err
	}

	if err := s.Repo.Replace(ctx, template); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, models.AuditActionUpdate, "form_templates", template.ID.Hex(), map[string]models.Change{
		"template": {Old: existing.UpdatedAt, New: template.Slug},
	})
	return nil
}

// PublishTemplate freezes the version. From here on every field, rule and
// workflow step of this version is immutable.
func (s *TemplateServiceImpl) PublishTemplate(ctx context.Context, id string) (*FormTemplate, error) {
	template, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if template.Published {
		return template, nil
	}

	if err := validateWorkflow(template.Workflow); err != nil {
		return nil, err
	}

	now := time.Now()
	template.Published = true
	template.PublishedAt = &now

	if err := s.Repo.Replace(ctx, template); err != nil {
		return nil, err
	}

	s.AuditService.LogChange(ctx, models.AuditActionUpdate, "form_templates", id, map[string]models.Change{
		"published": {Old: false, New: true},
	})
	s.Logger.Info("template published", zap.String("slug", template.Slug), zap.Int("version", template.Version))
	return template, nil
}

// NewVersion clones a version into a fresh unpublished draft.
func (s *TemplateServiceImpl) NewVersion(ctx context.Context, id string) (*FormTemplate, error) {
	source, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	latest, err := s.Repo.LatestVersion(ctx, source.Slug)
	if err != nil {
		return nil, err
	}

	draft := *source
	draft.ID = primitive.NewObjectID()
	draft.Version = latest + 1
	draft.Published = false
	draft.PublishedAt = nil

	if err := s.Repo.Create(ctx, &draft); err != nil {
		return nil, err
	}

	s.AuditService.LogChange(ctx, models.AuditActionCreate, "form_templates", draft.ID.Hex(), map[string]models.Change{
		"version": {Old: source.Version, New: draft.Version},
	})
	return &draft, nil
}

// validateWorkflow rejects step graphs the engine would fail fast on at run
// time: no start step, dangling action targets, approval steps without a
// chain config.
func validateWorkflow(config workflow.WorkflowConfig) error {
	if len(config.Steps) == 0 {
		return nil
	}

	steps := make(map[string]workflow.WorkflowStep, len(config.Steps))
	starts := 0
	for _, step := range config.Steps {
		if _, dup := steps[step.ID]; dup {
			return fmt.Errorf("duplicate workflow step id %q", step.ID)
		}
		steps[step.ID] = step
		if step.Kind == workflow.StepStart {
			starts++
		}
	}
	if starts != 1 {
		return fmt.Errorf("workflow needs exactly one start step, found %d", starts)
	}

	for _, step := range config.Steps {
		if step.Kind == workflow.StepApproval && step.Approval == nil {
			return fmt.Errorf("approval step %q has no approval config", step.ID)
		}
		for _, action := range step.Actions {
			if _, ok := steps[action.TargetStepID]; !ok {
				return fmt.Errorf("action %q on step %q targets unknown step %q", action.ID, step.ID, action.TargetStepID)
			}
		}
	}
	return nil
}
