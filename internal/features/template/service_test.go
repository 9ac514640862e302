package template

import (
	"context"
	"errors"
	"testing"

	"go-forms/internal/common/models"
	"go-forms/internal/features/approval"
	"go-forms/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeTemplateRepo struct {
	docs map[string]*FormTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{docs: make(map[string]*FormTemplate)}
}

func (r *fakeTemplateRepo) Create(ctx context.Context, t *FormTemplate) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	copied := *t
	r.docs[t.ID.Hex()] = &copied
	return nil
}

func (r *fakeTemplateRepo) Get(ctx context.Context, id string) (*FormTemplate, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeTemplateRepo) GetVersion(ctx context.Context, slug string, version int) (*FormTemplate, error) {
	for _, doc := range r.docs {
		if doc.Slug == slug && doc.Version == version {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, ErrTemplateNotFound
}

func (r *fakeTemplateRepo) GetPublished(ctx context.Context, slug string) (*FormTemplate, error) {
	var best *FormTemplate
	for _, doc := range r.docs {
		if doc.Slug == slug && doc.Published && (best == nil || doc.Version > best.Version) {
			best = doc
		}
	}
	if best == nil {
		return nil, ErrTemplateNotFound
	}
	copied := *best
	return &copied, nil
}

func (r *fakeTemplateRepo) List(ctx context.Context) ([]FormTemplate, error) {
	out := make([]FormTemplate, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (r *fakeTemplateRepo) ListPublished(ctx context.Context) ([]FormTemplate, error) {
	var out []FormTemplate
	for _, doc := range r.docs {
		if doc.Published {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeTemplateRepo) Replace(ctx context.Context, t *FormTemplate) error {
	if _, ok := r.docs[t.ID.Hex()]; !ok {
		return ErrTemplateNotFound
	}
	copied := *t
	r.docs[t.ID.Hex()] = &copied
	return nil
}

func (r *fakeTemplateRepo) LatestVersion(ctx context.Context, slug string) (int, error) {
	latest := 0
	for _, doc := range r.docs {
		if doc.Slug == slug && doc.Version > latest {
			latest = doc.Version
		}
	}
	return latest, nil
}

type noopAudit struct{}

func (noopAudit) LogChange(ctx context.Context, action models.AuditAction, module, recordID string, changes map[string]models.Change) error {
	return nil
}

func (noopAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]models.AuditLog, error) {
	return nil, nil
}

func newTestService() (TemplateService, *fakeTemplateRepo) {
	repo := newFakeTemplateRepo()
	return NewTemplateService(repo, noopAudit{}, zap.NewNop()), repo
}

func minimalWorkflow() workflow.WorkflowConfig {
	return workflow.WorkflowConfig{Steps: []workflow.WorkflowStep{
		{ID: "open", Kind: workflow.StepStart, Actions: []workflow.WorkflowAction{
			{ID: "finish", TargetStepID: "closed"},
		}},
		{ID: "closed", Kind: workflow.StepEnd, TerminalStatus: models.StatusCompleted},
	}}
}

func TestCreateTemplateAssignsSlugAndVersion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := &FormTemplate{Name: "Change Request", Workflow: minimalWorkflow()}
	if err := svc.CreateTemplate(ctx, first); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if first.Slug != "change-request" {
		t.Errorf("slug = %q, want change-request", first.Slug)
	}
	if first.Version != 1 {
		t.Errorf("version = %d, want 1", first.Version)
	}
	if first.Published {
		t.Error("new template must start unpublished")
	}

	second := &FormTemplate{Name: "Change Request", Workflow: minimalWorkflow()}
	if err := svc.CreateTemplate(ctx, second); err != nil {
		t.Fatalf("CreateTemplate second: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("second version = %d, want 2", second.Version)
	}
}

func TestPublishFreezesTemplate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tpl := &FormTemplate{Name: "Leave Request", Workflow: minimalWorkflow()}
	if err := svc.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	published, err := svc.PublishTemplate(ctx, tpl.ID.Hex())
	if err != nil {
		t.Fatalf("PublishTemplate: %v", err)
	}
	if !published.Published || published.PublishedAt == nil {
		t.Fatalf("publish did not freeze the version: %+v", published)
	}

	// Publishing again is a no-op, not an error.
	again, err := svc.PublishTemplate(ctx, tpl.ID.Hex())
	if err != nil {
		t.Fatalf("second PublishTemplate: %v", err)
	}
	if !again.Published {
		t.Error("second publish lost the published flag")
	}

	published.Description = "edited after publish"
	if err := svc.UpdateTemplate(ctx, published); !errors.Is(err, ErrTemplatePublished) {
		t.Errorf("UpdateTemplate on published version: err = %v, want ErrTemplatePublished", err)
	}
}

func TestUpdateTemplateKeepsIdentity(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tpl := &FormTemplate{Name: "Incident", Workflow: minimalWorkflow()}
	if err := svc.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	edit := *tpl
	edit.Slug = "hijacked"
	edit.Version = 99
	edit.Description = "now with details"
	if err := svc.UpdateTemplate(ctx, &edit); err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if edit.Slug != "incident" || edit.Version != 1 {
		t.Errorf("update changed identity: slug=%q version=%d", edit.Slug, edit.Version)
	}
}

func TestNewVersionClonesAsDraft(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tpl := &FormTemplate{Name: "Onboarding", Workflow: minimalWorkflow()}
	if err := svc.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if _, err := svc.PublishTemplate(ctx, tpl.ID.Hex()); err != nil {
		t.Fatalf("PublishTemplate: %v", err)
	}

	draft, err := svc.NewVersion(ctx, tpl.ID.Hex())
	if err != nil {
		t.Fatalf("NewVersion: %v", err)
	}
	if draft.ID == tpl.ID {
		t.Error("draft reuses the source document id")
	}
	if draft.Version != 2 {
		t.Errorf("draft version = %d, want 2", draft.Version)
	}
	if draft.Published || draft.PublishedAt != nil {
		t.Error("draft must start unpublished")
	}

	// The published version stays the serving one until the draft publishes.
	serving, err := svc.GetPublished(ctx, tpl.Slug)
	if err != nil {
		t.Fatalf("GetPublished: %v", err)
	}
	if serving.Version != 1 {
		t.Errorf("serving version = %d, want 1", serving.Version)
	}
}

func TestValidateWorkflow(t *testing.T) {
	start := workflow.WorkflowStep{ID: "s", Kind: workflow.StepStart}
	end := workflow.WorkflowStep{ID: "e", Kind: workflow.StepEnd}

	cases := []struct {
		name    string
		steps   []workflow.WorkflowStep
		wantErr bool
	}{
		{name: "empty graph allowed", steps: nil, wantErr: false},
		{name: "minimal graph", steps: []workflow.WorkflowStep{start, end}, wantErr: false},
		{name: "no start step", steps: []workflow.WorkflowStep{end}, wantErr: true},
		{
			name:    "two start steps",
			steps:   []workflow.WorkflowStep{start, {ID: "s2", Kind: workflow.StepStart}, end},
			wantErr: true,
		},
		{
			name:    "duplicate step ids",
			steps:   []workflow.WorkflowStep{start, start, end},
			wantErr: true,
		},
		{
			name: "dangling action target",
			steps: []workflow.WorkflowStep{
				{ID: "s", Kind: workflow.StepStart, Actions: []workflow.WorkflowAction{
					{ID: "go", TargetStepID: "nowhere"},
				}},
				end,
			},
			wantErr: true,
		},
		{
			name: "approval step without config",
			steps: []workflow.WorkflowStep{
				start,
				{ID: "review", Kind: workflow.StepApproval},
				end,
			},
			wantErr: true,
		},
		{
			name: "approval step with config",
			steps: []workflow.WorkflowStep{
				start,
				{ID: "review", Kind: workflow.StepApproval, Approval: &approval.ApprovalConfig{
					Levels: []approval.ApprovalLevel{{Name: "L1", Kind: approval.LevelSequential, Approvers: []string{"mgr"}}},
				}},
				end,
			},
			wantErr: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateWorkflow(workflow.WorkflowConfig{Steps: tc.steps})
			if (err != nil) != tc.wantErr {
				t.Errorf("validateWorkflow err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
