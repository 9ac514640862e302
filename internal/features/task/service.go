package task

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type TaskService interface {
	CreateFromPayload(ctx context.Context, submissionID string, payload map[string]interface{}) error
	ListBySubmission(ctx context.Context, submissionID string) ([]Task, error)
	Complete(ctx context.Context, id string) error
}

type TaskServiceImpl struct {
	Repo   TaskRepository
	Logger *zap.Logger
}

func NewTaskService(repo TaskRepository, logger *zap.Logger) TaskService {
	return &TaskServiceImpl{
		Repo:   repo,
		Logger: logger,
	}
}

// CreateFromPayload dispatches a create_task instruction emitted by the
// engines.
func (s *TaskServiceImpl) CreateFromPayload(ctx context.Context, submissionID string, payload map[string]interface{}) error {
	subject, _ := payload["subject"].(string)
	if subject == "" {
		return fmt.Errorf("task subject is required")
	}

	description, _ := payload["description"].(string)
	assignedTo, _ := payload["assigned_to"].(string)
	dueDate, _ := payload["due_date"].(string)

	err := s.Repo.Create(ctx, &Task{
		Subject:      subject,
		Description:  description,
		SubmissionID: submissionID,
		AssignedTo:   assignedTo,
		DueDate:      dueDate,
	})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	s.Logger.Info("task created", zap.String("subject", subject), zap.String("submission_id", submissionID))
	return nil
}

func (s *TaskServiceImpl) ListBySubmission(ctx context.Context, submissionID string) ([]Task, error) {
	return s.Repo.ListBySubmission(ctx, submissionID)
}

func (s *TaskServiceImpl) Complete(ctx context.Context, id string) error {
	return s.Repo.SetStatus(ctx, id, TaskCompleted)
}
