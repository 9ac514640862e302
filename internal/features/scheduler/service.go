package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-forms/internal/config"
	"go-forms/internal/features/submission"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerService owns the two background ticks: the approval escalation
// sweep and the scheduled business-rule tick. Both only call the public
// submission service paths; all engine work stays synchronous inside them.
type SchedulerService interface {
	InitializeScheduler(ctx context.Context) error
	StopScheduler() error
	RunNow(ctx context.Context, job string) error
}

type SchedulerServiceImpl struct {
	cfg         *config.Config
	submissions submission.SubmissionService
	logger      *zap.Logger

	scheduler  *cron.Cron
	jobEntries map[string]cron.EntryID
	mu         sync.RWMutex
}

func NewSchedulerService(cfg *config.Config, submissions submission.SubmissionService, logger *zap.Logger) SchedulerService {
	return &SchedulerServiceImpl{
		cfg:         cfg,
		submissions: submissions,
		logger:      logger,
		jobEntries:  make(map[string]cron.EntryID),
	}
}

func (s *SchedulerServiceImpl) InitializeScheduler(ctx context.Context) error {
	s.logger.Info("initializing scheduler",
		zap.String("escalation_cron", s.cfg.EscalationCron),
		zap.String("rules_cron", s.cfg.RulesCron))

	s.scheduler = cron.New()

	if err := s.registerJob("escalations", s.cfg.EscalationCron, s.runEscalations); err != nil {
		return err
	}
	if err := s.registerJob("scheduled_rules", s.cfg.RulesCron, s.runScheduledRules); err != nil {
		return err
	}

	s.scheduler.Start()
	return nil
}

func (s *SchedulerServiceImpl) StopScheduler() error {
	if s.scheduler != nil {
		ctx := s.scheduler.Stop()
		<-ctx.Done()
	}
	return nil
}

// RunNow triggers one job out of schedule, for operational use.
func (s *SchedulerServiceImpl) RunNow(ctx context.Context, job string) error {
	switch job {
	case "escalations":
		return s.submissions.RunEscalations(ctx, time.Now())
	case "scheduled_rules":
		return s.submissions.RunScheduledRules(ctx, time.Now())
	default:
		return fmt.Errorf("unknown scheduler job %q", job)
	}
}

func (s *SchedulerServiceImpl) registerJob(name, spec string, run func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression for %s: %w", name, err)
	}

	entryID, err := s.scheduler.AddFunc(spec, run)
	if err != nil {
		return fmt.Errorf("failed to add %s job to scheduler: %w", name, err)
	}
	s.jobEntries[name] = entryID
	return nil
}

func (s *SchedulerServiceImpl) runEscalations() {
	ctx := context.Background()
	if err := s.submissions.RunEscalations(ctx, time.Now()); err != nil {
		s.logger.Error("escalation sweep failed", zap.Error(err))
	}
}

func (s *SchedulerServiceImpl) runScheduledRules() {
	ctx := context.Background()
	if err := s.submissions.RunScheduledRules(ctx, time.Now()); err != nil {
		s.logger.Error("scheduled rules tick failed", zap.Error(err))
	}
}
