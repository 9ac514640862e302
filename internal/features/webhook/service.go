package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/config"
	"go-forms/internal/features/audit"

	"go.uber.org/zap"
)

type WebhookService interface {
	CreateWebhook(ctx context.Context, webhook *Webhook) error
	ListWebhooks(ctx context.Context) ([]Webhook, error)
	GetWebhook(ctx context.Context, id string) (*Webhook, error)
	UpdateWebhook(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteWebhook(ctx context.Context, id string) error
	Trigger(ctx context.Context, event string, payload models.WebhookPayload)
}

type WebhookServiceImpl struct {
	Repo         WebhookRepository
	LogRepo      WebhookLogRepository
	AuditService audit.AuditService
	Logger       *zap.Logger
	HttpClient   *http.Client
	// FallbackSecret signs deliveries for subscriptions without their own key.
	FallbackSecret string
}

func NewWebhookService(repo WebhookRepository, logRepo WebhookLogRepository, auditService audit.AuditService, cfg *config.Config, logger *zap.Logger) WebhookService {
	return &WebhookServiceImpl{
		Repo:         repo,
		LogRepo:      logRepo,
		AuditService: auditService,
		Logger:       logger,
		HttpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		FallbackSecret: cfg.WebhookSecret,
	}
}

func (s *WebhookServiceImpl) CreateWebhook(ctx context.Context, webhook *Webhook) error {
	err := s.Repo.Create(ctx, webhook)
	if err == nil {
		s.AuditService.LogChange(ctx, models.AuditActionWebhook, "webhooks", webhook.ID.Hex(), map[string]models.Change{
			"webhook": {New: webhook},
		})
	}
	return err
}

func (s *WebhookServiceImpl) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	return s.Repo.List(ctx)
}

func (s *WebhookServiceImpl) GetWebhook(ctx context.Context, id string) (*Webhook, error) {
	return s.Repo.Get(ctx, id)
}

func (s *WebhookServiceImpl) UpdateWebhook(ctx context.Context, id string, updates map[string]interface{}) error {
	oldWebhook, _ := s.GetWebhook(ctx, id)

	err := s.Repo.Update(ctx, id, updates)
	if err == nil {
		s.AuditService.LogChange(ctx, models.AuditActionWebhook, "webhooks", id, map[string]models.Change{
			"webhook": {Old: oldWebhook, New: updates},
		})
	}
	return err
}

func (s *WebhookServiceImpl) DeleteWebhook(ctx context.Context, id string) error {
	oldWebhook, _ := s.GetWebhook(ctx, id)

	err := s.Repo.Delete(ctx, id)
	if err == nil {
		name := id
		if oldWebhook != nil {
			name = oldWebhook.URL
		}
		s.AuditService.LogChange(ctx, models.AuditActionWebhook, "webhooks", name, map[string]models.Change{
			"webhook": {Old: oldWebhook, New: "DELETED"},
		})
	}
	return err
}

// Trigger fans the payload out to every active subscription for the event.
// Deliveries run in the background; each outcome lands in webhook_logs.
func (s *WebhookServiceImpl) Trigger(ctx context.Context, event string, payload models.WebhookPayload) {
	webhooks, err := s.Repo.ListByEvent(ctx, event, payload.Template)
	if err != nil {
		s.Logger.Error("failed to fetch webhooks for event", zap.String("event", event), zap.Error(err))
		return
	}

	for _, wh := range webhooks {
		go s.sendWebhook(wh, payload)
	}
}

func (s *WebhookServiceImpl) sendWebhook(wh Webhook, payload models.WebhookPayload) {
	delivery := &WebhookLog{WebhookID: wh.ID, Event: payload.Event}

	body, err := json.Marshal(payload)
	if err != nil {
		s.recordDelivery(delivery, 0, err)
		return
	}

	req, err := http.NewRequest("POST", wh.URL, bytes.NewBuffer(body))
	if err != nil {
		s.recordDelivery(delivery, 0, err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Go-Forms-Webhook")
	req.Header.Set("X-Forms-Event", payload.Event)
	req.Header.Set("X-Forms-Delivery", fmt.Sprintf("%d", time.Now().UnixNano()))

	for k, v := range wh.Headers {
		req.Header.Set(k, v)
	}

	secret := wh.Secret
	if secret == "" {
		secret = s.FallbackSecret
	}
	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		signature := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Forms-Signature", "sha256="+signature)
	}

	resp, err := s.HttpClient.Do(req)
	if err != nil {
		s.recordDelivery(delivery, 0, err)
		return
	}
	defer resp.Body.Close()

	s.recordDelivery(delivery, resp.StatusCode, nil)
}

func (s *WebhookServiceImpl) recordDelivery(delivery *WebhookLog, status int, err error) {
	delivery.StatusCode = status
	if err != nil {
		delivery.Error = err.Error()
		s.Logger.Error("webhook delivery failed", zap.String("webhook_id", delivery.WebhookID.Hex()), zap.Error(err))
	}
	if logErr := s.LogRepo.Create(context.Background(), delivery); logErr != nil {
		s.Logger.Error("failed to record webhook delivery", zap.Error(logErr))
	}
}
