package webhook

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Webhook struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	URL       string             `json:"url" bson:"url"`
	Events    []string           `json:"events" bson:"events"`
	// Template narrows the subscription to one form template; empty means all.
	Template  string            `json:"template,omitempty" bson:"template,omitempty"`
	Headers   map[string]string `json:"headers,omitempty" bson:"headers,omitempty"`
	Secret    string            `json:"secret,omitempty" bson:"secret,omitempty"`
	IsActive  bool              `json:"is_active" bson:"is_active"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at"`
}

type WebhookLog struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	WebhookID  primitive.ObjectID `json:"webhook_id" bson:"webhook_id"`
	Event      string             `json:"event" bson:"event"`
	StatusCode int                `json:"status_code" bson:"status_code"`
	Error      string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}
