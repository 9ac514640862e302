package task

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

type Task struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Subject      string             `json:"subject" bson:"subject"`
	Description  string             `json:"description,omitempty" bson:"description,omitempty"`
	SubmissionID string             `json:"submission_id,omitempty" bson:"submission_id,omitempty"`
	AssignedTo   string             `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	DueDate      string             `json:"due_date,omitempty" bson:"due_date,omitempty"`
	Status       TaskStatus         `json:"status" bson:"status"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}
