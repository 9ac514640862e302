package task

import (
	"context"
	"time"

	"go-forms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	ListBySubmission(ctx context.Context, submissionID string) ([]Task, error)
	ListByAssignee(ctx context.Context, assigneeID string) ([]Task, error)
	SetStatus(ctx context.Context, id string, status TaskStatus) error
}

type TaskRepositoryImpl struct {
	collection *mongo.Collection
}

func NewTaskRepository(db *database.MongodbDB) TaskRepository {
	return &TaskRepositoryImpl{
		collection: db.DB.Collection("tasks"),
	}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *Task) error {
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	if task.Status == "" {
		task.Status = TaskPending
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt

	_, err := r.collection.InsertOne(ctx, task)
	return err
}

func (r *TaskRepositoryImpl) ListBySubmission(ctx context.Context, submissionID string) ([]Task, error) {
	return r.list(ctx, bson.M{"submission_id": submissionID})
}

func (r *TaskRepositoryImpl) ListByAssignee(ctx context.Context, assigneeID string) ([]Task, error) {
	return r.list(ctx, bson.M{"assigned_to": assigneeID, "status": TaskPending})
}

func (r *TaskRepositoryImpl) list(ctx context.Context, filter bson.M) ([]Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []Task
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepositoryImpl) SetStatus(ctx context.Context, id string, status TaskStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	})
	return err
}
