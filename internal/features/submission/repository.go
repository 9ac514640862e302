package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/database"
	"go-forms/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrSubmissionNotFound = errors.New("submission not found")

type SubmissionRepository interface {
	Create(ctx context.Context, submission *Submission) error
	Get(ctx context.Context, id string) (*Submission, error)
	ListByTemplate(ctx context.Context, slug string) ([]Submission, error)
	ListByStatus(ctx context.Context, status models.SubmissionStatus) ([]Submission, error)
	UpdateData(ctx context.Context, id string, data map[string]interface{}) error
	// UpdateState writes the new workflow state only when the stored version
	// still matches expectedVersion; a mismatch returns ErrConflict.
	UpdateState(ctx context.Context, id string, state workflow.WorkflowState, expectedVersion int64) error
	// ClaimAssignmentSlot atomically advances the round-robin claim counter
	// for one assignment rule and returns the new count (1 for the first
	// claim ever).
	ClaimAssignmentSlot(ctx context.Context, templateSlug, ruleID string) (int64, error)
	// ReleaseAssignmentSlot hands a claimed slot back when the transition it
	// was claimed for did not go through, so the rotation skips nobody.
	ReleaseAssignmentSlot(ctx context.Context, templateSlug, ruleID string) error
	// OpenAssignmentCounts reports, per assignee, how many non-terminal
	// submissions of the template they currently hold.
	OpenAssignmentCounts(ctx context.Context, templateSlug string) (map[string]int, error)
}

type SubmissionRepositoryImpl struct {
	collection *mongo.Collection
	cursors    *mongo.Collection
}

func NewSubmissionRepository(db *database.MongodbDB) SubmissionRepository {
	return &SubmissionRepositoryImpl{
		collection: db.DB.Collection("submissions"),
		cursors:    db.DB.Collection("assignment_cursors"),
	}
}

func (r *SubmissionRepositoryImpl) Create(ctx context.Context, submission *Submission) error {
	if submission.ID.IsZero() {
		submission.ID = primitive.NewObjectID()
	}
	submission.CreatedAt = time.Now()
	submission.UpdatedAt = submission.CreatedAt

	_, err := r.collection.InsertOne(ctx, submission)
	return err
}

func (r *SubmissionRepositoryImpl) Get(ctx context.Context, id string) (*Submission, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var submission Submission
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&submission)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *SubmissionRepositoryImpl) ListByTemplate(ctx context.Context, slug string) ([]Submission, error) {
	return r.list(ctx, bson.M{"template_slug": slug})
}

func (r *SubmissionRepositoryImpl) ListByStatus(ctx context.Context, status models.SubmissionStatus) ([]Submission, error) {
	return r.list(ctx, bson.M{"state.status": status})
}

func (r *SubmissionRepositoryImpl) list(ctx context.Context, filter bson.M) ([]Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var submissions []Submission
	if err = cursor.All(ctx, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *SubmissionRepositoryImpl) UpdateData(ctx context.Context, id string, data map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"data": data, "updated_at": time.Now()},
	})
	return err
}

func (r *SubmissionRepositoryImpl) UpdateState(ctx context.Context, id string, state workflow.WorkflowState, expectedVersion int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "state.version": expectedVersion},
		bson.M{"$set": bson.M{"state": state, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("submission %s at version %d: %w", id, expectedVersion, models.ErrConflict)
	}
	return nil
}

func (r *SubmissionRepositoryImpl) ClaimAssignmentSlot(ctx context.Context, templateSlug, ruleID string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.cursors.FindOneAndUpdate(ctx,
		bson.M{"template_slug": templateSlug, "rule_id": ruleID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

func (r *SubmissionRepositoryImpl) ReleaseAssignmentSlot(ctx context.Context, templateSlug, ruleID string) error {
	_, err := r.cursors.UpdateOne(ctx,
		bson.M{"template_slug": templateSlug, "rule_id": ruleID, "seq": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"seq": -1}},
	)
	return err
}

func (r *SubmissionRepositoryImpl) OpenAssignmentCounts(ctx context.Context, templateSlug string) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"template_slug":     templateSlug,
			"state.assigned_to": bson.M{"$nin": bson.A{"", nil}},
			"state.status": bson.M{"$nin": bson.A{
				models.StatusCompleted, models.StatusRejected, models.StatusCancelled,
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$state.assigned_to",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int)
	for cursor.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.ID] = row.Count
	}
	return counts, cursor.Err()
}
