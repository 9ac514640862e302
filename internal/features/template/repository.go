package template

import (
	"context"
	"errors"
	"time"

	"go-forms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TemplateRepository interface {
	Create(ctx context.Context, template *FormTemplate) error
	Get(ctx context.Context, id string) (*FormTemplate, error)
	GetVersion(ctx context.Context, slug string, version int) (*FormTemplate, error)
	GetPublished(ctx context.Context, slug string) (*FormTemplate, error)
	List(ctx context.Context) ([]FormTemplate, error)
	ListPublished(ctx context.Context) ([]FormTemplate, error)
	Replace(ctx context.Context, template *FormTemplate) error
	LatestVersion(ctx context.Context, slug string) (int, error)
}

type TemplateRepositoryImpl struct {
	collection *mongo.Collection
}

func NewTemplateRepository(db *database.MongodbDB) TemplateRepository {
	return &TemplateRepositoryImpl{
		collection: db.DB.Collection("form_templates"),
	}
}

func (r *TemplateRepositoryImpl) Create(ctx context.Context, template *FormTemplate) error {
	if template.ID.IsZero() {
		template.ID = primitive.NewObjectID()
	}
	template.CreatedAt = time.Now()
	template.UpdatedAt = template.CreatedAt

	_, err := r.collection.InsertOne(ctx, template)
	return err
}

func (r *TemplateRepositoryImpl) Get(ctx context.Context, id string) (*FormTemplate, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var template FormTemplate
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&template)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *TemplateRepositoryImpl) GetVersion(ctx context.Context, slug string, version int) (*FormTemplate, error) {
	var template FormTemplate
	err := r.collection.FindOne(ctx, bson.M{"slug": slug, "version": version}).Decode(&template)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// GetPublished returns the highest published version for the slug.
func (r *TemplateRepositoryImpl) GetPublished(ctx context.Context, slug string) (*FormTemplate, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})

	var template FormTemplate
	err := r.collection.FindOne(ctx, bson.M{"slug": slug, "published": true}, opts).Decode(&template)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *TemplateRepositoryImpl) List(ctx context.Context) ([]FormTemplate, error) {
	return r.list(ctx, bson.M{})
}

func (r *TemplateRepositoryImpl) ListPublished(ctx context.Context) ([]FormTemplate, error) {
	return r.list(ctx, bson.M{"published": true})
}

func (r *TemplateRepositoryImpl) list(ctx context.Context, filter bson.M) ([]FormTemplate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []FormTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplateRepositoryImpl) Replace(ctx context.Context, template *FormTemplate) error {
	template.UpdatedAt = time.Now()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": template.ID}, template)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *TemplateRepositoryImpl) LatestVersion(ctx context.Context, slug string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})

	var template FormTemplate
	err := r.collection.FindOne(ctx, bson.M{"slug": slug}, opts).Decode(&template)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return template.Version, nil
}
