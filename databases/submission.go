package databases

//go generate: mockery --name SubmissionDatabase

import (
	"context"

	"github.com/zoe-motors/storefront-api/models"
)

const submissionName = "car_submissions"

// SubmissionDatabase contains the methods to use with the car submission database
type SubmissionDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.CarSubmission, error)
	Find(ctx context.Context, filter interface{}) ([]models.CarSubmission, error)
	InsertOne(ctx context.Context, s models.CarSubmission) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) error
	DeleteOne(ctx context.Context, filter interface{}) error
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

type submissionDatabase struct {
	db DatabaseHelper
}

// NewSubmissionDatabase initializes a new instance of car submission database with the provided db connection
func NewSubmissionDatabase(db DatabaseHelper) SubmissionDatabase {
	return &submissionDatabase{
		db: db,
	}
}

func (c *submissionDatabase) FindOne(ctx context.Context, filter interface{}) (*models.CarSubmission, error) {
	return findOne[models.CarSubmission](ctx, c.db.Collection(submissionName), filter)
}

func (c *submissionDatabase) Find(ctx context.Context, filter interface{}) ([]models.CarSubmission, error) {
	return findAll[models.CarSubmission](ctx, c.db.Collection(submissionName), filter, newestFirst("submission.createdAt"))
}

func (c *submissionDatabase) InsertOne(ctx context.Context, s models.CarSubmission) error {
	return insertOne(ctx, c.db.Collection(submissionName), s)
}

func (c *submissionDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	return updateOne(ctx, c.db.Collection(submissionName), filter, update)
}

func (c *submissionDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return deleteOne(ctx, c.db.Collection(submissionName), filter)
}

func (c *submissionDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(submissionName).CountDocuments(ctx, filter)
}
