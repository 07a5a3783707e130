package databases

//go generate: mockery --name UserDatabase

import (
	"context"

	"github.com/zoe-motors/storefront-api/models"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.User, error)
	Find(ctx context.Context, filter interface{}) ([]models.User, error)
	InsertOne(ctx context.Context, u models.User) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) error
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

func (u *userDatabase) FindOne(ctx context.Context, filter interface{}) (*models.User, error) {
	return findOne[models.User](ctx, u.db.Collection(userName), filter)
}

func (u *userDatabase) Find(ctx context.Context, filter interface{}) ([]models.User, error) {
	return findAll[models.User](ctx, u.db.Collection(userName), filter, newestFirst("user.createdAt"))
}

func (u *userDatabase) InsertOne(ctx context.Context, usr models.User) error {
	return insertOne(ctx, u.db.Collection(userName), usr)
}

func (u *userDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	return updateOne(ctx, u.db.Collection(userName), filter, update)
}

func (u *userDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return u.db.Collection(userName).CountDocuments(ctx, filter)
}
