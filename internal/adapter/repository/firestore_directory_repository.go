package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/pkg/errors"
)

// The property and user directories are owned by other services; these adapters only read them.

type firestorePropertyRepository struct {
	client *firestore.Client
}

func NewFirestorePropertyRepository(client *firestore.Client) repository.PropertyRepository {
	return &firestorePropertyRepository{
		client: client,
	}
}

func (r *firestorePropertyRepository) GetByID(ctx context.Context, id string) (*entity.Property, error) {
	doc, err := r.client.Collection("properties").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Property", err)
		}
		return nil, errors.Internal("Failed to get property", err)
	}

	var property entity.Property
	if err := doc.DataTo(&property); err != nil {
		return nil, errors.Internal("Failed to parse property data", err)
	}
	property.ID = doc.Ref.ID

	return &property, nil
}

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID

	return &user, nil
}
