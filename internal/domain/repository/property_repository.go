package repository

import (
	"context"

	"propertychat/internal/domain/entity"
)

//go:generate mockgen -destination=../../mocks/mock_property_repository.go -package=mocks propertychat/internal/domain/repository PropertyRepository

// PropertyRepository is the read side of the property directory.
type PropertyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Property, error)
}
