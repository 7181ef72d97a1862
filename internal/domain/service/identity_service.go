package service

import (
	"context"

	"propertychat/internal/domain/entity"
)

// IdentityVerifier resolves a bearer token issued by the identity provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*entity.UserProfile, error)
}
