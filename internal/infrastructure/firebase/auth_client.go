package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"propertychat/internal/domain/entity"
	"propertychat/pkg/errors"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthClient verifies Firebase ID tokens.
type FirebaseAuthClient struct {
	client idTokenVerifier
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) Verify(ctx context.Context, token string) (*entity.UserProfile, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}

	return entity.ProfileFromClaims(result.UID, result.Claims), nil
}
