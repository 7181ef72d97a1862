package jwtauth

import (
	"context"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"propertychat/internal/domain/entity"
	"propertychat/pkg/errors"
	"propertychat/pkg/logger"
)

type Options struct {
	// Secret verifies HS256 tokens. Ignored when JWKSURL is set.
	Secret string
	// Issuer, when set, must match the iss claim.
	Issuer  string
	JWKSURL string
}

// Verifier validates bearer JWTs, either against a shared secret or against the
// identity provider's published key set.
type Verifier struct {
	issuer  string
	keyFunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
}

func NewVerifier(opts Options) (*Verifier, error) {
	v := &Verifier{issuer: opts.Issuer}

	if opts.JWKSURL != "" {
		jwks, err := keyfunc.Get(opts.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Error("JWKS refresh failed: %v", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load JWKS from %s: %w", opts.JWKSURL, err)
		}
		v.jwks = jwks
		v.keyFunc = jwks.Keyfunc
		return v, nil
	}

	if opts.Secret == "" {
		return nil, fmt.Errorf("jwt verifier needs a secret or a JWKS URL")
	}
	secret := []byte(opts.Secret)
	v.keyFunc = func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}
	return v, nil
}

func (v *Verifier) Verify(ctx context.Context, tokenString string) (*entity.UserProfile, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil || !token.Valid {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, errors.Unauthorized("Invalid token issuer", nil)
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, errors.Unauthorized("Token has no subject", nil)
	}

	return entity.ProfileFromClaims(subject, claims), nil
}

// Close stops the background JWKS refresh.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
