package usecase

import (
	"context"
	"time"

	"propertychat/internal/domain/entity"
)

// Notifier pushes real-time events to a user's live connections. Delivery is
// best effort and never fails the calling operation.
type Notifier interface {
	NotifyUser(userID, eventType string, payload interface{})
}

// ProfileCache fronts the user directory during hydration. Get returns nil, nil
// on a miss.
type ProfileCache interface {
	Get(ctx context.Context, id string) (*entity.UserProfile, error)
	Set(ctx context.Context, profile *entity.UserProfile) error
}

type RateLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}

type nopProfileCache struct{}

func (nopProfileCache) Get(context.Context, string) (*entity.UserProfile, error) {
	return nil, nil
}

func (nopProfileCache) Set(context.Context, *entity.UserProfile) error {
	return nil
}

type nopNotifier struct{}

func (nopNotifier) NotifyUser(string, string, interface{}) {}

// Stored timestamps are truncated to microseconds so what the API returns
// equals what every backend persists.
func serverNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
