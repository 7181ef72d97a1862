package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/time/rate"

	"propertychat/pkg/logger"
)

const (
	ActionSendMessage        = "send_message"
	ActionCreateConversation = "create_conversation"
	ActionRequest            = "request"
)

// Limit allows Burst actions at once, refilled one token every Every.
type Limit struct {
	Burst int
	Every time.Duration
}

// PerWindow spreads n actions evenly over window, allowing all n as a burst.
func PerWindow(n int, window time.Duration) Limit {
	if n <= 0 {
		n = 1
	}
	return Limit{Burst: n, Every: window / time.Duration(n)}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages token buckets per user and action.
type RateLimiter struct {
	limits   map[string]Limit
	fallback Limit
	idleTTL  time.Duration

	buckets map[string]*bucket
	mutex   sync.Mutex
	now     func() time.Time
}

func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	return &RateLimiter{
		limits:   limits,
		fallback: PerWindow(20, time.Minute),
		idleTTL:  time.Hour,
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

// Allow consumes a token for the user's action. When the bucket is empty it
// reports how long until the next token.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		limit, ok := rl.limits[action]
		if !ok {
			limit = rl.fallback
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(limit.Every), limit.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup removes buckets that haven't been used for idleTTL.
func (rl *RateLimiter) Cleanup() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idleTTL {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) size() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.buckets)
}

// StartCleanupRoutine evicts idle buckets every 30 minutes until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.UTC)

	_, err := scheduler.Every(30 * time.Minute).Do(func() {
		if n := rl.Cleanup(); n > 0 {
			logger.Debug("Rate limiter evicted %d idle buckets", n)
		}
	})
	if err != nil {
		return err
	}

	scheduler.StartAsync()
	go func() {
		<-ctx.Done()
		scheduler.Stop()
	}()
	return nil
}
