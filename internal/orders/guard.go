package orders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

// Guard admits at most one in-flight submission per session.
type Guard interface {
	// TryAcquire returns acquired=false without blocking when the session
	// already has a submission in flight. release must be called once the
	// attempt finishes.
	TryAcquire(ctx context.Context, sessionID string) (release func(), acquired bool, err error)
}

// LocalGuard tracks in-flight submissions in process memory.
type LocalGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{inFlight: map[string]struct{}{}}
}

func (g *LocalGuard) TryAcquire(_ context.Context, sessionID string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[sessionID]; busy {
		return nil, false, nil
	}
	g.inFlight[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, sessionID)
			g.mu.Unlock()
		})
	}, true, nil
}

type lockClient interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	SubmissionLockKey(sessionID string) string
}

// RedisGuard shares the in-flight marker across API replicas. The lock expires
// after ttl so a crashed replica cannot block a visitor forever.
type RedisGuard struct {
	client lockClient
	ttl    time.Duration
	logg   *logger.Logger
}

func NewRedisGuard(client lockClient, ttl time.Duration, logg *logger.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{client: client, ttl: ttl, logg: logg}
}

func (g *RedisGuard) TryAcquire(ctx context.Context, sessionID string) (func(), bool, error) {
	key := g.client.SubmissionLockKey(sessionID)
	token := uuid.NewString()
	ok, err := g.client.AcquireLock(ctx, key, token, g.ttl)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	releaseCtx := context.WithoutCancel(ctx)
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(releaseCtx, 5*time.Second)
			defer cancel()
			if err := g.client.ReleaseLock(ctx, key, token); err != nil && g.logg != nil {
				g.logg.Error(g.logg.WithField(ctx, "lock_key", key), "release submission lock", err)
			}
		})
	}, true, nil
}
