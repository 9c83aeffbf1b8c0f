package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
	"github.com/angelmondragon/cloudcore-storefront/pkg/kv"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

// DefaultKey is the fixed name the cart snapshot is stored under.
const DefaultKey = "cartItems"

// Options tunes how carts are persisted.
type Options struct {
	Key     string
	TTL     time.Duration
	Metrics mutationRecorder
}

// Sessions hands out carts keyed by visitor session and guarantees that two
// callers for the same session never interleave a load/mutate/persist cycle.
type Sessions struct {
	store   kv.Store
	logg    *logger.Logger
	key     string
	ttl     time.Duration
	metrics mutationRecorder

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessions builds a session manager backed by store.
func NewSessions(store kv.Store, logg *logger.Logger, opts Options) (*Sessions, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = DefaultKey
	}
	return &Sessions{
		store:   store,
		logg:    logg,
		key:     key,
		ttl:     opts.TTL,
		metrics: opts.Metrics,
		locks:   map[string]*sessionLock{},
	}, nil
}

// Key returns the storage key used for the session's snapshot.
func (s *Sessions) Key(sessionID string) string {
	return sessionID + ":" + s.key
}

// WithCart loads the session's cart and runs fn while holding the session lock.
func (s *Sessions) WithCart(ctx context.Context, sessionID string, fn func(*Cart) error) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}

	lock := s.acquire(sessionID)
	defer s.release(sessionID, lock)

	if err := ctx.Err(); err != nil {
		return err
	}

	c := newCart(s.store, s.Key(sessionID), s.ttl, s.logg, s.metrics)
	if err := c.Load(s.logg.WithSessionID(ctx, sessionID)); err != nil {
		return err
	}
	return fn(c)
}

func (s *Sessions) acquire(sessionID string) *sessionLock {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		s.locks[sessionID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *Sessions) release(sessionID string, lock *sessionLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, sessionID)
	}
	s.mu.Unlock()
}

func (s *Sessions) activeLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
