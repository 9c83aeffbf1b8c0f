package cart

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
	"github.com/angelmondragon/cloudcore-storefront/pkg/kv"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

type countingRecorder struct {
	mu  sync.Mutex
	ops map[string]int
}

func (r *countingRecorder) IncCartMutation(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = map[string]int{}
	}
	r.ops[op]++
}

type failingStore struct {
	kv.Store
	getErr error
	setErr error
	delErr error
}

func (f *failingStore) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value, ttl)
}

func (f *failingStore) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.Store.Delete(ctx, key)
}

func newTestSessions(t *testing.T, store kv.Store) *Sessions {
	t.Helper()
	sessions, err := NewSessions(store, logger.Nop(), Options{})
	if err != nil {
		t.Fatalf("new sessions: %v", err)
	}
	return sessions
}

func loadCart(t *testing.T, sessions *Sessions, sessionID string) *Cart {
	t.Helper()
	var out *Cart
	if err := sessions.WithCart(context.Background(), sessionID, func(c *Cart) error {
		out = c
		return nil
	}); err != nil {
		t.Fatalf("with cart: %v", err)
	}
	return out
}

func TestAddMergesIntoExistingLine(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := loadCart(t, newTestSessions(t, kv.NewMemory()), "s1")

	for _, step := range []struct {
		id  int64
		qty int
	}{{1, 2}, {2, 1}, {1, 3}} {
		if err := c.Add(ctx, step.id, step.qty); err != nil {
			t.Fatalf("add %d: %v", step.id, err)
		}
	}

	want := []Line{{ProductID: 1, Quantity: 5}, {ProductID: 2, Quantity: 1}}
	if got := c.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if c.Quantity(1) != 5 || c.Quantity(3) != 0 {
		t.Fatalf("unexpected quantities: %d/%d", c.Quantity(1), c.Quantity(3))
	}
	if c.Len() != 2 || c.Units() != 6 {
		t.Fatalf("expected 2 lines and 6 units, got %d/%d", c.Len(), c.Units())
	}
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	store := kv.NewMemory()
	c := loadCart(t, newTestSessions(t, store), "s1")

	for _, qty := range []int{0, -3} {
		err := c.Add(context.Background(), 1, qty)
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for qty %d, got %v", qty, err)
		}
	}
	if c.Len() != 0 {
		t.Fatalf("cart should be unchanged")
	}
	if store.Len() != 0 {
		t.Fatalf("nothing should have been persisted")
	}
}

func TestAddRejectsQuantityOverflow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemory()
	c := loadCart(t, newTestSessions(t, store), "s1")

	if err := c.Add(ctx, 2, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add(ctx, 1, math.MaxInt); err != nil {
		t.Fatalf("add max: %v", err)
	}
	if err := c.Add(ctx, 1, 1); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error on overflow, got %v", err)
	}

	want := []Line{{ProductID: 2, Quantity: 1}, {ProductID: 1, Quantity: math.MaxInt}}
	if got := c.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	reloaded := loadCart(t, newTestSessions(t, store), "s1")
	if got := reloaded.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected persisted %+v, got %+v", want, got)
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := loadCart(t, newTestSessions(t, kv.NewMemory()), "s1")
	if err := c.Add(ctx, 4, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Remove(ctx, 99); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected cart untouched, got %+v", c.Lines())
	}
	if err := c.Remove(ctx, 4); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cart, got %+v", c.Lines())
	}
}

func TestPersistRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemory()
	sessions := newTestSessions(t, store)

	err := sessions.WithCart(ctx, "visitor", func(c *Cart) error {
		for _, id := range []int64{7, 3, 9} {
			if err := c.Add(ctx, id, int(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	raw, err := store.Get(ctx, "visitor:cartItems")
	if err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	if raw != `[{"id":7,"quantity":7},{"id":3,"quantity":3},{"id":9,"quantity":9}]` {
		t.Fatalf("unexpected snapshot %s", raw)
	}

	reloaded := loadCart(t, sessions, "visitor")
	want := []Line{{7, 7}, {3, 3}, {9, 9}}
	if got := reloaded.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestLoadTreatsCorruptSnapshotAsEmpty(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":          "{oops",
		"wrong shape":       `{"id":1,"quantity":2}`,
		"zero quantity":     `[{"id":1,"quantity":0}]`,
		"negative quantity": `[{"id":1,"quantity":-1}]`,
		"duplicate ids":     `[{"id":1,"quantity":1},{"id":1,"quantity":2}]`,
		"missing id":        `[{"quantity":1}]`,
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := kv.NewMemory()
			if err := store.Set(context.Background(), "s:cartItems", raw, 0); err != nil {
				t.Fatalf("seed: %v", err)
			}
			c := loadCart(t, newTestSessions(t, store), "s")
			if c.Len() != 0 {
				t.Fatalf("expected empty cart, got %+v", c.Lines())
			}
		})
	}
}

func TestLoadSurfacesStorageFailure(t *testing.T) {
	t.Parallel()

	store := &failingStore{Store: kv.NewMemory(), getErr: errors.New("connection refused")}
	sessions := newTestSessions(t, store)

	called := false
	err := sessions.WithCart(context.Background(), "s", func(*Cart) error {
		called = true
		return nil
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if called {
		t.Fatal("callback must not run when the cart could not be loaded")
	}
}

func TestFailedPersistLeavesCartUnchanged(t *testing.T) {
	t.Parallel()

	store := &failingStore{Store: kv.NewMemory()}
	c := loadCart(t, newTestSessions(t, store), "s")
	if err := c.Add(context.Background(), 1, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	store.setErr = errors.New("disk full")
	if err := c.Add(context.Background(), 2, 1); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if got := c.Lines(); !reflect.DeepEqual(got, []Line{{1, 1}}) {
		t.Fatalf("expected cart to keep previous lines, got %+v", got)
	}
}

func TestClearDeletesSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemory()
	recorder := &countingRecorder{}
	sessions, err := NewSessions(store, logger.Nop(), Options{Metrics: recorder})
	if err != nil {
		t.Fatalf("new sessions: %v", err)
	}

	c := loadCart(t, sessions, "s")
	if err := c.Add(ctx, 1, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cart")
	}
	if _, err := store.Get(ctx, "s:cartItems"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected snapshot to be deleted, got %v", err)
	}
	if recorder.ops["add"] != 1 || recorder.ops["clear"] != 1 {
		t.Fatalf("unexpected mutation counts %+v", recorder.ops)
	}
}

func TestSettleRemovesOnlyOrderedQuantities(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemory()
	sessions := newTestSessions(t, store)
	c := loadCart(t, sessions, "s1")

	for _, line := range []Line{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 1}, {ProductID: 3, Quantity: 2}} {
		if err := c.Add(ctx, line.ProductID, line.Quantity); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if err := c.Settle(ctx, []Line{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	want := []Line{{ProductID: 1, Quantity: 1}, {ProductID: 3, Quantity: 2}}
	if got := c.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if err := c.Settle(ctx, c.Lines()); err != nil {
		t.Fatalf("settle rest: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cart, got %+v", c.Lines())
	}
	if _, err := store.Get(ctx, sessions.Key("s1")); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected snapshot to be deleted, got %v", err)
	}
}

func TestSessionsIsolateVisitors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessions := newTestSessions(t, kv.NewMemory())

	a := loadCart(t, sessions, "a")
	if err := a.Add(ctx, 1, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	b := loadCart(t, sessions, "b")
	if b.Len() != 0 {
		t.Fatalf("session b should not see session a's cart")
	}
}

func TestSessionsRequireID(t *testing.T) {
	t.Parallel()

	err := newTestSessions(t, kv.NewMemory()).WithCart(context.Background(), "  ", func(*Cart) error { return nil })
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSessionsSerializeConcurrentAdds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessions := newTestSessions(t, kv.NewMemory())

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sessions.WithCart(ctx, "shared", func(c *Cart) error {
				return c.Add(ctx, 5, 1)
			})
		}()
	}
	wg.Wait()

	if got := loadCart(t, sessions, "shared").Quantity(5); got != workers {
		t.Fatalf("expected quantity %d, got %d", workers, got)
	}
	if sessions.activeLocks() != 0 {
		t.Fatalf("expected session locks to be released, got %d", sessions.activeLocks())
	}
}

func TestRandomMutationsKeepInvariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	c := loadCart(t, newTestSessions(t, kv.NewMemory()), "s")

	for i := 0; i < 500; i++ {
		id := int64(rng.Intn(6) + 1)
		switch rng.Intn(5) {
		case 0:
			if err := c.Remove(ctx, id); err != nil {
				t.Fatalf("remove: %v", err)
			}
		case 1:
			if rng.Intn(10) == 0 {
				if err := c.Clear(ctx); err != nil {
					t.Fatalf("clear: %v", err)
				}
			}
		default:
			if err := c.Add(ctx, id, rng.Intn(4)+1); err != nil {
				t.Fatalf("add: %v", err)
			}
		}

		seen := map[int64]bool{}
		for _, line := range c.Lines() {
			if seen[line.ProductID] {
				t.Fatalf("duplicate product %d after step %d", line.ProductID, i)
			}
			seen[line.ProductID] = true
			if line.Quantity <= 0 {
				t.Fatalf("non-positive quantity after step %d: %+v", i, line)
			}
		}
	}
}
