package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hotel_listings/internal/app"
	"hotel_listings/internal/domain"
	"hotel_listings/internal/storage/memory"
)

// ---- fakes ----

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dels++
	delete(c.store, key)
	return nil
}

// ---- fixtures ----

var (
	merchant = domain.Identity{ID: "merchant-1", Role: domain.RoleMerchant}
	other    = domain.Identity{ID: "merchant-2", Role: domain.RoleMerchant}
	admin    = domain.Identity{ID: "admin-1", Role: domain.RoleAdmin}
)

func as(id domain.Identity) context.Context {
	return domain.WithIdentity(context.Background(), id)
}

type env struct {
	store *memory.Store
	cache *fakeCache
	mod   *app.ModerationService
	q     *app.QueryService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	cache := &fakeCache{}
	mod := app.NewModerationService(store, cache, 3)
	n := 0
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mod.NewID = func() string { n++; return fmt.Sprintf("listing-%03d", n) }
	mod.Now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Minute) }
	return &env{store: store, cache: cache, mod: mod, q: app.NewQueryService(store, cache, time.Minute)}
}

func validPayload() app.Payload {
	return app.Payload{
		"nameCn":   "西湖宾馆",
		"nameEn":   "West Lake Hotel",
		"address":  "1 Lakeside Rd",
		"city":     "杭州市",
		"star":     4,
		"type":     "resort",
		"openTime": "2019-06-01",
		"images":   []any{"a.jpg", "b.jpg"},
		"tags":     []any{"亲子", " 湖景 "},
		"roomTypes": []any{
			map[string]any{"name": "Deluxe", "price": 100, "images": []any{"d.jpg"}},
			map[string]any{"name": "Standard", "price": "80", "images": []any{"s.jpg"}},
		},
	}
}

func (e *env) create(t *testing.T) domain.Listing {
	t.Helper()
	l, err := e.mod.Create(as(merchant), validPayload())
	require.NoError(t, err)
	return l
}

// published drives a listing to approved+online.
func (e *env) published(t *testing.T) domain.Listing {
	t.Helper()
	l := e.create(t)
	_, err := e.mod.Submit(as(merchant), l.ID)
	require.NoError(t, err)
	_, err = e.mod.Audit(as(admin), l.ID, app.AuditApprove, "")
	require.NoError(t, err)
	l, err = e.mod.Publish(as(admin), l.ID)
	require.NoError(t, err)
	return l
}

func ptr[T any](v T) *T { return &v }
