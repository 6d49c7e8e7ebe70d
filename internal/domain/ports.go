package domain

import "context"

// Guard is what a conditional write expects to still find in the store.
type Guard struct {
	Version int64
	State   State
	Deleted bool
}

func GuardOf(l Listing) Guard {
	return Guard{Version: l.Version, State: l.State(), Deleted: l.DeletedAt != nil}
}

// Matches reports whether stored still satisfies g.
func (g Guard) Matches(stored Listing) bool {
	return stored.Version == g.Version && stored.State() == g.State && (stored.DeletedAt != nil) == g.Deleted
}

type ListingStore interface {
	Create(ctx context.Context, l Listing) error
	// Get returns the listing including soft-deleted ones; ErrNotFound if the
	// id is unknown.
	Get(ctx context.Context, id string) (Listing, error)
	// CompareAndSwap replaces the stored listing with next only if it still
	// matches expected, bumping the version. A mismatch is ErrStaleWrite.
	CompareAndSwap(ctx context.Context, next Listing, expected Guard) (Listing, error)
	Search(ctx context.Context, q ListingQuery) (ListingsPage, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
