// Package memory is an in-process ListingStore used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"hotel_listings/internal/domain"
)

type Store struct {
	mu    sync.RWMutex
	byID  map[string]domain.Listing
	order []string
}

func New() *Store {
	return &Store{byID: map[string]domain.Listing{}}
}

func (s *Store) Create(ctx context.Context, l domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[l.ID]; ok {
		return fmt.Errorf("create listing %s: %w", l.ID, domain.ErrConflict)
	}
	s.byID[l.ID] = l.Clone()
	s.order = append(s.order, l.ID)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.byID[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l.Clone(), nil
}

func (s *Store) CompareAndSwap(ctx context.Context, next domain.Listing, expected domain.Guard) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[next.ID]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	if !expected.Matches(cur) {
		return domain.Listing{}, domain.ErrStaleWrite
	}
	next = next.Clone()
	next.Version = cur.Version + 1
	next.OwnerID, next.CreatedAt = cur.OwnerID, cur.CreatedAt
	s.byID[next.ID] = next
	return next.Clone(), nil
}

func (s *Store) Search(ctx context.Context, q domain.ListingQuery) (domain.ListingsPage, error) {
	s.mu.RLock()
	matched := make([]domain.Listing, 0, len(s.order))
	for _, id := range s.order {
		if l := s.byID[id]; q.Matches(l) {
			matched = append(matched, l.Clone())
		}
	}
	s.mu.RUnlock()

	domain.SortListings(matched, q.Sort)
	out := domain.ListingsPage{Page: q.Page, PageSize: q.PageSize, Total: int64(len(matched)), List: []domain.Listing{}}
	if off := q.Offset(); off >= 0 && off < len(matched) {
		end := len(matched)
		if q.PageSize > 0 && q.PageSize < end-off {
			end = off + q.PageSize
		}
		out.List = matched[off:end]
	}
	return out, nil
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, l := range s.byID {
		if l.OwnerID == ownerID && !domain.IsDeleted(l) {
			n++
		}
	}
	return n, nil
}
