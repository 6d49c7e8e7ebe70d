package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_listings/internal/domain"
)

// ListFilter is the caller-facing search request; the service decides scope.
type ListFilter struct {
	City     string
	Keyword  string
	Type     string
	Tags     []string
	Star     *int
	MinPrice *float64
	MaxPrice *float64

	AuditStatus  *domain.AuditStatus
	OnlineStatus *domain.OnlineStatus
	UpdateStatus *domain.UpdateStatus
	OwnerID      string

	Sort     domain.Sort
	Page     int
	PageSize int
}

type QueryService struct {
	store    domain.ListingStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(store domain.ListingStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: store, cache: c, cacheTTL: ttl}
}

func publicDetailKey(id string) string { return "listing:public:" + id }

func (f ListFilter) query(scope domain.Scope) domain.ListingQuery {
	q := domain.ListingQuery{
		Scope:    scope,
		City:     f.City,
		Keyword:  f.Keyword,
		Tags:     f.Tags,
		Star:     f.Star,
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
		Sort:     domain.SortUpdated,
	}
	q.Page, q.PageSize = domain.NormalizePage(f.Page, f.PageSize)
	switch scope {
	case domain.ScopePublic:
		q.Type = f.Type
		q.Sort = domain.ParseSort(string(f.Sort))
	case domain.ScopeOwner:
		q.AuditStatus, q.OnlineStatus = f.AuditStatus, f.OnlineStatus
	case domain.ScopeAdmin:
		q.AuditStatus, q.OnlineStatus, q.UpdateStatus = f.AuditStatus, f.OnlineStatus, f.UpdateStatus
		q.OwnerID = f.OwnerID
	}
	return q
}

func (s *QueryService) QueryPublic(ctx context.Context, f ListFilter) (Page[PublicCard], error) {
	res, err := s.store.Search(ctx, f.query(domain.ScopePublic))
	if err != nil {
		return Page[PublicCard]{}, fmt.Errorf("search public listings: %w", err)
	}
	return mapPage(res, toCard), nil
}

func (s *QueryService) QueryOwner(ctx context.Context, f ListFilter) (Page[ManageView], error) {
	caller, err := Authorize(ctx, ActQueryOwner)
	if err != nil {
		return Page[ManageView]{}, err
	}
	q := f.query(domain.ScopeOwner)
	q.OwnerID = caller.ID
	res, err := s.store.Search(ctx, q)
	if err != nil {
		return Page[ManageView]{}, fmt.Errorf("search owner listings: %w", err)
	}
	return mapPage(res, ToManageView), nil
}

func (s *QueryService) QueryAdmin(ctx context.Context, f ListFilter) (Page[ManageView], error) {
	if _, err := Authorize(ctx, ActQueryAdmin); err != nil {
		return Page[ManageView]{}, err
	}
	res, err := s.store.Search(ctx, f.query(domain.ScopeAdmin))
	if err != nil {
		return Page[ManageView]{}, fmt.Errorf("search listings: %w", err)
	}
	return mapPage(res, ToManageView), nil
}

func (s *QueryService) OwnerStats(ctx context.Context) (OwnerStats, error) {
	caller, err := Authorize(ctx, ActOwnerStats)
	if err != nil {
		return OwnerStats{}, err
	}
	n, err := s.store.CountByOwner(ctx, caller.ID)
	if err != nil {
		return OwnerStats{}, fmt.Errorf("count owner listings: %w", err)
	}
	return OwnerStats{Total: n}, nil
}

// PublicDetail hides every listing that is not publicly visible behind the
// same not-found error.
func (s *QueryService) PublicDetail(ctx context.Context, id string) (PublicDetail, error) {
	key := publicDetailKey(id)
	var out PublicDetail
	if s.cache != nil {
		if ok, err := s.cache.Get(ctx, key, &out); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		} else if ok {
			return out, nil
		}
	}

	l, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !domain.IsPubliclyVisible(l)) {
		return PublicDetail{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return PublicDetail{}, fmt.Errorf("load listing %s: %w", id, err)
	}

	out = toDetail(l)
	if s.cache == nil {
		return out, nil
	}
	if err := s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		return out, nil
	}
	if err := s.recheckCached(ctx, key, l); err != nil {
		return PublicDetail{}, err
	}
	return out, nil
}

// recheckCached drops an entry written from a read that a concurrent
// transition has since superseded. The transition's own invalidation may
// have run between our read and our write.
func (s *QueryService) recheckCached(ctx context.Context, key string, read domain.Listing) error {
	cur, err := s.store.Get(ctx, read.ID)
	if err == nil && cur.Version == read.Version {
		return nil
	}
	if derr := s.cache.Del(ctx, key); derr != nil {
		log.Warn().Err(derr).Str("key", key).Msg("cache del failed")
	}
	switch {
	case errors.Is(err, domain.ErrNotFound) || (err == nil && !domain.IsPubliclyVisible(cur)):
		return fmt.Errorf("listing %s: %w", read.ID, domain.ErrNotFound)
	case err != nil:
		log.Warn().Err(err).Str("id", read.ID).Msg("recheck after cache set failed")
	}
	return nil
}

func (s *QueryService) OwnerDetail(ctx context.Context, id string) (ManageView, error) {
	caller, err := Authorize(ctx, ActOwnerDetail)
	if err != nil {
		return ManageView{}, err
	}
	l, err := s.loadVisible(ctx, id)
	if err != nil {
		return ManageView{}, err
	}
	if err := AuthorizeTarget(caller, ActOwnerDetail, l); err != nil {
		return ManageView{}, err
	}
	return ToManageView(l), nil
}

func (s *QueryService) AdminDetail(ctx context.Context, id string) (ManageView, error) {
	if _, err := Authorize(ctx, ActAdminDetail); err != nil {
		return ManageView{}, err
	}
	l, err := s.loadVisible(ctx, id)
	if err != nil {
		return ManageView{}, err
	}
	return ToManageView(l), nil
}

func (s *QueryService) loadVisible(ctx context.Context, id string) (domain.Listing, error) {
	l, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && domain.IsDeleted(l)) {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("load listing %s: %w", id, err)
	}
	return l, nil
}
