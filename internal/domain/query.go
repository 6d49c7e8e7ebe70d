package domain

import (
	"math"
	"sort"
	"strings"
)

// CitySuffix is the locale "city" marker that is optional on both the stored
// value and the query.
const CitySuffix = "市"

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
	// MaxPage keeps (page-1)*MaxPageSize within int.
	MaxPage = math.MaxInt / MaxPageSize
)

type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "priceAsc"
	SortPriceDesc Sort = "priceDesc"
	SortStarDesc  Sort = "starDesc"
	// SortUpdated orders the owner and admin lists.
	SortUpdated Sort = "updated"
)

// ParseSort maps the public sort parameter; anything unknown is newest-first.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortPriceAsc, SortPriceDesc, SortStarDesc:
		return Sort(s)
	}
	return SortNewest
}

type Scope int

const (
	ScopePublic Scope = iota
	ScopeOwner
	ScopeAdmin
)

// ListingQuery is the store-independent filter/sort/page request. Every field
// is optional; set fields combine conjunctively. Deleted listings never match.
type ListingQuery struct {
	Scope   Scope
	OwnerID string

	City     string
	Keyword  string
	Type     string
	Tags     []string
	Star     *int
	MinPrice *float64
	MaxPrice *float64

	AuditStatus  *AuditStatus
	OnlineStatus *OnlineStatus
	UpdateStatus *UpdateStatus

	Sort     Sort
	Page     int
	PageSize int
}

type ListingsPage struct {
	List     []Listing `json:"list"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	Total    int64     `json:"total"`
}

// NormalizePage clamps page to [1, MaxPage] and size to [1, MaxPageSize].
func NormalizePage(page, size int) (int, int) {
	switch {
	case page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

func (q ListingQuery) Offset() int { return (q.Page - 1) * q.PageSize }

func CityKey(city string) string {
	return strings.TrimSuffix(strings.TrimSpace(city), CitySuffix)
}

// SplitTags parses a comma-separated tag list, dropping blanks.
func SplitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Matches evaluates the query against one listing. Stores that cannot push the
// filter down use it directly; the SQL and document stores mirror it.
func (q ListingQuery) Matches(l Listing) bool {
	if IsDeleted(l) {
		return false
	}
	switch q.Scope {
	case ScopePublic:
		if !IsPubliclyVisible(l) {
			return false
		}
	case ScopeOwner:
		if !IsOwnedBy(l, q.OwnerID) {
			return false
		}
	case ScopeAdmin:
		if q.OwnerID != "" && l.OwnerID != q.OwnerID {
			return false
		}
	}
	if q.AuditStatus != nil && l.AuditStatus != *q.AuditStatus {
		return false
	}
	if q.OnlineStatus != nil && l.OnlineStatus != *q.OnlineStatus {
		return false
	}
	if q.UpdateStatus != nil && l.UpdateStatus != *q.UpdateStatus {
		return false
	}
	if q.City != "" && CityKey(l.City) != CityKey(q.City) {
		return false
	}
	if q.Type != "" && l.Type != q.Type {
		return false
	}
	if q.Star != nil && l.Star != *q.Star {
		return false
	}
	if q.MinPrice != nil && l.MinPrice < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && l.MinPrice > *q.MaxPrice {
		return false
	}
	if len(q.Tags) > 0 && !intersects(l.Tags, q.Tags) {
		return false
	}
	if q.Keyword != "" {
		kw := strings.ToLower(q.Keyword)
		if !strings.Contains(strings.ToLower(l.NameCN), kw) &&
			!strings.Contains(strings.ToLower(l.NameEN), kw) &&
			!strings.Contains(strings.ToLower(l.Address), kw) {
			return false
		}
	}
	return true
}

func intersects(have, want []string) bool {
	for _, w := range want {
		if contains(have, w) {
			return true
		}
	}
	return false
}

// SortListings orders ls in place by s with an id tie-break.
func SortListings(ls []Listing, s Sort) {
	sort.SliceStable(ls, func(i, j int) bool {
		a, b := ls[i], ls[j]
		switch s {
		case SortPriceAsc:
			if a.MinPrice != b.MinPrice {
				return a.MinPrice < b.MinPrice
			}
		case SortPriceDesc:
			if a.MinPrice != b.MinPrice {
				return a.MinPrice > b.MinPrice
			}
		case SortStarDesc:
			if a.Star != b.Star {
				return a.Star > b.Star
			}
		case SortUpdated:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}
