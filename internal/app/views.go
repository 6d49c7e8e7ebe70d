package app

import (
	"time"

	"hotel_listings/internal/domain"
)

// PublicCard is a public list item.
type PublicCard struct {
	ID         string   `json:"id"`
	NameCN     string   `json:"nameCn"`
	NameEN     string   `json:"nameEn"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	Star       int      `json:"star"`
	Type       string   `json:"type"`
	MinPrice   float64  `json:"minPrice"`
	Tags       []string `json:"tags"`
	CoverImage string   `json:"coverImage"`
}

// PublicDetail carries content only. Moderation fields and timestamps stay
// out so staging an edit cannot change what visitors see.
type PublicDetail struct {
	PublicCard
	OpenTime   string            `json:"openTime"`
	Images     []string          `json:"images"`
	BannerText string            `json:"bannerText"`
	RoomTypes  []domain.RoomType `json:"roomTypes"`
	Nearby     domain.Nearby     `json:"nearby"`
	Discounts  []domain.Discount `json:"discounts"`
}

// ManageView is what owners and administrators see.
type ManageView struct {
	PublicDetail
	OwnerID            string                 `json:"ownerId"`
	AuditStatus        domain.AuditStatus     `json:"auditStatus"`
	OnlineStatus       domain.OnlineStatus    `json:"onlineStatus"`
	RejectReason       *string                `json:"rejectReason"`
	UpdateStatus       domain.UpdateStatus    `json:"updateStatus"`
	UpdatePayload      *domain.ListingChanges `json:"updatePayload"`
	UpdateRejectReason *string                `json:"updateRejectReason"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

type Page[T any] struct {
	List     []T   `json:"list"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type OwnerStats struct {
	Total int64 `json:"total"`
}

func strs(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func toCard(l domain.Listing) PublicCard {
	return PublicCard{
		ID:         l.ID,
		NameCN:     l.NameCN,
		NameEN:     l.NameEN,
		Address:    l.Address,
		City:       l.City,
		Star:       l.Star,
		Type:       l.Type,
		MinPrice:   l.MinPrice,
		Tags:       strs(l.Tags),
		CoverImage: l.Cover(),
	}
}

func toDetail(l domain.Listing) PublicDetail {
	rts := l.RoomTypesByPrice()
	for i := range rts {
		rts[i].Images = strs(rts[i].Images)
		rts[i].Amenities = strs(rts[i].Amenities)
	}
	discounts := l.Discounts
	if discounts == nil {
		discounts = []domain.Discount{}
	}
	return PublicDetail{
		PublicCard: toCard(l),
		OpenTime:   l.OpenTime,
		Images:     strs(l.Images),
		BannerText: l.BannerText,
		RoomTypes:  rts,
		Nearby: domain.Nearby{
			Scenic:    strs(l.Nearby.Scenic),
			Transport: strs(l.Nearby.Transport),
			Mall:      strs(l.Nearby.Mall),
		},
		Discounts: discounts,
	}
}

// ToManageView renders the full record for owner and admin surfaces.
func ToManageView(l domain.Listing) ManageView {
	return ManageView{
		PublicDetail:       toDetail(l),
		OwnerID:            l.OwnerID,
		AuditStatus:        l.AuditStatus,
		OnlineStatus:       l.OnlineStatus,
		RejectReason:       l.RejectReason,
		UpdateStatus:       l.UpdateStatus,
		UpdatePayload:      l.UpdatePayload,
		UpdateRejectReason: l.UpdateRejectReason,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

func mapPage[T any](p domain.ListingsPage, f func(domain.Listing) T) Page[T] {
	out := Page[T]{Page: p.Page, PageSize: p.PageSize, Total: p.Total, List: make([]T, 0, len(p.List))}
	for _, l := range p.List {
		out.List = append(out.List, f(l))
	}
	return out
}
