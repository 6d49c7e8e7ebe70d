package domain

import (
	"sort"
	"time"
)

type AuditStatus string

const (
	AuditDraft    AuditStatus = "draft"
	AuditPending  AuditStatus = "pending"
	AuditApproved AuditStatus = "approved"
	AuditRejected AuditStatus = "rejected"
)

type OnlineStatus string

const (
	Offline OnlineStatus = "offline"
	Online  OnlineStatus = "online"
)

// UpdateStatus tracks moderation of a staged edit to a published listing.
type UpdateStatus string

const (
	UpdateNone     UpdateStatus = "none"
	UpdateDraft    UpdateStatus = "draft"
	UpdatePending  UpdateStatus = "pending"
	UpdateRejected UpdateStatus = "rejected"
)

func (s AuditStatus) Valid() bool {
	switch s {
	case AuditDraft, AuditPending, AuditApproved, AuditRejected:
		return true
	}
	return false
}

func (s OnlineStatus) Valid() bool { return s == Offline || s == Online }

func (s UpdateStatus) Valid() bool {
	switch s {
	case UpdateNone, UpdateDraft, UpdatePending, UpdateRejected:
		return true
	}
	return false
}

type RoomType struct {
	Name      string   `json:"name" bson:"name"`
	Price     float64  `json:"price" bson:"price"`
	Images    []string `json:"images" bson:"images"`
	Amenities []string `json:"amenities" bson:"amenities"`
}

type Nearby struct {
	Scenic    []string `json:"scenic" bson:"scenic"`
	Transport []string `json:"transport" bson:"transport"`
	Mall      []string `json:"mall" bson:"mall"`
}

type Discount struct {
	Title string `json:"title" bson:"title"`
	Desc  string `json:"desc,omitempty" bson:"desc,omitempty"`
}

// Content is the merchant-authored part of a listing. It is the only part a
// staged edit may touch.
type Content struct {
	NameCN     string     `json:"nameCn" bson:"name_cn"`
	NameEN     string     `json:"nameEn" bson:"name_en"`
	Address    string     `json:"address" bson:"address"`
	City       string     `json:"city" bson:"city"`
	Star       int        `json:"star" bson:"star"`
	Type       string     `json:"type" bson:"type"`
	MinPrice   float64    `json:"minPrice" bson:"min_price"`
	OpenTime   string     `json:"openTime" bson:"open_time"`
	CoverImage string     `json:"coverImage" bson:"cover_image"`
	Images     []string   `json:"images" bson:"images"`
	Tags       []string   `json:"tags" bson:"tags"`
	BannerText string     `json:"bannerText" bson:"banner_text"`
	RoomTypes  []RoomType `json:"roomTypes" bson:"room_types"`
	Nearby     Nearby     `json:"nearby" bson:"nearby"`
	Discounts  []Discount `json:"discounts" bson:"discounts"`
}

type Listing struct {
	ID      string `json:"id" bson:"_id"`
	OwnerID string `json:"ownerId" bson:"owner_id"`

	AuditStatus        AuditStatus     `json:"auditStatus" bson:"audit_status"`
	OnlineStatus       OnlineStatus    `json:"onlineStatus" bson:"online_status"`
	RejectReason       *string         `json:"rejectReason" bson:"reject_reason"`
	UpdateStatus       UpdateStatus    `json:"updateStatus" bson:"update_status"`
	UpdatePayload      *ListingChanges `json:"updatePayload" bson:"update_payload"`
	UpdateRejectReason *string         `json:"updateRejectReason" bson:"update_reject_reason"`

	Content `bson:",inline"`

	// Version is bumped by every successful write and guards conditional writes.
	Version   int64      `json:"version" bson:"version"`
	CreatedAt time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updated_at"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" bson:"deleted_at"`
}

func (l Listing) State() State {
	return State{Audit: l.AuditStatus, Online: l.OnlineStatus, Update: l.UpdateStatus}
}

func (l *Listing) SetState(s State) {
	l.AuditStatus, l.OnlineStatus, l.UpdateStatus = s.Audit, s.Online, s.Update
}

// Normalize enforces the derived fields: minPrice follows the cheapest room
// type whenever room types exist.
func (c *Content) Normalize() {
	if len(c.RoomTypes) > 0 {
		min := c.RoomTypes[0].Price
		for _, rt := range c.RoomTypes[1:] {
			if rt.Price < min {
				min = rt.Price
			}
		}
		c.MinPrice = min
	}
}

// Cover returns the cover image, falling back to the first image.
func (c Content) Cover() string {
	if c.CoverImage != "" {
		return c.CoverImage
	}
	if len(c.Images) > 0 {
		return c.Images[0]
	}
	return ""
}

// RoomTypesByPrice returns a copy of the room types ordered cheapest first.
func (c Content) RoomTypesByPrice() []RoomType {
	out := make([]RoomType, len(c.RoomTypes))
	copy(out, c.RoomTypes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// Clone deep-copies the listing so callers can mutate the result freely.
func (l Listing) Clone() Listing {
	out := l
	out.Content = l.Content.clone()
	if l.RejectReason != nil {
		s := *l.RejectReason
		out.RejectReason = &s
	}
	if l.UpdateRejectReason != nil {
		s := *l.UpdateRejectReason
		out.UpdateRejectReason = &s
	}
	if l.UpdatePayload != nil {
		p := l.UpdatePayload.Clone()
		out.UpdatePayload = &p
	}
	if l.DeletedAt != nil {
		t := *l.DeletedAt
		out.DeletedAt = &t
	}
	return out
}

func (c Content) clone() Content {
	out := c
	out.Images = cloneStrings(c.Images)
	out.Tags = cloneStrings(c.Tags)
	out.Nearby = c.Nearby.clone()
	out.RoomTypes = cloneRoomTypes(c.RoomTypes)
	if c.Discounts != nil {
		out.Discounts = append([]Discount(nil), c.Discounts...)
	}
	return out
}

func (n Nearby) clone() Nearby {
	return Nearby{Scenic: cloneStrings(n.Scenic), Transport: cloneStrings(n.Transport), Mall: cloneStrings(n.Mall)}
}

func cloneRoomTypes(in []RoomType) []RoomType {
	if in == nil {
		return nil
	}
	out := make([]RoomType, len(in))
	for i, rt := range in {
		rt.Images = cloneStrings(rt.Images)
		rt.Amenities = cloneStrings(rt.Amenities)
		out[i] = rt
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
