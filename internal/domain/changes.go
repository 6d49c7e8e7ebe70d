package domain

// ListingChanges is a partial set of content fields. A nil field means
// "unchanged"; it is both the input of a direct edit and the persisted shape of
// a staged edit awaiting review.
type ListingChanges struct {
	NameCN     *string     `json:"nameCn,omitempty" bson:"name_cn,omitempty"`
	NameEN     *string     `json:"nameEn,omitempty" bson:"name_en,omitempty"`
	Address    *string     `json:"address,omitempty" bson:"address,omitempty"`
	City       *string     `json:"city,omitempty" bson:"city,omitempty"`
	Star       *int        `json:"star,omitempty" bson:"star,omitempty"`
	Type       *string     `json:"type,omitempty" bson:"type,omitempty"`
	MinPrice   *float64    `json:"minPrice,omitempty" bson:"min_price,omitempty"`
	OpenTime   *string     `json:"openTime,omitempty" bson:"open_time,omitempty"`
	CoverImage *string     `json:"coverImage,omitempty" bson:"cover_image,omitempty"`
	Images     *[]string   `json:"images,omitempty" bson:"images,omitempty"`
	Tags       *[]string   `json:"tags,omitempty" bson:"tags,omitempty"`
	BannerText *string     `json:"bannerText,omitempty" bson:"banner_text,omitempty"`
	RoomTypes  *[]RoomType `json:"roomTypes,omitempty" bson:"room_types,omitempty"`
	Nearby     *Nearby     `json:"nearby,omitempty" bson:"nearby,omitempty"`
	Discounts  *[]Discount `json:"discounts,omitempty" bson:"discounts,omitempty"`
}

// IsEmpty reports whether no field is set.
func (c ListingChanges) IsEmpty() bool {
	return c.NameCN == nil && c.NameEN == nil && c.Address == nil && c.City == nil &&
		c.Star == nil && c.Type == nil && c.MinPrice == nil && c.OpenTime == nil &&
		c.CoverImage == nil && c.Images == nil && c.Tags == nil && c.BannerText == nil &&
		c.RoomTypes == nil && c.Nearby == nil && c.Discounts == nil
}

// ApplyTo overwrites every set field of dst and re-derives minPrice.
func (c ListingChanges) ApplyTo(dst *Content) {
	setIf(&dst.NameCN, c.NameCN)
	setIf(&dst.NameEN, c.NameEN)
	setIf(&dst.Address, c.Address)
	setIf(&dst.City, c.City)
	setIf(&dst.Star, c.Star)
	setIf(&dst.Type, c.Type)
	setIf(&dst.MinPrice, c.MinPrice)
	setIf(&dst.OpenTime, c.OpenTime)
	setIf(&dst.CoverImage, c.CoverImage)
	setIf(&dst.BannerText, c.BannerText)
	if c.Images != nil {
		dst.Images = cloneStrings(*c.Images)
	}
	if c.Tags != nil {
		dst.Tags = cloneStrings(*c.Tags)
	}
	if c.RoomTypes != nil {
		dst.RoomTypes = cloneRoomTypes(*c.RoomTypes)
	}
	if c.Nearby != nil {
		dst.Nearby = c.Nearby.clone()
	}
	if c.Discounts != nil {
		dst.Discounts = append([]Discount{}, (*c.Discounts)...)
	}
	dst.Normalize()
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Preview returns base with the changes applied, leaving base untouched.
func (c ListingChanges) Preview(base Content) Content {
	out := base.clone()
	c.ApplyTo(&out)
	return out
}

// Clone deep-copies the slice and struct fields.
func (c ListingChanges) Clone() ListingChanges {
	out := c
	if c.Images != nil {
		v := cloneStrings(*c.Images)
		out.Images = &v
	}
	if c.Tags != nil {
		v := cloneStrings(*c.Tags)
		out.Tags = &v
	}
	if c.RoomTypes != nil {
		v := cloneRoomTypes(*c.RoomTypes)
		out.RoomTypes = &v
	}
	if c.Nearby != nil {
		v := c.Nearby.clone()
		out.Nearby = &v
	}
	if c.Discounts != nil {
		v := append([]Discount{}, (*c.Discounts)...)
		out.Discounts = &v
	}
	return out
}
