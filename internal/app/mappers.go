package app

import (
	"math"
	"strconv"
	"strings"

	"hotel_listings/internal/domain"
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// normString trims strings and maps anything else to "".
func normString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// numberFlexible accepts JSON numbers and numeric strings.
func numberFlexible(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// stringList: trimmed strings from a []any, blanks dropped. Non-lists are empty.
func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			raw = make([]any, len(ss))
			for i, s := range ss {
				raw[i] = s
			}
		}
	}
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		if s := normString(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func objects(v any) []map[string]any {
	raw, _ := v.([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		m, _ := it.(map[string]any)
		out = append(out, m)
	}
	return out
}

/********** payload mappers **********/

func mapRoomTypes(v any) ([]domain.RoomType, error) {
	items := objects(v)
	out := make([]domain.RoomType, 0, len(items))
	for _, m := range items {
		rt := domain.RoomType{
			Name:      normString(lookupAny(m, "name")),
			Images:    stringList(lookupAny(m, "images")),
			Amenities: stringList(lookupAny(m, "amenities")),
		}
		if rt.Name == "" {
			return nil, domain.Invalid("roomTypes.name", "Invalid roomTypes")
		}
		price, ok := numberFlexible(lookupAny(m, "price"))
		if !ok || price < 0 {
			return nil, domain.Invalid("roomTypes.price", "Invalid roomTypes")
		}
		rt.Price = price
		if len(rt.Images) == 0 {
			return nil, domain.Invalid("roomTypes.images", "Invalid roomTypes")
		}
		out = append(out, rt)
	}
	return out, nil
}

func mapDiscounts(v any) ([]domain.Discount, error) {
	items := objects(v)
	out := make([]domain.Discount, 0, len(items))
	for _, m := range items {
		d := domain.Discount{Title: normString(lookupAny(m, "title")), Desc: normString(lookupAny(m, "desc"))}
		if d.Title == "" {
			return nil, domain.Invalid("discounts.title", "Invalid discounts")
		}
		out = append(out, d)
	}
	return out, nil
}

func mapNearby(v any) domain.Nearby {
	m, _ := v.(map[string]any)
	return domain.Nearby{
		Scenic:    stringList(lookupAny(m, "scenic")),
		Transport: stringList(lookupAny(m, "transport")),
		Mall:      stringList(lookupAny(m, "mall")),
	}
}

// MapChanges turns a decoded request body into the set of fields it carries.
// Keys that are absent stay nil; present keys are normalized and validated.
func MapChanges(body map[string]any) (domain.ListingChanges, error) {
	var c domain.ListingChanges
	if body == nil {
		return c, nil
	}
	str := func(key string) *string {
		if !has(body, key) {
			return nil
		}
		s := normString(body[key])
		return &s
	}
	list := func(key string) *[]string {
		if !has(body, key) {
			return nil
		}
		l := stringList(body[key])
		return &l
	}

	c.NameCN = str("nameCn")
	c.NameEN = str("nameEn")
	c.Address = str("address")
	c.City = str("city")
	c.Type = str("type")
	c.OpenTime = str("openTime")
	c.CoverImage = str("coverImage")
	c.BannerText = str("bannerText")
	c.Images = list("images")
	c.Tags = list("tags")

	if has(body, "star") {
		f, ok := numberFlexible(body["star"])
		if !ok || f != math.Trunc(f) || f < 1 || f > 5 {
			return domain.ListingChanges{}, domain.Invalid("star", "Invalid star")
		}
		star := int(f)
		c.Star = &star
	}
	if has(body, "minPrice") {
		f, ok := numberFlexible(body["minPrice"])
		if !ok || f < 0 {
			return domain.ListingChanges{}, domain.Invalid("minPrice", "Invalid minPrice")
		}
		c.MinPrice = &f
	}
	if has(body, "roomTypes") {
		rts, err := mapRoomTypes(body["roomTypes"])
		if err != nil {
			return domain.ListingChanges{}, err
		}
		c.RoomTypes = &rts
	}
	if has(body, "discounts") {
		ds, err := mapDiscounts(body["discounts"])
		if err != nil {
			return domain.ListingChanges{}, err
		}
		c.Discounts = &ds
	}
	if has(body, "nearby") {
		n := mapNearby(body["nearby"])
		c.Nearby = &n
	}

	if c.Images != nil && len(*c.Images) > 0 && (c.CoverImage == nil || *c.CoverImage == "") {
		cover := (*c.Images)[0]
		c.CoverImage = &cover
	}
	return c, nil
}

// validateContent checks the fields every stored listing must carry.
func validateContent(c domain.Content) error {
	required := []struct{ field, value string }{
		{"nameCn", c.NameCN},
		{"address", c.Address},
		{"city", c.City},
		{"type", c.Type},
		{"openTime", c.OpenTime},
	}
	for _, r := range required {
		if r.value == "" {
			return domain.Invalid(r.field, "Missing required field")
		}
	}
	if c.Star < 1 || c.Star > 5 {
		return domain.Invalid("star", "Invalid star")
	}
	if len(c.Images) == 0 {
		return domain.Invalid("images", "Missing images")
	}
	if len(c.RoomTypes) == 0 && c.MinPrice < 0 {
		return domain.Invalid("minPrice", "Missing minPrice or roomTypes")
	}
	return nil
}

// contentForCreate builds the initial content; without room types an explicit
// minPrice is required.
func contentForCreate(ch domain.ListingChanges) (domain.Content, error) {
	var c domain.Content
	if ch.Star == nil {
		return c, domain.Invalid("star", "Missing required field")
	}
	if (ch.RoomTypes == nil || len(*ch.RoomTypes) == 0) && ch.MinPrice == nil {
		return c, domain.Invalid("minPrice", "Missing minPrice or roomTypes")
	}
	ch.ApplyTo(&c)
	if err := validateContent(c); err != nil {
		return domain.Content{}, err
	}
	return c, nil
}
