// Package mysql stores listings in a single MySQL table, with the list-valued
// content fields and the staged edit kept in JSON columns.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"hotel_listings/internal/adapters/observability"
	"hotel_listings/internal/domain"
)

const storeLabel = "mysql"

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// payloadJSON is NULL when no edit is staged.
func payloadJSON(p *domain.ListingChanges) (any, error) {
	if p == nil {
		return nil, nil
	}
	return valJSON(p)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// contentArgs are the content columns in listingColumns order.
func contentArgs(c domain.Content) ([]any, error) {
	var out []any
	out = append(out, c.NameCN, c.NameEN, c.Address, c.City, c.Star, c.Type, c.MinPrice, c.OpenTime, c.CoverImage)
	for _, v := range []any{nonNil(c.Images), nonNil(c.Tags)} {
		j, err := valJSON(v)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	out = append(out, c.BannerText)
	for _, v := range []any{nonNilRooms(c.RoomTypes), c.Nearby, nonNilDiscounts(c.Discounts)} {
		j, err := valJSON(v)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
func nonNilRooms(s []domain.RoomType) []domain.RoomType {
	if s == nil {
		return []domain.RoomType{}
	}
	return s
}
func nonNilDiscounts(s []domain.Discount) []domain.Discount {
	if s == nil {
		return []domain.Discount{}
	}
	return s
}

func (r *Repo) Create(ctx context.Context, l domain.Listing) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "create", err, time.Since(start)) }()

	payload, err := payloadJSON(l.UpdatePayload)
	if err != nil {
		return fmt.Errorf("encode update payload: %w", err)
	}
	content, err := contentArgs(l.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	args := []any{
		l.ID, l.OwnerID,
		string(l.AuditStatus), string(l.OnlineStatus), valStr(l.RejectReason),
		string(l.UpdateStatus), payload, valStr(l.UpdateRejectReason),
	}
	args = append(args, content...)
	args = append(args, l.Version, l.CreatedAt.UTC(), l.UpdatedAt.UTC(), valTime(l.DeletedAt))

	if _, err = r.db.ExecContext(ctx, insertListingSQL, args...); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("create listing %s: %w", l.ID, domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (l domain.Listing, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "get", err, time.Since(start)) }()

	l, err = scanListing(r.db.QueryRowContext(ctx, getListingSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, err
}

func (r *Repo) CompareAndSwap(ctx context.Context, next domain.Listing, expected domain.Guard) (out domain.Listing, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "cas", err, time.Since(start)) }()

	payload, err := payloadJSON(next.UpdatePayload)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("encode update payload: %w", err)
	}
	content, err := contentArgs(next.Content)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("encode content: %w", err)
	}
	args := []any{
		string(next.AuditStatus), string(next.OnlineStatus), valStr(next.RejectReason),
		string(next.UpdateStatus), payload, valStr(next.UpdateRejectReason),
	}
	args = append(args, content...)
	args = append(args, next.UpdatedAt.UTC(), valTime(next.DeletedAt))
	args = append(args,
		next.ID, expected.Version,
		string(expected.State.Audit), string(expected.State.Online), string(expected.State.Update),
		expected.Deleted,
	)

	res, err := r.db.ExecContext(ctx, casUpdateSQL, args...)
	if err != nil {
		return domain.Listing{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Listing{}, err
	}
	if n == 0 {
		var one int
		switch err := r.db.QueryRowContext(ctx, existsSQL, next.ID).Scan(&one); {
		case errors.Is(err, sql.ErrNoRows):
			return domain.Listing{}, domain.ErrNotFound
		case err != nil:
			return domain.Listing{}, err
		}
		return domain.Listing{}, domain.ErrStaleWrite
	}

	saved, err := scanListing(r.db.QueryRowContext(ctx, getListingSQL, next.ID))
	if err != nil {
		return domain.Listing{}, fmt.Errorf("reload listing %s: %w", next.ID, err)
	}
	return saved, nil
}

func (r *Repo) Search(ctx context.Context, q domain.ListingQuery) (page domain.ListingsPage, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "search", err, time.Since(start)) }()

	where, args, err := whereClause(q)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	page = domain.ListingsPage{Page: q.Page, PageSize: q.PageSize, List: []domain.Listing{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.QueryRowContext(gctx, "SELECT COUNT(*) FROM listings"+where, args...).Scan(&page.Total)
	})
	var list []domain.Listing
	g.Go(func() error {
		stmt := "SELECT " + listingColumns + " FROM listings" + where + orderBy(q.Sort) + " LIMIT ? OFFSET ?"
		rows, err := r.db.QueryContext(gctx, stmt, append(append([]any{}, args...), q.PageSize, q.Offset())...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			l, err := scanListing(rows)
			if err != nil {
				return err
			}
			list = append(list, l)
		}
		return rows.Err()
	})
	if err = g.Wait(); err != nil {
		return domain.ListingsPage{}, err
	}
	if list != nil {
		page.List = list
	}
	return page, nil
}

func (r *Repo) CountByOwner(ctx context.Context, ownerID string) (n int64, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "count_owner", err, time.Since(start)) }()

	err = r.db.QueryRowContext(ctx, countByOwnerSQL, ownerID).Scan(&n)
	return n, err
}

// whereClause mirrors domain.ListingQuery.Matches.
func whereClause(q domain.ListingQuery) (string, []any, error) {
	conds := []string{"deleted_at IS NULL"}
	var args []any
	add := func(cond string, a ...any) {
		conds = append(conds, cond)
		args = append(args, a...)
	}

	switch q.Scope {
	case domain.ScopePublic:
		add("audit_status = ? AND online_status = ?", string(domain.AuditApproved), string(domain.Online))
	case domain.ScopeOwner:
		if q.OwnerID == "" {
			add("1 = 0")
		} else {
			add("owner_id = ?", q.OwnerID)
		}
	case domain.ScopeAdmin:
		if q.OwnerID != "" {
			add("owner_id = ?", q.OwnerID)
		}
	}
	if q.AuditStatus != nil {
		add("audit_status = ?", string(*q.AuditStatus))
	}
	if q.OnlineStatus != nil {
		add("online_status = ?", string(*q.OnlineStatus))
	}
	if q.UpdateStatus != nil {
		add("update_status = ?", string(*q.UpdateStatus))
	}
	if q.City != "" {
		key := domain.CityKey(q.City)
		add("city IN (?, ?)", key, key+domain.CitySuffix)
	}
	if q.Type != "" {
		add("`type` = ?", q.Type)
	}
	if q.Star != nil {
		add("star = ?", *q.Star)
	}
	if q.MinPrice != nil {
		add("min_price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		add("min_price <= ?", *q.MaxPrice)
	}
	if len(q.Tags) > 0 {
		tags, err := valJSON(q.Tags)
		if err != nil {
			return "", nil, err
		}
		add("JSON_OVERLAPS(tags, CAST(? AS JSON))", tags)
	}
	if q.Keyword != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(q.Keyword)) + "%"
		add("(LOWER(name_cn) LIKE ? OR LOWER(name_en) LIKE ? OR LOWER(address) LIKE ?)", like, like, like)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func orderBy(s domain.Sort) string {
	switch s {
	case domain.SortPriceAsc:
		return " ORDER BY min_price ASC, id ASC"
	case domain.SortPriceDesc:
		return " ORDER BY min_price DESC, id ASC"
	case domain.SortStarDesc:
		return " ORDER BY star DESC, id ASC"
	case domain.SortUpdated:
		return " ORDER BY updated_at DESC, id ASC"
	}
	return " ORDER BY created_at DESC, id ASC"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(row scanner) (domain.Listing, error) {
	var (
		l                                 domain.Listing
		audit, online, update             string
		rejectReason, updateReject        sql.NullString
		payloadRaw                        []byte
		imagesRaw, tagsRaw                []byte
		roomsRaw, nearbyRaw, discountsRaw []byte
		deletedAt                         sql.NullTime
	)
	if err := row.Scan(
		&l.ID, &l.OwnerID,
		&audit, &online, &rejectReason, &update, &payloadRaw, &updateReject,
		&l.NameCN, &l.NameEN, &l.Address, &l.City, &l.Star, &l.Type, &l.MinPrice, &l.OpenTime, &l.CoverImage,
		&imagesRaw, &tagsRaw, &l.BannerText, &roomsRaw, &nearbyRaw, &discountsRaw,
		&l.Version, &l.CreatedAt, &l.UpdatedAt, &deletedAt,
	); err != nil {
		return domain.Listing{}, err
	}

	l.AuditStatus = domain.AuditStatus(audit)
	l.OnlineStatus = domain.OnlineStatus(online)
	l.UpdateStatus = domain.UpdateStatus(update)
	if rejectReason.Valid {
		s := rejectReason.String
		l.RejectReason = &s
	}
	if updateReject.Valid {
		s := updateReject.String
		l.UpdateRejectReason = &s
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		l.DeletedAt = &t
	}
	l.CreatedAt, l.UpdatedAt = l.CreatedAt.UTC(), l.UpdatedAt.UTC()

	if len(payloadRaw) > 0 {
		var p domain.ListingChanges
		if err := json.Unmarshal(payloadRaw, &p); err != nil {
			return domain.Listing{}, fmt.Errorf("decode update_payload of %s: %w", l.ID, err)
		}
		l.UpdatePayload = &p
	}
	for _, c := range []struct {
		col string
		raw []byte
		dst any
	}{
		{"images", imagesRaw, &l.Images},
		{"tags", tagsRaw, &l.Tags},
		{"room_types", roomsRaw, &l.RoomTypes},
		{"nearby", nearbyRaw, &l.Nearby},
		{"discounts", discountsRaw, &l.Discounts},
	} {
		if len(c.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(c.raw, c.dst); err != nil {
			return domain.Listing{}, fmt.Errorf("decode %s of %s: %w", c.col, l.ID, err)
		}
	}
	return l, nil
}
