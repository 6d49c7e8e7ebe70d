// Package mongostore keeps one document per listing, with the content fields
// inlined and the staged edit as a subdocument.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"hotel_listings/internal/adapters/observability"
	"hotel_listings/internal/domain"
)

const (
	storeLabel         = "mongo"
	listingsCollection = "listings"
)

// Connect dials uri and pings the primary before returning the database.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(dbName), nil
}

type Store struct {
	coll *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(listingsCollection)}
}

// EnsureIndexes creates the indexes the list queries rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("owner_updated"),
		},
		{
			Keys: bson.D{
				{Key: "audit_status", Value: 1},
				{Key: "online_status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("visibility_created"),
		},
		{Keys: bson.D{{Key: "city", Value: 1}}, Options: options.Index().SetName("city_1")},
		{Keys: bson.D{{Key: "min_price", Value: 1}}, Options: options.Index().SetName("min_price_1")},
		{Keys: bson.D{{Key: "star", Value: -1}}, Options: options.Index().SetName("star_-1")},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create listing indexes: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, l domain.Listing) (err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "create", err, time.Since(start)) }()

	if _, err = s.coll.InsertOne(ctx, l); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create listing %s: %w", l.ID, domain.ErrConflict)
		}
		return fmt.Errorf("insert listing %s: %w", l.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (l domain.Listing, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "get", err, time.Since(start)) }()

	err = s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Listing{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("find listing %s: %w", id, err)
	}
	return l, nil
}

// CompareAndSwap sets every mutable field in one conditional update. Owner and
// creation time are never rewritten.
func (s *Store) CompareAndSwap(ctx context.Context, next domain.Listing, expected domain.Guard) (out domain.Listing, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "cas", err, time.Since(start)) }()

	set, err := mutableFields(next)
	if err != nil {
		return domain.Listing{}, err
	}
	set["version"] = expected.Version + 1

	filter := bson.M{
		"_id":           next.ID,
		"version":       expected.Version,
		"audit_status":  expected.State.Audit,
		"online_status": expected.State.Online,
		"update_status": expected.State.Update,
	}
	if expected.Deleted {
		filter["deleted_at"] = bson.M{"$ne": nil}
	} else {
		filter["deleted_at"] = nil
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.coll.CountDocuments(ctx, bson.M{"_id": next.ID}, options.Count().SetLimit(1))
		if cerr != nil {
			return domain.Listing{}, fmt.Errorf("check listing %s: %w", next.ID, cerr)
		}
		if n == 0 {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, domain.ErrStaleWrite
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("update listing %s: %w", next.ID, err)
	}
	return out, nil
}

func mutableFields(l domain.Listing) (bson.M, error) {
	raw, err := bson.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode listing %s: %w", l.ID, err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode listing %s: %w", l.ID, err)
	}
	for _, k := range []string{"_id", "owner_id", "created_at", "version"} {
		delete(m, k)
	}
	return m, nil
}

func (s *Store) Search(ctx context.Context, q domain.ListingQuery) (page domain.ListingsPage, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "search", err, time.Since(start)) }()

	filter := searchFilter(q)
	page = domain.ListingsPage{Page: q.Page, PageSize: q.PageSize, List: []domain.Listing{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.coll.CountDocuments(gctx, filter)
		page.Total = n
		return err
	})
	var list []domain.Listing
	g.Go(func() error {
		opts := options.Find().
			SetSort(sortDoc(q.Sort)).
			SetSkip(int64(q.Offset())).
			SetLimit(int64(q.PageSize))
		cur, err := s.coll.Find(gctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(gctx, &list)
	})
	if err = g.Wait(); err != nil {
		return domain.ListingsPage{}, fmt.Errorf("search listings: %w", err)
	}
	if list != nil {
		page.List = list
	}
	return page, nil
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (n int64, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore(storeLabel, "count_owner", err, time.Since(start)) }()

	return s.coll.CountDocuments(ctx, bson.M{"owner_id": ownerID, "deleted_at": nil})
}

// searchFilter mirrors domain.ListingQuery.Matches.
func searchFilter(q domain.ListingQuery) bson.M {
	f := bson.M{"deleted_at": nil}
	switch q.Scope {
	case domain.ScopePublic:
		f["audit_status"] = domain.AuditApproved
		f["online_status"] = domain.Online
	case domain.ScopeOwner:
		// an empty owner id matches nothing
		f["owner_id"] = bson.M{"$eq": q.OwnerID, "$ne": ""}
	case domain.ScopeAdmin:
		if q.OwnerID != "" {
			f["owner_id"] = q.OwnerID
		}
	}
	if q.AuditStatus != nil {
		f["audit_status"] = *q.AuditStatus
	}
	if q.OnlineStatus != nil {
		f["online_status"] = *q.OnlineStatus
	}
	if q.UpdateStatus != nil {
		f["update_status"] = *q.UpdateStatus
	}
	if q.City != "" {
		key := domain.CityKey(q.City)
		f["city"] = bson.M{"$in": bson.A{key, key + domain.CitySuffix}}
	}
	if q.Type != "" {
		f["type"] = q.Type
	}
	if q.Star != nil {
		f["star"] = *q.Star
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.M{}
		if q.MinPrice != nil {
			price["$gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["$lte"] = *q.MaxPrice
		}
		f["min_price"] = price
	}
	if len(q.Tags) > 0 {
		f["tags"] = bson.M{"$in": q.Tags}
	}
	if q.Keyword != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Keyword), Options: "i"}
		f["$or"] = bson.A{
			bson.M{"name_cn": re},
			bson.M{"name_en": re},
			bson.M{"address": re},
		}
	}
	return f
}

func sortDoc(s domain.Sort) bson.D {
	var key string
	dir := -1
	switch s {
	case domain.SortPriceAsc:
		key, dir = "min_price", 1
	case domain.SortPriceDesc:
		key = "min_price"
	case domain.SortStarDesc:
		key = "star"
	case domain.SortUpdated:
		key = "updated_at"
	default:
		key = "created_at"
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: 1}}
}
