// Package storage selects the ListingStore backend named by the configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotel_listings/internal/domain"
	"hotel_listings/internal/shared"
	"hotel_listings/internal/storage/memory"
	"hotel_listings/internal/storage/mongostore"
	mysqlrepo "hotel_listings/internal/storage/mysql"
)

const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
)

// Open connects the configured store. The returned close func is never nil.
func Open(ctx context.Context, cfg shared.Config) (domain.ListingStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreDriver {
	case "", DriverMemory:
		log.Warn().Msg("using in-memory listing store; data is lost on exit")
		return memory.New(), noop, nil

	case DriverMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("mysql ping: %w", err)
		}
		log.Info().Msg("mysql connection ok")
		return mysqlrepo.New(db), db.Close, nil

	case DriverMongo:
		client, db, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, noop, err
		}
		s := mongostore.New(db)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, noop, err
		}
		log.Info().Str("db", cfg.MongoDB).Msg("mongo connection ok")
		return s, func() error { return client.Disconnect(context.Background()) }, nil
	}
	return nil, noop, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
