package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"hotel_listings/internal/domain"
)

// ImportRecord is one listing of a bulk import fixture.
type ImportRecord struct {
	OwnerID string  `json:"ownerId"`
	Listing Payload `json:"listing"`
	// Publish walks the listing through review and puts it online.
	Publish bool `json:"publish"`
}

// IngestionService loads fixture listings through the same moderation paths a
// merchant and an admin would use, so every stored listing is reachable.
type IngestionService struct {
	mod      *ModerationService
	reviewer domain.Identity
}

func NewIngestionService(mod *ModerationService, reviewerID string) *IngestionService {
	return &IngestionService{mod: mod, reviewer: domain.Identity{ID: reviewerID, Role: domain.RoleAdmin}}
}

func (s *IngestionService) Ingest(ctx context.Context, rec ImportRecord) (domain.Listing, error) {
	if rec.OwnerID == "" {
		return domain.Listing{}, domain.Invalid("ownerId", "Missing owner")
	}
	owner := domain.WithIdentity(ctx, domain.Identity{ID: rec.OwnerID, Role: domain.RoleMerchant})
	l, err := s.mod.Create(owner, rec.Listing)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("create: %w", err)
	}
	if !rec.Publish {
		return l, nil
	}

	id := l.ID
	if _, err := s.mod.Submit(owner, id); err != nil {
		return domain.Listing{}, fmt.Errorf("submit %s: %w", id, err)
	}
	reviewer := domain.WithIdentity(ctx, s.reviewer)
	if _, err := s.mod.Audit(reviewer, id, AuditApprove, ""); err != nil {
		return domain.Listing{}, fmt.Errorf("approve %s: %w", id, err)
	}
	if l, err = s.mod.Publish(reviewer, id); err != nil {
		return domain.Listing{}, fmt.Errorf("publish %s: %w", id, err)
	}
	log.Debug().Str("listing_id", id).Msg("listing ingested and published")
	return l, nil
}
