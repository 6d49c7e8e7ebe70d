package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_listings/internal/adapters/observability"
	"hotel_listings/internal/domain"
)

// Payload is a decoded JSON request body of listing fields.
type Payload = map[string]any

type AuditAction string

const (
	AuditApprove AuditAction = "approve"
	AuditReject  AuditAction = "reject"
)

// ModerationService applies every listing mutation as load, table lookup, then
// a conditional write guarded by the version and state that were read.
type ModerationService struct {
	store       domain.ListingStore
	cache       domain.Cache
	maxAttempts int

	Now   func() time.Time
	NewID func() string
}

func NewModerationService(store domain.ListingStore, cache domain.Cache, maxAttempts int) *ModerationService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ModerationService{
		store:       store,
		cache:       cache,
		maxAttempts: maxAttempts,
		Now:         func() time.Time { return time.Now().UTC() },
		NewID:       uuid.NewString,
	}
}

func (s *ModerationService) Create(ctx context.Context, body Payload) (domain.Listing, error) {
	caller, err := Authorize(ctx, ActCreate)
	if err != nil {
		return domain.Listing{}, err
	}
	ch, err := MapChanges(body)
	if err != nil {
		return domain.Listing{}, err
	}
	content, err := contentForCreate(ch)
	if err != nil {
		return domain.Listing{}, err
	}

	now := s.Now()
	l := domain.Listing{
		ID:        s.NewID(),
		OwnerID:   caller.ID,
		Content:   content,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.SetState(domain.Initial)
	if err := s.store.Create(ctx, l); err != nil {
		return domain.Listing{}, fmt.Errorf("create listing: %w", err)
	}
	observability.ObserveTransition("create", "ok")
	log.Info().Str("listing_id", l.ID).Str("owner_id", l.OwnerID).Msg("listing created")
	return l, nil
}

// Update edits the live fields directly until the listing is published; after
// that the changes are staged for review.
func (s *ModerationService) Update(ctx context.Context, id string, body Payload) (domain.Listing, error) {
	caller, err := Authorize(ctx, ActUpdate)
	if err != nil {
		return domain.Listing{}, err
	}
	ch, err := MapChanges(body)
	if err != nil {
		return domain.Listing{}, err
	}
	return s.transition(ctx, caller, ActUpdate, id, domain.OpEdit, func(next *domain.Listing, t domain.Transition) error {
		switch t.Effect {
		case domain.EffectStageEdit:
			if ch.IsEmpty() {
				return domain.Invalid("", "No updates provided")
			}
			if err := validateContent(ch.Preview(next.Content)); err != nil {
				return err
			}
			staged := ch.Clone()
			next.UpdatePayload = &staged
			next.UpdateRejectReason = nil
		case domain.EffectEditLive:
			ch.ApplyTo(&next.Content)
			if err := validateContent(next.Content); err != nil {
				return err
			}
			if next.AuditStatus == domain.AuditDraft {
				next.RejectReason = nil
			}
		}
		return nil
	})
}

func (s *ModerationService) Submit(ctx context.Context, id string) (domain.Listing, error) {
	caller, err := Authorize(ctx, ActSubmit)
	if err != nil {
		return domain.Listing{}, err
	}
	return s.transition(ctx, caller, ActSubmit, id, domain.OpSubmit, func(next *domain.Listing, t domain.Transition) error {
		switch t.Effect {
		case domain.EffectSubmitLive:
			next.RejectReason = nil
		case domain.EffectSubmitStaged:
			next.UpdateRejectReason = nil
		}
		return nil
	})
}

func (s *ModerationService) SelfOffline(ctx context.Context, id string) (domain.Listing, error) {
	caller, err := Authorize(ctx, ActSelfOffline)
	if err != nil {
		return domain.Listing{}, err
	}
	return s.transition(ctx, caller, ActSelfOffline, id, domain.OpSelfOffline, nil)
}

// Audit reviews whichever track is pending: the live submission first, then a
// staged edit.
func (s *ModerationService) Audit(ctx context.Context, id string, action AuditAction, reason string) (domain.Listing, error) {
	caller, err := Authorize(ctx, ActAudit)
	if err != nil {
		return domain.Listing{}, err
	}
	reason = strings.TrimSpace(reason)
	switch action {
	case AuditApprove:
	case AuditReject:
		if reason == "" {
			return domain.Listing{}, domain.Invalid("rejectReason", "Reject reason required")
		}
	default:
		return domain.Listing{}, domain.Invalid("action", "Invalid action")
	}

	op := domain.OpAuditApprove
	if action == AuditReject {
		op = domain.OpAuditReject
	}
	return s.transition(ctx, caller, ActAudit, id, op, func(next *domain.Listing, t domain.Transition) error {
		switch t.Effect {
		case domain.EffectApproveLive:
			next.RejectReason = nil
		case domain.EffectRejectLive:
			next.RejectReason = &reason
		case domain.EffectMergeStaged:
			next.UpdatePayload.ApplyTo(&next.Content)
			next.UpdatePayload = nil
			next.UpdateRejectReason = nil
		case domain.EffectRejectStaged:
			next.UpdatePayload = nil
			next.UpdateRejectReason = &reason
		}
		return nil
	})
}

func (s *ModerationService) Publish(ctx context.Context, id string) (domain.Listing, error) {
	caller, err := Authorize(ctx, ActPublish)
	if err != nil {
		return domain.Listing{}, err
	}
	return s.transition(ctx, caller, ActPublish, id, domain.OpPublish, nil)
}

func (s *ModerationService) Offline(ctx context.Context, id string) (domain.Listing, error) {
	caller, err := Authorize(ctx, ActOffline)
	if err != nil {
		return domain.Listing{}, err
	}
	return s.transition(ctx, caller, ActOffline, id, domain.OpOffline, nil)
}

func (s *ModerationService) SoftDelete(ctx context.Context, id string) error {
	caller, err := Authorize(ctx, ActSoftDelete)
	if err != nil {
		return err
	}
	_, err = s.transition(ctx, caller, ActSoftDelete, id, domain.OpSoftDelete, func(next *domain.Listing, _ domain.Transition) error {
		now := s.Now()
		next.DeletedAt = &now
		return nil
	})
	return err
}

type effectFn func(next *domain.Listing, t domain.Transition) error

// transition runs one operation to completion. A stale write re-reads the
// listing and re-evaluates the table, so a precondition that stopped holding
// surfaces as InvalidState against the state now stored.
func (s *ModerationService) transition(ctx context.Context, caller domain.Identity, act Action, id string,
	op domain.Operation, apply effectFn) (domain.Listing, error) {

	for attempt := 1; ; attempt++ {
		cur, err := s.load(ctx, id)
		if err != nil {
			return domain.Listing{}, err
		}
		if err := AuthorizeTarget(caller, act, cur); err != nil {
			return domain.Listing{}, err
		}

		t, to, err := domain.Next(op, cur.State())
		if err != nil {
			observability.ObserveTransition(string(op), resultLabel(err))
			return domain.Listing{}, err
		}
		if t.NeedsStaged && (cur.UpdatePayload == nil || cur.UpdatePayload.IsEmpty()) {
			err := domain.Invalid("updatePayload", "Empty updatePayload")
			observability.ObserveTransition(string(op), resultLabel(err))
			return domain.Listing{}, err
		}

		next := cur.Clone()
		next.SetState(to)
		if apply != nil {
			if err := apply(&next, t); err != nil {
				observability.ObserveTransition(string(op), resultLabel(err))
				return domain.Listing{}, err
			}
		}
		next.UpdatedAt = s.Now()

		saved, err := s.store.CompareAndSwap(ctx, next, domain.GuardOf(cur))
		if errors.Is(err, domain.ErrStaleWrite) {
			observability.ObserveCASRetry(string(op))
			if attempt >= s.maxAttempts {
				observability.ObserveTransition(string(op), "conflict")
				return domain.Listing{}, fmt.Errorf("listing %s changed concurrently: %w", id, domain.ErrConflict)
			}
			log.Debug().Str("listing_id", id).Str("op", string(op)).Int("attempt", attempt).Msg("stale write, retrying")
			continue
		}
		if err != nil {
			observability.ObserveTransition(string(op), "error")
			return domain.Listing{}, fmt.Errorf("%s listing %s: %w", op, id, err)
		}

		s.invalidate(ctx, id)
		observability.ObserveTransition(string(op), "ok")
		log.Info().
			Str("listing_id", id).
			Str("op", string(op)).
			Str("actor_id", caller.ID).
			Str("actor_role", string(caller.Role)).
			Stringer("from", cur.State()).
			Stringer("to", saved.State()).
			Msg("listing transition")
		return saved, nil
	}
}

// load returns a non-deleted listing or ErrNotFound.
func (s *ModerationService) load(ctx context.Context, id string) (domain.Listing, error) {
	l, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("load listing %s: %w", id, err)
	}
	if domain.IsDeleted(l) {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	return l, nil
}

func (s *ModerationService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, publicDetailKey(id)); err != nil {
		log.Warn().Err(err).Str("listing_id", id).Msg("cache invalidation failed")
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	}
	return "error"
}
