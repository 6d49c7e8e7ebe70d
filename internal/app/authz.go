package app

import (
	"context"
	"fmt"

	"hotel_listings/internal/domain"
)

type Action string

const (
	ActCreate      Action = "create"
	ActUpdate      Action = "update"
	ActSubmit      Action = "submit"
	ActSelfOffline Action = "self_offline"
	ActAudit       Action = "audit"
	ActPublish     Action = "publish"
	ActOffline     Action = "offline"
	ActSoftDelete  Action = "soft_delete"
	ActQueryOwner  Action = "query_owner"
	ActOwnerStats  Action = "owner_stats"
	ActOwnerDetail Action = "owner_detail"
	ActQueryAdmin  Action = "query_admin"
	ActAdminDetail Action = "admin_detail"
)

type policy struct {
	roles []domain.Role
	// ownerCheck applies the ownership rule to merchant callers.
	ownerCheck bool
}

var policies = map[Action]policy{
	ActCreate:      {roles: []domain.Role{domain.RoleMerchant}},
	ActUpdate:      {roles: []domain.Role{domain.RoleMerchant, domain.RoleAdmin}, ownerCheck: true},
	ActSubmit:      {roles: []domain.Role{domain.RoleMerchant}, ownerCheck: true},
	ActSelfOffline: {roles: []domain.Role{domain.RoleMerchant}, ownerCheck: true},
	ActAudit:       {roles: []domain.Role{domain.RoleAdmin}},
	ActPublish:     {roles: []domain.Role{domain.RoleAdmin}},
	ActOffline:     {roles: []domain.Role{domain.RoleAdmin}},
	ActSoftDelete:  {roles: []domain.Role{domain.RoleAdmin}},
	ActQueryOwner:  {roles: []domain.Role{domain.RoleMerchant}},
	ActOwnerStats:  {roles: []domain.Role{domain.RoleMerchant}},
	ActOwnerDetail: {roles: []domain.Role{domain.RoleMerchant}, ownerCheck: true},
	ActQueryAdmin:  {roles: []domain.Role{domain.RoleAdmin}},
	ActAdminDetail: {roles: []domain.Role{domain.RoleAdmin}},
}

// Authorize resolves the caller and checks the action's role set.
func Authorize(ctx context.Context, act Action) (domain.Identity, error) {
	id, ok := domain.IdentityFrom(ctx)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	p, ok := policies[act]
	if !ok {
		return domain.Identity{}, fmt.Errorf("no policy for %q: %w", act, domain.ErrForbidden)
	}
	for _, r := range p.roles {
		if r == id.Role {
			return id, nil
		}
	}
	return domain.Identity{}, fmt.Errorf("role %q may not %s: %w", id.Role, act, domain.ErrForbidden)
}

// AuthorizeTarget applies the ownership rule once the listing is loaded. It
// runs before any state precondition.
func AuthorizeTarget(id domain.Identity, act Action, l domain.Listing) error {
	if policies[act].ownerCheck && id.Role == domain.RoleMerchant && !domain.IsOwnedBy(l, id.ID) {
		return fmt.Errorf("listing %s is not owned by caller: %w", l.ID, domain.ErrForbidden)
	}
	return nil
}
