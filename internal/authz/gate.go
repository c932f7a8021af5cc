// Package authz decides whether a principal may act on a resource.
package authz

import "taskmanager/internal/domain/models"

type Decision int

const (
	Allow Decision = iota
	Forbid
	Unauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Forbid:
		return "forbid"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Relation is the relationship a route requires between the caller and the resource owner.
type Relation int

const (
	// Authenticated only requires a signed-in caller.
	Authenticated Relation = iota
	// OwnerOrAdmin lets the owner or any admin through.
	OwnerOrAdmin
	// Owner lets only the owner through; admins get no override.
	Owner
	// Self lets a user act on their own account only.
	Self
)

// Decide applies the access policy. A nil principal is always Unauthorized.
func Decide(p *models.Principal, ownerID string, rel Relation) Decision {
	if p == nil || p.ID == "" {
		return Unauthorized
	}

	switch rel {
	case Authenticated:
		return Allow
	case OwnerOrAdmin:
		switch p.Role {
		case models.RoleAdmin:
			return Allow
		case models.RoleUser:
			return ownedBy(p, ownerID)
		default:
			return Forbid
		}
	case Owner, Self:
		return ownedBy(p, ownerID)
	default:
		return Forbid
	}
}

// HasRole reports whether the principal holds one of roles.
func HasRole(p *models.Principal, roles ...models.Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

func ownedBy(p *models.Principal, ownerID string) Decision {
	if ownerID != "" && p.ID == ownerID {
		return Allow
	}
	return Forbid
}
