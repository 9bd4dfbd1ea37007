package authz

import "github.com/yukikurage/taxoffice-api/internal/models"

type ScopeKind int

const (
	// ScopeSelf limits rows to those owned by the caller.
	ScopeSelf ScopeKind = iota
	// ScopeTeam adds rows owned by users whose team leader is the caller.
	ScopeTeam
	// ScopeAll is unrestricted.
	ScopeAll
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeAll:
		return "all"
	case ScopeTeam:
		return "team"
	default:
		return "self"
	}
}

// Scope is a row predicate over the owner of a resource.
type Scope struct {
	Kind   ScopeKind
	UserID uint64
}

// ScopeFor derives the row scope of role on res.
func ScopeFor(role models.Role, res Resource, userID uint64) Scope {
	switch role {
	case models.RoleAdmin, models.RoleDirector:
		return Scope{Kind: ScopeAll, UserID: userID}
	case models.RoleFinance:
		switch res {
		case ResourceClient, ResourceInvoice, ResourcePayment, ResourceReport:
			return Scope{Kind: ScopeAll, UserID: userID}
		}
		return Scope{Kind: ScopeSelf, UserID: userID}
	case models.RoleTeamLeader:
		return Scope{Kind: ScopeTeam, UserID: userID}
	default:
		return Scope{Kind: ScopeSelf, UserID: userID}
	}
}

// Allows evaluates the scope against a loaded owner. ownerLeaderID is the
// owner's team leader, if any.
func (s Scope) Allows(ownerID *uint64, ownerLeaderID *uint64) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeTeam:
		if ownerID == nil {
			return false
		}
		if *ownerID == s.UserID {
			return true
		}
		return ownerLeaderID != nil && *ownerLeaderID == s.UserID
	default:
		return ownerID != nil && *ownerID == s.UserID
	}
}

func (s Scope) IsAll() bool {
	return s.Kind == ScopeAll
}
