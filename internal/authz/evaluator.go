// Package authz decides, for every operation against a scoped resource,
// whether the acting principal may perform it. Evaluation is pure
// computation: membership roles are looked up by the caller and passed
// in, and a deny is a regular return value, never an error.
package authz

import (
	"github.com/google/uuid"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// Operation is one of the four access operations. List endpoints apply
// the Read rule as a query-level filter rather than per row.
type Operation int

const (
	OpCreate Operation = iota
	OpRead
	OpUpdate
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpRead:
		return "read"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Reason explains a deny.
type Reason string

const (
	ReasonNotOwner         Reason = "not the resource owner"
	ReasonNotMember        Reason = "not a member of the owning team"
	ReasonRoleInsufficient Reason = "role does not permit this operation"
	ReasonDefaultImmutable Reason = "default resources cannot be modified"
	ReasonAdminRequired    Reason = "only team admins may manage members"
	ReasonSelfOnly         Reason = "members may only remove themselves"
)

// Decision is the evaluator's verdict.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is an allowing decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny is a denying decision with a reason.
func Deny(reason Reason) Decision { return Decision{Reason: reason} }

// Err maps a deny to the domain error appropriate for the operation:
// a denied read is reported as not-found so unauthorized principals
// cannot distinguish "absent" from "hidden"; denied writes are
// forbidden because existence was already implied by the caller's
// context. Allowed decisions map to nil.
func (d Decision) Err(op Operation) error {
	if d.Allowed {
		return nil
	}
	if op == OpRead {
		return domain.ErrNotFound
	}
	return domain.ErrForbidden
}

// ResourceRef is the slice of a resource the evaluator needs: its
// ownership scope and, where the resource tracks one, the creating
// user. CreatorID is uuid.Nil for resources without a per-row creator
// (team budgets, categories), which disables the owner override.
type ResourceRef struct {
	Scope     domain.Scope
	CreatorID uuid.UUID
}

// Membership is the directory lookup result carried into evaluation.
type Membership struct {
	Role   domain.Role
	Member bool
}

// MemberWith wraps a role from the membership directory.
func MemberWith(role domain.Role) Membership {
	return Membership{Role: role, Member: true}
}

// NotAMember is the lookup result for a user outside the team.
func NotAMember() Membership { return Membership{} }

// Evaluate applies the permission matrix.
//
// Personal resources: every operation requires the principal to be the
// owner. Team resources: Create needs admin or editor, Read needs any
// role, Update/Delete need admin, editor, or ownership of the row —
// ownership is a standing override, so a demoted viewer keeps control
// of their own entries. Default resources are readable by anyone and
// mutable by no one through this path.
func Evaluate(principal domain.Principal, res ResourceRef, op Operation, m Membership) Decision {
	switch res.Scope.Kind() {
	case domain.ScopeDefault:
		if op == OpRead {
			return Allow()
		}
		return Deny(ReasonDefaultImmutable)

	case domain.ScopePersonal:
		owner, _ := res.Scope.UserID()
		if owner == principal.UserID {
			return Allow()
		}
		return Deny(ReasonNotOwner)

	case domain.ScopeTeam:
		if !m.Member {
			return Deny(ReasonNotMember)
		}
		switch op {
		case OpRead:
			return Allow()
		case OpCreate:
			return roleDecision(m.Role)
		case OpUpdate, OpDelete:
			if res.CreatorID != uuid.Nil && res.CreatorID == principal.UserID {
				return Allow()
			}
			return roleDecision(m.Role)
		}
	}
	return Deny(ReasonRoleInsufficient)
}

// roleDecision encodes the write tier: admins and editors may write,
// viewers may not. The switch is exhaustive over the role enum so a new
// role forces a review here.
func roleDecision(role domain.Role) Decision {
	switch role {
	case domain.RoleAdmin, domain.RoleEditor:
		return Allow()
	case domain.RoleViewer:
		return Deny(ReasonRoleInsufficient)
	}
	return Deny(ReasonRoleInsufficient)
}

// EvaluateMemberInvite decides whether the actor may add a member.
func EvaluateMemberInvite(actor Membership) Decision {
	if actor.Member && actor.Role == domain.RoleAdmin {
		return Allow()
	}
	if !actor.Member {
		return Deny(ReasonNotMember)
	}
	return Deny(ReasonAdminRequired)
}

// EvaluateRoleChange decides whether the actor may change another
// member's role.
func EvaluateRoleChange(actor Membership) Decision {
	return EvaluateMemberInvite(actor)
}

// EvaluateMemberRemoval decides whether the actor may remove target
// from the team. Admins may remove anyone; everyone may remove
// themself.
func EvaluateMemberRemoval(principal domain.Principal, actor Membership, targetUserID uuid.UUID) Decision {
	if !actor.Member {
		return Deny(ReasonNotMember)
	}
	if principal.UserID == targetUserID {
		return Allow()
	}
	if actor.Role == domain.RoleAdmin {
		return Allow()
	}
	return Deny(ReasonSelfOnly)
}
