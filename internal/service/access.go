package service

import (
	"context"
	"errors"

	"github.com/tallyhq/tally-backend/internal/authz"
	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/websocket"
)

// membershipFor looks up the principal's membership in the team owning
// the scope. Personal and default scopes need no directory lookup.
// A missing membership row is a regular non-member result, not an
// error, so the evaluator decides what the caller learns.
func membershipFor(ctx context.Context, memberships domain.MembershipRepository, principal domain.Principal, scope domain.Scope) (authz.Membership, error) {
	teamID, ok := scope.TeamID()
	if !ok {
		return authz.NotAMember(), nil
	}
	role, err := memberships.GetRole(ctx, principal.UserID, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotTeamMember) {
			return authz.NotAMember(), nil
		}
		return authz.NotAMember(), err
	}
	return authz.MemberWith(role), nil
}

// intendedScope resolves the scope a write targets. A nil teamID means
// the principal's personal scope. A teamID the principal has no
// membership in is a hard failure: the request never falls back to
// personal scope.
func intendedScope(ctx context.Context, memberships domain.MembershipRepository, principal domain.Principal, teamID *int32) (domain.Scope, authz.Membership, error) {
	if teamID == nil {
		return domain.PersonalScope(principal.UserID), authz.NotAMember(), nil
	}
	scope := domain.TeamScope(*teamID)
	m, err := membershipFor(ctx, memberships, principal, scope)
	if err != nil {
		return domain.Scope{}, authz.NotAMember(), err
	}
	return scope, m, nil
}

// channelFor maps a resource scope to the WebSocket channel its change
// events go to.
func channelFor(scope domain.Scope) string {
	if teamID, ok := scope.TeamID(); ok {
		return websocket.TeamChannel(teamID)
	}
	if userID, ok := scope.UserID(); ok {
		return websocket.UserChannel(userID)
	}
	return ""
}

// categoryUsable checks that the referenced category exists and may be
// attached to a resource living in the target scope. A resource only
// references a default category or one owned by its own scope: a
// cross-scope reference would survive the owning scope's deletion
// cascade and leave the row dangling, and it leaks a category other
// readers of the resource cannot resolve. Both the missing and the
// incompatible case surface as ErrCategoryNotFound so an unusable
// category id is indistinguishable from an absent one.
func categoryUsable(ctx context.Context, categories domain.CategoryRepository, categoryID int32, target domain.Scope) error {
	category, err := categories.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}
	if scope := category.Scope(); scope != domain.DefaultScope() && scope != target {
		return domain.ErrCategoryNotFound
	}
	return nil
}
