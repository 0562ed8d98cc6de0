package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tallyhq/tally-backend/internal/domain"
)

func principalOf(id uuid.UUID) domain.Principal {
	return domain.Principal{UserID: id, Email: "user@example.com"}
}

func TestEvaluate_PersonalOwnership(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	res := ResourceRef{Scope: domain.PersonalScope(owner), CreatorID: owner}

	for _, op := range []Operation{OpCreate, OpRead, OpUpdate, OpDelete} {
		assert.True(t, Evaluate(principalOf(owner), res, op, NotAMember()).Allowed, "owner %s", op)
	}
	for _, op := range []Operation{OpRead, OpUpdate, OpDelete} {
		d := Evaluate(principalOf(stranger), res, op, NotAMember())
		assert.False(t, d.Allowed, "stranger %s", op)
		assert.Equal(t, ReasonNotOwner, d.Reason)
	}
}

func TestEvaluate_TeamReadRequiresAnyRole(t *testing.T) {
	creator := uuid.New()
	res := ResourceRef{Scope: domain.TeamScope(7), CreatorID: creator}

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleEditor, domain.RoleViewer} {
		assert.True(t, Evaluate(principalOf(uuid.New()), res, OpRead, MemberWith(role)).Allowed, "role %s", role)
	}

	d := Evaluate(principalOf(uuid.New()), res, OpRead, NotAMember())
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotMember, d.Reason)
}

func TestEvaluate_TeamWriteTiers(t *testing.T) {
	creator := uuid.New()
	other := uuid.New()
	res := ResourceRef{Scope: domain.TeamScope(7), CreatorID: creator}

	// Admins and editors may update/delete rows they did not create.
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleEditor} {
		assert.True(t, Evaluate(principalOf(other), res, OpUpdate, MemberWith(role)).Allowed)
		assert.True(t, Evaluate(principalOf(other), res, OpDelete, MemberWith(role)).Allowed)
		assert.True(t, Evaluate(principalOf(other), res, OpCreate, MemberWith(role)).Allowed)
	}

	// Viewers may not.
	for _, op := range []Operation{OpCreate, OpUpdate, OpDelete} {
		d := Evaluate(principalOf(other), res, op, MemberWith(domain.RoleViewer))
		assert.False(t, d.Allowed, "viewer %s", op)
		assert.Equal(t, ReasonRoleInsufficient, d.Reason)
	}
}

func TestEvaluate_OwnerOverrideSurvivesDemotion(t *testing.T) {
	creator := uuid.New()
	res := ResourceRef{Scope: domain.TeamScope(3), CreatorID: creator}

	// A viewer who created the row keeps update/delete rights.
	assert.True(t, Evaluate(principalOf(creator), res, OpUpdate, MemberWith(domain.RoleViewer)).Allowed)
	assert.True(t, Evaluate(principalOf(creator), res, OpDelete, MemberWith(domain.RoleViewer)).Allowed)

	// But creating new team resources still follows the role tier.
	assert.False(t, Evaluate(principalOf(creator), res, OpCreate, MemberWith(domain.RoleViewer)).Allowed)
}

func TestEvaluate_OwnerOverrideNeedsMembership(t *testing.T) {
	creator := uuid.New()
	res := ResourceRef{Scope: domain.TeamScope(3), CreatorID: creator}

	// A creator who left the team is just an outsider.
	d := Evaluate(principalOf(creator), res, OpUpdate, NotAMember())
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotMember, d.Reason)
}

func TestEvaluate_NoOwnerOverrideWithoutCreator(t *testing.T) {
	// Team budgets have no per-row creator; only the role tier applies.
	res := ResourceRef{Scope: domain.TeamScope(3), CreatorID: uuid.Nil}
	d := Evaluate(principalOf(uuid.New()), res, OpUpdate, MemberWith(domain.RoleViewer))
	assert.False(t, d.Allowed)
}

func TestEvaluate_DefaultScope(t *testing.T) {
	res := ResourceRef{Scope: domain.DefaultScope()}
	p := principalOf(uuid.New())

	assert.True(t, Evaluate(p, res, OpRead, NotAMember()).Allowed)
	for _, op := range []Operation{OpCreate, OpUpdate, OpDelete} {
		d := Evaluate(p, res, op, MemberWith(domain.RoleAdmin))
		assert.False(t, d.Allowed, "default %s", op)
		assert.Equal(t, ReasonDefaultImmutable, d.Reason)
	}
}

func TestDecision_ErrMapping(t *testing.T) {
	assert.NoError(t, Allow().Err(OpUpdate))

	// Denied reads merge into not-found so existence never leaks.
	assert.ErrorIs(t, Deny(ReasonNotMember).Err(OpRead), domain.ErrNotFound)

	// Denied writes are forbidden.
	assert.ErrorIs(t, Deny(ReasonRoleInsufficient).Err(OpUpdate), domain.ErrForbidden)
	assert.ErrorIs(t, Deny(ReasonNotOwner).Err(OpDelete), domain.ErrForbidden)
}

func TestEvaluateMembershipRules(t *testing.T) {
	admin := MemberWith(domain.RoleAdmin)
	editor := MemberWith(domain.RoleEditor)

	assert.True(t, EvaluateMemberInvite(admin).Allowed)
	assert.False(t, EvaluateMemberInvite(editor).Allowed)
	assert.Equal(t, ReasonAdminRequired, EvaluateMemberInvite(editor).Reason)
	assert.Equal(t, ReasonNotMember, EvaluateMemberInvite(NotAMember()).Reason)

	assert.True(t, EvaluateRoleChange(admin).Allowed)
	assert.False(t, EvaluateRoleChange(MemberWith(domain.RoleViewer)).Allowed)

	self := uuid.New()
	other := uuid.New()
	p := principalOf(self)

	// Anyone may leave.
	assert.True(t, EvaluateMemberRemoval(p, MemberWith(domain.RoleViewer), self).Allowed)
	// Admins may remove others.
	assert.True(t, EvaluateMemberRemoval(p, admin, other).Allowed)
	// Non-admins may not remove others.
	d := EvaluateMemberRemoval(p, editor, other)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonSelfOnly, d.Reason)
	// Outsiders may not act at all.
	assert.False(t, EvaluateMemberRemoval(p, NotAMember(), self).Allowed)
}
