package domain

import "github.com/google/uuid"

// ScopeKind discriminates the three ownership classes a resource can have.
type ScopeKind int

const (
	// ScopePersonal means the resource belongs to a single user.
	ScopePersonal ScopeKind = iota
	// ScopeTeam means the resource is shared with a team.
	ScopeTeam
	// ScopeDefault marks unowned seed data (default categories only).
	ScopeDefault
)

// Scope is the ownership of a resource: personal, team, or default.
// The zero value is not meaningful; construct via PersonalScope,
// TeamScope or DefaultScope so that user and team ownership can
// never both be set.
type Scope struct {
	kind   ScopeKind
	userID uuid.UUID
	teamID int32
}

// PersonalScope returns a scope owned by a single user.
func PersonalScope(userID uuid.UUID) Scope {
	return Scope{kind: ScopePersonal, userID: userID}
}

// TeamScope returns a scope shared with a team.
func TeamScope(teamID int32) Scope {
	return Scope{kind: ScopeTeam, teamID: teamID}
}

// DefaultScope returns the unowned scope used by default categories.
func DefaultScope() Scope {
	return Scope{kind: ScopeDefault}
}

// ScopeOf reconstructs a scope from nullable storage columns, enforcing
// that user and team ownership are mutually exclusive.
func ScopeOf(userID *uuid.UUID, teamID *int32) (Scope, error) {
	switch {
	case userID != nil && teamID != nil:
		return Scope{}, ErrInvalidScope
	case userID != nil:
		return PersonalScope(*userID), nil
	case teamID != nil:
		return TeamScope(*teamID), nil
	default:
		return DefaultScope(), nil
	}
}

// Kind returns the scope discriminator.
func (s Scope) Kind() ScopeKind { return s.kind }

// UserID returns the owning user when the scope is personal.
func (s Scope) UserID() (uuid.UUID, bool) {
	return s.userID, s.kind == ScopePersonal
}

// TeamID returns the owning team when the scope is team-shared.
func (s Scope) TeamID() (int32, bool) {
	return s.teamID, s.kind == ScopeTeam
}

// Columns splits the scope back into the nullable storage representation.
func (s Scope) Columns() (*uuid.UUID, *int32) {
	switch s.kind {
	case ScopePersonal:
		u := s.userID
		return &u, nil
	case ScopeTeam:
		t := s.teamID
		return nil, &t
	default:
		return nil, nil
	}
}

func (s Scope) String() string {
	switch s.kind {
	case ScopePersonal:
		return "personal"
	case ScopeTeam:
		return "team"
	default:
		return "default"
	}
}
