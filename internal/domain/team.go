package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is a team membership's permission tier.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Team represents a named collaboration group
type Team struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TeamMembership is the ternary (user, team, role) relation. At most one
// membership exists per (user, team) pair.
type TeamMembership struct {
	UserID    uuid.UUID `json:"userId"`
	TeamID    int32     `json:"teamId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TeamMember is a membership joined with user identity for listing.
type TeamMember struct {
	UserID   uuid.UUID `json:"userId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// TeamWithRole pairs a team with the requesting user's role in it.
type TeamWithRole struct {
	Team
	Role Role `json:"role"`
}

// TeamRepository defines the interface for team persistence operations
type TeamRepository interface {
	// CreateWithOwner inserts the team and the owner's ADMIN membership
	// in a single transaction. A team without an admin must never be an
	// observable state.
	CreateWithOwner(ctx context.Context, team *Team, ownerID uuid.UUID) (*Team, error)
	GetByID(ctx context.Context, id int32) (*Team, error)
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*TeamWithRole, error)
	Update(ctx context.Context, id int32, name string) (*Team, error)
	Delete(ctx context.Context, id int32) error
}

// MembershipRepository is the team membership directory. Reads are
// read-committed against the same store that writes roles, so a
// committed role change is visible to the next lookup.
type MembershipRepository interface {
	GetRole(ctx context.Context, userID uuid.UUID, teamID int32) (Role, error)
	ListMembers(ctx context.Context, teamID int32) ([]*TeamMember, error)
	Add(ctx context.Context, membership *TeamMembership) error
	UpdateRole(ctx context.Context, userID uuid.UUID, teamID int32, role Role) error
	Remove(ctx context.Context, userID uuid.UUID, teamID int32) error
	CountAdmins(ctx context.Context, teamID int32) (int64, error)
	// MemberTeamIDs returns the ids of every team the user belongs to,
	// for query-level visibility filters.
	MemberTeamIDs(ctx context.Context, userID uuid.UUID) ([]int32, error)
}
