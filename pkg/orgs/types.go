package orgs

import (
	"errors"
	"time"
)

var (
	// ErrOrganizationNotFound is returned when the caller belongs to no organization
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrAlreadyInOrganization is returned when the user already belongs to an organization
	ErrAlreadyInOrganization = errors.New("user already belongs to an organization")
	// ErrNotOrganizationAdmin is returned when the caller is not an organization admin
	ErrNotOrganizationAdmin = errors.New("only organization admins can perform this action")
	// ErrNotOrganizationOwner is returned when the caller does not own the organization
	ErrNotOrganizationOwner = errors.New("only the organization owner can perform this action")
	// ErrInvalidInvite is returned for unknown, used or expired invite tokens
	ErrInvalidInvite = errors.New("invalid or expired invite")
	// ErrCannotRemoveSelf is returned when the admin tries to remove themselves
	ErrCannotRemoveSelf = errors.New("admin cannot remove themselves")
	// ErrMemberNotFound is returned when the user is not a member of the organization
	ErrMemberNotFound = errors.New("member not found")
	// ErrUserNotFound is returned when the user does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidOrganization is returned for invalid creation requests
	ErrInvalidOrganization = errors.New("organization name is required")
)

// Role is a member's role within an organization
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

const (
	// InviteTTL is how long an invite link stays valid
	InviteTTL = 7 * 24 * time.Hour
	// TrialDays is the length of the trial every new organization starts with
	TrialDays = 14
)

// SubscriptionSnapshot mirrors the admin's organization plan onto the organization
type SubscriptionSnapshot struct {
	Plan        string    `json:"plan"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Status      string    `json:"status"`
	BasePrice   int64     `json:"basePrice"`
	MemberPrice int64     `json:"memberPrice"`
}

// Organization is a team sharing one subscription
type Organization struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Size         string               `json:"size"`
	Type         string               `json:"type"`
	AdminID      string               `json:"adminId"`
	Subscription SubscriptionSnapshot `json:"subscription"`
	MemberCount  int                  `json:"memberCount"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// Member is a user in an organization
type Member struct {
	UserID   string    `json:"userId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Invite is a single use join link
type Invite struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Token          string    `json:"token"`
	URL            string    `json:"url"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// CreateOrganizationRequest holds the fields for a new organization
type CreateOrganizationRequest struct {
	Name string `json:"name"`
	Size string `json:"size"`
	Type string `json:"type"`
}
