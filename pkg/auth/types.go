package auth

import "time"

// UserType classifies an account for billing and organization gating
type UserType string

const (
	UserTypeIndividual         UserType = "individual"
	UserTypeOrganizationAdmin  UserType = "organization_admin"
	UserTypeOrganizationMember UserType = "organization_member"
)

// OrgRole is a user's role inside their organization
type OrgRole string

const (
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// User is a PatentDesk account
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	PasswordHash     string     `json:"-"`
	UserType         UserType   `json:"userType"`
	IsAdmin          bool       `json:"isAdmin"`
	IsVerified       bool       `json:"isVerified"`
	ActiveToken      *string    `json:"-"`
	TrialEndDate     *time.Time `json:"trialEndDate,omitempty"`
	IsOrganization   bool       `json:"isOrganization"`
	OrganizationID   *string    `json:"organizationId,omitempty"`
	OrganizationRole *OrgRole   `json:"organizationRole,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Role returns the organization role or "" for individual users
func (u *User) Role() OrgRole {
	if u.OrganizationRole == nil {
		return ""
	}
	return *u.OrganizationRole
}

// AuthContext is the one authenticated identity shape carried through a request
type AuthContext struct {
	UserID           string
	Email            string
	IsAdmin          bool
	OrganizationRole OrgRole
	OrganizationID   string
	TokenID          string
}

// IsOrgAdmin reports whether the caller administers an organization
func (ac *AuthContext) IsOrgAdmin() bool {
	return ac != nil && ac.OrganizationRole == OrgRoleAdmin
}

// IsOrgMember reports whether the caller is a non-admin organization member
func (ac *AuthContext) IsOrgMember() bool {
	return ac != nil && ac.OrganizationRole == OrgRoleMember
}

// NewAuthContext builds the request identity from a loaded user and token id
func NewAuthContext(u *User, tokenID string) *AuthContext {
	ac := &AuthContext{
		UserID:           u.ID,
		Email:            u.Email,
		IsAdmin:          u.IsAdmin,
		OrganizationRole: u.Role(),
		TokenID:          tokenID,
	}
	if u.OrganizationID != nil {
		ac.OrganizationID = *u.OrganizationID
	}
	return ac
}

// OTPPurpose tells VerifyOTP which flow a code completes
type OTPPurpose string

const (
	OTPPurposeSignup OTPPurpose = "signup"
	OTPPurposeLogin  OTPPurpose = "login"
)

// PendingSignup is a signup awaiting OTP verification
type PendingSignup struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	InviteToken  string    `json:"inviteToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is returned once an OTP is verified
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// SignupRequest is the body of POST /auth/signup and /auth/signup-with-invite
type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	InviteToken string `json:"inviteToken,omitempty"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyOTPRequest is the body of POST /auth/verify-otp
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
