package api

import (
	"context"

	"github.com/platinummonkey/patentdesk/pkg/auth"
	"github.com/platinummonkey/patentdesk/pkg/billing"
	"github.com/platinummonkey/patentdesk/pkg/folders"
	"github.com/platinummonkey/patentdesk/pkg/orgs"
	"github.com/platinummonkey/patentdesk/pkg/plans"
)

// AuthService is the signup and session surface of auth.Service
type AuthService interface {
	Signup(ctx context.Context, req auth.SignupRequest) error
	SignupWithInvite(ctx context.Context, req auth.SignupRequest) error
	Login(ctx context.Context, email, password string) error
	VerifyOTP(ctx context.Context, email, code string) (*auth.Session, error)
	ResendOTP(ctx context.Context, email string) error
	Logout(ctx context.Context, userID string) error
	Me(ctx context.Context, userID string) (*auth.User, error)
}

// BillingService is the subscription ledger surface of billing.Service
type BillingService interface {
	StartTrial(ctx context.Context, userID string) (*billing.Subscription, error)
	CreateOrder(ctx context.Context, userID, planID string) (*billing.Order, error)
	VerifyPayment(ctx context.Context, userID, orderRef, paymentID, signature string) (*billing.Subscription, error)
	SubmitPaymentReference(ctx context.Context, userID, orderRef, utr string) (*billing.Subscription, error)
	PaymentStatus(ctx context.Context, userID, orderRef string) (*billing.PaymentStatus, error)
	Cancel(ctx context.Context, userID string) (*billing.Subscription, error)
	RequestPlanChange(ctx context.Context, userID, planID string) (*billing.Order, error)
	Aggregate(ctx context.Context, userID string) (*billing.Aggregate, error)
	History(ctx context.Context, userID string) ([]*billing.Subscription, error)
	HandleStripeEvent(ctx context.Context, payload []byte, signatureHeader string) error

	ApprovePayment(ctx context.Context, orderRef string) (*billing.Subscription, error)
	Reject(ctx context.Context, orderRef, reason string) error
	ActivateManual(ctx context.Context, req billing.ManualActivation) (*billing.Subscription, error)
}

// PlanService lists and prices plans
type PlanService interface {
	List(ctx context.Context, category plans.Category) ([]*plans.Plan, error)
	Upsert(ctx context.Context, plan *plans.Plan) error
}

// OrgService manages organizations, invites and members
type OrgService interface {
	CreateOrganization(ctx context.Context, adminUserID string, req orgs.CreateOrganizationRequest) (*orgs.Organization, error)
	GetOrganization(ctx context.Context, userID string) (*orgs.Organization, error)
	GenerateInvite(ctx context.Context, adminUserID string) (*orgs.Invite, error)
	ValidateInvite(ctx context.Context, token string) error
	JoinOrganization(ctx context.Context, token, userID string) error
	ListMembers(ctx context.Context, adminUserID string) ([]*orgs.Member, error)
	RemoveMember(ctx context.Context, adminUserID, memberID string) error
}

// FolderService manages saved patents, folders and workfiles
type FolderService interface {
	SavePatent(ctx context.Context, userID, patentID, title string) (*folders.SavedPatent, error)
	ListFolders(ctx context.Context, userID string) ([]*folders.Folder, error)
	CreateFolder(ctx context.Context, userID string, req folders.CreateFolderRequest) (*folders.Folder, error)
	AddPatents(ctx context.Context, userID, folderID, workfileName string, patentIDs []string) (*folders.ListUpdate, error)
	RemovePatent(ctx context.Context, userID, folderID, workfileID, patentID string) error
	MergeWorkfiles(ctx context.Context, userID, folderID string, workfileIDs []string, newName string) (*folders.Workfile, error)
	DeleteFolder(ctx context.Context, userID, folderID string) error
	DeleteWorkfile(ctx context.Context, userID, folderID, workfileID string) error
	ImportFiles(ctx context.Context, userID, folderID, workfileName string, uploads []folders.Upload) (*folders.ImportResult, error)
}

// UserDirectory is the admin view of accounts
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*auth.User, error)
	List(ctx context.Context, limit, offset int) ([]*auth.User, int, error)
}
