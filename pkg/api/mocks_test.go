package api

import (
	"context"
	"errors"

	"github.com/platinummonkey/patentdesk/pkg/auth"
	"github.com/platinummonkey/patentdesk/pkg/billing"
	"github.com/platinummonkey/patentdesk/pkg/folders"
	"github.com/platinummonkey/patentdesk/pkg/orgs"
	"github.com/platinummonkey/patentdesk/pkg/plans"
)

var errNotImplemented = errors.New("not implemented")

// user ids that reach UUID path parameters
const (
	orgAdminUserID = "5b0e7c9a-2d41-4c8e-a3f6-9e1d7b2c4a10"
	memberUserID   = "8c3f1a2b-6e5d-4f7a-b1c2-3d4e5f6a7b8c"
	ghostUserID    = "00000000-0000-4000-8000-000000000404"
)

// mockAuthenticator accepts a fixed set of bearer tokens
type mockAuthenticator struct{}

func (mockAuthenticator) Authenticate(ctx context.Context, token string) (*auth.AuthContext, error) {
	switch token {
	case "user-token":
		return &auth.AuthContext{UserID: "user-1", Email: "user@example.com"}, nil
	case "member-token":
		return &auth.AuthContext{UserID: "member-1", OrganizationRole: auth.OrgRoleMember, OrganizationID: "org-1"}, nil
	case "orgadmin-token":
		return &auth.AuthContext{UserID: orgAdminUserID, OrganizationRole: auth.OrgRoleAdmin, OrganizationID: "org-1"}, nil
	case "admin-token":
		return &auth.AuthContext{UserID: "admin-1", IsAdmin: true}, nil
	}
	return nil, auth.ErrInvalidToken
}

type mockAuthService struct {
	signupFunc           func(ctx context.Context, req auth.SignupRequest) error
	signupWithInviteFunc func(ctx context.Context, req auth.SignupRequest) error
	loginFunc            func(ctx context.Context, email, password string) error
	verifyOTPFunc        func(ctx context.Context, email, code string) (*auth.Session, error)
	resendOTPFunc        func(ctx context.Context, email string) error
	logoutFunc           func(ctx context.Context, userID string) error
	meFunc               func(ctx context.Context, userID string) (*auth.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, req auth.SignupRequest) error {
	if m.signupFunc != nil {
		return m.signupFunc(ctx, req)
	}
	return errNotImplemented
}

func (m *mockAuthService) SignupWithInvite(ctx context.Context, req auth.SignupRequest) error {
	if m.signupWithInviteFunc != nil {
		return m.signupWithInviteFunc(ctx, req)
	}
	return errNotImplemented
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) error {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return errNotImplemented
}

func (m *mockAuthService) VerifyOTP(ctx context.Context, email, code string) (*auth.Session, error) {
	if m.verifyOTPFunc != nil {
		return m.verifyOTPFunc(ctx, email, code)
	}
	return nil, errNotImplemented
}

func (m *mockAuthService) ResendOTP(ctx context.Context, email string) error {
	if m.resendOTPFunc != nil {
		return m.resendOTPFunc(ctx, email)
	}
	return errNotImplemented
}

func (m *mockAuthService) Logout(ctx context.Context, userID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, userID)
	}
	return errNotImplemented
}

func (m *mockAuthService) Me(ctx context.Context, userID string) (*auth.User, error) {
	if m.meFunc != nil {
		return m.meFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

type mockBillingService struct {
	startTrialFunc        func(ctx context.Context, userID string) (*billing.Subscription, error)
	createOrderFunc       func(ctx context.Context, userID, planID string) (*billing.Order, error)
	verifyPaymentFunc     func(ctx context.Context, userID, orderRef, paymentID, signature string) (*billing.Subscription, error)
	submitReferenceFunc   func(ctx context.Context, userID, orderRef, utr string) (*billing.Subscription, error)
	paymentStatusFunc     func(ctx context.Context, userID, orderRef string) (*billing.PaymentStatus, error)
	cancelFunc            func(ctx context.Context, userID string) (*billing.Subscription, error)
	requestPlanChangeFunc func(ctx context.Context, userID, planID string) (*billing.Order, error)
	aggregateFunc         func(ctx context.Context, userID string) (*billing.Aggregate, error)
	historyFunc           func(ctx context.Context, userID string) ([]*billing.Subscription, error)
	handleStripeEventFunc func(ctx context.Context, payload []byte, signatureHeader string) error
	approvePaymentFunc    func(ctx context.Context, orderRef string) (*billing.Subscription, error)
	rejectFunc            func(ctx context.Context, orderRef, reason string) error
	activateManualFunc    func(ctx context.Context, req billing.ManualActivation) (*billing.Subscription, error)
}

func (m *mockBillingService) StartTrial(ctx context.Context, userID string) (*billing.Subscription, error) {
	if m.startTrialFunc != nil {
		return m.startTrialFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) CreateOrder(ctx context.Context, userID, planID string) (*billing.Order, error) {
	if m.createOrderFunc != nil {
		return m.createOrderFunc(ctx, userID, planID)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) VerifyPayment(ctx context.Context, userID, orderRef, paymentID, signature string) (*billing.Subscription, error) {
	if m.verifyPaymentFunc != nil {
		return m.verifyPaymentFunc(ctx, userID, orderRef, paymentID, signature)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) SubmitPaymentReference(ctx context.Context, userID, orderRef, utr string) (*billing.Subscription, error) {
	if m.submitReferenceFunc != nil {
		return m.submitReferenceFunc(ctx, userID, orderRef, utr)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) PaymentStatus(ctx context.Context, userID, orderRef string) (*billing.PaymentStatus, error) {
	if m.paymentStatusFunc != nil {
		return m.paymentStatusFunc(ctx, userID, orderRef)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) Cancel(ctx context.Context, userID string) (*billing.Subscription, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) RequestPlanChange(ctx context.Context, userID, planID string) (*billing.Order, error) {
	if m.requestPlanChangeFunc != nil {
		return m.requestPlanChangeFunc(ctx, userID, planID)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) Aggregate(ctx context.Context, userID string) (*billing.Aggregate, error) {
	if m.aggregateFunc != nil {
		return m.aggregateFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) History(ctx context.Context, userID string) ([]*billing.Subscription, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) HandleStripeEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	if m.handleStripeEventFunc != nil {
		return m.handleStripeEventFunc(ctx, payload, signatureHeader)
	}
	return errNotImplemented
}

func (m *mockBillingService) ApprovePayment(ctx context.Context, orderRef string) (*billing.Subscription, error) {
	if m.approvePaymentFunc != nil {
		return m.approvePaymentFunc(ctx, orderRef)
	}
	return nil, errNotImplemented
}

func (m *mockBillingService) Reject(ctx context.Context, orderRef, reason string) error {
	if m.rejectFunc != nil {
		return m.rejectFunc(ctx, orderRef, reason)
	}
	return errNotImplemented
}

func (m *mockBillingService) ActivateManual(ctx context.Context, req billing.ManualActivation) (*billing.Subscription, error) {
	if m.activateManualFunc != nil {
		return m.activateManualFunc(ctx, req)
	}
	return nil, errNotImplemented
}

type mockPlanService struct {
	listFunc   func(ctx context.Context, category plans.Category) ([]*plans.Plan, error)
	upsertFunc func(ctx context.Context, plan *plans.Plan) error
}

func (m *mockPlanService) List(ctx context.Context, category plans.Category) ([]*plans.Plan, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, category)
	}
	return nil, errNotImplemented
}

func (m *mockPlanService) Upsert(ctx context.Context, plan *plans.Plan) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, plan)
	}
	return errNotImplemented
}

type mockOrgService struct {
	createOrganizationFunc func(ctx context.Context, adminUserID string, req orgs.CreateOrganizationRequest) (*orgs.Organization, error)
	getOrganizationFunc    func(ctx context.Context, userID string) (*orgs.Organization, error)
	generateInviteFunc     func(ctx context.Context, adminUserID string) (*orgs.Invite, error)
	validateInviteFunc     func(ctx context.Context, token string) error
	joinOrganizationFunc   func(ctx context.Context, token, userID string) error
	listMembersFunc        func(ctx context.Context, adminUserID string) ([]*orgs.Member, error)
	removeMemberFunc       func(ctx context.Context, adminUserID, memberID string) error
}

func (m *mockOrgService) CreateOrganization(ctx context.Context, adminUserID string, req orgs.CreateOrganizationRequest) (*orgs.Organization, error) {
	if m.createOrganizationFunc != nil {
		return m.createOrganizationFunc(ctx, adminUserID, req)
	}
	return nil, errNotImplemented
}

func (m *mockOrgService) GetOrganization(ctx context.Context, userID string) (*orgs.Organization, error) {
	if m.getOrganizationFunc != nil {
		return m.getOrganizationFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockOrgService) GenerateInvite(ctx context.Context, adminUserID string) (*orgs.Invite, error) {
	if m.generateInviteFunc != nil {
		return m.generateInviteFunc(ctx, adminUserID)
	}
	return nil, errNotImplemented
}

func (m *mockOrgService) ValidateInvite(ctx context.Context, token string) error {
	if m.validateInviteFunc != nil {
		return m.validateInviteFunc(ctx, token)
	}
	return errNotImplemented
}

func (m *mockOrgService) JoinOrganization(ctx context.Context, token, userID string) error {
	if m.joinOrganizationFunc != nil {
		return m.joinOrganizationFunc(ctx, token, userID)
	}
	return errNotImplemented
}

func (m *mockOrgService) ListMembers(ctx context.Context, adminUserID string) ([]*orgs.Member, error) {
	if m.listMembersFunc != nil {
		return m.listMembersFunc(ctx, adminUserID)
	}
	return nil, errNotImplemented
}

func (m *mockOrgService) RemoveMember(ctx context.Context, adminUserID, memberID string) error {
	if m.removeMemberFunc != nil {
		return m.removeMemberFunc(ctx, adminUserID, memberID)
	}
	return errNotImplemented
}

type mockFolderService struct {
	savePatentFunc     func(ctx context.Context, userID, patentID, title string) (*folders.SavedPatent, error)
	listFoldersFunc    func(ctx context.Context, userID string) ([]*folders.Folder, error)
	createFolderFunc   func(ctx context.Context, userID string, req folders.CreateFolderRequest) (*folders.Folder, error)
	addPatentsFunc     func(ctx context.Context, userID, folderID, workfileName string, patentIDs []string) (*folders.ListUpdate, error)
	removePatentFunc   func(ctx context.Context, userID, folderID, workfileID, patentID string) error
	mergeWorkfilesFunc func(ctx context.Context, userID, folderID string, workfileIDs []string, newName string) (*folders.Workfile, error)
	deleteFolderFunc   func(ctx context.Context, userID, folderID string) error
	deleteWorkfileFunc func(ctx context.Context, userID, folderID, workfileID string) error
	importFilesFunc    func(ctx context.Context, userID, folderID, workfileName string, uploads []folders.Upload) (*folders.ImportResult, error)
}

func (m *mockFolderService) SavePatent(ctx context.Context, userID, patentID, title string) (*folders.SavedPatent, error) {
	if m.savePatentFunc != nil {
		return m.savePatentFunc(ctx, userID, patentID, title)
	}
	return nil, errNotImplemented
}

func (m *mockFolderService) ListFolders(ctx context.Context, userID string) ([]*folders.Folder, error) {
	if m.listFoldersFunc != nil {
		return m.listFoldersFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockFolderService) CreateFolder(ctx context.Context, userID string, req folders.CreateFolderRequest) (*folders.Folder, error) {
	if m.createFolderFunc != nil {
		return m.createFolderFunc(ctx, userID, req)
	}
	return nil, errNotImplemented
}

func (m *mockFolderService) AddPatents(ctx context.Context, userID, folderID, workfileName string, patentIDs []string) (*folders.ListUpdate, error) {
	if m.addPatentsFunc != nil {
		return m.addPatentsFunc(ctx, userID, folderID, workfileName, patentIDs)
	}
	return nil, errNotImplemented
}

func (m *mockFolderService) RemovePatent(ctx context.Context, userID, folderID, workfileID, patentID string) error {
	if m.removePatentFunc != nil {
		return m.removePatentFunc(ctx, userID, folderID, workfileID, patentID)
	}
	return errNotImplemented
}

func (m *mockFolderService) MergeWorkfiles(ctx context.Context, userID, folderID string, workfileIDs []string, newName string) (*folders.Workfile, error) {
	if m.mergeWorkfilesFunc != nil {
		return m.mergeWorkfilesFunc(ctx, userID, folderID, workfileIDs, newName)
	}
	return nil, errNotImplemented
}

func (m *mockFolderService) DeleteFolder(ctx context.Context, userID, folderID string) error {
	if m.deleteFolderFunc != nil {
		return m.deleteFolderFunc(ctx, userID, folderID)
	}
	return errNotImplemented
}

func (m *mockFolderService) DeleteWorkfile(ctx context.Context, userID, folderID, workfileID string) error {
	if m.deleteWorkfileFunc != nil {
		return m.deleteWorkfileFunc(ctx, userID, folderID, workfileID)
	}
	return errNotImplemented
}

func (m *mockFolderService) ImportFiles(ctx context.Context, userID, folderID, workfileName string, uploads []folders.Upload) (*folders.ImportResult, error) {
	if m.importFilesFunc != nil {
		return m.importFilesFunc(ctx, userID, folderID, workfileName, uploads)
	}
	return nil, errNotImplemented
}

type mockUserDirectory struct {
	getByIDFunc func(ctx context.Context, id string) (*auth.User, error)
	listFunc    func(ctx context.Context, limit, offset int) ([]*auth.User, int, error)
}

func (m *mockUserDirectory) GetByID(ctx context.Context, id string) (*auth.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockUserDirectory) List(ctx context.Context, limit, offset int) ([]*auth.User, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return nil, 0, errNotImplemented
}
