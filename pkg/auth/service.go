package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/patentdesk/pkg/async"
	"github.com/platinummonkey/patentdesk/pkg/observability"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionSuperseded is returned when a token is no longer the user's active token
	ErrSessionSuperseded = errors.New("session expired, please log in again")
	// ErrInviteRequired is returned by SignupWithInvite without a token
	ErrInviteRequired = errors.New("invite token is required")
	// ErrInvalidSignup is returned for missing or malformed signup fields
	ErrInvalidSignup = errors.New("name, valid email and password are required")
)

const mailTimeout = 15 * time.Second

// InviteRedeemer validates and redeems organization invites
type InviteRedeemer interface {
	ValidateInvite(ctx context.Context, token string) error
	JoinOrganization(ctx context.Context, token, userID string) error
}

// Service implements signup, OTP login and session management
type Service struct {
	users   UserStore
	otp     *OTPStore
	tokens  *TokenManager
	mailer  Mailer
	invites InviteRedeemer
	metrics *observability.Metrics
}

// NewService creates a Service. invites may be nil when invite signups are disabled.
func NewService(users UserStore, otp *OTPStore, tokens *TokenManager, mailer Mailer, invites InviteRedeemer, metrics *observability.Metrics) *Service {
	return &Service{
		users:   users,
		otp:     otp,
		tokens:  tokens,
		mailer:  mailer,
		invites: invites,
		metrics: metrics,
	}
}

func validateSignup(req *SignupRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || !strings.Contains(req.Email, "@") || req.Password == "" {
		return ErrInvalidSignup
	}
	if len(req.Password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Signup stores a pending signup and emails an OTP. The account is created by VerifyOTP.
func (s *Service) Signup(ctx context.Context, req SignupRequest) error {
	if err := validateSignup(&req); err != nil {
		return err
	}

	_, err := s.users.GetByEmail(ctx, req.Email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return err
	}

	if err := s.otp.AllowSend(ctx, req.Email); err != nil {
		return err
	}

	pending := &PendingSignup{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		InviteToken:  req.InviteToken,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.otp.SavePendingSignup(ctx, pending); err != nil {
		return err
	}

	return s.sendOTP(ctx, req.Email, OTPPurposeSignup)
}

// SignupWithInvite is Signup for an invited user. The invite is checked now and redeemed
// once the OTP is verified.
func (s *Service) SignupWithInvite(ctx context.Context, req SignupRequest) error {
	req.InviteToken = strings.TrimSpace(req.InviteToken)
	if req.InviteToken == "" || s.invites == nil {
		return ErrInviteRequired
	}
	if err := s.invites.ValidateInvite(ctx, req.InviteToken); err != nil {
		return err
	}
	return s.Signup(ctx, req)
}

// Login checks the password and emails a login OTP
func (s *Service) Login(ctx context.Context, email, password string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return ErrInvalidCredentials
	}

	if err := s.otp.AllowSend(ctx, user.Email); err != nil {
		return err
	}
	return s.sendOTP(ctx, user.Email, OTPPurposeLogin)
}

// VerifyOTP completes a signup or a login and issues a session
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	email = normalizeEmail(email)

	purpose, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		s.metrics.RecordOTP("rejected")
		return nil, err
	}
	s.metrics.RecordOTP("verified")

	var user *User
	switch purpose {
	case OTPPurposeSignup:
		user, err = s.completeSignup(ctx, email)
	default:
		user, err = s.users.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	return s.issueSession(ctx, user)
}

func (s *Service) completeSignup(ctx context.Context, email string) (*User, error) {
	pending, err := s.otp.GetPendingSignup(ctx, email)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        pending.Email,
		Name:         pending.Name,
		PasswordHash: pending.PasswordHash,
		UserType:     UserTypeIndividual,
		IsVerified:   true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.otp.DeletePendingSignup(ctx, email); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("failed to delete pending signup")
	}

	if pending.InviteToken != "" && s.invites != nil {
		if err := s.invites.JoinOrganization(ctx, pending.InviteToken, user.ID); err != nil {
			observability.FromContext(ctx).WithError(err).
				WithField("user_id", user.ID).
				Warn("invite could not be redeemed after signup")
		} else {
			return s.users.GetByID(ctx, user.ID)
		}
	}
	return user, nil
}

func (s *Service) issueSession(ctx context.Context, user *User) (*Session, error) {
	token, jti, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActiveToken(ctx, user.ID, jti); err != nil {
		return nil, err
	}
	user.ActiveToken = &jti

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ResendOTP issues a new code for a pending signup or an existing account
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	purpose := OTPPurposeLogin
	if _, err := s.otp.GetPendingSignup(ctx, email); err == nil {
		purpose = OTPPurposeSignup
	} else if !errors.Is(err, ErrPendingSignupNotFound) {
		return err
	} else if _, err := s.users.GetByEmail(ctx, email); err != nil {
		return err
	}

	if err := s.otp.AllowSend(ctx, email); err != nil {
		s.metrics.RecordOTP("throttled")
		return err
	}
	return s.sendOTP(ctx, email, purpose)
}

func (s *Service) sendOTP(ctx context.Context, email string, purpose OTPPurpose) error {
	code, err := s.otp.Issue(ctx, email, purpose)
	if err != nil {
		return err
	}
	s.metrics.RecordOTP("issued")

	async.SafeGo(context.WithoutCancel(ctx), mailTimeout, "otp email", func(ctx context.Context) error {
		return s.mailer.SendOTP(ctx, email, code, purpose)
	})
	return nil
}

// Logout clears the active token so the current JWT stops working
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.users.ClearActiveToken(ctx, userID)
}

// Me returns the caller's account
func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// Authenticate validates a bearer token and returns the request identity. A valid token whose
// jti no longer matches users.active_token is rejected with ErrSessionSuperseded.
func (s *Service) Authenticate(ctx context.Context, token string) (*AuthContext, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	if user.ActiveToken == nil || *user.ActiveToken != claims.ID {
		return nil, ErrSessionSuperseded
	}

	return NewAuthContext(user, claims.ID), nil
}
