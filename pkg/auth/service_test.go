package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUserStore struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: map[string]*User{}}
}

func (m *memoryUserStore) Create(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memoryUserStore) GetByID(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memoryUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == normalizeEmail(email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryUserStore) SetActiveToken(ctx context.Context, userID, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.ActiveToken = &tokenID
	return nil
}

func (m *memoryUserStore) ClearActiveToken(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.ActiveToken = nil
	}
	return nil
}

func (m *memoryUserStore) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return nil, len(m.users), nil
}

type recordingMailer struct {
	sent chan string
}

func (m *recordingMailer) SendOTP(ctx context.Context, to, code string, purpose OTPPurpose) error {
	m.sent <- to
	return nil
}

type mockInviteRedeemer struct {
	validateFunc func(ctx context.Context, token string) error
	joinFunc     func(ctx context.Context, token, userID string) error
}

func (m *mockInviteRedeemer) ValidateInvite(ctx context.Context, token string) error {
	return m.validateFunc(ctx, token)
}

func (m *mockInviteRedeemer) JoinOrganization(ctx context.Context, token, userID string) error {
	return m.joinFunc(ctx, token, userID)
}

type serviceFixture struct {
	svc    *Service
	users  *memoryUserStore
	mr     *miniredis.Miniredis
	mailer *recordingMailer
}

func newServiceFixture(t *testing.T, invites InviteRedeemer) *serviceFixture {
	t.Helper()
	otp, mr := newTestOTPStore(t)
	users := newMemoryUserStore()
	mailer := &recordingMailer{sent: make(chan string, 10)}
	svc := NewService(users, otp, NewTokenManager(testSecret, time.Hour), mailer, invites, nil)
	return &serviceFixture{svc: svc, users: users, mr: mr, mailer: mailer}
}

func (f *serviceFixture) code(email string) string {
	return f.mr.HGet("otp:"+email, "code")
}

func (f *serviceFixture) waitForMail(t *testing.T) string {
	t.Helper()
	select {
	case to := <-f.mailer.sent:
		return to
	case <-time.After(time.Second):
		t.Fatal("otp email was not sent")
		return ""
	}
}

func TestService_SignupAndVerify(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	err := f.svc.Signup(ctx, SignupRequest{Name: "Asha", Email: "Asha@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", f.waitForMail(t))

	_, err = f.users.GetByEmail(ctx, "asha@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound, "account is created only after otp verification")

	session, err := f.svc.VerifyOTP(ctx, "asha@example.com", f.code("asha@example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.User.IsVerified)
	assert.Equal(t, UserTypeIndividual, session.User.UserType)

	authCtx, err := f.svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, authCtx.UserID)
	assert.False(t, f.mr.Exists("pending_signup:asha@example.com"))
}

func TestService_Signup_Validation(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SignupRequest
		want error
	}{
		{"missing name", SignupRequest{Email: "a@example.com", Password: "password123"}, ErrInvalidSignup},
		{"bad email", SignupRequest{Name: "A", Email: "nope", Password: "password123"}, ErrInvalidSignup},
		{"short password", SignupRequest{Name: "A", Email: "a@example.com", Password: "short"}, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.svc.Signup(ctx, tt.req), tt.want)
		})
	}

	t.Run("email taken", func(t *testing.T) {
		require.NoError(t, f.users.Create(ctx, &User{Email: "taken@example.com"}))
		err := f.svc.Signup(ctx, SignupRequest{Name: "T", Email: "taken@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestService_LoginIsTwoStep(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	hash, err := HashPassword("password123")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &User{ID: "u1", Email: "asha@example.com", PasswordHash: hash}))

	t.Run("wrong password", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.Login(ctx, "asha@example.com", "wrong-password"), ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.Login(ctx, "ghost@example.com", "password123"), ErrInvalidCredentials)
	})

	t.Run("new login supersedes old session", func(t *testing.T) {
		require.NoError(t, f.svc.Login(ctx, "asha@example.com", "password123"))
		f.waitForMail(t)
		first, err := f.svc.VerifyOTP(ctx, "asha@example.com", f.code("asha@example.com"))
		require.NoError(t, err)

		f.mr.FastForward(61 * time.Second)

		require.NoError(t, f.svc.Login(ctx, "asha@example.com", "password123"))
		f.waitForMail(t)
		second, err := f.svc.VerifyOTP(ctx, "asha@example.com", f.code("asha@example.com"))
		require.NoError(t, err)

		_, err = f.svc.Authenticate(ctx, first.Token)
		assert.ErrorIs(t, err, ErrSessionSuperseded)

		_, err = f.svc.Authenticate(ctx, second.Token)
		assert.NoError(t, err)

		require.NoError(t, f.svc.Logout(ctx, "u1"))
		_, err = f.svc.Authenticate(ctx, second.Token)
		assert.ErrorIs(t, err, ErrSessionSuperseded)
	})
}

func TestService_ResendOTP(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.svc.Signup(ctx, SignupRequest{Name: "A", Email: "a@example.com", Password: "password123"}))
	f.waitForMail(t)

	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "a@example.com"), ErrOTPRateLimited)

	f.mr.FastForward(61 * time.Second)
	require.NoError(t, f.svc.ResendOTP(ctx, "a@example.com"))
	f.waitForMail(t)
	assert.Equal(t, "signup", f.mr.HGet("otp:a@example.com", "purpose"))

	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "ghost@example.com"), ErrUserNotFound)
}

func TestService_SignupWithInvite(t *testing.T) {
	ctx := context.Background()
	errInvalid := errors.New("invalid or expired invite")

	t.Run("invalid invite stops signup", func(t *testing.T) {
		f := newServiceFixture(t, &mockInviteRedeemer{
			validateFunc: func(ctx context.Context, token string) error { return errInvalid },
		})
		err := f.svc.SignupWithInvite(ctx, SignupRequest{Name: "M", Email: "m@example.com", Password: "password123", InviteToken: "bad"})
		assert.ErrorIs(t, err, errInvalid)
		assert.False(t, f.mr.Exists("pending_signup:m@example.com"))
	})

	t.Run("missing token", func(t *testing.T) {
		f := newServiceFixture(t, &mockInviteRedeemer{})
		err := f.svc.SignupWithInvite(ctx, SignupRequest{Name: "M", Email: "m@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrInviteRequired)
	})

	t.Run("joins after verification", func(t *testing.T) {
		var joined struct {
			token, userID string
		}
		var f *serviceFixture
		f = newServiceFixture(t, &mockInviteRedeemer{
			validateFunc: func(ctx context.Context, token string) error { return nil },
			joinFunc: func(ctx context.Context, token, userID string) error {
				joined.token, joined.userID = token, userID
				role := OrgRoleMember
				f.users.mu.Lock()
				f.users.users[userID].OrganizationRole = &role
				f.users.users[userID].UserType = UserTypeOrganizationMember
				f.users.mu.Unlock()
				return nil
			},
		})

		err := f.svc.SignupWithInvite(ctx, SignupRequest{Name: "M", Email: "m@example.com", Password: "password123", InviteToken: "tok"})
		require.NoError(t, err)
		f.waitForMail(t)

		session, err := f.svc.VerifyOTP(ctx, "m@example.com", f.code("m@example.com"))
		require.NoError(t, err)
		assert.Equal(t, "tok", joined.token)
		assert.Equal(t, session.User.ID, joined.userID)
		assert.Equal(t, OrgRoleMember, session.User.Role())

		authCtx, err := f.svc.Authenticate(ctx, session.Token)
		require.NoError(t, err)
		assert.True(t, authCtx.IsOrgMember())
	})
}

func TestService_Authenticate_UnknownUser(t *testing.T) {
	f := newServiceFixture(t, nil)
	token, _, _, err := f.svc.tokens.Issue(&User{ID: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
