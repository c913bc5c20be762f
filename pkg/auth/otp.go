package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	// ErrOTPExpired is returned when no OTP is pending for an email
	ErrOTPExpired = errors.New("otp expired or not found")
	// ErrOTPInvalid is returned for a wrong code
	ErrOTPInvalid = errors.New("invalid otp")
	// ErrOTPAttemptsExceeded is returned once the attempt budget is spent; the code is deleted
	ErrOTPAttemptsExceeded = errors.New("too many otp attempts")
	// ErrOTPRateLimited is returned when a resend comes inside the resend interval
	ErrOTPRateLimited = errors.New("otp recently sent, try again later")
	// ErrPendingSignupNotFound is returned when the pending signup has expired
	ErrPendingSignupNotFound = errors.New("signup expired, please sign up again")
)

const (
	otpKeyPrefix           = "otp:"
	otpRateKeyPrefix       = "otp_rate:"
	pendingSignupKeyPrefix = "pending_signup:"
	otpDigits              = 6
)

// OTPStoreConfig holds the TTLs and limits of the OTP store
type OTPStoreConfig struct {
	OTPTTL           time.Duration
	PendingSignupTTL time.Duration
	ResendInterval   time.Duration
	MaxAttempts      int
}

// OTPStore keeps OTP codes, pending signups and resend throttles in Redis
type OTPStore struct {
	client *redis.Client
	config OTPStoreConfig
}

// NewOTPStore creates an OTPStore
func NewOTPStore(client *redis.Client, config OTPStoreConfig) *OTPStore {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	return &OTPStore{client: client, config: config}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GenerateCode returns a random 6-digit code
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// Issue creates a fresh OTP for email and purpose, replacing any pending one
func (s *OTPStore) Issue(ctx context.Context, email string, purpose OTPPurpose) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	key := otpKeyPrefix + normalizeEmail(email)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		"code":     code,
		"attempts": 0,
		"purpose":  string(purpose),
	})
	pipe.Expire(ctx, key, s.config.OTPTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	return code, nil
}

// verifyOTPScript checks and consumes an OTP hash in one step. Wrong codes spend an attempt on the
// existing hash, so its TTL is kept, and the hash is deleted once the budget is spent.
// KEYS[1] otp hash, ARGV[1] submitted code, ARGV[2] attempt budget.
var verifyOTPScript = redis.NewScript(`
local fields = redis.call('HMGET', KEYS[1], 'code', 'attempts', 'purpose')
if not fields[1] then
	return {'expired', ''}
end
local max = tonumber(ARGV[2])
local attempts = tonumber(fields[2]) or 0
if attempts >= max then
	redis.call('DEL', KEYS[1])
	return {'exceeded', ''}
end
if fields[1] ~= ARGV[1] then
	attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
	if attempts >= max then
		redis.call('DEL', KEYS[1])
		return {'exceeded', ''}
	end
	return {'invalid', ''}
end
redis.call('DEL', KEYS[1])
return {'ok', fields[3] or ''}
`)

// Verify checks code against the pending OTP. A correct code is consumed. A wrong code
// spends an attempt and the OTP is deleted once the attempt budget is exhausted.
func (s *OTPStore) Verify(ctx context.Context, email, code string) (OTPPurpose, error) {
	key := otpKeyPrefix + normalizeEmail(email)

	res, err := verifyOTPScript.Run(ctx, s.client, []string{key}, strings.TrimSpace(code), s.config.MaxAttempts).StringSlice()
	if err != nil {
		return "", fmt.Errorf("failed to verify otp: %w", err)
	}
	if len(res) != 2 {
		return "", fmt.Errorf("failed to verify otp: unexpected reply %v", res)
	}

	switch res[0] {
	case "ok":
		return OTPPurpose(res[1]), nil
	case "expired":
		return "", ErrOTPExpired
	case "exceeded":
		return "", ErrOTPAttemptsExceeded
	default:
		return "", ErrOTPInvalid
	}
}

// Purpose returns the purpose of the pending OTP for email
func (s *OTPStore) Purpose(ctx context.Context, email string) (OTPPurpose, error) {
	purpose, err := s.client.HGet(ctx, otpKeyPrefix+normalizeEmail(email), "purpose").Result()
	if err == redis.Nil {
		return "", ErrOTPExpired
	}
	if err != nil {
		return "", fmt.Errorf("failed to load otp: %w", err)
	}
	return OTPPurpose(purpose), nil
}

// AllowSend claims the resend slot for email. It returns ErrOTPRateLimited inside the interval.
func (s *OTPStore) AllowSend(ctx context.Context, email string) error {
	ok, err := s.client.SetNX(ctx, otpRateKeyPrefix+normalizeEmail(email), 1, s.config.ResendInterval).Result()
	if err != nil {
		return fmt.Errorf("failed to check otp rate: %w", err)
	}
	if !ok {
		return ErrOTPRateLimited
	}
	return nil
}

// SavePendingSignup stores a signup until its OTP is verified
func (s *OTPStore) SavePendingSignup(ctx context.Context, pending *PendingSignup) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending signup: %w", err)
	}
	key := pendingSignupKeyPrefix + normalizeEmail(pending.Email)
	if err := s.client.Set(ctx, key, data, s.config.PendingSignupTTL).Err(); err != nil {
		return fmt.Errorf("failed to store pending signup: %w", err)
	}
	return nil
}

// GetPendingSignup loads the pending signup for email
func (s *OTPStore) GetPendingSignup(ctx context.Context, email string) (*PendingSignup, error) {
	data, err := s.client.Get(ctx, pendingSignupKeyPrefix+normalizeEmail(email)).Bytes()
	if err == redis.Nil {
		return nil, ErrPendingSignupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending signup: %w", err)
	}

	var pending PendingSignup
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("failed to decode pending signup: %w", err)
	}
	return &pending, nil
}

// DeletePendingSignup removes the pending signup for email
func (s *OTPStore) DeletePendingSignup(ctx context.Context, email string) error {
	return s.client.Del(ctx, pendingSignupKeyPrefix+normalizeEmail(email)).Err()
}
