package service

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

const testJWTSecret = "test-secret"

type mailerStub struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *mailerStub) SendOTP(_ context.Context, email, code string, purpose models.OTPPurpose, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[string(purpose)+":"+email] = code
	return nil
}

func (m *mailerStub) code(purpose models.OTPPurpose, email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[string(purpose)+":"+email]
}

type authHarness struct {
	*serviceFixture
	svc    *authService
	mailer *mailerStub
	redis  *miniredis.Miniredis
	codes  []string
}

func newAuthHarness(t *testing.T, cooldown time.Duration) *authHarness {
	t.Helper()
	f := newServiceFixture(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	h := &authHarness{serviceFixture: f, mailer: &mailerStub{}, redis: mr, codes: []string{"123456", "654321", "111111"}}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewAuthService(
		repository.NewUserRepository(f.db),
		repository.NewOTPRepository(f.db),
		h.mailer,
		client,
		f.validate,
		AuthConfig{JWTSecret: testJWTSecret, TokenTTL: time.Hour, OTPTTL: 5 * time.Minute, ResendCooldown: cooldown},
		testLogger(),
	).(*authService)
	svc.hashCost = bcrypt.MinCost
	svc.newCode = func() (string, error) {
		code := h.codes[0]
		h.codes = h.codes[1:]
		return code, nil
	}
	h.svc = svc
	return h
}

func TestAuthServiceSignupAndLogin(t *testing.T) {
	h := newAuthHarness(t, 0)
	ctx := context.Background()

	sent, err := h.svc.RequestSignupOTP(ctx, dto.OTPRequest{Email: " New.Student@Example.com "})
	require.NoError(t, err)
	require.Equal(t, "new.student@example.com", sent.Email)
	require.Equal(t, "123456", h.mailer.code(models.OTPPurposeSignup, "new.student@example.com"))

	_, err = h.svc.Register(ctx, dto.RegisterRequest{Name: "New Student", Email: "new.student@example.com", Password: "secret123", OTP: "000000"})
	require.ErrorIs(t, err, ErrOTPInvalid)

	registered, err := h.svc.Register(ctx, dto.RegisterRequest{Name: "New Student", Email: "new.student@example.com", Password: "secret123", OTP: "123456"})
	require.NoError(t, err)
	require.Equal(t, int(models.RoleStudent), registered.User.Role)
	require.NotEmpty(t, registered.Token)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(registered.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	require.EqualValues(t, registered.User.ID, claims["sub"])
	require.EqualValues(t, models.RoleStudent, claims["role"])

	_, err = h.svc.Register(ctx, dto.RegisterRequest{Name: "Again", Email: "new.student@example.com", Password: "secret123", OTP: "123456"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = h.svc.RequestSignupOTP(ctx, dto.OTPRequest{Email: "new.student@example.com"})
	require.ErrorIs(t, err, ErrEmailTaken)

	var validationErrs validator.ValidationErrors
	_, err = h.svc.RequestSignupOTP(ctx, dto.OTPRequest{Email: "   "})
	require.ErrorAs(t, err, &validationErrs)

	loggedIn, err := h.svc.Login(ctx, dto.LoginRequest{Email: "  NEW.STUDENT@example.com ", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, loggedIn.User.ID)

	_, err = h.svc.Login(ctx, dto.LoginRequest{Email: "new.student@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.svc.Login(ctx, dto.LoginRequest{Email: "ghost@example.com", Password: "secret123"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	me, err := h.svc.Me(ctx, registered.User.ID)
	require.NoError(t, err)
	require.Equal(t, "New Student", me.Name)
}

func TestAuthServiceOTPIsSingleUseAndExpires(t *testing.T) {
	h := newAuthHarness(t, 0)
	ctx := context.Background()
	clock := &testClock{now: time.Now()}
	h.svc.now = clock.Now

	_, err := h.svc.RequestSignupOTP(ctx, dto.OTPRequest{Email: "late@example.com"})
	require.NoError(t, err)

	clock.now = clock.now.Add(6 * time.Minute)
	_, err = h.svc.Register(ctx, dto.RegisterRequest{Name: "Late", Email: "late@example.com", Password: "secret123", OTP: "123456"})
	require.ErrorIs(t, err, ErrOTPInvalid)
}

func TestAuthServiceResendCooldown(t *testing.T) {
	h := newAuthHarness(t, time.Minute)
	ctx := context.Background()

	_, err := h.svc.RequestSignupOTP(ctx, dto.OTPRequest{Email: "fast@example.com"})
	require.NoError(t, err)

	_, err = h.svc.RequestSignupOTP(ctx, dto.OTPRequest{Email: "fast@example.com"})
	require.ErrorIs(t, err, ErrOTPCooldown)

	h.redis.FastForward(2 * time.Minute)
	_, err = h.svc.RequestSignupOTP(ctx, dto.OTPRequest{Email: "fast@example.com"})
	require.NoError(t, err)
	require.Equal(t, "654321", h.mailer.code(models.OTPPurposeSignup, "fast@example.com"))
}

func TestAuthServiceResetPassword(t *testing.T) {
	h := newAuthHarness(t, 0)
	ctx := context.Background()

	unknown, err := h.svc.RequestPasswordReset(ctx, dto.OTPRequest{Email: "nobody@example.com"})
	require.NoError(t, err)
	require.Equal(t, "nobody@example.com", unknown.Email)
	require.Empty(t, h.mailer.code(models.OTPPurposeResetPassword, "nobody@example.com"))

	_, err = h.svc.RequestPasswordReset(ctx, dto.OTPRequest{Email: " Student@Example.COM "})
	require.NoError(t, err)
	code := h.mailer.code(models.OTPPurposeResetPassword, h.student.Email)
	require.Equal(t, "123456", code)

	require.NoError(t, h.svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: "STUDENT@example.com\t", OTP: code, Password: "brand-new-pass"}))

	_, err = h.svc.Login(ctx, dto.LoginRequest{Email: h.student.Email, Password: "brand-new-pass"})
	require.NoError(t, err)

	err = h.svc.ResetPassword(ctx, dto.ResetPasswordRequest{Email: h.student.Email, OTP: code, Password: "another-pass"})
	require.ErrorIs(t, err, ErrOTPInvalid)
}
