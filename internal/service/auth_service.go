package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

const otpDigits = 6

// OTPMailer delivers one-time codes.
type OTPMailer interface {
	SendOTP(ctx context.Context, email, code string, purpose models.OTPPurpose, expiresAt time.Time) error
}

// AuthConfig tunes token and one-time code lifetimes.
type AuthConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	OTPTTL         time.Duration
	ResendCooldown time.Duration
}

// AuthService exposes signup, login and password recovery.
type AuthService interface {
	RequestSignupOTP(ctx context.Context, payload dto.OTPRequest) (dto.OTPResponse, error)
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, payload dto.OTPRequest) (dto.OTPResponse, error)
	ResetPassword(ctx context.Context, payload dto.ResetPasswordRequest) error
	Me(ctx context.Context, userID uint) (dto.UserResponse, error)
}

type authService struct {
	users     repository.UserRepository
	otps      repository.OTPRepository
	mailer    OTPMailer
	cache     *redis.Client
	validator *validator.Validate
	cfg       AuthConfig
	logger    zerolog.Logger
	now       func() time.Time
	newCode   func() (string, error)
	hashCost  int
}

// NewAuthService constructs the authentication service. cache may be nil, in
// which case no resend cooldown is enforced.
func NewAuthService(users repository.UserRepository, otps repository.OTPRepository, mailer OTPMailer, cache *redis.Client, validate *validator.Validate, cfg AuthConfig, logger zerolog.Logger) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	return &authService{
		users:     users,
		otps:      otps,
		mailer:    mailer,
		cache:     cache,
		validator: validate,
		cfg:       cfg,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
		newCode:   randomCode,
		hashCost:  bcrypt.DefaultCost,
	}
}

func (s *authService) RequestSignupOTP(ctx context.Context, payload dto.OTPRequest) (dto.OTPResponse, error) {
	payload.Email = normalizeEmail(payload.Email)
	if err := s.validator.Struct(payload); err != nil {
		return dto.OTPResponse{}, err
	}

	email := payload.Email
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.OTPResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.OTPResponse{}, err
	}

	return s.issueOTP(ctx, email, models.OTPPurposeSignup)
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.AuthResponse, error) {
	payload.Email = normalizeEmail(payload.Email)
	payload.Name = strings.TrimSpace(payload.Name)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	email := payload.Email
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.AuthResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AuthResponse{}, err
	}

	otp, err := s.verifyOTP(ctx, email, models.OTPPurposeSignup, payload.OTP)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.hashCost)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         payload.Name,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       models.RoleStudent,
		Phone:        strings.TrimSpace(payload.Phone),
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return dto.AuthResponse{}, err
	}
	if err := s.otps.Consume(ctx, otp.ID, s.now()); err != nil {
		s.logger.Warn().Err(err).Uint("otp_id", otp.ID).Msg("failed to consume signup otp")
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("student registered")
	return s.issueToken(user)
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error) {
	payload.Email = normalizeEmail(payload.Email)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

func (s *authService) RequestPasswordReset(ctx context.Context, payload dto.OTPRequest) (dto.OTPResponse, error) {
	payload.Email = normalizeEmail(payload.Email)
	if err := s.validator.Struct(payload); err != nil {
		return dto.OTPResponse{}, err
	}

	email := payload.Email
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown addresses get the same answer as known ones.
			s.logger.Info().Str("email", email).Msg("password reset requested for unknown email")
			return dto.OTPResponse{Email: email, ExpiresAt: s.now().Add(s.cfg.OTPTTL)}, nil
		}
		return dto.OTPResponse{}, err
	}

	return s.issueOTP(ctx, email, models.OTPPurposeResetPassword)
}

func (s *authService) ResetPassword(ctx context.Context, payload dto.ResetPasswordRequest) error {
	payload.Email = normalizeEmail(payload.Email)
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	email := payload.Email
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOTPInvalid
		}
		return err
	}

	otp, err := s.verifyOTP(ctx, email, models.OTPPurposeResetPassword, payload.OTP)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, &user); err != nil {
		return err
	}
	if err := s.otps.Consume(ctx, otp.ID, s.now()); err != nil {
		s.logger.Warn().Err(err).Uint("otp_id", otp.ID).Msg("failed to consume reset otp")
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("password reset")
	return nil
}

func (s *authService) Me(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *authService) issueOTP(ctx context.Context, email string, purpose models.OTPPurpose) (dto.OTPResponse, error) {
	if s.cache != nil && s.cfg.ResendCooldown > 0 {
		key := fmt.Sprintf("otp:cooldown:%s:%s", purpose, email)
		ok, err := s.cache.SetNX(ctx, key, 1, s.cfg.ResendCooldown).Result()
		if err != nil {
			s.logger.Warn().Err(err).Msg("otp cooldown check failed")
		} else if !ok {
			return dto.OTPResponse{}, ErrOTPCooldown
		}
	}

	code, err := s.newCode()
	if err != nil {
		return dto.OTPResponse{}, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return dto.OTPResponse{}, fmt.Errorf("hash otp: %w", err)
	}

	otp := models.OTP{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(s.cfg.OTPTTL),
	}
	if err := s.otps.Create(ctx, &otp); err != nil {
		return dto.OTPResponse{}, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendOTP(ctx, email, code, purpose, otp.ExpiresAt); err != nil {
			return dto.OTPResponse{}, fmt.Errorf("send otp: %w", err)
		}
	}

	s.logger.Info().Str("email", email).Str("purpose", string(purpose)).Msg("otp issued")
	return dto.OTPResponse{Email: email, ExpiresAt: otp.ExpiresAt}, nil
}

func (s *authService) verifyOTP(ctx context.Context, email string, purpose models.OTPPurpose, code string) (models.OTP, error) {
	otp, err := s.otps.Latest(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.OTP{}, ErrOTPInvalid
		}
		return models.OTP{}, err
	}
	if !otp.Usable(s.now()) {
		return models.OTP{}, ErrOTPInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)); err != nil {
		return models.OTP{}, ErrOTPInvalid
	}
	return otp, nil
}

func (s *authService) issueToken(user models.User) (dto.AuthResponse, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": int(user.RoleID),
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return dto.AuthResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      dto.NewUserResponse(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// trimmedPtr returns a trimmed copy of an optional field, keeping nil as nil.
func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func randomCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
