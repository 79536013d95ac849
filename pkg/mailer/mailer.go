// Package mailer delivers one-time codes by SMTP or, in development, to the log.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppName  string
}

var otpTemplate = template.Must(template.New("otp").Parse(`<p>Your {{.App}} verification code is <strong>{{.Code}}</strong>.</p>
<p>It is valid until {{.Expires}} and can be used once to {{.Action}}.</p>`))

type otpView struct {
	App     string
	Code    string
	Expires string
	Action  string
}

// SMTP sends codes through an SMTP relay.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
	app    string
	logger zerolog.Logger
}

// NewSMTP builds an SMTP mailer.
func NewSMTP(cfg Config, logger zerolog.Logger) (*SMTP, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp host and sender must be provided")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		app:    appName(cfg.AppName),
		logger: logger.With().Str("component", "smtp_mailer").Logger(),
	}, nil
}

// SendOTP mails the code to email.
func (m *SMTP) SendOTP(ctx context.Context, email, code string, purpose models.OTPPurpose, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message, err := buildMessage(m.from, m.app, email, code, purpose, expiresAt)
	if err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}

	m.logger.Info().Str("email", email).Str("purpose", string(purpose)).Msg("otp mail sent")
	return nil
}

// Console logs codes instead of sending them.
type Console struct {
	logger zerolog.Logger
}

// NewConsole builds a log-only mailer.
func NewConsole(logger zerolog.Logger) *Console {
	return &Console{logger: logger.With().Str("component", "console_mailer").Logger()}
}

// SendOTP writes the code to the log.
func (m *Console) SendOTP(_ context.Context, email, code string, purpose models.OTPPurpose, expiresAt time.Time) error {
	m.logger.Warn().
		Str("email", email).
		Str("purpose", string(purpose)).
		Str("code", code).
		Time("expires_at", expiresAt).
		Msg("smtp not configured, otp logged")
	return nil
}

func buildMessage(from, app, to, code string, purpose models.OTPPurpose, expiresAt time.Time) (*gomail.Message, error) {
	subject := fmt.Sprintf("%s verification code", app)
	action := "finish creating your account"
	if purpose == models.OTPPurposeResetPassword {
		subject = fmt.Sprintf("%s password reset code", app)
		action = "reset your password"
	}

	body, err := renderBody(app, code, action, expiresAt)
	if err != nil {
		return nil, err
	}

	message := gomail.NewMessage()
	message.SetHeader("From", from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", body)
	return message, nil
}

func renderBody(app, code, action string, expiresAt time.Time) (string, error) {
	var body bytes.Buffer
	if err := otpTemplate.Execute(&body, otpView{
		App:     app,
		Code:    code,
		Expires: expiresAt.UTC().Format("15:04 MST, 02 Jan 2006"),
		Action:  action,
	}); err != nil {
		return "", fmt.Errorf("render otp mail: %w", err)
	}
	return body.String(), nil
}

func appName(name string) string {
	if name == "" {
		return "Course Registration"
	}
	return name
}
