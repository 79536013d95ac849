package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	LogLevel    string
	CORSOrigins []string

	DatabaseURL string
	RedisURL    string
	NATSURL     string
	NATSSubject string

	JWTSecret      string
	TokenTTL       time.Duration
	OTPTTL         time.Duration
	OTPCooldown    time.Duration
	AuthRateLimit  int
	CourseCacheTTL time.Duration

	UploadDir        string
	UploadPublicPath string
	UploadMaxMB      int

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	SweepAssignmentsOnStart bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether uploads should go to Cloudinary instead of local disk.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// SMTPEnabled reports whether one-time codes are delivered by email.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("COURSEREG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Course Registration API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.cors_origins", "*")
	v.SetDefault("nats.subject", "coursereg")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("otp.ttl", "5m")
	v.SetDefault("otp.resend_cooldown", "60s")
	v.SetDefault("auth.rate_limit", 10)
	v.SetDefault("course.cache_ttl", "5m")
	v.SetDefault("upload.dir", "./static/uploads")
	v.SetDefault("upload.public_path", "/uploads")
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("cloudinary.folder", "coursereg")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("assignment.sweep_on_start", true)

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		LogLevel:    strings.ToLower(v.GetString("app.log_level")),
		CORSOrigins: splitList(v.GetString("app.cors_origins")),

		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		NATSSubject: v.GetString("nats.subject"),

		JWTSecret:     v.GetString("jwt.secret"),
		AuthRateLimit: v.GetInt("auth.rate_limit"),

		UploadDir:        v.GetString("upload.dir"),
		UploadPublicPath: v.GetString("upload.public_path"),
		UploadMaxMB:      v.GetInt("upload.max_mb"),

		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),

		SMTPHost:     v.GetString("smtp.host"),
		SMTPPort:     v.GetInt("smtp.port"),
		SMTPUsername: v.GetString("smtp.username"),
		SMTPPassword: v.GetString("smtp.password"),
		SMTPFrom:     v.GetString("smtp.from"),

		SweepAssignmentsOnStart: v.GetBool("assignment.sweep_on_start"),
	}
	durations := map[string]*time.Duration{
		"jwt.ttl":             &cfg.TokenTTL,
		"otp.ttl":             &cfg.OTPTTL,
		"otp.resend_cooldown": &cfg.OTPCooldown,
		"course.cache_ttl":    &cfg.CourseCacheTTL,
	}

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = parsed
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.TokenTTL <= 0 || cfg.OTPTTL <= 0 {
		return Config{}, fmt.Errorf("token and otp ttl must be positive")
	}
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 10
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}

	return cfg, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
