package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"offerhub-backend/models"
	awspkg "offerhub-backend/pkg/aws"
	"offerhub-backend/services"
)

// Config holds all configuration for the service. Components receive what
// they need at construction; nothing reads the environment after startup.
type Config struct {
	Env  string
	Port string

	MongoURI    string
	MongoDBName string

	// RedisURL is optional; empty disables the analytics cache.
	RedisURL string

	// Per-role signing secrets. Access and refresh classes never share a
	// secret, so six values in total.
	UserAccessSecret     string
	UserRefreshSecret    string
	AdminAccessSecret    string
	AdminRefreshSecret   string
	VentureAccessSecret  string
	VentureRefreshSecret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	OTPTTL          time.Duration

	// S3 bucket for coupon logos and ad images; empty disables uploads.
	AssetsBucket string
	// SNS topic for lifecycle events; empty disables publishing.
	PromotionSNSTopicARN string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	CORSAllowedOrigins []string
	SecureCookies      bool
}

// LoadConfig reads configuration from the environment, with an optional .env
// file for local development and an optional Secrets Manager override of the
// JWT signing secrets when running on AWS.
func LoadConfig() (*Config, error) {
	// Best effort: absent .env just means the environment is already set.
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		MongoURI:    os.Getenv("MONGO_DB_URL"),
		MongoDBName: getEnv("MONGO_DB_NAME", "offerhub"),
		RedisURL:    os.Getenv("REDIS_URL"),

		UserAccessSecret:     os.Getenv("USER_ACCESS_TOKEN_SECRET"),
		UserRefreshSecret:    os.Getenv("USER_REFRESH_TOKEN_SECRET"),
		AdminAccessSecret:    os.Getenv("ADMIN_ACCESS_TOKEN_SECRET"),
		AdminRefreshSecret:   os.Getenv("ADMIN_REFRESH_TOKEN_SECRET"),
		VentureAccessSecret:  os.Getenv("VENTURE_ACCESS_TOKEN_SECRET"),
		VentureRefreshSecret: os.Getenv("VENTURE_REFRESH_TOKEN_SECRET"),

		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		OTPTTL:          getDurationEnv("OTP_TTL", 5*time.Minute),

		AssetsBucket:         os.Getenv("ASSETS_S3_BUCKET"),
		PromotionSNSTopicARN: os.Getenv("PROMOTION_SNS_TOPIC_ARN"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		SecureCookies:      getEnv("SECURE_COOKIES", "false") == "true",
	}

	// Override signing secrets from Secrets Manager when running on AWS.
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			sm := awspkg.NewSecretsClient(awsCfg)
			if values, err := sm.GetJSONSecret(context.Background(), "offerhub/JWT_SECRETS"); err == nil {
				overrideSecret(values, "USER_ACCESS_TOKEN_SECRET", &cfg.UserAccessSecret)
				overrideSecret(values, "USER_REFRESH_TOKEN_SECRET", &cfg.UserRefreshSecret)
				overrideSecret(values, "ADMIN_ACCESS_TOKEN_SECRET", &cfg.AdminAccessSecret)
				overrideSecret(values, "ADMIN_REFRESH_TOKEN_SECRET", &cfg.AdminRefreshSecret)
				overrideSecret(values, "VENTURE_ACCESS_TOKEN_SECRET", &cfg.VentureAccessSecret)
				overrideSecret(values, "VENTURE_REFRESH_TOKEN_SECRET", &cfg.VentureRefreshSecret)
			}
		}
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_DB_URL must be set")
	}
	for name, v := range map[string]string{
		"USER_ACCESS_TOKEN_SECRET":     cfg.UserAccessSecret,
		"USER_REFRESH_TOKEN_SECRET":    cfg.UserRefreshSecret,
		"ADMIN_ACCESS_TOKEN_SECRET":    cfg.AdminAccessSecret,
		"ADMIN_REFRESH_TOKEN_SECRET":   cfg.AdminRefreshSecret,
		"VENTURE_ACCESS_TOKEN_SECRET":  cfg.VentureAccessSecret,
		"VENTURE_REFRESH_TOKEN_SECRET": cfg.VentureRefreshSecret,
	} {
		if v == "" {
			return nil, fmt.Errorf("%s must be set", name)
		}
	}

	return cfg, nil
}

// RoleSecrets assembles the per-role signing secrets for the token service.
func (c *Config) RoleSecrets() map[models.Role]services.RoleSecrets {
	return map[models.Role]services.RoleSecrets{
		models.RoleUser: {
			AccessSecret:  []byte(c.UserAccessSecret),
			RefreshSecret: []byte(c.UserRefreshSecret),
		},
		models.RoleAdmin: {
			AccessSecret:  []byte(c.AdminAccessSecret),
			RefreshSecret: []byte(c.AdminRefreshSecret),
		},
		models.RoleVenture: {
			AccessSecret:  []byte(c.VentureAccessSecret),
			RefreshSecret: []byte(c.VentureRefreshSecret),
		},
	}
}

func overrideSecret(values map[string]string, key string, target *string) {
	if v, ok := values[key]; ok && v != "" {
		*target = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
