// Package config loads application configuration from environment
// variables.  main loads an optional .env file first.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values.
type Config struct {
	Env            string
	Port           string
	LogLevel       string
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	AdminEmail     string // bootstrap admin, created at startup when set
	AdminPassword  string

	Gateway   GatewayConfig
	Mail      MailConfig
	Booking   BookingConfig
	AMQP      AMQPConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Redis     RedisConfig
}

// Load reads the environment.  Missing required variables stop the process.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),

		Gateway:   LoadGatewayConfig(),
		Mail:      LoadMailConfig(),
		Booking:   LoadBookingConfig(),
		AMQP:      LoadAMQPConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
		Redis:     LoadRedisConfig(),
	}
}

// GatewayConfig carries credentials for both payment providers.  A provider
// with an empty key is not registered.
type GatewayConfig struct {
	Default            string
	Timeout            time.Duration
	RazorpayKeyID      string
	RazorpayKeySecret  string
	RazorpayBaseURL    string
	PluralClientID     string
	PluralClientSecret string
	PluralBaseURL      string
	PluralCallbackURL  string
}

func LoadGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Default:            envStr("PAYMENT_DEFAULT_GATEWAY", "RAZORPAY"),
		Timeout:            envDur("GATEWAY_TIMEOUT", 10*time.Second),
		RazorpayKeyID:      os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:  os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:    os.Getenv("RAZORPAY_BASE_URL"),
		PluralClientID:     os.Getenv("PLURAL_CLIENT_ID"),
		PluralClientSecret: os.Getenv("PLURAL_CLIENT_SECRET"),
		PluralBaseURL:      os.Getenv("PLURAL_BASE_URL"),
		PluralCallbackURL:  os.Getenv("PLURAL_CALLBACK_URL"),
	}
}

// MailConfig configures the SMTP mailer.  Host empty disables email.
type MailConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	AdminEmail string
	SkipVerify bool
}

func LoadMailConfig() MailConfig {
	return MailConfig{
		Host:       os.Getenv("SMTP_HOST"),
		Port:       envInt("SMTP_PORT", 587),
		User:       os.Getenv("SMTP_USER"),
		Password:   os.Getenv("SMTP_PASSWORD"),
		From:       envStr("MAIL_FROM", "bookings@localhost"),
		AdminEmail: os.Getenv("MAIL_ADMIN"),
		SkipVerify: envBool("SMTP_SKIP_VERIFY", false),
	}
}

type BookingConfig struct {
	Currency       string
	PaymentWindow  time.Duration
	NotifyTimeout  time.Duration
	ExpiryInterval time.Duration
	ExpiryBatch    int
}

func LoadBookingConfig() BookingConfig {
	cfg := BookingConfig{
		Currency:       envStr("BOOKING_CURRENCY", "INR"),
		PaymentWindow:  envDur("BOOKING_PAYMENT_WINDOW", 30*time.Minute),
		NotifyTimeout:  envDur("NOTIFY_TIMEOUT", 10*time.Second),
		ExpiryInterval: envDur("BOOKING_EXPIRY_INTERVAL", time.Minute),
		ExpiryBatch:    envInt("BOOKING_EXPIRY_BATCH", 100),
	}
	if cfg.ExpiryBatch < 1 {
		cfg.ExpiryBatch = 1
	}
	return cfg
}

// AMQPConfig enables the RabbitMQ notification queue when URL is set.
type AMQPConfig struct {
	URL   string
	Queue string
}

func LoadAMQPConfig() AMQPConfig {
	return AMQPConfig{
		URL:   os.Getenv("AMQP_URL"),
		Queue: envStr("AMQP_QUEUE", "booking.notifications"),
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
