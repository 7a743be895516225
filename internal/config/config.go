package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort    int
	LogLevel    string
	CORSOrigins []string

	DatabaseURL string
	MaxDBConns  int
	RabbitMQURL string
	RedisURL    string

	MailHost     string
	MailPort     int
	MailUser     string
	MailPassword string
	MailFrom     string

	BookingBaseURL string
	MeetingBaseURL string
	CompanyName    string

	RejectBelow  int64
	QualifyAbove int64

	ReminderInterval time.Duration
	ReminderAge      time.Duration

	DispatchWorkers int
	DispatchBuffer  int
	DeliveryTimeout time.Duration

	JWTSecret   string
	TokenTTL    time.Duration
	BcryptCost  int
	AllowSignup bool

	RateLimitPerMinute int
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Server struct {
		HTTPPort    int      `yaml:"http_port"`
		LogLevel    string   `yaml:"log_level"`
		CORSOrigins []string `yaml:"cors_origins"`
		RateLimit   int      `yaml:"rate_limit_per_minute"`
	} `yaml:"server"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		MaxDBConns  int    `yaml:"max_db_conns"`
		RabbitMQURL string `yaml:"rabbitmq_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Mail struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		User string `yaml:"user"`
		From string `yaml:"from"`
	} `yaml:"mail"`
	Links struct {
		Booking string `yaml:"booking_base_url"`
		Meeting string `yaml:"meeting_base_url"`
	} `yaml:"links"`
	Company string `yaml:"company"`
	Triage  struct {
		RejectBelow  int64 `yaml:"reject_below"`
		QualifyAbove int64 `yaml:"qualify_above"`
	} `yaml:"triage"`
	Reminders struct {
		Interval string `yaml:"interval"`
		MinAge   string `yaml:"min_age"`
	} `yaml:"reminders"`
	Notifications struct {
		Workers int    `yaml:"workers"`
		Buffer  int    `yaml:"buffer"`
		Timeout string `yaml:"timeout"`
	} `yaml:"notifications"`
	Auth struct {
		TokenTTL    string `yaml:"token_ttl"`
		BcryptCost  int    `yaml:"bcrypt_cost"`
		AllowSignup *bool  `yaml:"allow_signup"`
	} `yaml:"auth"`
}

func defaults() Config {
	return Config{
		HTTPPort:           8080,
		LogLevel:           "info",
		CORSOrigins:        []string{"http://localhost:3000"},
		MaxDBConns:         10,
		MailHost:           "smtp.gmail.com",
		MailPort:           587,
		BookingBaseURL:     "http://localhost:3000/booking",
		MeetingBaseURL:     "https://meet.google.com",
		CompanyName:        "SalesPilot",
		RejectBelow:        3000,
		QualifyAbove:       50000,
		ReminderInterval:   24 * time.Hour,
		ReminderAge:        24 * time.Hour,
		DispatchWorkers:    4,
		DispatchBuffer:     256,
		DeliveryTimeout:    30 * time.Second,
		TokenTTL:           7 * 24 * time.Hour,
		BcryptCost:         12,
		AllowSignup:        true,
		RateLimitPerMinute: 30,
	}
}

// Load resolves configuration: defaults, then the YAML file at path (if it
// exists), then a .env file, then the process environment.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}

	setInt(&cfg.HTTPPort, f.Server.HTTPPort)
	setString(&cfg.LogLevel, f.Server.LogLevel)
	if len(f.Server.CORSOrigins) > 0 {
		cfg.CORSOrigins = f.Server.CORSOrigins
	}
	setInt(&cfg.RateLimitPerMinute, f.Server.RateLimit)

	setString(&cfg.DatabaseURL, f.Dependencies.PostgresURL)
	setInt(&cfg.MaxDBConns, f.Dependencies.MaxDBConns)
	setString(&cfg.RabbitMQURL, f.Dependencies.RabbitMQURL)
	setString(&cfg.RedisURL, f.Dependencies.RedisURL)

	setString(&cfg.MailHost, f.Mail.Host)
	setInt(&cfg.MailPort, f.Mail.Port)
	setString(&cfg.MailUser, f.Mail.User)
	setString(&cfg.MailFrom, f.Mail.From)

	setString(&cfg.BookingBaseURL, f.Links.Booking)
	setString(&cfg.MeetingBaseURL, f.Links.Meeting)
	setString(&cfg.CompanyName, f.Company)

	if f.Triage.RejectBelow > 0 {
		cfg.RejectBelow = f.Triage.RejectBelow
	}
	if f.Triage.QualifyAbove > 0 {
		cfg.QualifyAbove = f.Triage.QualifyAbove
	}

	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{f.Reminders.Interval, &cfg.ReminderInterval},
		{f.Reminders.MinAge, &cfg.ReminderAge},
		{f.Notifications.Timeout, &cfg.DeliveryTimeout},
		{f.Auth.TokenTTL, &cfg.TokenTTL},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	setInt(&cfg.DispatchWorkers, f.Notifications.Workers)
	setInt(&cfg.DispatchBuffer, f.Notifications.Buffer)
	setInt(&cfg.BcryptCost, f.Auth.BcryptCost)
	if f.Auth.AllowSignup != nil {
		cfg.AllowSignup = *f.Auth.AllowSignup
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPPort = envInt("PORT", envInt("HTTP_PORT", cfg.HTTPPort))
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.CORSOrigins = envCSV("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.RateLimitPerMinute = envInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)

	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)
	cfg.RabbitMQURL = envOrDefault("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)

	cfg.MailHost = envOrDefault("MAIL_HOST", cfg.MailHost)
	cfg.MailPort = envInt("MAIL_PORT", cfg.MailPort)
	cfg.MailUser = envOrDefault("MAIL_USER", cfg.MailUser)
	cfg.MailPassword = envOrDefault("MAIL_PASS", cfg.MailPassword)
	cfg.MailFrom = envOrDefault("MAIL_FROM", cfg.MailFrom)
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.MailUser
	}

	cfg.BookingBaseURL = envOrDefault("BOOKING_BASE_URL", cfg.BookingBaseURL)
	cfg.MeetingBaseURL = envOrDefault("MEETING_BASE_URL", cfg.MeetingBaseURL)

	cfg.RejectBelow = int64(envInt("TRIAGE_REJECT_BELOW", int(cfg.RejectBelow)))
	cfg.QualifyAbove = int64(envInt("TRIAGE_QUALIFY_ABOVE", int(cfg.QualifyAbove)))

	cfg.ReminderInterval = envDuration("REMINDER_INTERVAL", cfg.ReminderInterval)
	cfg.ReminderAge = envDuration("REMINDER_MIN_AGE", cfg.ReminderAge)
	cfg.DeliveryTimeout = envDuration("MAIL_TIMEOUT", cfg.DeliveryTimeout)

	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = envDuration("JWT_TTL", cfg.TokenTTL)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.AllowSignup = envBool("ALLOW_SIGNUP", cfg.AllowSignup)
}

// Validate checks cross-field constraints. The JWT secret is checked where
// tokens are issued, so maintenance commands run without one.
func (c Config) Validate() error {
	var errs []error
	if c.RejectBelow > c.QualifyAbove {
		errs = append(errs, fmt.Errorf("triage reject_below (%d) exceeds qualify_above (%d)", c.RejectBelow, c.QualifyAbove))
	}
	if c.ReminderInterval <= 0 {
		errs = append(errs, errors.New("reminder interval must be positive"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return d
}

func envCSV(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
