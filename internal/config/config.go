// Package config loads the service configuration.
//
// Loading order:
//  1. .env is loaded into the process environment (missing file is fine)
//  2. an optional YAML file (CONFIG_FILE or the explicit path) overlays the defaults
//  3. environment variables override both
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment names the runtime mode.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Store backends.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Env       Environment     `yaml:"env"`
	Store     string          `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Mongo     MongoConfig     `yaml:"mongo"`
	JWT       JWTConfig       `yaml:"jwt"`
	Email     EmailConfig     `yaml:"email"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Minio     MinioConfig     `yaml:"minio"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `yaml:"port"`
	BodyLimit       int           `yaml:"body_limit"`
	UploadLimit     int           `yaml:"upload_limit"`
	PublicDir       string        `yaml:"public_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RatingWorkers   int           `yaml:"rating_workers"`
}

// MongoConfig holds database configuration
type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// JWTConfig holds token configuration
type JWTConfig struct {
	Secret        string        `yaml:"secret"`
	ExpiresIn     time.Duration `yaml:"expires_in"`
	CookieExpires time.Duration `yaml:"cookie_expires"`
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`
}

// EmailConfig holds SMTP configuration. An empty host selects the log mailer.
type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     string `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
}

// RateLimitConfig bounds requests per client IP on /api.
type RateLimitConfig struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

// RedisConfig points the rate limiter at a shared store. Empty URL keeps it in memory.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// MinioConfig holds object storage configuration for tour images.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env:   EnvDevelopment,
		Store: StoreMongo,
		Server: ServerConfig{
			Port:            "3000",
			BodyLimit:       10 * 1024,
			UploadLimit:     10 * 1024 * 1024,
			PublicDir:       "public",
			ShutdownTimeout: 10 * time.Second,
			RatingWorkers:   4,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "natours",
			ConnectTimeout: 10 * time.Second,
		},
		JWT: JWTConfig{
			ExpiresIn:     90 * 24 * time.Hour,
			CookieExpires: 90 * 24 * time.Hour,
			ResetTokenTTL: 10 * time.Minute,
		},
		Email: EmailConfig{
			SMTPPort: "587",
			FromName: "Natours",
		},
		RateLimit: RateLimitConfig{
			Max:    100,
			Window: time.Hour,
		},
		Minio: MinioConfig{
			Bucket: "tour-images",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from .env, the optional YAML file and the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// applyEnv overrides cfg with the environment. Malformed numbers, booleans
// and durations are errors rather than silently ignored.
func (c *Config) applyEnv() error {
	var env envParser

	c.Env = Environment(getEnv("NODE_ENV", getEnv("APP_ENV", string(c.Env))))
	c.Store = getEnv("STORE", c.Store)

	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.PublicDir = getEnv("PUBLIC_DIR", c.Server.PublicDir)
	c.Server.RatingWorkers = env.integer("RATING_WORKERS", c.Server.RatingWorkers)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DB", c.Mongo.Database)
	if pw := os.Getenv("DATABASE_PASSWORD"); pw != "" {
		c.Mongo.URI = strings.Replace(c.Mongo.URI, "<PASSWORD>", pw, 1)
	}

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.ExpiresIn = env.duration("JWT_EXPIRES_IN", c.JWT.ExpiresIn, time.Second)
	c.JWT.CookieExpires = env.duration("JWT_COOKIE_EXPIRES_IN", c.JWT.CookieExpires, time.Hour)

	c.Email.SMTPHost = getEnv("EMAIL_HOST", c.Email.SMTPHost)
	c.Email.SMTPPort = getEnv("EMAIL_PORT", c.Email.SMTPPort)
	c.Email.SMTPUsername = getEnv("EMAIL_USERNAME", c.Email.SMTPUsername)
	c.Email.SMTPPassword = getEnv("EMAIL_PASSWORD", c.Email.SMTPPassword)
	c.Email.FromEmail = getEnv("EMAIL_FROM", c.Email.FromEmail)

	c.RateLimit.Max = env.integer("RATE_LIMIT_MAX", c.RateLimit.Max)
	c.RateLimit.Window = env.duration("RATE_LIMIT_WINDOW", c.RateLimit.Window, time.Second)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)

	c.Minio.Endpoint = getEnv("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.Bucket = getEnv("MINIO_BUCKET", c.Minio.Bucket)
	c.Minio.UseSSL = env.boolean("MINIO_USE_SSL", c.Minio.UseSSL)
	c.Minio.PublicURL = getEnv("MINIO_PUBLIC_URL", c.Minio.PublicURL)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	return env.err
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return errors.Errorf("unknown environment %q", c.Env)
	}
	switch c.Store {
	case StoreMongo, StoreMemory:
	default:
		return errors.Errorf("unknown store %q", c.Store)
	}
	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWT.Secret = "development-secret-change-me"
	}
	if c.JWT.ExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	if c.Server.RatingWorkers <= 0 {
		c.Server.RatingWorkers = 1
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// IsEmailConfigured checks if SMTP delivery is possible
func (c *Config) IsEmailConfigured() bool {
	return c.Email.SMTPHost != "" && c.Email.FromEmail != ""
}

// IsMinioConfigured checks if image uploads can be stored
func (c *Config) IsMinioConfigured() bool {
	return c.Minio.Endpoint != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// envParser reads typed environment variables and keeps the first error.
type envParser struct {
	err error
}

func (p *envParser) fail(key, v, want string) {
	if p.err == nil {
		p.err = errors.Errorf("%s=%q is not a valid %s", key, v, want)
	}
}

func (p *envParser) integer(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, "integer")
		return fallback
	}
	return n
}

func (p *envParser) boolean(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, "boolean")
		return fallback
	}
	return b
}

// duration accepts Go durations ("90h"), day counts ("90d") and bare
// numbers, which are read in bareUnit.
func (p *envParser) duration(key string, fallback, bareUnit time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * bareUnit
	}
	p.fail(key, v, "duration")
	return fallback
}
