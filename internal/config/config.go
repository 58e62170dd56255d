package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicPolicy installs an anonymous read policy on the bucket at startup.
	// Needed for MinIO, which ignores per-object ACLs.
	PublicPolicy bool
}

// RedisConfig holds the optional Redis connection used for per-certificate locks.
// An empty URL selects the in-process lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
	LockWait     time.Duration
}

// CertificateConfig holds settings for issuing and locating certificates.
type CertificateConfig struct {
	// PublicBaseURL is the fixed root that artifact keys are appended to.
	PublicBaseURL string
	// TemplateDir overrides the embedded template when set.
	TemplateDir string
	Timezone    string
	// Offline marks local execution; only then is a debug copy written to DebugPath.
	Offline   bool
	DebugPath string
}

// RendererConfig holds headless Chrome settings.
type RendererConfig struct {
	ExecPath   string
	TimeoutSec int
	NoSandbox  bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Redis       RedisConfig
	Certificate CertificateConfig
	Renderer    RendererConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	cfg := &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:     getEnv("MINIO_ENDPOINT", ""),
			AccessKey:    getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:    getEnv("MINIO_SECRET_KEY", ""),
			Bucket:       getEnv("MINIO_BUCKET", "srvless-ignite-certificate"),
			UseSSL:       getEnvBool("MINIO_USE_SSL", false),
			PublicPolicy: getEnvBool("MINIO_PUBLIC_POLICY", true),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      getEnvDuration("LOCK_TTL", 2*time.Minute),
			LockWait:     getEnvDuration("LOCK_WAIT", 30*time.Second),
		},
		Certificate: CertificateConfig{
			PublicBaseURL: getEnv("CERT_PUBLIC_BASE_URL", ""),
			TemplateDir:   getEnv("CERT_TEMPLATE_DIR", ""),
			Timezone:      getEnv("APP_TIMEZONE", "UTC"),
			Offline:       getEnvBool("IS_OFFLINE", false),
			DebugPath:     getEnv("CERT_DEBUG_PATH", "certificate.pdf"),
		},
		Renderer: RendererConfig{
			ExecPath:   getEnv("CHROME_PATH", ""),
			TimeoutSec: getEnvInt("RENDER_TIMEOUT_SEC", defaultRenderTimeoutSec),
			NoSandbox:  getEnvBool("CHROME_NO_SANDBOX", false),
		},
	}
	if cfg.Certificate.PublicBaseURL == "" {
		cfg.Certificate.PublicBaseURL = DefaultPublicBaseURL(cfg.MinIO)
	}
	if cfg.Renderer.TimeoutSec <= 0 {
		cfg.Renderer.TimeoutSec = defaultRenderTimeoutSec
	}
	cfg.Redis.LockTTL = cfg.Redis.MinLockTTL(cfg.Renderer.Timeout())
	return cfg
}

const (
	defaultRenderTimeoutSec = 30
	// lockTTLMargin covers the record insert and the upload that follow a render.
	lockTTLMargin = 30 * time.Second
)

// Timeout is the bound on a single render. It is always positive.
func (c RendererConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return defaultRenderTimeoutSec * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// MinLockTTL returns LockTTL raised to at least render plus lockTTLMargin,
// so an issuance lock cannot expire while its render is still running.
func (c RedisConfig) MinLockTTL(render time.Duration) time.Duration {
	if floor := render + lockTTLMargin; c.LockTTL < floor {
		return floor
	}
	return c.LockTTL
}

// DefaultPublicBaseURL derives the path-style bucket URL for an S3-compatible endpoint.
func DefaultPublicBaseURL(c MinIOConfig) string {
	if c.Endpoint == "" {
		return ""
	}
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, strings.TrimSuffix(c.Endpoint, "/"), c.Bucket)
}

// Location resolves the configured timezone, falling back to UTC.
func (c CertificateConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
