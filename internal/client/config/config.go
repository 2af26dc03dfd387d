package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	BackendAPI = "api"
	BackendS3  = "s3"

	EnvPrefix = "MEMORIA_"
)

// Config holds runtime settings for the Memoria CLI.
//
// Size limits are in bytes. A zero SweepInterval disables the background
// cache sweeper; a zero UploadTimeout leaves uploads unbounded.
type Config struct {
	APIBase  string `env:"API_BASE, overwrite"`
	DBPath   string `env:"DB_PATH, overwrite"`
	LogLevel string `env:"LOG_LEVEL, overwrite"`

	RedisAddr     string `env:"REDIS_ADDR, overwrite"`
	RedisPassword string `env:"REDIS_PASSWORD, overwrite"`
	RedisDB       int    `env:"REDIS_DB, overwrite"`

	UploadBackend   string `env:"UPLOAD_BACKEND, overwrite"`
	S3Region        string `env:"S3_REGION, overwrite"`
	S3Endpoint      string `env:"S3_ENDPOINT, overwrite"`
	S3Bucket        string `env:"S3_BUCKET, overwrite"`
	S3AccessKey     string `env:"S3_ACCESS_KEY, overwrite"`
	S3SecretKey     string `env:"S3_SECRET_KEY, overwrite"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL, overwrite"`

	MaxCount             int           `env:"MAX_COUNT, overwrite"`
	MaxConcurrentUploads int           `env:"MAX_CONCURRENT_UPLOADS, overwrite"`
	MaxAttempts          int           `env:"MAX_ATTEMPTS, overwrite"`
	RetryBackoff         time.Duration `env:"RETRY_BACKOFF, overwrite"`

	MaxImageSize     int64         `env:"MAX_IMAGE_SIZE, overwrite"`
	MaxVideoSize     int64         `env:"MAX_VIDEO_SIZE, overwrite"`
	MaxVoiceSize     int64         `env:"MAX_VOICE_SIZE, overwrite"`
	MaxVideoDuration time.Duration `env:"MAX_VIDEO_DURATION, overwrite"`
	MaxVoiceDuration time.Duration `env:"MAX_VOICE_DURATION, overwrite"`

	CacheTTL       time.Duration `env:"CACHE_TTL, overwrite"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL, overwrite"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT, overwrite"`
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT, overwrite"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBase = "http://localhost:8080"
	c.DBPath = filepath.Join("data", "memoria.db")
	c.LogLevel = "info"

	c.UploadBackend = BackendAPI
	c.S3Region = "us-east-1"

	c.MaxCount = 9
	c.MaxConcurrentUploads = 1
	c.MaxAttempts = 3
	c.RetryBackoff = 500 * time.Millisecond

	c.MaxImageSize = 10 << 20
	c.MaxVideoSize = 100 << 20
	c.MaxVoiceSize = 50 << 20
	c.MaxVideoDuration = 60 * time.Second
	c.MaxVoiceDuration = 60 * time.Second

	c.CacheTTL = time.Hour
	c.SweepInterval = 5 * time.Minute
	c.RequestTimeout = 30 * time.Second
	c.UploadTimeout = 10 * time.Minute
}

// LoadEnv overlays c with MEMORIA_-prefixed variables found through l.
// Unset variables leave the current values in place.
func (c *Config) LoadEnv(ctx context.Context, l envconfig.Lookuper) error {
	if l == nil {
		l = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   c,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// Load builds a Config from defaults, the optional file at path and the
// process environment, then validates it. Flags are applied by the caller.
func Load(ctx context.Context, path string, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(ctx, l); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.APIBase)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api base %q must be an absolute http(s) URL", c.APIBase))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}

	positive := []struct {
		name string
		v    int64
	}{
		{"max count", int64(c.MaxCount)},
		{"max concurrent uploads", int64(c.MaxConcurrentUploads)},
		{"max attempts", int64(c.MaxAttempts)},
		{"retry backoff", int64(c.RetryBackoff)},
		{"max image size", c.MaxImageSize},
		{"max video size", c.MaxVideoSize},
		{"max voice size", c.MaxVoiceSize},
		{"max video duration", int64(c.MaxVideoDuration)},
		{"max voice duration", int64(c.MaxVoiceDuration)},
		{"cache ttl", int64(c.CacheTTL)},
		{"request timeout", int64(c.RequestTimeout)},
	}
	for _, p := range positive {
		if p.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("sweep interval must not be negative"))
	}
	if c.UploadTimeout < 0 {
		errs = append(errs, errors.New("upload timeout must not be negative"))
	}

	switch c.UploadBackend {
	case BackendAPI:
	case BackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 bucket is required for the s3 upload backend"))
		}
		if c.S3PublicBaseURL == "" {
			errs = append(errs, errors.New("s3 public base url is required for the s3 upload backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown upload backend %q", c.UploadBackend))
	}

	return errors.Join(errs...)
}
