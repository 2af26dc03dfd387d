package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is a DTO used exclusively for file unmarshalling. Durations are
// strings so files can say "500ms" or "1h". Zero values are not applied.
type fileConfig struct {
	APIBase  string `json:"api_base" yaml:"api_base"`
	DBPath   string `json:"db_path" yaml:"db_path"`
	LogLevel string `json:"log_level" yaml:"log_level"`

	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`

	UploadBackend   string `json:"upload_backend" yaml:"upload_backend"`
	S3Region        string `json:"s3_region" yaml:"s3_region"`
	S3Endpoint      string `json:"s3_endpoint" yaml:"s3_endpoint"`
	S3Bucket        string `json:"s3_bucket" yaml:"s3_bucket"`
	S3AccessKey     string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey     string `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3PublicBaseURL string `json:"s3_public_base_url" yaml:"s3_public_base_url"`

	MaxCount             int    `json:"max_count" yaml:"max_count"`
	MaxConcurrentUploads int    `json:"max_concurrent_uploads" yaml:"max_concurrent_uploads"`
	MaxAttempts          int    `json:"max_attempts" yaml:"max_attempts"`
	RetryBackoff         string `json:"retry_backoff" yaml:"retry_backoff"`

	MaxImageSize     int64  `json:"max_image_size" yaml:"max_image_size"`
	MaxVideoSize     int64  `json:"max_video_size" yaml:"max_video_size"`
	MaxVoiceSize     int64  `json:"max_voice_size" yaml:"max_voice_size"`
	MaxVideoDuration string `json:"max_video_duration" yaml:"max_video_duration"`
	MaxVoiceDuration string `json:"max_voice_duration" yaml:"max_voice_duration"`

	CacheTTL       string `json:"cache_ttl" yaml:"cache_ttl"`
	SweepInterval  string `json:"sweep_interval" yaml:"sweep_interval"`
	RequestTimeout string `json:"request_timeout" yaml:"request_timeout"`
	UploadTimeout  string `json:"upload_timeout" yaml:"upload_timeout"`
}

// LoadFile overlays c with the values found in a JSON (.json) or YAML
// (.yaml, .yml) file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return c.apply(fc)
}

func (c *Config) apply(fc fileConfig) error {
	setString(&c.APIBase, fc.APIBase)
	setString(&c.DBPath, fc.DBPath)
	setString(&c.LogLevel, fc.LogLevel)

	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.RedisPassword, fc.RedisPassword)
	if fc.RedisDB != 0 {
		c.RedisDB = fc.RedisDB
	}

	setString(&c.UploadBackend, fc.UploadBackend)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3Endpoint, fc.S3Endpoint)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3AccessKey, fc.S3AccessKey)
	setString(&c.S3SecretKey, fc.S3SecretKey)
	setString(&c.S3PublicBaseURL, fc.S3PublicBaseURL)

	setInt(&c.MaxCount, fc.MaxCount)
	setInt(&c.MaxConcurrentUploads, fc.MaxConcurrentUploads)
	setInt(&c.MaxAttempts, fc.MaxAttempts)
	if fc.MaxImageSize != 0 {
		c.MaxImageSize = fc.MaxImageSize
	}
	if fc.MaxVideoSize != 0 {
		c.MaxVideoSize = fc.MaxVideoSize
	}
	if fc.MaxVoiceSize != 0 {
		c.MaxVoiceSize = fc.MaxVoiceSize
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"retry_backoff", fc.RetryBackoff, &c.RetryBackoff},
		{"max_video_duration", fc.MaxVideoDuration, &c.MaxVideoDuration},
		{"max_voice_duration", fc.MaxVoiceDuration, &c.MaxVoiceDuration},
		{"cache_ttl", fc.CacheTTL, &c.CacheTTL},
		{"sweep_interval", fc.SweepInterval, &c.SweepInterval},
		{"request_timeout", fc.RequestTimeout, &c.RequestTimeout},
		{"upload_timeout", fc.UploadTimeout, &c.UploadTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
