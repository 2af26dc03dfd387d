package upload

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/common"
)

const (
	MB = 1 << 20

	DefaultMaxImageSize     = 10 * MB
	DefaultMaxVideoSize     = 100 * MB
	DefaultMaxVoiceSize     = 50 * MB
	DefaultMaxVideoDuration = 60 * time.Second
	DefaultMaxVoiceDuration = 60 * time.Second
)

// Policy holds the per-kind limits checked before a file is queued. The
// limits mirror what the backend enforces, so a rejected file never costs a
// round trip.
type Policy struct {
	MaxImageSize     int64
	MaxVideoSize     int64
	MaxVoiceSize     int64
	MaxVideoDuration time.Duration
	MaxVoiceDuration time.Duration
	Extensions       map[models.Kind][]string
}

// withDefaults fills every unset limit from DefaultPolicy and keeps the
// ones the caller chose.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxImageSize <= 0 {
		p.MaxImageSize = d.MaxImageSize
	}
	if p.MaxVideoSize <= 0 {
		p.MaxVideoSize = d.MaxVideoSize
	}
	if p.MaxVoiceSize <= 0 {
		p.MaxVoiceSize = d.MaxVoiceSize
	}
	if p.MaxVideoDuration <= 0 {
		p.MaxVideoDuration = d.MaxVideoDuration
	}
	if p.MaxVoiceDuration <= 0 {
		p.MaxVoiceDuration = d.MaxVoiceDuration
	}
	if p.Extensions == nil {
		p.Extensions = d.Extensions
	}
	return p
}

func DefaultPolicy() Policy {
	return Policy{
		MaxImageSize:     DefaultMaxImageSize,
		MaxVideoSize:     DefaultMaxVideoSize,
		MaxVoiceSize:     DefaultMaxVoiceSize,
		MaxVideoDuration: DefaultMaxVideoDuration,
		MaxVoiceDuration: DefaultMaxVoiceDuration,
		Extensions:       DefaultExtensions(),
	}
}

func DefaultExtensions() map[models.Kind][]string {
	return map[models.Kind][]string{
		models.KindImage: {".jpg", ".jpeg", ".png", ".gif", ".webp"},
		models.KindVideo: {".mp4", ".avi", ".mov", ".wmv", ".flv", ".webm"},
		models.KindVoice: {".mp3", ".wav", ".aac", ".ogg", ".m4a"},
	}
}

func (p Policy) maxSize(k models.Kind) int64 {
	switch k {
	case models.KindImage:
		return p.MaxImageSize
	case models.KindVideo:
		return p.MaxVideoSize
	case models.KindVoice:
		return p.MaxVoiceSize
	}
	return 0
}

func (p Policy) maxDuration(k models.Kind) time.Duration {
	switch k {
	case models.KindVideo:
		return p.MaxVideoDuration
	case models.KindVoice:
		return p.MaxVoiceDuration
	}
	return 0
}

// Validate checks f against the limits for kind. A zero duration means the
// source did not report one and is not checked.
func (p Policy) Validate(kind models.Kind, f models.LocalFile) *common.UploadError {
	if _, err := models.ParseKind(string(kind)); err != nil {
		return common.NewValidationError("unsupported media kind %q", kind)
	}
	if f.Kind != "" && f.Kind != kind {
		return common.NewValidationError("captured %s does not match requested %s", f.Kind, kind)
	}

	name := f.Name
	if name == "" {
		name = filepath.Base(f.Ref)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if allowed := p.Extensions[kind]; len(allowed) > 0 && !slices.Contains(allowed, ext) {
		return common.NewValidationError("unsupported %s format %q", kind, ext)
	}

	if f.Size <= 0 {
		return common.NewValidationError("file %s is empty", name)
	}
	if limit := p.maxSize(kind); limit > 0 && f.Size > limit {
		return common.NewValidationError("%s is %d bytes, limit for %s is %d", name, f.Size, kind, limit)
	}
	if limit := p.maxDuration(kind); limit > 0 && f.Duration > limit {
		return common.NewValidationError("%s lasts %s, limit for %s is %s", name, f.Duration, kind, limit)
	}
	return nil
}
