// Package models defines the client-side data models shared by the upload,
// transport and cache packages.
package models

import (
	"fmt"
	"time"
)

// Kind classifies a captured media file.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindVoice Kind = "voice"
)

// ParseKind validates a user-supplied kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindImage, KindVideo, KindVoice:
		return k, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// SourceOptions are passed through to the capture provider.
type SourceOptions struct {
	// Path selects an existing local file (album/filesystem source).
	Path string
	// Duration is the media length reported by the capture source for
	// video and voice recordings.
	Duration time.Duration
	// MemorialID and Description are forwarded to the backend as form fields.
	MemorialID  string
	Description string
}

// LocalFile is a captured file waiting to be uploaded. The file itself is
// owned by the caller; tasks only borrow the reference.
type LocalFile struct {
	Ref      string
	Name     string
	Kind     Kind
	Size     int64
	Duration time.Duration
}

// Result describes a successfully uploaded file.
type Result struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url"`
	Kind     Kind   `json:"kind"`
	LocalRef string `json:"local_ref,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Size     int64  `json:"file_size,omitempty"`
}
