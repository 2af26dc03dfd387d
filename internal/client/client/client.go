package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/memoria/internal/client/models"
)

// Request is a single JSON API call. Token, when set, is sent as a bearer
// credential; the caller obtains it from the session.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
	Token  string
}

// UploadRequest describes one multipart upload of a local file.
type UploadRequest struct {
	File   models.LocalFile
	Fields map[string]string
	Token  string
}

// ProgressFunc receives non-decreasing percentages (0-100) for one call.
type ProgressFunc func(percent int)

// Sender issues a single request and returns the decoded envelope.
type Sender interface {
	Send(ctx context.Context, req Request) (models.Envelope, error)
}

// Uploader sends one local file. Implementations emit zero or more progress
// callbacks before returning, and none once ctx is cancelled.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest, onProgress ProgressFunc) (models.Envelope, error)
}

// Transport is the raw request primitive used by the upload and cache layers.
// It has no retry logic of its own.
type Transport interface {
	Sender
	Uploader
}
