package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/common"
)

const maxEnvelopeSize = 4 << 20

// HTTPTransport talks to the memorial backend over HTTP with JSON envelopes.
type HTTPTransport struct {
	baseURL       string
	uploadPath    string
	http          *http.Client
	sendTimeout   time.Duration
	uploadTimeout time.Duration
}

// NewHTTPTransport builds a transport for baseURL. sendTimeout bounds plain
// requests; uploadTimeout bounds a single upload call. Zero disables a limit.
func NewHTTPTransport(baseURL string, sendTimeout, uploadTimeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL:       baseURL,
		uploadPath:    common.MediaUploadPath,
		http:          &http.Client{},
		sendTimeout:   sendTimeout,
		uploadTimeout: uploadTimeout,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func setAuth(h http.Header, token string) {
	if token != "" {
		h.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
}

func (c *HTTPTransport) Send(ctx context.Context, req Request) (models.Envelope, error) {
	ctx, cancel := withTimeout(ctx, c.sendTimeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return models.Envelope{}, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	hreq, err := http.NewRequestWithContext(ctx, method, endpoint(c.baseURL, req.Path, req.Query), body)
	if err != nil {
		return models.Envelope{}, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	setAuth(hreq.Header, req.Token)

	resp, err := c.http.Do(hreq)
	if err != nil {
		return models.Envelope{}, mapError(err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp)
}

// Upload streams the file as multipart/form-data through a pipe, so the body
// goes out with chunked transfer encoding and progress follows the bytes
// actually handed to the connection.
func (c *HTTPTransport) Upload(ctx context.Context, req UploadRequest, onProgress ProgressFunc) (models.Envelope, error) {
	ctx, cancel := withTimeout(ctx, c.uploadTimeout)
	defer cancel()

	f, err := os.Open(req.File.Ref)
	if err != nil {
		return models.Envelope{}, &common.UploadError{Kind: common.KindValidation, Message: "cannot open local file", Err: err}
	}

	size := req.File.Size
	if size <= 0 {
		if st, err := f.Stat(); err == nil {
			size = st.Size()
		}
	}

	pr, pw := io.Pipe()
	defer pr.Close()

	mw := multipart.NewWriter(pw)
	tracker := newProgressTracker(ctx, size, onProgress)

	go func() {
		defer f.Close()
		pw.CloseWithError(writeMultipart(mw, req, f, tracker))
	}()

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(c.baseURL, c.uploadPath, nil), pr)
	if err != nil {
		return models.Envelope{}, err
	}
	hreq.Header.Set("Content-Type", mw.FormDataContentType())
	hreq.Header.Set("Accept", "application/json")
	setAuth(hreq.Header, req.Token)

	resp, err := c.http.Do(hreq)
	if err != nil {
		return models.Envelope{}, mapError(err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp)
}

func writeMultipart(mw *multipart.Writer, req UploadRequest, f io.Reader, tracker *progressTracker) error {
	fields := map[string]string{"type": string(req.File.Kind)}
	for k, v := range req.Fields {
		if v != "" {
			fields[k] = v
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return err
		}
	}

	name := req.File.Name
	if name == "" {
		name = filepath.Base(req.File.Ref)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, &countingReader{r: f, tracker: tracker}); err != nil {
		return err
	}
	return mw.Close()
}

func decodeEnvelope(resp *http.Response) (models.Envelope, error) {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxEnvelopeSize))
		return models.Envelope{}, mapStatus(resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeSize))
	if err != nil {
		return models.Envelope{}, mapError(err)
	}

	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return models.Envelope{}, mapStatus(resp.StatusCode, resp.Status)
		}
		return models.Envelope{}, fmt.Errorf("%w: %w: %v", common.ErrServer, ErrMalformedResponse, err)
	}

	if resp.StatusCode >= http.StatusBadRequest && env.OK() {
		return models.Envelope{}, mapStatus(resp.StatusCode, resp.Status)
	}
	return env, nil
}
