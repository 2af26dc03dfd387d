package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/common"
)

// CaptureProvider obtains a local file for a kind: a camera, a recorder or a
// file picker. The returned file stays owned by the provider's caller.
type CaptureProvider interface {
	Capture(ctx context.Context, kind models.Kind, opts models.SourceOptions) (models.LocalFile, error)
}

type CaptureFunc func(ctx context.Context, kind models.Kind, opts models.SourceOptions) (models.LocalFile, error)

func (f CaptureFunc) Capture(ctx context.Context, kind models.Kind, opts models.SourceOptions) (models.LocalFile, error) {
	return f(ctx, kind, opts)
}

// CaptureRegistry maps each media kind to its provider.
type CaptureRegistry struct {
	mu        sync.RWMutex
	providers map[models.Kind]CaptureProvider
}

func NewCaptureRegistry() *CaptureRegistry {
	return &CaptureRegistry{providers: make(map[models.Kind]CaptureProvider)}
}

// NewFileCaptureRegistry registers FileCapture for every kind.
func NewFileCaptureRegistry() *CaptureRegistry {
	r := NewCaptureRegistry()
	fc := FileCapture{}
	for _, k := range []models.Kind{models.KindImage, models.KindVideo, models.KindVoice} {
		r.Register(k, fc)
	}
	return r
}

func (r *CaptureRegistry) Register(kind models.Kind, p CaptureProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[kind] = p
}

func (r *CaptureRegistry) Provider(kind models.Kind) (CaptureProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[kind]
	return p, ok
}

// FileCapture picks an existing file from the local filesystem. It does not
// parse media containers; the duration comes from SourceOptions.
type FileCapture struct{}

func (FileCapture) Capture(ctx context.Context, kind models.Kind, opts models.SourceOptions) (models.LocalFile, error) {
	if err := ctx.Err(); err != nil {
		return models.LocalFile{}, err
	}
	if opts.Path == "" {
		return models.LocalFile{}, common.NewValidationError("no file selected")
	}

	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return models.LocalFile{}, fmt.Errorf("resolve %s: %w", opts.Path, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return models.LocalFile{}, &common.UploadError{Kind: common.KindValidation, Message: "cannot read " + opts.Path, Err: err}
	}
	if st.IsDir() {
		return models.LocalFile{}, common.NewValidationError("%s is a directory", opts.Path)
	}

	return models.LocalFile{
		Ref:      abs,
		Name:     st.Name(),
		Kind:     kind,
		Size:     st.Size(),
		Duration: opts.Duration,
	}, nil
}
