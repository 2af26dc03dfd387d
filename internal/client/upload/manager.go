// Package upload turns captured local files into remote media objects.
//
// A Manager accepts captures, validates them against a Policy, queues one Task
// per file and runs at most MaxConcurrent tasks at a time in submission order.
// Network failures are retried with exponential backoff up to MaxAttempts;
// every other failure is terminal. Succeeded results are appended to the
// manager's file list in completion order.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/client"
	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/common"
	"github.com/dmitrijs2005/memoria/internal/logging"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultMaxCount      = 9
	DefaultMaxConcurrent = 1
	DefaultMaxAttempts   = 3
	DefaultRetryBackoff  = 500 * time.Millisecond
	maxRetryBackoff      = 30 * time.Second
)

var (
	ErrClosed          = errors.New("upload manager closed")
	ErrIndexOutOfRange = errors.New("file index out of range")
)

// TokenSource supplies the bearer token for uploads.
type TokenSource interface {
	CurrentToken(ctx context.Context) (string, bool)
}

type Config struct {
	// APIBase is prepended to relative URLs returned by the backend.
	APIBase       string
	MaxCount      int
	MaxConcurrent int
	MaxAttempts   int
	RetryBackoff  time.Duration
	Policy        Policy
}

func (c Config) withDefaults() Config {
	if c.MaxCount <= 0 {
		c.MaxCount = DefaultMaxCount
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	c.Policy = c.Policy.withDefaults()
	return c
}

type Manager struct {
	cfg      Config
	uploader client.Uploader
	session  TokenSource
	captures *CaptureRegistry
	log      logging.Logger
	events   notifier

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	reserved int
	running  int
	queue    []*Task
	tasks    map[string]*Task
	order    []string
	files    []models.Result
}

func NewManager(uploader client.Uploader, session TokenSource, captures *CaptureRegistry, cfg Config, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg.withDefaults(),
		uploader:   uploader,
		session:    session,
		captures:   captures,
		log:        log,
		baseCtx:    ctx,
		cancelBase: cancel,
		tasks:      make(map[string]*Task),
	}
}

// Subscribe registers fn for the events of every task and returns a function
// that removes it.
func (m *Manager) Subscribe(fn func(models.Event)) func() {
	return m.events.subscribe(fn)
}

// Capture obtains a file from the kind's capture provider, validates it and
// queues an upload. It returns as soon as the task is queued.
//
// Capacity is reserved before the provider runs, so concurrent captures can
// never push the file list plus active tasks past MaxCount.
func (m *Manager) Capture(ctx context.Context, kind models.Kind, opts models.SourceOptions) (*Task, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if used := len(m.files) + m.activeLocked() + m.reserved; used >= m.cfg.MaxCount {
		m.mu.Unlock()
		return nil, &common.UploadError{
			Kind:    common.KindValidation,
			Message: fmt.Sprintf("at most %d files can be attached", m.cfg.MaxCount),
			Err:     common.ErrLimitReached,
		}
	}
	m.reserved++
	m.mu.Unlock()

	file, fields, err := m.capture(ctx, kind, opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserved--
	if err != nil {
		return nil, err
	}
	if m.closed {
		return nil, ErrClosed
	}

	t := newTask(m.baseCtx, uuid.NewString(), file, fields, m.events.publish)

	m.tasks[t.id] = t
	m.order = append(m.order, t.id)
	m.queue = append(m.queue, t)
	m.dispatchLocked()

	m.log.Info(ctx, "upload queued", "task_id", t.id, "kind", kind, "size", t.file.Size)
	return t, nil
}

// capture runs the provider and validation. It does not create the task, so
// nothing is left running when the manager closes meanwhile.
func (m *Manager) capture(ctx context.Context, kind models.Kind, opts models.SourceOptions) (models.LocalFile, map[string]string, error) {
	if m.captures == nil {
		return models.LocalFile{}, nil, common.NewValidationError("no capture source for %s", kind)
	}
	provider, ok := m.captures.Provider(kind)
	if !ok {
		return models.LocalFile{}, nil, common.NewValidationError("no capture source for %s", kind)
	}

	file, err := provider.Capture(ctx, kind, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.LocalFile{}, nil, err
		}
		var ue *common.UploadError
		if errors.As(err, &ue) {
			return models.LocalFile{}, nil, ue
		}
		return models.LocalFile{}, nil, &common.UploadError{Kind: common.KindValidation, Message: "capture failed", Err: err}
	}
	if file.Kind == "" {
		file.Kind = kind
	}

	if ue := m.cfg.Policy.Validate(kind, file); ue != nil {
		m.log.Info(ctx, "capture rejected", "kind", kind, "file", file.Name, "reason", ue.Message)
		return models.LocalFile{}, nil, ue
	}

	fields := map[string]string{}
	if opts.MemorialID != "" {
		fields["memorial_id"] = opts.MemorialID
	}
	if opts.Description != "" {
		fields["description"] = opts.Description
	}

	return file, fields, nil
}

// Cancel stops a task that has not reached a terminal state. It reports
// whether a transition happened.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return false
	}
	return m.cancelLocked(t)
}

func (m *Manager) cancelLocked(t *Task) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.cancelLocked() {
		return false
	}
	m.log.Info(t.ctx, "upload cancelled", "task_id", t.id, "attempt", t.attempt)
	return true
}

// List returns a copy of the uploaded files in completion order.
func (m *Manager) List() []models.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Result, len(m.files))
	copy(out, m.files)
	return out
}

// Remove drops the file at index from the list. The remote object is left
// untouched.
func (m *Manager) Remove(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.files) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	m.files = append(m.files[:index], m.files[index+1:]...)
	return nil
}

func (m *Manager) Task(id string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// Tasks returns snapshots of the active set in submission order.
func (m *Manager) Tasks() []TaskInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TaskInfo, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id].Info())
	}
	return out
}

// Ack drops a terminal task from the active set.
func (m *Manager) Ack(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || !t.State().Terminal() {
		return false
	}
	m.dropLocked(id)
	return true
}

// Clear empties the file list and forgets terminal tasks. Running tasks are
// kept.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = nil
	for _, id := range append([]string(nil), m.order...) {
		if m.tasks[id].State().Terminal() {
			m.dropLocked(id)
		}
	}
}

// Close cancels every unfinished task and waits for the workers to exit.
// It waits for terminal events to be delivered, so it must not be called from
// an event handler.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for _, t := range m.tasks {
		m.cancelLocked(t)
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.cancelBase()
	return nil
}

func (m *Manager) dropLocked(id string) {
	delete(m.tasks, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Manager) activeLocked() int {
	n := 0
	for _, t := range m.tasks {
		if !t.State().Terminal() {
			n++
		}
	}
	return n
}

// dispatchLocked starts queued tasks in FIFO order while slots are free.
// Tasks cancelled while queued are skipped.
func (m *Manager) dispatchLocked() {
	for m.running < m.cfg.MaxConcurrent && len(m.queue) > 0 {
		t := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		if t.State().Terminal() {
			continue
		}
		m.running++
		m.wg.Add(1)
		go m.run(t)
	}
}

func (m *Manager) run(t *Task) {
	defer m.wg.Done()
	defer func() {
		// The slot is freed only after the terminal event has been delivered,
		// so the next task's events always follow this one's.
		<-t.done
		m.mu.Lock()
		m.running--
		m.dispatchLocked()
		m.mu.Unlock()
	}()

	ctx := t.ctx
	log := m.log.With("task_id", t.id, "kind", t.file.Kind)

	var (
		attempt int
		result  models.Result
	)

	backoff := retry.NewExponential(m.cfg.RetryBackoff)
	backoff = retry.WithCappedDuration(maxRetryBackoff, backoff)
	backoff = retry.WithMaxRetries(uint64(m.cfg.MaxAttempts-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		a, ok := t.begin()
		if !ok {
			return context.Canceled
		}
		attempt = a

		token, ok := m.session.CurrentToken(ctx)
		if !ok {
			return &common.UploadError{Kind: common.KindAuthRequired, Message: "sign in to upload files", Err: common.ErrAuthRequired}
		}

		log.Debug(ctx, "upload attempt started", "attempt", a)
		env, err := m.uploader.Upload(ctx, client.UploadRequest{
			File:   t.file,
			Fields: t.fields,
			Token:  token,
		}, func(p int) { t.report(a, p) })

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			ue := common.Classify(err)
			if ue.Retryable() && a < m.cfg.MaxAttempts {
				log.Warn(ctx, "upload attempt failed, retrying", "attempt", a, "error", err)
				t.requeue(a)
				return retry.RetryableError(ue)
			}
			return ue
		}

		res, ue := m.resultFrom(env, t)
		if ue != nil {
			return ue
		}
		result = res
		return nil
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case err == nil:
		if t.succeedLocked(attempt, result) {
			m.files = append(m.files, result)
			log.Info(ctx, "upload completed", "attempt", attempt, "url", result.URL)
		}
	case errors.Is(err, context.Canceled):
		// Normally a no-op: Cancel already moved the task to its terminal state.
		t.cancelLocked()
	default:
		ue := common.Classify(err)
		if t.failLocked(attempt, ue) {
			log.Error(ctx, "upload failed", "attempt", attempt, "error_kind", ue.Kind, "error", ue.Error())
		}
	}
}

// resultFrom interprets a decoded envelope. A non-zero code is a terminal
// server rejection carrying the backend's message.
func (m *Manager) resultFrom(env models.Envelope, t *Task) (models.Result, *common.UploadError) {
	if !env.OK() {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("upload rejected with code %d", env.Code)
		}
		return models.Result{}, &common.UploadError{Kind: common.KindServer, Message: msg, Err: common.ErrServer}
	}

	var mf models.MediaFile
	if err := env.DecodeData(&mf); err != nil {
		return models.Result{}, &common.UploadError{Kind: common.KindServer, Message: "malformed upload response", Err: err}
	}
	loc := mf.Location()
	if loc == "" {
		return models.Result{}, &common.UploadError{Kind: common.KindServer, Message: "upload response has no url", Err: common.ErrServer}
	}

	name := mf.FileName
	if name == "" {
		name = t.file.Name
	}
	size := mf.FileSize
	if size == 0 {
		size = t.file.Size
	}

	return models.Result{
		ID:       mf.ID,
		URL:      client.AbsoluteURL(m.cfg.APIBase, loc),
		Kind:     t.file.Kind,
		LocalRef: t.file.Ref,
		FileName: name,
		Size:     size,
	}, nil
}
