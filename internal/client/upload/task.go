package upload

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/common"
)

// Task is one local file on its way to the backend. All mutation goes through
// the manager; callers observe it through accessors, Subscribe and Done.
//
// Events of a task are delivered in order by a dedicated goroutine, so a
// subscriber may call back into the manager (Cancel included) without
// deadlocking. The terminal event is always the last one.
type Task struct {
	id      string
	file    models.LocalFile
	fields  map[string]string
	created time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    models.TaskState
	progress int
	seen     int
	attempt  int
	result   *models.Result
	err      *common.UploadError

	subs    []subscriber
	nextSub int
	queue   []models.Event
	wake    chan struct{}
	done    chan struct{}
	publish func(models.Event)
}

// TaskInfo is a point-in-time copy of a task.
type TaskInfo struct {
	ID       string
	Kind     models.Kind
	LocalRef string
	State    models.TaskState
	Progress int
	Attempt  int
	Result   *models.Result
	Err      *common.UploadError
}

func newTask(parent context.Context, id string, file models.LocalFile, fields map[string]string, publish func(models.Event)) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{
		id:      id,
		file:    file,
		fields:  fields,
		created: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
		state:   models.TaskPending,
		seen:    -1,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		publish: publish,
	}
	go t.pump()
	return t
}

func (t *Task) ID() string             { return t.id }
func (t *Task) Kind() models.Kind      { return t.file.Kind }
func (t *Task) LocalRef() string       { return t.file.Ref }
func (t *Task) File() models.LocalFile { return t.file }

func (t *Task) State() models.TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Progress is attempt-scoped: it restarts from 0 when a retry begins.
func (t *Task) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

func (t *Task) Attempt() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempt
}

// Result is non-nil only once the task has succeeded.
func (t *Task) Result() *models.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyResult(t.result)
}

// Err is non-nil only once the task has failed.
func (t *Task) Err() *common.UploadError {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) Info() TaskInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskInfo{
		ID:       t.id,
		Kind:     t.file.Kind,
		LocalRef: t.file.Ref,
		State:    t.state,
		Progress: t.progress,
		Attempt:  t.attempt,
		Result:   copyResult(t.result),
		Err:      t.err,
	}
}

// Done is closed after the terminal event has been delivered to every
// subscriber.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task is terminal or ctx is done and returns the
// final snapshot.
func (t *Task) Wait(ctx context.Context) (TaskInfo, error) {
	select {
	case <-t.done:
		return t.Info(), nil
	case <-ctx.Done():
		return t.Info(), ctx.Err()
	}
}

// Subscribe registers fn for this task's events and returns a function that
// removes it.
func (t *Task) Subscribe(fn func(models.Event)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.subs = append(t.subs, subscriber{id: id, fn: fn})
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.subs = removeSubscriber(t.subs, id)
	}
}

// begin moves a pending task in flight and returns the new attempt number.
func (t *Task) begin() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != models.TaskPending {
		return 0, false
	}
	t.state = models.TaskInFlight
	t.attempt++
	t.progress = 0
	t.seen = -1
	return t.attempt, true
}

// report records progress for attempt. Values from another attempt, from a
// task that is no longer in flight or that do not advance are dropped.
func (t *Task) report(attempt, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != models.TaskInFlight || t.attempt != attempt || percent <= t.seen {
		return
	}
	if percent > 100 {
		percent = 100
	}
	t.seen = percent
	t.progress = percent
	t.enqueueLocked(models.Event{Type: models.EventProgress, TaskID: t.id, Percent: percent})
}

// requeue returns an in-flight task to pending while it waits for a retry.
func (t *Task) requeue(attempt int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != models.TaskInFlight || t.attempt != attempt {
		return false
	}
	t.state = models.TaskPending
	return true
}

func (t *Task) succeedLocked(attempt int, res models.Result) bool {
	if t.state != models.TaskInFlight || t.attempt != attempt {
		return false
	}
	t.state = models.TaskSucceeded
	t.progress = 100
	t.result = &res
	t.enqueueLocked(models.Event{Type: models.EventCompleted, TaskID: t.id, Percent: 100, Result: copyResult(&res)})
	return true
}

// failLocked accepts attempt 0 for failures raised before any attempt began.
func (t *Task) failLocked(attempt int, ue *common.UploadError) bool {
	if t.state.Terminal() || t.attempt != attempt {
		return false
	}
	t.state = models.TaskFailed
	t.err = ue
	t.enqueueLocked(models.Event{Type: models.EventFailed, TaskID: t.id, Err: ue})
	return true
}

func (t *Task) cancelLocked() bool {
	if t.state.Terminal() {
		return false
	}
	t.state = models.TaskCancelled
	t.cancel()
	t.enqueueLocked(models.Event{Type: models.EventCancelled, TaskID: t.id})
	return true
}

func (t *Task) enqueueLocked(ev models.Event) {
	t.queue = append(t.queue, ev)
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Task) pump() {
	defer close(t.done)
	defer t.cancel()

	for range t.wake {
		t.mu.Lock()
		batch := t.queue
		t.queue = nil
		subs := append([]subscriber(nil), t.subs...)
		t.mu.Unlock()

		for _, ev := range batch {
			for _, s := range subs {
				s.fn(ev)
			}
			if t.publish != nil {
				t.publish(ev)
			}
			if ev.Type != models.EventProgress {
				return
			}
		}
	}
}

func copyResult(r *models.Result) *models.Result {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
