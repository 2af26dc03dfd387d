package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/client"
	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/common"
	"github.com/dmitrijs2005/memoria/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIBase = "https://api.example.com"

type uploadFunc func(ctx context.Context, call int, req client.UploadRequest, progress client.ProgressFunc) (models.Envelope, error)

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	reqs  []client.UploadRequest
	fn    uploadFunc
}

func (f *fakeUploader) Upload(ctx context.Context, req client.UploadRequest, progress client.ProgressFunc) (models.Envelope, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(ctx, call, req, progress)
}

func (f *fakeUploader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type staticSession struct {
	token string
}

func (s staticSession) CurrentToken(context.Context) (string, bool) {
	return s.token, s.token != ""
}

type eventLog struct {
	mu     sync.Mutex
	events []models.Event
}

func (l *eventLog) add(ev models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) forTask(id string) []models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Event
	for _, ev := range l.events {
		if ev.TaskID == id {
			out = append(out, ev)
		}
	}
	return out
}

// indexOf returns the position of the first event of typ for the task in
// delivery order, or -1.
func (l *eventLog) indexOf(id string, typ models.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, ev := range l.events {
		if ev.TaskID == id && ev.Type == typ {
			return i
		}
	}
	return -1
}

func types(evs []models.Event) []models.EventType {
	out := make([]models.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func envelopeWithURL(url string) models.Envelope {
	data, _ := json.Marshal(models.MediaFile{ID: "m-" + url, URL: url, FileName: "a.png", FileSize: 100})
	return models.Envelope{Code: 0, Message: "ok", Data: data}
}

func succeed(url string) uploadFunc {
	return func(ctx context.Context, _ int, _ client.UploadRequest, progress client.ProgressFunc) (models.Envelope, error) {
		progress(0)
		progress(50)
		progress(100)
		return envelopeWithURL(url), nil
	}
}

func testCaptures() *CaptureRegistry {
	r := NewCaptureRegistry()
	provider := CaptureFunc(func(_ context.Context, kind models.Kind, opts models.SourceOptions) (models.LocalFile, error) {
		name := opts.Path
		if name == "" {
			name = map[models.Kind]string{
				models.KindImage: "a.png",
				models.KindVideo: "clip.mp4",
				models.KindVoice: "note.m4a",
			}[kind]
		}
		return models.LocalFile{Ref: "/local/" + name, Name: name, Kind: kind, Size: 100, Duration: opts.Duration}, nil
	})
	for _, k := range []models.Kind{models.KindImage, models.KindVideo, models.KindVoice} {
		r.Register(k, provider)
	}
	return r
}

func newTestManager(t *testing.T, up *fakeUploader, cfg Config) (*Manager, *eventLog) {
	t.Helper()
	if cfg.APIBase == "" {
		cfg.APIBase = testAPIBase
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Millisecond
	}
	m := NewManager(up, staticSession{token: "tok"}, testCaptures(), cfg, logging.Nop())
	log := &eventLog{}
	m.Subscribe(log.add)
	t.Cleanup(func() { _ = m.Close() })
	return m, log
}

func waitTask(t *testing.T, task *Task) TaskInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, err := task.Wait(ctx)
	require.NoError(t, err, "task %s did not finish", task.ID())
	return info
}

func TestManager_UploadSucceedsWithAbsoluteURL(t *testing.T) {
	up := &fakeUploader{fn: succeed("/files/a.png")}
	m, log := newTestManager(t, up, Config{})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{MemorialID: "42"})
	require.NoError(t, err)

	info := waitTask(t, task)
	require.Equal(t, models.TaskSucceeded, info.State)
	require.NotNil(t, info.Result)
	assert.Equal(t, testAPIBase+"/files/a.png", info.Result.URL)
	assert.Equal(t, models.KindImage, info.Result.Kind)
	assert.Equal(t, 1, info.Attempt)
	assert.Equal(t, 100, info.Progress)

	assert.Equal(t, []models.Result{*info.Result}, m.List())
	assert.Equal(t, "tok", up.reqs[0].Token)
	assert.Equal(t, "42", up.reqs[0].Fields["memorial_id"])

	evs := log.forTask(task.ID())
	assert.Equal(t, []models.EventType{models.EventProgress, models.EventProgress, models.EventProgress, models.EventCompleted}, types(evs))
	assert.Equal(t, []int{0, 50, 100}, []int{evs[0].Percent, evs[1].Percent, evs[2].Percent})
}

func TestManager_AbsoluteURLIsKept(t *testing.T) {
	up := &fakeUploader{fn: succeed("https://cdn.example.com/a.png")}
	m, _ := newTestManager(t, up, Config{})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	info := waitTask(t, task)
	assert.Equal(t, "https://cdn.example.com/a.png", info.Result.URL)
}

func TestManager_VideoTooLongIsRejectedBeforeTransport(t *testing.T) {
	up := &fakeUploader{fn: succeed("/x")}
	m, _ := newTestManager(t, up, Config{})

	task, err := m.Capture(context.Background(), models.KindVideo, models.SourceOptions{Duration: 61 * time.Second})
	require.Error(t, err)
	assert.Nil(t, task)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Equal(t, 0, up.Calls())
	assert.Empty(t, m.Tasks())

	// A rejected capture does not hold on to capacity.
	for i := 0; i < DefaultMaxCount; i++ {
		_, err := m.Capture(context.Background(), models.KindVideo, models.SourceOptions{Duration: 10 * time.Second})
		require.NoError(t, err)
	}
}

func TestManager_UnsupportedExtensionIsRejected(t *testing.T) {
	up := &fakeUploader{fn: succeed("/x")}
	m, _ := newTestManager(t, up, Config{})

	_, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{Path: "doc.pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Equal(t, 0, up.Calls())
}

func TestManager_CapacityUnderConcurrentCaptures(t *testing.T) {
	release := make(chan struct{})
	up := &fakeUploader{fn: func(ctx context.Context, call int, _ client.UploadRequest, _ client.ProgressFunc) (models.Envelope, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return models.Envelope{}, ctx.Err()
		}
		return envelopeWithURL(fmt.Sprintf("/files/%d.png", call)), nil
	}}
	m, _ := newTestManager(t, up, Config{MaxCount: 3, MaxConcurrent: 3})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []*Task
		limited  int
	)
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.True(t, errors.Is(err, common.ErrLimitReached))
				assert.True(t, errors.Is(err, common.ErrValidation))
				limited++
				return
			}
			accepted = append(accepted, task)
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, accepted, 3)
	assert.Equal(t, 17, limited)

	close(release)
	for _, task := range accepted {
		assert.Equal(t, models.TaskSucceeded, waitTask(t, task).State)
	}
	assert.Len(t, m.List(), 3)

	_, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	assert.True(t, errors.Is(err, common.ErrLimitReached))

	require.NoError(t, m.Remove(0))
	_, err = m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	assert.NoError(t, err)
}

func TestManager_CancelSuppressesLaterEvents(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	up := &fakeUploader{fn: func(ctx context.Context, _ int, _ client.UploadRequest, progress client.ProgressFunc) (models.Envelope, error) {
		progress(10)
		close(started)
		<-release
		// A misbehaving transport keeps reporting after cancellation.
		progress(80)
		return envelopeWithURL("/files/late.png"), nil
	}}
	m, log := newTestManager(t, up, Config{})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)

	<-started
	require.Eventually(t, func() bool { return len(log.forTask(task.ID())) == 1 }, time.Second, time.Millisecond)

	assert.True(t, m.Cancel(task.ID()))
	assert.False(t, m.Cancel(task.ID()))
	close(release)

	info := waitTask(t, task)
	require.NoError(t, m.Close())

	assert.Equal(t, models.TaskCancelled, info.State)
	assert.Equal(t, models.TaskCancelled, task.State())
	assert.Nil(t, task.Result())
	assert.Nil(t, task.Err())
	assert.Empty(t, m.List())
	assert.Equal(t, []models.EventType{models.EventProgress, models.EventCancelled}, types(log.forTask(task.ID())))
}

func TestManager_CancelQueuedTaskNeverStarts(t *testing.T) {
	release := make(chan struct{})
	up := &fakeUploader{fn: func(ctx context.Context, call int, _ client.UploadRequest, _ client.ProgressFunc) (models.Envelope, error) {
		<-release
		return envelopeWithURL("/files/a.png"), nil
	}}
	m, _ := newTestManager(t, up, Config{})

	first, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	second, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)

	assert.True(t, m.Cancel(second.ID()))
	close(release)

	assert.Equal(t, models.TaskSucceeded, waitTask(t, first).State)
	info := waitTask(t, second)
	assert.Equal(t, models.TaskCancelled, info.State)
	assert.Equal(t, 0, info.Attempt)
	assert.Equal(t, 1, up.Calls())
}

func TestManager_RetriesExactlyMaxAttempts(t *testing.T) {
	up := &fakeUploader{fn: func(context.Context, int, client.UploadRequest, client.ProgressFunc) (models.Envelope, error) {
		return models.Envelope{}, fmt.Errorf("%w: connection reset", common.ErrNetwork)
	}}
	m, log := newTestManager(t, up, Config{MaxAttempts: 3})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)

	info := waitTask(t, task)
	assert.Equal(t, models.TaskFailed, info.State)
	require.NotNil(t, info.Err)
	assert.Equal(t, common.KindNetwork, info.Err.Kind)
	assert.Equal(t, 3, info.Attempt)
	assert.Equal(t, 3, up.Calls())

	// Intermediate failures are not reported.
	assert.Equal(t, []models.EventType{models.EventFailed}, types(log.forTask(task.ID())))
	assert.Empty(t, m.List())
}

func TestManager_RetryThenSucceed(t *testing.T) {
	up := &fakeUploader{fn: func(ctx context.Context, call int, req client.UploadRequest, progress client.ProgressFunc) (models.Envelope, error) {
		if call == 1 {
			progress(40)
			return models.Envelope{}, common.ErrNetwork
		}
		return succeed("/files/ok.png")(ctx, call, req, progress)
	}}
	m, log := newTestManager(t, up, Config{MaxAttempts: 3})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)

	info := waitTask(t, task)
	assert.Equal(t, models.TaskSucceeded, info.State)
	assert.Equal(t, 2, info.Attempt)

	percents := []int{}
	for _, ev := range log.forTask(task.ID()) {
		if ev.Type == models.EventProgress {
			percents = append(percents, ev.Percent)
		}
	}
	// Progress restarts with the second attempt.
	assert.Equal(t, []int{40, 0, 50, 100}, percents)
}

func TestManager_ServerRejectionIsNotRetried(t *testing.T) {
	up := &fakeUploader{fn: func(context.Context, int, client.UploadRequest, client.ProgressFunc) (models.Envelope, error) {
		return models.Envelope{Code: 413, Message: "file too large"}, nil
	}}
	m, _ := newTestManager(t, up, Config{MaxAttempts: 5})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)

	info := waitTask(t, task)
	assert.Equal(t, models.TaskFailed, info.State)
	assert.Equal(t, common.KindServer, info.Err.Kind)
	assert.Equal(t, "file too large", info.Err.Message)
	assert.Equal(t, 1, up.Calls())
}

func TestManager_MalformedSuccessIsServerError(t *testing.T) {
	up := &fakeUploader{fn: func(context.Context, int, client.UploadRequest, client.ProgressFunc) (models.Envelope, error) {
		return models.Envelope{Code: 0, Data: json.RawMessage(`{"id":"x"}`)}, nil
	}}
	m, _ := newTestManager(t, up, Config{})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	info := waitTask(t, task)
	assert.Equal(t, common.KindServer, info.Err.Kind)
}

func TestManager_AuthRequiredMakesNoTransportCall(t *testing.T) {
	up := &fakeUploader{fn: succeed("/x")}
	m := NewManager(up, staticSession{}, testCaptures(), Config{APIBase: testAPIBase}, nil)
	defer m.Close()

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)

	info := waitTask(t, task)
	assert.Equal(t, models.TaskFailed, info.State)
	assert.Equal(t, common.KindAuthRequired, info.Err.Kind)
	assert.True(t, errors.Is(info.Err, common.ErrAuthRequired))
	assert.Equal(t, 0, up.Calls())
}

func TestManager_SequentialByDefault(t *testing.T) {
	release := make(chan struct{})
	up := &fakeUploader{fn: func(ctx context.Context, call int, req client.UploadRequest, progress client.ProgressFunc) (models.Envelope, error) {
		progress(10)
		if call == 1 {
			<-release
		}
		return envelopeWithURL(fmt.Sprintf("/files/%d.png", call)), nil
	}}
	m, log := newTestManager(t, up, Config{})

	first, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	second, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return first.State() == models.TaskInFlight }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, models.TaskPending, second.State())
	assert.Equal(t, 1, up.Calls())

	close(release)
	waitTask(t, first)
	waitTask(t, second)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, testAPIBase+"/files/1.png", list[0].URL)
	assert.Equal(t, testAPIBase+"/files/2.png", list[1].URL)

	firstDone := log.indexOf(first.ID(), models.EventCompleted)
	secondStart := log.indexOf(second.ID(), models.EventProgress)
	require.NotEqual(t, -1, firstDone)
	require.NotEqual(t, -1, secondStart)
	assert.Less(t, firstDone, secondStart, "second upload reported progress before the first completed")
}

func TestManager_CloseDuringCaptureLeavesNothingRunning(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	reg := NewCaptureRegistry()
	reg.Register(models.KindImage, CaptureFunc(func(context.Context, models.Kind, models.SourceOptions) (models.LocalFile, error) {
		close(entered)
		<-release
		return models.LocalFile{Ref: "/local/a.png", Name: "a.png", Kind: models.KindImage, Size: 100}, nil
	}))
	up := &fakeUploader{fn: succeed("/x")}
	m := NewManager(up, staticSession{token: "tok"}, reg, Config{}, nil)

	before := runtime.NumGoroutine()

	type captured struct {
		task *Task
		err  error
	}
	res := make(chan captured, 1)
	go func() {
		task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
		res <- captured{task, err}
	}()

	<-entered
	require.NoError(t, m.Close())
	close(release)

	got := <-res
	assert.ErrorIs(t, got.err, ErrClosed)
	assert.Nil(t, got.task)
	assert.Empty(t, m.Tasks())
	assert.Equal(t, 0, up.Calls())
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before }, time.Second, 5*time.Millisecond)
}

func TestManager_CallerPolicyLimitsAreKept(t *testing.T) {
	up := &fakeUploader{fn: succeed("/files/clip.mp4")}
	m, _ := newTestManager(t, up, Config{Policy: Policy{MaxVideoDuration: 10 * time.Second}})

	_, err := m.Capture(context.Background(), models.KindVideo, models.SourceOptions{Duration: 30 * time.Second})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Equal(t, 0, up.Calls())

	// Unset fields still get their defaults.
	task, err := m.Capture(context.Background(), models.KindVideo, models.SourceOptions{Duration: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, models.TaskSucceeded, waitTask(t, task).State)
}

func TestManager_ListIsACopyAndRemove(t *testing.T) {
	up := &fakeUploader{fn: succeed("/files/a.png")}
	m, _ := newTestManager(t, up, Config{})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	waitTask(t, task)

	list := m.List()
	list[0].URL = "mutated"
	assert.Equal(t, testAPIBase+"/files/a.png", m.List()[0].URL)

	assert.ErrorIs(t, m.Remove(1), ErrIndexOutOfRange)
	assert.ErrorIs(t, m.Remove(-1), ErrIndexOutOfRange)
	require.NoError(t, m.Remove(0))
	assert.Empty(t, m.List())
	assert.Equal(t, 1, up.Calls())
}

func TestManager_CancelTerminalIsNoop(t *testing.T) {
	up := &fakeUploader{fn: succeed("/files/a.png")}
	m, log := newTestManager(t, up, Config{})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	waitTask(t, task)

	assert.False(t, m.Cancel(task.ID()))
	assert.False(t, m.Cancel("unknown"))
	assert.Equal(t, models.TaskSucceeded, task.State())
	assert.Equal(t, models.EventCompleted, log.forTask(task.ID())[3].Type)
}

func TestManager_AckAndClear(t *testing.T) {
	up := &fakeUploader{fn: succeed("/files/a.png")}
	m, _ := newTestManager(t, up, Config{})

	a, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	waitTask(t, a)
	b, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	waitTask(t, b)

	require.Len(t, m.Tasks(), 2)
	assert.True(t, m.Ack(a.ID()))
	assert.False(t, m.Ack(a.ID()))
	_, ok := m.Task(a.ID())
	assert.False(t, ok)

	m.Clear()
	assert.Empty(t, m.Tasks())
	assert.Empty(t, m.List())
}

func TestManager_CloseCancelsRunningTasks(t *testing.T) {
	up := &fakeUploader{fn: func(ctx context.Context, _ int, _ client.UploadRequest, _ client.ProgressFunc) (models.Envelope, error) {
		<-ctx.Done()
		return models.Envelope{}, ctx.Err()
	}}
	m := NewManager(up, staticSession{token: "tok"}, testCaptures(), Config{}, nil)

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return up.Calls() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, m.Close())
	assert.Equal(t, models.TaskCancelled, waitTask(t, task).State)

	_, err = m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_SubscriberMayCancelFromHandler(t *testing.T) {
	release := make(chan struct{})
	up := &fakeUploader{fn: func(ctx context.Context, _ int, _ client.UploadRequest, progress client.ProgressFunc) (models.Envelope, error) {
		progress(5)
		select {
		case <-ctx.Done():
			return models.Envelope{}, ctx.Err()
		case <-release:
			return envelopeWithURL("/x.png"), nil
		}
	}}
	defer close(release)
	m, _ := newTestManager(t, up, Config{})

	m.Subscribe(func(ev models.Event) {
		if ev.Type == models.EventProgress {
			m.Cancel(ev.TaskID)
		}
	})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.TaskCancelled, waitTask(t, task).State)
}

func TestTask_SubscribeAndUnsubscribe(t *testing.T) {
	proceed := make(chan struct{})
	up := &fakeUploader{fn: func(ctx context.Context, call int, req client.UploadRequest, progress client.ProgressFunc) (models.Envelope, error) {
		<-proceed
		return succeed("/files/a.png")(ctx, call, req, progress)
	}}
	m, _ := newTestManager(t, up, Config{})

	task, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	require.NoError(t, err)

	kept := &eventLog{}
	dropped := &eventLog{}
	task.Subscribe(kept.add)
	unsubscribe := task.Subscribe(dropped.add)
	unsubscribe()
	close(proceed)

	waitTask(t, task)
	assert.Equal(t, []models.EventType{models.EventProgress, models.EventProgress, models.EventProgress, models.EventCompleted}, types(kept.forTask(task.ID())))
	assert.Empty(t, dropped.forTask(task.ID()))
}

func TestManager_MissingProvider(t *testing.T) {
	m := NewManager(&fakeUploader{fn: succeed("/x")}, staticSession{token: "t"}, NewCaptureRegistry(), Config{}, nil)
	defer m.Close()

	_, err := m.Capture(context.Background(), models.KindVoice, models.SourceOptions{})
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestManager_ProviderErrors(t *testing.T) {
	reg := NewCaptureRegistry()
	reg.Register(models.KindImage, CaptureFunc(func(ctx context.Context, _ models.Kind, _ models.SourceOptions) (models.LocalFile, error) {
		return models.LocalFile{}, errors.New("camera busy")
	}))
	reg.Register(models.KindVideo, CaptureFunc(func(ctx context.Context, _ models.Kind, _ models.SourceOptions) (models.LocalFile, error) {
		return models.LocalFile{}, context.Canceled
	}))
	m := NewManager(&fakeUploader{fn: succeed("/x")}, staticSession{token: "t"}, reg, Config{}, nil)
	defer m.Close()

	_, err := m.Capture(context.Background(), models.KindImage, models.SourceOptions{})
	assert.True(t, errors.Is(err, common.ErrValidation))

	_, err = m.Capture(context.Background(), models.KindVideo, models.SourceOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
