package workflow

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/llm/clients"
	"github.com/stardustagi/BlendGPT/llm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fencedReply = `{"choices":[{"message":{"content":"` + "```python\\nprint(1)\\n```" + `"}}]}`

// fakeProvider records request bodies and answers with a fixed status/body.
type fakeProvider struct {
	mu     sync.Mutex
	bodies []models.ChatRequest
	status int
	reply  string
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var req models.ChatRequest
	_ = json.Unmarshal(raw, &req)
	p.mu.Lock()
	p.bodies = append(p.bodies, req)
	p.mu.Unlock()
	w.WriteHeader(p.status)
	_, _ = w.Write([]byte(p.reply))
}

func (p *fakeProvider) calls() []models.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ChatRequest(nil), p.bodies...)
}

// recorder collects sink calls in order.
type recorder struct {
	mu      sync.Mutex
	events  []string
	texts   []string
	scripts []string
	results []Result
	execErr error
}

func (r *recorder) Display(_ context.Context, name, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "display")
	r.texts = append(r.texts, text)
	return name, nil
}

func (r *recorder) Execute(_ context.Context, script string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "execute")
	r.scripts = append(r.scripts, script)
	return r.execErr
}

func (r *recorder) OnFinished(_ context.Context, result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "finished")
	r.results = append(r.results, result)
}

func newTestWorkflow(t *testing.T, provider *fakeProvider, rec *recorder, mutate func(*Config, *Deps)) *Workflow {
	t.Helper()
	srv := httptest.NewServer(provider)
	t.Cleanup(srv.Close)

	dispatcher, err := clients.NewDispatcher(clients.Config{Endpoint: srv.URL, Timeout: "5s"})
	require.NoError(t, err)

	cfg := DefaultConfig()
	deps := Deps{
		Dispatcher:  dispatcher,
		Credentials: NewPreferences("sk-test"),
		Text:        rec,
		Script:      rec,
		Observers:   []Observer{rec},
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	w, err := New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestScenarioDrawCube(t *testing.T) {
	provider := &fakeProvider{status: 200, reply: fencedReply}
	rec := &recorder{}
	w := newTestWorkflow(t, provider, rec, nil)

	result, err := w.Run(context.Background(), Settings{Model: models.GPT35Turbo, UserPrompt: "draw a cube"})
	require.NoError(t, err)

	calls := provider.calls()
	require.Len(t, calls, 1)
	system := w.Builder().SystemMessage()
	assert.Equal(t, 4096-utf8.RuneCountInString(system)-len("draw a cube"), calls[0].MaxTokens)
	assert.Equal(t, models.GPT35Turbo, calls[0].Model)
	assert.Equal(t, 1, calls[0].N)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, "system", calls[0].Messages[0].Role)
	assert.Equal(t, "user", calls[0].Messages[1].Role)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, "\nprint(1)\n", result.Text)
	assert.True(t, result.Executed)
	assert.Empty(t, result.ExecutionError)
	assert.Equal(t, DefaultBufferName, result.BufferName)
	assert.Equal(t, []string{"display", "execute", "finished"}, rec.events)
	assert.Equal(t, []string{"\nprint(1)\n"}, rec.scripts)
}

func TestScenarioBudgetExceeded(t *testing.T) {
	provider := &fakeProvider{status: 200, reply: fencedReply}
	rec := &recorder{}
	w := newTestWorkflow(t, provider, rec, nil)

	result, err := w.Run(context.Background(), Settings{Model: models.GPT35Turbo, UserPrompt: strings.Repeat("a", 4096)})
	assert.True(t, stderrors.Is(err, errors.ErrBudgetExceeded))
	assert.Equal(t, StateRejected, result.State)
	assert.Empty(t, provider.calls(), "request must not be sent")
	assert.Equal(t, []string{"finished"}, rec.events)
}

func TestScenarioServerError(t *testing.T) {
	provider := &fakeProvider{status: 500, reply: `{"error":{"message":"boom"}}`}
	rec := &recorder{}
	w := newTestWorkflow(t, provider, rec, nil)

	result, err := w.Run(context.Background(), Settings{UserPrompt: "draw a cube"})
	assert.True(t, stderrors.Is(err, errors.ErrDispatch))
	assert.Equal(t, StateFailed, result.State)
	assert.Empty(t, rec.scripts)
	assert.Len(t, provider.calls(), 1)
}

func TestScenarioScriptFails(t *testing.T) {
	provider := &fakeProvider{status: 200, reply: fencedReply}
	rec := &recorder{execErr: stderrors.New("NameError: name 'bpy' is not defined")}
	w := newTestWorkflow(t, provider, rec, nil)

	result, err := w.Run(context.Background(), Settings{UserPrompt: "draw a cube"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, "Error executing script: NameError: name 'bpy' is not defined", result.ExecutionError)
	assert.Equal(t, []string{"display", "execute", "finished"}, rec.events)
	assert.Equal(t, []string{"\nprint(1)\n"}, rec.texts)
}

func TestMalformedResponse(t *testing.T) {
	provider := &fakeProvider{status: 200, reply: `{"choices":[]}`}
	rec := &recorder{}
	w := newTestWorkflow(t, provider, rec, nil)

	result, err := w.Run(context.Background(), Settings{UserPrompt: "x"})
	assert.True(t, stderrors.Is(err, errors.ErrMalformedResponse))
	assert.Equal(t, StateFailed, result.State)
	assert.Empty(t, rec.texts)
}

func TestMissingCredential(t *testing.T) {
	provider := &fakeProvider{status: 200, reply: fencedReply}
	w := newTestWorkflow(t, provider, &recorder{}, func(_ *Config, d *Deps) {
		d.Credentials = NewPreferences("")
	})

	_, err := w.Run(context.Background(), Settings{UserPrompt: "x"})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidRequest))
	assert.Empty(t, provider.calls())
}

func TestAutoExecuteOff(t *testing.T) {
	provider := &fakeProvider{status: 200, reply: fencedReply}

	t.Run("no confirmer", func(t *testing.T) {
		rec := &recorder{}
		w := newTestWorkflow(t, provider, rec, func(c *Config, _ *Deps) { c.AutoExecute = false })
		result, err := w.Run(context.Background(), Settings{UserPrompt: "x"})
		require.NoError(t, err)
		assert.False(t, result.Executed)
		assert.Empty(t, rec.scripts)
		assert.Len(t, rec.texts, 1)
	})

	t.Run("declined", func(t *testing.T) {
		rec := &recorder{}
		w := newTestWorkflow(t, provider, rec, func(c *Config, d *Deps) {
			c.AutoExecute = false
			d.Confirm = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
		})
		result, err := w.Run(context.Background(), Settings{UserPrompt: "x"})
		require.NoError(t, err)
		assert.False(t, result.Executed)
		assert.Empty(t, rec.scripts)
	})

	t.Run("confirmed", func(t *testing.T) {
		rec := &recorder{}
		var seen string
		w := newTestWorkflow(t, provider, rec, func(c *Config, d *Deps) {
			c.AutoExecute = false
			d.Confirm = ConfirmFunc(func(_ context.Context, script string) (bool, error) {
				seen = script
				return true, nil
			})
		})
		result, err := w.Run(context.Background(), Settings{UserPrompt: "x"})
		require.NoError(t, err)
		assert.True(t, result.Executed)
		assert.Equal(t, "\nprint(1)\n", seen)
	})
}

// blockingDispatcher holds every call until release is closed.
type blockingDispatcher struct {
	started chan struct{}
	release chan struct{}
}

func (d *blockingDispatcher) Dispatch(ctx context.Context, _ string, _ *models.ChatRequest) ([]byte, error) {
	d.started <- struct{}{}
	select {
	case <-d.release:
		return []byte(fencedReply), nil
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ErrDispatch, ctx.Err())
	}
}

func TestSingleFlight(t *testing.T) {
	d := &blockingDispatcher{started: make(chan struct{}, 1), release: make(chan struct{})}
	rec := &recorder{}
	w, err := New(DefaultConfig(), Deps{Dispatcher: d, Credentials: NewPreferences("sk"), Text: rec, Script: rec})
	require.NoError(t, err)
	defer w.Close()

	first, err := w.Submit(context.Background(), Settings{UserPrompt: "one"})
	require.NoError(t, err)
	<-d.started

	_, err = w.Submit(context.Background(), Settings{UserPrompt: "two"})
	assert.True(t, stderrors.Is(err, errors.ErrBusy))
	assert.False(t, first.Finished())

	close(d.release)
	result, err := first.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)

	// 第一个结束后可以再次提交
	second, err := w.Submit(context.Background(), Settings{UserPrompt: "three"})
	require.NoError(t, err)
	<-d.started
	_, err = second.Wait(context.Background())
	require.NoError(t, err)
}

func TestSingleFlightOutlivesRedisLockTTL(t *testing.T) {
	mr, guard := newRedisGuard(t)
	d := &blockingDispatcher{started: make(chan struct{}, 1), release: make(chan struct{})}
	rec := &recorder{}
	w, err := New(DefaultConfig(), Deps{Dispatcher: d, Credentials: NewPreferences("sk"), Text: rec, Script: rec, Guard: guard})
	require.NoError(t, err)
	defer w.Close()

	first, err := w.Submit(context.Background(), Settings{UserPrompt: "one"})
	require.NoError(t, err)
	<-d.started

	// 请求比锁的 TTL 还长
	for i := 0; i < 3; i++ {
		mr.FastForward(700 * time.Millisecond)
		require.Eventually(t, func() bool { return mr.TTL("blendgpt:lock:chat:communicate") > 500*time.Millisecond },
			2*time.Second, 10*time.Millisecond)
	}

	_, err = w.Submit(context.Background(), Settings{UserPrompt: "two"})
	assert.True(t, stderrors.Is(err, errors.ErrBusy))
	assert.False(t, first.Finished())

	close(d.release)
	result, err := first.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.False(t, mr.Exists("blendgpt:lock:chat:communicate"))
}

func TestPollUntilFinished(t *testing.T) {
	provider := &fakeProvider{status: 200, reply: fencedReply}
	w := newTestWorkflow(t, provider, &recorder{}, nil)

	task, err := w.Submit(context.Background(), Settings{UserPrompt: "x"})
	require.NoError(t, err)

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(5 * time.Second)
	for !task.Finished() {
		select {
		case <-ticker.C:
		case <-deadline:
			t.Fatal("task never finished")
		}
	}
	result, final := task.Result()
	assert.True(t, final)
	assert.Equal(t, "\nprint(1)\n", result.Text)

	found, err := w.Task(task.ID())
	require.NoError(t, err)
	assert.Same(t, task, found)

	_, err = w.Task("missing")
	assert.True(t, stderrors.Is(err, errors.ErrTaskNotFound))
}

func TestWaitContextExpires(t *testing.T) {
	d := &blockingDispatcher{started: make(chan struct{}, 1), release: make(chan struct{})}
	w, err := New(DefaultConfig(), Deps{Dispatcher: d, Credentials: NewPreferences("sk")})
	require.NoError(t, err)

	task, err := w.Submit(context.Background(), Settings{UserPrompt: "x"})
	require.NoError(t, err)
	<-d.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	result, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateRunning, result.State)

	// Close 取消进行中的请求，任务依然进入终态
	w.Close()
	assert.True(t, task.Finished())
	final, _ := task.Result()
	assert.True(t, stderrors.Is(final.Err, errors.ErrDispatch))

	_, err = w.Submit(context.Background(), Settings{UserPrompt: "x"})
	assert.Error(t, err)
}

func TestPanickingSinkStillFinishes(t *testing.T) {
	provider := &fakeProvider{status: 200, reply: fencedReply}
	w := newTestWorkflow(t, provider, &recorder{}, func(_ *Config, d *Deps) {
		d.Script = ScriptSinkFunc(func(context.Context, string) error { panic("kaboom") })
	})

	result, err := w.Run(context.Background(), Settings{UserPrompt: "x"})
	assert.True(t, stderrors.Is(err, errors.ErrInternal))
	assert.Equal(t, StateFailed, result.State)

	// guard released
	_, err = w.Run(context.Background(), Settings{UserPrompt: "x"})
	assert.Error(t, err)
	assert.False(t, stderrors.Is(err, errors.ErrBusy))
}

func TestTaskRegistryIsBounded(t *testing.T) {
	provider := &fakeProvider{status: 200, reply: fencedReply}
	w := newTestWorkflow(t, provider, &recorder{}, func(c *Config, _ *Deps) { c.KeepTasks = 2 })

	var ids []string
	for i := 0; i < 3; i++ {
		result, err := w.Run(context.Background(), Settings{UserPrompt: "x"})
		require.NoError(t, err)
		ids = append(ids, result.TaskID)
	}
	_, err := w.Task(ids[0])
	assert.Error(t, err)
	_, err = w.Task(ids[2])
	assert.NoError(t, err)
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.Error(t, err)
	_, err = New(DefaultConfig(), Deps{Dispatcher: &blockingDispatcher{}})
	assert.Error(t, err)
}
