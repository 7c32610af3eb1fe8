package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/libs/uuid"
	"github.com/stardustagi/BlendGPT/llm/models"
	"go.uber.org/zap"
)

const (
	DefaultBufferName = "ChatGPT_Response.txt"
	DefaultFlightKey  = "chat:communicate"
	DefaultKeepTasks  = 64
)

// Dispatcher sends one chat request and returns the raw response body.
type Dispatcher interface {
	Dispatch(ctx context.Context, credential string, req *models.ChatRequest) ([]byte, error)
}

// Config [workflow] 配置段
type Config struct {
	HostName    string `json:"host_name"`
	HostVersion string `json:"host_version"`
	BufferName  string `json:"buffer_name"`
	AutoExecute bool   `json:"auto_execute"`
	FlightKey   string `json:"flight_key"`
	KeepTasks   int    `json:"keep_tasks" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		HostName:    "Blender",
		HostVersion: "3.5.0",
		BufferName:  DefaultBufferName,
		AutoExecute: true,
		FlightKey:   DefaultFlightKey,
		KeepTasks:   DefaultKeepTasks,
	}
}

// Deps are the collaborators of a Workflow. Dispatcher and Credentials are
// required; everything else has a default or is optional.
type Deps struct {
	Dispatcher  Dispatcher
	Credentials CredentialSource
	Text        TextSink
	Script      ScriptSink
	Confirm     Confirmer
	Guard       Guard
	Observers   []Observer
}

// Workflow runs the chat-to-script pipeline: build, budget check, dispatch,
// parse, display, execute.
type Workflow struct {
	cfg     Config
	deps    Deps
	builder *Builder
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*Task
	order []string
}

func New(cfg Config, deps Deps) (*Workflow, error) {
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("workflow: dispatcher is required")
	}
	if deps.Credentials == nil {
		return nil, fmt.Errorf("workflow: credential source is required")
	}
	if deps.Text == nil {
		deps.Text = discardText{}
	}
	if deps.Guard == nil {
		deps.Guard = NewLocalGuard()
	}
	if cfg.BufferName == "" {
		cfg.BufferName = DefaultBufferName
	}
	if cfg.FlightKey == "" {
		cfg.FlightKey = DefaultFlightKey
	}
	if cfg.KeepTasks <= 0 {
		cfg.KeepTasks = DefaultKeepTasks
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Workflow{
		cfg:     cfg,
		deps:    deps,
		builder: NewBuilder(cfg.HostName, cfg.HostVersion),
		logger:  logs.GetLogger("workflow"),
		ctx:     ctx,
		cancel:  cancel,
		tasks:   make(map[string]*Task),
	}, nil
}

// Builder exposes the request builder, e.g. to show the system message.
func (w *Workflow) Builder() *Builder { return w.builder }

// Submit starts a task and returns without waiting for the network. It fails
// with errors.ErrBusy while another task holds the single-flight guard.
func (w *Workflow) Submit(ctx context.Context, s Settings) (*Task, error) {
	if err := w.ctx.Err(); err != nil {
		return nil, errors.WithMsg(errors.ErrInternal, "workflow is closed")
	}
	release, err := w.deps.Guard.Acquire(ctx, w.cfg.FlightKey)
	if err != nil {
		return nil, err
	}
	task := newTask(uuid.NewTaskID())
	w.remember(task)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		result := w.execute(task, s.WithDefaults())
		w.notify(result)
		release()
		task.finish(result)
	}()
	return task, nil
}

// Run is the blocking variant: Submit then Wait.
func (w *Workflow) Run(ctx context.Context, s Settings) (Result, error) {
	task, err := w.Submit(ctx, s)
	if err != nil {
		return Result{}, err
	}
	return task.Wait(ctx)
}

// Task looks up a recent task by id.
func (w *Workflow) Task(id string) (*Task, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tasks[id]
	if !ok {
		return nil, errors.ErrTaskNotFound
	}
	return t, nil
}

// Close cancels in-flight requests and waits for their tasks to finish.
func (w *Workflow) Close() {
	w.cancel()
	w.wg.Wait()
}

func (w *Workflow) remember(t *Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tasks[t.id] = t
	w.order = append(w.order, t.id)
	for len(w.order) > w.cfg.KeepTasks {
		oldest := w.order[0]
		if old, ok := w.tasks[oldest]; ok && !old.Finished() {
			break
		}
		delete(w.tasks, oldest)
		w.order = w.order[1:]
	}
}

// execute never panics and always returns a terminal result.
func (w *Workflow) execute(task *Task, s Settings) (result Result) {
	result = Result{TaskID: task.id, Model: s.Model, StartedAt: task.startedAt}
	logger := w.logger.With(logs.String("task", task.id), logs.String("model", s.Model))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", zap.Any("panic", r), logs.StacktraceField())
			result.Err = errors.WithMsg(errors.ErrInternal, fmt.Sprintf("internal error: %v", r))
			result.State = StateFailed
		}
		result.FinishedAt = time.Now()
	}()

	credential := w.deps.Credentials.APIKey()
	spec, err := w.builder.Build(s, credential)
	if err != nil {
		result.Err, result.State = err, StateRejected
		return result
	}
	result.MaxTokens = spec.MaxOutputTokens
	if _, err := Validate(spec); err != nil {
		logger.Info("request rejected", logs.Int("input_length", spec.InputLength()), logs.Int("budget", models.ModelBudget(spec.Model)))
		result.Err, result.State = err, StateRejected
		return result
	}

	raw, err := w.deps.Dispatcher.Dispatch(w.ctx, credential, spec.Request())
	if err != nil {
		logger.Warn("dispatch failed", logs.ErrorInfo(err))
		result.Err, result.State = err, StateFailed
		return result
	}
	resp, err := ParseResponse(raw)
	if err != nil {
		logger.Warn("parse failed", logs.ErrorInfo(err))
		result.Err, result.State = err, StateFailed
		return result
	}
	result.Text = resp.Text

	name, err := w.deps.Text.Display(w.ctx, w.cfg.BufferName, resp.Text)
	if err != nil {
		logger.Warn("display failed", logs.ErrorInfo(err))
	}
	result.BufferName = name

	result.Executed, result.ExecutionError = w.runScript(logger, resp.Text)
	result.State = StateCompleted
	logger.Info("task completed", logs.Bool("executed", result.Executed), logs.String("buffer", name))
	return result
}

// runScript applies the confirmation policy and converts a failure into a
// message instead of an error.
func (w *Workflow) runScript(logger *zap.Logger, script string) (bool, string) {
	if w.deps.Script == nil {
		return false, ""
	}
	if !w.cfg.AutoExecute {
		if w.deps.Confirm == nil {
			logger.Info("script not executed: auto_execute is off")
			return false, ""
		}
		ok, err := w.deps.Confirm.Confirm(w.ctx, script)
		if err != nil || !ok {
			logger.Info("script execution declined", logs.ErrorInfo(err))
			return false, ""
		}
	}
	if err := w.deps.Script.Execute(w.ctx, script); err != nil {
		logger.Warn("script failed", logs.ErrorInfo(err))
		return true, "Error executing script: " + err.Error()
	}
	return true, ""
}

func (w *Workflow) notify(result Result) {
	for _, o := range w.deps.Observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("observer panicked", zap.Any("panic", r))
				}
			}()
			o.OnFinished(w.ctx, result)
		}()
	}
}
