package events

import (
	"context"
	"time"

	"github.com/stardustagi/BlendGPT/codec"
	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/llm/workflow"
	"go.uber.org/zap"
)

const (
	MainWorkflow = "workflow"
	SubCompleted = "completed"
)

// Publisher is satisfied by *nats.NatsConnection.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// CompletionEvent is the payload of a workflow/completed message.
type CompletionEvent struct {
	TaskID         string    `json:"task_id"`
	Model          string    `json:"model"`
	State          string    `json:"state"`
	MaxTokens      int       `json:"max_tokens"`
	BufferName     string    `json:"buffer_name,omitempty"`
	TextLength     int       `json:"text_length"`
	Executed       bool      `json:"executed"`
	ExecutionError string    `json:"execution_error,omitempty"`
	Error          string    `json:"error,omitempty"`
	ErrCode        int       `json:"errcode,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	DurationMs     int64     `json:"duration_ms"`
}

func NewCompletionEvent(r workflow.Result) CompletionEvent {
	ev := CompletionEvent{
		TaskID:         r.TaskID,
		Model:          r.Model,
		State:          string(r.State),
		MaxTokens:      r.MaxTokens,
		BufferName:     r.BufferName,
		TextLength:     len(r.Text),
		Executed:       r.Executed,
		ExecutionError: r.ExecutionError,
		StartedAt:      r.StartedAt,
		DurationMs:     r.Duration().Milliseconds(),
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
		ev.ErrCode = errors.From(r.Err).Code()
	}
	return ev
}

// Notifier publishes a completion event for every finished task. Publish
// failures are logged and dropped.
type Notifier struct {
	pub     Publisher
	subject string
	codec   codec.ICodec
	logger  *zap.Logger
}

func NewNotifier(pub Publisher, subject string) *Notifier {
	return &Notifier{
		pub:     pub,
		subject: subject,
		codec:   codec.NewJsonCodec(),
		logger:  logs.GetLogger("events"),
	}
}

// OnFinished implements workflow.Observer.
func (n *Notifier) OnFinished(_ context.Context, r workflow.Result) {
	msg, err := codec.NewJsonMessage(MainWorkflow, SubCompleted, NewCompletionEvent(r))
	if err != nil {
		n.logger.Error("build event", logs.ErrorInfo(err))
		return
	}
	data, err := n.codec.Encode(msg)
	if err != nil {
		n.logger.Error("encode event", logs.ErrorInfo(err))
		return
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		n.logger.Warn("publish event", logs.String("subject", n.subject), logs.String("task", r.TaskID), logs.ErrorInfo(err))
	}
}
