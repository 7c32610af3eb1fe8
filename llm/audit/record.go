package audit

import (
	"time"

	"github.com/stardustagi/BlendGPT/llm/workflow"
)

// Record is one finished task in the chat_run table.
type Record struct {
	Id             int64     `xorm:"pk 'id'" json:"id,string"`
	TaskId         string    `xorm:"varchar(36) notnull unique 'task_id'" json:"task_id"`
	Model          string    `xorm:"varchar(64) notnull 'model'" json:"model"`
	State          string    `xorm:"varchar(16) notnull index 'state'" json:"state"`
	MaxTokens      int       `xorm:"'max_tokens'" json:"max_tokens"`
	BufferName     string    `xorm:"varchar(255) 'buffer_name'" json:"buffer_name"`
	ScriptSize     int       `xorm:"'script_size'" json:"script_size"`
	ScriptHmac     string    `xorm:"varchar(64) 'script_hmac'" json:"script_hmac"`
	Executed       bool      `xorm:"'executed'" json:"executed"`
	ErrCode        int       `xorm:"'errcode'" json:"errcode"`
	Error          string    `xorm:"text 'error'" json:"error"`
	ExecutionError string    `xorm:"text 'execution_error'" json:"execution_error"`
	StartedAt      time.Time `xorm:"'started_at'" json:"started_at"`
	FinishedAt     time.Time `xorm:"'finished_at'" json:"finished_at"`
	DurationMs     int64     `xorm:"'duration_ms'" json:"duration_ms"`
}

func (Record) TableName() string { return "chat_run" }

func (r *Record) fill(res workflow.Result) {
	r.TaskId = res.TaskID
	r.Model = res.Model
	r.State = string(res.State)
	r.MaxTokens = res.MaxTokens
	r.BufferName = res.BufferName
	r.ScriptSize = len(res.Text)
	r.Executed = res.Executed
	r.ExecutionError = res.ExecutionError
	r.StartedAt = res.StartedAt
	r.FinishedAt = res.FinishedAt
	r.DurationMs = res.Duration().Milliseconds()
}
