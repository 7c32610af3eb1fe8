package services

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/libs/server"
	"github.com/stardustagi/BlendGPT/llm/audit"
	"github.com/stardustagi/BlendGPT/llm/editor"
	"github.com/stardustagi/BlendGPT/llm/models"
	"github.com/stardustagi/BlendGPT/llm/workflow"
)

type empty struct{}

type ModelsResp struct {
	Default string         `json:"default"`
	Models  []models.Model `json:"models"`
}

type PreferencesReq struct {
	APIKey string `json:"api_key" validate:"required"`
}

type PreferencesResp struct {
	Configured bool `json:"configured"`
}

type CommunicateReq struct {
	workflow.Settings
	Wait bool `json:"wait"`
}

type CommunicateResp struct {
	TaskID string    `json:"task_id"`
	Result *TaskView `json:"result,omitempty"`
}

type TaskReq struct {
	ID string `param:"id" validate:"required"`
}

// TaskView 轮询返回的任务状态
type TaskView struct {
	TaskID         string `json:"task_id"`
	Finished       bool   `json:"finished"`
	State          string `json:"state"`
	Model          string `json:"model,omitempty"`
	MaxTokens      int    `json:"max_tokens,omitempty"`
	Text           string `json:"text,omitempty"`
	BufferName     string `json:"buffer_name,omitempty"`
	Executed       bool   `json:"executed"`
	ExecutionError string `json:"execution_error,omitempty"`
	ErrCode        int    `json:"errcode,omitempty"`
	Error          string `json:"error,omitempty"`
	DurationMs     int64  `json:"duration_ms,omitempty"`
}

func newTaskView(r workflow.Result, finished bool) *TaskView {
	v := &TaskView{
		TaskID:         r.TaskID,
		Finished:       finished,
		State:          string(r.State),
		Model:          r.Model,
		MaxTokens:      r.MaxTokens,
		Text:           r.Text,
		BufferName:     r.BufferName,
		Executed:       r.Executed,
		ExecutionError: r.ExecutionError,
	}
	if finished {
		v.DurationMs = r.Duration().Milliseconds()
	}
	if r.Err != nil {
		se := errors.From(r.Err)
		v.ErrCode, v.Error = se.Code(), se.Error()
	}
	return v
}

type BufferReq struct {
	Name string `param:"name" validate:"required"`
}

type BufferResp struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type RunsReq struct {
	Limit int `query:"limit" validate:"gte=0,lte=200"`
}

type VerifyReq struct {
	ID     int64  `param:"id" validate:"required"`
	Script string `json:"script" validate:"required"`
}

type VerifyResp struct {
	ID       int64 `json:"id"`
	Verified bool  `json:"verified"`
}

type ViewReq struct {
	ID string `param:"id" validate:"required,max=64"`
}

func (s *ChatService) handlers() server.IHandlers {
	hs := server.NewHandlers()
	hs.AddHandlers(
		server.NewHandler(http.MethodGet, "models", s.listModels),
		server.NewHandler(http.MethodPut, "preferences", s.setPreferences),
		server.NewHandler(http.MethodPost, "communicate", s.communicate),
		server.NewHandler(http.MethodGet, "tasks/:id", s.getTask),
		server.NewHandler(http.MethodGet, "buffers/:name", s.getBuffer),
		server.NewHandler(http.MethodGet, "views", s.listViews),
		server.NewHandler(http.MethodPut, "views/:id", s.openView),
		server.NewHandler(http.MethodDelete, "views/:id", s.closeView),
		server.NewHandler(http.MethodGet, "runs", s.listRuns),
		server.NewHandler(http.MethodPost, "runs/:id/verify", s.verifyRun),
	)
	return hs
}

func (s *ChatService) listModels(_ echo.Context, _ empty) (ModelsResp, error) {
	return ModelsResp{Default: models.DefaultModel, Models: models.Catalog()}, nil
}

func (s *ChatService) setPreferences(c echo.Context, req PreferencesReq) (PreferencesResp, error) {
	s.prefs.SetAPIKey(req.APIKey)
	s.logger.Info("api key updated", logs.String("remote", server.NewContext(c).RemoteAddr))
	return PreferencesResp{Configured: s.prefs.HasAPIKey()}, nil
}

func (s *ChatService) communicate(c echo.Context, req CommunicateReq) (CommunicateResp, error) {
	if err := workflow.CheckPrompt(req.UserPrompt); err != nil {
		return CommunicateResp{}, err
	}
	if err := workflow.CheckModel(req.Model); err != nil {
		return CommunicateResp{}, err
	}
	ctx := c.Request().Context()
	task, err := s.flow.Submit(ctx, req.Settings)
	if err != nil {
		return CommunicateResp{}, err
	}
	if !req.Wait {
		return CommunicateResp{TaskID: task.ID()}, nil
	}
	result, err := task.Wait(ctx)
	if err != nil {
		return CommunicateResp{}, err
	}
	return CommunicateResp{TaskID: task.ID(), Result: newTaskView(result, true)}, nil
}

func (s *ChatService) getTask(_ echo.Context, req TaskReq) (*TaskView, error) {
	task, err := s.flow.Task(req.ID)
	if err != nil {
		return nil, err
	}
	return newTaskView(task.Result()), nil
}

func (s *ChatService) getBuffer(c echo.Context, req BufferReq) (BufferResp, error) {
	text, err := s.editor.Buffer(c.Request().Context(), req.Name)
	if stderrors.Is(err, editor.ErrBufferNotFound) {
		return BufferResp{}, errors.WithMsg(errors.ErrInvalidRequest, "buffer not found: "+req.Name)
	}
	if err != nil {
		return BufferResp{}, errors.Wrap(errors.ErrInternal, err)
	}
	return BufferResp{Name: req.Name, Text: text}, nil
}

func (s *ChatService) listViews(_ echo.Context, _ empty) ([]editor.View, error) {
	return s.editor.Views(), nil
}

func (s *ChatService) openView(_ echo.Context, req ViewReq) ([]editor.View, error) {
	s.editor.OpenView(req.ID)
	return s.editor.Views(), nil
}

func (s *ChatService) closeView(_ echo.Context, req ViewReq) ([]editor.View, error) {
	s.editor.CloseView(req.ID)
	return s.editor.Views(), nil
}

// listRuns 审计日志, 未配置数据库时为空
func (s *ChatService) listRuns(_ echo.Context, req RunsReq) ([]audit.Record, error) {
	if s.recorder == nil {
		return []audit.Record{}, nil
	}
	limit := req.Limit
	if limit == 0 {
		limit = 20
	}
	rows, err := s.recorder.Recent(limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	return rows, nil
}

// verifyRun 检查脚本是否与审计记录中的指纹一致
func (s *ChatService) verifyRun(_ echo.Context, req VerifyReq) (VerifyResp, error) {
	if s.recorder == nil {
		return VerifyResp{}, errors.WithMsg(errors.ErrInvalidRequest, "audit log is not configured")
	}
	ok, err := s.recorder.Verify(req.ID, req.Script)
	if err != nil {
		return VerifyResp{}, err
	}
	return VerifyResp{ID: req.ID, Verified: ok}, nil
}
