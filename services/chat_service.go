package services

import (
	"fmt"
	"net/http"

	"github.com/stardustagi/BlendGPT/libs/databases"
	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/libs/nats"
	"github.com/stardustagi/BlendGPT/libs/redis"
	"github.com/stardustagi/BlendGPT/libs/server"
	"github.com/stardustagi/BlendGPT/llm/audit"
	"github.com/stardustagi/BlendGPT/llm/clients"
	"github.com/stardustagi/BlendGPT/llm/editor"
	"github.com/stardustagi/BlendGPT/llm/events"
	"github.com/stardustagi/BlendGPT/llm/executor"
	"github.com/stardustagi/BlendGPT/llm/workflow"
	"github.com/stardustagi/BlendGPT/queue"
)

// DefaultView is the editor view opened by the service so responses are
// always focused somewhere.
const DefaultView = "main"

// ChatService wires the workflow to its sinks, observers and the HTTP API.
type ChatService struct {
	BaseService
	cfg ChatConfig

	prefs    *workflow.Preferences
	editor   *editor.Editor
	flow     *workflow.Workflow
	recorder *audit.Recorder
	hub      *queue.Hub
	backend  *server.Backend

	confirm workflow.Confirmer
	noExec  bool

	auditDao databases.Dao

	rds    redis.RedisCli
	natsc  *nats.NatsConnection
	closer []func() error
}

type Option func(*ChatService)

// WithConfirmer asks c before every script; automatic execution is turned off.
func WithConfirmer(c workflow.Confirmer) Option {
	return func(s *ChatService) {
		s.confirm = c
		s.cfg.Workflow.AutoExecute = false
	}
}

// WithoutExecution only displays responses.
func WithoutExecution() Option {
	return func(s *ChatService) { s.noExec = true }
}

// WithAuditDao records runs through dao instead of opening [database].
func WithAuditDao(dao databases.Dao) Option {
	return func(s *ChatService) { s.auditDao = dao }
}

func NewChatService(cfg ChatConfig, opts ...Option) *ChatService {
	s := &ChatService{cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	s.logger = logs.GetLogger("chatService")
	return s
}

func (s *ChatService) Init() error {
	// 未鉴权的跨域请求可以让任意网页在本机执行脚本
	if s.cfg.Http.Cors && s.cfg.Auth.JwtSecret == "" {
		return errors.WithMsg(errors.ErrInvalidRequest, "http.cors requires auth.jwt_secret")
	}
	s.prefs = workflow.NewPreferences(s.cfg.OpenAI.APIKey)

	dispatcher, err := clients.NewDispatcher(s.cfg.OpenAI)
	if err != nil {
		return err
	}
	proc, err := executor.NewProcess(s.cfg.Executor)
	if err != nil {
		return err
	}

	var (
		guard workflow.Guard = workflow.NewLocalGuard()
		store editor.Store   = editor.NewMemoryStore()
	)
	if s.cfg.Redis.Addr != "" {
		if s.rds, err = redis.NewClient(s.cfg.Redis.Config); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		s.closer = append(s.closer, s.rds.Close)
		guard = workflow.NewRedisGuard(s.rds, s.cfg.Redis.LockTTL)
		store = editor.NewRedisStore(s.rds, s.cfg.Redis.BufferTTL)
	}
	s.editor = editor.New(store)
	s.editor.OpenView(DefaultView)

	s.hub = queue.NewHub()
	observers := []workflow.Observer{s.hub}
	if s.cfg.Nats.Url != "" {
		if s.natsc, err = nats.NewNatsConnect(&s.cfg.Nats); err != nil {
			s.Stop()
			return fmt.Errorf("nats: %w", err)
		}
		s.closer = append(s.closer, func() error { s.natsc.Close(); return nil })
		observers = append(observers, events.NewNotifier(s.natsc, s.cfg.Nats.Subject))
	}
	if s.auditDao == nil && s.cfg.Database.Driver != "" {
		engine, err := databases.NewEngine(s.cfg.Database.Config)
		if err != nil {
			s.Stop()
			return fmt.Errorf("database: %w", err)
		}
		s.auditDao = databases.NewBaseDao(engine)
		s.closer = append(s.closer, s.auditDao.Close)
	}
	if s.auditDao != nil {
		if s.recorder, err = audit.NewRecorder(s.auditDao, s.fingerprintKey()); err != nil {
			s.Stop()
			return fmt.Errorf("database: %w", err)
		}
		observers = append(observers, s.recorder)
	}

	deps := workflow.Deps{
		Dispatcher:  dispatcher,
		Credentials: s.prefs,
		Text:        s.editor,
		Script:      proc,
		Confirm:     s.confirm,
		Guard:       guard,
		Observers:   observers,
	}
	if s.noExec {
		deps.Script = nil
	}
	s.flow, err = workflow.New(s.cfg.Workflow, deps)
	if err != nil {
		s.Stop()
		return err
	}

	if s.backend, err = server.NewBackend(s.cfg.Http); err != nil {
		s.Stop()
		return err
	}
	s.backend.AddGroup("chat", server.Access(s.cfg.Auth.JwtSecret))
	if err := s.backend.AddHandlers("chat", s.handlers()); err != nil {
		s.Stop()
		return err
	}
	if err := s.backend.AddNativeHandler("chat", http.MethodGet, "events", s.hub.ServeWS); err != nil {
		s.Stop()
		return err
	}
	s.logger.Info("chat service initialised",
		logs.String("endpoint", dispatcher.Endpoint()),
		logs.Bool("redis", s.rds != nil),
		logs.Bool("nats", s.natsc != nil),
		logs.Bool("audit", s.recorder != nil),
		logs.Bool("fingerprints", s.recorder != nil && s.recorder.Fingerprints()),
		logs.Bool("auth", s.cfg.Auth.JwtSecret != ""))
	return nil
}

func (s *ChatService) fingerprintKey() string {
	if s.cfg.Database.FingerprintKey != "" {
		return s.cfg.Database.FingerprintKey
	}
	return s.cfg.Auth.JwtSecret
}

func (s *ChatService) Start() error {
	if s.backend == nil {
		return fmt.Errorf("chat service is not initialised")
	}
	if err := s.backend.Start(); err != nil {
		return err
	}
	s.setRunning(true)
	return nil
}

// Stop 关闭 HTTP, 等待进行中的任务, 再释放外部连接
func (s *ChatService) Stop() {
	// websocket 连接已被接管, Shutdown 不会关闭它们
	if s.hub != nil {
		s.logger.Info("closing event stream", logs.Int("clients", s.hub.Clients()))
		s.hub.Close()
	}
	if s.backend != nil && s.IsRunning() {
		if err := s.backend.Stop(); err != nil {
			s.logger.Warn("http stop", logs.ErrorInfo(err))
		}
	}
	if s.flow != nil {
		s.flow.Close()
	}
	for i := len(s.closer) - 1; i >= 0; i-- {
		if err := s.closer[i](); err != nil {
			s.logger.Warn("close", logs.ErrorInfo(err))
		}
	}
	s.closer = nil
	s.setRunning(false)
}

func (s *ChatService) Addr() string {
	if s.backend == nil {
		return ""
	}
	return s.backend.Addr()
}

func (s *ChatService) Backend() *server.Backend { return s.backend }

func (s *ChatService) Workflow() *workflow.Workflow { return s.flow }

func (s *ChatService) Editor() *editor.Editor { return s.editor }

func (s *ChatService) Config() ChatConfig { return s.cfg }
