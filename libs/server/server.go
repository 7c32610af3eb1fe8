package server

import (
	"context"
	"sync"

	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/utils"
	"go.uber.org/zap"
)

// Server waits for a shutdown signal and runs the registered hooks in
// reverse order.
type Server struct {
	Ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	doneCh <-chan struct{}

	mu    sync.Mutex
	hooks []func()
}

func NewServer() *Server {
	return newServer(utils.MakeShutdownCh())
}

func newServer(doneCh <-chan struct{}) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		Ctx:    ctx,
		cancel: cancel,
		logger: logs.GetLogger("Server"),
		doneCh: doneCh,
	}
}

func (m *Server) OnShutdown(hook func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Shutdown stops HandleSignal without a signal.
func (m *Server) Shutdown() { m.cancel() }

// HandleSignal blocks until a signal arrives or Shutdown is called.
func (m *Server) HandleSignal() {
	select {
	case <-m.doneCh:
	case <-m.Ctx.Done():
	}
	m.cancel()
	m.logger.Info("server shutting...")
	m.mu.Lock()
	hooks := m.hooks
	m.hooks = nil
	m.mu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	m.logger.Info("server shutdown completed")
}
