package services

import (
	"sync"

	"go.uber.org/zap"
)

// Service 统一所有服务的生命周期
type Service interface {
	Init() error
	Start() error
	Stop()
	IsRunning() bool
}

type BaseService struct {
	logger *zap.Logger
	mu     sync.Mutex
	isRun  bool
}

func (bs *BaseService) IsRunning() bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.isRun
}

func (bs *BaseService) setRunning(v bool) {
	bs.mu.Lock()
	bs.isRun = v
	bs.mu.Unlock()
}
