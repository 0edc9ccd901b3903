package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/lnpanel/pkg/logger"
)

// Handler 关闭回调，应在 ctx 到期前返回
type Handler func(ctx context.Context)

// Manager 优雅关闭管理器，Shutdown 只会真正执行一次
type Manager struct {
	mu        sync.Mutex
	callbacks []Handler
	once      sync.Once
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, handler)
}

// Shutdown 并发执行所有回调并等待完成或 ctx 超时（阻塞调用）。
// 信号处理和主流程都可能调用它，重复调用直接返回。
func (m *Manager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		m.run(ctx)
	})
}

func (m *Manager) run(ctx context.Context) {
	m.mu.Lock()
	callbacks := append([]Handler(nil), m.callbacks...)
	m.mu.Unlock()

	if len(callbacks) == 0 {
		logger.Info("没有注册的关闭回调")
		return
	}

	logger.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))

	var wg sync.WaitGroup
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(handler Handler) {
			defer wg.Done()
			handler(ctx)
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("所有关闭回调已完成")
	case <-ctx.Done():
		logger.Warnf("关闭超时: %v", ctx.Err())
	}
}
