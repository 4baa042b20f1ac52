// Package integration: 변이 성공 후 호출되는 외부 연동 콜백 레지스트리.
// 코어는 콜백이 무엇을 하는지 알지 못하며, 에러와 패닉을 호출자에게
// 전파하지 않는다.
package integration

import (
	"context"
	"sync"

	"log/slog"

	"github.com/kapu/gamehub-backend-go/internal/service/stats"
)

// Hook: 확정된 PlayerStat 행으로 호출되는 콜백
type Hook func(ctx context.Context, playerStat *stats.PlayerStat)

// Registry: 이름이 붙은 연동 훅 모음
type Registry struct {
	mu     sync.RWMutex
	hooks  map[string]Hook
	logger *slog.Logger
}

// NewRegistry: 빈 훅 레지스트리를 생성한다.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		hooks:  make(map[string]Hook),
		logger: logger,
	}
}

// Register: 훅을 등록한다. 같은 이름은 덮어쓴다.
func (r *Registry) Register(name string, hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = hook
}

// Notify: 등록된 모든 훅을 호출한다. 한 훅의 패닉이 다른 훅이나
// 변이 경로를 무너뜨리지 않는다.
func (r *Registry) Notify(ctx context.Context, playerStat *stats.PlayerStat) {
	r.mu.RLock()
	snapshot := make(map[string]Hook, len(r.hooks))
	for name, hook := range r.hooks {
		snapshot[name] = hook
	}
	r.mu.RUnlock()

	for name, hook := range snapshot {
		r.invoke(ctx, name, hook, playerStat)
	}
}

func (r *Registry) invoke(ctx context.Context, name string, hook Hook, playerStat *stats.PlayerStat) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Integration hook panicked",
				slog.String("hook", name),
				slog.Any("panic", rec),
			)
		}
	}()
	hook(ctx, playerStat)
}
