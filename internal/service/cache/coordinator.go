package cache

import (
	"context"
	"time"

	"log/slog"

	"github.com/goccy/go-json"
)

// Coordinator: 읽기-관통(read-through) 캐시 조정자.
// Get은 캐시 히트 시 저장된 값을, 미스 시 compute 결과를 TTL과 함께 저장 후 반환한다.
// 무효화는 Invalidator를 통해 비동기로만 수행되어 쓰기 경로를 막지 않는다.
type Coordinator struct {
	cache       *Service
	invalidator *Invalidator
	logger      *slog.Logger
}

// Options: 조회 동작 옵션
type Options struct {
	TTL     time.Duration
	Sliding bool // true면 히트할 때마다 TTL을 재장전한다 (핫 키는 꾸준한 트래픽 하에서 만료되지 않음)
}

// NewCoordinator: 새로운 캐시 조정자를 생성한다.
func NewCoordinator(cacheSvc *Service, invalidator *Invalidator, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cache:       cacheSvc,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Get: 키를 조회하고, 미스면 compute를 호출하여 결과를 캐시에 저장 후 dest에 언마샬링한다.
// 캐시 백엔드 장애는 compute 결과로 대체되며 호출자에게 전파되지 않는다.
func (co *Coordinator) Get(ctx context.Context, key string, dest any, opts Options, compute func(ctx context.Context) (any, error)) error {
	hit, err := co.cache.Get(ctx, key, dest)
	if err != nil {
		// 캐시 장애는 소프트 실패: 원본 스토어로 폴백한다.
		co.logger.Warn("Cache read failed, falling back to store", slog.String("key", key), slog.Any("error", err))
	}
	if hit && err == nil {
		if opts.Sliding && opts.TTL > 0 {
			if err := co.cache.Expire(ctx, key, opts.TTL); err != nil {
				co.logger.Debug("Sliding TTL refresh failed", slog.String("key", key))
			}
		}
		return nil
	}

	value, err := compute(ctx)
	if err != nil {
		return err
	}

	if err := co.cache.Set(ctx, key, value, opts.TTL); err != nil {
		co.logger.Warn("Cache store-on-miss failed", slog.String("key", key), slog.Any("error", err))
	}

	return remarshal(value, dest)
}

// DeferInvalidate: 키 무효화 작업을 큐에 넣는다. 실제 삭제는 백그라운드 워커가 수행하며,
// 그 사이 짧은 시간 동안 오래된 값이 읽힐 수 있다. (의도된 트레이드오프)
func (co *Coordinator) DeferInvalidate(keys ...string) {
	co.invalidator.Enqueue(Job{Keys: keys})
}

// DeferInvalidatePattern: 패턴과 일치하는 모든 키의 무효화를 큐에 넣는다.
func (co *Coordinator) DeferInvalidatePattern(pattern string) {
	co.invalidator.Enqueue(Job{Pattern: pattern})
}

// remarshal: compute 결과를 캐시 코덱과 동일한 JSON 경로로 dest에 복사한다.
func remarshal(value, dest any) error {
	if dest == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
