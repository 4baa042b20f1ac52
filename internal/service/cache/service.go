package cache

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"log/slog"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/kapu/gamehub-backend-go/internal/constants"
	"github.com/kapu/gamehub-backend-go/internal/util"
	"github.com/kapu/gamehub-backend-go/pkg/errors"
)

// Service: Valkey(Redis) 클라이언트를 래핑하여 캐싱 기능을 제공하는 서비스.
// 읽기-관통 캐시 값과 글로벌 스탯 카운터(INCRBYFLOAT)를 모두 담당한다.
type Service struct {
	client    valkey.Client
	logger    *slog.Logger
	closeOnce sync.Once
}

// Config: Valkey 연결 설정을 담는 구조체
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// 단일 노드(또는 miniredis) 환경용 옵션
	DisableCache      bool
	ForceSingleClient bool
}

// NewCacheService: 새로운 Valkey 캐시 서비스 인스턴스를 생성하고 연결을 수립한다.
func NewCacheService(cfg Config, logger *slog.Logger) (*Service, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		ConnWriteTimeout:  constants.ValkeyConfig.ConnWriteTimeout,
		BlockingPoolSize:  constants.ValkeyConfig.BlockingPoolSize,
		PipelineMultiplex: constants.ValkeyConfig.PipelineMultiplex,
		Dialer:            net.Dialer{Timeout: constants.ValkeyConfig.DialTimeout},
		DisableCache:      cfg.DisableCache,
		ForceSingleClient: cfg.ForceSingleClient,
	})
	if err != nil {
		return nil, errors.NewCacheError("failed to create cache client", "init", "", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ValkeyConfig.ReadyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, errors.NewCacheError("failed to connect to cache store", "ping", "", err)
	}

	logger.Info("Cache store connected",
		slog.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		slog.Int("db", cfg.DB),
	)

	return &Service{
		client: client,
		logger: logger,
	}, nil
}

// newServiceWithClient: 기존 클라이언트로 서비스를 구성한다. (테스트용)
func newServiceWithClient(client valkey.Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Get: 키에 해당하는 값을 조회하고, 결과를 dest 인터페이스에 언마샬링한다.
// 키가 없으면 (false, nil)을 반환한다.
func (c *Service) Get(ctx context.Context, key string, dest any) (bool, error) {
	resp := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if util.IsValkeyNil(resp.Error()) {
		return false, nil // Key doesn't exist - not an error
	}
	if resp.Error() != nil {
		c.logger.Error("Cache get operation failed", slog.String("key", key), slog.Any("error", resp.Error()))
		return false, errors.NewCacheError("get failed", "get", key, resp.Error())
	}

	value, err := resp.ToString()
	if err != nil {
		c.logger.Error("Cache value conversion failed", slog.String("key", key), slog.Any("error", err))
		return false, errors.NewCacheError("conversion failed", "get", key, err)
	}

	if dest != nil {
		if err := json.Unmarshal([]byte(value), dest); err != nil {
			c.logger.Error("Cache value unmarshal failed", slog.String("key", key), slog.Any("error", err))
			return false, errors.NewCacheError("unmarshal failed", "get", key, err)
		}
	}

	return true, nil
}

// Set: 값을 JSON으로 마샬링하여 키에 저장한다. (TTL 지정 가능)
func (c *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	var cmd valkey.Completed
	if ttl > 0 {
		cmd = c.client.B().Set().Key(key).Value(string(jsonData)).ExSeconds(int64(ttl.Seconds())).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(string(jsonData)).Build()
	}

	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Error("Cache set failed", slog.String("key", key), slog.Any("error", err))
		return errors.NewCacheError("set failed", "set", key, err)
	}

	return nil
}

// Del: 지정된 키를 삭제한다.
func (c *Service) Del(ctx context.Context, key string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
		c.logger.Error("Cache delete failed", slog.String("key", key), slog.Any("error", err))
		return errors.NewCacheError("delete failed", "del", key, err)
	}
	return nil
}

// DelMany: 여러 키를 한 번에 삭제한다.
func (c *Service) DelMany(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	resp := c.client.Do(ctx, c.client.B().Del().Key(keys...).Build())
	if resp.Error() != nil {
		c.logger.Error("Cache delete many failed", slog.Int("count", len(keys)), slog.Any("error", resp.Error()))
		return 0, errors.NewCacheError("delete many failed", "del", fmt.Sprintf("%d keys", len(keys)), resp.Error())
	}

	deleted, err := resp.AsInt64()
	if err != nil {
		return 0, errors.NewCacheError("delete many conversion failed", "del", "", err)
	}

	return deleted, nil
}

// Keys: 주어진 패턴과 일치하는 모든 키를 찾아서 반환한다. (주의: 대량 검색 시 부하 발생 가능)
func (c *Service) Keys(ctx context.Context, pattern string) ([]string, error) {
	resp := c.client.Do(ctx, c.client.B().Keys().Pattern(pattern).Build())
	if resp.Error() != nil {
		c.logger.Error("Cache keys search failed", slog.String("pattern", pattern), slog.Any("error", resp.Error()))
		return []string{}, errors.NewCacheError("keys search failed", "keys", pattern, resp.Error())
	}

	keys, err := resp.AsStrSlice()
	if err != nil {
		return []string{}, errors.NewCacheError("keys conversion failed", "keys", pattern, err)
	}

	return keys, nil
}

// IncrByFloat: 숫자 키에 delta를 원자적으로 더하고 결과값을 반환한다.
// 글로벌 스탯 카운터가 사용하는 유일한 쓰기 경로다.
func (c *Service) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	resp := c.client.Do(ctx, c.client.B().Incrbyfloat().Key(key).Increment(delta).Build())
	if resp.Error() != nil {
		c.logger.Error("Cache incrbyfloat failed", slog.String("key", key), slog.Any("error", resp.Error()))
		return 0, errors.NewCacheError("incrbyfloat failed", "incrbyfloat", key, resp.Error())
	}

	value, err := resp.AsFloat64()
	if err != nil {
		return 0, errors.NewCacheError("incrbyfloat conversion failed", "incrbyfloat", key, err)
	}

	return value, nil
}

// GetFloat: 숫자 키의 현재 값을 조회한다. 키가 없으면 (0, false, nil)을 반환한다.
func (c *Service) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	resp := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if util.IsValkeyNil(resp.Error()) {
		return 0, false, nil
	}
	if resp.Error() != nil {
		c.logger.Error("Cache get float failed", slog.String("key", key), slog.Any("error", resp.Error()))
		return 0, false, errors.NewCacheError("get failed", "get", key, resp.Error())
	}

	value, err := resp.AsFloat64()
	if err != nil {
		return 0, false, errors.NewCacheError("get float conversion failed", "get", key, err)
	}

	return value, true, nil
}

// SetFloat: 숫자 키의 값을 덮어쓴다. (글로벌 카운터 재계산 시 사용)
func (c *Service) SetFloat(ctx context.Context, key string, value float64, ttl time.Duration) error {
	str := fmt.Sprintf("%g", value)

	var cmd valkey.Completed
	if ttl > 0 {
		cmd = c.client.B().Set().Key(key).Value(str).ExSeconds(int64(ttl.Seconds())).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(str).Build()
	}

	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Error("Cache set float failed", slog.String("key", key), slog.Any("error", err))
		return errors.NewCacheError("set failed", "set", key, err)
	}

	return nil
}

// Expire: 키의 만료 시간을 설정한다. (슬라이딩 윈도우 TTL 재장전에 사용)
func (c *Service) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.client.Do(ctx, c.client.B().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build()).Error(); err != nil {
		c.logger.Error("Cache expire failed", slog.String("key", key), slog.Any("error", err))
		return errors.NewCacheError("expire failed", "expire", key, err)
	}
	return nil
}

// Exists: 키가 존재하는지 확인한다.
func (c *Service) Exists(ctx context.Context, key string) (bool, error) {
	resp := c.client.Do(ctx, c.client.B().Exists().Key(key).Build())
	if resp.Error() != nil {
		c.logger.Error("Cache exists failed", slog.String("key", key), slog.Any("error", resp.Error()))
		return false, errors.NewCacheError("exists failed", "exists", key, resp.Error())
	}

	count, err := resp.AsInt64()
	if err != nil {
		return false, errors.NewCacheError("exists conversion failed", "exists", key, err)
	}

	return count > 0, nil
}

// IsConnected: 캐시 스토어와 연결되어 있는지(PING 응답 여부) 확인한다.
func (c *Service) IsConnected(ctx context.Context) bool {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error() == nil
}

// Close: 캐시 스토어 연결을 안전하게 종료한다.
func (c *Service) Close() error {
	c.closeOnce.Do(func() {
		if c.client == nil {
			return
		}

		c.client.Close()
		c.logger.Info("Cache store disconnected")
	})

	return nil
}
