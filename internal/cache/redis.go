package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"microcloudlab-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	sequenceKey = "peripheral:seq"
	eventPrefix = "peripheral:event"
	listPrefix  = "peripheral_list"
	totalPrefix = "peripheral:total"
)

// RedisCache архив событий периферии в Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache создает новое подключение и проверяет его
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func eventKey(peripheralType string, seq int64) string {
	return fmt.Sprintf("%s:%s:%d", eventPrefix, peripheralType, seq)
}

func listKey(peripheralType string) string {
	return fmt.Sprintf("%s:%s", listPrefix, strings.ToUpper(peripheralType))
}

func totalKey(peripheralType string) string {
	return fmt.Sprintf("%s:%s", totalPrefix, strings.ToUpper(peripheralType))
}

// StoreEvent сохраняет событие и индексирует его в sorted set по типу
func (r *RedisCache) StoreEvent(ctx context.Context, event models.PeripheralEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	seq, err := r.client.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	key := eventKey(event.PeripheralType, seq)
	list := listKey(event.PeripheralType)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, jsonData, r.ttl)
	pipe.ZAdd(ctx, list, redis.Z{Score: float64(seq), Member: key})
	pipe.Expire(ctx, list, r.ttl)
	pipe.Incr(ctx, totalKey(event.PeripheralType))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}
	return nil
}

// GetRecentEvents возвращает последние события типа, от новых к старым.
// Истекшие записи пропускаются и удаляются из индекса.
func (r *RedisCache) GetRecentEvents(ctx context.Context, peripheralType string, limit int) ([]models.PeripheralEvent, error) {
	list := listKey(peripheralType)

	keys, err := r.client.ZRevRange(ctx, list, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get event index: %w", err)
	}

	events := make([]models.PeripheralEvent, 0, len(keys))
	if len(keys) == 0 {
		return events, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	var expired []interface{}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			expired = append(expired, keys[i])
			continue
		}

		var event models.PeripheralEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %s: %w", keys[i], err)
		}
		events = append(events, event)
	}

	if len(expired) > 0 {
		// чистка индекса не критична для ответа
		_ = r.client.ZRem(ctx, list, expired...).Err()
	}

	return events, nil
}

// GetTotal получает число архивированных событий типа
func (r *RedisCache) GetTotal(ctx context.Context, peripheralType string) (int64, error) {
	val, err := r.client.Get(ctx, totalKey(peripheralType)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Close закрывает соединение с Redis
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Ping проверяет доступность Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetStats возвращает статистику пула соединений
func (r *RedisCache) GetStats() map[string]interface{} {
	stats := r.client.PoolStats()

	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
