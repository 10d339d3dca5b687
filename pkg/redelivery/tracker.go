package redelivery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-redis/redis/v8"
)

// 同一則訊息的重投計數器以 body 雜湊為 key
// broker 本身不提供跨 redelivery 的計數，所以放 redis 旁路計數
const (
	keyPrefix = "redelivery:"

	// counterTTL 計數器存活時間，超過即視為新一輪投遞
	counterTTL = 24 * time.Hour
)

// Tracker 追蹤單一訊息被重新投遞的次數
type Tracker interface {
	// Attempts 累加並回傳該訊息目前的失敗次數
	Attempts(ctx context.Context, body []byte) (int, error)
	// Clear 處理成功（或終止處理）後移除計數
	Clear(ctx context.Context, body []byte) error
}

type redisTracker struct {
	client *redis.Client
}

// NewRedisTracker create a redis backed redelivery tracker
func NewRedisTracker(client *redis.Client) Tracker {
	return &redisTracker{client: client}
}

func messageKey(body []byte) string {
	sum := sha256.Sum256(body)
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (t *redisTracker) Attempts(ctx context.Context, body []byte) (int, error) {
	key := messageKey(body)

	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// 第一次失敗時設定 TTL，避免殘留 key 永久堆積
	if n == 1 {
		if err := t.client.Expire(ctx, key, counterTTL).Err(); err != nil {
			return int(n), err
		}
	}

	return int(n), nil
}

func (t *redisTracker) Clear(ctx context.Context, body []byte) error {
	return t.client.Del(ctx, messageKey(body)).Err()
}
