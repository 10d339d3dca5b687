package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisConnection init Redis connection have retry
func NewRedisConnection(d RedisConnection) (*redis.Client, error) {
	var err error

	rdb := redis.NewClient(&redis.Options{
		Addr:     d.Addr,
		Password: d.Password,
		DB:       d.DB,
	})

	for i := 1; i <= d.RetryCount; i++ {
		// 测试连接
		err = rdb.Ping(context.Background()).Err()
		if err == nil {
			log.Printf("redis[%s] 連線成功 (嘗試 %d 次)", d.Addr, i)
			return rdb, nil
		}

		log.Printf("redis[%s] 連線失敗 (嘗試 %d/%d): %v", d.Addr, i, d.RetryCount, err)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to redis[%s] after %d retries: %w", d.Addr, d.RetryCount, err)
}
