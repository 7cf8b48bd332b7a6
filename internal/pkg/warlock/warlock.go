// Package warlock 提供按战争 ID 互斥的逻辑锁。
// 结算期间调度器可能因慢 tick 或重启对同一场战争重复触发，
// 锁保证同一时刻只有一个结算流程在跑；即使锁被绕过，
// 结算本身的幂等检查仍是最终的正确性兜底。
package warlock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker 战争结算互斥锁
type Locker interface {
	// Acquire 尝试获取 warID 的独占锁。
	// 成功时返回释放函数；锁已被持有时 acquired=false。
	Acquire(ctx context.Context, warID string, ttl time.Duration) (release func(), acquired bool, err error)
}

// RedisLocker 基于 Redis SET NX 的租约锁实现
type RedisLocker struct {
	client redis.Cmdable
}

// NewRedisLocker 创建 Redis 锁实例
func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client}
}

// 释放脚本：只有仍持有自己 token 的调用方才能删除锁，
// 避免 TTL 过期后误删他人的锁。
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, warID string, ttl time.Duration) (func(), bool, error) {
	key := "war:lock:" + warID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
