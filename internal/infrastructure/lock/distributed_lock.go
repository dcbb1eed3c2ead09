package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// 基于 Redis 的分布式锁：
//   加锁 SET key value NX EX timeout，value 标识持有者
//   释放时用 Lua 脚本先比对 value 再删除，避免删掉别人续上的锁

var ErrLockFailed = errors.New("获取分布式锁失败")

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Unlock 释放锁，只删除自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	return l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Err()
}

// RunExclusive runs fn only if the lock could be taken. It reports whether fn ran.
func (l *DistributedLock) RunExclusive(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	ok, err := l.TryLock(ctx)
	if err != nil || !ok {
		return false, err
	}
	// 释放锁不受调用方 ctx 取消的影响
	defer l.Unlock(context.Background())
	return true, fn(ctx)
}

// NewSweepLock 逾期扫描锁：多实例部署时同一时刻只有一个实例执行扫描。
// owner 建议使用实例标识，便于排查谁持有锁。
func NewSweepLock(client *redis.Client, owner string, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(client, "pawn:lock:overdue-sweep", owner, ttl)
}
