package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidwuwu001/vmail/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// Cache Redis 缓存实现，用于入站路由的地址查找热路径。
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache 创建 Redis 缓存实例。
func NewCache(addr, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

func addressKey(address string) string {
	return fmt.Sprintf("mailbox:addr:%s", address)
}

// CacheMailbox 按地址缓存邮箱信息。
func (c *Cache) CacheMailbox(ctx context.Context, mailbox *domain.Mailbox) error {
	data, err := json.Marshal(mailbox)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, addressKey(mailbox.Address), data, c.ttl).Err()
}

// GetMailboxByAddress 按地址获取缓存的邮箱信息。
// 缓存条目可能滞后于存储，调用方仍需检查过期时间。
func (c *Cache) GetMailboxByAddress(ctx context.Context, address string) (*domain.Mailbox, error) {
	data, err := c.client.Get(ctx, addressKey(address)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var mailbox domain.Mailbox
	if err := json.Unmarshal([]byte(data), &mailbox); err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// InvalidateMailbox 删除地址对应的缓存条目。
func (c *Cache) InvalidateMailbox(ctx context.Context, address string) error {
	return c.client.Del(ctx, addressKey(address)).Err()
}

// Health 检查 Redis 连接状态。
func (c *Cache) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接。
func (c *Cache) Close() error {
	return c.client.Close()
}
