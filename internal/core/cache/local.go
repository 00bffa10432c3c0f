package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Local 进程内 LRU，未配置 redis 时使用。TTL 在创建时固定，GetOrLoad 的 ttl 参数被忽略
type Local struct {
	lru *expirable.LRU[string, []byte]
	sf  singleflight.Group
}

func NewLocal(size int, ttl time.Duration) *Local {
	if size <= 0 {
		size = 256
	}
	return &Local{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (l *Local) GetOrLoad(ctx context.Context, key string, _ time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, ok := l.lru.Get(key); ok {
		cacheLookups.WithLabelValues("local", "hit").Inc()
		return b, nil
	}
	cacheLookups.WithLabelValues("local", "miss").Inc()
	v, err, _ := l.sf.Do(key, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		l.lru.Add(key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (l *Local) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		l.lru.Remove(k)
	}
	return nil
}

func (l *Local) Len() int { return l.lru.Len() }
