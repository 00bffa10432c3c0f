package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Key 带统一前缀的缓存键，例：Key("stats", "hot_files", "10")
func Key(parts ...string) string { return "docshare:" + strings.Join(parts, ":") }

// GetOrLoadJSON 以 JSON 存取任意类型；load 返回 nil 时缓存 "null"。
// 缓存内容解不开（结构升级后的旧值）时删掉并直接回源
func GetOrLoadJSON[T any](
	c Store,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	var out T
	if e := json.Unmarshal(b, &out); e != nil {
		if de := c.Delete(ctx, key); de != nil {
			return nil, fmt.Errorf("cache %s: decode: %w", key, e)
		}
		return load(ctx)
	}
	return &out, nil
}

// GetOrLoadList 列表结果；空列表也缓存，返回值不为 nil
func GetOrLoadList[T any](
	c Store,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) ([]T, error),
) ([]T, error) {
	out, err := GetOrLoadJSON(c, ctx, key, ttl, func(ctx context.Context) (*[]T, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			v = []T{}
		}
		return &v, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []T{}, nil
	}
	return *out, nil
}
