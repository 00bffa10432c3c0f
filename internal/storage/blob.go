// Package storage 文件内容的不透明存储，按 key 存取
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrBlobNotFound = errors.New("blob not found")

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除不存在的 key 不报错
	Delete(ctx context.Context, key string) error
}

// NewKey 生成 files/2026/01/<uuid>.pdf 形式的 key
func NewKey(prefix, ext string, now time.Time) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return path.Join(prefix, now.Format("2006/01"), name)
}

// cleanKey 拒绝绝对路径与 .. 穿越
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty blob key")
	}
	c := path.Clean("/" + key)[1:]
	if c == "" || c != strings.TrimPrefix(key, "/") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return c, nil
}
