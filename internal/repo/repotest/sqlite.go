// Package repotest 测试用数据库：内存 sqlite，或容器里的 postgres
package repotest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"docshare/internal/core/database"
	"docshare/internal/repo"
)

// NewSQLite 每个测试一个独立的内存库，已完成迁移。
// 单连接：事务天然串行，事务内所有访问必须走 tx。
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
