package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"docshare/internal/domain"
)

type counterColumn struct {
	table  string
	column string
}

var counterColumns = map[domain.CounterKey]counterColumn{
	domain.CounterFileViews:       {"files", "view_count"},
	domain.CounterFileDownloads:   {"files", "download_count"},
	domain.CounterFileLikes:       {"files", "like_count"},
	domain.CounterUserUploads:     {"users", "upload_count"},
	domain.CounterUserBannedFiles: {"users", "banned_file_count"},
	domain.CounterTagUsage:        {"tags", "usage_count"},
}

// CounterRepo 计数器投影，直接在实体行上做原子加减
type CounterRepo struct{ db *gorm.DB }

func NewCounterRepo(db *gorm.DB) *CounterRepo { return &CounterRepo{db: db} }

func (r *CounterRepo) col(key domain.CounterKey) (counterColumn, error) {
	c, ok := counterColumns[key]
	if !ok {
		return c, domain.Validation("unknown counter %d", key)
	}
	return c, nil
}

// Add 递减到 0 以下时不写入
func (r *CounterRepo) Add(ctx context.Context, key domain.CounterKey, id uint64, delta int64) error {
	if delta == 0 {
		return nil
	}
	c, err := r.col(key)
	if err != nil {
		return err
	}
	q := r.db.WithContext(ctx).Table(c.table).Where("id = ?", id)
	if delta < 0 {
		q = q.Where(c.column+" >= ?", -delta)
	}
	err = q.UpdateColumn(c.column, gorm.Expr(c.column+" + ?", delta)).Error
	return domain.Storage(fmt.Sprintf("counter.add %s.%s", c.table, c.column), err)
}

func (r *CounterRepo) Get(ctx context.Context, key domain.CounterKey, id uint64) (int64, error) {
	c, err := r.col(key)
	if err != nil {
		return 0, err
	}
	var v int64
	err = r.db.WithContext(ctx).Table(c.table).Where("id = ?", id).Select(c.column).Scan(&v).Error
	return v, domain.Storage("counter.get "+c.column, err)
}

// Set 对账时覆盖
func (r *CounterRepo) Set(ctx context.Context, key domain.CounterKey, id uint64, v int64) error {
	c, err := r.col(key)
	if err != nil {
		return err
	}
	if v < 0 {
		return domain.Validation("counter %s must be >= 0", c.column)
	}
	err = r.db.WithContext(ctx).Table(c.table).Where("id = ?", id).UpdateColumn(c.column, v).Error
	return domain.Storage("counter.set "+c.column, err)
}
