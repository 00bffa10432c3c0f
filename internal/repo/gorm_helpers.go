package repo

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docshare/internal/domain"
)

// forUpdate SELECT ... FOR UPDATE；sqlite 没有行锁，靠单连接串行化
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// firstOrNil 未找到返回 (nil, nil)
func firstOrNil[T any](db *gorm.DB, op string, conds ...any) (*T, error) {
	var v T
	err := db.First(&v, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	return &v, nil
}

func page(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
