package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"docshare/internal/domain"
)

// Models 参与自动迁移的全部表
func Models() []any {
	return []any{
		&domain.User{}, &domain.File{}, &domain.Category{}, &domain.Tag{},
		&domain.FileTag{}, &domain.FileLike{}, &domain.AuditRecord{},
	}
}

func AutoMigrate(db *gorm.DB) error { return db.AutoMigrate(Models()...) }

// NewRepos 所有仓储绑定到同一个 *gorm.DB（普通连接或事务）
func NewRepos(db *gorm.DB) domain.Repos {
	return domain.Repos{
		Users:      NewUserRepo(db),
		Files:      NewFileRepo(db),
		Categories: NewCategoryRepo(db),
		Tags:       NewTagRepo(db),
		Likes:      NewLikeRepo(db),
		Ledger:     NewAuditRepo(db),
		Counters:   NewCounterRepo(db),
	}
}

type UnitOfWork struct {
	db    *gorm.DB
	query domain.Repos
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db, query: NewRepos(db)}
}

func (u *UnitOfWork) Query() domain.Repos { return u.query }

// Do 开启事务执行 fn；出错或 panic 时回滚
func (u *UnitOfWork) Do(ctx context.Context, fn func(r domain.Repos) error) error {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return domain.Storage("begin tx", tx.Error)
	}

	defer func() {
		if v := recover(); v != nil {
			tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(NewRepos(tx)); err != nil {
		if rerr := tx.Rollback().Error; rerr != nil {
			return fmt.Errorf("%w: rollback: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return domain.Storage("commit tx", err)
	}
	return nil
}
