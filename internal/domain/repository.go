package domain

import (
	"context"
	"time"
)

// 所有仓储方法：记录不存在时返回 (nil, nil)，底层失败返回 StorageError

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uint64) (*User, error)
	// FindByIDForUpdate 在事务内加行锁读取
	FindByIDForUpdate(ctx context.Context, id uint64) (*User, error)
	FindByLogin(ctx context.Context, login string) (*User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	// UpdateUploadStatus 条件更新：仅当当前值为 expected 时写入，返回是否命中
	UpdateUploadStatus(ctx context.Context, id uint64, expected, next UploadStatus, st Stamp) (bool, error)
	UpdateRole(ctx context.Context, id uint64, expected, next Role, st Stamp) (bool, error)
	TouchLogin(ctx context.Context, id uint64, at time.Time) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, offset, limit int) ([]User, int64, error)
	Count(ctx context.Context) (int64, error)
}

type FileRepository interface {
	Create(ctx context.Context, f *File) error
	FindByID(ctx context.Context, id uint64) (*File, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*File, error)
	// UpdateStatus 条件更新 audit_status，返回是否命中
	UpdateStatus(ctx context.Context, id uint64, expected, next FileStatus, st Stamp) (bool, error)
	UpdateMeta(ctx context.Context, id uint64, m FileMeta) error
	Delete(ctx context.Context, id uint64) error
	ListByOwner(ctx context.Context, ownerID uint64) ([]File, error)
	ListByStatus(ctx context.Context, st FileStatus, offset, limit int) ([]File, int64, error)
	CountBannedByOwner(ctx context.Context, ownerID uint64) (int64, error)
	CountByCategory(ctx context.Context, categoryID uint64) (int64, error)
	CountByStatus(ctx context.Context) (map[FileStatus]int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	Hot(ctx context.Context, limit int) ([]File, error)

	TagIDs(ctx context.Context, fileID uint64) ([]uint64, error)
	LinkTags(ctx context.Context, fileID uint64, tagIDs []uint64) error
	// UnlinkTags 删除文件的全部标签关联，返回被删除的 tag id
	UnlinkTags(ctx context.Context, fileID uint64) ([]uint64, error)
	CountByTag(ctx context.Context, tagID uint64) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	FindByID(ctx context.Context, id uint64) (*Category, error)
	FindByName(ctx context.Context, name string) (*Category, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id uint64) error
	CountChildren(ctx context.Context, id uint64) (int64, error)
	List(ctx context.Context) ([]Category, error)
}

type TagRepository interface {
	Create(ctx context.Context, t *Tag) error
	FindByID(ctx context.Context, id uint64) (*Tag, error)
	FindByName(ctx context.Context, name string) (*Tag, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]Tag, error)
	Update(ctx context.Context, t *Tag) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]Tag, error)
	Hot(ctx context.Context, limit int) ([]Tag, error)
}

type LikeRepository interface {
	Exists(ctx context.Context, userID, fileID uint64) (bool, error)
	Insert(ctx context.Context, userID, fileID uint64, at time.Time) error
	Delete(ctx context.Context, userID, fileID uint64) error
	DeleteByFile(ctx context.Context, fileID uint64) (int64, error)
	// FileIDsByUser 用户点过赞的文件
	FileIDsByUser(ctx context.Context, userID uint64) ([]uint64, error)
	DeleteByUser(ctx context.Context, userID uint64) (int64, error)
	CountByFile(ctx context.Context, fileID uint64) (int64, error)
}

// AuditLedger 只追加
type AuditLedger interface {
	Append(ctx context.Context, r *AuditRecord) error
	// ListBySubject 按 (created_at, id) 升序
	ListBySubject(ctx context.Context, st SubjectType, id uint64) ([]AuditRecord, error)
	// List 按 id 倒序分页
	List(ctx context.Context, offset, limit int) ([]AuditRecord, int64, error)
	ActorStats(ctx context.Context) ([]ActorStat, error)
	Count(ctx context.Context) (int64, error)
}

// CounterKey 派生计数器
type CounterKey int

const (
	CounterFileViews CounterKey = iota + 1
	CounterFileDownloads
	CounterFileLikes
	CounterUserUploads
	CounterUserBannedFiles
	CounterTagUsage
)

func AllCounterKeys() []CounterKey {
	return []CounterKey{
		CounterFileViews, CounterFileDownloads, CounterFileLikes,
		CounterUserUploads, CounterUserBannedFiles, CounterTagUsage,
	}
}

type CounterProjection interface {
	// Add 计数器加 delta；结果不会小于 0
	Add(ctx context.Context, key CounterKey, id uint64, delta int64) error
	Get(ctx context.Context, key CounterKey, id uint64) (int64, error)
	Set(ctx context.Context, key CounterKey, id uint64, v int64) error
}

// Repos 一次工作单元内可用的全部仓储，共享同一事务
type Repos struct {
	Users      UserRepository
	Files      FileRepository
	Categories CategoryRepository
	Tags       TagRepository
	Likes      LikeRepository
	Ledger     AuditLedger
	Counters   CounterProjection
}

// UnitOfWork 状态变更必须经过 Do；fn 返回错误或 panic 时整体回滚
type UnitOfWork interface {
	Do(ctx context.Context, fn func(r Repos) error) error
	// Query 非事务只读访问
	Query() Repos
}
