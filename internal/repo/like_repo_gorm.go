package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"docshare/internal/domain"
)

type LikeRepo struct{ db *gorm.DB }

func NewLikeRepo(db *gorm.DB) *LikeRepo { return &LikeRepo{db: db} }

func (r *LikeRepo) Exists(ctx context.Context, userID, fileID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.FileLike{}).
		Where("user_id = ? AND file_id = ?", userID, fileID).Count(&n).Error
	return n > 0, domain.Storage("likes.exists", err)
}

func (r *LikeRepo) Insert(ctx context.Context, userID, fileID uint64, at time.Time) error {
	err := r.db.WithContext(ctx).Create(&domain.FileLike{UserID: userID, FileID: fileID, CreatedAt: at}).Error
	return domain.Storage("likes.insert", err)
}

func (r *LikeRepo) Delete(ctx context.Context, userID, fileID uint64) error {
	err := r.db.WithContext(ctx).Where("user_id = ? AND file_id = ?", userID, fileID).
		Delete(&domain.FileLike{}).Error
	return domain.Storage("likes.delete", err)
}

func (r *LikeRepo) DeleteByFile(ctx context.Context, fileID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("file_id = ?", fileID).Delete(&domain.FileLike{})
	return res.RowsAffected, domain.Storage("likes.delete_file", res.Error)
}

func (r *LikeRepo) FileIDsByUser(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&domain.FileLike{}).Where("user_id = ?", userID).
		Order("file_id").Pluck("file_id", &ids).Error
	return ids, domain.Storage("likes.list_user", err)
}

func (r *LikeRepo) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.FileLike{})
	return res.RowsAffected, domain.Storage("likes.delete_user", res.Error)
}

func (r *LikeRepo) CountByFile(ctx context.Context, fileID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.FileLike{}).Where("file_id = ?", fileID).Count(&n).Error
	return n, domain.Storage("likes.count", err)
}
