package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docshare/internal/domain"
)

type FileRepo struct{ db *gorm.DB }

func NewFileRepo(db *gorm.DB) *FileRepo { return &FileRepo{db: db} }

func (r *FileRepo) Create(ctx context.Context, f *domain.File) error {
	return domain.Storage("files.create", r.db.WithContext(ctx).Create(f).Error)
}

func (r *FileRepo) FindByID(ctx context.Context, id uint64) (*domain.File, error) {
	return firstOrNil[domain.File](r.db.WithContext(ctx), "files.find", "id = ?", id)
}

func (r *FileRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*domain.File, error) {
	return firstOrNil[domain.File](forUpdate(r.db.WithContext(ctx)), "files.lock", "id = ?", id)
}

func (r *FileRepo) UpdateStatus(ctx context.Context, id uint64, expected, next domain.FileStatus, st domain.Stamp) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.File{}).
		Where("id = ? AND audit_status = ?", id, expected).
		Updates(map[string]any{
			"audit_status":  next,
			"audit_user_id": st.ActorID,
			"audit_time":    st.At,
			"audit_remark":  st.Remark,
		})
	return res.RowsAffected == 1, domain.Storage("files.update_status", res.Error)
}

func (r *FileRepo) UpdateMeta(ctx context.Context, id uint64, m domain.FileMeta) error {
	fields := map[string]any{}
	if m.Title != nil {
		fields["title"] = *m.Title
	}
	if m.Description != nil {
		fields["description"] = *m.Description
	}
	if m.CoverKey != nil {
		fields["cover_key"] = *m.CoverKey
	}
	if m.CategoryID != nil {
		fields["category_id"] = *m.CategoryID
	}
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&domain.File{}).Where("id = ?", id).Updates(fields).Error
	return domain.Storage("files.update_meta", err)
}

func (r *FileRepo) Delete(ctx context.Context, id uint64) error {
	return domain.Storage("files.delete", r.db.WithContext(ctx).Delete(&domain.File{}, id).Error)
}

func (r *FileRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]domain.File, error) {
	var out []domain.File
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&out).Error
	return out, domain.Storage("files.list_owner", err)
}

// ListByStatus 按创建时间升序，待审核大厅先处理早提交的
func (r *FileRepo) ListByStatus(ctx context.Context, st domain.FileStatus, offset, limit int) ([]domain.File, int64, error) {
	offset, limit = page(offset, limit)
	q := r.db.WithContext(ctx).Model(&domain.File{}).Where("audit_status = ?", st).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, domain.Storage("files.count_status", err)
	}
	var out []domain.File
	if err := q.Order("created_at, id").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, domain.Storage("files.list_status", err)
	}
	return out, total, nil
}

func (r *FileRepo) CountBannedByOwner(ctx context.Context, ownerID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.File{}).
		Where("owner_id = ? AND audit_status = ?", ownerID, domain.FileBanned).Count(&n).Error
	return n, domain.Storage("files.count_banned", err)
}

func (r *FileRepo) CountByCategory(ctx context.Context, categoryID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.File{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, domain.Storage("files.count_category", err)
}

func (r *FileRepo) CountByStatus(ctx context.Context) (map[domain.FileStatus]int64, error) {
	var rows []struct {
		AuditStatus domain.FileStatus
		N           int64
	}
	err := r.db.WithContext(ctx).Model(&domain.File{}).
		Select("audit_status, count(*) AS n").Group("audit_status").Scan(&rows).Error
	if err != nil {
		return nil, domain.Storage("files.count_by_status", err)
	}
	out := make(map[domain.FileStatus]int64, len(rows))
	for _, row := range rows {
		out[row.AuditStatus] = row.N
	}
	return out, nil
}

func (r *FileRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.File{}).Where("created_at >= ?", since).Count(&n).Error
	return n, domain.Storage("files.count_since", err)
}

// Hot 已通过的文件按浏览+下载量排序
func (r *FileRepo) Hot(ctx context.Context, limit int) ([]domain.File, error) {
	_, limit = page(0, limit)
	var out []domain.File
	err := r.db.WithContext(ctx).Where("audit_status = ?", domain.FileApproved).
		Order("view_count + download_count DESC, id").Limit(limit).Find(&out).Error
	return out, domain.Storage("files.hot", err)
}

func (r *FileRepo) TagIDs(ctx context.Context, fileID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&domain.FileTag{}).Where("file_id = ?", fileID).
		Order("tag_id").Pluck("tag_id", &ids).Error
	return ids, domain.Storage("file_tags.list", err)
}

func (r *FileRepo) LinkTags(ctx context.Context, fileID uint64, tagIDs []uint64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]domain.FileTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, domain.FileTag{FileID: fileID, TagID: id})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	return domain.Storage("file_tags.link", err)
}

func (r *FileRepo) UnlinkTags(ctx context.Context, fileID uint64) ([]uint64, error) {
	ids, err := r.TagIDs(ctx, fileID)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	err = r.db.WithContext(ctx).Where("file_id = ?", fileID).Delete(&domain.FileTag{}).Error
	return ids, domain.Storage("file_tags.unlink", err)
}

func (r *FileRepo) CountByTag(ctx context.Context, tagID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.FileTag{}).Where("tag_id = ?", tagID).Count(&n).Error
	return n, domain.Storage("file_tags.count", err)
}
