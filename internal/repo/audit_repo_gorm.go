package repo

import (
	"context"

	"gorm.io/gorm"

	"docshare/internal/domain"
)

// AuditRepo 审计台账：只有 Append，没有 Update/Delete
type AuditRepo struct{ db *gorm.DB }

func NewAuditRepo(db *gorm.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Append(ctx context.Context, rec *domain.AuditRecord) error {
	if rec.ID != 0 {
		return domain.Validation("audit record already persisted: %d", rec.ID)
	}
	return domain.Storage("audit.append", r.db.WithContext(ctx).Create(rec).Error)
}

func (r *AuditRepo) ListBySubject(ctx context.Context, st domain.SubjectType, id uint64) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ?", st, id).
		Order("created_at, id").Find(&out).Error
	return out, domain.Storage("audit.list_subject", err)
}

func (r *AuditRepo) List(ctx context.Context, offset, limit int) ([]domain.AuditRecord, int64, error) {
	offset, limit = page(offset, limit)
	q := r.db.WithContext(ctx).Model(&domain.AuditRecord{}).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, domain.Storage("audit.count", err)
	}
	var out []domain.AuditRecord
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, domain.Storage("audit.list", err)
	}
	return out, total, nil
}

// ActorStats 每个操作人的文件审核量
func (r *AuditRepo) ActorStats(ctx context.Context) ([]domain.ActorStat, error) {
	var out []domain.ActorStat
	err := r.db.WithContext(ctx).Model(&domain.AuditRecord{}).
		Select(`actor_id,
			SUM(CASE WHEN operation_type = ? THEN 1 ELSE 0 END) AS approved,
			SUM(CASE WHEN operation_type = ? THEN 1 ELSE 0 END) AS rejected,
			SUM(CASE WHEN operation_type = ? THEN 1 ELSE 0 END) AS banned,
			COUNT(*) AS total`, domain.OpFileApprove, domain.OpFileReject, domain.OpFileBan).
		Where("subject_type = ?", domain.SubjectFile).
		Group("actor_id").Order("total DESC, actor_id").
		Scan(&out).Error
	return out, domain.Storage("audit.actor_stats", err)
}

func (r *AuditRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.AuditRecord{}).Count(&n).Error
	return n, domain.Storage("audit.count", err)
}
