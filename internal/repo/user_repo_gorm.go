package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"docshare/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return domain.Storage("users.create", r.db.WithContext(ctx).Create(u).Error)
}

func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	return firstOrNil[domain.User](r.db.WithContext(ctx), "users.find", "id = ?", id)
}

func (r *UserRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*domain.User, error) {
	return firstOrNil[domain.User](forUpdate(r.db.WithContext(ctx)), "users.lock", "id = ?", id)
}

// FindByLogin 用户名或邮箱
func (r *UserRepo) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	return firstOrNil[domain.User](r.db.WithContext(ctx), "users.find_login", "username = ? OR email = ?", login, login)
}

func (r *UserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ? OR email = ?", username, email).Count(&n).Error
	return n > 0, domain.Storage("users.exists", err)
}

func (r *UserRepo) UpdateUploadStatus(ctx context.Context, id uint64, expected, next domain.UploadStatus, st domain.Stamp) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND upload_status = ?", id, expected).
		Updates(map[string]any{
			"upload_status":    next,
			"last_operator_id": st.ActorID,
			"last_operated_at": st.At,
			"last_remark":      st.Remark,
		})
	return res.RowsAffected == 1, domain.Storage("users.update_upload_status", res.Error)
}

func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, expected, next domain.Role, st domain.Stamp) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND role = ?", id, expected).
		Updates(map[string]any{
			"role":             next,
			"last_operator_id": st.ActorID,
			"last_operated_at": st.At,
			"last_remark":      st.Remark,
		})
	return res.RowsAffected == 1, domain.Storage("users.update_role", res.Error)
}

func (r *UserRepo) TouchLogin(ctx context.Context, id uint64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
	return domain.Storage("users.touch_login", err)
}

func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return domain.Storage("users.delete", r.db.WithContext(ctx).Delete(&domain.User{}, id).Error)
}

func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	offset, limit = page(offset, limit)
	var users []domain.User
	tx := r.db.WithContext(ctx).Model(&domain.User{}).Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, domain.Storage("users.count", err)
	}
	if err := tx.Offset(offset).Limit(limit).Order("created_at desc, id desc").Find(&users).Error; err != nil {
		return nil, 0, domain.Storage("users.list", err)
	}
	return users, total, nil
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error
	return n, domain.Storage("users.count", err)
}
