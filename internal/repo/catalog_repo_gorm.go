package repo

import (
	"context"

	"gorm.io/gorm"

	"docshare/internal/domain"
)

type CategoryRepo struct{ db *gorm.DB }

func NewCategoryRepo(db *gorm.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	return domain.Storage("categories.create", r.db.WithContext(ctx).Create(c).Error)
}

func (r *CategoryRepo) FindByID(ctx context.Context, id uint64) (*domain.Category, error) {
	return firstOrNil[domain.Category](r.db.WithContext(ctx), "categories.find", "id = ?", id)
}

func (r *CategoryRepo) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	return firstOrNil[domain.Category](r.db.WithContext(ctx), "categories.find_name", "name = ?", name)
}

// Update 整行保存（含 enabled=false、parent_id=NULL）
func (r *CategoryRepo) Update(ctx context.Context, c *domain.Category) error {
	return domain.Storage("categories.update", r.db.WithContext(ctx).Save(c).Error)
}

func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	return domain.Storage("categories.delete", r.db.WithContext(ctx).Delete(&domain.Category{}, id).Error)
}

func (r *CategoryRepo) CountChildren(ctx context.Context, id uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Category{}).Where("parent_id = ?", id).Count(&n).Error
	return n, domain.Storage("categories.count_children", err)
}

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.WithContext(ctx).Order("sort_order, id").Find(&out).Error
	return out, domain.Storage("categories.list", err)
}

type TagRepo struct{ db *gorm.DB }

func NewTagRepo(db *gorm.DB) *TagRepo { return &TagRepo{db: db} }

func (r *TagRepo) Create(ctx context.Context, t *domain.Tag) error {
	return domain.Storage("tags.create", r.db.WithContext(ctx).Create(t).Error)
}

func (r *TagRepo) FindByID(ctx context.Context, id uint64) (*domain.Tag, error) {
	return firstOrNil[domain.Tag](r.db.WithContext(ctx), "tags.find", "id = ?", id)
}

func (r *TagRepo) FindByName(ctx context.Context, name string) (*domain.Tag, error) {
	return firstOrNil[domain.Tag](r.db.WithContext(ctx), "tags.find_name", "name = ?", name)
}

func (r *TagRepo) FindByIDs(ctx context.Context, ids []uint64) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Tag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, domain.Storage("tags.find_ids", err)
}

func (r *TagRepo) Update(ctx context.Context, t *domain.Tag) error {
	return domain.Storage("tags.update", r.db.WithContext(ctx).Save(t).Error)
}

func (r *TagRepo) Delete(ctx context.Context, id uint64) error {
	return domain.Storage("tags.delete", r.db.WithContext(ctx).Delete(&domain.Tag{}, id).Error)
}

func (r *TagRepo) List(ctx context.Context) ([]domain.Tag, error) {
	var out []domain.Tag
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, domain.Storage("tags.list", err)
}

func (r *TagRepo) Hot(ctx context.Context, limit int) ([]domain.Tag, error) {
	_, limit = page(0, limit)
	var out []domain.Tag
	err := r.db.WithContext(ctx).Where("enabled = ?", true).
		Order("usage_count DESC, id").Limit(limit).Find(&out).Error
	return out, domain.Storage("tags.hot", err)
}
