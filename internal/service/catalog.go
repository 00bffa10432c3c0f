package service

import (
	"context"
	"strings"

	"docshare/internal/domain"
	"docshare/internal/policy"
)

// Catalog 分类与标签
type Catalog struct {
	Deps
}

func NewCatalog(d Deps) *Catalog { return &Catalog{Deps: d.withDefaults()} }

type CategoryInput struct {
	Name        string
	Description string
	ParentID    *uint64
	SortOrder   int
	Enabled     bool
}

type TagInput struct {
	Name        string
	Description string
	Enabled     bool
}

func cleanName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", domain.Validation("name is required")
	}
	if len([]rune(s)) > 64 {
		return "", domain.Validation("name too long")
	}
	return s, nil
}

// authorize 事务内重新读取操作人再做策略判断
func authorize(ctx context.Context, r domain.Repos, actor domain.Actor, action policy.Action) error {
	who, err := loadActor(ctx, r, actor)
	if err != nil {
		return err
	}
	return policy.Check(who, action, policy.Target{})
}

func (s *Catalog) CreateCategory(ctx context.Context, actor domain.Actor, in CategoryInput) (*domain.Category, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	c := &domain.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		ParentID:    in.ParentID,
		SortOrder:   in.SortOrder,
		Enabled:     in.Enabled,
	}
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		if err := authorize(ctx, r, actor, policy.CategoryCreate); err != nil {
			return err
		}
		if err := uniqueCategory(ctx, r, name, 0); err != nil {
			return err
		}
		if err := checkParent(ctx, r, c.ParentID, 0); err != nil {
			return err
		}
		return r.Categories.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Catalog) UpdateCategory(ctx context.Context, actor domain.Actor, id uint64, in CategoryInput) (*domain.Category, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	var out *domain.Category
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		if err := authorize(ctx, r, actor, policy.CategoryUpdate); err != nil {
			return err
		}
		c, err := r.Categories.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.NotFound("category %d not found", id)
		}
		if err := uniqueCategory(ctx, r, name, id); err != nil {
			return err
		}
		if err := checkParent(ctx, r, in.ParentID, id); err != nil {
			return err
		}
		c.Name = name
		c.Description = strings.TrimSpace(in.Description)
		c.ParentID = in.ParentID
		c.SortOrder = in.SortOrder
		c.Enabled = in.Enabled
		if err := r.Categories.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func uniqueCategory(ctx context.Context, r domain.Repos, name string, self uint64) error {
	c, err := r.Categories.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if c != nil && c.ID != self {
		return domain.ConflictMsg("category %q already exists", name)
	}
	return nil
}

func checkParent(ctx context.Context, r domain.Repos, parent *uint64, self uint64) error {
	if parent == nil {
		return nil
	}
	if *parent == self {
		return domain.Validation("category cannot be its own parent")
	}
	p, err := r.Categories.FindByID(ctx, *parent)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.Validation("parent category %d does not exist", *parent)
	}
	return nil
}

// DeleteCategory 有子分类或文件时拒绝
func (s *Catalog) DeleteCategory(ctx context.Context, actor domain.Actor, id uint64) error {
	return s.UoW.Do(ctx, func(r domain.Repos) error {
		if err := authorize(ctx, r, actor, policy.CategoryDelete); err != nil {
			return err
		}
		c, err := r.Categories.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.NotFound("category %d not found", id)
		}
		n, err := r.Categories.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ConflictMsg("category %d has %d children", id, n)
		}
		if n, err = r.Files.CountByCategory(ctx, id); err != nil {
			return err
		}
		if n > 0 {
			return domain.ConflictMsg("category %d has %d files", id, n)
		}
		return r.Categories.Delete(ctx, id)
	})
}

func (s *Catalog) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.UoW.Query().Categories.List(ctx)
}

func (s *Catalog) CreateTag(ctx context.Context, actor domain.Actor, in TagInput) (*domain.Tag, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	t := &domain.Tag{Name: name, Description: strings.TrimSpace(in.Description), Enabled: in.Enabled}
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		if err := authorize(ctx, r, actor, policy.TagCreate); err != nil {
			return err
		}
		if err := uniqueTag(ctx, r, name, 0); err != nil {
			return err
		}
		return r.Tags.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Catalog) UpdateTag(ctx context.Context, actor domain.Actor, id uint64, in TagInput) (*domain.Tag, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	var out *domain.Tag
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		if err := authorize(ctx, r, actor, policy.TagUpdate); err != nil {
			return err
		}
		t, err := r.Tags.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.NotFound("tag %d not found", id)
		}
		if err := uniqueTag(ctx, r, name, id); err != nil {
			return err
		}
		t.Name = name
		t.Description = strings.TrimSpace(in.Description)
		t.Enabled = in.Enabled
		if err := r.Tags.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

func uniqueTag(ctx context.Context, r domain.Repos, name string, self uint64) error {
	t, err := r.Tags.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if t != nil && t.ID != self {
		return domain.ConflictMsg("tag %q already exists", name)
	}
	return nil
}

// DeleteTag 仍被文件引用时拒绝
func (s *Catalog) DeleteTag(ctx context.Context, actor domain.Actor, id uint64) error {
	return s.UoW.Do(ctx, func(r domain.Repos) error {
		if err := authorize(ctx, r, actor, policy.TagDelete); err != nil {
			return err
		}
		t, err := r.Tags.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.NotFound("tag %d not found", id)
		}
		n, err := r.Files.CountByTag(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ConflictMsg("tag %d is used by %d files", id, n)
		}
		return r.Tags.Delete(ctx, id)
	})
}

func (s *Catalog) Tags(ctx context.Context) ([]domain.Tag, error) {
	return s.UoW.Query().Tags.List(ctx)
}
