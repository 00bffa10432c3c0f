package service

import (
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"docshare/internal/domain"
	"docshare/internal/policy"
	"docshare/internal/storage"
)

// Files 上传登记与所有者编辑
type Files struct {
	Deps
}

func NewFiles(d Deps) *Files { return &Files{Deps: d.withDefaults()} }

type UploadInput struct {
	Title       string
	Description string
	CategoryID  uint64
	TagIDs      []uint64
	FileName    string
	Size        int64
	ContentType string
	Body        io.Reader
}

// MetaInput nil 字段不修改；TagIDs 非 nil 时整体替换
type MetaInput struct {
	Title       *string
	Description *string
	CategoryID  *uint64
	TagIDs      *[]uint64
}

const (
	maxTitleLen = 200
	maxDescLen  = 2000
)

func validTitle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", domain.Validation("title is required")
	}
	if utf8.RuneCountInString(s) > maxTitleLen {
		return "", domain.Validation("title too long")
	}
	return s, nil
}

func validDesc(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxDescLen {
		return "", domain.Validation("description too long")
	}
	return s, nil
}

// uniqueIDs 去重并排序
func uniqueIDs(ids []uint64) []uint64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Upload 先写文件内容，再在一个工作单元内登记；登记失败删除已写入的内容
func (s *Files) Upload(ctx context.Context, owner domain.Actor, in UploadInput) (*domain.File, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	desc, err := validDesc(in.Description)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(in.FileName), "."))
	ft, ok := domain.FileTypeOf(ext)
	if !ok {
		return nil, domain.Validation("unsupported file type %q", ext)
	}
	if in.Body == nil {
		return nil, domain.Validation("file content is required")
	}
	tagIDs := uniqueIDs(in.TagIDs)

	// 提前拒绝被封禁的用户，避免写入无用的内容
	u, err := s.UoW.Query().Users.FindByID(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.Forbidden("user %d does not exist", owner.ID)
	}
	if u.UploadStatus == domain.UploadBanned {
		return nil, domain.Forbidden("upload is banned for user %d", owner.ID)
	}

	key := storage.NewKey("files", ext, s.Now())
	if err := s.Blobs.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return nil, domain.Storage("blob.put", err)
	}

	var out *domain.File
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		u, err := r.Users.FindByIDForUpdate(ctx, owner.ID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.Forbidden("user %d does not exist", owner.ID)
		}
		if u.UploadStatus == domain.UploadBanned {
			return domain.Forbidden("upload is banned for user %d", owner.ID)
		}
		if err := checkCategory(ctx, r, in.CategoryID); err != nil {
			return err
		}
		if err := checkTags(ctx, r, tagIDs); err != nil {
			return err
		}

		f := &domain.File{
			OwnerID:     u.ID,
			CategoryID:  in.CategoryID,
			Title:       title,
			Description: desc,
			FileName:    path.Base(in.FileName),
			FileExt:     ext,
			FileType:    ft,
			FileSize:    in.Size,
			StorageKey:  key,
			AuditStatus: domain.FilePending,
			CreatedAt:   s.Now(),
		}
		if err := r.Files.Create(ctx, f); err != nil {
			return err
		}
		if err := r.Files.LinkTags(ctx, f.ID, tagIDs); err != nil {
			return err
		}
		for _, tid := range tagIDs {
			if err := r.Counters.Add(ctx, domain.CounterTagUsage, tid, 1); err != nil {
				return err
			}
		}
		if err := r.Counters.Add(ctx, domain.CounterUserUploads, u.ID, 1); err != nil {
			return err
		}
		f.TagIDs = tagIDs
		out = f
		return nil
	})
	if err != nil {
		s.removeBlobs(ctx, []string{key})
		return nil, err
	}
	s.Log.Info("file uploaded", zap.Uint64("file_id", out.ID), zap.Uint64("owner_id", out.OwnerID), zap.String("key", key))
	return out, nil
}

func checkCategory(ctx context.Context, r domain.Repos, id uint64) error {
	c, err := r.Categories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil || !c.Enabled {
		return domain.Validation("category %d does not exist or is disabled", id)
	}
	return nil
}

func checkTags(ctx context.Context, r domain.Repos, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	tags, err := r.Tags.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(tags) != len(ids) {
		return domain.Validation("unknown tag in %v", ids)
	}
	return nil
}

// UpdateMeta 所有者修改标题/描述/分类/标签；不改审核状态
func (s *Files) UpdateMeta(ctx context.Context, actor domain.Actor, fileID uint64, in MetaInput) (*domain.File, error) {
	var meta domain.FileMeta
	if in.Title != nil {
		t, err := validTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		meta.Title = &t
	}
	if in.Description != nil {
		d, err := validDesc(*in.Description)
		if err != nil {
			return nil, err
		}
		meta.Description = &d
	}
	meta.CategoryID = in.CategoryID

	var out *domain.File
	err := s.UoW.Do(ctx, func(r domain.Repos) error {
		f, err := r.Files.FindByIDForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return domain.NotFound("file %d not found", fileID)
		}
		if err := policy.Check(actor, policy.FileEdit, policy.Target{OwnerID: f.OwnerID}); err != nil {
			return err
		}
		if meta.CategoryID != nil {
			if err := checkCategory(ctx, r, *meta.CategoryID); err != nil {
				return err
			}
		}
		if err := r.Files.UpdateMeta(ctx, f.ID, meta); err != nil {
			return err
		}
		if in.TagIDs != nil {
			if err := s.replaceTags(ctx, r, f.ID, uniqueIDs(*in.TagIDs)); err != nil {
				return err
			}
		}
		if out, err = r.Files.FindByID(ctx, f.ID); err != nil {
			return err
		}
		out.TagIDs, err = r.Files.TagIDs(ctx, f.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Files) replaceTags(ctx context.Context, r domain.Repos, fileID uint64, ids []uint64) error {
	if err := checkTags(ctx, r, ids); err != nil {
		return err
	}
	old, err := r.Files.UnlinkTags(ctx, fileID)
	if err != nil {
		return err
	}
	for _, tid := range old {
		if err := r.Counters.Add(ctx, domain.CounterTagUsage, tid, -1); err != nil {
			return err
		}
	}
	if err := r.Files.LinkTags(ctx, fileID, ids); err != nil {
		return err
	}
	for _, tid := range ids {
		if err := r.Counters.Add(ctx, domain.CounterTagUsage, tid, 1); err != nil {
			return err
		}
	}
	return nil
}

// SetCover 所有者上传封面；旧封面提交后删除
func (s *Files) SetCover(ctx context.Context, actor domain.Actor, fileID uint64, fileName string, size int64, contentType string, body io.Reader) (*domain.File, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ft, ok := domain.FileTypeOf(ext); !ok || ft != domain.FileTypeImage {
		return nil, domain.Validation("cover must be an image, got %q", ext)
	}
	f, err := s.UoW.Query().Files.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, domain.NotFound("file %d not found", fileID)
	}
	if err := policy.Check(actor, policy.FileEdit, policy.Target{OwnerID: f.OwnerID}); err != nil {
		return nil, err
	}

	key := storage.NewKey("covers", ext, s.Now())
	if err := s.Blobs.Put(ctx, key, body, size, contentType); err != nil {
		return nil, domain.Storage("blob.put", err)
	}
	var old string
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		cur, err := r.Files.FindByIDForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if cur == nil {
			return domain.NotFound("file %d not found", fileID)
		}
		old = cur.CoverKey
		if err := r.Files.UpdateMeta(ctx, fileID, domain.FileMeta{CoverKey: &key}); err != nil {
			return err
		}
		cur.CoverKey = key
		f = cur
		return nil
	})
	if err != nil {
		s.removeBlobs(ctx, []string{key})
		return nil, err
	}
	s.removeBlobs(ctx, []string{old})
	return f, nil
}

// Get 按可见性读取：已通过的文件所有人可见；其他状态仅所有者与审核员可见
func (s *Files) Get(ctx context.Context, actor domain.Actor, fileID uint64) (*domain.File, error) {
	r := s.UoW.Query()
	f, err := r.Files.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, domain.NotFound("file %d not found", fileID)
	}
	if f.AuditStatus != domain.FileApproved && actor.ID != f.OwnerID {
		// 按库里的角色判断，降级后旧令牌不再可见
		if err := authorize(ctx, r, actor, policy.FileViewAny); err != nil {
			return nil, domain.Forbidden("file %d is %s", fileID, f.AuditStatus)
		}
	}
	if f.TagIDs, err = r.Files.TagIDs(ctx, f.ID); err != nil {
		return nil, err
	}
	return f, nil
}

// Mine 当前用户的全部上传
func (s *Files) Mine(ctx context.Context, actor domain.Actor) ([]domain.File, error) {
	return s.UoW.Query().Files.ListByOwner(ctx, actor.ID)
}
