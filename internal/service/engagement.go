package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"docshare/internal/domain"
	"docshare/internal/policy"
	"docshare/internal/storage"
)

// Engagement 浏览/下载/点赞计数
type Engagement struct {
	Deps
}

func NewEngagement(d Deps) *Engagement { return &Engagement{Deps: d.withDefaults()} }

type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

// View 仅已通过的文件可浏览；浏览数 +1
func (s *Engagement) View(ctx context.Context, fileID uint64) (*domain.File, error) {
	var out *domain.File
	err := s.UoW.Do(ctx, func(r domain.Repos) error {
		f, err := visibleFile(ctx, r, fileID)
		if err != nil {
			return err
		}
		if err := r.Counters.Add(ctx, domain.CounterFileViews, f.ID, 1); err != nil {
			return err
		}
		f.ViewCount++
		if f.TagIDs, err = r.Files.TagIDs(ctx, f.ID); err != nil {
			return err
		}
		out = f
		return nil
	})
	return out, err
}

// Download 打开文件内容并记一次下载；调用方负责关闭 reader
func (s *Engagement) Download(ctx context.Context, fileID uint64) (*domain.File, io.ReadCloser, error) {
	if s.Blobs == nil {
		return nil, nil, domain.Storage("blob.open", errors.New("blob store not configured"))
	}
	f, err := visibleFile(ctx, s.UoW.Query(), fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.Blobs.Open(ctx, f.StorageKey)
	if errors.Is(err, storage.ErrBlobNotFound) {
		s.Log.Error("blob missing for stored file", zap.Uint64("file_id", f.ID), zap.String("key", f.StorageKey))
		return nil, nil, domain.NotFound("content of file %d not found", f.ID)
	}
	if err != nil {
		return nil, nil, domain.Storage("blob.open", err)
	}
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		return r.Counters.Add(ctx, domain.CounterFileDownloads, f.ID, 1)
	})
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	f.DownloadCount++
	return f, rc, nil
}

func visibleFile(ctx context.Context, r domain.Repos, id uint64) (*domain.File, error) {
	f, err := r.Files.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, domain.NotFound("file %d not found", id)
	}
	if f.AuditStatus != domain.FileApproved {
		return nil, domain.Forbidden("file %d is %s", id, f.AuditStatus)
	}
	return f, nil
}

// ToggleLike 点赞/取消点赞；关系与计数一起提交
func (s *Engagement) ToggleLike(ctx context.Context, userID, fileID uint64) (LikeResult, error) {
	var res LikeResult
	err := s.UoW.Do(ctx, func(r domain.Repos) error {
		f, err := r.Files.FindByIDForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return domain.NotFound("file %d not found", fileID)
		}
		u, err := r.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.Forbidden("user %d does not exist", userID)
		}
		liked, err := r.Likes.Exists(ctx, userID, fileID)
		if err != nil {
			return err
		}
		delta := int64(1)
		if liked {
			err = r.Likes.Delete(ctx, userID, fileID)
			delta = -1
		} else {
			err = r.Likes.Insert(ctx, userID, fileID, s.Now())
		}
		if err != nil {
			return err
		}
		if err := r.Counters.Add(ctx, domain.CounterFileLikes, fileID, delta); err != nil {
			return err
		}
		res = LikeResult{Liked: !liked, LikeCount: f.LikeCount + delta}
		return nil
	})
	return res, err
}

// RecountLikes 以点赞关系为准修正文件的 likeCount，返回修正前后的值
func (s *Engagement) RecountLikes(ctx context.Context, actor domain.Actor, fileID uint64) (before, after int64, err error) {
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		if err := authorize(ctx, r, actor, policy.CounterRecount); err != nil {
			return err
		}
		f, err := r.Files.FindByIDForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return domain.NotFound("file %d not found", fileID)
		}
		n, err := r.Likes.CountByFile(ctx, fileID)
		if err != nil {
			return err
		}
		before, after = f.LikeCount, n
		if before == after {
			return nil
		}
		return r.Counters.Set(ctx, domain.CounterFileLikes, fileID, n)
	})
	if err == nil && before != after {
		s.Log.Warn("like counter drift", zap.Uint64("file_id", fileID), zap.Int64("before", before), zap.Int64("after", after))
	}
	return before, after, err
}

// RecountBannedFiles 以文件状态为准修正用户的 bannedFileCount
func (s *Engagement) RecountBannedFiles(ctx context.Context, actor domain.Actor, userID uint64) (before, after int64, err error) {
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		if err := authorize(ctx, r, actor, policy.CounterRecount); err != nil {
			return err
		}
		u, err := r.Users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.NotFound("user %d not found", userID)
		}
		n, err := r.Files.CountBannedByOwner(ctx, userID)
		if err != nil {
			return err
		}
		before, after = u.BannedFileCount, n
		if before == after {
			return nil
		}
		return r.Counters.Set(ctx, domain.CounterUserBannedFiles, userID, n)
	})
	if err == nil && before != after {
		s.Log.Warn("banned file counter drift", zap.Uint64("user_id", userID), zap.Int64("before", before), zap.Int64("after", after))
	}
	return before, after, err
}
