package service

import (
	"context"

	"go.uber.org/zap"

	"docshare/internal/domain"
	"docshare/internal/policy"
)

// Moderation 文件与用户的审核状态机。每次调用恰好执行一次合法转移，
// 状态、审计记录、计数器在同一个工作单元里提交
type Moderation struct {
	Deps
}

func NewModeration(d Deps) *Moderation { return &Moderation{Deps: d.withDefaults()} }

var filePolicy = map[domain.FileAction]policy.Action{
	domain.FileApprove: policy.FileApprove,
	domain.FileReject:  policy.FileReject,
	domain.FileBan:     policy.FileBan,
	domain.FileUnban:   policy.FileUnban,
	domain.FileDelete:  policy.FileDelete,
}

func (s *Moderation) ApproveFile(ctx context.Context, actor domain.Actor, fileID uint64, remark string) (*domain.File, error) {
	return s.transitionFile(ctx, actor, fileID, domain.FileApprove, remark)
}

func (s *Moderation) RejectFile(ctx context.Context, actor domain.Actor, fileID uint64, remark string) (*domain.File, error) {
	return s.transitionFile(ctx, actor, fileID, domain.FileReject, remark)
}

func (s *Moderation) BanFile(ctx context.Context, actor domain.Actor, fileID uint64, remark string) (*domain.File, error) {
	return s.transitionFile(ctx, actor, fileID, domain.FileBan, remark)
}

func (s *Moderation) UnbanFile(ctx context.Context, actor domain.Actor, fileID uint64, remark string) (*domain.File, error) {
	return s.transitionFile(ctx, actor, fileID, domain.FileUnban, remark)
}

// TransitionFile 按动作名分发，供 HTTP 层使用；删除不走这里
func (s *Moderation) TransitionFile(ctx context.Context, actor domain.Actor, fileID uint64, action domain.FileAction, remark string) (*domain.File, error) {
	if action == domain.FileDelete {
		return nil, domain.Validation("file delete goes through DeleteFile")
	}
	if _, ok := filePolicy[action]; !ok {
		return nil, domain.Validation("unknown file action %q", string(action))
	}
	return s.transitionFile(ctx, actor, fileID, action, remark)
}

func (s *Moderation) transitionFile(ctx context.Context, actor domain.Actor, fileID uint64, action domain.FileAction, remark string) (*domain.File, error) {
	remark, err := s.normalizeRemark(remark, action.DefaultRemark())
	if err != nil {
		return nil, err
	}

	var (
		out *domain.File
		rec *domain.AuditRecord
	)
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		f, err := r.Files.FindByIDForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return domain.NotFound("file %d not found", fileID)
		}
		who, err := loadActor(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.Check(who, filePolicy[action], policy.Target{OwnerID: f.OwnerID}); err != nil {
			return err
		}
		old := f.AuditStatus
		next, err := domain.NextFileStatus(old, action)
		if err != nil {
			return err
		}

		now := s.Now()
		ok, err := r.Files.UpdateStatus(ctx, f.ID, old, next, domain.Stamp{ActorID: who.ID, At: now, Remark: remark})
		if err != nil {
			return err
		}
		if !ok {
			return s.fileConflict(ctx, r, f.ID)
		}

		rec = &domain.AuditRecord{
			SubjectType:   domain.SubjectFile,
			SubjectID:     f.ID,
			ActorID:       who.ID,
			OldValue:      old.String(),
			NewValue:      next.String(),
			OperationType: s.classify(old, next, f.ID),
			Remark:        remark,
			CreatedAt:     now,
		}
		if err := r.Ledger.Append(ctx, rec); err != nil {
			return err
		}
		if d := bannedDelta(old, next); d != 0 {
			if err := r.Counters.Add(ctx, domain.CounterUserBannedFiles, f.OwnerID, d); err != nil {
				return err
			}
		}

		f.AuditStatus = next
		f.AuditUserID = &who.ID
		f.AuditTime = &now
		f.AuditRemark = remark
		out = f
		return nil
	})
	if err != nil {
		countDenied(string(action), err)
		return nil, err
	}
	s.publish(ctx, rec)
	return out, nil
}

// fileConflict 条件更新未命中：并发的另一次转移已经提交
func (s *Moderation) fileConflict(ctx context.Context, r domain.Repos, id uint64) error {
	cur, err := r.Files.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return domain.Conflict("status", domain.FileDeleted)
	}
	return domain.Conflict("status", cur.AuditStatus)
}

// classify 未知组合保留 UNKNOWN 并告警
func (s *Moderation) classify(old, next domain.FileStatus, fileID uint64) domain.OperationType {
	op, ok := domain.OperationFor(old, next)
	if !ok {
		unknownOpsTotal.WithLabelValues(old.String(), next.String()).Inc()
		s.Log.Warn("unclassified file transition",
			zap.Uint64("file_id", fileID),
			zap.Stringer("old", old),
			zap.Stringer("new", next),
		)
	}
	return op
}

// bannedDelta 进入 BANNED +1，离开 BANNED -1
func bannedDelta(old, next domain.FileStatus) int64 {
	switch {
	case old != domain.FileBanned && next == domain.FileBanned:
		return 1
	case old == domain.FileBanned && next != domain.FileBanned:
		return -1
	}
	return 0
}

// DeleteFile 管理员硬删除：移除点赞与标签关联，回退计数器，写 FILE_DELETE 记录。
// 审计记录本身保留；文件内容在提交后删除
func (s *Moderation) DeleteFile(ctx context.Context, actor domain.Actor, fileID uint64, remark string) (*domain.AuditRecord, error) {
	remark, err := s.normalizeRemark(remark, domain.FileDelete.DefaultRemark())
	if err != nil {
		return nil, err
	}
	var (
		rec  *domain.AuditRecord
		keys []string
	)
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		f, err := r.Files.FindByIDForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return domain.NotFound("file %d not found", fileID)
		}
		who, err := loadActor(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.Check(who, policy.FileDelete, policy.Target{OwnerID: f.OwnerID}); err != nil {
			return err
		}
		if _, err := domain.NextFileStatus(f.AuditStatus, domain.FileDelete); err != nil {
			return err
		}
		rec, err = s.deleteFileTx(ctx, r, f, who.ID, remark, false)
		keys = blobKeys(f)
		return err
	})
	if err != nil {
		countDenied(string(domain.FileDelete), err)
		return nil, err
	}
	s.removeBlobs(ctx, keys)
	s.publish(ctx, rec)
	return rec, nil
}

// deleteFileTx 删除单个文件及其关联；ownerGone 为 true 时不回退所有者计数（所有者也在被删除）
func (s *Moderation) deleteFileTx(ctx context.Context, r domain.Repos, f *domain.File, actorID uint64, remark string, ownerGone bool) (*domain.AuditRecord, error) {
	if _, err := r.Likes.DeleteByFile(ctx, f.ID); err != nil {
		return nil, err
	}
	tagIDs, err := r.Files.UnlinkTags(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	for _, tid := range tagIDs {
		if err := r.Counters.Add(ctx, domain.CounterTagUsage, tid, -1); err != nil {
			return nil, err
		}
	}
	if err := r.Files.Delete(ctx, f.ID); err != nil {
		return nil, err
	}
	if !ownerGone {
		if err := r.Counters.Add(ctx, domain.CounterUserUploads, f.OwnerID, -1); err != nil {
			return nil, err
		}
		if d := bannedDelta(f.AuditStatus, domain.FileDeleted); d != 0 {
			if err := r.Counters.Add(ctx, domain.CounterUserBannedFiles, f.OwnerID, d); err != nil {
				return nil, err
			}
		}
	}

	rec := &domain.AuditRecord{
		SubjectType:   domain.SubjectFile,
		SubjectID:     f.ID,
		ActorID:       actorID,
		OldValue:      f.AuditStatus.String(),
		NewValue:      domain.FileDeleted.String(),
		OperationType: s.classify(f.AuditStatus, domain.FileDeleted, f.ID),
		Remark:        remark,
		CreatedAt:     s.Now(),
	}
	if err := r.Ledger.Append(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func blobKeys(f *domain.File) []string {
	keys := []string{f.StorageKey}
	if f.CoverKey != "" {
		keys = append(keys, f.CoverKey)
	}
	return keys
}

// History 主体的完整审计历史，按时间升序；已删除的主体同样可查
func (s *Moderation) History(ctx context.Context, st domain.SubjectType, id uint64) ([]domain.AuditRecord, error) {
	if !st.Valid() {
		return nil, domain.Validation("invalid subject type %q", string(st))
	}
	return s.UoW.Query().Ledger.ListBySubject(ctx, st, id)
}

// Records 全部审计记录，新的在前
func (s *Moderation) Records(ctx context.Context, offset, limit int) ([]domain.AuditRecord, int64, error) {
	return s.UoW.Query().Ledger.List(ctx, offset, limit)
}

// AuditHall 待审核文件，早提交的在前
func (s *Moderation) AuditHall(ctx context.Context, offset, limit int) ([]domain.File, int64, error) {
	return s.UoW.Query().Files.ListByStatus(ctx, domain.FilePending, offset, limit)
}
