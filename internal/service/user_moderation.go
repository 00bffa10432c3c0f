package service

import (
	"context"
	"fmt"
	"time"

	"docshare/internal/domain"
	"docshare/internal/policy"
)

var uploadPolicy = map[domain.UploadAction]policy.Action{
	domain.UploadBan:   policy.UserBanUpload,
	domain.UploadUnban: policy.UserUnbanUpload,
}

func (s *Moderation) BanUpload(ctx context.Context, actor domain.Actor, userID uint64, remark string) (*domain.User, error) {
	return s.transitionUpload(ctx, actor, userID, domain.UploadBan, remark)
}

func (s *Moderation) UnbanUpload(ctx context.Context, actor domain.Actor, userID uint64, remark string) (*domain.User, error) {
	return s.transitionUpload(ctx, actor, userID, domain.UploadUnban, remark)
}

func (s *Moderation) transitionUpload(ctx context.Context, actor domain.Actor, userID uint64, action domain.UploadAction, remark string) (*domain.User, error) {
	remark, err := s.normalizeRemark(remark, action.DefaultRemark())
	if err != nil {
		return nil, err
	}
	var (
		out *domain.User
		rec *domain.AuditRecord
	)
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		u, err := r.Users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.NotFound("user %d not found", userID)
		}
		who, err := loadActor(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.Check(who, uploadPolicy[action], policy.Target{Role: u.Role}); err != nil {
			return err
		}
		old := u.UploadStatus
		next, op, err := domain.NextUploadStatus(old, action)
		if err != nil {
			return err
		}

		now := s.Now()
		ok, err := r.Users.UpdateUploadStatus(ctx, u.ID, old, next, domain.Stamp{ActorID: who.ID, At: now, Remark: remark})
		if err != nil {
			return err
		}
		if !ok {
			cur, err := r.Users.FindByID(ctx, u.ID)
			if err != nil {
				return err
			}
			if cur == nil {
				return domain.NotFound("user %d not found", userID)
			}
			return domain.Conflict("upload status", cur.UploadStatus)
		}

		rec = &domain.AuditRecord{
			SubjectType:   domain.SubjectUser,
			SubjectID:     u.ID,
			ActorID:       who.ID,
			OldValue:      old.String(),
			NewValue:      next.String(),
			OperationType: op,
			Remark:        remark,
			CreatedAt:     now,
		}
		if err := r.Ledger.Append(ctx, rec); err != nil {
			return err
		}
		u.UploadStatus = next
		stampUser(u, who.ID, now, remark)
		out = u
		return nil
	})
	if err != nil {
		countDenied(string(action), err)
		return nil, err
	}
	s.publish(ctx, rec)
	return out, nil
}

// ChangeRole 管理员调整用户类型；不能提升到与自己同级，也不能调整同级或更高的用户
func (s *Moderation) ChangeRole(ctx context.Context, actor domain.Actor, userID uint64, newRole domain.Role, remark string) (*domain.User, error) {
	const action = "change-role"
	if !newRole.Valid() {
		return nil, domain.Validation("invalid role %d", int(newRole))
	}
	var (
		out *domain.User
		rec *domain.AuditRecord
	)
	err := s.UoW.Do(ctx, func(r domain.Repos) error {
		u, err := r.Users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.NotFound("user %d not found", userID)
		}
		who, err := loadActor(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.Check(who, policy.UserChangeRole, policy.Target{Role: u.Role, NewRole: newRole}); err != nil {
			return err
		}
		old := u.Role
		if old == newRole {
			return domain.Conflict("role", old)
		}
		rm, err := s.normalizeRemark(remark, fmt.Sprintf("用户类型从 %s 更新为 %s", old, newRole))
		if err != nil {
			return err
		}

		now := s.Now()
		ok, err := r.Users.UpdateRole(ctx, u.ID, old, newRole, domain.Stamp{ActorID: who.ID, At: now, Remark: rm})
		if err != nil {
			return err
		}
		if !ok {
			cur, err := r.Users.FindByID(ctx, u.ID)
			if err != nil {
				return err
			}
			if cur == nil {
				return domain.NotFound("user %d not found", userID)
			}
			return domain.Conflict("role", cur.Role)
		}

		rec = &domain.AuditRecord{
			SubjectType:   domain.SubjectUser,
			SubjectID:     u.ID,
			ActorID:       who.ID,
			OldValue:      old.String(),
			NewValue:      newRole.String(),
			OperationType: domain.OpUserRoleChange,
			Remark:        rm,
			CreatedAt:     now,
		}
		if err := r.Ledger.Append(ctx, rec); err != nil {
			return err
		}
		u.Role = newRole
		stampUser(u, who.ID, now, rm)
		out = u
		return nil
	})
	if err != nil {
		countDenied(action, err)
		return nil, err
	}
	s.publish(ctx, rec)
	return out, nil
}

// DeleteUser 级联删除用户：其全部文件（每个文件一条 FILE_DELETE 记录）、
// 其点赞，最后写一条 USER_DELETE。全部在一个工作单元内，任何一步失败整体回滚
func (s *Moderation) DeleteUser(ctx context.Context, actor domain.Actor, userID uint64, remark string) ([]domain.AuditRecord, error) {
	const action = "user-delete"
	remark, err := s.normalizeRemark(remark, "删除用户")
	if err != nil {
		return nil, err
	}
	var (
		recs []*domain.AuditRecord
		keys []string
	)
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		u, err := r.Users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.NotFound("user %d not found", userID)
		}
		who, err := loadActor(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.Check(who, policy.UserDelete, policy.Target{Role: u.Role}); err != nil {
			return err
		}

		files, err := r.Files.ListByOwner(ctx, u.ID)
		if err != nil {
			return err
		}
		for i := range files {
			f := &files[i]
			rec, err := s.deleteFileTx(ctx, r, f, who.ID, remark, true)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
			keys = append(keys, blobKeys(f)...)
		}

		liked, err := r.Likes.FileIDsByUser(ctx, u.ID)
		if err != nil {
			return err
		}
		if _, err := r.Likes.DeleteByUser(ctx, u.ID); err != nil {
			return err
		}
		for _, fid := range liked {
			if err := r.Counters.Add(ctx, domain.CounterFileLikes, fid, -1); err != nil {
				return err
			}
		}

		if err := r.Users.Delete(ctx, u.ID); err != nil {
			return err
		}
		rec := &domain.AuditRecord{
			SubjectType:   domain.SubjectUser,
			SubjectID:     u.ID,
			ActorID:       who.ID,
			OldValue:      u.Role.String(),
			NewValue:      "DELETED",
			OperationType: domain.OpUserDelete,
			Remark:        remark,
			CreatedAt:     s.Now(),
		}
		if err := r.Ledger.Append(ctx, rec); err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		countDenied(action, err)
		return nil, err
	}
	s.removeBlobs(ctx, keys)
	s.publish(ctx, recs...)

	out := make([]domain.AuditRecord, len(recs))
	for i, r := range recs {
		out[i] = *r
	}
	return out, nil
}

// Users 管理端用户列表
func (s *Moderation) Users(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	return s.UoW.Query().Users.List(ctx, offset, limit)
}

func stampUser(u *domain.User, actorID uint64, at time.Time, remark string) {
	u.LastOperatorID = &actorID
	u.LastOperatedAt = &at
	u.LastRemark = remark
}
