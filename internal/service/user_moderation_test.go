package service

import (
	"testing"

	"docshare/internal/domain"
)

func TestUploadBanCycle(t *testing.T) {
	f := newFixture(t)
	target := f.user("alice", domain.RoleNormal)
	vol := f.user("vera", domain.RoleVolunteer)

	u, err := f.mod.BanUpload(f.ctx, vol, target.ID, "")
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if u.UploadStatus != domain.UploadBanned || u.LastRemark != "封禁上传权限" {
		t.Fatalf("snapshot = %s %q", u.UploadStatus, u.LastRemark)
	}

	_, err = f.mod.BanUpload(f.ctx, vol, target.ID, "")
	wantKind(t, err, domain.ErrConflict)
	if err.Error() != "current upload status BANNED" {
		t.Fatalf("message = %q", err.Error())
	}

	if _, err := f.mod.UnbanUpload(f.ctx, vol, target.ID, "申诉通过"); err != nil {
		t.Fatalf("unban: %v", err)
	}
	_, err = f.mod.UnbanUpload(f.ctx, vol, target.ID, "")
	wantKind(t, err, domain.ErrConflict)

	recs := f.history(domain.SubjectUser, target.ID)
	if len(recs) != 2 {
		t.Fatalf("records = %d", len(recs))
	}
	if recs[0].OperationType != domain.OpUserBanUpload || recs[0].OldValue != "NORMAL" || recs[0].NewValue != "BANNED" {
		t.Fatalf("first = %+v", recs[0])
	}
	if recs[1].OperationType != domain.OpUserUnbanUpload || recs[1].Remark != "申诉通过" {
		t.Fatalf("second = %+v", recs[1])
	}
}

func TestUserTransitionsRequireHigherRole(t *testing.T) {
	f := newFixture(t)
	actors := map[domain.Role]domain.Actor{
		domain.RoleNormal:    f.user("n-actor", domain.RoleNormal),
		domain.RoleVolunteer: f.user("v-actor", domain.RoleVolunteer),
		domain.RoleAdmin:     f.user("a-actor", domain.RoleAdmin),
	}
	targets := map[domain.Role]domain.Actor{
		domain.RoleNormal:    f.user("n-target", domain.RoleNormal),
		domain.RoleVolunteer: f.user("v-target", domain.RoleVolunteer),
		domain.RoleAdmin:     f.user("a-target", domain.RoleAdmin),
	}

	for ar, a := range actors {
		for tr, tg := range targets {
			if ar > tr {
				continue
			}
			t.Run(ar.String()+"->"+tr.String(), func(t *testing.T) {
				_, err := f.mod.BanUpload(f.ctx, a, tg.ID, "")
				wantKind(t, err, domain.ErrForbidden)
				// 即使目标已是 NORMAL，也先被策略拒绝而不是冲突
				_, err = f.mod.ChangeRole(f.ctx, a, tg.ID, domain.RoleNormal, "")
				wantKind(t, err, domain.ErrForbidden)
				_, err = f.mod.DeleteUser(f.ctx, a, tg.ID, "")
				wantKind(t, err, domain.ErrForbidden)
			})
		}
	}
	if n := f.ledgerSize(); n != 0 {
		t.Fatalf("ledger = %d", n)
	}
}

func TestSelfEscalationScenario(t *testing.T) {
	f := newFixture(t)
	a := f.user("alice", domain.RoleNormal)

	_, err := f.mod.ChangeRole(f.ctx, a, a.ID, domain.RoleAdmin, "")
	wantKind(t, err, domain.ErrForbidden)
	if r := f.loadUser(a.ID).Role; r != domain.RoleNormal {
		t.Fatalf("role = %s", r)
	}
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)
	admin := f.user("root", domain.RoleAdmin)
	u := f.user("alice", domain.RoleNormal)

	got, err := f.mod.ChangeRole(f.ctx, admin, u.ID, domain.RoleVolunteer, "")
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if got.Role != domain.RoleVolunteer || got.LastRemark != "用户类型从 NORMAL 更新为 VOLUNTEER" {
		t.Fatalf("snapshot = %s %q", got.Role, got.LastRemark)
	}

	_, err = f.mod.ChangeRole(f.ctx, admin, u.ID, domain.RoleVolunteer, "")
	wantKind(t, err, domain.ErrConflict)

	// 不能提升到与自己同级
	_, err = f.mod.ChangeRole(f.ctx, admin, u.ID, domain.RoleAdmin, "")
	wantKind(t, err, domain.ErrForbidden)

	_, err = f.mod.ChangeRole(f.ctx, admin, u.ID, domain.Role(9), "")
	wantKind(t, err, domain.ErrValidation)

	_, err = f.mod.ChangeRole(f.ctx, admin, 999, domain.RoleNormal, "")
	wantKind(t, err, domain.ErrNotFound)

	recs := f.history(domain.SubjectUser, u.ID)
	if len(recs) != 1 || recs[0].OperationType != domain.OpUserRoleChange || recs[0].OldValue != "NORMAL" || recs[0].NewValue != "VOLUNTEER" {
		t.Fatalf("records = %+v", recs)
	}
}

func TestDeleteUserCascade(t *testing.T) {
	f := newFixture(t)
	admin := f.user("root", domain.RoleAdmin)
	victim := f.user("alice", domain.RoleNormal)
	other := f.user("bob", domain.RoleNormal)
	cat := f.category("books")
	tg := f.tag("go")

	own1 := f.file(victim, cat, domain.FileApproved)
	own2 := f.file(victim, cat, domain.FileBanned)
	foreign := f.file(other, cat, domain.FileApproved)
	if err := f.uow.Query().Files.LinkTags(f.ctx, own1, []uint64{tg}); err != nil {
		t.Fatal(err)
	}
	if err := f.uow.Query().Counters.Add(f.ctx, domain.CounterTagUsage, tg, 1); err != nil {
		t.Fatal(err)
	}

	eng := NewEngagement(f.deps)
	for _, l := range []struct{ user, file uint64 }{
		{victim.ID, foreign}, {other.ID, own1}, {victim.ID, own1},
	} {
		if _, err := eng.ToggleLike(f.ctx, l.user, l.file); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := f.mod.DeleteUser(f.ctx, admin, victim.ID, "")
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d", len(recs))
	}
	last := recs[len(recs)-1]
	if last.OperationType != domain.OpUserDelete || last.OldValue != "NORMAL" || last.NewValue != "DELETED" || last.Remark != "删除用户" {
		t.Fatalf("user record = %+v", last)
	}
	for _, r := range recs[:2] {
		if r.OperationType != domain.OpFileDelete {
			t.Fatalf("file record = %+v", r)
		}
	}

	if f.loadUser(victim.ID) != nil {
		t.Fatal("user still stored")
	}
	if f.loadFile(own1) != nil || f.loadFile(own2) != nil {
		t.Fatal("owned files survived")
	}
	ff := f.loadFile(foreign)
	n, _ := f.uow.Query().Likes.CountByFile(f.ctx, foreign)
	if ff.LikeCount != n || n != 0 {
		t.Fatalf("foreign likeCount = %d, relations = %d", ff.LikeCount, n)
	}
	tag, _ := f.uow.Query().Tags.FindByID(f.ctx, tg)
	if tag.UsageCount != 0 {
		t.Fatalf("tag usage = %d", tag.UsageCount)
	}
	if n := len(f.events.Events()); n != 3 {
		t.Fatalf("events = %d", n)
	}
}

func TestDeleteUserRollsBackOnLedgerFailure(t *testing.T) {
	f := newFixture(t)
	admin := f.user("root", domain.RoleAdmin)
	victim := f.user("alice", domain.RoleNormal)
	other := f.user("bob", domain.RoleNormal)
	cat := f.category("books")
	own := f.file(victim, cat, domain.FileBanned)
	foreign := f.file(other, cat, domain.FileApproved)
	if _, err := NewEngagement(f.deps).ToggleLike(f.ctx, victim.ID, foreign); err != nil {
		t.Fatal(err)
	}
	key := f.loadFile(own).StorageKey

	d := f.deps
	d.UoW = failingLedgerUoW{UnitOfWork: f.uow, op: domain.OpUserDelete}
	mod := NewModeration(d)

	_, err := mod.DeleteUser(f.ctx, admin, victim.ID, "")
	wantKind(t, err, domain.ErrStorage)

	u := f.loadUser(victim.ID)
	if u == nil || u.UploadCount != 1 || u.BannedFileCount != 1 {
		t.Fatalf("user after rollback = %+v", u)
	}
	if f.loadFile(own) == nil {
		t.Fatal("owned file deleted despite rollback")
	}
	if liked, _ := f.uow.Query().Likes.Exists(f.ctx, victim.ID, foreign); !liked {
		t.Fatal("like removed despite rollback")
	}
	if n := f.loadFile(foreign).LikeCount; n != 1 {
		t.Fatalf("foreign likeCount = %d", n)
	}
	if n := f.ledgerSize(); n != 0 {
		t.Fatalf("ledger = %d", n)
	}
	if _, err := f.blobs.Open(f.ctx, key); err != nil {
		t.Fatalf("blob removed despite rollback: %v", err)
	}
	if n := len(f.events.Events()); n != 0 {
		t.Fatalf("events = %d", n)
	}
}
