package service

import (
	"fmt"
	"testing"

	"docshare/internal/domain"
	"docshare/internal/repo/repotest"
)

// TestModerationRacePostgres 多连接下的真实行锁：TEST_INTEGRATION=1 go test ./internal/service/...
func TestModerationRacePostgres(t *testing.T) {
	const n = 8
	f := newFixtureOn(t, repotest.NewPostgres(t, 2*n))

	crowd := func(prefix string, role domain.Role) []domain.Actor {
		out := make([]domain.Actor, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, f.user(fmt.Sprintf("%s%d", prefix, i), role))
		}
		return out
	}
	owner := f.user("alice", domain.RoleNormal)
	cat := f.category("books")

	// 待审文件，n 个志愿者同时通过
	{
		id := f.file(owner, cat, domain.FilePending)
		ok, confl := race(t, crowd("vol", domain.RoleVolunteer), func(a domain.Actor) error {
			_, err := f.mod.ApproveFile(f.ctx, a, id, "")
			return err
		})
		if ok != 1 || confl != n-1 {
			t.Fatalf("success = %d, conflict = %d", ok, confl)
		}
		if got := f.loadFile(id).AuditStatus; got != domain.FileApproved {
			t.Errorf("status = %v", got)
		}
		if h := f.history(domain.SubjectFile, id); len(h) != 1 {
			t.Fatalf("records = %d", len(h))
		}
	}

	// 已通过文件，n 个管理员同时封禁
	{
		id := f.file(owner, cat, domain.FileApproved)
		ok, confl := race(t, crowd("adm", domain.RoleAdmin), func(a domain.Actor) error {
			_, err := f.mod.BanFile(f.ctx, a, id, "")
			return err
		})
		if ok != 1 || confl != n-1 {
			t.Fatalf("success = %d, conflict = %d", ok, confl)
		}
		if got := f.loadFile(id).AuditStatus; got != domain.FileBanned {
			t.Errorf("status = %v", got)
		}
		if h := f.history(domain.SubjectFile, id); len(h) != 1 {
			t.Fatalf("records = %d", len(h))
		}
		if got := f.loadUser(owner.ID).BannedFileCount; got != 1 {
			t.Errorf("bannedFileCount = %d", got)
		}
	}
}
