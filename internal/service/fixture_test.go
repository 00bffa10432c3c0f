package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"docshare/internal/domain"
	"docshare/internal/event"
	"docshare/internal/repo"
	"docshare/internal/repo/repotest"
	"docshare/internal/storage"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	uow    *repo.UnitOfWork
	events *event.Memory
	blobs  *storage.Local
	deps   Deps
	mod    *Moderation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, repotest.NewSQLite(t))
}

func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	blobs, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		uow:    repo.NewUnitOfWork(db),
		events: &event.Memory{},
		blobs:  blobs,
	}
	f.deps = Deps{
		UoW:    f.uow,
		Blobs:  blobs,
		Events: f.events,
		Now:    func() time.Time { return testNow },
	}
	f.mod = NewModeration(f.deps)
	return f
}

func (f *fixture) user(name string, role domain.Role) domain.Actor {
	f.t.Helper()
	u := &domain.User{
		Username:     name,
		Email:        name + "@example.com",
		Role:         role,
		UploadStatus: domain.UploadNormal,
	}
	if err := f.uow.Query().Users.Create(f.ctx, u); err != nil {
		f.t.Fatalf("create user %s: %v", name, err)
	}
	return u.Actor()
}

func (f *fixture) category(name string) uint64 {
	f.t.Helper()
	c := &domain.Category{Name: name, Enabled: true}
	if err := f.uow.Query().Categories.Create(f.ctx, c); err != nil {
		f.t.Fatalf("create category: %v", err)
	}
	return c.ID
}

func (f *fixture) tag(name string) uint64 {
	f.t.Helper()
	tg := &domain.Tag{Name: name, Enabled: true}
	if err := f.uow.Query().Tags.Create(f.ctx, tg); err != nil {
		f.t.Fatalf("create tag: %v", err)
	}
	return tg.ID
}

func (f *fixture) file(owner domain.Actor, categoryID uint64, st domain.FileStatus) uint64 {
	f.t.Helper()
	return f.fileAt(0, owner, categoryID, st)
}

// fileAt 直接写入一条指定状态的文件，并维护 uploadCount / bannedFileCount；id 为 0 时自增
func (f *fixture) fileAt(id uint64, owner domain.Actor, categoryID uint64, st domain.FileStatus) uint64 {
	f.t.Helper()
	key := storage.NewKey("files", "pdf", testNow)
	if err := f.blobs.Put(f.ctx, key, strings.NewReader("%PDF"), 4, "application/pdf"); err != nil {
		f.t.Fatal(err)
	}
	r := f.uow.Query()
	fl := &domain.File{
		ID:          id,
		OwnerID:     owner.ID,
		CategoryID:  categoryID,
		Title:       "doc",
		FileName:    "doc.pdf",
		FileExt:     "pdf",
		FileType:    domain.FileTypeDocument,
		FileSize:    4,
		StorageKey:  key,
		AuditStatus: st,
		CreatedAt:   testNow,
	}
	if err := r.Files.Create(f.ctx, fl); err != nil {
		f.t.Fatalf("create file: %v", err)
	}
	if err := r.Counters.Add(f.ctx, domain.CounterUserUploads, owner.ID, 1); err != nil {
		f.t.Fatal(err)
	}
	if st == domain.FileBanned {
		if err := r.Counters.Add(f.ctx, domain.CounterUserBannedFiles, owner.ID, 1); err != nil {
			f.t.Fatal(err)
		}
	}
	return fl.ID
}

func (f *fixture) loadFile(id uint64) *domain.File {
	f.t.Helper()
	fl, err := f.uow.Query().Files.FindByID(f.ctx, id)
	if err != nil {
		f.t.Fatal(err)
	}
	return fl
}

func (f *fixture) loadUser(id uint64) *domain.User {
	f.t.Helper()
	u, err := f.uow.Query().Users.FindByID(f.ctx, id)
	if err != nil {
		f.t.Fatal(err)
	}
	return u
}

func (f *fixture) history(st domain.SubjectType, id uint64) []domain.AuditRecord {
	f.t.Helper()
	recs, err := f.mod.History(f.ctx, st, id)
	if err != nil {
		f.t.Fatal(err)
	}
	return recs
}

func (f *fixture) ledgerSize() int64 {
	f.t.Helper()
	n, err := f.uow.Query().Ledger.Count(f.ctx)
	if err != nil {
		f.t.Fatal(err)
	}
	return n
}

func wantKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("err = %v, want kind %v", err, kind)
	}
}

// failingLedgerUoW 在写入指定操作类型的审计记录时失败，用于验证整体回滚
type failingLedgerUoW struct {
	domain.UnitOfWork
	op domain.OperationType
}

func (u failingLedgerUoW) Do(ctx context.Context, fn func(r domain.Repos) error) error {
	return u.UnitOfWork.Do(ctx, func(r domain.Repos) error {
		r.Ledger = failingLedger{AuditLedger: r.Ledger, op: u.op}
		return fn(r)
	})
}

type failingLedger struct {
	domain.AuditLedger
	op domain.OperationType
}

func (l failingLedger) Append(ctx context.Context, r *domain.AuditRecord) error {
	if r.OperationType == l.op {
		return domain.Storage("audit.append", errors.New("disk full"))
	}
	return l.AuditLedger.Append(ctx, r)
}
