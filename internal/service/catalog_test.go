package service

import (
	"testing"

	"docshare/internal/domain"
)

func TestCategoryLifecycle(t *testing.T) {
	f := newFixture(t)
	normal := f.user("bob", domain.RoleNormal)
	vol := f.user("vera", domain.RoleVolunteer)
	admin := f.user("root", domain.RoleAdmin)
	cat := NewCatalog(f.deps)

	_, err := cat.CreateCategory(f.ctx, normal, CategoryInput{Name: "books"})
	wantKind(t, err, domain.ErrForbidden)

	parent, err := cat.CreateCategory(f.ctx, vol, CategoryInput{Name: "books", Enabled: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = cat.CreateCategory(f.ctx, vol, CategoryInput{Name: " books "})
	wantKind(t, err, domain.ErrConflict)

	missing := uint64(999)
	_, err = cat.CreateCategory(f.ctx, vol, CategoryInput{Name: "novels", ParentID: &missing})
	wantKind(t, err, domain.ErrValidation)

	child, err := cat.CreateCategory(f.ctx, vol, CategoryInput{Name: "novels", ParentID: &parent.ID, Enabled: true})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	_, err = cat.UpdateCategory(f.ctx, vol, child.ID, CategoryInput{Name: "novels", ParentID: &child.ID})
	wantKind(t, err, domain.ErrValidation)
	_, err = cat.UpdateCategory(f.ctx, vol, child.ID, CategoryInput{Name: "books"})
	wantKind(t, err, domain.ErrConflict)

	upd, err := cat.UpdateCategory(f.ctx, vol, child.ID, CategoryInput{Name: "fiction", ParentID: &parent.ID, SortOrder: 2, Enabled: true})
	if err != nil || upd.Name != "fiction" || upd.SortOrder != 2 {
		t.Fatalf("update = %+v, %v", upd, err)
	}

	err = cat.DeleteCategory(f.ctx, vol, child.ID)
	wantKind(t, err, domain.ErrForbidden)
	err = cat.DeleteCategory(f.ctx, admin, parent.ID)
	wantKind(t, err, domain.ErrConflict)

	f.file(normal, child.ID, domain.FilePending)
	err = cat.DeleteCategory(f.ctx, admin, child.ID)
	wantKind(t, err, domain.ErrConflict)

	empty, err := cat.CreateCategory(f.ctx, vol, CategoryInput{Name: "empty"})
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.DeleteCategory(f.ctx, admin, empty.ID); err != nil {
		t.Fatalf("delete empty: %v", err)
	}
	err = cat.DeleteCategory(f.ctx, admin, empty.ID)
	wantKind(t, err, domain.ErrNotFound)

	list, err := cat.Categories(f.ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %d, %v", len(list), err)
	}
}

func TestTagDeleteGuard(t *testing.T) {
	f := newFixture(t)
	owner := f.user("alice", domain.RoleNormal)
	vol := f.user("vera", domain.RoleVolunteer)
	admin := f.user("root", domain.RoleAdmin)
	cat := NewCatalog(f.deps)

	tg, err := cat.CreateTag(f.ctx, vol, TagInput{Name: "go", Enabled: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = cat.CreateTag(f.ctx, vol, TagInput{Name: "go"})
	wantKind(t, err, domain.ErrConflict)
	_, err = cat.CreateTag(f.ctx, vol, TagInput{Name: ""})
	wantKind(t, err, domain.ErrValidation)

	id := f.file(owner, f.category("books"), domain.FileApproved)
	if err := f.uow.Query().Files.LinkTags(f.ctx, id, []uint64{tg.ID}); err != nil {
		t.Fatal(err)
	}
	err = cat.DeleteTag(f.ctx, admin, tg.ID)
	wantKind(t, err, domain.ErrConflict)

	if _, err := f.mod.DeleteFile(f.ctx, admin, id, ""); err != nil {
		t.Fatal(err)
	}
	err = cat.DeleteTag(f.ctx, vol, tg.ID)
	wantKind(t, err, domain.ErrForbidden)
	if err := cat.DeleteTag(f.ctx, admin, tg.ID); err != nil {
		t.Fatalf("delete unused tag: %v", err)
	}

	renamed, err := cat.CreateTag(f.ctx, vol, TagInput{Name: "db"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := cat.UpdateTag(f.ctx, vol, renamed.ID, TagInput{Name: "sql", Enabled: true})
	if err != nil || got.Name != "sql" || !got.Enabled {
		t.Fatalf("update = %+v, %v", got, err)
	}
}
