package service

import (
	"testing"
	"time"

	"docshare/internal/core/auth"
	"docshare/internal/domain"
)

func newAuth(f *fixture) *Auth {
	return NewAuth(f.deps, &auth.JWTer{Secret: []byte("test-secret"), Issuer: "docshare", TTL: time.Hour})
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	a := newAuth(f)

	u, err := a.Register(f.ctx, RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != domain.RoleNormal || u.UploadStatus != domain.UploadNormal || u.Email != "alice@example.com" {
		t.Fatalf("user = %+v", u)
	}
	if u.PasswordHash == "secret1" {
		t.Fatal("password stored in clear")
	}

	_, err = a.Register(f.ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret1"})
	wantKind(t, err, domain.ErrConflict)
	_, err = a.Register(f.ctx, RegisterInput{Username: "al", Email: "x@example.com", Password: "secret1"})
	wantKind(t, err, domain.ErrValidation)
	_, err = a.Register(f.ctx, RegisterInput{Username: "carol", Email: "nope", Password: "secret1"})
	wantKind(t, err, domain.ErrValidation)

	for _, login := range []string{"alice", "ALICE@example.com"} {
		s, err := a.Login(f.ctx, login, "secret1")
		if err != nil {
			t.Fatalf("login %s: %v", login, err)
		}
		c, err := a.JWT.Parse(s.Token)
		if err != nil || c.UID != u.ID || c.Role != domain.RoleNormal {
			t.Fatalf("claims = %+v, %v", c, err)
		}
		if s.User.LastLoginAt == nil || !s.User.LastLoginAt.Equal(testNow) {
			t.Fatalf("last login = %v", s.User.LastLoginAt)
		}
	}

	_, err = a.Login(f.ctx, "alice", "wrong")
	wantKind(t, err, domain.ErrUnauthenticated)
	_, err = a.Login(f.ctx, "nobody", "secret1")
	wantKind(t, err, domain.ErrUnauthenticated)

	me, err := a.Me(f.ctx, u.Actor())
	if err != nil || me.ID != u.ID {
		t.Fatalf("me = %+v, %v", me, err)
	}
	_, err = a.Me(f.ctx, domain.Actor{ID: 999})
	wantKind(t, err, domain.ErrUnauthenticated)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	a := newAuth(f)
	in := RegisterInput{Username: "root", Email: "root@example.com", Password: "changeme"}

	u, created, err := a.EnsureAdmin(f.ctx, in)
	if err != nil || !created || u.Role != domain.RoleAdmin {
		t.Fatalf("first = %+v %v %v", u, created, err)
	}
	again, created, err := a.EnsureAdmin(f.ctx, in)
	if err != nil || created || again.ID != u.ID {
		t.Fatalf("second = %+v %v %v", again, created, err)
	}
}
