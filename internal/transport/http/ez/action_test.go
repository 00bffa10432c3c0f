package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docshare/internal/domain"
	mdw "docshare/internal/transport/http/middleware"
	resp "docshare/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.Validation("bad"), resp.CodeBadRequest},
		{domain.Unauthenticated("who"), resp.CodeUnauthorized},
		{domain.Forbidden("no"), resp.CodeForbidden},
		{domain.NotFound("file 1"), resp.CodeNotFound},
		{domain.Conflict("status", domain.FileApproved), resp.CodeConflict},
		{fmt.Errorf("wrapped: %w", domain.NotFound("x")), resp.CodeNotFound},
		{domain.Storage("files.get", errors.New("dial tcp: refused")), resp.CodeServerError},
		{errors.New("boom"), resp.CodeServerError},
		{BadRequest("invalid id"), resp.CodeBadRequest},
	}
	for _, c := range cases {
		code, msg := CodeOf(c.err)
		if code != c.code {
			t.Errorf("%v: code = %d, want %d", c.err, code, c.code)
		}
		if code == resp.CodeServerError && strings.Contains(msg, "refused") {
			t.Errorf("storage detail leaked: %q", msg)
		}
	}
	if _, msg := CodeOf(domain.Conflict("status", domain.FileApproved)); msg != "current status APPROVED" {
		t.Errorf("conflict msg = %q", msg)
	}
}

type thingIn struct {
	Name string `json:"name" binding:"required"`
}

func serve(t *testing.T, r *gin.Engine, method, path, body string) resp.Resp {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("http status = %d", w.Code)
	}
	var out resp.Resp
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func engine(actor *domain.Actor) *gin.Engine {
	r := gin.New()
	// 模拟鉴权中间件写入的上下文
	if actor != nil {
		r.Use(func(c *gin.Context) {
			c.Set(mdw.KeyUserID, actor.ID)
			c.Set(mdw.KeyRole, actor.Role)
			c.Next()
		})
	}
	e := New(&r.RouterGroup, nil)
	RegisterAction(e, Action[thingIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/things/:id",
		Binder: BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, a domain.Actor, in *thingIn) (gin.H, error) {
			id, err := ID(c, "id")
			if err != nil {
				return nil, err
			}
			if in.Name == "taken" {
				return nil, domain.ConflictMsg("name taken")
			}
			return gin.H{"id": id, "by": a.ID, "name": in.Name}, nil
		},
	})
	RegisterAction(e, Action[struct{}, string]{
		Method:  http.MethodGet,
		Path:    "/admin-only",
		MinRole: domain.RoleAdmin,
		Handler: func(*gin.Context, domain.Actor, *struct{}) (string, error) { return "ok", nil },
	})
	return r
}

func TestRegisterAction(t *testing.T) {
	normal := &domain.Actor{ID: 3, Role: domain.RoleNormal}
	admin := &domain.Actor{ID: 1, Role: domain.RoleAdmin}

	cases := []struct {
		name   string
		actor  *domain.Actor
		method string
		path   string
		body   string
		code   int
	}{
		{"anonymous", nil, http.MethodPost, "/things/1", `{"name":"a"}`, resp.CodeUnauthorized},
		{"bind error", normal, http.MethodPost, "/things/1", `{}`, resp.CodeBadRequest},
		{"bad id", normal, http.MethodPost, "/things/x", `{"name":"a"}`, resp.CodeBadRequest},
		{"conflict", normal, http.MethodPost, "/things/1", `{"name":"taken"}`, resp.CodeConflict},
		{"ok", normal, http.MethodPost, "/things/9", `{"name":"a"}`, resp.CodeOK},
		{"role too low", normal, http.MethodGet, "/admin-only", "", resp.CodeForbidden},
		{"role anonymous", nil, http.MethodGet, "/admin-only", "", resp.CodeUnauthorized},
		{"role ok", admin, http.MethodGet, "/admin-only", "", resp.CodeOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := serve(t, engine(c.actor), c.method, c.path, c.body)
			if got.Code != c.code {
				t.Fatalf("code = %d (%s), want %d", got.Code, got.Msg, c.code)
			}
		})
	}

	got := serve(t, engine(normal), http.MethodPost, "/things/9", `{"name":"a"}`)
	data, _ := got.Data.(map[string]any)
	if data["id"] != float64(9) || data["by"] != float64(3) {
		t.Fatalf("data = %v", got.Data)
	}
}
