package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docshare/internal/core/auth"
	"docshare/internal/core/cache"
	"docshare/internal/domain"
	"docshare/internal/repo"
	"docshare/internal/repo/repotest"
	"docshare/internal/service"
	"docshare/internal/storage"
	"docshare/internal/transport/http/handler"
	resp "docshare/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

type stack struct {
	t     *testing.T
	api   *gin.Engine
	admin *gin.Engine
	auth  *service.Auth
	cat   *service.Catalog
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := repotest.NewSQLite(t)
	blobs, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	l := zap.NewNop()
	deps := service.Deps{UoW: repo.NewUnitOfWork(db), Blobs: blobs, Log: l}
	j := &auth.JWTer{Secret: []byte("k"), Issuer: "docshare", TTL: time.Hour}

	s := &stack{t: t, auth: service.NewAuth(deps, j), cat: service.NewCatalog(deps)}
	files := service.NewFiles(deps)
	eng := service.NewEngagement(deps)
	mod := service.NewModeration(deps)
	stats := service.NewStats(deps, cache.NewLocal(16, time.Minute), time.Minute)

	api := (&Registry{}).Register(
		handler.NewAuthHandler(s.auth, l),
		handler.NewFileHandler(files, eng, l),
		handler.NewCatalogHandler(s.cat, stats, l),
	)
	adm := (&Registry{}).Register(
		handler.NewModerationHandler(mod, eng, l),
		handler.NewCatalogHandler(s.cat, stats, l),
		handler.NewStatsHandler(stats, l),
	)
	s.api = NewAPIEngine(l, j, api, Limits{})
	s.admin = NewAdminEngine(l, j, adm, Limits{})
	return s
}

func (s *stack) do(r *gin.Engine, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// call 发 JSON 请求并解出 data
func (s *stack) call(r *gin.Engine, method, path, token string, in any, out any) int {
	s.t.Helper()
	var body io.Reader
	if in != nil {
		b, _ := json.Marshal(in)
		body = bytes.NewReader(b)
	}
	w := s.do(r, method, path, token, body, "application/json")
	if w.Code != http.StatusOK {
		s.t.Fatalf("%s %s: http %d", method, path, w.Code)
	}
	var env struct {
		Code int             `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	if out != nil && env.Code == resp.CodeOK {
		if err := json.Unmarshal(env.Data, out); err != nil {
			s.t.Fatalf("%s %s: data: %v", method, path, err)
		}
	}
	return env.Code
}

func (s *stack) login(name, password string) string {
	s.t.Helper()
	var sess struct {
		Token string `json:"token"`
	}
	if code := s.call(s.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": name, "password": password}, &sess); code != resp.CodeOK {
		s.t.Fatalf("login %s: code %d", name, code)
	}
	return sess.Token
}

func (s *stack) upload(token string, category uint64, name, content string) (int, domain.File) {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "doc "+name)
	_ = mw.WriteField("categoryId", fmt.Sprint(category))
	fw, _ := mw.CreateFormFile("file", name)
	_, _ = io.WriteString(fw, content)
	_ = mw.Close()

	w := s.do(s.api, http.MethodPost, "/api/v1/files", token, &buf, mw.FormDataContentType())
	var env struct {
		Code int         `json:"code"`
		Data domain.File `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("upload decode %q: %v", w.Body.String(), err)
	}
	return env.Code, env.Data
}

func TestHealthAndMetrics(t *testing.T) {
	s := newStack(t)
	for _, r := range []*gin.Engine{s.api, s.admin} {
		w := s.do(r, http.MethodGet, "/health", "", nil, "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":1`) {
			t.Fatalf("health = %d %s", w.Code, w.Body.String())
		}
		w = s.do(r, http.MethodGet, "/metrics", "", nil, "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
			t.Fatalf("metrics = %d", w.Code)
		}
	}
}

func TestModerationFlowOverHTTP(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	if _, _, err := s.auth.EnsureAdmin(ctx, service.RegisterInput{Username: "root", Email: "root@example.com", Password: "rootpw"}); err != nil {
		t.Fatal(err)
	}
	adminTok := s.login("root", "rootpw")

	var cat domain.Category
	if code := s.call(s.admin, http.MethodPost, "/admin/v1/categories", adminTok, gin.H{"name": "books"}, &cat); code != resp.CodeOK || cat.ID == 0 {
		t.Fatalf("create category: code %d", code)
	}

	var alice domain.User
	code := s.call(s.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "alice", "email": "alice@example.com", "password": "secret1"}, &alice)
	if code != resp.CodeOK || alice.Role != domain.RoleNormal {
		t.Fatalf("register: code %d, user %+v", code, alice)
	}
	aliceTok := s.login("alice@example.com", "secret1")

	// 普通用户进不了管理端
	if code := s.call(s.admin, http.MethodGet, "/admin/v1/audits/hall", aliceTok, nil, nil); code != resp.CodeForbidden {
		t.Fatalf("normal on admin: code %d", code)
	}
	if code := s.call(s.admin, http.MethodGet, "/admin/v1/audits/hall", "", nil, nil); code != resp.CodeUnauthorized {
		t.Fatalf("anonymous on admin: code %d", code)
	}

	code, f := s.upload(aliceTok, cat.ID, "notes.pdf", "%PDF-1.4")
	if code != resp.CodeOK || f.AuditStatus != domain.FilePending {
		t.Fatalf("upload: code %d, file %+v", code, f)
	}
	if code, _ := s.upload("", cat.ID, "anon.pdf", "x"); code != resp.CodeUnauthorized {
		t.Fatalf("anonymous upload: code %d", code)
	}

	// 审核前不可见
	if code := s.call(s.api, http.MethodGet, fmt.Sprintf("/api/v1/files/%d", f.ID), "", nil, nil); code != resp.CodeForbidden {
		t.Fatalf("view pending: code %d", code)
	}

	var hall struct {
		Items []domain.File `json:"items"`
		Total int64         `json:"total"`
	}
	if code := s.call(s.admin, http.MethodGet, "/admin/v1/audits/hall", adminTok, nil, &hall); code != resp.CodeOK || hall.Total != 1 {
		t.Fatalf("hall: code %d, %+v", code, hall)
	}

	approve := fmt.Sprintf("/admin/v1/audits/approve/%d", f.ID)
	var approved domain.File
	if code := s.call(s.admin, http.MethodPut, approve, adminTok, gin.H{"remark": "ok"}, &approved); code != resp.CodeOK || approved.AuditStatus != domain.FileApproved {
		t.Fatalf("approve: code %d, %+v", code, approved)
	}
	if code := s.call(s.admin, http.MethodPut, approve, adminTok, gin.H{}, nil); code != resp.CodeConflict {
		t.Fatalf("approve twice: code %d", code)
	}
	if code := s.call(s.admin, http.MethodPut, fmt.Sprintf("/admin/v1/audits/promote/%d", f.ID), adminTok, gin.H{}, nil); code != resp.CodeBadRequest {
		t.Fatalf("unknown action: code %d", code)
	}

	var viewed domain.File
	if code := s.call(s.api, http.MethodGet, fmt.Sprintf("/api/v1/files/%d", f.ID), "", nil, &viewed); code != resp.CodeOK || viewed.ViewCount != 1 {
		t.Fatalf("view: code %d, %+v", code, viewed)
	}

	w := s.do(s.api, http.MethodGet, fmt.Sprintf("/api/v1/files/%d/download", f.ID), "", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != "%PDF-1.4" {
		t.Fatalf("download = %d %q", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "notes.pdf") {
		t.Fatalf("content-disposition = %q", cd)
	}

	var like service.LikeResult
	if code := s.call(s.api, http.MethodPost, fmt.Sprintf("/api/v1/files/%d/like", f.ID), aliceTok, nil, &like); code != resp.CodeOK || !like.Liked || like.LikeCount != 1 {
		t.Fatalf("like: code %d, %+v", code, like)
	}

	var hist []domain.AuditRecord
	if code := s.call(s.admin, http.MethodGet, fmt.Sprintf("/admin/v1/audits/records/file/%d", f.ID), adminTok, nil, &hist); code != resp.CodeOK || len(hist) != 1 {
		t.Fatalf("history: code %d, %d records", code, len(hist))
	}
	if hist[0].OperationType != domain.OpFileApprove || hist[0].Remark != "ok" {
		t.Fatalf("record = %+v", hist[0])
	}

	var banned domain.User
	if code := s.call(s.admin, http.MethodPut, fmt.Sprintf("/admin/v1/users/%d/ban-upload", alice.ID), adminTok, gin.H{"remark": "spam"}, &banned); code != resp.CodeOK || banned.UploadStatus != domain.UploadBanned {
		t.Fatalf("ban upload: code %d, %+v", code, banned)
	}
	if code, _ := s.upload(aliceTok, cat.ID, "more.pdf", "x"); code != resp.CodeForbidden {
		t.Fatalf("banned upload: code %d", code)
	}

	var promoted domain.User
	if code := s.call(s.admin, http.MethodPut, fmt.Sprintf("/admin/v1/users/%d/role", alice.ID), adminTok, gin.H{"role": "VOLUNTEER"}, &promoted); code != resp.CodeOK || promoted.Role != domain.RoleVolunteer {
		t.Fatalf("change role: code %d, %+v", code, promoted)
	}

	var overview service.Overview
	if code := s.call(s.admin, http.MethodGet, "/admin/v1/stats/overview", adminTok, nil, &overview); code != resp.CodeOK || overview.Users != 2 || overview.Files != 1 {
		t.Fatalf("overview: code %d, %+v", code, overview)
	}

	var del domain.AuditRecord
	if code := s.call(s.admin, http.MethodDelete, fmt.Sprintf("/admin/v1/files/%d", f.ID), adminTok, nil, &del); code != resp.CodeOK || del.OperationType != domain.OpFileDelete {
		t.Fatalf("delete: code %d, %+v", code, del)
	}
	if code := s.call(s.api, http.MethodGet, fmt.Sprintf("/api/v1/files/%d", f.ID), "", nil, nil); code != resp.CodeNotFound {
		t.Fatalf("view deleted: code %d", code)
	}
}
