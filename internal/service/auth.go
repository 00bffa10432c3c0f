package service

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"docshare/internal/core/auth"
	"docshare/internal/domain"
	"docshare/pkg/utils"
)

// Auth 注册与登录
type Auth struct {
	Deps
	JWT *auth.JWTer
}

func NewAuth(d Deps, j *auth.JWTer) *Auth { return &Auth{Deps: d.withDefaults(), JWT: j} }

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (in *RegisterInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if n := utf8.RuneCountInString(in.Username); n < 3 || n > 64 {
		return domain.Validation("username must be 3-64 characters")
	}
	if strings.Contains(in.Username, "@") {
		return domain.Validation("username must not contain @")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return domain.Validation("invalid email %q", in.Email)
	}
	if n := len(in.Password); n < 6 || n > 72 {
		return domain.Validation("password must be 6-72 bytes")
	}
	return nil
}

// Register 新用户为 NORMAL，允许上传
func (s *Auth) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return s.create(ctx, in, domain.RoleNormal)
}

func (s *Auth) create(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, domain.Validation("hash password: %v", err)
	}
	u := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		UploadStatus: domain.UploadNormal,
	}
	err = s.UoW.Do(ctx, func(r domain.Repos) error {
		exists, err := r.Users.ExistsByUsernameOrEmail(ctx, u.Username, u.Email)
		if err != nil {
			return err
		}
		if exists {
			return domain.ConflictMsg("username or email already registered")
		}
		return r.Users.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login 用户名或邮箱登录；失败不区分用户不存在与密码错误
func (s *Auth) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}
	u, err := s.UoW.Query().Users.FindByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.Unauthenticated("invalid credentials")
	}
	now := s.Now()
	if err := s.UoW.Query().Users.TouchLogin(ctx, u.ID, now); err != nil {
		s.Log.Warn("touch login failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}
	token, err := s.JWT.Issue(u.ID, u.Role)
	if err != nil {
		return nil, domain.Storage("issue token", err)
	}
	return &Session{Token: token, User: u}, nil
}

func (s *Auth) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	u, err := s.UoW.Query().Users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.Unauthenticated("user %d no longer exists", actor.ID)
	}
	return u, nil
}

// EnsureAdmin 启动时保证存在一个管理员账号；已存在同名用户时不做修改
func (s *Auth) EnsureAdmin(ctx context.Context, in RegisterInput) (*domain.User, bool, error) {
	u, err := s.UoW.Query().Users.FindByLogin(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		return nil, false, err
	}
	if u != nil {
		return u, false, nil
	}
	u, err = s.create(ctx, in, domain.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	s.Log.Info("bootstrap admin created", zap.Uint64("user_id", u.ID), zap.String("username", u.Username))
	return u, true, nil
}
