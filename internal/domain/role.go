package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Role 用户角色，数值越大权限越高（全序）
type Role int8

const (
	RoleNormal    Role = 1
	RoleVolunteer Role = 2
	RoleAdmin     Role = 3
)

var roleNames = map[Role]string{
	RoleNormal:    "NORMAL",
	RoleVolunteer: "VOLUNTEER",
	RoleAdmin:     "ADMIN",
}

// AllRoles 按权限从低到高
func AllRoles() []Role { return []Role{RoleNormal, RoleVolunteer, RoleAdmin} }

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return "Role(" + strconv.Itoa(int(r)) + ")"
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Above 严格高于 o
func (r Role) Above(o Role) bool { return r > o }

// AtLeast 不低于 o
func (r Role) AtLeast(o Role) bool { return r >= o }

// ParseRole 接受名称（大小写不敏感）或数字形式："ADMIN" / "3"
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		r := Role(n)
		if r.Valid() {
			return r, nil
		}
		return 0, Validation("invalid role %q", s)
	}
	up := strings.ToUpper(s)
	for r, name := range roleNames {
		if name == up {
			return r, nil
		}
	}
	return 0, Validation("invalid role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("marshal role: %d", int8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// UploadStatus 上传权限，与账号删除无关
type UploadStatus int8

const (
	UploadBanned UploadStatus = 0
	UploadNormal UploadStatus = 1
)

func AllUploadStatuses() []UploadStatus { return []UploadStatus{UploadBanned, UploadNormal} }

func (s UploadStatus) String() string {
	switch s {
	case UploadBanned:
		return "BANNED"
	case UploadNormal:
		return "NORMAL"
	}
	return "UploadStatus(" + strconv.Itoa(int(s)) + ")"
}

func (s UploadStatus) Valid() bool { return s == UploadBanned || s == UploadNormal }

func (s UploadStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal upload status: %d", int8(s))
	}
	return []byte(s.String()), nil
}

func (s *UploadStatus) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "BANNED", "0":
		*s = UploadBanned
	case "NORMAL", "1":
		*s = UploadNormal
	default:
		return Validation("invalid upload status %q", string(b))
	}
	return nil
}
