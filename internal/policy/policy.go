// Package policy 访问控制规则：纯函数，不访问存储。
// 调用方必须传入从存储重新读取的权威角色。
package policy

import "docshare/internal/domain"

type Action string

const (
	FileApprove Action = "file.approve"
	FileReject  Action = "file.reject"
	FileBan     Action = "file.ban"
	FileUnban   Action = "file.unban"
	FileDelete  Action = "file.delete"
	FileEdit    Action = "file.edit"
	FileViewAny Action = "file.view_any" // 查看未通过的文件（非所有者）

	UserBanUpload   Action = "user.ban_upload"
	UserUnbanUpload Action = "user.unban_upload"
	UserChangeRole  Action = "user.change_role"
	UserDelete      Action = "user.delete"

	CategoryCreate Action = "category.create"
	CategoryUpdate Action = "category.update"
	CategoryDelete Action = "category.delete"
	TagCreate      Action = "tag.create"
	TagUpdate      Action = "tag.update"
	TagDelete      Action = "tag.delete"

	CounterRecount Action = "counter.recount"
)

// Target 被操作对象的相关状态
type Target struct {
	OwnerID uint64      // FileEdit
	Role    domain.Role // 用户类动作：目标当前角色
	NewRole domain.Role // UserChangeRole：申请的角色
}

type rule func(a domain.Actor, t Target) bool

func atLeast(r domain.Role) rule {
	return func(a domain.Actor, _ Target) bool { return a.Role.AtLeast(r) }
}

func adminOnly(a domain.Actor, _ Target) bool { return a.Role == domain.RoleAdmin }

// 只能操作角色严格低于自己的用户
func outranks(min domain.Role) rule {
	return func(a domain.Actor, t Target) bool {
		return a.Role.AtLeast(min) && a.Role.Above(t.Role)
	}
}

var rules = map[Action]rule{
	FileApprove: atLeast(domain.RoleVolunteer),
	FileReject:  atLeast(domain.RoleVolunteer),
	FileBan:     adminOnly,
	FileUnban:   adminOnly,
	FileDelete:  adminOnly,
	FileEdit: func(a domain.Actor, t Target) bool {
		return a.ID != 0 && a.ID == t.OwnerID
	},
	FileViewAny: atLeast(domain.RoleVolunteer),

	UserBanUpload:   outranks(domain.RoleVolunteer),
	UserUnbanUpload: outranks(domain.RoleVolunteer),
	UserChangeRole: func(a domain.Actor, t Target) bool {
		return adminOnly(a, t) && a.Role.Above(t.Role) && a.Role.Above(t.NewRole)
	},
	UserDelete: func(a domain.Actor, t Target) bool {
		return adminOnly(a, t) && a.Role.Above(t.Role)
	},

	CategoryCreate: atLeast(domain.RoleVolunteer),
	CategoryUpdate: atLeast(domain.RoleVolunteer),
	CategoryDelete: adminOnly,
	TagCreate:      atLeast(domain.RoleVolunteer),
	TagUpdate:      atLeast(domain.RoleVolunteer),
	TagDelete:      adminOnly,

	CounterRecount: adminOnly,
}

func AllActions() []Action {
	out := make([]Action, 0, len(rules))
	for a := range rules {
		out = append(out, a)
	}
	return out
}

// Check 拒绝时返回 ForbiddenError
func Check(actor domain.Actor, action Action, target Target) error {
	r, ok := rules[action]
	if !ok || !actor.Role.Valid() || !r(actor, target) {
		return domain.Forbidden("%s not permitted for role %s", action, actor.Role)
	}
	return nil
}

// Allowed 仅返回布尔值，用于展示可用操作
func Allowed(actor domain.Actor, action Action, target Target) bool {
	return Check(actor, action, target) == nil
}
