package domain

import (
	"errors"
	"fmt"
)

// 错误种类；用 errors.Is(err, ErrConflict) 判断
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation")
	ErrStorage    = errors.New("storage")
	// ErrUnauthenticated 登录失败/身份无效，不属于审核状态机
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error 带种类与当前状态上下文的业务错误
type Error struct {
	Kind    error
	Msg     string
	Current string // 冲突时实体的当前状态/角色名
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) error {
	return &Error{Kind: ErrUnauthenticated, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflict 非法/重复的状态转移；current 为实体当前值
func Conflict(what string, current fmt.Stringer) error {
	cur := current.String()
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf("current %s %s", what, cur), Current: cur}
}

// ConflictMsg 唯一性冲突等不带状态的冲突
func ConflictMsg(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

// Storage 包装底层持久化错误；已是 *Error 的原样返回
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: ErrStorage, Msg: op, Err: err}
}

// CurrentOf 取冲突错误里的当前状态
func CurrentOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Current
	}
	return ""
}
