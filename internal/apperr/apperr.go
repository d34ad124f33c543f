// Package apperr 定义业务错误分类
// 所有对外暴露的失败都归入固定的 Kind，handler 层据此映射响应码
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误分类
type Kind string

const (
	ValidationFailed    Kind = "validation_failed"
	UnsupportedType     Kind = "unsupported_type"
	SourceNotFound      Kind = "source_not_found"
	StorageError        Kind = "storage_error"
	GenerationFailed    Kind = "generation_failed"
	AuthorizationFailed Kind = "authorization_failed"
	NotFound            Kind = "not_found"
	NotLogin            Kind = "not_login"
)

// Error 业务错误
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类错误视为相等，支持 errors.Is(err, apperr.ErrSourceNotFound)
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// New 创建业务错误
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf 创建带格式化信息的业务错误
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf 取出错误分类，非业务错误返回空
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// 哨兵错误，仅用于 errors.Is 比较
var (
	ErrValidationFailed    = &Error{Kind: ValidationFailed}
	ErrUnsupportedType     = &Error{Kind: UnsupportedType}
	ErrSourceNotFound      = &Error{Kind: SourceNotFound}
	ErrStorage             = &Error{Kind: StorageError}
	ErrGenerationFailed    = &Error{Kind: GenerationFailed}
	ErrAuthorizationFailed = &Error{Kind: AuthorizationFailed}
	ErrNotFound            = &Error{Kind: NotFound}
	ErrNotLogin            = &Error{Kind: NotLogin}
)
