package errors

import (
	"errors"
	"net/http"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("Form has been modified by another request")

// Kind 错误分类
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindDomain
	KindConflict
)

// AppError 带分类的业务错误，Message 原样返回给客户端
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

func (e *AppError) Unwrap() error { return e.Err }

// Status 映射为 HTTP 状态码
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation, KindDomain:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *AppError { return &AppError{Kind: KindValidation, Message: msg} }

func Forbidden(msg string) *AppError { return &AppError{Kind: KindAuthorization, Message: msg} }

// ForbiddenErr 权限错误，保留底层哨兵错误供 errors.Is 判断
func ForbiddenErr(err error) *AppError {
	return &AppError{Kind: KindAuthorization, Message: err.Error(), Err: err}
}

// Domain 领域错误（唯一键冲突、记录不存在等），消息取底层错误原文
func Domain(err error) *AppError {
	return &AppError{Kind: KindDomain, Message: err.Error(), Err: err}
}

func DomainMsg(msg string) *AppError { return &AppError{Kind: KindDomain, Message: msg} }

func Conflict(err error) *AppError {
	return &AppError{Kind: KindConflict, Message: err.Error(), Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: err.Error(), Err: err}
}

// As 提取 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
