package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 标识错误的业务类别，HTTP 层据此决定状态码。
// 不再通过错误消息内容猜测错误类型。
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUnauthorized
	KindConflict
	KindInternal
)

// HTTPStatus 返回该类别对应的 HTTP 状态码。
// 领域冲突（无效分类、配额超限等）对外表现为 400。
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error 是带类别标签的领域错误，Code 为对外暴露的机器可读错误码。
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation 构造字段校验错误，details 携带完整的字段错误列表。
func Validation(details any) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "validation_error",
		Message: "validation failed",
		Details: details,
	}
}

// NotFound 构造资源不存在错误。
func NotFound(resource string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    "not_found",
		Message: resource + " not found",
	}
}

// Conflict 构造领域冲突错误（无效引用、配额超限等）。
func Conflict(code, message string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    code,
		Message: message,
	}
}

// Unauthorized 构造鉴权失败错误。
func Unauthorized() *Error {
	return &Error{
		Kind:    KindUnauthorized,
		Code:    "unauthorized",
		Message: "unauthorized",
	}
}

// Internal 包装不可恢复的内部错误，message 为可安全暴露的描述。
func Internal(message string, err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    "internal_error",
		Message: message,
		Err:     err,
	}
}

// As 提取错误链中的 *Error，不存在时返回 nil。
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
