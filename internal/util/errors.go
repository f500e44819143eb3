package util

import (
	"errors"
	"fmt"
)

// 业务错误分类。守卫失败回滚整个事务后，由 controller 统一映射为 HTTP 状态码。

// ErrKind 错误类别
type ErrKind int

const (
	KindValidation ErrKind = iota + 1
	KindNotFound
	KindAuthorization
	KindConflict
	KindRateLimit
	KindBusinessRule
)

// AppError 带类别的业务错误
type AppError struct {
	Kind    ErrKind
	Message string
	// RetryAfterSeconds 仅 KindRateLimit 使用，冷却剩余秒数
	RetryAfterSeconds int
}

func (e *AppError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewAuthorizationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewRateLimitError(retryAfterSeconds int, format string, args ...interface{}) *AppError {
	return &AppError{
		Kind:              KindRateLimit,
		Message:           fmt.Sprintf(format, args...),
		RetryAfterSeconds: retryAfterSeconds,
	}
}

func NewBusinessRuleError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// AsAppError 提取 AppError，非业务错误返回 nil
func AsAppError(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

func IsKind(err error, kind ErrKind) bool {
	ae := AsAppError(err)
	return ae != nil && ae.Kind == kind
}

var (
	ErrUserNotFound    = errors.New("用户不存在")
	ErrEmailRegistered = errors.New("该邮箱已被注册")
)
