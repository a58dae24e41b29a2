package errors

import (
	"errors"
	"fmt"
)

// ErrorCode 错误码类型
type ErrorCode string

const (
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeRemoteFailure ErrorCode = "REMOTE_FAILURE"
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError 创建无效输入错误（校验失败，未触发任何状态变更）
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: message,
	}
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
	}
}

// NewUnauthorizedError 创建未授权错误（实例连接凭证不匹配）
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewRemoteFailureError 创建远端失败错误（网络/HTTP 层失败，驱动乐观更新回滚）
func NewRemoteFailureError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeRemoteFailure,
		Message: message,
		Err:     err,
	}
}

// NewInternalError 创建内部错误
func NewInternalError(message string) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
	}
}

// Wrap 用指定错误码包装底层错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf 提取错误码，非 AppError 一律视为内部错误
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsNotFound 判断是否为未找到错误
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsUnauthorized 判断是否为未授权错误
func IsUnauthorized(err error) bool {
	return CodeOf(err) == CodeUnauthorized
}

// IsInvalidInput 判断是否为无效输入错误
func IsInvalidInput(err error) bool {
	return CodeOf(err) == CodeInvalidInput
}

// IsRemoteFailure 判断是否为远端失败错误
func IsRemoteFailure(err error) bool {
	return CodeOf(err) == CodeRemoteFailure
}
