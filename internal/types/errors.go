// Package types holds the error taxonomy and response envelope shared by every
// layer of zentao-helper.
package types

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, machine-readable identifier carried by every failure.
type ErrorCode string

const (
	CodeSessionExpired   ErrorCode = "SESSION_EXPIRED"
	CodeLoginFailed      ErrorCode = "LOGIN_FAILED"
	CodeTaskNotFound     ErrorCode = "TASK_NOT_FOUND"
	CodeStoryNotFound    ErrorCode = "STORY_NOT_FOUND"
	CodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	CodeAPIError         ErrorCode = "API_ERROR"
	CodeNetworkError     ErrorCode = "NETWORK_ERROR"
	CodeUnknownIntent    ErrorCode = "UNKNOWN_INTENT"
	CodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	CodeInvalidParameter ErrorCode = "INVALID_PARAMETER"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeTimeout          ErrorCode = "TIMEOUT"
)

// defaultMessages are shown when a caller supplies no message of its own.
var defaultMessages = map[ErrorCode]string{
	CodeSessionExpired:   "会话已过期，请重新登录",
	CodeLoginFailed:      "登录失败，请检查用户名和密码",
	CodeTaskNotFound:     "任务不存在或无权访问",
	CodeStoryNotFound:    "需求不存在或无权访问",
	CodeUserNotFound:     "用户不存在",
	CodeAPIError:         "禅道 API 调用失败",
	CodeNetworkError:     "网络连接失败",
	CodeUnknownIntent:    "无法理解您的指令，请尝试更明确的表达",
	CodeMissingParameter: "缺少必要参数",
	CodeInvalidParameter: "参数格式错误",
	CodePermissionDenied: "权限不足",
	CodeTimeout:          "请求超时",
}

// DefaultMessage returns the user-facing message registered for code.
func DefaultMessage(code ErrorCode) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return string(code)
}

// Error is the typed failure returned across package boundaries.
type Error struct {
	Code    ErrorCode
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error; an empty message falls back to the code's default.
func New(code ErrorCode, message string) *Error {
	if message == "" {
		message = DefaultMessage(code)
	}
	return &Error{Code: code, Message: message}
}

// Newf is New with fmt formatting.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code ErrorCode, err error, message string) *Error {
	e := New(code, message)
	e.Err = err
	return e
}

// WithDetails returns a copy of e carrying structured details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// As extracts the typed error from err's chain.
func As(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// CodeOf reports the code carried by err. Untyped errors count as API errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if te, ok := As(err); ok {
		return te.Code
	}
	return CodeAPIError
}

// Is reports whether err carries code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
