package service

import (
	"errors"
	"fmt"
)

// Code 领域错误分类
type Code string

const (
	CodeUnauthorized        Code = "unauthorized"
	CodeNotFound            Code = "not_found"
	CodeAlreadyClaimed      Code = "already_claimed"
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeInvalidInput        Code = "invalid_input"
	CodeInternal            Code = "internal"
)

// Error 领域错误；HTTP 边界只暴露 Message
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Code == CodeInternal {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按 Code 匹配，便于 errors.Is(err, ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrUnauthorized        = &Error{Code: CodeUnauthorized, Message: "Unauthorized"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "Profile not found"}
	ErrAlreadyClaimed      = &Error{Code: CodeAlreadyClaimed, Message: "Daily XP already claimed today"}
	ErrInsufficientBalance = &Error{Code: CodeInsufficientBalance, Message: "Insufficient XP balance"}
	ErrInvalidInput        = &Error{Code: CodeInvalidInput, Message: "Invalid input"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "Internal error"}
)

func invalidInput(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// internalError 包装基础设施错误；Message 保持稳定，细节留在 Err 里给日志
func internalError(op string, err error) *Error {
	return &Error{Code: CodeInternal, Message: "Internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

// asError 领域错误原样返回，其余包装成 Internal
func asError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internalError(op, err)
}

// CodeOf 取错误分类，非领域错误视为 Internal
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// PublicMessage 返回可以暴露给调用方的错误文案
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}

var errSkillProgressMissing = errors.New("确保后仍读不到技能进度")
