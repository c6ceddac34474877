package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrQuizSessionNotFound  = errors.New("quiz session not found or expired")
	ErrQuizSessionExists    = errors.New("quiz session id already in use")
	ErrQuizGenerationFailed = errors.New("could not generate quiz")
	ErrAINotConfigured      = errors.New("AI completion service not configured")
)

// ValidationError 请求内容不合法（时间戳格式、题目数量等），客户端可修正后重试
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError 外部文本生成服务调用失败（网络、超时、非 200、空响应），与解析失败区分
type UpstreamError struct {
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream completion failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream completion failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
