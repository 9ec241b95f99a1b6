// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 管道错误分类：配置、配额、解析、阶段终态、校验
	ErrorTypeConfiguration ErrorType = "configuration_error"
	ErrorTypeQuota         ErrorType = "quota_error"
	ErrorTypeParse         ErrorType = "parse_error"
	ErrorTypeStage         ErrorType = "stage_error"
	ErrorTypeValidation    ErrorType = "validation_error"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewConfigurationError 创建配置错误（启动期致命）
func NewConfigurationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, originalError)
}

// NewQuotaError 创建配额耗尽错误
func NewQuotaError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeQuota, message, originalError)
}

// NewParseError 创建结构化输出解析错误
func NewParseError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeParse, message, originalError)
}

// NewStageError 创建阶段终态错误（触发模式降级）
func NewStageError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeStage, message, originalError)
}

// NewValidationError 创建输入校验错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// IsConfigurationError 检查是否为配置错误
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

// IsQuotaError 检查是否为配额错误
func IsQuotaError(err error) bool {
	return hasType(err, ErrorTypeQuota)
}

// IsParseError 检查是否为解析错误
func IsParseError(err error) bool {
	return hasType(err, ErrorTypeParse)
}

// IsValidationError 检查是否为校验错误
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

func hasType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	case ErrorTypeQuota:
		return "QUOTA_EXHAUSTED"
	case ErrorTypeParse:
		return "PARSE_ERROR"
	case ErrorTypeStage:
		return "STAGE_ERROR"
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	// 否则创建新的 AppError
	return NewAppError(errType, message, err)
}
