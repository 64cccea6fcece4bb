package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"

	// 输入校验错误
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidFileFormat ErrorCode = "INVALID_FILE_FORMAT"
	ErrCodeEmptyMessage      ErrorCode = "EMPTY_MESSAGE"

	// 文档处理错误
	ErrCodeExtractionEmpty ErrorCode = "EXTRACTION_EMPTY"
	ErrCodeIngestionFailed ErrorCode = "INGESTION_FAILED"

	// 外部协作方错误
	ErrCodeCollaboratorUnavailable ErrorCode = "COLLABORATOR_UNAVAILABLE"
	ErrCodeTimeout                 ErrorCode = "TIMEOUT"

	// 存储错误
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeBusiness
	ErrorTypeValidation
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Type     ErrorType   `json:"type"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// NewInvalidInputError 创建输入无效错误，在产生任何副作用前拒绝请求
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidInput,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewInvalidFileFormatError 创建文件格式错误
func NewInvalidFileFormatError(filename string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidFileFormat,
		Message:  fmt.Sprintf("Invalid file type for %q. Only pdf, docx, txt allowed.", filename),
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewExtractionEmptyError 文件解析成功但没有可用文本
func NewExtractionEmptyError() *AppError {
	return &AppError{
		Code:     ErrCodeExtractionEmpty,
		Message:  "No text extracted from the file.",
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusUnprocessableEntity,
	}
}

// NewCollaboratorError 外部协作方（嵌入、向量库、生成模型）不可用
func NewCollaboratorError(component string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeCollaboratorUnavailable,
		Message:  fmt.Sprintf("%s unavailable", component),
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

// NewIngestionError 摄取流水线失败（集合创建或批量写入被拒绝）
func NewIngestionError(cause error) *AppError {
	return &AppError{
		Code:     ErrCodeIngestionFailed,
		Message:  "Upload failed",
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewStorageError 会话存储读写失败
func NewStorageError(cause error) *AppError {
	return &AppError{
		Code:     ErrCodeStorageUnavailable,
		Message:  "Conversation storage unavailable",
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// IsAppError 检查是否为AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取AppError，如果不是则包装为系统错误
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}

// HasCode 判断错误链上是否带有指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
