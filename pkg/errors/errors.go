// Package errors 提供统一的错误定义
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1002"
	CodeTooManyRequests    ErrorCode = "1003"
	CodeInternalError      ErrorCode = "1004"
	CodeServiceUnavailable ErrorCode = "1005"

	// 路由错误 (2xxx)
	// CodeRoutingAmbiguous 仅在引擎内部使用：路由无法确定时回退默认书架，
	// 不会作为失败透出给调用方。
	CodeRoutingAmbiguous ErrorCode = "2001"
	CodeUnknownGenre     ErrorCode = "2002"

	// 语料库错误 (3xxx)
	CodeCorpusLoadFailed ErrorCode = "3001"

	// 查询错误 (4xxx)
	CodeEmbeddingFailed   ErrorCode = "4001"
	CodeRetrievalFailed   ErrorCode = "4002"
	CodePricingFailed     ErrorCode = "4003"
	CodeGenerationFailed  ErrorCode = "4004"
	CodeGenerationTimeout ErrorCode = "4005"

	// 外部服务错误 (5xxx)
	CodeVectorDBError    ErrorCode = "5001"
	CodeCacheError       ErrorCode = "5002"
	CodeDatabaseError    ErrorCode = "5003"
	CodeLLMProviderError ErrorCode = "5004"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeUnknownGenre:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeGenerationTimeout:
		return http.StatusGatewayTimeout
	case CodeServiceUnavailable, CodeVectorDBError, CodeLLMProviderError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrUnknownGenre     = New(CodeUnknownGenre, "unknown genre")
	ErrCorpusLoadFailed = New(CodeCorpusLoadFailed, "corpus load failed")

	ErrEmbeddingFailed   = New(CodeEmbeddingFailed, "embedding failed")
	ErrRetrievalFailed   = New(CodeRetrievalFailed, "retrieval failed")
	ErrGenerationFailed  = New(CodeGenerationFailed, "answer generation failed")
	ErrGenerationTimeout = New(CodeGenerationTimeout, "answer generation timed out")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// CodeOf 提取错误码；非 AppError 返回 CodeUnknown
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeSuccess
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}
