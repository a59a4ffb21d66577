package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"` // 僅在 debug 模式回傳
}

// CustomError 自定義錯誤類型
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 相同代碼與訊息即視為同一種錯誤，讓 Wrap 之後仍可用 errors.Is 判斷
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// Wrap 複製預定義錯誤並附上底層原因
func (e *CustomError) Wrap(err error) *CustomError {
	return &CustomError{Code: e.Code, Message: e.Message, Status: e.Status, Err: err}
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 呼叫端輸入錯誤（未知疾病代碼、未知生命徵象類型等）
type ValidationError struct {
	Field   string
	message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.message
	}
	return e.Field + ": " + e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{message: message}
}

// NewFieldError 創建帶欄位名稱的驗證錯誤
func NewFieldError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, message: fmt.Sprintf(format, args...)}
}

// IsValidationError 檢查錯誤鏈中是否有驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrorStatus 將錯誤對應到 HTTP 狀態碼與錯誤代碼
func ErrorStatus(err error) (int, string) {
	var ce *CustomError
	switch {
	case err == nil:
		return http.StatusOK, ""
	case IsValidationError(err):
		return http.StatusBadRequest, ErrCodeInvalidRequest
	case errors.As(err, &ce):
		return ce.Status, ce.Code
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// 預定義錯誤代碼
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"
	ErrCodeBatchTooLarge   = "BATCH_TOO_LARGE"

	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"
)

// 預定義錯誤
var (
	ErrInvalidRequest     = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound           = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrBatchTooLarge      = NewError(ErrCodeBatchTooLarge, "批次數量超出限制", http.StatusRequestEntityTooLarge, nil)
	ErrIntakeUnavailable  = NewError(ErrCodeServiceUnavailable, "每日攝取彙總暫時無法讀取", http.StatusServiceUnavailable, nil)
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
)
