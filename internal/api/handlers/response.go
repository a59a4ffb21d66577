package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/core/rating"
	"nutrition-engine/internal/pkg/common"
)

// Handler 營養引擎 API 處理器
type Handler struct {
	service *rating.Service
	debug   bool
}

// NewHandler 創建處理器；debug 為 true 時錯誤回應會包含底層原因
func NewHandler(service *rating.Service, debug bool) *Handler {
	return &Handler{service: service, debug: debug}
}

// ProfileRequest 健康狀況輸入，conditions 接受 "ckd:4"、"ckd5d" 等寫法
type ProfileRequest struct {
	Conditions []string           `json:"conditions"`
	Primary    string             `json:"primary,omitempty"`
	WeightKg   *float64           `json:"weight_kg,omitempty"`
	Overrides  map[string]float64 `json:"overrides,omitempty"`
}

func (r ProfileRequest) parse() (nutrient.Profile, error) {
	p, err := nutrient.ParseProfile(r.Conditions, r.Primary, r.Overrides)
	if err != nil {
		return nutrient.Profile{}, err
	}
	p.WeightKg = r.WeightKg
	return p, nil
}

// bind 解析 JSON，格式錯誤轉為驗證錯誤
func bind(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return common.NewError("REQUEST_TOO_LARGE", "請求體過大", http.StatusRequestEntityTooLarge, err)
		}
		return common.NewFieldError("body", "invalid request format: %v", err)
	}
	return nil
}

// fail 依錯誤類型回傳對應狀態碼
func (h *Handler) fail(c *gin.Context, err error) {
	status, code := common.ErrorStatus(err)
	resp := common.ErrorResponse{Code: code, Message: message(err)}
	if h.debug {
		resp.Details = err.Error()
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
	}
	if status >= http.StatusInternalServerError {
		common.LogError("Request failed", fields...)
	} else {
		common.LogDebug("Request rejected", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func message(err error) string {
	var ce *common.CustomError
	switch {
	case common.IsValidationError(err):
		return err.Error()
	case errors.As(err, &ce):
		return ce.Message
	default:
		return common.ErrInternalError.Message
	}
}
