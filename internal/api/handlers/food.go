package handlers

import (
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/pkg/common"
)

// ResolveRequest 食物名稱解析請求，通常來自影像辨識或使用者輸入
type ResolveRequest struct {
	Name       string             `json:"name" binding:"required"`
	Confidence *float64           `json:"confidence,omitempty"`
	Estimate   map[string]float64 `json:"estimate,omitempty"`
}

func (r ResolveRequest) toFood() (food.Request, error) {
	estimate, err := nutrient.ParseAmounts(r.Estimate)
	if err != nil {
		return food.Request{}, err
	}
	return food.Request{Name: r.Name, Confidence: r.Confidence, Estimate: estimate}, nil
}

// BatchResolveRequest 批次解析
type BatchResolveRequest struct {
	Items []ResolveRequest `json:"items" binding:"required,dive"`
}

// BatchResolveResponse 結果順序與輸入相同
type BatchResolveResponse struct {
	Results []food.MatchResult `json:"results"`
}

// ResolveFood POST /foods/resolve
func (h *Handler) ResolveFood(c *gin.Context) {
	var req ResolveRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	fr, err := req.toFood()
	if err != nil {
		h.fail(c, err)
		return
	}

	result := h.service.ResolveFood(c.Request.Context(), fr)
	common.LogDebug("Food resolved",
		zap.String("request_id", requestid.Get(c)),
		zap.String("name", req.Name),
		zap.String("source", string(result.Source)),
		zap.String("tier", string(result.Tier)),
	)
	c.JSON(http.StatusOK, result)
}

// ResolveBatch POST /foods/resolve/batch
func (h *Handler) ResolveBatch(c *gin.Context) {
	var req BatchResolveRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	reqs := make([]food.Request, 0, len(req.Items))
	for _, item := range req.Items {
		fr, err := item.toFood()
		if err != nil {
			h.fail(c, err)
			return
		}
		reqs = append(reqs, fr)
	}

	results, err := h.service.ResolveBatch(c.Request.Context(), reqs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BatchResolveResponse{Results: results})
}
