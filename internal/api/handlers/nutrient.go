package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/core/rating"
)

// TargetsRequest 計算每日目標
type TargetsRequest struct {
	Profile  ProfileRequest `json:"profile"`
	WeightKg *float64       `json:"weight_kg,omitempty"`
}

// TargetsResponse 依營養素代碼排序的目標清單
type TargetsResponse struct {
	Targets []nutrient.Target `json:"targets"`
}

// WarningsRequest intake.amounts 與 intake.user_id 擇一
type WarningsRequest struct {
	Profile  ProfileRequest        `json:"profile"`
	WeightKg *float64              `json:"weight_kg,omitempty"`
	Intake   rating.Intake         `json:"intake"`
	Vitals   []rating.VitalReading `json:"vitals,omitempty"`
}

// CheckRequest 記錄前檢查；food 與 nutrients 擇一
type CheckRequest struct {
	Food      *ResolveRequest       `json:"food,omitempty"`
	Nutrients map[string]float64    `json:"nutrients,omitempty"`
	Servings  *float64              `json:"servings,omitempty"`
	Profile   ProfileRequest        `json:"profile"`
	WeightKg  *float64              `json:"weight_kg,omitempty"`
	Intake    rating.Intake         `json:"intake"`
	Vitals    []rating.VitalReading `json:"vitals,omitempty"`
}

func sortedTargets(set nutrient.TargetSet) []nutrient.Target {
	out := make([]nutrient.Target, 0, len(set))
	for _, code := range set.Codes() {
		out = append(out, set[code])
	}
	return out
}

// Targets POST /nutrients/targets
func (h *Handler) Targets(c *gin.Context) {
	var req TargetsRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	profile, err := req.Profile.parse()
	if err != nil {
		h.fail(c, err)
		return
	}

	set, err := h.service.ComputeNutrientTargets(profile, req.WeightKg)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TargetsResponse{Targets: sortedTargets(set)})
}

// Warnings POST /nutrients/warnings
func (h *Handler) Warnings(c *gin.Context) {
	var req WarningsRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	profile, err := req.Profile.parse()
	if err != nil {
		h.fail(c, err)
		return
	}

	report, err := h.service.Warnings(c.Request.Context(), rating.WarningsRequest{
		Profile:  profile,
		WeightKg: req.WeightKg,
		Intake:   req.Intake,
		Vitals:   req.Vitals,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Check POST /nutrients/check
func (h *Handler) Check(c *gin.Context) {
	var req CheckRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	profile, err := req.Profile.parse()
	if err != nil {
		h.fail(c, err)
		return
	}

	var fr *food.Request
	if req.Food != nil {
		r, err := req.Food.toFood()
		if err != nil {
			h.fail(c, err)
			return
		}
		fr = &r
	}

	report, err := h.service.CheckFood(c.Request.Context(), rating.CheckRequest{
		Food:      fr,
		Nutrients: req.Nutrients,
		Servings:  req.Servings,
		Profile:   profile,
		WeightKg:  req.WeightKg,
		Intake:    req.Intake,
		Vitals:    req.Vitals,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// DailyIntake GET /intake/:user_id?date=yyyy-mm-dd
func (h *Handler) DailyIntake(c *gin.Context) {
	amounts, err := h.service.DailyIntake(c.Request.Context(), c.Param("user_id"), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if amounts == nil {
		amounts = nutrient.Amounts{}
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("user_id"), "intake": amounts})
}
