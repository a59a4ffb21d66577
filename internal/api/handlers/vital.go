package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nutrition-engine/internal/core/rating"
)

// ClassifyVital POST /vitals/classify
func (h *Handler) ClassifyVital(c *gin.Context) {
	var req rating.VitalReading
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	status, err := h.service.ClassifyReading(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
