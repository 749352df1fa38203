package handlers

import (
	"net/http"

	"market-clearing/internal/api/models"
	"market-clearing/internal/curves"

	"github.com/gin-gonic/gin"
)

// CurvesHandler builds supply/demand curve geometry for the frontend
type CurvesHandler struct{}

func NewCurvesHandler() *CurvesHandler {
	return &CurvesHandler{}
}

// GetCurves handles POST /api/v1/curves
func (h *CurvesHandler) GetCurves(c *gin.Context) {
	var req models.CurvesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	sys, err := toSystemConfig(req.System).ToSystem()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_SYSTEM",
				Message: err.Error(),
			},
		})
		return
	}

	cv := curves.Build(sys)
	resp := models.CurvesResponse{}
	for _, p := range cv.SupplyPoints() {
		resp.Supply = append(resp.Supply, models.CurvePoint{QuantityMW: p.Quantity, PriceEURMWh: p.Price})
	}
	for _, p := range cv.DemandPoints() {
		resp.Demand = append(resp.Demand, models.CurvePoint{QuantityMW: p.Quantity, PriceEURMWh: p.Price})
	}
	if cross, ok := cv.Intersect(); ok {
		resp.Intersection = &models.CrossSummary{
			QuantityMW: cross.Quantity,
			Price:      cross.Price,
			PriceLow:   cross.PriceLow,
			PriceHigh:  cross.PriceHigh,
		}
	}

	c.JSON(http.StatusOK, resp)
}
