package handlers

import (
	"net/http"

	"market-clearing/internal/analysis"
	"market-clearing/internal/api/models"
	"market-clearing/internal/sweep"

	"github.com/gin-gonic/gin"
)

// SweepHandler handles scenario-sweep requests
type SweepHandler struct{}

func NewSweepHandler() *SweepHandler {
	return &SweepHandler{}
}

// RunSweep handles POST /api/v1/sweep
func (h *SweepHandler) RunSweep(c *gin.Context) {
	var req models.SweepRequest
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

	table := sweep.Run(c.Request.Context(), sys, toScenarios(req.Scenarios), toRunConfig(req.Run), req.Workers)

	resp := models.SweepResponse{}
	for _, r := range table.Rows {
		resp.Rows = append(resp.Rows, models.SweepRow{
			Scenario:        r.Scenario,
			Params:          r.Params,
			Location:        r.Location,
			Price:           r.Price,
			Welfare:         r.Welfare,
			MostCongested:   r.MostCongested,
			CongestionRatio: r.CongestionRatio,
			Status:          string(r.Status),
			Error:           r.Error,
		})
	}
	for i, s := range analysis.RankByWelfare(table) {
		resp.Rankings = append(resp.Rankings, models.Ranking{
			Rank:            i + 1,
			Scenario:        s.Scenario,
			Status:          string(s.Status),
			Welfare:         s.Welfare,
			MeanPrice:       s.MeanPrice,
			MaxPrice:        s.MaxPrice,
			MostCongested:   s.MostCongested,
			CongestionRatio: s.CongestionRatio,
		})
	}
	for _, st := range analysis.LocationStats(table) {
		resp.LocationStats = append(resp.LocationStats, models.LocationStats{
			Location:     st.Location,
			Count:        st.Count,
			MinPrice:     st.Min,
			MaxPrice:     st.Max,
			MeanPrice:    st.Mean,
			SpreadP95P05: st.SpreadP95P05,
		})
	}

	c.JSON(http.StatusOK, resp)
}
