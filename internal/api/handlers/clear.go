package handlers

import (
	"errors"
	"net/http"

	"market-clearing/internal/api/models"
	"market-clearing/internal/clearing"
	"market-clearing/internal/model"
	"market-clearing/internal/settlement"
	"market-clearing/internal/sweep"

	"github.com/gin-gonic/gin"
)

// ClearHandler handles market-clearing requests
type ClearHandler struct{}

func NewClearHandler() *ClearHandler {
	return &ClearHandler{}
}

// RunClear handles POST /api/v1/clear
func (h *ClearHandler) RunClear(c *gin.Context) {
	var req models.ClearRequest
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

	out, err := sweep.RunOnce(c.Request.Context(), sys, toRunConfig(req.Run), "")
	if err != nil {
		writeRunError(c, err)
		return
	}

	resp := models.ClearResponse{
		Status:     "completed",
		Result:     toMarketSummary(out.DayAhead, req.Options.IncludeDispatch),
		Congestion: toCongestionSummary(out.Congestion),
		Settlement: toSettlementSummary(out.Settlement),
	}
	for _, ol := range out.Overloads {
		resp.Overloads = append(resp.Overloads, models.OverloadInfo{
			Line:       ol.Line,
			ImpliedMW:  ol.ImpliedMW,
			CapacityMW: ol.Capacity,
		})
	}
	if out.Reserve != nil {
		s := toMarketSummary(out.Reserve, req.Options.IncludeDispatch)
		resp.Reserve = &s
	}
	if out.Balancing != nil {
		s := toMarketSummary(out.Balancing, req.Options.IncludeDispatch)
		resp.Balancing = &s
	}
	if req.Options.IncludeProfits {
		resp.Profits = settlement.Profits(sys, out.DayAhead)
		resp.Utilities = settlement.Utilities(sys, out.DayAhead)
	}

	c.JSON(http.StatusOK, resp)
}

// writeRunError maps pipeline failures to HTTP responses. Infeasible and
// unbounded problems are client errors (the submitted system cannot clear),
// not server faults.
func writeRunError(c *gin.Context, err error) {
	var cons *model.ConstructionError
	var inf *clearing.InfeasibleError
	var unb *clearing.UnboundedError
	switch {
	case errors.As(err, &cons):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_SYSTEM", Message: err.Error()},
		})
	case errors.As(err, &inf):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INFEASIBLE",
				Message: err.Error(),
				Details: map[string]interface{}{"variant": inf.Variant},
			},
		})
	case errors.As(err, &unb):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "UNBOUNDED",
				Message: err.Error(),
				Details: map[string]interface{}{"variant": unb.Variant},
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "SOLVER_ERROR", Message: err.Error()},
		})
	}
}
