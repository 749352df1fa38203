package handlers

import (
	"net/http"

	"market-clearing/internal/api/models"
	"market-clearing/internal/clearing"

	"github.com/gin-gonic/gin"
)

// ListVariants handles GET /api/v1/variants
func ListVariants(c *gin.Context) {
	variants := []models.VariantInfo{
		{
			Name:        clearing.VariantPlain,
			Description: "Single uniform price, no network constraints",
			Prices:      "system",
		},
		{
			Name:        clearing.VariantNodal,
			Description: "DC optimal power flow with per-bus prices",
			Prices:      "bus",
			Requires:    []string{"lines"},
		},
		{
			Name:        clearing.VariantZonal,
			Description: "Zonal exchange with available transfer capacities",
			Prices:      "zone",
			Requires:    []string{"zones"},
		},
		{
			Name:        clearing.VariantReserve,
			Description: "Sequential reserve procurement then energy clearing",
			Prices:      "system",
			Requires:    []string{"run.reserve"},
		},
		{
			Name:        clearing.VariantJoint,
			Description: "Co-optimized energy and reserve clearing",
			Prices:      "system",
			Requires:    []string{"run.reserve"},
		},
	}
	c.JSON(http.StatusOK, gin.H{"variants": variants})
}
