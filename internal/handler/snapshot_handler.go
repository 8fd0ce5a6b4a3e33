package handler

import (
	"net/http"
	"time"

	"grievance/internal/middleware"
	"grievance/internal/model"
	"grievance/internal/service"
	"grievance/pkg/pagination"
	"grievance/pkg/response"

	"github.com/gin-gonic/gin"
)

type SnapshotHandler struct {
	snapshotService service.SnapshotService
}

func NewSnapshotHandler(snapshotService service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotService: snapshotService}
}

func (h *SnapshotHandler) RegisterRoutes(router *gin.RouterGroup) {
	snapshots := router.Group("/api/snapshots", middleware.RequireRole(model.RoleAdmin))
	{
		snapshots.POST("/compute", h.ComputeSnapshot)
		snapshots.GET("/compare", h.CompareToHistory)
		snapshots.GET("", h.ListSnapshots)
	}
}

type computeSnapshotRequest struct {
	EntityType string `json:"entity_type" binding:"required,oneof=district subdistrict village"`
	EntityCode string `json:"entity_code" binding:"required"`
	Period     string `json:"period" binding:"required,oneof=daily weekly monthly"`
	AsOf       string `json:"as_of"` // RFC3339; defaults to now
}

// ComputeSnapshot rolls up live complaint counts into a snapshot row
// @Summary      Compute snapshot
// @Description  Aggregates complaint counts for a geographic entity and appends a snapshot
// @Tags         snapshots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      computeSnapshotRequest  true  "Snapshot key"
// @Success      201      {object}  response.Response{data=model.ComplaintSnapshot}
// @Failure      400      {object}  response.Response
// @Router       /api/snapshots/compute [post]
func (h *SnapshotHandler) ComputeSnapshot(c *gin.Context) {
	var req computeSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	asOf := time.Now()
	if req.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, req.AsOf)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "as_of must be RFC3339"))
			return
		}
		asOf = parsed
	}

	snapshot, err := h.snapshotService.ComputeSnapshot(c.Request.Context(), req.EntityType, req.EntityCode, req.Period, asOf)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, snapshot))
}

// CompareToHistory returns the trend delta against the prior snapshot
// @Summary      Compare snapshot to history
// @Tags         snapshots
// @Produce      json
// @Security     BearerAuth
// @Param        entity_type  query  string  true   "district, subdistrict or village"
// @Param        entity_code  query  string  true   "Entity code"
// @Param        period       query  string  true   "daily, weekly or monthly"
// @Param        as_of        query  string  false  "RFC3339 timestamp, defaults to now"
// @Success      200  {object}  response.Response{data=model.TrendComparison}
// @Failure      404  {object}  response.Response
// @Router       /api/snapshots/compare [get]
func (h *SnapshotHandler) CompareToHistory(c *gin.Context) {
	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "as_of must be RFC3339"))
			return
		}
		asOf = parsed
	}

	comparison, err := h.snapshotService.CompareToHistory(c.Request.Context(),
		c.Query("entity_type"), c.Query("entity_code"), c.Query("period"), asOf)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, comparison))
}

// ListSnapshots returns stored snapshots, newest first
// @Summary      List snapshots
// @Tags         snapshots
// @Produce      json
// @Security     BearerAuth
// @Param        entity_type  query  string  false  "Filter by entity type"
// @Param        entity_code  query  string  false  "Filter by entity code"
// @Param        period       query  string  false  "Filter by period"
// @Success      200  {object}  response.Response
// @Router       /api/snapshots [get]
func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	params := pagination.Parse(c)

	snapshots, total, err := h.snapshotService.List(c.Request.Context(),
		c.Query("entity_type"), c.Query("entity_code"), c.Query("period"), params.Page, params.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   snapshots,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}
