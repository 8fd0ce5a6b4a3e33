package handler

import (
	"net/http"

	"grievance/internal/middleware"
	"grievance/internal/model"
	"grievance/internal/service"
	"grievance/pkg/pagination"
	"grievance/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExtensionHandler struct {
	extensionService service.ExtensionService
}

func NewExtensionHandler(extensionService service.ExtensionService) *ExtensionHandler {
	return &ExtensionHandler{extensionService: extensionService}
}

func (h *ExtensionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/complaints/:id/extensions",
		middleware.RequireRole(model.RoleOfficer, model.RoleAdmin), h.RequestExtension)

	extensions := router.Group("/api/extensions")
	{
		extensions.GET("", middleware.RequireRole(model.RoleAdmin), h.ListExtensions)
		extensions.PUT("/:id/decide", middleware.RequireRole(model.RoleAdmin), h.DecideExtension)
	}
}

// RequestExtension files a deadline-extension request for a complaint
// @Summary      Request deadline extension
// @Description  Officer asks for more days on a complaint's time boundary
// @Tags         extensions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Complaint ID"
// @Param        payload  body      service.RequestExtensionRequest  true  "Extension request"
// @Success      201      {object}  response.Response{data=service.ExtensionResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/complaints/{id}/extensions [post]
func (h *ExtensionHandler) RequestExtension(c *gin.Context) {
	var req service.RequestExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Actor identity missing"))
		return
	}
	role, _ := c.Get("userRole")
	roleStr, _ := role.(string)

	result, err := h.extensionService.Request(c.Request.Context(), c.Param("id"), actor, roleStr, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// DecideExtension approves or rejects a pending extension request
// @Summary      Decide extension request
// @Description  Admin approves (extending the time boundary) or rejects
// @Tags         extensions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Extension request ID"
// @Param        payload  body      service.DecideExtensionRequest  true  "Decision"
// @Success      200      {object}  response.Response{data=service.ExtensionResponse}
// @Failure      403      {object}  response.Response
// @Router       /api/extensions/{id}/decide [put]
func (h *ExtensionHandler) DecideExtension(c *gin.Context) {
	var req service.DecideExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Actor identity missing"))
		return
	}
	role, _ := c.Get("userRole")
	roleStr, _ := role.(string)

	result, err := h.extensionService.Decide(c.Request.Context(), c.Param("id"), actor, roleStr, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListExtensions returns extension requests, optionally filtered
// @Summary      List extension requests
// @Tags         extensions
// @Produce      json
// @Security     BearerAuth
// @Param        complaint  query  string  false  "Filter by complaint id"
// @Param        status     query  string  false  "Filter by status"
// @Success      200  {object}  response.Response
// @Router       /api/extensions [get]
func (h *ExtensionHandler) ListExtensions(c *gin.Context) {
	params := pagination.Parse(c)

	requests, total, err := h.extensionService.List(c.Request.Context(),
		c.Query("complaint"), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   requests,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}
