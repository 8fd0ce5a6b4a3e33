package handler

import (
	"net/http"
	"time"

	"grievance/internal/middleware"
	"grievance/internal/model"
	"grievance/internal/repository"
	"grievance/internal/service"
	"grievance/pkg/pagination"
	"grievance/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ComplaintHandler struct {
	complaintService service.ComplaintService
	eventService     service.EventService
}

func NewComplaintHandler(complaintService service.ComplaintService, eventService service.EventService) *ComplaintHandler {
	return &ComplaintHandler{complaintService: complaintService, eventService: eventService}
}

func (h *ComplaintHandler) RegisterRoutes(router *gin.RouterGroup) {
	complaints := router.Group("/api/complaints")
	{
		complaints.POST("", middleware.RequireRole(model.RoleCitizen, model.RoleAdmin), h.CreateComplaint)
		complaints.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleOfficer), h.ListComplaints)
		complaints.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleOfficer, model.RoleCitizen), h.GetComplaint)
		complaints.PUT("/:id/assign", middleware.RequireRole(model.RoleAdmin), h.AssignOfficer)
		complaints.PUT("/:id/reassign", middleware.RequireRole(model.RoleAdmin), h.ReassignOfficer)
		complaints.PUT("/:id/status", middleware.RequireRole(model.RoleAdmin, model.RoleOfficer), h.SetStatus)
		complaints.PUT("/:id/close", middleware.RequireRole(model.RoleAdmin, model.RoleOfficer), h.CloseComplaint)
		complaints.PUT("/:id/priority", middleware.RequireRole(model.RoleAdmin), h.SetPriority)
		complaints.GET("/:id/overdue", middleware.RequireRole(model.RoleAdmin, model.RoleOfficer), h.CheckOverdue)
		complaints.POST("/:id/notes", middleware.RequireRole(model.RoleAdmin, model.RoleOfficer), h.AddNote)
		complaints.GET("/:id/notes", middleware.RequireRole(model.RoleAdmin, model.RoleOfficer), h.ListNotes)
		complaints.GET("/:id/events", middleware.RequireRole(model.RoleAdmin, model.RoleOfficer), h.ListEvents)
	}
}

// actorID extracts the authenticated actor's id set by the middleware.
func actorID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, false
	}
	idStr, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CreateComplaint registers a new grievance
// @Summary      Create a complaint
// @Description  Files a new citizen grievance; status starts at pending
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateComplaintRequest  true  "Complaint payload"
// @Success      201      {object}  response.Response{data=service.ComplaintResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/complaints [post]
func (h *ComplaintHandler) CreateComplaint(c *gin.Context) {
	var req service.CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	var citizenID *uuid.UUID
	if id, ok := actorID(c); ok {
		citizenID = &id
	}

	result, err := h.complaintService.Create(c.Request.Context(), citizenID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListComplaints returns complaints filtered by status/district/officer
// @Summary      List complaints
// @Tags         complaints
// @Produce      json
// @Security     BearerAuth
// @Param        status    query  string  false  "Filter by status"
// @Param        district  query  string  false  "Filter by district code"
// @Param        officer   query  string  false  "Filter by officer id"
// @Param        citizen   query  string  false  "Filter by citizen id"
// @Success      200  {object}  response.Response
// @Router       /api/complaints [get]
func (h *ComplaintHandler) ListComplaints(c *gin.Context) {
	params := pagination.Parse(c)

	filter := repository.ComplaintFilter{
		Status:       c.Query("status"),
		DistrictCode: c.Query("district"),
	}
	if officer := c.Query("officer"); officer != "" {
		if id, err := uuid.Parse(officer); err == nil {
			filter.OfficerID = &id
		}
	}
	if citizen := c.Query("citizen"); citizen != "" {
		if id, err := uuid.Parse(citizen); err == nil {
			filter.CitizenID = &id
		}
	}

	complaints, total, err := h.complaintService.List(c.Request.Context(), filter, params.Page, params.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   complaints,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// GetComplaint returns a single complaint by id
// @Summary      Get complaint
// @Tags         complaints
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Complaint ID"
// @Success      200  {object}  response.Response{data=service.ComplaintResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/complaints/{id} [get]
func (h *ComplaintHandler) GetComplaint(c *gin.Context) {
	result, err := h.complaintService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type assignRequest struct {
	OfficerID string `json:"officer_id" binding:"required"`
}

// AssignOfficer binds an officer to a pending complaint
// @Summary      Assign officer
// @Description  Moves a pending complaint to in_progress and starts the SLA clock
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true  "Complaint ID"
// @Param        payload  body      assignRequest  true  "Officer"
// @Success      200      {object}  response.Response{data=service.ComplaintResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/complaints/{id}/assign [put]
func (h *ComplaintHandler) AssignOfficer(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Actor identity missing"))
		return
	}

	result, err := h.complaintService.Assign(c.Request.Context(), c.Param("id"), req.OfficerID, actor)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ReassignOfficer swaps the officer on an in-progress complaint
// @Summary      Reassign officer
// @Description  Replaces the officer without restarting the SLA clock
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true  "Complaint ID"
// @Param        payload  body      assignRequest  true  "New officer"
// @Success      200      {object}  response.Response{data=service.ComplaintResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/complaints/{id}/reassign [put]
func (h *ComplaintHandler) ReassignOfficer(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Actor identity missing"))
		return
	}

	result, err := h.complaintService.Reassign(c.Request.Context(), c.Param("id"), req.OfficerID, actor)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending in_progress resolved rejected"`
}

// SetStatus moves an in-progress complaint to resolved or rejected
// @Summary      Set complaint status
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string            true  "Complaint ID"
// @Param        payload  body      setStatusRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=service.ComplaintResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/complaints/{id}/status [put]
func (h *ComplaintHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Actor identity missing"))
		return
	}

	result, err := h.complaintService.SetStatus(c.Request.Context(), c.Param("id"), req.Status, actor)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CloseComplaint records closing details on a resolved/rejected complaint
// @Summary      Close complaint
// @Description  Irreversibly closes a resolved or rejected complaint with proof
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Complaint ID"
// @Param        payload  body      service.CloseComplaintRequest  true  "Closing details"
// @Success      200      {object}  response.Response{data=service.ComplaintResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/complaints/{id}/close [put]
func (h *ComplaintHandler) CloseComplaint(c *gin.Context) {
	var req service.CloseComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Actor identity missing"))
		return
	}

	result, err := h.complaintService.Close(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type setPriorityRequest struct {
	Priority string `json:"priority" binding:"required,oneof=low medium high urgent"`
}

// SetPriority reclassifies a complaint's priority
// @Summary      Set complaint priority
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Complaint ID"
// @Param        payload  body      setPriorityRequest  true  "Priority"
// @Success      200      {object}  response.Response{data=service.ComplaintResponse}
// @Router       /api/complaints/{id}/priority [put]
func (h *ComplaintHandler) SetPriority(c *gin.Context) {
	var req setPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Actor identity missing"))
		return
	}

	result, err := h.complaintService.SetPriority(c.Request.Context(), c.Param("id"), req.Priority, actor)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CheckOverdue reports whether a complaint has blown its deadline
// @Summary      Check overdue
// @Tags         complaints
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Complaint ID"
// @Success      200  {object}  response.Response
// @Router       /api/complaints/{id}/overdue [get]
func (h *ComplaintHandler) CheckOverdue(c *gin.Context) {
	overdue, err := h.complaintService.IsOverdue(c.Request.Context(), c.Param("id"), time.Now())
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"is_overdue": overdue}))
}

// AddNote attaches a working note to a complaint
// @Summary      Add note
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Complaint ID"
// @Param        payload  body      service.AddNoteRequest  true  "Note"
// @Success      201      {object}  response.Response
// @Router       /api/complaints/{id}/notes [post]
func (h *ComplaintHandler) AddNote(c *gin.Context) {
	var req service.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Actor identity missing"))
		return
	}

	note, err := h.complaintService.AddNote(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, note))
}

// ListNotes returns a complaint's notes in chronological order
// @Summary      List notes
// @Tags         complaints
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Complaint ID"
// @Success      200  {object}  response.Response
// @Router       /api/complaints/{id}/notes [get]
func (h *ComplaintHandler) ListNotes(c *gin.Context) {
	notes, err := h.complaintService.ListNotes(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, notes))
}

// ListEvents returns the ordered lifecycle event stream for a complaint
// @Summary      List lifecycle events
// @Tags         complaints
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Complaint ID"
// @Success      200  {object}  response.Response
// @Router       /api/complaints/{id}/events [get]
func (h *ComplaintHandler) ListEvents(c *gin.Context) {
	complaintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid complaint id"))
		return
	}

	events, err := h.eventService.ListByComplaint(c.Request.Context(), complaintID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, events))
}
