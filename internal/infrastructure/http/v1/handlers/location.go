package handlers

import (
	"github.com/gin-gonic/gin"

	"geodeck/internal/domain/guard"
	"geodeck/internal/domain/ledger"
	"geodeck/internal/infrastructure/http/v1/dto"
)

// LocationHandler serves live location CRUD.
type LocationHandler struct {
	*BaseHandler
	engine *ledger.Engine
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(base *BaseHandler, engine *ledger.Engine) *LocationHandler {
	return &LocationHandler{BaseHandler: base, engine: engine}
}

// RegisterRoutes registers location endpoints on a project-scoped group.
func (h *LocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:locationId", h.Get)
	rg.PUT("/:locationId", h.Update)
	rg.DELETE("/:locationId", h.Delete)
}

// Create handles POST /projects/:projectId/locations
func (h *LocationHandler) Create(c *gin.Context) {
	projectID, ok := h.ParseID(c, "projectId")
	if !ok {
		return
	}
	if err := guard.Authorize(c.Request.Context(), projectID, guard.ActionWrite); err != nil {
		h.Error(c, err)
		return
	}

	var req dto.CreateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	loc, err := h.engine.CreateLocation(c.Request.Context(), projectID, req.Attrs())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedWith(c, dto.FromLocation(loc))
}

// List handles GET /projects/:projectId/locations
func (h *LocationHandler) List(c *gin.Context) {
	projectID, ok := h.ParseID(c, "projectId")
	if !ok {
		return
	}
	if err := guard.Authorize(c.Request.Context(), projectID, guard.ActionRead); err != nil {
		h.Error(c, err)
		return
	}

	locs, err := h.engine.ListLiveLocations(c.Request.Context(), projectID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromLocations(locs)
	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// Get handles GET /projects/:projectId/locations/:locationId
func (h *LocationHandler) Get(c *gin.Context) {
	projectID, ok := h.ParseID(c, "projectId")
	if !ok {
		return
	}
	locationID, ok := h.ParseID(c, "locationId")
	if !ok {
		return
	}
	if err := guard.Authorize(c.Request.Context(), projectID, guard.ActionRead); err != nil {
		h.Error(c, err)
		return
	}

	loc, err := h.engine.GetLocation(c.Request.Context(), projectID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLocation(loc))
}

// Update handles PUT /projects/:projectId/locations/:locationId
func (h *LocationHandler) Update(c *gin.Context) {
	projectID, ok := h.ParseID(c, "projectId")
	if !ok {
		return
	}
	locationID, ok := h.ParseID(c, "locationId")
	if !ok {
		return
	}
	if err := guard.Authorize(c.Request.Context(), projectID, guard.ActionWrite); err != nil {
		h.Error(c, err)
		return
	}

	var req dto.UpdateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	loc, err := h.engine.UpdateLocation(c.Request.Context(), projectID, locationID, req.Attrs())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLocation(loc))
}

// Delete handles DELETE /projects/:projectId/locations/:locationId
func (h *LocationHandler) Delete(c *gin.Context) {
	projectID, ok := h.ParseID(c, "projectId")
	if !ok {
		return
	}
	locationID, ok := h.ParseID(c, "locationId")
	if !ok {
		return
	}
	if err := guard.Authorize(c.Request.Context(), projectID, guard.ActionWrite); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.engine.DeleteLocation(c.Request.Context(), projectID, locationID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
