package handlers

import (
	"github.com/gin-gonic/gin"

	"geodeck/internal/core/apperror"
	"geodeck/internal/core/id"
	"geodeck/internal/domain/guard"
	"geodeck/internal/domain/ledger"
	"geodeck/internal/infrastructure/http/v1/dto"
)

// HistoryHandler serves timeline reconstruction and rollback endpoints.
type HistoryHandler struct {
	*BaseHandler
	engine *ledger.Engine
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(base *BaseHandler, engine *ledger.Engine) *HistoryHandler {
	return &HistoryHandler{BaseHandler: base, engine: engine}
}

// RegisterRoutes registers history and rollback endpoints on a
// project-scoped group.
func (h *HistoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/history", h.History)
	rg.POST("/rollback", h.RollbackProject)
	rg.POST("/locations/:locationId/rollback", h.RollbackLocation)
}

// History handles GET /projects/:projectId/history
//
// Returns the reconstructed timeline newest first: each element is a
// ledger entry plus the full set of locations alive right after it.
func (h *HistoryHandler) History(c *gin.Context) {
	projectID, ok := h.ParseID(c, "projectId")
	if !ok {
		return
	}
	if err := guard.Authorize(c.Request.Context(), projectID, guard.ActionRead); err != nil {
		h.Error(c, err)
		return
	}

	var query dto.HistoryQuery
	if !h.BindQuery(c, &query) {
		return
	}
	if query.Limit == 0 {
		query.Limit = dto.DefaultHistoryLimit
	}

	snapshots, err := h.engine.ListProjectHistory(c.Request.Context(), projectID, query.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromSnapshots(snapshots)
	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// RollbackLocation handles POST /projects/:projectId/locations/:locationId/rollback
func (h *HistoryHandler) RollbackLocation(c *gin.Context) {
	projectID, ok := h.ParseID(c, "projectId")
	if !ok {
		return
	}
	locationID, ok := h.ParseID(c, "locationId")
	if !ok {
		return
	}
	if err := guard.Authorize(c.Request.Context(), projectID, guard.ActionRollback); err != nil {
		h.Error(c, err)
		return
	}

	var req dto.RollbackRequest
	if !h.BindJSON(c, &req) {
		return
	}
	versionID, err := h.parseVersionID(req.VersionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	loc, err := h.engine.RollbackLocation(c.Request.Context(), projectID, locationID, versionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLocation(loc))
}

// RollbackProject handles POST /projects/:projectId/rollback
func (h *HistoryHandler) RollbackProject(c *gin.Context) {
	projectID, ok := h.ParseID(c, "projectId")
	if !ok {
		return
	}
	if err := guard.Authorize(c.Request.Context(), projectID, guard.ActionRollback); err != nil {
		h.Error(c, err)
		return
	}

	var req dto.RollbackRequest
	if !h.BindJSON(c, &req) {
		return
	}
	versionID, err := h.parseVersionID(req.VersionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.engine.RollbackProject(c.Request.Context(), projectID, versionID); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.RollbackProjectResponse{Success: true, VersionID: versionID.String()})
}

func (h *HistoryHandler) parseVersionID(raw string) (id.ID, error) {
	versionID, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid version id").WithDetail("value", raw)
	}
	return versionID, nil
}
