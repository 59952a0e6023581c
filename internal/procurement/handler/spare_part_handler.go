package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/service"
)

type SparePartHandler struct {
	svc       *service.SparePartService
	export    *service.ExportService
	dashboard *service.DashboardService
}

func NewSparePartHandler(svc *service.SparePartService, export *service.ExportService, dashboard *service.DashboardService) *SparePartHandler {
	return &SparePartHandler{svc: svc, export: export, dashboard: dashboard}
}

// List GET /spare-parts?pp_number=&project_name=&status=&category=&search=
func (h *SparePartHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "pp_number", "project_name", "status", "category", "search")
	result, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		Fail(c, "list spare parts", err)
		return
	}
	Success(c, ListResponse{
		Items: result.Items,
		Pagination: &Pagination{
			Page:       result.Page,
			PageSize:   result.PageSize,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

func (h *SparePartHandler) Get(c *gin.Context) {
	g, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, "get spare part group", err)
		return
	}
	Success(c, g)
}

func (h *SparePartHandler) Create(c *gin.Context) {
	var req service.SparePartGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	g, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		Fail(c, "create spare part group", err)
		return
	}
	Created(c, g)
}

// Update PUT /spare-parts/:id; items missing from the body are removed.
func (h *SparePartHandler) Update(c *gin.Context) {
	var req service.SparePartGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	g, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, "update spare part group", err)
		return
	}
	Success(c, g)
}

func (h *SparePartHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, "delete spare part group", err)
		return
	}
	Success(c, gin.H{"id": c.Param("id")})
}

// DeleteItem DELETE /spare-parts/:id/items/:itemId
func (h *SparePartHandler) DeleteItem(c *gin.Context) {
	groupDeleted, err := h.svc.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		Fail(c, "delete spare part item", err)
		return
	}
	Success(c, gin.H{"id": c.Param("itemId"), "group_deleted": groupDeleted})
}

func (h *SparePartHandler) Dashboard(c *gin.Context) {
	summary, err := h.dashboard.SpareParts(c.Request.Context(), queryFilters(c, "project_name", "category"))
	if err != nil {
		Fail(c, "spare part dashboard", err)
		return
	}
	Success(c, summary)
}

func (h *SparePartHandler) Export(c *gin.Context) {
	f, filename, err := h.export.SpareParts(c.Request.Context(), queryFilters(c, "project_name", "category"))
	if err != nil {
		Fail(c, "export spare parts", err)
		return
	}
	writeWorkbook(c, f, filename)
}
