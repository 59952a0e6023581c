package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type MachinePurchaseHandler struct {
	svc       *service.MachinePurchaseService
	export    *service.ExportService
	dashboard *service.DashboardService
	migration *service.MigrationService
	maxUpload int64
}

func NewMachinePurchaseHandler(svc *service.MachinePurchaseService, export *service.ExportService, dashboard *service.DashboardService, migration *service.MigrationService, maxUpload int64) *MachinePurchaseHandler {
	return &MachinePurchaseHandler{svc: svc, export: export, dashboard: dashboard, migration: migration, maxUpload: maxUpload}
}

// List GET /machine-purchases?search=&project_code=&status=&page=&page_size=
func (h *MachinePurchaseHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	result, err := h.svc.List(c.Request.Context(), page, pageSize, queryFilters(c, "search", "project_code", "status"))
	if err != nil {
		Fail(c, "list machine purchases", err)
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

func (h *MachinePurchaseHandler) Get(c *gin.Context) {
	m, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, "get machine purchase", err)
		return
	}
	Success(c, m)
}

func (h *MachinePurchaseHandler) Create(c *gin.Context) {
	var req service.MachinePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		Fail(c, "create machine purchase", err)
		return
	}
	Created(c, m)
}

func (h *MachinePurchaseHandler) Update(c *gin.Context) {
	var req service.MachinePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, "update machine purchase", err)
		return
	}
	Success(c, m)
}

func (h *MachinePurchaseHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, "delete machine purchase", err)
		return
	}
	Success(c, gin.H{"id": c.Param("id")})
}

// UploadDrawing POST /machine-purchases/:id/drawing, multipart field "file"
func (h *MachinePurchaseHandler) UploadDrawing(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "no drawing uploaded: "+err.Error())
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "read upload: "+err.Error())
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	m, err := h.svc.UploadDrawing(c.Request.Context(), c.Param("id"), fileHeader.Filename, contentType, src, fileHeader.Size)
	if err != nil {
		Fail(c, "upload drawing", err)
		return
	}
	Success(c, m)
}

// MigrateDrawings POST /machine-purchases/migrate-drawings
func (h *MachinePurchaseHandler) MigrateDrawings(c *gin.Context) {
	result, err := h.migration.MigrateDrawings(c.Request.Context())
	if err != nil {
		Fail(c, "migrate drawings", err)
		return
	}
	Success(c, result)
}

func (h *MachinePurchaseHandler) Dashboard(c *gin.Context) {
	summary, err := h.dashboard.MachinePurchases(c.Request.Context(), queryFilters(c, "search", "project_code"))
	if err != nil {
		Fail(c, "machine purchase dashboard", err)
		return
	}
	Success(c, summary)
}

// Export GET /machine-purchases/export, same filters as the dashboard
func (h *MachinePurchaseHandler) Export(c *gin.Context) {
	f, filename, err := h.export.MachinePurchases(c.Request.Context(), queryFilters(c, "search", "project_code"))
	if err != nil {
		Fail(c, "export machine purchases", err)
		return
	}
	writeWorkbook(c, f, filename)
}

func writeWorkbook(c *gin.Context, f *excelize.File, filename string) {
	defer f.Close()

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
