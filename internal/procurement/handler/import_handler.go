package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/service"
)

// ImportHandler two-step spreadsheet import: preview, then commit or discard.
type ImportHandler struct {
	svc       *service.ImportService
	maxUpload int64
}

func NewImportHandler(svc *service.ImportService, maxUpload int64) *ImportHandler {
	return &ImportHandler{svc: svc, maxUpload: maxUpload}
}

// Preview POST /imports/:kind/preview, multipart field "file"
func (h *ImportHandler) Preview(c *gin.Context) {
	kind, err := service.ParseImportKind(c.Param("kind"))
	if err != nil {
		Fail(c, "import preview", err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "no spreadsheet uploaded: "+err.Error())
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "read upload: "+err.Error())
		return
	}
	defer src.Close()

	preview, err := h.svc.Preview(c.Request.Context(), kind, GetUserID(c), fileHeader.Filename, src)
	if err != nil {
		Fail(c, "import preview", err)
		return
	}
	Created(c, preview)
}

func (h *ImportHandler) GetPreview(c *gin.Context) {
	preview, err := h.svc.GetPreview(c.Request.Context(), c.Param("token"))
	if err != nil {
		Fail(c, "get import preview", err)
		return
	}
	Success(c, preview)
}

// Commit POST /imports/previews/:token/commit
func (h *ImportHandler) Commit(c *gin.Context) {
	result, err := h.svc.Commit(c.Request.Context(), c.Param("token"))
	if err != nil {
		Fail(c, "commit import", err)
		return
	}
	Success(c, result)
}

func (h *ImportHandler) Discard(c *gin.Context) {
	if err := h.svc.Discard(c.Request.Context(), c.Param("token")); err != nil {
		Fail(c, "discard import", err)
		return
	}
	Success(c, gin.H{"token": c.Param("token")})
}
