package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rasyendriar/machine-dashboard-app/internal/config"
	"github.com/rasyendriar/machine-dashboard-app/internal/middleware"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/importer"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/service"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/realtime"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/storage"
)

// Handlers all HTTP handlers of the API
type Handlers struct {
	MachinePurchase *MachinePurchaseHandler
	SparePart       *SparePartHandler
	Import          *ImportHandler
	Realtime        *RealtimeHandler
}

// NewHandlers wires one handler per resource. hub feeds the SSE and
// WebSocket streams.
func NewHandlers(svc *service.Services, hub *realtime.Hub, cfg *config.Config, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := int64(cfg.Server.MaxUploadMB) << 20
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &Handlers{
		MachinePurchase: NewMachinePurchaseHandler(svc.MachinePurchase, svc.Export, svc.Dashboard, svc.Migration, maxUpload),
		SparePart:       NewSparePartHandler(svc.SparePart, svc.Export, svc.Dashboard),
		Import:          NewImportHandler(svc.Import, maxUpload),
		Realtime:        NewRealtimeHandler(hub, svc.Dashboard, logger),
	}
}

// RegisterRoutes mounts the procurement API on an authenticated group.
// Reads are open to every signed-in user; writes need the admin role.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	admin := middleware.RequireRole(middleware.RoleAdmin)

	machines := api.Group("/machine-purchases")
	{
		machines.GET("", h.MachinePurchase.List)
		machines.GET("/dashboard", h.MachinePurchase.Dashboard)
		machines.GET("/export", h.MachinePurchase.Export)
		machines.GET("/:id", h.MachinePurchase.Get)
		machines.POST("", admin, h.MachinePurchase.Create)
		machines.POST("/migrate-drawings", admin, h.MachinePurchase.MigrateDrawings)
		machines.PUT("/:id", admin, h.MachinePurchase.Update)
		machines.DELETE("/:id", admin, h.MachinePurchase.Delete)
		machines.POST("/:id/drawing", admin, h.MachinePurchase.UploadDrawing)
	}

	spares := api.Group("/spare-parts")
	{
		spares.GET("", h.SparePart.List)
		spares.GET("/dashboard", h.SparePart.Dashboard)
		spares.GET("/export", h.SparePart.Export)
		spares.GET("/:id", h.SparePart.Get)
		spares.POST("", admin, h.SparePart.Create)
		spares.PUT("/:id", admin, h.SparePart.Update)
		spares.DELETE("/:id", admin, h.SparePart.Delete)
		spares.DELETE("/:id/items/:itemId", admin, h.SparePart.DeleteItem)
	}

	imports := api.Group("/imports", admin)
	{
		imports.POST("/:kind/preview", h.Import.Preview)
		imports.GET("/previews/:token", h.Import.GetPreview)
		imports.POST("/previews/:token/commit", h.Import.Commit)
		imports.DELETE("/previews/:token", h.Import.Discard)
	}

	api.GET("/events", h.Realtime.Stream)
	api.GET("/ws", h.Realtime.WebSocket)
}

// Response common response envelope
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse paged list payload
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination page info
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success 200 with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 with data
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error writes the envelope; the HTTP status is code/100.
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// Unavailable a backing service (object storage) is not configured.
func Unavailable(c *gin.Context, message string) {
	Error(c, 50300, message)
}

// Fail maps a service error onto the envelope, prefixing it with what was
// being attempted.
func Fail(c *gin.Context, action string, err error) {
	var perr *importer.ParseError
	switch {
	case errors.As(err, &perr):
		Error(c, 40001, action+": "+err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		BadRequest(c, action+": "+err.Error())
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, action+": "+err.Error())
	case errors.Is(err, service.ErrPreviewExpired):
		Error(c, 40401, action+": "+err.Error())
	case errors.Is(err, storage.ErrNotConfigured):
		Unavailable(c, action+": "+err.Error())
	default:
		InternalError(c, action+": "+err.Error())
	}
}

// GetUserID subject of the request token
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination page and page_size query params
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// queryFilters collects the non-empty query parameters named in keys.
func queryFilters(c *gin.Context, keys ...string) map[string]string {
	filters := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			filters[k] = v
		}
	}
	return filters
}
