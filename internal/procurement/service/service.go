package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rasyendriar/machine-dashboard-app/internal/config"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/realtime"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/storage"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrStoreWrite     = errors.New("store write failed")
	ErrPreviewExpired = errors.New("import preview not found or expired")
)

// Services procurement services
type Services struct {
	MachinePurchase *MachinePurchaseService
	SparePart       *SparePartService
	Import          *ImportService
	Export          *ExportService
	Dashboard       *DashboardService
	Migration       *MigrationService
}

// NewServices wires the services. rdb, uploader and notifier may be nil:
// previews then stay in memory, drawing uploads are refused and changes are
// not pushed.
func NewServices(repos *repository.Repositories, rdb *redis.Client, uploader storage.Uploader, notifier realtime.Notifier, cfg *config.Config, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	var previews PreviewStore
	if rdb != nil {
		previews = NewRedisPreviewStore(rdb)
	} else {
		previews = NewMemoryPreviewStore()
	}
	ch := &changes{notifier: notifier, logger: logger}

	return &Services{
		MachinePurchase: NewMachinePurchaseService(repos.MachinePurchase, uploader, ch),
		SparePart:       NewSparePartService(repos.SparePart, ch),
		Import:          NewImportService(repos, previews, ch, cfg.Import, logger),
		Export:          NewExportService(repos),
		Dashboard:       NewDashboardService(repos),
		Migration:       NewMigrationService(repos.MachinePurchase, uploader, ch, cfg.Migration, logger),
	}
}

func newID() string {
	return uuid.New().String()[:32]
}

// changes publishes change events after committed writes. A failed
// notification is logged and never fails the write.
type changes struct {
	notifier realtime.Notifier
	logger   *zap.Logger
}

func (c *changes) publish(ctx context.Context, collection, action, id string) {
	if c == nil || c.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := c.notifier.Notify(ctx, realtime.Event{Collection: collection, Action: action, ID: id})
	if err != nil {
		c.logger.Warn("change notification failed",
			zap.String("collection", collection), zap.String("action", action), zap.Error(err))
	}
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}
