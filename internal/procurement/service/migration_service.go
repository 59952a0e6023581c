package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/rasyendriar/machine-dashboard-app/internal/config"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/realtime"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/storage"
)

// MigrationService re-hosts drawing images that still point at legacy hosts.
type MigrationService struct {
	repo     *repository.MachinePurchaseRepository
	uploader storage.Uploader
	changes  *changes
	client   *resty.Client
	cfg      config.MigrationConfig
	logger   *zap.Logger
}

func NewMigrationService(repo *repository.MachinePurchaseRepository, uploader storage.Uploader, ch *changes, cfg config.MigrationConfig, logger *zap.Logger) *MigrationService {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}
	return &MigrationService{
		repo:     repo,
		uploader: uploader,
		changes:  ch,
		client: resty.New().
			SetTimeout(cfg.Timeout).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)),
		cfg:    cfg,
		logger: logger,
	}
}

// MigrationError one record that could not be moved
type MigrationError struct {
	ID       string `json:"id"`
	ItemName string `json:"item_name"`
	URL      string `json:"url"`
	Error    string `json:"error"`
}

// MigrationResult summary of a migration run
type MigrationResult struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Errors    []MigrationError `json:"errors"`
}

// MigrateDrawings downloads every legacy-hosted drawing, uploads it to
// storage and rewrites the record's URL. Records are independent: one
// failure does not stop the others.
func (s *MigrationService) MigrateDrawings(ctx context.Context) (*MigrationResult, error) {
	if s.uploader == nil {
		return nil, storage.ErrNotConfigured
	}
	records, err := s.repo.FindByDrawingHost(ctx, s.cfg.LegacyHosts)
	if err != nil {
		return nil, fmt.Errorf("find legacy drawings: %w", err)
	}
	result := &MigrationResult{Total: len(records), Errors: []MigrationError{}}
	if len(records) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	record := func(m *entity.MachinePurchase, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			result.Succeeded++
			return
		}
		result.Failed++
		result.Errors = append(result.Errors, MigrationError{
			ID: m.ID, ItemName: m.ItemName, URL: m.DrawingImageURL, Error: err.Error(),
		})
		s.logger.Warn("drawing migration failed", zap.String("id", m.ID), zap.Error(err))
	}

	for i := range records {
		m := &records[i]
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			record(m, s.migrateOne(ctx, m))
		}); err != nil {
			wg.Done()
			record(m, fmt.Errorf("schedule: %w", err))
		}
	}
	wg.Wait()

	s.logger.Info("drawing migration finished",
		zap.Int("total", result.Total), zap.Int("succeeded", result.Succeeded), zap.Int("failed", result.Failed))
	if result.Succeeded > 0 {
		s.changes.publish(ctx, entity.CollectionMachinePurchases, realtime.ActionUpdated, "")
	}
	return result, nil
}

func (s *MigrationService) migrateOne(ctx context.Context, m *entity.MachinePurchase) error {
	res, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(m.DrawingImageURL)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	body := res.RawBody()
	defer body.Close()
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("download: status %d", res.StatusCode())
	}

	data, err := io.ReadAll(io.LimitReader(body, s.cfg.MaxImageBytes+1))
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxImageBytes {
		return fmt.Errorf("image larger than %d bytes", s.cfg.MaxImageBytes)
	}

	contentType := res.Header().Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	name := DrawingObjectName(m.ID+imageExt(contentType, m.DrawingImageURL), time.Now())

	publicURL, err := s.uploader.Upload(ctx, name, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := s.repo.UpdateFields(ctx, m.ID, map[string]interface{}{"drawing_image_url": publicURL}); err != nil {
		return fmt.Errorf("save url: %w", err)
	}
	return nil
}

func imageExt(contentType, rawURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		}
		if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
			return exts[0]
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); len(ext) > 1 && len(ext) <= 5 {
			return ext
		}
	}
	return ".img"
}
