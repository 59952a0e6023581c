package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/importer"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/realtime"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/storage"
)

// MachinePurchaseService machine purchase records
type MachinePurchaseService struct {
	repo     *repository.MachinePurchaseRepository
	uploader storage.Uploader
	changes  *changes
}

func NewMachinePurchaseService(repo *repository.MachinePurchaseRepository, uploader storage.Uploader, ch *changes) *MachinePurchaseService {
	return &MachinePurchaseService{repo: repo, uploader: uploader, changes: ch}
}

// MachinePurchaseRequest create/update payload
type MachinePurchaseRequest struct {
	DrawingNumber       string                  `json:"drawing_number"`
	ProjectCode         string                  `json:"project_code"`
	ItemName            string                  `json:"item_name" binding:"required"`
	Quantity            int                     `json:"quantity"`
	DueDate             string                  `json:"due_date"`
	PIC                 string                  `json:"pic"`
	Status              entity.PurchasingStatus `json:"status"`
	PPNumber            string                  `json:"pp_number"`
	QuotationDate       string                  `json:"quotation_date"`
	Quotation           entity.QuotationRef     `json:"quotation"`
	InitialQuotation    decimal.NullDecimal     `json:"initial_quotation"`
	NegotiatedQuotation decimal.NullDecimal     `json:"negotiated_quotation"`
	PODate              string                  `json:"po_date"`
	PONumber            string                  `json:"po_number"`
	ReceivingNoteNumber string                  `json:"receiving_note_number"`
	DrawingImageURL     string                  `json:"drawing_image_url"`
}

// MachinePurchaseListResult paged listing
type MachinePurchaseListResult struct {
	Items      []entity.MachinePurchase `json:"items"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
}

func (s *MachinePurchaseService) List(ctx context.Context, page, pageSize int, filters map[string]string) (*MachinePurchaseListResult, error) {
	records, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list machine purchases: %w", err)
	}
	return &MachinePurchaseListResult{
		Items:      records,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *MachinePurchaseService) Get(ctx context.Context, id string) (*entity.MachinePurchase, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find machine purchase: %w", err)
	}
	return m, nil
}

func (s *MachinePurchaseService) Create(ctx context.Context, req *MachinePurchaseRequest) (*entity.MachinePurchase, error) {
	m := &entity.MachinePurchase{ID: newID()}
	if err := req.apply(m); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: create machine purchase: %w", ErrStoreWrite, err)
	}
	s.changes.publish(ctx, entity.CollectionMachinePurchases, realtime.ActionCreated, m.ID)
	return m, nil
}

func (s *MachinePurchaseService) Update(ctx context.Context, id string, req *MachinePurchaseRequest) (*entity.MachinePurchase, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find machine purchase: %w", err)
	}
	if err := req.apply(m); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: update machine purchase: %w", ErrStoreWrite, err)
	}
	s.changes.publish(ctx, entity.CollectionMachinePurchases, realtime.ActionUpdated, m.ID)
	return s.repo.FindByID(ctx, id)
}

func (s *MachinePurchaseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete machine purchase: %w", err)
	}
	s.changes.publish(ctx, entity.CollectionMachinePurchases, realtime.ActionDeleted, id)
	return nil
}

// UploadDrawing stores a drawing image and points the record at it.
func (s *MachinePurchaseService) UploadDrawing(ctx context.Context, id, filename, contentType string, r io.Reader, size int64) (*entity.MachinePurchase, error) {
	if s.uploader == nil {
		return nil, storage.ErrNotConfigured
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("find machine purchase: %w", err)
	}

	url, err := s.uploader.Upload(ctx, DrawingObjectName(filename, time.Now()), contentType, r, size)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"drawing_image_url": url}); err != nil {
		return nil, fmt.Errorf("%w: save drawing url: %w", ErrStoreWrite, err)
	}
	s.changes.publish(ctx, entity.CollectionMachinePurchases, realtime.ActionUpdated, id)
	return s.repo.FindByID(ctx, id)
}

// DrawingObjectName drawing_<unix ms>_<base name>
func DrawingObjectName(filename string, at time.Time) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "drawing"
	}
	return fmt.Sprintf("drawing_%d_%s", at.UnixMilli(), base)
}

// apply validates the request and copies it onto m.
func (req *MachinePurchaseRequest) apply(m *entity.MachinePurchase) error {
	itemName := strings.TrimSpace(req.ItemName)
	if itemName == "" {
		return fmt.Errorf("%w: item_name is required", ErrInvalidInput)
	}
	if req.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = entity.StatusPendingApproval
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}
	for _, q := range []decimal.NullDecimal{req.InitialQuotation, req.NegotiatedQuotation} {
		if q.Valid && q.Decimal.IsNegative() {
			return fmt.Errorf("%w: quotation must not be negative", ErrInvalidInput)
		}
	}

	dates := map[string]*string{"due_date": &req.DueDate, "quotation_date": &req.QuotationDate, "po_date": &req.PODate}
	for name, d := range dates {
		v, err := formDate(name, *d)
		if err != nil {
			return err
		}
		*d = v
	}

	m.DrawingNumber = strings.TrimSpace(req.DrawingNumber)
	m.ProjectCode = strings.TrimSpace(req.ProjectCode)
	m.ItemName = itemName
	m.Quantity = req.Quantity
	m.DueDate = req.DueDate
	m.PIC = strings.TrimSpace(req.PIC)
	m.Status = status
	m.PPNumber = strings.TrimSpace(req.PPNumber)
	m.QuotationDate = req.QuotationDate
	m.Quotation = datatypes.NewJSONType(entity.QuotationRef{
		Text: strings.TrimSpace(req.Quotation.Text),
		Link: strings.TrimSpace(req.Quotation.Link),
	})
	m.InitialQuotation = req.InitialQuotation
	m.NegotiatedQuotation = req.NegotiatedQuotation
	m.PODate = req.PODate
	m.PONumber = strings.TrimSpace(req.PONumber)
	m.ReceivingNoteNumber = strings.TrimSpace(req.ReceivingNoteNumber)
	m.DrawingImageURL = strings.TrimSpace(req.DrawingImageURL)
	return nil
}

// formDate accepts the same date spellings as the importer and returns
// YYYY-MM-DD; blank stays blank.
func formDate(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	iso, ok := importer.NormalizeDate(v)
	if !ok {
		return "", fmt.Errorf("%w: %s %q is not a date", ErrInvalidInput, field, v)
	}
	return iso, nil
}
