package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/realtime"
)

// SparePartService requisition groups edited through the form
type SparePartService struct {
	repo    *repository.SparePartRepository
	changes *changes
}

func NewSparePartService(repo *repository.SparePartRepository, ch *changes) *SparePartService {
	return &SparePartService{repo: repo, changes: ch}
}

// SparePartItemRequest one line item. ID is set when editing an existing item.
type SparePartItemRequest struct {
	ID          string          `json:"id"`
	PartCode    string          `json:"part_code"`
	ProductName string          `json:"product_name" binding:"required"`
	Model       string          `json:"model"`
	Maker       string          `json:"maker"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PONumber    string          `json:"po_number"`
	PODate      string          `json:"po_date"`
	LPBNumber   string          `json:"lpb_number"`
	LPBDate     string          `json:"lpb_date"`
}

// SparePartGroupRequest group header plus the complete item list
type SparePartGroupRequest struct {
	PPNumber    string                 `json:"pp_number"`
	PPDate      string                 `json:"pp_date"`
	ProjectName string                 `json:"project_name"`
	MachineName string                 `json:"machine_name"`
	Category    string                 `json:"category"`
	Status      entity.SparePartStatus `json:"status"`
	PONumber    string                 `json:"po_number"`
	PODate      string                 `json:"po_date"`
	AOName      string                 `json:"ao_name"`
	LPBNumber   string                 `json:"lpb_number"`
	LPBDate     string                 `json:"lpb_date"`
	Items       []SparePartItemRequest `json:"items" binding:"required,dive"`
}

// SparePartListResult paged listing
type SparePartListResult struct {
	Items      []entity.SparePartGroup `json:"items"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
	TotalPages int                     `json:"total_pages"`
}

func (s *SparePartService) List(ctx context.Context, page, pageSize int, filters map[string]string) (*SparePartListResult, error) {
	groups, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list spare parts: %w", err)
	}
	return &SparePartListResult{
		Items:      groups,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *SparePartService) Get(ctx context.Context, id string) (*entity.SparePartGroup, error) {
	g, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find spare part group: %w", err)
	}
	return g, nil
}

func (s *SparePartService) Create(ctx context.Context, req *SparePartGroupRequest) (*entity.SparePartGroup, error) {
	g := &entity.SparePartGroup{ID: newID()}
	if err := req.apply(g, nil); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("%w: create spare part group: %w", ErrStoreWrite, err)
	}
	s.changes.publish(ctx, entity.CollectionSpareParts, realtime.ActionCreated, g.ID)
	return s.repo.FindByID(ctx, g.ID)
}

// Update replaces the header and the item list. Items whose id is not sent
// again are removed.
func (s *SparePartService) Update(ctx context.Context, id string, req *SparePartGroupRequest) (*entity.SparePartGroup, error) {
	g, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find spare part group: %w", err)
	}
	known := make(map[string]bool, len(g.Items))
	for _, it := range g.Items {
		known[it.ID] = true
	}
	if err := req.apply(g, known); err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, g); err != nil {
		return nil, fmt.Errorf("%w: update spare part group: %w", ErrStoreWrite, err)
	}
	s.changes.publish(ctx, entity.CollectionSpareParts, realtime.ActionUpdated, id)
	return s.repo.FindByID(ctx, id)
}

func (s *SparePartService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete spare part group: %w", err)
	}
	s.changes.publish(ctx, entity.CollectionSpareParts, realtime.ActionDeleted, id)
	return nil
}

// DeleteItem removes one line item; the group goes with its last item.
func (s *SparePartService) DeleteItem(ctx context.Context, groupID, itemID string) (groupDeleted bool, err error) {
	groupDeleted, err = s.repo.DeleteItem(ctx, groupID, itemID)
	if err != nil {
		return false, fmt.Errorf("delete spare part item: %w", err)
	}
	action := realtime.ActionUpdated
	if groupDeleted {
		action = realtime.ActionDeleted
	}
	s.changes.publish(ctx, entity.CollectionSpareParts, action, groupID)
	return groupDeleted, nil
}

// apply validates the request onto g. known holds the item ids g already
// owns; other ids are replaced with fresh ones.
func (req *SparePartGroupRequest) apply(g *entity.SparePartGroup, known map[string]bool) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: a requisition needs at least one item", ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = entity.SpareStatusApproval
	}
	if !validSpareStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}

	var err error
	header := *req
	for name, d := range map[string]*string{"pp_date": &header.PPDate, "po_date": &header.PODate, "lpb_date": &header.LPBDate} {
		if *d, err = formDate(name, *d); err != nil {
			return err
		}
	}

	items := make([]entity.SparePartItem, 0, len(req.Items))
	used := make(map[string]bool, len(req.Items))
	for i, in := range req.Items {
		name := strings.TrimSpace(in.ProductName)
		if name == "" {
			return fmt.Errorf("%w: item %d: product_name is required", ErrInvalidInput, i+1)
		}
		if in.Quantity < 1 {
			return fmt.Errorf("%w: item %d: quantity must be at least 1", ErrInvalidInput, i+1)
		}
		if in.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d: unit_price must not be negative", ErrInvalidInput, i+1)
		}
		it := entity.SparePartItem{
			ID:          in.ID,
			PartCode:    strings.TrimSpace(in.PartCode),
			ProductName: name,
			Model:       strings.TrimSpace(in.Model),
			Maker:       strings.TrimSpace(in.Maker),
			Category:    strings.TrimSpace(in.Category),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			PONumber:    strings.TrimSpace(in.PONumber),
			LPBNumber:   strings.TrimSpace(in.LPBNumber),
			SortOrder:   i,
		}
		if it.PODate, err = formDate("po_date", in.PODate); err != nil {
			return err
		}
		if it.LPBDate, err = formDate("lpb_date", in.LPBDate); err != nil {
			return err
		}
		if it.ID == "" || !known[it.ID] || used[it.ID] {
			it.ID = newID()
		}
		used[it.ID] = true
		it.GroupID = g.ID
		items = append(items, it)
	}

	g.PPNumber = strings.TrimSpace(header.PPNumber)
	g.PPDate = header.PPDate
	g.ProjectName = strings.TrimSpace(header.ProjectName)
	g.MachineName = strings.TrimSpace(header.MachineName)
	g.Category = strings.TrimSpace(header.Category)
	g.Status = status
	g.PONumber = strings.TrimSpace(header.PONumber)
	g.PODate = header.PODate
	g.AOName = strings.TrimSpace(header.AOName)
	g.LPBNumber = strings.TrimSpace(header.LPBNumber)
	g.LPBDate = header.LPBDate
	g.Items = items
	return nil
}

func validSpareStatus(s entity.SparePartStatus) bool {
	for _, v := range entity.SparePartStatuses {
		if s == v {
			return true
		}
	}
	return false
}
