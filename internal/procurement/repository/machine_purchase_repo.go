package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
)

// MachinePurchaseRepository machine purchase records
type MachinePurchaseRepository struct {
	db *gorm.DB
}

func NewMachinePurchaseRepository(db *gorm.DB) *MachinePurchaseRepository {
	return &MachinePurchaseRepository{db: db}
}

// FindAll paged listing, newest change first
func (r *MachinePurchaseRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.MachinePurchase, int64, error) {
	var items []entity.MachinePurchase
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.MachinePurchase{})

	if project := filters["project_code"]; project != "" {
		query = query.Where("project_code = ?", project)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := strings.ToLower(filters["search"]); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(item_name) LIKE ? OR LOWER(drawing_number) LIKE ? OR LOWER(pp_number) LIKE ? OR LOWER(po_number) LIKE ?",
			like, like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("last_updated DESC").
		Order("id").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// ListAll every record, used for snapshots, dashboards and exports
func (r *MachinePurchaseRepository) ListAll(ctx context.Context) ([]entity.MachinePurchase, error) {
	var items []entity.MachinePurchase
	err := r.db.WithContext(ctx).Order("last_updated DESC").Order("id").Find(&items).Error
	return items, err
}

func (r *MachinePurchaseRepository) FindByID(ctx context.Context, id string) (*entity.MachinePurchase, error) {
	var m entity.MachinePurchase
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *MachinePurchaseRepository) Create(ctx context.Context, m *entity.MachinePurchase) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// CreateBatch inserts all records or none.
func (r *MachinePurchaseRepository) CreateBatch(ctx context.Context, records []*entity.MachinePurchase) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(records, 200).Error
	})
}

// Update overwrites every editable column and stamps last_updated.
func (r *MachinePurchaseRepository) Update(ctx context.Context, m *entity.MachinePurchase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(m).
			Select("*").
			Omit("id", "created_at", "last_updated").
			Updates(m)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&entity.MachinePurchase{}).
			Where("id = ?", m.ID).
			UpdateColumn("last_updated", storeNow).Error
	})
}

// UpdateFields partial update, stamps last_updated.
func (r *MachinePurchaseRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["last_updated"] = storeNow
	res := r.db.WithContext(ctx).Model(&entity.MachinePurchase{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MachinePurchaseRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.MachinePurchase{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByDrawingHost records whose drawing image is hosted on one of hosts.
func (r *MachinePurchaseRepository) FindByDrawingHost(ctx context.Context, hosts []string) ([]entity.MachinePurchase, error) {
	var items []entity.MachinePurchase
	if len(hosts) == 0 {
		return items, nil
	}
	query := r.db.WithContext(ctx).Model(&entity.MachinePurchase{})
	conds := r.db.Where("drawing_image_url LIKE ?", "%"+hosts[0]+"%")
	for _, h := range hosts[1:] {
		conds = conds.Or("drawing_image_url LIKE ?", "%"+h+"%")
	}
	err := query.Where(conds).Order("id").Find(&items).Error
	return items, err
}
