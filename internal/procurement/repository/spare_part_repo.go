package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
)

// SparePartRepository requisition groups and their line items
type SparePartRepository struct {
	db *gorm.DB
}

func NewSparePartRepository(db *gorm.DB) *SparePartRepository {
	return &SparePartRepository{db: db}
}

// Transaction runs fn against a repository bound to one transaction.
func (r *SparePartRepository) Transaction(ctx context.Context, fn func(repo *SparePartRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SparePartRepository{db: tx})
	})
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC").Order("id ASC")
	})
}

// FindAll paged listing with items
func (r *SparePartRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.SparePartGroup, int64, error) {
	var groups []entity.SparePartGroup
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SparePartGroup{})

	if pp := filters["pp_number"]; pp != "" {
		query = query.Where("pp_number = ?", pp)
	}
	if project := filters["project_name"]; project != "" {
		query = query.Where("project_name = ?", project)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if category := filters["category"]; category != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&entity.SparePartItem{}).Select("group_id").Where("category = ?", category))
	}
	if search := strings.ToLower(filters["search"]); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(pp_number) LIKE ? OR LOWER(project_name) LIKE ? OR id IN (?)", like, like,
			r.db.Model(&entity.SparePartItem{}).Select("group_id").Where("LOWER(product_name) LIKE ? OR LOWER(part_code) LIKE ?", like, like))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := preloadItems(query).
		Order("last_updated DESC").
		Order("id").
		Offset(offset).
		Limit(pageSize).
		Find(&groups).Error

	return groups, total, err
}

// ListAll every group with items
func (r *SparePartRepository) ListAll(ctx context.Context) ([]entity.SparePartGroup, error) {
	var groups []entity.SparePartGroup
	err := preloadItems(r.db.WithContext(ctx)).Order("last_updated DESC").Order("id").Find(&groups).Error
	return groups, err
}

func (r *SparePartRepository) FindByID(ctx context.Context, id string) (*entity.SparePartGroup, error) {
	var g entity.SparePartGroup
	if err := preloadItems(r.db.WithContext(ctx)).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// FindByPPNumbers stored groups per PP number, oldest first.
func (r *SparePartRepository) FindByPPNumbers(ctx context.Context, numbers []string) (map[string][]entity.SparePartGroup, error) {
	out := make(map[string][]entity.SparePartGroup)
	if len(numbers) == 0 {
		return out, nil
	}
	var groups []entity.SparePartGroup
	err := preloadItems(r.db.WithContext(ctx)).
		Where("pp_number IN ?", numbers).
		Order("created_at ASC").
		Order("id ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		out[g.PPNumber] = append(out[g.PPNumber], g)
	}
	return out, nil
}

// Create inserts a group and its items.
func (r *SparePartRepository) Create(ctx context.Context, g *entity.SparePartGroup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createGroup(tx, g)
	})
}

// Replace overwrites the group header and swaps its items for g.Items.
func (r *SparePartRepository) Replace(ctx context.Context, g *entity.SparePartGroup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateHeader(tx, g); err != nil {
			return err
		}
		keep := make([]string, 0, len(g.Items))
		for i := range g.Items {
			if g.Items[i].ID != "" {
				keep = append(keep, g.Items[i].ID)
			}
		}
		del := tx.Where("group_id = ?", g.ID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&entity.SparePartItem{}).Error; err != nil {
			return err
		}
		return upsertItems(tx, g)
	})
}

// Apply writes a reconciliation result atomically: either every insert and
// update lands or none does.
func (r *SparePartRepository) Apply(ctx context.Context, inserts, updates []*entity.SparePartGroup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range inserts {
			if err := createGroup(tx, g); err != nil {
				return err
			}
		}
		for _, g := range updates {
			if err := updateHeader(tx, g); err != nil {
				return err
			}
			if err := upsertItems(tx, g); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a group with all of its items.
func (r *SparePartRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&entity.SparePartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entity.SparePartGroup{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteItem removes one line item. A group left without items is deleted as
// well; groupDeleted reports that.
func (r *SparePartRepository) DeleteItem(ctx context.Context, groupID, itemID string) (groupDeleted bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND group_id = ?", itemID, groupID).Delete(&entity.SparePartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var left int64
		if err := tx.Model(&entity.SparePartItem{}).Where("group_id = ?", groupID).Count(&left).Error; err != nil {
			return err
		}
		if left == 0 {
			groupDeleted = true
			return tx.Where("id = ?", groupID).Delete(&entity.SparePartGroup{}).Error
		}
		return tx.Model(&entity.SparePartGroup{}).Where("id = ?", groupID).
			UpdateColumn("last_updated", storeNow).Error
	})
	return groupDeleted, err
}

func createGroup(tx *gorm.DB, g *entity.SparePartGroup) error {
	if err := tx.Omit(clause.Associations).Create(g).Error; err != nil {
		return err
	}
	if len(g.Items) == 0 {
		return nil
	}
	for i := range g.Items {
		g.Items[i].GroupID = g.ID
	}
	return tx.Create(&g.Items).Error
}

func updateHeader(tx *gorm.DB, g *entity.SparePartGroup) error {
	res := tx.Model(&entity.SparePartGroup{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
		"pp_number":    g.PPNumber,
		"pp_date":      g.PPDate,
		"project_name": g.ProjectName,
		"machine_name": g.MachineName,
		"category":     g.Category,
		"status":       g.Status,
		"po_number":    g.PONumber,
		"po_date":      g.PODate,
		"ao_name":      g.AOName,
		"lpb_number":   g.LPBNumber,
		"lpb_date":     g.LPBDate,
		"last_updated": storeNow,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// upsertItems inserts new items and overwrites known ones by id.
func upsertItems(tx *gorm.DB, g *entity.SparePartGroup) error {
	if len(g.Items) == 0 {
		return nil
	}
	for i := range g.Items {
		g.Items[i].GroupID = g.ID
		g.Items[i].SortOrder = i
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&g.Items).Error
}
