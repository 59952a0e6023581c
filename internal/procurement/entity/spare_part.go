package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SparePartStatus status of a spare-part requisition
type SparePartStatus string

const (
	SpareStatusApproval SparePartStatus = "Approval"
	SpareStatusPP       SparePartStatus = "PP"
	SpareStatusPO       SparePartStatus = "PO"
	SpareStatusIncoming SparePartStatus = "Incoming"
)

var SparePartStatuses = []SparePartStatus{SpareStatusApproval, SpareStatusPP, SpareStatusPO, SpareStatusIncoming}

// Spare part categories
const (
	CategoryMechanical = "Mechanical"
	CategoryElectrical = "Electrical"
	CategoryTools      = "Tools"
)

var SparePartCategories = []string{CategoryMechanical, CategoryElectrical, CategoryTools}

// SparePartGroup one purchase requisition (PP) with its ordered line items.
// PPNumber is the reconciliation key but is not enforced unique.
type SparePartGroup struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	PPNumber    string          `json:"pp_number" gorm:"column:pp_number;size:100;index"`
	PPDate      string          `json:"pp_date" gorm:"column:pp_date;size:10"`
	ProjectName string          `json:"project_name" gorm:"size:200;index"`
	MachineName string          `json:"machine_name" gorm:"size:200"`
	Category    string          `json:"category" gorm:"size:50"`
	Status      SparePartStatus `json:"status" gorm:"size:20;not null;default:'Approval'"`
	PONumber    string          `json:"po_number" gorm:"column:po_number;size:100"`
	PODate      string          `json:"po_date" gorm:"column:po_date;size:10"`
	AOName      string          `json:"ao_name" gorm:"column:ao_name;size:100"`
	LPBNumber   string          `json:"lpb_number" gorm:"column:lpb_number;size:100"`
	LPBDate     string          `json:"lpb_date" gorm:"column:lpb_date;size:10"`
	CreatedAt   time.Time       `json:"created_at"`
	LastUpdated time.Time       `json:"last_updated" gorm:"default:CURRENT_TIMESTAMP"`

	Items []SparePartItem `json:"items" gorm:"foreignKey:GroupID"`
}

func (SparePartGroup) TableName() string {
	return "spare_part_groups"
}

// SparePartItem requisition line item
type SparePartItem struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	GroupID     string          `json:"group_id" gorm:"size:32;not null;index"`
	SortOrder   int             `json:"sort_order" gorm:"default:0"`
	PartCode    string          `json:"part_code" gorm:"size:100"`
	ProductName string          `json:"product_name" gorm:"size:255;not null"`
	Model       string          `json:"model" gorm:"size:200"`
	Maker       string          `json:"maker" gorm:"size:200"`
	Category    string          `json:"category" gorm:"size:50"`
	Quantity    int             `json:"quantity" gorm:"not null;default:0"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(18,2);not null;default:0"`
	PONumber    string          `json:"po_number" gorm:"column:po_number;size:100"`
	PODate      string          `json:"po_date" gorm:"column:po_date;size:10"`
	LPBNumber   string          `json:"lpb_number" gorm:"column:lpb_number;size:100"`
	LPBDate     string          `json:"lpb_date" gorm:"column:lpb_date;size:10"`
}

func (SparePartItem) TableName() string {
	return "spare_part_items"
}

// MergeKey identity of a line item inside its group: part code, else product name.
// Empty means the item can never be matched.
func (i *SparePartItem) MergeKey() string {
	key := strings.TrimSpace(i.PartCode)
	if key == "" {
		key = strings.TrimSpace(i.ProductName)
	}
	return strings.ToLower(key)
}

// Total unit price times quantity
func (i *SparePartItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
