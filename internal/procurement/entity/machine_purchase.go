package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PurchasingStatus purchasing lifecycle of a machine purchase
type PurchasingStatus string

const (
	StatusPendingApproval PurchasingStatus = "Pending Approval"
	StatusPP              PurchasingStatus = "PP"
	StatusPO              PurchasingStatus = "PO"
	StatusIncoming        PurchasingStatus = "Incoming"
)

// PurchasingStatuses in display order.
var PurchasingStatuses = []PurchasingStatus{StatusPendingApproval, StatusPP, StatusPO, StatusIncoming}

// Valid reports whether s is one of the known purchasing statuses.
func (s PurchasingStatus) Valid() bool {
	for _, v := range PurchasingStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// QuotationRef supplier quotation (SPH) reference
type QuotationRef struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// MachinePurchase one tracked machine/part purchase
type MachinePurchase struct {
	ID                  string                           `json:"id" gorm:"primaryKey;size:32"`
	DrawingNumber       string                           `json:"drawing_number" gorm:"size:100"`
	ProjectCode         string                           `json:"project_code" gorm:"size:100;index"`
	ItemName            string                           `json:"item_name" gorm:"size:255;not null"`
	Quantity            int                              `json:"quantity" gorm:"not null;default:0"`
	DueDate             string                           `json:"due_date" gorm:"size:10"` // YYYY-MM-DD, empty = none
	PIC                 string                           `json:"pic" gorm:"column:pic;size:100"`
	Status              PurchasingStatus                 `json:"status" gorm:"size:20;not null;default:'Pending Approval'"`
	PPNumber            string                           `json:"pp_number" gorm:"size:100;index"`
	QuotationDate       string                           `json:"quotation_date" gorm:"size:10"`
	Quotation           datatypes.JSONType[QuotationRef] `json:"quotation"`
	InitialQuotation    decimal.NullDecimal              `json:"initial_quotation" gorm:"type:decimal(18,2)"`
	NegotiatedQuotation decimal.NullDecimal              `json:"negotiated_quotation" gorm:"type:decimal(18,2)"`
	PODate              string                           `json:"po_date" gorm:"column:po_date;size:10"`
	PONumber            string                           `json:"po_number" gorm:"column:po_number;size:100"`
	ReceivingNoteNumber string                           `json:"receiving_note_number" gorm:"size:100"` // LPB
	DrawingImageURL     string                           `json:"drawing_image_url" gorm:"size:1024"`
	CreatedAt           time.Time                        `json:"created_at"`
	LastUpdated         time.Time                        `json:"last_updated" gorm:"default:CURRENT_TIMESTAMP"`

	TotalPrice decimal.Decimal `json:"total_price" gorm:"-"`
}

func (MachinePurchase) TableName() string {
	return "machine_purchases"
}

// Total negotiated quotation times quantity; zero when not negotiated yet.
func (m *MachinePurchase) Total() decimal.Decimal {
	if !m.NegotiatedQuotation.Valid {
		return decimal.Zero
	}
	return m.NegotiatedQuotation.Decimal.Mul(decimal.NewFromInt(int64(m.Quantity)))
}

func (m *MachinePurchase) AfterFind(tx *gorm.DB) error {
	m.TotalPrice = m.Total()
	return nil
}

func (m *MachinePurchase) AfterSave(tx *gorm.DB) error {
	m.TotalPrice = m.Total()
	return nil
}

// Collections pushed to realtime subscribers
const (
	CollectionMachinePurchases = "machine_purchases"
	CollectionSpareParts       = "spare_parts"
)
