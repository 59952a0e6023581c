package importer

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
)

// Templates were revised several times; every historical header spelling is
// still accepted.
var (
	hdrDrawingNumber = []string{"nodrawing", "no.drawing", "drawingnumber", "drawingno"}
	hdrProjectCode   = []string{"projectcode", "project"}
	hdrItemName      = []string{"itemname"}
	hdrQuantity      = []string{"qty", "quantity"}
	hdrDueDate       = []string{"duedate"}
	hdrPIC           = []string{"pic", "machinepic"}
	hdrStatus        = []string{"status", "purchasingstatus"}
	hdrPPNumber      = []string{"nopp", "no.pp", "ppnumber"}
	hdrQuotationDate = []string{"sphdate", "quotationdate"}
	hdrQuotationText = []string{"nosph", "no.sph", "sphnumber", "quotationnumber"}
	hdrQuotationLink = []string{"sphlink", "linksph", "quotationlink"}
	hdrInitialQuote  = []string{"initialquotation", "initialquotationidr", "initialquotation(idr)"}
	hdrNegotiated    = []string{"negotiatedquotation", "quotationafternegotiation", "quotationafternegotiationidr", "quotationafternegotiation(idr)"}
	hdrPODate        = []string{"podate"}
	hdrPONumber      = []string{"ponumber", "nopo", "no.po"}
	hdrReceivingNote = []string{"lpbnumber", "nolpb", "no.lpb"}
	hdrDrawingImage  = []string{"drawingimage", "drawingimageurl", "drawingimgurl"}
)

// MachinePurchaseRow a validated machine-purchase import row
type MachinePurchaseRow struct {
	Line int

	DrawingNumber       string
	ProjectCode         string
	ItemName            string
	Quantity            int
	DueDate             string
	PIC                 string
	Status              entity.PurchasingStatus
	PPNumber            string
	QuotationDate       string
	Quotation           entity.QuotationRef
	InitialQuotation    decimal.NullDecimal
	NegotiatedQuotation decimal.NullDecimal
	PODate              string
	PONumber            string
	ReceivingNoteNumber string
	DrawingImageURL     string
}

// NormalizeMachinePurchase maps a raw row onto the machine-purchase shape.
// Rows without an item name are rejected.
func NormalizeMachinePurchase(row Row) (MachinePurchaseRow, bool) {
	out := MachinePurchaseRow{
		Line:                row.Line,
		DrawingNumber:       row.Get(hdrDrawingNumber...),
		ProjectCode:         row.Get(hdrProjectCode...),
		ItemName:            row.Get(hdrItemName...),
		Quantity:            ParseQuantity(row.Get(hdrQuantity...)),
		PIC:                 row.Get(hdrPIC...),
		Status:              canonicalPurchasingStatus(row.Get(hdrStatus...)),
		PPNumber:            row.Get(hdrPPNumber...),
		Quotation:           entity.QuotationRef{Text: row.Get(hdrQuotationText...), Link: row.Get(hdrQuotationLink...)},
		PONumber:            row.Get(hdrPONumber...),
		ReceivingNoteNumber: row.Get(hdrReceivingNote...),
		DrawingImageURL:     row.Get(hdrDrawingImage...),
	}
	if out.ItemName == "" {
		return MachinePurchaseRow{}, false
	}
	out.DueDate, _ = NormalizeDate(row.Get(hdrDueDate...))
	out.QuotationDate, _ = NormalizeDate(row.Get(hdrQuotationDate...))
	out.PODate, _ = NormalizeDate(row.Get(hdrPODate...))
	if d, ok := ParseAmount(row.Get(hdrInitialQuote...)); ok {
		out.InitialQuotation = decimal.NewNullDecimal(d)
	}
	if d, ok := ParseAmount(row.Get(hdrNegotiated...)); ok {
		out.NegotiatedQuotation = decimal.NewNullDecimal(d)
	}
	return out, true
}

// NormalizeMachinePurchases normalizes a batch, reporting the rows it dropped.
func NormalizeMachinePurchases(rows []Row) ([]MachinePurchaseRow, []DroppedRow) {
	var out []MachinePurchaseRow
	var dropped []DroppedRow
	for _, r := range rows {
		rec, ok := NormalizeMachinePurchase(r)
		if !ok {
			dropped = append(dropped, DroppedRow{Line: r.Line, Reason: "missing item name"})
			continue
		}
		out = append(out, rec)
	}
	return out, dropped
}

// Entity builds an unsaved record from the row.
func (r *MachinePurchaseRow) Entity() *entity.MachinePurchase {
	return &entity.MachinePurchase{
		DrawingNumber:       r.DrawingNumber,
		ProjectCode:         r.ProjectCode,
		ItemName:            r.ItemName,
		Quantity:            r.Quantity,
		DueDate:             r.DueDate,
		PIC:                 r.PIC,
		Status:              r.Status,
		PPNumber:            r.PPNumber,
		QuotationDate:       r.QuotationDate,
		Quotation:           datatypes.NewJSONType(r.Quotation),
		InitialQuotation:    r.InitialQuotation,
		NegotiatedQuotation: r.NegotiatedQuotation,
		PODate:              r.PODate,
		PONumber:            r.PONumber,
		ReceivingNoteNumber: r.ReceivingNoteNumber,
		DrawingImageURL:     r.DrawingImageURL,
	}
}

// unknown or empty statuses fall back to Pending Approval
func canonicalPurchasingStatus(s string) entity.PurchasingStatus {
	for _, st := range entity.PurchasingStatuses {
		if strings.EqualFold(strings.Join(strings.Fields(s), " "), string(st)) {
			return st
		}
	}
	return entity.StatusPendingApproval
}
