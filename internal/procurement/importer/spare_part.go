package importer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
)

// Field canonical column of an import template
type Field string

const (
	FieldPPNumber    Field = "pp_number"
	FieldPPDate      Field = "pp_date"
	FieldProjectName Field = "project_name"
	FieldMachineName Field = "machine_name"
	FieldCategory    Field = "category"
	FieldStatus      Field = "status"
	FieldAOName      Field = "ao_name"
	FieldPartCode    Field = "part_code"
	FieldProductName Field = "product_name"
	FieldModel       Field = "model"
	FieldMaker       Field = "maker"
	FieldQuantity    Field = "quantity"
	FieldPrice       Field = "price"
	FieldPONumber    Field = "po_number"
	FieldPODate      Field = "po_date"
	FieldLPBNumber   Field = "lpb_number"
	FieldLPBDate     Field = "lpb_date"
)

// header aliases per field, first non-empty wins
var sparePartHeaders = map[Field][]string{
	FieldPPNumber:    {"ppnumber", "nopp", "no.pp", "pp"},
	FieldPPDate:      {"ppdate", "tanggalpp"},
	FieldProjectName: {"projectname", "project"},
	FieldMachineName: {"machinename", "machine"},
	FieldCategory:    {"category", "kategori"},
	FieldStatus:      {"status"},
	FieldAOName:      {"aoname", "ao"},
	FieldPartCode:    {"partcode", "kodepart", "code"},
	FieldProductName: {"productname"},
	FieldModel:       {"model"},
	FieldMaker:       {"maker", "merk"},
	FieldQuantity:    {"quantity", "qty"},
	FieldPrice:       {"price", "unitprice", "harga"},
	FieldPONumber:    {"ponumber", "nopo", "no.po"},
	FieldPODate:      {"podate"},
	FieldLPBNumber:   {"lpbnumber", "nolpb", "no.lpb"},
	FieldLPBDate:     {"lpbdate"},
}

// SparePartRow a validated spare-part import row, not yet grouped.
type SparePartRow struct {
	Line int

	PPNumber    string
	PPDate      string
	ProjectName string
	MachineName string
	Category    string
	Status      string
	AOName      string

	PartCode    string
	ProductName string
	Model       string
	Maker       string
	Quantity    int
	Price       decimal.Decimal
	PONumber    string
	PODate      string
	LPBNumber   string
	LPBDate     string

	// Present lists the fields that carried a value in the sheet; only those
	// overwrite stored values on merge.
	Present map[Field]bool
}

// DroppedRow a row excluded from the batch
type DroppedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// NormalizeSparePart maps a raw row onto the spare-part shape. Rows without a
// product name are rejected.
func NormalizeSparePart(row Row) (SparePartRow, bool) {
	get := func(f Field) string { return row.Get(sparePartHeaders[f]...) }

	out := SparePartRow{
		Line:        row.Line,
		PPNumber:    get(FieldPPNumber),
		ProjectName: get(FieldProjectName),
		MachineName: get(FieldMachineName),
		Category:    canonicalCategory(get(FieldCategory)),
		Status:      canonicalSpareStatus(get(FieldStatus)),
		AOName:      get(FieldAOName),
		PartCode:    get(FieldPartCode),
		ProductName: get(FieldProductName),
		Model:       get(FieldModel),
		Maker:       get(FieldMaker),
		Quantity:    ParseQuantity(get(FieldQuantity)),
		PONumber:    get(FieldPONumber),
		LPBNumber:   get(FieldLPBNumber),
		Present:     make(map[Field]bool, len(sparePartHeaders)),
	}
	if out.ProductName == "" {
		return SparePartRow{}, false
	}
	if price, ok := ParseAmount(get(FieldPrice)); ok {
		out.Price = price
	}
	out.PPDate, _ = NormalizeDate(get(FieldPPDate))
	out.PODate, _ = NormalizeDate(get(FieldPODate))
	out.LPBDate, _ = NormalizeDate(get(FieldLPBDate))

	for f, keys := range sparePartHeaders {
		if row.Get(keys...) != "" {
			out.Present[f] = true
		}
	}
	// unreadable values never overwrite stored ones
	for f, v := range map[Field]string{
		FieldStatus:  out.Status,
		FieldPPDate:  out.PPDate,
		FieldPODate:  out.PODate,
		FieldLPBDate: out.LPBDate,
	} {
		if v == "" {
			delete(out.Present, f)
		}
	}
	return out, true
}

// NormalizeSpareParts normalizes a batch, reporting the rows it dropped.
func NormalizeSpareParts(rows []Row) ([]SparePartRow, []DroppedRow) {
	var out []SparePartRow
	var dropped []DroppedRow
	for _, r := range rows {
		rec, ok := NormalizeSparePart(r)
		if !ok {
			dropped = append(dropped, DroppedRow{Line: r.Line, Reason: "missing product name"})
			continue
		}
		out = append(out, rec)
	}
	return out, dropped
}

// Item builds the line item carried by this row.
func (r *SparePartRow) Item() entity.SparePartItem {
	return entity.SparePartItem{
		PartCode:    r.PartCode,
		ProductName: r.ProductName,
		Model:       r.Model,
		Maker:       r.Maker,
		Category:    r.Category,
		Quantity:    r.Quantity,
		UnitPrice:   r.Price,
		PONumber:    r.PONumber,
		PODate:      r.PODate,
		LPBNumber:   r.LPBNumber,
		LPBDate:     r.LPBDate,
	}
}

func canonicalCategory(s string) string {
	for _, c := range entity.SparePartCategories {
		if strings.EqualFold(s, c) {
			return c
		}
	}
	return s
}

// unknown statuses are dropped
func canonicalSpareStatus(s string) string {
	for _, st := range entity.SparePartStatuses {
		if strings.EqualFold(s, string(st)) {
			return string(st)
		}
	}
	return ""
}
