package importer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
)

func row(line int, cells map[string]string) Row {
	return Row{Line: line, Cells: cells}
}

func TestNormalizeSparePartDropsMissingProductName(t *testing.T) {
	rows := []Row{
		row(2, map[string]string{"ppnumber": "PP-1", "productname": "Bearing", "quantity": "3", "price": "12.50"}),
		row(3, map[string]string{"ppnumber": "PP-1", "productname": "  ", "quantity": "1"}),
		row(4, map[string]string{"ppnumber": "PP-2", "productname": "Seal"}),
	}
	out, dropped := NormalizeSpareParts(rows)
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if len(dropped) != 1 || dropped[0].Line != 3 {
		t.Fatalf("expected line 3 dropped, got %+v", dropped)
	}
	if out[0].Quantity != 3 || !out[0].Price.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected coercion: qty=%d price=%s", out[0].Quantity, out[0].Price)
	}
	if out[1].Model != "" || out[1].Quantity != 0 || !out[1].Price.IsZero() {
		t.Fatalf("absent fields should default, got %+v", out[1])
	}
}

func TestNormalizeSparePartCoercion(t *testing.T) {
	rec, ok := NormalizeSparePart(row(2, map[string]string{
		"productname": "Relay",
		"qty":         "-4",
		"price":       "abc",
		"category":    "electrical",
		"status":      "po",
		"ppdate":      "45000",
	}))
	if !ok {
		t.Fatal("expected row to normalize")
	}
	if rec.Quantity != 0 {
		t.Fatalf("negative quantity should become 0, got %d", rec.Quantity)
	}
	if !rec.Price.IsZero() {
		t.Fatalf("bad price should become 0, got %s", rec.Price)
	}
	if rec.Category != entity.CategoryElectrical || rec.Status != string(entity.SpareStatusPO) {
		t.Fatalf("expected canonical category/status, got %q/%q", rec.Category, rec.Status)
	}
	if rec.PPDate != "2023-03-15" {
		t.Fatalf("expected serial date converted, got %q", rec.PPDate)
	}
	if !rec.Present[FieldQuantity] || rec.Present[FieldModel] {
		t.Fatalf("unexpected presence: %v", rec.Present)
	}

	huge, ok := NormalizeSparePart(row(3, map[string]string{"productname": "Relay", "qty": "18446744073709551615"}))
	if !ok || huge.Quantity != 0 {
		t.Fatalf("oversized quantity should become 0, got %d (ok=%v)", huge.Quantity, ok)
	}
}

func TestNormalizeSparePartUnknownStatusNotPresent(t *testing.T) {
	rec, _ := NormalizeSparePart(row(2, map[string]string{"productname": "Pin", "status": "done?", "podate": "soon"}))
	if rec.Present[FieldStatus] || rec.Present[FieldPODate] {
		t.Fatalf("unreadable values must not be marked present: %v", rec.Present)
	}
}

func TestQuantityHeaderAliases(t *testing.T) {
	a, okA := NormalizeMachinePurchase(row(2, map[string]string{"itemname": "Gearbox", "qty": "5"}))
	b, okB := NormalizeMachinePurchase(row(2, map[string]string{"itemname": "Gearbox", "quantity": "5"}))
	if !okA || !okB {
		t.Fatal("expected both rows to normalize")
	}
	if a.Quantity != 5 || b.Quantity != 5 {
		t.Fatalf("expected quantity 5 for both spellings, got %d and %d", a.Quantity, b.Quantity)
	}

	sa, _ := NormalizeSparePart(row(2, map[string]string{"productname": "Belt", "qty": "7"}))
	sb, _ := NormalizeSparePart(row(2, map[string]string{"productname": "Belt", "quantity": "7"}))
	if sa.Quantity != sb.Quantity || sa.Present[FieldQuantity] != sb.Present[FieldQuantity] {
		t.Fatalf("spellings diverged: %+v vs %+v", sa, sb)
	}
}

func TestQuotationHeaderAliases(t *testing.T) {
	tests := []struct {
		name  string
		cells map[string]string
		want  string
	}{
		{"negotiatedquotation", map[string]string{"negotiatedquotation": "900"}, "900"},
		{"quotationafternegotiation", map[string]string{"quotationafternegotiation": "900"}, "900"},
		{"quotationafternegotiationidr", map[string]string{"quotationafternegotiationidr": "1,900"}, "1900"},
		{"first non-empty wins", map[string]string{"negotiatedquotation": "", "quotationafternegotiationidr": "800"}, "800"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cells["itemname"] = "Spindle"
			rec, ok := NormalizeMachinePurchase(row(2, tt.cells))
			if !ok {
				t.Fatal("expected row to normalize")
			}
			if !rec.NegotiatedQuotation.Valid || !rec.NegotiatedQuotation.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("expected %s, got %+v", tt.want, rec.NegotiatedQuotation)
			}
		})
	}

	rec, _ := NormalizeMachinePurchase(row(2, map[string]string{"itemname": "Spindle", "initialquotationidr": "1000"}))
	if !rec.InitialQuotation.Valid || rec.NegotiatedQuotation.Valid {
		t.Fatalf("unexpected quotations: %+v", rec)
	}
}

func TestNormalizeMachinePurchase(t *testing.T) {
	rec, ok := NormalizeMachinePurchase(row(5, map[string]string{
		"no.drawing":  "DWG-17",
		"projectcode": "PRJ-9",
		"itemname":    "Conveyor frame",
		"qty":         "2.9",
		"duedate":     "2024-07-01",
		"machinepic":  "Budi",
		"status":      "pending  approval",
		"nosph":       "SPH/001",
		"sphlink":     "https://docs.example.com/sph-001",
	}))
	if !ok {
		t.Fatal("expected row to normalize")
	}
	if rec.DrawingNumber != "DWG-17" || rec.PIC != "Budi" || rec.Quantity != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Status != entity.StatusPendingApproval || rec.DueDate != "2024-07-01" {
		t.Fatalf("unexpected status/date: %q %q", rec.Status, rec.DueDate)
	}
	e := rec.Entity()
	if e.Quotation.Data().Text != "SPH/001" || e.Quotation.Data().Link == "" {
		t.Fatalf("quotation not carried: %+v", e.Quotation.Data())
	}

	if _, ok := NormalizeMachinePurchase(row(6, map[string]string{"projectcode": "PRJ-9"})); ok {
		t.Fatal("row without item name must be dropped")
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{44927, "2023-01-01", true},
		{44927.75, "2023-01-01", true},
		{"44927", "2023-01-01", true},
		{time.Date(2023, 1, 1, 23, 0, 0, 0, time.FixedZone("WIB", 7*3600)), "2023-01-01", true},
		{"2023-01-01", "2023-01-01", true},
		{"2023-01-01T10:00:00Z", "2023-01-01", true},
		{"1/2/2023", "2023-01-02", true},
		{"5-Feb-2023", "2023-02-05", true},
		{"", "", false},
		{"not a date", "", false},
		{-3, "", false},
		{nil, "", false},
		{struct{}{}, "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeDate(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("NormalizeDate(%v) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDateSerialRoundTrip(t *testing.T) {
	serial, ok := DateToSerial("2023-01-01")
	if !ok || serial != 44927 {
		t.Fatalf("expected 44927, got %v (%v)", serial, ok)
	}
	for _, iso := range []string{"1999-12-31", "2020-02-29", "2024-10-19"} {
		s, _ := DateToSerial(iso)
		if back, _ := NormalizeDate(s); back != iso {
			t.Fatalf("round trip %s -> %v -> %s", iso, s, back)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1,500,000", "1500000", true},
		{"Rp 250000.50", "250000.5", true},
		{"1.5E+6", "1500000", true},
		{"Rp 1.500.000", "1500000", true},
		{"1.500.000,75", "1500000.75", true},
		{"1,500,000.75", "1500000.75", true},
		{"1,5", "1.5", true},
		{"12,50", "12.5", true},
		{"1,500", "1500", true},
		{"-10", "0", false},
		{"", "0", false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		if ok != tt.ok || !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("ParseAmount(%q) = %s, %v; want %s, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"7", 7},
		{"2.9", 2},
		{"1,000", 1000},
		{"-3", 0},
		{"n/a", 0},
		{"2147483647", 2147483647},
		{"2147483648", 0},
		{"9223372036854775808", 0},
		{"18446744073709551615", 0},
		{"1e19", 0},
	}
	for _, tt := range tests {
		if got := ParseQuantity(tt.in); got != tt.want {
			t.Fatalf("ParseQuantity(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
