package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/progress"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
)

// ExportService xlsx reports
type ExportService struct {
	machineRepo *repository.MachinePurchaseRepository
	spareRepo   *repository.SparePartRepository
	now         func() time.Time
}

func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{machineRepo: repos.MachinePurchase, spareRepo: repos.SparePart, now: time.Now}
}

var machineExportHeaders = []string{
	"Project", "No. Drawing", "Item Name", "PIC", "Qty", "Progress Status",
	"Purchasing Status", "Total Price", "Due Date", "No. PP", "SPH Date", "No. SPH",
	"PO Date", "PO Number", "LPB Number",
}

var sparePartExportHeaders = []string{
	"No. PP", "PP Date", "Project", "Machine", "Category", "Status",
	"Part Code", "Product Name", "Model", "Maker", "Qty", "Unit Price", "Total Price",
	"PO Number", "PO Date", "LPB Number", "LPB Date",
}

// MachinePurchases report of the records matching filters.
func (s *ExportService) MachinePurchases(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	records, err := s.machineRepo.ListAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list machine purchases: %w", err)
	}
	records = filterMachinePurchases(records, filters)
	today := s.now()

	f, sheet := newReport("Machine Purchases", machineExportHeaders)
	total := decimal.Zero
	for i := range records {
		m := &records[i]
		row := i + 2
		values := []interface{}{
			m.ProjectCode, m.DrawingNumber, m.ItemName, m.PIC, m.Quantity,
			string(progress.Derive(m.DueDate, m.Status, today)), string(m.Status),
			m.TotalPrice.InexactFloat64(), m.DueDate, m.PPNumber, m.QuotationDate,
			m.Quotation.Data().Text, m.PODate, m.PONumber, m.ReceivingNoteNumber,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, "", fmt.Errorf("write row %d: %w", row, err)
		}
		total = total.Add(m.TotalPrice)
	}

	summaryRow := len(records) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("%d items", len(records)))
	f.SetCellValue(sheet, fmt.Sprintf("H%d", summaryRow), total.InexactFloat64())
	styleSummary(f, sheet, summaryRow, len(machineExportHeaders))
	setWidths(f, sheet, []float64{14, 16, 30, 12, 6, 14, 18, 16, 12, 14, 12, 16, 12, 16, 14})

	filename := fmt.Sprintf("Machine_Purchase_Report_%s.xlsx", today.Format("2006-01-02"))
	return f, filename, nil
}

// SpareParts one row per line item with the group header repeated.
func (s *ExportService) SpareParts(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	groups, err := s.spareRepo.ListAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list spare parts: %w", err)
	}
	groups = filterSpareParts(groups, filters)

	f, sheet := newReport("Spare Parts", sparePartExportHeaders)
	row := 2
	total := decimal.Zero
	for i := range groups {
		g := &groups[i]
		for j := range g.Items {
			it := &g.Items[j]
			values := []interface{}{
				g.PPNumber, g.PPDate, g.ProjectName, g.MachineName, g.Category, string(g.Status),
				it.PartCode, it.ProductName, it.Model, it.Maker, it.Quantity,
				it.UnitPrice.InexactFloat64(), it.Total().InexactFloat64(),
				firstNonEmpty(it.PONumber, g.PONumber), firstNonEmpty(it.PODate, g.PODate),
				firstNonEmpty(it.LPBNumber, g.LPBNumber), firstNonEmpty(it.LPBDate, g.LPBDate),
			}
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
				return nil, "", fmt.Errorf("write row %d: %w", row, err)
			}
			total = total.Add(it.Total())
			row++
		}
	}

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("H%d", row), fmt.Sprintf("%d items", row-2))
	f.SetCellValue(sheet, fmt.Sprintf("M%d", row), total.InexactFloat64())
	styleSummary(f, sheet, row, len(sparePartExportHeaders))
	setWidths(f, sheet, []float64{14, 12, 18, 18, 12, 10, 14, 28, 14, 14, 6, 14, 16, 14, 12, 14, 12})

	filename := fmt.Sprintf("Spare_Parts_Report_%s.xlsx", s.now().Format("2006-01-02"))
	return f, filename, nil
}

func newReport(sheet string, headers []string) (*excelize.File, string) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
	return f, sheet
}

func styleSummary(f *excelize.File, sheet string, row, cols int) {
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	last, _ := excelize.ColumnNumberToName(cols)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row), summaryStyle)
}

func setWidths(f *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
