package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/testutil"
)

func TestExportMachinePurchases(t *testing.T) {
	env := setupServices(t)
	env.svc.Export.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }

	testutil.SeedMachinePurchase(t, env.db, &entity.MachinePurchase{
		ID: "m1", ItemName: "Press frame", ProjectCode: "PRJ-1", Quantity: 2, DueDate: "2024-05-01",
		Status:              entity.StatusPO,
		Quotation:           datatypes.NewJSONType(entity.QuotationRef{Text: "SPH-77"}),
		NegotiatedQuotation: decimal.NewNullDecimal(decimal.NewFromInt(1000)),
	})
	testutil.SeedMachinePurchase(t, env.db, &entity.MachinePurchase{ID: "m2", ItemName: "Guard", ProjectCode: "PRJ-2", Quantity: 1})

	f, filename, err := env.svc.Export.MachinePurchases(context.Background(), map[string]string{"project_code": "PRJ-1"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filename != "Machine_Purchase_Report_2024-06-01.xlsx" {
		t.Fatalf("unexpected filename %q", filename)
	}
	rows, err := f.GetRows("Machine Purchases")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header, one record and a total row, got %d rows", len(rows))
	}
	if rows[0][5] != "Progress Status" || rows[1][2] != "Press frame" {
		t.Fatalf("unexpected layout: %v", rows[:2])
	}
	if rows[1][5] != "Late" || rows[1][7] != "2000" || rows[1][11] != "SPH-77" {
		t.Fatalf("unexpected record row: %v", rows[1])
	}
	if rows[2][0] != "Total" || rows[2][7] != "2000" {
		t.Fatalf("unexpected total row: %v", rows[2])
	}
}

func TestExportSpareParts(t *testing.T) {
	env := setupServices(t)
	testutil.SeedSparePartGroup(t, env.db, &entity.SparePartGroup{
		ID: "g1", PPNumber: "PP-1", ProjectName: "Line A", PONumber: "PO-9",
		Items: []entity.SparePartItem{
			{ID: "i1", ProductName: "Bearing", Quantity: 4, UnitPrice: decimal.NewFromInt(25), Category: entity.CategoryMechanical},
			{ID: "i2", ProductName: "Relay", Quantity: 1, UnitPrice: decimal.NewFromInt(10), PONumber: "PO-10"},
		},
	})

	f, _, err := env.svc.Export.SpareParts(context.Background(), nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	rows, err := f.GetRows("Spare Parts")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header, two items and a total row, got %d", len(rows))
	}
	if rows[1][7] != "Bearing" || rows[1][12] != "100" || rows[1][13] != "PO-9" {
		t.Fatalf("first item row wrong: %v", rows[1])
	}
	if rows[2][13] != "PO-10" {
		t.Fatalf("item PO number should win over the group's: %v", rows[2])
	}
	if rows[3][12] != "110" {
		t.Fatalf("unexpected total: %v", rows[3])
	}
}

func TestMemoryPreviewStoreExpires(t *testing.T) {
	store := NewMemoryPreviewStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, &Preview{Token: "t1", Kind: KindSpareParts}, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p, err := store.Load(ctx, "t1"); err != nil || p.Kind != KindSpareParts {
		t.Fatalf("Load: %v %+v", err, p)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Load(ctx, "t1"); err != ErrPreviewExpired {
		t.Fatalf("expected ErrPreviewExpired after ttl, got %v", err)
	}
}

func TestMemoryPreviewStoreTakeConsumes(t *testing.T) {
	store := NewMemoryPreviewStore()
	ctx := context.Background()
	if err := store.Save(ctx, &Preview{Token: "t1", Kind: KindMachinePurchases}, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err := store.Take(ctx, "t1")
	if err != nil || p.Kind != KindMachinePurchases {
		t.Fatalf("Take: %v %+v", err, p)
	}
	if _, err := store.Take(ctx, "t1"); err != ErrPreviewExpired {
		t.Fatalf("second Take should find nothing, got %v", err)
	}
	if _, err := store.Load(ctx, "t1"); err != ErrPreviewExpired {
		t.Fatalf("taken preview should be gone, got %v", err)
	}
}
