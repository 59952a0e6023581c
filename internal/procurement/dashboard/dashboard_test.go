package dashboard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/progress"
)

var today = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestMachinePurchases(t *testing.T) {
	records := []entity.MachinePurchase{
		{ProjectCode: "PRJ-A", Quantity: 2, Status: entity.StatusPO, DueDate: "2024-02-01",
			NegotiatedQuotation: decimal.NewNullDecimal(decimal.NewFromInt(1500))},
		{ProjectCode: "PRJ-A", Quantity: 1, Status: entity.StatusIncoming, DueDate: "2024-02-01",
			NegotiatedQuotation: decimal.NewNullDecimal(decimal.NewFromInt(700))},
		{ProjectCode: "PRJ-B", Quantity: 4, Status: entity.StatusPendingApproval},
		{Quantity: 3, Status: entity.StatusPP, DueDate: "2024-12-31",
			NegotiatedQuotation: decimal.NewNullDecimal(decimal.NewFromInt(10))},
	}

	s := MachinePurchases(records, today)

	if s.TotalItems != 4 {
		t.Fatalf("expected 4 items, got %d", s.TotalItems)
	}
	if s.TotalProjects != 3 {
		t.Fatalf("expected 3 projects, got %d", s.TotalProjects)
	}
	if !s.TotalValue.Equal(decimal.NewFromInt(3730)) {
		t.Fatalf("expected total 3730, got %s", s.TotalValue)
	}
	if !s.ProjectValues["PRJ-A"].Equal(decimal.NewFromInt(3700)) {
		t.Fatalf("expected PRJ-A 3700, got %s", s.ProjectValues["PRJ-A"])
	}
	if !s.ProjectValues[Unassigned].Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected unassigned 30, got %s", s.ProjectValues[Unassigned])
	}
	if s.StatusCounts["PP"] != 1 || s.StatusCounts["Pending Approval"] != 1 || s.StatusCounts["Incoming"] != 1 {
		t.Fatalf("unexpected status counts: %v", s.StatusCounts)
	}
	want := map[progress.Status]int{progress.Late: 1, progress.InProgress: 2, progress.Complete: 1}
	for k, v := range want {
		if s.ProgressCounts[k] != v {
			t.Fatalf("progress %q: expected %d, got %d", k, v, s.ProgressCounts[k])
		}
	}
}

func TestMachinePurchasesEmpty(t *testing.T) {
	s := MachinePurchases(nil, today)
	if len(s.StatusCounts) != len(entity.PurchasingStatuses) {
		t.Fatalf("every status should be present, got %v", s.StatusCounts)
	}
	if !s.TotalValue.IsZero() || s.TotalProjects != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
}

func TestSpareParts(t *testing.T) {
	groups := []entity.SparePartGroup{
		{ProjectName: "Line 1", Status: entity.SpareStatusPO, Items: []entity.SparePartItem{
			{ProductName: "Bearing", Category: entity.CategoryMechanical, Quantity: 4, UnitPrice: decimal.NewFromInt(25)},
			{ProductName: "Relay", Category: entity.CategoryElectrical, Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
		}},
		{ProjectName: "Line 2", Status: entity.SpareStatusIncoming, Items: []entity.SparePartItem{
			{ProductName: "Wrench", Category: entity.CategoryTools, Quantity: 1, UnitPrice: decimal.NewFromInt(80)},
		}},
	}

	s := SpareParts(groups, today)

	if s.TotalItems != 3 || s.TotalProjects != 2 {
		t.Fatalf("unexpected totals: items=%d projects=%d", s.TotalItems, s.TotalProjects)
	}
	if !s.TotalValue.Equal(decimal.NewFromInt(280)) {
		t.Fatalf("expected 280, got %s", s.TotalValue)
	}
	if s.StatusCounts["PO"] != 1 || s.StatusCounts["Incoming"] != 1 || s.StatusCounts["Approval"] != 0 {
		t.Fatalf("unexpected status counts: %v", s.StatusCounts)
	}
	if s.CategoryCounts[entity.CategoryMechanical] != 1 || s.CategoryCounts[entity.CategoryTools] != 1 {
		t.Fatalf("unexpected category counts: %v", s.CategoryCounts)
	}
	if s.ProgressCounts[progress.Complete] != 1 || s.ProgressCounts[progress.InProgress] != 1 {
		t.Fatalf("unexpected progress counts: %v", s.ProgressCounts)
	}
}
