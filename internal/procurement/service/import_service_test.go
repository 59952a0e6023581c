package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/importer"
	"github.com/rasyendriar/machine-dashboard-app/internal/testutil"
)

var spareHeader = []string{"PP Number", "PP Date", "Project Name", "Machine Name", "Category", "Status", "Part Code", "Product Name", "Qty", "Price"}

func spareSheet(rows ...[]string) *strings.Reader {
	all := append([][]string{spareHeader}, rows...)
	var b strings.Builder
	for _, r := range all {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\n")
	}
	return strings.NewReader(b.String())
}

var baseRows = [][]string{
	{"PP-1", "2024-01-15", "Line A", "Press", "Mechanical", "PP", "BRG-1", "Bearing", "4", "1500"},
	{"PP-1", "2024-01-15", "Line A", "Press", "Mechanical", "PP", "BLT-2", "Bolt", "10", "20"},
	{"PP-2", "2024-02-01", "Line B", "Lathe", "Electrical", "Approval", "", "Relay", "2", "300"},
	{"", "", "", "", "", "", "", "", "", ""},
	{"PP-3", "2024-02-01", "Line B", "Lathe", "Electrical", "Approval", "X-1", "", "1", "5"},
}

func countRows(t *testing.T, env *testEnv) (groups, items int64) {
	t.Helper()
	env.db.Model(&entity.SparePartGroup{}).Count(&groups)
	env.db.Model(&entity.SparePartItem{}).Count(&items)
	return groups, items
}

func TestImportSparePartsIsIdempotent(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	first, err := env.svc.Import.Import(ctx, KindSpareParts, "parts.csv", spareSheet(baseRows...))
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.Inserted != 2 || first.Updated != 0 {
		t.Fatalf("first import: inserted=%d updated=%d", first.Inserted, first.Updated)
	}
	if len(first.Dropped) != 1 || first.Dropped[0].Reason != "missing product name" {
		t.Fatalf("expected the row without product name to be dropped: %+v", first.Dropped)
	}
	groups, items := countRows(t, env)

	for round := 0; round < 2; round++ {
		again, err := env.svc.Import.Import(ctx, KindSpareParts, "parts.csv", spareSheet(baseRows...))
		if err != nil {
			t.Fatalf("re-import: %v", err)
		}
		if again.Inserted != 0 || again.Updated != 0 || again.Unchanged != 2 {
			t.Fatalf("re-import should change nothing: %+v", again)
		}
		g, i := countRows(t, env)
		if g != groups || i != items {
			t.Fatalf("re-import changed row counts: groups %d->%d items %d->%d", groups, g, items, i)
		}
	}
	if groups != 2 || items != 3 {
		t.Fatalf("expected 2 groups and 3 items, got %d and %d", groups, items)
	}
}

func TestImportSparePartsMergesIntoExistingGroup(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	if _, err := env.svc.Import.Import(ctx, KindSpareParts, "parts.csv", spareSheet(baseRows...)); err != nil {
		t.Fatalf("seed import: %v", err)
	}

	result, err := env.svc.Import.Import(ctx, KindSpareParts, "update.csv", spareSheet(
		[]string{"PP-1", "", "", "", "", "PO", "BRG-1", "Bearing", "6", ""},
		[]string{"PP-1", "", "", "", "", "", "SL-9", "Seal", "3", "45"},
	))
	if err != nil {
		t.Fatalf("merge import: %v", err)
	}
	if result.Inserted != 0 || result.Updated != 1 || result.ItemsMerged != 1 || result.ItemsAdded != 1 {
		t.Fatalf("unexpected merge result: %+v", result)
	}

	stored, err := env.svc.SparePart.List(ctx, 1, 20, map[string]string{"pp_number": "PP-1"})
	if err != nil || len(stored.Items) != 1 {
		t.Fatalf("list PP-1: %v %+v", err, stored)
	}
	g := stored.Items[0]
	if g.Status != entity.SpareStatusPO || g.ProjectName != "Line A" || g.PPDate != "2024-01-15" {
		t.Fatalf("header merge wrong: status=%s project=%q date=%q", g.Status, g.ProjectName, g.PPDate)
	}
	if len(g.Items) != 3 {
		t.Fatalf("expected bearing, bolt and seal, got %+v", g.Items)
	}
	bearing, bolt, seal := g.Items[0], g.Items[1], g.Items[2]
	if bearing.Quantity != 6 || !bearing.UnitPrice.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("bearing should take the new qty and keep its price: %+v", bearing)
	}
	if bolt.ProductName != "Bolt" || bolt.Quantity != 10 {
		t.Fatalf("untouched item must be kept: %+v", bolt)
	}
	if seal.ProductName != "Seal" || seal.Quantity != 3 {
		t.Fatalf("new item should be appended: %+v", seal)
	}

	events := env.notifier.Events()
	if len(events) != 2 || events[1].Collection != entity.CollectionSpareParts {
		t.Fatalf("expected one change event per write, got %+v", events)
	}
}

func TestImportKeylessRejectPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Import.KeylessPolicy = "reject"
	env := setupServicesWithConfig(t, cfg)

	result, err := env.svc.Import.Import(context.Background(), KindSpareParts, "parts.csv", spareSheet(
		[]string{"", "", "Line A", "", "", "", "", "Loose part", "1", "1"},
		[]string{"PP-7", "", "Line A", "", "", "", "", "Filter", "1", "1"},
	))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Inserted != 1 || len(result.Rejected) != 1 || result.Rejected[0].Line != 2 {
		t.Fatalf("keyless row should be rejected: %+v", result)
	}
}

func TestImportParseErrorAbortsWithoutWrites(t *testing.T) {
	env := setupServices(t)

	_, err := env.svc.Import.Import(context.Background(), KindSpareParts, "parts.csv", strings.NewReader(strings.Join(spareHeader, ",")+"\n"))
	var perr *importer.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *importer.ParseError, got %v", err)
	}
	if g, _ := countRows(t, env); g != 0 {
		t.Fatalf("nothing should be written, found %d groups", g)
	}
	if len(env.notifier.Events()) != 0 {
		t.Fatal("no change event expected")
	}
}

func TestImportPreviewCommitAndDiscard(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	p, err := env.svc.Import.Preview(ctx, KindSpareParts, "u-1", "parts.csv", spareSheet(baseRows...))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.Token == "" || len(p.SpareParts) != 3 || len(p.Dropped) != 1 {
		t.Fatalf("unexpected preview: token=%q rows=%d dropped=%d", p.Token, len(p.SpareParts), len(p.Dropped))
	}
	if g, _ := countRows(t, env); g != 0 {
		t.Fatal("preview must not write")
	}

	result, err := env.svc.Import.Commit(ctx, p.Token)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if result.Inserted != 2 {
		t.Fatalf("expected 2 inserted groups, got %+v", result)
	}
	if _, err := env.svc.Import.Commit(ctx, p.Token); !errors.Is(err, ErrPreviewExpired) {
		t.Fatalf("second commit should find no preview, got %v", err)
	}

	other, err := env.svc.Import.Preview(ctx, KindSpareParts, "u-1", "parts.csv", spareSheet(baseRows...))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if err := env.svc.Import.Discard(ctx, other.Token); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := env.svc.Import.Commit(ctx, other.Token); !errors.Is(err, ErrPreviewExpired) {
		t.Fatalf("discarded preview should be gone, got %v", err)
	}
}

func TestImportConcurrentCommitsWriteOnce(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	body := testutil.CSV(
		[]string{"No. Drawing", "Project Code", "Item Name", "Qty"},
		[]string{"DRW-1", "PRJ-1", "Frame", "2"},
		[]string{"DRW-2", "PRJ-1", "Base", "1"},
	)
	p, err := env.svc.Import.Preview(ctx, KindMachinePurchases, "u-1", "machines.csv", body)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Import.Commit(ctx, p.Token)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				committed++
			case !errors.Is(err, ErrPreviewExpired):
				t.Errorf("Commit: %v", err)
			}
		}()
	}
	wg.Wait()

	if committed != 1 {
		t.Fatalf("expected exactly one commit, got %d", committed)
	}
	var n int64
	env.db.Model(&entity.MachinePurchase{}).Count(&n)
	if n != 2 {
		t.Fatalf("expected 2 machine purchases, got %d", n)
	}
}

func TestImportMachinePurchases(t *testing.T) {
	env := setupServices(t)
	body := testutil.CSV(
		[]string{"No. Drawing", "Project Code", "Item Name", "Qty", "Due Date", "Status", "Quotation After Negotiation (IDR)"},
		[]string{"DRW-1", "PRJ-1", "Frame", "2", "2024-03-01", "po", "2500"},
		[]string{"DRW-2", "PRJ-1", "", "1", "", "", ""},
	)

	result, err := env.svc.Import.Import(context.Background(), KindMachinePurchases, "machines.csv", body)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Inserted != 1 || len(result.Dropped) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	list, err := env.svc.MachinePurchase.List(context.Background(), 1, 20, nil)
	if err != nil || len(list.Items) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	m := list.Items[0]
	if m.Status != entity.StatusPO || !m.TotalPrice.Equal(decimal.NewFromInt(5000)) || m.DueDate != "2024-03-01" {
		t.Fatalf("unexpected record: %+v", m)
	}
}

func TestParseImportKind(t *testing.T) {
	if k, err := ParseImportKind("Spare-Parts"); err != nil || k != KindSpareParts {
		t.Fatalf("got %q %v", k, err)
	}
	if _, err := ParseImportKind("invoices"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
