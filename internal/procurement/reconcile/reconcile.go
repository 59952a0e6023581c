// Package reconcile turns normalized spare-part rows into a write plan against
// the stored requisition groups. It performs no I/O.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/importer"
)

// KeylessPolicy what to do with rows that carry no PP number
type KeylessPolicy string

const (
	// KeylessIsolate stores every keyless row as its own single-item group.
	KeylessIsolate KeylessPolicy = "isolate"
	// KeylessReject leaves keyless rows out of the plan.
	KeylessReject KeylessPolicy = "reject"
)

// ParseKeylessPolicy falls back to KeylessIsolate for unknown values.
func ParseKeylessPolicy(s string) KeylessPolicy {
	if KeylessPolicy(strings.ToLower(strings.TrimSpace(s))) == KeylessReject {
		return KeylessReject
	}
	return KeylessIsolate
}

type Options struct {
	Keyless KeylessPolicy
	NewID   func() string
}

func newID() string {
	return uuid.New().String()[:32]
}

// ConflictKind classifies an ambiguous merge
type ConflictKind string

const (
	ConflictDuplicateGroups ConflictKind = "duplicate_groups"
	ConflictEmptyItemKey    ConflictKind = "empty_item_key"
	ConflictKeylessRow      ConflictKind = "keyless_row"
)

// Conflict an ambiguous merge that was resolved without user input
type Conflict struct {
	Kind     ConflictKind `json:"kind"`
	PPNumber string       `json:"pp_number"`
	Line     int          `json:"line,omitempty"`
	GroupIDs []string     `json:"group_ids,omitempty"`
	Detail   string       `json:"detail"`
}

// Plan writes needed to bring the store in line with an import batch
type Plan struct {
	Inserts   []*entity.SparePartGroup
	Updates   []*entity.SparePartGroup
	Unchanged int

	ItemsAdded  int
	ItemsMerged int

	Rejected  []importer.SparePartRow
	Conflicts []Conflict
}

// Empty reports whether the plan has nothing to write.
func (p *Plan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0
}

type batch struct {
	key  string
	rows []importer.SparePartRow
}

// Reconcile groups rows by PP number and merges each group into the oldest
// stored group with the same number. existing must list groups per PP number
// oldest first.
func Reconcile(rows []importer.SparePartRow, existing map[string][]entity.SparePartGroup, opts Options) *Plan {
	if opts.NewID == nil {
		opts.NewID = newID
	}
	plan := &Plan{}

	for _, b := range groupRows(rows, opts.Keyless, plan) {
		stored := existing[b.key]
		if b.key == "" || len(stored) == 0 {
			g := &entity.SparePartGroup{
				ID:       opts.NewID(),
				PPNumber: b.key,
				Status:   entity.SpareStatusApproval,
			}
			applyHeader(g, b.rows)
			mergeItems(g, b.rows, opts.NewID, plan)
			plan.Inserts = append(plan.Inserts, g)
			continue
		}

		target := stored[0]
		if len(stored) > 1 {
			ids := make([]string, len(stored))
			for i := range stored {
				ids[i] = stored[i].ID
			}
			plan.Conflicts = append(plan.Conflicts, Conflict{
				Kind:     ConflictDuplicateGroups,
				PPNumber: b.key,
				GroupIDs: ids,
				Detail:   fmt.Sprintf("%d groups share this PP number, merging into %s", len(stored), target.ID),
			})
		}

		merged := cloneGroup(&target)
		applyHeader(merged, b.rows)
		mergeItems(merged, b.rows, opts.NewID, plan)
		if sameGroup(&target, merged) {
			plan.Unchanged++
			continue
		}
		plan.Updates = append(plan.Updates, merged)
	}
	return plan
}

// groupRows buckets rows by PP number in first-seen order. Keyless rows never
// share a bucket.
func groupRows(rows []importer.SparePartRow, policy KeylessPolicy, plan *Plan) []batch {
	var batches []batch
	index := make(map[string]int)
	for _, r := range rows {
		key := strings.TrimSpace(r.PPNumber)
		if key == "" {
			if policy == KeylessReject {
				plan.Rejected = append(plan.Rejected, r)
				continue
			}
			plan.Conflicts = append(plan.Conflicts, Conflict{
				Kind:   ConflictKeylessRow,
				Line:   r.Line,
				Detail: "row has no PP number, stored as its own group",
			})
			batches = append(batches, batch{rows: []importer.SparePartRow{r}})
			continue
		}
		if i, ok := index[key]; ok {
			batches[i].rows = append(batches[i].rows, r)
			continue
		}
		index[key] = len(batches)
		batches = append(batches, batch{key: key, rows: []importer.SparePartRow{r}})
	}
	return batches
}

// applyHeader copies group-level fields from the first row that carries each.
func applyHeader(g *entity.SparePartGroup, rows []importer.SparePartRow) {
	set := make(map[importer.Field]bool)
	for i := range rows {
		r := &rows[i]
		pick := func(f importer.Field, dst *string, v string) {
			if set[f] || !r.Present[f] {
				return
			}
			*dst = v
			set[f] = true
		}
		pick(importer.FieldPPDate, &g.PPDate, r.PPDate)
		pick(importer.FieldProjectName, &g.ProjectName, r.ProjectName)
		pick(importer.FieldMachineName, &g.MachineName, r.MachineName)
		pick(importer.FieldCategory, &g.Category, r.Category)
		pick(importer.FieldAOName, &g.AOName, r.AOName)
		if !set[importer.FieldStatus] && r.Present[importer.FieldStatus] {
			g.Status = entity.SparePartStatus(r.Status)
			set[importer.FieldStatus] = true
		}
	}
}

// mergeItems matches rows to items by merge key. Matches take every field the
// row carries; misses are appended. Items without a match are kept.
func mergeItems(g *entity.SparePartGroup, rows []importer.SparePartRow, nextID func() string, plan *Plan) {
	index := make(map[string]int, len(g.Items))
	for i := range g.Items {
		if k := g.Items[i].MergeKey(); k != "" {
			if _, dup := index[k]; !dup {
				index[k] = i
			}
		}
	}

	for i := range rows {
		r := &rows[i]
		item := r.Item()
		key := item.MergeKey()
		if key != "" {
			if at, ok := index[key]; ok {
				applyItem(&g.Items[at], r)
				plan.ItemsMerged++
				continue
			}
		}

		item.ID = nextID()
		item.GroupID = g.ID
		item.SortOrder = len(g.Items)
		g.Items = append(g.Items, item)
		plan.ItemsAdded++
		if key == "" {
			plan.Conflicts = append(plan.Conflicts, Conflict{
				Kind:     ConflictEmptyItemKey,
				PPNumber: g.PPNumber,
				Line:     r.Line,
				Detail:   "line item has neither part code nor product name, added as new",
			})
			continue
		}
		index[key] = len(g.Items) - 1
	}
}

func applyItem(it *entity.SparePartItem, r *importer.SparePartRow) {
	p := r.Present
	if p[importer.FieldPartCode] {
		it.PartCode = r.PartCode
	}
	if p[importer.FieldProductName] {
		it.ProductName = r.ProductName
	}
	if p[importer.FieldModel] {
		it.Model = r.Model
	}
	if p[importer.FieldMaker] {
		it.Maker = r.Maker
	}
	if p[importer.FieldCategory] {
		it.Category = r.Category
	}
	if p[importer.FieldQuantity] {
		it.Quantity = r.Quantity
	}
	if p[importer.FieldPrice] {
		it.UnitPrice = r.Price
	}
	if p[importer.FieldPONumber] {
		it.PONumber = r.PONumber
	}
	if p[importer.FieldPODate] {
		it.PODate = r.PODate
	}
	if p[importer.FieldLPBNumber] {
		it.LPBNumber = r.LPBNumber
	}
	if p[importer.FieldLPBDate] {
		it.LPBDate = r.LPBDate
	}
}

func cloneGroup(g *entity.SparePartGroup) *entity.SparePartGroup {
	c := *g
	c.Items = append([]entity.SparePartItem(nil), g.Items...)
	return &c
}

func sameGroup(a, b *entity.SparePartGroup) bool {
	if a.PPNumber != b.PPNumber || a.PPDate != b.PPDate || a.ProjectName != b.ProjectName ||
		a.MachineName != b.MachineName || a.Category != b.Category || a.Status != b.Status ||
		a.AOName != b.AOName || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		x, y := &a.Items[i], &b.Items[i]
		if x.ID != y.ID || x.PartCode != y.PartCode || x.ProductName != y.ProductName ||
			x.Model != y.Model || x.Maker != y.Maker || x.Category != y.Category ||
			x.Quantity != y.Quantity || !x.UnitPrice.Equal(y.UnitPrice) ||
			x.PONumber != y.PONumber || x.PODate != y.PODate ||
			x.LPBNumber != y.LPBNumber || x.LPBDate != y.LPBDate {
			return false
		}
	}
	return true
}
