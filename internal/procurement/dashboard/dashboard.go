// Package dashboard reduces stored records to the figures shown on the
// dashboards. Every function is a single pass without I/O.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/progress"
)

// Unassigned bucket for records without a project
const Unassigned = "Unassigned"

// Summary dashboard figures
type Summary struct {
	TotalProjects  int                        `json:"total_projects"`
	TotalItems     int                        `json:"total_items"`
	TotalValue     decimal.Decimal            `json:"total_value"`
	StatusCounts   map[string]int             `json:"status_counts"`
	ProgressCounts map[progress.Status]int    `json:"progress_counts"`
	ProjectValues  map[string]decimal.Decimal `json:"project_values"`
	CategoryCounts map[string]int             `json:"category_counts,omitempty"`
}

func newSummary(statuses []string) Summary {
	s := Summary{
		TotalValue:     decimal.Zero,
		StatusCounts:   make(map[string]int, len(statuses)),
		ProgressCounts: make(map[progress.Status]int, len(progress.Statuses)),
		ProjectValues:  make(map[string]decimal.Decimal),
	}
	for _, st := range statuses {
		s.StatusCounts[st] = 0
	}
	for _, p := range progress.Statuses {
		s.ProgressCounts[p] = 0
	}
	return s
}

func (s *Summary) addValue(project string, v decimal.Decimal) {
	project = projectKey(project)
	s.TotalValue = s.TotalValue.Add(v)
	s.ProjectValues[project] = s.ProjectValues[project].Add(v)
}

// MachinePurchases negotiated quotation times quantity, bucketed by project code.
func MachinePurchases(records []entity.MachinePurchase, today time.Time) Summary {
	statuses := make([]string, len(entity.PurchasingStatuses))
	for i, st := range entity.PurchasingStatuses {
		statuses[i] = string(st)
	}
	s := newSummary(statuses)

	for i := range records {
		r := &records[i]
		s.TotalItems++
		s.StatusCounts[string(r.Status)]++
		s.ProgressCounts[progress.Derive(r.DueDate, r.Status, today)]++
		s.addValue(r.ProjectCode, r.Total())
	}
	s.TotalProjects = len(s.ProjectValues)
	return s
}

// SpareParts unit price times quantity per line item, bucketed by project name.
// Status and progress are counted per group, categories per item.
func SpareParts(groups []entity.SparePartGroup, today time.Time) Summary {
	statuses := make([]string, len(entity.SparePartStatuses))
	for i, st := range entity.SparePartStatuses {
		statuses[i] = string(st)
	}
	s := newSummary(statuses)
	s.CategoryCounts = make(map[string]int, len(entity.SparePartCategories))
	for _, c := range entity.SparePartCategories {
		s.CategoryCounts[c] = 0
	}

	for i := range groups {
		g := &groups[i]
		s.StatusCounts[string(g.Status)]++
		s.ProgressCounts[progress.Derive("", purchasingStatus(g.Status), today)]++
		if _, ok := s.ProjectValues[projectKey(g.ProjectName)]; !ok {
			s.ProjectValues[projectKey(g.ProjectName)] = decimal.Zero
		}
		for j := range g.Items {
			it := &g.Items[j]
			s.TotalItems++
			if it.Category != "" {
				s.CategoryCounts[it.Category]++
			}
			s.addValue(g.ProjectName, it.Total())
		}
	}
	s.TotalProjects = len(s.ProjectValues)
	return s
}

func projectKey(p string) string {
	if p == "" {
		return Unassigned
	}
	return p
}

func purchasingStatus(s entity.SparePartStatus) entity.PurchasingStatus {
	if s == entity.SpareStatusIncoming {
		return entity.StatusIncoming
	}
	return entity.PurchasingStatus(s)
}
