package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/dashboard"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
)

// DashboardService summaries and full snapshots, computed per request
type DashboardService struct {
	machineRepo *repository.MachinePurchaseRepository
	spareRepo   *repository.SparePartRepository
	now         func() time.Time
}

func NewDashboardService(repos *repository.Repositories) *DashboardService {
	return &DashboardService{machineRepo: repos.MachinePurchase, spareRepo: repos.SparePart, now: time.Now}
}

func (s *DashboardService) MachinePurchases(ctx context.Context, filters map[string]string) (*dashboard.Summary, error) {
	records, err := s.machineRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list machine purchases: %w", err)
	}
	summary := dashboard.MachinePurchases(filterMachinePurchases(records, filters), s.now())
	return &summary, nil
}

func (s *DashboardService) SpareParts(ctx context.Context, filters map[string]string) (*dashboard.Summary, error) {
	groups, err := s.spareRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list spare parts: %w", err)
	}
	summary := dashboard.SpareParts(filterSpareParts(groups, filters), s.now())
	return &summary, nil
}

// Snapshot the complete current contents of a collection, pushed to
// realtime clients after every change.
func (s *DashboardService) Snapshot(ctx context.Context, collection string) (interface{}, error) {
	switch collection {
	case entity.CollectionMachinePurchases:
		records, err := s.machineRepo.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot machine purchases: %w", err)
		}
		return nonNil(records), nil
	case entity.CollectionSpareParts:
		groups, err := s.spareRepo.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot spare parts: %w", err)
		}
		return nonNil(groups), nil
	}
	return nil, fmt.Errorf("%w: unknown collection %q", ErrInvalidInput, collection)
}

// filterMachinePurchases applies the list filters in memory: project_code
// and a case-insensitive search over item name and drawing number.
func filterMachinePurchases(records []entity.MachinePurchase, filters map[string]string) []entity.MachinePurchase {
	project := filters["project_code"]
	search := strings.ToLower(strings.TrimSpace(filters["search"]))
	if project == "" && search == "" {
		return records
	}
	out := records[:0:0]
	for _, m := range records {
		if project != "" && m.ProjectCode != project {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.ItemName), search) &&
			!strings.Contains(strings.ToLower(m.DrawingNumber), search) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func filterSpareParts(groups []entity.SparePartGroup, filters map[string]string) []entity.SparePartGroup {
	project := filters["project_name"]
	category := filters["category"]
	if project == "" && category == "" {
		return groups
	}
	out := groups[:0:0]
	for _, g := range groups {
		if project != "" && g.ProjectName != project {
			continue
		}
		if category != "" && !hasCategory(&g, category) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func hasCategory(g *entity.SparePartGroup, category string) bool {
	for _, it := range g.Items {
		if it.Category == category {
			return true
		}
	}
	return false
}
