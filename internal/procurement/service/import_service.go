package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rasyendriar/machine-dashboard-app/internal/config"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/importer"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/reconcile"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/realtime"
)

// ImportKind which collection an upload targets
type ImportKind string

const (
	KindSpareParts       ImportKind = "spare-parts"
	KindMachinePurchases ImportKind = "machine-purchases"
)

func ParseImportKind(s string) (ImportKind, error) {
	switch k := ImportKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSpareParts, KindMachinePurchases:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown import kind %q", ErrInvalidInput, s)
}

// ImportResult outcome of a committed import
type ImportResult struct {
	Kind        ImportKind            `json:"kind"`
	Inserted    int                   `json:"inserted"`
	Updated     int                   `json:"updated"`
	Unchanged   int                   `json:"unchanged"`
	ItemsAdded  int                   `json:"items_added"`
	ItemsMerged int                   `json:"items_merged"`
	Dropped     []importer.DroppedRow `json:"dropped"`
	Rejected    []importer.DroppedRow `json:"rejected"`
	Conflicts   []reconcile.Conflict  `json:"conflicts"`
}

// ImportService spreadsheet import pipeline: parse, normalize, reconcile, write.
type ImportService struct {
	machineRepo *repository.MachinePurchaseRepository
	spareRepo   *repository.SparePartRepository
	previews    PreviewStore
	changes     *changes
	keyless     reconcile.KeylessPolicy
	previewTTL  time.Duration
	logger      *zap.Logger
}

func NewImportService(repos *repository.Repositories, previews PreviewStore, ch *changes, cfg config.ImportConfig, logger *zap.Logger) *ImportService {
	ttl := cfg.PreviewTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ImportService{
		machineRepo: repos.MachinePurchase,
		spareRepo:   repos.SparePart,
		previews:    previews,
		changes:     ch,
		keyless:     reconcile.ParseKeylessPolicy(cfg.KeylessPolicy),
		previewTTL:  ttl,
		logger:      logger,
	}
}

// Preview parses an upload and parks the normalized rows until Commit or
// Discard. Parse failures come back as *importer.ParseError.
func (s *ImportService) Preview(ctx context.Context, kind ImportKind, userID, filename string, r io.Reader) (*Preview, error) {
	p, err := s.parse(kind, filename, r)
	if err != nil {
		return nil, err
	}
	p.Token = newID()
	p.CreatedBy = userID
	p.ExpiresAt = time.Now().Add(s.previewTTL)
	if err := s.previews.Save(ctx, p, s.previewTTL); err != nil {
		return nil, fmt.Errorf("save preview: %w", err)
	}
	s.logger.Info("import preview stored",
		zap.String("token", p.Token),
		zap.String("kind", string(kind)),
		zap.String("filename", filename),
		zap.Int("spare_part_rows", len(p.SpareParts)),
		zap.Int("machine_purchase_rows", len(p.MachinePurchases)),
		zap.Int("dropped", len(p.Dropped)),
	)
	return p, nil
}

// Commit writes a parked preview. The preview is consumed before writing, so
// a token commits at most once; a failed write parks it again for the rest of
// its lifetime. Once started the write is not cancelled by the caller going
// away.
func (s *ImportService) Commit(ctx context.Context, token string) (*ImportResult, error) {
	p, err := s.previews.Take(ctx, token)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)
	result, err := s.write(ctx, p)
	if err != nil {
		if ttl := time.Until(p.ExpiresAt); ttl > 0 {
			if serr := s.previews.Save(ctx, p, ttl); serr != nil {
				s.logger.Warn("failed preview could not be parked again", zap.String("token", token), zap.Error(serr))
			}
		}
		return nil, err
	}
	return result, nil
}

// GetPreview returns a parked preview without consuming it.
func (s *ImportService) GetPreview(ctx context.Context, token string) (*Preview, error) {
	return s.previews.Load(ctx, token)
}

// Discard drops a parked preview.
func (s *ImportService) Discard(ctx context.Context, token string) error {
	return s.previews.Delete(ctx, token)
}

// Import parses and commits in one step.
func (s *ImportService) Import(ctx context.Context, kind ImportKind, filename string, r io.Reader) (*ImportResult, error) {
	p, err := s.parse(kind, filename, r)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, p)
}

func (s *ImportService) parse(kind ImportKind, filename string, r io.Reader) (*Preview, error) {
	rows, err := importer.Parse(filename, r)
	if err != nil {
		return nil, err
	}
	p := &Preview{Kind: kind, Filename: filename}
	switch kind {
	case KindSpareParts:
		p.SpareParts, p.Dropped = importer.NormalizeSpareParts(rows)
	case KindMachinePurchases:
		p.MachinePurchases, p.Dropped = importer.NormalizeMachinePurchases(rows)
	default:
		return nil, fmt.Errorf("%w: unknown import kind %q", ErrInvalidInput, kind)
	}
	for _, d := range p.Dropped {
		s.logger.Warn("import row dropped",
			zap.String("filename", filename), zap.Int("line", d.Line), zap.String("reason", d.Reason))
	}
	return p, nil
}

func (s *ImportService) write(ctx context.Context, p *Preview) (*ImportResult, error) {
	var (
		result *ImportResult
		err    error
	)
	switch p.Kind {
	case KindSpareParts:
		result, err = s.writeSpareParts(ctx, p.SpareParts)
	case KindMachinePurchases:
		result, err = s.writeMachinePurchases(ctx, p.MachinePurchases)
	default:
		return nil, fmt.Errorf("%w: unknown import kind %q", ErrInvalidInput, p.Kind)
	}
	if err != nil {
		return nil, err
	}
	result.Kind = p.Kind
	result.Dropped = nonNil(p.Dropped)

	s.logger.Info("import committed",
		zap.String("kind", string(p.Kind)),
		zap.String("filename", p.Filename),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("dropped", len(result.Dropped)),
		zap.Int("conflicts", len(result.Conflicts)),
	)
	return result, nil
}

// writeSpareParts looks up the stored groups and applies the reconciliation
// plan in one transaction.
func (s *ImportService) writeSpareParts(ctx context.Context, rows []importer.SparePartRow) (*ImportResult, error) {
	keys := ppNumbers(rows)

	var plan *reconcile.Plan
	err := s.spareRepo.Transaction(ctx, func(repo *repository.SparePartRepository) error {
		existing, err := repo.FindByPPNumbers(ctx, keys)
		if err != nil {
			return fmt.Errorf("look up stored groups: %w", err)
		}
		plan = reconcile.Reconcile(rows, existing, reconcile.Options{Keyless: s.keyless})
		if plan.Empty() {
			return nil
		}
		return repo.Apply(ctx, plan.Inserts, plan.Updates)
	})
	if err != nil {
		s.logger.Error("spare part import failed", zap.Int("rows", len(rows)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	for _, c := range plan.Conflicts {
		s.logger.Warn("reconciliation conflict",
			zap.String("kind", string(c.Kind)),
			zap.String("pp_number", c.PPNumber),
			zap.Int("line", c.Line),
			zap.Strings("group_ids", c.GroupIDs),
			zap.String("detail", c.Detail),
		)
	}
	rejected := make([]importer.DroppedRow, 0, len(plan.Rejected))
	for _, r := range plan.Rejected {
		rejected = append(rejected, importer.DroppedRow{Line: r.Line, Reason: "missing PP number"})
	}

	if !plan.Empty() {
		s.changes.publish(ctx, entity.CollectionSpareParts, realtime.ActionImported, "")
	}
	return &ImportResult{
		Inserted:    len(plan.Inserts),
		Updated:     len(plan.Updates),
		Unchanged:   plan.Unchanged,
		ItemsAdded:  plan.ItemsAdded,
		ItemsMerged: plan.ItemsMerged,
		Rejected:    rejected,
		Conflicts:   nonNil(plan.Conflicts),
	}, nil
}

// writeMachinePurchases appends every row as a new record.
func (s *ImportService) writeMachinePurchases(ctx context.Context, rows []importer.MachinePurchaseRow) (*ImportResult, error) {
	records := make([]*entity.MachinePurchase, 0, len(rows))
	for i := range rows {
		m := rows[i].Entity()
		m.ID = newID()
		records = append(records, m)
	}
	if len(records) > 0 {
		if err := s.machineRepo.CreateBatch(ctx, records); err != nil {
			s.logger.Error("machine purchase import failed", zap.Int("rows", len(records)), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
		}
		s.changes.publish(ctx, entity.CollectionMachinePurchases, realtime.ActionImported, "")
	}
	return &ImportResult{
		Inserted:  len(records),
		Rejected:  []importer.DroppedRow{},
		Conflicts: []reconcile.Conflict{},
	}, nil
}

func ppNumbers(rows []importer.SparePartRow) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range rows {
		if r.PPNumber != "" && !seen[r.PPNumber] {
			seen[r.PPNumber] = true
			keys = append(keys, r.PPNumber)
		}
	}
	return keys
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
