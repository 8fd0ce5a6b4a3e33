package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"grievance/internal/model"
	"grievance/internal/repository"
	"grievance/pkg/apperr"
	"grievance/pkg/pagination"

	"github.com/shopspring/decimal"
)

// SnapshotService rolls live complaint state up into immutable
// per-entity counts and compares them against history. Snapshots are
// approximations: the aggregator reads whatever is committed at the
// time of the query, with no cross-table locking.
type SnapshotService interface {
	ComputeSnapshot(ctx context.Context, entityType, entityCode, period string, asOf time.Time) (*model.ComplaintSnapshot, error)
	CompareToHistory(ctx context.Context, entityType, entityCode, period string, asOf time.Time) (*model.TrendComparison, error)
	List(ctx context.Context, entityType, entityCode, period string, page, limit int) ([]model.ComplaintSnapshot, int64, error)
}

type snapshotService struct {
	snapshotRepo  repository.SnapshotRepository
	complaintRepo repository.ComplaintRepository
	geoRepo       repository.GeographyRepository
}

func NewSnapshotService(
	snapshotRepo repository.SnapshotRepository,
	complaintRepo repository.ComplaintRepository,
	geoRepo repository.GeographyRepository,
) SnapshotService {
	return &snapshotService{
		snapshotRepo:  snapshotRepo,
		complaintRepo: complaintRepo,
		geoRepo:       geoRepo,
	}
}

func (s *snapshotService) ComputeSnapshot(ctx context.Context, entityType, entityCode, period string, asOf time.Time) (*model.ComplaintSnapshot, error) {
	if !model.IsValidEntityType(entityType) {
		return nil, apperr.Newf(apperr.KindValidation, "invalid entity type %q", entityType)
	}
	if !model.IsValidPeriod(period) {
		return nil, apperr.Newf(apperr.KindValidation, "invalid period %q", period)
	}

	entity, err := s.geoRepo.FindByCode(ctx, entityCode)
	if err != nil {
		return nil, err
	}
	if entity.Type != entityType {
		return nil, apperr.Newf(apperr.KindValidation, "entity %s is a %s, not a %s", entityCode, entity.Type, entityType)
	}

	// District rollups include every complaint filed in a village below
	// it; the geography tree is the authority on membership.
	villageCodes, err := s.geoRepo.DescendantVillageCodes(ctx, entityCode)
	if err != nil {
		return nil, err
	}

	counts, err := s.complaintRepo.CountByVillageCodes(ctx, villageCodes, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate complaints for %s: %w", entityCode, err)
	}

	statusJSON, err := json.Marshal(counts.ByStatus)
	if err != nil {
		return nil, err
	}
	categoryJSON, err := json.Marshal(counts.ByCategory)
	if err != nil {
		return nil, err
	}

	snapshot := &model.ComplaintSnapshot{
		EntityType:     entityType,
		EntityCode:     entityCode,
		EntityName:     entity.Name,
		SnapshotDate:   truncateToDay(asOf),
		Period:         period,
		TotalCount:     counts.Total,
		StatusCounts:   string(statusJSON),
		CategoryCounts: string(categoryJSON),
	}
	if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *snapshotService) CompareToHistory(ctx context.Context, entityType, entityCode, period string, asOf time.Time) (*model.TrendComparison, error) {
	if !model.IsValidEntityType(entityType) {
		return nil, apperr.Newf(apperr.KindValidation, "invalid entity type %q", entityType)
	}
	if !model.IsValidPeriod(period) {
		return nil, apperr.Newf(apperr.KindValidation, "invalid period %q", period)
	}

	current, err := s.snapshotRepo.FindLatestAt(ctx, entityType, entityCode, period, asOf)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "no snapshot for %s %s at %s",
			entityType, entityCode, asOf.Format("2006-01-02"))
	}

	previous, err := s.snapshotRepo.FindLatestBefore(ctx, entityType, entityCode, period, current.SnapshotDate)
	if err != nil {
		return nil, err
	}

	comparison := &model.TrendComparison{
		EntityType: entityType,
		EntityCode: entityCode,
		Period:     period,
		AsOf:       asOf,
		Current:    current.TotalCount,
	}
	if previous != nil {
		comparison.Previous = previous.TotalCount
	}
	comparison.Change = comparison.Current - comparison.Previous

	fillTrend(comparison, previous == nil)
	return comparison, nil
}

// fillTrend derives ChangePercent and Trend. The ±1% epsilon maps small
// wobbles to "stable"; a zero or absent baseline falls back to the sign
// of the change.
func fillTrend(c *model.TrendComparison, noPrior bool) {
	if noPrior {
		c.ChangePercent = decimal.Zero
		if c.Current > 0 {
			c.Trend = model.TrendUp
		} else {
			c.Trend = model.TrendStable
		}
		return
	}

	if c.Previous == 0 {
		c.ChangePercent = decimal.Zero
		switch {
		case c.Change > 0:
			c.Trend = model.TrendUp
		case c.Change < 0:
			c.Trend = model.TrendDown
		default:
			c.Trend = model.TrendStable
		}
		return
	}

	c.ChangePercent = decimal.NewFromInt(c.Change).
		Div(decimal.NewFromInt(c.Previous)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	epsilon := decimal.NewFromInt(1)
	if c.ChangePercent.Abs().LessThanOrEqual(epsilon) {
		c.Trend = model.TrendStable
	} else if c.Change > 0 {
		c.Trend = model.TrendUp
	} else {
		c.Trend = model.TrendDown
	}
}

func (s *snapshotService) List(ctx context.Context, entityType, entityCode, period string, page, limit int) ([]model.ComplaintSnapshot, int64, error) {
	return s.snapshotRepo.List(ctx, entityType, entityCode, period, pagination.Normalize(page, limit))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
