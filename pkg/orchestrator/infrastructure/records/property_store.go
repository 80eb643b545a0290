// Package records adapts the property database produced by the county
// parsers into the orchestrator's read-only record store and deadline feed.
package records

import (
	"context"
	"time"

	"gorm.io/gorm"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/ports"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

const recordsModule = "property_store"

// Property is one tax-sale property row. The parsers write these; the
// orchestrator only ever reads them. Each stage stamps its completion
// timestamp, and eligibility for a stage is completion of the previous one.
type Property struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	CountyID string `gorm:"column:county_id;not null;index" json:"county_id"`
	// SaleType is "upset" or "judicial".
	SaleType string `gorm:"column:sale_type" json:"sale_type"`
	// Status is "active" while the property is still in play for its sale.
	Status                string     `gorm:"column:status;not null;index" json:"status"`
	ParcelNumber          string     `gorm:"column:parcel_number" json:"parcel_number"`
	Address               string     `gorm:"column:address" json:"address"`
	ParsedAt              *time.Time `gorm:"column:parsed_at" json:"parsed_at,omitempty"`
	RegridAt              *time.Time `gorm:"column:regrid_at" json:"regrid_at,omitempty"`
	ScreenshotValidatedAt *time.Time `gorm:"column:screenshot_validated_at" json:"screenshot_validated_at,omitempty"`
	ApprovedAt            *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	CreatedAt             time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName returns the database table name for Property.
func (Property) TableName() string { return "properties" }

// stageColumns maps a stage to its eligibility and completion marker columns.
// Eligibility for the first stage is simply being an active row.
func stageColumns(stage model.Stage) (eligibleMarker, doneMarker string, ok bool) {
	switch stage {
	case model.StageParse:
		return "", "parsed_at", true
	case model.StageEnrich:
		return "parsed_at", "regrid_at", true
	case model.StageValidate:
		return "regrid_at", "screenshot_validated_at", true
	case model.StageApprove:
		return "screenshot_validated_at", "approved_at", true
	default:
		return "", "", false
	}
}

// PropertyStore is the gorm-backed implementation of ports.RecordStore.
type PropertyStore struct {
	db *gorm.DB
}

// Verify that PropertyStore implements the ports.RecordStore interface.
var _ ports.RecordStore = (*PropertyStore)(nil)

// NewPropertyStore creates a PropertyStore over the properties table.
func NewPropertyStore(db *gorm.DB) *PropertyStore {
	return &PropertyStore{db: db}
}

// StageCounts returns eligible and done counts for one stage, grouped by
// county, in a single query.
func (s *PropertyStore) StageCounts(ctx context.Context, stage model.Stage, countyID string) (map[string]model.StageCounts, error) {
	eligibleMarker, doneMarker, ok := stageColumns(stage)
	if !ok {
		return nil, exception.Newf(recordsModule, exception.KindInvalidInput, "unknown stage %q", stage)
	}
	query := s.db.WithContext(ctx).Model(&Property{}).
		Select("county_id, COUNT(*) AS eligible, SUM(CASE WHEN "+doneMarker+" IS NOT NULL THEN 1 ELSE 0 END) AS done").
		Where("status = ?", "active").
		Group("county_id")
	if eligibleMarker != "" {
		query = query.Where(eligibleMarker + " IS NOT NULL")
	}
	if countyID != "" {
		query = query.Where("county_id = ?", countyID)
	}

	var rows []struct {
		CountyID string
		Eligible int
		Done     int
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, exception.Wrap(recordsModule, exception.KindInternal, "failed to count stage completion", err)
	}
	counts := make(map[string]model.StageCounts, len(rows))
	for _, row := range rows {
		counts[row.CountyID] = model.StageCounts{Eligible: row.Eligible, Done: row.Done}
	}
	return counts, nil
}

// CountEligible returns the number of records qualifying for the stage.
func (s *PropertyStore) CountEligible(ctx context.Context, stage model.Stage, countyID string) (int, error) {
	eligibleMarker, _, ok := stageColumns(stage)
	if !ok {
		return 0, exception.Newf(recordsModule, exception.KindInvalidInput, "unknown stage %q", stage)
	}
	query := s.db.WithContext(ctx).Model(&Property{}).Where("status = ?", "active")
	if eligibleMarker != "" {
		query = query.Where(eligibleMarker + " IS NOT NULL")
	}
	if countyID != "" {
		query = query.Where("county_id = ?", countyID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, exception.Wrap(recordsModule, exception.KindInternal, "failed to count eligible records", err)
	}
	return int(count), nil
}

// CountDone returns the number of records bearing the stage's completion marker.
func (s *PropertyStore) CountDone(ctx context.Context, stage model.Stage, countyID string) (int, error) {
	_, doneMarker, ok := stageColumns(stage)
	if !ok {
		return 0, exception.Newf(recordsModule, exception.KindInvalidInput, "unknown stage %q", stage)
	}
	query := s.db.WithContext(ctx).Model(&Property{}).
		Where("status = ?", "active").
		Where(doneMarker + " IS NOT NULL")
	if countyID != "" {
		query = query.Where("county_id = ?", countyID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, exception.Wrap(recordsModule, exception.KindInternal, "failed to count done records", err)
	}
	return int(count), nil
}
