package records

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/ports"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

const deadlineModule = "deadline_feed"

// CountySale is one scheduled tax sale for a county. Counties hold upset and
// judicial sales on independent dates; the feed only ever cares about the
// soonest future one.
type CountySale struct {
	ID       string    `gorm:"type:uuid;primaryKey" json:"id"`
	CountyID string    `gorm:"column:county_id;not null;index" json:"county_id"`
	SaleType string    `gorm:"column:sale_type;not null" json:"sale_type"`
	SaleDate time.Time `gorm:"column:sale_date;not null;index" json:"sale_date"`
}

// TableName returns the database table name for CountySale.
func (CountySale) TableName() string { return "county_sales" }

// SaleDeadlineFeed is the gorm-backed implementation of ports.DeadlineFeed.
type SaleDeadlineFeed struct {
	db  *gorm.DB
	now func() time.Time
}

// Verify that SaleDeadlineFeed implements the ports.DeadlineFeed interface.
var _ ports.DeadlineFeed = (*SaleDeadlineFeed)(nil)

// NewSaleDeadlineFeed creates a SaleDeadlineFeed over the county_sales table.
func NewSaleDeadlineFeed(db *gorm.DB) *SaleDeadlineFeed {
	return &SaleDeadlineFeed{db: db, now: time.Now}
}

// NextDeadline returns the soonest future sale date for the county, or nil
// when none is scheduled.
func (f *SaleDeadlineFeed) NextDeadline(ctx context.Context, countyID string) (*time.Time, error) {
	var sale CountySale
	err := f.db.WithContext(ctx).
		Where("county_id = ? AND sale_date >= ?", countyID, f.now()).
		Order("sale_date ASC").
		First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, exception.Wrap(deadlineModule, exception.KindInternal, "failed to load county sale date", err)
	}
	return &sale.SaleDate, nil
}

// UpcomingDeadlines returns the soonest future sale date for every county
// with one, in a single grouped query.
func (f *SaleDeadlineFeed) UpcomingDeadlines(ctx context.Context) (map[string]time.Time, error) {
	var rows []struct {
		CountyID string
		NextSale time.Time
	}
	err := f.db.WithContext(ctx).Model(&CountySale{}).
		Select("county_id, MIN(sale_date) AS next_sale").
		Where("sale_date >= ?", f.now()).
		Group("county_id").
		Scan(&rows).Error
	if err != nil {
		return nil, exception.Wrap(deadlineModule, exception.KindInternal, "failed to load county sale dates", err)
	}
	deadlines := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		deadlines[row.CountyID] = row.NextSale
	}
	return deadlines, nil
}
