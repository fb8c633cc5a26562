package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	pkgerrors "github.com/novashop/novashop-backend/pkg/errors"
)

// Line is one stock adjustment request.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// SkippedLine records a line the batch adjustment could not apply.
type SkippedLine struct {
	ProductID uuid.UUID
	Quantity  int
	Reason    string
}

// Report summarizes a best-effort batch adjustment. Individual line
// failures do not abort the batch; callers log the report instead.
type Report struct {
	Applied []Line
	Skipped []SkippedLine
}

// Err aggregates skipped lines into a single error for logging, or nil when
// every line applied.
func (r Report) Err() error {
	var err error
	for _, skipped := range r.Skipped {
		err = multierr.Append(err, fmt.Errorf("product %s qty %d: %s", skipped.ProductID, skipped.Quantity, skipped.Reason))
	}
	return err
}

// Adjuster mutates product stock. Decrements are guarded by a floor so
// concurrent checkouts cannot push stock below zero.
type Adjuster interface {
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	ReserveLines(ctx context.Context, tx *gorm.DB, lines []Line) Report
	RestoreLines(ctx context.Context, tx *gorm.DB, lines []Line) Report
}

type adjuster struct{}

// NewAdjuster exposes the default stock adjuster.
func NewAdjuster() Adjuster {
	return adjuster{}
}

func (adjuster) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		exists, err := productExists(ctx, tx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
	}
	return nil
}

func (adjuster) Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock restore")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (a adjuster) ReserveLines(ctx context.Context, tx *gorm.DB, lines []Line) Report {
	report := Report{}
	for _, line := range lines {
		if err := a.Decrement(ctx, tx, line.ProductID, line.Quantity); err != nil {
			report.Skipped = append(report.Skipped, SkippedLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Reason:    err.Error(),
			})
			continue
		}
		report.Applied = append(report.Applied, line)
	}
	return report
}

func (a adjuster) RestoreLines(ctx context.Context, tx *gorm.DB, lines []Line) Report {
	report := Report{}
	for _, line := range lines {
		if err := a.Increment(ctx, tx, line.ProductID, line.Quantity); err != nil {
			report.Skipped = append(report.Skipped, SkippedLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Reason:    err.Error(),
			})
			continue
		}
		report.Applied = append(report.Applied, line)
	}
	return report
}

func productExists(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Table("products").
		Where("id = ?", productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
