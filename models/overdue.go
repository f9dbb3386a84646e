package models

import (
	"context"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"gorm.io/gorm"
)

const DefaultSweepBatchSize = 200

// SweepOverduePayments flips Pending unpaid payments due before today to Overdue.
// Rows are processed by ascending id, one transaction each, so a failing row does not
// hold back the rest. Returns the number of payments changed.
func SweepOverduePayments(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	today := utils.DateOnly(now.UTC())
	db := config.GetDB()

	changed := 0
	lastId := 0
	for {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		var ids []int
		err := db.WithContext(ctx).Model(&Payment{}).
			Where("status = ? AND is_paid = ? AND date < ? AND id > ?", PaymentStatusPending, false, today, lastId).
			Order("id").Limit(batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return changed, err
		}
		for _, id := range ids {
			lastId = id
			ok, err := markPaymentOverdue(ctx, id, now)
			if err != nil {
				config.LogError(config.GetLogger(), "Payment", "SweepOverduePayments", "mark overdue", id, err)
				continue
			}
			if ok {
				changed++
			}
		}
		if len(ids) < batchSize {
			return changed, nil
		}
	}
}

func markPaymentOverdue(ctx context.Context, id int, now time.Time) (bool, error) {
	changed := false
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := utils.FetchModelTx[Payment](tx, id)
		if err != nil {
			return err
		}
		prevStatus := p.Status
		if !MarkOverdue(p, now) {
			return nil
		}
		if err := tx.Model(p).UpdateColumns(map[string]interface{}{
			"status":       p.Status,
			"system_notes": p.SystemNotes,
		}).Error; err != nil {
			return err
		}
		changed = true
		return recordPaymentEvent(ctx, tx, prevStatus, p)
	})
	return changed, err
}
