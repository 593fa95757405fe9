package calculator

import (
	"slices"
	"time"

	"github.com/mmynk/housemates/internal/models"
)

// statsWindow is the look-back used for the weekly total.
const statsWindow = 7 * 24 * time.Hour

// ComputeStats summarizes household spending for a month as seen by userID.
//
// WeekTotal covers expense entries stamped within the seven days before now,
// regardless of period. The remaining totals cover entries stored under
// period. Breakdown lists every participant of the period, highest spend first.
func ComputeStats(transactions []*models.Transaction, members []*models.User, userID, period string, now time.Time) models.Stats {
	stats := models.Stats{Month: period}
	weekStart := now.Add(-statsWindow)

	for _, txn := range transactions {
		if txn.IsSystem() {
			continue
		}
		if !txn.Timestamp.Before(weekStart) && !txn.Timestamp.After(now) {
			stats.WeekTotal += txn.Amount
		}
		if txn.Month != period {
			continue
		}
		stats.MonthTotal += txn.Amount
		stats.TransactionCount++
		if txn.UserID == userID {
			stats.UserMonthTotal += txn.Amount
		}
	}

	for _, b := range collectSpend(transactions, members, period) {
		stats.Breakdown = append(stats.Breakdown, models.MemberSpend{
			UserID: b.userID,
			Name:   b.name,
			Amount: b.spent,
		})
	}
	slices.SortStableFunc(stats.Breakdown, func(a, b models.MemberSpend) int {
		switch {
		case a.Amount > b.Amount:
			return -1
		case a.Amount < b.Amount:
			return 1
		default:
			return 0
		}
	})

	return stats
}
