package calculator

import (
	"slices"
	"time"

	"github.com/mmynk/housemates/internal/apperr"
	"github.com/mmynk/housemates/internal/models"
)

// bucket accumulates one participant's spend.
type bucket struct {
	userID string
	name   string
	spent  float64
}

// participantKey identifies the author of an entry. Legacy entries recorded
// without an author ID fall back to the name snapshot.
func participantKey(txn *models.Transaction) string {
	if txn.UserID != "" {
		return txn.UserID
	}
	return txn.UserName
}

// collectSpend folds the period's expense entries into per-participant buckets.
// Current members are seeded first, in list order, so zero-spend members
// appear; authors who are no longer members follow in first-seen order.
func collectSpend(transactions []*models.Transaction, members []*models.User, period string) []*bucket {
	var buckets []*bucket
	index := make(map[string]*bucket)

	for _, m := range members {
		if _, ok := index[m.ID]; ok {
			continue
		}
		b := &bucket{userID: m.ID, name: m.Name}
		index[m.ID] = b
		buckets = append(buckets, b)
	}

	for _, txn := range transactions {
		if txn.Month != period || txn.IsSystem() {
			continue
		}
		key := participantKey(txn)
		b, ok := index[key]
		if !ok {
			b = &bucket{userID: txn.UserID, name: txn.UserName}
			index[key] = b
			buckets = append(buckets, b)
		}
		b.spent += txn.Amount
	}

	return buckets
}

// ComputeSettlement computes each participant's position for one month.
//
// Algorithm:
// - total = sum of the period's expense entries (system entries never count)
// - fairShare = total / participants, where participants are the current
//   members plus any former member with spend in the period
// - each participant owes fairShare - spent when positive, or is owed the reverse
//
// Settlements are sorted by ShouldReceive, descending; ties keep bucket order.
func ComputeSettlement(transactions []*models.Transaction, members []*models.User, period string) models.SettlementResult {
	buckets := collectSpend(transactions, members, period)

	result := models.SettlementResult{
		Month:            period,
		ParticipantCount: len(buckets),
		Settlements:      make([]models.Settlement, 0, len(buckets)),
	}

	for _, b := range buckets {
		result.TotalExpense += b.spent
	}
	if result.ParticipantCount > 0 {
		result.FairShare = result.TotalExpense / float64(result.ParticipantCount)
	}

	for _, b := range buckets {
		s := models.Settlement{
			UserID:     b.userID,
			Name:       b.name,
			Spent:      b.spent,
			FairShare:  result.FairShare,
			Difference: b.spent - result.FairShare,
		}
		if s.Difference > 0 {
			s.ShouldReceive = s.Difference
		} else if s.Difference < 0 {
			s.ShouldPay = -s.Difference
		}
		result.Settlements = append(result.Settlements, s)
	}

	slices.SortStableFunc(result.Settlements, func(a, b models.Settlement) int {
		switch {
		case a.ShouldReceive > b.ShouldReceive:
			return -1
		case a.ShouldReceive < b.ShouldReceive:
			return 1
		default:
			return 0
		}
	})

	result.Transfers = SuggestTransfers(result.Settlements)
	return result
}

// ParseMonth validates a YYYY-MM period key.
// An empty value selects the month containing now.
func ParseMonth(value string, now time.Time) (string, error) {
	if value == "" {
		return models.MonthKey(now), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return "", apperr.Validationf("invalid month %q, expected YYYY-MM", value)
	}
	return t.Format("2006-01"), nil
}
