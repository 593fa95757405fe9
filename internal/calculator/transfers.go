package calculator

import "github.com/mmynk/housemates/internal/models"

// transferEpsilon is the smallest amount worth suggesting a payment for.
const transferEpsilon = 0.01

// SuggestTransfers turns per-participant settlements into pairwise payments.
//
// Algorithm:
// - Split participants into debtors (ShouldPay > 0) and creditors (ShouldReceive > 0)
// - Walk both lists in settlement order, each time moving the smaller of the
//   debtor's remaining debt and the creditor's remaining credit
// - Amounts under one cent are ignored
//
// The result is a convenience, not a minimal set of payments.
func SuggestTransfers(settlements []models.Settlement) []models.Transfer {
	var creditors, debtors []models.Settlement
	for _, s := range settlements {
		if s.ShouldReceive > 0 {
			creditors = append(creditors, s)
		} else if s.ShouldPay > 0 {
			debtors = append(debtors, s)
		}
	}

	// Remaining amounts, indexed like debtors/creditors
	debtorBalance := make([]float64, len(debtors))
	creditorBalance := make([]float64, len(creditors))
	for i, d := range debtors {
		debtorBalance[i] = d.ShouldPay
	}
	for j, c := range creditors {
		creditorBalance[j] = c.ShouldReceive
	}

	var transfers []models.Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := min(debtorBalance[i], creditorBalance[j])

		if amount > transferEpsilon {
			transfers = append(transfers, models.Transfer{
				FromUserID: debtors[i].UserID,
				FromName:   debtors[i].Name,
				ToUserID:   creditors[j].UserID,
				ToName:     creditors[j].Name,
				Amount:     amount,
			})
		}

		debtorBalance[i] -= amount
		creditorBalance[j] -= amount

		// Move to next debtor/creditor if fully settled
		if debtorBalance[i] < transferEpsilon {
			i++
		}
		if creditorBalance[j] < transferEpsilon {
			j++
		}
	}

	return transfers
}
