package service

import (
	"time"

	"github.com/mmynk/housemates/internal/events"
	"github.com/mmynk/housemates/internal/models"
	"github.com/mmynk/housemates/pkg/api"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		HouseholdID: u.HouseholdID,
		IsAdmin:     u.IsAdmin,
		IsActive:    u.IsActive,
		CreatedAt:   formatTime(u.CreatedAt),
	}
}

func toUsers(users []*models.User) []*api.User {
	out := make([]*api.User, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return out
}

func toHousehold(h *models.Household) *api.Household {
	members := h.Members
	if members == nil {
		members = []string{}
	}
	return &api.Household{
		ID:        h.ID,
		Name:      h.Name,
		Code:      h.Code,
		Admin:     h.AdminID,
		Members:   members,
		CreatedAt: formatTime(h.CreatedAt),
	}
}

func toTransaction(t *models.Transaction) *api.Transaction {
	return &api.Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		UserName:    t.UserName,
		HouseholdID: t.HouseholdID,
		Amount:      t.Amount,
		Note:        t.Note,
		ReceiptURL:  t.ReceiptURL,
		Timestamp:   formatTime(t.Timestamp),
		Month:       t.Month,
		Type:        string(t.Type),
	}
}

func toEvent(e events.Event) *api.Event {
	return &api.Event{
		Kind:          string(e.Kind),
		HouseholdID:   e.HouseholdID,
		ActorID:       e.ActorID,
		SubjectID:     e.SubjectID,
		TransactionID: e.TransactionID,
		Message:       e.Message,
		OccurredAt:    formatTime(e.OccurredAt),
	}
}

func toStandings(r models.SettlementResult) *api.GetStandingsResponse {
	resp := &api.GetStandingsResponse{
		Month:            r.Month,
		TotalExpense:     r.TotalExpense,
		ParticipantCount: r.ParticipantCount,
		FairShare:        r.FairShare,
		Settlements:      make([]*api.Settlement, 0, len(r.Settlements)),
		Transfers:        make([]*api.Transfer, 0, len(r.Transfers)),
	}
	for _, s := range r.Settlements {
		resp.Settlements = append(resp.Settlements, &api.Settlement{
			UserID:        s.UserID,
			Name:          s.Name,
			Spent:         s.Spent,
			FairShare:     s.FairShare,
			Difference:    s.Difference,
			ShouldPay:     s.ShouldPay,
			ShouldReceive: s.ShouldReceive,
		})
	}
	for _, t := range r.Transfers {
		resp.Transfers = append(resp.Transfers, &api.Transfer{
			FromUserID: t.FromUserID,
			FromName:   t.FromName,
			ToUserID:   t.ToUserID,
			ToName:     t.ToName,
			Amount:     t.Amount,
		})
	}
	return resp
}

func toStats(s models.Stats) *api.GetStatsResponse {
	resp := &api.GetStatsResponse{
		Month:            s.Month,
		WeekTotal:        s.WeekTotal,
		MonthTotal:       s.MonthTotal,
		UserMonthTotal:   s.UserMonthTotal,
		TransactionCount: s.TransactionCount,
		Breakdown:        make([]*api.MemberSpend, 0, len(s.Breakdown)),
	}
	for _, b := range s.Breakdown {
		resp.Breakdown = append(resp.Breakdown, &api.MemberSpend{
			UserID: b.UserID,
			Name:   b.Name,
			Amount: b.Amount,
		})
	}
	return resp
}
