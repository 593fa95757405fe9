package service

import (
	"bytes"
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/housemates/internal/ledger"
	"github.com/mmynk/housemates/internal/middleware"
	"github.com/mmynk/housemates/internal/models"
	"github.com/mmynk/housemates/pkg/api"
	"github.com/mmynk/housemates/pkg/api/apiconnect"
)

// Ensure LedgerService implements the handler interface
var _ apiconnect.LedgerServiceHandler = (*LedgerService)(nil)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	ledger *ledger.Ledger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(l *ledger.Ledger) *LedgerService {
	return &LedgerService{ledger: l}
}

// AddTransaction records an expense by the caller, with an optional receipt.
func (s *LedgerService) AddTransaction(ctx context.Context, req *connect.Request[api.AddTransactionRequest]) (*connect.Response[api.AddTransactionResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("AddTransaction request received",
		"user_id", userID,
		"amount", req.Msg.Amount,
		"has_receipt", req.Msg.Receipt != nil,
	)

	var receipt *ledger.Receipt
	if r := req.Msg.Receipt; r != nil && len(r.Data) > 0 {
		receipt = &ledger.Receipt{
			Filename: r.Filename,
			Body:     bytes.NewReader(r.Data),
			Size:     int64(len(r.Data)),
			Progress: func(read, total int64) {
				slog.Debug("Receipt upload progress", "user_id", userID, "bytes", read, "total", total)
			},
		}
	}

	result, err := s.ledger.AddTransaction(ctx, userID, req.Msg.Amount, req.Msg.Note, receipt)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.AddTransactionResponse{
		Transaction:    toTransaction(result.Transaction),
		ReceiptWarning: result.Warning,
	}), nil
}

// ListTransactions returns the caller's household entries, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, req *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error) {
	txns, err := s.ledger.ListTransactions(ctx, middleware.GetUserID(ctx), req.Msg.Month)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.ListTransactionsResponse{Transactions: toTransactions(txns)}), nil
}

// UpdateTransaction lets the admin correct an expense.
func (s *LedgerService) UpdateTransaction(ctx context.Context, req *connect.Request[api.UpdateTransactionRequest]) (*connect.Response[api.UpdateTransactionResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("UpdateTransaction request received", "user_id", userID, "transaction_id", req.Msg.ID)

	txn, err := s.ledger.UpdateTransaction(ctx, userID, req.Msg.ID, req.Msg.Amount, req.Msg.Note)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.UpdateTransactionResponse{Transaction: toTransaction(txn)}), nil
}

// DeleteTransaction lets the admin delete an entry.
func (s *LedgerService) DeleteTransaction(ctx context.Context, req *connect.Request[api.DeleteTransactionRequest]) (*connect.Response[api.DeleteTransactionResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("DeleteTransaction request received", "user_id", userID, "transaction_id", req.Msg.ID)

	if err := s.ledger.DeleteTransaction(ctx, userID, req.Msg.ID); err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.DeleteTransactionResponse{}), nil
}

// GetStandings returns the month's settlement for the caller's household.
func (s *LedgerService) GetStandings(ctx context.Context, req *connect.Request[api.GetStandingsRequest]) (*connect.Response[api.GetStandingsResponse], error) {
	result, err := s.ledger.GetStandings(ctx, middleware.GetUserID(ctx), req.Msg.Month)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(toStandings(result)), nil
}

// GetStats returns spending statistics for the caller's household.
func (s *LedgerService) GetStats(ctx context.Context, req *connect.Request[api.GetStatsRequest]) (*connect.Response[api.GetStatsResponse], error) {
	stats, err := s.ledger.GetStats(ctx, middleware.GetUserID(ctx), req.Msg.Month)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(toStats(stats)), nil
}

func toTransactions(txns []*models.Transaction) []*api.Transaction {
	out := make([]*api.Transaction, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransaction(t))
	}
	return out
}
