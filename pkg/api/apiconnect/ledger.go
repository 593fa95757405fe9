package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/housemates/pkg/api"
)

// LedgerServiceName is the fully-qualified name of the LedgerService service.
const LedgerServiceName = "housemates.v1.LedgerService"

const (
	LedgerServiceAddTransactionProcedure    = "/housemates.v1.LedgerService/AddTransaction"
	LedgerServiceListTransactionsProcedure  = "/housemates.v1.LedgerService/ListTransactions"
	LedgerServiceUpdateTransactionProcedure = "/housemates.v1.LedgerService/UpdateTransaction"
	LedgerServiceDeleteTransactionProcedure = "/housemates.v1.LedgerService/DeleteTransaction"
	LedgerServiceGetStandingsProcedure      = "/housemates.v1.LedgerService/GetStandings"
	LedgerServiceGetStatsProcedure          = "/housemates.v1.LedgerService/GetStats"
)

// LedgerServiceClient is a client for the housemates.v1.LedgerService service.
type LedgerServiceClient interface {
	AddTransaction(context.Context, *connect.Request[api.AddTransactionRequest]) (*connect.Response[api.AddTransactionResponse], error)
	ListTransactions(context.Context, *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error)
	UpdateTransaction(context.Context, *connect.Request[api.UpdateTransactionRequest]) (*connect.Response[api.UpdateTransactionResponse], error)
	DeleteTransaction(context.Context, *connect.Request[api.DeleteTransactionRequest]) (*connect.Response[api.DeleteTransactionResponse], error)
	GetStandings(context.Context, *connect.Request[api.GetStandingsRequest]) (*connect.Response[api.GetStandingsResponse], error)
	GetStats(context.Context, *connect.Request[api.GetStatsRequest]) (*connect.Response[api.GetStatsResponse], error)
}

// NewLedgerServiceClient constructs a client for the
// housemates.v1.LedgerService service.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{api.ClientOption()}, opts...)
	return &ledgerServiceClient{
		addTransaction:    connect.NewClient[api.AddTransactionRequest, api.AddTransactionResponse](httpClient, baseURL+LedgerServiceAddTransactionProcedure, opts...),
		listTransactions:  connect.NewClient[api.ListTransactionsRequest, api.ListTransactionsResponse](httpClient, baseURL+LedgerServiceListTransactionsProcedure, opts...),
		updateTransaction: connect.NewClient[api.UpdateTransactionRequest, api.UpdateTransactionResponse](httpClient, baseURL+LedgerServiceUpdateTransactionProcedure, opts...),
		deleteTransaction: connect.NewClient[api.DeleteTransactionRequest, api.DeleteTransactionResponse](httpClient, baseURL+LedgerServiceDeleteTransactionProcedure, opts...),
		getStandings:      connect.NewClient[api.GetStandingsRequest, api.GetStandingsResponse](httpClient, baseURL+LedgerServiceGetStandingsProcedure, opts...),
		getStats:          connect.NewClient[api.GetStatsRequest, api.GetStatsResponse](httpClient, baseURL+LedgerServiceGetStatsProcedure, opts...),
	}
}

type ledgerServiceClient struct {
	addTransaction    *connect.Client[api.AddTransactionRequest, api.AddTransactionResponse]
	listTransactions  *connect.Client[api.ListTransactionsRequest, api.ListTransactionsResponse]
	updateTransaction *connect.Client[api.UpdateTransactionRequest, api.UpdateTransactionResponse]
	deleteTransaction *connect.Client[api.DeleteTransactionRequest, api.DeleteTransactionResponse]
	getStandings      *connect.Client[api.GetStandingsRequest, api.GetStandingsResponse]
	getStats          *connect.Client[api.GetStatsRequest, api.GetStatsResponse]
}

func (c *ledgerServiceClient) AddTransaction(ctx context.Context, req *connect.Request[api.AddTransactionRequest]) (*connect.Response[api.AddTransactionResponse], error) {
	return c.addTransaction.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListTransactions(ctx context.Context, req *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) UpdateTransaction(ctx context.Context, req *connect.Request[api.UpdateTransactionRequest]) (*connect.Response[api.UpdateTransactionResponse], error) {
	return c.updateTransaction.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) DeleteTransaction(ctx context.Context, req *connect.Request[api.DeleteTransactionRequest]) (*connect.Response[api.DeleteTransactionResponse], error) {
	return c.deleteTransaction.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetStandings(ctx context.Context, req *connect.Request[api.GetStandingsRequest]) (*connect.Response[api.GetStandingsResponse], error) {
	return c.getStandings.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetStats(ctx context.Context, req *connect.Request[api.GetStatsRequest]) (*connect.Response[api.GetStatsResponse], error) {
	return c.getStats.CallUnary(ctx, req)
}

// LedgerServiceHandler is implemented by the server.
type LedgerServiceHandler interface {
	AddTransaction(context.Context, *connect.Request[api.AddTransactionRequest]) (*connect.Response[api.AddTransactionResponse], error)
	ListTransactions(context.Context, *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error)
	UpdateTransaction(context.Context, *connect.Request[api.UpdateTransactionRequest]) (*connect.Response[api.UpdateTransactionResponse], error)
	DeleteTransaction(context.Context, *connect.Request[api.DeleteTransactionRequest]) (*connect.Response[api.DeleteTransactionResponse], error)
	GetStandings(context.Context, *connect.Request[api.GetStandingsRequest]) (*connect.Response[api.GetStandingsResponse], error)
	GetStats(context.Context, *connect.Request[api.GetStatsRequest]) (*connect.Response[api.GetStatsResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{api.HandlerOption()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(LedgerServiceAddTransactionProcedure, connect.NewUnaryHandler(LedgerServiceAddTransactionProcedure, svc.AddTransaction, opts...))
	mux.Handle(LedgerServiceListTransactionsProcedure, connect.NewUnaryHandler(LedgerServiceListTransactionsProcedure, svc.ListTransactions, opts...))
	mux.Handle(LedgerServiceUpdateTransactionProcedure, connect.NewUnaryHandler(LedgerServiceUpdateTransactionProcedure, svc.UpdateTransaction, opts...))
	mux.Handle(LedgerServiceDeleteTransactionProcedure, connect.NewUnaryHandler(LedgerServiceDeleteTransactionProcedure, svc.DeleteTransaction, opts...))
	mux.Handle(LedgerServiceGetStandingsProcedure, connect.NewUnaryHandler(LedgerServiceGetStandingsProcedure, svc.GetStandings, opts...))
	mux.Handle(LedgerServiceGetStatsProcedure, connect.NewUnaryHandler(LedgerServiceGetStatsProcedure, svc.GetStats, opts...))
	return "/" + LedgerServiceName + "/", mux
}
