package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/housemates/pkg/api"
)

// HouseholdServiceName is the fully-qualified name of the HouseholdService service.
const HouseholdServiceName = "housemates.v1.HouseholdService"

const (
	HouseholdServiceCreateHouseholdProcedure    = "/housemates.v1.HouseholdService/CreateHousehold"
	HouseholdServiceJoinHouseholdProcedure      = "/housemates.v1.HouseholdService/JoinHousehold"
	HouseholdServiceInviteMemberProcedure       = "/housemates.v1.HouseholdService/InviteMember"
	HouseholdServiceLeaveHouseholdProcedure     = "/housemates.v1.HouseholdService/LeaveHousehold"
	HouseholdServiceRemoveMemberProcedure       = "/housemates.v1.HouseholdService/RemoveMember"
	HouseholdServiceDeleteHouseholdProcedure    = "/housemates.v1.HouseholdService/DeleteHousehold"
	HouseholdServiceToggleMemberActiveProcedure = "/housemates.v1.HouseholdService/ToggleMemberActive"
	HouseholdServiceGetHouseholdProcedure       = "/housemates.v1.HouseholdService/GetHousehold"
	HouseholdServiceWatchHouseholdProcedure     = "/housemates.v1.HouseholdService/WatchHousehold"
)

// HouseholdServiceClient is a client for the housemates.v1.HouseholdService service.
type HouseholdServiceClient interface {
	CreateHousehold(context.Context, *connect.Request[api.CreateHouseholdRequest]) (*connect.Response[api.CreateHouseholdResponse], error)
	JoinHousehold(context.Context, *connect.Request[api.JoinHouseholdRequest]) (*connect.Response[api.JoinHouseholdResponse], error)
	InviteMember(context.Context, *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error)
	LeaveHousehold(context.Context, *connect.Request[api.LeaveHouseholdRequest]) (*connect.Response[api.LeaveHouseholdResponse], error)
	RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error)
	DeleteHousehold(context.Context, *connect.Request[api.DeleteHouseholdRequest]) (*connect.Response[api.DeleteHouseholdResponse], error)
	ToggleMemberActive(context.Context, *connect.Request[api.ToggleMemberActiveRequest]) (*connect.Response[api.ToggleMemberActiveResponse], error)
	GetHousehold(context.Context, *connect.Request[api.GetHouseholdRequest]) (*connect.Response[api.GetHouseholdResponse], error)
	WatchHousehold(context.Context, *connect.Request[api.WatchHouseholdRequest]) (*connect.ServerStreamForClient[api.WatchHouseholdResponse], error)
}

// NewHouseholdServiceClient constructs a client for the
// housemates.v1.HouseholdService service.
func NewHouseholdServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) HouseholdServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{api.ClientOption()}, opts...)
	return &householdServiceClient{
		createHousehold:    connect.NewClient[api.CreateHouseholdRequest, api.CreateHouseholdResponse](httpClient, baseURL+HouseholdServiceCreateHouseholdProcedure, opts...),
		joinHousehold:      connect.NewClient[api.JoinHouseholdRequest, api.JoinHouseholdResponse](httpClient, baseURL+HouseholdServiceJoinHouseholdProcedure, opts...),
		inviteMember:       connect.NewClient[api.InviteMemberRequest, api.InviteMemberResponse](httpClient, baseURL+HouseholdServiceInviteMemberProcedure, opts...),
		leaveHousehold:     connect.NewClient[api.LeaveHouseholdRequest, api.LeaveHouseholdResponse](httpClient, baseURL+HouseholdServiceLeaveHouseholdProcedure, opts...),
		removeMember:       connect.NewClient[api.RemoveMemberRequest, api.RemoveMemberResponse](httpClient, baseURL+HouseholdServiceRemoveMemberProcedure, opts...),
		deleteHousehold:    connect.NewClient[api.DeleteHouseholdRequest, api.DeleteHouseholdResponse](httpClient, baseURL+HouseholdServiceDeleteHouseholdProcedure, opts...),
		toggleMemberActive: connect.NewClient[api.ToggleMemberActiveRequest, api.ToggleMemberActiveResponse](httpClient, baseURL+HouseholdServiceToggleMemberActiveProcedure, opts...),
		getHousehold:       connect.NewClient[api.GetHouseholdRequest, api.GetHouseholdResponse](httpClient, baseURL+HouseholdServiceGetHouseholdProcedure, opts...),
		watchHousehold:     connect.NewClient[api.WatchHouseholdRequest, api.WatchHouseholdResponse](httpClient, baseURL+HouseholdServiceWatchHouseholdProcedure, opts...),
	}
}

type householdServiceClient struct {
	createHousehold    *connect.Client[api.CreateHouseholdRequest, api.CreateHouseholdResponse]
	joinHousehold      *connect.Client[api.JoinHouseholdRequest, api.JoinHouseholdResponse]
	inviteMember       *connect.Client[api.InviteMemberRequest, api.InviteMemberResponse]
	leaveHousehold     *connect.Client[api.LeaveHouseholdRequest, api.LeaveHouseholdResponse]
	removeMember       *connect.Client[api.RemoveMemberRequest, api.RemoveMemberResponse]
	deleteHousehold    *connect.Client[api.DeleteHouseholdRequest, api.DeleteHouseholdResponse]
	toggleMemberActive *connect.Client[api.ToggleMemberActiveRequest, api.ToggleMemberActiveResponse]
	getHousehold       *connect.Client[api.GetHouseholdRequest, api.GetHouseholdResponse]
	watchHousehold     *connect.Client[api.WatchHouseholdRequest, api.WatchHouseholdResponse]
}

func (c *householdServiceClient) CreateHousehold(ctx context.Context, req *connect.Request[api.CreateHouseholdRequest]) (*connect.Response[api.CreateHouseholdResponse], error) {
	return c.createHousehold.CallUnary(ctx, req)
}

func (c *householdServiceClient) JoinHousehold(ctx context.Context, req *connect.Request[api.JoinHouseholdRequest]) (*connect.Response[api.JoinHouseholdResponse], error) {
	return c.joinHousehold.CallUnary(ctx, req)
}

func (c *householdServiceClient) InviteMember(ctx context.Context, req *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error) {
	return c.inviteMember.CallUnary(ctx, req)
}

func (c *householdServiceClient) LeaveHousehold(ctx context.Context, req *connect.Request[api.LeaveHouseholdRequest]) (*connect.Response[api.LeaveHouseholdResponse], error) {
	return c.leaveHousehold.CallUnary(ctx, req)
}

func (c *householdServiceClient) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *householdServiceClient) DeleteHousehold(ctx context.Context, req *connect.Request[api.DeleteHouseholdRequest]) (*connect.Response[api.DeleteHouseholdResponse], error) {
	return c.deleteHousehold.CallUnary(ctx, req)
}

func (c *householdServiceClient) ToggleMemberActive(ctx context.Context, req *connect.Request[api.ToggleMemberActiveRequest]) (*connect.Response[api.ToggleMemberActiveResponse], error) {
	return c.toggleMemberActive.CallUnary(ctx, req)
}

func (c *householdServiceClient) GetHousehold(ctx context.Context, req *connect.Request[api.GetHouseholdRequest]) (*connect.Response[api.GetHouseholdResponse], error) {
	return c.getHousehold.CallUnary(ctx, req)
}

func (c *householdServiceClient) WatchHousehold(ctx context.Context, req *connect.Request[api.WatchHouseholdRequest]) (*connect.ServerStreamForClient[api.WatchHouseholdResponse], error) {
	return c.watchHousehold.CallServerStream(ctx, req)
}

// HouseholdServiceHandler is implemented by the server.
type HouseholdServiceHandler interface {
	CreateHousehold(context.Context, *connect.Request[api.CreateHouseholdRequest]) (*connect.Response[api.CreateHouseholdResponse], error)
	JoinHousehold(context.Context, *connect.Request[api.JoinHouseholdRequest]) (*connect.Response[api.JoinHouseholdResponse], error)
	InviteMember(context.Context, *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error)
	LeaveHousehold(context.Context, *connect.Request[api.LeaveHouseholdRequest]) (*connect.Response[api.LeaveHouseholdResponse], error)
	RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error)
	DeleteHousehold(context.Context, *connect.Request[api.DeleteHouseholdRequest]) (*connect.Response[api.DeleteHouseholdResponse], error)
	ToggleMemberActive(context.Context, *connect.Request[api.ToggleMemberActiveRequest]) (*connect.Response[api.ToggleMemberActiveResponse], error)
	GetHousehold(context.Context, *connect.Request[api.GetHouseholdRequest]) (*connect.Response[api.GetHouseholdResponse], error)
	WatchHousehold(context.Context, *connect.Request[api.WatchHouseholdRequest], *connect.ServerStream[api.WatchHouseholdResponse]) error
}

// NewHouseholdServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewHouseholdServiceHandler(svc HouseholdServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{api.HandlerOption()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(HouseholdServiceCreateHouseholdProcedure, connect.NewUnaryHandler(HouseholdServiceCreateHouseholdProcedure, svc.CreateHousehold, opts...))
	mux.Handle(HouseholdServiceJoinHouseholdProcedure, connect.NewUnaryHandler(HouseholdServiceJoinHouseholdProcedure, svc.JoinHousehold, opts...))
	mux.Handle(HouseholdServiceInviteMemberProcedure, connect.NewUnaryHandler(HouseholdServiceInviteMemberProcedure, svc.InviteMember, opts...))
	mux.Handle(HouseholdServiceLeaveHouseholdProcedure, connect.NewUnaryHandler(HouseholdServiceLeaveHouseholdProcedure, svc.LeaveHousehold, opts...))
	mux.Handle(HouseholdServiceRemoveMemberProcedure, connect.NewUnaryHandler(HouseholdServiceRemoveMemberProcedure, svc.RemoveMember, opts...))
	mux.Handle(HouseholdServiceDeleteHouseholdProcedure, connect.NewUnaryHandler(HouseholdServiceDeleteHouseholdProcedure, svc.DeleteHousehold, opts...))
	mux.Handle(HouseholdServiceToggleMemberActiveProcedure, connect.NewUnaryHandler(HouseholdServiceToggleMemberActiveProcedure, svc.ToggleMemberActive, opts...))
	mux.Handle(HouseholdServiceGetHouseholdProcedure, connect.NewUnaryHandler(HouseholdServiceGetHouseholdProcedure, svc.GetHousehold, opts...))
	mux.Handle(HouseholdServiceWatchHouseholdProcedure, connect.NewServerStreamHandler(HouseholdServiceWatchHouseholdProcedure, svc.WatchHousehold, opts...))
	return "/" + HouseholdServiceName + "/", mux
}
