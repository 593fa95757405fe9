package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/housemates/internal/events"
	"github.com/mmynk/housemates/internal/membership"
	"github.com/mmynk/housemates/internal/middleware"
	"github.com/mmynk/housemates/pkg/api"
	"github.com/mmynk/housemates/pkg/api/apiconnect"
)

// Ensure HouseholdService implements the handler interface
var _ apiconnect.HouseholdServiceHandler = (*HouseholdService)(nil)

// HouseholdService implements the Connect HouseholdService on top of the
// membership manager. Live updates come from the in-process hub.
type HouseholdService struct {
	manager *membership.Manager
	hub     *events.Hub
}

// NewHouseholdService creates a HouseholdService.
func NewHouseholdService(manager *membership.Manager, hub *events.Hub) *HouseholdService {
	return &HouseholdService{manager: manager, hub: hub}
}

// CreateHousehold creates a household administered by the caller.
func (s *HouseholdService) CreateHousehold(ctx context.Context, req *connect.Request[api.CreateHouseholdRequest]) (*connect.Response[api.CreateHouseholdResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("CreateHousehold request received", "user_id", userID, "name", req.Msg.Name)

	household, err := s.manager.CreateHousehold(ctx, userID, req.Msg.Name)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.CreateHouseholdResponse{Household: toHousehold(household)}), nil
}

// JoinHousehold adds the caller to the household with the given join code.
func (s *HouseholdService) JoinHousehold(ctx context.Context, req *connect.Request[api.JoinHouseholdRequest]) (*connect.Response[api.JoinHouseholdResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("JoinHousehold request received", "user_id", userID)

	household, err := s.manager.JoinHousehold(ctx, userID, req.Msg.Code)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.JoinHouseholdResponse{Household: toHousehold(household)}), nil
}

// InviteMember adds a registered user to the caller's household by email.
func (s *HouseholdService) InviteMember(ctx context.Context, req *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("InviteMember request received", "user_id", userID, "email", req.Msg.Email)

	member, err := s.manager.InviteByEmail(ctx, userID, req.Msg.Email)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.InviteMemberResponse{Member: toUser(member)}), nil
}

// LeaveHousehold removes the caller from their household.
func (s *HouseholdService) LeaveHousehold(ctx context.Context, req *connect.Request[api.LeaveHouseholdRequest]) (*connect.Response[api.LeaveHouseholdResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("LeaveHousehold request received", "user_id", userID)

	if err := s.manager.LeaveHousehold(ctx, userID); err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.LeaveHouseholdResponse{}), nil
}

// RemoveMember lets the admin remove another member.
func (s *HouseholdService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("RemoveMember request received", "user_id", userID, "target_id", req.Msg.UserID)

	if err := s.manager.RemoveMember(ctx, userID, req.Msg.UserID); err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.RemoveMemberResponse{}), nil
}

// DeleteHousehold lets the admin delete the household and its ledger.
func (s *HouseholdService) DeleteHousehold(ctx context.Context, req *connect.Request[api.DeleteHouseholdRequest]) (*connect.Response[api.DeleteHouseholdResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("DeleteHousehold request received", "user_id", userID)

	if err := s.manager.DeleteHousehold(ctx, userID); err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.DeleteHouseholdResponse{}), nil
}

// ToggleMemberActive lets the admin activate or deactivate a member.
func (s *HouseholdService) ToggleMemberActive(ctx context.Context, req *connect.Request[api.ToggleMemberActiveRequest]) (*connect.Response[api.ToggleMemberActiveResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("ToggleMemberActive request received", "user_id", userID, "target_id", req.Msg.UserID)

	member, err := s.manager.ToggleMemberActive(ctx, userID, req.Msg.UserID)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.ToggleMemberActiveResponse{Member: toUser(member)}), nil
}

// GetHousehold returns the caller's household and its members.
func (s *HouseholdService) GetHousehold(ctx context.Context, req *connect.Request[api.GetHouseholdRequest]) (*connect.Response[api.GetHouseholdResponse], error) {
	view, err := s.manager.GetHousehold(ctx, middleware.GetUserID(ctx))
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&api.GetHouseholdResponse{
		Household: toHousehold(view.Household),
		Members:   toUsers(view.Members),
	}), nil
}

// WatchHousehold streams changes to the caller's household. The first
// message is a snapshot; the stream ends when the caller leaves or is removed,
// the household is deleted, or the client goes away.
func (s *HouseholdService) WatchHousehold(ctx context.Context, req *connect.Request[api.WatchHouseholdRequest], stream *connect.ServerStream[api.WatchHouseholdResponse]) error {
	userID := middleware.GetUserID(ctx)

	view, err := s.manager.GetHousehold(ctx, userID)
	if err != nil {
		return connectError(err)
	}
	householdID := view.Household.ID

	updates, cancel := s.hub.Subscribe(householdID)
	defer cancel()

	// Re-read after subscribing so nothing committed in between is missed.
	view, err = s.manager.GetHousehold(ctx, userID)
	if err != nil {
		return connectError(err)
	}
	if view.Household.ID != householdID {
		return connect.NewError(connect.CodeAborted, errMembershipChanged)
	}

	snapshot := events.Event{
		Kind:        events.Snapshot,
		HouseholdID: householdID,
		ActorID:     userID,
		Message:     view.Household.Name,
		OccurredAt:  time.Now().UTC(),
	}
	if err := stream.Send(&api.WatchHouseholdResponse{
		Event:     toEvent(snapshot),
		Household: toHousehold(view.Household),
		Members:   toUsers(view.Members),
	}); err != nil {
		return err
	}
	slog.Info("Watching household", "household_id", householdID, "user_id", userID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-updates:
			if !ok {
				// The hub dropped the subscription; the client has missed events.
				return connect.NewError(connect.CodeUnavailable, errWatchInterrupted)
			}
			if err := stream.Send(&api.WatchHouseholdResponse{Event: toEvent(e)}); err != nil {
				return err
			}
			if endsWatch(e, userID) {
				return nil
			}
		}
	}
}

// endsWatch reports whether e takes userID out of the watched household.
func endsWatch(e events.Event, userID string) bool {
	switch e.Kind {
	case events.HouseholdDeleted:
		return true
	case events.MemberLeft, events.MemberRemoved:
		return e.SubjectID == userID
	}
	return false
}
