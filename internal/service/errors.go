package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/housemates/internal/apperr"
	"github.com/mmynk/housemates/internal/membership"
)

// connectError maps an apperr classification to a Connect error code.
// External failures are logged in full but reported without the cause.
func connectError(err error) error {
	msg := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message()
	}

	var code connect.Code
	switch {
	case errors.Is(err, apperr.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, apperr.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, membership.ErrContention):
		code = connect.CodeAborted
	case errors.Is(err, apperr.ErrConflict):
		code = connect.CodeAlreadyExists
	case errors.Is(err, apperr.ErrUnauthorized):
		code = connect.CodePermissionDenied
	case errors.Is(err, apperr.ErrExternal):
		slog.Error("External service failure", "error", err)
		code = connect.CodeUnavailable
	default:
		slog.Error("Unclassified error", "error", err)
		code = connect.CodeInternal
		msg = "internal error"
	}
	return connect.NewError(code, errors.New(msg))
}

var (
	errMembershipChanged = errors.New("household membership changed while subscribing; retry")
	errWatchInterrupted  = errors.New("household updates interrupted; watch again")
)
