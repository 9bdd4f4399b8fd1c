package game

import (
	"errors"
	"net/http"
)

// Closed error taxonomy for session operations. Controllers and socket
// handlers match on these with errors.Is; services wrap them with %w when
// adding context.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrInvalidTransition    = errors.New("invalid session transition")
	ErrEmptyRoster          = errors.New("cannot start session with empty roster")
	ErrStaleCursor          = errors.New("stale question cursor")
	ErrInvalidDashboardView = errors.New("dashboard view not allowed for current status")
	ErrSessionNotJoinable   = errors.New("session is not accepting players")
	ErrDuplicatePlayer      = errors.New("player already joined")
	ErrQuestionMismatch     = errors.New("answer is not for the current question")
	ErrUnknownPlayer        = errors.New("player not in session roster")
	ErrGatewayUnavailable   = errors.New("external gateway unavailable")
	ErrStoreUnavailable     = errors.New("session store unavailable")
)

// HTTPStatus maps a taxonomy error to the status code controllers return.
// Unrecognized errors map to 500 (treated as store failures).
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnknownPlayer):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrEmptyRoster),
		errors.Is(err, ErrInvalidDashboardView),
		errors.Is(err, ErrSessionNotJoinable):
		return http.StatusConflict
	case errors.Is(err, ErrStaleCursor), errors.Is(err, ErrDuplicatePlayer):
		return http.StatusConflict
	case errors.Is(err, ErrQuestionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns the stable machine-readable name used in API payloads.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "SessionNotFound"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrEmptyRoster):
		return "EmptyRoster"
	case errors.Is(err, ErrStaleCursor):
		return "StaleCursor"
	case errors.Is(err, ErrInvalidDashboardView):
		return "InvalidDashboardView"
	case errors.Is(err, ErrSessionNotJoinable):
		return "SessionNotJoinable"
	case errors.Is(err, ErrDuplicatePlayer):
		return "DuplicatePlayer"
	case errors.Is(err, ErrQuestionMismatch):
		return "QuestionMismatch"
	case errors.Is(err, ErrUnknownPlayer):
		return "UnknownPlayer"
	case errors.Is(err, ErrGatewayUnavailable):
		return "GatewayUnavailable"
	default:
		return "StoreUnavailable"
	}
}
