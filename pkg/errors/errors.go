// Package errors holds the application error catalogue shared by services and handlers.
//
// Services return the sentinels below (optionally wrapped with fmt.Errorf("%w: ...")) and the
// HTTP layer resolves them with From into the boundary error envelope.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Error is a machine-readable application error.
type Error struct {
	Code        string
	Status      int
	Message     string
	Remediation string
}

func (e *Error) Error() string {
	return e.Message
}

func New(code string, status int, message, remediation string) *Error {
	return &Error{Code: code, Status: status, Message: message, Remediation: remediation}
}

var (
	ErrNotFound = New("NOT_FOUND", http.StatusNotFound,
		"resource not found", "check the identifier and retry")
	ErrInsufficientFunds = New("INSUFFICIENT_FUNDS", http.StatusPaymentRequired,
		"insufficient funds for buy-in", "top up the account balance and retry with a new dedupe key")
	ErrInsufficientBalance = New("INSUFFICIENT_BALANCE", http.StatusPaymentRequired,
		"amount exceeds internal balance", "request a smaller amount")

	ErrGameFull = New("GAME_FULL", http.StatusConflict,
		"session is at capacity", "join another session")
	ErrGameNotJoinable = New("GAME_NOT_JOINABLE", http.StatusConflict,
		"session is not accepting this participant", "join a session that is still in the lobby")
	ErrGameNotActive = New("GAME_NOT_ACTIVE", http.StatusConflict,
		"session is not active", "read the session state before retrying")
	ErrGameAlreadyResolved = New("GAME_ALREADY_RESOLVED", http.StatusConflict,
		"session is already resolved", "read the session state for the final result")
	ErrGameNotStartable = New("GAME_NOT_STARTABLE", http.StatusConflict,
		"session has no participants", "wait for at least one participant to join")
	ErrPlayerEliminated = New("PLAYER_ELIMINATED", http.StatusConflict,
		"participant has been eliminated", "eliminated participants cannot move")
	ErrTileIsLava = New("TILE_IS_LAVA", http.StatusConflict,
		"target tile has collapsed", "choose a different direction")
	ErrRequestInFlight = New("REQUEST_IN_FLIGHT", http.StatusConflict,
		"a request with this dedupe key is still processing", "wait, then read state or retry with a new dedupe key")
	ErrConcurrentRequest = New("CONCURRENT_REQUEST", http.StatusConflict,
		"a concurrent request claimed this dedupe key", "wait, then read state or retry with a new dedupe key")
	ErrSessionBusy = New("SESSION_BUSY", http.StatusConflict,
		"resource is locked by another request", "retry shortly with a new dedupe key")
	ErrAccountExists = New("ACCOUNT_EXISTS", http.StatusConflict,
		"account already exists", "use a different account id")

	ErrOutOfBounds = New("OUT_OF_BOUNDS", http.StatusBadRequest,
		"target tile is outside the grid", "choose a direction that stays on the grid")
	ErrInvalidWinner = New("INVALID_WINNER", http.StatusBadRequest,
		"winner is not a participant of the session", "pass a participant id")
	ErrInvalidPlacement = New("INVALID_PLACEMENT", http.StatusBadRequest,
		"placements are invalid", "use distinct participants with distinct places starting at 1")
	ErrInvalidDistribution = New("INVALID_DISTRIBUTION", http.StatusBadRequest,
		"distribution percentages are invalid", "use non-negative percentages summing to at most 100")
	ErrInvalidPlayerResult = New("INVALID_PLAYER_RESULT", http.StatusBadRequest,
		"explicit player result is malformed", "pass an account id and a numeric net amount for every entry")
	ErrMissingDedupeKey = New("MISSING_DEDUPE_KEY", http.StatusBadRequest,
		"dedupe key is required", "send an Idempotency-Key header or dedupeKey field")
	ErrInvalidBuyIn = New("INVALID_BUY_IN", http.StatusBadRequest,
		"buy-in must be zero or positive", "pass a non-negative buy-in")
	ErrInvalidMaxPlayers = New("INVALID_MAX_PLAYERS", http.StatusBadRequest,
		"max players must be between 2 and 16", "pass a player count in range")
	ErrInvalidGridSize = New("INVALID_GRID_SIZE", http.StatusBadRequest,
		"grid size must be between 4 and 10 and hold every player", "pass a grid size in range")
	ErrInvalidDirection = New("INVALID_DIRECTION", http.StatusBadRequest,
		"direction must be up, down, left or right", "pass a valid direction")
	ErrInvalidAmount = New("INVALID_AMOUNT", http.StatusBadRequest,
		"amount must be positive", "pass a positive amount")
	ErrInvalidRequest = New("INVALID_REQUEST", http.StatusBadRequest,
		"request is malformed", "fix the request body")

	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized,
		"unauthorized", "send a valid bearer token")
	ErrForbidden = New("FORBIDDEN", http.StatusForbidden,
		"token does not grant access to this resource", "act only on your own account")
	ErrOperatorNotFound = New("UNAUTHORIZED", http.StatusUnauthorized,
		"operator not found", "check the username")
	ErrInvalidOperatorPassword = New("UNAUTHORIZED", http.StatusUnauthorized,
		"invalid operator credentials", "check the password")
	ErrOperatorDisabled = New("FORBIDDEN", http.StatusForbidden,
		"operator disabled", "ask another operator to re-enable the account")

	ErrInternal = New("INTERNAL", http.StatusInternalServerError,
		"internal error", "read the session state before retrying with a new dedupe key")
)

// From resolves err to an application error, falling back to ErrInternal.
func From(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal
}
