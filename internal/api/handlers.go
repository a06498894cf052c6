package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"ignite-service/internal/service/game"
	"ignite-service/internal/service/ledger"
	"ignite-service/internal/service/payout"
	pkgAuth "ignite-service/pkg/auth"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/money"
	"ignite-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type createAccountBody struct {
	AccountID   string `json:"accountId"`
	ExternalRef string `json:"externalRef"`
}

type withdrawBody struct {
	Amount    json.RawMessage `json:"amount"`
	DedupeKey string          `json:"dedupeKey"`
}

type creditBody struct {
	Amount    json.RawMessage `json:"amount" binding:"required"`
	Note      string          `json:"note"`
	DedupeKey string          `json:"dedupeKey"`
}

type createSessionBody struct {
	BuyIn      json.RawMessage `json:"buyIn" binding:"required"`
	MaxPlayers int             `json:"maxPlayers"`
	GridSize   int             `json:"gridSize"`
	DedupeKey  string          `json:"dedupeKey"`
}

type joinBody struct {
	ParticipantID string `json:"participantId" binding:"required"`
	ForceStart    bool   `json:"forceStart"`
	SkipDebit     bool   `json:"skipDebit"`
	DedupeKey     string `json:"dedupeKey"`
}

type startBody struct {
	DedupeKey string `json:"dedupeKey"`
}

type moveBody struct {
	ParticipantID string `json:"participantId" binding:"required"`
	Direction     string `json:"direction" binding:"required"`
	DedupeKey     string `json:"dedupeKey"`
}

type resolveBody struct {
	WinnerID        string                     `json:"winnerId"`
	ExplicitResults []payout.PlayerResultInput `json:"explicitResults"`
	Placements      []payout.Placement         `json:"placements"`
	Distribution    []float64                  `json:"distribution"`
	DedupeKey       string                     `json:"dedupeKey"`
}

type collapseBody struct {
	Tiles     []game.Coord `json:"tiles"`
	DedupeKey string       `json:"dedupeKey"`
}

type operatorLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type paymentEventBody struct {
	EventID   string          `json:"eventId" binding:"required"`
	AccountID string          `json:"accountId" binding:"required"`
	Amount    json.RawMessage `json:"amount" binding:"required"`
	Status    string          `json:"status"`
}

func parseAmount(raw json.RawMessage, invalid error) (money.Amount, error) {
	amount, err := money.ParseJSON(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", invalid, err)
	}
	return amount, nil
}

// Accounts

func (h *Handler) CreateAccount(c *gin.Context) {
	var body createAccountBody
	if !bindJSON(c, &body) {
		return
	}

	account, err := h.services.Ledger.CreateAccount(c.Request.Context(), strings.TrimSpace(body.AccountID), strings.TrimSpace(body.ExternalRef))
	if err != nil {
		response.Error(c, err)
		return
	}
	token, expireAt, err := pkgAuth.GeneratePlayerToken(account.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"account":  account,
		"token":    token,
		"expireAt": expireAt,
	})
}

func (h *Handler) GetAccount(c *gin.Context) {
	accountID := c.Param("id")
	if !requireActingAs(c, accountID) {
		return
	}

	funds, err := h.services.Ledger.Funds(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, funds)
}

func (h *Handler) AccountLedger(c *gin.Context) {
	accountID := c.Param("id")
	if !requireActingAs(c, accountID) {
		return
	}
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.services.Journal.History(c.Request.Context(), accountID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) Withdraw(c *gin.Context) {
	accountID := c.Param("id")
	if !requireActingAs(c, accountID) {
		return
	}
	var body withdrawBody
	if !bindJSON(c, &body) {
		return
	}

	var amount *money.Amount
	if isPresent(body.Amount) {
		parsed, err := parseAmount(body.Amount, appErr.ErrInvalidAmount)
		if err != nil {
			response.Error(c, err)
			return
		}
		amount = &parsed
	}

	h.dedupe(c, http.StatusOK, body.DedupeKey, func(ctx context.Context) (any, error) {
		return h.services.Ledger.Withdraw(ctx, accountID, amount, ledger.Memo{})
	})
}

// Sessions

func (h *Handler) CreateSession(c *gin.Context) {
	var body createSessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return
	}
	buyIn, err := parseAmount(body.BuyIn, appErr.ErrInvalidBuyIn)
	if err != nil {
		response.Error(c, err)
		return
	}
	params := game.CreateParams{BuyIn: buyIn, MaxPlayers: body.MaxPlayers, GridSize: body.GridSize}

	// Creation has no natural dedupe key; callers opt in with one.
	if dedupeKey(c, body.DedupeKey) == "" {
		view, err := h.services.Game.CreateSession(c.Request.Context(), params)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, view)
		return
	}
	h.dedupe(c, http.StatusCreated, body.DedupeKey, func(ctx context.Context) (any, error) {
		return h.services.Game.CreateSession(ctx, params)
	})
}

func (h *Handler) GetSession(c *gin.Context) {
	view, err := h.services.Game.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

func (h *Handler) JoinSession(c *gin.Context) {
	var body joinBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return
	}
	if body.SkipDebit {
		response.Error(c, fmt.Errorf("%w: skipDebit is reserved for operators", appErr.ErrForbidden))
		return
	}
	if !requireActingAs(c, body.ParticipantID) {
		return
	}
	h.join(c, body)
}

func (h *Handler) AdminJoinSession(c *gin.Context) {
	var body joinBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return
	}
	h.join(c, body)
}

func (h *Handler) join(c *gin.Context, body joinBody) {
	sessionID := c.Param("id")
	opts := game.JoinOptions{ForceStart: body.ForceStart, SkipDebit: body.SkipDebit}
	h.dedupe(c, http.StatusOK, body.DedupeKey, func(ctx context.Context) (any, error) {
		return h.services.Game.Join(ctx, sessionID, body.ParticipantID, opts)
	})
}

func (h *Handler) StartSession(c *gin.Context) {
	var body startBody
	if !bindJSON(c, &body) {
		return
	}
	sessionID := c.Param("id")
	h.dedupe(c, http.StatusOK, body.DedupeKey, func(ctx context.Context) (any, error) {
		return h.services.Game.Start(ctx, sessionID)
	})
}

func (h *Handler) MoveInSession(c *gin.Context) {
	var body moveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return
	}
	if !requireActingAs(c, body.ParticipantID) {
		return
	}
	sessionID := c.Param("id")
	dir := game.Direction(strings.ToLower(strings.TrimSpace(body.Direction)))
	h.dedupe(c, http.StatusOK, body.DedupeKey, func(ctx context.Context) (any, error) {
		return h.services.Game.Move(ctx, sessionID, body.ParticipantID, dir)
	})
}

// Operators

func (h *Handler) OperatorLogin(c *gin.Context) {
	var body operatorLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return
	}

	resp, err := h.services.Operator.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *Handler) AdminListSessions(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.services.Sessions.List(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) ResolveSession(c *gin.Context) {
	var body resolveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return
	}
	sessionID := c.Param("id")
	params := game.ResolveParams{
		WinnerID:     strings.TrimSpace(body.WinnerID),
		Explicit:     body.ExplicitResults,
		Placements:   body.Placements,
		Distribution: body.Distribution,
	}
	h.dedupe(c, http.StatusOK, body.DedupeKey, func(ctx context.Context) (any, error) {
		return h.services.Game.Resolve(ctx, sessionID, params)
	})
}

func (h *Handler) CollapseTiles(c *gin.Context) {
	var body collapseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return
	}
	sessionID := c.Param("id")
	h.dedupe(c, http.StatusOK, body.DedupeKey, func(ctx context.Context) (any, error) {
		return h.services.Game.CollapseTiles(ctx, sessionID, body.Tiles)
	})
}

func (h *Handler) AdminCredit(c *gin.Context) {
	var body creditBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return
	}
	amount, err := parseAmount(body.Amount, appErr.ErrInvalidAmount)
	if err != nil {
		response.Error(c, err)
		return
	}
	accountID := c.Param("id")
	memo := ledger.Memo{Note: body.Note}
	h.dedupe(c, http.StatusOK, body.DedupeKey, func(ctx context.Context) (any, error) {
		return h.services.Ledger.Credit(ctx, accountID, amount, memo)
	})
}

func (h *Handler) AdminArchiveSweep(c *gin.Context) {
	archived, err := h.services.Sweeper.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"archived": archived})
}

// Webhooks

// PaymentWebhook credits confirmed deposits; the event id is the dedupe key so redelivery is a replay.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var body paymentEventBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return
	}
	if body.Status != "" && !strings.EqualFold(body.Status, "confirmed") {
		response.Success(c, gin.H{"eventId": body.EventID, "ignored": true})
		return
	}
	amount, err := parseAmount(body.Amount, appErr.ErrInvalidAmount)
	if err != nil {
		response.Error(c, err)
		return
	}

	memo := ledger.Memo{Type: ledger.TypeDeposit, Note: "payment " + body.EventID}
	payload, err := h.services.Guard.Execute(c.Request.Context(), "payment:"+body.EventID, func(ctx context.Context) (any, error) {
		return h.services.Ledger.Credit(ctx, body.AccountID, amount, memo)
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusOK, payload)
}
