// Package game runs elimination sessions: lobby formation, activation, collapsing terrain,
// movement, elimination and resolution.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"ignite-service/internal/config"
	"ignite-service/internal/model"
	"ignite-service/internal/service/ledger"
	"ignite-service/internal/service/lock"
	"ignite-service/internal/store"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/logger"
	"ignite-service/pkg/money"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger is the slice of the ledger the engine needs.
type Ledger interface {
	GetAccount(ctx context.Context, id string) (*ledger.Account, error)
	Funds(ctx context.Context, id string) (*ledger.Funds, error)
	Debit(ctx context.Context, id string, amount money.Amount, memo ledger.Memo) (*ledger.Movement, error)
	Apply(ctx context.Context, id string, delta money.Amount, memo ledger.Memo) (*ledger.Movement, error)
}

// Recorder indexes resolved sessions for retention.
type Recorder interface {
	RecordResolution(ctx context.Context, record model.SessionRecord) error
}

type Deps struct {
	Store    store.Store
	Ledger   Ledger
	Locker   *lock.Locker // nil disables per-session locking
	Recorder Recorder     // optional
	Rand     *rand.Rand
}

type Service struct {
	store    store.Store
	ledger   Ledger
	locker   *lock.Locker
	recorder Recorder
	cfg      config.GameConfig

	rngMu sync.Mutex
	rng   *rand.Rand

	now func() time.Time
}

func NewService(deps Deps, cfg config.GameConfig) *Service {
	if cfg.GridSize == 0 {
		cfg.GridSize = 8
	}
	if cfg.CollapseEvery <= 0 {
		cfg.CollapseEvery = 3
	}
	if cfg.CollapseFraction <= 0 {
		cfg.CollapseFraction = 0.2
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		store:    deps.Store,
		ledger:   deps.Ledger,
		locker:   deps.Locker,
		recorder: deps.Recorder,
		cfg:      cfg,
		rng:      rng,
		now:      time.Now,
	}
}

func sessionKey(id string) string {
	return "session:" + id
}

// DocumentKey is the store key holding a session document.
func DocumentKey(id string) string {
	return sessionKey(id)
}

func (s *Service) CreateSession(ctx context.Context, params CreateParams) (*View, error) {
	if params.BuyIn < 0 {
		return nil, appErr.ErrInvalidBuyIn
	}
	if params.MaxPlayers < MinPlayers || params.MaxPlayers > MaxPlayers {
		return nil, appErr.ErrInvalidMaxPlayers
	}
	size := params.GridSize
	if size == 0 {
		size = s.cfg.GridSize
	}
	if size < MinGridSize || size > MaxGridSize || size*size < params.MaxPlayers {
		return nil, appErr.ErrInvalidGridSize
	}

	now := s.now()
	session := &Session{
		ID:           uuid.NewString(),
		BuyIn:        params.BuyIn,
		MaxPlayers:   params.MaxPlayers,
		Status:       StatusLobby,
		Width:        size,
		Height:       size,
		Grid:         newGrid(size, size),
		Participants: []Participant{},
		Settlement:   SettlementNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	logger.Log.Info("session created",
		zap.String("sessionID", session.ID),
		zap.Int64("buyIn", int64(session.BuyIn)),
		zap.Int("maxPlayers", session.MaxPlayers),
		zap.Int("gridSize", size))
	return newView(session), nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*View, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newView(session), nil
}

func (s *Service) Join(ctx context.Context, sessionID, participantID string, opts JoinOptions) (*JoinResult, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return nil, fmt.Errorf("%w: participant id is required", appErr.ErrInvalidRequest)
	}

	var result *JoinResult
	err := s.locker.WithLock(ctx, sessionKey(sessionID), func(ctx context.Context) error {
		session, err := s.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if len(session.Participants) >= session.MaxPlayers {
			return appErr.ErrGameFull
		}
		if session.Status != StatusLobby {
			return appErr.ErrGameNotJoinable
		}
		if _, exists := session.participant(participantID); exists {
			return fmt.Errorf("%w: %s already joined", appErr.ErrGameNotJoinable, participantID)
		}

		account, err := s.ledger.GetAccount(ctx, participantID)
		if err != nil {
			return err
		}
		funds, err := s.ledger.Funds(ctx, participantID)
		if err != nil {
			return err
		}
		if funds.Available < session.BuyIn {
			return appErr.ErrInsufficientFunds
		}

		spawn, ok := session.spawnCell()
		if !ok {
			return appErr.ErrGameFull
		}
		pool, err := money.Add(session.Pool, session.BuyIn)
		if err != nil {
			return fmt.Errorf("%w: pool %v", appErr.ErrInvalidAmount, err)
		}

		var debit *ledger.Movement
		if !opts.SkipDebit && session.BuyIn > 0 {
			debit, err = s.ledger.Debit(ctx, participantID, session.BuyIn, ledger.Memo{SessionID: session.ID, Note: "buy-in"})
			if err != nil {
				return err
			}
		}

		participant := Participant{
			ID:          participantID,
			ExternalRef: account.ExternalRef,
			X:           spawn.X,
			Y:           spawn.Y,
			Alive:       true,
			BuyIn:       session.BuyIn,
			JoinedAt:    s.now(),
		}
		session.Participants = append(session.Participants, participant)
		session.Pool = pool
		if len(session.Participants) >= MinPlayers || opts.ForceStart {
			session.Status = StatusActive
		}
		if err := s.save(ctx, session); err != nil {
			return err
		}

		logger.Log.Info("participant joined",
			zap.String("sessionID", session.ID),
			zap.String("participantID", participantID),
			zap.Int("x", spawn.X),
			zap.Int("y", spawn.Y),
			zap.String("status", string(session.Status)))

		result = &JoinResult{Session: newView(session), Participant: participant, Debit: debit}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) Start(ctx context.Context, sessionID string) (*View, error) {
	var view *View
	err := s.locker.WithLock(ctx, sessionKey(sessionID), func(ctx context.Context) error {
		session, err := s.load(ctx, sessionID)
		if err != nil {
			return err
		}
		switch session.Status {
		case StatusResolved:
			return appErr.ErrGameAlreadyResolved
		case StatusActive:
			view = newView(session)
			return nil
		}
		if len(session.Participants) == 0 {
			return appErr.ErrGameNotStartable
		}
		session.Status = StatusActive
		if err := s.save(ctx, session); err != nil {
			return err
		}
		logger.Log.Info("session started", zap.String("sessionID", session.ID))
		view = newView(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) Move(ctx context.Context, sessionID, participantID string, dir Direction) (*MoveResult, error) {
	dx, dy, ok := dir.offset()
	if !ok {
		return nil, appErr.ErrInvalidDirection
	}

	var result *MoveResult
	err := s.locker.WithLock(ctx, sessionKey(sessionID), func(ctx context.Context) error {
		session, err := s.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != StatusActive {
			return appErr.ErrGameNotActive
		}
		idx, found := session.participant(participantID)
		if !found {
			return fmt.Errorf("%w: participant %s", appErr.ErrNotFound, participantID)
		}
		p := &session.Participants[idx]
		if !p.Alive {
			return appErr.ErrPlayerEliminated
		}
		x, y := p.X+dx, p.Y+dy
		if !session.inBounds(x, y) {
			return appErr.ErrOutOfBounds
		}
		if session.Grid[session.index(x, y)] == CellCollapsed {
			return appErr.ErrTileIsLava
		}

		p.X, p.Y = x, y
		session.MoveCount++
		result = &MoveResult{}

		if session.MoveCount%s.cfg.CollapseEvery == 0 {
			result.CollapseTriggered = true
			result.Collapsed, result.Eliminated = s.collapseRound(session)
			s.autoResolve(ctx, session)
		}

		if err := s.save(ctx, session); err != nil {
			return err
		}
		if session.Status == StatusResolved {
			s.record(ctx, session)
		}

		result.Session = newView(session)
		result.Participant = session.Participants[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CollapseTiles collapses the listed cells on an operator's instruction.
func (s *Service) CollapseTiles(ctx context.Context, sessionID string, tiles []Coord) (*CollapseResult, error) {
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w: no tiles given", appErr.ErrInvalidRequest)
	}

	var result *CollapseResult
	err := s.locker.WithLock(ctx, sessionKey(sessionID), func(ctx context.Context) error {
		session, err := s.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != StatusActive {
			return appErr.ErrGameNotActive
		}
		cells := make([]int, 0, len(tiles))
		for _, t := range tiles {
			if !session.inBounds(t.X, t.Y) {
				return fmt.Errorf("%w: (%d,%d)", appErr.ErrOutOfBounds, t.X, t.Y)
			}
			cells = append(cells, session.index(t.X, t.Y))
		}

		collapsed, eliminated := session.collapse(cells)
		session.CollapseRound++
		s.observeCollapse(session, collapsed, eliminated)
		s.autoResolve(ctx, session)

		if err := s.save(ctx, session); err != nil {
			return err
		}
		if session.Status == StatusResolved {
			s.record(ctx, session)
		}
		result = &CollapseResult{Session: newView(session), Collapsed: collapsed, Eliminated: eliminated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// collapseRound collapses a random max(1, floor(safe*fraction)) of the safe cells.
func (s *Service) collapseRound(session *Session) ([]Coord, []string) {
	safe := session.safeCells()
	n := collapseCount(len(safe), s.cfg.CollapseFraction)
	if n == 0 {
		return nil, nil
	}

	s.rngMu.Lock()
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(safe)-i)
		safe[i], safe[j] = safe[j], safe[i]
	}
	s.rngMu.Unlock()

	collapsed, eliminated := session.collapse(safe[:n])
	session.CollapseRound++
	s.observeCollapse(session, collapsed, eliminated)
	return collapsed, eliminated
}

func (s *Service) observeCollapse(session *Session, collapsed []Coord, eliminated []string) {
	observeCollapse(len(eliminated))
	logger.Log.Info("collapse round",
		zap.String("sessionID", session.ID),
		zap.Int("round", session.CollapseRound),
		zap.Int("collapsed", len(collapsed)),
		zap.Strings("eliminated", eliminated))
}

// autoResolve ends the session when exactly one participant survives among two or more.
// Payouts still wait for Resolve.
func (s *Service) autoResolve(ctx context.Context, session *Session) {
	if session.Status != StatusActive || len(session.Participants) < MinPlayers {
		return
	}
	alive := session.alive()
	if len(alive) != 1 {
		return
	}
	winner := alive[0]
	now := s.now()
	session.Status = StatusResolved
	session.WinnerID = &winner
	session.ResolvedAt = &now
	observeResolved("auto")
	logger.Log.Info("session auto-resolved",
		zap.String("sessionID", session.ID),
		zap.String("winnerID", winner))
}

func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := store.GetJSON(ctx, s.store, sessionKey(id), &session); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", appErr.ErrNotFound, id)
		}
		return nil, err
	}
	return &session, nil
}

func (s *Service) save(ctx context.Context, session *Session) error {
	session.UpdatedAt = s.now()
	return store.SetJSON(ctx, s.store, sessionKey(session.ID), session, 0)
}
