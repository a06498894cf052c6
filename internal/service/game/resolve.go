package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ignite-service/internal/metrics"
	"ignite-service/internal/model"
	"ignite-service/internal/service/ledger"
	"ignite-service/internal/service/payout"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Resolve settles a session: it computes payouts, stores the result and credits or debits each
// recipient. An auto-resolved session can be settled once, for the winner the engine declared.
func (s *Service) Resolve(ctx context.Context, sessionID string, params ResolveParams) (*ResolveResult, error) {
	winnerID := strings.TrimSpace(params.WinnerID)
	if winnerID == "" {
		return nil, fmt.Errorf("%w: winner id is required", appErr.ErrInvalidWinner)
	}
	if params.Explicit != nil {
		if params.Placements != nil || params.Distribution != nil {
			return nil, fmt.Errorf("%w: explicit results exclude placements and distribution", appErr.ErrInvalidRequest)
		}
		if _, err := payout.ParsePlayerResults(params.Explicit); err != nil {
			return nil, err
		}
	} else if len(params.Distribution) > 0 {
		if err := payout.ValidateDistribution(params.Distribution); err != nil {
			return nil, err
		}
	}

	var (
		session *Session
		calc    *payout.Result
	)
	err := s.locker.WithLock(ctx, sessionKey(sessionID), func(ctx context.Context) error {
		var err error
		session, err = s.load(ctx, sessionID)
		if err != nil {
			return err
		}
		switch session.Status {
		case StatusLobby:
			return appErr.ErrGameNotActive
		case StatusResolved:
			if session.Settlement == SettlementCompleted {
				return appErr.ErrGameAlreadyResolved
			}
			if session.WinnerID != nil && *session.WinnerID != winnerID {
				return fmt.Errorf("%w: session was won by %s", appErr.ErrInvalidWinner, *session.WinnerID)
			}
		}
		if _, ok := session.participant(winnerID); !ok {
			return fmt.Errorf("%w: %s", appErr.ErrInvalidWinner, winnerID)
		}
		for _, r := range params.Explicit {
			if _, err := s.ledger.GetAccount(ctx, strings.TrimSpace(r.AccountID)); err != nil {
				if errors.Is(err, appErr.ErrNotFound) {
					return fmt.Errorf("%w: unknown account %s", appErr.ErrInvalidPlayerResult, r.AccountID)
				}
				return err
			}
		}

		calc, err = payout.Calculate(payout.Request{
			Pool:         session.Pool,
			WinnerID:     winnerID,
			Participants: session.participantIDs(),
			Explicit:     params.Explicit,
			Placements:   params.Placements,
			Distribution: params.Distribution,
		})
		if err != nil {
			return err
		}

		wasResolved := session.Status == StatusResolved
		now := s.now()
		session.Status = StatusResolved
		session.WinnerID = &winnerID
		session.Placements = calc.Placements
		session.Payouts = calc.Payouts
		session.DistributionRule = calc.Rule
		session.Settlement = SettlementCompleted
		if session.ResolvedAt == nil {
			session.ResolvedAt = &now
		}
		// Saved as completed before any payout is applied.
		if err := s.save(ctx, session); err != nil {
			return err
		}
		if !wasResolved {
			observeResolved("operator")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	movements, payErr := s.applyPayouts(ctx, session, calc.Payouts)
	s.record(ctx, session)

	logger.Log.Info("session resolved",
		zap.String("sessionID", session.ID),
		zap.String("winnerID", winnerID),
		zap.String("rule", calc.Rule),
		zap.Int64("pool", int64(session.Pool)),
		zap.Int("payouts", len(calc.Payouts)))

	if payErr != nil {
		return nil, payErr
	}
	return &ResolveResult{Session: newView(session), Payouts: calc.Payouts, Movements: movements}, nil
}

func (s *Service) applyPayouts(ctx context.Context, session *Session, payouts []payout.Payout) ([]ledger.Movement, error) {
	movements := make([]ledger.Movement, 0, len(payouts))
	var errs []error
	for _, p := range payouts {
		if p.Amount == 0 {
			continue
		}
		m, err := s.ledger.Apply(ctx, p.RecipientID, p.Amount, ledger.Memo{
			Type:      ledger.TypePayout,
			SessionID: session.ID,
			Note:      p.Label,
		})
		if err != nil {
			logger.Log.Error("payout failed",
				zap.String("sessionID", session.ID),
				zap.String("recipientID", p.RecipientID),
				zap.Int64("amount", int64(p.Amount)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("payout to %s: %w", p.RecipientID, err))
			continue
		}
		movements = append(movements, *m)
	}
	return movements, errors.Join(errs...)
}

func (s *Service) record(ctx context.Context, session *Session) {
	if s.recorder == nil {
		return
	}
	result, err := json.Marshal(map[string]any{
		"placements": session.Placements,
		"payouts":    session.Payouts,
	})
	if err != nil {
		logger.Log.Warn("encode session result failed", zap.String("sessionID", session.ID), zap.Error(err))
		return
	}
	if err := s.recorder.RecordResolution(ctx, model.SessionRecord{
		ID:               session.ID,
		DocumentKey:      sessionKey(session.ID),
		Status:           string(session.Status),
		Settlement:       string(session.Settlement),
		WinnerID:         session.WinnerID,
		Pool:             int64(session.Pool),
		DistributionRule: session.DistributionRule,
		ResultJSON:       datatypes.JSON(result),
		ResolvedAt:       session.ResolvedAt,
	}); err != nil {
		logger.Log.Warn("record session resolution failed", zap.String("sessionID", session.ID), zap.Error(err))
	}
}

func observeCollapse(eliminated int) {
	metrics.CollapseRounds.Inc()
	metrics.Eliminations.Add(float64(eliminated))
}

func observeResolved(path string) {
	metrics.SessionsResolved.WithLabelValues(path).Inc()
}
