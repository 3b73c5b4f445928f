package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/state"
)

const (
	msgChallengeFailed = "Failed to send challenge."
	msgCancelFailed    = "Failed to cancel challenge."
	msgCancelled       = "Challenge cancelled."
)

// InitiateChallenge challenges opponentID. When the server resolves the
// challenge on the spot (automated opponents do) the resulting battle becomes
// active immediately; otherwise the pending battle is tracked as an outgoing
// challenge until the opponent answers.
func (s *Session) InitiateChallenge(ctx context.Context, opponentID int64, asBot bool) error {
	s.clearActionFeedback()

	log := s.log.With(zap.Int64("opponent_id", opponentID), zap.Bool("as_bot", asBot))
	res, err := s.gw.InitiateChallenge(ctx, opponentID, asBot)
	if err != nil {
		log.Warn("initiate challenge failed", zap.Error(err))
		s.store.UpdateFeedback(func(f *state.Feedback) {
			f.ActionError = gateway.ServerMessage(err, msgChallengeFailed)
		})
		return err
	}

	if res.Resolved() {
		log.Info("challenge resolved immediately", zap.Int64("battle_id", res.Battle.ID))
		s.store.AssignActiveBattle(res.Battle)
		s.retireForBattle(res.Battle)
		return nil
	}

	battleID := res.BattleID
	if battleID == 0 && res.Battle != nil {
		battleID = res.Battle.ID
	}
	if battleID == 0 {
		err := &gateway.ProtocolError{Op: "initiate challenge", Detail: "no battle identifier"}
		log.Error("initiate challenge returned no battle", zap.Error(err))
		s.store.UpdateFeedback(func(f *state.Feedback) { f.ActionError = msgChallengeFailed })
		return err
	}

	s.recordOutgoing(opponentID, battleID)
	log.Info("challenge sent", zap.Int64("battle_id", battleID))
	s.store.UpdateFeedback(func(f *state.Feedback) {
		f.ActionMessage = fmt.Sprintf("Challenge sent to user %d!", opponentID)
	})
	return nil
}

// RespondToChallenge accepts or declines the incoming challenge battleID.
// An accepted battle returned by the server becomes active right away.
func (s *Session) RespondToChallenge(ctx context.Context, battleID int64, action gateway.RespondAction) error {
	s.clearActionFeedback()

	log := s.log.With(zap.Int64("battle_id", battleID), zap.String("action", string(action)))
	// Read before the call: a concurrent poll may drop the request from the
	// pending list once the server has processed it.
	request, known := s.store.PendingBattle(battleID)

	res, err := s.gw.RespondToChallenge(ctx, battleID, action)
	if err != nil {
		log.Warn("respond to challenge failed", zap.Error(err))
		s.store.UpdateFeedback(func(f *state.Feedback) {
			f.ActionError = gateway.ServerMessage(err, fmt.Sprintf("Failed to %s challenge.", action))
		})
		return err
	}

	s.store.UpdatePendingBattles(func(battles []gateway.Battle) []gateway.Battle {
		kept := battles[:0]
		for _, b := range battles {
			if b.ID != battleID {
				kept = append(kept, b)
			}
		}
		return kept
	})

	if action == gateway.Accept && res.Battle != nil {
		s.store.AssignActiveBattle(res.Battle)
		s.retireForBattle(res.Battle)
	} else if known {
		s.retireForBattle(&request)
	}

	log.Info("responded to challenge")
	s.store.UpdateFeedback(func(f *state.Feedback) {
		f.ActionMessage = fmt.Sprintf("Battle request %sd.", action)
	})
	return nil
}

// CancelChallenge withdraws the outgoing challenge battleID. If the server
// no longer knows the battle, the entry is retired anyway and the error is
// still reported.
func (s *Session) CancelChallenge(ctx context.Context, battleID int64) error {
	s.clearActionFeedback()

	log := s.log.With(zap.Int64("battle_id", battleID))
	err := s.gw.CancelChallenge(ctx, battleID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			s.retireBattle(battleID)
		}
		log.Warn("cancel challenge failed", zap.Error(err))
		s.store.UpdateFeedback(func(f *state.Feedback) {
			f.ActionError = gateway.ServerMessage(err, msgCancelFailed)
		})
		return err
	}

	if opponent, ok := s.retireBattle(battleID); ok {
		log.Info("challenge cancelled", zap.Int64("opponent_id", opponent))
	} else {
		log.Info("challenge cancelled; it was not tracked locally")
	}
	s.store.UpdateFeedback(func(f *state.Feedback) { f.ActionMessage = msgCancelled })
	return nil
}
