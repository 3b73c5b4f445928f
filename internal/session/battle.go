package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/state"
)

const (
	msgSubmitting    = "Submitting action..."
	msgFinished      = "Battle Finished!"
	msgConceding     = "Conceding..."
	msgSubmitFailed  = "Failed to submit action."
	msgConcedeFailed = "Failed to concede."
	msgBattleDetails = "Could not load battle details."
)

// SubmitTurnAction plays attackID in battleID and applies the returned
// battle snapshot directly. A response without a snapshot is a protocol
// violation; it is reported and nothing is retried, since resubmitting could
// play the move twice.
func (s *Session) SubmitTurnAction(ctx context.Context, battleID, attackID int64) error {
	s.store.UpdateFeedback(func(f *state.Feedback) {
		f.BattleError = ""
		f.BattleMessage = msgSubmitting
	})

	log := s.log.With(zap.Int64("battle_id", battleID), zap.Int64("attack_id", attackID))
	res, err := s.gw.SubmitAction(ctx, battleID, attackID)
	if err == nil && res.Battle == nil {
		err = &gateway.ProtocolError{Op: "submit action", Detail: "response has no battle_state"}
	}
	if err != nil {
		if gateway.IsProtocol(err) {
			log.Error("submit action returned an unusable response", zap.Error(err))
		} else {
			log.Warn("submit action failed", zap.Error(err))
		}
		s.store.UpdateFeedback(func(f *state.Feedback) {
			f.BattleError = gateway.ServerMessage(err, msgSubmitFailed)
			f.BattleMessage = ""
		})
		return err
	}

	s.store.AssignActiveBattle(res.Battle)
	message := res.Message
	if res.Battle.Status == gateway.StatusFinished {
		message = msgFinished
		log.Info("battle finished", zap.Stringp("winner", winnerName(res.Battle)))
	}
	s.store.UpdateFeedback(func(f *state.Feedback) { f.BattleMessage = message })
	return nil
}

// Concede forfeits battleID. On failure the active battle is left as it was.
func (s *Session) Concede(ctx context.Context, battleID int64) error {
	s.store.UpdateFeedback(func(f *state.Feedback) {
		f.BattleError = ""
		f.BattleMessage = msgConceding
	})
	s.store.SetLoading(func(l *state.Loading) { l.Conceding = true })
	defer s.store.SetLoading(func(l *state.Loading) { l.Conceding = false })

	log := s.log.With(zap.Int64("battle_id", battleID))
	res, err := s.gw.Concede(ctx, battleID)
	if err == nil && res.Battle == nil {
		err = &gateway.ProtocolError{Op: "concede", Detail: "response has no final_state"}
	}
	if err != nil {
		log.Warn("concede failed", zap.Error(err))
		s.store.UpdateFeedback(func(f *state.Feedback) {
			f.BattleError = gateway.ServerMessage(err, msgConcedeFailed)
			f.BattleMessage = ""
		})
		return err
	}

	s.store.AssignActiveBattle(res.Battle)
	log.Info("conceded", zap.String("message", res.Message))
	s.store.UpdateFeedback(func(f *state.Feedback) { f.BattleMessage = res.Message })
	return nil
}

// FetchBattleByID loads battleID into the active slot, but only when the
// slot is empty or already holds that battle. On failure the slot is cleared
// only if it holds the requested battle.
func (s *Session) FetchBattleByID(ctx context.Context, battleID int64) error {
	s.clearBattleFeedback()
	s.store.SetLoading(func(l *state.Loading) { l.Battle = true })
	defer s.store.SetLoading(func(l *state.Loading) { l.Battle = false })

	log := s.log.With(zap.Int64("battle_id", battleID))
	battle, err := s.gw.GetBattle(ctx, battleID)
	if err == nil && battle == nil {
		err = &gateway.ProtocolError{Op: "get battle", Detail: "empty battle"}
	}
	if err != nil {
		log.Warn("fetch battle failed", zap.Bool("not_found", errors.Is(err, gateway.ErrNotFound)), zap.Error(err))
		if s.store.ClearActiveBattleIf(battleID) {
			log.Info("cleared active battle that could not be loaded")
		}
		s.store.UpdateFeedback(func(f *state.Feedback) { f.BattleError = msgBattleDetails })
		return err
	}

	replaced := s.store.ReplaceActiveBattleIf(battle, func(current *gateway.Battle) bool {
		return current == nil || current.ID == battle.ID
	})
	if !replaced {
		log.Debug("battle not applied; another battle is active or nothing changed")
	}
	if battle.Status == gateway.StatusActive {
		s.retireForBattle(battle)
	}
	return nil
}

func winnerName(b *gateway.Battle) *string {
	if b == nil || b.Winner == nil {
		return nil
	}
	return &b.Winner.Username
}
