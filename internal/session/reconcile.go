package session

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/state"
)

const (
	msgLoadUsers   = "Could not load users."
	msgLoadPending = "Could not load pending battles."
	msgLoadBattle  = "Could not load active battle."

	outgoingFetchLimit = 4
)

// Refresh re-fetches every slot concurrently and returns the joined errors.
// A user-initiated refresh clears the feedback messages once before any
// fetch starts so one slot's error is not wiped by another slot's start.
func (s *Session) Refresh(ctx context.Context, background bool) error {
	if !background {
		s.store.UpdateFeedback(func(f *state.Feedback) { *f = state.Feedback{} })
	}

	steps := []func(context.Context, bool) error{
		s.fetchUsers,
		s.fetchPendingBattles,
		s.fetchActiveBattle,
		s.RefreshOutgoing,
	}
	errs := make([]error, len(steps))

	var g errgroup.Group
	for i, step := range steps {
		g.Go(func() error {
			errs[i] = step(ctx, background)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// RefreshUsers re-fetches the challengeable users.
func (s *Session) RefreshUsers(ctx context.Context, background bool) error {
	if !background {
		s.store.UpdateFeedback(func(f *state.Feedback) { f.ActionError = "" })
	}
	return s.fetchUsers(ctx, background)
}

// RefreshPendingBattles re-fetches the incoming challenges.
func (s *Session) RefreshPendingBattles(ctx context.Context, background bool) error {
	if !background {
		s.store.UpdateFeedback(func(f *state.Feedback) { f.ActionError = "" })
	}
	return s.fetchPendingBattles(ctx, background)
}

// RefreshActiveBattle re-fetches the active battle. The server answering
// "not found" means there is none, which clears the slot without an error.
func (s *Session) RefreshActiveBattle(ctx context.Context, background bool) error {
	if !background {
		s.clearBattleFeedback()
	}
	return s.fetchActiveBattle(ctx, background)
}

func (s *Session) fetchUsers(ctx context.Context, background bool) error {
	if !background {
		s.store.SetLoading(func(l *state.Loading) { l.Users = true })
		defer s.store.SetLoading(func(l *state.Loading) { l.Users = false })
	}

	users, err := s.gw.ListUsers(ctx)
	if err != nil {
		if s.suppressed(background, err) {
			return err
		}
		s.log.Warn("users refresh failed", zap.Bool("background", background), zap.Error(err))
		s.store.SetUsers(nil)
		s.store.UpdateFeedback(func(f *state.Feedback) { f.ActionError = msgLoadUsers })
		return err
	}
	s.store.SetUsers(users)
	return nil
}

func (s *Session) fetchPendingBattles(ctx context.Context, background bool) error {
	if !background {
		s.store.SetLoading(func(l *state.Loading) { l.Pending = true })
		defer s.store.SetLoading(func(l *state.Loading) { l.Pending = false })
	}

	battles, err := s.gw.ListPendingBattles(ctx)
	if err != nil {
		if s.suppressed(background, err) {
			return err
		}
		s.log.Warn("pending battles refresh failed", zap.Bool("background", background), zap.Error(err))
		s.store.SetPendingBattles(nil)
		s.store.UpdateFeedback(func(f *state.Feedback) { f.ActionError = msgLoadPending })
		return err
	}
	s.store.SetPendingBattles(battles)
	return nil
}

func (s *Session) fetchActiveBattle(ctx context.Context, background bool) error {
	if !background {
		s.store.SetLoading(func(l *state.Loading) { l.Battle = true })
		defer s.store.SetLoading(func(l *state.Loading) { l.Battle = false })
	}

	battle, err := s.gw.GetActiveBattle(ctx)
	if errors.Is(err, gateway.ErrNotFound) {
		battle, err = nil, nil
	}
	if err != nil {
		if s.suppressed(background, err) {
			return err
		}
		// The last known battle stays visible; only the error is surfaced.
		s.log.Warn("active battle refresh failed", zap.Bool("background", background), zap.Error(err))
		s.store.UpdateFeedback(func(f *state.Feedback) { f.BattleError = msgLoadBattle })
		return err
	}

	if s.store.SetActiveBattle(battle) {
		s.log.Debug("active battle changed", zap.Bool("present", battle != nil))
	}
	s.retireForBattle(battle)
	return nil
}

// RefreshOutgoing checks every outgoing challenge against the server and
// retires the ones that were answered or withdrawn: a battle that is no
// longer pending, or one the server no longer knows.
func (s *Session) RefreshOutgoing(ctx context.Context, background bool) error {
	pending := s.Outgoing()
	if len(pending) == 0 {
		return nil
	}

	errs := make([]error, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(outgoingFetchLimit)
	for i, oc := range pending {
		g.Go(func() error {
			battle, err := s.gw.GetBattle(gctx, oc.BattleID)
			switch {
			case errors.Is(err, gateway.ErrNotFound):
				s.retireBattle(oc.BattleID)
				return nil
			case err != nil:
				if !s.suppressed(background, err) {
					s.log.Warn("outgoing challenge check failed",
						zap.Int64("battle_id", oc.BattleID), zap.Error(err))
				}
				errs[i] = err
				return nil
			}
			if battle.Status != gateway.StatusPending {
				s.retireBattle(oc.BattleID)
				s.log.Debug("outgoing challenge answered",
					zap.Int64("battle_id", oc.BattleID), zap.String("status", string(battle.Status)))
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// suppressed reports whether err is a transient transport failure during a
// background poll, which leaves the cache stale and the user undisturbed.
func (s *Session) suppressed(background bool, err error) bool {
	if background && gateway.IsTransport(err) {
		s.log.Debug("background poll failed", zap.Error(err))
		return true
	}
	return false
}

func (s *Session) clearActionFeedback() {
	s.store.UpdateFeedback(func(f *state.Feedback) {
		f.ActionError = ""
		f.ActionMessage = ""
	})
}

func (s *Session) clearBattleFeedback() {
	s.store.UpdateFeedback(func(f *state.Feedback) {
		f.BattleError = ""
		f.BattleMessage = ""
	})
}
