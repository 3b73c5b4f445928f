package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/sessionfile"
	"github.com/five82/duelist/internal/state"
)

// staleSessionAge is how long an untouched session file survives before a
// later session prunes it.
const staleSessionAge = 7 * 24 * time.Hour

// Options configure a Session.
type Options struct {
	Gateway  gateway.Gateway
	Store    *state.Store // nil creates a fresh store
	Logger   *zap.Logger  // nil discards logs
	StateDir string       // empty disables persistence of outgoing challenges
	ID       string       // empty generates a new session id
}

// Session is the per-login context. It owns the entity cache and the
// outgoing-challenge bookkeeping; nothing in it is shared across sessions.
type Session struct {
	id       string
	gw       gateway.Gateway
	store    *state.Store
	log      *zap.Logger
	stateDir string
	// ephemeral sessions got a generated id, so no later run can reopen
	// their file.
	ephemeral bool

	mu       sync.Mutex
	outgoing map[int64]int64 // opponent id -> pending battle id
}

// New builds a Session and restores any outgoing challenges persisted for
// the same session id.
func New(opts Options) (*Session, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("session: gateway is required")
	}
	s := &Session{
		id:       opts.ID,
		gw:       opts.Gateway,
		store:    opts.Store,
		log:      opts.Logger,
		stateDir: opts.StateDir,
		outgoing: make(map[int64]int64),
	}
	if s.id == "" {
		s.id = uuid.NewString()
		s.ephemeral = true
	}
	if s.store == nil {
		s.store = state.NewStore()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.With(zap.String("session", s.id))

	if s.stateDir != "" {
		pruned, err := sessionfile.Prune(s.stateDir, s.id, staleSessionAge)
		if err != nil {
			s.log.Warn("prune stale sessions", zap.Error(err))
		} else if pruned > 0 {
			s.log.Info("pruned stale session files", zap.Int("count", pruned))
		}

		restored, err := sessionfile.Load(s.stateDir, s.id)
		if err != nil {
			return nil, fmt.Errorf("restore session: %w", err)
		}
		for opponent, battle := range restored {
			s.outgoing[opponent] = battle
		}
		if len(restored) > 0 {
			s.log.Info("restored outgoing challenges", zap.Int("count", len(restored)))
		}
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Store returns the entity cache owned by the session.
func (s *Session) Store() *state.Store { return s.store }

// Gateway returns the gateway the session talks through.
func (s *Session) Gateway() gateway.Gateway { return s.gw }

// Close ends the session. On logout, or when the session id was generated
// and can never be reopened, the persisted outgoing challenges are deleted.
func (s *Session) Close(logout bool) error {
	if s.stateDir == "" || (!logout && !s.ephemeral) {
		return nil
	}
	s.mu.Lock()
	s.outgoing = make(map[int64]int64)
	s.mu.Unlock()
	if err := sessionfile.Remove(s.stateDir, s.id); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// OutgoingChallenge is one challenge the user sent that the opponent has not
// answered yet.
type OutgoingChallenge struct {
	OpponentID int64
	BattleID   int64
}

// Outgoing returns the outgoing challenges ordered by opponent id.
func (s *Session) Outgoing() []OutgoingChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OutgoingChallenge, 0, len(s.outgoing))
	for opponent, battle := range s.outgoing {
		out = append(out, OutgoingChallenge{OpponentID: opponent, BattleID: battle})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpponentID < out[j].OpponentID })
	return out
}

// OutgoingFor returns the pending battle id for opponentID, if any.
func (s *Session) OutgoingFor(opponentID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.outgoing[opponentID]
	return id, ok
}

func (s *Session) recordOutgoing(opponentID, battleID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outgoing[opponentID] = battleID
	s.persistLocked()
}

// retireOpponents drops the entries keyed by any of the given opponents.
func (s *Session) retireOpponents(ids ...int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if _, ok := s.outgoing[id]; ok {
			delete(s.outgoing, id)
			removed++
		}
	}
	if removed > 0 {
		s.persistLocked()
	}
	return removed
}

// retireBattle drops the entry whose value is battleID. The map is keyed by
// opponent, so this is a linear scan.
func (s *Session) retireBattle(battleID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for opponent, id := range s.outgoing {
		if id == battleID {
			delete(s.outgoing, opponent)
			s.persistLocked()
			return opponent, true
		}
	}
	return 0, false
}

// retireForBattle retires every outgoing challenge whose opponent takes part
// in battle.
func (s *Session) retireForBattle(battle *gateway.Battle) {
	if battle == nil {
		return
	}
	if n := s.retireOpponents(battle.ParticipantIDs()...); n > 0 {
		s.log.Debug("outgoing challenge superseded by battle",
			zap.Int64("battle_id", battle.ID), zap.Int("retired", n))
	}
}

// persistLocked must be called with mu held. Failures only cost UX
// smoothness after a restart, so they are logged and not returned.
func (s *Session) persistLocked() {
	if s.stateDir == "" {
		return
	}
	if err := sessionfile.Save(s.stateDir, s.id, s.outgoing); err != nil {
		s.log.Warn("persist outgoing challenges failed", zap.Error(err))
	}
}
