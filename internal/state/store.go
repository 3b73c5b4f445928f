package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/five82/duelist/internal/gateway"
)

// Slot names one independently observable part of the cache.
type Slot int

const (
	SlotUsers Slot = iota
	SlotPendingBattles
	SlotActiveBattle
	SlotFeedback
	slotCount
)

func (s Slot) String() string {
	switch s {
	case SlotUsers:
		return "users"
	case SlotPendingBattles:
		return "pending_battles"
	case SlotActiveBattle:
		return "active_battle"
	case SlotFeedback:
		return "feedback"
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// Feedback holds user-visible messages, segmented per feature area so a
// failing subsystem does not blank out unrelated messages.
type Feedback struct {
	ActionError   string
	ActionMessage string
	BattleError   string
	BattleMessage string
}

// Loading flags in-flight user-initiated requests.
type Loading struct {
	Users     bool
	Pending   bool
	Battle    bool
	Conceding bool
}

// Snapshot is a point-in-time copy of the cache.
type Snapshot struct {
	Users               []gateway.User
	PendingBattles      []gateway.Battle
	ActiveBattle        *gateway.Battle
	Feedback            Feedback
	Loading             Loading
	Revisions           [slotCount]uint64
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll ticks that hit a transport failure
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Revision returns how many real mutations slot has seen.
func (s Snapshot) Revision(slot Slot) uint64 {
	if slot < 0 || slot >= slotCount {
		return 0
	}
	return s.Revisions[slot]
}

// Store is the per-session entity cache. All writes go through either a
// diff-gated setter or an explicit direct assignment.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	changes  chan Slot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{changes: make(chan Slot, 16)}
}

// SameShape reports whether a and b serialize to identical JSON. The server
// offers no version token, so a full comparison is the only honest way to
// detect a no-op refresh.
func SameShape(a, b any) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// Changes delivers the slot of every real mutation. Sends never block; a
// slow reader may miss notifications and should re-read the Snapshot.
func (s *Store) Changes() <-chan Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.changes == nil {
		s.changes = make(chan Slot, 16)
	}
	return s.changes
}

// SetUsers replaces the users slot when users differs from the stored list.
func (s *Store) SetUsers(users []gateway.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cloneUsers(users)
	if SameShape(s.snapshot.Users, next) {
		return false
	}
	s.snapshot.Users = next
	s.bump(SlotUsers)
	return true
}

// SetPendingBattles replaces the pending slot when battles differs from the
// stored list.
func (s *Store) SetPendingBattles(battles []gateway.Battle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPendingLocked(cloneBattles(battles))
}

// UpdatePendingBattles applies fn to a copy of the pending list and stores
// the result through the diff gate.
func (s *Store) UpdatePendingBattles(fn func([]gateway.Battle) []gateway.Battle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPendingLocked(cloneBattles(fn(cloneBattles(s.snapshot.PendingBattles))))
}

func (s *Store) setPendingLocked(next []gateway.Battle) bool {
	if SameShape(s.snapshot.PendingBattles, next) {
		return false
	}
	s.snapshot.PendingBattles = next
	s.bump(SlotPendingBattles)
	return true
}

// PendingBattle returns the pending request with id.
func (s *Store) PendingBattle(id int64) (gateway.Battle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.snapshot.PendingBattles {
		if b.ID == id {
			return *b.Clone(), true
		}
	}
	return gateway.Battle{}, false
}

// SetActiveBattle stores battle (nil meaning "no active battle") unless it
// is structurally equal to the current value.
func (s *Store) SetActiveBattle(battle *gateway.Battle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setActiveLocked(battle)
}

func (s *Store) setActiveLocked(battle *gateway.Battle) bool {
	if SameShape(s.snapshot.ActiveBattle, battle) {
		return false
	}
	s.snapshot.ActiveBattle = battle.Clone()
	s.bump(SlotActiveBattle)
	return true
}

// AssignActiveBattle stores battle unconditionally. It is used for causal
// updates taken straight from the response to a user action.
func (s *Store) AssignActiveBattle(battle *gateway.Battle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.ActiveBattle = battle.Clone()
	s.bump(SlotActiveBattle)
}

// ReplaceActiveBattleIf stores next through the diff gate only when keep
// approves the current value. The check and the write are atomic.
func (s *Store) ReplaceActiveBattleIf(next *gateway.Battle, keep func(current *gateway.Battle) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !keep(s.snapshot.ActiveBattle) {
		return false
	}
	return s.setActiveLocked(next)
}

// ClearActiveBattleIf clears the active battle when its id equals id.
func (s *Store) ClearActiveBattleIf(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.ActiveBattle == nil || s.snapshot.ActiveBattle.ID != id {
		return false
	}
	return s.setActiveLocked(nil)
}

// ActiveBattle returns a copy of the active battle, or nil.
func (s *Store) ActiveBattle() *gateway.Battle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.ActiveBattle.Clone()
}

// UpdateFeedback applies fn to the feedback messages.
func (s *Store) UpdateFeedback(fn func(*Feedback)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snapshot.Feedback
	fn(&next)
	if next == s.snapshot.Feedback {
		return
	}
	s.snapshot.Feedback = next
	s.bump(SlotFeedback)
}

// SetLoading applies fn to the loading flags.
func (s *Store) SetLoading(fn func(*Loading)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snapshot.Loading)
}

// RecordPoll notes the outcome of a poll tick. A transport failure bumps the
// consecutive failure counter; anything else resets it.
func (s *Store) RecordPoll(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	s.snapshot.LastError = err
	if err != nil && gateway.IsTransport(err) {
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Users = cloneUsers(s.snapshot.Users)
	snap.PendingBattles = cloneBattles(s.snapshot.PendingBattles)
	snap.ActiveBattle = s.snapshot.ActiveBattle.Clone()
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// bump must be called with mu held.
func (s *Store) bump(slot Slot) {
	s.snapshot.Revisions[slot]++
	if s.changes == nil {
		return
	}
	select {
	case s.changes <- slot:
	default:
	}
}

func cloneUsers(users []gateway.User) []gateway.User {
	if len(users) == 0 {
		return nil
	}
	dup := make([]gateway.User, len(users))
	for i := range users {
		dup[i] = users[i].Clone()
	}
	return dup
}

func cloneBattles(battles []gateway.Battle) []gateway.Battle {
	if len(battles) == 0 {
		return nil
	}
	dup := make([]gateway.Battle, len(battles))
	for i := range battles {
		dup[i] = *battles[i].Clone()
	}
	return dup
}
