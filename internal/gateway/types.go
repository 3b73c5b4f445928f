package gateway

import (
	"encoding/json"
	"fmt"
)

// BattleStatus is the server-side lifecycle state of a battle.
type BattleStatus string

const (
	StatusPending   BattleStatus = "pending"
	StatusActive    BattleStatus = "active"
	StatusFinished  BattleStatus = "finished"
	StatusDeclined  BattleStatus = "declined"
	StatusCancelled BattleStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s BattleStatus) Terminal() bool {
	switch s {
	case StatusFinished, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}

// Player is a user as it appears in lists and as a battle participant.
// Battle participants arrive as full profiles (hp, attack, defense,
// selected_attacks, ...); those fields are kept verbatim in Extra so the
// re-emitted payload matches what the server sent.
type Player struct {
	ID       int64
	Username string
	Level    int
	Extra    map[string]json.RawMessage
}

var playerKnownKeys = []string{"id", "username", "level"}

// UnmarshalJSON splits the profile into typed fields and the opaque remainder.
func (p *Player) UnmarshalJSON(data []byte) error {
	var typed struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Level    int    `json:"level"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	fields, err := remainder(data, playerKnownKeys)
	if err != nil {
		return err
	}
	*p = Player{ID: typed.ID, Username: typed.Username, Level: typed.Level, Extra: fields}
	return nil
}

// MarshalJSON re-emits the full profile.
func (p Player) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+len(playerKnownKeys))
	for k, v := range p.Extra {
		out[k] = v
	}
	out["id"] = p.ID
	out["username"] = p.Username
	out["level"] = p.Level
	return json.Marshal(out)
}

// Clone returns a deep copy.
func (p Player) Clone() Player {
	p.Extra = cloneRaw(p.Extra)
	return p
}

// User is an entry in the challengeable-users list.
type User = Player

// Battle mirrors the battle payloads returned by the game API. Only the
// fields the client reasons about are typed; everything else (hp, momentum,
// stat stages, turn summaries) is kept verbatim in Extra.
type Battle struct {
	ID        int64
	Status    BattleStatus
	Player1   *Player
	Player2   *Player
	Winner    *Player
	WhoseTurn string
	Extra     map[string]json.RawMessage
}

var battleKnownKeys = []string{"id", "status", "player1", "player2", "winner", "whose_turn"}

// UnmarshalJSON splits the payload into typed fields and the opaque remainder.
func (b *Battle) UnmarshalJSON(data []byte) error {
	var typed struct {
		ID        int64        `json:"id"`
		Status    BattleStatus `json:"status"`
		Player1   *Player      `json:"player1"`
		Player2   *Player      `json:"player2"`
		Winner    *Player      `json:"winner"`
		WhoseTurn string       `json:"whose_turn"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	fields, err := remainder(data, battleKnownKeys)
	if err != nil {
		return err
	}
	*b = Battle{
		ID:        typed.ID,
		Status:    typed.Status,
		Player1:   typed.Player1,
		Player2:   typed.Player2,
		Winner:    typed.Winner,
		WhoseTurn: typed.WhoseTurn,
		Extra:     fields,
	}
	return nil
}

// MarshalJSON re-emits the full payload, typed and opaque fields together.
func (b Battle) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Extra)+len(battleKnownKeys))
	for k, v := range b.Extra {
		out[k] = v
	}
	out["id"] = b.ID
	out["status"] = b.Status
	out["player1"] = b.Player1
	out["player2"] = b.Player2
	out["winner"] = b.Winner
	out["whose_turn"] = b.WhoseTurn
	return json.Marshal(out)
}

// Involves reports whether playerID is one of the two participants.
func (b Battle) Involves(playerID int64) bool {
	return (b.Player1 != nil && b.Player1.ID == playerID) ||
		(b.Player2 != nil && b.Player2.ID == playerID)
}

// ParticipantIDs returns the ids of both participants that are present.
func (b Battle) ParticipantIDs() []int64 {
	ids := make([]int64, 0, 2)
	if b.Player1 != nil {
		ids = append(ids, b.Player1.ID)
	}
	if b.Player2 != nil {
		ids = append(ids, b.Player2.ID)
	}
	return ids
}

// Clone returns a deep copy.
func (b *Battle) Clone() *Battle {
	if b == nil {
		return nil
	}
	dup := *b
	dup.Player1 = clonePlayer(b.Player1)
	dup.Player2 = clonePlayer(b.Player2)
	dup.Winner = clonePlayer(b.Winner)
	dup.Extra = cloneRaw(b.Extra)
	return &dup
}

func (b Battle) String() string {
	return fmt.Sprintf("battle %d (%s)", b.ID, b.Status)
}

// Valid reports whether the battle carries the identity and status every
// server payload has.
func (b *Battle) Valid() bool {
	return b != nil && b.ID > 0 && b.Status != ""
}

func clonePlayer(p *Player) *Player {
	if p == nil {
		return nil
	}
	dup := p.Clone()
	return &dup
}

// remainder returns the object's fields minus known, or nil when nothing is
// left.
func remainder(data []byte, known []string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for _, key := range known {
		delete(fields, key)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	dup := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		dup[k] = append(json.RawMessage(nil), v...)
	}
	return dup
}

// RespondAction is the answer to an incoming challenge.
type RespondAction string

const (
	Accept  RespondAction = "accept"
	Decline RespondAction = "decline"
)

// Valid reports whether the action is one the server understands.
func (a RespondAction) Valid() bool {
	return a == Accept || a == Decline
}

// InitiateResult is the normalised response to a challenge request. Exactly
// one of Battle (resolved immediately) or BattleID (deferred) is meaningful.
type InitiateResult struct {
	BattleID int64
	Battle   *Battle
}

// Resolved reports whether the server answered with an already-active battle.
func (r InitiateResult) Resolved() bool {
	return r.Battle != nil && r.Battle.Status == StatusActive
}

// RespondResult mirrors /game/battles/{id}/respond/.
type RespondResult struct {
	Message string  `json:"message"`
	Battle  *Battle `json:"battle"`
}

// ActionResult is the response to a turn action or a concede. The battle
// snapshot arrives as battle_state or final_state respectively.
type ActionResult struct {
	Message string
	Battle  *Battle
}

// Stats holds the current user's counters. Pointer fields let a partial
// response leave absent counters untouched when merged.
type Stats struct {
	Wins          *int `json:"wins,omitempty"`
	Losses        *int `json:"losses,omitempty"`
	BattlesPlayed *int `json:"battles_played,omitempty"`
	WinStreak     *int `json:"win_streak,omitempty"`
	BestWinStreak *int `json:"best_win_streak,omitempty"`
	AttacksUsed   *int `json:"attacks_used,omitempty"`
	Level         *int `json:"level,omitempty"`
}

// Merge returns s with every field present in partial overwritten.
func (s Stats) Merge(partial Stats) Stats {
	pick := func(cur, next *int) *int {
		if next == nil {
			return cur
		}
		v := *next
		return &v
	}
	return Stats{
		Wins:          pick(s.Wins, partial.Wins),
		Losses:        pick(s.Losses, partial.Losses),
		BattlesPlayed: pick(s.BattlesPlayed, partial.BattlesPlayed),
		WinStreak:     pick(s.WinStreak, partial.WinStreak),
		BestWinStreak: pick(s.BestWinStreak, partial.BestWinStreak),
		AttacksUsed:   pick(s.AttacksUsed, partial.AttacksUsed),
		Level:         pick(s.Level, partial.Level),
	}
}

// LeaderboardEntry is one row of /users/leaderboard/.
type LeaderboardEntry struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}

// AttackStat is one row of /game/leaderboard/attacks/.
type AttackStat struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	TimesUsed int    `json:"times_used"`
	Wins      int    `json:"wins"`
	Creator   string `json:"creator"`
}
