// Package gatewaytest runs an in-process imitation of the game API for
// tests. It keeps battles in memory and applies the same status rules as the
// real backend closely enough to drive the session core end to end.
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/five82/duelist/internal/gateway"
)

// FinishingAttack ends the battle when played, so tests can reach a
// terminal state in one move.
const FinishingAttack int64 = 99

// Server is a fake game API bound to a loopback listener.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	me          gateway.Player
	users       []gateway.User
	bots        map[int64]bool
	battles     map[int64]*gateway.Battle
	nextID      int64
	stats       gateway.Stats
	leaderboard []gateway.LeaderboardEntry
	attacks     []gateway.AttackStat
	failures    map[string]failure
	calls       map[string]int
}

type failure struct {
	status  int
	message string
}

// New starts a server acting on behalf of me.
func New(me gateway.Player) *Server {
	s := &Server{
		me:       me,
		bots:     make(map[int64]bool),
		battles:  make(map[int64]*gateway.Battle),
		nextID:   100,
		failures: make(map[string]failure),
		calls:    make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// APIBase is the value to hand to gateway.NewClient.
func (s *Server) APIBase() string {
	return s.URL + "/api"
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api", func(r chi.Router) {
		r.Get("/users/", s.handleUsers)
		r.Get("/users/me/stats/", s.handleStats)
		r.Get("/users/leaderboard/", s.handleLeaderboard)
		r.Get("/game/leaderboard/attacks/", s.handleAttackLeaderboard)
		r.Route("/game/battles", func(r chi.Router) {
			r.Post("/initiate/", s.handleInitiate)
			r.Get("/requests/", s.handleRequests)
			r.Get("/active/", s.handleActive)
			r.Get("/{id}/", s.handleBattle)
			r.Post("/{id}/respond/", s.handleRespond)
			r.Post("/{id}/action/", s.handleAction)
			r.Post("/{id}/concede/", s.handleConcede)
			r.Post("/{id}/cancel/", s.handleCancel)
		})
	})
	return r
}

// record counts calls and serves any failure queued with FailNext.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[key]++
		f, failing := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()
		if failing {
			writeJSON(w, f.status, map[string]string{"error": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AddUser registers a challengeable user. Bots accept challenges instantly.
func (s *Server) AddUser(u gateway.User, bot bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
	if bot {
		s.bots[u.ID] = true
	}
}

// AddBattle stores b as-is, assigning an id when b.ID is zero.
func (s *Server) AddBattle(b gateway.Battle) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	}
	if b.ID > s.nextID {
		s.nextID = b.ID
	}
	s.battles[b.ID] = b.Clone()
	return b.ID
}

// Battle returns a copy of the stored battle.
func (s *Server) Battle(id int64) (gateway.Battle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.battles[id]
	if !ok {
		return gateway.Battle{}, false
	}
	return *b.Clone(), true
}

// SetStatus forces a battle into status, as another client would.
func (s *Server) SetStatus(id int64, status gateway.BattleStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.battles[id]; ok {
		b.Status = status
	}
}

// SetStats replaces the payload served by /users/me/stats/.
func (s *Server) SetStats(stats gateway.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

// SetLeaderboard replaces the payload served by /users/leaderboard/.
func (s *Server) SetLeaderboard(entries []gateway.LeaderboardEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboard = entries
}

// SetAttacks replaces the payload served by /game/leaderboard/attacks/.
func (s *Server) SetAttacks(stats []gateway.AttackStat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attacks = stats
}

// FailNext makes the next request to method+path answer with status.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" /api"+path] = failure{status: status, message: message}
}

// Calls reports how many requests reached method+path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" /api"+path]
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := append([]gateway.User{}, s.users...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entries := append([]gateway.LeaderboardEntry{}, s.leaderboard...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAttackLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := append([]gateway.AttackStat{}, s.attacks...)
	s.mu.Unlock()
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit >= 0 && limit < len(stats) {
		stats = stats[:limit]
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OpponentID int64 `json:"opponent_id"`
		FightAsBot bool  `json:"fight_as_bot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "opponent_id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.OpponentID == s.me.ID {
		writeError(w, http.StatusBadRequest, "You cannot battle yourself.")
		return
	}
	opponent, ok := s.findUser(req.OpponentID)
	if !ok {
		writeError(w, http.StatusNotFound, "Opponent not found.")
		return
	}
	for _, b := range s.battles {
		if b.Involves(opponent.ID) && b.Involves(s.me.ID) &&
			(b.Status == gateway.StatusPending || b.Status == gateway.StatusActive) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":     "An active or pending battle already exists with this user.",
				"battle_id": b.ID,
			})
			return
		}
	}

	s.nextID++
	me := s.me
	battle := &gateway.Battle{ID: s.nextID, Status: gateway.StatusPending, Player1: &me, Player2: &opponent}
	s.battles[battle.ID] = battle
	if req.FightAsBot || s.bots[opponent.ID] {
		battle.Status = gateway.StatusActive
		battle.WhoseTurn = "player1"
		battle.Extra = map[string]json.RawMessage{"turn": json.RawMessage("1")}
		writeJSON(w, http.StatusCreated, map[string]any{"battle": battle})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"battle_id": battle.ID})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []gateway.Battle{}
	for _, b := range s.sortedBattles() {
		if b.Status == gateway.StatusPending && b.Player2 != nil && b.Player2.ID == s.me.ID {
			out = append(out, *b)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.sortedBattles() {
		if b.Status == gateway.StatusActive && b.Involves(s.me.ID) {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "No active battle found."})
}

func (s *Server) handleBattle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action gateway.RespondAction `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Action.Valid() {
		writeError(w, http.StatusBadRequest, "action must be accept or decline")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if b.Player2 == nil || b.Player2.ID != s.me.ID {
		writeError(w, http.StatusForbidden, "You are not the recipient of this battle request.")
		return
	}
	if b.Status != gateway.StatusPending {
		writeError(w, http.StatusBadRequest, "This battle request is no longer pending.")
		return
	}
	if req.Action == gateway.Decline {
		b.Status = gateway.StatusDeclined
		writeJSON(w, http.StatusOK, map[string]string{"message": "Battle declined."})
		return
	}
	b.Status = gateway.StatusActive
	b.WhoseTurn = "player1"
	writeJSON(w, http.StatusOK, map[string]any{"message": "Battle accepted!", "battle": b})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AttackID int64 `json:"attack_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "attack_id is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if b.Status != gateway.StatusActive {
		writeError(w, http.StatusBadRequest, "Battle is not active.")
		return
	}
	if req.AttackID == FinishingAttack {
		me := s.me
		b.Status = gateway.StatusFinished
		b.Winner = &me
		writeJSON(w, http.StatusOK, map[string]any{"message": "Battle finished!", "battle_state": b})
		return
	}
	if b.WhoseTurn == "player1" {
		b.WhoseTurn = "player2"
	} else {
		b.WhoseTurn = "player1"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Action applied.", "battle_state": b})
}

func (s *Server) handleConcede(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if b.Status != gateway.StatusActive {
		writeError(w, http.StatusBadRequest, "Battle is not active or already finished.")
		return
	}
	opponent := b.Player1
	if opponent != nil && opponent.ID == s.me.ID {
		opponent = b.Player2
	}
	b.Status = gateway.StatusFinished
	b.Winner = opponent
	name := "Opponent"
	if opponent != nil {
		name = opponent.Username
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     s.me.Username + " conceded. " + name + " wins!",
		"final_state": b,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if b.Player1 == nil || b.Player1.ID != s.me.ID {
		writeError(w, http.StatusForbidden, "You did not initiate this challenge.")
		return
	}
	if b.Status != gateway.StatusPending {
		writeError(w, http.StatusBadRequest, "This challenge is no longer pending.")
		return
	}
	b.Status = gateway.StatusCancelled
	writeJSON(w, http.StatusOK, map[string]string{"message": "Challenge cancelled."})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*gateway.Battle, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found.")
		return nil, false
	}
	b, ok := s.battles[id]
	if !ok || !b.Involves(s.me.ID) {
		writeError(w, http.StatusNotFound, "Not found.")
		return nil, false
	}
	return b, true
}

func (s *Server) findUser(id int64) (gateway.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return gateway.User{}, false
}

func (s *Server) sortedBattles() []*gateway.Battle {
	out := make([]*gateway.Battle, 0, len(s.battles))
	for id := int64(0); id <= s.nextID; id++ {
		if b, ok := s.battles[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
