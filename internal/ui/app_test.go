package ui

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/gateway/gatewaytest"
	"github.com/five82/duelist/internal/leaderboard"
	"github.com/five82/duelist/internal/session"
)

var me = gateway.Player{ID: 1, Username: "me"}

type harness struct {
	t    *testing.T
	srv  *gatewaytest.Server
	sess *session.Session
	m    Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := gatewaytest.New(me)
	t.Cleanup(srv.Close)

	client, err := gateway.NewClient(srv.APIBase())
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	sess, err := session.New(session.Options{Gateway: client, Logger: log})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	m := New(Options{
		Context: ctx,
		Session: sess,
		Board:   leaderboard.New(client, log),
	})
	h := &harness{t: t, srv: srv, sess: sess, m: m}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// send delivers msg to the model and returns the command it produced.
func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) press(k string) tea.Cmd {
	h.t.Helper()
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

// run executes cmd and any batch it expands to, returning the messages in
// order. Only use it for commands that do not block.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, run(c)...)
	}
	return out
}

// deliver runs cmd and feeds every resulting message back to the model.
func (h *harness) deliver(cmd tea.Cmd) {
	h.t.Helper()
	for _, msg := range run(cmd) {
		h.send(msg)
	}
}

// sync refreshes the session and hands the resulting snapshot to the model.
func (h *harness) sync() {
	h.t.Helper()
	require.NoError(h.t, h.sess.Refresh(h.m.ctx, false))
	h.send(fetchSnapshotCmd(h.sess)())
}

func TestModel_ViewBeforeSizeIsLoading(t *testing.T) {
	m := New(Options{})
	assert.Equal(t, "Loading...", m.View())
}

func TestModel_ChallengeSelectedUser(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser(gateway.User{ID: 2, Username: "ann"}, false)
	h.srv.AddUser(gateway.User{ID: 3, Username: "bob"}, false)
	h.sync()

	h.press("j")
	cmd := h.press("c")
	require.NotNil(t, cmd)
	assert.Equal(t, "challenge", h.m.busy)

	h.deliver(cmd)
	assert.Empty(t, h.m.busy)
	assert.Equal(t, 1, h.srv.Calls("POST", "/game/battles/initiate/"))

	_, ok := h.sess.OutgoingFor(3)
	require.True(t, ok)
	h.deliver(fetchSnapshotCmd(h.sess))
	view := h.m.View()
	assert.Contains(t, view, "Challenge sent to user 3!")
	assert.Contains(t, view, "to bob")
}

func TestModel_ChallengeIgnoredOutsideUsersPane(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser(gateway.User{ID: 2, Username: "ann"}, false)
	h.sync()

	h.send(tea.KeyMsg{Type: tea.KeyTab})
	assert.NotEqual(t, paneUsers, h.m.focused)
	assert.Nil(t, h.press("c"))
	assert.Empty(t, h.m.busy)
}

func TestModel_AcceptSelectedRequest(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser(gateway.User{ID: 2, Username: "ann"}, false)
	ann := gateway.Player{ID: 2, Username: "ann"}
	id := h.srv.AddBattle(gateway.Battle{Status: gateway.StatusPending, Player1: &ann, Player2: &me})
	h.sync()

	h.send(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, panePending, h.m.focused)
	b, ok := h.m.selectedPending()
	require.True(t, ok)
	assert.Equal(t, id, b.ID)

	cmd := h.press("a")
	require.NotNil(t, cmd)
	assert.Equal(t, "respond", h.m.busy)

	h.deliver(cmd)
	require.NotNil(t, h.m.snapshot.ActiveBattle)
	assert.Equal(t, id, h.m.snapshot.ActiveBattle.ID)
	assert.Empty(t, h.m.snapshot.PendingBattles)
}

func TestModel_AttackKeyUsesSelectedAttackID(t *testing.T) {
	h := newHarness(t)
	ann := gateway.Player{ID: 2, Username: "ann"}
	h.srv.AddBattle(gateway.Battle{
		ID:        42,
		Status:    gateway.StatusActive,
		Player1:   &me,
		Player2:   &ann,
		WhoseTurn: "player1",
		Extra: map[string]json.RawMessage{
			"my_selected_attacks": json.RawMessage(`[{"id":7,"name":"Ember","emoji":"🔥","power":20,"momentum_cost":1},{"id":99,"name":"Finisher","power":99}]`),
			"current_hp_player1":  json.RawMessage(`80`),
			"current_hp_player2":  json.RawMessage(`65`),
			"last_turn_summary":   json.RawMessage(`["ann used Jab"]`),
		},
	})
	h.sync()

	view := h.m.View()
	assert.Contains(t, view, "Ember")
	assert.Contains(t, view, "HP 80")
	assert.Contains(t, view, "HP 65")
	assert.Contains(t, view, "Turn: me")
	assert.Contains(t, view, "ann used Jab")

	// The second attack is the server's finishing move.
	cmd := h.press("2")
	require.NotNil(t, cmd)
	assert.Equal(t, "attack", h.m.busy)

	h.deliver(cmd)
	assert.Empty(t, h.m.busy)
	assert.Equal(t, 1, h.srv.Calls("POST", "/game/battles/42/action/"))
	assert.Contains(t, h.m.View(), "Winner: me")
	assert.Contains(t, h.m.View(), "Battle Finished!")

	// Attacks are not offered once the battle is over.
	assert.Nil(t, h.press("1"))
}

func TestModel_AttackKeyOutOfRangeIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser(gateway.User{ID: 5, Username: "robo"}, true)
	require.NoError(t, h.sess.InitiateChallenge(h.m.ctx, 5, true))
	h.send(fetchSnapshotCmd(h.sess)())
	require.NotNil(t, h.m.snapshot.ActiveBattle)

	// The bot battle carries no attack list.
	assert.Nil(t, h.press("1"))
	assert.Empty(t, h.m.busy)
}

func TestModel_OfflineBadge(t *testing.T) {
	h := newHarness(t)
	store := h.sess.Store()
	store.RecordPoll(&gateway.TransportError{Op: "list users", Err: context.DeadlineExceeded})
	store.RecordPoll(&gateway.TransportError{Op: "list users", Err: context.DeadlineExceeded})
	h.send(fetchSnapshotCmd(h.sess)())
	assert.Contains(t, h.m.View(), "OFFLINE")
}

func TestModel_StoreChangeRearmsWatcher(t *testing.T) {
	h := newHarness(t)
	wait := waitForChangeCmd(h.m.ctx, h.m.store)
	h.sess.Store().SetUsers([]gateway.User{{ID: 2, Username: "ann"}})

	msg := wait()
	require.IsType(t, storeChangedMsg(0), msg)
	assert.NotNil(t, h.send(msg))
}

func TestModel_CycleTheme(t *testing.T) {
	h := newHarness(t)
	start := h.m.theme.Name
	h.press("T")
	assert.Equal(t, NextTheme(start), h.m.theme.Name)
}

func TestModel_HelpOverlayClosesOnAnyKey(t *testing.T) {
	h := newHarness(t)
	h.press("?")
	require.True(t, h.m.showHelp)
	assert.Contains(t, h.m.View(), "Challenge as bot")
	h.press("j")
	assert.False(t, h.m.showHelp)
}

func TestModel_LeaderboardView(t *testing.T) {
	h := newHarness(t)
	h.srv.SetLeaderboard([]gateway.LeaderboardEntry{
		{ID: 2, Username: "ann", Wins: 5},
		{ID: 3, Username: "bob", Wins: 3},
	})

	require.NotNil(t, h.press("L"))
	assert.Equal(t, ViewLeaderboard, h.m.currentView)

	require.NoError(t, h.m.board.RefreshPlayerLeaderboard(h.m.ctx))
	h.send(fetchBoardCmd(h.m.board)())
	view := h.m.View()
	assert.Contains(t, view, "ann")
	assert.Contains(t, view, "5 W / 0 L")

	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewLobby, h.m.currentView)
}

func TestModel_LogsView(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "duelist.log")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"level":"warn","ts":"2026-01-02T03:04:05.000Z","msg":"poll tick failed","consecutive_failures":2}`+"\n"+
			"plain line\n"), 0o644))
	h.m.logPath = path

	cmd := h.press("l")
	require.NotNil(t, cmd)
	assert.Equal(t, ViewLogs, h.m.currentView)

	h.send(cmd())
	view := h.m.View()
	assert.Contains(t, view, "poll tick failed")
	assert.Contains(t, view, "consecutive_failures=2")
	assert.Contains(t, view, "plain line")
}

func TestBattleHelpers(t *testing.T) {
	b := &gateway.Battle{
		WhoseTurn: "player2",
		Player2:   &gateway.Player{ID: 4},
		Extra: map[string]json.RawMessage{
			"last_turn_summary":       json.RawMessage(`"first\nsecond"`),
			"current_momentum_player2": json.RawMessage(`3`),
		},
	}
	assert.Equal(t, []string{"first", "second"}, turnSummary(b))
	assert.Equal(t, "user 4", turnOwner(b))
	assert.Equal(t, "momentum 3", playerGauge(b, "player2"))
	assert.Empty(t, playerGauge(b, "player1"))
	assert.Nil(t, battleAttacks(b))
	assert.Nil(t, battleAttacks(nil))
}
