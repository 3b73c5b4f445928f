package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/gateway/gatewaytest"
	"github.com/five82/duelist/internal/session"
	"github.com/five82/duelist/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 70; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

var me = gateway.Player{ID: 1, Username: "me"}

func newTestSession(t *testing.T, apiBase string) *session.Session {
	t.Helper()
	client, err := gateway.NewClient(apiBase)
	require.NoError(t, err)
	sess, err := session.New(session.Options{Gateway: client, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return sess
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPollOnce_ReconcilesWithServer(t *testing.T) {
	srv := gatewaytest.New(me)
	defer srv.Close()
	srv.AddUser(gateway.User{ID: 2, Username: "ann"}, false)
	srv.AddBattle(gateway.Battle{
		Status:  gateway.StatusPending,
		Player1: &gateway.Player{ID: 2, Username: "ann"},
		Player2: &me,
	})
	sess := newTestSession(t, srv.APIBase())

	failures := pollOnce(testContext(t), sess, zaptest.NewLogger(t))

	assert.Zero(t, failures)
	snap := sess.Store().Snapshot()
	assert.Len(t, snap.Users, 1)
	assert.Len(t, snap.PendingBattles, 1)
	assert.Nil(t, snap.ActiveBattle)
	assert.NoError(t, snap.LastError)
}

func TestPollOnce_CountsTransportFailuresWithoutTouchingCache(t *testing.T) {
	srv := gatewaytest.New(me)
	srv.AddUser(gateway.User{ID: 2, Username: "ann"}, false)
	sess := newTestSession(t, srv.APIBase())
	ctx := testContext(t)
	log := zaptest.NewLogger(t)

	require.Zero(t, pollOnce(ctx, sess, log))
	before := sess.Store().Snapshot()
	srv.Close()

	assert.Equal(t, 1, pollOnce(ctx, sess, log))
	assert.Equal(t, 2, pollOnce(ctx, sess, log))

	after := sess.Store().Snapshot()
	assert.True(t, after.IsOffline())
	assert.Equal(t, before.Users, after.Users)
	assert.Equal(t, before.Revisions, after.Revisions)
	assert.Equal(t, state.Feedback{}, after.Feedback)
}

func TestStartPoller_RefreshesUntilCancelled(t *testing.T) {
	srv := gatewaytest.New(me)
	defer srv.Close()
	srv.AddUser(gateway.User{ID: 2, Username: "ann"}, false)
	client, err := gateway.NewClient(srv.APIBase())
	require.NoError(t, err)
	// The poller goroutine may still be mid-tick when the test returns, so
	// it must not log through the test's logger.
	sess, err := session.New(session.Options{Gateway: client, Logger: zap.NewNop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	StartPoller(ctx, sess, 10*time.Millisecond, nil)

	require.Eventually(t, func() bool {
		return srv.Calls("GET", "/users/") >= 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	assert.Len(t, sess.Store().Snapshot().Users, 1)
}

func TestSession_BotChallengeThenPollIsNoOp(t *testing.T) {
	srv := gatewaytest.New(me)
	defer srv.Close()
	srv.AddUser(gateway.User{ID: 5, Username: "robo"}, true)
	sess := newTestSession(t, srv.APIBase())
	ctx := testContext(t)

	require.NoError(t, sess.InitiateChallenge(ctx, 5, true))

	snap := sess.Store().Snapshot()
	require.NotNil(t, snap.ActiveBattle)
	assert.Equal(t, gateway.StatusActive, snap.ActiveBattle.Status)
	assert.Empty(t, sess.Outgoing())
	rev := snap.Revision(state.SlotActiveBattle)

	require.NoError(t, sess.RefreshActiveBattle(ctx, true))
	assert.Equal(t, rev, sess.Store().Snapshot().Revision(state.SlotActiveBattle))
}

func TestSession_DeferredChallengeLifecycle(t *testing.T) {
	srv := gatewaytest.New(me)
	defer srv.Close()
	srv.AddUser(gateway.User{ID: 7, Username: "bea"}, false)
	sess := newTestSession(t, srv.APIBase())
	ctx := testContext(t)

	require.NoError(t, sess.InitiateChallenge(ctx, 7, false))
	battleID, ok := sess.OutgoingFor(7)
	require.True(t, ok)

	// The opponent accepts on their side; the next poll sees the battle.
	srv.SetStatus(battleID, gateway.StatusActive)
	require.NoError(t, sess.Refresh(ctx, true))

	_, ok = sess.OutgoingFor(7)
	assert.False(t, ok)
	active := sess.Store().ActiveBattle()
	require.NotNil(t, active)
	assert.Equal(t, battleID, active.ID)

	require.NoError(t, sess.SubmitTurnAction(ctx, battleID, gatewaytest.FinishingAttack))
	fb := sess.Store().Snapshot().Feedback
	assert.Equal(t, "Battle Finished!", fb.BattleMessage)
	assert.Equal(t, gateway.StatusFinished, sess.Store().ActiveBattle().Status)
}
