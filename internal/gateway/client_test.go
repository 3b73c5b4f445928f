package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/gateway/gatewaytest"
)

var me = gateway.Player{ID: 1, Username: "ann", Level: 3}

func newClient(t *testing.T, base string) *gateway.Client {
	t.Helper()
	c, err := gateway.NewClient(base, gateway.WithToken("secret"))
	require.NoError(t, err)
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_SendsHeadersAndResolvesBasePath(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotAgent, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		_ = json.NewEncoder(w).Encode([]gateway.User{{ID: 2, Username: "bob"}})
	}))
	t.Cleanup(server.Close)

	users, err := newClient(t, server.URL+"/api/").ListUsers(testContext(t))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
	assert.Equal(t, "/api/users/", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.True(t, strings.HasPrefix(gotAgent, "duelist/"), "User-Agent = %q", gotAgent)
	assert.NotEmpty(t, gotRequestID)
}

func TestClient_ActiveBattleNotFound(t *testing.T) {
	t.Parallel()

	srv := gatewaytest.New(me)
	t.Cleanup(srv.Close)

	_, err := newClient(t, srv.APIBase()).GetActiveBattle(testContext(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrNotFound))
	assert.False(t, gateway.IsTransport(err))
}

func TestClient_InitiateDeferredAndResolved(t *testing.T) {
	t.Parallel()

	srv := gatewaytest.New(me)
	t.Cleanup(srv.Close)
	srv.AddUser(gateway.User{ID: 2, Username: "bob"}, false)
	srv.AddUser(gateway.User{ID: 3, Username: "botty"}, true)
	c := newClient(t, srv.APIBase())
	ctx := testContext(t)

	deferred, err := c.InitiateChallenge(ctx, 2, false)
	require.NoError(t, err)
	assert.False(t, deferred.Resolved())
	assert.NotZero(t, deferred.BattleID)

	resolved, err := c.InitiateChallenge(ctx, 3, false)
	require.NoError(t, err)
	require.True(t, resolved.Resolved())
	assert.Equal(t, resolved.BattleID, resolved.Battle.ID)
	assert.JSONEq(t, "1", string(resolved.Battle.Extra["turn"]))
}

func TestClient_InitiateAcceptsBareBattleObject(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"status":"pending","player1":{"id":1},"player2":{"id":2},"created_at":"x"}`))
	}))
	t.Cleanup(server.Close)

	res, err := newClient(t, server.URL).InitiateChallenge(testContext(t), 2, false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.BattleID)
	assert.False(t, res.Resolved())
}

func TestClient_InitiateWithoutIdentifierIsProtocolError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	t.Cleanup(server.Close)

	_, err := newClient(t, server.URL).InitiateChallenge(testContext(t), 2, false)
	require.Error(t, err)
	assert.True(t, gateway.IsProtocol(err))
}

func TestClient_RejectedCarriesServerMessage(t *testing.T) {
	t.Parallel()

	srv := gatewaytest.New(me)
	t.Cleanup(srv.Close)

	_, err := newClient(t, srv.APIBase()).InitiateChallenge(testContext(t), me.ID, false)
	var rejected *gateway.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusBadRequest, rejected.Status)
	assert.Equal(t, "You cannot battle yourself.", rejected.Message)
	assert.Equal(t, "You cannot battle yourself.", gateway.ServerMessage(err, "fallback"))
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	_, err := newClient(t, base).ListPendingBattles(testContext(t))
	require.Error(t, err)
	assert.True(t, gateway.IsTransport(err))
	assert.Equal(t, "fallback", gateway.ServerMessage(err, "fallback"))
}

func TestClient_DecodeFailureIsProtocolError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not-json"))
	}))
	t.Cleanup(server.Close)

	_, err := newClient(t, server.URL).FetchLeaderboard(testContext(t))
	require.Error(t, err)
	assert.True(t, gateway.IsProtocol(err))
}

func TestClient_ActionAndConcedeSnapshots(t *testing.T) {
	t.Parallel()

	srv := gatewaytest.New(me)
	t.Cleanup(srv.Close)
	opp := gateway.Player{ID: 2, Username: "bob"}
	id := srv.AddBattle(gateway.Battle{Status: gateway.StatusActive, Player1: &me, Player2: &opp, WhoseTurn: "player1"})
	c := newClient(t, srv.APIBase())
	ctx := testContext(t)

	res, err := c.SubmitAction(ctx, id, 5)
	require.NoError(t, err)
	require.NotNil(t, res.Battle)
	assert.Equal(t, "player2", res.Battle.WhoseTurn)

	res, err = c.Concede(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, res.Battle)
	assert.Equal(t, gateway.StatusFinished, res.Battle.Status)
	assert.Equal(t, "ann conceded. bob wins!", res.Message)
}

func TestClient_AttackLeaderboardQuery(t *testing.T) {
	t.Parallel()

	var gotSort, gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSort = r.URL.Query().Get("sort")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	_, err := newClient(t, server.URL).FetchAttackLeaderboard(testContext(t), "wins", 10)
	require.NoError(t, err)
	assert.Equal(t, "wins", gotSort)
	assert.Equal(t, "10", gotLimit)
}

func TestClient_RespondRejectsUnknownAction(t *testing.T) {
	c, err := gateway.NewClient("127.0.0.1:1")
	require.NoError(t, err)
	_, err = c.RespondToChallenge(context.Background(), 1, "maybe")
	require.Error(t, err)
}

func TestClient_EmptyBattlePayloadsAreProtocolErrors(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"/game/battles/active/":    `null`,
		"/game/battles/5/":         `{}`,
		"/game/battles/requests/":  `[{"id":6,"status":"pending"},{}]`,
		"/game/battles/5/action/":  `{"message":"ok","battle_state":{}}`,
		"/game/battles/5/concede/": `{"message":"ok"}`,
		"/game/battles/5/respond/": `{"message":"ok","battle":{"status":"active"}}`,
		"/game/battles/initiate/":  `{"battle":{"id":0}}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	c := newClient(t, server.URL)
	ctx := testContext(t)

	calls := map[string]func() error{
		"active": func() error {
			b, err := c.GetActiveBattle(ctx)
			assert.Nil(t, b)
			return err
		},
		"battle": func() error {
			b, err := c.GetBattle(ctx, 5)
			assert.Nil(t, b)
			return err
		},
		"requests": func() error {
			_, err := c.ListPendingBattles(ctx)
			return err
		},
		"action": func() error {
			_, err := c.SubmitAction(ctx, 5, 1)
			return err
		},
		"concede": func() error {
			_, err := c.Concede(ctx, 5)
			return err
		},
		"respond": func() error {
			_, err := c.RespondToChallenge(ctx, 5, gateway.Accept)
			return err
		},
		"initiate": func() error {
			_, err := c.InitiateChallenge(ctx, 2, false)
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.True(t, gateway.IsProtocol(err), "%s: %v", name, err)
		})
	}
}

func TestClient_DeclineWithoutBattleIsFine(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Battle declined."}`))
	}))
	t.Cleanup(server.Close)

	res, err := newClient(t, server.URL).RespondToChallenge(testContext(t), 5, gateway.Decline)
	require.NoError(t, err)
	assert.Nil(t, res.Battle)
	assert.Equal(t, "Battle declined.", res.Message)
}
