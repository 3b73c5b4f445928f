package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gateway is the set of remote operations the session core consumes.
type Gateway interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListPendingBattles(ctx context.Context) ([]Battle, error)
	GetActiveBattle(ctx context.Context) (*Battle, error)
	GetBattle(ctx context.Context, battleID int64) (*Battle, error)
	InitiateChallenge(ctx context.Context, opponentID int64, asBot bool) (InitiateResult, error)
	RespondToChallenge(ctx context.Context, battleID int64, action RespondAction) (RespondResult, error)
	SubmitAction(ctx context.Context, battleID, attackID int64) (ActionResult, error)
	Concede(ctx context.Context, battleID int64) (ActionResult, error)
	CancelChallenge(ctx context.Context, battleID int64) error
	FetchMyStats(ctx context.Context) (Stats, error)
	FetchLeaderboard(ctx context.Context) ([]LeaderboardEntry, error)
	FetchAttackLeaderboard(ctx context.Context, sortKey string, limit int) ([]AttackStat, error)
}

// Ensure Client implements Gateway at compile time.
var _ Gateway = (*Client)(nil)

// Client talks to the game HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
}

const (
	defaultAPIBase   = "http://127.0.0.1:8000/api"
	defaultUserAgent = "duelist/0.1"
	requestTimeout   = 10 * time.Second
)

// Option customises a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a Client rooted at apiBase (for example
// "http://localhost:8000/api").
func NewClient(apiBase string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListUsers returns the users the caller can challenge. The server excludes
// the caller.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var users []User
	if err := c.get(ctx, "list users", "/users/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListPendingBattles returns incoming challenges awaiting a response.
func (c *Client) ListPendingBattles(ctx context.Context) ([]Battle, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	const op = "list pending battles"
	var battles []Battle
	if err := c.get(ctx, op, "/game/battles/requests/", nil, &battles); err != nil {
		return nil, err
	}
	for i := range battles {
		if err := checkBattle(op, "request", &battles[i]); err != nil {
			return nil, err
		}
	}
	return battles, nil
}

// GetActiveBattle returns the caller's active battle. When there is none the
// error matches ErrNotFound.
func (c *Client) GetActiveBattle(ctx context.Context) (*Battle, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	const op = "get active battle"
	var battle *Battle
	if err := c.get(ctx, op, "/game/battles/active/", nil, &battle); err != nil {
		return nil, err
	}
	if err := checkBattle(op, "battle", battle); err != nil {
		return nil, err
	}
	return battle, nil
}

// GetBattle returns a battle the caller participates in.
func (c *Client) GetBattle(ctx context.Context, battleID int64) (*Battle, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if battleID <= 0 {
		return nil, fmt.Errorf("battle id required")
	}
	const op = "get battle"
	var battle *Battle
	if err := c.get(ctx, op, battlePath(battleID, ""), nil, &battle); err != nil {
		return nil, err
	}
	if err := checkBattle(op, "battle", battle); err != nil {
		return nil, err
	}
	return battle, nil
}

// InitiateChallenge challenges opponentID. When asBot is true the opponent
// is played by an automated stand-in and the server may answer with an
// already-active battle.
func (c *Client) InitiateChallenge(ctx context.Context, opponentID int64, asBot bool) (InitiateResult, error) {
	const op = "initiate challenge"
	if c == nil {
		return InitiateResult{}, fmt.Errorf("client is nil")
	}
	body := map[string]any{"opponent_id": opponentID, "fight_as_bot": asBot}
	var raw json.RawMessage
	if err := c.post(ctx, op, "/game/battles/initiate/", body, &raw); err != nil {
		return InitiateResult{}, err
	}
	return decodeInitiate(op, raw)
}

func decodeInitiate(op string, raw json.RawMessage) (InitiateResult, error) {
	var envelope struct {
		BattleID int64           `json:"battle_id"`
		ID       int64           `json:"id"`
		Status   BattleStatus    `json:"status"`
		Battle   json.RawMessage `json:"battle"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return InitiateResult{}, &ProtocolError{Op: op, Detail: err.Error()}
	}
	switch {
	case len(envelope.Battle) > 0 && string(envelope.Battle) != "null":
		var battle Battle
		if err := json.Unmarshal(envelope.Battle, &battle); err != nil {
			return InitiateResult{}, &ProtocolError{Op: op, Detail: err.Error()}
		}
		if err := checkBattle(op, "battle", &battle); err != nil {
			return InitiateResult{}, err
		}
		return InitiateResult{BattleID: battle.ID, Battle: &battle}, nil
	case envelope.BattleID > 0:
		return InitiateResult{BattleID: envelope.BattleID}, nil
	case envelope.ID > 0 && envelope.Status == StatusActive:
		var battle Battle
		if err := json.Unmarshal(raw, &battle); err != nil {
			return InitiateResult{}, &ProtocolError{Op: op, Detail: err.Error()}
		}
		return InitiateResult{BattleID: battle.ID, Battle: &battle}, nil
	case envelope.ID > 0:
		return InitiateResult{BattleID: envelope.ID}, nil
	}
	return InitiateResult{}, &ProtocolError{Op: op, Detail: "response carries neither battle nor battle_id"}
}

// RespondToChallenge accepts or declines an incoming challenge.
func (c *Client) RespondToChallenge(ctx context.Context, battleID int64, action RespondAction) (RespondResult, error) {
	if c == nil {
		return RespondResult{}, fmt.Errorf("client is nil")
	}
	if !action.Valid() {
		return RespondResult{}, fmt.Errorf("invalid respond action %q", action)
	}
	var res RespondResult
	body := map[string]any{"action": action}
	const op = "respond to challenge"
	if err := c.post(ctx, op, battlePath(battleID, "respond"), body, &res); err != nil {
		return RespondResult{}, err
	}
	// A decline carries no battle; an accept carries a full one.
	if res.Battle != nil {
		if err := checkBattle(op, "battle", res.Battle); err != nil {
			return RespondResult{}, err
		}
	}
	return res, nil
}

// SubmitAction plays attackID in the caller's turn.
func (c *Client) SubmitAction(ctx context.Context, battleID, attackID int64) (ActionResult, error) {
	if c == nil {
		return ActionResult{}, fmt.Errorf("client is nil")
	}
	var res struct {
		Message     string  `json:"message"`
		BattleState *Battle `json:"battle_state"`
	}
	body := map[string]any{"attack_id": attackID}
	const op = "submit action"
	if err := c.post(ctx, op, battlePath(battleID, "action"), body, &res); err != nil {
		return ActionResult{}, err
	}
	if err := checkBattle(op, "battle_state", res.BattleState); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Message: res.Message, Battle: res.BattleState}, nil
}

// Concede forfeits the battle.
func (c *Client) Concede(ctx context.Context, battleID int64) (ActionResult, error) {
	if c == nil {
		return ActionResult{}, fmt.Errorf("client is nil")
	}
	var res struct {
		Message    string  `json:"message"`
		FinalState *Battle `json:"final_state"`
	}
	const op = "concede"
	if err := c.post(ctx, op, battlePath(battleID, "concede"), nil, &res); err != nil {
		return ActionResult{}, err
	}
	if err := checkBattle(op, "final_state", res.FinalState); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Message: res.Message, Battle: res.FinalState}, nil
}

// CancelChallenge withdraws a challenge the caller initiated.
func (c *Client) CancelChallenge(ctx context.Context, battleID int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.post(ctx, "cancel challenge", battlePath(battleID, "cancel"), nil, nil)
}

// FetchMyStats returns the caller's counters.
func (c *Client) FetchMyStats(ctx context.Context) (Stats, error) {
	if c == nil {
		return Stats{}, fmt.Errorf("client is nil")
	}
	var stats Stats
	if err := c.get(ctx, "fetch my stats", "/users/me/stats/", nil, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// FetchLeaderboard returns the player leaderboard in server order.
func (c *Client) FetchLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var entries []LeaderboardEntry
	if err := c.get(ctx, "fetch leaderboard", "/users/leaderboard/", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchAttackLeaderboard returns attack usage statistics.
func (c *Client) FetchAttackLeaderboard(ctx context.Context, sortKey string, limit int) ([]AttackStat, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if key := strings.TrimSpace(sortKey); key != "" {
		values.Set("sort", key)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var stats []AttackStat
	if err := c.get(ctx, "fetch attack leaderboard", "/game/leaderboard/attacks/", values, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// checkBattle rejects a success payload whose battle is missing or lacks
// an id or status.
func checkBattle(op, field string, b *Battle) error {
	switch {
	case b == nil:
		return &ProtocolError{Op: op, Detail: "response carries no " + field}
	case !b.Valid():
		return &ProtocolError{Op: op, Detail: fmt.Sprintf("%s lacks id or status", field)}
	}
	return nil
}

func battlePath(battleID int64, verb string) string {
	p := "/game/battles/" + strconv.FormatInt(battleID, 10) + "/"
	if verb != "" {
		p += verb + "/"
	}
	return p
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, dest any) error {
	rel := &url.URL{Path: path}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	return c.do(ctx, op, http.MethodGet, rel, nil, dest)
}

func (c *Client) post(ctx context.Context, op, path string, body, dest any) error {
	return c.do(ctx, op, http.MethodPost, &url.URL{Path: path}, body, dest)
}

func (c *Client) do(ctx context.Context, op, method string, rel *url.URL, body, dest any) error {
	reqURL := c.resolve(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return &RejectedError{Op: op, Status: resp.StatusCode, Message: errorMessage(payload)}
	}
	if dest == nil {
		return nil
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return &ProtocolError{Op: op, Detail: "empty response body"}
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return &ProtocolError{Op: op, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// resolve appends rel to the base path so "/users/" under
// "http://host/api" becomes "http://host/api/users/".
func (c *Client) resolve(rel *url.URL) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + rel.Path
	u.RawQuery = rel.RawQuery
	return &u
}

func errorMessage(payload []byte) string {
	var body struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	for _, msg := range []string{body.Error, body.Detail, body.Message} {
		if s := strings.TrimSpace(msg); s != "" {
			return s
		}
	}
	return ""
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = defaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base %q: %w", apiBase, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
