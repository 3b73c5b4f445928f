// Package gateway provides the HTTP client for the dueling game API.
//
// # Overview
//
// The gateway is the only component that talks to the network. It turns each
// remote operation into a typed Go call and classifies every failure so the
// session core can decide whether to surface it or swallow it.
//
// # Architecture
//
//   - client.go: Gateway interface, HTTP client, request/response handling
//   - types.go: Data structures mirroring the game API payloads
//   - errors.go: Failure taxonomy
//
// # Client Usage
//
//	client, err := gateway.NewClient("http://localhost:8000/api", gateway.WithToken(tok))
//	if err != nil {
//		return err
//	}
//	battle, err := client.GetActiveBattle(ctx)
//	switch {
//	case errors.Is(err, gateway.ErrNotFound):
//		// no active battle
//	case err != nil:
//		return err
//	}
//
// # API Endpoints
//
// Reads:
//   - GET /users/                          challengeable users (caller excluded)
//   - GET /game/battles/requests/          incoming pending challenges
//   - GET /game/battles/active/            active battle, 404 when none
//   - GET /game/battles/{id}/              battle detail
//   - GET /users/me/stats/                 caller's counters
//   - GET /users/leaderboard/              player leaderboard
//   - GET /game/leaderboard/attacks/       attack statistics (?sort=&limit=)
//
// Writes:
//   - POST /game/battles/initiate/         {opponent_id, fight_as_bot}
//   - POST /game/battles/{id}/respond/     {action: accept|decline}
//   - POST /game/battles/{id}/action/      {attack_id}
//   - POST /game/battles/{id}/concede/
//   - POST /game/battles/{id}/cancel/
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: duelist/0.1
//   - Carry a fresh X-Request-ID for correlation with server logs
//   - Send Authorization: Bearer <token> when a token was configured
//   - Have a 10-second timeout (configurable via WithHTTPClient)
//
// # Error Handling
//
// Every failure is one of:
//
//   - *TransportError: no response reached the client (refused, timeout,
//     cancelled context, truncated body)
//   - *RejectedError: the server answered 4xx/5xx. Message is taken from
//     the "error", "detail" or "message" field of the body when present.
//     A 404 also matches errors.Is(err, ErrNotFound).
//   - *ProtocolError: a 2xx response whose body could not be decoded or
//     lacks a required field
//
// The client never retries. Retrying a turn submission blindly could play a
// move twice, so retry policy belongs to the caller.
//
// # Battle Payloads
//
// Battle keeps the fields the client reasons about (id, status, players,
// winner, whose_turn) typed and stores the rest of the object verbatim in
// Extra. MarshalJSON re-emits both halves, which lets the state package
// compare two battles over their complete serialized shape.
//
// # Thread Safety
//
// The Client is safe for concurrent use.
package gateway
