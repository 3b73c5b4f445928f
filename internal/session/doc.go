// Package session is the reconciliation engine of the client: it keeps the
// entity cache in step with the game server and drives the challenge and
// battle flows.
//
// # Overview
//
// A Session is built once per login and carries everything that used to be
// process-wide: the state.Store, the gateway and the outgoing-challenge map.
// Tests construct as many independent sessions as they need.
//
// # Components
//
//   - reconcile.go: RefreshUsers, RefreshPendingBattles, RefreshActiveBattle,
//     RefreshOutgoing and the concurrent Refresh used by the poller
//   - challenges.go: InitiateChallenge, RespondToChallenge, CancelChallenge
//   - battle.go: SubmitTurnAction, Concede, FetchBattleByID
//
// # Background vs User-Initiated
//
// Every refresh takes a background flag. A background poll that fails with a
// gateway.TransportError leaves the cache and the feedback untouched; the
// stale data stays on screen. Any other failure, and every failure of a
// user-initiated refresh, is surfaced. User-initiated refreshes clear their
// feedback messages before starting; background ones never do.
//
// # Outgoing Challenges
//
// The server does not list the challenges a user sent, so the session keeps
// an opponent id to battle id map. An entry is removed when a battle with
// that opponent shows up, when the challenge is cancelled, or when the
// opponent declines (seen by RefreshOutgoing). The map is written to the
// state directory after every change and deleted on logout; losing it only
// costs UX smoothness, never correctness.
//
// # Causal Updates
//
// Responses to user actions (accept, turn action, concede, an immediately
// resolved challenge) are assigned to the active battle slot directly. Poll
// results go through the diff gate. See package state for the accepted
// stale-poll window.
package session
