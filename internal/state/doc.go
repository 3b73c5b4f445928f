// Package state holds the per-session entity cache shared by the poller,
// the user-action paths and the UI.
//
// # Overview
//
// The Store keeps the latest known users list, incoming pending battles and
// the active battle, together with the user-visible feedback messages and
// loading flags. It is constructed once per session and torn down with it;
// there is no package-level instance.
//
// # Write Paths
//
// Every mutation funnels through one of two paths:
//
//	Diff-gated (polls, hydration):
//	  SetUsers / SetPendingBattles / SetActiveBattle / UpdatePendingBattles
//	  → stored only if the JSON serialization differs from the current value
//
//	Direct (causal responses to user actions):
//	  AssignActiveBattle
//	  → stored unconditionally
//
// Comparison covers the full payload, including the opaque battle fields,
// because the server provides no version counter.
//
// # Observing Changes
//
// Each real mutation bumps the slot's revision (Snapshot.Revision) and makes
// a non-blocking send on Changes(). No-op writes do neither, so a UI that
// re-renders on notification does not flicker on identical poll results.
//
// # Concurrency Model
//
// The Store uses a readers-writer lock. Conditional writes such as
// ReplaceActiveBattleIf evaluate their predicate and write under the same
// lock. Snapshot returns deep copies.
//
// A poll issued before a user action but resolved after it can still
// overwrite the causal update through the diff gate. The next poll tick
// re-confirms server truth; this bounded window is accepted rather than
// papered over with invented versioning.
package state
