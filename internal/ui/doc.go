// Package ui provides the terminal user interface for duelist.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. It never talks to the game API directly:
// every action goes through session.Session, and everything it shows comes
// from a state.Store snapshot or a leaderboard.Cache snapshot. Outcomes of
// actions reach the screen through the store's feedback slots, the same way
// a background poll's results do.
//
// # Views
//
//   - Lobby: players, incoming challenges and sent challenges on the left,
//     the active battle on the right
//   - Leaderboard: the user's stats, the player ranking and attack usage
//   - Logs: the tail of the client's own JSON log file
//
// # Event Flow
//
//  1. Init fetches a snapshot and starts watching the store's change feed
//  2. A change notification or a tick re-reads the snapshot
//  3. Keys start session operations as tea.Cmds; the model marks itself busy
//     until the matching actionDoneMsg arrives
//  4. Context cancellation shuts the program down
//
// # Key Bindings
//
//   - j/k: Move within the focused list, tab switches lists
//   - c / b: Challenge the selected player (b fights as a bot)
//   - a / d: Accept or decline the selected incoming challenge
//   - x: Cancel the selected sent challenge
//   - enter: Open the battle behind the selected challenge
//   - 1-6: Play the matching attack, C concedes
//   - r: Refresh, L leaderboard, l logs, esc back to the lobby
//   - T: Cycle theme, ?: help, q or Ctrl+C: quit
package ui
