// Package app provides the orchestration layer for the duelist client.
//
// # Overview
//
// This package wires together configuration, logging, the game API client,
// the per-login session, polling and the UI. It is the composition root:
// every long-lived object is created here once and handed down.
//
// # Architecture
//
//  1. Load config (TOML file, .env, DUELIST_* overrides)
//  2. Open the JSON log file through zap
//  3. Build the gateway client for the game API
//  4. Create the session, restoring its outgoing challenges
//  5. Open the battle named on the command line, if any
//  6. Launch the background poller goroutine
//  7. Start the TUI and block until the user exits or ctx is cancelled
//  8. Close the session, dropping its state when logging out
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read config
//	       ├─────> logging.New()        JSON file logger
//	       ├─────> gateway.NewClient()  HTTP client
//	       ├─────> session.New()        Store + outgoing challenges
//	       ├─────> StartPoller()        Background reconciliation
//	       └─────> ui.Run()             Start TUI (blocks)
//
//	Background Poller Loop:
//	┌─────────────────────────────────────────┐
//	│ StartPoller() goroutine                 │
//	│  ├─> session.Refresh(background=true)   │
//	│  ├─> store.RecordPoll(err)              │
//	│  └─> wait calculateBackoff(failures)    │
//	└─────────────────────────────────────────┘
//
// # Polling Behavior
//
// The interval is policy owned here, not by the session (default 2 seconds).
// While the server is unreachable the wait doubles per consecutive transport
// failure up to maxBackoff (30 seconds), and drops back to the base interval
// on the first tick that reaches the server. Background ticks never surface
// transport failures to the user; the header shows an offline badge instead
// once two ticks in a row have failed.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid configuration
//   - Log file cannot be created
//   - Invalid API base URL
//
// Everything after startup is recoverable and is logged.
package app
