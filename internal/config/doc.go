// Package config loads the client configuration.
//
// # Overview
//
// The client needs to know where the game API lives, which token to send,
// how often to poll and where to keep its state and log file. All of it is
// optional; a fresh install runs against a local development server.
//
// # Resolution Order
//
// Load builds the Config in layers, later layers winning:
//
//  1. Hardcoded defaults
//  2. The TOML file (explicit path, or ~/.config/duelist/config.toml);
//     a missing file is not an error
//  3. A .env file in the working directory, if present
//  4. DUELIST_* environment variables
//
// Blank values never override a lower layer.
//
// # Default Values
//
//   - API base: http://127.0.0.1:8000/api
//   - Poll interval: 2 seconds
//   - State directory: ~/.local/state/duelist
//   - Log file: <state_dir>/duelist.log
//   - Log level: info
//
// # TOML Format
//
//	api_base = "https://duel.example/api"
//	token = "..."
//	poll_seconds = 2
//	state_dir = "~/.local/state/duelist"
//	log_file = "~/.local/state/duelist/duelist.log"
//	log_level = "info"
//	theme = "Nightfox"
//
// # Environment
//
// DUELIST_API_BASE, DUELIST_TOKEN, DUELIST_POLL_SECONDS, DUELIST_STATE_DIR,
// DUELIST_LOG_FILE, DUELIST_LOG_LEVEL and DUELIST_THEME mirror the file keys.
// DUELIST_SESSION pins the session id so a restarted client picks up the
// outgoing challenges of the same session; without it every run is a new
// session.
//
// # Path Expansion
//
// State and log paths accept a leading tilde and are returned absolute.
package config
