// Package logtail reads and decodes the tail of the client's own log file.
//
// # Overview
//
// The client logs JSON lines through zap to a file (the terminal belongs to
// the TUI). The log pane shows the last few hundred of those lines, so this
// package extracts them without loading the whole file and turns each one
// into an Entry.
//
// # Reading Log Files
//
// Read keeps a ring buffer of maxLines entries and scans the file once:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line in file:
//	   - Store line at current index
//	   - Increment index (wrapping at maxLines)
//	3. Return the buffer starting at the oldest line
//
// Memory is O(maxLines). A non-positive maxLines returns the whole file.
// A missing file yields nil, nil.
//
// # Decoding
//
// Parse understands zap's production JSON encoding (level, ts, msg plus
// arbitrary fields). Anything else, such as a panic trace written to the
// same file, is returned verbatim in Entry.Raw rather than dropped.
//
// Styling is left to the UI.
package logtail
