package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/duelist/internal/leaderboard"
	"github.com/five82/duelist/internal/logtail"
	"github.com/five82/duelist/internal/session"
	"github.com/five82/duelist/internal/state"
)

// logTailLines bounds how much of the client log the logs view loads.
const logTailLines = 500

// Messages

type tickMsg time.Time

type snapshotMsg struct {
	snapshot state.Snapshot
	outgoing []session.OutgoingChallenge
}

type storeChangedMsg state.Slot

type boardMsg leaderboard.Snapshot

type logTailMsg []string

// actionDoneMsg reports a finished user action. Outcomes reach the user
// through the store's feedback slots, so the error is informational only.
type actionDoneMsg struct {
	label string
	board bool
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(sess *session.Session) tea.Cmd {
	if sess == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg{
			snapshot: sess.Store().Snapshot(),
			outgoing: sess.Outgoing(),
		}
	}
}

// waitForChangeCmd blocks until the store reports a mutation.
func waitForChangeCmd(ctx context.Context, store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	changes := store.Changes()
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case slot := <-changes:
			return storeChangedMsg(slot)
		}
	}
}

func fetchBoardCmd(board *leaderboard.Cache) tea.Cmd {
	if board == nil {
		return nil
	}
	return func() tea.Msg {
		return boardMsg(board.Snapshot())
	}
}

func actionCmd(ctx context.Context, label string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{label: label, err: fn(ctx)}
	}
}

func boardActionCmd(ctx context.Context, label string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{label: label, board: true, err: fn(ctx)}
	}
}

func logTailCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines)
		if err != nil {
			return logTailMsg{"could not read " + path + ": " + err.Error()}
		}
		return logTailMsg(lines)
	}
}
