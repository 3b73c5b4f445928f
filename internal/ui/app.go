package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/duelist/internal/config"
	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/leaderboard"
	"github.com/five82/duelist/internal/session"
	"github.com/five82/duelist/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewLobby View = iota
	ViewLeaderboard
	ViewLogs
)

// pane is one of the selectable lists in the lobby.
type pane int

const (
	paneUsers pane = iota
	panePending
	paneOutgoing
	paneCount
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Session   *session.Session
	Board     *leaderboard.Cache
	Config    *config.Config
	PollTick  time.Duration
	ThemeName string
	LogPath   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx      context.Context
	sess     *session.Session
	store    *state.Store
	board    *leaderboard.Cache
	config   *config.Config
	logPath  string
	pollTick time.Duration

	// UI state
	theme       Theme
	keys        keyMap
	help        help.Model
	currentView View
	focused     pane
	cursor      [paneCount]int
	width       int
	height      int
	ready       bool
	showHelp    bool
	busy        string // label of the in-flight user action

	// Data state
	snapshot    state.Snapshot
	outgoing    []session.OutgoingChallenge
	boardSnap   leaderboard.Snapshot
	lastUpdated time.Time

	// Log state
	logViewport viewport.Model
	logLines    []string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	m := Model{
		ctx:         ctx,
		sess:        opts.Session,
		board:       opts.Board,
		config:      opts.Config,
		logPath:     opts.LogPath,
		pollTick:    pollTick,
		theme:       GetTheme(themeName),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		currentView: ViewLobby,
	}
	if m.sess != nil {
		m.store = m.sess.Store()
	}
	if m.board != nil {
		m.boardSnap = m.board.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
	}
	if m.sess != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.sess), waitForChangeCmd(m.ctx, m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.contentHeight())
		} else {
			m.logViewport.Width = msg.Width
			m.logViewport.Height = m.contentHeight()
		}
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case storeChangedMsg:
		// Re-arm the watcher and pick up the new state.
		return m, tea.Batch(fetchSnapshotCmd(m.sess), waitForChangeCmd(m.ctx, m.store))

	case snapshotMsg:
		m.snapshot = msg.snapshot
		m.outgoing = msg.outgoing
		m.lastUpdated = time.Now()
		m.clampCursors()
		return m, nil

	case boardMsg:
		m.boardSnap = leaderboard.Snapshot(msg)
		return m, nil

	case logTailMsg:
		m.logLines = msg
		m.logViewport.SetContent(m.renderLogLines())
		m.logViewport.GotoBottom()
		return m, nil

	case actionDoneMsg:
		if m.busy == msg.label {
			m.busy = ""
		}
		if msg.board {
			return m, fetchBoardCmd(m.board)
		}
		return m, fetchSnapshotCmd(m.sess)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewLobby
		return m, nil

	case key.Matches(msg, m.keys.ViewLeaderboard):
		m.currentView = ViewLeaderboard
		return m.refreshBoard()

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, logTailCmd(m.logPath)
	}

	switch m.currentView {
	case ViewLobby:
		return m.handleLobbyKey(msg)
	case ViewLeaderboard:
		return m.handleBoardKey(msg)
	case ViewLogs:
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleLobbyKey drives selection, challenges and battle actions.
func (m Model) handleLobbyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, nil
	}
	sess := m.sess

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Tab):
		m.focused = (m.focused + 1) % paneCount

	case key.Matches(msg, m.keys.Refresh):
		return m.startAction("refresh", func(ctx context.Context) error {
			return sess.Refresh(ctx, false)
		})

	case key.Matches(msg, m.keys.Challenge, m.keys.ChallengeBot):
		u, ok := m.selectedUser()
		if !ok {
			return m, nil
		}
		asBot := key.Matches(msg, m.keys.ChallengeBot)
		return m.startAction("challenge", func(ctx context.Context) error {
			return sess.InitiateChallenge(ctx, u.ID, asBot)
		})

	case key.Matches(msg, m.keys.Accept, m.keys.Decline):
		b, ok := m.selectedPending()
		if !ok {
			return m, nil
		}
		action := gateway.Accept
		if key.Matches(msg, m.keys.Decline) {
			action = gateway.Decline
		}
		return m.startAction("respond", func(ctx context.Context) error {
			return sess.RespondToChallenge(ctx, b.ID, action)
		})

	case key.Matches(msg, m.keys.Cancel):
		oc, ok := m.selectedOutgoing()
		if !ok {
			return m, nil
		}
		return m.startAction("cancel", func(ctx context.Context) error {
			return sess.CancelChallenge(ctx, oc.BattleID)
		})

	case key.Matches(msg, m.keys.Open):
		id := m.selectedBattleID()
		if id == 0 {
			return m, nil
		}
		return m.startAction("open", func(ctx context.Context) error {
			return sess.FetchBattleByID(ctx, id)
		})

	case key.Matches(msg, m.keys.Attack):
		b := m.snapshot.ActiveBattle
		if b == nil || b.Status != gateway.StatusActive {
			return m, nil
		}
		attacks := battleAttacks(b)
		idx := int(msg.String()[0] - '1')
		if idx < 0 || idx >= len(attacks) {
			return m, nil
		}
		battleID, attackID := b.ID, attacks[idx].ID
		return m.startAction("attack", func(ctx context.Context) error {
			return sess.SubmitTurnAction(ctx, battleID, attackID)
		})

	case key.Matches(msg, m.keys.Concede):
		b := m.snapshot.ActiveBattle
		if b == nil || b.Status != gateway.StatusActive {
			return m, nil
		}
		battleID := b.ID
		return m.startAction("concede", func(ctx context.Context) error {
			return sess.Concede(ctx, battleID)
		})
	}
	return m, nil
}

// handleBoardKey handles the leaderboard view.
func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.board == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m.refreshBoard()
	case key.Matches(msg, m.keys.ToggleSort):
		sortKey := leaderboard.SortByWins
		if m.boardSnap.AttackSort == leaderboard.SortByWins {
			sortKey = leaderboard.SortByUsed
		}
		board := m.board
		return m.startBoardAction("attacks", func(ctx context.Context) error {
			return board.RefreshAttackLeaderboard(ctx, sortKey, leaderboard.DefaultAttackLimit)
		})
	}
	return m, nil
}

// refreshBoard reloads all three leaderboard lists concurrently.
func (m Model) refreshBoard() (tea.Model, tea.Cmd) {
	if m.board == nil {
		return m, nil
	}
	board := m.board
	sortKey := m.boardSnap.AttackSort
	return m, tea.Batch(
		boardActionCmd(m.ctx, "stats", board.RefreshMyStats),
		boardActionCmd(m.ctx, "players", board.RefreshPlayerLeaderboard),
		boardActionCmd(m.ctx, "attacks", func(ctx context.Context) error {
			return board.RefreshAttackLeaderboard(ctx, sortKey, leaderboard.DefaultAttackLimit)
		}),
		fetchBoardCmd(board),
	)
}

func (m Model) startAction(label string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = label
	// The store reflects loading flags as soon as the action starts.
	return m, tea.Batch(actionCmd(m.ctx, label, fn), fetchSnapshotCmd(m.sess))
}

func (m Model) startBoardAction(label string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = label
	return m, tea.Batch(boardActionCmd(m.ctx, label, fn), fetchBoardCmd(m.board))
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.sess != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.sess))
	}
	if m.currentView == ViewLogs {
		cmds = append(cmds, logTailCmd(m.logPath))
	}
	if m.currentView == ViewLeaderboard && m.board != nil {
		cmds = append(cmds, fetchBoardCmd(m.board))
	}

	// Schedule next tick
	cmds = append(cmds, tickCmd(m.pollTick))

	return m, tea.Batch(cmds...)
}

// contentHeight is the space left below the header, command bar and
// feedback line.
func (m Model) contentHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) moveCursor(delta int) {
	n := m.paneLen(m.focused)
	if n == 0 {
		return
	}
	next := m.cursor[m.focused] + delta
	if next < 0 {
		next = 0
	}
	if next >= n {
		next = n - 1
	}
	m.cursor[m.focused] = next
}

func (m *Model) clampCursors() {
	for p := pane(0); p < paneCount; p++ {
		n := m.paneLen(p)
		switch {
		case n == 0:
			m.cursor[p] = 0
		case m.cursor[p] >= n:
			m.cursor[p] = n - 1
		}
	}
}

func (m Model) paneLen(p pane) int {
	switch p {
	case paneUsers:
		return len(m.snapshot.Users)
	case panePending:
		return len(m.snapshot.PendingBattles)
	case paneOutgoing:
		return len(m.outgoing)
	}
	return 0
}

func (m Model) selectedUser() (gateway.User, bool) {
	if m.focused != paneUsers || len(m.snapshot.Users) == 0 {
		return gateway.User{}, false
	}
	return m.snapshot.Users[m.cursor[paneUsers]], true
}

func (m Model) selectedPending() (gateway.Battle, bool) {
	if m.focused != panePending || len(m.snapshot.PendingBattles) == 0 {
		return gateway.Battle{}, false
	}
	return m.snapshot.PendingBattles[m.cursor[panePending]], true
}

func (m Model) selectedOutgoing() (session.OutgoingChallenge, bool) {
	if m.focused != paneOutgoing || len(m.outgoing) == 0 {
		return session.OutgoingChallenge{}, false
	}
	return m.outgoing[m.cursor[paneOutgoing]], true
}

// selectedBattleID returns the battle behind the focused pending or
// outgoing row, or zero.
func (m Model) selectedBattleID() int64 {
	if b, ok := m.selectedPending(); ok {
		return b.ID
	}
	if oc, ok := m.selectedOutgoing(); ok {
		return oc.BattleID
	}
	return 0
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderFeedback())
	b.WriteString("\n")
	b.WriteString(m.renderContent())

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLobby:
		return m.renderLobby()
	case ViewLeaderboard:
		return m.renderLeaderboard()
	case ViewLogs:
		return m.logViewport.View()
	default:
		return ""
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		// Cancelled from outside, e.g. by a signal.
		return nil
	}
	return err
}
