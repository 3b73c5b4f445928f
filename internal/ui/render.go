package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/logtail"
)

func (m Model) renderHeader() string {
	styles := m.theme.Styles()

	parts := []string{styles.Logo.Render("duelist")}
	if m.sess != nil {
		id := m.sess.ID()
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, styles.MutedText.Render("session "+id))
	}
	if m.config != nil && m.config.APIBase != "" {
		parts = append(parts, styles.FaintText.Render(m.config.APIBase))
	}

	if m.snapshot.IsOffline() {
		parts = append(parts, styles.StatusStyle("declined").Render("OFFLINE"))
	} else if !m.snapshot.LastUpdated.IsZero() {
		parts = append(parts, styles.SuccessText.Render("online"))
	}
	if !m.lastUpdated.IsZero() {
		parts = append(parts, styles.FaintText.Render("updated "+m.lastUpdated.Format("15:04:05")))
	}
	if m.busy != "" {
		parts = append(parts, styles.WarningText.Render(m.busy+"..."))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderCommandBar() string {
	return m.theme.Styles().Footer.Width(m.width).Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

// renderFeedback shows the most relevant message: errors win over
// confirmations, battle feedback is shown next to action feedback.
func (m Model) renderFeedback() string {
	styles := m.theme.Styles()
	fb := m.snapshot.Feedback

	var parts []string
	switch {
	case fb.ActionError != "":
		parts = append(parts, styles.DangerText.Render(fb.ActionError))
	case fb.ActionMessage != "":
		parts = append(parts, styles.SuccessText.Render(fb.ActionMessage))
	}
	switch {
	case fb.BattleError != "":
		parts = append(parts, styles.DangerText.Render(fb.BattleError))
	case fb.BattleMessage != "":
		parts = append(parts, styles.InfoText.Render(fb.BattleMessage))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, "  |  ")
}

// renderLobby lays the three lists out on the left and the battle on the
// right.
func (m Model) renderLobby() string {
	listWidth := m.width/2 - 2
	if listWidth < 20 {
		listWidth = 20
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderPane(paneUsers, "Players", m.userRows(), listWidth),
		m.renderPane(panePending, "Incoming challenges", m.pendingRows(), listWidth),
		m.renderPane(paneOutgoing, "Sent challenges", m.outgoingRows(), listWidth),
	)
	right := m.renderBattle(m.width - listWidth - 6)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) renderPane(p pane, title string, rows []string, width int) string {
	styles := m.theme.Styles()
	frame := styles.Panel
	if m.focused == p {
		frame = styles.FocusedPanel
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render(title))
	if m.paneLoading(p) {
		b.WriteString(styles.FaintText.Render("  loading"))
	}
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString(styles.FaintText.Render("none"))
	}
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		if m.focused == p && i == m.cursor[p] {
			b.WriteString(styles.Selected.Render("> " + row))
			continue
		}
		b.WriteString(styles.Text.Render("  " + row))
	}
	return frame.Width(width).Render(b.String())
}

func (m Model) paneLoading(p pane) bool {
	switch p {
	case paneUsers:
		return m.snapshot.Loading.Users
	case panePending:
		return m.snapshot.Loading.Pending
	}
	return false
}

func (m Model) userRows() []string {
	sent := make(map[int64]int64, len(m.outgoing))
	for _, oc := range m.outgoing {
		sent[oc.OpponentID] = oc.BattleID
	}
	rows := make([]string, 0, len(m.snapshot.Users))
	for _, u := range m.snapshot.Users {
		row := fmt.Sprintf("%s  lvl %d", playerName(&u), u.Level)
		if id, ok := sent[u.ID]; ok {
			row += fmt.Sprintf("  (challenged, #%d)", id)
		}
		rows = append(rows, row)
	}
	return rows
}

func (m Model) pendingRows() []string {
	rows := make([]string, 0, len(m.snapshot.PendingBattles))
	for _, b := range m.snapshot.PendingBattles {
		rows = append(rows, fmt.Sprintf("#%d from %s", b.ID, playerName(b.Player1)))
	}
	return rows
}

func (m Model) outgoingRows() []string {
	names := make(map[int64]string, len(m.snapshot.Users))
	for _, u := range m.snapshot.Users {
		names[u.ID] = u.Username
	}
	rows := make([]string, 0, len(m.outgoing))
	for _, oc := range m.outgoing {
		name := names[oc.OpponentID]
		if name == "" {
			name = fmt.Sprintf("user %d", oc.OpponentID)
		}
		rows = append(rows, fmt.Sprintf("#%d to %s", oc.BattleID, name))
	}
	return rows
}

func (m Model) renderBattle(width int) string {
	styles := m.theme.Styles()
	if width < 20 {
		width = 20
	}
	b := m.snapshot.ActiveBattle

	var out strings.Builder
	out.WriteString(styles.Title.Render("Battle"))
	if m.snapshot.Loading.Battle {
		out.WriteString(styles.FaintText.Render("  loading"))
	}
	if m.snapshot.Loading.Conceding {
		out.WriteString(styles.WarningText.Render("  conceding"))
	}
	out.WriteString("\n")

	if b == nil {
		out.WriteString(styles.MutedText.Render("No active battle. Press c to challenge a player or b to fight as a bot."))
		return styles.Panel.Width(width).Render(out.String())
	}

	fmt.Fprintf(&out, "#%d %s\n\n", b.ID, styles.StatusStyle(string(b.Status)).Render(string(b.Status)))
	for _, side := range []struct {
		key    string
		player *gateway.Player
	}{{"player1", b.Player1}, {"player2", b.Player2}} {
		line := styles.Text.Render(playerName(side.player))
		if gauge := playerGauge(b, side.key); gauge != "" {
			line += "  " + styles.MutedText.Render(gauge)
		}
		out.WriteString(line + "\n")
	}

	switch {
	case b.Winner != nil:
		out.WriteString("\n" + styles.SuccessText.Render("Winner: "+playerName(b.Winner)) + "\n")
	case b.Status == gateway.StatusActive && b.WhoseTurn != "":
		out.WriteString("\n" + styles.AccentText.Render("Turn: "+turnOwner(b)) + "\n")
	}

	if summary := turnSummary(b); len(summary) > 0 {
		out.WriteString("\n" + styles.MutedText.Render("Last turn") + "\n")
		for _, line := range summary {
			out.WriteString(styles.Text.Render("  "+line) + "\n")
		}
	}

	if b.Status == gateway.StatusActive {
		if attacks := battleAttacks(b); len(attacks) > 0 {
			out.WriteString("\n" + styles.MutedText.Render("Attacks") + "\n")
			for i, a := range attacks {
				if i >= 6 {
					break
				}
				label := strings.TrimSpace(a.Emoji + " " + a.Name)
				fmt.Fprintf(&out, "%s %s %s\n",
					styles.AccentText.Render(fmt.Sprintf("[%d]", i+1)),
					styles.Text.Render(label),
					styles.FaintText.Render(fmt.Sprintf("pow %d  cost %d", a.Power, a.MomentumCost)))
			}
		}
		out.WriteString(styles.FaintText.Render("C to concede"))
	}
	return styles.Panel.Width(width).Render(strings.TrimRight(out.String(), "\n"))
}

func (m Model) renderLeaderboard() string {
	styles := m.theme.Styles()
	snap := m.boardSnap

	var out strings.Builder
	out.WriteString(styles.Title.Render("Your stats") + listState(styles, snap.StatsState.Loading, snap.StatsState.Error) + "\n")
	out.WriteString(styles.Text.Render(formatStats(snap.MyStats)) + "\n\n")

	out.WriteString(styles.Title.Render("Players") + listState(styles, snap.PlayerState.Loading, snap.PlayerState.Error) + "\n")
	for i, e := range snap.Players {
		fmt.Fprintf(&out, "%3d. %-20s %s\n", i+1, e.Username,
			styles.MutedText.Render(fmt.Sprintf("%d W / %d L  lvl %d", e.Wins, e.Losses, e.Level)))
	}
	out.WriteString("\n")

	title := fmt.Sprintf("Attacks (by %s, s to switch)", snap.AttackSort)
	out.WriteString(styles.Title.Render(title) + listState(styles, snap.AttackState.Loading, snap.AttackState.Error) + "\n")
	for i, a := range snap.Attacks {
		label := strings.TrimSpace(a.Emoji + " " + a.Name)
		fmt.Fprintf(&out, "%3d. %-24s %s\n", i+1, label,
			styles.MutedText.Render(fmt.Sprintf("used %d  wins %d  by %s", a.TimesUsed, a.Wins, a.Creator)))
	}
	return out.String()
}

func listState(styles Styles, loading bool, errMsg string) string {
	switch {
	case errMsg != "":
		return "  " + styles.DangerText.Render(errMsg)
	case loading:
		return "  " + styles.FaintText.Render("loading")
	}
	return ""
}

func formatStats(s gateway.Stats) string {
	val := func(p *int) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprint(*p)
	}
	return fmt.Sprintf("level %s  wins %s  losses %s  played %s  streak %s (best %s)",
		val(s.Level), val(s.Wins), val(s.Losses), val(s.BattlesPlayed), val(s.WinStreak), val(s.BestWinStreak))
}

// renderLogLines colorizes the tail of the zap log file.
func (m Model) renderLogLines() string {
	styles := m.theme.Styles()
	if len(m.logLines) == 0 {
		return styles.FaintText.Render("log is empty")
	}
	var out strings.Builder
	for _, e := range logtail.ParseLines(m.logLines) {
		if e.Raw != "" {
			out.WriteString(styles.Text.Render(e.Raw) + "\n")
			continue
		}
		fmt.Fprintf(&out, "%s %s %s",
			styles.FaintText.Render(e.Time.Format("15:04:05")),
			styles.LevelStyle(e.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level))),
			styles.Text.Render(e.Message))
		if fields := e.FieldString(); fields != "" {
			out.WriteString(" " + styles.MutedText.Render(fields))
		}
		out.WriteString("\n")
	}
	return strings.TrimRight(out.String(), "\n")
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	h := m.help
	h.ShowAll = true
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render("Keys"),
		"",
		h.View(m.keys),
		"",
		styles.FaintText.Render("Themes: "+strings.Join(ThemeNames(), ", ")+"  (any key to close)"),
	)
}
