package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/five82/duelist/internal/gateway"
)

func TestThemeNames(t *testing.T) {
	assert.Equal(t, []string{"Nightfox", "Kanagawa", "Slate"}, ThemeNames())
}

func TestNextTheme(t *testing.T) {
	tests := []struct {
		current string
		want    string
	}{
		{"Nightfox", "Kanagawa"},
		{"Kanagawa", "Slate"},
		{"Slate", "Nightfox"},
		{"Unknown", "Nightfox"},
	}
	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			assert.Equal(t, tt.want, NextTheme(tt.current))
		})
	}
}

func TestGetTheme_FallsBackToNightfox(t *testing.T) {
	assert.Equal(t, "Nightfox", GetTheme("Dracula").Name)
	assert.Equal(t, "Slate", GetTheme("Slate").Name)
}

func TestThemes_ColorEveryBattleStatus(t *testing.T) {
	statuses := []gateway.BattleStatus{
		gateway.StatusPending, gateway.StatusActive, gateway.StatusFinished,
		gateway.StatusDeclined, gateway.StatusCancelled,
	}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, status := range statuses {
			assert.NotEmpty(t, th.StatusColors[string(status)], "%s lacks %s", name, status)
		}
	}
}

func TestStatusStyle_UnknownUsesMuted(t *testing.T) {
	th := GetTheme("Nightfox")
	style := th.Styles().StatusStyle("mystery")
	assert.Equal(t, lipgloss.Color(th.Muted), style.GetBackground())
}
