package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/five82/duelist/internal/gateway"
)

// attackOption is one entry of my_selected_attacks.
type attackOption struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Emoji         string `json:"emoji"`
	Power         int    `json:"power"`
	MomentumCost  int    `json:"momentum_cost"`
	MomentumGain  int    `json:"momentum_gain"`
	Description   string `json:"description"`
	IsSignature   bool   `json:"is_signature"`
	AccuracyBonus int    `json:"accuracy_bonus"`
}

// extraField decodes one opaque battle field into dst and reports whether
// it was present and well formed.
func extraField(b *gateway.Battle, name string, dst any) bool {
	if b == nil {
		return false
	}
	raw, ok := b.Extra[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func battleAttacks(b *gateway.Battle) []attackOption {
	var attacks []attackOption
	if !extraField(b, "my_selected_attacks", &attacks) {
		return nil
	}
	return attacks
}

// playerGauge renders "hp 80 · momentum 3" for player1 or player2,
// skipping whatever the payload omits.
func playerGauge(b *gateway.Battle, side string) string {
	var parts []string
	var hp int
	if extraField(b, "current_hp_"+side, &hp) {
		parts = append(parts, fmt.Sprintf("HP %d", hp))
	}
	var momentum int
	if extraField(b, "current_momentum_"+side, &momentum) {
		parts = append(parts, fmt.Sprintf("momentum %d", momentum))
	}
	return strings.Join(parts, " · ")
}

// turnSummary returns the last turn's log lines. The server sends either a
// list of strings or a single string.
func turnSummary(b *gateway.Battle) []string {
	var lines []string
	if extraField(b, "last_turn_summary", &lines) {
		return lines
	}
	var text string
	if extraField(b, "last_turn_summary", &text) && text != "" {
		return strings.Split(text, "\n")
	}
	return nil
}

// turnOwner names the participant whose move it is.
func turnOwner(b *gateway.Battle) string {
	switch b.WhoseTurn {
	case "player1":
		return playerName(b.Player1)
	case "player2":
		return playerName(b.Player2)
	}
	return b.WhoseTurn
}

func playerName(p *gateway.Player) string {
	if p == nil {
		return "?"
	}
	if p.Username == "" {
		return fmt.Sprintf("user %d", p.ID)
	}
	return p.Username
}
