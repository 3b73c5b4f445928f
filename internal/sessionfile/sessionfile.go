// Package sessionfile persists the outgoing-challenge map for the lifetime
// of one client session. Files live under the state directory as
// session-<id>.toml and are removed on logout. Files nobody reopens are
// cleaned up by Prune.
package sessionfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type file struct {
	Challenges []challenge `toml:"challenge"`
}

type challenge struct {
	OpponentID int64 `toml:"opponent_id"`
	BattleID   int64 `toml:"battle_id"`
}

// Path returns the file backing sessionID under dir.
func Path(dir, sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	resolved, err := expandPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolved, "session-"+id+".toml"), nil
}

// Load reads the outgoing challenges (opponent id -> battle id) recorded
// for sessionID. The data is advisory: a missing or unreadable file yields
// an empty map rather than an error.
func Load(dir, sessionID string) (map[int64]int64, error) {
	out := make(map[int64]int64)

	path, err := Path(dir, sessionID)
	if err != nil {
		return out, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return out, nil // Graceful degradation
	}
	defer func() { _ = f.Close() }()

	bytes, err := io.ReadAll(f)
	if err != nil {
		return out, nil // Graceful degradation
	}

	var data file
	if err := toml.Unmarshal(bytes, &data); err != nil {
		return out, nil // Graceful degradation
	}
	for _, c := range data.Challenges {
		if c.OpponentID > 0 && c.BattleID > 0 {
			out[c.OpponentID] = c.BattleID
		}
	}
	return out, nil
}

// Save writes challenges for sessionID, creating directories as needed.
func Save(dir, sessionID string, challenges map[int64]int64) error {
	path, err := Path(dir, sessionID)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data := file{Challenges: make([]challenge, 0, len(challenges))}
	for opponent, battle := range challenges {
		data.Challenges = append(data.Challenges, challenge{OpponentID: opponent, BattleID: battle})
	}
	sort.Slice(data.Challenges, func(i, j int) bool {
		return data.Challenges[i].OpponentID < data.Challenges[j].OpponentID
	})

	bytes, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Remove deletes the file for sessionID. A missing file is not an error.
func Remove(dir, sessionID string) error {
	path, err := Path(dir, sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Prune removes session files under dir that have not been written for
// longer than maxAge, except the one belonging to keepID. It returns the
// number of files removed.
func Prune(dir, keepID string, maxAge time.Duration) (int, error) {
	resolved, err := expandPath(dir)
	if err != nil {
		return 0, err
	}
	keep := ""
	if keepID != "" {
		if keep, err = Path(dir, keepID); err != nil {
			return 0, err
		}
	}

	matches, err := filepath.Glob(filepath.Join(resolved, "session-*.toml"))
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, path := range matches {
		if path == keep {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("prune session: %w", err)
		}
		removed++
	}
	return removed, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
