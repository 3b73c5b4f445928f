// Package leaderboard caches the current user's stats and the player and
// attack rankings. Each list has its own loading flag and error so one
// failing fetch does not blank out the others.
package leaderboard

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/state"
)

// Attack ranking sort keys understood by the server.
const (
	SortByUsed = "used"
	SortByWins = "wins"

	DefaultAttackLimit = 50
)

const (
	msgStatsFailed   = "Could not load your stats."
	msgPlayersFailed = "Could not load the leaderboard."
	msgAttacksFailed = "Could not load attack stats."
)

// Fetcher is the subset of gateway.Gateway the cache needs.
type Fetcher interface {
	FetchMyStats(ctx context.Context) (gateway.Stats, error)
	FetchLeaderboard(ctx context.Context) ([]gateway.LeaderboardEntry, error)
	FetchAttackLeaderboard(ctx context.Context, sortKey string, limit int) ([]gateway.AttackStat, error)
}

// List carries the loading flag and error slot of one ranking.
type List struct {
	Loading bool
	Error   string
}

// Snapshot is a point-in-time copy of the cache.
type Snapshot struct {
	MyStats     gateway.Stats
	Players     []gateway.LeaderboardEntry
	Attacks     []gateway.AttackStat
	AttackSort  string
	StatsState  List
	PlayerState List
	AttackState List
	Revision    uint64
}

// Cache holds the leaderboard data for one session.
type Cache struct {
	fetch Fetcher
	log   *zap.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// New returns an empty cache. A nil logger discards logs.
func New(fetch Fetcher, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{fetch: fetch, log: log, snap: Snapshot{AttackSort: SortByUsed}}
}

// Snapshot returns a copy of the cache.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := c.snap
	snap.MyStats = gateway.Stats{}.Merge(c.snap.MyStats)
	snap.Players = append([]gateway.LeaderboardEntry(nil), c.snap.Players...)
	snap.Attacks = append([]gateway.AttackStat(nil), c.snap.Attacks...)
	return snap
}

// RefreshMyStats fetches the user's counters and merges them field by field
// into the cached value; counters missing from the response keep their value.
func (c *Cache) RefreshMyStats(ctx context.Context) error {
	c.update(func(s *Snapshot) { s.StatsState = List{Loading: true} })

	stats, err := c.fetch.FetchMyStats(ctx)
	if err != nil {
		c.log.Warn("stats refresh failed", zap.Error(err))
		c.update(func(s *Snapshot) { s.StatsState = List{Error: gateway.ServerMessage(err, msgStatsFailed)} })
		return err
	}

	c.update(func(s *Snapshot) {
		s.StatsState = List{}
		merged := s.MyStats.Merge(stats)
		if !state.SameShape(s.MyStats, merged) {
			s.MyStats = merged
			s.Revision++
		}
	})
	return nil
}

// RefreshPlayerLeaderboard fetches the player ranking and orders it by wins,
// most first, then by name ignoring case.
func (c *Cache) RefreshPlayerLeaderboard(ctx context.Context) error {
	c.update(func(s *Snapshot) { s.PlayerState = List{Loading: true} })

	entries, err := c.fetch.FetchLeaderboard(ctx)
	if err != nil {
		c.log.Warn("leaderboard refresh failed", zap.Error(err))
		c.update(func(s *Snapshot) { s.PlayerState = List{Error: gateway.ServerMessage(err, msgPlayersFailed)} })
		return err
	}

	SortPlayers(entries)
	c.update(func(s *Snapshot) {
		s.PlayerState = List{}
		if !state.SameShape(s.Players, entries) {
			s.Players = entries
			s.Revision++
		}
	})
	return nil
}

// RefreshAttackLeaderboard fetches the attack ranking for sortKey (SortByUsed
// or SortByWins) limited to limit rows. Empty or non-positive arguments fall
// back to SortByUsed and DefaultAttackLimit.
func (c *Cache) RefreshAttackLeaderboard(ctx context.Context, sortKey string, limit int) error {
	if sortKey != SortByWins {
		sortKey = SortByUsed
	}
	if limit <= 0 {
		limit = DefaultAttackLimit
	}
	c.update(func(s *Snapshot) { s.AttackState = List{Loading: true} })

	stats, err := c.fetch.FetchAttackLeaderboard(ctx, sortKey, limit)
	if err != nil {
		c.log.Warn("attack leaderboard refresh failed", zap.String("sort", sortKey), zap.Error(err))
		c.update(func(s *Snapshot) { s.AttackState = List{Error: gateway.ServerMessage(err, msgAttacksFailed)} })
		return err
	}

	SortAttacks(stats, sortKey)
	c.update(func(s *Snapshot) {
		s.AttackState = List{}
		if s.AttackSort != sortKey || !state.SameShape(s.Attacks, stats) {
			s.Attacks = stats
			s.AttackSort = sortKey
			s.Revision++
		}
	})
	return nil
}

func (c *Cache) update(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.snap)
}

// SortPlayers orders entries by wins descending, then by username ascending
// ignoring case.
func SortPlayers(entries []gateway.LeaderboardEntry) {
	names := newNameOrder()
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return names.less(entries[i].Username, entries[j].Username)
	})
}

// SortAttacks orders stats by the counter named by sortKey descending, then
// by name ascending ignoring case.
func SortAttacks(stats []gateway.AttackStat, sortKey string) {
	count := func(a gateway.AttackStat) int { return a.TimesUsed }
	if sortKey == SortByWins {
		count = func(a gateway.AttackStat) int { return a.Wins }
	}
	names := newNameOrder()
	sort.SliceStable(stats, func(i, j int) bool {
		if ci, cj := count(stats[i]), count(stats[j]); ci != cj {
			return ci > cj
		}
		return names.less(stats[i].Name, stats[j].Name)
	})
}

// nameOrder wraps a collator; collate.Collator is not safe for concurrent
// use, so each sort builds its own.
type nameOrder struct {
	col *collate.Collator
}

func newNameOrder() nameOrder {
	return nameOrder{col: collate.New(language.Und, collate.IgnoreCase)}
}

func (n nameOrder) less(a, b string) bool {
	return n.col.CompareString(a, b) < 0
}
