package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/duelist/internal/config"
	"github.com/five82/duelist/internal/gateway"
	"github.com/five82/duelist/internal/leaderboard"
	"github.com/five82/duelist/internal/logging"
	"github.com/five82/duelist/internal/session"
	"github.com/five82/duelist/internal/ui"
)

// Options configure the duelist application.
type Options struct {
	ConfigPath string
	PollEvery  int    // seconds; zero uses the configured value
	SessionID  string // empty uses DUELIST_SESSION or a fresh id
	BattleID   int64  // battle to open on startup, zero for none
	Logout     bool   // drop the session's persisted state on exit
}

// Run boots the duelist TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.SessionID != "" {
		cfg.SessionID = opts.SessionID
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := gateway.NewClient(cfg.APIBase, gateway.WithToken(cfg.Token))
	if err != nil {
		return fmt.Errorf("init game client: %w", err)
	}

	sess, err := session.New(session.Options{
		Gateway:  client,
		Logger:   logger,
		StateDir: cfg.StateDir,
		ID:       cfg.SessionID,
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	logger.Info("session started",
		zap.String("session", sess.ID()),
		zap.String("api_base", cfg.APIBase),
		zap.Int("outgoing", len(sess.Outgoing())))

	board := leaderboard.New(client, logger)

	if opts.BattleID > 0 {
		if err := sess.FetchBattleByID(ctx, opts.BattleID); err != nil {
			logger.Warn("open battle failed", zap.Int64("battle_id", opts.BattleID), zap.Error(err))
		}
	}

	interval := cfg.PollEvery
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	// Start background poller; its first tick fills the store.
	StartPoller(ctx, sess, interval, logger)

	uiErr := ui.Run(ui.Options{
		Context:   ctx,
		Session:   sess,
		Board:     board,
		Config:    &cfg,
		PollTick:  time.Second,
		ThemeName: cfg.Theme,
		LogPath:   cfg.LogFile,
	})

	if err := sess.Close(opts.Logout); err != nil {
		logger.Warn("close session failed", zap.Error(err))
	}
	logger.Info("session ended", zap.Bool("logout", opts.Logout))
	return uiErr
}
