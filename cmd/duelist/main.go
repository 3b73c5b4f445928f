package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/duelist/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "duelist: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(fs *flag.FlagSet, args []string) (app.Options, error) {
	configPath := fs.String("config", "", "config file path (optional, defaults to ~/.config/duelist/config.toml)")
	pollSeconds := fs.Int("poll", 0, "refresh interval in seconds (optional, defaults to poll_seconds from config)")
	sessionID := fs.String("session", "", "resume a session by id (optional)")
	battleID := fs.Int64("battle", 0, "open this battle on startup (optional)")
	logout := fs.Bool("logout", false, "forget this session's sent challenges on exit")
	if err := fs.Parse(args); err != nil {
		return app.Options{}, err
	}

	opts := app.Options{
		ConfigPath: *configPath,
		SessionID:  *sessionID,
		BattleID:   *battleID,
		Logout:     *logout,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}
	return opts, nil
}
