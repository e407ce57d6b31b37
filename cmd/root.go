// Package cmd wires up the CLI flags and dispatches to the core.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"time"

	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"goicb/config"
	"goicb/internal/core"
	goicberr "goicb/internal/errors"
	"goicb/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X goicb/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses configuration and runs the chat client.
//
// Configuration precedence, lowest to highest: defaults, config file,
// GOICB_* environment, CLI flags, positional arguments.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()

	if path, err := config.DefaultConfigPath(); err == nil {
		if err := config.LoadFile(cfg, path); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("goicb", flag.ContinueOnError)

	// ── session ──────────────────────────────────────────────────
	var (
		timeoutSec int
		noHistory  bool
		debugCount int
	)
	fs.IntVarP(&timeoutSec, "timeout", "t", 0, "Server silence timeout in seconds (0 disables)")
	fs.BoolVarP(&noHistory, "no-history", "H", false, "Do not save chat history")
	fs.StringVar(&cfg.HistoryDir, "history-dir", cfg.HistoryDir, "Chat history directory")
	fs.IntVar(&cfg.MaxPings, "max-pings", cfg.MaxPings, "Unanswered keepalives before disconnecting")
	fs.IntVar(&cfg.ConnectRetries, "retry", cfg.ConnectRetries, "Connection attempts before giving up")
	fs.BoolVarP(&cfg.ExtendedPackets, "extended", "x", cfg.ExtendedPackets, "Enable the multi-packet message extension")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&debugCount, "debug", "d", "Increase debug verbosity (repeatable)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if len(args) == 0 {
		printUsage(fs)
		return fmt.Errorf("server required")
	}
	if showVersion {
		fmt.Printf("goicb %s\n", version)
		return nil
	}

	if fs.Changed("timeout") {
		cfg.NetTimeout = time.Duration(timeoutSec) * time.Second
	}
	if noHistory {
		cfg.EnableHistory = false
	}
	cfg.Verbose += debugCount

	// ── positional arguments: [nick@]host[:port] room ────────────
	remaining := fs.Args()
	switch len(remaining) {
	case 0:
		return fmt.Errorf("server required (use --help for usage)")
	case 1:
		if err := cfg.ParseTarget(remaining[0]); err != nil {
			return err
		}
	case 2:
		if err := cfg.ParseTarget(remaining[0]); err != nil {
			return err
		}
		cfg.Room = remaining[1]
	default:
		return fmt.Errorf("too many arguments")
	}

	if cfg.Nick == "" {
		cfg.Nick = osUsername()
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		tuser, thost, tport, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = tuser
		cfg.TunnelHost = thost
		cfg.TunnelPort = tport
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		fmt.Printf("configuration OK: %s as %s, room %s\n",
			util.FormatAddr(cfg.Host, cfg.Port), cfg.Nick, cfg.Room)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	// Verbosity 0 means normal chatter; -d raises it from there.
	logger := util.NewLogger(cfg.Verbose + 1)

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		logger.Verbose("stdin is not a terminal, running in pipe mode")
	}

	// SIGUSR1 prints a status line without disturbing the session.
	status := make(chan struct{}, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, unix.SIGUSR1)
	defer signal.Stop(sig)
	go func() {
		for range sig {
			select {
			case status <- struct{}{}:
			default:
			}
		}
	}()

	mode, err := core.Build(cfg, status, logger)
	if err != nil {
		return err
	}

	err = mode.Run(ctx)
	if goicberr.IsExpectedTermination(err) {
		logger.Info("%v", err)
		return nil
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// osUsername returns the login name for the default nickname.
func osUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `goicb – ICB chat client v%s

Usage:
  goicb [options] [nick@]host[:port] room

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  goicb vasya@chat.example.com lobby          Join #lobby as vasya
  goicb -t 60 -H chat.example.com hackers     Slow link, no history
  goicb -T admin@bastion internal-chat lobby  Connect via SSH gateway

Send SIGUSR1 to the process to print a session status line.
Chat history is saved under ~/.goicb/logs/ unless -H is given.
`)
}
