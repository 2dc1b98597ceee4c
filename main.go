// ABOUTME: Entry point for the KisanDost farmer assistant
// ABOUTME: Parses CLI flags, sets up logging and dispatches commands
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kisandost/kisandost-go/internal/app"
	"github.com/kisandost/kisandost-go/internal/config"
	"github.com/kisandost/kisandost-go/internal/genai"
)

// globals are the persistent flags shared by every command
type globals struct {
	configPath string
	dataDir    string
	language   string
	location   string
	syncPolicy string
	offline    bool
	logFile    string
	streamLogs bool

	logCloser io.Closer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, genai.UserMessage(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "kisandost",
		Short:         "Voice-first farming assistant: guides, product checks, mandi prices and weather",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.setupLogging(cmd.Name() == "listen")
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if g.logCloser != nil {
				_ = g.logCloser.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "YAML config file")
	flags.StringVar(&g.dataDir, "data-dir", "", "Data directory (default: ~/.kisandost)")
	flags.StringVar(&g.language, "language", "", "Answer language: English, Hindi, Punjabi, Haryanvi, Marathi, Telugu")
	flags.StringVar(&g.location, "location", "", "Location for prices and weather (skips detection)")
	flags.StringVar(&g.syncPolicy, "sync-policy", "", "What to do with scans that fail to sync: retain or drop")
	flags.BoolVar(&g.offline, "offline", false, "Treat the network as unavailable")
	flags.StringVar(&g.logFile, "log-file", "kisandost.log", "Log file path")
	flags.BoolVar(&g.streamLogs, "stream-logs", false, "Also write logs to stdout (disables the TUI)")

	root.AddCommand(
		newGuidesCmd(g),
		newListenCmd(g),
		newScanCmd(g),
		newSyncCmd(g),
		newPendingCmd(g),
		newHistoryCmd(g),
		newPricesCmd(g),
		newFavoriteCmd(g),
		newWeatherCmd(g),
		newAskCmd(g),
		newVersionCmd(),
	)
	return root
}

// setupLogging routes the log package to the log file, and to stdout too when streaming
func (g *globals) setupLogging(tui bool) error {
	f, err := os.OpenFile(g.logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	g.logCloser = f

	if g.streamLogs {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
		if tui {
			log.Printf("TUI disabled - streaming logs")
		}
	} else {
		log.SetOutput(f)
	}
	return nil
}

// load reads configuration, applies flag overrides and builds the app
func (g *globals) load(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}
	if g.language != "" {
		cfg.Profile = cfg.Profile.WithLanguage(g.language)
	}
	if g.location != "" {
		cfg.Location = g.location
	}
	if g.syncPolicy != "" {
		cfg.SyncPolicy = g.syncPolicy
	}
	if g.offline {
		cfg.Offline = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Starting KisanDost (language=%s, data=%s, offline=%v)", cfg.Profile.Language, cfg.DataDir, cfg.Offline)
	return app.New(ctx, cfg, app.Options{})
}
