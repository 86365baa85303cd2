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
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ocastro/fieldsync/internal/daemon"
	"github.com/ocastro/fieldsync/internal/engine"
	"github.com/ocastro/fieldsync/internal/indicator"
	"github.com/ocastro/fieldsync/internal/netmon"
	"github.com/ocastro/fieldsync/internal/ui"
)

var agentCmd = &cobra.Command{
	Use:     "agent",
	GroupID: "agent",
	Short:   "Run the background sync agent (foreground process)",
	Long: `Run the sync agent: the long-lived process that keeps a field device
reconciled without operator action.

The agent:
  - probes the remote authority periodically and attempts a sync on
    every offline-to-online transition
  - runs a periodic sync tick as a safety net for missed transitions
  - watches the spool directory for mutation files dropped by external
    tooling, validates and enqueues them
  - serves sync-state events over WebSocket for any connected UI
    (ws://localhost:<port>/ws, last event replayed on connect)

Logs go to stderr, or to a rotated file when log_file is configured.
Run under a process manager for unattended devices; press Ctrl+C to
stop a foreground run.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		client, err := requireRemote(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			cfg.IndicatorPort = port
		}

		var logOut io.Writer = os.Stderr
		if cfg.LogFile != "" {
			logOut = &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
			}
		}
		newLogger := func(prefix string) *log.Logger {
			return log.New(logOut, prefix, log.LstdFlags)
		}

		ob, store, err := openOutbox(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		server := indicator.NewServer(&indicator.ServerConfig{
			Port:   cfg.IndicatorPort,
			Logger: newLogger("[indicator] "),
		})
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting indicator server: %v\n", err)
			os.Exit(1)
		}

		monitor := netmon.New(client, cfg.ProbeInterval, newLogger("[netmon] "))
		eng := engine.New(ob, client, monitor, server, newLogger("[engine] "))

		dcfg := daemon.DefaultConfig()
		dcfg.SyncInterval = cfg.SyncInterval
		dcfg.SpoolDir = cfg.SpoolDir()
		dcfg.Logger = newLogger("[daemon] ")

		d, err := daemon.New(ob, eng, monitor, server, dcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating agent: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Agent started\n", ui.RenderPass("✓"))
		fmt.Printf("   Remote: %s\n", cfg.RemoteURL)
		fmt.Printf("   Indicator: ws://localhost:%d/ws\n", cfg.IndicatorPort)
		fmt.Printf("   Spool: %s\n", cfg.SpoolDir())
		fmt.Println("\nPress Ctrl+C to stop")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Agent stopped with error: %v\n", err)
			os.Exit(1)
		}

		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error stopping indicator server: %v\n", err)
		}
		fmt.Println("Agent stopped")
	},
}

func init() {
	agentCmd.Flags().IntP("port", "p", 8477, "Indicator WebSocket port")
	rootCmd.AddCommand(agentCmd)
}
