package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocastro/fieldsync/internal/engine"
	"github.com/ocastro/fieldsync/internal/netmon"
	"github.com/ocastro/fieldsync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Push pending changes to the remote authority now",
	Long: `Run one sync attempt: read every pending change, send them as a
single batch, and remove exactly the changes the remote confirms.

A failed attempt changes nothing locally; the queue stays intact and
the next attempt (manual, or an agent's online transition) retries the
same work. Changes recorded while a sync is in flight are not lost
either; they ride the next attempt.`,
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

		ob, store, err := openOutbox(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ctx := cmd.Context()

		before, err := ob.Depth(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading queue: %v\n", err)
			os.Exit(1)
		}
		if before == 0 {
			fmt.Printf("%s Nothing to sync\n", ui.RenderPass("✓"))
			return
		}

		monitor := netmon.New(client, cfg.ProbeInterval, nil)
		monitor.CheckNow(ctx)

		eng := engine.New(ob, client, monitor, nil, nil)

		fmt.Printf("%s Syncing %d change(s)...\n", ui.RenderAccent("🔄"), before)
		start := time.Now()

		if err := eng.Sync(ctx); err != nil {
			if errors.Is(err, engine.ErrOffline) {
				fmt.Fprintf(os.Stderr, "%s Offline; %d change(s) kept for later\n", ui.RenderWarn("⚠"), before)
			} else {
				fmt.Fprintf(os.Stderr, "%s Sync failed: %v\n", ui.RenderFail("✗"), err)
				fmt.Fprintf(os.Stderr, "   Queue untouched; retry when the connection recovers\n")
			}
			os.Exit(1)
		}

		after, _ := ob.Depth(ctx)
		fmt.Printf("%s Sync complete in %v: %d confirmed", ui.RenderPass("✓"),
			time.Since(start).Round(time.Millisecond), before-after)
		if after > 0 {
			fmt.Printf(", %s still pending", ui.RenderBadge(after))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
