package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocastro/fieldsync/internal/netmon"
	"github.com/ocastro/fieldsync/internal/projector"
	"github.com/ocastro/fieldsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "activity",
	Short:   "Show connectivity, queue depth, and activity progress",
	Long: `Show the device's sync state at a glance.

Displays:
  - connectivity to the remote authority (live probe)
  - pending changes waiting in the local queue
  - the loaded activity and its worked/total progress (when online)
  - each queued change with its target status

Use --verbose to list every queued change.`,
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, err := loadConfig(cmd)
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

		online := false
		client, remoteErr := requireRemote(cfg)
		if remoteErr == nil {
			monitor := netmon.New(client, time.Minute, nil)
			online = monitor.CheckNow(ctx)
		}

		fmt.Println()
		if online {
			fmt.Printf("%s Online (%s)\n", ui.RenderPass("●"), cfg.RemoteURL)
		} else if remoteErr != nil {
			fmt.Printf("%s No remote configured\n", ui.RenderWarn("●"))
		} else {
			fmt.Printf("%s Offline\n", ui.RenderFail("●"))
		}

		depth, err := ob.Depth(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading queue: %v\n", err)
			os.Exit(1)
		}
		if depth == 0 {
			fmt.Printf("%s Queue empty, everything confirmed\n", ui.RenderPass("✓"))
		} else {
			fmt.Printf("%s %s change(s) waiting for sync\n", ui.RenderWarn("⧗"), ui.RenderBadge(depth))
		}

		session, err := requireSession(cfg)
		if err != nil {
			fmt.Printf("%s\n\n", ui.RenderDim("No activity loaded"))
			return
		}

		fmt.Printf("Activity: %s cycle %s", ui.RenderAccent(session.ActivityID), session.Cycle)
		if session.Vehicle != "" {
			fmt.Printf("  %s", ui.RenderDim(session.Vehicle))
		}
		fmt.Println()

		// Progress needs the server snapshot, so it is online-only.
		if online {
			proj := projector.New(client, ob, nil, nil)
			if err := proj.Load(ctx, session.ActivityID, session.Cycle); err == nil {
				worked, total := proj.Progress()
				fmt.Printf("Progress: %d/%d worked\n", worked, total)
			}
		}

		if verbose && depth > 0 {
			pending, err := ob.Drain(ctx)
			if err == nil {
				fmt.Println()
				for _, m := range pending {
					fmt.Printf("  %s -> %s  %s\n", m.SyncKey(), ui.RenderStatus(m.Status),
						ui.RenderDim(m.EnqueuedAt.Local().Format("15:04:05")))
				}
			}
		}
		fmt.Println()
	},
}

func init() {
	statusCmd.Flags().BoolP("verbose", "v", false, "List every queued change")
	rootCmd.AddCommand(statusCmd)
}
