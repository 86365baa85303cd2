package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ocastro/fieldsync/internal/config"
	"github.com/ocastro/fieldsync/internal/outbox"
	"github.com/ocastro/fieldsync/internal/schema"
	"github.com/ocastro/fieldsync/internal/ui"
)

var markCmd = &cobra.Command{
	Use:     "mark <parcel> [status]",
	GroupID: "activity",
	Short:   "Record a parcel status change (worked, pending, problem)",
	Long: `Record a status change for a parcel of the loaded activity.

The change is written to the durable local queue before the command
returns; if that write fails the change is NOT recorded and the command
reports the failure. Nothing is ever silently dropped.

The queue keeps one pending change per parcel. Marking the same parcel
again before a sync replaces the earlier change (the last tap wins), so
contradictory updates never queue up.

Status defaults to 'worked'. Use 'problem' for parcels that could not
be worked (access denied, refusal, obstruction) and need follow-up.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		status := schema.StatusWorked
		if len(args) == 2 {
			parsed, err := schema.ParseStatus(args[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			status = parsed
		}

		recordStatus(cmd, args[0], func(schema.Status) schema.Status { return status })
	},
}

var toggleCmd = &cobra.Command{
	Use:     "toggle <parcel>",
	GroupID: "activity",
	Short:   "Toggle a parcel between worked and pending",
	Long: `Toggle a parcel's status: not-yet-worked becomes worked, worked
reverts to pending. This is the one-tap path for crews walking a route.

The current status is resolved from the local queue first (the latest
unconfirmed change wins over the server snapshot), so toggling twice
offline correctly cancels out.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		recordStatus(cmd, args[0], schema.Status.Toggle)
	},
}

// recordStatus resolves the parcel's current status, derives the new one
// through next, and enqueues the change durably.
func recordStatus(cmd *cobra.Command, parcelArg string, next func(schema.Status) schema.Status) {
	parcelID, err := strconv.Atoi(parcelArg)
	if err != nil || parcelID <= 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid parcel ID %q\n", parcelArg)
		os.Exit(1)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	session, err := requireSession(cfg)
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
	current := currentStatus(ctx, cfg, session, ob, parcelID)
	status := next(current)

	if err := ob.Enqueue(ctx, session.ActivityID, session.Cycle, parcelID, status); err != nil {
		// The optimistic path ends here: nothing was persisted, so the
		// operator must act on the parcel again.
		fmt.Fprintf(os.Stderr, "%s Change not saved: %v\n", ui.RenderFail("✗"), err)
		os.Exit(1)
	}

	depth, _ := ob.Depth(ctx)
	fmt.Printf("%s Parcel %d -> %s", ui.RenderPass("✓"), parcelID, ui.RenderStatus(status))
	if badge := ui.RenderBadge(depth); badge != "" {
		fmt.Printf("  %s pending", badge)
	}
	fmt.Println()
}

// currentStatus resolves a parcel's status for toggling: the local queue
// wins, then the server snapshot when reachable, then pending. Offline
// resolution never blocks the tap.
func currentStatus(ctx context.Context, cfg *config.Config, session *config.Session, ob *outbox.Outbox, parcelID int) schema.Status {
	key := schema.Key(session.ActivityID, session.Cycle, parcelID)

	if pending, err := ob.Drain(ctx); err == nil {
		for _, m := range pending {
			if m.SyncKey() == key {
				return m.Status
			}
		}
	}

	if client, err := requireRemote(cfg); err == nil {
		if data, err := client.GetActivity(ctx, session.ActivityID, session.Cycle); err == nil {
			if s, ok := data.Parcels[key]; ok {
				return s
			}
		}
	}

	return schema.StatusPending
}

func init() {
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(toggleCmd)
}
