package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocastro/fieldsync/internal/config"
	"github.com/ocastro/fieldsync/internal/projector"
	"github.com/ocastro/fieldsync/internal/ui"
)

var loadCmd = &cobra.Command{
	Use:     "load <activity> <cycle>",
	GroupID: "activity",
	Short:   "Load an activity's status snapshot and make it current",
	Long: `Fetch the authoritative parcel status map for an activity/cycle and
store it as the current session.

Pending local changes for the same activity survive the load: they are
layered over the fresh snapshot, so work done offline is still visible
after a restart. Subsequent mark/toggle/status/report commands operate
on the loaded activity until another load replaces it.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		activityID, cycle := args[0], args[1]

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

		proj := projector.New(client, ob, nil, nil)
		if err := proj.Load(cmd.Context(), activityID, cycle); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading activity: %v\n", err)
			os.Exit(1)
		}

		session := &config.Session{
			ActivityID: activityID,
			Cycle:      cycle,
			Areas:      proj.Areas(),
		}

		// Best effort: pull crew metadata from the pending list so the
		// bulletin form can pre-fill vehicle and product.
		if activities, err := client.ListPendingActivities(cmd.Context()); err == nil {
			for _, a := range activities {
				if a.ID == activityID && a.Cycle == cycle {
					session.Vehicle = a.Vehicle
					session.Product = a.Product
					break
				}
			}
		}

		if err := config.SaveSession(cfg.SessionPath(), session); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving session: %v\n", err)
			os.Exit(1)
		}

		worked, total := proj.Progress()
		fmt.Printf("%s Loaded activity %s cycle %s\n", ui.RenderPass("✓"), activityID, cycle)
		fmt.Printf("   Parcels: %d (%d worked)\n", total, worked)
		fmt.Printf("   Areas: %d\n", len(session.Areas))

		if depth, err := ob.Depth(cmd.Context()); err == nil && depth > 0 {
			fmt.Printf("   Pending changes: %s\n", ui.RenderBadge(depth))
		}
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
