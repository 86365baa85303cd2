package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocastro/fieldsync/internal/ui"
)

var activitiesCmd = &cobra.Command{
	Use:     "activities",
	GroupID: "activity",
	Short:   "List activities open for field work",
	Long: `List the activities the remote authority still has open.

Each line shows the activity ID, cycle, and the crew/vehicle metadata
recorded for it. Pick one and run 'fieldsync load <activity> <cycle>'.`,
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

		activities, err := client.ListPendingActivities(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching activities: %v\n", err)
			os.Exit(1)
		}

		if len(activities) == 0 {
			fmt.Printf("%s No activities pending\n", ui.RenderPass("✓"))
			return
		}

		fmt.Printf("\n%s Pending activities\n\n", ui.RenderAccent("📋"))
		for _, a := range activities {
			fmt.Printf("  %s  cycle %s", ui.RenderAccent(a.ID), a.Cycle)
			if a.Vehicle != "" {
				fmt.Printf("  %s", a.Vehicle)
			}
			if a.Product != "" {
				fmt.Printf("  %s", ui.RenderDim(a.Product))
			}
			fmt.Println()
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(activitiesCmd)
}
