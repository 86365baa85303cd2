package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocastro/fieldsync/internal/config"
	"github.com/ocastro/fieldsync/internal/engine"
	"github.com/ocastro/fieldsync/internal/netmon"
	"github.com/ocastro/fieldsync/internal/schema"
	"github.com/ocastro/fieldsync/internal/ui"
)

var reportCmd = &cobra.Command{
	Use:     "report",
	GroupID: "sync",
	Short:   "Submit the end-of-day field bulletin",
	Long: `Submit the field bulletin for the loaded activity.

A sync runs first, so every parcel change is confirmed before the
bulletin lands: if the sync fails the bulletin is NOT sent and nothing
is lost; fix connectivity and run report again.

Consumption (start minus end volume), application time (end minus start
plus interruption), and distance (odometer delta) are computed locally,
so the remote receives a complete record. Times are HH:MM.

Example:
  fieldsync report --start-volume 200 --end-volume 35 \
    --start-time 07:30 --end-time 16:10 --interruption 00:45 \
    --start-odometer 41230 --end-odometer 41310 \
    --occurrence "parcel 1044 dog loose" --notes "wind after 15:00"`,
	Run: func(cmd *cobra.Command, args []string) {
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

		// The bulletin must describe confirmed work: drain the queue
		// first and refuse to submit over unconfirmed changes.
		monitor := netmon.New(client, cfg.ProbeInterval, nil)
		monitor.CheckNow(ctx)
		eng := engine.New(ob, client, monitor, nil, nil)

		if err := eng.Sync(ctx); err != nil {
			if errors.Is(err, engine.ErrOffline) {
				fmt.Fprintf(os.Stderr, "%s Offline: bulletin not sent, changes kept\n", ui.RenderWarn("⚠"))
			} else {
				fmt.Fprintf(os.Stderr, "%s Pre-report sync failed, bulletin not sent: %v\n", ui.RenderFail("✗"), err)
			}
			os.Exit(1)
		}
		if depth, err := ob.Depth(ctx); err == nil && depth > 0 {
			fmt.Fprintf(os.Stderr, "%s %d change(s) still unconfirmed, bulletin not sent\n", ui.RenderFail("✗"), depth)
			os.Exit(1)
		}

		b := bulletinFromFlags(cmd, session)
		if err := b.ComputeDerived(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := client.SubmitBulletin(ctx, b); err != nil {
			fmt.Fprintf(os.Stderr, "%s Bulletin rejected: %v\n", ui.RenderFail("✗"), err)
			os.Exit(1)
		}

		fmt.Printf("%s Bulletin submitted for activity %s cycle %s\n",
			ui.RenderPass("✓"), b.ActivityID, b.Cycle)
		fmt.Printf("   Consumption: %.1f L\n", b.Consumption)
		fmt.Printf("   Application time: %s\n", b.ApplicationTime)
		fmt.Printf("   Distance: %.1f km\n", b.Distance)
	},
}

// bulletinFromFlags builds the bulletin, pre-filling crew metadata from
// the session where no flag overrides it.
func bulletinFromFlags(cmd *cobra.Command, session *config.Session) *schema.Bulletin {
	flags := cmd.Flags()

	b := &schema.Bulletin{
		ActivityID: session.ActivityID,
		Cycle:      session.Cycle,
	}

	b.AssetID, _ = flags.GetString("asset")
	b.Vehicle, _ = flags.GetString("vehicle")
	if b.Vehicle == "" {
		b.Vehicle = session.Vehicle
	}
	b.Insecticide, _ = flags.GetString("insecticide")
	if b.Insecticide == "" {
		b.Insecticide = session.Product
	}

	b.StartVolume, _ = flags.GetFloat64("start-volume")
	b.EndVolume, _ = flags.GetFloat64("end-volume")
	b.StartTime, _ = flags.GetString("start-time")
	b.StartTemp, _ = flags.GetString("start-temp")
	b.EndTime, _ = flags.GetString("end-time")
	b.EndTemp, _ = flags.GetString("end-temp")
	b.Interruption, _ = flags.GetString("interruption")
	b.StartOdometer, _ = flags.GetFloat64("start-odometer")
	b.EndOdometer, _ = flags.GetFloat64("end-odometer")
	b.Occurrences, _ = flags.GetStringArray("occurrence")
	b.Notes, _ = flags.GetString("notes")

	return b
}

func init() {
	reportCmd.Flags().String("vehicle", "", "Vehicle (default: from session)")
	reportCmd.Flags().String("asset", "", "Equipment asset ID")
	reportCmd.Flags().String("insecticide", "", "Insecticide used (default: from session)")
	reportCmd.Flags().Float64("start-volume", 0, "Tank volume at start (L)")
	reportCmd.Flags().Float64("end-volume", 0, "Tank volume at end (L)")
	reportCmd.Flags().String("start-time", "", "Work start (HH:MM)")
	reportCmd.Flags().String("start-temp", "", "Temperature at start")
	reportCmd.Flags().String("end-time", "", "Work end (HH:MM)")
	reportCmd.Flags().String("end-temp", "", "Temperature at end")
	reportCmd.Flags().String("interruption", "", "Total interruption (HH:MM)")
	reportCmd.Flags().Float64("start-odometer", 0, "Odometer at start (km)")
	reportCmd.Flags().Float64("end-odometer", 0, "Odometer at end (km)")
	reportCmd.Flags().StringArray("occurrence", nil, "Occurrence note (repeatable)")
	reportCmd.Flags().String("notes", "", "Free-form notes")

	rootCmd.AddCommand(reportCmd)
}
