package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ocastro/fieldsync/internal/projector"
	"github.com/ocastro/fieldsync/internal/ui"
)

var purgeCmd = &cobra.Command{
	Use:     "purge",
	GroupID: "sync",
	Short:   "Discard all pending changes (destructive)",
	Long: `Discard every unconfirmed change in the local queue.

This throws away field work that never reached the remote authority,
so it asks for confirmation first. Use --force to skip the prompt in
scripts. After the purge the status snapshot is refetched when online,
so what you see matches server truth again.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

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

		depth, err := ob.Depth(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading queue: %v\n", err)
			os.Exit(1)
		}
		if depth == 0 {
			fmt.Printf("%s Queue already empty\n", ui.RenderPass("✓"))
			return
		}

		if !force {
			var confirmed bool
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Discard %d unconfirmed change(s)?", depth)).
					Description("These changes never reached the remote and cannot be recovered.").
					Affirmative("Discard").
					Negative("Keep").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if !confirmed {
				fmt.Println("Aborted, queue untouched")
				return
			}
		}

		if err := ob.Purge(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error purging queue: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Discarded %d change(s)\n", ui.RenderPass("✓"), depth)

		// Refetch server truth so the next status/progress view does not
		// show the discarded overlay.
		session, err := requireSession(cfg)
		if err != nil {
			return
		}
		client, err := requireRemote(cfg)
		if err != nil {
			return
		}
		proj := projector.New(client, ob, nil, nil)
		if err := proj.Load(ctx, session.ActivityID, session.Cycle); err != nil {
			fmt.Printf("%s Snapshot refresh deferred: %v\n", ui.RenderWarn("⚠"), err)
			return
		}
		worked, total := proj.Progress()
		fmt.Printf("   Server truth: %d/%d worked\n", worked, total)
	},
}

func init() {
	purgeCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(purgeCmd)
}
