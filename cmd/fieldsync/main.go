// fieldsync is the field-operations companion for vector-control crews:
// it keeps parcel status changes in a durable local queue while the
// crew is out of coverage and reconciles them with the remote authority
// whenever connectivity returns.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocastro/fieldsync/internal/config"
	"github.com/ocastro/fieldsync/internal/outbox"
	"github.com/ocastro/fieldsync/internal/remote"
)

var rootCmd = &cobra.Command{
	Use:   "fieldsync",
	Short: "Offline-first sync client for field operations",
	Long: `fieldsync keeps parcel status changes safe while offline and syncs
them to the remote authority when connectivity returns.

Status changes are written to a durable local queue before anything
else; a change that cannot be persisted is reported immediately, never
silently dropped. The queue keeps at most one pending change per parcel
(last one wins) and records leave it only after the remote positively
confirms them.

Typical workflow:
  fieldsync activities            # see what work is open
  fieldsync load 7 2              # load activity 7, cycle 2
  fieldsync toggle 1042           # mark parcel 1042 worked (tap again to undo)
  fieldsync mark 1043 problem     # flag a parcel for follow-up
  fieldsync status                # connectivity, queue depth, progress
  fieldsync sync                  # push pending changes now
  fieldsync report                # end-of-day bulletin (syncs first)

Run 'fieldsync agent' on a device that should sync automatically.`,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "activity", Title: "Activity Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "agent", Title: "Agent Commands:"},
	)

	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (default ~/.fieldsync)")
	rootCmd.PersistentFlags().String("remote", "", "Remote authority URL (overrides config)")
}

// loadConfig resolves configuration for a command invocation:
// defaults < config file < environment < flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}

	if remoteURL, _ := cmd.Flags().GetString("remote"); remoteURL != "" {
		cfg.RemoteURL = remoteURL
	}

	return cfg, nil
}

// requireRemote builds the remote client, failing when no endpoint is
// configured.
func requireRemote(cfg *config.Config) (*remote.Client, error) {
	if cfg.RemoteURL == "" {
		return nil, fmt.Errorf("no remote configured (set remote_url in %s/config.yaml, FIELDSYNC_REMOTE_URL, or --remote)", cfg.DataDir)
	}
	return remote.NewClient(cfg.RemoteURL, nil, nil), nil
}

// openOutbox opens the durable queue. Callers own closing the store.
func openOutbox(cfg *config.Config) (*outbox.Outbox, *outbox.Store, error) {
	store, err := outbox.OpenStore(cfg.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open outbox: %w", err)
	}
	return outbox.New(store, nil), store, nil
}

// requireSession loads the current session, failing when no activity is
// loaded yet.
func requireSession(cfg *config.Config) (*config.Session, error) {
	session, err := config.LoadSession(cfg.SessionPath())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("no activity loaded (run 'fieldsync load <activity> <cycle>' first)")
	}
	return session, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
