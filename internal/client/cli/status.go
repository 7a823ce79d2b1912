package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/docsync/internal/models"
)

type statusOutput struct {
	models.SyncStatus
	RemoteURL string `json:"remote_url,omitempty"`
	Username  string `json:"username,omitempty"`
	DBPath    string `json:"db_path"`
	Pending   int    `json:"pending"`
	Conflicts int    `json:"conflicts"`
}

func (c *Cli) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local replica and replication state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.start(ctx, false)
			if err != nil {
				return err
			}

			pending, err := e.Pending(ctx)
			if err != nil {
				return err
			}
			conflicts, err := e.ListConflicts(ctx)
			if err != nil {
				return err
			}

			out := statusOutput{
				SyncStatus: e.Status(),
				RemoteURL:  c.cfg.RemoteURL,
				Username:   c.cfg.Credentials.Username,
				DBPath:     c.cfg.DBPath,
				Pending:    pending,
				Conflicts:  len(conflicts),
			}
			if c.opts.JSON {
				return c.printJSON(out)
			}

			c.io.Println("=== Replica Status ===")
			c.io.Printf("Database:  %s\n", out.DBPath)
			if out.RemoteURL == "" {
				c.io.Println("Remote:    not configured")
			} else {
				c.io.Printf("Remote:    %s (%s)\n", out.RemoteURL, out.Username)
			}
			c.io.Printf("Phase:     %s\n", out.Phase)
			c.io.Printf("Online:    %t\n", out.IsOnline)
			if out.LastSyncTime.IsZero() {
				c.io.Println("Last sync: never")
			} else {
				c.io.Printf("Last sync: %s\n", out.LastSyncTime.Format(time.RFC3339))
			}
			if out.LastError != "" {
				c.io.Printf("Error:     %s\n", out.LastError)
			}
			c.io.Printf("Pending:   %d revision(s)\n", out.Pending)
			c.io.Printf("Conflicts: %d document(s)\n", out.Conflicts)
			return nil
		},
	}
}
