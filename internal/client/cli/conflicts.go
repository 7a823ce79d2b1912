package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iudanet/docsync/internal/models"
)

func (c *Cli) newConflictsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List documents with conflicting revisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConflicts(cmd.Context())
		},
	}
}

func (c *Cli) runConflicts(ctx context.Context) error {
	e, err := c.start(ctx, false)
	if err != nil {
		return err
	}

	conflicts, err := e.ListConflicts(ctx)
	if err != nil {
		return err
	}

	if c.opts.JSON {
		if conflicts == nil {
			conflicts = []models.Conflict{}
		}
		return c.printJSON(conflicts)
	}

	if len(conflicts) == 0 {
		c.io.Println("No conflicts.")
		return nil
	}

	for _, conflict := range conflicts {
		c.io.Printf("%s\n", conflict.ID)
		for _, rev := range conflict.LeafRevisions {
			c.io.Printf("  %s\n", rev)
		}
	}
	c.io.Printf("\n%d document(s) in conflict. Run 'docsync resolve --all' to merge them.\n", len(conflicts))
	return nil
}

type resolveOptions struct {
	winner string
	lose   []string
	all    bool
}

func (c *Cli) newResolveCommand() *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve [id]",
		Short: "Resolve conflicting revisions",
		Long: `Resolve conflicts.

  resolve <id>                              merge the conflicting revisions of one document
  resolve --all                             merge every conflict, composing unrelated edits
  resolve <id> --winner <rev> --lose <rev>  keep one revision and retire the others`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return c.runResolve(cmd.Context(), id, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "resolve every document in conflict")
	cmd.Flags().StringVar(&opts.winner, "winner", "", "revision to keep")
	cmd.Flags().StringSliceVar(&opts.lose, "lose", nil, "revisions to retire (repeatable)")
	cmd.MarkFlagsRequiredTogether("winner", "lose")
	cmd.MarkFlagsMutuallyExclusive("all", "winner")

	return cmd
}

func (c *Cli) runResolve(ctx context.Context, id string, opts *resolveOptions) error {
	switch {
	case opts.all && id != "":
		return usageError("--all takes no document id")
	case !opts.all && id == "":
		return usageError("document id or --all is required")
	}

	var (
		winner models.Revision
		losing []models.Revision
	)
	if opts.winner != "" {
		var err error
		if winner, err = models.ParseRevision(opts.winner); err != nil {
			return usageError("--winner: %v", err)
		}
		for _, raw := range opts.lose {
			rev, err := models.ParseRevision(raw)
			if err != nil {
				return usageError("--lose: %v", err)
			}
			losing = append(losing, rev)
		}
	}

	e, err := c.start(ctx, false)
	if err != nil {
		return err
	}

	switch {
	case opts.all:
		n, err := e.AutoResolveAll(ctx)
		if err != nil {
			return err
		}
		c.io.Printf("Resolved %d document(s)\n", n)
	case opts.winner != "":
		n, err := e.ResolveManual(ctx, id, winner, losing)
		if err != nil {
			return err
		}
		c.io.Printf("Kept %s, retired %d revision(s) of %s\n", winner, n, id)
	default:
		n, err := e.Resolve(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			c.io.Printf("%s is not in conflict\n", id)
			return nil
		}
		c.io.Printf("Resolved %s\n", id)
	}
	return nil
}
