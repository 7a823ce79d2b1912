package cli

import "github.com/spf13/cobra"

func (c *Cli) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.opts.JSON {
				return c.printJSON(c.version)
			}
			c.io.Printf("Version:    %s\n", c.version.Version)
			c.io.Printf("Build date: %s\n", c.version.BuildDate)
			c.io.Printf("Git commit: %s\n", c.version.GitCommit)
			return nil
		},
	}
}
