package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/docsync/internal/client/api"
)

func (c *Cli) newRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create the configured account on the remote replica",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Недостающие учётные данные спрашиваем интерактивно
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Credentials.Username == "" {
				username, err := c.io.ReadInput("Username: ")
				if err != nil {
					return fmt.Errorf("failed to read username: %w", err)
				}
				c.opts.Username = username
			}
			if cfg.Credentials.Password == "" {
				password, err := c.io.ReadPassword("Password: ")
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				c.password = password
			}

			e, err := c.start(ctx, false)
			if err != nil {
				return err
			}

			userID, err := e.Register(ctx)
			if errors.Is(err, api.ErrAlreadyExists) {
				return fmt.Errorf("user %s already exists", c.cfg.Credentials.Username)
			}
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			c.io.Printf("Registered %s (id %s)\n", c.cfg.Credentials.Username, userID)
			return nil
		},
	}
}

func (c *Cli) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.start(ctx, false)
			if err != nil {
				return err
			}
			if err := e.Logout(ctx); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			c.io.Println("Logged out")
			return nil
		},
	}
}
