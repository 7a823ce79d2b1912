package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/docsync/internal/client/config"
	"github.com/iudanet/docsync/internal/client/replication"
	"github.com/iudanet/docsync/internal/events"
)

func (c *Cli) newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull remote ones once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOneShot(cmd.Context(), replication.DirectionBoth)
		},
	}
}

func (c *Cli) newPushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Send local changes to the remote replica once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOneShot(cmd.Context(), replication.DirectionPush)
		},
	}
}

func (c *Cli) newPullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Fetch remote changes once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOneShot(cmd.Context(), replication.DirectionPull)
		},
	}
}

func (c *Cli) runOneShot(ctx context.Context, dir replication.Direction) error {
	e, err := c.start(ctx, false)
	if err != nil {
		return err
	}
	if c.cfg.RemoteURL == "" {
		return fmt.Errorf("remote_url is not configured (use --remote or the config file)")
	}

	var res replication.Result
	op := "sync"
	switch dir {
	case replication.DirectionPush:
		op = "push"
		res, err = e.PushOnce(ctx)
	case replication.DirectionPull:
		op = "pull"
		res, err = e.PullOnce(ctx)
	default:
		res, err = e.ForceSync(ctx)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}

	if c.opts.JSON {
		return c.printJSON(res)
	}

	c.io.Println("=== Sync Results ===")
	c.io.Printf("Pushed:   %d revision(s)\n", res.Pushed)
	c.io.Printf("Pulled:   %d document(s)\n", res.Pulled)
	c.io.Printf("Resolved: %d conflict(s)\n", res.Resolved)

	conflicts, err := e.ListConflicts(ctx)
	if err == nil && len(conflicts) > 0 {
		c.io.Printf("\n%d document(s) still in conflict, see 'docsync conflicts'\n", len(conflicts))
	}
	return nil
}

func (c *Cli) newWatchCommand() *cobra.Command {
	var enable bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Replicate continuously and print events until interrupted",
		Long: `Run continuous replication. Edits to the config file are applied live:
turning sync_enabled off pauses replication, changing remote_url or the
credentials reconnects.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), enable)
		},
	}
	cmd.Flags().BoolVar(&enable, "enable", true, "replicate even if sync_enabled is false in the config file")

	return cmd
}

func (c *Cli) runWatch(ctx context.Context, enable bool) error {
	if enable {
		c.forceSync = true
	}

	e, err := c.start(ctx, true)
	if err != nil {
		return err
	}
	if c.cfg.RemoteURL == "" {
		return fmt.Errorf("remote_url is not configured (use --remote or the config file)")
	}

	unsubscribe := e.Subscribe(c.printEvent)
	defer unsubscribe()

	c.io.Printf("Watching %s as %s (Ctrl+C to stop)\n", c.cfg.RemoteURL, c.cfg.Credentials.Username)
	// Состояние могло смениться до подписки
	c.printEvent(events.Event{Type: events.TypeStatusChanged, Status: e.Status()})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := config.Watch(gctx, c.opts.ConfigPath, c.logger, func(cfg *config.Config) {
			if err := c.applyOverrides(cfg); err != nil {
				c.logger.Warn("Ignoring config change", "error", err)
				return
			}
			if err := e.ApplyConfig(gctx, cfg); err != nil {
				c.logger.Warn("Failed to apply config change", "error", err)
				return
			}
			c.io.Println("Config reloaded")
		})
		if err != nil {
			// Без перечитывания конфигурации репликация продолжает работать
			c.logger.Warn("Config file is not watched", "path", c.opts.ConfigPath, "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Cli) printEvent(ev events.Event) {
	now := time.Now().Format("15:04:05")
	switch ev.Type {
	case events.TypeChanged:
		c.io.Printf("%s changed (%s): %s\n", now, ev.Source, strings.Join(ev.IDs, ", "))
	case events.TypeConflictDetected:
		c.io.Printf("%s conflict: %s\n", now, strings.Join(ev.IDs, ", "))
	case events.TypeDocumentResolved:
		c.io.Printf("%s resolved: %s\n", now, strings.Join(ev.IDs, ", "))
	case events.TypeStatusChanged:
		line := fmt.Sprintf("%s status: %s", now, ev.Status.Phase)
		if ev.Status.LastError != "" {
			line += " (" + ev.Status.LastError + ")"
		}
		c.io.Println(line)
	}
}
