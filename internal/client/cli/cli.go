// Package cli implements the docsync command line client on top of engine.Engine.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/docsync/internal/client/config"
	"github.com/iudanet/docsync/internal/client/engine"
	"github.com/iudanet/docsync/internal/client/iocli"
)

// VersionInfo - данные сборки, задаются через ldflags
type VersionInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Options - глобальные флаги, перекрывающие файл конфигурации
type Options struct {
	ConfigPath  string
	DBPath      string
	RemoteURL   string
	Username    string
	LogLevel    string
	AskPassword bool
	JSON        bool
}

// OpenFunc opens an engine; tests substitute it
type OpenFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error)

// Cli holds the state shared by all commands of one invocation.
type Cli struct {
	io       iocli.IO
	opts     *Options
	open     OpenFunc
	engine   *engine.Engine
	cfg      *config.Config
	logger   *slog.Logger
	logOut   io.Writer
	password string
	version  VersionInfo

	// forceSync включает непрерывную репликацию независимо от sync_enabled
	forceSync bool
}

// New creates a Cli writing to ioh; logs go to logOut
func New(ioh iocli.IO, logOut io.Writer, version VersionInfo) *Cli {
	return &Cli{
		io:      ioh,
		opts:    &Options{},
		open:    engine.New,
		logOut:  logOut,
		version: version,
	}
}

// RootCommand builds the command tree
func (c *Cli) RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsync",
		Short: "docsync - replicated documents with automatic conflict resolution",
		Long: `docsync keeps a local replica of your documents and replicates it with a
remote server. Concurrent edits are merged automatically where possible;
the rest are kept as conflicts until you resolve them.

Password sources (highest priority first):
  1. --ask-password (interactive prompt)
  2. DOCSYNC_PASSWORD environment variable
  3. credentials.password in the config file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.Close()
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.StringVarP(&c.opts.ConfigPath, "config", "c", "docsync.yaml", "path to config file")
	flags.StringVar(&c.opts.DBPath, "db", "", "path to local replica (overrides db_path)")
	flags.StringVar(&c.opts.RemoteURL, "remote", "", "remote replica URL (overrides remote_url)")
	flags.StringVarP(&c.opts.Username, "username", "u", "", "remote account (overrides credentials.username)")
	flags.StringVar(&c.opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&c.opts.AskPassword, "ask-password", false, "prompt for the account password")
	flags.BoolVar(&c.opts.JSON, "json", false, "print JSON instead of text")

	cmd.AddCommand(
		c.newPutCommand(),
		c.newGetCommand(),
		c.newListCommand(),
		c.newRemoveCommand(),
		c.newConflictsCommand(),
		c.newResolveCommand(),
		c.newSyncCommand(),
		c.newPushCommand(),
		c.newPullCommand(),
		c.newWatchCommand(),
		c.newStatusCommand(),
		c.newRegisterCommand(),
		c.newLogoutCommand(),
		c.newVersionCommand(),
	)

	return cmd
}

// loadConfig читает файл конфигурации и применяет глобальные флаги
func (c *Cli) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if c.opts.AskPassword && c.password == "" {
		password, err := c.io.ReadPassword("Password: ")
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		c.password = password
	}

	if err := c.applyOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides применяет флаги поверх конфигурации (и при перечитывании файла)
func (c *Cli) applyOverrides(cfg *config.Config) error {
	if c.opts.DBPath != "" {
		cfg.DBPath = c.opts.DBPath
	}
	if c.opts.RemoteURL != "" {
		cfg.RemoteURL = c.opts.RemoteURL
	}
	if c.opts.Username != "" {
		cfg.Credentials.Username = c.opts.Username
	}
	if c.opts.LogLevel != "" {
		cfg.LogLevel = c.opts.LogLevel
	}
	if c.password != "" {
		cfg.Credentials.Password = c.password
	}
	if c.forceSync && cfg.RemoteURL != "" {
		cfg.SyncEnabled = true
	}
	return cfg.Validate()
}

// start открывает локальную реплику. Непрерывная репликация запускается
// только командой watch, поэтому sync_enabled здесь сбрасывается.
func (c *Cli) start(ctx context.Context, continuous bool) (*engine.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if !continuous {
		cfg.SyncEnabled = false
	}

	c.cfg = cfg
	c.logger = slog.New(slog.NewTextHandler(c.logOut, &slog.HandlerOptions{Level: cfg.Level()}))

	e, err := c.open(ctx, cfg, c.logger)
	if err != nil {
		return nil, err
	}
	if err := e.Start(ctx); err != nil {
		_ = e.Stop()
		return nil, err
	}

	c.engine = e
	return e, nil
}

// Close останавливает движок, если команда его открывала.
// Вызывается и после ошибки команды: cobra пропускает PostRun в этом случае.
func (c *Cli) Close() error {
	if c.engine == nil {
		return nil
	}
	err := c.engine.Stop()
	c.engine = nil
	return err
}

func (c *Cli) printJSON(v any) error {
	enc := json.NewEncoder(c.io)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errUsage - ошибка аргументов командной строки
var errUsage = errors.New("usage error")

func usageError(format string, a ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, a...))
}

// IsUsageError reports whether err came from bad command line arguments
func IsUsageError(err error) bool {
	return errors.Is(err, errUsage)
}
