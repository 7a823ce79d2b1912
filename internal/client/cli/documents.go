package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
)

type putOptions struct {
	title    string
	body     string
	file     string
	rev      string
	setTitle bool
	setBody  bool
}

func (c *Cli) newPutCommand() *cobra.Command {
	opts := &putOptions{}

	cmd := &cobra.Command{
		Use:   "put [id]",
		Short: "Create or update a document",
		Long: `Create a document, or write a new revision of an existing one.

Without --rev an existing document is updated on top of its current revision.
With --rev the write fails if the document has moved on since that revision.

Examples:
  docsync put --title "Groceries" --body "milk"
  docsync put 5f0c... --file notes.md
  docsync put 5f0c... --body "eggs" --rev 2-9a1b...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.setTitle = cmd.Flags().Changed("title")
			opts.setBody = cmd.Flags().Changed("body")
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return c.runPut(cmd.Context(), id, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "document title")
	cmd.Flags().StringVarP(&opts.body, "body", "b", "", "document body")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read the body from a file")
	cmd.Flags().StringVar(&opts.rev, "rev", "", "expected current revision")
	cmd.MarkFlagsMutuallyExclusive("body", "file")

	return cmd
}

func (c *Cli) runPut(ctx context.Context, id string, opts *putOptions) error {
	body := opts.body
	if opts.file != "" {
		content, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("failed to read body file: %w", err)
		}
		body = string(content)
		opts.setBody = true
	}

	var expected *models.Revision
	if opts.rev != "" {
		rev, err := models.ParseRevision(opts.rev)
		if err != nil {
			return usageError("--rev: %v", err)
		}
		expected = &rev
	}

	e, err := c.start(ctx, false)
	if err != nil {
		return err
	}

	doc := &models.Document{ID: id, Title: opts.title, Body: body}

	if id != "" {
		current, err := e.Get(ctx, id)
		switch {
		case err == nil:
			// Редактирование: незаданные поля берем из текущей ревизии
			if !opts.setTitle {
				doc.Title = current.Title
			}
			if !opts.setBody {
				doc.Body = current.Body
			}
			if expected == nil {
				rev := current.Revision
				expected = &rev
			}
		case errors.Is(err, storage.ErrNotFound):
		default:
			return err
		}
	}

	saved, err := e.Put(ctx, doc, expected)
	if err != nil {
		if errors.Is(err, storage.ErrRevisionConflict) {
			return fmt.Errorf("document changed since %s, reload it first: %w", expected, err)
		}
		return err
	}

	if c.opts.JSON {
		return c.printJSON(saved)
	}
	c.io.Printf("Saved %s (rev %s)\n", saved.ID, saved.Revision)
	if saved.InConflict() {
		c.io.Printf("Warning: %s has %d conflicting revisions, see 'docsync conflicts'\n", saved.ID, len(saved.LeafRevisions))
	}
	return nil
}

func (c *Cli) newGetCommand() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGet(cmd.Context(), args[0], rev)
		},
	}
	cmd.Flags().StringVar(&rev, "rev", "", "show a specific revision instead of the winner")

	return cmd
}

func (c *Cli) runGet(ctx context.Context, id, rev string) error {
	e, err := c.start(ctx, false)
	if err != nil {
		return err
	}

	if rev != "" {
		r, err := models.ParseRevision(rev)
		if err != nil {
			return usageError("--rev: %v", err)
		}
		entry, err := e.GetRevision(ctx, id, r)
		if err != nil {
			return notFound(id, err)
		}
		if c.opts.JSON {
			return c.printJSON(entry)
		}
		c.printEntry(entry)
		return nil
	}

	doc, err := e.Get(ctx, id)
	if err != nil {
		return notFound(id, err)
	}

	if c.opts.JSON {
		return c.printJSON(doc)
	}

	c.io.Println("=== Document ===")
	c.io.Printf("ID:       %s\n", doc.ID)
	c.io.Printf("Title:    %s\n", doc.Title)
	c.io.Printf("Revision: %s\n", doc.Revision)
	c.io.Printf("Updated:  %s\n", doc.UpdatedAt.Local().Format(time.RFC3339))
	if doc.InConflict() {
		c.io.Printf("Conflict: %s\n", joinRevisions(doc.LeafRevisions))
	}
	c.io.Println()
	c.io.Println(doc.Body)
	return nil
}

func (c *Cli) printEntry(entry *models.RevisionEntry) {
	c.io.Println("=== Revision ===")
	c.io.Printf("ID:       %s\n", entry.ID)
	c.io.Printf("Title:    %s\n", entry.Title)
	c.io.Printf("Revision: %s\n", entry.Rev)
	if !entry.Parent.IsZero() {
		c.io.Printf("Parent:   %s\n", entry.Parent)
	}
	if entry.Deleted {
		c.io.Println("Deleted:  yes")
		return
	}
	c.io.Println()
	c.io.Println(entry.Body)
}

func (c *Cli) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List documents, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runList(cmd.Context())
		},
	}
}

func (c *Cli) runList(ctx context.Context) error {
	e, err := c.start(ctx, false)
	if err != nil {
		return err
	}

	docs, err := e.ListAll(ctx)
	if err != nil {
		return err
	}

	if c.opts.JSON {
		if docs == nil {
			docs = []*models.Document{}
		}
		return c.printJSON(docs)
	}

	if len(docs) == 0 {
		c.io.Println("No documents found.")
		return nil
	}

	for _, d := range docs {
		marker := " "
		if d.InConflict() {
			marker = "!"
		}
		c.io.Printf("%s %-36s  %-20s  %s\n", marker, d.ID, d.UpdatedAt.Local().Format("2006-01-02 15:04:05"), d.Title)
	}
	c.io.Printf("\nTotal: %d\n", len(docs))
	return nil
}

func (c *Cli) newRemoveCommand() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a document",
		Long: `Delete a document. The deletion is replicated like any other edit.
For a document in conflict, --rev removes just one of the conflicting revisions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRemove(cmd.Context(), args[0], rev)
		},
	}
	cmd.Flags().StringVar(&rev, "rev", "", "revision to delete (default: current winner)")

	return cmd
}

func (c *Cli) runRemove(ctx context.Context, id, rev string) error {
	e, err := c.start(ctx, false)
	if err != nil {
		return err
	}

	var target models.Revision
	if rev != "" {
		target, err = models.ParseRevision(rev)
		if err != nil {
			return usageError("--rev: %v", err)
		}
	} else {
		doc, err := e.Get(ctx, id)
		if err != nil {
			return notFound(id, err)
		}
		target = doc.Revision
	}

	if err := e.Remove(ctx, id, target); err != nil {
		return notFound(id, err)
	}

	c.io.Printf("Deleted %s (rev %s)\n", id, target)
	return nil
}

func notFound(id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("document not found: %s", id)
	}
	return err
}

func joinRevisions(revs []models.Revision) string {
	parts := make([]string, 0, len(revs))
	for _, r := range revs {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
