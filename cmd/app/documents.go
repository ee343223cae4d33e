package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/starford/algiz/internal/archive"
	"github.com/starford/algiz/internal/models"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create the archive layout and catalog",
		Action: withArchive(func(_ context.Context, cmd *cli.Command, a *archive.Archive) error {
			fmt.Fprintf(stdout(cmd), "archive ready at %s\n", a.Root())
			return nil
		}),
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Copy files into the archive and append them to the in view",
		ArgsUsage: "PATH...",
		Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("ingest: at least one path is required")
			}
			docs, skipped, err := a.IngestAll(ctx, paths)
			w := stdout(cmd)
			for _, d := range docs {
				fmt.Fprintf(w, "%d\t%s\t%s\n", d.ID, displayName(d), humanize.Bytes(uint64(d.Size)))
			}
			if skipped > 0 {
				fmt.Fprintf(w, "skipped %d duplicate(s)\n", skipped)
			}
			return err
		}),
	}
}

func displayName(d *models.Document) string {
	if d.Ext == "" {
		return d.Name
	}
	return d.Name + "." + d.Ext
}

func printDocuments(cmd *cli.Command, docs []models.Document) {
	tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	for _, d := range docs {
		mark := ""
		if d.Deleted {
			mark = " (deleted)"
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%s\t%s\n", d.ID, displayName(&d), mark,
			humanize.Bytes(uint64(d.Size)), humanize.Time(d.CreatedAt))
	}
	tw.Flush()
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Select documents with a tag query (empty query matches everything)",
		ArgsUsage: "[QUERY...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Usage: "Include soft-deleted documents"},
			&cli.StringFlag{Name: "view", Usage: `Project the result: "query" for a new query view, or a view name to overwrite`},
			&cli.StringFlag{Name: "context", Usage: "Resolve tag names below this taxonym"},
		},
		Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
			res, err := a.Search(ctx, strings.Join(cmd.Args().Slice(), " "), archive.SearchOptions{
				Raw:     cmd.Bool("raw"),
				View:    cmd.String("view"),
				Context: cmd.String("context"),
			})
			if err != nil {
				return err
			}
			docs, err := a.Documents(ctx, res.IDs)
			if err != nil {
				return err
			}
			printDocuments(cmd, docs)
			if res.View != "" {
				fmt.Fprintf(stdout(cmd), "%d document(s) in view %s\n", len(docs), res.View)
			}
			return nil
		}),
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a document with its tags and sources",
		ArgsUsage: "ID",
		Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
			if err := needArgs(cmd, 1); err != nil {
				return err
			}
			ids, err := parseIDs(cmd.Args().Slice())
			if err != nil {
				return err
			}
			d, err := a.Document(ctx, ids[0])
			if err != nil {
				return err
			}
			w := stdout(cmd)
			fmt.Fprintf(w, "id:       %d\n", d.ID)
			fmt.Fprintf(w, "name:     %s\n", displayName(&d.Document))
			fmt.Fprintf(w, "hash:     %s\n", d.Hash)
			fmt.Fprintf(w, "size:     %s\n", humanize.Bytes(uint64(d.Size)))
			if d.MediaType != "" {
				fmt.Fprintf(w, "type:     %s\n", d.MediaType)
			}
			fmt.Fprintf(w, "added:    %s (%s)\n", d.CreatedAt.Format("2006-01-02 15:04"), humanize.Time(d.CreatedAt))
			if d.Deleted {
				fmt.Fprintln(w, "deleted:  yes")
			}
			if d.Comment != "" {
				fmt.Fprintf(w, "comment:  %s\n", d.Comment)
			}
			fmt.Fprintf(w, "tags:     %s\n", strings.Join(d.Tags, " "))
			for _, s := range d.Sources {
				fmt.Fprintf(w, "source:   %s\n", s)
			}
			fmt.Fprintf(w, "blob:     %s\n", d.Path)
			return nil
		}),
	}
}

func commentCommand() *cli.Command {
	return &cli.Command{
		Name:      "comment",
		Usage:     "Set or clear (empty TEXT) a document comment",
		ArgsUsage: "ID [TEXT...]",
		Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				return fmt.Errorf("comment: document id is required")
			}
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			return a.SetComment(ctx, ids[0], strings.Join(args[1:], " "))
		}),
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Soft-delete documents; content and view slots are kept",
		ArgsUsage: "ID...",
		Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
			ids, err := parseIDs(cmd.Args().Slice())
			if err != nil {
				return err
			}
			return a.Remove(ctx, ids...)
		}),
	}
}

func restoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Undo rm",
		ArgsUsage: "ID...",
		Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
			ids, err := parseIDs(cmd.Args().Slice())
			if err != nil {
				return err
			}
			return a.Restore(ctx, ids...)
		}),
	}
}

func orphansCommand() *cli.Command {
	return &cli.Command{
		Name:  "orphans",
		Usage: "List stored blobs that no document refers to",
		Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
			hashes, err := a.Orphans(ctx)
			if err != nil {
				return err
			}
			for _, h := range hashes {
				fmt.Fprintln(stdout(cmd), h)
			}
			return nil
		}),
	}
}
