package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/algiz/internal/archive"
)

// pair and single adapt archive methods taking positional arguments.
func pair(fn func(a *archive.Archive, ctx context.Context, x, y string) error) cli.ActionFunc {
	return withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
		if err := needArgs(cmd, 2); err != nil {
			return err
		}
		return fn(a, ctx, cmd.Args().Get(0), cmd.Args().Get(1))
	})
}

func single(fn func(a *archive.Archive, ctx context.Context, x string) error) cli.ActionFunc {
	return withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
		if err := needArgs(cmd, 1); err != nil {
			return err
		}
		return fn(a, ctx, cmd.Args().First())
	})
}

func taxonymCommand() *cli.Command {
	return &cli.Command{
		Name:    "taxonym",
		Aliases: []string{"tx"},
		Usage:   "Edit the taxonomy",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a taxonym under --parent (default: root)",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent path"},
				},
				Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
					if err := needArgs(cmd, 1); err != nil {
						return err
					}
					id, err := a.AddTaxonym(ctx, cmd.String("parent"), cmd.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(stdout(cmd), id)
					return nil
				}),
			},
			{
				Name:      "rm",
				Usage:     "Delete a leaf taxonym",
				ArgsUsage: "PATH",
				Action:    single((*archive.Archive).RemoveTaxonym),
			},
			{
				Name:      "rename",
				Usage:     "Change the canonical name of a taxonym",
				ArgsUsage: "PATH NEWNAME",
				Action:    pair((*archive.Archive).RenameTaxonym),
			},
			{
				Name:      "alias",
				Usage:     "Add an alternate name",
				ArgsUsage: "PATH ALIAS",
				Action:    pair((*archive.Archive).AddAlias),
			},
			{
				Name:      "unalias",
				Usage:     "Remove an alternate name",
				ArgsUsage: "PATH ALIAS",
				Action:    pair((*archive.Archive).RemoveAlias),
			},
			{
				Name:      "link",
				Usage:     "Add PARENT as an extra parent of CHILD",
				ArgsUsage: "CHILD PARENT",
				Action:    pair((*archive.Archive).Link),
			},
			{
				Name:      "unlink",
				Usage:     "Remove a non-canonical parent link",
				ArgsUsage: "CHILD PARENT",
				Action:    pair((*archive.Archive).Unlink),
			},
			{
				Name:      "resolve",
				Usage:     "Print every taxonym a colon pattern matches",
				ArgsUsage: "PATTERN",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "context", Usage: "Resolve below this taxonym"},
				},
				Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
					if err := needArgs(cmd, 1); err != nil {
						return err
					}
					hits, err := a.Resolve(ctx, cmd.Args().First(), cmd.String("context"))
					if err != nil {
						return err
					}
					for _, h := range hits {
						fmt.Fprintf(stdout(cmd), "%d\t%s\n", h.ID, h.Path)
					}
					return nil
				}),
			},
		},
	}
}

func tagCommand() *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "Manage tags, implications and document tagging",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Mark a taxonym as a tag",
				ArgsUsage: "PATH",
				Action: single(func(a *archive.Archive, ctx context.Context, name string) error {
					_, err := a.CreateTag(ctx, name)
					return err
				}),
			},
			{
				Name:      "rm",
				Usage:     "Drop a tag with its associations and implications",
				ArgsUsage: "PATH",
				Action:    single((*archive.Archive).DeleteTag),
			},
			{
				Name:      "imply",
				Usage:     "Make ANTECEDENT imply CONSEQUENT in queries",
				ArgsUsage: "ANTECEDENT CONSEQUENT",
				Action:    pair((*archive.Archive).Imply),
			},
			{
				Name:      "unimply",
				Usage:     "Remove an implication",
				ArgsUsage: "ANTECEDENT CONSEQUENT",
				Action:    pair((*archive.Archive).Unimply),
			},
			{
				Name:      "apply",
				Usage:     "Tag documents",
				ArgsUsage: "PATH ID...",
				Action:    tagging((*archive.Archive).Apply),
			},
			{
				Name:      "unapply",
				Usage:     "Untag documents",
				ArgsUsage: "PATH ID...",
				Action:    tagging((*archive.Archive).Unapply),
			},
		},
	}
}

func tagging(fn func(a *archive.Archive, ctx context.Context, name string, ids ...int64) error) cli.ActionFunc {
	return withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
		args := cmd.Args().Slice()
		if len(args) < 2 {
			return fmt.Errorf("%s: usage: %s", cmd.Name, cmd.ArgsUsage)
		}
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		return fn(a, ctx, args[0], ids...)
	})
}
