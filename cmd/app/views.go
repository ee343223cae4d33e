package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/algiz/internal/archive"
	"github.com/starford/algiz/internal/view"
)

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "Manage materialized views",
		Commands: []*cli.Command{
			{
				Name:  "ls",
				Usage: "List view names",
				Action: withArchive(func(_ context.Context, cmd *cli.Command, a *archive.Archive) error {
					names, err := a.Views().Names()
					if err != nil {
						return err
					}
					for _, n := range names {
						fmt.Fprintf(stdout(cmd), "%s\t%s\n", n, view.KindOf(n))
					}
					return nil
				}),
			},
			{
				Name:      "list",
				Usage:     "Show the slots of a view in order",
				ArgsUsage: "NAME",
				Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
					if err := needArgs(cmd, 1); err != nil {
						return err
					}
					slots, err := a.Views().List(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					w := stdout(cmd)
					for _, s := range slots {
						if s.Missing {
							fmt.Fprintf(w, "%d\t-\t%s\tmissing: %s\n", s.Index, s.Hash, s.Reason)
							continue
						}
						fmt.Fprintf(w, "%d\t%d\t%s\n", s.Index, s.Document, s.Hash)
					}
					return nil
				}),
			},
			{
				Name:      "create",
				Usage:     "Create an empty view, or a generated one with --generate",
				ArgsUsage: "[NAME]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "generate", Usage: "Generate the next name of kind user, query or stash"},
				},
				Action: withArchive(func(_ context.Context, cmd *cli.Command, a *archive.Archive) error {
					if k := cmd.String("generate"); k != "" {
						name, err := a.Views().Generate(view.Kind(k))
						if err != nil {
							return err
						}
						fmt.Fprintln(stdout(cmd), name)
						return nil
					}
					if err := needArgs(cmd, 1); err != nil {
						return err
					}
					return a.Views().Create(cmd.Args().First())
				}),
			},
			{
				Name:      "append",
				Usage:     "Append documents to a view",
				ArgsUsage: "NAME ID...",
				Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
					args := cmd.Args().Slice()
					if len(args) < 2 {
						return fmt.Errorf("append: usage: %s", cmd.ArgsUsage)
					}
					ids, err := parseIDs(args[1:])
					if err != nil {
						return err
					}
					for _, id := range ids {
						idx, err := a.Views().Append(ctx, args[0], id)
						if err != nil {
							return err
						}
						fmt.Fprintf(stdout(cmd), "%d\t%d\n", idx, id)
					}
					return nil
				}),
			},
			{
				Name:      "clear",
				Usage:     "Remove every slot of a view",
				ArgsUsage: "NAME",
				Action: withArchive(func(_ context.Context, cmd *cli.Command, a *archive.Archive) error {
					if err := needArgs(cmd, 1); err != nil {
						return err
					}
					return a.Views().Clear(cmd.Args().First())
				}),
			},
			{
				Name:      "reflect",
				Usage:     "Append the slots of SOURCE to TARGET",
				ArgsUsage: "TARGET SOURCE",
				Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
					if err := needArgs(cmd, 2); err != nil {
						return err
					}
					n, err := a.Views().Reflect(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Fprintf(stdout(cmd), "reflected %d slot(s)\n", n)
					return nil
				}),
			},
			{
				Name:      "stash",
				Usage:     "Move the slots of a view into a new stash view",
				ArgsUsage: "NAME",
				Action: withArchive(func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error {
					if err := needArgs(cmd, 1); err != nil {
						return err
					}
					name, err := a.Views().Stash(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(stdout(cmd), name)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a non-reserved view",
				ArgsUsage: "NAME",
				Action: withArchive(func(_ context.Context, cmd *cli.Command, a *archive.Archive) error {
					if err := needArgs(cmd, 1); err != nil {
						return err
					}
					return a.Views().Delete(cmd.Args().First())
				}),
			},
		},
	}
}
