package main

import (
	"fmt"

	"NDZarr/pkg/zarr"

	"github.com/urfave/cli/v2"
)

func lsFlags() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "list the members of a group",
		ArgsUsage: "DIR [PATH]",
		Action:    ls,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "recursive",
				Aliases: []string{"r"},
				Usage:   "descend into nested groups",
			},
		},
	}
}

func ls(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		logger.Fatalf("DIR is required")
	}
	s, err := openStore(c.Args().Get(0), true)
	if err != nil {
		logger.Fatalf("open store: %s", err)
	}
	g, err := zarr.OpenGroup(s, c.Args().Get(1))
	if err != nil {
		logger.Fatalf("%s", err)
	}
	return list(g, "", c.Bool("recursive"))
}

func list(g *zarr.Group, indent string, recursive bool) error {
	children, err := g.Children()
	if err != nil {
		return err
	}
	for _, node := range children {
		fmt.Printf("%s%s (%s)\n", indent, node.Name, node.Kind)
		if recursive && node.Kind == zarr.KindGroup {
			sub, err := g.OpenGroup(node.Name)
			if err != nil {
				return err
			}
			if err := list(sub, indent+"  ", true); err != nil {
				return err
			}
		}
	}
	return nil
}
