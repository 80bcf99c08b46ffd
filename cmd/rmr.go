package main

import (
	"NDZarr/pkg/zarr"

	"github.com/urfave/cli/v2"
)

func rmrFlags() *cli.Command {
	return &cli.Command{
		Name:      "rmr",
		Usage:     "remove a node and everything stored under it",
		ArgsUsage: "DIR PATH ...",
		Action:    rmr,
	}
}

func rmr(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 2 {
		logger.Fatalf("DIR and PATH are required")
	}
	s, err := openStore(c.Args().Get(0), false)
	if err != nil {
		logger.Fatalf("open store: %s", err)
	}
	for i := 1; i < c.Args().Len(); i++ {
		path := c.Args().Get(i)
		if err := zarr.DeleteNode(s, path); err != nil {
			logger.Errorf("remove %q: %s", path, err)
			continue
		}
		logger.Infof("removed %q", path)
	}
	return nil
}
