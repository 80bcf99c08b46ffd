package main

import (
	"fmt"

	"NDZarr/pkg/zarr"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func infoFlags() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show metadata and chunk statistics for a node",
		ArgsUsage: "DIR [PATH]",
		Action:    info,
	}
}

func info(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		logger.Fatalf("DIR is required")
	}
	s, err := openStore(c.Args().Get(0), true)
	if err != nil {
		logger.Fatalf("open store: %s", err)
	}
	path := c.Args().Get(1)

	a, err := zarr.OpenArray(s, path)
	if errors.Is(err, zarr.ErrPathNotFound) {
		g, gerr := zarr.OpenGroup(s, path)
		if gerr != nil {
			logger.Fatalf("no array or group at %q: %s", path, err)
		}
		fmt.Printf("group   : %q (v%d)\n", g.Path(), g.Version())
		if attrs := g.Attrs(); len(attrs) > 0 {
			fmt.Printf("attrs   : %v\n", attrs)
		}
		if children, err := g.Children(); err == nil {
			fmt.Printf("members : %d\n", len(children))
		}
		return nil
	}
	if err != nil {
		logger.Fatalf("%s", err)
	}

	m := a.Meta()
	fmt.Printf("array   : %q (v%d)\n", a.Path(), m.Version)
	fmt.Printf("shape   : %v\n", m.Shape)
	fmt.Printf("chunks  : %v\n", m.Chunks)
	fmt.Printf("dtype   : %s\n", m.Dtype)
	fmt.Printf("order   : %s\n", m.Order)
	fmt.Printf("fill    : %v\n", m.FillValue)
	if m.Compressor != nil {
		fmt.Printf("compress: %v\n", m.Compressor.Config())
	} else {
		fmt.Printf("compress: none\n")
	}
	for _, f := range m.Filters {
		fmt.Printf("filter  : %v\n", f.Config())
	}
	if attrs := a.Attrs(); len(attrs) > 0 {
		fmt.Printf("attrs   : %v\n", attrs)
	}

	total := a.Grid().NumChunks()
	written := 0
	for _, pos := range a.Grid().Positions() {
		ok, err := a.ChunkExists(pos)
		if err != nil {
			logger.Fatalf("check chunk %v: %s", pos, err)
		}
		if ok {
			written++
		}
	}
	fmt.Printf("stored  : %d / %d chunks\n", written, total)
	return nil
}
