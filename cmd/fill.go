package main

import (
	"runtime"
	"sync"
	"time"

	"NDZarr/pkg/utils"
	"NDZarr/pkg/zarr"

	"github.com/urfave/cli/v2"
)

func fillFlags() *cli.Command {
	return &cli.Command{
		Name:      "fill",
		Usage:     "materialize every chunk of an array with its fill value",
		ArgsUsage: "DIR [PATH]",
		Action:    fill,
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:    "threads",
				Aliases: []string{"p"},
				Usage:   "number of concurrent writers",
			},
		},
	}
}

func fill(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		logger.Fatalf("DIR is required")
	}
	s, err := openStore(c.Args().Get(0), false)
	if err != nil {
		logger.Fatalf("open store: %s", err)
	}
	a, err := zarr.OpenArray(s, c.Args().Get(1))
	if err != nil {
		logger.Fatalf("%s", err)
	}

	concurrent := int(c.Uint("threads"))
	if concurrent == 0 {
		concurrent = runtime.GOMAXPROCS(0)
	}
	positions := a.Grid().Positions()
	logger.Infof("start to fill %d chunks with %d workers", len(positions), concurrent)
	start := time.Now()

	progress, bar := utils.NewDynProgressBar("filling chunks: ", c.Bool("quiet"))
	bar.SetTotal(int64(len(positions)), false)

	// distinct grid positions are independent, so parallel writers are safe
	todo := make(chan []int, 1024)
	var wg sync.WaitGroup
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range todo {
				if err := a.MaterializeChunk(pos); err != nil {
					logger.Errorf("fill chunk %v: %s", pos, err)
				}
				bar.Increment()
			}
		}()
	}
	for _, pos := range positions {
		todo <- pos
	}
	close(todo)
	wg.Wait()
	bar.SetTotal(0, true)
	progress.Wait()

	logger.Infof("filled %d chunks in %s", len(positions), time.Since(start))
	return nil
}
