package main

import (
	"bytes"
	crand "crypto/rand"

	"NDZarr/pkg/codecs"
	"NDZarr/pkg/store"
	"NDZarr/pkg/zarr"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func createFlags() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "create an array (or group) in a directory store",
		ArgsUsage: "DIR [PATH]",
		Action:    create,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "shape",
				Usage: "array shape, e.g. 1000,1000",
			},
			&cli.StringFlag{
				Name:  "chunks",
				Usage: "chunk shape; halved from the array shape to fit 1MiB if omitted",
			},
			&cli.StringFlag{
				Name:  "dtype",
				Value: "float64",
				Usage: "element type (int8..int64, uint8..uint64, float32, float64)",
			},
			&cli.Float64Flag{
				Name:  "fill",
				Usage: "fill value for never-written chunks",
			},
			&cli.StringFlag{
				Name:  "order",
				Value: "C",
				Usage: "element layout: C (row-major) or F (column-major)",
			},
			&cli.IntFlag{
				Name:  "format",
				Value: 2,
				Usage: "metadata dialect: 2 or 3",
			},
			&cli.StringFlag{
				Name:  "separator",
				Value: ".",
				Usage: "chunk key separator for v2 arrays (. or /)",
			},
			&cli.StringFlag{
				Name:  "compress",
				Value: "blosc",
				Usage: "compressor: blosc, gzip, zstd, zlib or none",
			},
			&cli.IntFlag{
				Name:  "level",
				Value: 5,
				Usage: "compression level",
			},
			&cli.BoolFlag{
				Name:  "group",
				Usage: "create a group instead of an array",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing node",
			},
		},
	}
}

// doTesting verifies the store accepts a write/read/delete cycle before any
// metadata is persisted.
func doTesting(s store.Store, key string, data []byte) error {
	if err := s.Put(key, data); err != nil {
		return err
	}
	got, err := s.Get(key)
	if err != nil {
		return err
	}
	if !bytes.Equal(data, got) {
		return store.ErrNotSupported
	}
	if err := s.Delete(key); err != nil {
		// it's OK to not have deletion permission
		logger.Warnf("failed to delete test key: %s", err)
	}
	return nil
}

func selfTest(s store.Store) error {
	key := "testing/" + uuid.New().String()
	data := make([]byte, 100)
	_, _ = crand.Read(data)
	return doTesting(s, key, data)
}

func newCompressor(name string, level int) (codecs.Codec, bool, error) {
	switch name {
	case "none":
		return nil, true, nil
	case "blosc":
		c, err := codecs.NewBlosc("zstd", level, true, 0)
		return c, false, err
	case "gzip":
		c, err := codecs.NewGzip(level)
		return c, false, err
	case "zstd":
		c, err := codecs.NewZstd(level, false)
		return c, false, err
	case "zlib":
		c, err := codecs.NewZlib(level)
		return c, false, err
	}
	return nil, false, cli.Exit("unsupported compressor: "+name, 1)
}

func create(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		logger.Fatalf("DIR is required")
	}
	s, err := openStore(c.Args().Get(0), false)
	if err != nil {
		logger.Fatalf("open store: %s", err)
	}
	path := c.Args().Get(1)

	if err := selfTest(s); err != nil {
		logger.Fatalf("store %s is not usable: %s", s.Info().Name, err)
	}

	if c.Bool("group") {
		g, err := zarr.CreateGroup(s, path, &zarr.GroupOptions{
			Version:   c.Int("format"),
			Overwrite: c.Bool("force"),
		})
		if err != nil {
			logger.Fatalf("create group: %s", err)
		}
		logger.Infof("created group %q (v%d)", g.Path(), g.Version())
		return nil
	}

	shape, err := parseInts(c.String("shape"))
	if err != nil || shape == nil {
		logger.Fatalf("a shape like 1000,1000 is required: %s", err)
	}
	chunks, err := parseInts(c.String("chunks"))
	if err != nil {
		logger.Fatalf("chunks: %s", err)
	}
	dtype, err := zarr.ParseDtype(c.String("dtype"))
	if err != nil {
		logger.Fatalf("%s", err)
	}
	compressor, none, err := newCompressor(c.String("compress"), c.Int("level"))
	if err != nil {
		logger.Fatalf("%s", err)
	}

	a, err := zarr.CreateArray(s, path, &zarr.CreateOptions{
		Shape:              shape,
		Chunks:             chunks,
		Dtype:              dtype,
		FillValue:          c.Float64("fill"),
		Order:              zarr.Order(c.String("order")),
		Version:            c.Int("format"),
		DimensionSeparator: c.String("separator"),
		Compressor:         compressor,
		NoCompression:      none,
		Overwrite:          c.Bool("force"),
	})
	if err != nil {
		logger.Fatalf("create array: %s", err)
	}
	logger.Infof("created array %q: shape %v, chunks %v, dtype %s, %d chunks",
		a.Path(), a.Shape(), a.Chunks(), a.Dtype(), a.Grid().NumChunks())
	return nil
}
