package main

import (
	"os"
	"strconv"
	"strings"

	"NDZarr/pkg/store"
	"NDZarr/pkg/utils"
	"NDZarr/pkg/version"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var logger = utils.GetLogger("ndzarr")

func main() {
	app := &cli.App{
		Name:                 "ndzarr",
		Usage:                "chunked, compressed N-dimensional arrays over a key-value store",
		Version:              version.Version(),
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"debug", "v"},
				Usage:   "enable debug log",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only warning and errors",
			},
		},
		Commands: []*cli.Command{
			createFlags(),
			infoFlags(),
			lsFlags(),
			fillFlags(),
			rmrFlags(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("%s", err)
	}
}

func setLoggerLevel(c *cli.Context) {
	if c.Bool("verbose") {
		utils.SetLogLevel(logrus.DebugLevel)
	} else if c.Bool("quiet") {
		utils.SetLogLevel(logrus.WarnLevel)
	}
}

// openStore maps a DIR argument to a filesystem-backed store.
func openStore(dir string, readOnly bool) (store.Store, error) {
	s, err := store.NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	if readOnly {
		s = store.NewReadOnly(s)
	}
	return s, nil
}

// parseInts parses "100,100" style dimension lists.
func parseInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Errorf("invalid dimension %q", p)
		}
		out[i] = v
	}
	return out, nil
}
