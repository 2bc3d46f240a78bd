package main

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/lunixbochs/mclf/go/loader"
	"github.com/lunixbochs/mclf/go/models"
	"github.com/lunixbochs/mclf/go/models/mem"
)

func newPrinter(cmd *cli.Command, cfg *models.Config) *printer {
	color := isatty.IsTerminal(os.Stdout.Fd())
	if cfg.Color != nil {
		color = *cfg.Color
	}
	if cmd.IsSet("color") {
		color = cmd.Bool("color")
	}
	return &printer{w: os.Stdout, color: color}
}

func boolOption(cmd *cli.Command, name string, def bool) bool {
	if cmd.IsSet(name) {
		return cmd.Bool(name)
	}
	return def
}

func stringOption(cmd *cli.Command, name string, def string) string {
	if cmd.IsSet(name) || def == "" {
		return cmd.String(name)
	}
	return def
}

func readImage(cfg *models.Config, cmd *cli.Command) (string, []byte, error) {
	if cmd.Args().Len() != 1 {
		return "", nil, errors.New("expected exactly one image file")
	}
	path := cfg.ImagePath(cmd.Args().First())
	p, err := ioutil.ReadFile(path)
	return path, p, err
}

func sniffCmd(cfg *models.Config) *cli.Command {
	return &cli.Command{
		Name:      "sniff",
		Usage:     "report the load specs an image supports",
		ArgsUsage: "<image>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, p, err := readImage(cfg, cmd)
			if err != nil {
				return err
			}
			specs, err := loader.Probe(bytes.NewReader(p))
			if err != nil {
				return errors.Wrap(err, path)
			}
			for _, spec := range specs {
				fmt.Printf("%s: %s %d-bit (preferred=%v)\n", path, spec.String(), spec.Bits, spec.Preferred)
			}
			return nil
		},
	}
}

func loadCmd(cfg *models.Config) *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "load an MCLF image and print the resulting memory layout",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the image as JSON"},
			&cli.BoolFlag{Name: "strict", Usage: "exit with an error if any region, symbol or overlay was refused"},
			&cli.BoolFlag{Name: "no-overlay", Usage: "do not project the header into the image"},
			&cli.StringFlag{Name: "snapshot", Aliases: []string{"o"}, Usage: "save the loaded image to `FILE`"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, p, err := readImage(cfg, cmd)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, stringOption(cmd, "log-level", cfg.LogLevel))
			opts := &loader.Options{
				Strict:      boolOption(cmd, "strict", cfg.Strict),
				SkipOverlay: boolOption(cmd, "no-overlay", cfg.SkipOverlay),
			}
			r := bytes.NewReader(p)
			specs, err := loader.Probe(r)
			if err != nil {
				return errors.Wrap(err, path)
			}
			img := mem.NewImage(uint(specs[0].Bits), specs[0].ByteOrder)
			img.File = filepath.Base(path)

			res, loadErr := loader.Load(ctx, r, &specs[0], img, opts, logSink{logger})
			if res.State < loader.StateLoaded {
				return errors.Wrap(loadErr, path)
			}
			if snap := cmd.String("snapshot"); snap != "" {
				if err := saveSnapshot(cfg.SnapshotPath(snap), img); err != nil {
					return err
				}
			}
			if boolOption(cmd, "json", cfg.JSON) {
				if err := writeJSON(os.Stdout, img, res); err != nil {
					return err
				}
			} else {
				pr := newPrinter(cmd, cfg)
				pr.header(res.Header)
				pr.image(img)
				pr.diags(res.Diags)
			}
			return loadErr
		},
	}
}

func saveSnapshot(path string, img *mem.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := img.Save(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing snapshot %s", path)
	}
	return f.Close()
}

func restoreCmd(cfg *models.Config) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "print an image snapshot saved by load --snapshot",
		ArgsUsage: "<snapshot>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the image as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("expected exactly one snapshot file")
			}
			path := cfg.SnapshotPath(cmd.Args().First())
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			img, err := mem.Restore(f)
			if err != nil {
				return errors.Wrap(err, path)
			}
			if boolOption(cmd, "json", cfg.JSON) {
				return writeJSON(os.Stdout, img, nil)
			}
			newPrinter(cmd, cfg).image(img)
			return nil
		},
	}
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		printError(os.Stderr, err, false)
		os.Exit(1)
	}
	verbose := false
	app := &cli.Command{
		Name:  "mclf",
		Usage: "inspect MobiCore Loadable Format trusted application images",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "color", Usage: "force colored output on or off"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "diagnostic log level (debug, info, warn, error)"},
			&cli.BoolFlag{Name: "v", Usage: "print stack traces with errors", Destination: &verbose},
		},
		Commands: []*cli.Command{
			sniffCmd(cfg),
			loadCmd(cfg),
			restoreCmd(cfg),
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		printError(os.Stderr, err, verbose)
		os.Exit(1)
	}
}
