package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/urfave/cli"
	"github.com/tindale/gobold/internal/backend/headless"
	"github.com/tindale/gobold/internal/backend/terminal"
	"github.com/tindale/gobold/internal/core"
	"github.com/tindale/gobold/internal/input"
	"github.com/tindale/gobold/internal/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "gobold"
	app.Description = "A Game Boy emulator core"
	app.Usage = "gobold [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a terminal interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("running emulator", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	if c.Bool("headless") {
		return runHeadless(romPath, c.Int("frames"))
	}
	return runInteractive(romPath)
}

func runHeadless(romPath string, frames int) error {
	if frames <= 0 {
		return errors.New("headless mode requires --frames with a positive value")
	}

	sink := headless.New()
	console, err := core.NewFromFile(romPath, sink)
	if err != nil {
		return err
	}

	slog.Info("running headless", "rom", romPath, "frames", frames)

	for i := 0; i < frames; i++ {
		if _, err := console.RunFrame(); err != nil {
			return err
		}
		if (i+1)%60 == 0 {
			slog.Info("frame progress", "completed", i+1, "total", frames)
		}
	}

	slog.Info("headless run completed", "frames", frames)
	return nil
}

func runInteractive(romPath string) error {
	sink := terminal.New()
	console, err := core.NewFromFile(romPath, sink)
	if err != nil {
		return err
	}

	if err := sink.Init(); err != nil {
		return err
	}
	defer sink.Close()

	limiter := timing.NewAdaptiveLimiter()
	dispatcher := input.NewDispatcher(console.Bus())

	slog.Info("running interactive", "rom", romPath)

	for !sink.Quit() {
		events, err := console.RunFrame()
		if err != nil {
			return err
		}
		dispatcher.Apply(events)
		limiter.WaitForNextFrame()
	}

	return nil
}
