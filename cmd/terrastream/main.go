package main

import (
	"log"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"
)

func init() {
	// The GL context and window, when requested, must stay on one thread.
	runtime.LockOSThread()
}

func main() {
	app := &cli.App{
		Name:  "terrastream",
		Usage: "stream a procedurally generated world around a moving camera",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML settings file (defaults apply when omitted)",
			},
			&cli.StringFlag{
				Name:  "mode",
				Value: "flat",
				Usage: "coordinate regime: flat or sphere",
			},
			&cli.IntFlag{
				Name:  "frames",
				Value: 1800,
				Usage: "number of frames to simulate (0 runs until interrupted)",
			},
			&cli.Float64Flag{
				Name:  "fps",
				Value: 60,
				Usage: "target frame rate",
			},
			&cli.BoolFlag{
				Name:  "window",
				Usage: "open a GL window and upload textures to the GPU",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
