package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"task-manager/internal/client"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "cliente",
		Usage:     "Console client for the task manager server",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Base URL of the server",
				EnvVars: []string{"TAREAS_URL"},
				Value:   client.DefaultBaseURL,
			},
		},
		Action: func(ctx *cli.Context) error {
			api, err := client.New(ctx.String("url"))
			if err != nil {
				return err
			}
			return client.NewConsole(api, ctx.App.Reader, ctx.App.Writer).Run(ctx.Context)
		},
	}
}
