package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gnames/gn"
	"github.com/openherbaria/herbdb/internal/ioapi"
	"github.com/openherbaria/herbdb/internal/ioquality"
	"github.com/openherbaria/herbdb/internal/ioreview"
	"github.com/openherbaria/herbdb/pkg/config"
	"github.com/spf13/cobra"
)

func getServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the review API server",
		Long: `Starts the HTTP server that backs the review workflow: the queue,
specimen details, review decisions, priority and flag management.

The server runs until interrupted and shuts down gracefully.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			port, _ := cmd.Flags().GetInt("port")
			if port > 0 {
				cfg.Update([]config.Option{config.OptAPIPort(port)})
			}
			return runServe(cmd.Context())
		},
	}

	serveCmd.Flags().IntP("port", "p", 0, "port for the review API")

	return serveCmd
}

func runServe(ctx context.Context) error {
	rules, err := ioquality.LoadRules(config.RulesFilePath(homeDir))
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	op, err := connectOperator(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	engine := ioreview.New(op, rules)
	server := ioapi.New(cfg, engine)

	ctx, stop := signal.NotifyContext(ctx,
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gn.Info("Review API listening on <em>%s:%d</em>",
		cfg.API.Host, cfg.API.Port)

	if err = server.Run(ctx); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	return nil
}
