package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repairgraph/internal/server"
)

// serveCommand creates the serve command for the read API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Serve variant tables, graphs and layouts over HTTP",
		Long: `Serve variant tables, graphs and layouts over HTTP.

The server reads the outputs a previous 'run' of the same configuration
wrote to its output directory and layout store:

  GET /healthz
  GET /groups
  GET /groups/{group}/graph
  GET /groups/{group}/layout
  GET /groups/{group}/render/{format}?detailed&experiment=<name>
  GET /experiments/{name}/variants[?format=tsv]

Stop the server with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching of rendered artifacts")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, path, addr string, noCache bool) error {
	cfg, runner, err := c.newConfigRunner(ctx, path, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	printInfo("Serving %s", StyleLink.Render("http://"+addr))
	printKeyValue("Output", cfg.OutputDir)
	printKeyValue("Store", cfg.Store.Kind)
	printKeyValue("Groups", strings.Join(cfg.Groups(), ", "))
	if err := server.New(cfg, runner, c.Logger).ListenAndServe(ctx, addr); err != nil {
		return err
	}
	printSuccess("Server stopped")
	return nil
}
