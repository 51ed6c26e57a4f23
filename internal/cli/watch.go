package cli

import (
	"github.com/spf13/cobra"

	"github.com/samvad-hq/quota-watch/internal/app"
	"github.com/samvad-hq/quota-watch/internal/logger"
)

func newWatchCmd(st *state) *cobra.Command {
	var serve bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll every configured site and record quota snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, closeLog, err := st.initLogger()
			if err != nil {
				return err
			}
			defer closeLog()

			log.InfoObj("watcher starting", "config", st.cfg)
			return app.Run(cmd.Context(), st.cfg, log, serve)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "also serve the HTTP API")
	return cmd
}

func newServeCmd(st *state) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (commands, sites, stored snapshots) without polling",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, closeLog, err := st.initLogger()
			if err != nil {
				return err
			}
			defer closeLog()

			if addr != "" {
				st.cfg.HTTPAddr = addr
			}
			return serveOnly(cmd, st, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $HTTP_ADDR)")
	return cmd
}

func serveOnly(cmd *cobra.Command, st *state, log logger.Logger) error {
	client, err := app.NewGatewayClient(st.cfg, log)
	if err != nil {
		return err
	}
	siteReg, err := app.LoadSites(st.cfg, log)
	if err != nil {
		return err
	}
	store, err := app.NewStore(st.cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := app.NewServer(st.cfg.HTTPAddr, client, siteReg, store, log)
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}
