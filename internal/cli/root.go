package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/quota-watch/internal/config"
	"github.com/samvad-hq/quota-watch/internal/logger"
)

// state is shared by all subcommands of one root command.
type state struct {
	cfg *config.Config
}

// NewRootCmd builds the quotactl command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "quotactl",
		Short:         "Query and watch quota on new-api gateway consoles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			st.cfg = cfg
			return nil
		},
	}

	root.AddCommand(newQuotaCmd(st))
	root.AddCommand(newUsageCmd(st))
	root.AddCommand(newInvokeCmd(st))
	root.AddCommand(newProfilesCmd(st))
	root.AddCommand(newWatchCmd(st))
	root.AddCommand(newServeCmd(st))
	return root
}

// Execute runs the root command with ctx for graceful shutdown.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// initLogger starts the structured logger for long-running commands.
func (st *state) initLogger() (logger.Logger, func(), error) {
	log, err := logger.Init(st.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return log, func() { _ = logger.Close() }, nil
}
