package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/quota-watch/internal/app"
	"github.com/samvad-hq/quota-watch/internal/commands"
	"github.com/samvad-hq/quota-watch/internal/monitor"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
)

// authFlags are the session flags shared by quota and usage. Empty flags fall
// back to the single-site settings.
type authFlags struct {
	url    string
	cookie string
	userID string
}

func (f *authFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "console base URL (default $SITE_URL)")
	cmd.Flags().StringVar(&f.cookie, "cookie", "", "session cookie (default $SITE_COOKIE)")
	cmd.Flags().StringVar(&f.userID, "user-id", "", "console user id (default $SITE_USER_ID)")
}

func (f *authFlags) resolve(st *state) (gateway.AuthContext, error) {
	auth := gateway.AuthContext{BaseURL: f.url, Cookie: f.cookie, UserID: f.userID}
	if auth.BaseURL == "" {
		auth.BaseURL = st.cfg.SiteURL
	}
	if auth.Cookie == "" {
		auth.Cookie = st.cfg.SiteCookie
	}
	if auth.UserID == "" {
		auth.UserID = st.cfg.SiteUserID
	}
	auth.Cookie = strings.TrimSpace(auth.Cookie)
	if auth.BaseURL == "" {
		return auth, fmt.Errorf("a console URL must be provided (--url or SITE_URL)")
	}
	return auth, nil
}

func newQuotaCmd(st *state) *cobra.Command {
	var flags authFlags
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Print the raw account record (balance) for a console session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := flags.resolve(st)
			if err != nil {
				return err
			}
			client, err := app.NewGatewayClient(st.cfg, nil)
			if err != nil {
				return err
			}
			body, err := client.FetchQuota(cmd.Context(), auth)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newUsageCmd(st *state) *cobra.Command {
	var (
		flags      authFlags
		start, end int64
	)
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Print the raw usage aggregate for a time window (default: today so far)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := flags.resolve(st)
			if err != nil {
				return err
			}
			window := monitor.TodayWindow(time.Now())
			if cmd.Flags().Changed("start") {
				window.Start = start
			}
			if cmd.Flags().Changed("end") {
				window.End = end
			}
			client, err := app.NewGatewayClient(st.cfg, nil)
			if err != nil {
				return err
			}
			body, err := client.FetchUsageStat(cmd.Context(), auth, window)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Int64Var(&start, "start", 0, "window start, Unix seconds (default local midnight)")
	cmd.Flags().Int64Var(&end, "end", 0, "window end, Unix seconds (default now)")
	return cmd
}

func newInvokeCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <command> [json-args]",
		Short: "Run a named command (fetch_quota, fetch_usage_stat) with JSON arguments",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdArgs := commands.Args{}
			if len(args) == 2 {
				dec := json.NewDecoder(strings.NewReader(args[1]))
				dec.UseNumber()
				if err := dec.Decode(&cmdArgs); err != nil {
					return fmt.Errorf("decode arguments: %w", err)
				}
			}
			client, err := app.NewGatewayClient(st.cfg, nil)
			if err != nil {
				return err
			}
			body, err := commands.NewDispatcher(client).Invoke(cmd.Context(), args[0], cmdArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
}
