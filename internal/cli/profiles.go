package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/quota-watch/pkg/headerprofile"
)

func newProfilesCmd(st *state) *cobra.Command {
	var show string
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List browser profiles, or show one with --show",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := headerprofile.LoadRegistry(st.cfg.ProfilesFile)
			if err != nil {
				return fmt.Errorf("load browser profiles: %w", err)
			}
			out := cmd.OutOrStdout()
			if !cmd.Flags().Changed("show") {
				for _, name := range reg.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			p, err := reg.Lookup(show)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
	cmd.Flags().StringVar(&show, "show", "", "print the named profile as JSON")
	return cmd
}
