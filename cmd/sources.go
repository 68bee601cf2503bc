package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/jules-cli/internal/domain"
)

func newSourcesCmd(app *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List connected repositories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sources, err := fetchWithSpinner(cmd, "Fetching sources...", func() ([]domain.Source, error) {
				return app.service.RefreshSources(cmd.Context(), refresh)
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sources) == 0 {
				_, _ = fmt.Fprintln(out, "No sources connected.")
				return nil
			}
			for _, source := range sources {
				_, _ = fmt.Fprintf(out, "%s\t%s\n", source.ID, source.DisplayName())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cache and fetch from the network")

	return cmd
}
