package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	filestore "github.com/bnema/jules-cli/internal/adapters/secrets/file"
)

func newLoginCmd(app *app) *cobra.Command {
	var stdin bool

	cmd := &cobra.Command{
		Use:   "login [api-key]",
		Short: "Store the API key used to authenticate requests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			switch {
			case stdin:
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if scanner.Scan() {
					key = scanner.Text()
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read api key from stdin: %w", err)
				}
			case len(args) == 1:
				key = args[0]
			default:
				return errors.New("provide the api key as an argument or with --stdin")
			}

			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("api key is empty")
			}

			if err := app.secretStore.Put(cmd.Context(), filestore.APIKeyRef, key); err != nil {
				return fmt.Errorf("store api key: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "API key stored.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read the API key from standard input")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.secretStore.Delete(cmd.Context(), filestore.APIKeyRef); err != nil {
				return fmt.Errorf("remove api key: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "API key removed.")
			return nil
		},
	}
}
