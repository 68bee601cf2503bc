package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/jules-cli/internal/adapters/render/status"
)

func newCacheCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the payload cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and hit rate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := app.service.CacheStats(cmd.Context())
			if err != nil {
				return err
			}
			view, err := app.render(
				statusadapter.ViewData{Cache: &stats},
				statusadapter.RenderOptions{Now: app.now()},
			)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), view)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.service.ClearCache(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	}

	resetStatsCmd := &cobra.Command{
		Use:   "reset-stats",
		Short: "Zero the hit and miss counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.service.ResetCacheStats(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache counters reset.")
			return nil
		},
	}

	warmCmd := &cobra.Command{
		Use:   "warm",
		Short: "Refresh sources and sessions so reads hit the cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fetchWithSpinner(cmd, "Warming cache...", func() (struct{}, error) {
				return struct{}{}, app.service.WarmCache(cmd.Context())
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache warmed.")
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd, resetStatsCmd, warmCmd, newCacheConfigCmd(app))
	return cmd
}

func newCacheConfigCmd(app *app) *cobra.Command {
	var (
		enabled   bool
		ttl       time.Duration
		sizeLimit int64
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change cache settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			out := cmd.OutOrStdout()

			settings := app.settings
			changed := false
			if flags.Changed("enabled") {
				settings.Cache.Enabled = enabled
				changed = true
			}
			if flags.Changed("ttl") {
				settings.Cache.DefaultTTL = ttl
				changed = true
			}
			if flags.Changed("size-limit") {
				settings.Cache.SizeLimitBytes = sizeLimit
				changed = true
			}

			if changed {
				if err := app.settingsRepo.Save(cmd.Context(), settings); err != nil {
					return fmt.Errorf("save settings: %w", err)
				}
				app.settings = settings
				_, _ = fmt.Fprintln(out, "Cache settings saved. They apply on the next run.")
			}

			_, _ = fmt.Fprintf(out, "enabled: %t\n", settings.Cache.Enabled)
			_, _ = fmt.Fprintf(out, "ttl: %s\n", settings.Cache.DefaultTTL)
			_, _ = fmt.Fprintf(out, "size limit: %d bytes\n", settings.Cache.SizeLimitBytes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enabled, "enabled", true, "Enable or disable the cache")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Default entry lifetime, e.g. 30m or 2h")
	cmd.Flags().Int64Var(&sizeLimit, "size-limit", 0, "Size budget in bytes before eviction")

	return cmd
}
