package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/jules-cli/internal/adapters/render/status"
	"github.com/bnema/jules-cli/internal/domain"
)

func newSessionsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and manage sessions",
		RunE:  runSessionsList(app, func() bool { return false }),
	}

	var refresh bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE:  runSessionsList(app, func() bool { return refresh }),
	}
	listCmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cache and fetch from the network")

	cmd.AddCommand(
		listCmd,
		newSessionsNewCmd(app),
		newSessionsShowCmd(app),
		newSessionsRenameCmd(app),
		newSessionsDeleteCmd(app),
	)

	return cmd
}

func runSessionsList(app *app, refresh func() bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		sessions, err := fetchWithSpinner(cmd, "Fetching sessions...", func() ([]domain.Session, error) {
			return app.service.RefreshSessions(cmd.Context(), refresh())
		})
		if err != nil {
			return err
		}

		view, err := app.render(
			statusadapter.ViewData{Sessions: sessions},
			statusadapter.RenderOptions{Now: app.now()},
		)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), view)
		return nil
	}
}

func newSessionsNewCmd(app *app) *cobra.Command {
	var (
		source          string
		title           string
		branch          string
		requireApproval bool
		autoPR          bool
	)

	cmd := &cobra.Command{
		Use:   "new <prompt>",
		Short: "Start a new session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")

			cfg := domain.CreateSessionConfig{
				Title:               title,
				RequirePlanApproval: requireApproval,
				StartingBranch:      branch,
			}
			if autoPR {
				cfg.AutomationMode = domain.AutomationModeAutoCreatePR
			}

			session, err := fetchWithSpinner(cmd, "Creating session...", func() (domain.Session, error) {
				return app.service.CreateSession(cmd.Context(), prompt, source, cfg)
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", session.ID(), strings.ToLower(string(session.State)))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source repository the session works in")
	cmd.Flags().StringVar(&title, "title", "", "Optional session title")
	cmd.Flags().StringVar(&branch, "branch", "", "Starting branch")
	cmd.Flags().BoolVar(&requireApproval, "require-plan-approval", false, "Pause for plan approval before the agent acts")
	cmd.Flags().BoolVar(&autoPR, "auto-pr", false, "Automatically open a pull request for finished work")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func newSessionsShowCmd(app *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "show <session>",
		Short: "Show one session and its activity log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := sessionName(args[0])

			session, err := app.service.GetSession(cmd.Context(), name, refresh)
			if err != nil {
				return err
			}

			view, err := app.render(
				statusadapter.ViewData{Sessions: []domain.Session{session}},
				statusadapter.RenderOptions{Now: app.now()},
			)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, view)

			activities, err := app.service.ListActivities(cmd.Context(), name)
			if err != nil {
				return err
			}
			for _, line := range statusadapter.RenderActivityLines(activities) {
				_, _ = fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass cache and local store")

	return cmd
}

func newSessionsRenameCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session> <title>",
		Short: "Change a session title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := args[1]
			session, err := app.service.UpdateSession(cmd.Context(), sessionName(args[0]), domain.SessionUpdate{Title: &title})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", session.ID(), session.Title)
			return nil
		},
	}
}

func newSessionsDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session>",
		Short: "Delete a session and its local history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := sessionName(args[0])
			if err := app.service.DeleteSession(cmd.Context(), name); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
			return nil
		},
	}
}
