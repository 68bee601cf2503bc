package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/jules-cli/internal/adapters/render/status"
)

func newWatchCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <session>",
		Short: "Poll a session and stream its activity until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := sessionName(args[0])
			out := cmd.OutOrStdout()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			updates, err := app.service.SubscribeActivities(ctx, name)
			if err != nil {
				return err
			}

			printerDone := make(chan struct{})
			go func() {
				defer close(printerDone)
				printed := 0
				for activities := range updates {
					if len(activities) <= printed {
						continue
					}
					for _, line := range statusadapter.RenderActivityLines(activities[printed:]) {
						_, _ = fmt.Fprintln(out, line)
					}
					printed = len(activities)
				}
			}()

			err = app.poller.Watch(ctx, name)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			cancel()
			<-printerDone

			watch := app.poller.Status()
			view, renderErr := app.render(
				statusadapter.ViewData{Watch: &watch},
				statusadapter.RenderOptions{Now: app.now()},
			)
			if renderErr != nil {
				return renderErr
			}
			_, _ = fmt.Fprintln(out, view)
			return nil
		},
	}
}
