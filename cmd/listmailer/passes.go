package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass",
		Long: `ingest polls the mailbox once, stores new "[mail-list]" messages as
templates and schedules a job for the first one from an authorized sender.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), func(ctx context.Context, a *app) error {
				ing, err := a.ingester(ctx)
				if err != nil {
					return err
				}
				res, err := ing.PollAndEnqueue(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "listed %d, skipped %d, stored %d template(s), %d authorized, %d attachment(s)\n",
					res.Listed, res.Skipped, res.Templates, res.Authorized, res.Attachments)
				if res.Job != nil {
					fmt.Fprintf(out, "scheduled job %d for template %d at %s\n",
						res.Job.ID, res.Job.TemplateID, res.Job.ScheduledTo.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
}

func newDispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Send one batch of the oldest due job",
		Long: `dispatch claims the oldest due job and sends its batch.

Do not run it while serve is running: dispatch passes must not overlap.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), func(ctx context.Context, a *app) error {
				d, err := a.dispatcher(ctx)
				if err != nil {
					return err
				}
				res, err := d.DispatchDueJob(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if res == nil {
					fmt.Fprintln(out, "no job due")
					return nil
				}
				fmt.Fprintf(out, "job %d: %d recipient(s), %d sent, %d failed\n",
					res.Job.ID, res.Recipients, res.Sent, res.Failed)
				if res.Continuation != nil {
					fmt.Fprintf(out, "continuation job %d scheduled at %s\n",
						res.Continuation.ID, res.Continuation.ScheduledTo.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
}

// runCommand bootstraps the app, runs fn and releases every resource.
func runCommand(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	return a.closeOnError(context.WithoutCancel(ctx), fn(ctx, a))
}
