package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/qturkey/listmailer/internal/model"
	"github.com/qturkey/listmailer/internal/store"
	"github.com/qturkey/listmailer/pkg/job"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the mailer and job queue schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), func(ctx context.Context, a *app) error {
				if err := store.Migrate(ctx, a.pool, a.cfg.DB.MigrationsTable, a.log); err != nil {
					return err
				}
				return job.Migrate(ctx, a.pool, a.log)
			})
		},
	}
}

func newAddressesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addresses",
		Short: "Manage the address list",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Append addresses from a file, one per line",
		Long: `import appends every address in file to the list, in file order.
Blank lines and lines starting with # are ignored. Addresses already on the
list keep their position. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			addresses, invalid, err := readAddresses(r)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range invalid {
				fmt.Fprintf(out, "skipping invalid address %q\n", line)
			}

			return runCommand(cmd.Context(), func(ctx context.Context, a *app) error {
				added, err := a.store.AddAddresses(ctx, addresses)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "added %d of %d address(es)\n", added, len(addresses))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unsubscribe <address>",
		Short: "Exclude an address from every future batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, ok := normalizeAddress(args[0])
			if !ok {
				return fmt.Errorf("invalid address %q", args[0])
			}
			return runCommand(cmd.Context(), func(ctx context.Context, a *app) error {
				err := a.store.Unsubscribe(ctx, addr, time.Now())
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%s is not on the list", addr)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unsubscribed %s\n", addr)
				return nil
			})
		},
	})

	return cmd
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect batch jobs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show recent jobs with their delivery counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), func(ctx context.Context, a *app) error {
				jobs, err := a.store.ListJobs(ctx, limit)
				if err != nil {
					return err
				}
				return writeJobs(cmd.OutOrStdout(), jobs)
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "number of jobs to show")
	cmd.AddCommand(list)

	return cmd
}

func openInput(cmd *cobra.Command, name string) (io.Reader, func(), error) {
	if name == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// readAddresses returns the valid addresses of r in order, without
// duplicates, plus the lines that did not parse.
func readAddresses(r io.Reader) (addresses, invalid []string, err error) {
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, ok := normalizeAddress(line)
		if !ok {
			invalid = append(invalid, line)
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		addresses = append(addresses, addr)
	}
	return addresses, invalid, sc.Err()
}

// normalizeAddress accepts a bare address and lowercases it.
func normalizeAddress(s string) (string, bool) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil || parsed.Name != "" {
		return "", false
	}
	return strings.ToLower(parsed.Address), true
}

func writeJobs(w io.Writer, jobs []model.JobStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTEMPLATE\tSTART AFTER\tSCHEDULED\tFINISHED\tSENT\tFAILED")
	for _, st := range jobs {
		j := st.Job
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\t%d\t%d\n",
			j.ID, j.Status, j.TemplateID, j.AddressStartIndex,
			j.ScheduledTo.Format("2006-01-02 15:04"), formatTime(j.FinishedAt), st.Sent, st.Failed)
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
