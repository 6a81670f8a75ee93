package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jrsteele09/go-page-insights/dashboard"
	"github.com/jrsteele09/go-page-insights/insights"
	"github.com/jrsteele09/go-page-insights/internal/errors"
	"github.com/jrsteele09/go-page-insights/session"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newPagesCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List the pages the signed-in user manages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, sess, err := signedIn(cmd, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.controller.Pages(cmd.Context(), sess)
			if err != nil {
				msg, _, _ := dashboard.Failed(0, err).Err()
				return fmt.Errorf("%s", msg)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "You do not manage any pages.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY")
			for _, p := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Category)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newMetricsCmd(configPath *string) *cobra.Command {
	var (
		pageID string
		since  string
		until  string
		preset string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Aggregate one page's metrics over a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := insights.ParseWindow(since, until, preset)
			if err != nil {
				return err
			}

			a, sess, err := signedIn(cmd, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			resource, ok, err := a.controller.Page(cmd.Context(), sess, pageID)
			if err != nil {
				msg, _, _ := dashboard.Failed(0, err).Err()
				return fmt.Errorf("%s", msg)
			}
			if !ok {
				return errors.NewValidationError("page", "unknown page "+pageID, errors.ErrNotFound)
			}

			state := a.controller.Select(cmd.Context(), sess, resource, window)
			if msg, _, failed := state.Err(); failed {
				return fmt.Errorf("%s", msg)
			}
			set, _ := state.Metrics()

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(set)
			}
			printMetricSet(out, resource.Name, set)
			return nil
		},
	}
	cmd.Flags().StringVar(&pageID, "page", "", "page id (required)")
	cmd.Flags().StringVar(&since, "since", "", "first day of the window, YYYY-MM-DD")
	cmd.Flags().StringVar(&until, "until", "", "last day of the window, YYYY-MM-DD")
	cmd.Flags().StringVar(&preset, "preset", "", "relative window such as last_7d or last_28d")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.MarkFlagsRequiredTogether("since", "until")
	cmd.MarkFlagsMutuallyExclusive("since", "preset")
	_ = cmd.MarkFlagRequired("page")
	return cmd
}

// signedIn builds the app and restores the session persisted by the web login.
func signedIn(cmd *cobra.Command, configPath string) (*app, session.Session, error) {
	a, err := newApp(configPath)
	if err != nil {
		return nil, session.Session{}, err
	}
	sess, ok := a.store.Restore(cmd.Context())
	if !ok {
		_ = a.close()
		return nil, session.Session{}, fmt.Errorf("not signed in: run `insights serve` and sign in from %s", a.config.GetBaseURL())
	}
	return a, sess, nil
}

func printMetricSet(out io.Writer, name string, set insights.MetricSet) {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	p.Fprintf(tw, "%s (%s)\t\n", name, set.Window)
	for _, m := range insights.Metrics {
		v := set.Get(m)
		if !v.Available {
			p.Fprintf(tw, "%s\tn/a\t\n", m)
			continue
		}
		p.Fprintf(tw, "%s\t%d\t\n", m, v.Count)
	}
	_ = tw.Flush()
}
