package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/scheduler"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one check cycle over all sites (or one user's sites)",
	Long: `Run one reconciliation cycle: probe every site in order, store the new
status and email owners of sites that went down.

Exit codes:
  0 - cycle ran (individual sites may still be down or unsaved)
  1 - the site list could not be loaded, or another cycle is running`,
	Args: cobra.NoArgs,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
	cycleCmd.Flags().String("user", "", "only check sites owned by this user id")
	cycleCmd.Flags().Bool("json", false, "print the summary as JSON")
}

func runCycle(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	asJSON, _ := cmd.Flags().GetBool("json")

	c, done, err := openContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	sum, err := c.Reconciler.RunCycle(cmd.Context(), scheduler.Scope{UserID: domain.UserID(user)})
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SITE\tURL\tPREVIOUS\tSTATUS\tTRANSITION\tLATENCY\tNOTE")
	for _, r := range sum.Results {
		note := r.Error
		if r.PersistError != "" {
			note = "not saved: " + r.PersistError
		} else if r.Notified {
			note = "owner alerted"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%dms\t%s\n",
			r.SiteID, r.URL, r.PreviousStatus, r.Status, r.Transition, r.ResponseTimeMS, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\ncycle %s: total=%d up=%d down=%d errors=%d", sum.CycleID, sum.Total, sum.Up, sum.Down, sum.Errors)
	if sum.Partial {
		fmt.Fprint(out, " (stopped early)")
	}
	fmt.Fprintln(out)
	return nil
}
