package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List monitored sites with their stored status",
	Args:  cobra.NoArgs,
	RunE:  runSites,
}

func init() {
	rootCmd.AddCommand(sitesCmd)
	sitesCmd.Flags().String("user", "", "only list sites owned by this user id")
}

func runSites(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")

	c, done, err := openContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	sites, err := c.Store.ListSites(cmd.Context(), repo.SiteFilter{UserID: domain.UserID(user)})
	if err != nil {
		return fmt.Errorf("list sites: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tURL\tUSER\tSTATUS\tLAST CHECKED\tLATENCY")
	for _, s := range sites {
		checked, latency := "never", "-"
		if s.LastCheckedAt != nil {
			checked = s.LastCheckedAt.UTC().Format(time.RFC3339)
		}
		if s.LastResponseTimeMS != nil {
			latency = fmt.Sprintf("%dms", *s.LastResponseTimeMS)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.URL, s.UserID, s.Status, checked, latency)
	}
	return tw.Flush()
}
