package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamed0406/sitewatch/internal/probe"
)

var probeCmd = &cobra.Command{
	Use:   "probe URL",
	Short: "Probe a URL once and print the outcome",
	Long: `Probe a URL the same way a cycle does (HEAD, then GET if needed) without
reading or writing the store. On failure the host's DNS is diagnosed too.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	target := args[0]
	out := probe.NewHTTPProber(cfg.HeadTimeout, cfg.GetTimeout).Probe(cmd.Context(), target)

	w := cmd.OutOrStdout()
	status := "Down"
	if out.Reachable {
		status = "Up"
	}
	fmt.Fprintf(w, "%s  %s via %s in %dms (HTTP %d)\n", status, target, out.Method, out.LatencyMS, out.StatusCode)
	if out.Reachable {
		return nil
	}
	fmt.Fprintf(w, "reason: %s\n", out.FailureDetail)

	dns := probe.Diagnose(cmd.Context(), target)
	fmt.Fprintf(w, "dns:    %s %s", dns.Domain, dns.Class)
	if dns.CNAME != "" {
		fmt.Fprintf(w, " cname=%s", dns.CNAME)
	}
	if dns.ResolverError != "" {
		fmt.Fprintf(w, " (%s)", dns.ResolverError)
	}
	fmt.Fprintln(w)
	return nil
}
