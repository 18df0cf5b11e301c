package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// histogramWidth is the widest bar printed by report
const histogramWidth = 40

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize an account's firing history",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.ownerID(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			report, err := a.svc.Report(cmd.Context(), owner)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Neurons:       %s\n", humanize.Comma(int64(len(report.Neurons))))
			fmt.Fprintf(out, "Connections:   %s\n", humanize.Comma(int64(len(report.Connections))))
			fmt.Fprintf(out, "Total firings: %s\n", humanize.Comma(int64(report.TotalFirings)))
			if report.TotalFirings == 0 {
				return nil
			}
			fmt.Fprintf(out, "Duration:      %s s\n", humanize.Ftoa(report.Duration))
			fmt.Fprintf(out, "Average rate:  %s firings/s\n", humanize.FtoaWithDigits(report.AvgFiringRate, 2))
			fmt.Fprintf(out, "First firing:  %s\n", humanize.Time(*report.FirstFiring))
			fmt.Fprintf(out, "Last firing:   %s\n", humanize.Time(*report.LastFiring))

			fmt.Fprintln(out, "Activity per second:")
			for i, line := range histogram(report.FiringActivity, histogramWidth) {
				fmt.Fprintf(out, "  %4d %s %d\n", i, line, report.FiringActivity[i])
			}
			return nil
		},
	}

	cmd.Flags().String("user", "", "Account to report on")
	return cmd
}

// histogram scales counts to bars of at most width characters
func histogram(counts []int, width int) []string {
	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}
	bars := make([]string, len(counts))
	if peak == 0 {
		return bars
	}
	for i, c := range counts {
		n := c * width / peak
		if c > 0 && n == 0 {
			n = 1
		}
		bars[i] = strings.Repeat("#", n)
	}
	return bars
}
