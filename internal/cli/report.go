package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/smallbiznis/vendorscope/internal/vendoranalytics"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	"github.com/spf13/cobra"
)

type reportFlags struct {
	output     string
	limit      int
	timeframe  int
	months     int
	topVendors int
}

func newReportCommand() *cobra.Command {
	flags := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a vendor scorecard to the terminal.",
	}
	cmd.PersistentFlags().StringVarP(&flags.output, "output", "o", outputTable, "output format: table or json")

	performance := &cobra.Command{
		Use:   "performance",
		Short: "Performance scorecard ranked by spend.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.PerformanceRequest{Limit: flags.limit, Timeframe: flags.timeframe}
			return runReport(cmd, flags, func(ctx context.Context, svc domain.Service, w io.Writer) error {
				resp, err := svc.GetPerformanceScorecard(ctx, req)
				if err != nil {
					return err
				}
				return emit(w, flags.output, resp, func() error { return renderPerformance(w, resp) })
			})
		},
	}
	performance.Flags().IntVar(&flags.limit, "limit", 0, "vendors to return (default from analytics.yml)")
	performance.Flags().IntVar(&flags.timeframe, "timeframe", 0, "months of history (default from analytics.yml)")

	reliability := &cobra.Command{
		Use:   "reliability",
		Short: "Payment reliability ranked by payment record count.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.PaymentReliabilityRequest{Limit: flags.limit}
			return runReport(cmd, flags, func(ctx context.Context, svc domain.Service, w io.Writer) error {
				resp, err := svc.GetPaymentReliability(ctx, req)
				if err != nil {
					return err
				}
				return emit(w, flags.output, resp, func() error { return renderReliability(w, resp) })
			})
		},
	}
	reliability.Flags().IntVar(&flags.limit, "limit", 0, "vendors to return (default from analytics.yml)")

	trends := &cobra.Command{
		Use:   "trends",
		Short: "Monthly spending trends for the top vendors.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.SpendingTrendsRequest{Months: flags.months, TopVendors: flags.topVendors}
			return runReport(cmd, flags, func(ctx context.Context, svc domain.Service, w io.Writer) error {
				resp, err := svc.GetSpendingTrends(ctx, req)
				if err != nil {
					return err
				}
				return emit(w, flags.output, resp, func() error { return renderTrends(w, resp) })
			})
		},
	}
	trends.Flags().IntVar(&flags.months, "months", 0, "months of history (default from analytics.yml)")
	trends.Flags().IntVar(&flags.topVendors, "top-vendors", 0, "vendors to include (default from analytics.yml)")

	risk := &cobra.Command{
		Use:   "risk",
		Short: "Risk assessment ranked by overall risk.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.RiskAssessmentRequest{Limit: flags.limit}
			return runReport(cmd, flags, func(ctx context.Context, svc domain.Service, w io.Writer) error {
				resp, err := svc.GetRiskAssessment(ctx, req)
				if err != nil {
					return err
				}
				return emit(w, flags.output, resp, func() error { return renderRisk(w, resp) })
			})
		},
	}
	risk.Flags().IntVar(&flags.limit, "limit", 0, "vendors to return (default from analytics.yml)")

	cmd.AddCommand(performance, reliability, trends, risk)
	return cmd
}

func runReport(cmd *cobra.Command, flags *reportFlags, fn func(ctx context.Context, svc domain.Service, w io.Writer) error) error {
	if flags.output != outputTable && flags.output != outputJSON {
		return fmt.Errorf("unknown output format %q", flags.output)
	}
	var svc domain.Service
	return runOneShot(cmd.Context(), []any{&svc}, func(ctx context.Context) error {
		return fn(ctx, svc, cmd.OutOrStdout())
	}, vendoranalytics.Module)
}

func emit(w io.Writer, output string, v any, table func() error) error {
	if output == outputJSON {
		return writeJSON(w, v)
	}
	return table()
}
