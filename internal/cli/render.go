package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

var (
	highRiskColor   = color.New(color.FgRed, color.Bold)
	mediumRiskColor = color.New(color.FgYellow)
	lowRiskColor    = color.New(color.FgGreen)
)

func riskLabel(c domain.RiskCategory) string {
	switch c {
	case domain.RiskHigh:
		return highRiskColor.Sprint(string(c))
	case domain.RiskMedium:
		return mediumRiskColor.Sprint(string(c))
	default:
		return lowRiskColor.Sprint(string(c))
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func renderPerformance(w io.Writer, resp domain.PerformanceScorecardResponse) error {
	rows := make([][]string, 0, len(resp.Data))
	for i, v := range resp.Data {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			v.VendorName,
			money(v.TotalSpend),
			strconv.FormatInt(v.InvoiceCount, 10),
			strconv.FormatInt(v.ActiveMonths, 10),
			money(v.AvgPaymentTerms),
			strconv.Itoa(v.PerformanceScore.Consistency),
			strconv.Itoa(v.PerformanceScore.Volume),
			strconv.Itoa(v.PerformanceScore.Reliability),
			strconv.Itoa(v.PerformanceScore.Overall),
		})
	}
	if err := renderTable(w, []string{"Rank", "Vendor", "Spend", "Invoices", "Months", "Terms", "Consistency", "Volume", "Reliability", "Overall"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d vendors over %d months, generated %s\n",
		resp.Metadata.TotalVendors, resp.Metadata.Timeframe, resp.Metadata.Timestamp)
	return err
}

func renderReliability(w io.Writer, resp domain.PaymentReliabilityResponse) error {
	rows := make([][]string, 0, len(resp.Data))
	for i, v := range resp.Data {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			v.VendorName,
			strconv.FormatInt(v.PaymentRecords, 10),
			strconv.FormatInt(v.OverdueCount, 10),
			money(v.OverdueRate) + "%",
			money(v.DiscountUtilization) + "%",
			money(v.PotentialSavings),
			strconv.Itoa(v.ReliabilityScore),
		})
	}
	if err := renderTable(w, []string{"Rank", "Vendor", "Payments", "Overdue", "Overdue %", "Discount use", "Savings", "Score"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d vendors over %d months, generated %s\n",
		resp.Metadata.TotalVendors, resp.Metadata.WindowMonths, resp.Metadata.Timestamp)
	return err
}

func renderTrends(w io.Writer, resp domain.SpendingTrendsResponse) error {
	rows := make([][]string, 0, len(resp.Data))
	for i, v := range resp.Data {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			v.VendorName,
			money(v.Summary.TotalSpend),
			money(v.Summary.AvgMonthlySpend),
			money(v.Summary.GrowthRate) + "%",
			strconv.Itoa(v.Summary.ActiveMonths),
			strconv.FormatInt(v.Summary.TotalInvoices, 10),
		})
	}
	if err := renderTable(w, []string{"Rank", "Vendor", "Spend", "Monthly avg", "Growth", "Months", "Invoices"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "top %d of %d vendors over %d months, generated %s\n",
		len(resp.Data), resp.Metadata.TotalVendors, resp.Metadata.Months, resp.Metadata.Timestamp)
	return err
}

func renderRisk(w io.Writer, resp domain.RiskAssessmentResponse) error {
	rows := make([][]string, 0, len(resp.Data))
	for i, v := range resp.Data {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			v.VendorName,
			money(v.TotalExposure),
			strconv.Itoa(v.RiskScores.Exposure),
			strconv.Itoa(v.RiskScores.Variability),
			strconv.Itoa(v.RiskScores.Timeliness),
			strconv.Itoa(v.RiskScores.Payment),
			strconv.Itoa(v.RiskScores.Overall),
			riskLabel(v.RiskCategory),
			date(v.LastActivity),
		})
	}
	if err := renderTable(w, []string{"Rank", "Vendor", "Exposure", "Exp", "Var", "Time", "Pay", "Overall", "Category", "Last activity"}, rows); err != nil {
		return err
	}
	d := resp.Metadata.RiskDistribution
	_, err := fmt.Fprintf(w, "%d vendors (high %d, medium %d, low %d), generated %s\n",
		resp.Metadata.TotalVendors, d.High, d.Medium, d.Low, resp.Metadata.Timestamp)
	return err
}
