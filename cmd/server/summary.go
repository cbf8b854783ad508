package main

import (
	"fmt"
	"io"
	"strconv"

	"archon-backend/internal/usecase"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var summaryUser string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a user's dashboard figures",
	Long: `Summary builds the same view as the web dashboard and prints the
headline metrics, the bot table and the recent trades to the terminal.

Example:
  archon summary --user 6f1c0d9e-5a0b-4c55-9b1e-0d2f3a4b5c6d`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringVarP(&summaryUser, "user", "u", "", "profile id (required)")
	summaryCmd.MarkFlagRequired("user")
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	api := newBackend(rt).api(rt.log)
	view, err := usecase.NewDashboardService(api, rt.log).Build(ctx, summaryUser)
	if err != nil {
		return fmt.Errorf("build dashboard: %w", err)
	}

	printSummary(cmd.OutOrStdout(), view)
	return nil
}

func printSummary(out io.Writer, view *usecase.DashboardView) {
	metrics := tablewriter.NewWriter(out)
	metrics.Header("Metric", "Value", "Detail")
	for _, m := range view.Metrics {
		metrics.Append(m.Title, m.Value, m.Change)
	}
	metrics.Render()

	bots := tablewriter.NewWriter(out)
	bots.Header("Bot", "Status", "Strategy", "Symbol", "Profit", "Trades", "Win Rate", "Last Signal")
	for _, b := range view.Bots {
		bots.Append(b.Name, b.Status, b.Strategy, b.Symbol, b.Profit, strconv.Itoa(b.Trades), b.WinRate, b.LastSignal)
	}
	bots.Append("Total", "", "", "", view.BotsTotal, "", "", "")
	bots.Render()

	if len(view.Trades) > 0 {
		trades := tablewriter.NewWriter(out)
		trades.Header("Time", "Symbol", "Type", "Entry", "Exit", "Pips", "P&L")
		for _, t := range view.Trades {
			trades.Append(t.Time, t.Symbol, t.Direction, t.Entry, t.Exit, t.Pips, t.Profit)
		}
		trades.Render()
	}

	fmt.Fprintln(out, view.Status.Message)
}
