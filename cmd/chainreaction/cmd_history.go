package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brensch/chainreaction/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded batches and win totals per strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Ledger.Path == "" {
				return fmt.Errorf("no ledger configured (use --ledger or CHAINREACTION_LEDGER_PATH)")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			jsonOut, _ := cmd.Flags().GetBool("json")

			ledger, err := store.OpenLedger(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer ledger.Close()

			batches, err := ledger.Batches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			totals, err := ledger.AgentTotals(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"batches": batches,
					"agents":  totals,
				})
			}
			return printHistory(cmd.OutOrStdout(), batches, totals)
		},
	}
	cmd.Flags().String("ledger", "", "SQLite ledger to read")
	cmd.Flags().Int("limit", 20, "Maximum number of batches to list")
	return cmd
}

func printHistory(w io.Writer, batches []store.Batch, totals []store.AgentTotal) error {
	if len(batches) == 0 {
		fmt.Fprintln(w, "No batches recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tBATCH\tBOARD\tGAMES\tAGENTS\tTALLY")
	for _, b := range batches {
		games := fmt.Sprintf("%d/%d", b.Completed, b.Requested)
		if b.Stopped {
			games += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%s\t%s\t%v\n",
			b.StartedAt.Format("2006-01-02 15:04:05"), b.ID, b.Width, b.Height, games,
			strings.Join(b.Agents, ","), b.Tally)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tSEATS PLAYED\tWINS\tWIN RATE")
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", t.Agent, t.Games, t.Wins, strings.TrimSpace(percent(t.Wins, t.Games)))
	}
	return tw.Flush()
}
