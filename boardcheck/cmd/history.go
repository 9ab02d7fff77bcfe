package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sarchlab/boardcheck/datarecording"
	"github.com/sarchlab/boardcheck/dmatest"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history database",
	Short: "Print the reports recorded by dma_test --record.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")
		limit, _ := cmd.Flags().GetInt("limit")

		return printHistory(cmd.Context(), os.Stdout, args[0], runID, limit)
	},
}

func init() {
	historyCmd.Flags().String("run", "", "Only print the reports of this run")
	historyCmd.Flags().Int("limit", 0, "Print at most this many reports")

	rootCmd.AddCommand(historyCmd)
}

func printHistory(
	ctx context.Context,
	w io.Writer,
	path, runID string,
	limit int,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !strings.HasSuffix(path, ".sqlite3") {
		path += ".sqlite3"
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(dmatest.ReportTable, dmatest.RecordedReport{})

	params := datarecording.QueryParams{
		OrderBy: "RunID, Idx",
		Limit:   limit,
	}
	if runID != "" {
		params.Where = "RunID = ?"
		params.Args = []any{runID}
	}

	rows, total, err := reader.Query(ctx, dmatest.ReportTable, params)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "RUN\tTIME\tDMA_SPEED(Gbps)\tTX_BUFFERS\tRX_BUFFERS\tDIFF\tERRORS\n")

	for _, row := range rows {
		r := row.(*dmatest.RecordedReport)
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\t%d\t%d\n",
			r.RunID,
			time.Unix(0, r.UnixNano).Format(time.RFC3339),
			r.RateGbps, r.TXBuffers, r.RXBuffers, r.Diff, r.Errors)
	}

	if len(rows) < total {
		fmt.Fprintf(os.Stderr, "%d of %d reports shown\n", len(rows), total)
	}

	return nil
}
