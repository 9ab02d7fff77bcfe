package dmatest

import (
	"fmt"
	"io"
	"time"

	"github.com/sarchlab/boardcheck/hooking"
)

// HookPosReport is the position at which an Engine invokes its hooks with a
// ThroughputReport as the item.
var HookPosReport = &hooking.HookPos{Name: "Report"}

// A ThroughputReport is one row of the throughput table.
type ThroughputReport struct {
	Index   int           `json:"index"`
	Time    time.Time     `json:"time"`
	Elapsed time.Duration `json:"elapsed"`

	// RateGbps is the host-to-board rate over the interval.
	RateGbps float64 `json:"rate_gbps"`

	WriterSubmitted uint64 `json:"tx_buffers"`
	ReaderCompleted uint64 `json:"rx_buffers"`

	// Diff is positive while data is in flight on the loopback path.
	Diff int64 `json:"diff"`

	Errors      uint64 `json:"errors"`
	TotalErrors uint64 `json:"total_errors"`
}

// Throughput returns the rate in Gbps of moving buffers of bufferSize bytes
// in elapsed time.
func Throughput(buffers uint64, bufferSize int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	bits := float64(buffers) * float64(bufferSize) * 8

	return bits / elapsed.Seconds() / 1e9
}

const tableHeader = "\033[1mDMA_SPEED(Gbps)\tTX_BUFFERS\tRX_BUFFERS\tDIFF\tERRORS\033[0m\n"

// headerEvery is the number of rows between two table headers.
const headerEvery = 10

// A TableReporter prints reports as a tab-separated table.
type TableReporter struct {
	w io.Writer
}

// NewTableReporter creates a TableReporter that writes to w.
func NewTableReporter(w io.Writer) *TableReporter {
	return &TableReporter{w: w}
}

// Func prints a row, preceded by the header every ten rows.
func (r *TableReporter) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosReport {
		return
	}

	report := ctx.Item.(ThroughputReport)

	if report.Index%headerEvery == 0 {
		fmt.Fprint(r.w, tableHeader)
	}

	fmt.Fprintf(r.w, "%14.2f\t%10d\t%10d\t%6d\t%7d\n",
		report.RateGbps,
		report.WriterSubmitted,
		report.ReaderCompleted,
		report.Diff,
		report.Errors)
}
