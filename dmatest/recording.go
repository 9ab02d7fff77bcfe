package dmatest

import (
	"github.com/sarchlab/boardcheck/datarecording"
	"github.com/sarchlab/boardcheck/hooking"
)

// ReportTable is the name of the table that a RecordingReporter fills.
const ReportTable = "dma_report"

// RecordedReport is the row a RecordingReporter stores for each report.
type RecordedReport struct {
	RunID       string
	Idx         int
	UnixNano    int64
	ElapsedSec  float64
	RateGbps    float64
	TXBuffers   uint64
	RXBuffers   uint64
	Diff        int64
	Errors      uint64
	TotalErrors uint64
}

// A RecordingReporter stores every report in a data recorder.
type RecordingReporter struct {
	recorder datarecording.DataRecorder
	runID    string
}

// NewRecordingReporter creates the report table in recorder.
func NewRecordingReporter(
	recorder datarecording.DataRecorder,
	runID string,
) *RecordingReporter {
	recorder.CreateTable(ReportTable, RecordedReport{})

	return &RecordingReporter{
		recorder: recorder,
		runID:    runID,
	}
}

// Func inserts the report carried by ctx.
func (r *RecordingReporter) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosReport {
		return
	}

	report := ctx.Item.(ThroughputReport)

	r.recorder.InsertData(ReportTable, RecordedReport{
		RunID:       r.runID,
		Idx:         report.Index,
		UnixNano:    report.Time.UnixNano(),
		ElapsedSec:  report.Elapsed.Seconds(),
		RateGbps:    report.RateGbps,
		TXBuffers:   report.WriterSubmitted,
		RXBuffers:   report.ReaderCompleted,
		Diff:        report.Diff,
		Errors:      report.Errors,
		TotalErrors: report.TotalErrors,
	})
}
