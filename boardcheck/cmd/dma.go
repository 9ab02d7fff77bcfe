package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/golang/glog"
	"github.com/pkg/browser"
	"github.com/sarchlab/boardcheck/board"
	"github.com/sarchlab/boardcheck/config"
	"github.com/sarchlab/boardcheck/datarecording"
	"github.com/sarchlab/boardcheck/dmatest"
	"github.com/sarchlab/boardcheck/hooking"
	"github.com/sarchlab/boardcheck/monitoring"
	"github.com/spf13/cobra"
)

var dmaCmd = &cobra.Command{
	Use:     "dma_test",
	Aliases: []string{"dma"},
	Short:   "Test DMA (loopback in FPGA).",
	Long: `dma_test streams buffers through the loopback path of the board ` +
		`and verifies every returned buffer. A table of throughput and ` +
		`errors is printed until the test is interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runDMATest(cfg)
	},
}

func init() {
	f := dmaCmd.Flags()
	f.String("mode", "random", "Data pattern: random or counting")
	f.Int("buffer-size", board.DefaultBufferSize, "Size of a DMA buffer in bytes")
	f.Int("buffer-count", board.DefaultBufferCount, "Number of buffers in a ring")
	f.Duration("report-interval", dmatest.DefaultReportInterval,
		"Time between two rows of the table")
	f.Bool("limit-priming", false,
		"Prime the ring once and let the board loop over it")
	f.Duration("duration", 0, "Stop after this time, 0 runs until interrupted")
	f.Int("max-reports", 0, "Stop after this many rows, 0 for no limit")
	f.String("record", "", "Record the reports into this SQLite database")

	bindFlag(f, "mode", config.KeyDMAMode)
	bindFlag(f, "buffer-size", config.KeyDMABufferSize)
	bindFlag(f, "buffer-count", config.KeyDMABufferCount)
	bindFlag(f, "report-interval", config.KeyDMAReportInterval)
	bindFlag(f, "limit-priming", config.KeyDMALimitPriming)
	bindFlag(f, "duration", config.KeyDMADuration)
	bindFlag(f, "max-reports", config.KeyDMAMaxReports)
	bindFlag(f, "record", config.KeyRecord)

	rootCmd.AddCommand(dmaCmd)
}

func runDMATest(c config.Config) error {
	opener, err := openerFor(c)
	if err != nil {
		return err
	}

	dev, err := board.OpenDevice(opener)
	if err != nil {
		return err
	}
	defer dev.Close()

	engine := dmatest.MakeBuilder().
		WithDMA(dev).
		WithMode(c.DMA.Mode).
		WithBufferSize(c.DMA.BufferSize).
		WithBufferCount(c.DMA.BufferCount).
		WithZeroCopy(c.ZeroCopy).
		WithLimitPriming(c.DMA.LimitPriming).
		WithReportInterval(c.DMA.ReportInterval).
		WithDuration(c.DMA.Duration).
		WithMaxReports(c.DMA.MaxReports).
		Build(fmt.Sprintf("DMATest%d", c.Device))

	engine.AcceptHook(dmatest.NewTableReporter(os.Stdout))
	engine.AcceptHook(hooking.NewLogHook(2))

	if c.Record != "" {
		recorder, err := attachRecorder(engine, c.Record)
		if err != nil {
			return err
		}
		defer recorder.Close()
	}

	if c.Monitor {
		m, err := startMonitor(c)
		if err != nil {
			return err
		}

		m.RegisterEngine(engine)
	}

	stop := &dmatest.StopFlag{}
	cancel := stop.NotifyOnSignal(os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := engine.Run(stop); err != nil {
		return err
	}

	s := engine.Stats()
	glog.V(1).Infof("run %s: %d reports, %d errors, %d suppressed",
		s.RunID, s.Reports, s.TotalErrors, s.SuppressedErrors)

	return nil
}

// attachRecorder stores the reports of engine in the database at path. The
// recorder is flushed after every report so that history can read a running
// test.
func attachRecorder(
	engine *dmatest.Engine,
	path string,
) (datarecording.DataRecorder, error) {
	recorder, err := datarecording.New(path)
	if err != nil {
		return nil, err
	}

	engine.AcceptHook(dmatest.NewRecordingReporter(recorder, engine.RunID()))

	flush := hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos == dmatest.HookPosReport {
			recorder.Flush()
		}
	})
	engine.AcceptHook(&flush)

	return recorder, nil
}

// startMonitor serves the monitor and opens it in a browser when asked to.
func startMonitor(c config.Config) (*monitoring.Monitor, error) {
	m := monitoring.NewMonitor().WithPortNumber(c.MonitorPort)

	url, err := m.StartServer()
	if err != nil {
		return nil, fmt.Errorf("starting the monitor: %w", err)
	}

	if c.OpenBrowser {
		if err := browser.OpenURL(url); err != nil {
			glog.Warningf("opening %s: %v", url, err)
		}
	}

	return m, nil
}
