// Package dmatest runs the DMA loopback data-integrity test. The engine fills
// the buffers it sends to the board with a deterministic sequence, verifies
// the buffers the board returns against the same sequence and periodically
// reports throughput and errors to its hooks.
package dmatest

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/sarchlab/boardcheck/board"
	"github.com/sarchlab/boardcheck/hooking"
	"github.com/sarchlab/boardcheck/seqgen"
)

// Engine is a DMA test run.
type Engine struct {
	hooking.HookableBase

	name  string
	runID string
	dma   board.DMA
	gen   seqgen.Generator

	bufferSize     int
	bufferCount    int
	writer         bool
	reader         bool
	loopback       bool
	zeroCopy       bool
	limitPriming   bool
	reportInterval time.Duration
	duration       time.Duration
	maxReports     int
	clock          func() time.Time

	lock             sync.Mutex
	state            State
	counters         board.Counters
	writeSeed        uint32
	readSeed         uint32
	primed           uint64
	intervalErrors   uint64
	totalErrors      uint64
	suppressedErrors uint64
	reports          int
	lastReport       ThroughputReport
	startTime        time.Time
	lastTime         time.Time
	lastSubmitted    uint64
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return e.name
}

// RunID returns the identifier of the run.
func (e *Engine) RunID() string {
	return e.runID
}

// Stats is a snapshot of the engine state.
type Stats struct {
	Name             string           `json:"name"`
	RunID            string           `json:"run_id"`
	State            State            `json:"state"`
	Mode             string           `json:"mode"`
	BufferSize       int              `json:"buffer_size"`
	BufferCount      int              `json:"buffer_count"`
	Counters         board.Counters   `json:"counters"`
	WriteSeed        uint32           `json:"write_seed"`
	ReadSeed         uint32           `json:"read_seed"`
	IntervalErrors   uint64           `json:"interval_errors"`
	TotalErrors      uint64           `json:"total_errors"`
	SuppressedErrors uint64           `json:"suppressed_errors"`
	Reports          int              `json:"reports"`
	LastReport       ThroughputReport `json:"last_report"`
}

// Stats returns a snapshot of the engine state. It is safe to call while the
// engine runs.
func (e *Engine) Stats() Stats {
	e.lock.Lock()
	defer e.lock.Unlock()

	return Stats{
		Name:             e.name,
		RunID:            e.runID,
		State:            e.state,
		Mode:             e.gen.Mode.String(),
		BufferSize:       e.bufferSize,
		BufferCount:      e.bufferCount,
		Counters:         e.counters,
		WriteSeed:        e.writeSeed,
		ReadSeed:         e.readSeed,
		IntervalErrors:   e.intervalErrors,
		TotalErrors:      e.totalErrors,
		SuppressedErrors: e.suppressedErrors,
		Reports:          e.reports,
		LastReport:       e.lastReport,
	}
}

func (e *Engine) setState(s State) {
	e.lock.Lock()
	defer e.lock.Unlock()

	glog.V(1).Infof("%s: %s -> %s", e.name, e.state, s)
	e.state = s
}

// Run opens a session and exchanges buffers until stop is raised, the
// configured duration elapses or the configured number of reports has been
// made. The session is closed on every exit path.
func (e *Engine) Run(stop *StopFlag) (err error) {
	session, err := e.dma.OpenDMA(board.DMAConfig{
		Writer:      e.writer,
		Reader:      e.reader,
		Loopback:    e.loopback,
		ZeroCopy:    e.zeroCopy,
		BufferSize:  e.bufferSize,
		BufferCount: e.bufferCount,
	})
	if err != nil {
		e.setState(StateFatal)
		e.setState(StateTerminated)

		return &board.InitError{Op: "DMA", Err: err}
	}

	defer func() {
		cerr := session.Close()
		if err == nil && cerr != nil {
			err = fmt.Errorf("closing DMA session: %w", cerr)
		}

		e.setState(StateTerminated)
	}()

	e.start()

	for !stop.Raised() {
		if err := e.iterate(session); err != nil {
			e.setState(StateFatal)
			return fmt.Errorf("DMA progress step: %w", err)
		}

		now := e.clock()
		e.maybeReport(now)

		if e.runIsOver(now) {
			stop.Raise()
		}
	}

	e.setState(StateStopping)

	return nil
}

func (e *Engine) start() {
	now := e.clock()

	e.lock.Lock()
	e.startTime = now
	e.lastTime = now
	e.lock.Unlock()

	e.setState(StateRunning)
}

func (e *Engine) runIsOver(now time.Time) bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.maxReports > 0 && e.reports >= e.maxReports {
		return true
	}

	return e.duration > 0 && now.Sub(e.startTime) >= e.duration
}

// iterate performs one progress step, fills the free write buffers and
// verifies the returned read buffers.
func (e *Engine) iterate(session board.Session) error {
	if err := session.Process(); err != nil {
		return err
	}

	counters := session.Counters()
	countErrors := counters.WriterCompleted > uint64(e.bufferCount)

	e.lock.Lock()
	defer e.lock.Unlock()

	if e.writer {
		e.fillWriteBuffers(session)
	}

	if e.reader {
		e.verifyReadBuffers(session, countErrors)
	}

	e.counters = session.Counters()

	return nil
}

func (e *Engine) fillWriteBuffers(session board.Session) {
	pool := uint64(e.bufferCount)

	for n := uint64(0); n < pool; n++ {
		if e.limitPriming && e.primed >= pool {
			return
		}

		buf := session.NextWriteBuffer()
		if buf == nil {
			return
		}

		e.writeSeed = e.gen.Generate(seqgen.Words(buf), e.writeSeed)
		e.primed++
	}
}

func (e *Engine) verifyReadBuffers(session board.Session, countErrors bool) {
	for n := 0; n < e.bufferCount; n++ {
		buf := session.NextReadBuffer()
		if buf == nil {
			return
		}

		var errs int
		errs, e.readSeed = e.gen.Verify(seqgen.Words(buf), e.readSeed)
		if errs == 0 {
			continue
		}

		if !countErrors {
			e.suppressedErrors += uint64(errs)
			glog.V(2).Infof("%s: %d mismatches during fill, ignored",
				e.name, errs)

			continue
		}

		e.intervalErrors += uint64(errs)
		e.totalErrors += uint64(errs)
	}
}

func (e *Engine) maybeReport(now time.Time) {
	e.lock.Lock()

	elapsed := now.Sub(e.lastTime)
	if elapsed < e.reportInterval {
		e.lock.Unlock()
		return
	}

	report := ThroughputReport{
		Index:   e.reports,
		Time:    now,
		Elapsed: elapsed,
		RateGbps: Throughput(
			e.counters.WriterSubmitted-e.lastSubmitted,
			e.bufferSize,
			elapsed),
		WriterSubmitted: e.counters.WriterSubmitted,
		ReaderCompleted: e.counters.ReaderCompleted,
		Diff: int64(e.counters.WriterSubmitted) -
			int64(e.counters.ReaderCompleted),
		Errors:      e.intervalErrors,
		TotalErrors: e.totalErrors,
	}

	e.reports++
	e.lastReport = report
	e.intervalErrors = 0
	e.lastTime = now
	e.lastSubmitted = e.counters.WriterSubmitted

	e.lock.Unlock()

	if report.Errors > 0 {
		glog.Warningf("%s: %d errors in report %d",
			e.name, report.Errors, report.Index)
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosReport,
		Item:   report,
	})
}
