package dmatest

import (
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/boardcheck/board"
	"github.com/sarchlab/boardcheck/seqgen"
)

// DefaultReportInterval is the minimum time between two reports.
const DefaultReportInterval = 200 * time.Millisecond

// Builder can build DMA test engines.
type Builder struct {
	dma            board.DMA
	runID          string
	mode           seqgen.Mode
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
}

// MakeBuilder returns a Builder for a full-duplex loopback test with the
// default buffer geometry.
func MakeBuilder() Builder {
	return Builder{
		mode:           seqgen.ModeRandom,
		bufferSize:     board.DefaultBufferSize,
		bufferCount:    board.DefaultBufferCount,
		writer:         true,
		reader:         true,
		loopback:       true,
		reportInterval: DefaultReportInterval,
		clock:          time.Now,
	}
}

// WithDMA sets the device the engine opens its session on.
func (b Builder) WithDMA(dma board.DMA) Builder {
	b.dma = dma
	return b
}

// WithRunID sets the identifier of the run. A random one is generated if
// not set.
func (b Builder) WithRunID(id string) Builder {
	b.runID = id
	return b
}

// WithMode sets the sequence the buffers carry.
func (b Builder) WithMode(mode seqgen.Mode) Builder {
	b.mode = mode
	return b
}

// WithBufferSize sets the size of a DMA buffer in bytes.
func (b Builder) WithBufferSize(size int) Builder {
	b.bufferSize = size
	return b
}

// WithBufferCount sets the capacity of the buffer pool.
func (b Builder) WithBufferCount(count int) Builder {
	b.bufferCount = count
	return b
}

// WithDirections enables the host-to-board writer and the board-to-host
// reader.
func (b Builder) WithDirections(writer, reader bool) Builder {
	b.writer = writer
	b.reader = reader
	return b
}

// WithLoopback sets whether the board returns the data it receives.
func (b Builder) WithLoopback(loopback bool) Builder {
	b.loopback = loopback
	return b
}

// WithZeroCopy makes the session hand out device-mapped buffers.
func (b Builder) WithZeroCopy(zeroCopy bool) Builder {
	b.zeroCopy = zeroCopy
	return b
}

// WithLimitPriming caps the number of buffers the writer ever fills to the
// pool capacity.
func (b Builder) WithLimitPriming(limit bool) Builder {
	b.limitPriming = limit
	return b
}

// WithReportInterval sets the minimum time between two reports.
func (b Builder) WithReportInterval(interval time.Duration) Builder {
	b.reportInterval = interval
	return b
}

// WithDuration stops the run after d. Zero runs until stopped.
func (b Builder) WithDuration(d time.Duration) Builder {
	b.duration = d
	return b
}

// WithMaxReports stops the run after n reports. Zero runs until stopped.
func (b Builder) WithMaxReports(n int) Builder {
	b.maxReports = n
	return b
}

// WithClock replaces the wall clock.
func (b Builder) WithClock(clock func() time.Time) Builder {
	b.clock = clock
	return b
}

func (b Builder) parametersMustBeValid() {
	switch {
	case b.dma == nil:
		panic("DMA device is not set")
	case b.bufferSize <= 0 || b.bufferSize%4 != 0:
		panic("buffer size must be a positive multiple of 4")
	case b.bufferCount <= 0:
		panic("buffer count must be positive")
	case !b.writer && !b.reader:
		panic("at least one direction must be enabled")
	case b.reportInterval <= 0:
		panic("report interval must be positive")
	case b.clock == nil:
		panic("clock is not set")
	}
}

// Build creates an engine.
func (b Builder) Build(name string) *Engine {
	b.parametersMustBeValid()

	runID := b.runID
	if runID == "" {
		runID = xid.New().String()
	}

	return &Engine{
		name:           name,
		runID:          runID,
		dma:            b.dma,
		gen:            seqgen.NewGenerator(b.mode, b.bufferSize),
		bufferSize:     b.bufferSize,
		bufferCount:    b.bufferCount,
		writer:         b.writer,
		reader:         b.reader,
		loopback:       b.loopback,
		zeroCopy:       b.zeroCopy,
		limitPriming:   b.limitPriming,
		reportInterval: b.reportInterval,
		duration:       b.duration,
		maxReports:     b.maxReports,
		clock:          b.clock,
	}
}
