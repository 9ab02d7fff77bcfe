package dmatest

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/boardcheck/board"
	"github.com/sarchlab/boardcheck/board/emulator"
	"github.com/sarchlab/boardcheck/hooking"
	"github.com/sarchlab/boardcheck/seqgen"
	"go.uber.org/mock/gomock"
)

type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

type reportCollector struct {
	reports []ThroughputReport
}

func (c *reportCollector) Func(ctx hooking.HookCtx) {
	if ctx.Pos == HookPosReport {
		c.reports = append(c.reports, ctx.Item.(ThroughputReport))
	}
}

// corruptedBuffer returns a buffer holding the sequence from seed 0 with one
// word flipped.
func corruptedBuffer(size int) []byte {
	buf := make([]byte, size)
	gen := seqgen.NewGenerator(seqgen.ModeRandom, size)
	gen.Generate(seqgen.Words(buf), 0)
	buf[0] ^= 0xff

	return buf
}

var _ = Describe("Engine", func() {
	var (
		mockCtrl  *gomock.Controller
		dma       *MockDMA
		session   *MockSession
		clock     *fakeClock
		collector *reportCollector
		stop      *StopFlag
		builder   Builder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		dma = NewMockDMA(mockCtrl)
		session = NewMockSession(mockCtrl)
		clock = &fakeClock{now: time.Unix(0, 0), step: 100 * time.Millisecond}
		collector = &reportCollector{}
		stop = &StopFlag{}

		builder = MakeBuilder().
			WithDMA(dma).
			WithRunID("run").
			WithBufferSize(16).
			WithBufferCount(4).
			WithClock(clock.Now)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fail with an InitError if the session cannot be opened", func() {
		cause := errors.New("no DMA")
		dma.EXPECT().OpenDMA(gomock.Any()).Return(nil, cause)

		e := builder.Build("Engine")
		err := e.Run(stop)

		var initErr *board.InitError
		Expect(errors.As(err, &initErr)).To(BeTrue())
		Expect(initErr.Op).To(Equal("DMA"))
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(e.Stats().State).To(Equal(StateTerminated))
	})

	It("should open the session with the configured directions", func() {
		dma.EXPECT().
			OpenDMA(board.DMAConfig{
				Writer:      true,
				Reader:      false,
				Loopback:    false,
				ZeroCopy:    true,
				BufferSize:  16,
				BufferCount: 4,
			}).
			Return(session, nil)
		session.EXPECT().Close().Return(nil)

		stop.Raise()
		e := builder.
			WithDirections(true, false).
			WithLoopback(false).
			WithZeroCopy(true).
			Build("Engine")

		Expect(e.Run(stop)).To(Succeed())
		Expect(e.Stats().State).To(Equal(StateTerminated))
	})

	It("should close the session if the progress step fails", func() {
		cause := errors.New("driver gone")
		dma.EXPECT().OpenDMA(gomock.Any()).Return(session, nil)
		session.EXPECT().Process().Return(cause)
		session.EXPECT().Close().Return(nil)

		e := builder.Build("Engine")
		err := e.Run(stop)

		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(e.Stats().State).To(Equal(StateTerminated))
	})

	It("should report the close error", func() {
		cause := errors.New("cannot unmap")
		dma.EXPECT().OpenDMA(gomock.Any()).Return(session, nil)
		session.EXPECT().Close().Return(cause)

		stop.Raise()
		err := builder.Build("Engine").Run(stop)

		Expect(errors.Is(err, cause)).To(BeTrue())
	})

	Context("when exchanging buffers", func() {
		var (
			readBuffers [][]byte
			taken       int
			counters    board.Counters
		)

		BeforeEach(func() {
			readBuffers = nil
			taken = 0
			counters = board.Counters{}

			dma.EXPECT().OpenDMA(gomock.Any()).Return(session, nil)
			session.EXPECT().Process().Return(nil).AnyTimes()
			session.EXPECT().Counters().
				DoAndReturn(func() board.Counters { return counters }).
				AnyTimes()
			session.EXPECT().NextReadBuffer().
				DoAndReturn(func() []byte {
					if len(readBuffers) == 0 {
						return nil
					}

					buf := readBuffers[0]
					readBuffers = readBuffers[1:]

					return buf
				}).
				AnyTimes()
			session.EXPECT().Close().Return(nil)
		})

		It("should ignore mismatches during the fill transient", func() {
			session.EXPECT().NextWriteBuffer().Return(nil).AnyTimes()
			counters.WriterCompleted = 4
			readBuffers = [][]byte{corruptedBuffer(16)}

			e := builder.WithMaxReports(1).Build("Engine")
			e.AcceptHook(collector)

			Expect(e.Run(stop)).To(Succeed())

			stats := e.Stats()
			Expect(stats.TotalErrors).To(Equal(uint64(0)))
			Expect(stats.SuppressedErrors).To(Equal(uint64(1)))
			Expect(collector.reports).To(HaveLen(1))
			Expect(collector.reports[0].Errors).To(Equal(uint64(0)))
		})

		It("should count mismatches after the first round trip", func() {
			session.EXPECT().NextWriteBuffer().Return(nil).AnyTimes()
			counters.WriterCompleted = 5
			readBuffers = [][]byte{corruptedBuffer(16), corruptedBuffer(16)}

			e := builder.WithMaxReports(1).Build("Engine")
			e.AcceptHook(collector)

			Expect(e.Run(stop)).To(Succeed())

			stats := e.Stats()
			Expect(stats.TotalErrors).To(Equal(uint64(2)))
			Expect(stats.SuppressedErrors).To(Equal(uint64(0)))
			Expect(collector.reports[0].Errors).To(Equal(uint64(2)))
			Expect(collector.reports[0].TotalErrors).To(Equal(uint64(2)))
		})

		It("should cap the writer at the pool capacity per iteration", func() {
			session.EXPECT().NextWriteBuffer().
				DoAndReturn(func() []byte {
					taken++
					return make([]byte, 16)
				}).
				AnyTimes()

			e := builder.WithMaxReports(1).Build("Engine")

			Expect(e.Run(stop)).To(Succeed())
			Expect(taken).To(Equal(8))
		})

		It("should stop priming at the pool capacity", func() {
			session.EXPECT().NextWriteBuffer().
				DoAndReturn(func() []byte {
					taken++
					return make([]byte, 16)
				}).
				AnyTimes()

			e := builder.
				WithLimitPriming(true).
				WithMaxReports(3).
				Build("Engine")

			Expect(e.Run(stop)).To(Succeed())
			Expect(taken).To(Equal(4))
		})

		It("should report at the configured interval", func() {
			session.EXPECT().NextWriteBuffer().Return(nil).AnyTimes()
			counters.WriterSubmitted = 10
			counters.ReaderCompleted = 7

			e := builder.WithMaxReports(3).Build("Engine")
			e.AcceptHook(collector)

			Expect(e.Run(stop)).To(Succeed())

			Expect(collector.reports).To(HaveLen(3))
			for i, r := range collector.reports {
				Expect(r.Index).To(Equal(i))
				Expect(r.Elapsed).To(Equal(200 * time.Millisecond))
				Expect(r.Diff).To(Equal(int64(3)))
			}

			Expect(collector.reports[0].RateGbps).
				To(BeNumerically("~", Throughput(10, 16, 200*time.Millisecond)))
			Expect(collector.reports[1].RateGbps).To(BeZero())
			Expect(e.Stats().Reports).To(Equal(3))
		})

		It("should stop after the configured duration", func() {
			session.EXPECT().NextWriteBuffer().Return(nil).AnyTimes()

			e := builder.WithDuration(time.Second).Build("Engine")

			Expect(e.Run(stop)).To(Succeed())
			Expect(stop.Raised()).To(BeTrue())
			Expect(e.Stats().Reports).To(Equal(5))
		})
	})
})

var _ = Describe("Engine on an emulated board", func() {
	var (
		clock *fakeClock
		stop  *StopFlag
	)

	BeforeEach(func() {
		clock = &fakeClock{now: time.Unix(0, 0), step: 50 * time.Millisecond}
		stop = &StopFlag{}
	})

	run := func(b *emulator.Board) *Engine {
		dev, err := b.Open()
		Expect(err).NotTo(HaveOccurred())
		defer dev.Close()

		e := MakeBuilder().
			WithDMA(dev).
			WithBufferSize(256).
			WithBufferCount(16).
			WithClock(clock.Now).
			WithMaxReports(10).
			Build("Engine")

		Expect(e.Run(stop)).To(Succeed())
		Expect(b.Sessions()).To(Equal(0))

		return e
	}

	It("should verify the looped back data without errors", func() {
		e := run(emulator.MakeBuilder().Build("Board"))

		stats := e.Stats()
		Expect(stats.TotalErrors).To(BeZero())
		Expect(stats.Counters.ReaderCompleted).To(BeNumerically(">", 16))
		Expect(stats.State).To(Equal(StateTerminated))
	})

	It("should detect injected bit errors", func() {
		e := run(emulator.MakeBuilder().WithBitErrorEvery(7).Build("Board"))

		Expect(e.Stats().TotalErrors).To(BeNumerically(">", 0))
	})

	It("should keep checking a primed ring in cyclic mode", func() {
		b := emulator.MakeBuilder().WithCyclicReader().Build("Board")
		dev, err := b.Open()
		Expect(err).NotTo(HaveOccurred())
		defer dev.Close()

		e := MakeBuilder().
			WithDMA(dev).
			WithBufferSize(256).
			WithBufferCount(16).
			WithLimitPriming(true).
			WithClock(clock.Now).
			WithMaxReports(10).
			Build("Engine")

		Expect(e.Run(stop)).To(Succeed())

		stats := e.Stats()
		Expect(stats.Counters.WriterSubmitted).To(Equal(uint64(16)))
		Expect(stats.Counters.ReaderCompleted).To(BeNumerically(">", 16))
		Expect(stats.TotalErrors).To(BeZero())
	})
})

var _ = Describe("Throughput", func() {
	It("should convert buffers per second to Gbps", func() {
		Expect(Throughput(1000, 8192, time.Second)).
			To(BeNumerically("~", 0.065536, 1e-12))
	})

	It("should be zero without elapsed time", func() {
		Expect(Throughput(1000, 8192, 0)).To(BeZero())
	})
})

var _ = Describe("TableReporter", func() {
	It("should print the header every ten rows", func() {
		buf := &bytes.Buffer{}
		r := NewTableReporter(buf)

		for i := 0; i < 11; i++ {
			r.Func(hooking.HookCtx{
				Pos: HookPosReport,
				Item: ThroughputReport{
					Index:           i,
					RateGbps:        1.234,
					WriterSubmitted: 300,
					ReaderCompleted: 290,
					Diff:            10,
					Errors:          2,
				},
			})
		}

		out := buf.String()
		Expect(bytes.Count(buf.Bytes(), []byte("DMA_SPEED(Gbps)"))).To(Equal(2))
		Expect(out).To(HavePrefix(tableHeader))
		Expect(out).To(ContainSubstring(
			"          1.23\t       300\t       290\t    10\t      2\n"))
	})

	It("should ignore other hook positions", func() {
		buf := &bytes.Buffer{}
		r := NewTableReporter(buf)

		r.Func(hooking.HookCtx{Pos: &hooking.HookPos{Name: "Other"}})

		Expect(buf.Len()).To(BeZero())
	})
})

var _ = Describe("State", func() {
	It("should have printable names", func() {
		Expect(StateInit.String()).To(Equal("INIT"))
		Expect(StateFatal.String()).To(Equal("FATAL"))
		Expect(State(42).String()).To(Equal("UNKNOWN"))
	})
})
