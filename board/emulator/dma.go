package emulator

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/sarchlab/boardcheck/board"
)

// errNoDirection is returned when a session is opened with both directions
// disabled.
var errNoDirection = errors.New("no DMA direction enabled")

func (h *handle) OpenDMA(cfg board.DMAConfig) (board.Session, error) {
	h.board.Lock()
	defer h.board.Unlock()

	if err := h.mustBeOpen(); err != nil {
		return nil, err
	}

	b := h.board
	if b.failDMA != nil {
		return nil, b.failDMA
	}

	if err := validateDMAConfig(cfg); err != nil {
		return nil, err
	}

	b.sessions++
	glog.V(1).Infof("%s: DMA session opened, %d x %d bytes, loopback %v",
		b.name, cfg.BufferCount, cfg.BufferSize, cfg.Loopback)

	return newLoopbackSession(b, cfg), nil
}

func validateDMAConfig(cfg board.DMAConfig) error {
	switch {
	case !cfg.Writer && !cfg.Reader:
		return errNoDirection
	case cfg.BufferSize <= 0 || cfg.BufferSize%4 != 0:
		return fmt.Errorf("invalid DMA buffer size %d", cfg.BufferSize)
	case cfg.BufferCount <= 0:
		return fmt.Errorf("invalid DMA buffer count %d", cfg.BufferCount)
	}

	return nil
}

// Sessions returns the number of DMA sessions that are open.
func (b *Board) Sessions() int {
	b.Lock()
	defer b.Unlock()

	return b.sessions
}

type inflightBuffer struct {
	data    []byte
	readyAt uint64
}

// loopbackSession moves buffers from the host-to-board ring to the
// board-to-host ring. Each Process call is one step of the board: it
// consumes up to burst submitted buffers and delivers the buffers whose
// latency has elapsed. A session is used by one goroutine.
type loopbackSession struct {
	board *Board
	cfg   board.DMAConfig

	txRing  [][]byte
	txHost  [][]byte
	rxRing  [][]byte
	flight  []inflightBuffer
	counter board.Counters

	txClaimed uint64
	steps     uint64
	passed    uint64
	closed    bool
}

func newLoopbackSession(b *Board, cfg board.DMAConfig) *loopbackSession {
	s := &loopbackSession{
		board:  b,
		cfg:    cfg,
		txRing: makeRing(cfg.BufferCount, cfg.BufferSize),
		rxRing: makeRing(cfg.BufferCount, cfg.BufferSize),
	}

	s.txHost = s.txRing
	if !cfg.ZeroCopy {
		s.txHost = makeRing(cfg.BufferCount, cfg.BufferSize)
	}

	return s
}

func makeRing(count, size int) [][]byte {
	ring := make([][]byte, count)
	for i := range ring {
		ring[i] = make([]byte, size)
	}

	return ring
}

func (s *loopbackSession) capacity() uint64 {
	return uint64(s.cfg.BufferCount)
}

func (s *loopbackSession) Process() error {
	if s.closed {
		return ErrClosed
	}

	s.commit()
	s.consume()
	s.deliver()
	s.steps++

	return nil
}

// commit hands the buffers the host has filled to the board.
func (s *loopbackSession) commit() {
	for i := s.counter.WriterSubmitted; i < s.txClaimed; i++ {
		slot := i % s.capacity()
		if !s.cfg.ZeroCopy {
			copy(s.txRing[slot], s.txHost[slot])
		}
	}

	s.counter.WriterSubmitted = s.txClaimed
}

func (s *loopbackSession) hasSource() bool {
	if s.counter.WriterCompleted < s.counter.WriterSubmitted {
		return true
	}

	return s.board.cyclicReader &&
		s.counter.WriterSubmitted >= s.capacity()
}

func (s *loopbackSession) hasRoom() bool {
	if !s.cfg.Loopback || !s.cfg.Reader {
		return true
	}

	pending := s.counter.ReaderSubmitted - s.counter.ReaderCompleted
	return pending+uint64(len(s.flight)) < s.capacity()
}

func (s *loopbackSession) consume() {
	for moved := 0; moved < s.board.dmaBurst; moved++ {
		if !s.hasSource() || !s.hasRoom() {
			return
		}

		slot := s.counter.WriterCompleted % s.capacity()
		s.counter.WriterCompleted++

		if !s.cfg.Loopback || !s.cfg.Reader {
			continue
		}

		data := make([]byte, s.cfg.BufferSize)
		copy(data, s.txRing[slot])
		s.corrupt(data)

		s.flight = append(s.flight, inflightBuffer{
			data:    data,
			readyAt: s.steps + uint64(s.board.dmaLatency),
		})
	}
}

// corrupt flips one bit in every n-th buffer that passes the loopback path.
func (s *loopbackSession) corrupt(data []byte) {
	s.passed++

	n := s.board.bitErrorEvery
	if n == 0 || s.passed%n != 0 {
		return
	}

	words := uint64(len(data) / 4)
	offset := (s.passed / n % words) * 4
	data[offset] ^= 0x01
}

func (s *loopbackSession) deliver() {
	delivered := 0
	for _, b := range s.flight {
		if b.readyAt > s.steps {
			break
		}

		slot := s.counter.ReaderSubmitted % s.capacity()
		copy(s.rxRing[slot], b.data)
		s.counter.ReaderSubmitted++
		delivered++
	}

	s.flight = s.flight[delivered:]
}

func (s *loopbackSession) NextWriteBuffer() []byte {
	if s.closed || !s.cfg.Writer {
		return nil
	}

	// A cyclic reader may run ahead of the host.
	if s.txClaimed > s.counter.WriterCompleted &&
		s.txClaimed-s.counter.WriterCompleted >= s.capacity() {
		return nil
	}

	buf := s.txHost[s.txClaimed%s.capacity()]
	s.txClaimed++

	return buf
}

func (s *loopbackSession) NextReadBuffer() []byte {
	if s.closed || !s.cfg.Reader {
		return nil
	}

	if s.counter.ReaderCompleted >= s.counter.ReaderSubmitted {
		return nil
	}

	buf := s.rxRing[s.counter.ReaderCompleted%s.capacity()]
	s.counter.ReaderCompleted++

	return buf
}

func (s *loopbackSession) Counters() board.Counters {
	return s.counter
}

func (s *loopbackSession) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	s.flight = nil

	s.board.Lock()
	s.board.sessions--
	s.board.Unlock()

	glog.V(1).Infof("%s: DMA session closed after %d steps",
		s.board.name, s.steps)

	return nil
}
