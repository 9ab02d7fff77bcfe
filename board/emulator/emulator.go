// Package emulator provides an in-memory accelerator board. It implements the
// board contract with a CSR space, an SPI flash with erase sectors and a DMA
// loopback path, so that the test engines can run without hardware.
package emulator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/sarchlab/boardcheck/board"
)

// ErrClosed is returned when a closed device handle is used.
var ErrClosed = errors.New("device handle is closed")

// Board is the state of an emulated board. It outlives the device handles
// opened on it, the way the flash content outlives a driver file descriptor.
type Board struct {
	sync.Mutex

	name      string
	regs      map[uint32]uint32
	readOnly  map[uint32]bool
	flash     *storage
	sector    uint32
	pageSize  uint32
	stuckBits map[uint64]byte

	dmaLatency    int
	dmaBurst      int
	bitErrorEvery uint64
	cyclicReader  bool
	failDMA       error
	failOpen      error

	openHandles int
	reloads     int
	sessions    int
}

// Open returns a new handle on the board.
func (b *Board) Open() (board.Device, error) {
	b.Lock()
	defer b.Unlock()

	if b.failOpen != nil {
		return nil, b.failOpen
	}

	b.openHandles++
	glog.V(1).Infof("%s: handle opened (%d open)", b.name, b.openHandles)

	return &handle{board: b}, nil
}

// Name returns the name of the board.
func (b *Board) Name() string {
	return b.name
}

// OpenHandles returns the number of handles that are open.
func (b *Board) OpenHandles() int {
	b.Lock()
	defer b.Unlock()

	return b.openHandles
}

// Reloads returns how many times the FPGA was asked to reload.
func (b *Board) Reloads() int {
	b.Lock()
	defer b.Unlock()

	return b.reloads
}

// FlashContent returns size bytes of flash starting at addr.
func (b *Board) FlashContent(addr, size uint32) ([]byte, error) {
	b.Lock()
	defer b.Unlock()

	return b.flash.read(uint64(addr), uint64(size))
}

// LoadFlash places data into the flash at addr without going through the
// erase and program cycle.
func (b *Board) LoadFlash(addr uint32, data []byte) error {
	b.Lock()
	defer b.Unlock()

	if err := b.flash.checkRange(uint64(addr), uint64(len(data))); err != nil {
		return err
	}

	for i, v := range data {
		a := uint64(addr) + uint64(i)
		base, offset := b.flash.parseAddress(a)
		b.flash.unit(base)[offset] = v
	}

	return nil
}

// SetStuckBits marks bits at addr that stay at one whatever is programmed.
func (b *Board) SetStuckBits(addr uint32, mask byte) {
	b.Lock()
	defer b.Unlock()

	b.stuckBits[uint64(addr)] = mask
}

type handle struct {
	board  *Board
	closed bool
}

func (h *handle) Close() error {
	h.board.Lock()
	defer h.board.Unlock()

	if h.closed {
		return nil
	}

	h.closed = true
	h.board.openHandles--
	glog.V(1).Infof("%s: handle closed (%d open)",
		h.board.name, h.board.openHandles)

	return nil
}

func (h *handle) mustBeOpen() error {
	if h.closed {
		return ErrClosed
	}

	return nil
}

func (h *handle) Read32(addr uint32) (uint32, error) {
	h.board.Lock()
	defer h.board.Unlock()

	if err := h.mustBeOpen(); err != nil {
		return 0, err
	}

	if addr%4 != 0 {
		return 0, fmt.Errorf("unaligned CSR read at 0x%x", addr)
	}

	return h.board.regs[addr], nil
}

func (h *handle) Write32(addr, value uint32) error {
	h.board.Lock()
	defer h.board.Unlock()

	if err := h.mustBeOpen(); err != nil {
		return err
	}

	if addr%4 != 0 {
		return fmt.Errorf("unaligned CSR write at 0x%x", addr)
	}

	if h.board.readOnly[addr] {
		return nil
	}

	h.board.regs[addr] = value

	return nil
}

func (h *handle) Reload() error {
	h.board.Lock()
	defer h.board.Unlock()

	if err := h.mustBeOpen(); err != nil {
		return err
	}

	h.board.reloads++

	return nil
}
