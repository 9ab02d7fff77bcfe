// Package board defines the contract between the test engines and the
// accelerator board: register access, the DMA buffer-exchange session and the
// SPI configuration flash primitives.
//
// The engines never touch hardware directly. A backend (see the emulator and
// pcibar subpackages) implements Device and is handed to the engines through
// an Opener, so that every operation acquires the device and releases it on
// all exit paths.
package board

import (
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultBufferSize is the size in bytes of one DMA buffer. Both ends of
	// the loopback path must agree on it.
	DefaultBufferSize = 8192

	// DefaultBufferCount is the number of buffers in each DMA ring.
	DefaultBufferCount = 256

	// ScratchAddr is the CSR offset of the scratch register.
	ScratchAddr uint32 = 0x4
)

// ErrUnsupported is returned by backends that do not implement a capability.
var ErrUnsupported = errors.New("operation not supported by backend")

// An InitError reports that a device or a DMA session could not be acquired.
type InitError struct {
	Op  string
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("could not init %s: %v", e.Op, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Registers provides 32-bit access to the control-status-register space.
type Registers interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr, value uint32) error
}

// DMAConfig selects the directions and the mode of a DMA session.
type DMAConfig struct {
	// Writer enables the host-to-board direction: the host fills buffers
	// and submits them to the board.
	Writer bool

	// Reader enables the board-to-host direction: the host takes buffers
	// the board has returned.
	Reader bool

	// Loopback routes data sent to the board back to the host inside the
	// FPGA.
	Loopback bool

	// ZeroCopy hands out device-mapped memory instead of private copies.
	ZeroCopy bool

	BufferSize  int
	BufferCount int
}

// Counters are the cumulative buffer counts of a session. All of them are
// monotonically non-decreasing.
type Counters struct {
	// WriterSubmitted counts buffers filled by the host and handed to the
	// board.
	WriterSubmitted uint64

	// WriterCompleted counts buffers the board has finished consuming.
	WriterCompleted uint64

	// ReaderSubmitted counts buffers the board has returned to the host.
	ReaderSubmitted uint64

	// ReaderCompleted counts returned buffers the host has taken.
	ReaderCompleted uint64
}

// A Session is an open buffer exchange with the board.
//
// Buffers returned by NextWriteBuffer must be completely filled before the
// next call to Process. Buffers returned by NextReadBuffer stay valid until
// the next call to Process.
type Session interface {
	// Process advances the completion bookkeeping. It may block briefly
	// while waiting for the board.
	Process() error

	// NextWriteBuffer returns a free buffer to fill, or nil if there is none.
	NextWriteBuffer() []byte

	// NextReadBuffer returns a buffer holding returned data, or nil if there
	// is none.
	NextReadBuffer() []byte

	// Counters returns the cumulative buffer counts.
	Counters() Counters

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// DMA opens buffer-exchange sessions.
type DMA interface {
	OpenDMA(cfg DMAConfig) (Session, error)
}

// ProgressFunc receives human-readable progress messages.
type ProgressFunc func(msg string)

// Flash provides the SPI configuration flash primitives.
type Flash interface {
	// EraseBlockSize returns the size in bytes of an erase sector.
	EraseBlockSize() (uint32, error)

	// WriteFlash erases, writes and verifies data at base. It returns the
	// number of units that failed verification. The length of data must be
	// a multiple of the erase block size.
	WriteFlash(base uint32, data []byte, progress ProgressFunc) (int, error)

	// ReadFlashByte reads the byte at addr.
	ReadFlashByte(addr uint32) (byte, error)

	// Reload asks the FPGA to reconfigure itself from flash.
	Reload() error
}

// Device is an open handle to a board.
type Device interface {
	io.Closer
	Registers
	DMA
	Flash
}

// An Opener acquires a device handle.
type Opener interface {
	Open() (Device, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func() (Device, error)

// Open calls f.
func (f OpenerFunc) Open() (Device, error) {
	return f()
}

// OpenDevice acquires a device from o and wraps any failure in an InitError.
func OpenDevice(o Opener) (Device, error) {
	dev, err := o.Open()
	if err != nil {
		return nil, &InitError{Op: "driver", Err: err}
	}

	return dev, nil
}
