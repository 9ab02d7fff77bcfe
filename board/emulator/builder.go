package emulator

import "github.com/sarchlab/boardcheck/board"

// DefaultPageSize is the flash page size of the boards MakeBuilder creates.
const DefaultPageSize = 256

// Builder can build emulated boards.
type Builder struct {
	flashSize     uint32
	sectorSize    uint32
	pageSize      uint32
	dmaLatency    int
	dmaBurst      int
	bitErrorEvery uint64
	cyclicReader  bool
	readOnlyRegs  []uint32
	failOpen      error
	failDMA       error
}

// MakeBuilder returns a Builder with the parameters of a 16 MiB SPI flash
// with 64 KiB sectors.
func MakeBuilder() Builder {
	return Builder{
		flashSize:  16 << 20,
		sectorSize: 64 << 10,
		pageSize:   DefaultPageSize,
		dmaLatency: 2,
		dmaBurst:   16,
	}
}

// WithFlashSize sets the capacity of the flash in bytes.
func (b Builder) WithFlashSize(size uint32) Builder {
	b.flashSize = size
	return b
}

// WithSectorSize sets the erase sector size of the flash.
func (b Builder) WithSectorSize(size uint32) Builder {
	b.sectorSize = size
	return b
}

// WithPageSize sets the size of the unit that the flash verifies.
func (b Builder) WithPageSize(size uint32) Builder {
	b.pageSize = size
	return b
}

// WithDMALatency sets how many Process calls a buffer spends in the
// loopback path.
func (b Builder) WithDMALatency(calls int) Builder {
	b.dmaLatency = calls
	return b
}

// WithDMABurst sets how many buffers the board moves per Process call.
func (b Builder) WithDMABurst(buffers int) Builder {
	b.dmaBurst = buffers
	return b
}

// WithBitErrorEvery flips one bit in every n-th buffer that crosses the
// loopback path. Zero disables injection.
func (b Builder) WithBitErrorEvery(n uint64) Builder {
	b.bitErrorEvery = n
	return b
}

// WithCyclicReader makes the board re-read the host ring once it has been
// filled completely and the host stops submitting.
func (b Builder) WithCyclicReader() Builder {
	b.cyclicReader = true
	return b
}

// WithReadOnlyRegister makes writes to the CSR at addr have no effect.
func (b Builder) WithReadOnlyRegister(addr uint32) Builder {
	b.readOnlyRegs = append(b.readOnlyRegs, addr)
	return b
}

// WithOpenFailure makes every Open fail with err.
func (b Builder) WithOpenFailure(err error) Builder {
	b.failOpen = err
	return b
}

// WithDMAFailure makes every OpenDMA fail with err.
func (b Builder) WithDMAFailure(err error) Builder {
	b.failDMA = err
	return b
}

func (b Builder) parametersMustBeValid() {
	switch {
	case b.sectorSize == 0:
		panic("sector size must be positive")
	case b.pageSize == 0 || b.sectorSize%b.pageSize != 0:
		panic("page size must divide the sector size")
	case b.flashSize%b.sectorSize != 0:
		panic("flash size must be a multiple of the sector size")
	case b.dmaLatency < 0:
		panic("DMA latency cannot be negative")
	case b.dmaBurst <= 0:
		panic("DMA burst must be positive")
	}
}

// Build creates a board.
func (b Builder) Build(name string) *Board {
	b.parametersMustBeValid()

	e := &Board{
		name:          name,
		regs:          make(map[uint32]uint32),
		readOnly:      make(map[uint32]bool),
		flash:         newStorage(uint64(b.flashSize), uint64(b.sectorSize), 0xff),
		sector:        b.sectorSize,
		pageSize:      b.pageSize,
		stuckBits:     make(map[uint64]byte),
		dmaLatency:    b.dmaLatency,
		dmaBurst:      b.dmaBurst,
		bitErrorEvery: b.bitErrorEvery,
		cyclicReader:  b.cyclicReader,
		failOpen:      b.failOpen,
		failDMA:       b.failDMA,
	}

	for _, addr := range b.readOnlyRegs {
		e.readOnly[addr] = true
	}

	return e
}

var _ board.Opener = (*Board)(nil)
