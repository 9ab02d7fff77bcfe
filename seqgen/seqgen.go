// Package seqgen produces and checks the deterministic word stream that is
// pushed through the DMA loopback path.
//
// A producer and an independent consumer that start from the same seed and
// mode agree on every word without exchanging anything but the data itself.
package seqgen

import (
	"fmt"
	"unsafe"
)

// Mode selects how a seed maps to a data word.
type Mode int

const (
	// ModeRandom maps a seed through one linear congruential step.
	ModeRandom Mode = iota

	// ModeCounting uses the seed itself as the data word.
	ModeCounting
)

func (m Mode) String() string {
	switch m {
	case ModeRandom:
		return "random"
	case ModeCounting:
		return "counting"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts the name of a mode into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "random", "":
		return ModeRandom, nil
	case "counting":
		return ModeCounting, nil
	default:
		return ModeRandom, fmt.Errorf("unknown sequence mode %q", s)
	}
}

const (
	lcgMultiplier uint32 = 69069
	lcgIncrement  uint32 = 1
)

// Value returns the data word expected at the position identified by seed.
func (m Mode) Value(seed uint32) uint32 {
	if m == ModeCounting {
		return seed
	}

	return seed*lcgMultiplier + lcgIncrement
}

// A Generator fills and checks word buffers. Seeds wrap modulo Words, the
// number of 32-bit words in one DMA buffer.
type Generator struct {
	Mode  Mode
	Words uint32
}

// NewGenerator creates a generator for buffers of bufferSize bytes.
func NewGenerator(mode Mode, bufferSize int) Generator {
	if bufferSize < 4 || bufferSize%4 != 0 {
		panic(fmt.Sprintf("buffer size %d is not a positive multiple of 4",
			bufferSize))
	}

	return Generator{
		Mode:  mode,
		Words: uint32(bufferSize / 4),
	}
}

// Step returns the seed that follows seed.
func (g Generator) Step(seed uint32) uint32 {
	seed++
	if seed >= g.Words {
		seed -= g.Words
	}

	return seed
}

// Advance returns the seed reached after n steps from seed.
func (g Generator) Advance(seed uint32, n uint64) uint32 {
	return uint32((uint64(seed) + n) % uint64(g.Words))
}

// Generate writes the sequence starting at seed into buf and returns the
// seed for the word after the last one written.
func (g Generator) Generate(buf []uint32, seed uint32) uint32 {
	for i := range buf {
		buf[i] = g.Mode.Value(seed)
		seed = g.Step(seed)
	}

	return seed
}

// Verify compares buf against the sequence starting at seed. It returns the
// number of mismatching words and the next seed. The seed advances by
// len(buf) no matter how many words mismatch.
func (g Generator) Verify(buf []uint32, seed uint32) (errors int, next uint32) {
	for i := range buf {
		if buf[i] != g.Mode.Value(seed) {
			errors++
		}
		seed = g.Step(seed)
	}

	return errors, seed
}

// Words views b as native-endian 32-bit words without copying. Trailing bytes
// that do not form a whole word are not part of the view.
func Words(b []byte) []uint32 {
	n := len(b) / 4
	if n == 0 {
		return nil
	}

	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), n)
}
