package emulator

import (
	"bytes"
	"fmt"

	"github.com/sarchlab/boardcheck/board"
)

func (h *handle) EraseBlockSize() (uint32, error) {
	h.board.Lock()
	defer h.board.Unlock()

	if err := h.mustBeOpen(); err != nil {
		return 0, err
	}

	return h.board.sector, nil
}

// WriteFlash erases every sector covered by data, programs it and reads each
// page back. The returned count is the number of pages that did not read back
// as written.
func (h *handle) WriteFlash(
	base uint32,
	data []byte,
	progress board.ProgressFunc,
) (int, error) {
	h.board.Lock()
	defer h.board.Unlock()

	if err := h.mustBeOpen(); err != nil {
		return 0, err
	}

	b := h.board
	if base%b.sector != 0 {
		return 0, fmt.Errorf("flash base 0x%08x is not sector aligned", base)
	}

	if uint32(len(data))%b.sector != 0 {
		return 0, fmt.Errorf("flash data of %d bytes is not a multiple of %d",
			len(data), b.sector)
	}

	if err := b.flash.checkRange(uint64(base), uint64(len(data))); err != nil {
		return 0, err
	}

	errors := 0
	for offset := uint32(0); offset < uint32(len(data)); offset += b.sector {
		addr := base + offset
		sector := data[offset : offset+b.sector]

		report(progress, fmt.Sprintf("Erasing @%08x\r", addr))
		if err := b.flash.erase(uint64(addr)); err != nil {
			return errors, err
		}

		report(progress, fmt.Sprintf("Writing @%08x\r", addr))
		if err := b.flash.program(uint64(addr), sector, b.stuckBits); err != nil {
			return errors, err
		}

		errors += b.verifySector(addr, sector)
	}

	return errors, nil
}

func (b *Board) verifySector(addr uint32, sector []byte) int {
	failed := 0

	for p := uint32(0); p < uint32(len(sector)); p += b.pageSize {
		want := sector[p : p+b.pageSize]
		got, err := b.flash.read(uint64(addr+p), uint64(b.pageSize))
		if err != nil || !bytes.Equal(want, got) {
			failed++
		}
	}

	return failed
}

func report(progress board.ProgressFunc, msg string) {
	if progress != nil {
		progress(msg)
	}
}

func (h *handle) ReadFlashByte(addr uint32) (byte, error) {
	h.board.Lock()
	defer h.board.Unlock()

	if err := h.mustBeOpen(); err != nil {
		return 0, err
	}

	return h.board.flash.readByte(uint64(addr))
}
