//go:build linux

// Package pcibar accesses the control-status registers of a board through
// the memory-mapped BAR0 resource file that Linux exposes in sysfs. It only
// provides register access. Flash and DMA need the kernel driver and report
// board.ErrUnsupported.
package pcibar

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/golang/glog"
	"github.com/sarchlab/boardcheck/board"
	"golang.org/x/sys/unix"
)

// ResourcePath returns the BAR0 resource file of the n-th board bound to
// the litepcie driver.
func ResourcePath(n int) string {
	return fmt.Sprintf("/sys/class/litepcie/litepcie%d/device/resource0", n)
}

// Opener maps the resource file at Path when a device is opened.
type Opener struct {
	Path string
}

// Open maps the BAR.
func (o Opener) Open() (board.Device, error) {
	d, err := Map(o.Path)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// Device is a mapped BAR.
type Device struct {
	path string
	mem  []byte
}

// Map opens the resource file at path and maps all of it.
func Map(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	if info.Size() == 0 {
		return nil, fmt.Errorf("%s: empty BAR", path)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	glog.V(1).Infof("mapped %d bytes of %s", len(mem), path)

	return &Device{path: path, mem: mem}, nil
}

// Size returns the size of the mapped BAR in bytes.
func (d *Device) Size() int {
	return len(d.mem)
}

func (d *Device) word(addr uint32) (*uint32, error) {
	if d.mem == nil {
		return nil, fmt.Errorf("%s: BAR is unmapped", d.path)
	}

	if addr%4 != 0 || uint64(addr)+4 > uint64(len(d.mem)) {
		return nil, fmt.Errorf("%s: invalid CSR address 0x%x", d.path, addr)
	}

	return (*uint32)(unsafe.Pointer(&d.mem[addr])), nil
}

// Read32 reads the CSR at addr with a single 32-bit load.
func (d *Device) Read32(addr uint32) (uint32, error) {
	p, err := d.word(addr)
	if err != nil {
		return 0, err
	}

	return atomic.LoadUint32(p), nil
}

// Write32 writes the CSR at addr with a single 32-bit store.
func (d *Device) Write32(addr, value uint32) error {
	p, err := d.word(addr)
	if err != nil {
		return err
	}

	atomic.StoreUint32(p, value)

	return nil
}

// Close unmaps the BAR. It is safe to call more than once.
func (d *Device) Close() error {
	if d.mem == nil {
		return nil
	}

	err := unix.Munmap(d.mem)
	d.mem = nil

	return err
}

// OpenDMA is not supported without the kernel driver.
func (d *Device) OpenDMA(board.DMAConfig) (board.Session, error) {
	return nil, board.ErrUnsupported
}

// EraseBlockSize is not supported without the kernel driver.
func (d *Device) EraseBlockSize() (uint32, error) {
	return 0, board.ErrUnsupported
}

// WriteFlash is not supported without the kernel driver.
func (d *Device) WriteFlash(uint32, []byte, board.ProgressFunc) (int, error) {
	return 0, board.ErrUnsupported
}

// ReadFlashByte is not supported without the kernel driver.
func (d *Device) ReadFlashByte(uint32) (byte, error) {
	return 0, board.ErrUnsupported
}

// Reload is not supported without the kernel driver.
func (d *Device) Reload() error {
	return board.ErrUnsupported
}
