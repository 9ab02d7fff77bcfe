// Package flashprog programs and reads the SPI flash that holds the FPGA
// configuration. Every operation opens the device, does its work and closes
// the device again, whatever the outcome.
package flashprog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/glog"
	"github.com/sarchlab/boardcheck/board"
	"github.com/sarchlab/boardcheck/monitoring"
	"zappem.net/pub/debug/xcrc32"
	"zappem.net/pub/debug/xxd"
)

const reloadBanner = "================================================================\n" +
	"= PLEASE REBOOT YOUR HARDWARE TO START WITH NEW FPGA GATEWARE  =\n" +
	"================================================================\n"

// ProgressTracker shows the progress of long operations.
type ProgressTracker interface {
	CreateProgressBar(name string, total uint64) *monitoring.ProgressBar
	CompleteProgressBar(pb *monitoring.ProgressBar)
}

// Programmer runs flash operations on the devices an Opener provides.
type Programmer struct {
	opener   board.Opener
	out      io.Writer
	progress ProgressTracker
}

// NewProgrammer creates a Programmer that prints its messages to out.
func NewProgrammer(opener board.Opener, out io.Writer) *Programmer {
	return &Programmer{
		opener: opener,
		out:    out,
	}
}

// WithProgressTracker makes the Programmer publish progress bars.
func (p *Programmer) WithProgressTracker(t ProgressTracker) *Programmer {
	p.progress = t
	return p
}

// Pad returns data extended with zeros to a whole number of sectors.
func Pad(data []byte, sectorSize uint32) []byte {
	if sectorSize == 0 {
		panic("sector size must be positive")
	}

	sector := uint64(sectorSize)
	size := (uint64(len(data)) + sector - 1) / sector * sector

	padded := make([]byte, size)
	copy(padded, data)

	return padded
}

func checkRange(base uint32, size uint64) error {
	if uint64(base)+size > math.MaxUint32+1 {
		return fmt.Errorf("%w: %d bytes at 0x%08x", ErrAllocation, size, base)
	}

	return nil
}

func eraseBlockSize(dev board.Flash) (uint32, error) {
	size, err := dev.EraseBlockSize()
	if err != nil {
		return 0, fmt.Errorf("reading the erase block size: %w", err)
	}

	if size == 0 {
		return 0, fmt.Errorf("device reports an erase block size of 0")
	}

	return size, nil
}

func (p *Programmer) openDevice() (board.Device, error) {
	return board.OpenDevice(p.opener)
}

func (p *Programmer) startBar(name string, total uint64) *monitoring.ProgressBar {
	if p.progress == nil {
		return nil
	}

	return p.progress.CreateProgressBar(name, total)
}

func (p *Programmer) endBar(bar *monitoring.ProgressBar) {
	if bar != nil {
		p.progress.CompleteProgressBar(bar)
	}
}

// stepTracker marks the step a device reports as in progress and the
// previous one as finished.
type stepTracker struct {
	bar    *monitoring.ProgressBar
	active bool
}

func (t *stepTracker) next() {
	if t.bar == nil {
		return
	}

	t.done()
	t.bar.IncrementInProgress(1)
	t.active = true
}

func (t *stepTracker) done() {
	if t.bar == nil || !t.active {
		return
	}

	t.bar.MoveInProgressToFinished(1)
	t.active = false
}

// Program writes data to the flash at base. The data is padded to whole
// sectors, written in a single pass and verified. A verification failure
// is returned as a *VerifyError and is not retried.
func (p *Programmer) Program(base uint32, data []byte) error {
	dev, err := p.openDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	sectorSize, err := eraseBlockSize(dev)
	if err != nil {
		return err
	}

	image := Pad(data, sectorSize)
	if err := checkRange(base, uint64(len(image))); err != nil {
		return err
	}

	if glog.V(1) {
		_, crc := xcrc32.NewCRC32(image)
		glog.Infof("image of %d bytes padded to %d, crc 0x%08x",
			len(data), len(image), crc)
	}

	fmt.Fprintf(p.out, "Programming (%d bytes at 0x%08x)\n", len(image), base)

	bar := p.startBar("Programming", uint64(len(image)/int(sectorSize))*2)
	defer p.endBar(bar)

	step := stepTracker{bar: bar}
	errors, err := dev.WriteFlash(base, image, func(msg string) {
		fmt.Fprint(p.out, msg)
		step.next()
	})
	step.done()
	if err != nil {
		return fmt.Errorf("writing flash: %w", err)
	}

	if errors != 0 {
		fmt.Fprintf(p.out, "Failed %d errors\n", errors)
		return &VerifyError{Errors: errors}
	}

	fmt.Fprintf(p.out, "Success\n")

	return nil
}

// WriteFromFile programs the content of the file at path to the flash at
// offset.
func (p *Programmer) WriteFromFile(path string, offset uint32) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &FileError{Path: path, Op: "read", Err: err}
	}

	return p.Program(offset, data)
}

// ReadToFile reads size bytes starting at offset, one byte at a time, and
// writes them to the file at path.
func (p *Programmer) ReadToFile(path string, size, offset uint32) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &FileError{Path: path, Op: "create", Err: err}
	}

	defer func() {
		cerr := f.Close()
		if err == nil && cerr != nil {
			err = &FileError{Path: path, Op: "close", Err: cerr}
		}
	}()

	w := bufio.NewWriter(f)

	if err := p.read(size, offset, func(b byte) error {
		if err := w.WriteByte(b); err != nil {
			return &FileError{Path: path, Op: "write", Err: err}
		}

		return nil
	}); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return &FileError{Path: path, Op: "write", Err: err}
	}

	return nil
}

// Dump reads size bytes starting at offset and prints them as a hex dump on
// the output of the Programmer.
func (p *Programmer) Dump(size, offset uint32) error {
	data := make([]byte, 0, size)

	if err := p.read(size, offset, func(b byte) error {
		data = append(data, b)
		return nil
	}); err != nil {
		return err
	}

	if glog.V(1) {
		_, crc := xcrc32.NewCRC32(data)
		glog.Infof("read %d bytes at 0x%08x, crc 0x%08x", size, offset, crc)
	}

	for _, line := range xxd.Dump(int(offset), data) {
		fmt.Fprintln(p.out, line)
	}

	return nil
}

// read reads the range in ascending address order and passes every byte to
// sink.
func (p *Programmer) read(size, offset uint32, sink func(b byte) error) error {
	if err := checkRange(offset, uint64(size)); err != nil {
		return err
	}

	dev, err := p.openDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	sectorSize, err := eraseBlockSize(dev)
	if err != nil {
		return err
	}

	bar := p.startBar("Dumping", uint64(size))
	defer p.endBar(bar)

	for i := uint32(0); i < size; i++ {
		if i%sectorSize == 0 {
			fmt.Fprintf(p.out, "Dumping %08x\r", offset+i)
			if bar != nil {
				bar.IncrementInProgress(uint64(min(sectorSize, size-i)))
			}
		}

		b, err := dev.ReadFlashByte(offset + i)
		if err != nil {
			return fmt.Errorf("reading flash at 0x%08x: %w", offset+i, err)
		}

		if err := sink(b); err != nil {
			return err
		}

		if bar != nil {
			bar.MoveInProgressToFinished(1)
		}
	}

	fmt.Fprintf(p.out, "\n")

	return nil
}

// Reload asks the FPGA to load its configuration from the flash.
func (p *Programmer) Reload() error {
	dev, err := p.openDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.Reload(); err != nil {
		return fmt.Errorf("reloading the FPGA: %w", err)
	}

	fmt.Fprint(p.out, reloadBanner)

	return nil
}
