package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang/glog"
	"github.com/sarchlab/boardcheck/board"
	"github.com/sarchlab/boardcheck/board/emulator"
	"github.com/sarchlab/boardcheck/config"
	"github.com/tebeka/atexit"
)

// openerFor returns how the configured board is reached.
func openerFor(c config.Config) (board.Opener, error) {
	switch c.Backend {
	case config.BackendEmulator:
		b, err := buildEmulator(c)
		if err != nil {
			return nil, err
		}

		return b, nil
	case config.BackendPCIBAR:
		return pcibarOpener(c)
	}

	return nil, fmt.Errorf("unknown backend %q", c.Backend)
}

func buildEmulator(c config.Config) (*emulator.Board, error) {
	e := c.Emulator

	builder := emulator.MakeBuilder().
		WithFlashSize(e.FlashSize).
		WithSectorSize(e.SectorSize).
		WithDMALatency(e.Latency).
		WithDMABurst(e.Burst).
		WithBitErrorEvery(e.BitErrorEvery)

	// Without a cyclic reader, the writer stops after priming and the
	// loopback drains.
	if e.CyclicReader || c.DMA.LimitPriming {
		builder = builder.WithCyclicReader()
	}

	b := builder.Build(fmt.Sprintf("emulator%d", c.Device))

	if e.FlashImage == "" {
		return b, nil
	}

	if err := loadFlashImage(b, e.FlashImage); err != nil {
		return nil, err
	}

	atexit.Register(func() {
		if err := saveFlashImage(b, e.FlashImage, e.FlashSize); err != nil {
			glog.Warningf("saving flash image: %v", err)
		}
	})

	return b, nil
}

func loadFlashImage(b *emulator.Board, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("loading flash image: %w", err)
	}

	glog.V(1).Infof("loaded %d bytes of flash from %s", len(data), path)

	return b.LoadFlash(0, data)
}

func saveFlashImage(b *emulator.Board, path string, size uint32) error {
	data, err := b.FlashContent(0, size)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
