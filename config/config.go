// Package config gathers the settings of boardcheck. Settings come, from the
// highest priority to the lowest, from command-line flags, BOARDCHECK_*
// environment variables (a .env file is loaded into the environment first),
// a boardcheck.{toml,yaml,json} file and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sarchlab/boardcheck/board"
	"github.com/sarchlab/boardcheck/board/emulator"
	"github.com/sarchlab/boardcheck/dmatest"
	"github.com/sarchlab/boardcheck/seqgen"
	"github.com/spf13/viper"
)

// The backends a board can be reached through.
const (
	BackendEmulator = "emulator"
	BackendPCIBAR   = "pcibar"
)

// Config keys.
const (
	KeyBackend            = "backend"
	KeyDevice             = "device"
	KeyBAR                = "bar"
	KeyZeroCopy           = "zero_copy"
	KeyDMABufferSize      = "dma.buffer_size"
	KeyDMABufferCount     = "dma.buffer_count"
	KeyDMAMode            = "dma.mode"
	KeyDMAReportInterval  = "dma.report_interval"
	KeyDMALimitPriming    = "dma.limit_priming"
	KeyDMADuration        = "dma.duration"
	KeyDMAMaxReports      = "dma.max_reports"
	KeyRecord             = "record"
	KeyMonitor            = "monitor"
	KeyMonitorPort        = "monitor_port"
	KeyOpenBrowser        = "open_browser"
	KeyEmulatorFlashSize  = "emulator.flash_size"
	KeyEmulatorSector     = "emulator.sector_size"
	KeyEmulatorLatency    = "emulator.latency"
	KeyEmulatorBurst      = "emulator.burst"
	KeyEmulatorBitErrors  = "emulator.bit_error_every"
	KeyEmulatorCyclicRead = "emulator.cyclic_reader"
	KeyEmulatorFlashImage = "emulator.flash_image"
)

// EnvPrefix is the prefix of the environment variables that set keys. A key
// a.b is set by BOARDCHECK_A_B.
const EnvPrefix = "BOARDCHECK"

// DMA holds the settings of the DMA test.
type DMA struct {
	BufferSize     int
	BufferCount    int
	Mode           seqgen.Mode
	ReportInterval time.Duration
	LimitPriming   bool
	Duration       time.Duration
	MaxReports     int
}

// Emulator holds the settings of the emulated board.
type Emulator struct {
	FlashSize     uint32
	SectorSize    uint32
	Latency       int
	Burst         int
	BitErrorEvery uint64
	CyclicReader  bool

	// FlashImage is a file that keeps the flash content between runs.
	FlashImage string
}

// Config holds all settings.
type Config struct {
	Backend string
	Device  int

	// BAR is the resource file of the pcibar backend. When empty, it is
	// derived from Device.
	BAR         string
	ZeroCopy    bool
	DMA         DMA
	Record      string
	Monitor     bool
	MonitorPort int
	OpenBrowser bool
	Emulator    Emulator
}

// New returns a viper instance with the defaults and the search paths of
// boardcheck. Extra paths are searched for the config file before the
// standard ones.
func New(paths ...string) *viper.Viper {
	v := viper.New()

	v.SetConfigName("boardcheck")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".boardcheck"))
	}
	v.AddConfigPath("/etc/boardcheck")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, BackendEmulator)
	v.SetDefault(KeyDevice, 0)
	v.SetDefault(KeyBAR, "")
	v.SetDefault(KeyZeroCopy, false)
	v.SetDefault(KeyDMABufferSize, board.DefaultBufferSize)
	v.SetDefault(KeyDMABufferCount, board.DefaultBufferCount)
	v.SetDefault(KeyDMAMode, seqgen.ModeRandom.String())
	v.SetDefault(KeyDMAReportInterval, dmatest.DefaultReportInterval)
	v.SetDefault(KeyDMALimitPriming, false)
	v.SetDefault(KeyDMADuration, time.Duration(0))
	v.SetDefault(KeyDMAMaxReports, 0)
	v.SetDefault(KeyRecord, "")
	v.SetDefault(KeyMonitor, false)
	v.SetDefault(KeyMonitorPort, 0)
	v.SetDefault(KeyOpenBrowser, false)
	v.SetDefault(KeyEmulatorFlashSize, 16<<20)
	v.SetDefault(KeyEmulatorSector, 64<<10)
	v.SetDefault(KeyEmulatorLatency, 2)
	v.SetDefault(KeyEmulatorBurst, 16)
	v.SetDefault(KeyEmulatorBitErrors, 0)
	v.SetDefault(KeyEmulatorCyclicRead, false)
	v.SetDefault(KeyEmulatorFlashImage, "")
}

// LoadDotEnv loads the variables of the .env file at path into the
// environment. A missing file is not an error. Variables that are already
// set are kept.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// ReadInConfig reads the config file if there is one.
func ReadInConfig(v *viper.Viper) error {
	err := v.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("reading config: %w", err)
	}

	return nil
}

// Load extracts and validates the settings.
func Load(v *viper.Viper) (Config, error) {
	mode, err := seqgen.ParseMode(v.GetString(KeyDMAMode))
	if err != nil {
		return Config{}, err
	}

	c := Config{
		Backend:  v.GetString(KeyBackend),
		Device:   v.GetInt(KeyDevice),
		BAR:      v.GetString(KeyBAR),
		ZeroCopy: v.GetBool(KeyZeroCopy),
		DMA: DMA{
			BufferSize:     v.GetInt(KeyDMABufferSize),
			BufferCount:    v.GetInt(KeyDMABufferCount),
			Mode:           mode,
			ReportInterval: v.GetDuration(KeyDMAReportInterval),
			LimitPriming:   v.GetBool(KeyDMALimitPriming),
			Duration:       v.GetDuration(KeyDMADuration),
			MaxReports:     v.GetInt(KeyDMAMaxReports),
		},
		Record:      v.GetString(KeyRecord),
		Monitor:     v.GetBool(KeyMonitor),
		MonitorPort: v.GetInt(KeyMonitorPort),
		OpenBrowser: v.GetBool(KeyOpenBrowser),
		Emulator: Emulator{
			FlashSize:     v.GetUint32(KeyEmulatorFlashSize),
			SectorSize:    v.GetUint32(KeyEmulatorSector),
			Latency:       v.GetInt(KeyEmulatorLatency),
			Burst:         v.GetInt(KeyEmulatorBurst),
			BitErrorEvery: v.GetUint64(KeyEmulatorBitErrors),
			CyclicReader:  v.GetBool(KeyEmulatorCyclicRead),
			FlashImage:    v.GetString(KeyEmulatorFlashImage),
		},
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) validate() error {
	switch {
	case c.Backend != BackendEmulator && c.Backend != BackendPCIBAR:
		return fmt.Errorf("unknown backend %q", c.Backend)
	case c.Device < 0:
		return fmt.Errorf("invalid device index %d", c.Device)
	case c.DMA.BufferSize <= 0 || c.DMA.BufferSize%4 != 0:
		return fmt.Errorf("DMA buffer size %d is not a positive multiple of 4",
			c.DMA.BufferSize)
	case c.DMA.BufferCount <= 0:
		return fmt.Errorf("invalid DMA buffer count %d", c.DMA.BufferCount)
	case c.DMA.ReportInterval <= 0:
		return fmt.Errorf("invalid report interval %v", c.DMA.ReportInterval)
	case c.DMA.Duration < 0 || c.DMA.MaxReports < 0:
		return errors.New("DMA run bounds cannot be negative")
	}

	if c.Backend == BackendEmulator {
		return c.Emulator.validate()
	}

	return nil
}

func (e Emulator) validate() error {
	switch {
	case e.SectorSize == 0 || e.SectorSize%emulator.DefaultPageSize != 0:
		return fmt.Errorf("emulator sector size %d is not a positive multiple of %d",
			e.SectorSize, emulator.DefaultPageSize)
	case e.FlashSize == 0 || e.FlashSize%e.SectorSize != 0:
		return fmt.Errorf("emulator flash size %d is not a multiple of the sector size %d",
			e.FlashSize, e.SectorSize)
	case e.Burst <= 0:
		return fmt.Errorf("invalid emulator burst %d", e.Burst)
	case e.Latency < 0:
		return fmt.Errorf("invalid emulator latency %d", e.Latency)
	}

	return nil
}
