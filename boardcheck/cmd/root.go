// Package cmd provides the command-line interface of boardcheck.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/sarchlab/boardcheck/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

var (
	v       = config.New()
	cfg     config.Config
	envFile string
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "boardcheck",
	Short: "Boardcheck tests and programs PCIe FPGA boards.",
	Long: `Boardcheck tests the DMA loopback path and the scratch register ` +
		`of PCIe FPGA boards and reads, writes and reloads the SPI flash ` +
		`that holds their gateware. Without hardware, it runs against an ` +
		`emulated board.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env",
		"File of BOARDCHECK_* variables to load")
	pf.StringVar(&cfgFile, "config", "",
		"Config file, instead of searching for boardcheck.{toml,yaml,json}")
	pf.String("backend", config.BackendEmulator,
		"How the board is reached: emulator or pcibar")
	pf.IntP("device", "c", 0, "Select the device")
	pf.String("bar", "", "BAR0 resource file of the pcibar backend")
	pf.BoolP("zero-copy", "z", false, "Enable zero-copy DMA mode")
	pf.Bool("monitor", false, "Serve the run state over HTTP")
	pf.Int("monitor-port", 0, "Port of the monitor, random if unset")
	pf.Bool("open-browser", false, "Open the monitor in a browser")

	bindFlag(pf, "backend", config.KeyBackend)
	bindFlag(pf, "device", config.KeyDevice)
	bindFlag(pf, "bar", config.KeyBAR)
	bindFlag(pf, "zero-copy", config.KeyZeroCopy)
	bindFlag(pf, "monitor", config.KeyMonitor)
	bindFlag(pf, "monitor-port", config.KeyMonitorPort)
	bindFlag(pf, "open-browser", config.KeyOpenBrowser)

	// glog registers its flags on the standard flag set.
	pf.AddGoFlagSet(flag.CommandLine)
}

func bindFlag(fs *pflag.FlagSet, name, key string) {
	if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
		panic(err)
	}
}

func loadConfig(_ *cobra.Command, _ []string) error {
	// The flag values are already set by cobra. Parsing marks the standard
	// flag set as parsed for glog.
	if err := flag.CommandLine.Parse(nil); err != nil {
		return err
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	if err := config.ReadInConfig(v); err != nil {
		return err
	}

	if used := v.ConfigFileUsed(); used != "" {
		glog.V(1).Infof("using config file %s", used)
	}

	c, err := config.Load(v)
	if err != nil {
		return err
	}

	cfg = c

	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	atexit.Register(glog.Flush)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
