package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/boardcheck/config"
	"github.com/sarchlab/boardcheck/flashprog"
	"github.com/spf13/cobra"
)

var flashWriteCmd = &cobra.Command{
	Use:   "flash_write filename [offset]",
	Short: "Write file contents to SPI Flash.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		offset, err := optionalUint32(args, 1, "offset")
		if err != nil {
			return err
		}

		p, err := newProgrammer(cfg)
		if err != nil {
			return err
		}

		return p.WriteFromFile(args[0], offset)
	},
}

var flashReadCmd = &cobra.Command{
	Use:   "flash_read filename size [offset]",
	Short: "Read from SPI Flash and write contents to file.",
	Long: `flash_read reads size bytes of the SPI flash starting at offset. ` +
		`A filename of "-" prints a hex dump instead of writing a file.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(_ *cobra.Command, args []string) error {
		size, err := parseUint32(args[1], "size")
		if err != nil {
			return err
		}

		offset, err := optionalUint32(args, 2, "offset")
		if err != nil {
			return err
		}

		p, err := newProgrammer(cfg)
		if err != nil {
			return err
		}

		if args[0] == "-" {
			return p.Dump(size, offset)
		}

		return p.ReadToFile(args[0], size, offset)
	},
}

var flashReloadCmd = &cobra.Command{
	Use:   "flash_reload",
	Short: "Reload FPGA Image.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		p, err := newProgrammer(cfg)
		if err != nil {
			return err
		}

		return p.Reload()
	},
}

func init() {
	rootCmd.AddCommand(flashWriteCmd)
	rootCmd.AddCommand(flashReadCmd)
	rootCmd.AddCommand(flashReloadCmd)
}

func newProgrammer(c config.Config) (*flashprog.Programmer, error) {
	opener, err := openerFor(c)
	if err != nil {
		return nil, err
	}

	p := flashprog.NewProgrammer(opener, os.Stdout)

	if c.Monitor {
		m, err := startMonitor(c)
		if err != nil {
			return nil, err
		}

		p.WithProgressTracker(m)
	}

	return p, nil
}

// parseUint32 accepts decimal, 0x hexadecimal and 0 octal numbers.
func parseUint32(s, what string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}

	return uint32(n), nil
}

func optionalUint32(args []string, i int, what string) (uint32, error) {
	if len(args) <= i {
		return 0, nil
	}

	return parseUint32(args[i], what)
}
