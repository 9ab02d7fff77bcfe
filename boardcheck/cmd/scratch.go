package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/boardcheck/board"
	"github.com/spf13/cobra"
)

var scratchCmd = &cobra.Command{
	Use:   "scratch_test",
	Short: "Test Scratch register.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		opener, err := openerFor(cfg)
		if err != nil {
			return err
		}

		return scratchTest(opener, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(scratchCmd)
}

func scratchTest(opener board.Opener, w io.Writer) error {
	dev, err := board.OpenDevice(opener)
	if err != nil {
		return err
	}
	defer dev.Close()

	results, err := board.CheckScratch(dev, board.ScratchAddr)

	for _, r := range results {
		fmt.Fprintf(w, "Write 0x%08x to scratch register:\n", r.Wrote)
		fmt.Fprintf(w, "Read: 0x%08x\n", r.Read)
	}

	return err
}
