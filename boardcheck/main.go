// Boardcheck tests the DMA loopback and programs the SPI flash of PCIe FPGA
// boards.
package main

import "github.com/sarchlab/boardcheck/boardcheck/cmd"

func main() {
	cmd.Execute()
}
