package cmd

import (
	"github.com/sarchlab/boardcheck/board"
	"github.com/sarchlab/boardcheck/board/pcibar"
	"github.com/sarchlab/boardcheck/config"
)

func pcibarOpener(c config.Config) (board.Opener, error) {
	path := c.BAR
	if path == "" {
		path = pcibar.ResourcePath(c.Device)
	}

	return pcibar.Opener{Path: path}, nil
}
