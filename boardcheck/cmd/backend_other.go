//go:build !linux

package cmd

import (
	"errors"

	"github.com/sarchlab/boardcheck/board"
	"github.com/sarchlab/boardcheck/config"
)

func pcibarOpener(config.Config) (board.Opener, error) {
	return nil, errors.New("the pcibar backend needs Linux")
}
