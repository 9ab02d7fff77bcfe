package flashprog

import (
	"errors"
	"fmt"
)

// ErrAllocation is returned when an image or an address range does not fit
// in the 32-bit flash address space.
var ErrAllocation = errors.New("flash range exceeds the address space")

// A FileError reports a failure to read or write a local file.
type FileError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("could not %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// A VerifyError reports that the flash did not read back as written.
type VerifyError struct {
	Errors int
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("Failed %d errors", e.Errors)
}
