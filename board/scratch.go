package board

import "fmt"

// ScratchPatterns are written to the scratch register by CheckScratch.
var ScratchPatterns = []uint32{0x12345678, 0xdeadbeef}

// A ScratchResult records one write/read-back of the scratch register.
type ScratchResult struct {
	Wrote uint32
	Read  uint32
}

// OK reports whether the value read back matches the value written.
func (r ScratchResult) OK() bool {
	return r.Wrote == r.Read
}

// A ScratchError reports a scratch register that did not hold its value.
type ScratchError struct {
	Addr   uint32
	Result ScratchResult
}

func (e *ScratchError) Error() string {
	return fmt.Sprintf("scratch register 0x%x: wrote 0x%08x, read 0x%08x",
		e.Addr, e.Result.Wrote, e.Result.Read)
}

// CheckScratch writes each of the ScratchPatterns to the register at addr and
// reads it back. It returns the results collected so far and a ScratchError
// for the first mismatch.
func CheckScratch(regs Registers, addr uint32) ([]ScratchResult, error) {
	results := make([]ScratchResult, 0, len(ScratchPatterns))

	for _, p := range ScratchPatterns {
		if err := regs.Write32(addr, p); err != nil {
			return results, fmt.Errorf("write scratch register: %w", err)
		}

		v, err := regs.Read32(addr)
		if err != nil {
			return results, fmt.Errorf("read scratch register: %w", err)
		}

		r := ScratchResult{Wrote: p, Read: v}
		results = append(results, r)

		if !r.OK() {
			return results, &ScratchError{Addr: addr, Result: r}
		}
	}

	return results, nil
}
