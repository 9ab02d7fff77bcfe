package emulator

import "errors"

// errOutOfRange is returned when an access falls beyond the flash capacity.
var errOutOfRange = errors.New("accessing address beyond the flash capacity")

// storage keeps the content of the emulated flash in sectors. Sectors that
// were never touched are not allocated and read as erased.
type storage struct {
	unitSize uint64
	capacity uint64
	erased   byte
	data     map[uint64][]byte
}

func newStorage(capacity, unitSize uint64, erased byte) *storage {
	return &storage{
		unitSize: unitSize,
		capacity: capacity,
		erased:   erased,
		data:     make(map[uint64][]byte),
	}
}

func (s *storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return baseAddr, inUnitAddr
}

func (s *storage) checkRange(addr, size uint64) error {
	if addr+size > s.capacity || addr+size < addr {
		return errOutOfRange
	}

	return nil
}

func (s *storage) unit(baseAddr uint64) []byte {
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		for i := range unit {
			unit[i] = s.erased
		}
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *storage) readByte(addr uint64) (byte, error) {
	if err := s.checkRange(addr, 1); err != nil {
		return 0, err
	}

	baseAddr, inUnitAddr := s.parseAddress(addr)
	unit, ok := s.data[baseAddr]
	if !ok {
		return s.erased, nil
	}

	return unit[inUnitAddr], nil
}

func (s *storage) read(addr, size uint64) ([]byte, error) {
	if err := s.checkRange(addr, size); err != nil {
		return nil, err
	}

	res := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		res[i], _ = s.readByte(addr + i)
	}

	return res, nil
}

// program clears bits the way NOR flash does: a programmed byte is the AND
// of its previous value and the new value.
func (s *storage) program(addr uint64, data []byte, stuck map[uint64]byte) error {
	if err := s.checkRange(addr, uint64(len(data))); err != nil {
		return err
	}

	for i, b := range data {
		currAddr := addr + uint64(i)
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		unit := s.unit(baseAddr)
		unit[inUnitAddr] &= b | stuck[currAddr]
	}

	return nil
}

// erase returns the sector containing addr to the erased state.
func (s *storage) erase(addr uint64) error {
	if err := s.checkRange(addr, 1); err != nil {
		return err
	}

	baseAddr, _ := s.parseAddress(addr)
	delete(s.data, baseAddr)

	return nil
}
