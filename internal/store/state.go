package store

// SharedState is the version counter shared by a frame and every view
// cloned from it. Version moves on row additions and removals; epoch moves
// when the root table is replaced wholesale.
type SharedState struct {
	version uint64
	epoch   uint64
}

// Version returns the current version
func (s *SharedState) Version() uint64 {
	return s.version
}

// Epoch returns the current epoch
func (s *SharedState) Epoch() uint64 {
	return s.epoch
}

func (s *SharedState) increment() {
	s.version++
}

func (s *SharedState) replace() {
	s.version++
	s.epoch++
}
