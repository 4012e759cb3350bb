package safevar

import "github.com/exacore/exacore/types"

// SafeAddress is a transactional Address field, same overlay pattern as
// SafeString but for the fixed-width Address value type.
type SafeAddress struct {
	reg       *Registry
	idx       int
	committed types.Address
	overlay   *types.Address
}

// NewSafeAddress registers a new address field with reg.
func NewSafeAddress(reg *Registry, initial types.Address) *SafeAddress {
	s := &SafeAddress{reg: reg, committed: initial}
	s.idx = reg.register(s)
	return s
}

// Get returns the current value.
func (s *SafeAddress) Get() types.Address {
	if s.overlay != nil {
		return *s.overlay
	}
	return s.committed
}

// Set overwrites the value, populating the overlay on first write.
func (s *SafeAddress) Set(v types.Address) {
	if s.overlay == nil {
		s.reg.markDirty(s.idx)
	}
	s.overlay = &v
}

func (s *SafeAddress) commit() {
	if s.overlay != nil {
		s.committed = *s.overlay
		s.overlay = nil
	}
}

func (s *SafeAddress) revert() {
	s.overlay = nil
}
