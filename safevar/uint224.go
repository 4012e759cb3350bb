package safevar

import "github.com/holiman/uint256"

// maxUint224 is 2^224 - 1, computed once as the ceiling SafeUint224 enforces.
var maxUint224 = func() *uint256.Int {
	one := uint256.NewInt(1)
	shifted := new(uint256.Int).Lsh(one, 224)
	return new(uint256.Int).Sub(shifted, one)
}()

// SafeUint224 is a transactional uint224 field, grounded on
// original_source/src/contract/variables/safeuint224_t.h: same overflow
// semantics as SafeUint256 but bounded to 224 bits. uint256.Int is reused as
// the backing word since Go has no native 224-bit integer; every mutation is
// checked against maxUint224 in addition to the usual 256-bit overflow.
type SafeUint224 struct {
	reg       *Registry
	idx       int
	committed uint256.Int
	overlay   *uint256.Int
}

// NewSafeUint224 registers a new uint224 field with reg.
func NewSafeUint224(reg *Registry, initial *uint256.Int) *SafeUint224 {
	s := &SafeUint224{reg: reg}
	if initial != nil {
		s.committed.Set(initial)
	}
	s.idx = reg.register(s)
	return s
}

func (s *SafeUint224) Get() *uint256.Int {
	if s.overlay != nil {
		return new(uint256.Int).Set(s.overlay)
	}
	return new(uint256.Int).Set(&s.committed)
}

func (s *SafeUint224) touch() *uint256.Int {
	if s.overlay == nil {
		s.overlay = new(uint256.Int).Set(&s.committed)
		s.reg.markDirty(s.idx)
	}
	return s.overlay
}

// Add adds v, rejecting with ErrArithmeticOverflow if the result would
// exceed 2^224-1.
func (s *SafeUint224) Add(v *uint256.Int) error {
	cur := s.Get()
	var result uint256.Int
	if result.AddOverflow(cur, v) || result.Gt(maxUint224) {
		return ErrArithmeticOverflow
	}
	s.touch().Set(&result)
	return nil
}

// Sub subtracts v, rejecting with ErrArithmeticUnderflow on wrap.
func (s *SafeUint224) Sub(v *uint256.Int) error {
	cur := s.Get()
	var result uint256.Int
	if result.SubOverflow(cur, v) {
		return ErrArithmeticUnderflow
	}
	s.touch().Set(&result)
	return nil
}

// Set overwrites the value, rejecting values that exceed 2^224-1.
func (s *SafeUint224) Set(v *uint256.Int) error {
	if v.Gt(maxUint224) {
		return ErrArithmeticOverflow
	}
	s.touch().Set(v)
	return nil
}

func (s *SafeUint224) commit() {
	if s.overlay != nil {
		s.committed.Set(s.overlay)
		s.overlay = nil
	}
}

func (s *SafeUint224) revert() {
	s.overlay = nil
}
