package safevar

import "github.com/holiman/uint256"

// SafeUint256 is a transactional u256 field, grounded on the teacher's
// StateObject balance handling (core/state/state_object.go SetBalance) but
// generalized to the overlay/committed split spec §4.3 requires instead of
// an unconditional changelog entry per write.
type SafeUint256 struct {
	reg       *Registry
	idx       int
	committed uint256.Int
	overlay   *uint256.Int // nil until first write this transaction
}

// NewSafeUint256 registers a new u256 field with reg and returns it,
// initialized to initial (zero if nil).
func NewSafeUint256(reg *Registry, initial *uint256.Int) *SafeUint256 {
	s := &SafeUint256{reg: reg}
	if initial != nil {
		s.committed.Set(initial)
	}
	s.idx = reg.register(s)
	return s
}

// Get returns the current value: the pending overlay if the field has been
// written this transaction, else the committed value.
func (s *SafeUint256) Get() *uint256.Int {
	if s.overlay != nil {
		return new(uint256.Int).Set(s.overlay)
	}
	return new(uint256.Int).Set(&s.committed)
}

func (s *SafeUint256) touch() *uint256.Int {
	if s.overlay == nil {
		s.overlay = new(uint256.Int).Set(&s.committed)
		s.reg.markDirty(s.idx)
	}
	return s.overlay
}

// Set overwrites the value, populating the overlay on first write.
func (s *SafeUint256) Set(v *uint256.Int) {
	s.touch().Set(v)
}

// Add adds v to the current value, rejecting the mutation with
// ErrArithmeticOverflow before touching the overlay if it would wrap.
func (s *SafeUint256) Add(v *uint256.Int) error {
	cur := s.Get()
	var result uint256.Int
	if result.AddOverflow(cur, v) {
		return ErrArithmeticOverflow
	}
	s.touch().Set(&result)
	return nil
}

// Sub subtracts v from the current value, rejecting the mutation with
// ErrArithmeticUnderflow before touching the overlay if it would wrap.
func (s *SafeUint256) Sub(v *uint256.Int) error {
	cur := s.Get()
	var result uint256.Int
	if result.SubOverflow(cur, v) {
		return ErrArithmeticUnderflow
	}
	s.touch().Set(&result)
	return nil
}

// Mul multiplies the current value by v, rejecting on overflow.
func (s *SafeUint256) Mul(v *uint256.Int) error {
	cur := s.Get()
	var result uint256.Int
	if result.MulOverflow(cur, v) {
		return ErrArithmeticOverflow
	}
	s.touch().Set(&result)
	return nil
}

// Div divides the current value by v, rejecting division by zero.
func (s *SafeUint256) Div(v *uint256.Int) error {
	if v.IsZero() {
		return ErrDivisionByZero
	}
	cur := s.Get()
	var result uint256.Int
	result.Div(cur, v)
	s.touch().Set(&result)
	return nil
}

func (s *SafeUint256) commit() {
	if s.overlay != nil {
		s.committed.Set(s.overlay)
		s.overlay = nil
	}
}

func (s *SafeUint256) revert() {
	s.overlay = nil
}
