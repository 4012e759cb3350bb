package safevar

// SafeString is a transactional string field, grounded on
// original_source/src/contract/variables/safestring.h's commit/revert
// overlay pattern, generalized from the C++ value-semantics to a Go pointer
// overlay.
type SafeString struct {
	reg       *Registry
	idx       int
	committed string
	overlay   *string
}

// NewSafeString registers a new string field with reg.
func NewSafeString(reg *Registry, initial string) *SafeString {
	s := &SafeString{reg: reg, committed: initial}
	s.idx = reg.register(s)
	return s
}

// Get returns the current value.
func (s *SafeString) Get() string {
	if s.overlay != nil {
		return *s.overlay
	}
	return s.committed
}

// Set overwrites the value, populating the overlay on first write.
func (s *SafeString) Set(v string) {
	if s.overlay == nil {
		s.reg.markDirty(s.idx)
	}
	s.overlay = &v
}

func (s *SafeString) commit() {
	if s.overlay != nil {
		s.committed = *s.overlay
		s.overlay = nil
	}
}

func (s *SafeString) revert() {
	s.overlay = nil
}
