package safevar

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/exacore/exacore/types"
)

func TestSafeUint256CommitPersists(t *testing.T) {
	reg := NewRegistry()
	v := NewSafeUint256(reg, uint256.NewInt(10))

	if err := v.Add(uint256.NewInt(5)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := v.Get().Uint64(); got != 15 {
		t.Fatalf("Get before commit = %d, want 15", got)
	}
	reg.Commit()
	if got := v.Get().Uint64(); got != 15 {
		t.Fatalf("Get after commit = %d, want 15", got)
	}
	if reg.DirtyCount() != 0 {
		t.Fatal("dirty set must be empty after commit")
	}
}

func TestSafeUint256RevertDropsOverlay(t *testing.T) {
	reg := NewRegistry()
	v := NewSafeUint256(reg, uint256.NewInt(10))

	if err := v.Add(uint256.NewInt(5)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	reg.Revert()
	if got := v.Get().Uint64(); got != 10 {
		t.Fatalf("Get after revert = %d, want 10 (unchanged)", got)
	}
}

func TestSafeUint256OverflowRejected(t *testing.T) {
	reg := NewRegistry()
	max := new(uint256.Int).Not(uint256.NewInt(0))
	v := NewSafeUint256(reg, uint256.NewInt(1))

	err := v.Add(max)
	if err != ErrArithmeticOverflow {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
	// The rejected mutation must not have touched the overlay or dirty set.
	if got := v.Get().Uint64(); got != 1 {
		t.Fatalf("value changed despite rejected overflow: %d", got)
	}
	if reg.DirtyCount() != 0 {
		t.Fatal("a rejected mutation must not mark the field dirty")
	}
}

func TestSafeUint256UnderflowRejected(t *testing.T) {
	reg := NewRegistry()
	v := NewSafeUint256(reg, uint256.NewInt(1))
	if err := v.Sub(uint256.NewInt(2)); err != ErrArithmeticUnderflow {
		t.Fatalf("expected ErrArithmeticUnderflow, got %v", err)
	}
}

func TestSafeUint256DivisionByZero(t *testing.T) {
	reg := NewRegistry()
	v := NewSafeUint256(reg, uint256.NewInt(10))
	if err := v.Div(uint256.NewInt(0)); err != ErrDivisionByZero {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestSafeUint224RejectsOutOfRange(t *testing.T) {
	reg := NewRegistry()
	v := NewSafeUint224(reg, uint256.NewInt(0))
	tooLarge := new(uint256.Int).Lsh(uint256.NewInt(1), 224) // exactly 2^224
	if err := v.Set(tooLarge); err != ErrArithmeticOverflow {
		t.Fatalf("expected ErrArithmeticOverflow for value >= 2^224, got %v", err)
	}
}

func TestSafeStringCommitRevert(t *testing.T) {
	reg := NewRegistry()
	s := NewSafeString(reg, "initial")
	s.Set("changed")
	if s.Get() != "changed" {
		t.Fatal("Get must reflect the overlay")
	}
	reg.Revert()
	if s.Get() != "initial" {
		t.Fatal("revert must restore the committed value")
	}
	s.Set("final")
	reg.Commit()
	if s.Get() != "final" {
		t.Fatal("commit must persist the overlay")
	}
}

func TestSafeAddressCommitRevert(t *testing.T) {
	reg := NewRegistry()
	a := types.HexToAddress("0x1111111111111111111111111111111111111111")
	b := types.HexToAddress("0x2222222222222222222222222222222222222222")
	sv := NewSafeAddress(reg, a)
	sv.Set(b)
	reg.Revert()
	if sv.Get() != a {
		t.Fatal("revert must restore the committed address")
	}
}

func TestSafeMapCommitRevert(t *testing.T) {
	reg := NewRegistry()
	m := NewSafeMap[types.Address, *uint256.Int](reg)
	addr := types.HexToAddress("0x3333333333333333333333333333333333333333")

	m.Set(addr, uint256.NewInt(100))
	v, ok := m.Get(addr)
	if !ok || v.Uint64() != 100 {
		t.Fatal("overlay write not visible before commit")
	}
	reg.Revert()
	if _, ok := m.Get(addr); ok {
		t.Fatal("reverted map write must not be visible")
	}

	m.Set(addr, uint256.NewInt(200))
	reg.Commit()
	v, ok = m.Get(addr)
	if !ok || v.Uint64() != 200 {
		t.Fatal("committed map write must be visible")
	}

	m.Delete(addr)
	reg.Commit()
	if _, ok := m.Get(addr); ok {
		t.Fatal("committed delete must remove the key")
	}
}

func TestRegistryDirtyCountIsTouchedFieldsOnly(t *testing.T) {
	reg := NewRegistry()
	a := NewSafeUint256(reg, uint256.NewInt(0))
	_ = NewSafeUint256(reg, uint256.NewInt(0)) // untouched sibling field
	a.Set(uint256.NewInt(1))
	if reg.DirtyCount() != 1 {
		t.Fatalf("DirtyCount = %d, want 1 (only touched fields)", reg.DirtyCount())
	}
}
