package types

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestBytesToHash_LeftPads(t *testing.T) {
	h := BytesToHash([]byte{0x01, 0x02, 0x03})
	if h[HashLength-1] != 0x03 || h[HashLength-2] != 0x02 || h[HashLength-3] != 0x01 {
		t.Fatalf("BytesToHash: got %x", h)
	}
	for i := 0; i < HashLength-3; i++ {
		if h[i] != 0 {
			t.Fatalf("BytesToHash did not left-pad: byte %d is %x", i, h[i])
		}
	}
}

func TestBytesToHash_TruncatesFromLeft(t *testing.T) {
	b := make([]byte, 40)
	for i := range b {
		b[i] = byte(i)
	}
	h := BytesToHash(b)
	for i := 0; i < HashLength; i++ {
		if h[i] != byte(i+8) {
			t.Fatalf("byte %d = %x, want %x", i, h[i], byte(i+8))
		}
	}
}

func TestHexToHash_AcceptsWithAndWithoutPrefix(t *testing.T) {
	a := HexToHash("0xdead")
	b := HexToHash("dead")
	if a != b {
		t.Fatalf("HexToHash prefix handling mismatch: %x != %x", a, b)
	}
	if a[HashLength-1] != 0xad || a[HashLength-2] != 0xde {
		t.Fatalf("HexToHash: got %x", a)
	}
}

func TestHash_IsZero(t *testing.T) {
	var h Hash
	if !h.IsZero() {
		t.Fatal("zero-value Hash should report IsZero")
	}
	h[0] = 1
	if h.IsZero() {
		t.Fatal("non-zero Hash should not report IsZero")
	}
}

func TestHash_Hex(t *testing.T) {
	h := HexToHash("0xff")
	if got := h.Hex(); got[0:2] != "0x" || got != h.String() {
		t.Fatalf("Hex()/String() mismatch: %q vs %q", got, h.String())
	}
}

func TestBytesToAddress_LeftPadsAndTruncates(t *testing.T) {
	a := BytesToAddress([]byte{0xaa, 0xbb})
	if a[AddressLength-1] != 0xbb || a[AddressLength-2] != 0xaa {
		t.Fatalf("BytesToAddress short input: got %x", a)
	}

	long := make([]byte, 25)
	for i := range long {
		long[i] = byte(i)
	}
	a2 := BytesToAddress(long)
	for i := 0; i < AddressLength; i++ {
		if a2[i] != byte(i+5) {
			t.Fatalf("byte %d = %x, want %x", i, a2[i], byte(i+5))
		}
	}
}

func TestAddress_IsZero(t *testing.T) {
	var a Address
	if !a.IsZero() {
		t.Fatal("zero-value Address should report IsZero")
	}
	a[19] = 1
	if a.IsZero() {
		t.Fatal("non-zero Address should not report IsZero")
	}
}

func TestNewAccount_IsEmpty(t *testing.T) {
	acc := NewAccount()
	if !acc.IsEmpty() {
		t.Fatalf("freshly constructed account should be empty: %+v", acc)
	}
	acc.Nonce = 1
	if acc.IsEmpty() {
		t.Fatal("account with a nonzero nonce should not be empty")
	}
}

func TestAccount_IsEmpty_NonZeroBalance(t *testing.T) {
	acc := NewAccount()
	acc.Balance = uint256.NewInt(1)
	if acc.IsEmpty() {
		t.Fatal("account with nonzero balance should not be empty")
	}
}

func TestAccount_IsEmpty_CodeHash(t *testing.T) {
	acc := NewAccount()
	acc.CodeHash = HexToHash("0x01")
	if acc.IsEmpty() {
		t.Fatal("account with a non-empty code hash should not be empty")
	}
}

func TestContractKind_String(t *testing.T) {
	if KindNative.String() != "native" {
		t.Fatalf("KindNative.String() = %q, want native", KindNative.String())
	}
	if KindEVM.String() != "evm" {
		t.Fatalf("KindEVM.String() = %q, want evm", KindEVM.String())
	}
}

func TestEmptyCodeHash_Matches32Bytes(t *testing.T) {
	if len(EmptyCodeHash.Bytes()) != HashLength {
		t.Fatalf("EmptyCodeHash length = %d, want %d", len(EmptyCodeHash.Bytes()), HashLength)
	}
	if EmptyCodeHash.IsZero() {
		t.Fatal("EmptyCodeHash should not be the zero hash")
	}
}
