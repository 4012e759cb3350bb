package precompile

import (
	"bytes"
	"testing"

	"github.com/exacore/exacore/crypto"
	"github.com/exacore/exacore/internal/gethcrypto"
	"github.com/exacore/exacore/types"
)

func TestRegistry_At(t *testing.T) {
	r := NewRegistry(func() types.Hash { return types.Hash{} })
	for _, addr := range []types.Address{AddrEcrecover, AddrKeccak256, AddrABIPackHash, AddrSignedDigest, AddrDeterministicRandom} {
		if r.At(addr) == nil {
			t.Fatalf("no precompile registered at %s", addr.Hex())
		}
	}
	if r.At(types.Address{0x99}) != nil {
		t.Fatalf("expected no precompile at an unreserved address")
	}
}

func TestEcrecover_RecoversSigner(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	want := types.BytesToAddress(gethcrypto.PubkeyToAddressBytes(&key.PublicKey))

	hash := crypto.Keccak256([]byte("hello exacore"))
	sig, err := gethcrypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	input := make([]byte, 128)
	copy(input[0:32], hash)
	input[63] = sig[64] + 27
	copy(input[64:96], sig[0:32])
	copy(input[96:128], sig[32:64])

	out, err := ecrecoverPrecompile{}.Run(input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := types.BytesToAddress(out)
	if got != want {
		t.Fatalf("recovered = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestEcrecover_RejectsBadV(t *testing.T) {
	input := make([]byte, 128)
	input[63] = 99
	if _, err := (ecrecoverPrecompile{}).Run(input); err != errInvalidSignature {
		t.Fatalf("err = %v, want errInvalidSignature", err)
	}
}

func TestKeccak256Precompile_MatchesCrypto(t *testing.T) {
	data := []byte("exacore")
	got, err := (keccak256Precompile{}).Run(data)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Equal(got, crypto.Keccak256(data)) {
		t.Fatalf("keccak256 precompile mismatch")
	}
}

func TestSignedDigest_MatchesEIP191Prefix(t *testing.T) {
	data := []byte("sign me")
	got, err := (signedDigestPrecompile{}).Run(data)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := crypto.Keccak256Hash([]byte("\x19Ethereum Signed Message:\n7"), data)
	if types.BytesToHash(got) != want {
		t.Fatalf("signed digest mismatch")
	}
}

func TestDeterministicRandom_SameSeedSameInput(t *testing.T) {
	seed := types.HexToHash("0x01")
	p := deterministicRandomPrecompile{seed: func() types.Hash { return seed }}
	a, _ := p.Run([]byte("x"))
	b, _ := p.Run([]byte("x"))
	if !bytes.Equal(a, b) {
		t.Fatalf("expected deterministic output for same seed and input")
	}
	c, _ := p.Run([]byte("y"))
	if bytes.Equal(a, c) {
		t.Fatalf("expected different output for different input")
	}
}
