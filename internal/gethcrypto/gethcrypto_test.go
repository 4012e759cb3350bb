package gethcrypto

import (
	"bytes"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if key.D == nil || key.D.Sign() == 0 {
		t.Fatal("GenerateKey produced a nil or zero private key")
	}
}

func TestSignAndEcrecover_RoundTrips(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	hash := bytes.Repeat([]byte{0x42}, 32)

	sig, err := Sign(hash, key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("Sign produced a %d-byte signature, want 65", len(sig))
	}

	pub, err := Ecrecover(hash, sig)
	if err != nil {
		t.Fatalf("Ecrecover: %v", err)
	}

	wantAddr := PubkeyToAddressBytes(&key.PublicKey)
	gotPub, err := SigToPub(hash, sig)
	if err != nil {
		t.Fatalf("SigToPub: %v", err)
	}
	gotAddr := PubkeyToAddressBytes(gotPub)
	if !bytes.Equal(gotAddr, wantAddr) {
		t.Fatalf("recovered address %x, want %x", gotAddr, wantAddr)
	}

	if len(pub) != 65 || pub[0] != 0x04 {
		t.Fatalf("Ecrecover pubkey not an uncompressed 65-byte point: %x", pub)
	}
}

func TestPubkeyToAddressBytes_Length(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := PubkeyToAddressBytes(&key.PublicKey)
	if len(addr) != 20 {
		t.Fatalf("address length = %d, want 20", len(addr))
	}
}

func TestEcrecover_RejectsBadSignature(t *testing.T) {
	hash := bytes.Repeat([]byte{0x01}, 32)
	if _, err := Ecrecover(hash, make([]byte, 65)); err == nil {
		t.Fatal("expected an error recovering from an all-zero signature")
	}
}
