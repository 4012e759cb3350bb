package registry

import (
	"errors"
	"testing"

	"github.com/exacore/exacore/codec"
	"github.com/exacore/exacore/contract"
	"github.com/exacore/exacore/crypto"
	"github.com/exacore/exacore/kv"
	"github.com/exacore/exacore/types"
)

// stubCodeStore is a CodeStore double, since no EVM contract needs to exist
// for the registry tests that exercise only native-contract routing.
type stubCodeStore struct {
	code  map[types.Address][]byte
	nonce map[types.Address]uint64
}

func newStubCodeStore() *stubCodeStore {
	return &stubCodeStore{code: make(map[types.Address][]byte), nonce: make(map[types.Address]uint64)}
}
func (s *stubCodeStore) GetCode(addr types.Address) []byte  { return s.code[addr] }
func (s *stubCodeStore) GetNonce(addr types.Address) uint64 { return s.nonce[addr] }

func setNameInput(name string) []byte {
	sel := codec.Selector("setName(string)")
	args := codec.EncodeArgs([]codec.ABIValue{{Type: codec.ABIType{Kind: codec.ABIString}, Str: name}})
	return append(sel[:], args...)
}

func setValueInput(malformed bool) []byte {
	sel := codec.Selector("setValue(uint256)")
	if malformed {
		return append(sel[:], []byte{1, 2}...)
	}
	args := codec.EncodeArgs([]codec.ABIValue{{Type: codec.ABIType{Kind: codec.ABIUint256}}})
	return append(sel[:], args...)
}

func TestDeployNative_AddressMatchesCreateFormula(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := New(store, newStubCodeStore())
	deployer := types.Address{0x01}

	batch := store.NewBatch()
	addr, inst, err := reg.DeployNative(batch, deployer, 5, contract.GreeterTypeTag)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if err := batch.Write(); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := crypto.CreateAddress(deployer, 5)
	if addr != want {
		t.Fatalf("deployed address = %s, want %s (CreateAddress formula)", addr.Hex(), want.Hex())
	}
	if inst.TypeTag() != contract.GreeterTypeTag {
		t.Fatalf("type tag = %s, want %s", inst.TypeTag(), contract.GreeterTypeTag)
	}
	if _, ok := reg.Lookup(addr); !ok {
		t.Fatalf("expected Lookup to find freshly deployed contract")
	}
}

func TestDeployNative_UnknownTypeTag(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := New(store, newStubCodeStore())
	batch := store.NewBatch()
	if _, _, err := reg.DeployNative(batch, types.Address{1}, 0, "NoSuchType"); !errors.Is(err, ErrUnknownTypeTag) {
		t.Fatalf("err = %v, want ErrUnknownTypeTag", err)
	}
}

func TestRehydrate_RestoresPersistedFields(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := New(store, newStubCodeStore())
	deployer := types.Address{0x01}

	batch := store.NewBatch()
	addr, _, _ := reg.DeployNative(batch, deployer, 0, contract.GreeterTypeTag)
	batch.Write()

	mutBatch := store.NewBatch()
	if _, _, _, err := reg.DispatchMutating(mutBatch, addr, setNameInput("rehydrated"), nil); err != nil {
		t.Fatalf("dispatch mutating: %v", err)
	}
	if err := mutBatch.Write(); err != nil {
		t.Fatalf("write: %v", err)
	}

	reg2 := New(store, newStubCodeStore())
	if err := reg2.Rehydrate(); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	inst, ok := reg2.Lookup(addr)
	if !ok {
		t.Fatalf("expected rehydrated registry to find contract at %s", addr.Hex())
	}
	out, err := inst.DispatchView(codec.Selector("getName()"), nil)
	if err != nil {
		t.Fatalf("getName after rehydrate: %v", err)
	}
	vals, err := codec.DecodeArgs(out, []codec.ABIType{{Kind: codec.ABIString}})
	if err != nil {
		t.Fatalf("decode getName: %v", err)
	}
	if vals[0].Str != "rehydrated" {
		t.Fatalf("rehydrated name = %q, want %q", vals[0].Str, "rehydrated")
	}
}

func TestRehydrate_FatalOnUnknownTypeTag(t *testing.T) {
	store := kv.NewMemoryStore()
	store.Put(kv.PrefixRegistry, types.Address{0x02}.Bytes(), []byte("BogusType"))
	reg := New(store, newStubCodeStore())
	if err := reg.Rehydrate(); !errors.Is(err, ErrUnknownTypeTag) {
		t.Fatalf("err = %v, want ErrUnknownTypeTag", err)
	}
}

func TestDispatchMutating_RevertsOnErrorLeavesNoStorageTrace(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := New(store, newStubCodeStore())
	deployer := types.Address{0x01}

	batch := store.NewBatch()
	addr, _, _ := reg.DeployNative(batch, deployer, 0, contract.GreeterTypeTag)
	batch.Write()

	mutBatch := store.NewBatch()
	_, _, _, err := reg.DispatchMutating(mutBatch, addr, setValueInput(true), nil)
	if err == nil {
		t.Fatalf("expected dispatch to fail on malformed input")
	}
	mutBatch.Write()

	if ok, _ := store.Has(kv.PrefixContractData, append(addr.Bytes(), 0x00)); ok {
		t.Fatalf("expected no persisted snapshot after a failed mutating dispatch")
	}
}

func TestDispatchView_UnknownAddress(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := New(store, newStubCodeStore())
	if _, err := reg.DispatchView(types.Address{0x77}, []byte{0, 0, 0, 0}); !errors.Is(err, ErrContractNotFound) {
		t.Fatalf("err = %v, want ErrContractNotFound", err)
	}
}

func TestIsEVMContract(t *testing.T) {
	code := newStubCodeStore()
	addr := types.Address{0x42}
	code.code[addr] = []byte{0x60, 0x00}
	store := kv.NewMemoryStore()
	reg := New(store, code)
	if !reg.IsEVMContract(addr) {
		t.Fatalf("expected address with bytecode and no native registration to be an EVM contract")
	}
}

func TestIsReserved_ContractManagerAndConsensusContract(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := New(store, newStubCodeStore())
	if !reg.IsReserved(ContractManagerAddress) {
		t.Fatalf("expected ContractManagerAddress to be reserved")
	}
	if !reg.IsReserved(ConsensusContractAddress) {
		t.Fatalf("expected ConsensusContractAddress to be reserved")
	}
	if reg.IsReserved(types.Address{0x42}) {
		t.Fatalf("expected an ordinary address not to be reserved")
	}
}

func TestDispatchCreate_DeploysAtCreateAddressFormula(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := New(store, newStubCodeStore())
	deployer := types.Address{0x01}

	batch := store.NewBatch()
	input := append(createSelector[:], codec.EncodeArgs([]codec.ABIValue{
		{Type: codec.ABIType{Kind: codec.ABIString}, Str: contract.GreeterTypeTag},
	})...)
	ret, revert, err := reg.DispatchCreate(batch, deployer, 3, input)
	if err != nil {
		t.Fatalf("dispatch create: %v", err)
	}
	if revert == nil {
		t.Fatalf("expected a non-nil revert closure on success")
	}
	vals, err := codec.DecodeArgs(ret, []codec.ABIType{{Kind: codec.ABIAddress}})
	if err != nil {
		t.Fatalf("decode return: %v", err)
	}
	want := crypto.CreateAddress(deployer, 3)
	if vals[0].Addr != want {
		t.Fatalf("deployed address = %s, want %s", vals[0].Addr.Hex(), want.Hex())
	}
	if _, ok := reg.Lookup(want); !ok {
		t.Fatalf("expected the created contract to be registered")
	}

	revert()
	if _, ok := reg.Lookup(want); ok {
		t.Fatalf("expected revert to un-register the created contract")
	}
}

func TestDispatchCreate_UnknownTypeTagLeavesNoTrace(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := New(store, newStubCodeStore())
	deployer := types.Address{0x01}

	batch := store.NewBatch()
	input := append(createSelector[:], codec.EncodeArgs([]codec.ABIValue{
		{Type: codec.ABIType{Kind: codec.ABIString}, Str: "NoSuchType"},
	})...)
	if _, _, err := reg.DispatchCreate(batch, deployer, 0, input); !errors.Is(err, ErrUnknownTypeTag) {
		t.Fatalf("err = %v, want ErrUnknownTypeTag", err)
	}
	if batch.Len() != 0 {
		t.Fatalf("expected no staged writes after a failed create")
	}
}

func TestNativeCallGas_ScalesWithDirtyFields(t *testing.T) {
	if nativeCallGas(0) >= nativeCallGas(1) {
		t.Fatalf("expected nativeCallGas to increase with dirty field count")
	}
}
