package executor

import (
	"crypto/ecdsa"
	"testing"

	"github.com/holiman/uint256"

	"github.com/exacore/exacore/codec"
	"github.com/exacore/exacore/contract"
	"github.com/exacore/exacore/crypto"
	"github.com/exacore/exacore/kv"
	"github.com/exacore/exacore/registry"
	"github.com/exacore/exacore/state"
	"github.com/exacore/exacore/types"
	"github.com/exacore/exacore/vm"
)

const testChainID = 1337

func newTestKey(t *testing.T) (*ecdsa.PrivateKey, types.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, crypto.PubkeyToAddress(&key.PublicKey)
}

func signTx(t *testing.T, key *ecdsa.PrivateKey, tx *types.Transaction) {
	t.Helper()
	h := crypto.TxSigningHash(tx)
	sig, err := crypto.Sign(h.Bytes(), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tx.Signature = sig
}

func testHeader() state.BlockHeader {
	return state.BlockHeader{
		Number:    1,
		Coinbase:  types.Address{0xc0},
		Timestamp: 100,
		GasLimit:  10_000_000,
		ChainID:   testChainID,
	}
}

func TestApplyTransaction_PlainTransfer(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)

	senderKey, sender := newTestKey(t)
	recipient := types.Address{0xbe, 0xef}
	e.accounts.AddBalance(sender, uint256.NewInt(1_000_000))

	tx := &types.Transaction{
		To:       &recipient,
		Value:    uint256.NewInt(1000),
		GasLimit: 100_000,
		GasPrice: uint256.NewInt(1),
		Nonce:    0,
		ChainID:  testChainID,
	}
	signTx(t, senderKey, tx)

	receipt, err := e.ApplyTransaction(testHeader(), tx)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !receipt.Success {
		t.Fatalf("receipt failed: %v", receipt.Err)
	}
	if e.accounts.BalanceOf(recipient).Uint64() != 1000 {
		t.Fatalf("recipient balance = %d, want 1000", e.accounts.BalanceOf(recipient).Uint64())
	}
	if e.accounts.NonceOf(sender) != 1 {
		t.Fatalf("sender nonce = %d, want 1", e.accounts.NonceOf(sender))
	}
}

func TestApplyTransaction_NonceMismatch(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	senderKey, sender := newTestKey(t)
	e.accounts.AddBalance(sender, uint256.NewInt(1_000_000))

	to := types.Address{0x01}
	tx := &types.Transaction{
		To:       &to,
		Value:    new(uint256.Int),
		GasLimit: 100_000,
		GasPrice: uint256.NewInt(1),
		Nonce:    5,
		ChainID:  testChainID,
	}
	signTx(t, senderKey, tx)

	if _, err := e.ApplyTransaction(testHeader(), tx); err != ErrNonceMismatch {
		t.Fatalf("err = %v, want ErrNonceMismatch", err)
	}
}

func TestApplyTransaction_WrongChainID(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	senderKey, sender := newTestKey(t)
	e.accounts.AddBalance(sender, uint256.NewInt(1_000_000))

	to := types.Address{0x01}
	tx := &types.Transaction{
		To:       &to,
		Value:    new(uint256.Int),
		GasLimit: 100_000,
		GasPrice: uint256.NewInt(1),
		Nonce:    0,
		ChainID:  testChainID + 1,
	}
	signTx(t, senderKey, tx)

	if _, err := e.ApplyTransaction(testHeader(), tx); err != ErrWrongChain {
		t.Fatalf("err = %v, want ErrWrongChain", err)
	}
}

func TestApplyTransaction_InsufficientBalance(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	senderKey, sender := newTestKey(t)
	e.accounts.AddBalance(sender, uint256.NewInt(10))

	to := types.Address{0x01}
	tx := &types.Transaction{
		To:       &to,
		Value:    uint256.NewInt(1000),
		GasLimit: 100_000,
		GasPrice: uint256.NewInt(1),
		Nonce:    0,
		ChainID:  testChainID,
	}
	signTx(t, senderKey, tx)

	if _, err := e.ApplyTransaction(testHeader(), tx); err != ErrInsufficientGas {
		t.Fatalf("err = %v, want ErrInsufficientGas", err)
	}
}

func TestApplyTransaction_IntrinsicGasFloor(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	senderKey, sender := newTestKey(t)
	e.accounts.AddBalance(sender, uint256.NewInt(1_000_000))

	to := types.Address{0x01}
	tx := &types.Transaction{
		To:       &to,
		Value:    new(uint256.Int),
		GasLimit: 100, // below txBaseGas
		GasPrice: uint256.NewInt(1),
		Nonce:    0,
		ChainID:  testChainID,
	}
	signTx(t, senderKey, tx)

	if _, err := e.ApplyTransaction(testHeader(), tx); err != ErrIntrinsicGas {
		t.Fatalf("err = %v, want ErrIntrinsicGas", err)
	}
}

// TestApplyTransaction_CreateDerivesConventionalAddress deploys a
// zero-length-code-returning contract and checks the resulting address
// matches crypto.CreateAddress(sender, tx.Nonce) — the nonce the
// transaction carried, not a post-increment value.
func TestApplyTransaction_CreateDerivesConventionalAddress(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	senderKey, sender := newTestKey(t)
	e.accounts.AddBalance(sender, uint256.NewInt(10_000_000))

	// init code: PUSH1 0 PUSH1 0 RETURN (deploys empty bytecode)
	initCode := []byte{byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.RETURN)}
	tx := &types.Transaction{
		To:       nil,
		Value:    new(uint256.Int),
		GasLimit: 1_000_000,
		GasPrice: uint256.NewInt(1),
		Nonce:    0,
		Data:     initCode,
		ChainID:  testChainID,
	}
	signTx(t, senderKey, tx)

	receipt, err := e.ApplyTransaction(testHeader(), tx)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !receipt.Success {
		t.Fatalf("receipt failed: %v", receipt.Err)
	}
	if receipt.ContractAddress == nil {
		t.Fatalf("expected a contract address")
	}
	want := crypto.CreateAddress(sender, 0)
	if *receipt.ContractAddress != want {
		t.Fatalf("deployed address = %s, want %s", receipt.ContractAddress.Hex(), want.Hex())
	}
	if e.accounts.NonceOf(sender) != 1 {
		t.Fatalf("sender nonce after create = %d, want 1", e.accounts.NonceOf(sender))
	}
}

func TestApplyTransaction_RevertRollsBackStorage(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	senderKey, sender := newTestKey(t)
	e.accounts.AddBalance(sender, uint256.NewInt(10_000_000))

	// Contract that SSTOREs then REVERTs: PUSH1 1 PUSH1 0 SSTORE PUSH1 0
	// PUSH1 0 REVERT.
	code := []byte{
		byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE),
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.REVERT),
	}
	target := types.Address{0xc1}
	e.accounts.SetCode(target, code, types.Hash{})

	tx := &types.Transaction{
		To:       &target,
		Value:    new(uint256.Int),
		GasLimit: 200_000,
		GasPrice: uint256.NewInt(1),
		Nonce:    0,
		ChainID:  testChainID,
	}
	signTx(t, senderKey, tx)

	receipt, err := e.ApplyTransaction(testHeader(), tx)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if receipt.Success {
		t.Fatalf("expected REVERT to fail the transaction")
	}
	key := types.Hash{}
	if got := e.accounts.GetState(target, key); !got.IsZero() {
		t.Fatalf("expected storage write to be rolled back, got %s", got.Hex())
	}
	// Gas is still consumed and the nonce still bumped despite the revert.
	if e.accounts.NonceOf(sender) != 1 {
		t.Fatalf("sender nonce after reverted call = %d, want 1", e.accounts.NonceOf(sender))
	}
}

func TestApplyTransaction_NativeContractCall(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	senderKey, sender := newTestKey(t)
	e.accounts.AddBalance(sender, uint256.NewInt(10_000_000))

	addr, err := e.DeployNative(sender, contract.GreeterTypeTag)
	if err != nil {
		t.Fatalf("deploy native: %v", err)
	}

	input := append(codec.Selector("setName(string)")[:], codec.EncodeArgs([]codec.ABIValue{
		{Type: codec.ABIType{Kind: codec.ABIString}, Str: "hi"},
	})...)
	tx := &types.Transaction{
		To:       &addr,
		Value:    new(uint256.Int),
		GasLimit: 200_000,
		GasPrice: uint256.NewInt(1),
		Nonce:    1,
		Data:     input,
		ChainID:  testChainID,
	}
	signTx(t, senderKey, tx)

	receipt, err := e.ApplyTransaction(testHeader(), tx)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !receipt.Success {
		t.Fatalf("receipt failed: %v", receipt.Err)
	}

	out, err := e.ViewCall(testHeader(), sender, addr, codec.Selector("getName()")[:])
	if err != nil {
		t.Fatalf("view call: %v", err)
	}
	vals, err := codec.DecodeArgs(out, []codec.ABIType{{Kind: codec.ABIString}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if vals[0].Str != "hi" {
		t.Fatalf("name = %q, want %q", vals[0].Str, "hi")
	}
}

// TestApplyTransaction_ContractManagerCreate exercises spec §4.5's
// reserved-address deployment path end to end: a plain message call to
// registry.ContractManagerAddress with selector(create) ‖ the type-tag
// argument deploys a new native contract at the CreateAddress(sender,
// nonce) formula, bumps the sender's nonce exactly once, and leaves the
// contract reachable through the ordinary registry lookup afterward.
func TestApplyTransaction_ContractManagerCreate(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	senderKey, sender := newTestKey(t)
	e.accounts.AddBalance(sender, uint256.NewInt(10_000_000))

	nonceBefore := e.accounts.NonceOf(sender)
	wantAddr := crypto.CreateAddress(sender, nonceBefore)

	input := append(codec.Selector("create(string)")[:], codec.EncodeArgs([]codec.ABIValue{
		{Type: codec.ABIType{Kind: codec.ABIString}, Str: contract.GreeterTypeTag},
	})...)
	tx := &types.Transaction{
		To:       &registry.ContractManagerAddress,
		Value:    new(uint256.Int),
		GasLimit: 200_000,
		GasPrice: uint256.NewInt(1),
		Nonce:    nonceBefore,
		Data:     input,
		ChainID:  testChainID,
	}
	signTx(t, senderKey, tx)

	receipt, err := e.ApplyTransaction(testHeader(), tx)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !receipt.Success {
		t.Fatalf("receipt failed: %v", receipt.Err)
	}

	vals, err := codec.DecodeArgs(receipt.ReturnData, []codec.ABIType{{Kind: codec.ABIAddress}})
	if err != nil {
		t.Fatalf("decode create return: %v", err)
	}
	if vals[0].Addr != wantAddr {
		t.Fatalf("deployed address = %s, want %s", vals[0].Addr.Hex(), wantAddr.Hex())
	}
	if _, ok := e.registry.Lookup(wantAddr); !ok {
		t.Fatalf("expected deployed contract to be reachable via Lookup")
	}
	if got := e.accounts.NonceOf(sender); got != nonceBefore+1 {
		t.Fatalf("sender nonce after create = %d, want %d", got, nonceBefore+1)
	}
}

// TestApplyTransaction_ContractManagerCreate_RevertLeavesNoTrace checks
// spec §8's "a failed constructor leaves no trace": an unknown type tag
// fails the create, and the whole transaction (and any nonce bump the
// create path would otherwise have made) rolls back.
func TestApplyTransaction_ContractManagerCreate_RevertLeavesNoTrace(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	senderKey, sender := newTestKey(t)
	e.accounts.AddBalance(sender, uint256.NewInt(10_000_000))
	nonceBefore := e.accounts.NonceOf(sender)

	input := append(codec.Selector("create(string)")[:], codec.EncodeArgs([]codec.ABIValue{
		{Type: codec.ABIType{Kind: codec.ABIString}, Str: "NoSuchType"},
	})...)
	tx := &types.Transaction{
		To:       &registry.ContractManagerAddress,
		Value:    new(uint256.Int),
		GasLimit: 200_000,
		GasPrice: uint256.NewInt(1),
		Nonce:    nonceBefore,
		Data:     input,
		ChainID:  testChainID,
	}
	signTx(t, senderKey, tx)

	receipt, err := e.ApplyTransaction(testHeader(), tx)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if receipt.Success {
		t.Fatalf("expected create with an unknown type tag to fail")
	}
	if got := e.accounts.NonceOf(sender); got != nonceBefore {
		t.Fatalf("nonce after a failed create = %d, want %d unchanged (create never reached the point of bumping it)", got, nonceBefore)
	}
}

// TestContractRegistry_ConsensusContractReachableAtReservedAddress confirms
// ValidatorSet is reachable at its fixed reserved address straight out of
// New, without needing a DeployNative call first (spec §6's reserved
// "consensus contract").
func TestContractRegistry_ConsensusContractReachableAtReservedAddress(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	if _, ok := e.registry.Lookup(registry.ConsensusContractAddress); !ok {
		t.Fatalf("expected ValidatorSet to be reachable at the reserved consensus contract address")
	}
}

func TestViewCall_LeavesNoTrace(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	sender := types.Address{0x01}

	addr, err := e.DeployNative(sender, contract.GreeterTypeTag)
	if err != nil {
		t.Fatalf("deploy native: %v", err)
	}
	snapBefore := e.accounts.Snapshot()

	input := append(codec.Selector("setName(string)")[:], codec.EncodeArgs([]codec.ABIValue{
		{Type: codec.ABIType{Kind: codec.ABIString}, Str: "should-not-persist"},
	})...)
	// DispatchMutating via a raw ViewCall is not reachable from ViewCall
	// (it routes only to DispatchView), so exercise ViewCall against the
	// read-only selector instead and confirm ViewCall takes exactly one
	// snapshot. Snapshot ids are never reused, so snapBefore, ViewCall's own
	// snapshot and snapAfter are three consecutive ids.
	_, _ = e.ViewCall(testHeader(), sender, addr, append(codec.Selector("getName()")[:], input...))
	snapAfter := e.accounts.Snapshot()
	if snapAfter != snapBefore+2 {
		t.Fatalf("expected exactly one snapshot taken and reverted by ViewCall, got snapBefore=%d snapAfter=%d", snapBefore, snapAfter)
	}
}

// TestNativeDispatch_RevertUndoesCommittedSafeVarFields locks in the fix for
// a native contract's SafeVar commit riding the same journal as balance and
// storage writes: DispatchMutating commits immediately on success, before
// the enclosing call is known to succeed, so an outer RevertToSnapshot must
// undo that commit too (spec §8's cross-call atomicity invariant, and
// §4.6's EVM<->native call symmetry — an SSTORE made by a nested call that
// later reverts doesn't stick around either).
func TestNativeDispatch_RevertUndoesCommittedSafeVarFields(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, testChainID)
	deployer := types.Address{0x01}

	deployBatch := store.NewBatch()
	addr, _, err := e.registry.DeployNative(deployBatch, deployer, 0, contract.GreeterTypeTag)
	if err != nil {
		t.Fatalf("deploy native: %v", err)
	}
	if err := deployBatch.Write(); err != nil {
		t.Fatalf("write deploy batch: %v", err)
	}

	e.host.beginTx(store.NewBatch(), vm.TxContext{Origin: deployer}, e.blockContext(testHeader()))

	snap := e.accounts.Snapshot()

	input := append(codec.Selector("setName(string)")[:], codec.EncodeArgs([]codec.ABIValue{
		{Type: codec.ABIType{Kind: codec.ABIString}, Str: "mutated"},
	})...)
	ok, _, _, err := e.host.NativeDispatch(deployer, addr, input, nil, false)
	if !ok || err != nil {
		t.Fatalf("NativeDispatch: ok=%v err=%v", ok, err)
	}

	readName := func() string {
		out, err := e.registry.DispatchView(addr, codec.Selector("getName()")[:])
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		vals, err := codec.DecodeArgs(out, []codec.ABIType{{Kind: codec.ABIString}})
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		return vals[0].Str
	}

	if got := readName(); got != "mutated" {
		t.Fatalf("name before revert = %q, want %q (commit should be visible immediately)", got, "mutated")
	}

	// Simulate the enclosing call (an EVM REVERT, an out-of-gas top-level
	// transaction, ...) unwinding past the snapshot taken before the native
	// dispatch.
	e.accounts.RevertToSnapshot(snap)

	if got := readName(); got != "" {
		t.Fatalf("name after revert = %q, want the pre-call empty name restored", got)
	}
}
