package executor

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/exacore/exacore/crypto"
	"github.com/exacore/exacore/kv"
	"github.com/exacore/exacore/precompile"
	"github.com/exacore/exacore/registry"
	"github.com/exacore/exacore/state"
	"github.com/exacore/exacore/types"
	"github.com/exacore/exacore/vm"
)

var (
	// ErrNonceMismatch is returned when a transaction's nonce does not equal
	// the sender's current account nonce, per spec §4.7 step 2.
	ErrNonceMismatch = errors.New("executor: nonce mismatch")
	// ErrInsufficientGas is returned when the sender cannot cover
	// gasLimit*gasPrice + value up front.
	ErrInsufficientGas = errors.New("executor: insufficient balance for gas and value")
	// ErrIntrinsicGas is returned when gasLimit is below the transaction's
	// intrinsic cost before any execution happens.
	ErrIntrinsicGas = errors.New("executor: gas limit below intrinsic cost")
	// ErrWrongChain rejects a transaction signed for a different chain ID,
	// since TxSigningHash mixes the chain ID into the signed digest
	// (spec §6) precisely so such a transaction recovers to the wrong
	// sender rather than replaying across chains — this check gives that a
	// clear error instead of a confusing nonce/balance mismatch.
	ErrWrongChain = errors.New("executor: transaction signed for a different chain id")
)

// Gas schedule constants for the outermost transaction envelope, grounded
// on the teacher's core/vm/gas_table.go IntrinsicGas plus spec §4.7's "base
// transaction costs" note.
const (
	txBaseGas       = 21000
	txDataZeroGas   = 4
	txDataNonZero   = 16
	txCreateGas     = 32000
)

// Receipt is the outcome of one applied transaction, per spec §4.7's
// "collect logs/refund" step.
type Receipt struct {
	TxHash          types.Hash
	Success         bool
	GasUsed         uint64
	ContractAddress *types.Address // set for a successful deployment
	ReturnData      []byte
	Logs            []*types.Log
	Err             error
}

// Executor ties AccountStore, ContractRegistry, the precompile registry and
// the EVM interpreter together, applying one transaction or one block at a
// time per spec §4.7. Grounded on the teacher's core/state/StateProcessor
// (Process/ApplyTransaction) orchestration, generalized to exacore's
// native/EVM/precompile three-way dispatch.
type Executor struct {
	store     kv.Store
	accounts  *state.AccountStore
	chainHead *state.ChainHead
	registry  *registry.ContractRegistry
	precomp   *precompile.Registry
	interp     *vm.Interpreter
	host       *stateHost
	eventLog   *EventLog
	chainID    uint64
	randomSeed types.Hash
}

// New returns an Executor backed by store, with chainID mixed into the
// CHAINID opcode's block context.
func New(store kv.Store, chainID uint64) *Executor {
	e := &Executor{store: store, chainID: chainID}
	e.accounts = state.New(store)
	e.chainHead = state.NewChainHead(store)
	e.registry = registry.New(store, e.accounts)
	e.precomp = precompile.NewRegistry(func() types.Hash { return e.randomSeed })
	e.host = newStateHost(e.accounts, e.registry, e.precomp)
	e.interp = vm.NewInterpreter(e.host)
	e.eventLog = NewEventLog(store)
	return e
}

// SetRandomSeed feeds the deterministic-random precompile (spec §6) a fresh
// seed for the next block applied — typically the block's own hash or a
// consensus-provided beacon value.
func (e *Executor) SetRandomSeed(seed types.Hash) {
	e.randomSeed = seed
}

// Rehydrate reloads every persisted native contract, per spec §5's startup
// rehydration requirement. Must be called once before the first
// ApplyTransaction on a reopened store.
func (e *Executor) Rehydrate() error {
	return e.registry.Rehydrate()
}

// intrinsicGas is the fixed cost of a transaction before any execution:
// the base cost, a per-byte calldata cost (cheaper for zero bytes, per
// EIP-2028), and an extra charge for contract creation.
func intrinsicGas(tx *types.Transaction) uint64 {
	gas := uint64(txBaseGas)
	for _, b := range tx.Data {
		if b == 0 {
			gas += txDataZeroGas
		} else {
			gas += txDataNonZero
		}
	}
	if tx.To == nil {
		gas += txCreateGas
	}
	return gas
}

// ApplyTransaction executes one transaction against the current block
// context, mutating AccountStore/ContractRegistry state in place and
// returning a Receipt. On any failure after sender/nonce/balance checks
// pass, the transaction's state effects are rolled back to the snapshot
// taken at entry but gas is still charged and consumed, matching EVM
// semantics (spec §4.7 steps 3-6).
func (e *Executor) ApplyTransaction(header state.BlockHeader, tx *types.Transaction) (*Receipt, error) {
	if tx.ChainID != e.chainID {
		return nil, ErrWrongChain
	}

	sender, err := crypto.RecoverSender(tx)
	if err != nil {
		return nil, fmt.Errorf("executor: recover sender: %w", err)
	}

	if tx.Nonce != e.accounts.NonceOf(sender) {
		return nil, ErrNonceMismatch
	}

	gasCost := intrinsicGas(tx)
	if tx.GasLimit < gasCost {
		return nil, ErrIntrinsicGas
	}

	gasPrice := tx.GasPrice
	if gasPrice == nil {
		gasPrice = new(uint256.Int)
	}
	upfront := new(uint256.Int).Mul(gasPrice, new(uint256.Int).SetUint64(tx.GasLimit))
	if tx.Value != nil {
		upfront.Add(upfront, tx.Value)
	}
	if e.accounts.BalanceOf(sender).Cmp(upfront) < 0 {
		return nil, ErrInsufficientGas
	}

	txHash := crypto.TxHash(tx)
	batch := e.store.NewBatch()
	e.host.beginTx(batch, vm.TxContext{Origin: sender, GasPrice: gasPrice}, e.blockContext(header))

	// Deduct the gas allowance up front; any unused amount is refunded once
	// the real cost is known.
	gasAllowance := new(uint256.Int).Mul(gasPrice, new(uint256.Int).SetUint64(tx.GasLimit))
	if err := e.accounts.SubBalance(sender, gasAllowance); err != nil {
		return nil, err
	}
	// A deployment transaction's address is derived from the sender's
	// pre-transaction nonce (the conventional CreateAddress(sender, tx.Nonce)
	// formula) and executeCreate itself performs the single nonce bump; a
	// plain call bumps the nonce here since nothing else will. A call to the
	// reserved ContractManager address is the exception: it derives its
	// deployed address from the sender's nonce too, so it owns that same
	// single bump itself (stateHost.NativeDispatch), whether reached as a
	// top-level transaction or a nested CALL — bumping it here too would
	// double-count and derive the wrong address.
	if tx.To != nil && *tx.To != registry.ContractManagerAddress {
		e.accounts.SetNonce(sender, tx.Nonce+1)
	}

	snap := e.accounts.Snapshot()
	gasRemaining := tx.GasLimit - gasCost

	receipt := &Receipt{TxHash: txHash, Success: true}

	var (
		returnData []byte
		created    *types.Address
		runErr     error
	)
	switch {
	case tx.To == nil:
		created, returnData, gasRemaining, runErr = e.runCreate(sender, tx, gasRemaining)
	default:
		returnData, gasRemaining, runErr = e.runCall(sender, *tx.To, tx, gasRemaining)
	}

	if runErr != nil {
		e.accounts.RevertToSnapshot(snap)
		receipt.Success = false
		receipt.Err = runErr
	}
	receipt.ContractAddress = created
	receipt.ReturnData = returnData

	gasUsed := tx.GasLimit - gasRemaining
	receipt.GasUsed = gasUsed

	// Refund unused gas to the sender and pay the coinbase for gas spent.
	refund := new(uint256.Int).Mul(gasPrice, new(uint256.Int).SetUint64(gasRemaining))
	e.accounts.AddBalance(sender, refund)
	spent := new(uint256.Int).Mul(gasPrice, new(uint256.Int).SetUint64(gasUsed))
	e.accounts.AddBalance(header.Coinbase, spent)

	e.accounts.EndTransaction()
	if batch.Len() > 0 {
		if receipt.Success {
			if err := batch.Write(); err != nil {
				return nil, fmt.Errorf("executor: write native batch: %w", err)
			}
		}
	}

	receipt.Logs = e.accounts.DrainLogs()
	for _, log := range receipt.Logs {
		log.TxHash = txHash
		log.BlockHash = header.Hash
		log.BlockIndex = header.Number
	}
	if err := e.eventLog.Append(receipt.Logs); err != nil {
		return nil, fmt.Errorf("executor: archive logs: %w", err)
	}

	return receipt, nil
}

// runCall dispatches a top-level message call. The routing between a
// precompile, a native contract, and EVM bytecode is owned entirely by
// Interpreter.Call (the same machinery the CALL opcode uses one level
// down), so the executor only has to assemble CallParams.
func (e *Executor) runCall(sender, to types.Address, tx *types.Transaction, gas uint64) ([]byte, uint64, error) {
	value := tx.Value
	if value == nil {
		value = new(uint256.Int)
	}
	result := e.interp.Call(vm.CallParams{
		Kind:       vm.CallKindCall,
		Caller:     sender,
		CallerAddr: sender,
		Target:     to,
		Value:      value,
		Input:      tx.Data,
		Gas:        gas,
		Depth:      0,
	})
	if !result.Success {
		return result.ReturnData, result.GasLeft, errorFor(result)
	}
	return result.ReturnData, result.GasLeft, nil
}

// runCreate dispatches a top-level contract-creation transaction.
func (e *Executor) runCreate(sender types.Address, tx *types.Transaction, gas uint64) (*types.Address, []byte, uint64, error) {
	if err := vm.ValidateInitCode(tx.Data); err != nil {
		return nil, nil, gas, err
	}
	result := e.interp.Create(vm.CreateParams{
		Kind:     vm.CreateKindCreate,
		Caller:   sender,
		Value:    tx.Value,
		InitCode: tx.Data,
		Gas:      gas,
		Depth:    0,
	})
	if !result.Success {
		return nil, result.ReturnData, result.GasLeft, errorForCreate(result)
	}
	addr := result.Address
	return &addr, result.ReturnData, result.GasLeft, nil
}

func errorFor(r vm.CallResult) error {
	if r.Err != nil {
		return r.Err
	}
	return vm.ErrExecutionReverted
}

func errorForCreate(r vm.CreateResult) error {
	if r.Err != nil {
		return r.Err
	}
	return vm.ErrExecutionReverted
}

func (e *Executor) blockContext(header state.BlockHeader) vm.BlockContext {
	return vm.BlockContext{
		Coinbase:  header.Coinbase,
		Timestamp: header.Timestamp,
		Number:    header.Number,
		GasLimit:  header.GasLimit,
		ChainID:   header.ChainID,
		GetHash:   e.chainHead.GetBlockHash,
	}
}

// ApplyBlock applies every transaction in txs in order against header, then
// flushes accumulated account/storage state (AccountStore.Flush, one batch)
// and advances the chain head in a second batch. The block is not written
// as one atomic batch: native contract data and event logs are already
// written per transaction by ApplyTransaction.
func (e *Executor) ApplyBlock(header state.BlockHeader, txs []*types.Transaction) ([]*Receipt, error) {
	receipts := make([]*Receipt, 0, len(txs))
	for _, tx := range txs {
		receipt, err := e.ApplyTransaction(header, tx)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, receipt)
	}

	if err := e.accounts.Flush(); err != nil {
		return receipts, fmt.Errorf("executor: flush accounts: %w", err)
	}

	batch := e.store.NewBatch()
	e.chainHead.Append(batch, header)
	if err := batch.Write(); err != nil {
		return receipts, fmt.Errorf("executor: write chain head: %w", err)
	}
	return receipts, nil
}

// ViewCall executes a read-only call against the current committed state,
// taking a snapshot it always reverts to afterward so no trace of the call
// is left behind regardless of outcome, per spec §4.7 "ViewCall (read-only,
// no snapshot promotion)".
func (e *Executor) ViewCall(header state.BlockHeader, from, to types.Address, input []byte) ([]byte, error) {
	snap := e.accounts.Snapshot()
	defer e.accounts.RevertToSnapshot(snap)

	e.host.beginTx(nil, vm.TxContext{Origin: from}, e.blockContext(header))

	if to == registry.ContractManagerAddress {
		return nil, errStaticCreate
	}
	if _, ok := e.registry.Lookup(to); ok {
		return e.registry.DispatchView(to, input)
	}

	code := e.accounts.GetCode(to)
	if len(code) == 0 {
		return nil, nil
	}
	contract := vm.NewContract(from, to, to, code, e.accounts.GetCodeHash(to), input, new(uint256.Int), header.GasLimit, true)
	result := e.interp.Run(contract, 0)
	if !result.Success {
		return result.ReturnData, errorFor(result)
	}
	return result.ReturnData, nil
}

// DeployNative deploys a native contract of typeTag on behalf of deployer
// outside of any signed transaction, for genesis bootstrapping. Ordinary
// transactions deploy through a message call to
// registry.ContractManagerAddress instead (spec §4.5's reserved-address
// create path, wired into stateHost.NativeDispatch); this method exists
// only because genesis state has no transaction to carry a call through.
func (e *Executor) DeployNative(deployer types.Address, typeTag string) (types.Address, error) {
	batch := e.store.NewBatch()
	addr, _, err := e.registry.DeployNative(batch, deployer, e.accounts.NonceOf(deployer), typeTag)
	if err != nil {
		return types.Address{}, err
	}
	e.accounts.SetNonce(deployer, e.accounts.NonceOf(deployer)+1)
	if err := batch.Write(); err != nil {
		return types.Address{}, err
	}
	return addr, nil
}
