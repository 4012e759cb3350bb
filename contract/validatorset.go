package contract

import (
	"github.com/holiman/uint256"

	"github.com/exacore/exacore/codec"
	"github.com/exacore/exacore/safevar"
	"github.com/exacore/exacore/types"
)

// ValidatorSetTypeTag identifies ValidatorSet in the registry's persisted
// type table.
const ValidatorSetTypeTag = "ValidatorSet"

// ValidatorSet is the consensus-facing reserved-address native contract
// that tracks the active validator set, addressable the same way
// ContractManager reaches rdPoS in original_source/src/contract/
// contractmanager.cpp's callContract ("if (to == ProtocolContractAddresses
// .at(\"rdPoS\"))" — a second always-present, protocol-owned contract
// alongside the user-deployable ones). Backed by a SafeMap[Address]bool
// rather than rdPoS's own validator machinery, since spec §5 only asks for
// add/remove/membership, not leader-election (out of scope per spec.md's
// Non-goals).
type ValidatorSet struct {
	Base
	validators *safevar.SafeMap[types.Address, bool]
	order      []types.Address // insertion order, for deterministic getValidators()
	admin      *safevar.SafeAddress
}

var (
	selAddValidator    = codec.Selector("addValidator(address)")
	selRemoveValidator = codec.Selector("removeValidator(address)")
	selIsValidator     = codec.Selector("isValidator(address)")
	selGetValidators   = codec.Selector("getValidators()")
)

// NewValidatorSet constructs a fresh, empty ValidatorSet recording admin.
// The admin address is stored and persisted by Snapshot/Restore;
// addValidator and removeValidator do not check the caller against it.
func NewValidatorSet(address types.Address, admin types.Address) *ValidatorSet {
	v := &ValidatorSet{Base: NewBase(address, ValidatorSetTypeTag)}
	v.validators = safevar.NewSafeMap[types.Address, bool](v.Registry())
	v.admin = safevar.NewSafeAddress(v.Registry(), admin)
	v.registerSelectors()
	return v
}

func (v *ValidatorSet) registerSelectors() {
	v.RegisterView(selIsValidator, func(input []byte) ([]byte, error) {
		args, err := codec.DecodeArgs(input, []codec.ABIType{{Kind: codec.ABIAddress}})
		if err != nil {
			return nil, err
		}
		isVal, _ := v.validators.Get(args[0].Addr)
		return codec.EncodeArgs([]codec.ABIValue{{Type: codec.ABIType{Kind: codec.ABIBool}, Bool: isVal}}), nil
	})
	v.RegisterView(selGetValidators, func(input []byte) ([]byte, error) {
		var active []types.Address
		for _, addr := range v.order {
			if ok, _ := v.validators.Get(addr); ok {
				active = append(active, addr)
			}
		}
		args := make([]codec.ABIValue, len(active))
		for i, a := range active {
			args[i] = codec.ABIValue{Type: codec.ABIType{Kind: codec.ABIAddress}, Addr: a}
		}
		return codec.EncodeArgs(args), nil
	})
	v.RegisterMutating(selAddValidator, false, func(input []byte, value *uint256.Int) ([]byte, error) {
		args, err := codec.DecodeArgs(input, []codec.ABIType{{Kind: codec.ABIAddress}})
		if err != nil {
			return nil, err
		}
		if _, already := v.validators.Get(args[0].Addr); !already {
			v.order = append(v.order, args[0].Addr)
		}
		v.validators.Set(args[0].Addr, true)
		return nil, nil
	})
	v.RegisterMutating(selRemoveValidator, false, func(input []byte, value *uint256.Int) ([]byte, error) {
		args, err := codec.DecodeArgs(input, []codec.ABIType{{Kind: codec.ABIAddress}})
		if err != nil {
			return nil, err
		}
		v.validators.Delete(args[0].Addr)
		return nil, nil
	})
}

// Snapshot serializes the admin address and the active validator list.
func (v *ValidatorSet) Snapshot() []byte {
	out := append([]byte{}, v.admin.Get().Bytes()...)
	for _, addr := range v.order {
		if ok, _ := v.validators.Get(addr); ok {
			out = append(out, addr.Bytes()...)
		}
	}
	return out
}

// Restore rehydrates the admin and validator set from a prior Snapshot.
func (v *ValidatorSet) Restore(data []byte) {
	if len(data) < types.AddressLength {
		return
	}
	v.admin.Set(types.BytesToAddress(data[:types.AddressLength]))
	for _, addr := range v.order {
		v.validators.Delete(addr)
	}
	v.order = nil
	for off := types.AddressLength; off+types.AddressLength <= len(data); off += types.AddressLength {
		addr := types.BytesToAddress(data[off : off+types.AddressLength])
		v.order = append(v.order, addr)
		v.validators.Set(addr, true)
	}
	v.Registry().Commit()
}
