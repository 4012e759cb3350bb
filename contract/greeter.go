package contract

import (
	"github.com/holiman/uint256"

	"github.com/exacore/exacore/codec"
	"github.com/exacore/exacore/safevar"
	"github.com/exacore/exacore/types"
)

// GreeterTypeTag identifies Greeter in the registry's persisted type table.
const GreeterTypeTag = "Greeter"

// Greeter is exacore's minimal example native contract: one SafeString and
// one SafeUint256 field, exposed through getName/getValue (view) and
// setName/setValue (nonpayable). Grounded directly on
// original_source/src/contract/simplecontract.h's SimpleContract.
type Greeter struct {
	Base
	name  *safevar.SafeString
	value *safevar.SafeUint256
}

var (
	selGetName  = codec.Selector("getName()")
	selGetValue = codec.Selector("getValue()")
	selSetName  = codec.Selector("setName(string)")
	selSetValue = codec.Selector("setValue(uint256)")
)

// NewGreeter constructs a fresh Greeter at address with the given initial
// field values, registering its selector table.
func NewGreeter(address types.Address, name string, value *uint256.Int) *Greeter {
	g := &Greeter{Base: NewBase(address, GreeterTypeTag)}
	g.name = safevar.NewSafeString(g.Registry(), name)
	g.value = safevar.NewSafeUint256(g.Registry(), value)
	g.registerSelectors()
	return g
}

func (g *Greeter) registerSelectors() {
	g.RegisterView(selGetName, func(input []byte) ([]byte, error) {
		return codec.EncodeArgs([]codec.ABIValue{{Type: codec.ABIType{Kind: codec.ABIString}, Str: g.name.Get()}}), nil
	})
	g.RegisterView(selGetValue, func(input []byte) ([]byte, error) {
		return codec.EncodeArgs([]codec.ABIValue{{Type: codec.ABIType{Kind: codec.ABIUint256}, Uint256: g.value.Get()}}), nil
	})
	g.RegisterMutating(selSetName, false, func(input []byte, value *uint256.Int) ([]byte, error) {
		args, err := codec.DecodeArgs(input, []codec.ABIType{{Kind: codec.ABIString}})
		if err != nil {
			return nil, err
		}
		g.name.Set(args[0].Str)
		return nil, nil
	})
	g.RegisterMutating(selSetValue, false, func(input []byte, value *uint256.Int) ([]byte, error) {
		args, err := codec.DecodeArgs(input, []codec.ABIType{{Kind: codec.ABIUint256}})
		if err != nil {
			return nil, err
		}
		g.value.Set(args[0].Uint256)
		return nil, nil
	})
}

// Snapshot serializes name and value for persistence across restarts.
func (g *Greeter) Snapshot() []byte {
	nameBytes := []byte(g.name.Get())
	out := make([]byte, 0, 4+len(nameBytes)+32)
	out = append(out, codec.PutUint64(uint64(len(nameBytes)))[4:]...)
	out = append(out, nameBytes...)
	out = append(out, codec.PutUint256(g.value.Get())...)
	return out
}

// Restore rehydrates name and value from a prior Snapshot.
func (g *Greeter) Restore(data []byte) {
	if len(data) < 4 {
		return
	}
	n := codec.GetUint64(append(make([]byte, 4), data[:4]...))
	if 4+int(n)+32 > len(data) {
		return
	}
	g.name.Set(string(data[4 : 4+n]))
	g.value.Set(codec.GetUint256(data[4+n : 4+n+32]))
	g.Registry().Commit()
}
