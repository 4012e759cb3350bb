package codec

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/exacore/exacore/crypto"
	"github.com/exacore/exacore/types"
)

// ABIKind identifies the category of a Solidity-compatible ABI type.
// Grounded on the teacher's core/vm/abi.go ABITypeKind.
type ABIKind uint8

const (
	ABIUint256 ABIKind = iota
	ABIAddress
	ABIBool
	ABIBytes
	ABIString
	ABIFixedBytes // bytesN, 1..32, static
)

// ABIType describes one Solidity ABI parameter type.
type ABIType struct {
	Kind ABIKind
	Size int // bytesN size, 1..32
}

func (t ABIType) isDynamic() bool {
	return t.Kind == ABIBytes || t.Kind == ABIString
}

// ABIValue is a decoded or to-be-encoded ABI argument.
type ABIValue struct {
	Type    ABIType
	Uint256 *uint256.Int
	Addr    types.Address
	Bool    bool
	Bytes   []byte
	Str     string
}

var (
	ErrABIShortData   = errors.New("abi: data too short")
	ErrABIInvalidBool = errors.New("abi: invalid bool value")
	ErrABIBadOffset   = errors.New("abi: offset exceeds data length")
)

// Selector computes the 4-byte function selector from a canonical signature
// string such as "transfer(address,uint256)".
func Selector(signature string) [4]byte {
	hash := crypto.Keccak256([]byte(signature))
	var sel [4]byte
	copy(sel[:], hash[:4])
	return sel
}

// EncodeCall encodes a full contract call: 4-byte selector followed by
// head/tail-packed arguments.
func EncodeCall(selector [4]byte, args []ABIValue) []byte {
	enc := EncodeArgs(args)
	out := make([]byte, 4+len(enc))
	copy(out[:4], selector[:])
	copy(out[4:], enc)
	return out
}

// EncodeArgs ABI-encodes a list of values using head/tail encoding: static
// values are written inline in the head; dynamic values are written in the
// tail with a 32-byte offset placeholder in the head, per spec §4.2.
func EncodeArgs(vals []ABIValue) []byte {
	headSize := len(vals) * 32
	var heads, tails []byte
	for _, v := range vals {
		if v.Type.isDynamic() {
			offset := headSize + len(tails)
			heads = append(heads, pad32(uint256.NewInt(uint64(offset)).Bytes())...)
			tails = append(tails, encodeOne(v)...)
		} else {
			heads = append(heads, encodeOne(v)...)
		}
	}
	return append(heads, tails...)
}

func encodeOne(v ABIValue) []byte {
	switch v.Type.Kind {
	case ABIUint256:
		val := v.Uint256
		if val == nil {
			val = new(uint256.Int)
		}
		b := val.Bytes32()
		return b[:]
	case ABIAddress:
		return pad32(v.Addr[:])
	case ABIBool:
		out := make([]byte, 32)
		if v.Bool {
			out[31] = 1
		}
		return out
	case ABIFixedBytes:
		out := make([]byte, 32)
		copy(out, v.Bytes)
		return out
	case ABIBytes:
		return encodeDynamicBytes(v.Bytes)
	case ABIString:
		data := v.Bytes
		if len(data) == 0 {
			data = []byte(v.Str)
		}
		return encodeDynamicBytes(data)
	default:
		return make([]byte, 32)
	}
}

func encodeDynamicBytes(data []byte) []byte {
	lenWord := pad32(uint256.NewInt(uint64(len(data))).Bytes())
	out := append(lenWord, data...)
	if rem := len(data) % 32; rem != 0 {
		out = append(out, make([]byte, 32-rem)...)
	}
	return out
}

func pad32(b []byte) []byte {
	out := make([]byte, 32)
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}

// DecodeArgs decodes data (without a leading selector) into values of the
// given types.
func DecodeArgs(data []byte, types_ []ABIType) ([]ABIValue, error) {
	out := make([]ABIValue, len(types_))
	headPos := 0
	for i, t := range types_ {
		if headPos+32 > len(data) {
			return nil, ErrABIShortData
		}
		word := data[headPos : headPos+32]
		if t.isDynamic() {
			offset := new(uint256.Int).SetBytes(word).Uint64()
			if int(offset) > len(data) {
				return nil, ErrABIBadOffset
			}
			v, err := decodeDynamic(data, int(offset), t)
			if err != nil {
				return nil, err
			}
			out[i] = v
		} else {
			v, err := decodeStatic(word, t)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		headPos += 32
	}
	return out, nil
}

func decodeStatic(word []byte, t ABIType) (ABIValue, error) {
	switch t.Kind {
	case ABIUint256:
		return ABIValue{Type: t, Uint256: new(uint256.Int).SetBytes(word)}, nil
	case ABIAddress:
		return ABIValue{Type: t, Addr: types.BytesToAddress(word[12:])}, nil
	case ABIBool:
		allZero := true
		for _, b := range word[:31] {
			if b != 0 {
				allZero = false
				break
			}
		}
		if !allZero || (word[31] != 0 && word[31] != 1) {
			return ABIValue{}, ErrABIInvalidBool
		}
		return ABIValue{Type: t, Bool: word[31] == 1}, nil
	case ABIFixedBytes:
		n := t.Size
		if n <= 0 || n > 32 {
			n = 32
		}
		return ABIValue{Type: t, Bytes: append([]byte(nil), word[:n]...)}, nil
	default:
		return ABIValue{}, ErrABIShortData
	}
}

func decodeDynamic(data []byte, offset int, t ABIType) (ABIValue, error) {
	if offset+32 > len(data) {
		return ABIValue{}, ErrABIShortData
	}
	length := new(uint256.Int).SetBytes(data[offset : offset+32]).Uint64()
	start := offset + 32
	end := start + int(length)
	if end > len(data) {
		return ABIValue{}, ErrABIShortData
	}
	raw := append([]byte(nil), data[start:end]...)
	if t.Kind == ABIString {
		return ABIValue{Type: t, Str: string(raw), Bytes: raw}, nil
	}
	return ABIValue{Type: t, Bytes: raw}, nil
}
