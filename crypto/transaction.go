package crypto

import (
	"github.com/exacore/exacore/types"
)

// TxSigningHash returns the hash signed by the sender: keccak256 of the RLP
// list of every field except the signature, with the chain ID mixed in per
// spec §6 ("chain-id mixed into the signed digest").
func TxSigningHash(tx *types.Transaction) types.Hash {
	return types.BytesToHash(Keccak256(rlpList(txPayload(tx, false))))
}

// TxHash returns the transaction's identity hash: keccak256 of the full
// serialized transaction, signature included.
func TxHash(tx *types.Transaction) types.Hash {
	return types.BytesToHash(Keccak256(rlpList(txPayload(tx, true))))
}

func txPayload(tx *types.Transaction, withSignature bool) []byte {
	var to []byte
	if tx.To != nil {
		to = tx.To[:]
	}
	var value, gasPrice []byte
	if tx.Value != nil {
		value = tx.Value.Bytes()
	}
	if tx.GasPrice != nil {
		gasPrice = tx.GasPrice.Bytes()
	}
	payload := rlpUint(tx.Nonce)
	payload = append(payload, rlpBytes(gasPrice)...)
	payload = append(payload, rlpUint(tx.GasLimit)...)
	payload = append(payload, rlpBytes(to)...)
	payload = append(payload, rlpBytes(value)...)
	payload = append(payload, rlpBytes(tx.Data)...)
	payload = append(payload, rlpUint(tx.ChainID)...)
	if withSignature {
		payload = append(payload, rlpBytes(tx.Signature)...)
	}
	return payload
}

// RecoverSender recovers and returns the sender address from tx.Signature
// over TxSigningHash(tx). The wire layer must never trust a "from" field —
// it is always derived here (spec §3: "from is recovered from the
// signature — never trusted from the wire").
func RecoverSender(tx *types.Transaction) (types.Address, error) {
	h := TxSigningHash(tx)
	return Ecrecover(h.Bytes(), tx.Signature)
}
