// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
)

// InputKind tags the form of a draft input, decided once when the draft is
// assembled so that signing and finalization never re-inspect the committed
// script.
type InputKind uint8

const (
	// InputLegacy is a p2sh output. Its signing digest is the original
	// signature hash over the redeem script and it is unlocked through
	// the signature script.
	InputLegacy InputKind = iota

	// InputWitness is a p2wsh output. Its signing digest is the segwit
	// digest committing to the output amount and it is unlocked through
	// the witness stack.
	InputWitness
)

// String returns the string representation of an InputKind.
func (k InputKind) String() string {
	switch k {
	case InputLegacy:
		return "legacy"

	case InputWitness:
		return "witness"

	default:
		return "unknown input kind"
	}
}

// partialSig is one signer's contribution for a single input.
type partialSig struct {
	pubKey *btcec.PublicKey

	// sig is the DER encoded ECDSA signature with the sighash flag
	// appended.
	sig []byte
}

// draftInput couples a transaction input with the unspent output it spends
// and the partial signatures recorded against it.
type draftInput struct {
	kind InputKind
	utxo Utxo

	// prevTx is the decoded previous transaction. Populated for legacy
	// inputs only.
	prevTx *wire.MsgTx

	sigs []*partialSig
}

// signedBy reports whether the given signer already has a recorded
// contribution for this input.
func (in *draftInput) signedBy(pubKey *btcec.PublicKey) bool {
	for _, sig := range in.sigs {
		if sig.pubKey.IsEqual(pubKey) {
			return true
		}
	}
	return false
}

// Draft is an unsigned spending transaction under construction. It is
// created by Wallet.CreateTransaction, mutated only through
// Wallet.SignTransaction and becomes immutable once finalized.
type Draft struct {
	tx        *wire.MsgTx
	inputs    []*draftInput
	threshold int

	// final caches the wire encoding produced by the first successful
	// finalization. Non-nil means the draft is terminal.
	final []byte
}

// Tx returns a deep copy of the draft's transaction skeleton.
func (d *Draft) Tx() *wire.MsgTx {
	return d.tx.Copy()
}

// NumInputs returns the number of inputs in the draft.
func (d *Draft) NumInputs() int {
	return len(d.inputs)
}

// InputKindAt returns the resolved form of the input at the given index.
func (d *Draft) InputKindAt(index int) InputKind {
	return d.inputs[index].kind
}

// SignatureCount returns the number of partial signatures recorded for the
// input at the given index.
func (d *Draft) SignatureCount(index int) int {
	return len(d.inputs[index].sigs)
}
