// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrVerificationFailed is returned when a draft is finalized before
	// every input has reached the policy threshold of distinct,
	// authorized signatures.
	ErrVerificationFailed = errors.New("draft does not meet the signing " +
		"threshold")

	// ErrFinalize is returned when the assembled transaction cannot be
	// encoded. The unlocking data is built from validated signatures, so
	// this indicates a broken invariant rather than bad input.
	ErrFinalize = errors.New("cannot encode finalized transaction")
)

// VerifyTransaction reports whether every input of the draft carries at
// least threshold many distinct signatures, all of them from policy
// signers. The duplicate and membership checks are performed here again
// independently of the submission-time guards. The draft is not modified.
func (w *Wallet) VerifyTransaction(draft *Draft) bool {
	threshold := w.policy.Threshold()

	for i, input := range draft.inputs {
		seen := fn.NewSet[string]()
		for _, sig := range input.sigs {
			if !w.policy.ContainsKey(sig.pubKey) {
				log.Warnf("Input %d carries a signature by "+
					"non-policy key %x", i,
					sig.pubKey.SerializeCompressed())
				return false
			}

			signerID := string(sig.pubKey.SerializeCompressed())
			if seen.Contains(signerID) {
				log.Warnf("Input %d carries two signatures "+
					"by %x", i, signerID)
				return false
			}
			seen.Add(signerID)
		}

		if len(seen) < threshold {
			log.Debugf("Input %d has %d of %d required "+
				"signatures", i, len(seen), threshold)
			return false
		}
	}

	return true
}

// FinalizeTransaction assembles the unlocking data for every input of a
// fully signed draft and returns the broadcast-ready wire encoding. For
// each input the signatures are placed in the same relative order as their
// keys appear in the canonical key order, behind the extra element
// OP_CHECKMULTISIG pops, and followed by the locking script itself.
//
// Finalization is terminal and idempotent: the first success freezes the
// draft, refuses any further signatures and makes every later call return
// the identical encoding.
func (w *Wallet) FinalizeTransaction(draft *Draft) ([]byte, error) {
	if draft.final != nil {
		return append([]byte(nil), draft.final...), nil
	}

	if !w.VerifyTransaction(draft) {
		return nil, ErrVerificationFailed
	}

	// Build all unlocking data before touching the transaction so that a
	// failure half way through cannot leave the draft partially
	// finalized.
	sigScripts := make([][]byte, len(draft.inputs))
	witnesses := make([]wire.TxWitness, len(draft.inputs))
	for i, input := range draft.inputs {
		sigs := w.orderedSignatures(input)

		switch input.kind {
		case InputWitness:
			// The leading empty element is consumed by the
			// off-by-one in OP_CHECKMULTISIG.
			witness := make(wire.TxWitness, 0, len(sigs)+2)
			witness = append(witness, nil)
			witness = append(witness, sigs...)
			witness = append(witness, w.redeemScript)
			witnesses[i] = witness

		default:
			builder := txscript.NewScriptBuilder()
			builder.AddOp(txscript.OP_FALSE)
			for _, sig := range sigs {
				builder.AddData(sig)
			}
			builder.AddData(w.redeemScript)

			sigScript, err := builder.Script()
			if err != nil {
				return nil, fmt.Errorf("%w: input %d: %v",
					ErrFinalize, i, err)
			}
			sigScripts[i] = sigScript
		}
	}

	for i, txIn := range draft.tx.TxIn {
		txIn.SignatureScript = sigScripts[i]
		txIn.Witness = witnesses[i]
	}

	var buf bytes.Buffer
	if err := draft.tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFinalize, err)
	}
	draft.final = buf.Bytes()

	log.Infof("Finalized draft %v (%d bytes)", draft.tx.TxHash(),
		len(draft.final))
	log.Debugf("Finalized transaction: %v", newLogClosure(func() string {
		return spew.Sdump(draft.tx)
	}))

	return append([]byte(nil), draft.final...), nil
}

// orderedSignatures returns the threshold many signatures of the input,
// ordered by the canonical position of their signing keys as required for
// OP_CHECKMULTISIG evaluation.
func (w *Wallet) orderedSignatures(input *draftInput) [][]byte {
	sigs := make([][]byte, 0, w.policy.Threshold())
	for _, key := range w.policy.Keys() {
		for _, sig := range input.sigs {
			if sig.pubKey.IsEqual(key) {
				sigs = append(sigs, sig.sig)
				break
			}
		}
		if len(sigs) == w.policy.Threshold() {
			break
		}
	}

	return sigs
}
