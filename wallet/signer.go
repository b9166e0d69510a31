// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrUnauthorizedSigner is returned when the submitted public key is
	// not a member of the wallet's key set.
	ErrUnauthorizedSigner = errors.New("signer is not part of the policy")

	// ErrDuplicateSigner is returned when a signer that already
	// contributed in this wallet's session submits another signature
	// before the session is reset.
	ErrDuplicateSigner = errors.New("signer already contributed in this " +
		"session")

	// ErrDraftFinalized is returned when a signature is submitted for a
	// draft that has already been finalized.
	ErrDraftFinalized = errors.New("draft is already finalized")

	// ErrInvalidInputIndex is returned when the input index does not
	// refer to an input of the draft.
	ErrInvalidInputIndex = errors.New("input index out of range")
)

// SignTransaction computes the signer's signature over the digest of the
// given input and records it against the draft. The digest always commits
// to all inputs and outputs of the transaction (SIGHASH_ALL); no other
// commitment mode is supported.
//
// Authorization violations are returned as errors: a public key outside the
// policy's key set yields ErrUnauthorizedSigner, and a signer that already
// contributed in this wallet's session yields ErrDuplicateSigner until
// ResetSigners is called. A failure of the signing operation itself is
// instead reported by a false return with a nil error, so batch-signing
// loops can probe and continue past a single bad attempt.
func (w *Wallet) SignTransaction(draft *Draft, pubKey *btcec.PublicKey,
	privKey *btcec.PrivateKey, inputIndex int) (bool, error) {

	if draft.final != nil {
		return false, ErrDraftFinalized
	}
	if inputIndex < 0 || inputIndex >= len(draft.inputs) {
		return false, fmt.Errorf("%w: %d of %d", ErrInvalidInputIndex,
			inputIndex, len(draft.inputs))
	}
	if !w.policy.ContainsKey(pubKey) {
		return false, ErrUnauthorizedSigner
	}

	// The session set is wallet scoped. Holding the mutex across the
	// whole check-sign-record sequence guarantees that two concurrent
	// submissions by the same signer cannot both succeed.
	w.usedSignersMtx.Lock()
	defer w.usedSignersMtx.Unlock()

	signerID := string(pubKey.SerializeCompressed())
	if w.usedSigners.Contains(signerID) {
		return false, ErrDuplicateSigner
	}

	if privKey == nil {
		log.Warnf("Signer %x submitted without private key", signerID)
		return false, nil
	}

	digest, err := w.inputDigest(draft, inputIndex)
	if err != nil {
		log.Warnf("Cannot compute signing digest for input %d: %v",
			inputIndex, err)
		return false, nil
	}

	sig := ecdsa.Sign(privKey, digest)

	// A signature that does not verify under the submitted public key
	// means the private key does not belong to the signer. Recording it
	// would poison the draft, so treat it as a failed signing operation.
	if !sig.Verify(digest, pubKey) {
		log.Warnf("Signature by %x does not verify, discarding",
			signerID)
		return false, nil
	}

	sigBytes := append(sig.Serialize(), byte(txscript.SigHashAll))

	input := draft.inputs[inputIndex]
	input.sigs = append(input.sigs, &partialSig{
		pubKey: pubKey,
		sig:    sigBytes,
	})
	w.usedSigners.Add(signerID)

	log.Debugf("Recorded signature by %x for input %d (%d/%d), draft "+
		"now %v", signerID, inputIndex, len(input.sigs),
		w.policy.Threshold(), draft.State())

	return true, nil
}

// inputDigest computes the digest a signer commits to for the input at the
// given index. Witness inputs use the segwit digest which additionally
// commits to the spent amount; legacy inputs use the original signature
// hash over the redeem script.
func (w *Wallet) inputDigest(draft *Draft, inputIndex int) ([]byte, error) {
	input := draft.inputs[inputIndex]

	switch input.kind {
	case InputWitness:
		sigHashes := txscript.NewTxSigHashes(
			draft.tx, draft.prevOutFetcher(),
		)

		return txscript.CalcWitnessSigHash(
			w.redeemScript, sigHashes, txscript.SigHashAll,
			draft.tx, inputIndex, int64(input.utxo.Value),
		)

	default:
		return txscript.CalcSignatureHash(
			w.redeemScript, txscript.SigHashAll, draft.tx,
			inputIndex,
		)
	}
}

// prevOutFetcher exposes the outputs spent by the draft for the segwit
// digest cache.
func (d *Draft) prevOutFetcher() *txscript.MultiPrevOutFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for _, input := range d.inputs {
		fetcher.AddPrevOut(input.utxo.OutPoint, &wire.TxOut{
			Value:    int64(input.utxo.Value),
			PkScript: input.utxo.PkScript,
		})
	}

	return fetcher
}
