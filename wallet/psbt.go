// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ExportPsbt renders the draft as a BIP-174 partially signed transaction so
// that offline co-signers can inspect and sign it with independent tooling.
// The packet carries the spent outputs, the multisig script in its redeem or
// witness script slot and any partial signatures collected so far. A
// finalized draft can no longer be exported.
func (w *Wallet) ExportPsbt(draft *Draft) (*psbt.Packet, error) {
	if draft.final != nil {
		return nil, ErrDraftFinalized
	}

	packet, err := psbt.NewFromUnsignedTx(draft.Tx())
	if err != nil {
		return nil, fmt.Errorf("cannot create psbt: %w", err)
	}

	for i, input := range draft.inputs {
		pIn := &packet.Inputs[i]
		pIn.SighashType = txscript.SigHashAll

		switch input.kind {
		case InputWitness:
			pIn.WitnessUtxo = &wire.TxOut{
				Value:    int64(input.utxo.Value),
				PkScript: input.utxo.PkScript,
			}
			pIn.WitnessScript = w.RedeemScript()

		default:
			// The full previous transaction is always attached for
			// non-taproot inputs (CVE-2020-14199).
			pIn.NonWitnessUtxo = input.prevTx
			pIn.RedeemScript = w.RedeemScript()
		}

		for _, sig := range input.sigs {
			pIn.PartialSigs = append(
				pIn.PartialSigs, &psbt.PartialSig{
					PubKey:    sig.pubKey.SerializeCompressed(),
					Signature: sig.sig,
				},
			)
		}
	}

	return packet, nil
}
