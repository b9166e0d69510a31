// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

// TestExportPsbt verifies that a draft with partial signatures renders to a
// packet carrying the spent outputs, the multisig script and the collected
// signatures.
func TestExportPsbt(t *testing.T) {
	t.Parallel()

	w, privKeys := newTestWallet(t, 2, 3)
	p2sh, _ := w.Addresses()

	legacy := fundingUtxo(t, w, 60_000, InputLegacy)
	witness := fundingUtxo(t, w, 40_000, InputWitness)
	draft, err := w.CreateTransaction(
		[]Utxo{legacy, witness},
		[]Recipient{{Address: p2sh.EncodeAddress(), Amount: 90_000}},
		1_000,
	)
	require.NoError(t, err)

	// One contribution per input before the export, each from a
	// different signer so the session guard stays quiet.
	for i := 0; i < draft.NumInputs(); i++ {
		ok, err := w.SignTransaction(
			draft, privKeys[i].PubKey(), privKeys[i], i,
		)
		require.NoError(t, err)
		require.True(t, ok)
	}

	packet, err := w.ExportPsbt(draft)
	require.NoError(t, err)
	require.Len(t, packet.Inputs, 2)

	// Legacy input: full previous transaction and redeem script.
	legacyIn := packet.Inputs[0]
	require.NotNil(t, legacyIn.NonWitnessUtxo)
	require.Equal(t, w.RedeemScript(), legacyIn.RedeemScript)
	require.Equal(t, txscript.SigHashAll, legacyIn.SighashType)
	require.Len(t, legacyIn.PartialSigs, 1)
	require.Equal(
		t, privKeys[0].PubKey().SerializeCompressed(),
		legacyIn.PartialSigs[0].PubKey,
	)

	// Witness input: spent output and witness script.
	witnessIn := packet.Inputs[1]
	require.NotNil(t, witnessIn.WitnessUtxo)
	require.EqualValues(t, 40_000, witnessIn.WitnessUtxo.Value)
	require.Equal(t, w.RedeemScript(), witnessIn.WitnessScript)
	require.Len(t, witnessIn.PartialSigs, 1)

	// The packet must round-trip through its base64 encoding.
	_, err = packet.B64Encode()
	require.NoError(t, err)
}

// TestExportPsbtFinalizedDraft verifies that a finalized draft can no
// longer be exported.
func TestExportPsbtFinalizedDraft(t *testing.T) {
	t.Parallel()

	w, draft, privKeys := newSignableDraft(t, InputWitness)
	signThreshold(t, w, draft, privKeys)

	_, err := w.FinalizeTransaction(draft)
	require.NoError(t, err)

	_, err = w.ExportPsbt(draft)
	require.ErrorIs(t, err, ErrDraftFinalized)
}
