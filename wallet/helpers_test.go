// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// testChainParams is the network all wallet tests run against.
var testChainParams = &chaincfg.MainNetParams

// newTestWallet creates an m-of-n wallet backed by freshly generated keys
// and returns the wallet together with the private keys in the same order
// as the raw public keys handed to the wallet.
func newTestWallet(t *testing.T, m, n int) (*Wallet, []*btcec.PrivateKey) {
	t.Helper()

	privKeys := make([]*btcec.PrivateKey, n)
	rawPubKeys := make([][]byte, n)
	for i := 0; i < n; i++ {
		privKey, err := btcec.NewPrivateKey()
		require.NoError(t, err)

		privKeys[i] = privKey
		rawPubKeys[i] = privKey.PubKey().SerializeCompressed()
	}

	w, err := NewWallet(m, rawPubKeys, testChainParams)
	require.NoError(t, err)

	return w, privKeys
}

// fundingUtxo fabricates a previous transaction paying the given value to
// the wallet in the requested form and returns the resulting unspent
// output. Legacy outputs carry the full previous transaction, witness
// outputs only the committed script and amount.
func fundingUtxo(t *testing.T, w *Wallet, value btcutil.Amount,
	kind InputKind) Utxo {

	t.Helper()

	pkScript := w.p2wshScript
	if kind == InputLegacy {
		pkScript = w.p2shScript
	}

	prevTx := wire.NewMsgTx(wire.TxVersion)
	prevTx.AddTxIn(wire.NewTxIn(
		wire.NewOutPoint(&chainhash.Hash{}, ^uint32(0)), nil, nil,
	))
	prevTx.AddTxOut(wire.NewTxOut(int64(value), pkScript))

	utxo := Utxo{
		OutPoint: wire.OutPoint{Hash: prevTx.TxHash(), Index: 0},
		Value:    value,
		PkScript: pkScript,
	}

	if kind == InputLegacy {
		var buf bytes.Buffer
		require.NoError(t, prevTx.Serialize(&buf))
		utxo.PrevTx = buf.Bytes()
	}

	return utxo
}

// signThreshold submits signatures for every input of the draft from the
// first threshold many signers. The session set refuses a second
// contribution by the same signer regardless of input, so the session is
// reset between inputs.
func signThreshold(t *testing.T, w *Wallet, draft *Draft,
	privKeys []*btcec.PrivateKey) {

	t.Helper()

	for i := 0; i < draft.NumInputs(); i++ {
		if i > 0 {
			w.ResetSigners()
		}

		for s := 0; s < w.Policy().Threshold(); s++ {
			ok, err := w.SignTransaction(
				draft, privKeys[s].PubKey(), privKeys[s], i,
			)
			require.NoError(t, err)
			require.True(t, ok)
		}
	}
}

// validateSpend executes every input script of the finalized transaction
// against the outputs it spends. A successful run proves the assembled
// unlocking data actually satisfies the multisig locking script.
func validateSpend(t *testing.T, finalTx []byte, utxos []Utxo) {
	t.Helper()

	tx := &wire.MsgTx{}
	require.NoError(t, tx.Deserialize(bytes.NewReader(finalTx)))

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for _, utxo := range utxos {
		fetcher.AddPrevOut(utxo.OutPoint, &wire.TxOut{
			Value:    int64(utxo.Value),
			PkScript: utxo.PkScript,
		})
	}
	hashCache := txscript.NewTxSigHashes(tx, fetcher)

	for i, utxo := range utxos {
		vm, err := txscript.NewEngine(
			utxo.PkScript, tx, i, txscript.StandardVerifyFlags,
			nil, hashCache, int64(utxo.Value), fetcher,
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "script execution failed")
	}
}
